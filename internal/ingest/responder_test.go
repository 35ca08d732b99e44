package ingest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/david0ql/helpdeskd/internal/apperr"
)

func TestHTTPResponderConverse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/conversation" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var req converseRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.TicketID != 42 || req.UserMessage != "oi" || req.MessageID != "M1" {
			t.Errorf("request = %+v", req)
		}
		_ = json.NewEncoder(w).Encode(converseResponse{Message: "ola!"})
	}))
	defer srv.Close()

	r := NewHTTPResponder(srv.URL, time.Second)
	reply, err := r.Converse(context.Background(), 42, "oi", "M1")
	if err != nil {
		t.Fatal(err)
	}
	if reply != "ola!" {
		t.Errorf("reply = %q, want ola!", reply)
	}
}

func TestHTTPResponderUpstreamErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	r := NewHTTPResponder(srv.URL, time.Second)
	_, err := r.Converse(context.Background(), 1, "oi", "M1")
	if apperr.KindOf(err) != apperr.KindUpstream {
		t.Errorf("err = %v, want upstream", err)
	}
}

func TestHTTPResponderDisabledWhenUnconfigured(t *testing.T) {
	r := NewHTTPResponder("", time.Second)
	reply, err := r.Converse(context.Background(), 1, "oi", "M1")
	if err != nil || reply != "" {
		t.Errorf("Converse = (%q, %v), want empty no-op", reply, err)
	}
}
