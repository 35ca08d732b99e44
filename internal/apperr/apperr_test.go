package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatusClassification(t *testing.T) {
	cases := []struct {
		err    error
		status int
		kind   Kind
	}{
		{NotFound("no ticket found with this id"), http.StatusNotFound, KindNotFound},
		{Conflict("ticket already open"), http.StatusConflict, KindConflict},
		{Upstream("responder call failed", errors.New("timeout")), http.StatusBadGateway, KindUpstream},
		{Auth("invalid token"), http.StatusUnauthorized, KindAuth},
		{Integrity("message missing after upsert"), http.StatusInternalServerError, KindIntegrity},
	}

	for _, c := range cases {
		if got := StatusOf(c.err); got != c.status {
			t.Errorf("StatusOf(%v) = %d, want %d", c.err, got, c.status)
		}
		if got := KindOf(c.err); got != c.kind {
			t.Errorf("KindOf(%v) = %q, want %q", c.err, got, c.kind)
		}
	}
}

func TestUnclassifiedDefaultsTo500(t *testing.T) {
	err := errors.New("disk on fire")
	if got := StatusOf(err); got != http.StatusInternalServerError {
		t.Errorf("StatusOf = %d, want 500", got)
	}
	if got := KindOf(err); got != "" {
		t.Errorf("KindOf = %q, want empty", got)
	}
}

func TestWrappedErrorKeepsKind(t *testing.T) {
	inner := Upstream("send failed", errors.New("broken pipe"))
	wrapped := fmt.Errorf("dispatch farewell: %w", inner)

	if got := StatusOf(wrapped); got != http.StatusBadGateway {
		t.Errorf("StatusOf(wrapped) = %d, want 502", got)
	}
	if !errors.Is(wrapped, Upstream("", nil)) {
		t.Error("errors.Is should match by kind through wrapping")
	}
}
