package gateway

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/david0ql/helpdeskd/internal/auth"
	"github.com/david0ql/helpdeskd/internal/broadcast"
	"github.com/david0ql/helpdeskd/internal/presence"
	"github.com/david0ql/helpdeskd/internal/store"
)

func testDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "helpdesk.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if _, err := db.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func testHandler(t *testing.T, db *store.DB) (*Handler, *broadcast.Hub, *auth.Verifier) {
	t.Helper()
	logger := zap.NewNop()
	hub := broadcast.New(logger)
	tracker := presence.NewTracker(db, logger)
	verifier := auth.NewVerifier("gateway-test-secret")
	return New(hub, tracker, verifier, nil, logger), hub, verifier
}

func dial(t *testing.T, url, token string) *websocket.Conn {
	t.Helper()
	wsURL := strings.Replace(url, "http", "ws", 1) + "?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestRejectsBadToken(t *testing.T) {
	db := testDB(t)
	h, _, _ := testHandler(t, db)
	srv := httptest.NewServer(h)
	defer srv.Close()

	wsURL := strings.Replace(srv.URL, "http", "ws", 1) + "?token=garbage"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatal("expected handshake failure")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 handshake response, got %+v", resp)
	}
}

func TestJoinedRoomReceivesEvents(t *testing.T) {
	db := testDB(t)
	user := &store.User{Name: "Ana", Email: "ana@example.com", Profile: "admin"}
	if err := db.CreateUser(user); err != nil {
		t.Fatal(err)
	}
	h, hub, verifier := testHandler(t, db)
	srv := httptest.NewServer(h)
	defer srv.Close()

	token, err := verifier.Sign(user.ID, user.Profile, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	conn := dial(t, srv.URL, token)

	if err := conn.WriteJSON(map[string]string{"action": "joinChatBox", "ticketId": "42"}); err != nil {
		t.Fatal(err)
	}

	// Membership is applied asynchronously by the read loop; publish
	// until the frame comes through.
	got := make(chan broadcast.Frame, 1)
	go func() {
		var f broadcast.Frame
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		if err := conn.ReadJSON(&f); err == nil {
			got <- f
		}
	}()
	deadline := time.Now().Add(2 * time.Second)
	for {
		hub.Publish([]broadcast.Room{broadcast.TicketRoom(42)}, "appMessage", map[string]string{"action": "create"})
		select {
		case f := <-got:
			if f.Event != "appMessage" {
				t.Fatalf("event = %q, want appMessage", f.Event)
			}
			return
		case <-time.After(50 * time.Millisecond):
			if time.Now().After(deadline) {
				t.Fatal("no frame delivered to joined room")
			}
		}
	}
}

func TestConnectionTracksPresence(t *testing.T) {
	db := testDB(t)
	user := &store.User{Name: "Bia", Email: "bia@example.com", Profile: "user"}
	if err := db.CreateUser(user); err != nil {
		t.Fatal(err)
	}
	h, _, verifier := testHandler(t, db)
	srv := httptest.NewServer(h)
	defer srv.Close()

	token, err := verifier.Sign(user.ID, user.Profile, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	conn := dial(t, srv.URL, token)

	waitFor(t, func() bool {
		u, err := db.GetUser(user.ID)
		return err == nil && u != nil && u.IsConnected
	})

	_ = conn.Close()
	waitFor(t, func() bool {
		u, err := db.GetUser(user.ID)
		return err == nil && u != nil && !u.IsConnected
	})
}

func TestUnknownActionIgnored(t *testing.T) {
	db := testDB(t)
	user := &store.User{Name: "Caio", Email: "caio@example.com", Profile: "user"}
	if err := db.CreateUser(user); err != nil {
		t.Fatal(err)
	}
	h, hub, verifier := testHandler(t, db)
	srv := httptest.NewServer(h)
	defer srv.Close()

	token, err := verifier.Sign(user.ID, user.Profile, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	conn := dial(t, srv.URL, token)

	if err := conn.WriteJSON(map[string]string{"action": "bogus"}); err != nil {
		t.Fatal(err)
	}
	if err := conn.WriteJSON(map[string]string{"action": "joinNotification"}); err != nil {
		t.Fatal(err)
	}

	got := make(chan broadcast.Frame, 1)
	go func() {
		var f broadcast.Frame
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		if err := conn.ReadJSON(&f); err == nil {
			got <- f
		}
	}()
	deadline := time.Now().Add(2 * time.Second)
	for {
		hub.Publish([]broadcast.Room{broadcast.RoomNotification}, "ticket", map[string]string{"action": "update"})
		select {
		case f := <-got:
			if f.Event != "ticket" {
				t.Fatalf("event = %q, want ticket", f.Event)
			}
			return
		case <-time.After(50 * time.Millisecond):
			if time.Now().After(deadline) {
				t.Fatal("connection dropped after unknown action")
			}
		}
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}
