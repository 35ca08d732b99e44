package ingest

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/david0ql/helpdeskd/internal/broadcast"
	"github.com/david0ql/helpdeskd/internal/store"
)

// mockResponder records calls and returns configurable results.
type mockResponder struct {
	calls int
	reply string
	err   error
}

func (m *mockResponder) Converse(_ context.Context, _ int64, _ string, _ string) (string, error) {
	m.calls++
	return m.reply, m.err
}

func testDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func seedTicket(t *testing.T, db *store.DB) (*store.Contact, *store.Ticket) {
	t.Helper()
	contact, err := db.UpsertContact("5511999990000", "Ana", false)
	if err != nil {
		t.Fatal(err)
	}
	channel, err := db.EnsureChannel("default")
	if err != nil {
		t.Fatal(err)
	}
	agent := int64(4)
	ticket := &store.Ticket{
		Status:         store.StatusClosed,
		ContactID:      contact.ID,
		ChannelID:      channel.ID,
		UserID:         &agent,
		UnreadMessages: 9,
	}
	if err := db.CreateTicket(ticket); err != nil {
		t.Fatal(err)
	}
	return contact, ticket
}

func newTestService(t *testing.T) (*Service, *store.DB, *broadcast.Hub, *mockResponder) {
	t.Helper()
	db := testDB(t)
	hub := broadcast.New(nil)
	responder := &mockResponder{}
	return NewService(db, hub, responder, zap.NewNop()), db, hub, responder
}

func boolPtr(b bool) *bool { return &b }

func TestIngestReopensTicket(t *testing.T) {
	svc, db, _, _ := newTestService(t)
	contact, ticket := seedTicket(t, db)

	detail, _, err := svc.Ingest(context.Background(), MessageData{
		ID:        "MSG1",
		TicketID:  ticket.ID,
		ContactID: &contact.ID,
		Body:      "preciso de ajuda",
		FromMe:    boolPtr(false),
	})
	if err != nil {
		t.Fatal(err)
	}

	// Whatever the prior state, an ingested message puts the ticket
	// back in the queue.
	stored, _ := db.GetTicket(ticket.ID)
	if stored.Status != store.StatusOpen {
		t.Errorf("status = %q, want open", stored.Status)
	}
	if stored.UserID != nil {
		t.Errorf("userID = %v, want cleared", *stored.UserID)
	}
	if stored.UnreadMessages != 0 {
		t.Errorf("unread = %d, want 0", stored.UnreadMessages)
	}

	if detail.Ticket == nil || detail.Ticket.Status != store.StatusOpen {
		t.Errorf("enriched ticket = %+v, want open", detail.Ticket)
	}
	if detail.Contact == nil || detail.Contact.Name != "Ana" {
		t.Errorf("enriched contact = %+v", detail.Contact)
	}
}

func TestIngestConsultsResponderOnlyForInbound(t *testing.T) {
	svc, db, _, responder := newTestService(t)
	contact, ticket := seedTicket(t, db)
	responder.reply = "Posso ajudar?"

	_, reply, err := svc.Ingest(context.Background(), MessageData{
		ID: "IN1", TicketID: ticket.ID, ContactID: &contact.ID, Body: "oi", FromMe: boolPtr(false),
	})
	if err != nil {
		t.Fatal(err)
	}
	if reply != "Posso ajudar?" {
		t.Errorf("reply = %q", reply)
	}
	if responder.calls != 1 {
		t.Errorf("responder calls = %d, want 1", responder.calls)
	}

	// Agent-authored messages never trigger the responder.
	_, reply, err = svc.Ingest(context.Background(), MessageData{
		ID: "OUT1", TicketID: ticket.ID, Body: "ola", FromMe: boolPtr(true),
	})
	if err != nil {
		t.Fatal(err)
	}
	if reply != "" || responder.calls != 1 {
		t.Errorf("outbound message consulted responder: reply=%q calls=%d", reply, responder.calls)
	}

	// Unmarked directionality is not inbound either.
	_, _, err = svc.Ingest(context.Background(), MessageData{
		ID: "UNK1", TicketID: ticket.ID, Body: "?",
	})
	if err != nil {
		t.Fatal(err)
	}
	if responder.calls != 1 {
		t.Errorf("unmarked message consulted responder: calls=%d", responder.calls)
	}
}

func TestIngestDegradesOnResponderFailure(t *testing.T) {
	svc, db, _, responder := newTestService(t)
	contact, ticket := seedTicket(t, db)
	responder.err = errors.New("timeout")

	detail, reply, err := svc.Ingest(context.Background(), MessageData{
		ID: "MSG2", TicketID: ticket.ID, ContactID: &contact.ID, Body: "oi", FromMe: boolPtr(false),
	})
	if err != nil {
		t.Fatalf("Ingest returned %v; responder failure must degrade, not propagate", err)
	}
	if reply != "" {
		t.Errorf("reply = %q, want empty on responder failure", reply)
	}
	if detail == nil {
		t.Fatal("message detail missing")
	}

	stored, _ := db.GetTicket(ticket.ID)
	if stored.Status != store.StatusOpen {
		t.Errorf("ticket status = %q; responder failure must not block the reopen", stored.Status)
	}
}

func TestIngestRedeliveryOverwrites(t *testing.T) {
	svc, db, _, _ := newTestService(t)
	contact, ticket := seedTicket(t, db)

	for _, body := range []string{"first", "second"} {
		if _, _, err := svc.Ingest(context.Background(), MessageData{
			ID: "DUP1", TicketID: ticket.ID, ContactID: &contact.ID, Body: body, FromMe: boolPtr(true),
		}); err != nil {
			t.Fatal(err)
		}
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM messages WHERE id = 'DUP1'`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("message count = %d, want 1", count)
	}
	stored, _ := db.GetMessage("DUP1")
	if stored.Body != "second" {
		t.Errorf("body = %q, want second", stored.Body)
	}
}

func TestIngestBroadcastsToThreeRooms(t *testing.T) {
	svc, db, hub, _ := newTestService(t)
	contact, ticket := seedTicket(t, db)

	type namedSink struct {
		name string
		ch   chan broadcast.Frame
	}
	sinks := make([]*namedSink, 0, 3)
	join := func(name string, room broadcast.Room) {
		s := &namedSink{name: name, ch: make(chan broadcast.Frame, 4)}
		id := hub.Register(sinkFunc(func(f broadcast.Frame) error { s.ch <- f; return nil }))
		hub.Join(id, room)
		sinks = append(sinks, s)
	}
	join("ticket room", broadcast.TicketRoom(ticket.ID))
	join("status room", broadcast.StatusRoom(store.StatusOpen))
	join("notification", broadcast.RoomNotification)

	if _, _, err := svc.Ingest(context.Background(), MessageData{
		ID: "MSG3", TicketID: ticket.ID, ContactID: &contact.ID, Body: "oi", FromMe: boolPtr(false),
	}); err != nil {
		t.Fatal(err)
	}

	for _, s := range sinks {
		select {
		case f := <-s.ch:
			if f.Event != "appMessage" {
				t.Errorf("%s: event = %q, want appMessage", s.name, f.Event)
			}
			payload := f.Data.(Payload)
			if payload.Action != "create" || payload.Message == nil || payload.Ticket == nil || payload.Contact == nil {
				t.Errorf("%s: payload = %+v", s.name, payload)
			}
		case <-time.After(time.Second):
			t.Errorf("%s: no event delivered", s.name)
		}
	}
}

// sinkFunc adapts a function to broadcast.Sink.
type sinkFunc func(broadcast.Frame) error

func (f sinkFunc) Send(frame broadcast.Frame) error { return f(frame) }
