package broadcast

import (
	"testing"
	"time"
)

// chanSink collects frames on a channel.
type chanSink struct {
	frames chan Frame
}

func newChanSink() *chanSink {
	return &chanSink{frames: make(chan Frame, 64)}
}

func (s *chanSink) Send(f Frame) error {
	s.frames <- f
	return nil
}

func (s *chanSink) wait(t *testing.T) Frame {
	t.Helper()
	select {
	case f := <-s.frames:
		return f
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for frame")
		return Frame{}
	}
}

func (s *chanSink) expectNone(t *testing.T) {
	t.Helper()
	select {
	case f := <-s.frames:
		t.Fatalf("unexpected frame: %+v", f)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPublishReachesRoomMembers(t *testing.T) {
	h := New(nil)
	sink := newChanSink()
	id := h.Register(sink)
	h.Join(id, RoomNotification)

	h.Publish([]Room{RoomNotification}, "ticket", "payload")

	f := sink.wait(t)
	if f.Event != "ticket" || f.Data != "payload" {
		t.Errorf("frame = %+v", f)
	}
}

func TestPublishSkipsNonMembers(t *testing.T) {
	h := New(nil)
	member := newChanSink()
	outsider := newChanSink()
	mid := h.Register(member)
	h.Register(outsider)
	h.Join(mid, StatusRoom("open"))

	h.Publish([]Room{StatusRoom("open")}, "ticket", nil)

	member.wait(t)
	outsider.expectNone(t)
}

func TestMultiRoomDeliveryIsDeduplicated(t *testing.T) {
	h := New(nil)
	sink := newChanSink()
	id := h.Register(sink)
	h.Join(id, TicketRoom(42))
	h.Join(id, StatusRoom("open"))
	h.Join(id, RoomNotification)

	h.Publish([]Room{TicketRoom(42), StatusRoom("open"), RoomNotification}, "appMessage", nil)

	sink.wait(t)
	sink.expectNone(t)
}

func TestLeaveStopsDelivery(t *testing.T) {
	h := New(nil)
	sink := newChanSink()
	id := h.Register(sink)
	h.Join(id, TicketRoom(7))
	h.Leave(id, TicketRoom(7))

	h.Publish([]Room{TicketRoom(7)}, "appMessage", nil)

	sink.expectNone(t)
}

func TestUnregisterDropsAllMemberships(t *testing.T) {
	h := New(nil)
	sink := newChanSink()
	id := h.Register(sink)
	h.Join(id, RoomNotification)
	h.Join(id, StatusRoom("pending"))
	h.Unregister(id)

	h.Publish([]Room{RoomNotification, StatusRoom("pending")}, "ticket", nil)

	sink.expectNone(t)
}

// blockingSink never completes a send, simulating a stalled observer.
type blockingSink struct {
	block chan struct{}
}

func (s *blockingSink) Send(Frame) error {
	<-s.block
	return nil
}

func TestSlowObserverNeverBlocksPublisher(t *testing.T) {
	h := New(nil)
	stalled := &blockingSink{block: make(chan struct{})}
	defer close(stalled.block)
	id := h.Register(stalled)
	h.Join(id, RoomNotification)

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Far beyond the connection buffer.
		for i := 0; i < 100; i++ {
			h.Publish([]Room{RoomNotification}, "appMessage", i)
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a stalled observer")
	}
}

func TestUninitializedHubPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic from uninitialized hub")
		}
	}()
	var h *Hub
	h.Publish([]Room{RoomNotification}, "ticket", nil)
}

func TestRoomKeys(t *testing.T) {
	if TicketRoom(42) != Room("42") {
		t.Errorf("TicketRoom(42) = %q", TicketRoom(42))
	}
	if StatusRoom("open") != Room("open") {
		t.Errorf("StatusRoom = %q", StatusRoom("open"))
	}
	if RoomNotification != Room("notification") {
		t.Errorf("RoomNotification = %q", RoomNotification)
	}
}
