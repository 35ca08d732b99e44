// Package broadcast is the in-process publish hub. Observers register a
// sink, join rooms, and receive every event published to at least one
// of their rooms exactly once. Delivery is best-effort and in-memory
// only; nothing is persisted or replayed.
package broadcast

import (
	"sync"

	"go.uber.org/zap"
)

// Frame is the envelope delivered to observers.
type Frame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Sink receives frames for a single connection. Send may block; the hub
// shields publishers from it with a per-connection buffer.
type Sink interface {
	Send(Frame) error
}

type subscriber struct {
	sink Sink
	ch   chan Frame
	done chan struct{}
	once sync.Once
}

func (s *subscriber) stop() {
	s.once.Do(func() { close(s.done) })
}

// Hub holds room memberships and fans events out to subscribers.
type Hub struct {
	mu      sync.RWMutex
	subs    map[int64]*subscriber
	members map[Room]map[int64]struct{}
	joined  map[int64]map[Room]struct{}
	next    int64
	logger  *zap.Logger
}

// New creates an empty hub.
func New(logger *zap.Logger) *Hub {
	return &Hub{
		subs:    make(map[int64]*subscriber),
		members: make(map[Room]map[int64]struct{}),
		joined:  make(map[int64]map[Room]struct{}),
		logger:  logger,
	}
}

// Register adds a connection and returns its id. A dedicated goroutine
// drains the connection's buffer into the sink; a send error drops the
// connection.
func (h *Hub) Register(sink Sink) int64 {
	h.ensure()
	sub := &subscriber{
		sink: sink,
		ch:   make(chan Frame, 32),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	h.next++
	id := h.next
	h.subs[id] = sub
	h.joined[id] = make(map[Room]struct{})
	h.mu.Unlock()

	go func() {
		for {
			select {
			case f := <-sub.ch:
				if err := sub.sink.Send(f); err != nil {
					h.Unregister(id)
					return
				}
			case <-sub.done:
				return
			}
		}
	}()

	return id
}

// Unregister removes a connection and all its room memberships.
func (h *Hub) Unregister(id int64) {
	h.ensure()
	h.mu.Lock()
	sub, ok := h.subs[id]
	if ok {
		delete(h.subs, id)
		for room := range h.joined[id] {
			delete(h.members[room], id)
			if len(h.members[room]) == 0 {
				delete(h.members, room)
			}
		}
		delete(h.joined, id)
	}
	h.mu.Unlock()
	if ok {
		sub.stop()
	}
}

// Join adds the connection to a room. Unknown connection ids are ignored.
func (h *Hub) Join(id int64, room Room) {
	h.ensure()
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[id]; !ok {
		return
	}
	if h.members[room] == nil {
		h.members[room] = make(map[int64]struct{})
	}
	h.members[room][id] = struct{}{}
	h.joined[id][room] = struct{}{}
}

// Leave removes the connection from a room.
func (h *Hub) Leave(id int64, room Room) {
	h.ensure()
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.members[room], id)
	if len(h.members[room]) == 0 {
		delete(h.members, room)
	}
	if j, ok := h.joined[id]; ok {
		delete(j, room)
	}
}

// Publish delivers an event to every connection that is a member of at
// least one of the given rooms. A connection subscribed to several of
// them still receives the event once. Never blocks on a slow observer:
// a full connection buffer drops the frame for that connection.
func (h *Hub) Publish(rooms []Room, event string, data any) {
	h.ensure()
	frame := Frame{Event: event, Data: data}

	h.mu.RLock()
	targets := make(map[int64]*subscriber)
	for _, room := range rooms {
		for id := range h.members[room] {
			if sub, ok := h.subs[id]; ok {
				targets[id] = sub
			}
		}
	}
	h.mu.RUnlock()

	for id, sub := range targets {
		select {
		case sub.ch <- frame:
		default:
			if h.logger != nil {
				h.logger.Warn("dropping event for slow observer",
					zap.Int64("conn", id), zap.String("event", event))
			}
		}
	}
}

func (h *Hub) ensure() {
	if h == nil || h.subs == nil {
		panic("broadcast: hub used before initialization")
	}
}
