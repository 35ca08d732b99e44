// Package ingest persists inbound and outbound conversation messages,
// drives the owning ticket's activity state, and fans the result out to
// observers.
package ingest

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/david0ql/helpdeskd/internal/apperr"
	"github.com/david0ql/helpdeskd/internal/broadcast"
	"github.com/david0ql/helpdeskd/internal/store"
)

// Responder is the external conversational-reply generator consulted
// for inbound messages.
type Responder interface {
	Converse(ctx context.Context, ticketID int64, userMessage, messageID string) (string, error)
}

// MessageData is a message ready for ingestion. FromMe is a pointer
// because directionality must be explicitly marked for the
// auto-responder to be consulted at all.
type MessageData struct {
	ID          string
	TicketID    int64
	ContactID   *int64
	Body        string
	FromMe      *bool
	Read        bool
	MediaType   string
	MediaURL    string
	QuotedMsgID string
}

// Payload is the event body broadcast when a message lands.
type Payload struct {
	Action  string               `json:"action"`
	Message *store.MessageDetail `json:"message"`
	Ticket  *store.TicketDetail  `json:"ticket"`
	Contact *store.Contact       `json:"contact"`
}

// Service ingests messages.
type Service struct {
	db        *store.DB
	hub       *broadcast.Hub
	responder Responder
	logger    *zap.Logger
}

// NewService creates a message ingestion service.
func NewService(db *store.DB, hub *broadcast.Hub, responder Responder, logger *zap.Logger) *Service {
	return &Service{db: db, hub: hub, responder: responder, logger: logger}
}

// Ingest upserts the message, reopens its ticket for queue assignment,
// consults the auto-responder for explicitly inbound messages, and
// broadcasts the enriched message to the ticket's rooms. Returns the
// enriched message plus any generated reply text; a responder failure
// degrades to an empty reply. The upsert is idempotent under
// redelivery of the same message id.
func (s *Service) Ingest(ctx context.Context, data MessageData) (*store.MessageDetail, string, error) {
	msg := &store.Message{
		ID:          data.ID,
		TicketID:    data.TicketID,
		ContactID:   data.ContactID,
		Body:        data.Body,
		FromMe:      data.FromMe != nil && *data.FromMe,
		Read:        data.Read,
		MediaType:   data.MediaType,
		MediaURL:    data.MediaURL,
		QuotedMsgID: data.QuotedMsgID,
	}
	if err := s.db.UpsertMessage(msg); err != nil {
		return nil, "", fmt.Errorf("upsert message: %w", err)
	}

	// Any message activity reopens the ticket and hands it back to the
	// queue, whatever its prior state.
	ticket, err := s.db.GetTicket(data.TicketID)
	if err != nil {
		return nil, "", fmt.Errorf("load ticket: %w", err)
	}
	if ticket != nil {
		ticket.Status = store.StatusOpen
		ticket.UserID = nil
		ticket.UnreadMessages = 0
		ticket.LastMessage = data.Body
		if err := s.db.SaveTicket(ticket); err != nil {
			return nil, "", fmt.Errorf("reopen ticket: %w", err)
		}
	}

	reply := ""
	if data.FromMe != nil && !*data.FromMe {
		reply, err = s.responder.Converse(ctx, data.TicketID, data.Body, data.ID)
		if err != nil {
			s.logger.Warn("auto-responder call failed",
				zap.Int64("ticket", data.TicketID), zap.Error(err))
			reply = ""
		}
	}

	detail, err := s.db.GetMessageDetail(data.ID)
	if err != nil {
		return nil, "", fmt.Errorf("load message detail: %w", err)
	}
	if detail == nil {
		return nil, "", apperr.Integrity("message missing after upsert")
	}

	if detail.Ticket != nil {
		s.hub.Publish([]broadcast.Room{
			broadcast.TicketRoom(detail.TicketID),
			broadcast.StatusRoom(detail.Ticket.Status),
			broadcast.RoomNotification,
		}, "appMessage", Payload{
			Action:  "create",
			Message: detail,
			Ticket:  detail.Ticket,
			Contact: detail.Ticket.Contact,
		})
	}

	return detail, reply, nil
}
