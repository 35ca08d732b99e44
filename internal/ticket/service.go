package ticket

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/david0ql/helpdeskd/internal/apperr"
	"github.com/david0ql/helpdeskd/internal/broadcast"
	"github.com/david0ql/helpdeskd/internal/store"
	"github.com/david0ql/helpdeskd/internal/template"
)

// Sender dispatches an outbound text through the channel session.
type Sender interface {
	SendMessage(ctx context.Context, body string, ticket *store.TicketDetail) error
}

// Payload is the event body broadcast on ticket mutations.
type Payload struct {
	Action   string              `json:"action"`
	Ticket   *store.TicketDetail `json:"ticket,omitempty"`
	TicketID int64               `json:"ticketId,omitempty"`
}

// Patch is a partial ticket update. Nil fields are left unchanged.
type Patch struct {
	Status  *string
	UserID  *int64
	QueueID *int64
}

// Service applies agent-driven ticket state transitions and broadcasts
// every mutation.
type Service struct {
	db     *store.DB
	hub    *broadcast.Hub
	sender Sender
	logger *zap.Logger
}

// NewService creates a ticket mutation service.
func NewService(db *store.DB, hub *broadcast.Hub, sender Sender, logger *zap.Logger) *Service {
	return &Service{db: db, hub: hub, sender: sender, logger: logger}
}

// Show returns a ticket with its relations resolved.
func (s *Service) Show(id int64) (*store.TicketDetail, error) {
	detail, err := s.db.GetTicketDetail(id)
	if err != nil {
		return nil, err
	}
	if detail == nil {
		return nil, apperr.NotFound("no ticket found with this id")
	}
	return detail, nil
}

// List returns tickets matching the filter plus the total count.
func (s *Service) List(f store.TicketFilter) ([]store.TicketDetail, int, error) {
	return s.db.ListTickets(f)
}

// Create opens an agent-initiated ticket for a contact and broadcasts
// it to the status room.
func (s *Service) Create(ctx context.Context, contactID int64, channelID int64, userID *int64) (*store.TicketDetail, error) {
	contact, err := s.db.GetContact(contactID)
	if err != nil {
		return nil, err
	}
	if contact == nil {
		return nil, apperr.NotFound("no contact found with this id")
	}

	ticket := &store.Ticket{
		Status:    store.StatusOpen,
		ContactID: contactID,
		ChannelID: channelID,
		UserID:    userID,
		IsGroup:   contact.IsGroup,
	}
	if err := s.db.CreateTicket(ticket); err != nil {
		return nil, fmt.Errorf("create ticket: %w", err)
	}
	detail, err := s.db.GetTicketDetail(ticket.ID)
	if err != nil {
		return nil, err
	}
	if detail == nil {
		return nil, apperr.Integrity("ticket missing after create")
	}

	s.hub.Publish([]broadcast.Room{broadcast.StatusRoom(detail.Status)},
		"ticket", Payload{Action: "update", Ticket: detail})
	return detail, nil
}

// Update applies a partial patch to the ticket, dispatches the channel
// farewell when the patch closes it, and broadcasts the new state to
// the new status's room. A failed farewell dispatch is logged; the
// committed status change stands regardless.
func (s *Service) Update(ctx context.Context, id int64, patch Patch) (*store.TicketDetail, error) {
	ticket, err := s.db.GetTicket(id)
	if err != nil {
		return nil, err
	}
	if ticket == nil {
		return nil, apperr.NotFound("no ticket found with this id")
	}
	wasClosed := ticket.Status == store.StatusClosed

	if patch.Status != nil {
		if !store.ValidStatus(*patch.Status) {
			return nil, apperr.Conflict(fmt.Sprintf("invalid ticket status %q", *patch.Status))
		}
		ticket.Status = *patch.Status
	}
	if patch.UserID != nil {
		ticket.UserID = patch.UserID
	}
	if patch.QueueID != nil {
		ticket.QueueID = patch.QueueID
	}
	if err := s.db.SaveTicket(ticket); err != nil {
		return nil, fmt.Errorf("save ticket: %w", err)
	}

	detail, err := s.db.GetTicketDetail(id)
	if err != nil {
		return nil, err
	}
	if detail == nil {
		return nil, apperr.Integrity("ticket missing after update")
	}

	if !wasClosed && detail.Status == store.StatusClosed && detail.Farewell != "" {
		body := template.Render(detail.Farewell, detail.Contact)
		if err := s.sender.SendMessage(ctx, body, detail); err != nil {
			s.logger.Error("farewell dispatch failed",
				zap.Int64("ticket", id), zap.Error(err))
		}
	}

	s.hub.Publish([]broadcast.Room{broadcast.StatusRoom(detail.Status)},
		"ticket", Payload{Action: "update", Ticket: detail})
	return detail, nil
}

// Delete removes the ticket and broadcasts the deletion to the id room,
// the notification room and the room of the status the ticket held
// immediately before deletion.
func (s *Service) Delete(ctx context.Context, id int64) (*store.TicketDetail, error) {
	detail, err := s.db.GetTicketDetail(id)
	if err != nil {
		return nil, err
	}
	if detail == nil {
		return nil, apperr.NotFound("no ticket found with this id")
	}

	if err := s.db.DeleteTicket(id); err != nil {
		return nil, fmt.Errorf("delete ticket: %w", err)
	}

	s.hub.Publish([]broadcast.Room{
		broadcast.StatusRoom(detail.Status),
		broadcast.TicketRoom(id),
		broadcast.RoomNotification,
	}, "ticket", Payload{Action: "delete", TicketID: id})
	return detail, nil
}
