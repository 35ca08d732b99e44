// Package ticket owns the ticket lifecycle: resolving which ticket an
// inbound message belongs to and applying agent-driven state changes.
package ticket

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/david0ql/helpdeskd/internal/apperr"
	"github.com/david0ql/helpdeskd/internal/store"
)

// reuseWindow is how far back a closed ticket is still considered the
// continuation of the same conversation for non-group contacts.
const reuseWindow = 2 * time.Hour

// Resolver finds the ticket an inbound message belongs to, creating one
// when no eligible ticket exists. Resolution is serialized per
// (contact, channel) pair so concurrent messages cannot race a
// duplicate ticket into existence.
type Resolver struct {
	db     *store.DB
	logger *zap.Logger
	locks  keyedMutex
}

// NewResolver creates a resolver backed by db.
func NewResolver(db *store.DB, logger *zap.Logger) *Resolver {
	return &Resolver{db: db, logger: logger}
}

// FindOrCreate resolves the ticket for an inbound message, in order:
// an existing open/pending ticket for the pair; for group chats the
// most recent ticket regardless of status; otherwise the most recent
// ticket updated within the reuse window; otherwise a fresh pending
// ticket. Reused tickets are forced back to pending and unassigned.
// The returned ticket carries its contact/queue/channel relations.
func (r *Resolver) FindOrCreate(contact *store.Contact, channelID int64, unread int, groupContact *store.Contact) (*store.TicketDetail, error) {
	owner := contact
	if groupContact != nil {
		owner = groupContact
	}
	unlock := r.locks.lock(fmt.Sprintf("%d:%d", owner.ID, channelID))
	defer unlock()

	ticket, err := r.db.FindOpenOrPending(owner.ID, channelID)
	if err != nil {
		return nil, fmt.Errorf("find open ticket: %w", err)
	}
	if ticket != nil {
		ticket.UnreadMessages = unread
		if err := r.db.SaveTicket(ticket); err != nil {
			return nil, fmt.Errorf("update unread count: %w", err)
		}
	}

	if ticket == nil && groupContact != nil {
		ticket, err = r.db.FindLatestForContact(groupContact.ID, channelID, 0)
		if err != nil {
			return nil, fmt.Errorf("find group ticket: %w", err)
		}
		if ticket != nil {
			r.reopen(ticket, unread)
			if err := r.db.SaveTicket(ticket); err != nil {
				return nil, fmt.Errorf("reopen group ticket: %w", err)
			}
		}
	}

	if ticket == nil && groupContact == nil {
		since := time.Now().Add(-reuseWindow).UnixMilli()
		ticket, err = r.db.FindLatestForContact(contact.ID, channelID, since)
		if err != nil {
			return nil, fmt.Errorf("find recent ticket: %w", err)
		}
		if ticket != nil {
			r.reopen(ticket, unread)
			if err := r.db.SaveTicket(ticket); err != nil {
				return nil, fmt.Errorf("reopen recent ticket: %w", err)
			}
		}
	}

	if ticket == nil {
		ticket = &store.Ticket{
			Status:         store.StatusPending,
			ContactID:      owner.ID,
			ChannelID:      channelID,
			IsGroup:        groupContact != nil,
			UnreadMessages: unread,
		}
		if err := r.db.CreateTicket(ticket); err != nil {
			return nil, fmt.Errorf("create ticket: %w", err)
		}
		r.logger.Info("ticket created",
			zap.Int64("ticket", ticket.ID),
			zap.Int64("contact", owner.ID),
			zap.Bool("group", ticket.IsGroup))
	}

	detail, err := r.db.GetTicketDetail(ticket.ID)
	if err != nil {
		return nil, fmt.Errorf("load ticket detail: %w", err)
	}
	if detail == nil {
		return nil, apperr.Integrity("ticket missing after resolve")
	}
	return detail, nil
}

// reopen puts a reused ticket back in the queue for assignment.
func (r *Resolver) reopen(t *store.Ticket, unread int) {
	t.Status = store.StatusPending
	t.UserID = nil
	t.UnreadMessages = unread
}
