package wa

import (
	"context"

	"github.com/google/uuid"
	"go.mau.fi/whatsmeow/types/events"
	"go.uber.org/zap"

	"github.com/david0ql/helpdeskd/internal/ingest"
	"github.com/david0ql/helpdeskd/internal/store"
	"github.com/david0ql/helpdeskd/internal/ticket"
)

// EventHandler feeds whatsmeow events into the helpdesk: inbound
// messages go through ticket resolution and ingestion, connection
// lifecycle updates the channel status row.
type EventHandler struct {
	db       *store.DB
	resolver *ticket.Resolver
	ingest   *ingest.Service
	adapter  *Adapter
	logger   *zap.Logger
}

// NewEventHandler creates the handler. Register it on the adapter
// before connecting.
func NewEventHandler(db *store.DB, resolver *ticket.Resolver, ing *ingest.Service, adapter *Adapter, logger *zap.Logger) *EventHandler {
	return &EventHandler{
		db:       db,
		resolver: resolver,
		ingest:   ing,
		adapter:  adapter,
		logger:   logger,
	}
}

// Handle is the whatsmeow event handler function.
func (h *EventHandler) Handle(rawEvt any) {
	switch evt := rawEvt.(type) {
	case *events.Message:
		h.handleMessage(evt)
	case *events.Connected:
		h.logger.Info("channel connected")
		h.setChannelStatus("CONNECTED")
	case *events.Disconnected:
		h.logger.Warn("channel disconnected")
		h.setChannelStatus("DISCONNECTED")
	case *events.LoggedOut:
		h.logger.Warn("channel logged out", zap.String("reason", evt.Reason.String()))
		h.setChannelStatus("DISCONNECTED")
	}
}

func (h *EventHandler) handleMessage(evt *events.Message) {
	ctx := context.Background()
	parsed := ParseMessage(evt)
	if !parsed.HasContent() {
		return
	}

	contact, err := h.db.UpsertContact(phoneNumber(parsed.SenderJID), parsed.SenderName, false)
	if err != nil {
		h.logger.Error("failed to upsert contact", zap.Error(err))
		return
	}

	// In a group chat the ticket belongs to the group, not to whichever
	// member happened to speak.
	var groupContact *store.Contact
	if parsed.IsGroup {
		groupContact, err = h.db.UpsertContact(phoneNumber(parsed.ChatJID), "", true)
		if err != nil {
			h.logger.Error("failed to upsert group contact", zap.Error(err))
			return
		}
	}

	unread := 1
	if parsed.FromMe {
		unread = 0
	}
	detail, err := h.resolver.FindOrCreate(contact, h.adapter.Channel().ID, unread, groupContact)
	if err != nil {
		h.logger.Error("failed to resolve ticket",
			zap.String("msg", parsed.MsgID), zap.Error(err))
		return
	}

	data := ingest.MessageData{
		ID:          parsed.MsgID,
		TicketID:    detail.ID,
		Body:        parsed.Body,
		FromMe:      &parsed.FromMe,
		Read:        parsed.FromMe,
		MediaType:   parsed.MediaType,
		QuotedMsgID: parsed.QuotedMsgID,
	}
	if !parsed.FromMe {
		data.ContactID = &contact.ID
	}
	_, reply, err := h.ingest.Ingest(ctx, data)
	if err != nil {
		h.logger.Error("failed to ingest message",
			zap.String("msg", parsed.MsgID), zap.Error(err))
		return
	}

	if reply != "" {
		h.dispatchReply(ctx, detail.ID, reply)
	}
}

// dispatchReply sends an auto-responder reply and records it as an
// outbound message on the ticket.
func (h *EventHandler) dispatchReply(ctx context.Context, ticketID int64, reply string) {
	detail, err := h.db.GetTicketDetail(ticketID)
	if err != nil || detail == nil {
		h.logger.Error("failed to reload ticket for reply",
			zap.Int64("ticket", ticketID), zap.Error(err))
		return
	}
	if err := h.adapter.SendMessage(ctx, reply, detail); err != nil {
		h.logger.Error("failed to dispatch auto reply",
			zap.Int64("ticket", ticketID), zap.Error(err))
		return
	}
	fromMe := true
	if _, _, err := h.ingest.Ingest(ctx, ingest.MessageData{
		ID:       uuid.NewString(),
		TicketID: ticketID,
		Body:     reply,
		FromMe:   &fromMe,
		Read:     true,
	}); err != nil {
		h.logger.Error("failed to record auto reply",
			zap.Int64("ticket", ticketID), zap.Error(err))
	}
}

func (h *EventHandler) setChannelStatus(status string) {
	if err := h.db.SetChannelStatus(h.adapter.Channel().ID, status); err != nil {
		h.logger.Error("failed to update channel status",
			zap.String("status", status), zap.Error(err))
	}
}
