package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/david0ql/helpdeskd/internal/apperr"
	"github.com/david0ql/helpdeskd/internal/ingest"
	"github.com/david0ql/helpdeskd/internal/store"
)

func (h *Handler) listMessages(w http.ResponseWriter, r *http.Request) {
	id := ticketID(r)
	if _, err := h.tickets.Show(id); err != nil {
		h.writeError(w, err)
		return
	}

	page := pageNumber(r.URL.Query().Get("pageNumber"))
	offset := pageSize * (page - 1)
	messages, count, err := h.db.ListMessages(id, pageSize, offset)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if messages == nil {
		messages = []store.Message{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"messages": messages,
		"count":    count,
		"hasMore":  count > offset+len(messages),
	})
}

// sendMessage dispatches an agent-authored message through the channel
// session and ingests it, which broadcasts it to the ticket's rooms.
func (h *Handler) sendMessage(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Body        string `json:"body"`
		QuotedMsgID string `json:"quotedMsgId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Body == "" {
		h.writeError(w, apperr.Conflict("message body required"))
		return
	}

	detail, err := h.tickets.Show(ticketID(r))
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := h.sender.SendMessage(r.Context(), body.Body, detail); err != nil {
		// The channel rejected the send; nothing was persisted yet, so
		// surface the failure instead of recording a phantom message.
		h.writeError(w, apperr.Upstream("channel dispatch failed", err))
		return
	}

	fromMe := true
	msg, _, err := h.ingest.Ingest(r.Context(), ingest.MessageData{
		ID:          uuid.NewString(),
		TicketID:    detail.ID,
		Body:        body.Body,
		FromMe:      &fromMe,
		Read:        true,
		QuotedMsgID: body.QuotedMsgID,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.logger.Info("agent message sent",
		zap.Int64("ticket", detail.ID),
		zap.Int64("agent", principal(r)))
	h.writeJSON(w, http.StatusOK, msg)
}
