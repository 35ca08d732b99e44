package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/david0ql/helpdeskd/internal/apperr"
	"github.com/david0ql/helpdeskd/internal/store"
	"github.com/david0ql/helpdeskd/internal/ticket"
)

const pageSize = 20

func (h *Handler) listTickets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.TicketFilter{
		Status:      q.Get("status"),
		SearchParam: q.Get("searchParam"),
		Limit:       pageSize,
		Offset:      pageSize * (pageNumber(q.Get("pageNumber")) - 1),
	}
	for _, raw := range strings.Split(q.Get("queueIds"), ",") {
		if raw == "" {
			continue
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			h.writeError(w, apperr.Conflict("malformed queueIds"))
			return
		}
		filter.QueueIDs = append(filter.QueueIDs, id)
	}

	tickets, count, err := h.tickets.List(filter)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if tickets == nil {
		tickets = []store.TicketDetail{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"tickets": tickets,
		"count":   count,
		"hasMore": count > filter.Offset+len(tickets),
	})
}

func (h *Handler) createTicket(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ContactID int64  `json:"contactId"`
		ChannelID int64  `json:"channelId"`
		UserID    *int64 `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, apperr.Conflict("malformed request body"))
		return
	}
	detail, err := h.tickets.Create(r.Context(), body.ContactID, body.ChannelID, body.UserID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, detail)
}

func (h *Handler) showTicket(w http.ResponseWriter, r *http.Request) {
	detail, err := h.tickets.Show(ticketID(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, detail)
}

func (h *Handler) updateTicket(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status  *string `json:"status"`
		UserID  *int64  `json:"userId"`
		QueueID *int64  `json:"queueId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, apperr.Conflict("malformed request body"))
		return
	}
	detail, err := h.tickets.Update(r.Context(), ticketID(r), ticket.Patch{
		Status:  body.Status,
		UserID:  body.UserID,
		QueueID: body.QueueID,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, detail)
}

func (h *Handler) deleteTicket(w http.ResponseWriter, r *http.Request) {
	if _, err := h.tickets.Delete(r.Context(), ticketID(r)); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "ticket deleted"})
}

func ticketID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(mux.Vars(r)["ticketId"], 10, 64)
	return id
}

func pageNumber(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 1
	}
	return n
}
