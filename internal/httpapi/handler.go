// Package httpapi exposes the REST surface for agents: ticket listing
// and mutation, message history and sending, user listing with derived
// presence.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/david0ql/helpdeskd/internal/apperr"
	"github.com/david0ql/helpdeskd/internal/auth"
	"github.com/david0ql/helpdeskd/internal/ingest"
	"github.com/david0ql/helpdeskd/internal/presence"
	"github.com/david0ql/helpdeskd/internal/store"
	"github.com/david0ql/helpdeskd/internal/ticket"
)

// Handler holds the API dependencies.
type Handler struct {
	db       *store.DB
	tickets  *ticket.Service
	ingest   *ingest.Service
	sender   ticket.Sender
	tracker  *presence.Tracker
	verifier *auth.Verifier
	logger   *zap.Logger
}

// New creates the API handler.
func New(
	db *store.DB,
	tickets *ticket.Service,
	ing *ingest.Service,
	sender ticket.Sender,
	tracker *presence.Tracker,
	verifier *auth.Verifier,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		db:       db,
		tickets:  tickets,
		ingest:   ing,
		sender:   sender,
		tracker:  tracker,
		verifier: verifier,
		logger:   logger,
	}
}

// Router builds the authenticated REST router.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/tickets", h.auth(h.listTickets)).Methods(http.MethodGet)
	r.HandleFunc("/tickets", h.auth(h.createTicket)).Methods(http.MethodPost)
	r.HandleFunc("/tickets/{ticketId:[0-9]+}", h.auth(h.showTicket)).Methods(http.MethodGet)
	r.HandleFunc("/tickets/{ticketId:[0-9]+}", h.auth(h.updateTicket)).Methods(http.MethodPut)
	r.HandleFunc("/tickets/{ticketId:[0-9]+}", h.auth(h.deleteTicket)).Methods(http.MethodDelete)
	r.HandleFunc("/tickets/{ticketId:[0-9]+}/messages", h.auth(h.listMessages)).Methods(http.MethodGet)
	r.HandleFunc("/tickets/{ticketId:[0-9]+}/messages", h.auth(h.sendMessage)).Methods(http.MethodPost)
	r.HandleFunc("/users", h.auth(h.listUsers)).Methods(http.MethodGet)

	return r
}

type ctxKey int

const principalKey ctxKey = 0

// principal returns the authenticated agent id for the request.
func principal(r *http.Request) int64 {
	id, _ := r.Context().Value(principalKey).(int64)
	return id
}

// auth verifies the bearer token before any store mutation and records
// the agent interaction used for presence staleness.
func (h *Handler) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("Authorization")
		if after, ok := cutBearer(token); ok {
			token = after
		}
		userID, err := h.verifier.Verify(token)
		if err != nil {
			h.writeError(w, err)
			return
		}
		h.tracker.Touch(userID)
		next(w, r.WithContext(context.WithValue(r.Context(), principalKey, userID)))
	}
}

func cutBearer(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):], true
	}
	return header, false
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("failed to encode response", zap.Error(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := apperr.StatusOf(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", zap.Error(err))
	}
	kind := apperr.KindOf(err)
	if kind == "" {
		kind = "ERR_INTERNAL"
	}
	h.writeJSON(w, status, map[string]string{
		"error": string(kind),
		"message": func() string {
			if status >= http.StatusInternalServerError {
				return "internal error"
			}
			return err.Error()
		}(),
	})
}
