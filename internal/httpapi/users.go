package httpapi

import (
	"net/http"

	"github.com/david0ql/helpdeskd/internal/presence"
	"github.com/david0ql/helpdeskd/internal/store"
)

type userView struct {
	store.User
	// State is the derived tri-state; a connected agent that has gone
	// silent shows as stale here while the stored flag stays connected.
	State           presence.State `json:"state"`
	LastInteraction int64          `json:"lastInteraction"`
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := pageNumber(q.Get("pageNumber"))
	offset := pageSize * (page - 1)

	users, count, err := h.db.ListUsers(q.Get("searchParam"), pageSize, offset)
	if err != nil {
		h.writeError(w, err)
		return
	}

	views := make([]userView, 0, len(users))
	for _, u := range users {
		state, err := h.tracker.StateOf(&u)
		if err != nil {
			h.writeError(w, err)
			return
		}
		last, err := h.db.LastInteraction(u.ID)
		if err != nil {
			h.writeError(w, err)
			return
		}
		views = append(views, userView{User: u, State: state, LastInteraction: last})
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"users":   views,
		"count":   count,
		"hasMore": count > offset+len(views),
	})
}
