package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/david0ql/helpdeskd/internal/apperr"
)

// HTTPResponder calls the conversational engine over its HTTP API.
// An empty base URL disables auto-replies.
type HTTPResponder struct {
	baseURL string
	client  *http.Client
}

// NewHTTPResponder creates a responder client with the given call budget.
func NewHTTPResponder(baseURL string, timeout time.Duration) *HTTPResponder {
	return &HTTPResponder{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type converseRequest struct {
	TicketID    int64  `json:"ticketID"`
	UserMessage string `json:"userMessage"`
	MessageID   string `json:"messageID"`
}

type converseResponse struct {
	Message string `json:"message"`
}

// Converse posts the inbound message to the engine and returns the
// generated reply text.
func (r *HTTPResponder) Converse(ctx context.Context, ticketID int64, userMessage, messageID string) (string, error) {
	if r.baseURL == "" {
		return "", nil
	}

	body, err := json.Marshal(converseRequest{
		TicketID:    ticketID,
		UserMessage: userMessage,
		MessageID:   messageID,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/conversation", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", apperr.Upstream("responder unreachable", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", apperr.Upstream(fmt.Sprintf("responder returned %d", resp.StatusCode), nil)
	}

	var out converseResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", apperr.Upstream("responder sent malformed reply", err)
	}
	return out.Message, nil
}
