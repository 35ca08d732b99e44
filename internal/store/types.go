package store

// Ticket status values.
const (
	StatusOpen    = "open"
	StatusPending = "pending"
	StatusClosed  = "closed"
)

// ValidStatus reports whether s is a known ticket status.
func ValidStatus(s string) bool {
	return s == StatusOpen || s == StatusPending || s == StatusClosed
}

// Ticket is a tracked conversation thread between one contact and one
// agent/queue over one channel.
type Ticket struct {
	ID             int64  `json:"id"`
	Status         string `json:"status"`
	ContactID      int64  `json:"contactId"`
	ChannelID      int64  `json:"channelId"`
	UserID         *int64 `json:"userId"`
	QueueID        *int64 `json:"queueId"`
	UnreadMessages int    `json:"unreadMessages"`
	IsGroup        bool   `json:"isGroup"`
	LastMessage    string `json:"lastMessage"`
	CreatedAt      int64  `json:"createdAt"`
	UpdatedAt      int64  `json:"updatedAt"`
}

// TicketDetail is a ticket with its related contact, queue and channel
// summary resolved, the shape returned to API callers and broadcast to
// observers.
type TicketDetail struct {
	Ticket
	Contact     *Contact `json:"contact"`
	Queue       *Queue   `json:"queue"`
	ChannelName string   `json:"channelName"`
	Farewell    string   `json:"-"`
}

// Message is a stored conversation message. The id is supplied by the
// channel and globally unique; redelivery overwrites.
type Message struct {
	ID          string `json:"id"`
	TicketID    int64  `json:"ticketId"`
	ContactID   *int64 `json:"contactId"`
	Body        string `json:"body"`
	FromMe      bool   `json:"fromMe"`
	Read        bool   `json:"read"`
	MediaType   string `json:"mediaType,omitempty"`
	MediaURL    string `json:"mediaUrl,omitempty"`
	QuotedMsgID string `json:"quotedMsgId,omitempty"`
	CreatedAt   int64  `json:"createdAt"`
	UpdatedAt   int64  `json:"updatedAt"`
}

// MessageDetail is a message with its full relation graph resolved.
type MessageDetail struct {
	Message
	Contact   *Contact      `json:"contact"`
	Ticket    *TicketDetail `json:"ticket"`
	QuotedMsg *QuotedMsg    `json:"quotedMsg"`
}

// QuotedMsg is the weak back-reference carried on a reply.
type QuotedMsg struct {
	Message
	Contact *Contact `json:"contact"`
}

// Contact is an external messaging party.
type Contact struct {
	ID        int64  `json:"id"`
	Number    string `json:"number"`
	Name      string `json:"name"`
	IsGroup   bool   `json:"isGroup"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
}

// User is a helpdesk agent.
type User struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Profile     string `json:"profile"`
	IsConnected bool   `json:"isConnected"`
	CreatedAt   int64  `json:"createdAt"`
	UpdatedAt   int64  `json:"updatedAt"`
}

// Queue groups tickets for a team of agents.
type Queue struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Channel is a messaging-account session through which messages flow.
type Channel struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	Status          string `json:"status"`
	GreetingMessage string `json:"greetingMessage"`
	FarewellMessage string `json:"farewellMessage"`
	IsDefault       bool   `json:"isDefault"`
	CreatedAt       int64  `json:"createdAt"`
	UpdatedAt       int64  `json:"updatedAt"`
}
