package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// FindOpenOrPending returns the single open/pending ticket for the
// (contact, channel) pair, or nil when none exists.
func (db *DB) FindOpenOrPending(contactID, channelID int64) (*Ticket, error) {
	row := db.QueryRow(`
		SELECT `+ticketColumns+`
		FROM tickets
		WHERE status IN ('open', 'pending') AND contact_id = ? AND channel_id = ?`,
		contactID, channelID)
	return scanTicket(row)
}

// FindLatestForContact returns the most recently updated ticket for the
// (contact, channel) pair regardless of status. When updatedAfter > 0
// only tickets updated at or after that instant qualify.
func (db *DB) FindLatestForContact(contactID, channelID, updatedAfter int64) (*Ticket, error) {
	row := db.QueryRow(`
		SELECT `+ticketColumns+`
		FROM tickets
		WHERE contact_id = ? AND channel_id = ? AND updated_at >= ?
		ORDER BY updated_at DESC
		LIMIT 1`,
		contactID, channelID, updatedAfter)
	return scanTicket(row)
}

// CreateTicket inserts a new ticket and fills in its id and timestamps.
func (db *DB) CreateTicket(t *Ticket) error {
	now := time.Now().UnixMilli()
	res, err := db.Exec(`
		INSERT INTO tickets (status, contact_id, channel_id, user_id, queue_id, unread_messages, is_group, last_message, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.Status, t.ContactID, t.ChannelID, nullableID(t.UserID), nullableID(t.QueueID),
		t.UnreadMessages, t.IsGroup, t.LastMessage, now, now)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = id
	t.CreatedAt = now
	t.UpdatedAt = now
	return nil
}

// SaveTicket persists the mutable ticket fields and bumps updated_at.
func (db *DB) SaveTicket(t *Ticket) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		UPDATE tickets
		SET status = ?, user_id = ?, queue_id = ?, unread_messages = ?, last_message = ?, updated_at = ?
		WHERE id = ?`,
		t.Status, nullableID(t.UserID), nullableID(t.QueueID), t.UnreadMessages, t.LastMessage, now, t.ID)
	if err != nil {
		return err
	}
	t.UpdatedAt = now
	return nil
}

// GetTicket returns a ticket by id, or nil when absent.
func (db *DB) GetTicket(id int64) (*Ticket, error) {
	row := db.QueryRow(`SELECT `+ticketColumns+` FROM tickets WHERE id = ?`, id)
	return scanTicket(row)
}

// GetTicketDetail returns a ticket with its contact, queue and channel
// summary resolved, or nil when absent.
func (db *DB) GetTicketDetail(id int64) (*TicketDetail, error) {
	row := db.QueryRow(`
		SELECT `+ticketDetailColumns+`
		FROM tickets t
		JOIN contacts c ON c.id = t.contact_id
		JOIN channels ch ON ch.id = t.channel_id
		LEFT JOIN queues q ON q.id = t.queue_id
		WHERE t.id = ?`, id)
	d, err := scanTicketDetail(row)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// DeleteTicket removes a ticket. Messages cascade.
func (db *DB) DeleteTicket(id int64) error {
	_, err := db.Exec(`DELETE FROM tickets WHERE id = ?`, id)
	return err
}

// TicketFilter selects tickets for listing.
type TicketFilter struct {
	Status      string
	QueueIDs    []int64
	SearchParam string
	Limit       int
	Offset      int
}

// ListTickets returns tickets matching the filter, newest activity
// first, plus the total match count for pagination.
func (db *DB) ListTickets(f TicketFilter) ([]TicketDetail, int, error) {
	if f.Limit <= 0 {
		f.Limit = 20
	}

	var where []string
	var args []any
	if f.Status != "" {
		where = append(where, "t.status = ?")
		args = append(args, f.Status)
	}
	if len(f.QueueIDs) > 0 {
		ph := strings.TrimSuffix(strings.Repeat("?,", len(f.QueueIDs)), ",")
		where = append(where, "t.queue_id IN ("+ph+")")
		for _, id := range f.QueueIDs {
			args = append(args, id)
		}
	}
	if f.SearchParam != "" {
		where = append(where, "(LOWER(c.name) LIKE ? OR c.number LIKE ?)")
		p := "%" + strings.ToLower(f.SearchParam) + "%"
		args = append(args, p, p)
	}
	clause := ""
	if len(where) > 0 {
		clause = "WHERE " + strings.Join(where, " AND ")
	}

	var count int
	countQuery := fmt.Sprintf(`
		SELECT COUNT(*)
		FROM tickets t
		JOIN contacts c ON c.id = t.contact_id
		%s`, clause)
	if err := db.QueryRow(countQuery, args...).Scan(&count); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM tickets t
		JOIN contacts c ON c.id = t.contact_id
		JOIN channels ch ON ch.id = t.channel_id
		LEFT JOIN queues q ON q.id = t.queue_id
		%s
		ORDER BY t.updated_at DESC
		LIMIT ? OFFSET ?`, ticketDetailColumns, clause)
	rows, err := db.Query(query, append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = rows.Close() }()

	var tickets []TicketDetail
	for rows.Next() {
		d, err := scanTicketDetail(rows)
		if err != nil {
			return nil, 0, err
		}
		tickets = append(tickets, *d)
	}
	return tickets, count, rows.Err()
}

const ticketColumns = `id, status, contact_id, channel_id, user_id, queue_id, unread_messages, is_group, last_message, created_at, updated_at`

const ticketDetailColumns = `t.id, t.status, t.contact_id, t.channel_id, t.user_id, t.queue_id, t.unread_messages, t.is_group, t.last_message, t.created_at, t.updated_at,
	c.id, c.number, c.name, c.is_group, c.created_at, c.updated_at,
	ch.name, ch.farewell_message,
	q.id, q.name, q.color`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTicket(row rowScanner) (*Ticket, error) {
	var t Ticket
	var userID, queueID sql.NullInt64
	err := row.Scan(&t.ID, &t.Status, &t.ContactID, &t.ChannelID, &userID, &queueID,
		&t.UnreadMessages, &t.IsGroup, &t.LastMessage, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	t.UserID = nullInt(userID)
	t.QueueID = nullInt(queueID)
	return &t, nil
}

func scanTicketDetail(row rowScanner) (*TicketDetail, error) {
	var d TicketDetail
	var c Contact
	var userID, queueID, qID sql.NullInt64
	var qName, qColor sql.NullString
	err := row.Scan(&d.ID, &d.Status, &d.ContactID, &d.ChannelID, &userID, &queueID,
		&d.UnreadMessages, &d.IsGroup, &d.LastMessage, &d.CreatedAt, &d.UpdatedAt,
		&c.ID, &c.Number, &c.Name, &c.IsGroup, &c.CreatedAt, &c.UpdatedAt,
		&d.ChannelName, &d.Farewell,
		&qID, &qName, &qColor)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	d.UserID = nullInt(userID)
	d.QueueID = nullInt(queueID)
	d.Contact = &c
	if qID.Valid {
		d.Queue = &Queue{ID: qID.Int64, Name: qName.String, Color: qColor.String}
	}
	return &d, nil
}

func nullableID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

func nullInt(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}
