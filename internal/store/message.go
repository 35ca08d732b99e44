package store

import (
	"database/sql"
	"time"
)

// UpsertMessage inserts or overwrites a message keyed by its externally
// supplied id. Redelivery of the same id is idempotent.
func (db *DB) UpsertMessage(m *Message) error {
	now := time.Now().UnixMilli()
	if m.CreatedAt == 0 {
		m.CreatedAt = now
	}
	_, err := db.Exec(`
		INSERT INTO messages (id, ticket_id, contact_id, body, from_me, read, media_type, media_url, quoted_msg_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			contact_id = excluded.contact_id,
			body = excluded.body,
			from_me = excluded.from_me,
			read = excluded.read,
			media_type = excluded.media_type,
			media_url = excluded.media_url,
			quoted_msg_id = excluded.quoted_msg_id,
			updated_at = excluded.updated_at`,
		m.ID, m.TicketID, nullableID(m.ContactID), m.Body, m.FromMe, m.Read,
		m.MediaType, m.MediaURL, nullableStr(m.QuotedMsgID), m.CreatedAt, now)
	return err
}

// GetMessage returns a message by id, or nil when absent.
func (db *DB) GetMessage(id string) (*Message, error) {
	row := db.QueryRow(`SELECT `+messageColumns+` FROM messages WHERE id = ?`, id)
	return scanMessage(row)
}

// GetMessageDetail returns a message with its contact, ticket relation
// graph and quoted message resolved, or nil when absent.
func (db *DB) GetMessageDetail(id string) (*MessageDetail, error) {
	m, err := db.GetMessage(id)
	if err != nil || m == nil {
		return nil, err
	}

	d := &MessageDetail{Message: *m}
	if m.ContactID != nil {
		if d.Contact, err = db.GetContact(*m.ContactID); err != nil {
			return nil, err
		}
	}
	if d.Ticket, err = db.GetTicketDetail(m.TicketID); err != nil {
		return nil, err
	}
	if m.QuotedMsgID != "" {
		quoted, err := db.GetMessage(m.QuotedMsgID)
		if err != nil {
			return nil, err
		}
		// Weak reference: the quoted message may have been pruned.
		if quoted != nil {
			q := &QuotedMsg{Message: *quoted}
			if quoted.ContactID != nil {
				if q.Contact, err = db.GetContact(*quoted.ContactID); err != nil {
					return nil, err
				}
			}
			d.QuotedMsg = q
		}
	}
	return d, nil
}

// ListMessages returns a page of messages for a ticket, newest first,
// plus the total count for pagination.
func (db *DB) ListMessages(ticketID int64, limit, offset int) ([]Message, int, error) {
	if limit <= 0 {
		limit = 20
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM messages WHERE ticket_id = ?`, ticketID).Scan(&count); err != nil {
		return nil, 0, err
	}

	rows, err := db.Query(`
		SELECT `+messageColumns+`
		FROM messages
		WHERE ticket_id = ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?`, ticketID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = rows.Close() }()

	var msgs []Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, 0, err
		}
		msgs = append(msgs, *m)
	}
	return msgs, count, rows.Err()
}

const messageColumns = `id, ticket_id, contact_id, body, from_me, read, media_type, media_url, quoted_msg_id, created_at, updated_at`

func scanMessage(row rowScanner) (*Message, error) {
	var m Message
	var contactID sql.NullInt64
	var quoted sql.NullString
	err := row.Scan(&m.ID, &m.TicketID, &contactID, &m.Body, &m.FromMe, &m.Read,
		&m.MediaType, &m.MediaURL, &quoted, &m.CreatedAt, &m.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	m.ContactID = nullInt(contactID)
	m.QuotedMsgID = quoted.String
	return &m, nil
}

func nullableStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}
