package store

import (
	"database/sql"
	"time"
)

// UpsertContact inserts or refreshes a contact keyed by its number and
// returns the stored row.
func (db *DB) UpsertContact(number, name string, isGroup bool) (*Contact, error) {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO contacts (number, name, is_group, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(number) DO UPDATE SET
			name = CASE WHEN excluded.name != '' THEN excluded.name ELSE contacts.name END,
			updated_at = excluded.updated_at`,
		number, name, isGroup, now, now)
	if err != nil {
		return nil, err
	}
	return db.GetContactByNumber(number)
}

// GetContact returns a contact by id, or nil when absent.
func (db *DB) GetContact(id int64) (*Contact, error) {
	row := db.QueryRow(`SELECT `+contactColumns+` FROM contacts WHERE id = ?`, id)
	return scanContact(row)
}

// GetContactByNumber returns a contact by its external number, or nil.
func (db *DB) GetContactByNumber(number string) (*Contact, error) {
	row := db.QueryRow(`SELECT `+contactColumns+` FROM contacts WHERE number = ?`, number)
	return scanContact(row)
}

const contactColumns = `id, number, name, is_group, created_at, updated_at`

func scanContact(row rowScanner) (*Contact, error) {
	var c Contact
	err := row.Scan(&c.ID, &c.Number, &c.Name, &c.IsGroup, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}
