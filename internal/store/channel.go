package store

import (
	"database/sql"
	"time"
)

// EnsureChannel finds the channel record named name, creating it
// disconnected when absent.
func (db *DB) EnsureChannel(name string) (*Channel, error) {
	ch, err := db.GetChannelByName(name)
	if err != nil || ch != nil {
		return ch, err
	}
	now := time.Now().UnixMilli()
	res, err := db.Exec(`
		INSERT INTO channels (name, status, is_default, created_at, updated_at)
		VALUES (?, 'DISCONNECTED', 1, ?, ?)`, name, now, now)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return db.GetChannel(id)
}

// GetChannel returns a channel by id, or nil when absent.
func (db *DB) GetChannel(id int64) (*Channel, error) {
	row := db.QueryRow(`SELECT `+channelColumns+` FROM channels WHERE id = ?`, id)
	return scanChannel(row)
}

// GetChannelByName returns a channel by name, or nil when absent.
func (db *DB) GetChannelByName(name string) (*Channel, error) {
	row := db.QueryRow(`SELECT `+channelColumns+` FROM channels WHERE name = ?`, name)
	return scanChannel(row)
}

// SaveChannel persists mutable channel fields.
func (db *DB) SaveChannel(c *Channel) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		UPDATE channels
		SET status = ?, greeting_message = ?, farewell_message = ?, is_default = ?, updated_at = ?
		WHERE id = ?`,
		c.Status, c.GreetingMessage, c.FarewellMessage, c.IsDefault, now, c.ID)
	if err != nil {
		return err
	}
	c.UpdatedAt = now
	return nil
}

// SetChannelStatus records the connector's session state.
func (db *DB) SetChannelStatus(id int64, status string) error {
	_, err := db.Exec(`UPDATE channels SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().UnixMilli(), id)
	return err
}

const channelColumns = `id, name, status, greeting_message, farewell_message, is_default, created_at, updated_at`

func scanChannel(row rowScanner) (*Channel, error) {
	var c Channel
	err := row.Scan(&c.ID, &c.Name, &c.Status, &c.GreetingMessage, &c.FarewellMessage,
		&c.IsDefault, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}
