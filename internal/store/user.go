package store

import (
	"database/sql"
	"strings"
	"time"
)

// CreateUser inserts a new agent and fills in its id.
func (db *DB) CreateUser(u *User) error {
	now := time.Now().UnixMilli()
	res, err := db.Exec(`
		INSERT INTO users (name, email, profile, is_connected, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		u.Name, u.Email, u.Profile, u.IsConnected, now, now)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = id
	u.CreatedAt = now
	u.UpdatedAt = now
	return nil
}

// GetUser returns an agent by id, or nil when absent.
func (db *DB) GetUser(id int64) (*User, error) {
	row := db.QueryRow(`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// SetUserConnected flips the stored connection flag. A missing user is
// not an error; connection lifecycle must never fail on it.
func (db *DB) SetUserConnected(id int64, connected bool) error {
	_, err := db.Exec(`UPDATE users SET is_connected = ?, updated_at = ? WHERE id = ?`,
		connected, time.Now().UnixMilli(), id)
	return err
}

// RecordInteraction appends an interaction timestamp for the agent.
func (db *DB) RecordInteraction(userID int64) error {
	_, err := db.Exec(`INSERT INTO interactions (user_id, created_at) VALUES (?, ?)`,
		userID, time.Now().UnixMilli())
	return err
}

// LastInteraction returns the agent's most recent interaction instant
// in milliseconds, or 0 when none was recorded.
func (db *DB) LastInteraction(userID int64) (int64, error) {
	var ts int64
	err := db.QueryRow(`
		SELECT created_at FROM interactions
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT 1`, userID).Scan(&ts)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return ts, nil
}

// ListUsers returns agents matching the search term on name or email,
// newest first, plus the total match count.
func (db *DB) ListUsers(search string, limit, offset int) ([]User, int, error) {
	if limit <= 0 {
		limit = 20
	}
	p := "%" + strings.ToLower(search) + "%"

	var count int
	if err := db.QueryRow(`
		SELECT COUNT(*) FROM users
		WHERE LOWER(name) LIKE ? OR LOWER(email) LIKE ?`, p, p).Scan(&count); err != nil {
		return nil, 0, err
	}

	rows, err := db.Query(`
		SELECT `+userColumns+`
		FROM users
		WHERE LOWER(name) LIKE ? OR LOWER(email) LIKE ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?`, p, p, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = rows.Close() }()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, *u)
	}
	return users, count, rows.Err()
}

const userColumns = `id, name, email, profile, is_connected, created_at, updated_at`

func scanUser(row rowScanner) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Profile, &u.IsConnected, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
