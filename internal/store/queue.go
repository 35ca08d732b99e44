package store

import "time"

// CreateQueue inserts a queue and fills in its id.
func (db *DB) CreateQueue(q *Queue) error {
	now := time.Now().UnixMilli()
	res, err := db.Exec(`
		INSERT INTO queues (name, color, created_at, updated_at)
		VALUES (?, ?, ?, ?)`, q.Name, q.Color, now, now)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	q.ID = id
	return nil
}
