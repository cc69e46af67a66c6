package database

import (
	"cadenza/pkg/models"

	"github.com/google/uuid"
)

// GetQueue returns the persisted queue in position order.
func (db *Database) GetQueue() ([]models.QueueItem, error) {
	rows, err := db.conn.Query(
		"SELECT " + trackColumns + ", q.id, q.position, q.source" + trackFrom +
			" JOIN queue_items q ON q.track_id = t.id ORDER BY q.position")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.QueueItem
	for rows.Next() {
		var item models.QueueItem
		t, err := scanTrackWithExtra(rows, &item.ID, &item.Position, &item.Source)
		if err != nil {
			return nil, err
		}
		item.Track = t
		items = append(items, item)
	}
	return items, rows.Err()
}

// ReplaceQueue replaces the entire persisted queue with the given track
// IDs in order. The queue is always replaced wholesale, never merged.
func (db *Database) ReplaceQueue(trackIDs []string, source string) error {
	if source == "" {
		source = "manual"
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM queue_items"); err != nil {
		return err
	}

	for i, trackID := range trackIDs {
		_, err := tx.Exec(
			"INSERT INTO queue_items (id, track_id, position, source) VALUES (?, ?, ?, ?)",
			uuid.NewString(), trackID, i, source)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ClearQueue removes every persisted queue entry.
func (db *Database) ClearQueue() error {
	_, err := db.conn.Exec("DELETE FROM queue_items")
	return err
}
