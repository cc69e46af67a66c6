package database

import (
	"cadenza/pkg/models"

	"github.com/google/uuid"
)

// ListHistory returns a page of the user's play log, newest first.
// Repeats are expected; the log is append-only.
func (db *Database) ListHistory(userID string, page, pageSize int) ([]models.HistoryEntry, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 50
	}

	var total int
	if err := db.conn.QueryRow("SELECT COUNT(*) FROM play_history WHERE user_id = ?", userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := db.conn.Query(
		"SELECT "+trackColumns+", h.played_at"+trackFrom+
			" JOIN play_history h ON h.track_id = t.id WHERE h.user_id = ?"+
			" ORDER BY h.played_at DESC LIMIT ? OFFSET ?",
		userID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var entries []models.HistoryEntry
	for rows.Next() {
		var e models.HistoryEntry
		t, err := scanTrackWithExtra(rows, &e.PlayedAt)
		if err != nil {
			return nil, 0, err
		}
		e.Track = t
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}

// RecordPlay appends one row to the play log.
func (db *Database) RecordPlay(userID, trackID string) error {
	_, err := db.conn.Exec(
		"INSERT INTO play_history (id, user_id, track_id) VALUES (?, ?, ?)",
		uuid.NewString(), userID, trackID)
	return err
}

// ClearHistory removes the user's entire play log.
func (db *Database) ClearHistory(userID string) error {
	_, err := db.conn.Exec("DELETE FROM play_history WHERE user_id = ?", userID)
	return err
}
