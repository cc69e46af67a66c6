package database

import (
	"database/sql"

	"cadenza/pkg/models"

	"github.com/google/uuid"
)

// ListFavorites returns a page of the user's favorited tracks, most
// recently favorited first.
func (db *Database) ListFavorites(userID string, page, pageSize int) ([]models.Track, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 50
	}

	var total int
	if err := db.conn.QueryRow("SELECT COUNT(*) FROM favorites WHERE user_id = ?", userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := db.conn.Query(
		"SELECT "+trackColumns+trackFrom+
			" JOIN favorites f ON f.track_id = t.id WHERE f.user_id = ?"+
			" ORDER BY f.created_at DESC LIMIT ? OFFSET ?",
		userID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	tracks, err := scanTrackRows(rows)
	if err != nil {
		return nil, 0, err
	}
	for i := range tracks {
		tracks[i].IsFavorite = true
	}
	return tracks, total, nil
}

// IsFavorite reports whether the (user, track) pair is favorited.
func (db *Database) IsFavorite(userID, trackID string) (bool, error) {
	var count int
	err := db.conn.QueryRow(
		"SELECT COUNT(*) FROM favorites WHERE user_id = ? AND track_id = ?",
		userID, trackID).Scan(&count)
	return count > 0, err
}

// ToggleFavorite flips favorite existence for the pair and returns the
// resulting state (true = now favorited).
func (db *Database) ToggleFavorite(userID, trackID string) (bool, error) {
	var id string
	err := db.conn.QueryRow(
		"SELECT id FROM favorites WHERE user_id = ? AND track_id = ?",
		userID, trackID).Scan(&id)

	switch {
	case err == sql.ErrNoRows:
		_, err := db.conn.Exec(
			"INSERT INTO favorites (id, user_id, track_id) VALUES (?, ?, ?)",
			uuid.NewString(), userID, trackID)
		if err != nil {
			return false, err
		}
		return true, nil
	case err != nil:
		return false, err
	default:
		if _, err := db.conn.Exec("DELETE FROM favorites WHERE id = ?", id); err != nil {
			return true, err
		}
		return false, nil
	}
}

// RemoveFavorite deletes the pair if present; removing an absent pair is
// a no-op.
func (db *Database) RemoveFavorite(userID, trackID string) error {
	_, err := db.conn.Exec(
		"DELETE FROM favorites WHERE user_id = ? AND track_id = ?",
		userID, trackID)
	return err
}
