package database

import (
	"database/sql"
	"fmt"
	"strings"

	"cadenza/pkg/models"

	"github.com/google/uuid"
)

const playlistColumns = `
	p.id, p.name, p.description, p.cover_url, p.user_id, p.is_public,
	p.is_smart, p.smart_rules, p.track_count, p.duration, p.created_at, p.updated_at`

func scanPlaylistRow(row rowScanner) (models.Playlist, error) {
	var p models.Playlist
	var description, coverURL, smartRules sql.NullString

	err := row.Scan(&p.ID, &p.Name, &description, &coverURL, &p.UserID, &p.IsPublic,
		&p.IsSmart, &smartRules, &p.TrackCount, &p.Duration, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return models.Playlist{}, err
	}
	if description.Valid {
		p.Description = &description.String
	}
	if coverURL.Valid {
		p.CoverURL = &coverURL.String
	}
	if smartRules.Valid {
		p.SmartRules = &smartRules.String
	}
	return p, nil
}

// ListPlaylists returns a page of playlists ordered by most recently
// updated, optionally restricted to one owner.
func (db *Database) ListPlaylists(userID string, page, pageSize int) ([]models.Playlist, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 50
	}

	cond := ""
	var args []interface{}
	if userID != "" {
		cond = " WHERE p.user_id = ?"
		args = append(args, userID)
	}

	var total int
	if err := db.conn.QueryRow("SELECT COUNT(*) FROM playlists p"+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := "SELECT " + playlistColumns + " FROM playlists p" + cond +
		" ORDER BY p.updated_at DESC LIMIT ? OFFSET ?"
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var playlists []models.Playlist
	for rows.Next() {
		p, err := scanPlaylistRow(rows)
		if err != nil {
			return nil, 0, err
		}
		playlists = append(playlists, p)
	}
	return playlists, total, rows.Err()
}

// GetPlaylistByID returns one playlist with its tracks nested in stored
// position order.
func (db *Database) GetPlaylistByID(id string) (*models.Playlist, error) {
	row := db.conn.QueryRow("SELECT "+playlistColumns+" FROM playlists p WHERE p.id = ?", id)
	p, err := scanPlaylistRow(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("playlist with ID %s not found", id)
		}
		return nil, err
	}

	rows, err := db.conn.Query(
		"SELECT "+trackColumns+trackFrom+
			" JOIN playlist_tracks pt ON pt.track_id = t.id WHERE pt.playlist_id = ? ORDER BY pt.position",
		id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tracks, err := scanTrackRows(rows)
	if err != nil {
		return nil, err
	}
	p.Tracks = tracks
	return &p, nil
}

// CreatePlaylist inserts a new playlist and returns its generated ID.
// Name and owner are required.
func (db *Database) CreatePlaylist(name string, description *string, userID string, isPublic, isSmart bool, smartRules *string) (string, error) {
	if name == "" || userID == "" {
		return "", fmt.Errorf("playlist name and owner are required")
	}

	id := uuid.NewString()
	_, err := db.conn.Exec(`
		INSERT INTO playlists (id, name, description, user_id, is_public, is_smart, smart_rules)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, name, nullableString(description), userID, isPublic, isSmart, nullableString(smartRules))
	if err != nil {
		db.logger.WithError(err).WithField("name", name).Error("Failed to create playlist")
		return "", err
	}
	return id, nil
}

// UpdatePlaylist applies metadata edits to a playlist; nil fields are
// left unchanged.
func (db *Database) UpdatePlaylist(id string, name, description, coverURL *string, isPublic *bool) error {
	var sets []string
	var args []interface{}
	if name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *name)
	}
	if description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *description)
	}
	if coverURL != nil {
		sets = append(sets, "cover_url = ?")
		args = append(args, *coverURL)
	}
	if isPublic != nil {
		sets = append(sets, "is_public = ?")
		args = append(args, *isPublic)
	}
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at = CURRENT_TIMESTAMP")

	args = append(args, id)
	res, err := db.conn.Exec("UPDATE playlists SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return fmt.Errorf("playlist with ID %s not found", id)
	}
	return err
}

// DeletePlaylist deletes the playlist; membership rows cascade.
func (db *Database) DeletePlaylist(id string) error {
	_, err := db.conn.Exec("DELETE FROM playlists WHERE id = ?", id)
	return err
}

// AddTracksToPlaylist appends tracks after the current maximum position.
// Duplicate (playlist, track) pairs are silently rejected. Cached
// aggregates are recomputed afterwards.
func (db *Database) AddTracksToPlaylist(playlistID string, trackIDs []string) error {
	var maxPosition sql.NullInt64
	err := db.conn.QueryRow(
		"SELECT MAX(position) FROM playlist_tracks WHERE playlist_id = ?",
		playlistID).Scan(&maxPosition)
	if err != nil && err != sql.ErrNoRows {
		return err
	}

	next := 0
	if maxPosition.Valid {
		next = int(maxPosition.Int64) + 1
	}

	for _, trackID := range trackIDs {
		_, err := db.conn.Exec(`
			INSERT INTO playlist_tracks (playlist_id, track_id, position)
			VALUES (?, ?, ?)
			ON CONFLICT(playlist_id, track_id) DO NOTHING`,
			playlistID, trackID, next)
		if err != nil {
			return err
		}
		next++
	}

	return db.recomputePlaylistAggregates(playlistID)
}

// RemoveTracksFromPlaylist removes the given tracks and re-densifies the
// remaining positions.
func (db *Database) RemoveTracksFromPlaylist(playlistID string, trackIDs []string) error {
	for _, trackID := range trackIDs {
		_, err := db.conn.Exec(
			"DELETE FROM playlist_tracks WHERE playlist_id = ? AND track_id = ?",
			playlistID, trackID)
		if err != nil {
			return err
		}
	}

	if err := db.densifyPlaylistPositions(playlistID); err != nil {
		return err
	}
	return db.recomputePlaylistAggregates(playlistID)
}

// TrackPosition pairs a track with its target position for reordering.
type TrackPosition struct {
	TrackID  string `json:"trackId"`
	Position int    `json:"position"`
}

// ReorderPlaylistTracks rewrites membership positions in one transaction.
func (db *Database) ReorderPlaylistTracks(playlistID string, order []TrackPosition) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, item := range order {
		_, err := tx.Exec(
			"UPDATE playlist_tracks SET position = ? WHERE playlist_id = ? AND track_id = ?",
			item.Position, playlistID, item.TrackID)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	return db.densifyPlaylistPositions(playlistID)
}

// densifyPlaylistPositions rewrites positions as a dense 0-based run
// preserving the current relative order.
func (db *Database) densifyPlaylistPositions(playlistID string) error {
	rows, err := db.conn.Query(
		"SELECT track_id FROM playlist_tracks WHERE playlist_id = ? ORDER BY position",
		playlistID)
	if err != nil {
		return err
	}

	var trackIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		trackIDs = append(trackIDs, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for i, id := range trackIDs {
		_, err := tx.Exec(
			"UPDATE playlist_tracks SET position = ? WHERE playlist_id = ? AND track_id = ?",
			i, playlistID, id)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// recomputePlaylistAggregates refreshes the cached track count and
// duration after any membership change.
func (db *Database) recomputePlaylistAggregates(playlistID string) error {
	_, err := db.conn.Exec(`
		UPDATE playlists SET
			track_count = (SELECT COUNT(*) FROM playlist_tracks pt WHERE pt.playlist_id = playlists.id),
			duration = COALESCE((SELECT SUM(t.duration)
				FROM playlist_tracks pt JOIN tracks t ON t.id = pt.track_id
				WHERE pt.playlist_id = playlists.id), 0),
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, playlistID)
	return err
}

// SearchPlaylists returns public playlists whose name or description
// contains the query substring.
func (db *Database) SearchPlaylists(query string, limit int) ([]models.Playlist, error) {
	like := "%" + query + "%"
	rows, err := db.conn.Query(
		"SELECT "+playlistColumns+
			" FROM playlists p WHERE (p.name LIKE ? OR p.description LIKE ?) AND p.is_public = TRUE"+
			" ORDER BY p.updated_at DESC LIMIT ?",
		like, like, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var playlists []models.Playlist
	for rows.Next() {
		p, err := scanPlaylistRow(rows)
		if err != nil {
			return nil, err
		}
		playlists = append(playlists, p)
	}
	return playlists, rows.Err()
}
