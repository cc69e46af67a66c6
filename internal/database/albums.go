package database

import (
	"database/sql"
	"fmt"

	"cadenza/pkg/models"

	"github.com/google/uuid"
)

const albumColumns = `
	al.id, al.title, al.artist_id, ar.name, al.year, al.genre, al.cover_url,
	al.disc_count, al.track_count, al.duration`

const albumFrom = `
	FROM albums al
	JOIN artists ar ON ar.id = al.artist_id`

func scanAlbumRow(row rowScanner) (models.Album, error) {
	var a models.Album
	var genre, coverURL sql.NullString
	var year sql.NullInt64

	err := row.Scan(&a.ID, &a.Title, &a.ArtistID, &a.ArtistName, &year, &genre, &coverURL,
		&a.DiscCount, &a.TrackCount, &a.Duration)
	if err != nil {
		return models.Album{}, err
	}
	if year.Valid {
		v := int(year.Int64)
		a.Year = &v
	}
	if genre.Valid {
		a.Genre = &genre.String
	}
	if coverURL.Valid {
		a.CoverURL = &coverURL.String
	}
	return a, nil
}

// FindAlbum returns the album with the exact (title, artistID) pair, or
// nil when absent.
func (db *Database) FindAlbum(title, artistID string) (*models.Album, error) {
	row := db.conn.QueryRow(
		"SELECT "+albumColumns+albumFrom+" WHERE al.title = ? AND al.artist_id = ?",
		title, artistID)
	a, err := scanAlbumRow(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

// CreateAlbum inserts a new album and returns its generated ID.
func (db *Database) CreateAlbum(title, artistID string, year *int, genre *string) (string, error) {
	id := uuid.NewString()
	_, err := db.conn.Exec(`
		INSERT INTO albums (id, title, artist_id, year, genre)
		VALUES (?, ?, ?, ?, ?)`,
		id, title, artistID, nullableInt(year), nullableString(genre))
	if err != nil {
		db.logger.WithError(err).WithField("title", title).Error("Failed to create album")
		return "", err
	}
	return id, nil
}

// FindOrCreateAlbum resolves an album by exact (title, artist) match,
// creating it when absent.
func (db *Database) FindOrCreateAlbum(title, artistID string, year *int, genre *string) (string, error) {
	album, err := db.FindAlbum(title, artistID)
	if err != nil {
		return "", err
	}
	if album != nil {
		return album.ID, nil
	}
	return db.CreateAlbum(title, artistID, year, genre)
}

func (db *Database) listAlbumsWhere(where string, args []interface{}, page, pageSize int) ([]models.Album, int, error) {
	cond := ""
	if where != "" {
		cond = " WHERE " + where
	}

	var total int
	if err := db.conn.QueryRow("SELECT COUNT(*)"+albumFrom+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := "SELECT " + albumColumns + albumFrom + cond + " ORDER BY al.title LIMIT ? OFFSET ?"
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var albums []models.Album
	for rows.Next() {
		a, err := scanAlbumRow(rows)
		if err != nil {
			return nil, 0, err
		}
		albums = append(albums, a)
	}
	return albums, total, rows.Err()
}

// ListAlbums returns a page of albums ordered by title.
func (db *Database) ListAlbums(page, pageSize int) ([]models.Album, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 50
	}
	return db.listAlbumsWhere("", nil, page, pageSize)
}

// GetAlbumByID returns one album with its tracks nested.
func (db *Database) GetAlbumByID(id string) (*models.Album, error) {
	row := db.conn.QueryRow("SELECT "+albumColumns+albumFrom+" WHERE al.id = ?", id)
	a, err := scanAlbumRow(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("album with ID %s not found", id)
		}
		return nil, err
	}

	tracks, err := db.GetTracksByAlbum(id)
	if err != nil {
		return nil, err
	}
	a.Tracks = tracks
	return &a, nil
}

// SearchAlbums returns albums whose title or artist name contains the
// query substring.
func (db *Database) SearchAlbums(query string, limit int) ([]models.Album, error) {
	like := "%" + query + "%"
	rows, err := db.conn.Query(
		"SELECT "+albumColumns+albumFrom+" WHERE al.title LIKE ? OR ar.name LIKE ? ORDER BY al.title LIMIT ?",
		like, like, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var albums []models.Album
	for rows.Next() {
		a, err := scanAlbumRow(rows)
		if err != nil {
			return nil, err
		}
		albums = append(albums, a)
	}
	return albums, rows.Err()
}

// ReconcileAlbumAggregates recomputes the cached track_count and
// duration of every album from its member tracks. Intentionally a full
// pass rather than an incremental update; library sizes are personal
// scale and the full pass is idempotent.
func (db *Database) ReconcileAlbumAggregates() error {
	_, err := db.conn.Exec(`
		UPDATE albums SET
			track_count = (SELECT COUNT(*) FROM tracks t WHERE t.album_id = albums.id),
			duration = COALESCE((SELECT SUM(t.duration) FROM tracks t WHERE t.album_id = albums.id), 0)`)
	if err != nil {
		db.logger.WithError(err).Error("Failed to reconcile album aggregates")
	}
	return err
}

// GetLibraryStats aggregates whole-library counters.
func (db *Database) GetLibraryStats() (*models.LibraryStats, error) {
	var stats models.LibraryStats
	row := db.conn.QueryRow(`
		SELECT
			(SELECT COUNT(*) FROM tracks),
			(SELECT COUNT(*) FROM albums),
			(SELECT COUNT(*) FROM artists),
			(SELECT COUNT(*) FROM playlists),
			COALESCE((SELECT SUM(duration) FROM tracks), 0),
			COALESCE((SELECT SUM(size) FROM tracks), 0)`)
	err := row.Scan(&stats.TotalTracks, &stats.TotalAlbums, &stats.TotalArtists,
		&stats.TotalPlaylists, &stats.TotalDuration, &stats.TotalSize)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// ListGenres returns genre buckets ordered by descending track count.
func (db *Database) ListGenres() ([]models.GenreCount, error) {
	rows, err := db.conn.Query(`
		SELECT genre, COUNT(*) AS cnt
		FROM tracks
		WHERE genre IS NOT NULL AND genre != ''
		GROUP BY genre
		ORDER BY cnt DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var genres []models.GenreCount
	for rows.Next() {
		var g models.GenreCount
		if err := rows.Scan(&g.Name, &g.Count); err != nil {
			return nil, err
		}
		genres = append(genres, g)
	}
	return genres, rows.Err()
}
