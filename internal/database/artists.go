package database

import (
	"database/sql"
	"fmt"

	"cadenza/pkg/models"

	"github.com/google/uuid"
)

const artistColumns = `
	ar.id, ar.name, ar.bio, ar.image_url,
	(SELECT COUNT(*) FROM albums al WHERE al.artist_id = ar.id),
	(SELECT COUNT(*) FROM tracks t WHERE t.artist_id = ar.id)`

func scanArtistRow(row rowScanner) (models.Artist, error) {
	var a models.Artist
	var bio, imageURL sql.NullString

	err := row.Scan(&a.ID, &a.Name, &bio, &imageURL, &a.AlbumCount, &a.TrackCount)
	if err != nil {
		return models.Artist{}, err
	}
	if bio.Valid {
		a.Bio = &bio.String
	}
	if imageURL.Valid {
		a.ImageURL = &imageURL.String
	}
	return a, nil
}

// FindArtistByName returns the artist with the exact given name, or nil
// if no such artist exists.
func (db *Database) FindArtistByName(name string) (*models.Artist, error) {
	row := db.conn.QueryRow("SELECT "+artistColumns+" FROM artists ar WHERE ar.name = ?", name)
	a, err := scanArtistRow(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

// CreateArtist inserts a new artist and returns its generated ID.
func (db *Database) CreateArtist(name string) (string, error) {
	id := uuid.NewString()
	_, err := db.conn.Exec("INSERT INTO artists (id, name) VALUES (?, ?)", id, name)
	if err != nil {
		db.logger.WithError(err).WithField("name", name).Error("Failed to create artist")
		return "", err
	}
	return id, nil
}

// FindOrCreateArtist resolves an artist by exact name match, creating it
// when absent.
func (db *Database) FindOrCreateArtist(name string) (string, error) {
	artist, err := db.FindArtistByName(name)
	if err != nil {
		return "", err
	}
	if artist != nil {
		return artist.ID, nil
	}
	return db.CreateArtist(name)
}

// ListArtists returns a page of artists ordered by name with computed
// album and track counts.
func (db *Database) ListArtists(page, pageSize int) ([]models.Artist, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 50
	}

	var total int
	if err := db.conn.QueryRow("SELECT COUNT(*) FROM artists").Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := db.conn.Query(
		"SELECT "+artistColumns+" FROM artists ar ORDER BY ar.name LIMIT ? OFFSET ?",
		pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var artists []models.Artist
	for rows.Next() {
		a, err := scanArtistRow(rows)
		if err != nil {
			return nil, 0, err
		}
		artists = append(artists, a)
	}
	return artists, total, rows.Err()
}

// GetArtistByID returns one artist with its albums nested.
func (db *Database) GetArtistByID(id string) (*models.Artist, error) {
	row := db.conn.QueryRow("SELECT "+artistColumns+" FROM artists ar WHERE ar.id = ?", id)
	a, err := scanArtistRow(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("artist with ID %s not found", id)
		}
		return nil, err
	}

	albums, _, err := db.listAlbumsWhere("al.artist_id = ?", []interface{}{id}, 1, 1000)
	if err != nil {
		return nil, err
	}
	a.Albums = albums
	return &a, nil
}

// SearchArtists returns artists whose name contains the query substring.
func (db *Database) SearchArtists(query string, limit int) ([]models.Artist, error) {
	rows, err := db.conn.Query(
		"SELECT "+artistColumns+" FROM artists ar WHERE ar.name LIKE ? ORDER BY ar.name LIMIT ?",
		"%"+query+"%", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var artists []models.Artist
	for rows.Next() {
		a, err := scanArtistRow(rows)
		if err != nil {
			return nil, err
		}
		artists = append(artists, a)
	}
	return artists, rows.Err()
}
