package database

import (
	"database/sql"
	"fmt"
	"strings"

	"cadenza/pkg/models"

	"github.com/google/uuid"
)

// trackColumns is the joined column list shared by every track query.
// Keep in sync with scanTrackRow.
const trackColumns = `
	t.id, t.title, t.artist_id, ar.name, t.album_id, al.title, al.cover_url,
	t.track_number, t.disc_number, t.duration, t.bitrate, t.sample_rate,
	t.format, t.size, t.file_path, t.genre, t.year, t.lyrics, t.lyrics_type,
	t.play_count, t.rating, t.created_at`

const trackFrom = `
	FROM tracks t
	JOIN artists ar ON ar.id = t.artist_id
	JOIN albums al ON al.id = t.album_id`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanTrackRow scans one joined track row into a models.Track.
func scanTrackRow(row rowScanner) (models.Track, error) {
	return scanTrackWithExtra(row)
}

// scanTrackWithExtra scans a joined track row followed by any trailing
// columns the query appended (e.g. a played_at timestamp).
func scanTrackWithExtra(row rowScanner, extra ...interface{}) (models.Track, error) {
	var t models.Track
	var coverURL, genre, lyrics, lyricsType sql.NullString
	var bitrate, sampleRate, year sql.NullInt64

	dest := []interface{}{
		&t.ID, &t.Title, &t.ArtistID, &t.ArtistName, &t.AlbumID, &t.AlbumTitle, &coverURL,
		&t.TrackNumber, &t.DiscNumber, &t.Duration, &bitrate, &sampleRate,
		&t.Format, &t.Size, &t.FilePath, &genre, &year, &lyrics, &lyricsType,
		&t.PlayCount, &t.Rating, &t.CreatedAt,
	}
	dest = append(dest, extra...)

	if err := row.Scan(dest...); err != nil {
		return models.Track{}, err
	}

	if coverURL.Valid {
		t.CoverURL = &coverURL.String
	}
	if genre.Valid {
		t.Genre = &genre.String
	}
	if lyrics.Valid {
		t.Lyrics = &lyrics.String
	}
	if lyricsType.Valid {
		t.LyricsType = &lyricsType.String
	}
	if bitrate.Valid {
		v := int(bitrate.Int64)
		t.Bitrate = &v
	}
	if sampleRate.Valid {
		v := int(sampleRate.Int64)
		t.SampleRate = &v
	}
	if year.Valid {
		v := int(year.Int64)
		t.Year = &v
	}
	return t, nil
}

// scanTrackRows collects a joined track result set.
func scanTrackRows(rows *sql.Rows) ([]models.Track, error) {
	var tracks []models.Track
	for rows.Next() {
		t, err := scanTrackRow(rows)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, t)
	}
	return tracks, rows.Err()
}

// TrackQuery carries list filtering, sorting and pagination parameters.
type TrackQuery struct {
	Page     int
	PageSize int
	Sort     string
	Order    string
	Search   string
	Genre    string
	ArtistID string
	AlbumID  string
	Year     int
	Format   string
}

// trackSortColumns maps recognized sort keys to ORDER BY expressions.
// Unknown keys silently fall back to title.
var trackSortColumns = map[string]string{
	"title":     "t.title",
	"artist":    "ar.name",
	"album":     "al.title",
	"year":      "t.year",
	"duration":  "t.duration",
	"dateAdded": "t.created_at",
	"playCount": "t.play_count",
	"rating":    "t.rating",
}

// ListTracks returns a page of tracks matching the query plus the total
// count of matches.
func (db *Database) ListTracks(q TrackQuery) ([]models.Track, int, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = 50
	}

	var conds []string
	var args []interface{}
	if q.Genre != "" {
		conds = append(conds, "t.genre = ?")
		args = append(args, q.Genre)
	}
	if q.ArtistID != "" {
		conds = append(conds, "t.artist_id = ?")
		args = append(args, q.ArtistID)
	}
	if q.AlbumID != "" {
		conds = append(conds, "t.album_id = ?")
		args = append(args, q.AlbumID)
	}
	if q.Year != 0 {
		conds = append(conds, "t.year = ?")
		args = append(args, q.Year)
	}
	if q.Format != "" {
		conds = append(conds, "t.format = ?")
		args = append(args, q.Format)
	}
	if q.Search != "" {
		like := "%" + q.Search + "%"
		conds = append(conds, "(t.title LIKE ? OR ar.name LIKE ? OR al.title LIKE ?)")
		args = append(args, like, like, like)
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	countQuery := "SELECT COUNT(*)" + trackFrom + where
	if err := db.conn.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	sortCol, ok := trackSortColumns[q.Sort]
	if !ok {
		sortCol = "t.title"
	}
	dir := "ASC"
	if q.Order == "desc" {
		dir = "DESC"
	}

	query := fmt.Sprintf("SELECT %s %s%s ORDER BY %s %s LIMIT ? OFFSET ?",
		trackColumns, trackFrom, where, sortCol, dir)
	args = append(args, q.PageSize, (q.Page-1)*q.PageSize)

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	tracks, err := scanTrackRows(rows)
	return tracks, total, err
}

// GetTrackByID returns a single track by its ID.
func (db *Database) GetTrackByID(id string) (*models.Track, error) {
	row := db.conn.QueryRow("SELECT "+trackColumns+trackFrom+" WHERE t.id = ?", id)
	t, err := scanTrackRow(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("track with ID %s not found", id)
		}
		db.logger.WithError(err).WithField("track_id", id).Error("Failed to get track by ID")
		return nil, err
	}
	return &t, nil
}

// GetTracksByAlbum returns an album's tracks in disc/track-number order.
func (db *Database) GetTracksByAlbum(albumID string) ([]models.Track, error) {
	rows, err := db.conn.Query(
		"SELECT "+trackColumns+trackFrom+" WHERE t.album_id = ? ORDER BY t.disc_number, t.track_number, t.title",
		albumID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTrackRows(rows)
}

// TrackExists returns true if a track exists with the given file path.
func (db *Database) TrackExists(filePath string) (bool, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM tracks WHERE file_path = ?", filePath).Scan(&count)
	if err != nil {
		db.logger.WithError(err).WithField("file_path", filePath).Error("Failed to check if track exists")
		return false, err
	}
	return count > 0, nil
}

// CreateTrack inserts a new track row and returns its generated ID.
// The file path is the dedup key; inserting a duplicate path fails.
func (db *Database) CreateTrack(t models.Track) (string, error) {
	id := uuid.NewString()
	_, err := db.conn.Exec(`
		INSERT INTO tracks (id, title, artist_id, album_id, track_number, disc_number,
			duration, bitrate, sample_rate, format, size, file_path, genre, year)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, t.Title, t.ArtistID, t.AlbumID, t.TrackNumber, t.DiscNumber,
		t.Duration, nullableInt(t.Bitrate), nullableInt(t.SampleRate),
		t.Format, t.Size, t.FilePath, nullableString(t.Genre), nullableInt(t.Year))
	if err != nil {
		db.logger.WithError(err).WithField("file_path", t.FilePath).Error("Failed to insert new track")
		return "", err
	}
	return id, nil
}

// TrackUpdate carries the mutable track fields; nil means leave unchanged.
type TrackUpdate struct {
	Rating     *int
	Lyrics     *string
	LyricsType *string
}

// UpdateTrack applies rating/lyrics edits to a track.
func (db *Database) UpdateTrack(id string, upd TrackUpdate) error {
	var sets []string
	var args []interface{}
	if upd.Rating != nil {
		sets = append(sets, "rating = ?")
		args = append(args, *upd.Rating)
	}
	if upd.Lyrics != nil {
		sets = append(sets, "lyrics = ?")
		args = append(args, *upd.Lyrics)
	}
	if upd.LyricsType != nil {
		sets = append(sets, "lyrics_type = ?")
		args = append(args, *upd.LyricsType)
	}
	if len(sets) == 0 {
		return nil
	}

	args = append(args, id)
	res, err := db.conn.Exec("UPDATE tracks SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return fmt.Errorf("track with ID %s not found", id)
	}
	return err
}

// IncrementPlayCount atomically adds one to a track's play counter. The
// add happens inside the storage engine so concurrent range requests for
// the same track never lose updates.
func (db *Database) IncrementPlayCount(id string) error {
	_, err := db.conn.Exec("UPDATE tracks SET play_count = play_count + 1 WHERE id = ?", id)
	return err
}

// RemoveTrackByPath deletes a track row identified by its file path.
func (db *Database) RemoveTrackByPath(filePath string) error {
	_, err := db.conn.Exec("DELETE FROM tracks WHERE file_path = ?", filePath)
	if err != nil {
		db.logger.WithError(err).WithField("file_path", filePath).Error("Failed to remove track by path")
	}
	return err
}

func nullableInt(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullableString(v *string) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
