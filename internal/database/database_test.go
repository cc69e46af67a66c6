package database

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"cadenza/pkg/models"
)

func newTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func seedTrack(t *testing.T, db *Database, title string) string {
	t.Helper()
	artistID, err := db.FindOrCreateArtist("Seeded Artist")
	if err != nil {
		t.Fatal(err)
	}
	albumID, err := db.FindOrCreateAlbum("Seeded Album", artistID, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	id, err := db.CreateTrack(models.Track{
		Title:       title,
		ArtistID:    artistID,
		AlbumID:     albumID,
		TrackNumber: 1,
		DiscNumber:  1,
		Duration:    120,
		Format:      "mp3",
		Size:        1024,
		FilePath:    "/music/" + title + ".mp3",
	})
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func TestTrackCRUD(t *testing.T) {
	db := newTestDB(t)
	id := seedTrack(t, db, "First")

	track, err := db.GetTrackByID(id)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if track.Title != "First" || track.ArtistName != "Seeded Artist" || track.AlbumTitle != "Seeded Album" {
		t.Errorf("unexpected track: %+v", track)
	}

	rating := 4
	lyricsText := "[00:01.00]hello"
	lrc := "lrc"
	if err := db.UpdateTrack(id, TrackUpdate{Rating: &rating, Lyrics: &lyricsText, LyricsType: &lrc}); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	track, _ = db.GetTrackByID(id)
	if track.Rating != 4 || track.Lyrics == nil || *track.Lyrics != lyricsText {
		t.Errorf("update not applied: %+v", track)
	}

	if _, err := db.GetTrackByID("missing"); !errIsNotFound(err) {
		t.Errorf("expected not-found error, got %v", err)
	}
	if err := db.UpdateTrack("missing", TrackUpdate{Rating: &rating}); !errIsNotFound(err) {
		t.Errorf("expected not-found error, got %v", err)
	}
}

// errIsNotFound mirrors the check the HTTP layer uses to map store
// errors to 404 responses.
func errIsNotFound(err error) bool {
	return err != nil && strings.Contains(err.Error(), "not found")
}

func TestDuplicateFilePathRejected(t *testing.T) {
	db := newTestDB(t)
	seedTrack(t, db, "dup")

	artistID, _ := db.FindOrCreateArtist("Seeded Artist")
	albumID, _ := db.FindOrCreateAlbum("Seeded Album", artistID, nil, nil)
	_, err := db.CreateTrack(models.Track{
		Title:    "other",
		ArtistID: artistID,
		AlbumID:  albumID,
		Format:   "mp3",
		FilePath: "/music/dup.mp3",
	})
	if err == nil {
		t.Error("expected unique file_path violation")
	}
}

func TestListTracksFilterSortPaginate(t *testing.T) {
	db := newTestDB(t)
	for i := 0; i < 5; i++ {
		seedTrack(t, db, fmt.Sprintf("Song %d", i))
	}

	tracks, total, err := db.ListTracks(TrackQuery{Page: 1, PageSize: 2, Sort: "title", Order: "desc"})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 5 || len(tracks) != 2 {
		t.Fatalf("expected total 5 page of 2, got %d/%d", total, len(tracks))
	}
	if tracks[0].Title != "Song 4" {
		t.Errorf("descending sort broken, first = %s", tracks[0].Title)
	}

	tracks, total, err = db.ListTracks(TrackQuery{Search: "Song 3"})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if total != 1 || tracks[0].Title != "Song 3" {
		t.Errorf("search broken: total=%d", total)
	}
}

func TestAlbumAggregateReconciliation(t *testing.T) {
	db := newTestDB(t)
	seedTrack(t, db, "agg-one")
	seedTrack(t, db, "agg-two")

	if err := db.ReconcileAlbumAggregates(); err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}

	albums, _, err := db.ListAlbums(1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(albums) != 1 {
		t.Fatalf("expected 1 album, got %d", len(albums))
	}
	if albums[0].TrackCount != 2 || albums[0].Duration != 240 {
		t.Errorf("aggregates wrong: count=%d duration=%d", albums[0].TrackCount, albums[0].Duration)
	}
}

func TestPlaylistPositionsStayDense(t *testing.T) {
	db := newTestDB(t)
	var ids []string
	for i := 0; i < 4; i++ {
		ids = append(ids, seedTrack(t, db, fmt.Sprintf("pl-%d", i)))
	}

	plID, err := db.CreatePlaylist("Mix", nil, DefaultUserID, false, false, nil)
	if err != nil {
		t.Fatalf("create playlist failed: %v", err)
	}
	if err := db.AddTracksToPlaylist(plID, ids); err != nil {
		t.Fatalf("add tracks failed: %v", err)
	}

	// Duplicate adds are silently rejected.
	if err := db.AddTracksToPlaylist(plID, ids[:1]); err != nil {
		t.Fatalf("duplicate add errored: %v", err)
	}
	pl, err := db.GetPlaylistByID(plID)
	if err != nil {
		t.Fatal(err)
	}
	if len(pl.Tracks) != 4 {
		t.Fatalf("expected 4 tracks after duplicate add, got %d", len(pl.Tracks))
	}
	if pl.TrackCount != 4 || pl.Duration != 480 {
		t.Errorf("aggregates wrong: count=%d duration=%d", pl.TrackCount, pl.Duration)
	}

	// Removing the middle entries must leave dense 0-based positions.
	if err := db.RemoveTracksFromPlaylist(plID, []string{ids[1], ids[2]}); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	assertDensePositions(t, db, plID, []string{ids[0], ids[3]})

	// Reorder rewrites positions wholesale.
	if err := db.ReorderPlaylistTracks(plID, []TrackPosition{
		{TrackID: ids[3], Position: 0},
		{TrackID: ids[0], Position: 1},
	}); err != nil {
		t.Fatalf("reorder failed: %v", err)
	}
	assertDensePositions(t, db, plID, []string{ids[3], ids[0]})
}

func assertDensePositions(t *testing.T, db *Database, playlistID string, wantOrder []string) {
	t.Helper()
	pl, err := db.GetPlaylistByID(playlistID)
	if err != nil {
		t.Fatal(err)
	}
	if len(pl.Tracks) != len(wantOrder) {
		t.Fatalf("expected %d tracks, got %d", len(wantOrder), len(pl.Tracks))
	}
	for i, track := range pl.Tracks {
		if track.ID != wantOrder[i] {
			t.Errorf("position %d: expected %s, got %s", i, wantOrder[i], track.ID)
		}
	}
}

func TestFavoriteToggle(t *testing.T) {
	db := newTestDB(t)
	id := seedTrack(t, db, "fav")

	on, err := db.ToggleFavorite(DefaultUserID, id)
	if err != nil || !on {
		t.Fatalf("first toggle: on=%v err=%v", on, err)
	}
	if fav, _ := db.IsFavorite(DefaultUserID, id); !fav {
		t.Error("expected favorited")
	}

	off, err := db.ToggleFavorite(DefaultUserID, id)
	if err != nil || off {
		t.Fatalf("second toggle: on=%v err=%v", off, err)
	}

	tracks, total, err := db.ListFavorites(DefaultUserID, 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if total != 0 || len(tracks) != 0 {
		t.Errorf("expected no favorites, got %d", total)
	}
}

func TestQueueWholesaleReplace(t *testing.T) {
	db := newTestDB(t)
	a := seedTrack(t, db, "qa")
	b := seedTrack(t, db, "qb")
	c := seedTrack(t, db, "qc")

	if err := db.ReplaceQueue([]string{a, b}, "library"); err != nil {
		t.Fatalf("replace failed: %v", err)
	}
	if err := db.ReplaceQueue([]string{c}, ""); err != nil {
		t.Fatalf("second replace failed: %v", err)
	}

	items, err := db.GetQueue()
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 {
		t.Fatalf("replace must not merge: got %d items", len(items))
	}
	if items[0].Track.ID != c || items[0].Position != 0 {
		t.Errorf("unexpected queue head: %+v", items[0])
	}
	if items[0].Source != "manual" {
		t.Errorf("empty source must default to manual, got %q", items[0].Source)
	}

	if err := db.ClearQueue(); err != nil {
		t.Fatal(err)
	}
	items, _ = db.GetQueue()
	if len(items) != 0 {
		t.Errorf("expected empty queue, got %d", len(items))
	}
}

func TestHistoryAppendOnly(t *testing.T) {
	db := newTestDB(t)
	id := seedTrack(t, db, "hist")

	for i := 0; i < 3; i++ {
		if err := db.RecordPlay(DefaultUserID, id); err != nil {
			t.Fatalf("record failed: %v", err)
		}
	}

	entries, total, err := db.ListHistory(DefaultUserID, 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 || len(entries) != 3 {
		t.Errorf("repeats must be kept: total=%d", total)
	}

	if err := db.ClearHistory(DefaultUserID); err != nil {
		t.Fatal(err)
	}
	_, total, _ = db.ListHistory(DefaultUserID, 1, 10)
	if total != 0 {
		t.Errorf("expected cleared history, total=%d", total)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	db := newTestDB(t)

	settings, err := db.GetSettings(DefaultUserID)
	if err != nil {
		t.Fatalf("first read must create defaults: %v", err)
	}
	if settings.UserID != DefaultUserID {
		t.Errorf("unexpected user %q", settings.UserID)
	}

	theme := "dark"
	crossfade := 5
	updated, err := db.UpdateSettings(DefaultUserID, SettingsUpdate{
		Theme:     &theme,
		Crossfade: &crossfade,
		EqualizerBands: []models.EqualizerBand{
			{Frequency: 60, Gain: 2.5},
			{Frequency: 1000, Gain: -1},
		},
		MusicFolders: []string{"/music", "/more-music"},
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Theme != "dark" || updated.Crossfade != 5 {
		t.Errorf("scalar update not applied: %+v", updated)
	}
	if len(updated.EqualizerBands) != 2 || updated.EqualizerBands[0].Gain != 2.5 {
		t.Errorf("equalizer bands not persisted: %+v", updated.EqualizerBands)
	}
	if len(updated.MusicFolders) != 2 {
		t.Errorf("music folders not persisted: %+v", updated.MusicFolders)
	}

	// Partial update leaves other fields alone.
	lang := "de"
	updated, err = db.UpdateSettings(DefaultUserID, SettingsUpdate{Language: &lang})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Theme != "dark" || updated.Language != "de" {
		t.Errorf("partial update clobbered fields: %+v", updated)
	}
}

func TestScanLogLifecycle(t *testing.T) {
	db := newTestDB(t)

	id, err := db.CreateScanLog([]string{"/music", "/extra"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := db.CompleteScanLog(id, 10, 7, []string{"/music/bad.mp3: unreadable"}); err != nil {
		t.Fatalf("complete failed: %v", err)
	}

	var status string
	var filesFound, filesAdded int
	err = db.conn.QueryRow(
		"SELECT status, files_found, files_added FROM scan_logs WHERE id = ?", id).
		Scan(&status, &filesFound, &filesAdded)
	if err != nil {
		t.Fatal(err)
	}
	if status != "completed" || filesFound != 10 || filesAdded != 7 {
		t.Errorf("unexpected scan log: %s %d/%d", status, filesFound, filesAdded)
	}

	failedID, err := db.CreateScanLog([]string{"/music"})
	if err != nil {
		t.Fatal(err)
	}
	if err := db.FailScanLog(failedID, "catalog unavailable: disk full"); err != nil {
		t.Fatalf("fail failed: %v", err)
	}
	var errBlob string
	err = db.conn.QueryRow(
		"SELECT status, errors FROM scan_logs WHERE id = ?", failedID).
		Scan(&status, &errBlob)
	if err != nil {
		t.Fatal(err)
	}
	if status != "failed" {
		t.Errorf("expected status failed, got %q", status)
	}
	if !strings.Contains(errBlob, "disk full") {
		t.Errorf("reason not recorded: %q", errBlob)
	}
}
