package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// DefaultUserID identifies the single fixed user the server assumes.
// There is no authentication model; every user-scoped row belongs to it
// unless a caller passes an explicit user ID.
const DefaultUserID = "default-user"

// Database wraps a *sql.DB providing higher-level helper methods for
// interacting with the application's persistent store. It is safe for
// concurrent use because the underlying *sql.DB is concurrency-safe.
type Database struct {
	conn   *sql.DB
	logger *logrus.Logger
}

// NewDatabase opens (or creates) a SQLite database at the provided path and
// ensures all required tables and indices exist. It also applies lightweight
// performance-oriented pragmas (WAL, cache sizing) and seeds the default
// user. Caller should Close() it when finished.
func NewDatabase(dbPath string) (*Database, error) {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	conn, err := sql.Open("sqlite3", dbPath+"?cache=shared&mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool - adjusted for SQLite
	conn.SetMaxOpenConns(5) // SQLite works better with fewer connections
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(15 * time.Minute)

	// Enable WAL mode for better concurrency
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA cache_size=2000;",
		"PRAGMA temp_store=memory;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA auto_vacuum=INCREMENTAL;",
	}

	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			logger.WithError(err).WithField("pragma", pragma).Warn("Failed to set pragma")
		}
	}

	db := &Database{
		conn:   conn,
		logger: logger,
	}

	if err := db.createTables(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	if err := db.seedDefaultUser(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to seed default user: %w", err)
	}

	logger.WithField("db_path", dbPath).Info("Database initialized successfully")
	return db, nil
}

// createTables creates tables and indices if they do not already exist.
// This is idempotent and safe to call multiple times.
func (db *Database) createTables() error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			display_name TEXT NOT NULL,
			password_hash TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS artists (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			bio TEXT,
			image_url TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS albums (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			artist_id TEXT NOT NULL,
			year INTEGER,
			genre TEXT,
			cover_url TEXT,
			disc_count INTEGER NOT NULL DEFAULT 1,
			track_count INTEGER NOT NULL DEFAULT 0,
			duration INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (artist_id) REFERENCES artists(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS tracks (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			artist_id TEXT NOT NULL,
			album_id TEXT NOT NULL,
			track_number INTEGER NOT NULL DEFAULT 1,
			disc_number INTEGER NOT NULL DEFAULT 1,
			duration INTEGER NOT NULL DEFAULT 0,
			bitrate INTEGER,
			sample_rate INTEGER,
			format TEXT NOT NULL,
			size INTEGER NOT NULL,
			file_path TEXT NOT NULL UNIQUE,
			genre TEXT,
			year INTEGER,
			lyrics TEXT,
			lyrics_type TEXT,
			play_count INTEGER NOT NULL DEFAULT 0,
			rating INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (artist_id) REFERENCES artists(id) ON DELETE CASCADE,
			FOREIGN KEY (album_id) REFERENCES albums(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS playlists (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT,
			cover_url TEXT,
			user_id TEXT NOT NULL,
			is_public BOOLEAN NOT NULL DEFAULT FALSE,
			is_smart BOOLEAN NOT NULL DEFAULT FALSE,
			smart_rules TEXT,
			track_count INTEGER NOT NULL DEFAULT 0,
			duration INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS playlist_tracks (
			playlist_id TEXT NOT NULL,
			track_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			added_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (playlist_id, track_id),
			FOREIGN KEY (playlist_id) REFERENCES playlists(id) ON DELETE CASCADE,
			FOREIGN KEY (track_id) REFERENCES tracks(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS favorites (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			track_id TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (user_id, track_id),
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
			FOREIGN KEY (track_id) REFERENCES tracks(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS play_history (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			track_id TEXT NOT NULL,
			played_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
			FOREIGN KEY (track_id) REFERENCES tracks(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS queue_items (
			id TEXT PRIMARY KEY,
			track_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			source TEXT NOT NULL DEFAULT 'manual',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (track_id) REFERENCES tracks(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS user_settings (
			user_id TEXT PRIMARY KEY,
			theme TEXT NOT NULL DEFAULT 'dark',
			language TEXT NOT NULL DEFAULT 'en',
			audio_quality TEXT NOT NULL DEFAULT 'high',
			crossfade INTEGER NOT NULL DEFAULT 0,
			replay_gain BOOLEAN NOT NULL DEFAULT FALSE,
			equalizer_preset TEXT NOT NULL DEFAULT 'flat',
			equalizer_bands TEXT NOT NULL DEFAULT '[]',
			lyrics_enabled BOOLEAN NOT NULL DEFAULT TRUE,
			gapless_playback BOOLEAN NOT NULL DEFAULT FALSE,
			music_folders TEXT NOT NULL DEFAULT '[]',
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS scan_logs (
			id TEXT PRIMARY KEY,
			folder_path TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'scanning',
			files_found INTEGER NOT NULL DEFAULT 0,
			files_added INTEGER NOT NULL DEFAULT 0,
			errors TEXT,
			started_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			finished_at DATETIME
		);`,
	}

	indices := []string{
		"CREATE INDEX IF NOT EXISTS idx_tracks_artist ON tracks(artist_id);",
		"CREATE INDEX IF NOT EXISTS idx_tracks_album ON tracks(album_id);",
		"CREATE INDEX IF NOT EXISTS idx_tracks_file_path ON tracks(file_path);",
		"CREATE INDEX IF NOT EXISTS idx_tracks_genre ON tracks(genre);",
		"CREATE INDEX IF NOT EXISTS idx_tracks_title ON tracks(title);",
		"CREATE INDEX IF NOT EXISTS idx_albums_artist ON albums(artist_id);",
		"CREATE INDEX IF NOT EXISTS idx_albums_title_artist ON albums(title, artist_id);",
		"CREATE INDEX IF NOT EXISTS idx_artists_name ON artists(name);",
		"CREATE INDEX IF NOT EXISTS idx_playlist_tracks_position ON playlist_tracks(playlist_id, position);",
		"CREATE INDEX IF NOT EXISTS idx_favorites_user ON favorites(user_id);",
		"CREATE INDEX IF NOT EXISTS idx_history_user_played ON play_history(user_id, played_at);",
		"CREATE INDEX IF NOT EXISTS idx_queue_position ON queue_items(position);",
	}

	for _, table := range tables {
		if _, err := db.conn.Exec(table); err != nil {
			return err
		}
	}

	for _, index := range indices {
		if _, err := db.conn.Exec(index); err != nil {
			return err
		}
	}

	return nil
}

// seedDefaultUser inserts the fixed default user if it does not exist yet.
// The password hash is stored for schema completeness; no login flow
// consults it.
func (db *Database) seedDefaultUser() error {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM users WHERE id = ?", DefaultUserID).Scan(&count)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(""), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	_, err = db.conn.Exec(`
		INSERT INTO users (id, username, display_name, password_hash)
		VALUES (?, ?, ?, ?)`,
		DefaultUserID, "default", "Default User", string(hash))
	if err != nil {
		return err
	}

	_, err = db.conn.Exec("INSERT INTO user_settings (user_id) VALUES (?)", DefaultUserID)
	return err
}

// Close closes the underlying database connection.
func (db *Database) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}
