// Package server exposes the music catalog and playback engine over
// HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"cadenza/internal/cache"
	"cadenza/internal/config"
	"cadenza/internal/database"
	"cadenza/internal/metadata"
	"cadenza/internal/player"
	"cadenza/internal/scanner"
	"cadenza/internal/tunnel"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// MusicServer wires the catalog, scanner, playback engine and HTTP
// surface together.
type MusicServer struct {
	config     *config.Config
	db         *database.Database
	resolver   *metadata.Resolver
	scanner    *scanner.Scanner
	output     *player.StreamOutput
	engine     *player.Engine
	statsCache *cache.StatsCache
	tunnel     *tunnel.Service
	watcher    *fsnotify.Watcher
	httpServer *http.Server
	logger     *logrus.Logger
}

// NewMusicServer creates a fully wired server. The tunnel service is
// optional; its absence is logged, never fatal.
func NewMusicServer(cfg *config.Config, db *database.Database, logger *logrus.Logger) (*MusicServer, error) {
	resolver := metadata.NewResolver(cfg.Library.SupportedFormats, logger)
	output := player.NewStreamOutput()

	tunnelSvc, err := tunnel.NewService(&cfg.Tunnel, logger)
	if err != nil {
		logger.WithError(err).Warn("Tunnel service not available")
		tunnelSvc = nil
	}

	ms := &MusicServer{
		config:     cfg,
		db:         db,
		resolver:   resolver,
		scanner:    scanner.NewScanner(db, resolver, logger),
		output:     output,
		engine:     player.NewEngine(output, db, database.DefaultUserID, logger),
		statsCache: cache.NewStatsCache(),
		tunnel:     tunnelSvc,
		logger:     logger,
	}
	return ms, nil
}

// Routes builds the full API handler with middleware applied.
func (ms *MusicServer) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", ms.handleHealth)

	// Tracks
	mux.HandleFunc("GET /api/tracks", ms.handleListTracks)
	mux.HandleFunc("GET /api/tracks/{id}", ms.handleGetTrack)
	mux.HandleFunc("PATCH /api/tracks/{id}", ms.handleUpdateTrack)
	mux.HandleFunc("GET /api/tracks/{id}/stream", ms.handleStreamTrack)
	mux.HandleFunc("GET /api/tracks/{id}/lyrics", ms.handleGetLyrics)
	mux.HandleFunc("PUT /api/tracks/{id}/lyrics", ms.handleUpdateLyrics)
	mux.HandleFunc("GET /api/tracks/{id}/cover", ms.handleTrackCover)

	// Browse
	mux.HandleFunc("GET /api/albums", ms.handleListAlbums)
	mux.HandleFunc("GET /api/albums/{id}", ms.handleGetAlbum)
	mux.HandleFunc("GET /api/artists", ms.handleListArtists)
	mux.HandleFunc("GET /api/artists/{id}", ms.handleGetArtist)
	mux.HandleFunc("GET /api/search", ms.handleSearch)

	// Playlists
	mux.HandleFunc("GET /api/playlists", ms.handleListPlaylists)
	mux.HandleFunc("POST /api/playlists", ms.handleCreatePlaylist)
	mux.HandleFunc("GET /api/playlists/{id}", ms.handleGetPlaylist)
	mux.HandleFunc("PATCH /api/playlists/{id}", ms.handleUpdatePlaylist)
	mux.HandleFunc("DELETE /api/playlists/{id}", ms.handleDeletePlaylist)
	mux.HandleFunc("POST /api/playlists/{id}/tracks", ms.handleAddPlaylistTracks)
	mux.HandleFunc("DELETE /api/playlists/{id}/tracks", ms.handleRemovePlaylistTracks)
	mux.HandleFunc("PATCH /api/playlists/{id}/tracks", ms.handleReorderPlaylistTracks)

	// Favorites and history
	mux.HandleFunc("GET /api/favorites", ms.handleListFavorites)
	mux.HandleFunc("POST /api/favorites", ms.handleToggleFavorite)
	mux.HandleFunc("DELETE /api/favorites", ms.handleRemoveFavorite)
	mux.HandleFunc("GET /api/history", ms.handleListHistory)
	mux.HandleFunc("POST /api/history", ms.handleRecordPlay)
	mux.HandleFunc("DELETE /api/history", ms.handleClearHistory)

	// Persisted queue
	mux.HandleFunc("GET /api/queue", ms.handleGetQueue)
	mux.HandleFunc("POST /api/queue", ms.handleReplaceQueue)
	mux.HandleFunc("DELETE /api/queue", ms.handleClearQueue)

	// Library management
	mux.HandleFunc("GET /api/library/stats", ms.handleLibraryStats)
	mux.HandleFunc("GET /api/library/genres", ms.handleLibraryGenres)
	mux.HandleFunc("POST /api/library/scan", ms.handleLibraryScan)

	// Settings
	mux.HandleFunc("GET /api/settings", ms.handleGetSettings)
	mux.HandleFunc("PATCH /api/settings", ms.handleUpdateSettings)

	// Playback engine
	mux.HandleFunc("GET /api/player/state", ms.handlePlayerState)
	mux.HandleFunc("POST /api/player/{command}", ms.handlePlayerCommand)
	mux.HandleFunc("POST /api/player/queue/{action}", ms.handlePlayerQueueAction)

	// Static UI assets
	mux.Handle("/static/", http.StripPrefix("/static/",
		http.FileServer(http.Dir(ms.config.Server.StaticDir))))

	var handler http.Handler = mux
	handler = ms.requestLoggingMiddleware(handler)
	handler = ms.corsMiddleware(handler)
	handler = ms.panicRecoveryMiddleware(handler)
	return handler
}

// Start runs the startup scan, file watcher and tunnel as configured,
// then serves HTTP until Shutdown.
func (ms *MusicServer) Start() error {
	if ms.config.Library.ScanOnStartup {
		go func() {
			if _, err := ms.scanner.Scan(ms.config.Library.MusicFolders); err != nil {
				ms.logger.WithError(err).Error("Startup library scan failed")
			}
			ms.statsCache.Invalidate()
		}()
	}

	if ms.config.Library.WatchForChanges {
		if err := ms.startFileWatcher(); err != nil {
			ms.logger.WithError(err).Warn("Could not start file watcher")
		}
	}

	addr := ms.config.GetAddress()
	if ms.tunnel != nil {
		if err := ms.tunnel.Start(context.Background(), fmt.Sprintf("http://%s", addr)); err != nil {
			ms.logger.WithError(err).Warn("Could not start tunnel")
		}
	}

	ms.httpServer = &http.Server{
		Addr:        addr,
		Handler:     ms.Routes(),
		ReadTimeout: time.Duration(ms.config.Server.ReadTimeout) * time.Second,
	}

	ms.logger.WithFields(logrus.Fields{
		"address": addr,
		"folders": ms.config.Library.MusicFolders,
	}).Info("Server starting")

	err := ms.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops the watcher, tunnel and HTTP listener.
func (ms *MusicServer) Shutdown(ctx context.Context) error {
	ms.stopFileWatcher()
	if err := ms.tunnel.Stop(); err != nil {
		ms.logger.WithError(err).Warn("Error stopping tunnel")
	}
	if ms.httpServer == nil {
		return nil
	}
	return ms.httpServer.Shutdown(ctx)
}

// handleHealth reports liveness plus a few cheap counters.
func (ms *MusicServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats, err := ms.db.GetLibraryStats()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Health check failed")
		return
	}
	respondData(w, map[string]interface{}{
		"status": "ok",
		"tracks": stats.TotalTracks,
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
