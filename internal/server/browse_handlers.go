package server

import (
	"net/http"

	"cadenza/internal/database"
	"cadenza/pkg/models"
)

func (ms *MusicServer) handleListAlbums(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pagination(r)
	albums, total, err := ms.db.ListAlbums(page, pageSize)
	if err != nil {
		ms.logger.WithError(err).Error("Failed to list albums")
		respondError(w, http.StatusInternalServerError, "Failed to fetch albums")
		return
	}
	if albums == nil {
		albums = []models.Album{}
	}
	respondList(w, albums, total, page, pageSize)
}

func (ms *MusicServer) handleGetAlbum(w http.ResponseWriter, r *http.Request) {
	album, err := ms.db.GetAlbumByID(r.PathValue("id"))
	if err != nil {
		if isNotFound(err) {
			respondError(w, http.StatusNotFound, "Album not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to fetch album")
		return
	}
	respondData(w, album)
}

func (ms *MusicServer) handleListArtists(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pagination(r)
	artists, total, err := ms.db.ListArtists(page, pageSize)
	if err != nil {
		ms.logger.WithError(err).Error("Failed to list artists")
		respondError(w, http.StatusInternalServerError, "Failed to fetch artists")
		return
	}
	if artists == nil {
		artists = []models.Artist{}
	}
	respondList(w, artists, total, page, pageSize)
}

func (ms *MusicServer) handleGetArtist(w http.ResponseWriter, r *http.Request) {
	artist, err := ms.db.GetArtistByID(r.PathValue("id"))
	if err != nil {
		if isNotFound(err) {
			respondError(w, http.StatusNotFound, "Artist not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to fetch artist")
		return
	}
	respondData(w, artist)
}

// handleSearch runs a cross-entity substring search over tracks,
// albums, artists and public playlists.
func (ms *MusicServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		respondError(w, http.StatusBadRequest, "Missing search query")
		return
	}
	limit := queryInt(r, "limit", 20)
	if limit < 1 || limit > 100 {
		limit = 20
	}

	results := models.SearchResults{
		Tracks:    []models.Track{},
		Albums:    []models.Album{},
		Artists:   []models.Artist{},
		Playlists: []models.Playlist{},
	}

	tracks, _, err := ms.db.ListTracks(database.TrackQuery{
		Search:   query,
		Page:     1,
		PageSize: limit,
	})
	if err != nil {
		ms.logger.WithError(err).Error("Track search failed")
		respondError(w, http.StatusInternalServerError, "Search failed")
		return
	}
	if tracks != nil {
		results.Tracks = tracks
	}

	if albums, err := ms.db.SearchAlbums(query, limit); err == nil && albums != nil {
		results.Albums = albums
	}
	if artists, err := ms.db.SearchArtists(query, limit); err == nil && artists != nil {
		results.Artists = artists
	}
	if playlists, err := ms.db.SearchPlaylists(query, limit); err == nil && playlists != nil {
		results.Playlists = playlists
	}

	respondData(w, results)
}
