package server

import (
	"net/http"

	"cadenza/internal/database"
	"cadenza/pkg/models"
)

func (ms *MusicServer) handleListPlaylists(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pagination(r)
	playlists, total, err := ms.db.ListPlaylists(database.DefaultUserID, page, pageSize)
	if err != nil {
		ms.logger.WithError(err).Error("Failed to list playlists")
		respondError(w, http.StatusInternalServerError, "Failed to fetch playlists")
		return
	}
	if playlists == nil {
		playlists = []models.Playlist{}
	}
	respondList(w, playlists, total, page, pageSize)
}

func (ms *MusicServer) handleCreatePlaylist(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name        string  `json:"name"`
		Description *string `json:"description"`
		IsPublic    bool    `json:"isPublic"`
		IsSmart     bool    `json:"isSmart"`
		SmartRules  *string `json:"smartRules"`
	}
	if err := decodeBody(r, &body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if body.Name == "" {
		respondError(w, http.StatusBadRequest, "Playlist name is required")
		return
	}

	id, err := ms.db.CreatePlaylist(body.Name, body.Description, database.DefaultUserID,
		body.IsPublic, body.IsSmart, body.SmartRules)
	if err != nil {
		ms.logger.WithError(err).Error("Failed to create playlist")
		respondError(w, http.StatusInternalServerError, "Failed to create playlist")
		return
	}

	playlist, err := ms.db.GetPlaylistByID(id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch created playlist")
		return
	}
	respondData(w, playlist)
}

func (ms *MusicServer) handleGetPlaylist(w http.ResponseWriter, r *http.Request) {
	playlist, err := ms.db.GetPlaylistByID(r.PathValue("id"))
	if err != nil {
		if isNotFound(err) {
			respondError(w, http.StatusNotFound, "Playlist not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to fetch playlist")
		return
	}
	respondData(w, playlist)
}

func (ms *MusicServer) handleUpdatePlaylist(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
		CoverURL    *string `json:"coverUrl"`
		IsPublic    *bool   `json:"isPublic"`
	}
	if err := decodeBody(r, &body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if body.Name != nil && *body.Name == "" {
		respondError(w, http.StatusBadRequest, "Playlist name cannot be empty")
		return
	}

	id := r.PathValue("id")
	if err := ms.db.UpdatePlaylist(id, body.Name, body.Description, body.CoverURL, body.IsPublic); err != nil {
		if isNotFound(err) {
			respondError(w, http.StatusNotFound, "Playlist not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to update playlist")
		return
	}

	playlist, err := ms.db.GetPlaylistByID(id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch updated playlist")
		return
	}
	respondData(w, playlist)
}

func (ms *MusicServer) handleDeletePlaylist(w http.ResponseWriter, r *http.Request) {
	if err := ms.db.DeletePlaylist(r.PathValue("id")); err != nil {
		if isNotFound(err) {
			respondError(w, http.StatusNotFound, "Playlist not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to delete playlist")
		return
	}
	respondData(w, map[string]string{"message": "Playlist deleted"})
}

func (ms *MusicServer) handleAddPlaylistTracks(w http.ResponseWriter, r *http.Request) {
	var body struct {
		TrackIDs []string `json:"trackIds"`
	}
	if err := decodeBody(r, &body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(body.TrackIDs) == 0 {
		respondError(w, http.StatusBadRequest, "No track IDs provided")
		return
	}

	id := r.PathValue("id")
	if err := ms.db.AddTracksToPlaylist(id, body.TrackIDs); err != nil {
		if isNotFound(err) {
			respondError(w, http.StatusNotFound, "Playlist not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to add tracks")
		return
	}

	playlist, err := ms.db.GetPlaylistByID(id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch updated playlist")
		return
	}
	respondData(w, playlist)
}

func (ms *MusicServer) handleRemovePlaylistTracks(w http.ResponseWriter, r *http.Request) {
	var body struct {
		TrackIDs []string `json:"trackIds"`
	}
	if err := decodeBody(r, &body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(body.TrackIDs) == 0 {
		respondError(w, http.StatusBadRequest, "No track IDs provided")
		return
	}

	id := r.PathValue("id")
	if err := ms.db.RemoveTracksFromPlaylist(id, body.TrackIDs); err != nil {
		if isNotFound(err) {
			respondError(w, http.StatusNotFound, "Playlist not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to remove tracks")
		return
	}

	playlist, err := ms.db.GetPlaylistByID(id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch updated playlist")
		return
	}
	respondData(w, playlist)
}

func (ms *MusicServer) handleReorderPlaylistTracks(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Order []database.TrackPosition `json:"order"`
	}
	if err := decodeBody(r, &body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(body.Order) == 0 {
		respondError(w, http.StatusBadRequest, "No track order provided")
		return
	}

	id := r.PathValue("id")
	if err := ms.db.ReorderPlaylistTracks(id, body.Order); err != nil {
		if isNotFound(err) {
			respondError(w, http.StatusNotFound, "Playlist not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to reorder tracks")
		return
	}

	playlist, err := ms.db.GetPlaylistByID(id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch updated playlist")
		return
	}
	respondData(w, playlist)
}
