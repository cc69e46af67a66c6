package server

import (
	"net/http"

	"cadenza/internal/database"
	"cadenza/pkg/models"
)

func (ms *MusicServer) handleListFavorites(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pagination(r)
	tracks, total, err := ms.db.ListFavorites(database.DefaultUserID, page, pageSize)
	if err != nil {
		ms.logger.WithError(err).Error("Failed to list favorites")
		respondError(w, http.StatusInternalServerError, "Failed to fetch favorites")
		return
	}
	if tracks == nil {
		tracks = []models.Track{}
	}
	respondList(w, tracks, total, page, pageSize)
}

// handleToggleFavorite flips the favorite flag; existence is the flag.
func (ms *MusicServer) handleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	var body struct {
		TrackID string `json:"trackId"`
	}
	if err := decodeBody(r, &body); err != nil || body.TrackID == "" {
		respondError(w, http.StatusBadRequest, "Track ID is required")
		return
	}

	if _, err := ms.db.GetTrackByID(body.TrackID); err != nil {
		if isNotFound(err) {
			respondError(w, http.StatusNotFound, "Track not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to toggle favorite")
		return
	}

	favorited, err := ms.db.ToggleFavorite(database.DefaultUserID, body.TrackID)
	if err != nil {
		ms.logger.WithError(err).Error("Failed to toggle favorite")
		respondError(w, http.StatusInternalServerError, "Failed to toggle favorite")
		return
	}
	respondData(w, map[string]bool{"isFavorite": favorited})
}

func (ms *MusicServer) handleRemoveFavorite(w http.ResponseWriter, r *http.Request) {
	trackID := r.URL.Query().Get("trackId")
	if trackID == "" {
		respondError(w, http.StatusBadRequest, "Track ID is required")
		return
	}
	if err := ms.db.RemoveFavorite(database.DefaultUserID, trackID); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to remove favorite")
		return
	}
	respondData(w, map[string]bool{"isFavorite": false})
}

func (ms *MusicServer) handleListHistory(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pagination(r)
	entries, total, err := ms.db.ListHistory(database.DefaultUserID, page, pageSize)
	if err != nil {
		ms.logger.WithError(err).Error("Failed to list history")
		respondError(w, http.StatusInternalServerError, "Failed to fetch history")
		return
	}
	if entries == nil {
		entries = []models.HistoryEntry{}
	}
	respondList(w, entries, total, page, pageSize)
}

func (ms *MusicServer) handleRecordPlay(w http.ResponseWriter, r *http.Request) {
	var body struct {
		TrackID string `json:"trackId"`
	}
	if err := decodeBody(r, &body); err != nil || body.TrackID == "" {
		respondError(w, http.StatusBadRequest, "Track ID is required")
		return
	}

	if _, err := ms.db.GetTrackByID(body.TrackID); err != nil {
		if isNotFound(err) {
			respondError(w, http.StatusNotFound, "Track not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to record play")
		return
	}

	if err := ms.db.RecordPlay(database.DefaultUserID, body.TrackID); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to record play")
		return
	}
	respondData(w, map[string]string{"message": "Play recorded"})
}

func (ms *MusicServer) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := ms.db.ClearHistory(database.DefaultUserID); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to clear history")
		return
	}
	respondData(w, map[string]string{"message": "History cleared"})
}

func (ms *MusicServer) handleGetQueue(w http.ResponseWriter, r *http.Request) {
	items, err := ms.db.GetQueue()
	if err != nil {
		ms.logger.WithError(err).Error("Failed to fetch queue")
		respondError(w, http.StatusInternalServerError, "Failed to fetch queue")
		return
	}
	if items == nil {
		items = []models.QueueItem{}
	}
	respondData(w, items)
}

// handleReplaceQueue replaces the persisted queue wholesale.
func (ms *MusicServer) handleReplaceQueue(w http.ResponseWriter, r *http.Request) {
	var body struct {
		TrackIDs []string `json:"trackIds"`
		Source   string   `json:"source"`
	}
	if err := decodeBody(r, &body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := ms.db.ReplaceQueue(body.TrackIDs, body.Source); err != nil {
		ms.logger.WithError(err).Error("Failed to replace queue")
		respondError(w, http.StatusInternalServerError, "Failed to replace queue")
		return
	}

	items, err := ms.db.GetQueue()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch queue")
		return
	}
	if items == nil {
		items = []models.QueueItem{}
	}
	respondData(w, items)
}

func (ms *MusicServer) handleClearQueue(w http.ResponseWriter, r *http.Request) {
	if err := ms.db.ClearQueue(); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to clear queue")
		return
	}
	respondData(w, map[string]string{"message": "Queue cleared"})
}
