package server

import (
	"errors"
	"net/http"

	"cadenza/internal/scanner"
	"cadenza/pkg/models"
)

func (ms *MusicServer) handleLibraryStats(w http.ResponseWriter, r *http.Request) {
	if stats, ok := ms.statsCache.GetStats(); ok {
		respondData(w, stats)
		return
	}

	stats, err := ms.db.GetLibraryStats()
	if err != nil {
		ms.logger.WithError(err).Error("Failed to compute library stats")
		respondError(w, http.StatusInternalServerError, "Failed to fetch library stats")
		return
	}
	ms.statsCache.SetStats(stats)
	respondData(w, stats)
}

func (ms *MusicServer) handleLibraryGenres(w http.ResponseWriter, r *http.Request) {
	if genres, ok := ms.statsCache.GetGenres(); ok {
		respondData(w, genres)
		return
	}

	genres, err := ms.db.ListGenres()
	if err != nil {
		ms.logger.WithError(err).Error("Failed to list genres")
		respondError(w, http.StatusInternalServerError, "Failed to fetch genres")
		return
	}
	if genres == nil {
		genres = []models.GenreCount{}
	}
	ms.statsCache.SetGenres(genres)
	respondData(w, genres)
}

// handleLibraryScan runs a synchronous scan over the configured folders
// (or an explicit folder list from the body) and returns its counts.
func (ms *MusicServer) handleLibraryScan(w http.ResponseWriter, r *http.Request) {
	folders := ms.config.Library.MusicFolders
	if r.ContentLength > 0 {
		var body struct {
			Folders []string `json:"folders"`
		}
		if err := decodeBody(r, &body); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if len(body.Folders) > 0 {
			folders = body.Folders
		}
	}

	result, err := ms.scanner.Scan(folders)
	if err != nil {
		if errors.Is(err, scanner.ErrScanInProgress) {
			respondError(w, http.StatusConflict, "A scan is already in progress")
			return
		}
		ms.logger.WithError(err).Error("Library scan failed")
		respondError(w, http.StatusInternalServerError, "Library scan failed")
		return
	}

	ms.statsCache.Invalidate()
	respondData(w, result)
}
