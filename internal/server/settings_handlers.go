package server

import (
	"net/http"

	"cadenza/internal/database"
)

func (ms *MusicServer) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := ms.db.GetSettings(database.DefaultUserID)
	if err != nil {
		ms.logger.WithError(err).Error("Failed to fetch settings")
		respondError(w, http.StatusInternalServerError, "Failed to fetch settings")
		return
	}
	respondData(w, settings)
}

func (ms *MusicServer) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var upd database.SettingsUpdate
	if err := decodeBody(r, &upd); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if upd.Crossfade != nil && (*upd.Crossfade < 0 || *upd.Crossfade > 12) {
		respondError(w, http.StatusBadRequest, "Crossfade must be between 0 and 12 seconds")
		return
	}

	settings, err := ms.db.UpdateSettings(database.DefaultUserID, upd)
	if err != nil {
		ms.logger.WithError(err).Error("Failed to update settings")
		respondError(w, http.StatusInternalServerError, "Failed to update settings")
		return
	}
	respondData(w, settings)
}
