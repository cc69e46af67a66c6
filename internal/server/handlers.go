package server

import (
	"net/http"
	"os"
	"strings"

	"cadenza/internal/database"
	"cadenza/internal/lyrics"
	"cadenza/pkg/models"
)

// isNotFound distinguishes missing-entity errors from storage failures
// at the HTTP boundary.
func isNotFound(err error) bool {
	return err != nil && strings.Contains(err.Error(), "not found")
}

func (ms *MusicServer) handleListTracks(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pagination(r)
	q := database.TrackQuery{
		Page:     page,
		PageSize: pageSize,
		Sort:     r.URL.Query().Get("sort"),
		Order:    r.URL.Query().Get("order"),
		Search:   r.URL.Query().Get("search"),
		Genre:    r.URL.Query().Get("genre"),
		ArtistID: r.URL.Query().Get("artistId"),
		AlbumID:  r.URL.Query().Get("albumId"),
		Year:     queryInt(r, "year", 0),
		Format:   r.URL.Query().Get("format"),
	}

	tracks, total, err := ms.db.ListTracks(q)
	if err != nil {
		ms.logger.WithError(err).Error("Failed to list tracks")
		respondError(w, http.StatusInternalServerError, "Failed to fetch tracks")
		return
	}
	if tracks == nil {
		tracks = []models.Track{}
	}
	respondList(w, tracks, total, page, pageSize)
}

func (ms *MusicServer) handleGetTrack(w http.ResponseWriter, r *http.Request) {
	track, err := ms.db.GetTrackByID(r.PathValue("id"))
	if err != nil {
		if isNotFound(err) {
			respondError(w, http.StatusNotFound, "Track not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to fetch track")
		return
	}

	fav, err := ms.db.IsFavorite(database.DefaultUserID, track.ID)
	if err == nil {
		track.IsFavorite = fav
	}
	respondData(w, track)
}

func (ms *MusicServer) handleUpdateTrack(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Rating     *int    `json:"rating"`
		Lyrics     *string `json:"lyrics"`
		LyricsType *string `json:"lyricsType"`
	}
	if err := decodeBody(r, &body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if body.Rating != nil && (*body.Rating < 0 || *body.Rating > 5) {
		respondError(w, http.StatusBadRequest, "Rating must be between 0 and 5")
		return
	}

	id := r.PathValue("id")
	err := ms.db.UpdateTrack(id, database.TrackUpdate{
		Rating:     body.Rating,
		Lyrics:     body.Lyrics,
		LyricsType: body.LyricsType,
	})
	if err != nil {
		if isNotFound(err) {
			respondError(w, http.StatusNotFound, "Track not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to update track")
		return
	}

	track, err := ms.db.GetTrackByID(id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch updated track")
		return
	}
	respondData(w, track)
}

func (ms *MusicServer) handleGetLyrics(w http.ResponseWriter, r *http.Request) {
	track, err := ms.db.GetTrackByID(r.PathValue("id"))
	if err != nil {
		if isNotFound(err) {
			respondError(w, http.StatusNotFound, "Track not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to fetch lyrics")
		return
	}

	if track.Lyrics == nil || *track.Lyrics == "" {
		respondData(w, map[string]interface{}{
			"lyrics": nil,
			"type":   nil,
			"lines":  []lyrics.Line{},
		})
		return
	}

	lyricsType := ""
	if track.LyricsType != nil {
		lyricsType = *track.LyricsType
	}
	respondData(w, map[string]interface{}{
		"lyrics": *track.Lyrics,
		"type":   lyricsType,
		"lines":  lyrics.Parse(*track.Lyrics, lyricsType),
	})
}

func (ms *MusicServer) handleUpdateLyrics(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Lyrics     *string `json:"lyrics"`
		LyricsType *string `json:"lyricsType"`
	}
	if err := decodeBody(r, &body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	empty := ""
	if body.Lyrics == nil {
		body.Lyrics = &empty
	}
	if body.LyricsType == nil {
		body.LyricsType = &empty
	}

	err := ms.db.UpdateTrack(r.PathValue("id"), database.TrackUpdate{
		Lyrics:     body.Lyrics,
		LyricsType: body.LyricsType,
	})
	if err != nil {
		if isNotFound(err) {
			respondError(w, http.StatusNotFound, "Track not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to update lyrics")
		return
	}
	respondData(w, map[string]string{"message": "Lyrics updated"})
}

// handleTrackCover serves embedded artwork, or a 1x1 transparent PNG
// placeholder when the file carries none.
func (ms *MusicServer) handleTrackCover(w http.ResponseWriter, r *http.Request) {
	track, err := ms.db.GetTrackByID(r.PathValue("id"))
	if err != nil {
		if isNotFound(err) {
			respondError(w, http.StatusNotFound, "Track not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to fetch track")
		return
	}

	if _, err := os.Stat(track.FilePath); err != nil {
		respondError(w, http.StatusNotFound, "Audio file not found on disk")
		return
	}

	data, mime, err := ms.resolver.ExtractArt(track.FilePath)
	if err != nil {
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "public, max-age=86400")
		w.Write(placeholderPNG)
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Write(data)
}

// placeholderPNG is a 1x1 transparent image returned for tracks with no
// embedded artwork.
var placeholderPNG = []byte{
	0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00, 0x00, 0x0D,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1F, 0x15, 0xC4, 0x89, 0x00, 0x00, 0x00,
	0x0D, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9C, 0x62, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0D, 0x0A, 0x2D, 0xB4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4E, 0x44, 0xAE, 0x42, 0x60, 0x82,
}
