package server

import (
	"net/http"

	"cadenza/pkg/models"
)

// playerState is the engine snapshot plus the output's active stream
// URL for the client actually rendering audio.
func (ms *MusicServer) playerState() map[string]interface{} {
	state := ms.engine.State()
	return map[string]interface{}{
		"currentTrack": state.CurrentTrack,
		"queue":        state.Queue,
		"queueIndex":   state.QueueIndex,
		"status":       state.Status,
		"currentTime":  state.CurrentTime,
		"duration":     state.Duration,
		"volume":       state.Volume,
		"muted":        state.Muted,
		"shuffle":      state.Shuffle,
		"repeat":       state.Repeat,
		"streamUrl":    ms.output.StreamURL(),
	}
}

func (ms *MusicServer) handlePlayerState(w http.ResponseWriter, r *http.Request) {
	respondData(w, ms.playerState())
}

// handlePlayerCommand mutates the playback engine. Every successful
// command returns the resulting engine state.
func (ms *MusicServer) handlePlayerCommand(w http.ResponseWriter, r *http.Request) {
	var body struct {
		TrackID     string   `json:"trackId"`
		TrackIDs    []string `json:"trackIds"`
		StartIndex  int      `json:"startIndex"`
		Time        float64  `json:"time"`
		Volume      *float64 `json:"volume"`
		CurrentTime float64  `json:"currentTime"`
		Duration    float64  `json:"duration"`
	}
	if r.ContentLength > 0 {
		if err := decodeBody(r, &body); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	switch r.PathValue("command") {
	case "play":
		if body.TrackID != "" {
			track, err := ms.db.GetTrackByID(body.TrackID)
			if err != nil {
				if isNotFound(err) {
					respondError(w, http.StatusNotFound, "Track not found")
					return
				}
				respondError(w, http.StatusInternalServerError, "Failed to fetch track")
				return
			}
			ms.engine.Play(track)
		} else {
			ms.engine.Play(nil)
		}
	case "pause":
		ms.engine.Pause()
	case "resume":
		ms.engine.Resume()
	case "stop":
		ms.engine.Stop()
	case "next":
		ms.engine.Next()
	case "previous":
		ms.engine.Previous()
	case "seek":
		if body.Time < 0 {
			respondError(w, http.StatusBadRequest, "Seek time cannot be negative")
			return
		}
		ms.engine.Seek(body.Time)
	case "queue":
		tracks, err := ms.loadTracks(body.TrackIDs)
		if err != nil {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		ms.engine.SetQueue(tracks, body.StartIndex)
	case "volume":
		if body.Volume == nil {
			respondError(w, http.StatusBadRequest, "Volume is required")
			return
		}
		ms.engine.SetVolume(*body.Volume)
	case "mute":
		ms.engine.ToggleMute()
	case "shuffle":
		ms.engine.ToggleShuffle()
	case "repeat":
		ms.engine.CycleRepeat()
	case "started":
		// Output callback: audio actually began producing.
		ms.engine.HandleStarted()
	case "time":
		ms.engine.HandleTimeUpdate(body.CurrentTime, body.Duration)
	case "ended":
		ms.engine.HandleEnded()
	default:
		respondError(w, http.StatusBadRequest, "Unknown player command")
		return
	}

	respondData(w, ms.playerState())
}

// handlePlayerQueueAction edits the engine's in-memory queue.
func (ms *MusicServer) handlePlayerQueueAction(w http.ResponseWriter, r *http.Request) {
	var body struct {
		TrackIDs []string `json:"trackIds"`
		Index    *int     `json:"index"`
		From     *int     `json:"from"`
		To       *int     `json:"to"`
	}
	if r.ContentLength > 0 {
		if err := decodeBody(r, &body); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	switch r.PathValue("action") {
	case "add":
		tracks, err := ms.loadTracks(body.TrackIDs)
		if err != nil {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		ms.engine.AddToQueue(tracks)
	case "remove":
		if body.Index == nil {
			respondError(w, http.StatusBadRequest, "Queue index is required")
			return
		}
		ms.engine.RemoveFromQueue(*body.Index)
	case "move":
		if body.From == nil || body.To == nil {
			respondError(w, http.StatusBadRequest, "Both from and to are required")
			return
		}
		ms.engine.MoveInQueue(*body.From, *body.To)
	case "clear":
		ms.engine.ClearQueue()
	default:
		respondError(w, http.StatusBadRequest, "Unknown queue action")
		return
	}

	respondData(w, ms.playerState())
}

// loadTracks resolves a list of track IDs against the catalog.
func (ms *MusicServer) loadTracks(trackIDs []string) ([]models.Track, error) {
	tracks := make([]models.Track, 0, len(trackIDs))
	for _, id := range trackIDs {
		track, err := ms.db.GetTrackByID(id)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, *track)
	}
	return tracks, nil
}
