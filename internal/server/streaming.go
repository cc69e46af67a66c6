package server

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"cadenza/internal/metadata"
)

// handleStreamTrack serves a track's audio bytes with HTTP range
// support. Every request, ranged or not, bumps the play counter as a
// fire-and-forget side effect.
func (ms *MusicServer) handleStreamTrack(w http.ResponseWriter, r *http.Request) {
	track, err := ms.db.GetTrackByID(r.PathValue("id"))
	if err != nil {
		if isNotFound(err) {
			respondError(w, http.StatusNotFound, "Track not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to fetch track")
		return
	}

	stat, err := os.Stat(track.FilePath)
	if err != nil {
		// Distinct message from the missing-record case; collaborators
		// rely on it for diagnostics.
		respondError(w, http.StatusNotFound, "Audio file not found on disk")
		return
	}
	fileSize := stat.Size()

	trackID := track.ID
	go func() {
		if err := ms.db.IncrementPlayCount(trackID); err != nil {
			ms.logger.WithError(err).WithField("track_id", trackID).Warn("Failed to increment play count")
		}
	}()

	file, err := os.Open(track.FilePath)
	if err != nil {
		respondError(w, http.StatusNotFound, "Audio file not found on disk")
		return
	}
	defer file.Close()

	mimeType := metadata.ContentTypeForFormat(track.Format)
	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Cache-Control", "public, max-age=86400")

	start, end, ok := parseRange(r.Header.Get("Range"), fileSize)
	if !ok {
		// No header, or one we cannot parse: serve the whole file.
		w.Header().Set("Content-Length", strconv.FormatInt(fileSize, 10))
		w.WriteHeader(http.StatusOK)
		io.Copy(w, file)
		return
	}
	if start < 0 || start >= fileSize || end < start {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", fileSize))
		respondError(w, http.StatusRequestedRangeNotSatisfiable, "Requested range not satisfiable")
		return
	}
	if end >= fileSize {
		end = fileSize - 1
	}

	chunkSize := end - start + 1
	w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, fileSize))
	w.Header().Set("Content-Length", strconv.FormatInt(chunkSize, 10))
	w.WriteHeader(http.StatusPartialContent)

	if _, err := file.Seek(start, io.SeekStart); err != nil {
		return
	}
	io.CopyN(w, file, chunkSize)
}

// parseRange parses "bytes=start-end" where end is optional. ok is
// false when the header is absent or malformed; the caller then serves
// the full file.
func parseRange(header string, fileSize int64) (start, end int64, ok bool) {
	if header == "" || !strings.HasPrefix(header, "bytes=") {
		return 0, 0, false
	}

	spec := strings.TrimPrefix(header, "bytes=")
	parts := strings.SplitN(spec, "-", 2)
	if len(parts) != 2 || parts[0] == "" {
		return 0, 0, false
	}

	start, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, 0, false
	}

	if parts[1] == "" {
		return start, fileSize - 1, true
	}
	end, err = strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, 0, false
	}
	return start, end, true
}
