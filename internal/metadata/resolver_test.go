package metadata

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
)

func newTestResolver() *Resolver {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel) // Reduce noise in tests

	return NewResolver([]string{
		".mp3", ".flac", ".wav", ".ogg", ".m4a", ".aac",
		".wma", ".opus", ".aiff", ".ape", ".alac",
	}, logger)
}

func TestFallbackFromFilename(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		wantArtist string
		wantTitle  string
	}{
		{
			name:       "artist dash title",
			path:       "/music/Daft Punk - Harder Better.mp3",
			wantArtist: "Daft Punk",
			wantTitle:  "Harder Better",
		},
		{
			name:       "no separator",
			path:       "/music/track01.flac",
			wantArtist: "Unknown Artist",
			wantTitle:  "track01",
		},
		{
			name:       "only first separator splits",
			path:       "/music/A - B - C.mp3",
			wantArtist: "A",
			wantTitle:  "B - C",
		},
		{
			name:       "hyphen without spaces is not a separator",
			path:       "/music/self-titled.mp3",
			wantArtist: "Unknown Artist",
			wantTitle:  "self-titled",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			info := fallbackFromFilename(tc.path)
			if info.Artist != tc.wantArtist {
				t.Errorf("artist: expected %q, got %q", tc.wantArtist, info.Artist)
			}
			if info.Title != tc.wantTitle {
				t.Errorf("title: expected %q, got %q", tc.wantTitle, info.Title)
			}
			if info.Album != "Unknown Album" {
				t.Errorf("album: expected default, got %q", info.Album)
			}
			if info.TrackNumber != 1 || info.DiscNumber != 1 {
				t.Errorf("expected track/disc defaults of 1, got %d/%d",
					info.TrackNumber, info.DiscNumber)
			}
		})
	}
}

func TestResolveFallsBackOnUnreadableFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Some Band - Some Song.mp3")
	if err := os.WriteFile(path, []byte("not really audio"), 0644); err != nil {
		t.Fatal(err)
	}

	r := newTestResolver()
	info, err := r.Resolve(path)
	if err != nil {
		t.Fatalf("Resolve should not fail on undecodable content: %v", err)
	}
	if info.Artist != "Some Band" || info.Title != "Some Song" {
		t.Errorf("expected filename fallback, got artist=%q title=%q", info.Artist, info.Title)
	}
	if info.Format != "mp3" {
		t.Errorf("expected format mp3, got %q", info.Format)
	}
	if info.Size != int64(len("not really audio")) {
		t.Errorf("expected size %d, got %d", len("not really audio"), info.Size)
	}
}

func TestIsAudioFile(t *testing.T) {
	r := newTestResolver()

	tests := []struct {
		filename string
		expected bool
	}{
		{"song.mp3", true},
		{"song.MP3", true},
		{"song.flac", true},
		{"song.opus", true},
		{"song.ape", true},
		{"cover.jpg", false},
		{"notes.txt", false},
		{"song", false},
		{"", false},
	}
	for _, tc := range tests {
		if got := r.IsAudioFile(tc.filename); got != tc.expected {
			t.Errorf("IsAudioFile(%q): expected %v, got %v", tc.filename, tc.expected, got)
		}
	}
}

func TestContentTypeForFormat(t *testing.T) {
	tests := []struct {
		format   string
		expected string
	}{
		{"mp3", "audio/mpeg"},
		{"FLAC", "audio/flac"},
		{"ogg", "audio/ogg"},
		{"m4a", "audio/mp4"},
		{"weird", "audio/mpeg"},
		{"", "audio/mpeg"},
	}
	for _, tc := range tests {
		if got := ContentTypeForFormat(tc.format); got != tc.expected {
			t.Errorf("ContentTypeForFormat(%q): expected %q, got %q", tc.format, tc.expected, got)
		}
	}
}

func TestSniffImageMime(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected string
	}{
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0}, "image/jpeg"},
		{"png", []byte{0x89, 0x50, 0x4E, 0x47}, "image/png"},
		{"gif", []byte{0x47, 0x49, 0x46, 0x38}, "image/gif"},
		{"unknown", []byte{0x00, 0x01, 0x02, 0x03}, "application/octet-stream"},
		{"too short", []byte{0xFF}, "application/octet-stream"},
	}
	for _, tc := range tests {
		if got := SniffImageMime(tc.data); got != tc.expected {
			t.Errorf("%s: expected %q, got %q", tc.name, tc.expected, got)
		}
	}
}
