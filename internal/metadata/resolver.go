// Package metadata resolves canonical track metadata from audio files,
// combining embedded tags with a filename-derived fallback.
package metadata

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dhowden/tag"
	"github.com/go-audio/wav"
	"github.com/mewkiz/flac"
	"github.com/sirupsen/logrus"
	"github.com/tcolgate/mp3"
)

// TrackInfo is the resolved metadata for one audio file. Pointer fields
// are nil when neither the tags nor the probe could supply a value.
type TrackInfo struct {
	Title       string
	Artist      string
	Album       string
	TrackNumber int
	DiscNumber  int
	Duration    int // whole seconds
	Bitrate     *int
	SampleRate  *int
	Genre       *string
	Year        *int
	Format      string // lowercase extension without the dot
	Size        int64
	FilePath    string
}

// Resolver extracts metadata from audio files. Tag extraction failures
// are non-fatal; the filename fallback always produces a usable record.
type Resolver struct {
	supportedFormats []string
	logger           *logrus.Logger

	artCache map[string]artEntry // keyed by file path
	artMux   sync.RWMutex
}

type artEntry struct {
	data []byte
	mime string
}

// NewResolver creates a metadata resolver for the given extension
// allow-list (each entry with its leading dot).
func NewResolver(supportedFormats []string, logger *logrus.Logger) *Resolver {
	return &Resolver{
		supportedFormats: supportedFormats,
		logger:           logger,
		artCache:         make(map[string]artEntry),
	}
}

// Resolve produces a complete TrackInfo for the file at filePath.
// Tag fields override the filename fallback field by field.
func (r *Resolver) Resolve(filePath string) (TrackInfo, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return TrackInfo{}, err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return TrackInfo{}, err
	}

	info := fallbackFromFilename(filePath)
	info.Size = stat.Size()
	info.Format = strings.TrimPrefix(strings.ToLower(filepath.Ext(filePath)), ".")

	probe, probeErr := r.probe(filePath, stat.Size())
	if probeErr != nil {
		r.logger.WithFields(logrus.Fields{
			"filePath": filePath,
			"error":    probeErr.Error(),
		}).Warn("Failed to probe audio stream, duration set to 0")
	} else {
		info.Duration = int(probe.seconds + 0.5)
		if probe.sampleRate > 0 {
			sr := probe.sampleRate
			info.SampleRate = &sr
		}
		bps := probe.bitrate
		if bps == 0 && probe.seconds > 0 {
			bps = int(float64(stat.Size()) * 8 / probe.seconds)
		}
		if bps > 0 {
			kbps := (bps + 500) / 1000
			info.Bitrate = &kbps
		}
	}

	meta, err := tag.ReadFrom(file)
	if err != nil {
		r.logger.WithFields(logrus.Fields{
			"filePath": filePath,
			"error":    err.Error(),
		}).Warn("Failed to read tags, using filename metadata")
		return info, nil
	}

	if v := strings.TrimSpace(meta.Title()); v != "" {
		info.Title = v
	}
	if v := strings.TrimSpace(meta.Artist()); v != "" {
		info.Artist = v
	}
	if v := strings.TrimSpace(meta.Album()); v != "" {
		info.Album = v
	}
	if v := strings.TrimSpace(meta.Genre()); v != "" {
		info.Genre = &v
	}
	if y := meta.Year(); y > 0 {
		info.Year = &y
	}
	if n, _ := meta.Track(); n > 0 {
		info.TrackNumber = n
	}
	if n, _ := meta.Disc(); n > 0 {
		info.DiscNumber = n
	}
	return info, nil
}

// fallbackFromFilename derives metadata from the base name alone. A
// name of the form "Artist - Title" is split on the first separator.
func fallbackFromFilename(filePath string) TrackInfo {
	name := strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))

	info := TrackInfo{
		Title:       name,
		Artist:      "Unknown Artist",
		Album:       "Unknown Album",
		TrackNumber: 1,
		DiscNumber:  1,
		FilePath:    filePath,
	}
	if artist, title, found := strings.Cut(name, " - "); found {
		artist = strings.TrimSpace(artist)
		title = strings.TrimSpace(title)
		if artist != "" && title != "" {
			info.Artist = artist
			info.Title = title
		}
	}
	return info
}

type probeResult struct {
	seconds    float64
	sampleRate int
	bitrate    int // bits per second, 0 if unknown
}

func (r *Resolver) probe(filePath string, size int64) (probeResult, error) {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".mp3":
		return r.probeMP3(filePath, size)
	case ".flac":
		return r.probeFLAC(filePath)
	case ".wav":
		return r.probeWAV(filePath)
	case ".m4a", ".aac", ".alac":
		return r.probeMP4(filePath)
	default:
		return probeResult{}, fmt.Errorf("no stream probe for %s", filepath.Ext(filePath))
	}
}

// MP3 duration by frame decoding; falls back to an average-bitrate
// estimate when no frame decodes at all.
func (r *Resolver) probeMP3(path string, size int64) (probeResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return probeResult{}, err
	}
	defer f.Close()

	dec := mp3.NewDecoder(f)
	var total float64
	var skipped int
	frames := 0
	for {
		var fr mp3.Frame
		if err := dec.Decode(&fr, &skipped); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if frames == 0 {
				// Assume 192 kbps when the stream is undecodable.
				return probeResult{seconds: float64(size*8) / 192000, bitrate: 192000}, nil
			}
			break // partial decode; use what we have
		}
		total += fr.Duration().Seconds()
		frames++
	}
	return probeResult{seconds: total}, nil
}

// FLAC duration and sample rate from the STREAMINFO block.
func (r *Resolver) probeFLAC(path string) (probeResult, error) {
	stream, err := flac.ParseFile(path)
	if err != nil {
		return probeResult{}, err
	}
	si := stream.Info
	if si.NSamples == 0 || si.SampleRate == 0 {
		return probeResult{}, fmt.Errorf("flac stream missing sample info")
	}
	return probeResult{
		seconds:    float64(si.NSamples) / float64(si.SampleRate),
		sampleRate: int(si.SampleRate),
	}, nil
}

// WAV duration from the header plus file size; exact PCM bitrate from
// sample rate, bit depth and channel count.
func (r *Resolver) probeWAV(path string) (probeResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return probeResult{}, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return probeResult{}, fmt.Errorf("invalid wav file")
	}
	if dec.SampleRate == 0 || dec.BitDepth == 0 || dec.NumChans == 0 {
		return probeResult{}, fmt.Errorf("invalid wav header")
	}

	st, err := f.Stat()
	if err != nil {
		return probeResult{}, err
	}
	headerSize := int64(44)
	pcmBytes := st.Size() - headerSize
	if pcmBytes < 0 {
		pcmBytes = 0
	}
	bytesPerFrame := int64(dec.BitDepth/8) * int64(dec.NumChans)
	if bytesPerFrame <= 0 {
		return probeResult{}, fmt.Errorf("invalid sample frame size")
	}
	return probeResult{
		seconds:    float64(pcmBytes/bytesPerFrame) / float64(dec.SampleRate),
		sampleRate: int(dec.SampleRate),
		bitrate:    int(dec.SampleRate) * int(dec.BitDepth) * int(dec.NumChans),
	}, nil
}

// MP4-family duration from the mvhd atom's timescale and duration.
// A manual atom scan keeps the dependency surface small. Best-effort.
func (r *Resolver) probeMP4(path string) (probeResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return probeResult{}, err
	}
	defer f.Close()

	for {
		head := make([]byte, 8)
		if _, err := io.ReadFull(f, head); err != nil {
			return probeResult{}, err
		}
		size := binary.BigEndian.Uint32(head[0:4])
		if size < 8 {
			return probeResult{}, fmt.Errorf("invalid atom size")
		}
		if string(head[4:8]) != "moov" {
			if _, err := f.Seek(int64(size)-8, io.SeekCurrent); err != nil {
				return probeResult{}, err
			}
			continue
		}

		limit := int64(size) - 8
		for read := int64(0); read < limit; {
			subHead := make([]byte, 8)
			if _, err := io.ReadFull(f, subHead); err != nil {
				return probeResult{}, err
			}
			subSize := binary.BigEndian.Uint32(subHead[0:4])
			if subSize < 8 {
				return probeResult{}, fmt.Errorf("invalid sub-atom size")
			}
			if string(subHead[4:8]) != "mvhd" {
				if _, err := f.Seek(int64(subSize)-8, io.SeekCurrent); err != nil {
					return probeResult{}, err
				}
				read += int64(subSize)
				continue
			}

			version := make([]byte, 1)
			if _, err := io.ReadFull(f, version); err != nil {
				return probeResult{}, err
			}
			var skip int64
			if version[0] == 1 {
				skip = 3 + 8 + 8 // flags + 64-bit creation/modification times
			} else {
				skip = 3 + 4 + 4
			}
			if _, err := f.Seek(skip, io.SeekCurrent); err != nil {
				return probeResult{}, err
			}
			buf := make([]byte, 8)
			if _, err := io.ReadFull(f, buf); err != nil {
				return probeResult{}, err
			}
			timescale := binary.BigEndian.Uint32(buf[0:4])
			durUnits := binary.BigEndian.Uint32(buf[4:8])
			if timescale == 0 {
				return probeResult{}, fmt.Errorf("invalid timescale")
			}
			return probeResult{seconds: float64(durUnits) / float64(timescale)}, nil
		}
		return probeResult{}, fmt.Errorf("mvhd atom not found")
	}
}

// ExtractArt returns the embedded cover picture for the file. Results
// are cached per path so repeated cover requests skip the tag parse.
func (r *Resolver) ExtractArt(filePath string) ([]byte, string, error) {
	r.artMux.RLock()
	cached, ok := r.artCache[filePath]
	r.artMux.RUnlock()
	if ok {
		return cached.data, cached.mime, nil
	}

	f, err := os.Open(filePath)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	meta, err := tag.ReadFrom(f)
	if err != nil {
		return nil, "", err
	}
	pic := meta.Picture()
	if pic == nil || len(pic.Data) == 0 {
		return nil, "", fmt.Errorf("no embedded artwork")
	}

	mime := pic.MIMEType
	if mime == "" {
		mime = SniffImageMime(pic.Data)
	}

	r.artMux.Lock()
	r.artCache[filePath] = artEntry{data: pic.Data, mime: mime}
	r.artMux.Unlock()
	return pic.Data, mime, nil
}

// SniffImageMime guesses an image MIME type from magic bytes.
func SniffImageMime(data []byte) string {
	if len(data) < 4 {
		return "application/octet-stream"
	}
	switch {
	case data[0] == 0xFF && data[1] == 0xD8:
		return "image/jpeg"
	case data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47:
		return "image/png"
	case data[0] == 0x47 && data[1] == 0x49 && data[2] == 0x46:
		return "image/gif"
	}
	return "application/octet-stream"
}

// IsAudioFile reports whether the path has a supported audio extension.
func (r *Resolver) IsAudioFile(filePath string) bool {
	ext := strings.ToLower(filepath.Ext(filePath))
	for _, format := range r.supportedFormats {
		if ext == format {
			return true
		}
	}
	return false
}

// audioMimeTypes maps the stored format string to a Content-Type.
var audioMimeTypes = map[string]string{
	"mp3":  "audio/mpeg",
	"flac": "audio/flac",
	"wav":  "audio/wav",
	"ogg":  "audio/ogg",
	"m4a":  "audio/mp4",
	"aac":  "audio/aac",
	"wma":  "audio/x-ms-wma",
	"opus": "audio/opus",
	"aiff": "audio/aiff",
	"ape":  "audio/ape",
	"alac": "audio/mp4",
}

// ContentTypeForFormat returns the MIME type for a stored format
// string, defaulting to audio/mpeg for anything unrecognized.
func ContentTypeForFormat(format string) string {
	if mime, ok := audioMimeTypes[strings.ToLower(format)]; ok {
		return mime
	}
	return "audio/mpeg"
}
