// Package scanner walks configured music folders and ingests audio
// files into the catalog.
package scanner

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"
	"time"

	"cadenza/internal/database"
	"cadenza/internal/metadata"
	"cadenza/pkg/models"

	"github.com/sirupsen/logrus"
)

// ErrScanInProgress is returned when a scan is requested while another
// is still running. Scans are serialized, never queued.
var ErrScanInProgress = errors.New("a library scan is already in progress")

// errCatalogUnavailable marks storage failures that make continuing a
// scan pointless. Per-file problems never carry it; a scan that hits it
// aborts and its audit row is marked failed.
var errCatalogUnavailable = errors.New("catalog unavailable")

// Result summarizes one completed scan.
type Result struct {
	ScanLogID  string   `json:"scanLogId"`
	FilesFound int      `json:"filesFound"`
	FilesAdded int      `json:"filesAdded"`
	Errors     []string `json:"errors"`
	Duration   string   `json:"duration"`
}

// Scanner ingests audio files into the catalog. A bad file never aborts
// a scan; its error is recorded and the walk continues.
type Scanner struct {
	db       *database.Database
	resolver *metadata.Resolver
	logger   *logrus.Logger
	mu       sync.Mutex
	running  bool
}

// NewScanner creates a scanner over the given catalog and resolver.
func NewScanner(db *database.Database, resolver *metadata.Resolver, logger *logrus.Logger) *Scanner {
	return &Scanner{
		db:       db,
		resolver: resolver,
		logger:   logger,
	}
}

// Scan walks every folder, ingests new audio files, reconciles album
// aggregates, and records an audit entry. Returns ErrScanInProgress if
// another scan is running.
func (s *Scanner) Scan(folders []string) (*Result, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, ErrScanInProgress
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	start := time.Now()
	logID, err := s.db.CreateScanLog(folders)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"folders": folders,
		"scanLog": logID,
	}).Info("Starting library scan")

	result := &Result{ScanLogID: logID, Errors: []string{}}
	for _, folder := range folders {
		if err := s.scanFolder(folder, result); err != nil {
			return nil, s.failScan(logID, err)
		}
	}

	// Full reconciliation pass over every album. Intentionally simple;
	// library sizes are personal-scale.
	if err := s.db.ReconcileAlbumAggregates(); err != nil {
		return nil, s.failScan(logID, fmt.Errorf("%w: aggregate reconciliation: %v", errCatalogUnavailable, err))
	}

	result.Duration = time.Since(start).Round(time.Millisecond).String()
	if err := s.db.CompleteScanLog(logID, result.FilesFound, result.FilesAdded, result.Errors); err != nil {
		s.logger.WithError(err).Error("Failed to finalize scan log")
	}

	s.logger.WithFields(logrus.Fields{
		"filesFound": result.FilesFound,
		"filesAdded": result.FilesAdded,
		"errors":     len(result.Errors),
		"duration":   result.Duration,
	}).Info("Library scan completed")
	return result, nil
}

// failScan marks the audit row failed and surfaces the fatal error.
func (s *Scanner) failScan(logID string, cause error) error {
	s.logger.WithError(cause).WithField("scanLog", logID).Error("Library scan aborted")
	if err := s.db.FailScanLog(logID, cause.Error()); err != nil {
		s.logger.WithError(err).Error("Failed to mark scan log failed")
	}
	return cause
}

// scanFolder walks one folder. File-level problems are recorded and the
// walk continues; a catalog failure aborts it.
func (s *Scanner) scanFolder(folder string, result *Result) error {
	err := filepath.WalkDir(folder, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", path, err))
			return nil
		}
		if d.IsDir() || !s.resolver.IsAudioFile(path) {
			return nil
		}

		result.FilesFound++
		added, ingestErr := s.ingest(path)
		if ingestErr != nil {
			if errors.Is(ingestErr, errCatalogUnavailable) {
				return ingestErr
			}
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", path, ingestErr))
			return nil
		}
		if added {
			result.FilesAdded++
		}
		return nil
	})
	if err == nil || errors.Is(err, errCatalogUnavailable) {
		return err
	}
	result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", folder, err))
	return nil
}

// ingest resolves one file and inserts it unless its path is already
// cataloged. Returns whether a new track was created.
func (s *Scanner) ingest(path string) (bool, error) {
	exists, err := s.db.TrackExists(path)
	if err != nil {
		return false, fmt.Errorf("%w: %v", errCatalogUnavailable, err)
	}
	if exists {
		return false, nil
	}

	info, err := s.resolver.Resolve(path)
	if err != nil {
		return false, err
	}

	artistID, err := s.db.FindOrCreateArtist(info.Artist)
	if err != nil {
		return false, fmt.Errorf("%w: %v", errCatalogUnavailable, err)
	}
	albumID, err := s.db.FindOrCreateAlbum(info.Album, artistID, info.Year, info.Genre)
	if err != nil {
		return false, fmt.Errorf("%w: %v", errCatalogUnavailable, err)
	}

	_, err = s.db.CreateTrack(models.Track{
		Title:       info.Title,
		ArtistID:    artistID,
		AlbumID:     albumID,
		TrackNumber: info.TrackNumber,
		DiscNumber:  info.DiscNumber,
		Duration:    info.Duration,
		Bitrate:     info.Bitrate,
		SampleRate:  info.SampleRate,
		Format:      info.Format,
		Size:        info.Size,
		FilePath:    path,
		Genre:       info.Genre,
		Year:        info.Year,
	})
	if err != nil {
		return false, fmt.Errorf("%w: %v", errCatalogUnavailable, err)
	}

	s.logger.WithFields(logrus.Fields{
		"filePath": path,
		"title":    info.Title,
		"artist":   info.Artist,
	}).Debug("Added track to library")
	return true, nil
}

// IngestFile adds a single file outside a full scan (used by the
// filesystem watcher) and reconciles the affected aggregates.
func (s *Scanner) IngestFile(path string) error {
	if !s.resolver.IsAudioFile(path) {
		return nil
	}
	added, err := s.ingest(path)
	if err != nil {
		return err
	}
	if !added {
		return nil
	}
	return s.db.ReconcileAlbumAggregates()
}

// RemoveFile drops the track cataloged at path (used by the filesystem
// watcher when a file disappears).
func (s *Scanner) RemoveFile(path string) error {
	if err := s.db.RemoveTrackByPath(path); err != nil {
		return err
	}
	return s.db.ReconcileAlbumAggregates()
}
