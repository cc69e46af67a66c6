package server

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Newly created files may still be mid-copy when the Create event
// fires; ingestion waits this long before reading them.
const ingestDelay = 500 * time.Millisecond

// startFileWatcher begins fsnotify monitoring of every configured music
// folder. Folders that cannot be watched are skipped with a warning so
// one bad mount does not disable watching entirely.
func (ms *MusicServer) startFileWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	ms.watcher = watcher

	go ms.dispatchWatchEvents()

	for _, folder := range ms.config.Library.MusicFolders {
		if err := ms.watchTree(folder); err != nil {
			ms.logger.WithError(err).WithField("folder", folder).Warn("Could not watch folder")
		}
	}

	ms.logger.WithField("folders", ms.config.Library.MusicFolders).Info("File watcher started")
	return nil
}

// watchTree registers root and every directory below it. fsnotify
// watches are not recursive on their own.
func (ms *MusicServer) watchTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return ms.watcher.Add(path)
		}
		return nil
	})
}

func (ms *MusicServer) dispatchWatchEvents() {
	for {
		select {
		case event, ok := <-ms.watcher.Events:
			if !ok {
				return
			}
			ms.handleFileEvent(event)

		case err, ok := <-ms.watcher.Errors:
			if !ok {
				return
			}
			ms.logger.WithError(err).Error("File watcher error")
		}
	}
}

// handleFileEvent routes a single filesystem event. Hidden files and
// editor temp files are ignored outright.
func (ms *MusicServer) handleFileEvent(event fsnotify.Event) {
	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".tmp") {
		return
	}

	switch {
	case event.Has(fsnotify.Create):
		if ms.resolver.IsAudioFile(event.Name) {
			go ms.ingestAfterDelay(event.Name)
			return
		}
		// A directory created under a watched tree is watched too, so
		// drag-and-dropped album folders are picked up.
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := ms.watchTree(event.Name); err == nil {
				ms.logger.WithField("directory", event.Name).Info("Watching new directory")
			}
		}

	case event.Has(fsnotify.Remove):
		if ms.resolver.IsAudioFile(event.Name) {
			go ms.pruneRemovedFile(event.Name)
		}
	}
}

func (ms *MusicServer) ingestAfterDelay(filePath string) {
	time.Sleep(ingestDelay)

	ms.logger.WithField("file_path", filePath).Info("New audio file detected")
	if err := ms.scanner.IngestFile(filePath); err != nil {
		ms.logger.WithError(err).WithField("file_path", filePath).Error("Error ingesting new file")
		return
	}
	ms.statsCache.Invalidate()
}

func (ms *MusicServer) pruneRemovedFile(filePath string) {
	ms.logger.WithField("file_path", filePath).Info("Audio file removed")
	if err := ms.scanner.RemoveFile(filePath); err != nil {
		ms.logger.WithError(err).WithField("file_path", filePath).Error("Error removing track")
		return
	}
	ms.statsCache.Invalidate()
}

// stopFileWatcher closes the watcher (idempotent).
func (ms *MusicServer) stopFileWatcher() {
	if ms.watcher != nil {
		ms.watcher.Close()
	}
}
