package library

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// StartWatcher initializes an fsnotify watcher for recursive library dir
// monitoring so the store tracks files added or removed outside the app.
func (m *Manager) StartWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	m.watcher = watcher

	// Start monitoring in a goroutine
	go m.watchFiles()

	// Add the library directory tree to the watcher
	if err := m.addDirectoryToWatcher(m.config.Media.LibraryPath); err != nil {
		return err
	}

	m.logger.WithField("library_path", m.config.Media.LibraryPath).Info("File watcher started")
	return nil
}

// addDirectoryToWatcher recursively walks and adds subdirectories to watcher.
func (m *Manager) addDirectoryToWatcher(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return m.watcher.Add(path)
		}
		return nil
	})
}

// watchFiles selects on watcher channels and dispatches events.
func (m *Manager) watchFiles() {
	defer m.watcher.Close()

	for {
		select {
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			m.handleFileEvent(event)

		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			m.logger.WithError(err).Error("File watcher error")
		}
	}
}

// handleFileEvent applies filtering & delegates creation/removal actions.
func (m *Manager) handleFileEvent(event fsnotify.Event) {
	// Ignore temporary files and hidden files
	fileName := filepath.Base(event.Name)
	if strings.HasPrefix(fileName, ".") || strings.HasSuffix(fileName, ".tmp") {
		return
	}

	isMediaFile := m.extractor.IsMediaFile(event.Name)

	switch {
	case event.Has(fsnotify.Create) && isMediaFile:
		// Dispatch new file processing asynchronously
		go func(name string) {
			time.Sleep(500 * time.Millisecond) // Ensure file is fully written
			m.handleNewFile(name)
		}(event.Name)

	case event.Has(fsnotify.Remove) && isMediaFile:
		go m.handleRemovedFile(event.Name)

	case event.Has(fsnotify.Create):
		// Check if it's a new directory
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			m.watcher.Add(event.Name)
			m.logger.WithField("directory", event.Name).Info("Watching new directory")
		}
	}
}

// handleNewFile registers a newly created media file if unseen.
func (m *Manager) handleNewFile(path string) {
	m.logger.WithField("path", path).Info("New media file detected")

	exists, err := m.db.MediaExists(path)
	if err != nil {
		m.logger.WithError(err).WithField("path", path).Error("Error checking if media exists")
		return
	}
	if exists {
		m.logger.WithField("path", path).Debug("Media already exists in database")
		return
	}

	if _, err := m.AddMedia(path); err != nil {
		m.logger.WithError(err).WithField("path", path).Error("Error adding new media file")
	}
}

// handleRemovedFile removes media rows referencing deleted files.
func (m *Manager) handleRemovedFile(path string) {
	m.logger.WithField("path", path).Info("Media file removed")

	if err := m.db.RemoveMediaByPath(path); err != nil {
		m.logger.WithError(err).WithField("path", path).Error("Error removing media from database")
		return
	}

	// Playlist entries cascade with the media row, so every cached list is
	// suspect, not just the all-media view.
	m.lists.Clear()

	m.logger.WithField("path", path).Info("Removed media from database")
}

// stopWatcher closes the watcher (idempotent).
func (m *Manager) stopWatcher() {
	if m.watcher != nil {
		m.watcher.Close()
	}
}
