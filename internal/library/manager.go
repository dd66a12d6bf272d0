package library

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"midnightmedia/internal/cache"
	"midnightmedia/internal/config"
	"midnightmedia/internal/database"
	"midnightmedia/internal/metadata"
	"midnightmedia/pkg/models"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

const allMediaKey = "all"

func playlistKey(playlistID int) string {
	return fmt.Sprintf("playlist:%d", playlistID)
}

// Manager owns the media library: it feeds the store from the filesystem
// (explicit adds, startup scans, watcher events) and serves the list reads
// that become the player's working lists.
type Manager struct {
	config    *config.Config
	db        *database.Database
	extractor *metadata.Extractor
	lists     *cache.ListCache
	logger    *logrus.Logger
	watcher   *fsnotify.Watcher
}

// NewManager creates a library manager over the given store.
func NewManager(cfg *config.Config, db *database.Database) *Manager {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	return &Manager{
		config:    cfg,
		db:        db,
		extractor: metadata.NewExtractor(cfg.Media.SupportedFormats),
		lists:     cache.NewListCache(time.Duration(cfg.Media.CacheTTLSeconds) * time.Second),
		logger:    logger,
	}
}

// AddMedia registers a single file with the library, reading tags for
// display metadata. The file's existence is not re-checked afterwards;
// playback validates lazily.
func (m *Manager) AddMedia(path string) (models.Media, error) {
	media, err := m.extractor.ExtractFromFile(path)
	if err != nil {
		return models.Media{}, fmt.Errorf("failed to read media file: %w", err)
	}

	id, err := m.db.InsertMedia(media)
	if err != nil {
		return models.Media{}, fmt.Errorf("failed to store media: %w", err)
	}
	media.ID = id

	m.lists.Invalidate(allMediaKey)

	m.logger.WithFields(logrus.Fields{
		"id":     id,
		"name":   media.Name,
		"author": media.Author,
		"album":  media.Album,
	}).Info("Added media")

	return media, nil
}

// ScanLibrary walks the configured library directory and registers any
// supported files the store has not seen yet. Safe to re-run; already known
// paths are skipped.
func (m *Manager) ScanLibrary() error {
	start := time.Now()
	added := 0

	err := filepath.Walk(m.config.Media.LibraryPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !m.extractor.IsMediaFile(path) {
			return nil
		}

		exists, err := m.db.MediaExists(path)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}

		media, err := m.extractor.ExtractFromFile(path)
		if err != nil {
			m.logger.WithError(err).WithField("path", path).Warn("Skipping unreadable media file")
			return nil
		}

		id, err := m.db.InsertMedia(media)
		if err != nil {
			return err
		}
		added++

		fields := logrus.Fields{"id": id, "name": media.Name}
		if d, err := m.extractor.ProbeDuration(path); err == nil {
			fields["duration"] = d.Round(time.Second).String()
		}
		m.logger.WithFields(fields).Debug("Scanned media file")
		return nil
	})
	if err != nil {
		return fmt.Errorf("library scan failed: %w", err)
	}

	if added > 0 {
		m.lists.Invalidate(allMediaKey)
	}

	m.logger.WithFields(logrus.Fields{
		"library_path": m.config.Media.LibraryPath,
		"added":        added,
		"elapsed":      time.Since(start).String(),
	}).Info("Library scan complete")
	return nil
}

// AllMedia returns every media item known to the library. Results are served
// from a short-lived cache so view switches don't hammer the store.
func (m *Manager) AllMedia() ([]models.Media, error) {
	if media, ok := m.lists.Get(allMediaKey); ok {
		return media, nil
	}

	media, err := m.db.GetAllMedia()
	if err != nil {
		return nil, err
	}

	m.lists.Set(allMediaKey, media)
	return media, nil
}

// PlaylistMedia returns a playlist's media in position order, cached like
// AllMedia.
func (m *Manager) PlaylistMedia(playlistID int) ([]models.Media, error) {
	key := playlistKey(playlistID)
	if media, ok := m.lists.Get(key); ok {
		return media, nil
	}

	media, err := m.db.GetMediaInPlaylist(playlistID)
	if err != nil {
		return nil, err
	}

	m.lists.Set(key, media)
	return media, nil
}

// CreatePlaylist creates a new named playlist and returns it.
func (m *Manager) CreatePlaylist(name string) (models.Playlist, error) {
	id, err := m.db.CreatePlaylist(name)
	if err != nil {
		return models.Playlist{}, fmt.Errorf("failed to create playlist: %w", err)
	}
	return models.Playlist{ID: id, Name: name}, nil
}

// AppendToPlaylist appends a media item to a playlist.
func (m *Manager) AppendToPlaylist(playlistID, mediaID int) error {
	if err := m.db.AppendToPlaylist(playlistID, mediaID); err != nil {
		return err
	}
	m.lists.Invalidate(playlistKey(playlistID))
	return nil
}

// RemoveFromPlaylist removes a media item from a playlist.
func (m *Manager) RemoveFromPlaylist(playlistID, mediaID int) error {
	if err := m.db.RemoveFromPlaylist(playlistID, mediaID); err != nil {
		return err
	}
	m.lists.Invalidate(playlistKey(playlistID))
	return nil
}

// Playlists returns all playlists with their media counts.
func (m *Manager) Playlists() ([]models.Playlist, error) {
	return m.db.GetAllPlaylists()
}

// Close stops the file watcher if one is running.
func (m *Manager) Close() {
	m.stopWatcher()
}
