package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"midnightmedia/internal/config"
	"midnightmedia/internal/database"
	"midnightmedia/internal/library"
	"midnightmedia/internal/player"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	configPath := "./config.toml"

	// Initialize basic logger for startup
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	// Optional .env for local overrides (MIDNIGHT_CONFIG)
	if err := godotenv.Load(); err == nil {
		logger.Debug("Loaded environment from .env")
	}
	if envPath := os.Getenv("MIDNIGHT_CONFIG"); envPath != "" {
		configPath = envPath
	}

	// Load configuration
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.WithError(err).Fatal("Error loading configuration")
	}

	// Check if the media directory exists
	if _, err := os.Stat(cfg.Media.LibraryPath); os.IsNotExist(err) {
		logger.WithField("library_path", cfg.Media.LibraryPath).Fatal("Media directory does not exist. Please create it and add your media files.")
	}

	// Initialize database
	db, err := database.New(cfg.Database.Path)
	if err != nil {
		logger.WithError(err).Fatal("Error initializing database")
	}
	defer db.Close()

	// Build the library over the store
	lib := library.NewManager(cfg, db)
	defer lib.Close()

	if cfg.Media.ScanOnStartup {
		if err := lib.ScanLibrary(); err != nil {
			logger.WithError(err).Fatal("Error scanning media library")
		}

		media, err := lib.AllMedia()
		if err != nil {
			logger.WithError(err).Warn("Could not get media count")
		} else if len(media) == 0 {
			logger.WithField("supported_formats", cfg.Media.SupportedFormats).Warn("No supported media files found in media directory")
		}
	}

	if cfg.Media.WatchForChanges {
		if err := lib.StartWatcher(); err != nil {
			logger.WithError(err).Warn("Could not start file watcher")
		}
	}

	// Build the playback session; the presentation shell drives it through
	// the player API and renders from its status subscription.
	session := player.NewSession(
		player.NewBeepCapability(),
		time.Duration(cfg.Player.PollIntervalMs)*time.Millisecond,
	)
	defer session.Close()

	media, err := lib.AllMedia()
	if err != nil {
		logger.WithError(err).Fatal("Error loading media list")
	}
	session.LoadList(media)

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	logger.Info("Received shutdown signal")
}
