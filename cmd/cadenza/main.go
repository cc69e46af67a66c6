package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cadenza/internal/config"
	"cadenza/internal/database"
	"cadenza/internal/server"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	// Load .env first so tokens and path overrides are visible to the
	// config layer and the tunnel service.
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			logger.WithError(err).Warn("Could not load .env file")
		}
	}

	configPath := "./config.toml"
	if env := os.Getenv("CADENZA_CONFIG"); env != "" {
		configPath = env
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.WithError(err).Fatal("Error loading configuration")
	}

	applyLogConfig(logger, cfg)

	for _, folder := range cfg.Library.MusicFolders {
		if _, err := os.Stat(folder); os.IsNotExist(err) {
			logger.WithField("folder", folder).Warn("Music folder does not exist; it will be skipped until created")
		}
	}

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		logger.WithError(err).Fatal("Error initializing database")
	}
	defer db.Close()

	musicServer, err := server.NewMusicServer(cfg, db, logger)
	if err != nil {
		logger.WithError(err).Fatal("Error creating music server")
	}

	// Handle graceful shutdown
	sigC := make(chan os.Signal, 1)
	signal.Notify(sigC, os.Interrupt, syscall.SIGTERM)

	errC := make(chan error, 1)
	go func() {
		errC <- musicServer.Start()
	}()

	select {
	case sig := <-sigC:
		logger.WithField("signal", sig.String()).Info("Received shutdown signal")
	case err := <-errC:
		if err != nil {
			logger.WithError(err).Fatal("Server failed")
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := musicServer.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Shutdown did not complete cleanly")
	}
	logger.Info("Server stopped")
}

// applyLogConfig maps the configured level and format onto the logger.
func applyLogConfig(logger *logrus.Logger, cfg *config.Config) {
	if level, err := logrus.ParseLevel(cfg.Logging.Level); err == nil {
		logger.SetLevel(level)
	}
	if cfg.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
}
