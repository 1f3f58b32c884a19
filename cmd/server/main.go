package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/reelroom/reelroom-server/internal/api"
	"github.com/reelroom/reelroom-server/internal/config"
	"github.com/reelroom/reelroom-server/internal/db"
	"github.com/reelroom/reelroom-server/internal/ffmpeg"
	"github.com/reelroom/reelroom-server/internal/logging"
	"github.com/reelroom/reelroom-server/internal/media"
	"github.com/reelroom/reelroom-server/internal/playback"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func run() error {
	startTime := time.Now()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir(), 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	logSink := logging.NewRingSink(logging.DefaultRingCapacity)
	logger := logging.NewLogger(cfg.LogLevel(), logSink)
	logger.Info("starting reelroom server",
		"version", config.Version,
		"data_dir", logging.SanitizePath(cfg.DataDir()),
		"store", cfg.Store(),
	)

	var repo media.Repository
	if cfg.Store() == config.StoreSQLite {
		database, err := db.New(cfg.DBPath(), logger)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer database.Close()
		repo = media.NewSQLiteRepository(database.Conn())
	} else {
		logger.Warn("using in-memory store, all data is lost on restart")
		repo = media.NewMemoryRepository()
	}

	tools := ffmpeg.NewCLI(ffmpeg.Config{
		FFmpegPath:       cfg.FFmpegPath(),
		FFprobePath:      cfg.FFprobePath(),
		ProbeTimeout:     cfg.ProbeTimeout(),
		TranscodeTimeout: cfg.TranscodeTimeout(),
		Logger:           logger,
	})

	doctor := ffmpeg.NewCachedDoctor(tools, logger)
	status := doctor.Refresh(context.Background())
	logger.Info("external tools probed",
		"ffmpeg", status.FFmpegAvailable,
		"ffprobe", status.FFprobeAvailable,
		"version", status.FFmpegVersion,
	)

	service, err := media.NewService(repo, tools, media.Dirs{
		Originals:  cfg.OriginalsDir(),
		Proxies:    cfg.ProxiesDir(),
		Thumbnails: cfg.ThumbnailsDir(),
	}, cfg.Workers(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize media service: %w", err)
	}

	apiServer := api.NewServer(api.ServerConfig{
		Port:      cfg.Port(),
		Service:   service,
		Playback:  playback.NewArtifactServer(logger),
		Doctor:    doctor,
		LogSink:   logSink,
		Logger:    logger,
		StartTime: startTime,
	})

	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received shutdown signal", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}

	// In-flight pipelines finish before the process exits; anything cut
	// short is failed on the next startup.
	service.Wait()

	logger.Info("shutdown complete")
	return nil
}
