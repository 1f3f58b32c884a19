// Package api is the HTTP surface of the server: project and clip CRUD,
// multipart clip uploads, mark management, export plans, and artifact
// streaming.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/reelroom/reelroom-server/internal/ffmpeg"
	"github.com/reelroom/reelroom-server/internal/logging"
	"github.com/reelroom/reelroom-server/internal/media"
	"github.com/reelroom/reelroom-server/internal/playback"
)

type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

type ServerConfig struct {
	Port      int
	Service   *media.Service
	Playback  *playback.ArtifactServer
	Doctor    *ffmpeg.CachedDoctor
	LogSink   *logging.RingSink
	Logger    *slog.Logger
	StartTime time.Time
}

func NewServer(cfg ServerConfig) *Server {
	router := NewRouter(cfg)

	return &Server{
		httpServer: &http.Server{
			Addr:        fmt.Sprintf(":%d", cfg.Port),
			Handler:     router,
			ReadTimeout: 0, // uploads may take a while on slow links
			IdleTimeout: 60 * time.Second,
		},
		logger: cfg.Logger,
	}
}

func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Addr() string {
	return s.httpServer.Addr
}
