package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/park285/mystic-pawn/internal/clock"
	"github.com/park285/mystic-pawn/internal/trainer"
)

const shutdownTimeout = 5 * time.Second

type Config struct {
	HTTPAddr string
	WSAddr   string
}

// Server runs the fasthttp API and the websocket/metrics listener side by side.
type Server struct {
	cfg    Config
	api    *fasthttp.Server
	stream *http.Server
	hub    *Broadcaster
	logger *zap.Logger
}

func New(cfg Config, api *API, b *Broadcaster, gatherer prometheus.Gatherer, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		cfg: cfg,
		api: &fasthttp.Server{
			Handler:      api.Handler(),
			Name:         "mystic-pawn",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		stream: &http.Server{
			Addr:              cfg.WSAddr,
			Handler:           StreamHandler(b, gatherer, logger),
			ReadHeaderTimeout: 5 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		hub:    b,
		logger: logger,
	}
}

// Attach forwards every snapshot the session publishes to b. It runs on loop.
func Attach(ctx context.Context, loop *clock.Loop, s *trainer.Session, b *Broadcaster) (int, error) {
	var id int
	err := loop.Do(ctx, func() {
		id = s.Subscribe(b.Publish)
		b.Publish(s.Snapshot())
	})
	return id, err
}

// Run serves until ctx is cancelled or a listener fails, then shuts both down.
func (s *Server) Run(ctx context.Context) error {
	apiLn, err := net.Listen("tcp", s.cfg.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listen api %s: %w", s.cfg.HTTPAddr, err)
	}
	streamLn, err := net.Listen("tcp", s.cfg.WSAddr)
	if err != nil {
		_ = apiLn.Close()
		return fmt.Errorf("listen stream %s: %w", s.cfg.WSAddr, err)
	}

	errCh := make(chan error, 2)
	go func() {
		s.logger.Info("api_listening", zap.String("addr", apiLn.Addr().String()))
		errCh <- s.api.Serve(apiLn)
	}()
	go func() {
		s.logger.Info("stream_listening", zap.String("addr", streamLn.Addr().String()))
		if err := s.stream.Serve(streamLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
		if runErr != nil {
			s.logger.Error("listener_failed", zap.Error(runErr))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	// Hijacked websocket connections outlive Shutdown; closing the hub ends them.
	s.hub.Close()
	if err := s.stream.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("stream_shutdown_error", zap.Error(err))
	}
	if err := s.api.ShutdownWithContext(shutdownCtx); err != nil {
		s.logger.Warn("api_shutdown_error", zap.Error(err))
	}
	s.logger.Info("server_stopped")
	return runErr
}
