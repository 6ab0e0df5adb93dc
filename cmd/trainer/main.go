package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	appcfg "github.com/park285/mystic-pawn/internal/config"
	"github.com/park285/mystic-pawn/internal/obslog"
	"github.com/park285/mystic-pawn/internal/server"
	"github.com/park285/mystic-pawn/internal/trainerbuilder"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	deps, err := trainerbuilder.New(initCtx, cfg, logger)
	cancel()
	if err != nil {
		logger.Fatal("trainer_init_error", zap.Error(err))
	}
	defer func() {
		if err := deps.Close(); err != nil {
			logger.Warn("trainer_close_error", zap.Error(err))
		}
	}()

	hub := server.NewBroadcaster()
	if _, err := server.Attach(ctx, deps.Loop, deps.Session, hub); err != nil {
		logger.Fatal("session_attach_error", zap.Error(err))
	}

	api := server.NewAPI(deps.Loop, deps.Session, deps.Renderer,
		server.WithCallTimeout(cfg.StoreTimeout+time.Second),
		server.WithLogger(logger.Named("api")),
	)
	srv := server.New(server.Config{HTTPAddr: cfg.HTTPAddr, WSAddr: cfg.WSAddr}, api, hub, deps.Registry, logger)

	logger.Info("trainer_start",
		zap.String("http_addr", cfg.HTTPAddr),
		zap.String("ws_addr", cfg.WSAddr),
		zap.Int("default_duration", cfg.DefaultDuration),
	)
	if err := srv.Run(ctx); err != nil {
		logger.Error("server_error", zap.Error(err))
	}

	// Abort a running game so the recorder and logs see it end.
	endCtx, endCancel := context.WithTimeout(context.Background(), time.Second)
	_ = deps.Loop.Do(endCtx, deps.Session.EndGame)
	endCancel()
}
