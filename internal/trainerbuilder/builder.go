package trainerbuilder

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/park285/mystic-pawn/internal/clock"
	"github.com/park285/mystic-pawn/internal/config"
	"github.com/park285/mystic-pawn/internal/metrics"
	"github.com/park285/mystic-pawn/internal/msgcat"
	"github.com/park285/mystic-pawn/internal/prefs"
	"github.com/park285/mystic-pawn/internal/render"
	"github.com/park285/mystic-pawn/internal/speech"
	"github.com/park285/mystic-pawn/internal/trainer"
)

const metricsNamespace = "mystic_pawn"

type Deps struct {
	Loop     *clock.Loop
	Session  *trainer.Session
	Store    prefs.Store
	Notifier trainer.Notifier
	Metrics  *metrics.Metrics
	Registry *prometheus.Registry
	Renderer render.BoardRenderer

	closers []io.Closer
}

// New wires the trainer from cfg. The returned session must only be used through Deps.Loop.
func New(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, errors.New("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Deps{}

	store, err := d.openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	d.Store = store

	msgs, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("load messages: %w", err)
	}

	notifiers := speech.Multi{speech.NewLogNotifier(logger)}
	if cfg.SpeechURL != "" {
		httpNotifier := speech.NewHTTPNotifier(cfg.SpeechURL, speech.WithLogger(logger))
		d.closers = append(d.closers, closerFunc(func() error { httpNotifier.Close(); return nil }))
		notifiers = append(notifiers, httpNotifier)
		logger.Info("speech_enabled", zap.String("url", cfg.SpeechURL))
	}
	d.Notifier = notifiers

	d.Registry = prometheus.NewRegistry()
	d.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	d.Metrics = metrics.New(d.Registry, metricsNamespace)
	d.Renderer = render.NewBoardRenderer(cfg.BoardSquareSize)

	d.Loop = clock.NewLoop(0)
	d.Session = trainer.NewSession(d.Loop, d.Store, d.Notifier, trainer.Config{
		DefaultDuration: cfg.DefaultDuration,
		FeedbackDelay:   cfg.FeedbackDelay,
		StoreTimeout:    cfg.StoreTimeout,
	}, logger.Named("session"),
		trainer.WithRecorder(d.Metrics),
		trainer.WithMessages(msgs),
	)
	return d, nil
}

// openStore prefers Redis, then Postgres, then an in-memory store.
func (d *Deps) openStore(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (prefs.Store, error) {
	switch {
	case cfg.RedisURL != "":
		rdb, err := prefs.DialRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("init redis store: %w", err)
		}
		st := prefs.NewRedisStore(rdb, cfg.PrefsNamespace)
		d.closers = append(d.closers, st)
		logger.Info("prefs_store", zap.String("backend", "redis"), zap.String("namespace", cfg.PrefsNamespace))
		return st, nil
	case cfg.DatabaseURL != "":
		st, err := prefs.NewPostgresStore(ctx, cfg.DatabaseURL, cfg.PrefsNamespace)
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
		d.closers = append(d.closers, st)
		logger.Info("prefs_store", zap.String("backend", "postgres"), zap.String("namespace", cfg.PrefsNamespace))
		return st, nil
	default:
		logger.Warn("prefs_store", zap.String("backend", "memory"))
		return prefs.NewMemoryStore(), nil
	}
}

// Close stops the loop first so no session callback touches a closed backend.
func (d *Deps) Close() error {
	if d.Loop != nil {
		d.Loop.Close()
	}
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	return errors.Join(errs...)
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
