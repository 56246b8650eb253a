package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/adaptive-universe/internal/arc"
	"github.com/danielpatrickdp/adaptive-universe/internal/codec"
	"github.com/danielpatrickdp/adaptive-universe/internal/config"
	"github.com/danielpatrickdp/adaptive-universe/internal/interest"
	"github.com/danielpatrickdp/adaptive-universe/internal/logging"
	"github.com/danielpatrickdp/adaptive-universe/internal/orchestrator"
	"github.com/danielpatrickdp/adaptive-universe/internal/signals"
	"github.com/danielpatrickdp/adaptive-universe/internal/tracing"
)

// app holds every wired component for one command invocation.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	store    *arc.Store
	tracker  *interest.Tracker
	buffer   *signals.Buffer
	producer *signals.Producer
	events   *logging.SQLiteSink
	recorder *logging.Recorder
	engine   *orchestrator.Orchestrator

	closers []func() error
}

func openApp(ctx context.Context, opts *rootOptions) (*app, error) {
	cfg, err := config.Load(*opts.configPath)
	if err != nil {
		return nil, err
	}

	logger, err := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger}
	a.closers = append(a.closers, func() error { _ = logger.Sync(); return nil })

	shutdown, err := tracing.Setup(ctx, cfg.Tracing)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, func() error { return shutdown(context.Background()) })

	a.store, err = arc.NewStore(cfg.DBPath, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("open store: %w", err)
	}
	a.closers = append(a.closers, a.store.Close)

	repo, err := interest.NewSQLiteRepository(a.store.DB())
	if err != nil {
		a.Close()
		return nil, err
	}
	a.tracker = interest.NewTracker(repo, logger)

	a.events, err = logging.NewSQLiteSink(a.store.DB())
	if err != nil {
		a.Close()
		return nil, err
	}
	a.recorder = logging.NewRecorder(a.events, logger, 64)
	a.closers = append(a.closers, func() error { a.recorder.Close(); return nil })

	gen, closeGen, err := newGenerator(ctx, cfg.Generator)
	if err != nil {
		a.Close()
		return nil, err
	}
	if closeGen != nil {
		a.closers = append(a.closers, closeGen)
	}

	a.buffer = signals.NewBuffer()
	a.producer = signals.NewProducer(a.buffer, a.tracker, signals.DefaultProducerConfig())

	ocfg := orchestrator.DefaultConfig()
	ocfg.MaxAttempts = cfg.Generator.MaxAttempts
	ocfg.GenerateTimeout = cfg.Generator.Timeout
	a.engine = orchestrator.New(orchestrator.Deps{
		Generator: gen,
		Interests: a.tracker,
		Store:     a.store,
		Signals:   a.buffer,
		Telemetry: a.recorder,
		Logger:    logger,
	}, ocfg)
	return a, nil
}

// Close releases resources in reverse order of acquisition. The recorder is
// drained before the database closes.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && a.logger != nil {
			a.logger.Warn("close failed", zap.Error(err))
		}
	}
	a.closers = nil
}

// newGenerator builds the configured backend. The offline backend returns a
// nil Generator so every call falls back.
func newGenerator(ctx context.Context, cfg config.GeneratorConfig) (codec.Generator, func() error, error) {
	switch cfg.Backend {
	case config.BackendGRPC:
		c, err := codec.NewGRPCClient(cfg.Addr)
		if err != nil {
			return nil, nil, fmt.Errorf("connect generator at %s: %w", cfg.Addr, err)
		}
		return c, c.Close, nil
	case config.BackendGenAI:
		c, err := codec.NewGenAIClient(ctx, cfg.APIKey, cfg.Model)
		if err != nil {
			return nil, nil, fmt.Errorf("genai client: %w", err)
		}
		return c, nil, nil
	default:
		return nil, nil, nil
	}
}
