package main

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Champ-Deep/ChampMail-sub000/internal/config"
	"github.com/Champ-Deep/ChampMail-sub000/internal/db"
	"github.com/Champ-Deep/ChampMail-sub000/internal/generation"
	"github.com/Champ-Deep/ChampMail-sub000/internal/kv"
	"github.com/Champ-Deep/ChampMail-sub000/internal/llm"
	"github.com/Champ-Deep/ChampMail-sub000/internal/logging"
	"github.com/Champ-Deep/ChampMail-sub000/internal/metrics"
	"github.com/Champ-Deep/ChampMail-sub000/internal/pipeline"
	"github.com/Champ-Deep/ChampMail-sub000/internal/scheduler"
	"github.com/Champ-Deep/ChampMail-sub000/internal/tasks"
	"github.com/Champ-Deep/ChampMail-sub000/internal/tracking"
)

// app holds every wired component
type app struct {
	cfg     *config.Config
	logger  logging.Logger
	metrics *metrics.Metrics

	redis     *goredis.Client
	store     kv.Store
	keys      kv.Keys
	ttls      kv.TTLs
	db        *db.DB
	llm       llm.Client
	tracker   *tracking.Engine
	scheduler *scheduler.Scheduler
	pipeline  *pipeline.Orchestrator
	tasks     *tasks.Runner
}

// newApp connects the stores and builds the components. Close releases connections.
func newApp(ctx context.Context, cfg *config.Config, logger logging.Logger, onProgress pipeline.ProgressCallback) (*app, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}

	a := &app{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics.New(),
		keys:    kv.Keys{},
		ttls:    kv.DefaultTTLs(),
	}

	var err error
	if a.redis, err = kv.NewClientFromURL(ctx, cfg.RedisURL); err != nil {
		return nil, err
	}
	a.store = kv.NewRedisStore(a.redis)

	if a.db, err = db.Connect(ctx, cfg.DatabaseURL); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := a.db.Migrate(ctx); err != nil {
		a.Close()
		return nil, err
	}

	a.tracker, err = tracking.NewEngine(cfg.Tracking.Secret, cfg.Tracking.BaseURL, tracking.Deps{
		Store:     a.store,
		Keys:      a.keys,
		TTLs:      a.ttls,
		Events:    a.db,
		Sends:     a.db,
		Prospects: a.db,
		Metrics:   a.metrics,
		Logger:    logger.WithField("component", "tracking"),
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	a.scheduler, err = scheduler.New(cfg.Scheduler, scheduler.Deps{
		Store:   a.store,
		Keys:    a.keys,
		TTLs:    a.ttls,
		Metrics: a.metrics,
		Logger:  logger.WithField("component", "scheduler"),
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	gemini, err := llm.NewGeminiClient(ctx, llm.DefaultConfig(), cfg.GeminiAPIKey)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	a.llm = gemini

	generator, err := generation.New(a.llm, logger.WithField("component", "generation"))
	if err != nil {
		a.Close()
		return nil, err
	}

	a.pipeline, err = pipeline.New(cfg.Pipeline, pipeline.Deps{
		Generator:  generator,
		Campaigns:  a.db,
		Tracker:    a.tracker,
		Scheduler:  a.scheduler,
		Status:     pipeline.NewStatusStore(a.store, a.keys, a.ttls),
		Metrics:    a.metrics,
		Logger:     logger.WithField("component", "pipeline"),
		OnProgress: onProgress,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	a.tasks = tasks.NewRunner(cfg.Retry, logger.WithField("component", "tasks"))
	return a, nil
}

// Close releases every connection that was opened
func (a *app) Close() {
	if a.llm != nil {
		_ = a.llm.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}
