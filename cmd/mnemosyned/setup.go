package main

import (
	"context"
	"fmt"
	"os"

	"github.com/synapsedb/mnemosyne/internal/database"
	"github.com/synapsedb/mnemosyne/internal/embedding"
	"github.com/synapsedb/mnemosyne/internal/engine"
	"github.com/synapsedb/mnemosyne/internal/logging"
	"github.com/synapsedb/mnemosyne/internal/ratelimit"
	"github.com/synapsedb/mnemosyne/internal/relationships"
	"github.com/synapsedb/mnemosyne/pkg/config"
)

// app bundles the wiring every subcommand needs: config, database handle,
// engine, and the conflict-graph service over the same handle.
type app struct {
	cfg      *config.Config
	db       *database.Database
	engine   *engine.Engine
	rel      *relationships.Service
	embedder embedding.Provider
}

// buildApp loads config, opens the database, builds the embedding
// provider (Ollama when available, the deterministic local provider
// otherwise), and wires the engine. Every subcommand calls this once.
func buildApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.InitSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	es, err := database.NewEngineStore(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("build engine store: %w", err)
	}

	embedder := buildEmbedder(cfg)

	eng, err := engine.New(es, embedder,
		engine.WithGateThresholds(cfg.Engine.GateThresholds()),
		engine.WithScorerWeights(cfg.Engine.ScorerWeights()),
		engine.WithLifecycleThresholds(cfg.Engine.LifecycleThresholds()),
		engine.WithWeights(cfg.Engine.SchedulerWeights()),
		engine.WithDegradedSearch(cfg.Search.AllowDegradedSearch),
	)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("build engine: %w", err)
	}

	return &app{
		cfg:      cfg,
		db:       db,
		engine:   eng,
		rel:      relationships.NewService(db),
		embedder: embedder,
	}, nil
}

// buildEmbedder selects Ollama when it is the configured provider (probing
// its reachability first only when auto-detect is on), otherwise falls
// back to the deterministic local provider, and wraps
// either in the rate limiter when enabled.
func buildEmbedder(cfg *config.Config) embedding.Provider {
	var provider embedding.Provider
	if cfg.Ollama.Enabled && cfg.Ollama.Provider == "ollama" {
		ollama := embedding.NewOllamaProvider(cfg.Ollama.BaseURL, cfg.Ollama.EmbeddingModel, cfg.Ollama.Dimension)
		if !cfg.Ollama.AutoDetect || ollama.IsAvailable(context.Background()) {
			provider = ollama
		}
	}
	if provider == nil {
		provider = embedding.NewLocalProvider(cfg.Ollama.Dimension)
	}

	if cfg.RateLimit.Enabled {
		limiter := ratelimit.NewLimiter(&ratelimit.Config{
			Enabled: true,
			Global: ratelimit.LimitConfig{
				RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
				BurstSize:         cfg.RateLimit.BurstSize,
			},
		})
		provider = embedding.NewRateLimitedProvider(provider, limiter)
	}
	return provider
}

func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
}

// fail logs err to stderr through logging.GetLogger, whose level the
// global --log-level flag sets, and exits with code.
func fail(code int, format string, args ...interface{}) {
	logging.GetLogger("cli").Error(fmt.Sprintf(format, args...))
	os.Exit(code)
}
