package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/terra-clan/daywise/internal/agent"
	"github.com/terra-clan/daywise/internal/config"
	"github.com/terra-clan/daywise/internal/llm"
	"github.com/terra-clan/daywise/internal/storage"
	"github.com/terra-clan/daywise/internal/templates"
)

// openRepository connects the configured storage backend. Postgres
// migrations run before the repository is handed out.
func openRepository(ctx context.Context, cfg *config.Config) (storage.Repository, error) {
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		slog.Warn("using in-memory storage, roadmaps are lost on restart")
		return storage.NewMemoryRepository(), nil

	case config.BackendSQLite:
		repo, err := storage.NewSQLiteRepository(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		slog.Info("sqlite database opened", "path", cfg.SQLite.Path)
		return repo, nil

	case config.BackendPostgres:
		repo, err := storage.NewPostgresRepository(ctx, storage.PostgresConfig{
			DSN:          cfg.Database.DSN,
			MaxOpenConns: int32(cfg.Database.MaxOpenConns),
		})
		if err != nil {
			return nil, err
		}

		slog.Info("running database migrations", "dir", cfg.Database.MigrationsDir)
		if err := storage.RunMigrations(ctx, repo.Pool(), storage.MigrationSource(cfg.Database.MigrationsDir)); err != nil {
			repo.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		slog.Info("database connected successfully")
		return repo, nil

	case config.BackendRedis:
		repo, err := storage.NewRedisRepository(ctx, storage.RedisConfig{
			Address:   cfg.Redis.Address,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
		})
		if err != nil {
			return nil, err
		}
		slog.Info("redis connected successfully", "address", cfg.Redis.Address)
		return repo, nil
	}

	return nil, fmt.Errorf("unknown storage backend: %q", cfg.Storage.Backend)
}

// loadTemplates loads the template directory and returns the loader along
// with the active template
func loadTemplates(cfg config.TemplatesConfig, active string) (*templates.Loader, *agent.PromptBuilder, error) {
	loader := templates.NewLoader()
	if cfg.Dir != "" {
		if err := loader.LoadFromDir(cfg.Dir); err != nil {
			slog.Warn("failed to load templates from dir", "dir", cfg.Dir, "error", err)
		}
	}

	if active == "" {
		active = cfg.Active
	}
	tmpl := loader.Get(active)
	if tmpl == nil {
		return nil, nil, fmt.Errorf("prompt template %q not found", active)
	}

	prompts, err := agent.NewPromptBuilder(tmpl)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid prompt template %q: %w", active, err)
	}
	slog.Info("prompt template selected", "template", prompts.Name())

	return loader, prompts, nil
}

// newAgent builds the Gemini-backed generation agent behind the
// concurrency limiter
func newAgent(ctx context.Context, cfg *config.Config, prompts *agent.PromptBuilder) (*agent.Agent, *llm.GeminiClient, error) {
	gemini, err := llm.NewGeminiClient(ctx, llm.GeminiConfig{
		APIKey:          cfg.LLM.APIKey,
		Model:           cfg.LLM.Model,
		BaseURL:         cfg.LLM.BaseURL,
		Temperature:     float32(cfg.LLM.Temperature),
		MaxOutputTokens: int32(cfg.LLM.MaxOutputTokens),
		Timeout:         cfg.LLM.Timeout,
	})
	if err != nil {
		return nil, nil, err
	}

	limiter := llm.NewLimiter(gemini, cfg.LLM.MaxConcurrent, cfg.LLM.MaxWait)

	a, err := agent.New(limiter, prompts, agent.WithMaxDays(cfg.Generation.MaxTargetDays))
	if err != nil {
		return nil, nil, err
	}

	slog.Info("generation agent ready",
		"model", gemini.Model(),
		"max_concurrent", cfg.LLM.MaxConcurrent,
		"max_target_days", cfg.Generation.MaxTargetDays,
	)
	return a, gemini, nil
}
