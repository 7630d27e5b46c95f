package main

import (
	"fmt"
	"log"

	"github.com/ShayCichocki/euna/internal/agent"
	"github.com/ShayCichocki/euna/internal/config"
	"github.com/ShayCichocki/euna/internal/memory"
	"github.com/ShayCichocki/euna/internal/orchestrator"
	"github.com/ShayCichocki/euna/internal/reasoning"
	"github.com/ShayCichocki/euna/internal/store"
	"github.com/ShayCichocki/euna/internal/tools"
	"github.com/ShayCichocki/euna/internal/workflow"
)

// app bundles the wired-up engine for one CLI invocation.
type app struct {
	cfg          *config.Config
	db           *store.DB
	registry     *tools.Registry
	executor     *tools.Executor
	orchestrator *orchestrator.Orchestrator
	workflows    *workflow.Manager
}

// buildApp wires configuration, storage, tools, reasoning, and the
// orchestrator. Without an API key the deterministic offline reasoner is
// used so every command still works.
func buildApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	dbPath := cfg.Store.Path
	if dbPath == "" {
		dbPath = config.DefaultStorePath()
	}
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate store: %w", err)
	}

	registry := tools.NewRegistry()
	err = tools.RegisterDefaults(registry, tools.DefaultsConfig{
		HTTPTimeout:    cfg.Tools.HTTPTimeout,
		SearchEndpoint: cfg.Tools.SearchEndpoint,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("register tools: %w", err)
	}
	executor := tools.NewExecutor(registry, db, cfg.Tools.HistoryCap)

	var reasoner reasoning.Service
	if apiKey, keyErr := config.GetAPIKey(cfg); keyErr == nil {
		client, err := reasoning.NewClient(reasoning.ClientConfig{
			APIKey:    apiKey,
			Model:     cfg.Anthropic.Model,
			MaxTokens: cfg.Anthropic.MaxTokens,
			Retry: reasoning.RetryPolicy{
				MaxAttempts: cfg.Anthropic.MaxRetries,
				BaseDelay:   cfg.Anthropic.RetryBaseDelay,
			},
		})
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("reasoning client: %w", err)
		}
		reasoner = client
	} else {
		log.Printf("[euna] no API key configured, using offline reasoning")
		reasoner = reasoning.NewOffline()
	}

	memories := memory.NewStoreBacked(db)
	factory := agent.NewFactory(registry, executor, reasoner, db, cfg.Orchestrator.AgentHistoryCap)

	return &app{
		cfg:      cfg,
		db:       db,
		registry: registry,
		executor: executor,
		orchestrator: orchestrator.New(db, memories, reasoner, factory,
			cfg.Orchestrator.GraceWindow),
		workflows: workflow.NewManager(db, memories,
			cfg.Workflow.DefaultTimeout, cfg.Workflow.MaxConcurrentTasks),
	}, nil
}

func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
}
