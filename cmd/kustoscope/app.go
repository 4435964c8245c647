package main

import (
	"context"
	"fmt"
	"os"
	"sync"

	"kustoscope/internal/analysis"
	"kustoscope/internal/config"
	"kustoscope/internal/executor"
	"kustoscope/internal/provider"
	"kustoscope/internal/refine"
	"kustoscope/internal/schema"
	"kustoscope/internal/types"
)

// app bundles the wired components behind every subcommand: config,
// provider client, generator, analysis engine, local store, and the
// schema catalog with its file watcher.
type app struct {
	cfg       *config.Config
	generator *provider.Generator
	engine    *analysis.Engine
	store     *executor.Local

	mu      sync.RWMutex
	catalog *schema.Catalog
	watcher *schema.Watcher
}

// newApp wires the application from workspace config and global flags.
// needsLLM is false for commands that never call the provider, so they
// work without an API key.
func newApp(ctx context.Context, needsLLM bool) (*app, error) {
	ws := resolveWorkspace()
	cfg, err := config.Load(ws)
	if err != nil {
		return nil, err
	}
	if apiKey != "" {
		cfg.LLM.APIKey = apiKey
	}

	a := &app{cfg: cfg}

	if needsLLM {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		client, err := provider.NewClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		a.generator = provider.NewGenerator(client)
		a.engine = analysis.NewEngine(client,
			analysis.WithThresholds(thresholdsFromConfig(cfg)),
			analysis.WithMaxSampleRows(cfg.Analysis.MaxSampleRows),
		)
	} else {
		a.engine = analysis.NewEngine(nil,
			analysis.WithThresholds(thresholdsFromConfig(cfg)),
		)
	}

	store, err := executor.OpenLocal(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}
	a.store = store

	a.catalog = loadCatalog(cfg.SchemaPath)
	if w, err := schema.NewWatcher(cfg.SchemaPath, a.setCatalog); err == nil {
		if err := w.Start(ctx); err == nil {
			a.watcher = w
		}
	}

	return a, nil
}

// loadCatalog falls back to the built-in catalog when no schema file
// exists; `kustoscope seed` writes one.
func loadCatalog(path string) *schema.Catalog {
	if _, err := os.Stat(path); err != nil {
		return schema.Default()
	}
	cat, err := schema.Load(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, renderWarning(fmt.Sprintf("ignoring schema file: %v", err)))
		return schema.Default()
	}
	return cat
}

func thresholdsFromConfig(cfg *config.Config) analysis.Thresholds {
	th := analysis.DefaultThresholds()
	if cfg.Analysis.OutlierSigma > 0 {
		th.OutlierSigma = cfg.Analysis.OutlierSigma
	}
	if cfg.Analysis.GapFactor > 0 {
		th.GapFactor = cfg.Analysis.GapFactor
	}
	return th
}

func (a *app) setCatalog(c *schema.Catalog) {
	a.mu.Lock()
	a.catalog = c
	a.mu.Unlock()
}

func (a *app) schemaPrompt() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.catalog.Prompt()
}

func (a *app) sessionOptions() refine.Options {
	return refine.Options{
		MaxRegenerationAttempts: a.cfg.Refine.MaxRegenerationAttempts,
		ConfidenceThreshold:     a.cfg.Refine.ConfidenceThreshold,
		Explain: types.ExplainOptions{
			Language:        a.cfg.Explain.Language,
			TechnicalLevel:  a.cfg.Explain.TechnicalLevel,
			IncludeExamples: a.cfg.Explain.IncludeExamples,
		},
		Schema: a.schemaPrompt(),
	}
}

func (a *app) close() {
	if a.watcher != nil {
		a.watcher.Stop()
	}
	if a.store != nil {
		_ = a.store.Close()
	}
}
