package main

import (
	"context"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/dshills/deepresearch/config"
	"github.com/dshills/deepresearch/fetch"
	"github.com/dshills/deepresearch/graph"
	"github.com/dshills/deepresearch/graph/emit"
	"github.com/dshills/deepresearch/graph/store"
	"github.com/dshills/deepresearch/memory"
	"github.com/dshills/deepresearch/model"
	"github.com/dshills/deepresearch/research"
	"github.com/dshills/deepresearch/search"
	"github.com/dshills/deepresearch/server"
)

var rootCmd = &cobra.Command{
	Use:   "researchd",
	Short: "Multi-step research workflow service",
	Long: `researchd runs research queries through a planning, search,
analysis, synthesis workflow with checkpointed state, per-user memory,
and streaming delivery. It serves HTTP or answers one-shot queries
from the command line.`,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "path to config file (default: config.json in ./config or .)")
}

// app is everything the commands need, wired from configuration.
type app struct {
	cfg      *config.Config
	workflow *research.Workflow
	memory   *memory.Manager
	health   server.Health
	registry *prometheus.Registry
	closers  []func() error
}

// buildApp assembles the workflow and its collaborators from config.
func buildApp(ctx context.Context, cfgPath string) (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	emitter := emit.NewLogEmitter(os.Stdout, cfg.Log.JSON)

	chatModel, err := model.New(ctx, model.Config{
		Provider: cfg.LLM.Provider,
		APIKey:   cfg.LLM.APIKey,
		Model:    cfg.LLM.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("llm: %w", err)
	}

	searcher, err := search.New(search.Config{
		Provider: cfg.Search.Provider,
		APIKey:   cfg.Search.APIKey,
		Timeout:  cfg.Search.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	fetcher := fetch.NewFetcher(cfg.Fetch.Timeout, cfg.Fetch.MaxChars)

	st, err := store.Open[research.State](store.Config{
		Backend:       cfg.Store.Backend,
		SQLitePath:    cfg.Store.SQLitePath,
		PostgresDSN:   cfg.Store.PostgresDSN,
		RedisAddr:     cfg.Store.RedisAddr,
		RedisPassword: cfg.Store.RedisPassword,
		RedisDB:       cfg.Store.RedisDB,
		RedisTTL:      cfg.Store.RedisTTL,
	}, emitter)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}

	mem, err := memory.Open(memory.Config{
		Backend:     cfg.Memory.Backend,
		PostgresDSN: cfg.Memory.PostgresDSN,
		OpenAIKey:   cfg.Memory.OpenAIKey,
	}, emitter)
	if err != nil {
		return nil, fmt.Errorf("memory: %w", err)
	}

	registry := prometheus.NewRegistry()
	metrics := graph.NewMetrics(registry)

	workflow := research.NewWorkflow(research.Deps{
		Model:    chatModel,
		Searcher: searcher,
		Fetcher:  fetcher,
		Store:    st.Store,
		Memory:   mem.Manager,
		Emitter:  emitter,
		Metrics:  metrics,
		Options: research.Options{
			MaxIterations: cfg.Workflow.MaxIterations,
			ChunkSize:     cfg.Workflow.ChunkSize,
			ChunkDelay:    cfg.Workflow.ChunkDelay,
			NodeTimeout:   cfg.Workflow.NodeTimeout,
		},
	})

	a := &app{
		cfg:      cfg,
		workflow: workflow,
		memory:   mem.Manager,
		registry: registry,
		health: server.Health{
			LLMProvider:    cfg.LLM.Provider,
			SearchProvider: cfg.Search.Provider,
			StoreBackend:   st.Backend,
			StoreDegraded:  st.Degraded,
			MemoryBackend:  mem.Backend,
			MemoryDegraded: mem.Degraded,
		},
	}
	if closer, ok := st.Store.(interface{ Close() error }); ok {
		a.closers = append(a.closers, closer.Close)
	}
	if closer, ok := chatModel.(interface{ Close() error }); ok {
		a.closers = append(a.closers, closer.Close)
	}
	return a, nil
}

func (a *app) close() {
	for _, c := range a.closers {
		_ = c()
	}
}
