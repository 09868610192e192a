package main

import (
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/smithisrealdev/aigo-engine/internal/config"
	"github.com/smithisrealdev/aigo-engine/internal/fallback"
	"github.com/smithisrealdev/aigo-engine/internal/llm"
	"github.com/smithisrealdev/aigo-engine/internal/llm/providers"
	"github.com/smithisrealdev/aigo-engine/internal/observability"
	"github.com/smithisrealdev/aigo-engine/internal/planner"
	"github.com/smithisrealdev/aigo-engine/internal/progress"
	"github.com/smithisrealdev/aigo-engine/internal/queue"
	"github.com/smithisrealdev/aigo-engine/internal/replan"
	"github.com/smithisrealdev/aigo-engine/internal/service"
	"github.com/smithisrealdev/aigo-engine/internal/store"
	"github.com/smithisrealdev/aigo-engine/internal/tool"
	"github.com/smithisrealdev/aigo-engine/internal/tool/builtins"
)

// runtime bundles everything a command needs to operate the engine.
type runtime struct {
	engine  *service.Engine
	store   store.VersionStore
	logger  *slog.Logger
	metrics *observability.Metrics

	closers []func()
}

func (rt *runtime) close() {
	rt.engine.Close()
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
}

// buildRuntime wires the engine from loaded configuration.
func buildRuntime(cfg *config.Config) (*runtime, error) {
	logger := observability.NewLogger(observability.LogConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics()
	}

	provider, err := providers.New(llm.Config{
		Type:        cfg.LLM.Provider,
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	})
	if err != nil {
		return nil, err
	}

	reg := tool.NewRegistry()
	if err := builtins.RegisterAll(reg); err != nil {
		return nil, err
	}

	synth := fallback.NewSynthesizer(provider,
		fallback.WithModel(cfg.LLM.Model),
		fallback.WithLogger(logger))

	callerOpts := []tool.CallerOption{
		tool.WithTimeout(cfg.Tools.CallTimeout),
		tool.WithLogger(logger),
	}
	if metrics != nil {
		callerOpts = append(callerOpts, tool.WithMetrics(metrics))
	}
	toolHealth := tool.NewHealthTracker(cfg.Tools.BypassThreshold)
	caller := tool.NewCaller(reg, toolHealth, synth, callerOpts...)

	rt := &runtime{logger: logger, metrics: metrics}

	var st store.VersionStore
	switch cfg.Store.Driver {
	case "sqlite":
		st, err = store.OpenSQLite(cfg.Store.Path)
		if err != nil {
			return nil, err
		}
	default:
		st = store.NewMemoryStore()
	}
	rt.store = st
	rt.closers = append(rt.closers, func() { _ = st.Close() })

	var substrate progress.Substrate
	if cfg.Progress.Backend == "redis" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Progress.RedisAddr,
			Password: cfg.Progress.RedisPassword,
			DB:       cfg.Progress.RedisDB,
		})
		rt.closers = append(rt.closers, func() { _ = client.Close() })
		substrate = progress.NewRedisSubstrate(client)
	} else {
		substrate = progress.NewMemorySubstrate()
	}

	trackerOpts := []progress.TrackerOption{}
	if metrics != nil {
		trackerOpts = append(trackerOpts, progress.WithMetrics(metrics))
	}
	tracker := progress.NewTracker(substrate, trackerOpts...)

	queueOpts := []queue.Option{
		queue.WithWorkers(cfg.Queue.Workers),
		queue.WithStaleAfter(cfg.Queue.StaleAfter),
		queue.WithLogger(logger),
	}
	if metrics != nil {
		queueOpts = append(queueOpts, queue.WithMetrics(metrics))
	}
	q := queue.New(queueOpts...)

	p := planner.New(provider, caller, st,
		planner.WithLogger(logger),
		planner.WithModel(cfg.LLM.Model),
		planner.WithMaxRetries(cfg.Core.MaxRetries))
	r := replan.New(provider, caller, st,
		replan.WithLogger(logger),
		replan.WithModel(cfg.LLM.Model),
		replan.WithMaxRetries(cfg.Core.MaxRetries))

	rt.engine = service.New(p, r, st, q, tracker,
		service.WithLogger(logger),
		service.WithHealth(provider, toolHealth))
	return rt, nil
}

func newRuntime() (*runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	return buildRuntime(cfg)
}
