package cmd

import (
	"context"
	"fmt"

	"github.com/mohammad-safakhou/sleuth/config"
	"github.com/mohammad-safakhou/sleuth/internal/action"
	"github.com/mohammad-safakhou/sleuth/internal/budget"
	"github.com/mohammad-safakhou/sleuth/internal/extract"
	"github.com/mohammad-safakhou/sleuth/internal/judge"
	"github.com/mohammad-safakhou/sleuth/internal/run"
	"github.com/mohammad-safakhou/sleuth/internal/supervisor"
	"github.com/mohammad-safakhou/sleuth/provider"
	openai_provider "github.com/mohammad-safakhou/sleuth/provider/openai"
)

// buildController assembles the full stack over the given snapshot store.
func buildController(cfg *config.Config, store run.Store) (*supervisor.Controller, error) {
	registry, err := action.NewDefaultRegistry(cfg)
	if err != nil {
		return nil, fmt.Errorf("building action registry: %w", err)
	}

	var llm provider.LLM = openai_provider.NewClient(
		cfg.LLM.APIKey,
		cfg.LLM.BaseURL,
		cfg.LLM.Temperature,
		cfg.Judge.MaxTokens,
		cfg.LLM.MaxRetries,
		cfg.LLM.Timeout,
	)

	tracker := budget.NewTracker(cfg.Research.MaxBudget, cfg.Research.ImageReserve)

	extractor := extract.New(extract.NewLLMTopUp(llm, cfg.LLM.Routing.Extraction, cfg.General.DefaultTimeout))

	evaluators := make([]judge.Evaluator, 0, len(cfg.Judge.CommitteeModels))
	for _, model := range cfg.Judge.CommitteeModels {
		evaluators = append(evaluators, judge.NewLLMEvaluator(llm, model, 1.0, cfg.Judge.EvaluatorTimeout))
	}
	engine := judge.NewEngine(judge.Config{
		SelfConsistencyRuns: cfg.Judge.SelfConsistencyRuns,
		EnableSwap:          cfg.Judge.EnableSwap,
		EnableRouter:        cfg.Judge.EnableRouter,
		RouterTopK:          cfg.Judge.RouterTopK,
		CostCoefficient:     cfg.Judge.CostCoefficient,
		PauseThreshold:      cfg.Judge.PauseThreshold,
		BiasAlarmThreshold:  cfg.Judge.BiasAlarmThreshold,
		EnableCalibration:   cfg.Judge.EnableCalibration,
	}, evaluators)

	planner := supervisor.NewLLMPlanner(llm, cfg.LLM.Routing.Planning, registry.Catalog(), cfg.LLM.Timeout)

	sup := supervisor.New(registry, tracker, extractor, engine, planner,
		cfg.Research.ActionTimeout, cfg.Research.MaxActionsPerTurn)

	return supervisor.NewController(sup, store, tracker, cfg.Research.MaxTurns, llm, cfg.LLM.Routing.Brief), nil
}

// openStore connects to redis, or falls back to memory when no address is
// configured (useful for one-shot CLI runs).
func openStore(ctx context.Context, cfg *config.Config) (run.Store, error) {
	if cfg.Storage.RedisAddr == "" {
		return run.NewMemoryStore(), nil
	}
	return run.NewRedisStore(ctx, cfg.Storage.RedisAddr, cfg.Storage.RedisPassword, cfg.Storage.RedisDB, cfg.Storage.SnapshotTTL)
}
