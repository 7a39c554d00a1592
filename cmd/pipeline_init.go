package main

import (
	"context"
	"math/rand"
	"time"

	"github.com/rotisserie/eris"

	"github.com/atlas-supply/risk-cli/internal/config"
	"github.com/atlas-supply/risk-cli/internal/features"
	"github.com/atlas-supply/risk-cli/internal/pipeline"
	"github.com/atlas-supply/risk-cli/internal/risk"
	"github.com/atlas-supply/risk-cli/internal/store"
)

// pipelineEnv bundles the shared resources a command needs.
type pipelineEnv struct {
	Store    store.Store
	Pipeline *pipeline.Pipeline
}

func (e *pipelineEnv) Close() {
	_ = e.Store.Close()
}

// initPipeline wires the risk provider, feature builder, and run store
// from configuration.
func initPipeline(ctx context.Context, cfg *config.Config) (*pipelineEnv, error) {
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, eris.Wrap(err, "init store")
	}

	riskOpts := []risk.Option{
		risk.WithWeatherAPI(cfg.Weather.BaseURL, cfg.Weather.Key),
		risk.WithConflictAPI(cfg.Conflict.BaseURL, cfg.Conflict.Key),
		risk.WithRateLimits(cfg.Weather.RPS, cfg.Conflict.RPS),
		risk.WithTimeouts(
			time.Duration(cfg.Weather.TimeoutSecs)*time.Second,
			time.Duration(cfg.Conflict.TimeoutSecs)*time.Second,
		),
	}
	opts := []features.Option{features.WithNoise(cfg.Features.Noise)}
	if cfg.Features.Seed != 0 {
		riskOpts = append(riskOpts, risk.WithRand(rand.New(rand.NewSource(cfg.Features.Seed))))
		opts = append(opts, features.WithRand(rand.New(rand.NewSource(cfg.Features.Seed))))
	}

	provider := risk.NewClient(riskOpts...)
	builder := features.NewBuilder(provider, opts...)

	return &pipelineEnv{
		Store:    st,
		Pipeline: pipeline.New(cfg, st, builder),
	}, nil
}
