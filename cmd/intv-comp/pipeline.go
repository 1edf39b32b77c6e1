package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/stphegia-org/intv-comp/internal/citation"
	"github.com/stphegia-org/intv-comp/internal/config"
	"github.com/stphegia-org/intv-comp/internal/metrics"
	"github.com/stphegia-org/intv-comp/internal/openai"
	"github.com/stphegia-org/intv-comp/internal/relevance"
	"github.com/stphegia-org/intv-comp/internal/store"
)

// pipeline bundles the collaborators shared by the analyze and serve commands.
type pipeline struct {
	llm     *openai.Client
	filter  *relevance.Filter
	repo    *citation.Repository
	store   *store.Store
	metrics *metrics.Metrics
}

func buildPipeline(ctx context.Context, cfg config.Config, logger *slog.Logger) (*pipeline, error) {
	if cfg.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}

	scoringCfg := relevance.DefaultScoringConfig()
	if cfg.ScoringConfigPath != "" {
		var err error
		scoringCfg, err = relevance.LoadScoringConfig(cfg.ScoringConfigPath)
		if err != nil {
			return nil, err
		}
	}
	scorer, err := relevance.NewScorer(scoringCfg)
	if err != nil {
		return nil, err
	}

	repo, err := citation.Load(cfg.ExternalSourcesPath, logger)
	if err != nil {
		return nil, err
	}

	p := &pipeline{
		llm:     openai.New(cfg.OpenAIAPIKey, cfg.OpenAIModel, logger),
		filter:  relevance.NewFilter(scorer, logger),
		repo:    repo,
		metrics: metrics.New(),
	}

	// Auditing is optional; without a database the analyzer and API degrade
	// to running without run history.
	if cfg.DatabaseURL != "" {
		st, err := store.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := st.EnsureSchema(ctx); err != nil {
			st.Close()
			return nil, err
		}
		logger.Info("database connected, run auditing enabled")
		p.store = st
	} else {
		logger.Info("DATABASE_URL not set, run auditing disabled")
	}

	return p, nil
}

func (p *pipeline) close() {
	if p.store != nil {
		p.store.Close()
	}
}
