package usecase

import (
	"context"
	"fmt"

	domrepo "PolyCorr/internal/domain/repository"
	"PolyCorr/internal/engine"
	xlogger "PolyCorr/pkg/logger"
	"PolyCorr/pkg/queue"
)

// AutoDetectPayload parameterizes one relation sweep.
type AutoDetectPayload struct {
	MinSharedKeywords int `json:"min_shared_keywords"`
}

// AutoDetectJob sweeps the market catalog and infers keyword relations.
// It runs as a queue job so sweeps can be scheduled or triggered over the
// API without blocking the request.
type AutoDetectJob struct {
	eng     *engine.Engine
	catalog domrepo.MarketCatalog
	logger  *xlogger.Logger

	defaultMinShared int
}

func NewAutoDetectJob(eng *engine.Engine, catalog domrepo.MarketCatalog, l *xlogger.Logger, defaultMinShared int) *AutoDetectJob {
	if defaultMinShared <= 0 {
		defaultMinShared = 2
	}
	return &AutoDetectJob{eng: eng, catalog: catalog, logger: l, defaultMinShared: defaultMinShared}
}

func (j *AutoDetectJob) Name() string { return "relation_autodetect" }
func (j *AutoDetectJob) Type() string { return "autodetect" }

func (j *AutoDetectJob) Handle(ctx context.Context, payload interface{}) error {
	minShared := j.defaultMinShared
	if payload != nil {
		p, err := queue.ParsePayload[AutoDetectPayload](payload)
		if err != nil {
			return fmt.Errorf("parse autodetect payload: %w", err)
		}
		if p.MinSharedKeywords > 0 {
			minShared = p.MinSharedKeywords
		}
	}

	markets, err := j.catalog.ActiveMarkets(ctx)
	if err != nil {
		return fmt.Errorf("load markets: %w", err)
	}
	added := j.eng.AutoDetectRelations(markets, minShared)
	j.logger.Info("relation sweep finished",
		xlogger.Int("markets", len(markets)),
		xlogger.Int("relations_added", len(added)),
		xlogger.Int("min_shared_keywords", minShared),
	)
	return nil
}
