package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"SemaforoBot/internal/domain/models"
	"SemaforoBot/internal/domain/repository"
	"SemaforoBot/pkg/logger"
)

// Analyzer orchestrates a full semaphore run: fetch metrics for each asset,
// classify, aggregate, cache and publish. Assets are fetched and classified
// concurrently; aggregation waits for all of them.
type Analyzer struct {
	source     repository.MetricSource
	analysis   repository.AnalysisStore
	history    repository.HistoryStore
	publisher  repository.Publisher
	classifier Classifier
	aggregator Aggregator
	params     *ParamsHolder
	metrics    repository.Metrics
	log        *logger.Logger
}

func NewAnalyzer(source repository.MetricSource, analysis repository.AnalysisStore, history repository.HistoryStore, publisher repository.Publisher, params *ParamsHolder, metrics repository.Metrics, log *logger.Logger) *Analyzer {
	return &Analyzer{
		source:     source,
		analysis:   analysis,
		history:    history,
		publisher:  publisher,
		classifier: NewClassifier(),
		aggregator: NewAggregator(),
		params:     params,
		metrics:    metrics,
		log:        log,
	}
}

// Analyze runs the semaphore over the requested assets, or over the
// configured default set when the list is empty. Cached assessments are
// reused inside their TTL unless forceRefresh is set. If any asset fails the
// whole run fails; a partial semaphore would report a color the failed asset
// might have overridden.
func (a *Analyzer) Analyze(ctx context.Context, assets []string, forceRefresh bool) (*models.SemaphoreState, error) {
	params := a.params.Current()
	if len(assets) == 0 {
		assets = params.DefaultAssets
	}
	if len(assets) == 0 {
		return nil, models.ErrNoAssets
	}

	start := time.Now()
	results := make([]*models.RiskAssessment, len(assets))
	errs := make([]error, len(assets))

	var wg sync.WaitGroup
	for i, asset := range assets {
		wg.Add(1)
		go func(i int, asset string) {
			defer wg.Done()
			results[i], errs[i] = a.assess(ctx, asset, forceRefresh, params)
		}(i, asset)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			a.metrics.RecordError("analysis")
			return nil, fmt.Errorf("analyze %s: %w", assets[i], err)
		}
	}

	state, err := a.aggregator.Aggregate(results, params)
	if err != nil {
		return nil, err
	}
	a.metrics.RecordSemaphore(state.Color)
	a.metrics.RecordLatency("analyze", time.Since(start).Seconds())

	if a.publisher != nil {
		if err := a.publisher.PublishSemaphore(ctx, state); err != nil {
			a.metrics.RecordError("publish")
			a.log.Warn("semaphore publish failed", logger.Error(err))
		}
	}

	a.log.Info("semaphore computed",
		logger.String("color", string(state.Color)),
		logger.Int("assets", len(assets)),
		logger.Duration("took", time.Since(start)))
	return state, nil
}

// Assess returns a single asset's assessment, serving from cache when fresh.
func (a *Analyzer) Assess(ctx context.Context, asset string, forceRefresh bool) (*models.RiskAssessment, error) {
	return a.assess(ctx, asset, forceRefresh, a.params.Current())
}

func (a *Analyzer) assess(ctx context.Context, asset string, forceRefresh bool, params *models.RiskParams) (*models.RiskAssessment, error) {
	if !forceRefresh && a.analysis != nil {
		cached, err := a.analysis.GetAssessment(ctx, asset)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, models.ErrNotFound) {
			a.log.Warn("assessment cache read failed",
				logger.String("asset", asset), logger.Error(err))
		}
	}

	tf := repository.DefaultTimeframe()
	if ap, ok := params.Assets[asset]; ok && ap.DefaultTimeframe != "" {
		tf = repository.Timeframe(ap.DefaultTimeframe)
	}

	m, err := a.source.Fetch(ctx, asset, tf)
	if err != nil {
		return nil, err
	}
	assessment, err := a.classifier.Classify(m, params)
	if err != nil {
		return nil, err
	}
	a.metrics.RecordAnalysis(asset, assessment.Color)

	if a.analysis != nil {
		if err := a.analysis.SaveAssessment(ctx, assessment, params.AnalysisCacheTTL); err != nil {
			a.log.Warn("assessment cache write failed",
				logger.String("asset", asset), logger.Error(err))
		}
	}
	if a.history != nil {
		if err := a.history.ArchiveAssessment(ctx, assessment); err != nil {
			a.metrics.RecordError("archive")
			a.log.Warn("assessment archive failed",
				logger.String("asset", asset), logger.Error(err))
		}
	}
	return assessment, nil
}
