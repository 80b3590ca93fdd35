package repository

import (
	"context"

	"SemaforoBot/internal/domain/models"
	domrepo "SemaforoBot/internal/domain/repository"
)

// No-op implementations used when an optional backend is disabled in config.
// Wiring stays uniform; disabled backends simply do nothing.

type NopPublisher struct{}

func (NopPublisher) PublishTradeEvent(context.Context, string, *models.Trade) error { return nil }
func (NopPublisher) PublishSemaphore(context.Context, *models.SemaphoreState) error { return nil }
func (NopPublisher) Close() error                                                   { return nil }

type NopHistory struct{}

func (NopHistory) ArchiveAssessment(context.Context, *models.RiskAssessment) error { return nil }
func (NopHistory) ArchiveTrade(context.Context, *models.Trade) error               { return nil }

type NopMetrics struct{}

func (NopMetrics) RecordAnalysis(string, models.Color)       {}
func (NopMetrics) RecordSemaphore(models.Color)              {}
func (NopMetrics) RecordTransition(models.TradeStatus)       {}
func (NopMetrics) RecordError(string)                        {}
func (NopMetrics) SetActiveTrades(int)                       {}
func (NopMetrics) RecordLatency(string, float64)             {}

var (
	_ domrepo.Publisher    = NopPublisher{}
	_ domrepo.HistoryStore = NopHistory{}
	_ domrepo.Metrics      = NopMetrics{}
)
