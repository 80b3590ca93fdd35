package repository

import (
	"context"
	"time"

	"SemaforoBot/internal/domain/models"
)

// MetricSource supplies raw per-asset market snapshots. Implementations must
// surface connectivity failures as models.ErrSourceUnavailable; the classifier
// never substitutes stale or synthetic data.
type MetricSource interface {
	Fetch(ctx context.Context, asset string, timeframe Timeframe) (*models.AssetMetrics, error)
}

// TradeStore is the durable record of trades. Implementations must provide
// read-your-writes consistency within the process and map connectivity
// failures to models.ErrStoreUnavailable.
type TradeStore interface {
	// Save persists the full trade record, creating or replacing it, and
	// keeps the open-trade index consistent with the record's status.
	Save(ctx context.Context, t *models.Trade) error
	Get(ctx context.Context, id string) (*models.Trade, error)
	// ListOpen returns all trades currently counting against the concurrency
	// cap (active plus pending_confirmation), in no particular order.
	ListOpen(ctx context.Context) ([]*models.Trade, error)
	// MoveToHistory removes a finished trade from the open index and keeps
	// its record with a bounded retention.
	MoveToHistory(ctx context.Context, t *models.Trade, retention time.Duration) error
	// Delete removes a trade record and its index entry entirely. Used to
	// undo a half-completed proposal; finished trades go through
	// MoveToHistory instead.
	Delete(ctx context.Context, id string) error

	PendingID(ctx context.Context) (string, error)
	SetPendingID(ctx context.Context, id string) error
	ClearPending(ctx context.Context) error

	// TryLock serializes transitions per trade id across processes.
	TryLock(ctx context.Context, id string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, id string) error
}

// AnalysisStore caches the latest per-asset assessment and remembers applied
// config overrides across restarts.
type AnalysisStore interface {
	SaveAssessment(ctx context.Context, a *models.RiskAssessment, ttl time.Duration) error
	// GetAssessment returns models.ErrNotFound when no fresh assessment exists.
	GetAssessment(ctx context.Context, asset string) (*models.RiskAssessment, error)
	SaveOverride(ctx context.Context, o models.ParamsOverride) error
	GetOverride(ctx context.Context) (models.ParamsOverride, error)
}

// HistoryStore is an append-only archive of assessments and finished trades.
type HistoryStore interface {
	ArchiveAssessment(ctx context.Context, a *models.RiskAssessment) error
	ArchiveTrade(ctx context.Context, t *models.Trade) error
}

// Publisher emits domain events to an external bus.
type Publisher interface {
	PublishTradeEvent(ctx context.Context, event string, t *models.Trade) error
	PublishSemaphore(ctx context.Context, s *models.SemaphoreState) error
	Close() error
}

// Metrics records operational telemetry.
type Metrics interface {
	RecordAnalysis(asset string, color models.Color)
	RecordSemaphore(color models.Color)
	RecordTransition(status models.TradeStatus)
	RecordError(kind string)
	SetActiveTrades(n int)
	RecordLatency(op string, seconds float64)
}
