package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"SemaforoBot/internal/domain/models"
	domrepo "SemaforoBot/internal/domain/repository"
	"SemaforoBot/pkg/clickhouse"
)

// Schema statements applied at startup; both are idempotent.
var historySchema = []string{
	`CREATE TABLE IF NOT EXISTS risk_assessments (
		asset        String,
		score        Float64,
		color        LowCardinality(String),
		long_prob    UInt8,
		short_prob   UInt8,
		risk_factors UInt8,
		price        Float64,
		volatility   Float64,
		components   String,
		ts           DateTime64(3, 'UTC')
	) ENGINE = MergeTree()
	PARTITION BY toYYYYMM(ts)
	ORDER BY (asset, ts)
	TTL toDateTime(ts) + INTERVAL 90 DAY`,
	`CREATE TABLE IF NOT EXISTS trades (
		trade_id     String,
		asset        String,
		direction    LowCardinality(String),
		status       LowCardinality(String),
		entry_price  Float64,
		stoploss     Float64,
		takeprofit   Float64,
		risk_reward  Float64,
		confidence   Float64,
		leverage     Float64,
		risk_color   LowCardinality(String),
		close_reason LowCardinality(String),
		created_at   DateTime64(3, 'UTC'),
		closed_at    Nullable(DateTime64(3, 'UTC'))
	) ENGINE = MergeTree()
	PARTITION BY toYYYYMM(created_at)
	ORDER BY (asset, created_at)`,
}

// ClickHouseHistory archives assessments and finished trades for offline
// analysis. Writes are fire-and-forget from the caller's point of view.
type ClickHouseHistory struct {
	client *clickhouse.Client
}

func NewClickHouseHistory(ctx context.Context, client *clickhouse.Client) (*ClickHouseHistory, error) {
	if err := client.InitSchema(ctx, historySchema); err != nil {
		return nil, fmt.Errorf("history schema: %w", err)
	}
	return &ClickHouseHistory{client: client}, nil
}

var _ domrepo.HistoryStore = (*ClickHouseHistory)(nil)

func (h *ClickHouseHistory) ArchiveAssessment(ctx context.Context, a *models.RiskAssessment) error {
	components, err := json.Marshal(a.Components)
	if err != nil {
		return fmt.Errorf("marshal components: %w", err)
	}
	_, err = h.client.DB().ExecContext(ctx,
		`INSERT INTO risk_assessments
			(asset, score, color, long_prob, short_prob, risk_factors, price, volatility, components, ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.Asset, a.Score, string(a.Color), uint8(a.LongProb), uint8(a.ShortProb),
		uint8(a.RiskFactors), a.Price, a.Volatility, string(components), a.Timestamp)
	if err != nil {
		return fmt.Errorf("insert assessment: %w", err)
	}
	return nil
}

func (h *ClickHouseHistory) ArchiveTrade(ctx context.Context, t *models.Trade) error {
	var closedAt *time.Time
	if t.ClosedAt != nil {
		utc := t.ClosedAt.UTC()
		closedAt = &utc
	}
	_, err := h.client.DB().ExecContext(ctx,
		`INSERT INTO trades
			(trade_id, asset, direction, status, entry_price, stoploss, takeprofit,
			 risk_reward, confidence, leverage, risk_color, close_reason, created_at, closed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Asset, string(t.Direction), string(t.Status), t.EntryPrice, t.StopLoss,
		t.TakeProfit, t.RiskReward, t.Confidence, t.Leverage, string(t.RiskColor),
		t.CloseReason, t.CreatedAt, closedAt)
	if err != nil {
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}
