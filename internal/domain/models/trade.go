package models

import "time"

// Direction of a trade.
type Direction string

const (
	DirectionLong  Direction = "long"
	DirectionShort Direction = "short"
)

// TradeStatus is the lifecycle state of a trade.
type TradeStatus string

const (
	StatusPendingConfirmation TradeStatus = "pending_confirmation"
	StatusActive              TradeStatus = "active"
	StatusClosed              TradeStatus = "closed"
	StatusRejected            TradeStatus = "rejected"
)

// Close reasons stamped by the state machine.
const (
	CloseReasonManual     = "manual"
	CloseReasonStopLoss   = "stoploss"
	CloseReasonTakeProfit = "takeprofit"
)

// TradeProposal is the output of the entry optimizer. Immutable once created;
// it becomes tracked state only when promoted through the state machine.
type TradeProposal struct {
	Asset         string    `json:"asset"`
	Timeframe     string    `json:"timeframe"`
	Duration      string    `json:"duration"`
	Direction     Direction `json:"direction"`
	EntryPrice    float64   `json:"entry_price"`
	StopLoss      float64   `json:"stoploss"`
	TakeProfit    float64   `json:"takeprofit"`
	StopLossPct   float64   `json:"stoploss_percent"`
	TakeProfitPct float64   `json:"takeprofit_percent"`
	RiskReward    float64   `json:"risk_reward_ratio"`
	Confidence    float64   `json:"confidence"`
	Leverage      float64   `json:"leverage"`
	RiskColor     Color     `json:"risk_color"`
}

// Trade is a confirmed proposal promoted to tracked state. Owned exclusively
// by the trade state machine; mutated only through its transitions.
type Trade struct {
	ID string `json:"trade_id"`
	TradeProposal
	Status      TradeStatus `json:"status"`
	CreatedAt   time.Time   `json:"created_at"`
	ConfirmedAt *time.Time  `json:"confirmed_at,omitempty"`
	ClosedAt    *time.Time  `json:"closed_at,omitempty"`
	CloseReason string      `json:"close_reason,omitempty"`
}

// Open reports whether the trade counts against the concurrency cap.
func (t *Trade) Open() bool {
	return t.Status == StatusActive || t.Status == StatusPendingConfirmation
}
