package models

// Requests for the HTTP endpoints. Defined in domain for consistency and reuse.

type AnalyzeRequest struct {
	Assets       []string `json:"assets"`
	ForceRefresh bool     `json:"force_refresh" default:"false"`
}

type TradeRequest struct {
	Asset     string  `json:"asset" validate:"required,alphanum,uppercase"`
	Timeframe string  `json:"timeframe" default:"4h" validate:"oneof=1h 4h 1d"`
	Duration  string  `json:"duration" default:"24h"`
	Leverage  float64 `json:"leverage" default:"1" validate:"gte=1,lte=20"`
}

// ConfirmRequest identifies a trade; empty TradeID means "most recent pending".
type ConfirmRequest struct {
	TradeID string `json:"trade_id"`
}

type CloseRequest struct {
	Reason string `json:"reason" default:"manual" validate:"oneof=manual stoploss takeprofit"`
}

type ConfigRequest struct {
	StopLossPct     *float64 `json:"stoploss_percent" validate:"omitempty,gt=0,lte=20"`
	TakeProfitPct   *float64 `json:"takeprofit_percent" validate:"omitempty,gt=0,lte=50"`
	MaxTrades       *int     `json:"max_trades" validate:"omitempty,gte=1,lte=20"`
	GreenMax        *float64 `json:"green_max" validate:"omitempty,gt=0,lt=100"`
	YellowMax       *float64 `json:"yellow_max" validate:"omitempty,gt=0,lte=100"`
	AllowRedEntries *bool    `json:"allow_red_entries"`
}

// Override converts the request body into the domain override.
func (r *ConfigRequest) Override() ParamsOverride {
	return ParamsOverride{
		StopLossPct:     r.StopLossPct,
		TakeProfitPct:   r.TakeProfitPct,
		MaxTrades:       r.MaxTrades,
		GreenMax:        r.GreenMax,
		YellowMax:       r.YellowMax,
		AllowRedEntries: r.AllowRedEntries,
	}
}
