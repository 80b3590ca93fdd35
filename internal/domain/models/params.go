package models

import "time"

// AssetParams holds per-asset tuning. Assets are pure config: the classifier
// and optimizer never branch on symbols.
type AssetParams struct {
	Symbol           string   `yaml:"symbol" json:"symbol"`
	DefaultTimeframe string   `yaml:"default_timeframe" json:"default_timeframe"`
	MinVolume        float64  `yaml:"min_volume" json:"min_volume"`
	VolatilityWeight float64  `yaml:"volatility_weight" json:"volatility_weight"`
	GreenMax         *float64 `yaml:"green_max,omitempty" json:"green_max,omitempty"`
	YellowMax        *float64 `yaml:"yellow_max,omitempty" json:"yellow_max,omitempty"`
}

// Weights are the per-metric contributions to the risk score. They should
// sum to 1; Normalize rescales if they do not.
type Weights struct {
	Funding      float64 `yaml:"funding" json:"funding"`
	OpenInterest float64 `yaml:"open_interest" json:"open_interest"`
	LongShort    float64 `yaml:"long_short" json:"long_short"`
	Liquidations float64 `yaml:"liquidations" json:"liquidations"`
	Volatility   float64 `yaml:"volatility" json:"volatility"`
}

// Sum returns the total weight mass.
func (w Weights) Sum() float64 {
	return w.Funding + w.OpenInterest + w.LongShort + w.Liquidations + w.Volatility
}

// RiskParams is the immutable, process-wide risk configuration snapshot.
// A reload produces a whole new snapshot; in-flight requests keep the one
// they started with.
type RiskParams struct {
	GreenMax  float64 `yaml:"green_max" json:"green_max"`
	YellowMax float64 `yaml:"yellow_max" json:"yellow_max"`

	Weights Weights `yaml:"weights" json:"weights"`

	Assets        map[string]AssetParams `yaml:"assets" json:"assets"`
	DefaultAssets []string               `yaml:"default_assets" json:"default_assets"`

	StopLossPct     float64 `yaml:"stoploss_percent" json:"stoploss_percent"`
	TakeProfitPct   float64 `yaml:"takeprofit_percent" json:"takeprofit_percent"`
	MinRiskReward   float64 `yaml:"min_risk_reward" json:"min_risk_reward"`
	MaxTrades       int     `yaml:"max_trades" json:"max_trades"`
	AllowRedEntries bool    `yaml:"allow_red_entries" json:"allow_red_entries"`

	AnalysisCacheTTL time.Duration `yaml:"analysis_cache_ttl" json:"analysis_cache_ttl"`
	HistoryTTL       time.Duration `yaml:"history_ttl" json:"history_ttl"`

	Recommendations map[Color]string `yaml:"recommendations" json:"recommendations"`
}

// DefaultRiskParams returns the baseline configuration.
func DefaultRiskParams() RiskParams {
	return RiskParams{
		GreenMax:  20,
		YellowMax: 50,
		Weights: Weights{
			Funding:      0.25,
			OpenInterest: 0.20,
			LongShort:    0.25,
			Liquidations: 0.20,
			Volatility:   0.10,
		},
		Assets: map[string]AssetParams{
			"BTC": {Symbol: "BTC", DefaultTimeframe: "4h", MinVolume: 100_000_000, VolatilityWeight: 1.0},
			"ETH": {Symbol: "ETH", DefaultTimeframe: "4h", MinVolume: 50_000_000, VolatilityWeight: 1.1},
			"SOL": {Symbol: "SOL", DefaultTimeframe: "4h", MinVolume: 10_000_000, VolatilityWeight: 1.3},
		},
		DefaultAssets:    []string{"BTC", "ETH", "SOL"},
		StopLossPct:      1.0,
		TakeProfitPct:    2.0,
		MinRiskReward:    1.5,
		MaxTrades:        3,
		AllowRedEntries:  false,
		AnalysisCacheTTL: 15 * time.Minute,
		HistoryTTL:       30 * 24 * time.Hour,
		Recommendations: map[Color]string{
			ColorGreen:  "Favorable conditions. Low risk.",
			ColorYellow: "Medium risk. Wait for confirmation or size down.",
			ColorRed:    "High risk. Do not trade, or use reduced size.",
		},
	}
}

// ThresholdsFor returns the color thresholds for an asset, applying per-asset
// overrides over the global defaults.
func (p *RiskParams) ThresholdsFor(asset string) (greenMax, yellowMax float64) {
	greenMax, yellowMax = p.GreenMax, p.YellowMax
	if ap, ok := p.Assets[asset]; ok {
		if ap.GreenMax != nil {
			greenMax = *ap.GreenMax
		}
		if ap.YellowMax != nil {
			yellowMax = *ap.YellowMax
		}
	}
	return greenMax, yellowMax
}

// VolatilityWeightFor returns the asset's volatility weight, defaulting to 1.
func (p *RiskParams) VolatilityWeightFor(asset string) float64 {
	if ap, ok := p.Assets[asset]; ok && ap.VolatilityWeight > 0 {
		return ap.VolatilityWeight
	}
	return 1.0
}

// Clone deep-copies the snapshot so the copy can be mutated and swapped in
// without aliasing the maps of the current one.
func (p *RiskParams) Clone() *RiskParams {
	next := *p
	next.Assets = make(map[string]AssetParams, len(p.Assets))
	for k, v := range p.Assets {
		if v.GreenMax != nil {
			g := *v.GreenMax
			v.GreenMax = &g
		}
		if v.YellowMax != nil {
			y := *v.YellowMax
			v.YellowMax = &y
		}
		next.Assets[k] = v
	}
	next.DefaultAssets = append([]string(nil), p.DefaultAssets...)
	next.Recommendations = make(map[Color]string, len(p.Recommendations))
	for k, v := range p.Recommendations {
		next.Recommendations[k] = v
	}
	return &next
}

// ParamsOverride is a partial reconfiguration request. Nil fields keep the
// current value. Persisted so overrides survive restarts.
type ParamsOverride struct {
	StopLossPct     *float64 `json:"stoploss_percent,omitempty"`
	TakeProfitPct   *float64 `json:"takeprofit_percent,omitempty"`
	MaxTrades       *int     `json:"max_trades,omitempty"`
	GreenMax        *float64 `json:"green_max,omitempty"`
	YellowMax       *float64 `json:"yellow_max,omitempty"`
	AllowRedEntries *bool    `json:"allow_red_entries,omitempty"`
	UpdatedAt       string   `json:"last_update,omitempty"`
}

// Empty reports whether the override changes nothing.
func (o ParamsOverride) Empty() bool {
	return o.StopLossPct == nil && o.TakeProfitPct == nil && o.MaxTrades == nil &&
		o.GreenMax == nil && o.YellowMax == nil && o.AllowRedEntries == nil
}

// Merge layers other on top of o, field by field.
func (o ParamsOverride) Merge(other ParamsOverride) ParamsOverride {
	if other.StopLossPct != nil {
		o.StopLossPct = other.StopLossPct
	}
	if other.TakeProfitPct != nil {
		o.TakeProfitPct = other.TakeProfitPct
	}
	if other.MaxTrades != nil {
		o.MaxTrades = other.MaxTrades
	}
	if other.GreenMax != nil {
		o.GreenMax = other.GreenMax
	}
	if other.YellowMax != nil {
		o.YellowMax = other.YellowMax
	}
	if other.AllowRedEntries != nil {
		o.AllowRedEntries = other.AllowRedEntries
	}
	if other.UpdatedAt != "" {
		o.UpdatedAt = other.UpdatedAt
	}
	return o
}

// WithOverride returns a new snapshot with the override applied. The receiver
// is never mutated.
func (p *RiskParams) WithOverride(o ParamsOverride) *RiskParams {
	next := p.Clone()
	if o.StopLossPct != nil {
		next.StopLossPct = *o.StopLossPct
	}
	if o.TakeProfitPct != nil {
		next.TakeProfitPct = *o.TakeProfitPct
	}
	if o.MaxTrades != nil {
		next.MaxTrades = *o.MaxTrades
	}
	if o.GreenMax != nil {
		next.GreenMax = *o.GreenMax
	}
	if o.YellowMax != nil {
		next.YellowMax = *o.YellowMax
	}
	if o.AllowRedEntries != nil {
		next.AllowRedEntries = *o.AllowRedEntries
	}
	return next
}
