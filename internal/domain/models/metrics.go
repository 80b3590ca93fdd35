package models

import (
	"fmt"
	"math"
	"time"
)

// AssetMetrics is one immutable snapshot of raw market indicators for a
// single asset at a single instant, as produced by a metric source.
type AssetMetrics struct {
	Asset              string    `json:"asset"`
	FundingRate        float64   `json:"funding_rate"`      // signed fraction, e.g. 0.0001
	FundingAvg24h      float64   `json:"funding_avg_24h"`   //
	OpenInterest       float64   `json:"open_interest"`     // USD notional
	OIChange24hPct     float64   `json:"oi_change_24h_pct"` // percentage
	LiquidationsUSD24h float64   `json:"liquidations_usd_24h"`
	LongsLiquidated    float64   `json:"longs_liquidated"`
	ShortsLiquidated   float64   `json:"shorts_liquidated"`
	LongShortRatio     float64   `json:"long_short_ratio"`
	Price              float64   `json:"price"`
	Volume24h          float64   `json:"volume_24h"`
	Volatility         float64   `json:"volatility"` // realized volatility proxy, fraction
	CapturedAt         time.Time `json:"captured_at"`
}

// Validate checks that the snapshot is physically plausible. Classification
// must refuse malformed input rather than default to a color.
func (m *AssetMetrics) Validate() error {
	if m == nil {
		return fmt.Errorf("%w: nil snapshot", ErrInvalidMetrics)
	}
	if m.Asset == "" {
		return fmt.Errorf("%w: empty asset", ErrInvalidMetrics)
	}
	if m.Price <= 0 || math.IsNaN(m.Price) || math.IsInf(m.Price, 0) {
		return fmt.Errorf("%w: price %v", ErrInvalidMetrics, m.Price)
	}
	if m.Volume24h < 0 {
		return fmt.Errorf("%w: negative volume %v", ErrInvalidMetrics, m.Volume24h)
	}
	if m.LongShortRatio <= 0 {
		return fmt.Errorf("%w: long/short ratio %v", ErrInvalidMetrics, m.LongShortRatio)
	}
	if math.Abs(m.FundingRate) >= 1 {
		return fmt.Errorf("%w: funding rate %v", ErrInvalidMetrics, m.FundingRate)
	}
	if m.Volatility < 0 || m.LiquidationsUSD24h < 0 || m.OpenInterest < 0 {
		return fmt.Errorf("%w: negative magnitude", ErrInvalidMetrics)
	}
	return nil
}
