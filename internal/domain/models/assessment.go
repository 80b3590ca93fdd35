package models

import "time"

// Color is the discrete semaphore state.
type Color string

const (
	ColorGreen  Color = "green"
	ColorYellow Color = "yellow"
	ColorRed    Color = "red"
)

// Severity orders colors from least to most restrictive.
func (c Color) Severity() int {
	switch c {
	case ColorGreen:
		return 0
	case ColorYellow:
		return 1
	case ColorRed:
		return 2
	default:
		return 1
	}
}

// Emoji returns the presentation glyph for a color.
func (c Color) Emoji() string {
	switch c {
	case ColorGreen:
		return "\U0001F7E2"
	case ColorYellow:
		return "\U0001F7E1"
	case ColorRed:
		return "\U0001F534"
	default:
		return "⚪"
	}
}

// RiskAssessment is the classification result for a single asset.
// Recomputed on every analysis; cached only within a freshness window.
type RiskAssessment struct {
	Asset          string             `json:"asset"`
	Score          float64            `json:"risk_score"` // 0-100
	Color          Color              `json:"color"`
	LongProb       int                `json:"long_prob"`  // percent, LongProb+ShortProb == 100
	ShortProb      int                `json:"short_prob"` //
	Components     map[string]float64 `json:"components"` // per-metric score contribution
	RiskFactors    int                `json:"risk_factors"`
	Recommendation string             `json:"recommendation"`
	Price          float64            `json:"price"`
	Volatility     float64            `json:"volatility"`
	Timestamp      time.Time          `json:"timestamp"`
}

// SemaphoreState aggregates per-asset assessments into one overall color.
type SemaphoreState struct {
	Color          Color                     `json:"semaforo"`
	Emoji          string                    `json:"emoji"`
	Assets         map[string]RiskAssessment `json:"assets"`
	Recommendation string                    `json:"recommendation"`
	Timestamp      time.Time                 `json:"timestamp"`
}
