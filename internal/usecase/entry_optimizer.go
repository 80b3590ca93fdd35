package usecase

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"SemaforoBot/internal/domain/models"
)

// Stop distance clamp, as a fraction of entry price.
const (
	minStopDistance = 0.005
	maxStopDistance = 0.05
)

// Optimizer computes entry, stop-loss and take-profit levels from a risk
// assessment. Pure: same assessment and params always yield the same
// proposal, so retried requests produce identical levels.
type Optimizer struct{}

func NewOptimizer() Optimizer { return Optimizer{} }

// Propose builds a trade proposal for the assessed asset. Red assessments are
// refused unless AllowRedEntries is set.
func (Optimizer) Propose(a *models.RiskAssessment, timeframe, duration string, leverage float64, params *models.RiskParams) (*models.TradeProposal, error) {
	if a.Color == models.ColorRed && !params.AllowRedEntries {
		return nil, fmt.Errorf("%w: %s is red", models.ErrUnsafeConditions, a.Asset)
	}
	if a.Price <= 0 {
		return nil, fmt.Errorf("%w: non-positive price for %s", models.ErrInvalidMetrics, a.Asset)
	}
	if leverage < 1 {
		leverage = 1
	}

	// Equal probabilities go long: in a balanced market the carry of a long
	// is no worse and the levels stay comparable across runs.
	direction := models.DirectionLong
	if a.ShortProb > a.LongProb {
		direction = models.DirectionShort
	}

	volWeight := params.VolatilityWeightFor(a.Asset)

	// Stop distance widens with volatility and shrinks with leverage, then is
	// clamped so neither noise stops nor catastrophic stops slip through.
	slDist := params.StopLossPct / 100 * (1 + a.Volatility*2) * volWeight
	if leverage > 1 {
		slDist /= leverage * 0.5
	}
	slDist = clamp(slDist, minStopDistance, maxStopDistance)

	tpDist := params.TakeProfitPct / 100 * (1 + a.Volatility*1.5) * volWeight
	if min := slDist * params.MinRiskReward; tpDist < min {
		tpDist = min
	}

	entry := a.Price
	var stop, target float64
	if direction == models.DirectionLong {
		stop = round2(entry * (1 - slDist))
		target = round2(entry * (1 + tpDist))
	} else {
		stop = round2(entry * (1 + slDist))
		target = round2(entry * (1 - tpDist))
	}

	rr := 0.0
	if slDist > 0 {
		rr = math.Round(tpDist/slDist*100) / 100
	}

	return &models.TradeProposal{
		Asset:         a.Asset,
		Timeframe:     timeframe,
		Duration:      duration,
		Direction:     direction,
		EntryPrice:    round2(entry),
		StopLoss:      stop,
		TakeProfit:    target,
		StopLossPct:   math.Round(slDist*10000) / 100,
		TakeProfitPct: math.Round(tpDist*10000) / 100,
		RiskReward:    rr,
		Confidence:    confidence(a, timeframe, direction),
		Leverage:      leverage,
		RiskColor:     a.Color,
	}, nil
}

// confidence is a bounded [0,100] heuristic shown alongside the levels. It
// never gates the trade.
func confidence(a *models.RiskAssessment, timeframe string, dir models.Direction) float64 {
	c := 50.0

	switch a.Color {
	case models.ColorGreen:
		c += 20
	case models.ColorYellow:
		c += 5
	case models.ColorRed:
		c -= 20
	}

	prob := a.LongProb
	if dir == models.DirectionShort {
		prob = a.ShortProb
	}
	c += float64(prob-50) / 2

	if a.Volatility >= 0.20 {
		c -= 10
	} else if a.Volatility < 0.10 {
		c += 5
	}

	if timeframe == "1d" {
		c += 5
	}

	return clamp(c, 0, 100)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// round2 rounds a price to 2 decimals via decimal arithmetic so the stored
// levels never carry float representation noise.
func round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}
