package usecase

import (
	"fmt"
	"math"
	"time"

	"SemaforoBot/internal/domain/models"
)

// Metric component names used in the assessment breakdown.
const (
	componentFunding      = "funding_rate"
	componentOpenInterest = "open_interest"
	componentLongShort    = "long_short_ratio"
	componentLiquidations = "liquidations"
	componentVolatility   = "volatility"
)

// Classifier turns one asset's raw metrics into a risk score and semaphore
// color. Classification is pure: no I/O, no shared state, safe to run in
// parallel across assets and requests.
type Classifier struct{}

func NewClassifier() Classifier { return Classifier{} }

// Classify scores the snapshot against the given parameter snapshot.
// Malformed input fails with models.ErrInvalidMetrics; there is deliberately
// no fallback color.
func (Classifier) Classify(m *models.AssetMetrics, params *models.RiskParams) (*models.RiskAssessment, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	components := map[string]float64{
		componentFunding:      scoreFunding(m.FundingRate),
		componentOpenInterest: scoreOpenInterest(m.OIChange24hPct),
		componentLongShort:    scoreLongShort(m.LongShortRatio),
		componentLiquidations: scoreLiquidations(m.LiquidationsUSD24h),
		componentVolatility:   scoreVolatility(m.Volatility),
	}

	w := params.Weights
	total := w.Sum()
	if total <= 0 {
		return nil, fmt.Errorf("%w: zero metric weights", models.ErrInvalidMetrics)
	}
	score := (components[componentFunding]*w.Funding +
		components[componentOpenInterest]*w.OpenInterest +
		components[componentLongShort]*w.LongShort +
		components[componentLiquidations]*w.Liquidations +
		components[componentVolatility]*w.Volatility) / total

	factors := riskFactors(m)
	adjusted := math.Min(100, score+float64(factors)*10)

	greenMax, yellowMax := params.ThresholdsFor(m.Asset)
	color := colorFor(adjusted, factors, greenMax, yellowMax)

	longProb, shortProb := directionProbabilities(m)

	a := &models.RiskAssessment{
		Asset:       m.Asset,
		Score:       math.Round(adjusted*100) / 100,
		Color:       color,
		LongProb:    longProb,
		ShortProb:   shortProb,
		Components:  components,
		RiskFactors: factors,
		Price:       m.Price,
		Volatility:  m.Volatility,
		Timestamp:   time.Now().UTC(),
	}
	a.Recommendation = recommendationFor(a, params)
	return a, nil
}

// Per-metric scores. Each metric contributes a bounded penalty so one rogue
// reading cannot alone force red; the band edges mirror the risk thresholds
// the system has always used.

func scoreFunding(rate float64) float64 {
	switch abs := math.Abs(rate); {
	case abs < 0.01:
		return 0
	case abs < 0.02:
		return 30
	case abs < 0.05:
		return 60
	default:
		return 90
	}
}

func scoreOpenInterest(change24hPct float64) float64 {
	switch abs := math.Abs(change24hPct); {
	case abs < 10:
		return 20
	case abs < 20:
		return 50
	default:
		return 80
	}
}

func scoreLongShort(ratio float64) float64 {
	switch {
	case ratio >= 0.8 && ratio <= 1.2:
		return 10 // balanced
	case ratio >= 0.6 && ratio <= 1.6:
		return 40
	default:
		return 70 // crowded, squeeze risk
	}
}

func scoreLiquidations(totalUSD24h float64) float64 {
	switch {
	case totalUSD24h < 100_000_000:
		return 20
	case totalUSD24h < 500_000_000:
		return 50
	default:
		return 80
	}
}

func scoreVolatility(vol float64) float64 {
	switch {
	case vol < 0.10:
		return 10
	case vol < 0.20:
		return 40
	default:
		return 70
	}
}

// riskFactors counts independent warning signs that harden the color beyond
// the weighted score: deleveraging, positioning imbalance, extreme funding.
func riskFactors(m *models.AssetMetrics) int {
	n := 0
	if m.OIChange24hPct < -1 {
		n++
	}
	if m.LongShortRatio < 0.8 || m.LongShortRatio > 1.2 {
		n++
	}
	if math.Abs(m.FundingRate) > 0.01 {
		n++
	}
	return n
}

// colorFor is the ordered threshold comparison. Green additionally requires
// that no risk factor fired, keeping the green state conservative.
func colorFor(adjusted float64, factors int, greenMax, yellowMax float64) models.Color {
	switch {
	case adjusted <= greenMax && factors == 0:
		return models.ColorGreen
	case adjusted <= yellowMax:
		return models.ColorYellow
	default:
		return models.ColorRed
	}
}

// directionProbabilities derives the long/short split shown to the user.
// Presentation only; it never feeds back into the risk score.
func directionProbabilities(m *models.AssetMetrics) (longProb, shortProb int) {
	long, short := 50.0, 50.0

	// Positioning: a crowded side tends to get squeezed the other way.
	if m.LongShortRatio < 0.9 {
		long += 10
		short -= 10
	} else if m.LongShortRatio > 1.1 {
		long -= 10
		short += 10
	}

	// Funding: whoever pays is the crowded side.
	switch f := m.FundingRate; {
	case f > 0.01:
		long -= 10
		short += 10
	case f < -0.01:
		long += 10
		short -= 10
	case f > 0.0005:
		long -= 5
		short += 5
	case f < -0.0005:
		long += 5
		short -= 5
	}

	// Open interest: deleveraging favors correction, fresh capital continuation.
	if m.OIChange24hPct < -1 {
		long -= 5
		short += 5
	} else if m.OIChange24hPct > 2 {
		long += 5
		short -= 5
	}

	if m.Volatility >= 0.20 {
		long -= 5
		short += 5
	}

	total := long + short
	longProb = int(long / total * 100)
	return longProb, 100 - longProb
}

func recommendationFor(a *models.RiskAssessment, params *models.RiskParams) string {
	tpl, ok := params.Recommendations[a.Color]
	if !ok {
		tpl = "No recommendation available."
	}
	return fmt.Sprintf("%s LONG %d%% / SHORT %d%%", tpl, a.LongProb, a.ShortProb)
}
