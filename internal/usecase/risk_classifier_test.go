package usecase

import (
	"errors"
	"testing"
	"time"

	"SemaforoBot/internal/domain/models"
)

func calmMetrics(asset string) *models.AssetMetrics {
	return &models.AssetMetrics{
		Asset:              asset,
		FundingRate:        0.0001,
		OpenInterest:       10_000_000_000,
		OIChange24hPct:     0.5,
		LiquidationsUSD24h: 50_000_000,
		LongShortRatio:     1.0,
		Price:              65000,
		Volume24h:          20_000_000_000,
		Volatility:         0.05,
		CapturedAt:         time.Now().UTC(),
	}
}

func stressedMetrics(asset string) *models.AssetMetrics {
	return &models.AssetMetrics{
		Asset:              asset,
		FundingRate:        0.06,
		OpenInterest:       10_000_000_000,
		OIChange24hPct:     -25,
		LiquidationsUSD24h: 600_000_000,
		LongShortRatio:     2.0,
		Price:              65000,
		Volume24h:          20_000_000_000,
		Volatility:         0.25,
		CapturedAt:         time.Now().UTC(),
	}
}

func TestClassifyCalmMarketIsGreen(t *testing.T) {
	params := models.DefaultRiskParams()
	a, err := NewClassifier().Classify(calmMetrics("BTC"), &params)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if a.Color != models.ColorGreen {
		t.Fatalf("expected green, got %s (score %.2f, factors %d)", a.Color, a.Score, a.RiskFactors)
	}
	if a.RiskFactors != 0 {
		t.Fatalf("expected no risk factors, got %d", a.RiskFactors)
	}
	// All metrics in their best band: 0*.25 + 20*.20 + 10*.25 + 20*.20 + 10*.10
	if a.Score != 11.5 {
		t.Fatalf("unexpected score %.2f", a.Score)
	}
	if len(a.Components) != 5 {
		t.Fatalf("expected 5 components, got %d", len(a.Components))
	}
}

func TestClassifyStressedMarketIsRed(t *testing.T) {
	params := models.DefaultRiskParams()
	a, err := NewClassifier().Classify(stressedMetrics("BTC"), &params)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if a.Color != models.ColorRed {
		t.Fatalf("expected red, got %s (score %.2f)", a.Color, a.Score)
	}
	if a.RiskFactors != 3 {
		t.Fatalf("expected 3 risk factors, got %d", a.RiskFactors)
	}
	if a.Score > 100 {
		t.Fatalf("score exceeds cap: %.2f", a.Score)
	}
}

func TestClassifyRiskFactorBlocksGreen(t *testing.T) {
	params := models.DefaultRiskParams()
	m := calmMetrics("BTC")
	m.OIChange24hPct = -2 // deleveraging, still in the lowest score band

	a, err := NewClassifier().Classify(m, &params)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if a.RiskFactors != 1 {
		t.Fatalf("expected 1 risk factor, got %d", a.RiskFactors)
	}
	if a.Color == models.ColorGreen {
		t.Fatal("green must require zero risk factors")
	}
}

func TestClassifyRejectsInvalidMetrics(t *testing.T) {
	params := models.DefaultRiskParams()
	cases := map[string]func(*models.AssetMetrics){
		"zero price":     func(m *models.AssetMetrics) { m.Price = 0 },
		"zero ratio":     func(m *models.AssetMetrics) { m.LongShortRatio = 0 },
		"absurd funding": func(m *models.AssetMetrics) { m.FundingRate = 1.5 },
		"empty asset":    func(m *models.AssetMetrics) { m.Asset = "" },
	}
	for name, corrupt := range cases {
		m := calmMetrics("BTC")
		corrupt(m)
		if _, err := NewClassifier().Classify(m, &params); !errors.Is(err, models.ErrInvalidMetrics) {
			t.Errorf("%s: expected ErrInvalidMetrics, got %v", name, err)
		}
	}
}

func TestProbabilitiesSumTo100(t *testing.T) {
	params := models.DefaultRiskParams()
	for _, m := range []*models.AssetMetrics{calmMetrics("BTC"), stressedMetrics("ETH")} {
		a, err := NewClassifier().Classify(m, &params)
		if err != nil {
			t.Fatalf("Classify failed: %v", err)
		}
		if a.LongProb+a.ShortProb != 100 {
			t.Fatalf("probabilities do not sum to 100: %d + %d", a.LongProb, a.ShortProb)
		}
	}
}

func TestProbabilitiesNeutralMarketIsBalanced(t *testing.T) {
	params := models.DefaultRiskParams()
	a, err := NewClassifier().Classify(calmMetrics("BTC"), &params)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if a.LongProb != 50 || a.ShortProb != 50 {
		t.Fatalf("expected 50/50, got %d/%d", a.LongProb, a.ShortProb)
	}
}

func TestClassifyPerAssetThresholdOverride(t *testing.T) {
	params := models.DefaultRiskParams()
	strict := 5.0
	ap := params.Assets["BTC"]
	ap.GreenMax = &strict
	params.Assets["BTC"] = ap

	a, err := NewClassifier().Classify(calmMetrics("BTC"), &params)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if a.Color != models.ColorYellow {
		t.Fatalf("expected yellow under strict green_max, got %s", a.Color)
	}
}
