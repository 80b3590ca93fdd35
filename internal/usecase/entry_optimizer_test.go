package usecase

import (
	"errors"
	"testing"

	"SemaforoBot/internal/domain/models"
)

// flatParams returns params for an asset with no volatility weighting, so the
// configured percentages map directly to price distances.
func flatParams() models.RiskParams {
	p := models.DefaultRiskParams()
	p.Assets = map[string]models.AssetParams{}
	p.MinRiskReward = 1.5
	return p
}

func greenAssessment(price float64) *models.RiskAssessment {
	return &models.RiskAssessment{
		Asset:     "BTC",
		Color:     models.ColorGreen,
		LongProb:  50,
		ShortProb: 50,
		Price:     price,
	}
}

func TestProposeLongLevels(t *testing.T) {
	params := flatParams()
	p, err := NewOptimizer().Propose(greenAssessment(65000), "4h", "24h", 1, &params)
	if err != nil {
		t.Fatalf("Propose failed: %v", err)
	}
	if p.Direction != models.DirectionLong {
		t.Fatalf("expected long on balanced probabilities, got %s", p.Direction)
	}
	if p.EntryPrice != 65000 {
		t.Fatalf("unexpected entry %v", p.EntryPrice)
	}
	// 1% stop, 2% target at zero volatility.
	if p.StopLoss != 64350 {
		t.Fatalf("unexpected stoploss %v", p.StopLoss)
	}
	if p.TakeProfit != 66300 {
		t.Fatalf("unexpected takeprofit %v", p.TakeProfit)
	}
	if p.RiskReward != 2 {
		t.Fatalf("unexpected risk/reward %v", p.RiskReward)
	}
}

func TestProposeShortLevelsInverted(t *testing.T) {
	params := flatParams()
	a := greenAssessment(65000)
	a.LongProb, a.ShortProb = 30, 70

	p, err := NewOptimizer().Propose(a, "4h", "24h", 1, &params)
	if err != nil {
		t.Fatalf("Propose failed: %v", err)
	}
	if p.Direction != models.DirectionShort {
		t.Fatalf("expected short, got %s", p.Direction)
	}
	if p.StopLoss <= p.EntryPrice {
		t.Fatalf("short stop must sit above entry: stop %v entry %v", p.StopLoss, p.EntryPrice)
	}
	if p.TakeProfit >= p.EntryPrice {
		t.Fatalf("short target must sit below entry: tp %v entry %v", p.TakeProfit, p.EntryPrice)
	}
}

func TestProposeDeterministic(t *testing.T) {
	params := flatParams()
	a := greenAssessment(65000)
	a.Volatility = 0.12

	p1, err := NewOptimizer().Propose(a, "4h", "24h", 2, &params)
	if err != nil {
		t.Fatalf("Propose failed: %v", err)
	}
	p2, err := NewOptimizer().Propose(a, "4h", "24h", 2, &params)
	if err != nil {
		t.Fatalf("Propose failed: %v", err)
	}
	if *p1 != *p2 {
		t.Fatalf("identical inputs produced different proposals:\n%+v\n%+v", p1, p2)
	}
}

func TestProposeRespectsMinRiskReward(t *testing.T) {
	params := flatParams()
	params.StopLossPct = 2.0
	params.TakeProfitPct = 1.0 // below the floor, must be lifted

	p, err := NewOptimizer().Propose(greenAssessment(65000), "4h", "24h", 1, &params)
	if err != nil {
		t.Fatalf("Propose failed: %v", err)
	}
	if p.RiskReward < params.MinRiskReward {
		t.Fatalf("risk/reward %v below floor %v", p.RiskReward, params.MinRiskReward)
	}
}

func TestProposeLeverageTightensStop(t *testing.T) {
	params := flatParams()
	a := greenAssessment(65000)

	base, err := NewOptimizer().Propose(a, "4h", "24h", 1, &params)
	if err != nil {
		t.Fatalf("Propose failed: %v", err)
	}
	levered, err := NewOptimizer().Propose(a, "4h", "24h", 5, &params)
	if err != nil {
		t.Fatalf("Propose failed: %v", err)
	}
	if levered.StopLossPct >= base.StopLossPct {
		t.Fatalf("leverage must tighten the stop: %v vs %v", levered.StopLossPct, base.StopLossPct)
	}
	if levered.StopLossPct < minStopDistance*100 {
		t.Fatalf("stop distance %v below clamp", levered.StopLossPct)
	}
}

func TestProposeRedRefusedByDefault(t *testing.T) {
	params := flatParams()
	a := greenAssessment(65000)
	a.Color = models.ColorRed

	if _, err := NewOptimizer().Propose(a, "4h", "24h", 1, &params); !errors.Is(err, models.ErrUnsafeConditions) {
		t.Fatalf("expected ErrUnsafeConditions, got %v", err)
	}

	params.AllowRedEntries = true
	p, err := NewOptimizer().Propose(a, "4h", "24h", 1, &params)
	if err != nil {
		t.Fatalf("Propose with AllowRedEntries failed: %v", err)
	}
	if p.RiskColor != models.ColorRed {
		t.Fatalf("proposal must carry the risk color, got %s", p.RiskColor)
	}
}

func TestProposeConfidenceBounded(t *testing.T) {
	params := flatParams()
	params.AllowRedEntries = true
	for _, color := range []models.Color{models.ColorGreen, models.ColorYellow, models.ColorRed} {
		a := greenAssessment(65000)
		a.Color = color
		a.Volatility = 0.3
		p, err := NewOptimizer().Propose(a, "1d", "24h", 1, &params)
		if err != nil {
			t.Fatalf("Propose failed: %v", err)
		}
		if p.Confidence < 0 || p.Confidence > 100 {
			t.Fatalf("confidence out of range: %v", p.Confidence)
		}
	}
}
