package pricefeed

import (
	"context"
	"testing"
	"time"

	"SemaforoBot/internal/domain/models"
	"SemaforoBot/internal/repository"
	"SemaforoBot/internal/usecase"
	"SemaforoBot/pkg/logger"
	"SemaforoBot/pkg/store"
)

func TestTriggeredLong(t *testing.T) {
	tr := &models.Trade{TradeProposal: models.TradeProposal{
		Direction:  models.DirectionLong,
		EntryPrice: 65000,
		StopLoss:   64350,
		TakeProfit: 66300,
	}}

	cases := []struct {
		price float64
		want  string
	}{
		{65000, ""},
		{64351, ""},
		{64350, models.CloseReasonStopLoss},
		{64000, models.CloseReasonStopLoss},
		{66300, models.CloseReasonTakeProfit},
		{67000, models.CloseReasonTakeProfit},
	}
	for _, tc := range cases {
		if got := triggered(tr, tc.price); got != tc.want {
			t.Errorf("price %v: expected %q, got %q", tc.price, tc.want, got)
		}
	}
}

func TestTriggeredShort(t *testing.T) {
	tr := &models.Trade{TradeProposal: models.TradeProposal{
		Direction:  models.DirectionShort,
		EntryPrice: 65000,
		StopLoss:   65650,
		TakeProfit: 63700,
	}}

	cases := []struct {
		price float64
		want  string
	}{
		{65000, ""},
		{65649, ""},
		{65650, models.CloseReasonStopLoss},
		{63700, models.CloseReasonTakeProfit},
	}
	for _, tc := range cases {
		if got := triggered(tr, tc.price); got != tc.want {
			t.Errorf("price %v: expected %q, got %q", tc.price, tc.want, got)
		}
	}
}

func newWatcherFixture(t *testing.T) (*Watcher, *usecase.Machine) {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	mem := store.NewMemoryStore()
	trades := repository.NewStoreTradeRepo(mem)
	analysis := repository.NewStoreAnalysisRepo(mem)
	params := usecase.NewParamsHolder(context.Background(), models.DefaultRiskParams(), analysis, log)
	machine := usecase.NewMachine(trades, repository.NopHistory{}, repository.NopPublisher{}, params, repository.NopMetrics{}, log)
	return NewWatcher(nil, machine, log), machine
}

func activeTrade(t *testing.T, m *usecase.Machine) *models.Trade {
	t.Helper()
	ctx := context.Background()
	tr, err := m.Propose(ctx, &models.TradeProposal{
		Asset:      "BTC",
		Timeframe:  "4h",
		Duration:   "24h",
		Direction:  models.DirectionLong,
		EntryPrice: 65000,
		StopLoss:   64350,
		TakeProfit: 66300,
		Leverage:   1,
		RiskColor:  models.ColorGreen,
	})
	if err != nil {
		t.Fatalf("Propose failed: %v", err)
	}
	if _, err := m.Confirm(ctx, tr.ID); err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}
	return tr
}

func TestEvaluateClosesLongOnStopHit(t *testing.T) {
	w, m := newWatcherFixture(t)
	ctx := context.Background()
	tr := activeTrade(t, m)

	w.refresh(ctx)
	w.evaluate(ctx, Tick{Asset: "BTC", Price: 64300, At: time.Now().UTC()})

	got, err := m.Get(ctx, tr.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Status != models.StatusClosed {
		t.Fatalf("expected closed, got %s", got.Status)
	}
	if got.CloseReason != models.CloseReasonStopLoss {
		t.Fatalf("expected stoploss close reason, got %q", got.CloseReason)
	}
}

func TestEvaluateClosesLongOnTargetHit(t *testing.T) {
	w, m := newWatcherFixture(t)
	ctx := context.Background()
	tr := activeTrade(t, m)

	w.refresh(ctx)
	w.evaluate(ctx, Tick{Asset: "BTC", Price: 66500, At: time.Now().UTC()})

	got, err := m.Get(ctx, tr.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Status != models.StatusClosed || got.CloseReason != models.CloseReasonTakeProfit {
		t.Fatalf("expected takeprofit close, got %s %q", got.Status, got.CloseReason)
	}
}

func TestEvaluateIgnoresPricesInsideLevels(t *testing.T) {
	w, m := newWatcherFixture(t)
	ctx := context.Background()
	tr := activeTrade(t, m)

	w.refresh(ctx)
	w.evaluate(ctx, Tick{Asset: "BTC", Price: 65100, At: time.Now().UTC()})

	got, err := m.Get(ctx, tr.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Status != models.StatusActive {
		t.Fatalf("expected trade still active, got %s", got.Status)
	}
}
