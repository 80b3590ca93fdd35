package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"SemaforoBot/internal/domain/models"
	domrepo "SemaforoBot/internal/domain/repository"
	"SemaforoBot/internal/repository"
	"SemaforoBot/pkg/logger"
	"SemaforoBot/pkg/store"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func newTestMachine(t *testing.T) (*Machine, *ParamsHolder) {
	t.Helper()
	mem := store.NewMemoryStore()
	trades := repository.NewStoreTradeRepo(mem)
	analysis := repository.NewStoreAnalysisRepo(mem)
	log := testLogger(t)
	params := NewParamsHolder(context.Background(), models.DefaultRiskParams(), analysis, log)
	m := NewMachine(trades, repository.NopHistory{}, repository.NopPublisher{}, params, repository.NopMetrics{}, log)
	return m, params
}

func proposal(asset string) *models.TradeProposal {
	return &models.TradeProposal{
		Asset:      asset,
		Timeframe:  "4h",
		Duration:   "24h",
		Direction:  models.DirectionLong,
		EntryPrice: 65000,
		StopLoss:   64350,
		TakeProfit: 66300,
		Leverage:   1,
		RiskColor:  models.ColorGreen,
	}
}

func TestTradeLifecycleHappyPath(t *testing.T) {
	m, _ := newTestMachine(t)
	ctx := context.Background()

	tr, err := m.Propose(ctx, proposal("BTC"))
	if err != nil {
		t.Fatalf("Propose failed: %v", err)
	}
	if tr.Status != models.StatusPendingConfirmation {
		t.Fatalf("expected pending_confirmation, got %s", tr.Status)
	}
	if tr.ID == "" || tr.CreatedAt.IsZero() {
		t.Fatal("trade must carry id and creation time")
	}

	confirmed, err := m.Confirm(ctx, tr.ID)
	if err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}
	if confirmed.Status != models.StatusActive || confirmed.ConfirmedAt == nil {
		t.Fatalf("unexpected confirmed trade: %+v", confirmed)
	}

	closed, err := m.Close(ctx, tr.ID, models.CloseReasonManual)
	if err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if closed.Status != models.StatusClosed || closed.ClosedAt == nil {
		t.Fatalf("unexpected closed trade: %+v", closed)
	}
	if closed.CloseReason != models.CloseReasonManual {
		t.Fatalf("unexpected close reason %q", closed.CloseReason)
	}

	// Terminal record stays readable after leaving the open set.
	got, err := m.Get(ctx, tr.ID)
	if err != nil {
		t.Fatalf("Get after close failed: %v", err)
	}
	if got.Status != models.StatusClosed {
		t.Fatalf("expected closed, got %s", got.Status)
	}
}

func TestConfirmEmptyIDUsesLatestPending(t *testing.T) {
	m, _ := newTestMachine(t)
	ctx := context.Background()

	first, err := m.Propose(ctx, proposal("BTC"))
	if err != nil {
		t.Fatalf("Propose failed: %v", err)
	}
	second, err := m.Propose(ctx, proposal("ETH"))
	if err != nil {
		t.Fatalf("Propose failed: %v", err)
	}

	confirmed, err := m.Confirm(ctx, "")
	if err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}
	if confirmed.ID != second.ID {
		t.Fatalf("expected latest pending %s, got %s", second.ID, confirmed.ID)
	}

	// The older pending trade is untouched and still confirmable by id.
	if _, err := m.Confirm(ctx, first.ID); err != nil {
		t.Fatalf("Confirm of older pending failed: %v", err)
	}
}

func TestConfirmTwiceFails(t *testing.T) {
	m, _ := newTestMachine(t)
	ctx := context.Background()

	tr, err := m.Propose(ctx, proposal("BTC"))
	if err != nil {
		t.Fatalf("Propose failed: %v", err)
	}
	if _, err := m.Confirm(ctx, tr.ID); err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}
	if _, err := m.Confirm(ctx, tr.ID); !errors.Is(err, models.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState on second confirm, got %v", err)
	}
}

func TestCloseRequiresActive(t *testing.T) {
	m, _ := newTestMachine(t)
	ctx := context.Background()

	tr, err := m.Propose(ctx, proposal("BTC"))
	if err != nil {
		t.Fatalf("Propose failed: %v", err)
	}
	if _, err := m.Close(ctx, tr.ID, ""); !errors.Is(err, models.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState closing a pending trade, got %v", err)
	}

	if _, err := m.Confirm(ctx, tr.ID); err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}
	if _, err := m.Close(ctx, tr.ID, ""); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := m.Close(ctx, tr.ID, ""); !errors.Is(err, models.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState on double close, got %v", err)
	}
}

func TestRejectFreesPendingSlot(t *testing.T) {
	m, _ := newTestMachine(t)
	ctx := context.Background()

	tr, err := m.Propose(ctx, proposal("BTC"))
	if err != nil {
		t.Fatalf("Propose failed: %v", err)
	}
	rejected, err := m.Reject(ctx, "")
	if err != nil {
		t.Fatalf("Reject failed: %v", err)
	}
	if rejected.ID != tr.ID || rejected.Status != models.StatusRejected {
		t.Fatalf("unexpected rejected trade: %+v", rejected)
	}

	// The pending pointer must be gone.
	if _, err := m.Confirm(ctx, ""); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after reject, got %v", err)
	}
}

func TestMaxTradesEnforcedAndRecovers(t *testing.T) {
	m, params := newTestMachine(t)
	ctx := context.Background()
	max := params.Current().MaxTrades

	ids := make([]string, 0, max)
	for i := 0; i < max; i++ {
		tr, err := m.Propose(ctx, proposal("BTC"))
		if err != nil {
			t.Fatalf("Propose %d failed: %v", i, err)
		}
		ids = append(ids, tr.ID)
	}

	if _, err := m.Propose(ctx, proposal("ETH")); !errors.Is(err, models.ErrMaxTradesExceeded) {
		t.Fatalf("expected ErrMaxTradesExceeded, got %v", err)
	}

	// Closing one slot makes room again.
	if _, err := m.Confirm(ctx, ids[0]); err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}
	if _, err := m.Close(ctx, ids[0], ""); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := m.Propose(ctx, proposal("ETH")); err != nil {
		t.Fatalf("Propose after freeing a slot failed: %v", err)
	}
}

func TestPendingCountsAgainstCap(t *testing.T) {
	m, _ := newTestMachine(t)
	ctx := context.Background()

	tr, err := m.Propose(ctx, proposal("BTC"))
	if err != nil {
		t.Fatalf("Propose failed: %v", err)
	}
	active, err := m.ListActive(ctx)
	if err != nil {
		t.Fatalf("ListActive failed: %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("pending trade must not appear active, got %d", len(active))
	}

	if _, err := m.Confirm(ctx, tr.ID); err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}
	active, err = m.ListActive(ctx)
	if err != nil {
		t.Fatalf("ListActive failed: %v", err)
	}
	if len(active) != 1 || active[0].ID != tr.ID {
		t.Fatalf("unexpected active set: %+v", active)
	}
}

func TestListActiveOrderedByCreation(t *testing.T) {
	m, _ := newTestMachine(t)
	ctx := context.Background()

	var ids []string
	for _, asset := range []string{"BTC", "ETH", "SOL"} {
		tr, err := m.Propose(ctx, proposal(asset))
		if err != nil {
			t.Fatalf("Propose failed: %v", err)
		}
		if _, err := m.Confirm(ctx, tr.ID); err != nil {
			t.Fatalf("Confirm failed: %v", err)
		}
		ids = append(ids, tr.ID)
		time.Sleep(2 * time.Millisecond)
	}

	active, err := m.ListActive(ctx)
	if err != nil {
		t.Fatalf("ListActive failed: %v", err)
	}
	if len(active) != 3 {
		t.Fatalf("expected 3 active trades, got %d", len(active))
	}
	for i, tr := range active {
		if tr.ID != ids[i] {
			t.Fatalf("active trades out of creation order at %d", i)
		}
	}
}

func TestConcurrentTransitionSerialized(t *testing.T) {
	m, _ := newTestMachine(t)
	ctx := context.Background()

	tr, err := m.Propose(ctx, proposal("BTC"))
	if err != nil {
		t.Fatalf("Propose failed: %v", err)
	}

	done := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := m.Confirm(ctx, tr.ID)
			done <- err
		}()
	}
	var okCount, conflictCount int
	for i := 0; i < 2; i++ {
		switch err := <-done; {
		case err == nil:
			okCount++
		case errors.Is(err, models.ErrInvalidState):
			conflictCount++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if okCount != 1 || conflictCount != 1 {
		t.Fatalf("expected exactly one winner, got ok=%d conflict=%d", okCount, conflictCount)
	}

	got, err := m.Get(ctx, tr.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Status != models.StatusActive {
		t.Fatalf("expected active after racing confirms, got %s", got.Status)
	}
}

func TestConcurrentProposalsRespectCap(t *testing.T) {
	m, params := newTestMachine(t)
	ctx := context.Background()
	max := params.Current().MaxTrades

	const attempts = 8
	results := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := m.Propose(ctx, proposal(fmt.Sprintf("A%d", i)))
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	var accepted, rejected int
	for err := range results {
		switch {
		case err == nil:
			accepted++
		case errors.Is(err, models.ErrMaxTradesExceeded):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if accepted != max {
		t.Fatalf("expected exactly %d accepted proposals, got %d (rejected %d)", max, accepted, rejected)
	}
	if rejected != attempts-max {
		t.Fatalf("expected %d rejections, got %d", attempts-max, rejected)
	}
}

// pendingFailStore makes the pending-pointer write fail so the rollback path
// in Propose can be observed.
type pendingFailStore struct {
	domrepo.TradeStore
	lastID string
}

func (s *pendingFailStore) SetPendingID(ctx context.Context, id string) error {
	s.lastID = id
	return models.ErrStoreUnavailable
}

func TestProposeRollbackDeletesRecord(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	trades := repository.NewStoreTradeRepo(mem)
	analysis := repository.NewStoreAnalysisRepo(mem)
	log := testLogger(t)
	params := NewParamsHolder(ctx, models.DefaultRiskParams(), analysis, log)

	fs := &pendingFailStore{TradeStore: trades}
	m := NewMachine(fs, repository.NopHistory{}, repository.NopPublisher{}, params, repository.NopMetrics{}, log)

	if _, err := m.Propose(ctx, proposal("BTC")); !errors.Is(err, models.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if fs.lastID == "" {
		t.Fatal("expected the failed proposal to have reached the pending write")
	}

	// The aborted proposal must leave no durable record and no indexed slot.
	if _, err := trades.Get(ctx, fs.lastID); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected rolled-back record gone, got %v", err)
	}
	open, err := trades.ListOpen(ctx)
	if err != nil {
		t.Fatalf("ListOpen failed: %v", err)
	}
	if len(open) != 0 {
		t.Fatalf("expected no open trades after rollback, got %d", len(open))
	}
}
