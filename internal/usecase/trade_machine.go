package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"SemaforoBot/internal/domain/models"
	"SemaforoBot/internal/domain/repository"
	"SemaforoBot/pkg/logger"
)

const (
	transitionLockTTL = 10 * time.Second

	// Proposal admission runs under one global lock so the count-check and
	// the save are a single critical section across processes.
	admissionLockID      = "slots"
	admissionRetryDelay  = 10 * time.Millisecond
	admissionWaitTimeout = 2 * time.Second
)

// Machine owns the trade lifecycle. Every transition runs under a per-id
// store lock, so two concurrent requests for the same trade serialize and
// the loser observes the winner's terminal state.
type Machine struct {
	trades    repository.TradeStore
	history   repository.HistoryStore
	publisher repository.Publisher
	params    *ParamsHolder
	metrics   repository.Metrics
	log       *logger.Logger
}

func NewMachine(trades repository.TradeStore, history repository.HistoryStore, publisher repository.Publisher, params *ParamsHolder, metrics repository.Metrics, log *logger.Logger) *Machine {
	return &Machine{
		trades:    trades,
		history:   history,
		publisher: publisher,
		params:    params,
		metrics:   metrics,
		log:       log,
	}
}

// Propose registers a proposal as pending_confirmation. The concurrency cap
// counts active and pending trades together, so a stuck pending trade blocks
// new entries until it is confirmed or rejected.
func (m *Machine) Propose(ctx context.Context, p *models.TradeProposal) (*models.Trade, error) {
	if err := m.lockAdmission(ctx); err != nil {
		return nil, err
	}
	defer func() {
		if err := m.trades.Unlock(ctx, admissionLockID); err != nil {
			m.log.Warn("admission lock release failed", logger.Error(err))
		}
	}()

	open, err := m.trades.ListOpen(ctx)
	if err != nil {
		return nil, err
	}
	max := m.params.Current().MaxTrades
	if len(open) >= max {
		m.metrics.RecordError("max_trades")
		return nil, fmt.Errorf("%w: %d of %d slots in use", models.ErrMaxTradesExceeded, len(open), max)
	}

	t := &models.Trade{
		ID:            uuid.NewString(),
		TradeProposal: *p,
		Status:        models.StatusPendingConfirmation,
		CreatedAt:     time.Now().UTC(),
	}
	if err := m.trades.Save(ctx, t); err != nil {
		return nil, err
	}
	if err := m.trades.SetPendingID(ctx, t.ID); err != nil {
		// Roll the record back; a trade that cannot be referenced as the
		// latest pending one must not occupy a slot.
		if delErr := m.trades.Delete(ctx, t.ID); delErr != nil {
			m.log.Error("rollback of orphaned pending trade failed",
				logger.String("trade_id", t.ID), logger.Error(delErr))
		}
		return nil, err
	}

	m.metrics.RecordTransition(t.Status)
	m.publish(ctx, "trade_proposed", t)
	m.log.Info("trade proposed",
		logger.String("trade_id", t.ID),
		logger.String("asset", t.Asset),
		logger.String("direction", string(t.Direction)))
	return t, nil
}

// Confirm promotes a pending trade to active. An empty id resolves to the
// most recently proposed pending trade.
func (m *Machine) Confirm(ctx context.Context, id string) (*models.Trade, error) {
	id, err := m.resolvePending(ctx, id)
	if err != nil {
		return nil, err
	}
	return m.transition(ctx, id, func(t *models.Trade) error {
		if t.Status != models.StatusPendingConfirmation {
			return fmt.Errorf("%w: cannot confirm trade in status %q", models.ErrInvalidState, t.Status)
		}
		now := time.Now().UTC()
		t.Status = models.StatusActive
		t.ConfirmedAt = &now
		return nil
	}, "trade_confirmed")
}

// Reject discards a pending trade, freeing its slot immediately.
func (m *Machine) Reject(ctx context.Context, id string) (*models.Trade, error) {
	id, err := m.resolvePending(ctx, id)
	if err != nil {
		return nil, err
	}
	return m.transition(ctx, id, func(t *models.Trade) error {
		if t.Status != models.StatusPendingConfirmation {
			return fmt.Errorf("%w: cannot reject trade in status %q", models.ErrInvalidState, t.Status)
		}
		now := time.Now().UTC()
		t.Status = models.StatusRejected
		t.ClosedAt = &now
		return nil
	}, "trade_rejected")
}

// Close finishes an active trade with the given reason. Closing an already
// closed trade is an invalid transition, not a no-op, so automated triggers
// and manual closes cannot both claim the same trade.
func (m *Machine) Close(ctx context.Context, id, reason string) (*models.Trade, error) {
	if reason == "" {
		reason = models.CloseReasonManual
	}
	return m.transition(ctx, id, func(t *models.Trade) error {
		if t.Status != models.StatusActive {
			return fmt.Errorf("%w: cannot close trade in status %q", models.ErrInvalidState, t.Status)
		}
		now := time.Now().UTC()
		t.Status = models.StatusClosed
		t.ClosedAt = &now
		t.CloseReason = reason
		return nil
	}, "trade_closed")
}

// Get returns a trade by id.
func (m *Machine) Get(ctx context.Context, id string) (*models.Trade, error) {
	return m.trades.Get(ctx, id)
}

// ListActive returns active trades ordered by creation time, oldest first.
func (m *Machine) ListActive(ctx context.Context) ([]*models.Trade, error) {
	open, err := m.trades.ListOpen(ctx)
	if err != nil {
		return nil, err
	}
	active := open[:0]
	for _, t := range open {
		if t.Status == models.StatusActive {
			active = append(active, t)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].CreatedAt.Before(active[j].CreatedAt) })
	m.metrics.SetActiveTrades(len(active))
	return active, nil
}

// lockAdmission takes the global proposal lock, waiting briefly so bursts of
// concurrent proposals serialize instead of failing.
func (m *Machine) lockAdmission(ctx context.Context) error {
	deadline := time.Now().Add(admissionWaitTimeout)
	for {
		ok, err := m.trades.TryLock(ctx, admissionLockID, transitionLockTTL)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if time.Now().After(deadline) {
			m.metrics.RecordError("lock_contention")
			return fmt.Errorf("%w: proposal admission lock held", models.ErrStoreUnavailable)
		}
		select {
		case <-time.After(admissionRetryDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// resolvePending maps an empty id to the latest pending trade.
func (m *Machine) resolvePending(ctx context.Context, id string) (string, error) {
	if id != "" {
		return id, nil
	}
	pending, err := m.trades.PendingID(ctx)
	if errors.Is(err, models.ErrNotFound) {
		return "", fmt.Errorf("%w: no pending trade", models.ErrNotFound)
	}
	if err != nil {
		return "", err
	}
	return pending, nil
}

// transition loads the trade under its lock, applies mutate, persists and
// publishes. A held lock means another request is mid-transition on the same
// id; that surfaces as an invalid-state conflict rather than blocking.
func (m *Machine) transition(ctx context.Context, id string, mutate func(*models.Trade) error, event string) (*models.Trade, error) {
	ok, err := m.trades.TryLock(ctx, id, transitionLockTTL)
	if err != nil {
		return nil, err
	}
	if !ok {
		m.metrics.RecordError("lock_contention")
		return nil, fmt.Errorf("%w: concurrent transition in progress for %s", models.ErrInvalidState, id)
	}
	defer func() {
		if err := m.trades.Unlock(ctx, id); err != nil {
			m.log.Warn("trade lock release failed", logger.String("trade_id", id), logger.Error(err))
		}
	}()

	t, err := m.trades.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	prev := t.Status
	if err := mutate(t); err != nil {
		return nil, err
	}

	if t.Open() {
		err = m.trades.Save(ctx, t)
	} else {
		err = m.finalize(ctx, t)
	}
	if err != nil {
		return nil, err
	}

	if prev == models.StatusPendingConfirmation {
		if pending, perr := m.trades.PendingID(ctx); perr == nil && pending == id {
			if cerr := m.trades.ClearPending(ctx); cerr != nil {
				m.log.Warn("pending pointer cleanup failed", logger.String("trade_id", id), logger.Error(cerr))
			}
		}
	}

	m.metrics.RecordTransition(t.Status)
	m.publish(ctx, event, t)
	m.log.Info("trade transition",
		logger.String("trade_id", t.ID),
		logger.String("from", string(prev)),
		logger.String("to", string(t.Status)))
	return t, nil
}

// finalize moves a terminal trade out of the open set and archives it.
// Archival is best-effort; the durable record in the store is authoritative.
func (m *Machine) finalize(ctx context.Context, t *models.Trade) error {
	if err := m.trades.MoveToHistory(ctx, t, m.params.Current().HistoryTTL); err != nil {
		return err
	}
	if m.history != nil {
		if err := m.history.ArchiveTrade(ctx, t); err != nil {
			m.metrics.RecordError("archive")
			m.log.Warn("trade archive failed", logger.String("trade_id", t.ID), logger.Error(err))
		}
	}
	return nil
}

func (m *Machine) publish(ctx context.Context, event string, t *models.Trade) {
	if m.publisher == nil {
		return
	}
	if err := m.publisher.PublishTradeEvent(ctx, event, t); err != nil {
		m.metrics.RecordError("publish")
		m.log.Warn("trade event publish failed",
			logger.String("event", event), logger.String("trade_id", t.ID), logger.Error(err))
	}
}
