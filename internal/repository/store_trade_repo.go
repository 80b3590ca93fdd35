package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"SemaforoBot/internal/domain/models"
	domrepo "SemaforoBot/internal/domain/repository"
	"SemaforoBot/pkg/store"
)

// Key layout inside the store. The open-trade index is a set of ids; trade
// records live under their own keys so finished trades can outlive the index.
const (
	keyTradePrefix = "trade:"
	keyOpenTrades  = "trades:open"
	keyPendingID   = "trades:pending"
	keyLockPrefix  = "lock:trade:"
)

// StoreTradeRepo implements the trade store on top of a key/value Store.
// Writes are ordered record-then-index with rollback on the second step, so a
// partial failure never leaves an indexed id without a record.
type StoreTradeRepo struct {
	store store.Store
}

func NewStoreTradeRepo(s store.Store) *StoreTradeRepo {
	return &StoreTradeRepo{store: s}
}

var _ domrepo.TradeStore = (*StoreTradeRepo)(nil)

func tradeKey(id string) string { return keyTradePrefix + id }

func (r *StoreTradeRepo) Save(ctx context.Context, t *models.Trade) error {
	if err := r.store.Set(ctx, tradeKey(t.ID), t, 0); err != nil {
		return wrapStoreErr(err)
	}
	if !t.Open() {
		return nil
	}
	if err := r.store.AddMember(ctx, keyOpenTrades, t.ID); err != nil {
		if delErr := r.store.Delete(ctx, tradeKey(t.ID)); delErr != nil {
			return wrapStoreErr(errors.Join(err, delErr))
		}
		return wrapStoreErr(err)
	}
	return nil
}

func (r *StoreTradeRepo) Get(ctx context.Context, id string) (*models.Trade, error) {
	var t models.Trade
	if err := r.store.Get(ctx, tradeKey(id), &t); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", models.ErrNotFound, id)
		}
		return nil, wrapStoreErr(err)
	}
	return &t, nil
}

func (r *StoreTradeRepo) ListOpen(ctx context.Context) ([]*models.Trade, error) {
	ids, err := r.store.Members(ctx, keyOpenTrades)
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	trades := make([]*models.Trade, 0, len(ids))
	for _, id := range ids {
		t, err := r.Get(ctx, id)
		if errors.Is(err, models.ErrNotFound) {
			// Dangling index entry, self-heal.
			_ = r.store.RemoveMember(ctx, keyOpenTrades, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		trades = append(trades, t)
	}
	return trades, nil
}

func (r *StoreTradeRepo) MoveToHistory(ctx context.Context, t *models.Trade, retention time.Duration) error {
	// Persist the terminal record first; only then drop the id from the open
	// index. Failing between the steps leaves a closed trade still indexed,
	// which ListOpen self-heals on the next read.
	if err := r.store.Set(ctx, tradeKey(t.ID), t, retention); err != nil {
		return wrapStoreErr(err)
	}
	if err := r.store.RemoveMember(ctx, keyOpenTrades, t.ID); err != nil {
		return wrapStoreErr(err)
	}
	return nil
}

func (r *StoreTradeRepo) Delete(ctx context.Context, id string) error {
	if err := r.store.RemoveMember(ctx, keyOpenTrades, id); err != nil {
		return wrapStoreErr(err)
	}
	return wrapStoreErr(r.store.Delete(ctx, tradeKey(id)))
}

func (r *StoreTradeRepo) PendingID(ctx context.Context) (string, error) {
	var id string
	if err := r.store.Get(ctx, keyPendingID, &id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", models.ErrNotFound
		}
		return "", wrapStoreErr(err)
	}
	if id == "" {
		return "", models.ErrNotFound
	}
	return id, nil
}

func (r *StoreTradeRepo) SetPendingID(ctx context.Context, id string) error {
	return wrapStoreErr(r.store.Set(ctx, keyPendingID, id, 0))
}

func (r *StoreTradeRepo) ClearPending(ctx context.Context) error {
	return wrapStoreErr(r.store.Delete(ctx, keyPendingID))
}

func (r *StoreTradeRepo) TryLock(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	ok, err := r.store.TryLock(ctx, keyLockPrefix+id, ttl)
	return ok, wrapStoreErr(err)
}

func (r *StoreTradeRepo) Unlock(ctx context.Context, id string) error {
	return wrapStoreErr(r.store.Unlock(ctx, keyLockPrefix+id))
}

func wrapStoreErr(err error) error {
	if err == nil || errors.Is(err, store.ErrNotFound) {
		return err
	}
	return fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
}
