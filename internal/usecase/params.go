package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"SemaforoBot/internal/domain/models"
	"SemaforoBot/internal/domain/repository"
	"SemaforoBot/pkg/logger"
)

// ParamsHolder owns the live risk configuration. Readers take lock-free
// snapshots; updates build a new snapshot and swap it atomically, so a
// request never observes a half-applied reload. Writers serialize on mu so
// the persisted override and the published snapshot cannot diverge.
type ParamsHolder struct {
	base    models.RiskParams
	current atomic.Pointer[models.RiskParams]
	store   repository.AnalysisStore
	log     *logger.Logger

	mu       sync.Mutex
	override models.ParamsOverride
}

// NewParamsHolder seeds the holder with base and replays any override
// persisted by a previous run. A store read failure falls back to base; the
// process must come up even when the store is cold.
func NewParamsHolder(ctx context.Context, base models.RiskParams, store repository.AnalysisStore, log *logger.Logger) *ParamsHolder {
	h := &ParamsHolder{base: base, store: store, log: log}

	snapshot := base.Clone()
	if store != nil {
		o, err := store.GetOverride(ctx)
		switch {
		case err == nil:
			h.override = o
			snapshot = base.WithOverride(o)
			log.Info("restored persisted config override",
				logger.String("updated_at", o.UpdatedAt))
		case !errors.Is(err, models.ErrNotFound):
			log.Warn("config override unavailable, using defaults", logger.Error(err))
		}
	}
	h.current.Store(snapshot)
	return h
}

// Current returns the active snapshot. The returned value must be treated as
// read-only.
func (h *ParamsHolder) Current() *models.RiskParams {
	return h.current.Load()
}

// Apply layers a new override on top of the accumulated ones, persists the
// merged override and swaps the snapshot. The swap happens only after the
// persist succeeds so a restart never loses an acknowledged update.
func (h *ParamsHolder) Apply(ctx context.Context, o models.ParamsOverride) (*models.RiskParams, error) {
	if o.Empty() {
		return h.Current(), nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	o.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	merged := h.override.Merge(o)

	if h.store != nil {
		if err := h.store.SaveOverride(ctx, merged); err != nil {
			return nil, err
		}
	}

	h.override = merged
	next := h.base.WithOverride(merged)
	h.current.Store(next)
	h.log.Info("risk params updated", logger.String("updated_at", o.UpdatedAt))
	return next, nil
}
