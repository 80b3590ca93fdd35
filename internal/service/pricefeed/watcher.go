package pricefeed

import (
	"context"
	"errors"
	"time"

	"SemaforoBot/internal/domain/models"
	"SemaforoBot/internal/usecase"
	"SemaforoBot/pkg/logger"
)

const refreshInterval = 15 * time.Second

// Watcher closes active trades whose stop or target has been hit. It keeps a
// local view of active trades, refreshed periodically, and evaluates every
// tick against it. Closing goes through the state machine, so a concurrent
// manual close simply wins the transition.
type Watcher struct {
	stream  *Stream
	machine *usecase.Machine
	log     *logger.Logger

	active map[string][]*models.Trade // asset -> active trades
}

func NewWatcher(stream *Stream, machine *usecase.Machine, log *logger.Logger) *Watcher {
	return &Watcher{
		stream:  stream,
		machine: machine,
		log:     log,
		active:  make(map[string][]*models.Trade),
	}
}

// Run consumes the price stream until ctx is cancelled, reconnecting on read
// failures.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.stream.Connect(ctx); err != nil {
		return err
	}
	if err := w.stream.Subscribe(ctx); err != nil {
		return err
	}
	defer func() { _ = w.stream.Close() }()

	refresh := time.NewTicker(refreshInterval)
	defer refresh.Stop()
	w.refresh(ctx)

	for {
		ticks, errs := w.stream.Read(ctx)
	consume:
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-refresh.C:
				w.refresh(ctx)
			case tick, ok := <-ticks:
				if !ok {
					break consume
				}
				w.evaluate(ctx, tick)
			case err, ok := <-errs:
				if !ok {
					break consume
				}
				w.log.Warn("pricefeed stream error", logger.Error(err))
				break consume
			}
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := w.stream.Reconnect(ctx); err != nil {
			w.log.Error("pricefeed reconnect failed", logger.Error(err))
			// Reconnect sleeps internally; loop and try again.
		}
	}
}

func (w *Watcher) refresh(ctx context.Context) {
	trades, err := w.machine.ListActive(ctx)
	if err != nil {
		w.log.Warn("active trade refresh failed", logger.Error(err))
		return
	}
	next := make(map[string][]*models.Trade, len(trades))
	for _, t := range trades {
		next[t.Asset] = append(next[t.Asset], t)
	}
	w.active = next
}

func (w *Watcher) evaluate(ctx context.Context, tick Tick) {
	trades := w.active[tick.Asset]
	if len(trades) == 0 {
		return
	}
	for _, t := range trades {
		reason := triggered(t, tick.Price)
		if reason == "" {
			continue
		}
		if _, err := w.machine.Close(ctx, t.ID, reason); err != nil {
			if errors.Is(err, models.ErrInvalidState) || errors.Is(err, models.ErrNotFound) {
				// Already closed elsewhere.
				continue
			}
			w.log.Error("trigger close failed",
				logger.String("trade_id", t.ID),
				logger.String("reason", reason),
				logger.Error(err))
			continue
		}
		w.log.Info("trade closed by trigger",
			logger.String("trade_id", t.ID),
			logger.String("asset", t.Asset),
			logger.String("reason", reason),
			logger.Float64("price", tick.Price))
	}
	w.refresh(ctx)
}

// triggered returns the close reason a price crossing implies, or "".
func triggered(t *models.Trade, price float64) string {
	if t.Direction == models.DirectionLong {
		if price <= t.StopLoss {
			return models.CloseReasonStopLoss
		}
		if price >= t.TakeProfit {
			return models.CloseReasonTakeProfit
		}
		return ""
	}
	if price >= t.StopLoss {
		return models.CloseReasonStopLoss
	}
	if price <= t.TakeProfit {
		return models.CloseReasonTakeProfit
	}
	return ""
}
