package usecase

import (
	"context"

	"SemaforoBot/internal/domain/models"
)

// Trader ties analysis, level optimization and the lifecycle together for
// the trade entry flow.
type Trader struct {
	analyzer  *Analyzer
	optimizer Optimizer
	machine   *Machine
	params    *ParamsHolder
}

func NewTrader(analyzer *Analyzer, machine *Machine, params *ParamsHolder) *Trader {
	return &Trader{
		analyzer:  analyzer,
		optimizer: NewOptimizer(),
		machine:   machine,
		params:    params,
	}
}

// Enter assesses the asset on fresh-enough data, computes entry levels and
// registers the proposal as pending confirmation.
func (t *Trader) Enter(ctx context.Context, req *models.TradeRequest) (*models.Trade, error) {
	assessment, err := t.analyzer.Assess(ctx, req.Asset, false)
	if err != nil {
		return nil, err
	}
	proposal, err := t.optimizer.Propose(assessment, req.Timeframe, req.Duration, req.Leverage, t.params.Current())
	if err != nil {
		return nil, err
	}
	return t.machine.Propose(ctx, proposal)
}
