// Package live wires the candle feed into the decision engine and fills the
// resulting orders against the paper account, persisting state after each bar.
package live

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"momentum-go/internal/execution"
	"momentum-go/internal/market"
	"momentum-go/internal/metrics"
	"momentum-go/internal/portfolio"
	"momentum-go/internal/store"
	"momentum-go/internal/strategy"
)

// Runner drives one symbol's engine from a bar stream. The store and recorder
// are optional; a nil store runs without persistence.
type Runner struct {
	engine   *strategy.Engine
	account  *portfolio.Account
	executor *execution.Executor
	store    *store.Store
	recorder portfolio.FillRecorder
	log      zerolog.Logger
}

// NewRunner assembles the live loop collaborators.
func NewRunner(
	engine *strategy.Engine,
	account *portfolio.Account,
	executor *execution.Executor,
	st *store.Store,
	recorder portfolio.FillRecorder,
	log zerolog.Logger,
) *Runner {
	return &Runner{
		engine:   engine,
		account:  account,
		executor: executor,
		store:    st,
		recorder: recorder,
		log:      log.With().Str("symbol", engine.Symbol()).Logger(),
	}
}

// Resume loads persisted engine and account state, if any.
func (r *Runner) Resume() error {
	if r.store == nil {
		return nil
	}
	symbol := r.engine.Symbol()
	state, ok, err := r.store.LoadEngineState(symbol)
	if err != nil {
		return err
	}
	if ok {
		if err := r.engine.Restore(state); err != nil {
			return err
		}
		r.log.Info().Int("bars", len(state.Bars)).Bool("open_position", state.Position != nil).
			Msg("resumed engine state")
	}
	balances, ok, err := r.store.LoadAccount(symbol)
	if err != nil {
		return err
	}
	if ok {
		r.account.Restore(balances.Cash, balances.Quantity, balances.AvgCost, balances.Realized)
		r.log.Info().Float64("cash", balances.Cash).Float64("qty", balances.Quantity).
			Msg("resumed account balances")
	}
	return nil
}

// Run consumes bars until the context is canceled or the channel closes.
func (r *Runner) Run(ctx context.Context, bars <-chan market.Bar) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case bar, ok := <-bars:
			if !ok {
				return nil
			}
			if err := r.OnBar(bar); err != nil {
				r.log.Error().Err(err).Int64("ts", bar.Timestamp).Msg("bar handling failed")
			}
		}
	}
}

// OnBar runs one evaluation cycle: decide, fill, book, persist.
func (r *Runner) OnBar(bar market.Bar) error {
	view := strategy.PortfolioView{Cash: r.account.Cash(), Quantity: r.account.Quantity()}
	decision, err := r.engine.Evaluate(bar, view)
	if err != nil {
		// Invalid bars already produced a HOLD; skip without persisting.
		return err
	}

	switch decision.Action {
	case strategy.ActionBuy:
		err = r.fillBuy(bar, view, decision)
	case strategy.ActionSell:
		err = r.fillSell(bar, decision)
	}
	if err != nil {
		return err
	}
	return r.persist()
}

func (r *Runner) fillBuy(bar market.Bar, view strategy.PortfolioView, decision strategy.Decision) error {
	notional := decision.SizeFraction * view.Value(bar.Close)
	qty := notional / bar.Close
	order := execution.Order{
		Symbol: r.engine.Symbol(),
		Side:   execution.Buy,
		Qty:    qty,
		Price:  bar.Close,
		Reason: decision.Reason,
	}
	if err := r.executor.Submit(order); err != nil {
		return fmt.Errorf("submit buy: %w", err)
	}
	if err := r.account.Buy(qty, bar.Close); err != nil {
		return fmt.Errorf("book buy: %w", err)
	}
	r.engine.ApplyBuyFill(qty, bar.Close, decision.Time)
	r.recordFill(execution.NewFill(order, 0, decision.Time))
	return nil
}

func (r *Runner) fillSell(bar market.Bar, decision strategy.Decision) error {
	position := r.engine.Position()
	if position == nil {
		return fmt.Errorf("sell decision with no open position at %s", bar.Time())
	}
	qty := decision.SellFraction * position.RemainingQty()
	order := execution.Order{
		Symbol: r.engine.Symbol(),
		Side:   execution.Sell,
		Qty:    qty,
		Price:  bar.Close,
		Reason: decision.Reason,
	}
	if err := r.executor.Submit(order); err != nil {
		return fmt.Errorf("submit sell: %w", err)
	}
	realized, err := r.account.Sell(qty, bar.Close)
	if err != nil {
		return fmt.Errorf("book sell: %w", err)
	}
	r.engine.ApplySellFill(decision.SellFraction, bar.Close, decision.Time)
	r.log.Info().Float64("qty", qty).Float64("px", bar.Close).Float64("realized", realized).
		Str("reason", decision.Reason).Msg("position reduced")
	r.recordFill(execution.NewFill(order, decision.SellFraction, decision.Time))
	return nil
}

func (r *Runner) recordFill(fill execution.Fill) {
	metrics.FillsTotal.WithLabelValues(fill.Symbol, string(fill.Side)).Inc()
	if r.recorder != nil {
		r.recorder.Record(fill)
	}
	if r.store != nil {
		if err := r.store.RecordFill(fill); err != nil {
			r.log.Error().Err(err).Str("fill", fill.ID).Msg("persist fill failed")
		}
	}
}

func (r *Runner) persist() error {
	if r.store == nil {
		return nil
	}
	symbol := r.engine.Symbol()
	if err := r.store.SaveEngineState(r.engine.State()); err != nil {
		return err
	}
	snap := r.account.Snapshot(0)
	return r.store.SaveAccount(symbol, store.AccountState{
		Cash:     snap.Cash,
		Quantity: snap.Quantity,
		AvgCost:  snap.AvgCost,
		Realized: snap.RealizedPnL,
	})
}

// Report logs a session summary marked at the given price.
func (r *Runner) Report(mark float64) {
	snap := r.account.Snapshot(mark)
	r.log.Info().
		Float64("equity", snap.Equity).
		Float64("cash", snap.Cash).
		Float64("qty", snap.Quantity).
		Float64("realized", snap.RealizedPnL).
		Float64("unrealized", snap.Unrealized).
		Msg("session summary")
}
