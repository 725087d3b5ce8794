// Package backtest replays candle history through the decision engine with a
// paper account filling every decision at the bar close.
package backtest

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"momentum-go/internal/market"
	"momentum-go/internal/portfolio"
	"momentum-go/internal/strategy"
)

// Trade is one fill in a run. Closing marks sells, whose PnL is the realized
// profit of the sold slice.
type Trade struct {
	TS      time.Time `json:"ts"`
	Side    string    `json:"side"`
	Qty     float64   `json:"qty"`
	Price   float64   `json:"price"`
	PnL     float64   `json:"pnl"`
	Closing bool      `json:"closing"`
	Reason  string    `json:"reason,omitempty"`
}

// Point is one sample of the equity curve.
type Point struct {
	TS     time.Time `json:"ts"`
	Equity float64   `json:"eq"`
}

// Result carries everything a report needs from one run.
type Result struct {
	Trades      []Trade `json:"trades"`
	EquityCurve []Point `json:"equity"`
	Summary     Summary `json:"summary"`
	FinalEquity float64 `json:"final_equity"`
}

// Runner owns a fresh engine and paper account for one replay.
type Runner struct {
	engine  *strategy.Engine
	account *portfolio.Account
	log     zerolog.Logger
}

// NewRunner builds an isolated engine plus account for the given parameters.
func NewRunner(symbol string, params strategy.Params, startingCash float64, log zerolog.Logger) (*Runner, error) {
	if startingCash <= 0 {
		return nil, fmt.Errorf("starting cash must be positive, got %v", startingCash)
	}
	engine, err := strategy.NewEngine(symbol, params, log)
	if err != nil {
		return nil, err
	}
	return &Runner{
		engine:  engine,
		account: portfolio.NewAccount(symbol, startingCash),
		log:     log.With().Str("symbol", symbol).Logger(),
	}, nil
}

// Engine exposes the replay engine for post-run inspection.
func (r *Runner) Engine() *strategy.Engine { return r.engine }

// Account exposes the paper account for post-run inspection.
func (r *Runner) Account() *portfolio.Account { return r.account }

// Run replays the bars in order. Invalid bars are logged and skipped, the way
// the live loop treats them.
func (r *Runner) Run(bars []market.Bar) (Result, error) {
	if len(bars) == 0 {
		return Result{}, errors.New("no bars to replay")
	}

	result := Result{
		EquityCurve: make([]Point, 0, len(bars)),
		Trades:      make([]Trade, 0, 64),
	}
	for _, bar := range bars {
		view := strategy.PortfolioView{Cash: r.account.Cash(), Quantity: r.account.Quantity()}
		decision, err := r.engine.Evaluate(bar, view)
		if err != nil {
			if errors.Is(err, market.ErrInvalidBar) {
				continue
			}
			return Result{}, err
		}

		switch decision.Action {
		case strategy.ActionBuy:
			if err := r.fillBuy(bar, view, decision, &result); err != nil {
				return Result{}, err
			}
		case strategy.ActionSell:
			if err := r.fillSell(bar, decision, &result); err != nil {
				return Result{}, err
			}
		}

		snap := r.account.Snapshot(bar.Close)
		result.EquityCurve = append(result.EquityCurve, Point{TS: bar.Time(), Equity: snap.Equity})
	}

	result.FinalEquity = result.EquityCurve[len(result.EquityCurve)-1].Equity
	result.Summary = ComputeMetrics(result.EquityCurve, result.Trades)
	return result, nil
}

func (r *Runner) fillBuy(bar market.Bar, view strategy.PortfolioView, decision strategy.Decision, result *Result) error {
	notional := decision.SizeFraction * view.Value(bar.Close)
	qty := notional / bar.Close
	if err := r.account.Buy(qty, bar.Close); err != nil {
		return fmt.Errorf("buy fill at %s: %w", bar.Time(), err)
	}
	r.engine.ApplyBuyFill(qty, bar.Close, decision.Time)
	result.Trades = append(result.Trades, Trade{
		TS:     decision.Time,
		Side:   "BUY",
		Qty:    qty,
		Price:  bar.Close,
		Reason: decision.Reason,
	})
	return nil
}

func (r *Runner) fillSell(bar market.Bar, decision strategy.Decision, result *Result) error {
	position := r.engine.Position()
	if position == nil {
		return fmt.Errorf("sell decision with no open position at %s", bar.Time())
	}
	qty := decision.SellFraction * position.RemainingQty()
	realized, err := r.account.Sell(qty, bar.Close)
	if err != nil {
		return fmt.Errorf("sell fill at %s: %w", bar.Time(), err)
	}
	r.engine.ApplySellFill(decision.SellFraction, bar.Close, decision.Time)
	result.Trades = append(result.Trades, Trade{
		TS:      decision.Time,
		Side:    "SELL",
		Qty:     qty,
		Price:   bar.Close,
		PnL:     realized,
		Closing: true,
		Reason:  decision.Reason,
	})
	return nil
}
