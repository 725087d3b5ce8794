package strategy

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"momentum-go/internal/indicator"
	"momentum-go/internal/market"
	"momentum-go/internal/metrics"
	"momentum-go/internal/risk"
)

// Action is the per-bar verdict emitted to the execution collaborator.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// Decision is the engine output for one bar. SizeFraction applies to buys
// (fraction of total portfolio value); SellFraction applies to sells
// (fraction of the open position as it currently stands).
type Decision struct {
	Action       Action
	SizeFraction float64
	SellFraction float64
	Score        float64
	Reason       string
	Time         time.Time
}

// historyPad keeps extra bars beyond the indicator warm-up so smoothed
// values are stable.
const historyPad = 50

// Engine is the per-asset decision engine: it owns the bar history, the open
// position record, and the drawdown guard. Instances are fully isolated;
// evaluation is strictly sequential along one asset's time axis.
type Engine struct {
	symbol  string
	params  Params
	log     zerolog.Logger
	guard   *risk.Guard
	maxBars int

	bars      []market.Bar
	lastTS    int64
	lastDec   Decision
	snap      indicator.Snapshot
	snapOK    bool
	position  *Position
	lastEntry time.Time
}

// NewEngine validates params and builds an engine for one symbol.
func NewEngine(symbol string, params Params, log zerolog.Logger) (*Engine, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	guard := risk.NewGuard(risk.Limits{
		MaxExposureFraction: params.MaxExposureFraction,
		MaxDrawdown:         params.MaxDrawdown,
	})
	return &Engine{
		symbol:  symbol,
		params:  params,
		log:     log.With().Str("symbol", symbol).Logger(),
		guard:   guard,
		maxBars: params.Indicator.MinBars() + historyPad,
	}, nil
}

// Symbol returns the asset this engine tracks.
func (e *Engine) Symbol() string { return e.symbol }

// Params returns the configured parameter set.
func (e *Engine) Params() Params { return e.params }

// Guard exposes the drawdown guard for reporting.
func (e *Engine) Guard() *risk.Guard { return e.guard }

// Position returns the open position record, or nil while flat.
func (e *Engine) Position() *Position { return e.position }

// Snapshot returns the last computed indicator snapshot and whether one is
// available yet.
func (e *Engine) Snapshot() (indicator.Snapshot, bool) { return e.snap, e.snapOK }

// Evaluate consumes the next bar together with the current portfolio view
// and produces one decision. Re-delivery of the already evaluated bar
// returns the cached decision without mutating state. An invalid bar yields
// a HOLD plus market.ErrInvalidBar; the caller logs and continues.
func (e *Engine) Evaluate(bar market.Bar, pf PortfolioView) (Decision, error) {
	if e.lastTS != 0 && bar.Timestamp == e.lastTS {
		return e.lastDec, nil
	}
	if err := bar.ValidateNext(e.lastTS); err != nil {
		e.log.Warn().Err(err).Int64("ts", bar.Timestamp).Msg("rejected bar")
		return Decision{Action: ActionHold, Reason: "invalid bar", Time: bar.Time()}, err
	}

	e.appendBar(bar)
	e.lastTS = bar.Timestamp
	metrics.BarsTotal.WithLabelValues(e.symbol).Inc()

	snap, err := indicator.Compute(e.bars, e.params.Indicator)
	if err != nil {
		if errors.Is(err, indicator.ErrInsufficientHistory) {
			return e.finish(Decision{
				Action: ActionHold,
				Reason: fmt.Sprintf("warming up: %d/%d bars", len(e.bars), e.params.Indicator.MinBars()),
				Time:   bar.Time(),
			})
		}
		return Decision{Action: ActionHold, Reason: "indicator failure", Time: bar.Time()}, err
	}
	e.snap = snap
	e.snapOK = true

	e.guard.Observe(pf.Value(bar.Close))

	// Exits run before entries; a halted guard never blocks them.
	if e.position != nil && !e.position.Closed() {
		if exit := e.position.EvaluateExit(bar.Close, snap, e.params); exit != nil {
			metrics.ExitsTotal.WithLabelValues(e.symbol, string(exit.Kind)).Inc()
			e.log.Info().Str("kind", string(exit.Kind)).Str("reason", exit.Reason).Msg("exit signal")
			return e.finish(Decision{
				Action:       ActionSell,
				SellFraction: exit.Fraction,
				Reason:       exit.Reason,
				Time:         bar.Time(),
			})
		}
		return e.finish(Decision{Action: ActionHold, Reason: "holding open position", Time: bar.Time()})
	}

	verdict := EvaluateEntry(snap, bar.Close, pf, e.guard, e.params, bar.Time(), e.lastEntry)
	if !verdict.Admit {
		metrics.EntriesRejectedTotal.WithLabelValues(e.symbol).Inc()
		return e.finish(Decision{
			Action: ActionHold,
			Score:  verdict.Score,
			Reason: verdict.Reason,
			Time:   bar.Time(),
		})
	}
	e.log.Info().Float64("score", verdict.Score).Float64("fraction", verdict.SizeFraction).Msg("entry signal")
	return e.finish(Decision{
		Action:       ActionBuy,
		SizeFraction: verdict.SizeFraction,
		Score:        verdict.Score,
		Reason:       verdict.Reason,
		Time:         bar.Time(),
	})
}

func (e *Engine) finish(d Decision) (Decision, error) {
	e.lastDec = d
	metrics.DecisionsTotal.WithLabelValues(e.symbol, string(d.Action)).Inc()
	return d, nil
}

func (e *Engine) appendBar(bar market.Bar) {
	e.bars = append(e.bars, bar)
	if len(e.bars) > e.maxBars {
		e.bars = e.bars[len(e.bars)-e.maxBars:]
	}
}

// ApplyBuyFill records an entry fill and opens the position. The entry ATR
// is captured from the snapshot that produced the buy decision.
func (e *Engine) ApplyBuyFill(qty, price float64, ts time.Time) {
	if qty <= 0 || price <= 0 {
		return
	}
	e.position = NewPosition(price, qty, e.snap.ATR, ts, len(e.params.TakeProfitLevels))
	e.lastEntry = ts
	e.log.Info().Float64("qty", qty).Float64("px", price).Msg("position opened")
}

// ApplySellFill reduces the open position by the filled fraction; the record
// is discarded once fully exited.
func (e *Engine) ApplySellFill(fraction float64, price float64, ts time.Time) {
	if e.position == nil {
		return
	}
	e.position.Reduce(fraction)
	if e.position.Closed() {
		e.log.Info().Float64("px", price).Msg("position closed")
		e.position = nil
	}
}

// EngineState is the persistable snapshot of one engine: the bar tail the
// indicators need, the open position if any, and the guard baseline. It
// round-trips through internal/store so a restart resumes mid-position.
type EngineState struct {
	Symbol        string       `json:"symbol"`
	LastTimestamp int64        `json:"last_timestamp"`
	Bars          []market.Bar `json:"bars"`
	Position      *Position    `json:"position,omitempty"`
	GuardStarting float64      `json:"guard_starting"`
	GuardPeak     float64      `json:"guard_peak"`
	LastEntry     time.Time    `json:"last_entry"`
}

// State captures the current engine state for persistence.
func (e *Engine) State() EngineState {
	bars := make([]market.Bar, len(e.bars))
	copy(bars, e.bars)
	return EngineState{
		Symbol:        e.symbol,
		LastTimestamp: e.lastTS,
		Bars:          bars,
		Position:      e.position,
		GuardStarting: e.guard.StartingValue(),
		GuardPeak:     e.guard.PeakValue(),
		LastEntry:     e.lastEntry,
	}
}

// Restore reinstates persisted state. The bar tail is revalidated in order;
// a corrupt tail is rejected rather than partially applied.
func (e *Engine) Restore(state EngineState) error {
	var prev int64
	for _, bar := range state.Bars {
		if err := bar.ValidateNext(prev); err != nil {
			return fmt.Errorf("restore %s: %w", e.symbol, err)
		}
		prev = bar.Timestamp
	}
	e.bars = append(e.bars[:0], state.Bars...)
	e.lastTS = state.LastTimestamp
	e.position = state.Position
	e.lastEntry = state.LastEntry
	if state.GuardStarting > 0 {
		e.guard.Restore(state.GuardStarting, state.GuardPeak)
	}
	if len(e.bars) >= e.params.Indicator.MinBars() {
		snap, err := indicator.Compute(e.bars, e.params.Indicator)
		if err != nil {
			return fmt.Errorf("restore %s: %w", e.symbol, err)
		}
		e.snap = snap
		e.snapOK = true
	}
	return nil
}
