// Package execution handles order lifecycle between the decision engine and
// the portfolio collaborator that fills it.
package execution

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Side enumerates order directions.
type Side string

const (
	// Buy indicates a long entry order.
	Buy Side = "BUY"
	// Sell indicates a position-reducing order.
	Sell Side = "SELL"
)

// Order represents a placement request derived from an engine decision.
type Order struct {
	Symbol string
	Side   Side
	Qty    float64
	Price  float64 // reference fill price (bar close)
	Reason string
}

// Fill records an executed order. Fraction carries the engine's
// fraction-of-position for sells so the position record can be reduced.
type Fill struct {
	ID       string    `json:"id"`
	Symbol   string    `json:"symbol"`
	Side     Side      `json:"side"`
	Qty      float64   `json:"qty"`
	Price    float64   `json:"price"`
	Fraction float64   `json:"fraction,omitempty"`
	Reason   string    `json:"reason,omitempty"`
	Time     time.Time `json:"time"`
}

// NewFill stamps an order into a fill record with a fresh id.
func NewFill(order Order, fraction float64, ts time.Time) Fill {
	return Fill{
		ID:       uuid.NewString(),
		Symbol:   order.Symbol,
		Side:     order.Side,
		Qty:      order.Qty,
		Price:    order.Price,
		Fraction: fraction,
		Reason:   order.Reason,
		Time:     ts,
	}
}

// Executor submits orders. The paper implementation logs the request; the
// surrounding loop performs the fill against the portfolio account.
type Executor struct{ log zerolog.Logger }

// NewExecutor wraps a zerolog logger for order submissions.
func NewExecutor(log zerolog.Logger) *Executor { return &Executor{log: log} }

// Submit records the order request.
func (executor *Executor) Submit(order Order) error {
	executor.log.Info().
		Str("sym", order.Symbol).
		Str("side", string(order.Side)).
		Float64("qty", order.Qty).
		Float64("px", order.Price).
		Str("reason", order.Reason).
		Msg("submit order")
	return nil
}
