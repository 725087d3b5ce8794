// Package portfolio tracks virtual cash, the single tracked asset position,
// and realized PnL for paper sessions and backtests.
package portfolio

import (
	"errors"
	"sync"
)

const epsilon = 1e-9

// Account tracks cash, asset quantity, average cost, and realized PnL for
// one symbol. The engine only ever sees a read-only view of it.
type Account struct {
	mu           sync.Mutex
	symbol       string
	startingCash float64
	cash         float64
	qty          float64
	avgCost      float64
	realizedPnL  float64
}

// Snapshot is a consistent copy of account state marked at a price.
type Snapshot struct {
	Cash        float64
	Quantity    float64
	AvgCost     float64
	MarketValue float64
	Equity      float64
	RealizedPnL float64
	Unrealized  float64
}

// NewAccount constructs an account holding only starting cash.
func NewAccount(symbol string, startingCash float64) *Account {
	return &Account{symbol: symbol, startingCash: startingCash, cash: startingCash}
}

// Symbol returns the tracked asset.
func (a *Account) Symbol() string { return a.symbol }

// StartingCash returns the initial bankroll.
func (a *Account) StartingCash() float64 { return a.startingCash }

// Buy fills a market buy at the given price, mutating balances if the cash
// covers the notional.
func (a *Account) Buy(qty, price float64) error {
	if qty <= 0 {
		return errors.New("quantity must be positive")
	}
	if price <= 0 {
		return errors.New("price must be positive")
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	notional := qty * price
	if notional > a.cash+epsilon {
		return errors.New("insufficient cash for buy")
	}
	newQty := a.qty + qty
	a.avgCost = (a.avgCost*a.qty + notional) / newQty
	a.qty = newQty
	a.cash -= notional
	return nil
}

// Sell fills a market sell and returns the realized PnL of the closed slice.
func (a *Account) Sell(qty, price float64) (float64, error) {
	if qty <= 0 {
		return 0, errors.New("quantity must be positive")
	}
	if price <= 0 {
		return 0, errors.New("price must be positive")
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.qty+epsilon < qty {
		return 0, errors.New("insufficient position to sell")
	}
	realized := (price - a.avgCost) * qty
	a.realizedPnL += realized
	a.cash += qty * price
	a.qty -= qty
	if a.qty <= epsilon {
		a.qty = 0
		a.avgCost = 0
	}
	return realized, nil
}

// Snapshot returns a copy of balances marked at the given price.
func (a *Account) Snapshot(mark float64) Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	marketValue := a.qty * mark
	return Snapshot{
		Cash:        a.cash,
		Quantity:    a.qty,
		AvgCost:     a.avgCost,
		MarketValue: marketValue,
		Equity:      a.cash + marketValue,
		RealizedPnL: a.realizedPnL,
		Unrealized:  (mark - a.avgCost) * a.qty,
	}
}

// Cash reports free cash available for new entries.
func (a *Account) Cash() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cash
}

// Quantity returns the current asset position.
func (a *Account) Quantity() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.qty
}

// RealizedPnL returns total closed-trade profit and loss.
func (a *Account) RealizedPnL() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.realizedPnL
}

// Restore reinstates persisted balances.
func (a *Account) Restore(cash, qty, avgCost, realized float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cash = cash
	a.qty = qty
	a.avgCost = avgCost
	a.realizedPnL = realized
}
