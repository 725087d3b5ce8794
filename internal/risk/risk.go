// Package risk holds the session-wide guard rails: the drawdown tracker that
// can halt new entries and the exposure limits applied at entry time.
package risk

// Limits encodes the fractional ceilings the entry gate enforces.
type Limits struct {
	MaxExposureFraction float64 // invested value / portfolio value ceiling
	MaxDrawdown         float64 // drawdown at which new entries halt
}

// AllowExposure reports whether total exposure after a new position stays
// under the ceiling.
func (l Limits) AllowExposure(investedValue, newValue, portfolioValue float64) bool {
	if portfolioValue <= 0 {
		return false
	}
	return (investedValue+newValue)/portfolioValue <= l.MaxExposureFraction
}

// Guard tracks starting value, running peak, and drawdown for one trading
// session. Halting blocks new entries only; open positions keep being
// managed by the exit engine.
type Guard struct {
	limits   Limits
	starting float64
	peak     float64
	current  float64
}

// NewGuard builds a guard that starts tracking at the first observed value.
func NewGuard(limits Limits) *Guard {
	return &Guard{limits: limits}
}

// Observe records the current portfolio value and returns the running
// drawdown from peak. The first observation seeds starting and peak values.
func (g *Guard) Observe(value float64) float64 {
	if g.starting == 0 {
		g.starting = value
		g.peak = value
	}
	if value > g.peak {
		g.peak = value
	}
	g.current = value
	return g.Drawdown()
}

// Drawdown returns the fractional decline from the running peak.
func (g *Guard) Drawdown() float64 {
	if g.peak <= 0 {
		return 0
	}
	return (g.peak - g.current) / g.peak
}

// Halted reports whether drawdown has reached the configured limit.
func (g *Guard) Halted() bool {
	return g.starting != 0 && g.Drawdown() >= g.limits.MaxDrawdown
}

// Limits exposes the configured ceilings.
func (g *Guard) Limits() Limits { return g.limits }

// StartingValue returns the first observed portfolio value (0 before any
// observation).
func (g *Guard) StartingValue() float64 { return g.starting }

// PeakValue returns the running maximum portfolio value.
func (g *Guard) PeakValue() float64 { return g.peak }

// Restore reinstates persisted guard state so a restarted session keeps its
// original drawdown baseline.
func (g *Guard) Restore(starting, peak float64) {
	g.starting = starting
	g.peak = peak
	g.current = peak
}
