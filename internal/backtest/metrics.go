package backtest

// Summary aggregates a completed run. MaxDrawdownPct is negative (worst
// peak-to-trough move of the equity curve, in percent).
type Summary struct {
	PnL            float64 `json:"pnl"`
	Trades         int     `json:"trades"`
	WinRate        float64 `json:"win_rate"`
	ProfitFactor   float64 `json:"profit_factor"`
	MaxDrawdownPct float64 `json:"max_drawdown_pct"`
}

// ComputeMetrics folds the equity curve and closed-slice trade list into a
// Summary. Only sells carry PnL; buys count as trades but not wins/losses.
func ComputeMetrics(equity []Point, trades []Trade) Summary {
	var sumPnL, gains, losses float64
	var closed, wins int
	for _, t := range trades {
		if !t.Closing {
			continue
		}
		closed++
		sumPnL += t.PnL
		if t.PnL > 0 {
			wins++
			gains += t.PnL
		} else {
			losses += -t.PnL
		}
	}

	var peak, dd float64
	if len(equity) > 0 {
		peak = equity[0].Equity
	}
	for _, p := range equity {
		if p.Equity > peak {
			peak = p.Equity
		}
		if peak > 0 {
			if d := (p.Equity - peak) / peak * 100; d < dd {
				dd = d
			}
		}
	}

	winRate := 0.0
	if closed > 0 {
		winRate = float64(wins) / float64(closed)
	}
	profitFactor := 0.0
	if losses > 0 {
		profitFactor = gains / losses
	}
	return Summary{
		PnL:            sumPnL,
		Trades:         closed,
		WinRate:        winRate,
		ProfitFactor:   profitFactor,
		MaxDrawdownPct: dd,
	}
}
