package strategy

import (
	"fmt"
	"time"

	"momentum-go/internal/indicator"
	"momentum-go/internal/risk"
)

// PortfolioView is the read-only slice of portfolio state the engine needs
// each bar. The executing collaborator owns the real balances.
type PortfolioView struct {
	Cash     float64
	Quantity float64
}

// Value marks the portfolio at the given price.
func (v PortfolioView) Value(price float64) float64 {
	return v.Cash + v.Quantity*price
}

// EntryVerdict is the entry gate output: either an admitted buy with its
// fitted size, or a rejection carrying the specific failing condition.
type EntryVerdict struct {
	Admit        bool
	SizeFraction float64
	Notional     float64
	Score        float64
	Reason       string
}

func rejected(score float64, format string, args ...any) EntryVerdict {
	return EntryVerdict{Score: score, Reason: fmt.Sprintf(format, args...)}
}

// EvaluateEntry runs every admission condition in order and surfaces the
// first failure. All conditions must hold for a buy: trend alignment, RSI
// ceiling, minimum confluence, exposure headroom, drawdown guard, cooldown,
// and cash coverage for the computed notional.
func EvaluateEntry(
	snap indicator.Snapshot,
	close float64,
	pf PortfolioView,
	guard *risk.Guard,
	p Params,
	now, lastEntry time.Time,
) EntryVerdict {
	score := Score(snap, close, p)

	if snap.EMAFast <= snap.EMAMedium {
		return rejected(score, "trend filter: fast EMA %.2f not above medium %.2f", snap.EMAFast, snap.EMAMedium)
	}
	if snap.RSI >= p.RSIOverbought {
		return rejected(score, "RSI %.1f at or above overbought %.0f", snap.RSI, p.RSIOverbought)
	}
	if score < p.MinScore {
		return rejected(score, "signal strength %.1f%% below minimum %.0f%%", score*100, p.MinScore*100)
	}

	value := pf.Value(close)
	invested := pf.Quantity * close
	if value <= 0 {
		return rejected(score, "portfolio value is zero")
	}
	if invested/value >= p.MaxExposureFraction {
		return rejected(score, "exposure %.1f%% at limit %.0f%%", invested/value*100, p.MaxExposureFraction*100)
	}
	if guard.Halted() {
		return rejected(score, "drawdown protection active: %.2f%%", guard.Drawdown()*100)
	}
	if p.CooldownHours > 0 && !lastEntry.IsZero() {
		elapsed := now.Sub(lastEntry)
		if cooldown := time.Duration(p.CooldownHours) * time.Hour; elapsed < cooldown {
			return rejected(score, "cooldown active: %.1fh of %dh", elapsed.Hours(), p.CooldownHours)
		}
	}

	fraction := SizeFraction(score, p)
	fraction, ok := FitExposure(fraction, invested, value, p)
	if !ok {
		return rejected(score, "position below minimum viable size after exposure cap")
	}
	notional := fraction * value
	if notional > pf.Cash+epsilon {
		return rejected(score, "notional %.2f exceeds available cash %.2f", notional, pf.Cash)
	}

	return EntryVerdict{
		Admit:        true,
		SizeFraction: fraction,
		Notional:     notional,
		Score:        score,
		Reason:       fmt.Sprintf("confluence %.1f%%, size %.1f%%", score*100, fraction*100),
	}
}
