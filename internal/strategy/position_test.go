package strategy

import (
	"math"
	"strings"
	"testing"
	"time"

	"momentum-go/internal/indicator"
)

func openPosition(entry, atr float64) *Position {
	return NewPosition(entry, 1.0, atr, time.Unix(1700000000, 0), 3)
}

// calmSnapshot keeps RSI and the EMA pair from triggering the technical
// exits so stop/tier behavior can be tested in isolation.
func calmSnapshot() indicator.Snapshot {
	return indicator.Snapshot{EMAFast: 101, EMAMedium: 100, RSI: 55}
}

func TestStopLossTriggersAtATRMultiple(t *testing.T) {
	p := DefaultParams()
	// entry 45000, ATR 800: stop sits exactly at 43400.
	pos := openPosition(45000, 800)

	if exit := pos.EvaluateExit(43401, calmSnapshot(), p); exit != nil {
		t.Fatalf("close above stop should not trigger, got %+v", exit)
	}
	exit := pos.EvaluateExit(43400, calmSnapshot(), p)
	if exit == nil || exit.Kind != ExitStopLoss {
		t.Fatalf("expected stop loss at 43400, got %+v", exit)
	}
	if exit.Fraction != 1 {
		t.Fatalf("stop loss must close the full position")
	}
}

func TestTrailingStopRatchet(t *testing.T) {
	p := DefaultParams()
	pos := openPosition(45000, 800)

	if exit := pos.EvaluateExit(50000, calmSnapshot(), p); exit == nil {
		// +11.1% — tier 3 has not been reached bar-by-bar, so the first
		// unhit tier (tier 1 at +5%) fires here instead.
		t.Fatalf("expected a take-profit on the run-up")
	}
	if pos.Highest != 50000 {
		t.Fatalf("highest watermark not ratcheted: %.2f", pos.Highest)
	}
	// 50000 * 0.96 = 48000: trailing stop fires at that close.
	exit := pos.EvaluateExit(48000, calmSnapshot(), p)
	if exit == nil || exit.Kind != ExitTrailingStop {
		t.Fatalf("expected trailing stop at 48000, got %+v", exit)
	}
	if exit.Fraction != 1 {
		t.Fatalf("trailing stop must close the full position")
	}
	if pos.Highest != 50000 {
		t.Fatalf("watermark must never decrease, got %.2f", pos.Highest)
	}
}

func TestTakeProfitTiersFireOnceInOrder(t *testing.T) {
	p := DefaultParams()
	pos := openPosition(100, 1000) // huge ATR keeps the stop far away

	// +5%: tier 1 closes a third of the position.
	exit := pos.EvaluateExit(105, calmSnapshot(), p)
	if exit == nil || exit.Tier != 1 {
		t.Fatalf("expected tier 1, got %+v", exit)
	}
	if math.Abs(exit.Fraction-1.0/3.0) > 1e-9 {
		t.Fatalf("tier 1 fraction: %.4f", exit.Fraction)
	}
	pos.Reduce(exit.Fraction)
	if math.Abs(pos.Remaining-2.0/3.0) > 1e-9 {
		t.Fatalf("remaining after tier 1: %.4f", pos.Remaining)
	}

	// Same bar level again: tier 1 is spent, +5% is below tier 2.
	if exit := pos.EvaluateExit(105, calmSnapshot(), p); exit != nil {
		t.Fatalf("tier 1 must fire only once, got %+v", exit)
	}

	// +8%: tier 2 closes half of what remains — a third of the original.
	exit = pos.EvaluateExit(108, calmSnapshot(), p)
	if exit == nil || exit.Tier != 2 {
		t.Fatalf("expected tier 2, got %+v", exit)
	}
	if math.Abs(exit.Fraction-0.5) > 1e-9 {
		t.Fatalf("tier 2 fraction: %.4f", exit.Fraction)
	}
	pos.Reduce(exit.Fraction)
	if math.Abs(pos.Remaining-1.0/3.0) > 1e-9 {
		t.Fatalf("remaining after tier 2: %.4f", pos.Remaining)
	}

	// +12%: tier 3 closes everything left. Watermark is at 108 from the
	// prior bar, so 112 does not drop past the trailing stop first.
	exit = pos.EvaluateExit(112, calmSnapshot(), p)
	if exit == nil || exit.Tier != 3 {
		t.Fatalf("expected tier 3, got %+v", exit)
	}
	if exit.Fraction != 1 {
		t.Fatalf("tier 3 must close the remainder")
	}
	pos.Reduce(exit.Fraction)
	if !pos.Closed() {
		t.Fatalf("position should be closed, remaining %.6f", pos.Remaining)
	}
}

func TestTierOneTakesPrecedenceWhenGappingPastBoth(t *testing.T) {
	p := DefaultParams()
	pos := openPosition(100, 1000)

	// A single bar at +9% satisfies tiers 1 and 2; only tier 1 fires.
	exit := pos.EvaluateExit(109, calmSnapshot(), p)
	if exit == nil || exit.Tier != 1 {
		t.Fatalf("expected tier 1 precedence, got %+v", exit)
	}
	pos.Reduce(exit.Fraction)

	// Next bar still at +9%: now tier 2 may fire.
	exit = pos.EvaluateExit(109, calmSnapshot(), p)
	if exit == nil || exit.Tier != 2 {
		t.Fatalf("expected tier 2 on following bar, got %+v", exit)
	}
}

func TestClosedPositionIsTerminal(t *testing.T) {
	p := DefaultParams()
	pos := openPosition(100, 1)
	pos.Reduce(1)
	if !pos.Closed() {
		t.Fatalf("expected closed position")
	}
	if exit := pos.EvaluateExit(50, calmSnapshot(), p); exit != nil {
		t.Fatalf("closed position must not fire exits, got %+v", exit)
	}
}

func TestOverboughtPartialExit(t *testing.T) {
	p := DefaultParams()
	pos := openPosition(100, 1000)
	snap := calmSnapshot()
	snap.RSI = 75

	// +3% gain with RSI above 70 sells half the position.
	exit := pos.EvaluateExit(103, snap, p)
	if exit == nil || exit.Kind != ExitOverbought {
		t.Fatalf("expected overbought exit, got %+v", exit)
	}
	if exit.Fraction != 0.5 {
		t.Fatalf("overbought exit sells half, got %.4f", exit.Fraction)
	}

	// Below the 2% gain floor the overbought exit stays quiet.
	pos2 := openPosition(100, 1000)
	if exit := pos2.EvaluateExit(101, snap, p); exit != nil {
		t.Fatalf("expected no exit under the gain floor, got %+v", exit)
	}
}

func TestTrendReversalExit(t *testing.T) {
	p := DefaultParams()
	pos := openPosition(100, 1000)
	snap := calmSnapshot()
	snap.EMAFast = 99
	snap.EMAMedium = 100

	// Small loss: reversal closes the position.
	exit := pos.EvaluateExit(97, snap, p)
	if exit == nil || exit.Kind != ExitTrendReversal {
		t.Fatalf("expected trend reversal exit, got %+v", exit)
	}
	if !strings.Contains(exit.Reason, "trend reversal") {
		t.Fatalf("reason not surfaced: %q", exit.Reason)
	}

	// Loss beyond 5%: the reversal exit defers (stop-loss territory).
	pos2 := openPosition(100, 1000)
	if exit := pos2.EvaluateExit(94, snap, p); exit != nil {
		t.Fatalf("expected no reversal exit past the loss floor, got %+v", exit)
	}
}

func TestRemainingMonotonicallyNonIncreasing(t *testing.T) {
	pos := openPosition(100, 1000)
	prev := pos.Remaining
	for _, fraction := range []float64{1.0 / 3.0, 0.5, 0.25, 1} {
		pos.Reduce(fraction)
		if pos.Remaining > prev+1e-12 {
			t.Fatalf("remaining increased: %.6f > %.6f", pos.Remaining, prev)
		}
		prev = pos.Remaining
	}
	if !pos.Closed() {
		t.Fatalf("expected closed after full reduce")
	}
}
