package risk

import (
	"math"
	"testing"
)

func TestAllowExposure(t *testing.T) {
	limits := Limits{MaxExposureFraction: 0.70}
	if !limits.AllowExposure(3000, 4000, 10000) {
		t.Fatalf("expected exposure exactly at ceiling to pass")
	}
	if limits.AllowExposure(3000, 4001, 10000) {
		t.Fatalf("expected exposure above ceiling to fail")
	}
	if limits.AllowExposure(0, 1, 0) {
		t.Fatalf("expected zero portfolio value to fail")
	}
}

func TestGuardDrawdownFromPeak(t *testing.T) {
	guard := NewGuard(Limits{MaxDrawdown: 0.35})
	guard.Observe(10000)
	guard.Observe(12000)
	dd := guard.Observe(9000)
	if math.Abs(dd-0.25) > 1e-9 {
		t.Fatalf("expected drawdown 0.25 from peak 12000, got %.4f", dd)
	}
	if guard.Halted() {
		t.Fatalf("guard should not halt below the limit")
	}
}

func TestGuardHaltsAtLimit(t *testing.T) {
	guard := NewGuard(Limits{MaxDrawdown: 0.35})
	guard.Observe(10000)
	dd := guard.Observe(6400)
	if math.Abs(dd-0.36) > 1e-9 {
		t.Fatalf("expected drawdown 0.36, got %.4f", dd)
	}
	if !guard.Halted() {
		t.Fatalf("expected guard halted at 36%% drawdown")
	}
	// Recovery clears the halt.
	guard.Observe(9000)
	if guard.Halted() {
		t.Fatalf("expected halt cleared after recovery")
	}
}

func TestGuardPeakNeverDecreases(t *testing.T) {
	guard := NewGuard(Limits{MaxDrawdown: 0.35})
	for _, v := range []float64{10000, 11000, 9000, 10500, 8000} {
		guard.Observe(v)
	}
	if guard.PeakValue() != 11000 {
		t.Fatalf("expected peak 11000, got %.2f", guard.PeakValue())
	}
	if guard.StartingValue() != 10000 {
		t.Fatalf("expected starting 10000, got %.2f", guard.StartingValue())
	}
}

func TestGuardRestore(t *testing.T) {
	guard := NewGuard(Limits{MaxDrawdown: 0.35})
	guard.Restore(10000, 12000)
	guard.Observe(7000)
	if !guard.Halted() {
		t.Fatalf("expected restored peak to drive drawdown past the limit")
	}
	if guard.StartingValue() != 10000 {
		t.Fatalf("restore lost starting value")
	}
}
