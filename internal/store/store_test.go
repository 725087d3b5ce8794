package store

import (
	"path/filepath"
	"testing"
	"time"

	"momentum-go/internal/execution"
	"momentum-go/internal/market"
	"momentum-go/internal/strategy"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestEngineStateRoundTrip(t *testing.T) {
	s := openTestStore(t)

	want := strategy.EngineState{
		Symbol:        "BTCUSDT",
		LastTimestamp: 1700003600000,
		Bars: []market.Bar{
			{Timestamp: 1700000000000, Open: 100, High: 105, Low: 99, Close: 104, Volume: 3},
			{Timestamp: 1700003600000, Open: 104, High: 106, Low: 102, Close: 105, Volume: 2},
		},
		Position: &strategy.Position{
			EntryPrice: 104,
			EntryTime:  time.UnixMilli(1700000000000).UTC(),
			EntryATR:   1.5,
			Quantity:   0.5,
			Remaining:  1,
			Highest:    105,
			TiersHit:   []bool{false, false, false},
		},
		GuardStarting: 10000,
		GuardPeak:     10500,
		LastEntry:     time.UnixMilli(1700000000000).UTC(),
	}
	if err := s.SaveEngineState(want); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, ok, err := s.LoadEngineState("BTCUSDT")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !ok {
		t.Fatal("expected a persisted row")
	}
	if got.Symbol != want.Symbol || got.LastTimestamp != want.LastTimestamp {
		t.Fatalf("header mismatch: %+v", got)
	}
	if len(got.Bars) != 2 || got.Bars[1] != want.Bars[1] {
		t.Fatalf("bars mismatch: %+v", got.Bars)
	}
	if got.Position == nil || got.Position.EntryPrice != 104 || got.Position.Highest != 105 {
		t.Fatalf("position mismatch: %+v", got.Position)
	}
	if got.GuardPeak != 10500 || !got.LastEntry.Equal(want.LastEntry) {
		t.Fatalf("guard/cooldown mismatch: %+v", got)
	}
}

func TestEngineStateUpsert(t *testing.T) {
	s := openTestStore(t)

	first := strategy.EngineState{Symbol: "BTCUSDT", LastTimestamp: 1, GuardStarting: 10000, GuardPeak: 10000}
	second := first
	second.LastTimestamp = 2
	second.GuardPeak = 12000

	if err := s.SaveEngineState(first); err != nil {
		t.Fatalf("save first: %v", err)
	}
	if err := s.SaveEngineState(second); err != nil {
		t.Fatalf("save second: %v", err)
	}
	got, ok, err := s.LoadEngineState("BTCUSDT")
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if got.LastTimestamp != 2 || got.GuardPeak != 12000 {
		t.Fatalf("upsert did not replace: %+v", got)
	}
}

func TestLoadEngineStateMissing(t *testing.T) {
	s := openTestStore(t)
	_, ok, err := s.LoadEngineState("ETHUSDT")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if ok {
		t.Fatal("expected no row for unknown symbol")
	}
}

func TestAccountRoundTrip(t *testing.T) {
	s := openTestStore(t)

	want := AccountState{Cash: 4500, Quantity: 0.12, AvgCost: 45000, Realized: 320.5}
	if err := s.SaveAccount("BTCUSDT", want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, ok, err := s.LoadAccount("BTCUSDT")
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if got != want {
		t.Fatalf("account = %+v, want %+v", got, want)
	}

	want.Cash = 9000
	want.Quantity = 0
	if err := s.SaveAccount("BTCUSDT", want); err != nil {
		t.Fatalf("resave: %v", err)
	}
	got, _, _ = s.LoadAccount("BTCUSDT")
	if got != want {
		t.Fatalf("upsert did not replace: %+v", got)
	}
}

func TestFillsOrdered(t *testing.T) {
	s := openTestStore(t)

	base := time.UnixMilli(1700000000000).UTC()
	fills := []execution.Fill{
		{ID: "b", Symbol: "BTCUSDT", Side: execution.Sell, Qty: 0.04, Price: 47250, Fraction: 1. / 3, Reason: "take_profit tier 1", Time: base.Add(2 * time.Hour)},
		{ID: "a", Symbol: "BTCUSDT", Side: execution.Buy, Qty: 0.12, Price: 45000, Reason: "entry", Time: base},
	}
	for _, f := range fills {
		if err := s.RecordFill(f); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	got, err := s.Fills("BTCUSDT")
	if err != nil {
		t.Fatalf("fills: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d fills, want 2", len(got))
	}
	if got[0].ID != "a" || got[1].ID != "b" {
		t.Fatalf("fills out of order: %s, %s", got[0].ID, got[1].ID)
	}
	if got[0].Side != execution.Buy || !got[0].Time.Equal(base) {
		t.Fatalf("first fill mismatch: %+v", got[0])
	}
	if got[1].Fraction == 0 {
		t.Fatalf("fraction not persisted: %+v", got[1])
	}

	if other, err := s.Fills("ETHUSDT"); err != nil || len(other) != 0 {
		t.Fatalf("unexpected fills for other symbol: %v %v", other, err)
	}
}

func TestOpenEmptyPath(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Fatal("expected error for empty path")
	}
}
