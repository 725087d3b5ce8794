package config

import (
	"errors"
	"path/filepath"
	"testing"

	"momentum-go/internal/strategy"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "config.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Exchange.Symbol != "ETHUSDT" {
		t.Fatalf("symbol = %q, want ETHUSDT", cfg.Exchange.Symbol)
	}
	if cfg.Exchange.Interval != "4h" {
		t.Fatalf("interval = %q, want 4h", cfg.Exchange.Interval)
	}
	if cfg.Strategy.MinScore != 0.6 {
		t.Fatalf("min score = %v, want 0.6", cfg.Strategy.MinScore)
	}
	if cfg.Strategy.TrailingStopPct != 0.05 {
		t.Fatalf("trailing stop = %v, want 0.05", cfg.Strategy.TrailingStopPct)
	}
	// Keys absent from the file keep their defaults.
	if cfg.Strategy.MaxDrawdown != 0.35 {
		t.Fatalf("max drawdown = %v, want default 0.35", cfg.Strategy.MaxDrawdown)
	}
	if cfg.Exchange.RESTBaseURL == "" {
		t.Fatal("rest base url should fall back to default")
	}
	if cfg.Portfolio.StartingCash != 25000 {
		t.Fatalf("starting cash = %v, want 25000", cfg.Portfolio.StartingCash)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	want := Default()
	want.Exchange.Symbol = "SOLUSDT"
	want.Strategy.MinScore = 0.7
	if err := Save(path, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Exchange.Symbol != "SOLUSDT" || got.Strategy.MinScore != 0.7 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestValidateRejectsBadStrategy(t *testing.T) {
	cfg := Default()
	cfg.Strategy.MinScore = 1.5
	err := cfg.Validate()
	if !errors.Is(err, strategy.ErrInvalidConfig) {
		t.Fatalf("err = %v, want ErrInvalidConfig", err)
	}
}

func TestValidateRejectsBadCacheFormat(t *testing.T) {
	cfg := Default()
	cfg.Data.CacheFormat = "xml"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unsupported cache format")
	}
}
