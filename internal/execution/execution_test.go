package execution

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestSubmitLogsOrder(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	exec := NewExecutor(logger)
	err := exec.Submit(Order{Symbol: "BTCUSDT", Side: Buy, Qty: 1, Price: 45000, Reason: "confluence 75.0%"})
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "BTCUSDT") {
		t.Fatalf("log does not contain symbol: %s", out)
	}
	if !strings.Contains(out, "confluence") {
		t.Fatalf("log does not contain reason: %s", out)
	}
}

func TestNewFillStampsID(t *testing.T) {
	order := Order{Symbol: "ETHUSDT", Side: Sell, Qty: 0.5, Price: 3000, Reason: "take profit 1"}
	fill := NewFill(order, 1.0/3.0, time.Unix(1700000000, 0))
	if fill.ID == "" {
		t.Fatalf("expected non-empty fill id")
	}
	second := NewFill(order, 1.0/3.0, time.Unix(1700000000, 0))
	if fill.ID == second.ID {
		t.Fatalf("expected unique fill ids")
	}
	if fill.Fraction <= 0.33 || fill.Fraction >= 0.34 {
		t.Fatalf("fraction not carried: %.4f", fill.Fraction)
	}
}
