package portfolio

import (
	"bufio"
	"encoding/json"
	"os"
	"testing"
	"time"

	"momentum-go/internal/execution"
)

func TestJSONLRecorder(t *testing.T) {
	tmp := t.TempDir()
	path := tmp + "/fills.jsonl"

	recorder, err := NewJSONLRecorder(path)
	if err != nil {
		t.Fatalf("NewJSONLRecorder error: %v", err)
	}
	fill := execution.NewFill(execution.Order{Symbol: "BTCUSDT", Side: execution.Buy, Qty: 1, Price: 45000}, 0, time.Now())
	recorder.Record(fill)
	if err := recorder.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open recorded file: %v", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	if !scanner.Scan() {
		t.Fatalf("expected one line in recorder output")
	}
	var decoded execution.Fill
	if err := json.Unmarshal(scanner.Bytes(), &decoded); err != nil {
		t.Fatalf("json decode: %v", err)
	}
	if decoded.Symbol != fill.Symbol || decoded.Side != fill.Side || decoded.ID != fill.ID {
		t.Fatalf("unexpected decoded fill")
	}
}

func TestLedgerRecordAndReset(t *testing.T) {
	ledger := NewLedger(4)
	ledger.Record(execution.Fill{ID: "a", Symbol: "BTCUSDT", Side: execution.Buy, Qty: 1, Price: 100})
	ledger.Record(execution.Fill{ID: "b", Symbol: "BTCUSDT", Side: execution.Sell, Qty: 1, Price: 110})

	fills := ledger.Snapshot()
	if len(fills) != 2 {
		t.Fatalf("expected 2 fills, got %d", len(fills))
	}
	ledger.Reset()
	if len(ledger.Snapshot()) != 0 {
		t.Fatalf("expected empty ledger after reset")
	}
}
