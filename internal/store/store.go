// Package store persists engine and account state to SQLite so a live session
// can resume after restart without replaying history.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"momentum-go/internal/execution"
	"momentum-go/internal/strategy"
)

const schema = `
CREATE TABLE IF NOT EXISTS engine_state (
	symbol     TEXT PRIMARY KEY,
	state      TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS account (
	symbol     TEXT PRIMARY KEY,
	cash       REAL NOT NULL,
	quantity   REAL NOT NULL,
	avg_cost   REAL NOT NULL,
	realized   REAL NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS fills (
	id       TEXT PRIMARY KEY,
	symbol   TEXT NOT NULL,
	side     TEXT NOT NULL,
	qty      REAL NOT NULL,
	price    REAL NOT NULL,
	fraction REAL NOT NULL,
	reason   TEXT NOT NULL,
	ts       INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_fills_symbol_ts ON fills(symbol, ts);
`

// AccountState is the persisted balance row for one symbol.
type AccountState struct {
	Cash     float64
	Quantity float64
	AvgCost  float64
	Realized float64
}

// Store wraps the SQL handle for easier swapping in tests.
type Store struct {
	db *sql.DB
}

// Open creates the database file (and its directory) if needed and applies
// the schema.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("store path is empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite prefers a single writer.
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying DB handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveEngineState upserts the serialized engine state for its symbol.
func (s *Store) SaveEngineState(state strategy.EngineState) error {
	blob, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal engine state: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO engine_state (symbol, state, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(symbol) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at`,
		state.Symbol, string(blob), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("save engine state: %w", err)
	}
	return nil
}

// LoadEngineState fetches the persisted engine state. The second return
// reports whether a row existed.
func (s *Store) LoadEngineState(symbol string) (strategy.EngineState, bool, error) {
	var blob string
	err := s.db.QueryRow(`SELECT state FROM engine_state WHERE symbol = ?`, symbol).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return strategy.EngineState{}, false, nil
	}
	if err != nil {
		return strategy.EngineState{}, false, fmt.Errorf("load engine state: %w", err)
	}
	var state strategy.EngineState
	if err := json.Unmarshal([]byte(blob), &state); err != nil {
		return strategy.EngineState{}, false, fmt.Errorf("unmarshal engine state: %w", err)
	}
	return state, true, nil
}

// SaveAccount upserts account balances for a symbol.
func (s *Store) SaveAccount(symbol string, state AccountState) error {
	_, err := s.db.Exec(`
		INSERT INTO account (symbol, cash, quantity, avg_cost, realized, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(symbol) DO UPDATE SET
			cash = excluded.cash, quantity = excluded.quantity,
			avg_cost = excluded.avg_cost, realized = excluded.realized,
			updated_at = excluded.updated_at`,
		symbol, state.Cash, state.Quantity, state.AvgCost, state.Realized, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("save account: %w", err)
	}
	return nil
}

// LoadAccount fetches persisted balances. The second return reports whether a
// row existed.
func (s *Store) LoadAccount(symbol string) (AccountState, bool, error) {
	var state AccountState
	err := s.db.QueryRow(`SELECT cash, quantity, avg_cost, realized FROM account WHERE symbol = ?`, symbol).
		Scan(&state.Cash, &state.Quantity, &state.AvgCost, &state.Realized)
	if errors.Is(err, sql.ErrNoRows) {
		return AccountState{}, false, nil
	}
	if err != nil {
		return AccountState{}, false, fmt.Errorf("load account: %w", err)
	}
	return state, true, nil
}

// RecordFill appends an executed fill to the trade log.
func (s *Store) RecordFill(fill execution.Fill) error {
	_, err := s.db.Exec(`
		INSERT INTO fills (id, symbol, side, qty, price, fraction, reason, ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		fill.ID, fill.Symbol, string(fill.Side), fill.Qty, fill.Price,
		fill.Fraction, fill.Reason, fill.Time.UnixMilli())
	if err != nil {
		return fmt.Errorf("record fill: %w", err)
	}
	return nil
}

// Fills returns a symbol's fill log in execution order.
func (s *Store) Fills(symbol string) ([]execution.Fill, error) {
	rows, err := s.db.Query(`
		SELECT id, side, qty, price, fraction, reason, ts
		FROM fills WHERE symbol = ? ORDER BY ts ASC, id ASC`, symbol)
	if err != nil {
		return nil, fmt.Errorf("query fills: %w", err)
	}
	defer rows.Close()

	var fills []execution.Fill
	for rows.Next() {
		var (
			fill execution.Fill
			side string
			ts   int64
		)
		if err := rows.Scan(&fill.ID, &side, &fill.Qty, &fill.Price, &fill.Fraction, &fill.Reason, &ts); err != nil {
			return nil, fmt.Errorf("scan fill: %w", err)
		}
		fill.Symbol = symbol
		fill.Side = execution.Side(side)
		fill.Time = time.UnixMilli(ts).UTC()
		fills = append(fills, fill)
	}
	return fills, rows.Err()
}
