package backtest

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Run is the stored record of one simulation.
type Run struct {
	ID             string    `json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	Interval       string    `json:"interval"`
	Symbols        []string  `json:"symbols"`
	Fee            float64   `json:"fee"`
	MinOrderValue  float64   `json:"min_order_value"`
	Points         int       `json:"points"`
	Trades         int       `json:"trades"`
	FinalPortfolio float64   `json:"final_portfolio"`
	FinalHold      float64   `json:"final_hold"`
	ReturnVsHold   float64   `json:"return_vs_hold"`
}

// ResultStore persists runs and their equity curves in SQLite.
type ResultStore struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
}

func NewResultStore(root string) (*ResultStore, error) {
	if root == "" {
		return nil, fmt.Errorf("result store root cannot be empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(root, "runs.db")
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := ensureResultSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &ResultStore{db: db, path: path}, nil
}

func (s *ResultStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func ensureResultSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS backtest_runs (
			id TEXT PRIMARY KEY,
			created_at INTEGER NOT NULL,
			interval TEXT NOT NULL,
			symbols TEXT NOT NULL,
			fee REAL NOT NULL,
			min_order_value REAL NOT NULL,
			points INTEGER NOT NULL,
			trades INTEGER NOT NULL,
			final_portfolio REAL NOT NULL,
			final_hold REAL NOT NULL,
			return_vs_hold REAL NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS backtest_equity (
			run_id TEXT NOT NULL REFERENCES backtest_runs(id) ON DELETE CASCADE,
			ts INTEGER NOT NULL,
			portfolio REAL NOT NULL,
			hold REAL NOT NULL,
			volume_usd REAL NOT NULL,
			PRIMARY KEY (run_id, ts)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("result store schema: %w", err)
		}
	}
	return nil
}

// InsertRun stores the run record and its full equity curve in one
// transaction.
func (s *ResultStore) InsertRun(ctx context.Context, run Run, result *Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return fmt.Errorf("result store closed")
	}
	symbols, err := json.Marshal(run.Symbols)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO backtest_runs (id, created_at, interval, symbols, fee, min_order_value,
			points, trades, final_portfolio, final_hold, return_vs_hold)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		run.ID, run.CreatedAt.UnixMilli(), run.Interval, string(symbols), run.Fee,
		run.MinOrderValue, run.Points, run.Trades, run.FinalPortfolio, run.FinalHold,
		run.ReturnVsHold,
	); err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO backtest_equity (run_id, ts, portfolio, hold, volume_usd) VALUES (?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, ts := range result.Timestamps {
		if _, err := stmt.ExecContext(ctx, run.ID, ts, result.Portfolio[i], result.Hold[i], result.VolumeUSD[i]); err != nil {
			return fmt.Errorf("inserting equity point: %w", err)
		}
	}
	return tx.Commit()
}

// ListRuns returns the most recent runs, newest first.
func (s *ResultStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, fmt.Errorf("result store closed")
	}
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, interval, symbols, fee, min_order_value, points, trades,
			final_portfolio, final_hold, return_vs_hold
		 FROM backtest_runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			run       Run
			createdAt int64
			symbols   string
		)
		if err := rows.Scan(&run.ID, &createdAt, &run.Interval, &symbols, &run.Fee,
			&run.MinOrderValue, &run.Points, &run.Trades, &run.FinalPortfolio,
			&run.FinalHold, &run.ReturnVsHold); err != nil {
			return nil, err
		}
		run.CreatedAt = time.UnixMilli(createdAt)
		if err := json.Unmarshal([]byte(symbols), &run.Symbols); err != nil {
			return nil, fmt.Errorf("decoding symbols for run %s: %w", run.ID, err)
		}
		out = append(out, run)
	}
	return out, rows.Err()
}
