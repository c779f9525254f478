package recorder

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"SurgeScreener/internal/model"
)

// SQLiteRecorder persists screening runs and their passing tickers.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets the API read while a scheduled run writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS screen_runs (
			run_id            TEXT PRIMARY KEY,
			timestamp         INTEGER NOT NULL,
			layer             TEXT,
			provider          TEXT,
			window_start      INTEGER,
			window_end        INTEGER,
			total             INTEGER,
			retained          INTEGER,
			rejected          INTEGER,
			fetch_failed      INTEGER,
			insufficient_data INTEGER,
			timeout           INTEGER,
			internal_error    INTEGER,
			duration_ms       INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_ts ON screen_runs(timestamp)`,

		`CREATE TABLE IF NOT EXISTS screen_passes (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id            TEXT NOT NULL REFERENCES screen_runs(run_id),
			ticker            TEXT NOT NULL,
			name              TEXT,
			day_close         REAL,
			prev_close        REAL,
			day_volume        REAL,
			avg_volume        REAL,
			day_value         REAL,
			day_range_pct     REAL,
			price_change_pct  REAL,
			window_volatility REAL,
			traded_value      REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_passes_run ON screen_passes(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_passes_ticker ON screen_passes(ticker)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordRun stores the run and its passes in one transaction.
func (r *SQLiteRecorder) RecordRun(snap *RunSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	c := snap.Counts
	_, err = tx.Exec(`INSERT INTO screen_runs
		(run_id, timestamp, layer, provider, window_start, window_end, total,
		 retained, rejected, fetch_failed, insufficient_data, timeout, internal_error, duration_ms)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		snap.RunID, snap.StartedAt.Unix(), snap.Layer, snap.Provider,
		snap.WindowStart.Unix(), snap.WindowEnd.Unix(), snap.Total,
		c[model.ReasonRetained], c[model.ReasonRejected], c[model.ReasonFetchFailed],
		c[model.ReasonInsufficientData], c[model.ReasonTimeout], c[model.ReasonInternal],
		snap.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, p := range snap.Passes {
		if _, err := tx.Exec(`INSERT INTO screen_passes
			(run_id, ticker, name, day_close, prev_close, day_volume, avg_volume, day_value,
			 day_range_pct, price_change_pct, window_volatility, traded_value)
			VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
			snap.RunID, p.Ticker, p.Name, p.DayClose, p.PrevClose, p.DayVolume, p.AvgVolume,
			p.DayValue, p.DayRangePct, p.PriceChangePct, p.WindowVolatility, p.TradedValue,
		); err != nil {
			return fmt.Errorf("insert pass %s: %w", p.Ticker, err)
		}
	}
	return tx.Commit()
}

// LatestRun loads the most recent run with its passes.
func (r *SQLiteRecorder) LatestRun() (*RunSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		snap                       RunSnapshot
		ts, wStart, wEnd, duration int64
		retained, rejected, failed int
		insufficient, timeout, bad int
	)
	err := r.db.QueryRow(`SELECT run_id, timestamp, layer, provider, window_start, window_end, total,
		retained, rejected, fetch_failed, insufficient_data, timeout, internal_error, duration_ms
		FROM screen_runs ORDER BY timestamp DESC, rowid DESC LIMIT 1`).Scan(
		&snap.RunID, &ts, &snap.Layer, &snap.Provider, &wStart, &wEnd, &snap.Total,
		&retained, &rejected, &failed, &insufficient, &timeout, &bad, &duration,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoRuns
	}
	if err != nil {
		return nil, fmt.Errorf("query latest run: %w", err)
	}
	snap.StartedAt = time.Unix(ts, 0)
	snap.WindowStart = time.Unix(wStart, 0)
	snap.WindowEnd = time.Unix(wEnd, 0)
	snap.Duration = time.Duration(duration) * time.Millisecond
	snap.Counts = map[model.DropReason]int{
		model.ReasonRetained:         retained,
		model.ReasonRejected:         rejected,
		model.ReasonFetchFailed:      failed,
		model.ReasonInsufficientData: insufficient,
		model.ReasonTimeout:          timeout,
		model.ReasonInternal:         bad,
	}

	rows, err := r.db.Query(`SELECT ticker, name, day_close, prev_close, day_volume, avg_volume, day_value,
		day_range_pct, price_change_pct, window_volatility, traded_value
		FROM screen_passes WHERE run_id = ? ORDER BY ticker`, snap.RunID)
	if err != nil {
		return nil, fmt.Errorf("query passes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var p PassRecord
		if err := rows.Scan(&p.Ticker, &p.Name, &p.DayClose, &p.PrevClose, &p.DayVolume, &p.AvgVolume,
			&p.DayValue, &p.DayRangePct, &p.PriceChangePct, &p.WindowVolatility, &p.TradedValue); err != nil {
			return nil, fmt.Errorf("scan pass: %w", err)
		}
		snap.Passes = append(snap.Passes, p)
	}
	return &snap, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
