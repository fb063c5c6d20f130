package recorder

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"SizingSignal/internal/model"
)

// RunSummary is a stored run header.
type RunSummary struct {
	ID        string
	Timestamp time.Time
	Trigger   string
	Horizon   model.Horizon
	Rows      int
	Skipped   int
}

// SQLiteRecorder persists run history to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

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
		`CREATE TABLE IF NOT EXISTS runs (
			id            TEXT PRIMARY KEY,
			timestamp     INTEGER NOT NULL,
			trigger_name  TEXT,
			horizon       TEXT NOT NULL,
			row_count     INTEGER,
			skipped_count INTEGER,
			duration_ms   INTEGER,
			weights       TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_ts ON runs(timestamp)`,

		`CREATE TABLE IF NOT EXISTS suggestions (
			id                 INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id             TEXT NOT NULL REFERENCES runs(id),
			position           INTEGER NOT NULL,
			ticker             TEXT NOT NULL,
			position_value     REAL,
			latest_close       REAL,
			all_time_high      REAL,
			spread_from_peak   REAL,
			market_cap         REAL,
			trend_p1           REAL,
			trend_p2           REAL,
			trend_p3           REAL,
			daily_investment   REAL,
			weekly_investment  REAL,
			monthly_investment REAL,
			yearly_investment  REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_suggestions_run ON suggestions(run_id)`,

		`CREATE TABLE IF NOT EXISTS skipped (
			id     INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(id),
			ticker TEXT NOT NULL,
			reason TEXT
		)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordRun stores the run and its rows in one transaction and returns the run id.
func (r *SQLiteRecorder) RecordRun(snap *RunSnapshot) (string, error) {
	if snap == nil || snap.Table == nil {
		return "", fmt.Errorf("record run: nil snapshot")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	weights, err := json.Marshal(snap.Weights)
	if err != nil {
		return "", fmt.Errorf("encode weights: %w", err)
	}

	t := snap.Table
	ts := t.GeneratedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	id := uuid.NewString()

	tx, err := r.db.Begin()
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT INTO runs
		(id, timestamp, trigger_name, horizon, row_count, skipped_count, duration_ms, weights)
		VALUES (?,?,?,?,?,?,?,?)`,
		id, ts.Unix(), snap.Trigger, string(t.Horizon),
		len(t.Rows), len(t.Skipped), snap.Duration.Milliseconds(), string(weights),
	); err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	for i, row := range t.Rows {
		var marketCap any
		if row.MarketCap != nil {
			marketCap = nullable(*row.MarketCap)
		}
		if _, err := tx.Exec(`INSERT INTO suggestions
			(run_id, position, ticker, position_value, latest_close, all_time_high, spread_from_peak,
			 market_cap, trend_p1, trend_p2, trend_p3,
			 daily_investment, weekly_investment, monthly_investment, yearly_investment)
			VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
			id, i, row.Ticker, row.PositionValue, nullable(row.LatestClose), nullable(row.AllTimeHigh),
			nullable(row.SpreadFromPeak), marketCap,
			nullable(row.Trend.P1), nullable(row.Trend.P2), nullable(row.Trend.P3),
			investment(row, model.HorizonDaily), investment(row, model.HorizonWeekly),
			investment(row, model.HorizonMonthly), investment(row, model.HorizonYearly),
		); err != nil {
			return "", fmt.Errorf("insert suggestion %s: %w", row.Ticker, err)
		}
	}

	for _, s := range t.Skipped {
		if _, err := tx.Exec(`INSERT INTO skipped (run_id, ticker, reason) VALUES (?,?,?)`,
			id, s.Ticker, s.Reason); err != nil {
			return "", fmt.Errorf("insert skipped %s: %w", s.Ticker, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

// RecentRuns returns up to limit runs, newest first.
func (r *SQLiteRecorder) RecentRuns(limit int) ([]RunSummary, error) {
	rows, err := r.db.Query(`SELECT id, timestamp, trigger_name, horizon, row_count, skipped_count
		FROM runs ORDER BY timestamp DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		rs, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rs)
	}
	return out, rows.Err()
}

func scanRun(rows *sql.Rows) (RunSummary, error) {
	var (
		rs      RunSummary
		ts      int64
		horizon string
	)
	if err := rows.Scan(&rs.ID, &ts, &rs.Trigger, &horizon, &rs.Rows, &rs.Skipped); err != nil {
		return RunSummary{}, fmt.Errorf("scan run: %w", err)
	}
	rs.Timestamp = time.Unix(ts, 0)
	rs.Horizon = model.Horizon(horizon)
	return rs, nil
}

// ErrRunNotFound is returned when no stored run matches an id.
var ErrRunNotFound = errors.New("run not found")

// FindRun returns the run whose id starts with prefix. An ambiguous prefix is an error.
func (r *SQLiteRecorder) FindRun(prefix string) (*RunSummary, error) {
	if prefix == "" {
		return nil, ErrRunNotFound
	}
	rows, err := r.db.Query(`SELECT id, timestamp, trigger_name, horizon, row_count, skipped_count
		FROM runs WHERE substr(id, 1, ?) = ? LIMIT 2`, len(prefix), prefix)
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}
	defer rows.Close()

	var found []RunSummary
	for rows.Next() {
		rs, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		found = append(found, rs)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	switch len(found) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, prefix)
	case 1:
		return &found[0], nil
	default:
		return nil, fmt.Errorf("run id %s is ambiguous", prefix)
	}
}

// Investments returns the stored amounts of a run for horizon h, in table order.
func (r *SQLiteRecorder) Investments(runID string, h model.Horizon) ([]model.ProjectedRow, error) {
	column := map[model.Horizon]string{
		model.HorizonDaily:   "daily_investment",
		model.HorizonWeekly:  "weekly_investment",
		model.HorizonMonthly: "monthly_investment",
		model.HorizonYearly:  "yearly_investment",
	}[h]
	if column == "" {
		return nil, fmt.Errorf("%w: unknown horizon %q", model.ErrInvalidRequest, h)
	}

	rows, err := r.db.Query(`SELECT ticker, `+column+` FROM suggestions WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("query suggestions: %w", err)
	}
	defer rows.Close()

	var out []model.ProjectedRow
	for rows.Next() {
		var (
			pr     model.ProjectedRow
			amount sql.NullFloat64
		)
		if err := rows.Scan(&pr.Ticker, &amount); err != nil {
			return nil, fmt.Errorf("scan suggestion: %w", err)
		}
		pr.Amount = math.NaN()
		if amount.Valid {
			pr.Amount = amount.Float64
		}
		out = append(out, pr)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}

// nullable stores undefined values as NULL.
func nullable(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

func investment(row model.InvestmentSuggestion, h model.Horizon) any {
	v, ok := row.Investments[h]
	if !ok {
		return nil
	}
	return nullable(v)
}
