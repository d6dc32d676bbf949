// Package history persists forecast runs and the usage counter.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/0xcro3dile/cfohelper-go/internal/domain/entities"
	"github.com/0xcro3dile/cfohelper-go/internal/domain/ports"
)

var _ ports.ForecastLog = (*SQLiteLog)(nil)

// SQLiteLog implements ports.ForecastLog on a SQLite file.
type SQLiteLog struct {
	mu sync.Mutex
	db *sql.DB
}

// NewSQLiteLog opens (or creates) the history database at path.
func NewSQLiteLog(path string) (*SQLiteLog, error) {
	if path == "" {
		path = "./data/history.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	l := &SQLiteLog{db: db}
	if err := l.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return l, nil
}

func (l *SQLiteLog) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS forecast_runs (
		scenario_id TEXT PRIMARY KEY,
		run_at INTEGER NOT NULL, -- unix nanoseconds
		runway_months INTEGER NOT NULL,
		final_balance REAL NOT NULL,
		result BLOB NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_run_at ON forecast_runs(run_at);
	CREATE TABLE IF NOT EXISTS usage (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		api_calls INTEGER NOT NULL DEFAULT 0
	);
	INSERT OR IGNORE INTO usage (id, api_calls) VALUES (1, 0);
	`
	_, err := l.db.Exec(schema)
	return err
}

// Record stores one forecast run.
func (l *SQLiteLog) Record(ctx context.Context, result entities.ForecastResult) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	blob, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encoding forecast: %w", err)
	}

	_, err = l.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO forecast_runs (scenario_id, run_at, runway_months, final_balance, result)
		VALUES (?, ?, ?, ?, ?)
	`, result.ScenarioID, result.Timestamp.UnixNano(), result.TotalMonthsOfRunway, result.FinalCashBalance, blob)
	if err != nil {
		return fmt.Errorf("inserting forecast run: %w", err)
	}
	return nil
}

// IncrementUsage bumps the API call counter.
func (l *SQLiteLog) IncrementUsage(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, err := l.db.ExecContext(ctx, "UPDATE usage SET api_calls = api_calls + 1 WHERE id = 1")
	return err
}

// Usage returns the counters and the time of the latest run.
func (l *SQLiteLog) Usage(ctx context.Context) (entities.UsageStats, error) {
	var stats entities.UsageStats
	var last sql.NullInt64

	err := l.db.QueryRowContext(ctx, `
		SELECT (SELECT COUNT(*) FROM forecast_runs),
		       (SELECT api_calls FROM usage WHERE id = 1),
		       (SELECT MAX(run_at) FROM forecast_runs)
	`).Scan(&stats.TotalScenariosRun, &stats.APICalls, &last)
	if err != nil {
		return entities.UsageStats{}, fmt.Errorf("querying usage: %w", err)
	}
	if last.Valid {
		t := time.Unix(0, last.Int64).UTC()
		stats.LastScenarioTime = &t
	}
	return stats, nil
}

// Recent returns up to limit runs, newest first.
func (l *SQLiteLog) Recent(ctx context.Context, limit int) ([]entities.ForecastResult, error) {
	if limit <= 0 {
		return []entities.ForecastResult{}, nil
	}
	rows, err := l.db.QueryContext(ctx,
		"SELECT result FROM forecast_runs ORDER BY run_at DESC, scenario_id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	results := []entities.ForecastResult{}
	for rows.Next() {
		var blob []byte
		if err := rows.Scan(&blob); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		var r entities.ForecastResult
		if err := json.Unmarshal(blob, &r); err != nil {
			continue // skip corrupted rows
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// Close closes the database connection.
func (l *SQLiteLog) Close() error {
	return l.db.Close()
}

// Memory is the in-process ForecastLog used when no database path is set.
type Memory struct {
	mu       sync.RWMutex
	runs     []entities.ForecastResult
	apiCalls int64
}

var _ ports.ForecastLog = (*Memory)(nil)

// NewMemory creates an empty in-memory log.
func NewMemory() *Memory {
	return &Memory{}
}

// Record appends a run.
func (m *Memory) Record(ctx context.Context, result entities.ForecastResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, result)
	return nil
}

// IncrementUsage bumps the API call counter.
func (m *Memory) IncrementUsage(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.apiCalls++
	return nil
}

// Usage returns the counters and the time of the latest run.
func (m *Memory) Usage(ctx context.Context) (entities.UsageStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := entities.UsageStats{
		TotalScenariosRun: int64(len(m.runs)),
		APICalls:          m.apiCalls,
	}
	var last time.Time
	for _, r := range m.runs {
		if r.Timestamp.After(last) {
			last = r.Timestamp
		}
	}
	if !last.IsZero() {
		t := last.UTC()
		stats.LastScenarioTime = &t
	}
	return stats, nil
}

// Recent returns up to limit runs, newest first.
func (m *Memory) Recent(ctx context.Context, limit int) ([]entities.ForecastResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	results := slices.Clone(m.runs)
	slices.SortStableFunc(results, func(a, b entities.ForecastResult) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	if limit < 0 {
		limit = 0
	}
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }
