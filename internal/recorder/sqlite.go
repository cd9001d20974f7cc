package recorder

import (
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

var (
	_ Recorder = (*SQLiteRecorder)(nil)
	_ Recorder = (*NoopRecorder)(nil)
)

// SQLiteRecorder persists run history to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log *slog.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, log *slog.Logger) (*SQLiteRecorder, error) {
	if log == nil {
		log = slog.Default()
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets the CLI read history while the server writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: log.With("component", "recorder")}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	r.log.Info("sqlite recorder opened", "path", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS forecast_runs (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp   INTEGER NOT NULL,
			session_id  TEXT,
			ticker      TEXT NOT NULL,
			years       INTEGER,
			provider    TEXT,
			bars        INTEGER,
			points      INTEGER,
			last_date   TEXT,
			last_yhat   REAL,
			stage       TEXT,
			error       TEXT,
			fetch_ms    INTEGER,
			fit_ms      INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_ts ON forecast_runs(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_ticker ON forecast_runs(ticker)`,

		`CREATE TABLE IF NOT EXISTS ticker_events (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp  INTEGER NOT NULL,
			session_id TEXT,
			ticker     TEXT,
			outcome    TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ticker_ts ON ticker_events(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordRun(evt *RunEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var lastDate string
	if !evt.LastDate.IsZero() {
		lastDate = evt.LastDate.Format("2006-01-02")
	}
	_, err := r.db.Exec(`INSERT INTO forecast_runs
		(timestamp, session_id, ticker, years, provider, bars, points,
		 last_date, last_yhat, stage, error, fetch_ms, fit_ms)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		time.Now().UnixMilli(), evt.SessionID, evt.Ticker, evt.Years, evt.Provider,
		evt.Bars, evt.Points, lastDate, evt.LastYhat,
		evt.Stage, evt.Error, evt.FetchMs, evt.FitMs,
	)
	return err
}

func (r *SQLiteRecorder) RecordTicker(evt *TickerEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO ticker_events
		(timestamp, session_id, ticker, outcome)
		VALUES (?,?,?,?)`,
		time.Now().UnixMilli(), evt.SessionID, evt.Ticker, evt.Outcome,
	)
	return err
}

// RecentRuns returns up to limit runs, newest first.
func (r *SQLiteRecorder) RecentRuns(limit int) ([]RunRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.Query(`SELECT id, timestamp, session_id, ticker, years, provider,
		bars, points, last_date, last_yhat, stage, error, fetch_ms, fit_ms
		FROM forecast_runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var (
			rec      RunRecord
			ts       int64
			lastDate string
		)
		if err := rows.Scan(&rec.ID, &ts, &rec.SessionID, &rec.Ticker, &rec.Years, &rec.Provider,
			&rec.Bars, &rec.Points, &lastDate, &rec.LastYhat, &rec.Stage, &rec.Error,
			&rec.FetchMs, &rec.FitMs); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		rec.Timestamp = time.UnixMilli(ts)
		if lastDate != "" {
			if t, err := time.Parse("2006-01-02", lastDate); err == nil {
				rec.LastDate = t
			}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info("closing sqlite recorder")
	return r.db.Close()
}
