package cachestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/iacscan/iacscan/internal/alternatives"
	"github.com/iacscan/iacscan/internal/errors"
	"github.com/iacscan/iacscan/internal/scan"
)

// SQLiteStore backs the lookup cache and session history with SQLite
type SQLiteStore struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// NewSQLiteStore opens (or creates) the store at dbPath
func NewSQLiteStore(dbPath string, ttl time.Duration) (*SQLiteStore, error) {
	// WAL allows concurrent readers with a single writer; the busy timeout
	// keeps overlapping scans from failing on the write lock.
	connStr := dbPath + "?_foreign_keys=1&mode=rwc&_journal_mode=WAL&_busy_timeout=3000"

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, errors.NewTransientf("failed to open sqlite database: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db, ttl: ttl, now: time.Now}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, errors.NewPermanentf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// SetClock replaces the clock, used by tests
func (s *SQLiteStore) SetClock(now func() time.Time) {
	s.now = now
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS alternative_cache (
		distribution TEXT NOT NULL,
		region TEXT NOT NULL,
		architecture TEXT NOT NULL,
		fetched_at INTEGER NOT NULL,
		payload TEXT NOT NULL, -- JSON array of candidates
		PRIMARY KEY (distribution, region, architecture)
	);

	CREATE TABLE IF NOT EXISTS scan_sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		scan_type TEXT NOT NULL,
		target TEXT NOT NULL,
		environment TEXT,
		started_at INTEGER NOT NULL,
		finished_at INTEGER NOT NULL,
		overall TEXT NOT NULL,
		warnings_only BOOLEAN NOT NULL,
		exit_code INTEGER NOT NULL,
		pass_count INTEGER NOT NULL,
		warn_count INTEGER NOT NULL,
		fail_count INTEGER NOT NULL,
		error_count INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tool_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id INTEGER NOT NULL,
		tool TEXT NOT NULL,
		exit_code INTEGER NOT NULL,
		status TEXT NOT NULL,
		label TEXT,
		needs_triage BOOLEAN NOT NULL,
		duration_ms INTEGER NOT NULL,
		FOREIGN KEY (session_id) REFERENCES scan_sessions(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_started ON scan_sessions(started_at);
	CREATE INDEX IF NOT EXISTS idx_tool_results_session ON tool_results(session_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Get returns cached candidates for key; expired entries read as absent
func (s *SQLiteStore) Get(ctx context.Context, key alternatives.Key) ([]alternatives.Candidate, bool, error) {
	var fetchedAt int64
	var payload string
	err := s.db.QueryRowContext(ctx, `
		SELECT fetched_at, payload FROM alternative_cache
		WHERE distribution = ? AND region = ? AND architecture = ?`,
		key.Distribution, key.Region, key.Architecture,
	).Scan(&fetchedAt, &payload)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.NewTransientf("cache read: %w", err)
	}

	if s.now().Sub(time.Unix(fetchedAt, 0)) >= s.ttl {
		return nil, false, nil
	}

	var candidates []alternatives.Candidate
	if err := json.Unmarshal([]byte(payload), &candidates); err != nil {
		return nil, false, errors.NewPermanentf("cache payload corrupt: %w", err)
	}

	for i := range candidates {
		candidates[i].SourceTier = alternatives.TierCache
	}
	return candidates, true, nil
}

// Put replaces the cache entry for key whole; no partial updates
func (s *SQLiteStore) Put(ctx context.Context, key alternatives.Key, candidates []alternatives.Candidate) error {
	payload, err := json.Marshal(candidates)
	if err != nil {
		return errors.NewPermanentf("cache payload encode: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO alternative_cache (distribution, region, architecture, fetched_at, payload)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (distribution, region, architecture)
		DO UPDATE SET fetched_at = excluded.fetched_at, payload = excluded.payload`,
		key.Distribution, key.Region, key.Architecture, s.now().Unix(), string(payload),
	)
	if err != nil {
		return errors.NewTransientf("cache write: %w", err)
	}
	return nil
}

// RecordSession persists a finished session with its tool results
func (s *SQLiteStore) RecordSession(ctx context.Context, session *scan.Session) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewTransientf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO scan_sessions
		(scan_type, target, environment, started_at, finished_at, overall,
		 warnings_only, exit_code, pass_count, warn_count, fail_count, error_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(session.ScanType), session.Target, session.Environment,
		session.StartedAt.Unix(), session.FinishedAt.Unix(),
		string(session.Outcome.Overall), session.Outcome.WarningsOnly,
		session.Outcome.ExitCode, session.Outcome.PassCount,
		session.Outcome.WarnCount, session.Outcome.FailCount,
		session.Outcome.ErrorCount,
	)
	if err != nil {
		return errors.NewTransientf("insert session: %w", err)
	}

	sessionID, err := res.LastInsertId()
	if err != nil {
		return errors.NewTransientf("session id: %w", err)
	}

	for _, tr := range session.Results {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO tool_results
			(session_id, tool, exit_code, status, label, needs_triage, duration_ms)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			sessionID, tr.Tool, tr.ExitCode, string(tr.Status), tr.Label,
			tr.NeedsTriage, tr.Duration.Milliseconds(),
		)
		if err != nil {
			return errors.NewTransientf("insert tool result: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewTransientf("commit session: %w", err)
	}
	return nil
}

// ListSessions returns up to limit sessions, newest first, with tool results
func (s *SQLiteStore) ListSessions(ctx context.Context, limit int) ([]SessionRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, scan_type, target, environment, started_at, finished_at,
		       overall, warnings_only, exit_code, pass_count, warn_count,
		       fail_count, error_count
		FROM scan_sessions
		ORDER BY started_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, errors.NewTransientf("list sessions: %w", err)
	}
	defer rows.Close()

	var records []SessionRecord
	for rows.Next() {
		var r SessionRecord
		var started, finished int64
		if err := rows.Scan(&r.ID, &r.ScanType, &r.Target, &r.Environment,
			&started, &finished, &r.Overall, &r.WarningsOnly, &r.ExitCode,
			&r.PassCount, &r.WarnCount, &r.FailCount, &r.ErrorCount); err != nil {
			return nil, errors.NewTransientf("scan session row: %w", err)
		}
		r.StartedAt = time.Unix(started, 0).UTC()
		r.FinishedAt = time.Unix(finished, 0).UTC()
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewTransientf("session rows: %w", err)
	}

	for i := range records {
		tools, err := s.loadToolResults(ctx, records[i].ID)
		if err != nil {
			return nil, err
		}
		records[i].Tools = tools
	}

	return records, nil
}

func (s *SQLiteStore) loadToolResults(ctx context.Context, sessionID int64) ([]ToolRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tool, exit_code, status, label, needs_triage, duration_ms
		FROM tool_results WHERE session_id = ? ORDER BY id`, sessionID)
	if err != nil {
		return nil, errors.NewTransientf("load tool results: %w", err)
	}
	defer rows.Close()

	var tools []ToolRecord
	for rows.Next() {
		var tr ToolRecord
		var durationMs int64
		if err := rows.Scan(&tr.Tool, &tr.ExitCode, &tr.Status, &tr.Label,
			&tr.NeedsTriage, &durationMs); err != nil {
			return nil, errors.NewTransientf("scan tool row: %w", err)
		}
		tr.Duration = time.Duration(durationMs) * time.Millisecond
		tools = append(tools, tr)
	}
	return tools, rows.Err()
}
