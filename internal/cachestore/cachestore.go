// Package cachestore persists alternative-lookup results across sessions and
// records finished scan sessions for later inspection. Two implementations:
// an in-memory store for tests and single-shot runs, and a SQLite store for
// durable state.
package cachestore

import (
	"context"
	"time"

	"github.com/iacscan/iacscan/internal/scan"
)

// ToolRecord is one persisted tool result
type ToolRecord struct {
	Tool        string
	ExitCode    int
	Status      string
	Label       string
	NeedsTriage bool
	Duration    time.Duration
}

// SessionRecord is one persisted scan session
type SessionRecord struct {
	ID           int64
	ScanType     string
	Target       string
	Environment  string
	StartedAt    time.Time
	FinishedAt   time.Time
	Overall      string
	WarningsOnly bool
	ExitCode     int
	PassCount    int
	WarnCount    int
	FailCount    int
	ErrorCount   int
	Tools        []ToolRecord
}

// History records finished sessions and lists them newest first
type History interface {
	RecordSession(ctx context.Context, session *scan.Session) error
	ListSessions(ctx context.Context, limit int) ([]SessionRecord, error)
}
