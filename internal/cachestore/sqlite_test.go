package cachestore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/iacscan/iacscan/internal/alternatives"
	"github.com/iacscan/iacscan/internal/exitcode"
	"github.com/iacscan/iacscan/internal/scan"
)

func newTestSQLiteStore(t *testing.T, ttl time.Duration) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"), ttl)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStoreCacheRoundTrip(t *testing.T) {
	store := newTestSQLiteStore(t, time.Hour)
	ctx := context.Background()

	if err := store.Put(ctx, testKey(), testCandidates()); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	got, found, err := store.Get(ctx, testKey())
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !found {
		t.Fatal("expected cache hit")
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(got))
	}
	if got[0].ImageID != "ami-0c02fb55956c7d316" {
		t.Errorf("unexpected image id: %s", got[0].ImageID)
	}
	if got[0].SourceTier != alternatives.TierCache {
		t.Errorf("cached candidates must report the cache tier, got %q", got[0].SourceTier)
	}
	if !got[0].LastVerified.Equal(time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("last verified timestamp not preserved: %v", got[0].LastVerified)
	}
}

func TestSQLiteStoreTTLBoundary(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	current := base

	store := newTestSQLiteStore(t, 60*time.Minute)
	store.SetClock(func() time.Time { return current })
	ctx := context.Background()

	if err := store.Put(ctx, testKey(), testCandidates()); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	current = base.Add(59 * time.Minute)
	_, found, err := store.Get(ctx, testKey())
	if err != nil {
		t.Fatalf("get at 59m failed: %v", err)
	}
	if !found {
		t.Error("entry should be honored before the TTL elapses")
	}

	current = base.Add(61 * time.Minute)
	_, found, err = store.Get(ctx, testKey())
	if err != nil {
		t.Fatalf("get at 61m failed: %v", err)
	}
	if found {
		t.Error("entry past the TTL should read as absent")
	}
}

func TestSQLiteStorePutRefreshesFetchedAt(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	current := base

	store := newTestSQLiteStore(t, 60*time.Minute)
	store.SetClock(func() time.Time { return current })
	ctx := context.Background()

	if err := store.Put(ctx, testKey(), testCandidates()); err != nil {
		t.Fatalf("first put failed: %v", err)
	}

	current = base.Add(50 * time.Minute)
	if err := store.Put(ctx, testKey(), testCandidates()); err != nil {
		t.Fatalf("second put failed: %v", err)
	}

	current = base.Add(90 * time.Minute)
	_, found, err := store.Get(ctx, testKey())
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !found {
		t.Error("rewriting an entry should restart its TTL")
	}
}

func TestSQLiteStoreRecordAndListSessions(t *testing.T) {
	store := newTestSQLiteStore(t, time.Hour)
	ctx := context.Background()

	first := &scan.Session{
		ScanType:    scan.TypeCloudFormation,
		Target:      "stack.yaml",
		Environment: "dev",
		StartedAt:   time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
		FinishedAt:  time.Date(2025, 6, 1, 10, 1, 30, 0, time.UTC),
		Results: []scan.ToolResult{
			{Tool: "cfn-lint", ExitCode: 4, Status: exitcode.StatusWarn, Label: "warnings", Duration: 1200 * time.Millisecond},
			{Tool: "checkov", ExitCode: 0, Status: exitcode.StatusPass, Label: "clean", Duration: 8 * time.Second},
		},
		Outcome: scan.Outcome{
			Overall:      scan.OverallIssuesFound,
			WarningsOnly: true,
			ExitCode:     1,
			PassCount:    1,
			WarnCount:    1,
		},
	}
	second := &scan.Session{
		ScanType:   scan.TypeTerraform,
		Target:     "./infra",
		StartedAt:  time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2025, 6, 1, 11, 2, 0, 0, time.UTC),
		Results: []scan.ToolResult{
			{Tool: "tflint", ExitCode: 0, Status: exitcode.StatusPass, Duration: 500 * time.Millisecond},
		},
		Outcome: scan.Outcome{
			Overall:   scan.OverallSuccess,
			PassCount: 1,
		},
	}

	if err := store.RecordSession(ctx, first); err != nil {
		t.Fatalf("record first session failed: %v", err)
	}
	if err := store.RecordSession(ctx, second); err != nil {
		t.Fatalf("record second session failed: %v", err)
	}

	records, err := store.ListSessions(ctx, 10)
	if err != nil {
		t.Fatalf("list sessions failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(records))
	}

	// Newest first.
	if records[0].ScanType != string(scan.TypeTerraform) {
		t.Errorf("expected terraform session first, got %s", records[0].ScanType)
	}
	if records[1].ScanType != string(scan.TypeCloudFormation) {
		t.Errorf("expected cloudformation session second, got %s", records[1].ScanType)
	}

	cfn := records[1]
	if cfn.Overall != string(scan.OverallIssuesFound) {
		t.Errorf("unexpected overall: %s", cfn.Overall)
	}
	if !cfn.WarningsOnly {
		t.Error("warnings-only flag lost")
	}
	if cfn.ExitCode != 1 || cfn.PassCount != 1 || cfn.WarnCount != 1 {
		t.Errorf("counts not preserved: %+v", cfn)
	}
	if len(cfn.Tools) != 2 {
		t.Fatalf("expected 2 tool records, got %d", len(cfn.Tools))
	}
	if cfn.Tools[0].Tool != "cfn-lint" || cfn.Tools[0].ExitCode != 4 {
		t.Errorf("tool order or exit code lost: %+v", cfn.Tools[0])
	}
	if cfn.Tools[0].Status != string(exitcode.StatusWarn) {
		t.Errorf("unexpected status: %s", cfn.Tools[0].Status)
	}
	if cfn.Tools[0].Duration != 1200*time.Millisecond {
		t.Errorf("duration not preserved: %v", cfn.Tools[0].Duration)
	}
}

func TestSQLiteStoreListSessionsLimit(t *testing.T) {
	store := newTestSQLiteStore(t, time.Hour)
	ctx := context.Background()

	for i := range 5 {
		session := &scan.Session{
			ScanType:   scan.TypeKubernetes,
			Target:     "manifests/",
			StartedAt:  time.Date(2025, 6, 1, 10, i, 0, 0, time.UTC),
			FinishedAt: time.Date(2025, 6, 1, 10, i, 30, 0, time.UTC),
			Outcome:    scan.Outcome{Overall: scan.OverallSuccess},
		}
		if err := store.RecordSession(ctx, session); err != nil {
			t.Fatalf("record session %d failed: %v", i, err)
		}
	}

	records, err := store.ListSessions(ctx, 3)
	if err != nil {
		t.Fatalf("list sessions failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected limit of 3 sessions, got %d", len(records))
	}
	if !records[0].StartedAt.After(records[1].StartedAt) {
		t.Error("sessions not ordered newest first")
	}
}
