package policy

import (
	"log/slog"
	"testing"

	"github.com/iacscan/iacscan/internal/scan"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func sessionWith(outcome scan.Outcome) *scan.Session {
	return &scan.Session{ScanType: scan.TypeTerraform, Outcome: outcome}
}

func TestNewEngine_DefaultExpression(t *testing.T) {
	e, err := NewEngine(testLogger(), Config{})
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}

	d, err := e.Evaluate(sessionWith(scan.Outcome{PassCount: 3}))
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if !d.Passed {
		t.Error("clean session should pass the default gate")
	}

	d, err = e.Evaluate(sessionWith(scan.Outcome{PassCount: 2, FailCount: 1}))
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if d.Passed {
		t.Error("session with a FAIL should fail the default gate")
	}
}

func TestNewEngine_DefaultGateAllowsWarnings(t *testing.T) {
	e, err := NewEngine(testLogger(), Config{})
	if err != nil {
		t.Fatal(err)
	}

	d, err := e.Evaluate(sessionWith(scan.Outcome{PassCount: 1, WarnCount: 2, WarningsOnly: true}))
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if !d.Passed {
		t.Error("warnings-only session should pass the default gate")
	}
}

func TestNewEngine_CustomExpression(t *testing.T) {
	e, err := NewEngine(testLogger(), Config{
		Expression:     `warnCount <= 1 && failCount == 0`,
		FailureMessage: "too many warnings",
	})
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}

	d, err := e.Evaluate(sessionWith(scan.Outcome{WarnCount: 3}))
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if d.Passed {
		t.Error("expected custom gate to fail")
	}
	if d.Reason != "too many warnings" {
		t.Errorf("reason = %q, want configured failure message", d.Reason)
	}
}

func TestNewEngine_ScanTypeVariable(t *testing.T) {
	e, err := NewEngine(testLogger(), Config{
		Expression: `scanType == "terraform" ? errorCount == 0 : true`,
	})
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}

	d, err := e.Evaluate(sessionWith(scan.Outcome{ErrorCount: 1}))
	if err != nil {
		t.Fatal(err)
	}
	if d.Passed {
		t.Error("terraform session with errors should fail this gate")
	}
}

func TestNewEngine_InvalidExpression(t *testing.T) {
	if _, err := NewEngine(testLogger(), Config{Expression: `failCount ==`}); err == nil {
		t.Error("expected compile error for malformed expression")
	}
}

func TestNewEngine_NonBooleanExpression(t *testing.T) {
	if _, err := NewEngine(testLogger(), Config{Expression: `failCount + 1`}); err == nil {
		t.Error("expected error for non-boolean expression")
	}
}

func TestEvaluate_NilSession(t *testing.T) {
	e, err := NewEngine(testLogger(), Config{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.Evaluate(nil); err == nil {
		t.Error("expected error for nil session")
	}
}
