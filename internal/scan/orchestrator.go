package scan

import (
	"context"
	"log/slog"
	"time"

	"github.com/iacscan/iacscan/internal/alternatives"
	"github.com/iacscan/iacscan/internal/amiscan"
	"github.com/iacscan/iacscan/internal/exitcode"
	"github.com/iacscan/iacscan/internal/observability"
	"github.com/iacscan/iacscan/internal/runner"
)

// Runner executes one tool invocation
type Runner interface {
	Run(ctx context.Context, inv runner.Invocation) (runner.Result, error)
}

// Resolver produces replacement shortlists for flagged machine images
type Resolver interface {
	Resolve(ctx context.Context, imageID, name string) alternatives.Result
}

// OrchestratorConfig wires an orchestrator's collaborators
type OrchestratorConfig struct {
	Runner      Runner
	Interpreter *exitcode.Interpreter
	Images      *amiscan.Scanner
	Resolver    Resolver // nil disables alternative resolution
	ToolTimeout time.Duration
	Environment string
	Logger      *slog.Logger
}

// Orchestrator runs one session's tools sequentially, interpreting each
// result as it lands so partial failure is visible incrementally. A single
// tool's FAIL or ERROR never aborts the session; every applicable tool runs.
type Orchestrator struct {
	cfg     OrchestratorConfig
	metrics *observability.Metrics
}

// NewOrchestrator creates an orchestrator
func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	if cfg.Interpreter == nil {
		cfg.Interpreter = exitcode.NewInterpreter()
	}
	if cfg.Images == nil {
		cfg.Images = amiscan.NewScanner()
	}
	return &Orchestrator{cfg: cfg, metrics: observability.GetMetrics()}
}

// Run executes one complete scan session. The returned error is non-nil only
// for fatal setup problems (e.g. missing target) detected before any tool
// runs; those map to the internal-error process exit code.
func (o *Orchestrator) Run(ctx context.Context, scanType Type, target string) (*Session, error) {
	plan, err := PlanFor(scanType, target, o.cfg.ToolTimeout)
	if err != nil {
		return nil, err
	}

	session := &Session{
		ScanType:    scanType,
		Target:      target,
		Environment: o.cfg.Environment,
		StartedAt:   time.Now().UTC(),
	}

	o.cfg.Logger.Info("scan session started",
		"scan_type", scanType,
		"target", target,
		"tools", len(plan))

	for _, inv := range plan {
		session.Results = append(session.Results, o.runTool(ctx, inv))
	}

	o.attachImageFindings(ctx, session)

	session.Outcome = Aggregate(session.Results)
	session.FinishedAt = time.Now().UTC()

	duration := session.FinishedAt.Sub(session.StartedAt)
	o.metrics.SessionsTotal.WithLabelValues(string(scanType), string(session.Outcome.Overall)).Inc()
	o.metrics.SessionDuration.Observe(duration.Seconds())

	o.cfg.Logger.Info("scan session finished",
		"scan_type", scanType,
		"overall", session.Outcome.Overall,
		"warnings_only", session.Outcome.WarningsOnly,
		"duration", duration)

	return session, nil
}

func (o *Orchestrator) runTool(ctx context.Context, inv runner.Invocation) ToolResult {
	res, err := o.cfg.Runner.Run(ctx, inv)
	if err != nil {
		// Setup failures inside the runner are recorded like a crashed
		// tool so the rest of the session still runs.
		o.cfg.Logger.Error("tool execution failed",
			"tool", inv.Tool,
			"error", err.Error())
		tr := ToolResult{
			Tool:     inv.Tool,
			ExitCode: runner.CodeNotFound,
			Status:   exitcode.StatusError,
			Label:    err.Error(),
		}
		o.metrics.ToolRunsTotal.WithLabelValues(inv.Tool, string(tr.Status)).Inc()
		return tr
	}

	interp := o.cfg.Interpreter.Interpret(res.Tool, res.ExitCode)
	tr := ToolResult{
		Tool:        res.Tool,
		ExitCode:    res.ExitCode,
		Status:      interp.Status,
		Label:       interp.Label,
		NeedsTriage: interp.NeedsTriage,
		Stdout:      res.Stdout,
		Stderr:      res.Stderr,
		Duration:    res.Duration,
	}

	o.metrics.ToolRunsTotal.WithLabelValues(tr.Tool, string(tr.Status)).Inc()
	if tr.NeedsTriage {
		o.metrics.UnmappedExitCodes.WithLabelValues(tr.Tool).Inc()
	}

	o.cfg.Logger.Info("tool interpreted",
		"tool", tr.Tool,
		"exit_code", tr.ExitCode,
		"status", tr.Status,
		"label", tr.Label)

	return tr
}

// attachImageFindings scans AWS template targets for machine-image
// references and attaches a resolver shortlist to each flagged one. All
// failures here are logged and non-fatal.
func (o *Orchestrator) attachImageFindings(ctx context.Context, session *Session) {
	if session.ScanType != TypeTerraform && session.ScanType != TypeCloudFormation {
		return
	}

	findings, err := o.cfg.Images.ScanTarget(session.Target)
	if err != nil {
		o.cfg.Logger.Warn("image reference scan failed",
			"target", session.Target,
			"error", err.Error())
		return
	}

	for i := range findings {
		f := &findings[i]
		o.metrics.ImageFindingsTotal.WithLabelValues(string(f.Category)).Inc()

		if o.cfg.Resolver == nil {
			continue
		}
		if f.Category != amiscan.CategoryCVE && f.Category != amiscan.CategoryOutdated {
			continue
		}

		res := o.cfg.Resolver.Resolve(ctx, f.ImageID, f.Name)
		f.Alternatives = res.Candidates
		f.Reason = string(res.Reason)
	}

	session.ImageFindings = findings
}
