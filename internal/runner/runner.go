// Package runner executes external scan tools as argument-list subprocesses.
// Tool failures are results, not errors: a missing binary or an expired
// timeout produces a sentinel exit code so callers can keep going.
package runner

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"time"

	"github.com/iacscan/iacscan/internal/observability"
)

const (
	// CodeTimeout marks a run killed after exceeding its timeout
	CodeTimeout = -1
	// CodeNotFound marks a run whose executable was not on PATH
	CodeNotFound = 127

	// DefaultTimeout applies when an invocation carries no timeout
	DefaultTimeout = 5 * time.Minute
)

// Invocation describes a single tool run. Args never pass through a shell.
type Invocation struct {
	Tool    string
	Args    []string
	Dir     string
	Timeout time.Duration
}

// Result captures everything observed about a completed run
type Result struct {
	Tool     string
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
	TimedOut bool
	NotFound bool
}

// ProcessRunner runs tools via os/exec
type ProcessRunner struct {
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewProcessRunner creates a new process runner
func NewProcessRunner(logger *slog.Logger) *ProcessRunner {
	return &ProcessRunner{
		logger:  logger,
		metrics: observability.GetMetrics(),
	}
}

// Run executes the invocation and returns its result. The returned error is
// non-nil only for setup problems outside the tool itself; tool exit codes,
// missing binaries, and timeouts all come back inside the Result.
func (r *ProcessRunner) Run(ctx context.Context, inv Invocation) (Result, error) {
	startTime := time.Now()

	res := Result{Tool: inv.Tool}

	if _, err := exec.LookPath(inv.Tool); err != nil {
		r.logger.Warn("tool not installed, skipping",
			"tool", inv.Tool,
			"error", err.Error())
		r.metrics.ToolsNotFound.Inc()
		res.ExitCode = CodeNotFound
		res.NotFound = true
		res.Stderr = err.Error()
		return res, nil
	}

	timeout := inv.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, inv.Tool, inv.Args...)
	cmd.Dir = inv.Dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.logger.Debug("running tool",
		"tool", inv.Tool,
		"args", inv.Args,
		"timeout", timeout)

	err := cmd.Run()
	res.Duration = time.Since(startTime)
	res.Stdout = stdout.String()
	res.Stderr = stderr.String()

	r.metrics.ToolDuration.WithLabelValues(inv.Tool).Observe(res.Duration.Seconds())

	if runCtx.Err() == context.DeadlineExceeded {
		r.logger.Warn("tool timed out",
			"tool", inv.Tool,
			"timeout", timeout,
			"duration", res.Duration)
		r.metrics.ToolsTimedOut.Inc()
		res.ExitCode = CodeTimeout
		res.TimedOut = true
		return res, nil
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			r.logger.Debug("tool exited nonzero",
				"tool", inv.Tool,
				"exit_code", res.ExitCode,
				"duration", res.Duration)
			return res, nil
		}
		// Start failures after a successful PATH lookup are rare; treat
		// them like a missing tool so the session can continue.
		r.logger.Warn("tool failed to start",
			"tool", inv.Tool,
			"error", err.Error())
		r.metrics.ToolsNotFound.Inc()
		res.ExitCode = CodeNotFound
		res.NotFound = true
		return res, nil
	}

	r.logger.Debug("tool completed",
		"tool", inv.Tool,
		"exit_code", 0,
		"duration", res.Duration)

	return res, nil
}
