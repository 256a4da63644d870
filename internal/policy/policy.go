// Package policy evaluates a configurable CEL gate over a finished scan
// session. The gate is advisory: it is reported alongside the aggregate, but
// the process exit code stays with the aggregator.
package policy

import (
	"fmt"
	"log/slog"

	"github.com/google/cel-go/cel"

	"github.com/iacscan/iacscan/internal/scan"
)

// Config defines a CEL-based gate
type Config struct {
	// Expression must evaluate to a boolean. Available variables:
	//   - scanType: string
	//   - passCount, warnCount, failCount, errorCount: int
	//   - warningsOnly: bool
	Expression string `yaml:"expression" json:"expression"`

	// FailureMessage is returned when the gate fails (optional)
	FailureMessage string `yaml:"failureMessage" json:"failureMessage"`
}

// Decision is the result of one gate evaluation
type Decision struct {
	Passed bool
	Reason string
}

// Engine compiles the gate expression once and evaluates it per session
type Engine struct {
	logger  *slog.Logger
	config  Config
	program cel.Program
}

// NewEngine creates a gate engine. An empty expression gets the default gate
// of no FAILs and no ERRORs.
func NewEngine(logger *slog.Logger, config Config) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if config.Expression == "" {
		config.Expression = `failCount == 0 && errorCount == 0`
		config.FailureMessage = "scan gate failed"
	}

	env, err := cel.NewEnv(
		cel.Variable("scanType", cel.StringType),
		cel.Variable("passCount", cel.IntType),
		cel.Variable("warnCount", cel.IntType),
		cel.Variable("failCount", cel.IntType),
		cel.Variable("errorCount", cel.IntType),
		cel.Variable("warningsOnly", cel.BoolType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	ast, issues := env.Compile(config.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile gate expression: %w", issues.Err())
	}
	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("gate expression must return a boolean, got %v", ast.OutputType())
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}

	return &Engine{logger: logger, config: config, program: program}, nil
}

// Evaluate runs the gate over a finished session
func (e *Engine) Evaluate(session *scan.Session) (*Decision, error) {
	if session == nil {
		return nil, fmt.Errorf("session is nil")
	}

	out, _, err := e.program.Eval(map[string]interface{}{
		"scanType":     string(session.ScanType),
		"passCount":    session.Outcome.PassCount,
		"warnCount":    session.Outcome.WarnCount,
		"failCount":    session.Outcome.FailCount,
		"errorCount":   session.Outcome.ErrorCount,
		"warningsOnly": session.Outcome.WarningsOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate gate: %w", err)
	}

	passed, ok := out.Value().(bool)
	if !ok {
		return nil, fmt.Errorf("gate expression did not return a boolean: %v", out.Value())
	}

	decision := &Decision{Passed: passed}
	if passed {
		decision.Reason = fmt.Sprintf("gate passed: pass=%d, warn=%d, fail=%d, error=%d",
			session.Outcome.PassCount, session.Outcome.WarnCount,
			session.Outcome.FailCount, session.Outcome.ErrorCount)
		e.logger.Info("gate evaluation passed",
			"scan_type", session.ScanType,
			"expression", e.config.Expression)
	} else {
		decision.Reason = e.config.FailureMessage
		if decision.Reason == "" {
			decision.Reason = fmt.Sprintf("gate failed: pass=%d, warn=%d, fail=%d, error=%d",
				session.Outcome.PassCount, session.Outcome.WarnCount,
				session.Outcome.FailCount, session.Outcome.ErrorCount)
		}
		e.logger.Warn("gate evaluation failed",
			"scan_type", session.ScanType,
			"expression", e.config.Expression,
			"fail_count", session.Outcome.FailCount,
			"error_count", session.Outcome.ErrorCount)
	}

	return decision, nil
}
