// Package exitcode maps raw tool exit codes to scan statuses. Every tool
// encodes findings differently: some signal warnings with exit 1, some with
// exit 2, and cfn-lint packs severities into a bitmask. The rule tables here
// centralize that knowledge so the orchestrator never branches on codes.
package exitcode

import (
	"fmt"

	"github.com/iacscan/iacscan/internal/runner"
)

// Status classifies the outcome of a single tool run
type Status string

const (
	StatusPass  Status = "PASS"
	StatusWarn  Status = "WARN"
	StatusFail  Status = "FAIL"
	StatusError Status = "ERROR"
)

// severity orders statuses for bitmask dominance, worst first
var severity = map[Status]int{
	StatusError: 3,
	StatusFail:  2,
	StatusWarn:  1,
	StatusPass:  0,
}

// Worse reports whether a is more severe than b
func Worse(a, b Status) bool {
	return severity[a] > severity[b]
}

// Interpretation is the interpreted meaning of one exit code
type Interpretation struct {
	Status Status
	Label  string
	// NeedsTriage marks codes absent from the tool's rule table. They
	// surface as ERROR rather than silently passing or failing.
	NeedsTriage bool
}

// Rule maps one exact exit code to a status and human label
type Rule struct {
	Status Status
	Label  string
}

// BitmaskRules interprets an exit code as a severity bitmask. Any set bit
// outside the three known masks makes the code unmappable.
type BitmaskRules struct {
	ErrorBits int
	WarnBits  int
	InfoBits  int
}

// RuleSet holds all interpretation rules for one tool
type RuleSet struct {
	Exact          map[int]Rule
	Bitmask        *BitmaskRules
	DefaultNonzero *Rule
}

// Interpreter resolves exit codes against per-tool rule sets
type Interpreter struct {
	rules map[string]RuleSet
}

// NewInterpreter creates an interpreter with the built-in rule tables
func NewInterpreter() *Interpreter {
	return &Interpreter{rules: defaultRules()}
}

func defaultRules() map[string]RuleSet {
	return map[string]RuleSet{
		"checkov": {
			Exact: map[int]Rule{
				0: {StatusPass, "no failed checks"},
				1: {StatusWarn, "failed checks reported"},
			},
		},
		"tfsec": {
			Exact: map[int]Rule{
				0: {StatusPass, "no issues detected"},
				1: {StatusWarn, "potential issues found"},
			},
		},
		"tflint": {
			Exact: map[int]Rule{
				0: {StatusPass, "no lint issues"},
				2: {StatusWarn, "lint issues found"},
				1: {StatusFail, "tflint reported an error"},
			},
		},
		"trivy": {
			Exact: map[int]Rule{
				0: {StatusPass, "no vulnerabilities detected"},
				1: {StatusWarn, "vulnerabilities found"},
			},
		},
		"dockle": {
			Exact: map[int]Rule{
				0: {StatusPass, "no lint findings"},
				1: {StatusWarn, "lint findings reported"},
			},
		},
		"cfn-lint": {
			Exact: map[int]Rule{
				0: {StatusPass, "template is clean"},
			},
			Bitmask: &BitmaskRules{
				ErrorBits: 0x2,
				WarnBits:  0x4,
				InfoBits:  0x8,
			},
		},
		// aws cloudformation validate-template needs credentials, so a
		// nonzero exit is advisory rather than a finding.
		"aws": {
			Exact: map[int]Rule{
				0: {StatusPass, "template is valid"},
			},
			DefaultNonzero: &Rule{StatusWarn, "validation unavailable or template rejected"},
		},
	}
}

// Interpret maps one tool's exit code to a status. Sentinel codes from the
// runner take precedence over any rule table.
func (i *Interpreter) Interpret(tool string, code int) Interpretation {
	switch code {
	case runner.CodeTimeout:
		return Interpretation{Status: StatusError, Label: "tool timed out"}
	case runner.CodeNotFound:
		return Interpretation{Status: StatusError, Label: "tool not installed"}
	}

	rs, ok := i.rules[tool]
	if !ok {
		if code == 0 {
			return Interpretation{Status: StatusPass, Label: "completed successfully"}
		}
		return Interpretation{Status: StatusFail, Label: fmt.Sprintf("exited with code %d", code)}
	}

	if rule, ok := rs.Exact[code]; ok {
		return Interpretation{Status: rule.Status, Label: rule.Label}
	}

	if rs.Bitmask != nil {
		return interpretBitmask(rs.Bitmask, code)
	}

	if rs.DefaultNonzero != nil && code != 0 {
		return Interpretation{Status: rs.DefaultNonzero.Status, Label: rs.DefaultNonzero.Label}
	}

	return Interpretation{
		Status:      StatusError,
		Label:       fmt.Sprintf("unmapped exit code %d", code),
		NeedsTriage: true,
	}
}

func interpretBitmask(bm *BitmaskRules, code int) Interpretation {
	known := bm.ErrorBits | bm.WarnBits | bm.InfoBits
	if code&^known != 0 {
		return Interpretation{
			Status:      StatusError,
			Label:       fmt.Sprintf("unmapped exit code %d", code),
			NeedsTriage: true,
		}
	}

	// The worst severity present in the mask wins
	status := StatusPass
	label := "informational findings only"
	if code&bm.WarnBits != 0 {
		status = StatusWarn
		label = "warnings found"
	}
	if code&bm.ErrorBits != 0 {
		status = StatusFail
		label = "errors found"
	}
	return Interpretation{Status: status, Label: label}
}
