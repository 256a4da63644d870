// Package scan orchestrates one scan session: it runs the ordered tool list
// for a scan type, interprets each exit code as the tool finishes, attaches
// replacement shortlists to machine-image findings, and folds everything into
// one overall outcome.
package scan

import (
	"time"

	"github.com/iacscan/iacscan/internal/amiscan"
	"github.com/iacscan/iacscan/internal/exitcode"
)

// Type is a supported scan type
type Type string

const (
	TypeTerraform      Type = "terraform"
	TypeCloudFormation Type = "cloudformation"
	TypeDocker         Type = "docker-image"
	TypeKubernetes     Type = "kubernetes"
	TypeARM            Type = "arm"
	TypeBicep          Type = "bicep"
	TypeGCP            Type = "gcp"
)

// Types lists every supported scan type
func Types() []Type {
	return []Type{
		TypeTerraform,
		TypeCloudFormation,
		TypeDocker,
		TypeKubernetes,
		TypeARM,
		TypeBicep,
		TypeGCP,
	}
}

// ToolResult is the interpreted outcome of one tool run. Immutable once
// appended to a session.
type ToolResult struct {
	Tool        string
	ExitCode    int
	Status      exitcode.Status
	Label       string
	NeedsTriage bool
	Stdout      string
	Stderr      string
	Duration    time.Duration
}

// Overall is the aggregated session status
type Overall string

const (
	OverallSuccess     Overall = "SUCCESS"
	OverallIssuesFound Overall = "ISSUES_FOUND"
)

// Outcome is the aggregate over a session's tool results. ERROR stays
// distinct from FAIL in the counts even though both mean ISSUES_FOUND.
type Outcome struct {
	Overall      Overall
	WarningsOnly bool
	ExitCode     int
	PassCount    int
	WarnCount    int
	FailCount    int
	ErrorCount   int
}

// Session is one complete orchestrated scan over one target. Results are
// appended in invocation order; the session is frozen after finalization.
type Session struct {
	ScanType      Type
	Target        string
	Environment   string
	StartedAt     time.Time
	FinishedAt    time.Time
	Results       []ToolResult
	ImageFindings []amiscan.Finding
	Outcome       Outcome
}
