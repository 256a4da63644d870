package scan

import "github.com/iacscan/iacscan/internal/exitcode"

// Aggregate folds tool results into one overall outcome. Pure function of
// its input: any FAIL or ERROR means issues found; only WARNs still means
// issues found but tagged warnings-only; all PASS means success. A session
// with no results aggregates to success.
func Aggregate(results []ToolResult) Outcome {
	out := Outcome{}
	for _, r := range results {
		switch r.Status {
		case exitcode.StatusPass:
			out.PassCount++
		case exitcode.StatusWarn:
			out.WarnCount++
		case exitcode.StatusFail:
			out.FailCount++
		case exitcode.StatusError:
			out.ErrorCount++
		}
	}

	switch {
	case out.FailCount > 0 || out.ErrorCount > 0:
		out.Overall = OverallIssuesFound
		out.ExitCode = 1
	case out.WarnCount > 0:
		out.Overall = OverallIssuesFound
		out.WarningsOnly = true
		out.ExitCode = 1
	default:
		out.Overall = OverallSuccess
		out.ExitCode = 0
	}

	return out
}
