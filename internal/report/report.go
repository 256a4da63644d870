// Package report renders a finished scan session as the sectioned text
// report written to stdout and to a timestamped log file.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/iacscan/iacscan/internal/amiscan"
	"github.com/iacscan/iacscan/internal/errors"
	"github.com/iacscan/iacscan/internal/exitcode"
	"github.com/iacscan/iacscan/internal/scan"
)

const (
	bannerWidth  = 65
	sectionWidth = 60
)

// Renderer formats scan sessions. The clock only feeds the completion
// timestamp in the summary.
type Renderer struct {
	now func() time.Time
}

// NewRenderer creates a renderer using the wall clock
func NewRenderer() *Renderer {
	return &Renderer{now: time.Now}
}

// SetClock replaces the clock, used by tests
func (r *Renderer) SetClock(now func() time.Time) {
	r.now = now
}

// FileName returns the report file name for a session, derived from its
// start time so reruns never collide
func FileName(session *scan.Session) string {
	return fmt.Sprintf("%s-scan-report-%s.log",
		session.ScanType, session.StartedAt.Format("20060102-150405"))
}

// Write renders the session and writes it to a log file under dir,
// returning the file path
func (r *Renderer) Write(session *scan.Session, dir string) (string, error) {
	path := filepath.Join(dir, FileName(session))
	if err := os.WriteFile(path, []byte(r.Render(session)), 0o644); err != nil {
		return "", errors.NewTransientf("failed to write report file: %w", err)
	}
	return path, nil
}

// Render formats the full sectioned report
func (r *Renderer) Render(session *scan.Session) string {
	var b strings.Builder

	banner := strings.Repeat("=", bannerWidth)
	b.WriteString(banner + "\n")
	b.WriteString("     IAC SCAN REPORT\n")
	b.WriteString(banner + "\n\n")

	r.writeSection(&b, fmt.Sprintf("%s Security Scan", strings.ToUpper(string(session.ScanType))))
	fmt.Fprintf(&b, "Target:      %s\n", session.Target)
	if session.Environment != "" {
		fmt.Fprintf(&b, "Environment: %s\n", session.Environment)
	}
	fmt.Fprintf(&b, "Started:     %s\n", session.StartedAt.UTC().Format("2006-01-02 15:04:05")+" UTC")

	for _, result := range session.Results {
		r.writeToolSection(&b, result)
	}

	if len(session.ImageFindings) > 0 {
		r.writeImageSection(&b, session.ImageFindings)
	}

	r.writeSummary(&b, session)

	return b.String()
}

func (r *Renderer) writeSection(b *strings.Builder, title string) {
	divider := strings.Repeat("=", sectionWidth)
	b.WriteString("\n" + divider + "\n")
	b.WriteString(title + "\n")
	b.WriteString(divider + "\n")
}

func (r *Renderer) writeToolSection(b *strings.Builder, result scan.ToolResult) {
	r.writeSection(b, fmt.Sprintf("TOOL: %s", result.Tool))
	fmt.Fprintf(b, "Status:    %s", result.Status)
	if result.Label != "" {
		fmt.Fprintf(b, " (%s)", result.Label)
	}
	b.WriteString("\n")
	fmt.Fprintf(b, "Exit Code: %d\n", result.ExitCode)
	fmt.Fprintf(b, "Duration:  %s\n", result.Duration.Round(time.Millisecond))
	if result.NeedsTriage {
		b.WriteString("Note:      unrecognized exit code, inspect the output below\n")
	}

	if out := strings.TrimSpace(result.Stdout); out != "" {
		b.WriteString("\n" + out + "\n")
	}
	if errOut := strings.TrimSpace(result.Stderr); errOut != "" {
		b.WriteString("\nstderr:\n" + errOut + "\n")
	}
}

func (r *Renderer) writeImageSection(b *strings.Builder, findings []amiscan.Finding) {
	r.writeSection(b, "MACHINE IMAGE SCAN")

	var withCVEs, outdated, placeholders, clean []amiscan.Finding
	for _, f := range findings {
		switch f.Category {
		case amiscan.CategoryCVE:
			withCVEs = append(withCVEs, f)
		case amiscan.CategoryOutdated:
			outdated = append(outdated, f)
		case amiscan.CategoryPlaceholder:
			placeholders = append(placeholders, f)
		default:
			clean = append(clean, f)
		}
	}

	if len(withCVEs) > 0 {
		b.WriteString("\nIMAGES WITH KNOWN CVEs:\n\n")
		for _, f := range withCVEs {
			fmt.Fprintf(b, "   [FAIL] %s\n", f.ImageID)
			if f.Name != "" {
				fmt.Fprintf(b, "          Name: %s\n", f.Name)
			}
			if len(f.CVEIDs) > 0 {
				fmt.Fprintf(b, "          CVEs: %s\n", strings.Join(f.CVEIDs, ", "))
			}
			fmt.Fprintf(b, "          Severity: %s\n", f.Severity)
			fmt.Fprintf(b, "          Recommendation: %s\n", f.Recommendation)
			writeAlternatives(b, f)
			b.WriteString("\n")
		}
	}

	if len(outdated) > 0 {
		b.WriteString("\nOUTDATED IMAGES:\n\n")
		for _, f := range outdated {
			fmt.Fprintf(b, "   [WARN] %s\n", f.ImageID)
			if f.Name != "" {
				fmt.Fprintf(b, "          Name: %s\n", f.Name)
			}
			fmt.Fprintf(b, "          Recommendation: %s\n", f.Recommendation)
			writeAlternatives(b, f)
			b.WriteString("\n")
		}
	}

	if len(placeholders) > 0 {
		b.WriteString("\nPLACEHOLDER IMAGE IDS:\n\n")
		for _, f := range placeholders {
			fmt.Fprintf(b, "   [WARN] %s\n", f.ImageID)
			fmt.Fprintf(b, "          %s\n", f.Recommendation)
		}
		b.WriteString("\n")
	}

	if len(clean) > 0 {
		b.WriteString("\nIMAGES WITH NO KNOWN ISSUES:\n\n")
		for _, f := range clean {
			fmt.Fprintf(b, "   [PASS] %s\n", f.ImageID)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(b, "Images scanned: %d (cve: %d, outdated: %d, placeholder: %d, clean: %d)\n",
		len(findings), len(withCVEs), len(outdated), len(placeholders), len(clean))
}

func writeAlternatives(b *strings.Builder, f amiscan.Finding) {
	if len(f.Alternatives) == 0 {
		if f.Reason != "" {
			fmt.Fprintf(b, "          Alternatives: none (%s)\n", f.Reason)
		}
		return
	}

	b.WriteString("          Suggested Alternatives:\n")
	for _, alt := range f.Alternatives {
		fmt.Fprintf(b, "            - %s\n", alt.ImageID)
		fmt.Fprintf(b, "              %s %s (%s, %s)\n",
			alt.Distribution, alt.Version, alt.Region, alt.Architecture)
		if !alt.LastVerified.IsZero() {
			fmt.Fprintf(b, "              Last Verified: %s\n", alt.LastVerified.Format("2006-01-02"))
		}
		if alt.VerifiedCVEFree {
			b.WriteString("              Status: CVE-free (verified)\n")
		}
		fmt.Fprintf(b, "              Source: %s\n", alt.SourceTier)
	}
	if f.Reason != "" {
		fmt.Fprintf(b, "          Note: %s\n", f.Reason)
	}
}

func (r *Renderer) writeSummary(b *strings.Builder, session *scan.Session) {
	r.writeSection(b, "Scan Summary")

	fmt.Fprintf(b, "Target:    %s\n", session.Target)
	fmt.Fprintf(b, "Completed: %s\n", r.now().UTC().Format("2006-01-02 15:04:05")+" UTC")
	fmt.Fprintf(b, "Duration:  %s\n", session.FinishedAt.Sub(session.StartedAt).Round(time.Second))
	b.WriteString("\nTool Results:\n")

	for _, result := range session.Results {
		status := string(result.Status)
		switch {
		case result.Status == exitcode.StatusError:
			status = fmt.Sprintf("ERROR (exit %d)", result.ExitCode)
		case result.Label != "":
			status = fmt.Sprintf("%s (%s)", result.Status, result.Label)
		}
		fmt.Fprintf(b, "  %-20s %s\n", result.Tool, status)
	}

	out := session.Outcome
	b.WriteString("\n")
	fmt.Fprintf(b, "Pass: %d  Warn: %d  Fail: %d  Error: %d\n",
		out.PassCount, out.WarnCount, out.FailCount, out.ErrorCount)

	switch {
	case out.Overall == scan.OverallSuccess:
		b.WriteString("Overall Status: PASS\n")
	case out.WarningsOnly:
		b.WriteString("Overall Status: ISSUES FOUND (warnings only)\n")
	default:
		b.WriteString("Overall Status: ISSUES FOUND\n")
	}

	b.WriteString(strings.Repeat("=", sectionWidth) + "\n")
}
