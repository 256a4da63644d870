package amiscan

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestExtract(t *testing.T) {
	content := `
Resources:
  Web:
    Properties:
      ImageId: ami-0abcdef1234567890
  Db:
    Properties:
      ImageId: AMI-0ABCDEF1234567890
  App:
    Properties:
      ImageId: ami-12345678
`
	got := Extract(content)
	want := []string{"ami-0abcdef1234567890", "ami-12345678"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Extract() = %v, want %v", got, want)
	}
}

func TestExtract_NoMatches(t *testing.T) {
	if got := Extract("no images here, ami-xyz is not valid"); len(got) != 0 {
		t.Errorf("Extract() = %v, want empty", got)
	}
}

func TestCheck_KnownVulnerable(t *testing.T) {
	s := NewScanner()

	f := s.Check("ami-0abcdef1234567890", "")
	if f.Category != CategoryCVE {
		t.Errorf("category = %s, want cve", f.Category)
	}
	if len(f.CVEIDs) == 0 {
		t.Error("expected CVE IDs on a known-vulnerable image")
	}
	if f.Severity != "HIGH" {
		t.Errorf("severity = %s, want HIGH", f.Severity)
	}
}

func TestCheck_OutdatedNamePatterns(t *testing.T) {
	s := NewScanner()

	tests := []struct {
		name     string
		outdated bool
	}{
		{"amzn-ami-hvm-2018.03.0", true},
		{"ubuntu-trusty-14.04-amd64", true},
		{"ubuntu/images/hvm-ssd/ubuntu-xenial-16.04", true},
		{"CentOS-6-x86_64-GenericCloud", true},
		{"RHEL-6.10_HVM_GA", true},
		{"al2023-ami-2023.3.20250115-kernel-6.1-x86_64", false},
		{"ubuntu-noble-24.04-amd64-server", false},
	}

	for _, tt := range tests {
		f := s.Check("ami-11223344", tt.name)
		got := f.Category == CategoryOutdated
		if got != tt.outdated {
			t.Errorf("Check(%q) outdated = %v, want %v", tt.name, got, tt.outdated)
		}
	}
}

func TestCheck_Placeholder(t *testing.T) {
	s := NewScanner()

	f := s.Check("ami-0123456789abcdef0", "")
	if f.Category != CategoryPlaceholder {
		t.Errorf("category = %s, want placeholder", f.Category)
	}

	// Same length but not ending in zero
	f = s.Check("ami-0123456789abcdef1", "")
	if f.Category != CategoryClean {
		t.Errorf("category = %s, want clean", f.Category)
	}
}

func TestScanContent_Deterministic(t *testing.T) {
	s := NewScanner()
	content := "ami-ffffffff ami-11111111 ami-0abcdef1234567890"

	first := s.ScanContent(content)
	second := s.ScanContent(content)
	if !reflect.DeepEqual(first, second) {
		t.Error("repeated scans of identical content differ")
	}
	if len(first) != 3 {
		t.Fatalf("expected 3 findings, got %d", len(first))
	}
	// Sorted by identifier
	if first[0].ImageID != "ami-0abcdef1234567890" {
		t.Errorf("findings not in identifier order: %v", first[0].ImageID)
	}
}

func TestScanTarget_Directory(t *testing.T) {
	dir := t.TempDir()

	files := map[string]string{
		"main.tf":      `resource "aws_instance" "web" { ami = "ami-0abcdef1234567890" }`,
		"stack.yaml":   "ImageId: ami-12345678",
		"ignored.txt":  "ami-99999999",
		"vars.tfvars":  `base_ami = "ami-12345678"`,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	s := NewScanner()
	findings, err := s.ScanTarget(dir)
	if err != nil {
		t.Fatalf("ScanTarget() error = %v", err)
	}

	ids := make(map[string]bool)
	for _, f := range findings {
		ids[f.ImageID] = true
	}
	if !ids["ami-0abcdef1234567890"] || !ids["ami-12345678"] {
		t.Errorf("missing expected findings: %v", ids)
	}
	if ids["ami-99999999"] {
		t.Error("non-template file was scanned")
	}
}

func TestScanTarget_MissingPath(t *testing.T) {
	s := NewScanner()
	if _, err := s.ScanTarget(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("expected error for missing target")
	}
}
