package scan

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/iacscan/iacscan/internal/runner"
)

func TestPlanFor_TerraformDirectory(t *testing.T) {
	dir := t.TempDir()

	plan, err := PlanFor(TypeTerraform, dir, time.Minute)
	if err != nil {
		t.Fatalf("PlanFor() error = %v", err)
	}

	tools := planTools(plan)
	want := []string{"tflint", "tfsec", "checkov"}
	if strings.Join(tools, ",") != strings.Join(want, ",") {
		t.Errorf("tool order = %v, want %v", tools, want)
	}

	if plan[0].Dir != dir {
		t.Errorf("tflint should run inside the target directory, got %q", plan[0].Dir)
	}
	if !containsArg(plan[2], "-d") || !containsArg(plan[2], "terraform") {
		t.Errorf("checkov args = %v", plan[2].Args)
	}
}

func TestPlanFor_TerraformSingleFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "main.tf")
	if err := os.WriteFile(file, []byte("# empty"), 0o644); err != nil {
		t.Fatal(err)
	}

	plan, err := PlanFor(TypeTerraform, file, time.Minute)
	if err != nil {
		t.Fatalf("PlanFor() error = %v", err)
	}

	if !containsArg(plan[0], "--chdir="+dir) || !containsArg(plan[0], "--filter=main.tf") {
		t.Errorf("tflint file args = %v", plan[0].Args)
	}
	if !containsArg(plan[2], "-f") {
		t.Errorf("checkov should use -f for a file target: %v", plan[2].Args)
	}
}

func TestPlanFor_CloudFormation(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "stack.yaml")
	if err := os.WriteFile(file, []byte("Resources: {}"), 0o644); err != nil {
		t.Fatal(err)
	}

	plan, err := PlanFor(TypeCloudFormation, file, time.Minute)
	if err != nil {
		t.Fatalf("PlanFor() error = %v", err)
	}

	tools := planTools(plan)
	want := []string{"cfn-lint", "checkov", "aws"}
	if strings.Join(tools, ",") != strings.Join(want, ",") {
		t.Errorf("tool order = %v, want %v", tools, want)
	}
	if !containsArg(plan[2], "file://"+file) {
		t.Errorf("aws validate args = %v", plan[2].Args)
	}
}

func TestPlanFor_DockerSkipsStat(t *testing.T) {
	plan, err := PlanFor(TypeDocker, "alpine:3.20", time.Minute)
	if err != nil {
		t.Fatalf("PlanFor() error = %v", err)
	}

	tools := planTools(plan)
	want := []string{"trivy", "dockle"}
	if strings.Join(tools, ",") != strings.Join(want, ",") {
		t.Errorf("tool order = %v, want %v", tools, want)
	}
}

func TestPlanFor_CheckovOnlyTypes(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "template.json")
	if err := os.WriteFile(file, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	frameworks := map[Type]string{
		TypeKubernetes: "kubernetes",
		TypeARM:        "arm",
		TypeBicep:      "bicep",
		TypeGCP:        "googledeploymentmanager",
	}

	for scanType, framework := range frameworks {
		plan, err := PlanFor(scanType, file, time.Minute)
		if err != nil {
			t.Fatalf("PlanFor(%s) error = %v", scanType, err)
		}
		if len(plan) != 1 || plan[0].Tool != "checkov" {
			t.Errorf("PlanFor(%s) = %v, want single checkov run", scanType, planTools(plan))
		}
		if !containsArg(plan[0], framework) {
			t.Errorf("PlanFor(%s) missing framework %s: %v", scanType, framework, plan[0].Args)
		}
	}
}

func TestPlanFor_MissingTarget(t *testing.T) {
	_, err := PlanFor(TypeTerraform, filepath.Join(t.TempDir(), "absent"), time.Minute)
	if err == nil {
		t.Error("expected error for a missing target")
	}
}

func planTools(plan []runner.Invocation) []string {
	tools := make([]string, len(plan))
	for i, inv := range plan {
		tools[i] = inv.Tool
	}
	return tools
}

func containsArg(inv runner.Invocation, arg string) bool {
	return slices.Contains(inv.Args, arg)
}
