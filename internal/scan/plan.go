package scan

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/iacscan/iacscan/internal/runner"
)

// checkovFrameworks maps scan types to the checkov --framework argument
var checkovFrameworks = map[Type]string{
	TypeTerraform:      "terraform",
	TypeCloudFormation: "cloudformation",
	TypeKubernetes:     "kubernetes",
	TypeARM:            "arm",
	TypeBicep:          "bicep",
	TypeGCP:            "googledeploymentmanager",
}

// PlanFor builds the ordered tool invocations for one scan. For file-target
// scan types the target must exist; docker-image targets are registry
// references and are not checked here.
func PlanFor(scanType Type, target string, timeout time.Duration) ([]runner.Invocation, error) {
	if scanType == TypeDocker {
		return []runner.Invocation{
			{Tool: "trivy", Args: []string{"image", "--quiet", target}, Timeout: timeout},
			{Tool: "dockle", Args: []string{target}, Timeout: timeout},
		}, nil
	}

	info, err := os.Stat(target)
	if err != nil {
		return nil, fmt.Errorf("scan target %s: %w", target, err)
	}
	isDir := info.IsDir()

	checkov := func(framework string) runner.Invocation {
		flag := "-f"
		if isDir {
			flag = "-d"
		}
		return runner.Invocation{
			Tool:    "checkov",
			Args:    []string{flag, target, "--framework", framework},
			Timeout: timeout,
		}
	}

	switch scanType {
	case TypeTerraform:
		tflint := runner.Invocation{Tool: "tflint", Args: []string{"--chdir=."}, Dir: target, Timeout: timeout}
		if !isDir {
			tflint = runner.Invocation{
				Tool:    "tflint",
				Args:    []string{"--chdir=" + filepath.Dir(target), "--filter=" + filepath.Base(target)},
				Timeout: timeout,
			}
		}
		return []runner.Invocation{
			tflint,
			{Tool: "tfsec", Args: []string{target}, Timeout: timeout},
			checkov("terraform"),
		}, nil

	case TypeCloudFormation:
		return []runner.Invocation{
			{Tool: "cfn-lint", Args: []string{target}, Timeout: timeout},
			checkov("cloudformation"),
			{
				Tool:    "aws",
				Args:    []string{"cloudformation", "validate-template", "--template-body", "file://" + target},
				Timeout: timeout,
			},
		}, nil

	case TypeKubernetes, TypeARM, TypeBicep, TypeGCP:
		return []runner.Invocation{checkov(checkovFrameworks[scanType])}, nil

	default:
		return nil, fmt.Errorf("unsupported scan type: %s", scanType)
	}
}
