package main

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags
var version = "dev"

type toolVersion struct {
	tool string
	args []string
}

var versionProbes = []toolVersion{
	{"tflint", []string{"--version"}},
	{"tfsec", []string{"--version"}},
	{"checkov", []string{"--version"}},
	{"cfn-lint", []string{"--version"}},
	{"trivy", []string{"--version"}},
	{"dockle", []string{"--version"}},
	{"aws", []string{"--version"}},
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print iacscan and scanner tool versions",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Printf("iacscan %s\n\n", version)
			fmt.Println("Scanner tools:")
			for _, probe := range versionProbes {
				fmt.Printf("  %-10s %s\n", probe.tool, probeVersion(cmd.Context(), probe))
			}
		},
	}
}

// probeVersion runs a tool's version command with a short timeout. A missing
// or hanging tool degrades to a marker instead of failing the command.
func probeVersion(ctx context.Context, probe toolVersion) string {
	if _, err := exec.LookPath(probe.tool); err != nil {
		return "not installed"
	}

	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var out bytes.Buffer
	cmd := exec.CommandContext(probeCtx, probe.tool, probe.args...)
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return fmt.Sprintf("unavailable (%v)", err)
	}

	line, _, _ := strings.Cut(strings.TrimSpace(out.String()), "\n")
	return strings.TrimSpace(line)
}
