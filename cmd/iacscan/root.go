package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/iacscan/iacscan/internal/scan"
)

var rootCmd = &cobra.Command{
	Use:   "iacscan",
	Short: "Security scanning for infrastructure-as-code and container images",
	Long: `iacscan runs the established security tools for a given template type
(tflint, tfsec, checkov, cfn-lint, trivy, dockle, aws validate), folds their
exit codes into one overall verdict, and suggests verified CVE-free
replacements for flagged machine images.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	flagLogLevel    string
	flagMetricsPort int
	flagEnvironment string
	flagReportDir   string
	flagRegion      string
	flagOffline     bool

	// exitCode carries the scan verdict out of the cobra run
	exitCode int
)

// Execute runs the CLI and returns the process exit code
func Execute() int {
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	return exitCode
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().IntVar(&flagMetricsPort, "metrics-port", 0, "serve Prometheus metrics on this port (0 disables)")
	rootCmd.PersistentFlags().StringVar(&flagEnvironment, "environment", "", "environment label recorded with the session")
	rootCmd.PersistentFlags().StringVar(&flagReportDir, "report-dir", "", "directory for report log files")
	rootCmd.PersistentFlags().StringVar(&flagRegion, "region", "", "region for replacement image lookups")
	rootCmd.PersistentFlags().BoolVar(&flagOffline, "offline", false, "skip live lookups, use cached and curated data only")

	for _, scanType := range scan.Types() {
		rootCmd.AddCommand(newScanCmd(scanType))
	}
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newVersionCmd())
}
