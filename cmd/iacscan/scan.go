package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/iacscan/iacscan/internal/alternatives"
	"github.com/iacscan/iacscan/internal/amiscan"
	"github.com/iacscan/iacscan/internal/cachestore"
	"github.com/iacscan/iacscan/internal/config"
	"github.com/iacscan/iacscan/internal/observability"
	"github.com/iacscan/iacscan/internal/policy"
	"github.com/iacscan/iacscan/internal/registry"
	"github.com/iacscan/iacscan/internal/report"
	"github.com/iacscan/iacscan/internal/runner"
	"github.com/iacscan/iacscan/internal/scan"
)

var scanShort = map[scan.Type]string{
	scan.TypeTerraform:      "Scan Terraform files with tflint, tfsec and checkov",
	scan.TypeCloudFormation: "Scan CloudFormation templates with cfn-lint, checkov and aws validate",
	scan.TypeDocker:         "Scan a container image with trivy and dockle",
	scan.TypeKubernetes:     "Scan Kubernetes manifests with checkov",
	scan.TypeARM:            "Scan Azure ARM templates with checkov",
	scan.TypeBicep:          "Scan Azure Bicep templates with checkov",
	scan.TypeGCP:            "Scan GCP Deployment Manager templates with checkov",
}

func newScanCmd(scanType scan.Type) *cobra.Command {
	arg := "<path>"
	if scanType == scan.TypeDocker {
		arg = "<image-ref>"
	}
	var aliases []string
	if scanType == scan.TypeDocker {
		aliases = []string{"docker"}
	}
	return &cobra.Command{
		Use:     fmt.Sprintf("%s %s", scanType, arg),
		Aliases: aliases,
		Short:   scanShort[scanType],
		Args:    cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runScan(scanType, args[0])
		},
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if flagLogLevel != "" {
		cfg.Observability.LogLevel = flagLogLevel
	}
	if flagMetricsPort != 0 {
		cfg.Observability.MetricsPort = flagMetricsPort
	}
	if flagReportDir != "" {
		cfg.Scan.ReportDir = flagReportDir
	}
	if flagRegion != "" {
		cfg.Lookup.Region = flagRegion
	}
	if flagOffline {
		cfg.Lookup.LiveLookups = false
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func runScan(scanType scan.Type, target string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel)
	_ = observability.GetMetrics()

	if cfg.Observability.MetricsPort > 0 {
		obsServer := observability.NewServer(cfg.Observability.MetricsPort, logger)
		go func() {
			if err := obsServer.Start(ctx); err != nil {
				logger.Error("metrics server error", "error", err.Error())
			}
		}()
	}

	store, history := openStore(cfg, logger)

	resolver, err := buildResolver(ctx, cfg, store, logger)
	if err != nil {
		return err
	}

	if scanType == scan.TypeDocker {
		target = resolveImageTarget(ctx, target, logger)
	}

	orchestrator := scan.NewOrchestrator(scan.OrchestratorConfig{
		Runner:      runner.NewProcessRunner(logger),
		Resolver:    resolver,
		ToolTimeout: cfg.Scan.ToolTimeout,
		Environment: flagEnvironment,
		Logger:      logger,
	})

	session, err := orchestrator.Run(ctx, scanType, target)
	if err != nil {
		return err
	}

	evaluateGate(cfg, session, logger)

	renderer := report.NewRenderer()
	fmt.Print(renderer.Render(session))

	if path, err := renderer.Write(session, cfg.Scan.ReportDir); err != nil {
		logger.Warn("failed to write report file", "error", err.Error())
	} else {
		fmt.Printf("Report written to %s\n", path)
	}

	if history != nil {
		if err := history.RecordSession(ctx, session); err != nil {
			logger.Warn("failed to record session history", "error", err.Error())
		}
	}

	exitCode = session.Outcome.ExitCode
	return nil
}

// openStore opens the SQLite store, falling back to an in-memory cache with
// no history when the database cannot be opened
func openStore(cfg *config.Config, logger *slog.Logger) (alternatives.Cache, cachestore.History) {
	store, err := cachestore.NewSQLiteStore(cfg.Cache.Path, cfg.Cache.TTL)
	if err != nil {
		logger.Warn("falling back to in-memory cache",
			"path", cfg.Cache.Path,
			"error", err.Error())
		return cachestore.NewMemoryStore(cfg.Cache.TTL), nil
	}
	return store, store
}

func buildResolver(ctx context.Context, cfg *config.Config, cache alternatives.Cache, logger *slog.Logger) (*alternatives.Resolver, error) {
	curated, err := alternatives.NewCuratedSource()
	if err != nil {
		return nil, fmt.Errorf("failed to load curated image data: %w", err)
	}

	var live alternatives.Source
	if cfg.Lookup.LiveLookups {
		ssmSource, err := alternatives.NewSSMSource(ctx, cfg.Lookup.Region, cfg.Lookup.Timeout, logger)
		if err != nil {
			logger.Warn("live lookups disabled", "error", err.Error())
		} else {
			live = ssmSource
		}
	}

	images := amiscan.NewScanner()
	return alternatives.NewResolver(alternatives.ResolverConfig{
		Cache:           cache,
		Live:            live,
		Curated:         curated,
		Region:          cfg.Lookup.Region,
		Architecture:    cfg.Lookup.Architecture,
		Limit:           cfg.Lookup.Limit,
		KnownVulnerable: images.KnownVulnerable,
		Logger:          logger,
	}), nil
}

// resolveImageTarget normalizes an image reference and looks up its digest.
// Registry failures only lose the digest log line; the tools pull the image
// themselves.
func resolveImageTarget(ctx context.Context, target string, logger *slog.Logger) string {
	ref, err := registry.ParseRef(target)
	if err != nil {
		logger.Warn("could not normalize image reference", "ref", target, "error", err.Error())
		return target
	}

	if info, err := registry.NewResolver(logger).Resolve(ctx, target); err != nil {
		logger.Warn("could not resolve image from registry", "ref", ref.Canonical, "error", err.Error())
	} else {
		logger.Info("image resolved",
			"ref", ref.Canonical,
			"digest", info.Digest,
			"os", info.OS,
			"architecture", info.Architecture)
	}
	return ref.Canonical
}

func evaluateGate(cfg *config.Config, session *scan.Session, logger *slog.Logger) {
	engine, err := policy.NewEngine(logger, policy.Config{
		Expression:     cfg.Gate.Expression,
		FailureMessage: cfg.Gate.FailureMessage,
	})
	if err != nil {
		logger.Warn("gate expression invalid, skipping gate", "error", err.Error())
		return
	}

	decision, err := engine.Evaluate(session)
	if err != nil {
		logger.Warn("gate evaluation failed", "error", err.Error())
		return
	}
	if !decision.Passed {
		fmt.Fprintf(os.Stderr, "Gate failed: %s\n", decision.Reason)
	}
}

func newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent scan sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			store, err := cachestore.NewSQLiteStore(cfg.Cache.Path, cfg.Cache.TTL)
			if err != nil {
				return fmt.Errorf("failed to open session history: %w", err)
			}
			defer store.Close()

			records, err := store.ListSessions(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Println("No recorded sessions.")
				return nil
			}

			for _, r := range records {
				status := r.Overall
				if r.WarningsOnly {
					status += " (warnings only)"
				}
				fmt.Printf("%s  %-14s %-40s %s\n",
					r.StartedAt.Format("2006-01-02 15:04:05"), r.ScanType, r.Target, status)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of sessions to list")
	return cmd
}
