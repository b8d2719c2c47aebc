package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/c360studio/mirror/analyzer"
	"github.com/c360studio/mirror/config"
	"github.com/c360studio/mirror/report"
	"github.com/c360studio/mirror/watch"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "mirror"
)

// Output modes. CLI mode streams to stdout with the exit-code contract;
// hook mode writes the report file and keeps the exit code quiet.
const (
	modeCLI  = "cli"
	modeHook = "hook"
)

// errViolationsFound signals exit status 1 without printing an error:
// findings already went to stdout.
var errViolationsFound = errors.New("violations found")

func rootCmd() *cobra.Command {
	var (
		mode       string
		configPath string
		reportPath string
		logLevel   string
		workers    int
	)

	cmd := &cobra.Command{
		Use:   "mirror <path> [<path> ...]",
		Short: "Architectural conformance linter",
		Long: `Mirror parses Python source files into syntax trees and flags constructs
that violate location-sensitive structural rules, such as exception
handling inside files classified as domain logic.

Paths may be files, directories (scanned recursively), or glob patterns.
It never executes or modifies the analyzed code.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(args, mode, configPath, reportPath, logLevel, workers)
		},
	}

	cmd.Flags().StringVar(&mode, "mode", modeCLI, "Output mode (cli, hook)")
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&reportPath, "report", "", "Report file path (hook mode)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().IntVar(&workers, "workers", 0, "Concurrent file workers (0 = number of CPUs)")

	cmd.AddCommand(watchCmd(&configPath, &reportPath, &logLevel, &workers))

	// Version command
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	return cmd
}

func watchCmd(configPath, reportPath, logLevel *string, workers *int) *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "watch [<path> ...]",
		Short: "Re-analyze on every save and keep the report file current",
		Long: `Watch runs mirror as a long-lived service: every save of a Python file
under the watched paths triggers a re-scan and an atomic rewrite of the
report file. On SIGINT or SIGTERM the report is cleared and the service
exits. Defaults to watching the repository root.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(args, *configPath, *reportPath, *logLevel, *workers, metricsAddr)
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Prometheus /metrics listen address (empty = disabled)")
	return cmd
}

// setup prepares the logger, configuration, and analyzer shared by both
// entry points.
func setup(configPath, reportPath, logLevel string, workers int) (*config.Config, *analyzer.Analyzer, *slog.Logger, error) {
	logger := newLogger(logLevel)
	slog.SetDefault(logger)

	cfg, err := loadConfig(configPath, logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}
	if reportPath != "" {
		cfg.Report.Path = reportPath
	}
	if workers > 0 {
		cfg.Analyzer.Workers = workers
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, analyzer.New(cfg, logger), logger, nil
}

func runAnalyze(paths []string, mode, configPath, reportPath, logLevel string, workers int) error {
	cfg, a, _, err := setup(configPath, reportPath, logLevel, workers)
	if err != nil {
		return err
	}

	result, err := a.Analyze(context.Background(), paths)
	if err != nil {
		return err
	}

	switch mode {
	case modeHook:
		return report.WriteFile(result, cfg.ReportPath())
	case modeCLI:
		code, err := report.WriteStream(result, os.Stdout)
		if err != nil {
			return err
		}
		if code != 0 {
			return errViolationsFound
		}
		return nil
	default:
		return fmt.Errorf("unknown mode: %q (expected cli or hook)", mode)
	}
}

func runWatch(paths []string, configPath, reportPath, logLevel string, workers int, metricsAddr string) error {
	cfg, a, logger, err := setup(configPath, reportPath, logLevel, workers)
	if err != nil {
		return err
	}
	if metricsAddr != "" {
		cfg.Watch.MetricsAddr = metricsAddr
	}

	roots := paths
	if len(roots) == 0 {
		roots = []string{cfg.Repo.Path}
	}
	for i, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return fmt.Errorf("resolve watch root: %w", err)
		}
		roots[i] = abs
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metrics *watch.Metrics
	registry := prometheus.NewRegistry()
	if cfg.Watch.MetricsAddr != "" {
		metrics = watch.NewMetrics(registry)
	}

	service, err := watch.NewService(a, watch.Config{
		Roots:      roots,
		ReportPath: cfg.ReportPath(),
		Debounce:   cfg.Watch.Debounce,
		Logger:     logger,
		Metrics:    metrics,
	})
	if err != nil {
		return fmt.Errorf("create watch service: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Watch.MetricsAddr != "" {
		g.Go(func() error {
			return watch.ServeMetrics(gctx, cfg.Watch.MetricsAddr, registry, logger)
		})
	}
	g.Go(func() error {
		return service.Run(gctx)
	})

	return g.Wait()
}

// loadConfig resolves configuration: an explicit file wins outright,
// otherwise the layered loader applies user and project config.
func loadConfig(configPath string, logger *slog.Logger) (*config.Config, error) {
	if configPath != "" {
		cfg, err := config.LoadFromFile(configPath)
		if err != nil {
			return nil, err
		}
		if cfg.Repo.Path == "" {
			if cwd, err := os.Getwd(); err == nil {
				cfg.Repo.Path = cwd
			}
		}
		return cfg, nil
	}
	return config.NewLoader(logger).Load()
}

func newLogger(logLevel string) *slog.Logger {
	level := slog.LevelWarn
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
