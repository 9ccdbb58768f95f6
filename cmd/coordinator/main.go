// Command coordinator reads a test-plan file and drives agents through
// it: prepare, start, collect, report. Flags: -s (simulate, no TCP),
// -v (verbose), --config (runtime settings file); a test-plan file path
// is required (spec §6).
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zbum/netjobs/internal/config"
	"github.com/zbum/netjobs/internal/coordinator"
	"github.com/zbum/netjobs/internal/logging"
	"github.com/zbum/netjobs/internal/plan"
	"github.com/zbum/netjobs/internal/report"
)

var (
	Version   = "dev"
	BuildTime = "unknown"

	simulate bool
	verbose  bool
	confPath string
)

var rootCmd = &cobra.Command{
	Use:   "coordinator <plan-file>",
	Short: "Synchronize and run test plans across remote agents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(args[0])
	},
}

func init() {
	rootCmd.Flags().BoolVarP(&simulate, "simulate", "s", false, "run in simulator mode (disables networking)")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&confPath, "config", "./conf/netjobs.conf", "runtime config file path")
}

func main() {
	printBanner()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(planPath string) error {
	cfg, err := config.Load(confPath)
	if err != nil {
		slog.Warn("config load error, using defaults", "path", confPath, "error", err)
		cfg, _ = config.Load("")
	}

	logLevel := slog.LevelInfo
	if verbose || cfg.IsDebug() {
		logLevel = slog.LevelDebug
	}
	logWriter := logging.SetupWriter(cfg.LogDir(), cfg.LogRotationEnabled(), cfg.LogKeepDays(), cfg.LogArchiveEnabled())
	slog.SetDefault(slog.New(slog.NewTextHandler(logWriter, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("netjobs coordinator starting", "version", Version, "build", BuildTime, "plan", planPath, "simulate", simulate)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if rw, ok := logWriter.(*logging.RotatingWriter); ok {
		rw.Start(ctx)
		defer rw.Close()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()

	tests, err := plan.ParseFile(planPath)
	if err != nil {
		return fmt.Errorf("coordinator: %w", err)
	}

	if simulate {
		slog.Info("simulate mode: skipping real network orchestration", "tests", len(tests))
		return nil
	}

	hostname, _ := os.Hostname()
	runner := coordinator.NewRunner(cfg.AgentListenPort(), hostname, slog.Default())
	results := runner.RunAll(ctx, tests)

	for _, test := range results {
		if err := report.WriteCSV(os.Stdout, test); err != nil {
			slog.Error("failed to write CSV report", "test", test.Plan().Label, "error", err)
		}
	}

	return nil
}

func printBanner() {
	fmt.Printf(`NetJobs Coordinator (Go) version %s %s
Network job synchronizer — coordinator
Runtime: %s %s/%s

`, Version, BuildTime, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
