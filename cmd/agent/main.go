// Command agent runs the NetJobs agent: a long-running server that
// accepts one coordinator connection at a time, negotiates a job spec,
// and executes it. Takes no flags (spec §6).
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"

	"github.com/zbum/netjobs/internal/agent"
	"github.com/zbum/netjobs/internal/clock"
	"github.com/zbum/netjobs/internal/config"
	"github.com/zbum/netjobs/internal/executor"
	"github.com/zbum/netjobs/internal/logging"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	printBanner()

	confFile := "./conf/netjobs.conf"
	if f := os.Getenv("NETJOBS_CONF"); f != "" {
		confFile = f
	}
	cfg, err := config.Load(confFile)
	if err != nil {
		slog.Warn("config load error, using defaults", "path", confFile, "error", err)
		cfg, _ = config.Load("")
	}

	logLevel := slog.LevelInfo
	if cfg.IsDebug() {
		logLevel = slog.LevelDebug
	}
	logWriter := logging.SetupWriter(cfg.LogDir(), cfg.LogRotationEnabled(), cfg.LogKeepDays(), cfg.LogArchiveEnabled())
	slog.SetDefault(slog.New(slog.NewTextHandler(logWriter, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("netjobs agent starting", "version", Version, "build", BuildTime)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if rw, ok := logWriter.(*logging.RotatingWriter); ok {
		rw.Start(ctx)
		defer rw.Close()
	}

	if err := config.StartWatcher(ctx, cfg.FilePath()); err != nil {
		slog.Warn("config watcher not started", "error", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()

	addr := net.JoinHostPort("", strconv.Itoa(cfg.AgentListenPort()))
	srv := agent.NewServer(addr, executor.ShellExecutor{}, clock.Real{}, slog.Default())

	if err := srv.Start(ctx); err != nil {
		slog.Error("agent server exited with error", "error", err)
		os.Exit(1)
	}
}

func printBanner() {
	fmt.Printf(`NetJobs Agent (Go) version %s %s
Network job synchronizer — agent
Runtime: %s %s/%s

`, Version, BuildTime, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
