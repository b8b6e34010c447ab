// meter-sentinel keeps a networked laboratory instrument online. It offers
// one-shot operations (health, reset, recover) with exit-code results for
// scripts, an unattended monitor loop, and a serve mode that runs the loop
// behind an HTTP API.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/lightbench/meter-sentinel/internal/api"
	"github.com/lightbench/meter-sentinel/internal/config"
	"github.com/lightbench/meter-sentinel/internal/health"
	"github.com/lightbench/meter-sentinel/internal/monitor"
	"github.com/lightbench/meter-sentinel/internal/recovery"
)

func main() {
	cfg := readConfig()

	action := "serve"
	if len(os.Args) > 1 {
		action = os.Args[1]
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch action {
	case "health":
		os.Exit(runHealth(ctx, cfg))
	case "reset":
		os.Exit(runReset(ctx, cfg))
	case "recover":
		os.Exit(runRecover(ctx, cfg))
	case "monitor":
		os.Exit(runMonitor(ctx, cfg))
	case "serve":
		if err := api.Start(ctx, listenAddress(), cfg); err != nil {
			logrus.Fatalf("Server failed: %v", err)
		}
	default:
		fmt.Fprintf(os.Stderr, "usage: %s {health|reset|recover|monitor|serve}\n", os.Args[0])
		os.Exit(2)
	}
}

func buildEngine(cfg config.Configuration) (*health.Aggregator, *recovery.Ladder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	agg, err := health.NewFromConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	ladder, err := recovery.NewFromConfig(cfg, agg)
	if err != nil {
		return nil, nil, err
	}
	return agg, ladder, nil
}

// runHealth performs a single assessment. Exit code 0 means healthy.
func runHealth(ctx context.Context, cfg config.Configuration) int {
	agg, _, err := buildEngine(cfg)
	if err != nil {
		logrus.Errorf("%v", err)
		return 2
	}

	report := agg.Assess(ctx)
	printJSON(report)
	if !report.Healthy() {
		return 1
	}
	return 0
}

// runReset runs only the first ladder level (soft reset).
func runReset(ctx context.Context, cfg config.Configuration) int {
	_, ladder, err := buildEngine(cfg)
	if err != nil {
		logrus.Errorf("%v", err)
		return 2
	}

	outcome := ladder.SoftReset(ctx)
	printJSON(outcome)
	if !outcome.Succeeded {
		logrus.Error("Reset failed")
		return 1
	}
	logrus.Info("Reset completed successfully")
	return 0
}

// runRecover walks the full escalation ladder.
func runRecover(ctx context.Context, cfg config.Configuration) int {
	_, ladder, err := buildEngine(cfg)
	if err != nil {
		logrus.Errorf("%v", err)
		return 2
	}

	report := ladder.Run(ctx)
	printJSON(report)
	if report.Canceled {
		logrus.Warn("Recovery canceled before completion")
		return 1
	}
	if !report.Succeeded {
		logrus.Error("Recovery failed - manual intervention required")
		for i, step := range report.ManualSteps {
			logrus.Errorf("  %d. %s", i+1, step)
		}
		return 1
	}
	logrus.Info("Recovery completed successfully")
	return 0
}

// runMonitor polls until interrupted, logging one event per tick.
func runMonitor(ctx context.Context, cfg config.Configuration) int {
	agg, ladder, err := buildEngine(cfg)
	if err != nil {
		logrus.Errorf("%v", err)
		return 2
	}

	mon, err := monitor.New(agg, ladder, cfg.GetMonitorConfig(), monitor.LogSink{})
	if err != nil {
		logrus.Errorf("%v", err)
		return 2
	}

	if err := mon.Run(ctx); err != nil {
		logrus.Errorf("Monitor loop failed: %v", err)
		return 1
	}
	return 0
}

func printJSON(v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		logrus.Errorf("Failed to encode report: %v", err)
		return
	}
	fmt.Println(string(out))
}
