// Package api exposes the engine's operations over HTTP for remote
// automation: health assessment, soft reset, full recovery, and the monitor
// session's status and event stream.
package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/labstack/echo-contrib/pprof"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/sirupsen/logrus"

	"github.com/lightbench/meter-sentinel/internal/config"
	"github.com/lightbench/meter-sentinel/internal/health"
	"github.com/lightbench/meter-sentinel/internal/monitor"
	"github.com/lightbench/meter-sentinel/internal/recovery"
)

// Start wires the engine from the configuration, launches the background
// monitor loop, and serves the API until the context is canceled.
func Start(ctx context.Context, listenAddress string, cfg config.Configuration) error {

	// Echo instance
	e := echo.New()

	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		e.Logger.SetLevel(log.DEBUG)
	case "info":
		e.Logger.SetLevel(log.INFO)
	case "warn":
		e.Logger.SetLevel(log.WARN)
	case "error":
		e.Logger.SetLevel(log.ERROR)
	default:
		e.Logger.SetLevel(log.INFO)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	agg, err := health.NewFromConfig(cfg)
	if err != nil {
		return err
	}
	ladder, err := recovery.NewFromConfig(cfg, agg)
	if err != nil {
		return err
	}

	// One engine instance shared by the monitor loop and the handlers keeps
	// instrument access exclusive.
	engine := newExclusiveEngine(agg, ladder)

	mon, err := monitor.New(engine, engine, cfg.GetMonitorConfig(), monitor.LogSink{})
	if err != nil {
		return err
	}

	go func() {
		if err := mon.Run(ctx); err != nil {
			logrus.Errorf("Monitor loop exited: %v", err)
		}
	}()

	metrics := NewRequestMetrics()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	// API Key Authentication Middleware
	e.Use(APIKeyAuthMiddleware(cfg))

	// Request metrics tracking middleware
	e.Use(RequestMetricsMiddleware(metrics))

	// Routes

	// Health check endpoints (no auth required)
	e.GET("/healthz", Healthz())
	e.GET("/readyz", Readyz(mon, metrics))

	instrument := e.Group("/instrument")
	instrument.GET("/health", instrumentHealth(engine))
	instrument.POST("/reset", instrumentReset(engine))
	instrument.POST("/recover", instrumentRecover(engine))

	mgroup := e.Group("/monitor")
	mgroup.GET("/status", monitorStatus(mon))
	mgroup.GET("/events", monitorEvents(mon))

	// Set up profiling if allowed
	if cfg.GetBool("profiling_enabled", false) {
		e.Logger.Info("Enabling profiling endpoints")
		pprof.Register(e)
	}

	go func() {
		<-ctx.Done()
		if err := e.Close(); err != nil {
			e.Logger.Error("Failed to close Echo server: ", err)
		}
	}()

	e.Logger.Info(fmt.Sprintf("Starting server on %s", listenAddress))
	if err := e.Start(listenAddress); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
