package api

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lightbench/meter-sentinel/api/types"
	"github.com/lightbench/meter-sentinel/internal/monitor"
)

// recoverer is the ladder surface the handlers need. Satisfied by
// *recovery.Ladder and by the exclusivity wrapper around it.
type recoverer interface {
	Run(ctx context.Context) types.RecoveryReport
	SoftReset(ctx context.Context) types.RecoveryOutcome
}

// instrumentHealth runs one assessment and returns the full report. The HTTP
// status mirrors the one-shot CLI exit code: 200 only when healthy.
func instrumentHealth(agg monitor.Assessor) func(c echo.Context) error {
	return func(c echo.Context) error {
		report := agg.Assess(c.Request().Context())
		if !report.Healthy() {
			return c.JSON(http.StatusServiceUnavailable, report)
		}
		return c.JSON(http.StatusOK, report)
	}
}

// instrumentReset runs only the first ladder level (soft reset over the
// control channel).
func instrumentReset(ladder recoverer) func(c echo.Context) error {
	return func(c echo.Context) error {
		outcome := ladder.SoftReset(c.Request().Context())
		if !outcome.Succeeded {
			return c.JSON(http.StatusServiceUnavailable, outcome)
		}
		return c.JSON(http.StatusOK, outcome)
	}
}

// instrumentRecover runs the full escalation ladder and returns the outcome
// sequence. A failed session carries the manual remediation steps.
func instrumentRecover(ladder recoverer) func(c echo.Context) error {
	return func(c echo.Context) error {
		report := ladder.Run(c.Request().Context())
		if !report.Succeeded {
			return c.JSON(http.StatusServiceUnavailable, report)
		}
		return c.JSON(http.StatusOK, report)
	}
}

func monitorStatus(mon *monitor.Monitor) func(c echo.Context) error {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, mon.Status())
	}
}

func monitorEvents(mon *monitor.Monitor) func(c echo.Context) error {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, mon.Events())
	}
}
