package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/lightbench/meter-sentinel/internal/monitor"
)

// RequestMetrics tracks request error rates for the service's own readiness
// probe. This is about the sentinel process itself, not the instrument.
type RequestMetrics struct {
	mu             sync.RWMutex
	errorCount     int
	successCount   int
	windowStart    time.Time
	windowDuration time.Duration
	errorThreshold float64
}

// NewRequestMetrics creates a new request metrics tracker.
func NewRequestMetrics() *RequestMetrics {
	return &RequestMetrics{
		windowStart:    time.Now(),
		windowDuration: 10 * time.Minute,
		errorThreshold: 0.95, // 95% error rate threshold
	}
}

// RecordSuccess records a successful request.
func (rm *RequestMetrics) RecordSuccess() {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	rm.checkAndResetWindow()
	rm.successCount++
}

// RecordError records an error.
func (rm *RequestMetrics) RecordError() {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	rm.checkAndResetWindow()
	rm.errorCount++
}

// checkAndResetWindow resets the metrics window if it has expired.
func (rm *RequestMetrics) checkAndResetWindow() {
	if time.Since(rm.windowStart) > rm.windowDuration {
		rm.errorCount = 0
		rm.successCount = 0
		rm.windowStart = time.Now()
	}
}

// IsHealthy checks if the service is healthy based on error rate.
func (rm *RequestMetrics) IsHealthy() bool {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	total := rm.errorCount + rm.successCount
	if total == 0 {
		return true // No requests yet, consider healthy
	}

	errorRate := float64(rm.errorCount) / float64(total)
	return errorRate < rm.errorThreshold
}

// GetStats returns current request statistics.
func (rm *RequestMetrics) GetStats() map[string]interface{} {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	total := rm.errorCount + rm.successCount
	errorRate := 0.0
	if total > 0 {
		errorRate = float64(rm.errorCount) / float64(total)
	}

	return map[string]interface{}{
		"error_count":     rm.errorCount,
		"success_count":   rm.successCount,
		"total_count":     total,
		"error_rate":      errorRate,
		"window_start":    rm.windowStart.Format(time.RFC3339),
		"window_duration": rm.windowDuration.String(),
	}
}

// Healthz is the liveness probe endpoint. It reports on the sentinel process
// only; instrument health lives under /instrument/health.
func Healthz() func(c echo.Context) error {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "meter-sentinel",
		})
	}
}

// Readyz is the readiness probe endpoint.
func Readyz(mon *monitor.Monitor, metrics *RequestMetrics) func(c echo.Context) error {
	return func(c echo.Context) error {
		checks := map[string]interface{}{
			"service": "meter-sentinel",
			"ready":   true,
			"checks":  map[string]interface{}{},
		}

		if mon == nil {
			checks["ready"] = false
			checks["checks"].(map[string]interface{})["monitor"] = "not initialized"
			return c.JSON(http.StatusServiceUnavailable, checks)
		}

		if !metrics.IsHealthy() {
			checks["ready"] = false
			checks["checks"].(map[string]interface{})["error_rate"] = "unhealthy"
			checks["checks"].(map[string]interface{})["stats"] = metrics.GetStats()
			return c.JSON(http.StatusServiceUnavailable, checks)
		}

		checks["checks"].(map[string]interface{})["monitor"] = string(mon.Status().Phase)
		checks["checks"].(map[string]interface{})["error_rate"] = "healthy"
		checks["checks"].(map[string]interface{})["stats"] = metrics.GetStats()

		return c.JSON(http.StatusOK, checks)
	}
}
