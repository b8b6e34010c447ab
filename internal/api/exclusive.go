package api

import (
	"context"
	"sync"

	"github.com/lightbench/meter-sentinel/api/types"
	"github.com/lightbench/meter-sentinel/internal/monitor"
)

// exclusiveEngine serializes every operation that addresses the instrument.
// The monitor loop and the HTTP handlers share one instance, so a recovery
// triggered over the API can never overlap the loop's own probing or
// recovery. The lock is held per operation, never between ticks.
type exclusiveEngine struct {
	mu     sync.Mutex
	agg    monitor.Assessor
	ladder recoverer
}

func newExclusiveEngine(agg monitor.Assessor, ladder recoverer) *exclusiveEngine {
	return &exclusiveEngine{agg: agg, ladder: ladder}
}

func (e *exclusiveEngine) Assess(ctx context.Context) types.HealthReport {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.agg.Assess(ctx)
}

func (e *exclusiveEngine) Run(ctx context.Context) types.RecoveryReport {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ladder.Run(ctx)
}

func (e *exclusiveEngine) SoftReset(ctx context.Context) types.RecoveryOutcome {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ladder.SoftReset(ctx)
}
