// Package recovery walks the escalation ladder that brings an unresponsive
// instrument back online: soft reset over the control channel, reset over the
// service layer, out-of-band power cycle, and finally a manual-intervention
// report for the operator.
package recovery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/lightbench/meter-sentinel/api/types"
	"github.com/lightbench/meter-sentinel/internal/config"
)

// Assessor re-checks instrument health between ladder levels. Satisfied by
// *health.Aggregator.
type Assessor interface {
	Assess(ctx context.Context) types.HealthReport
}

// Ladder executes recovery levels strictly in ascending rank order and stops
// at the first level whose post-action health check comes back healthy. One
// session never loops back to an earlier level.
type Ladder struct {
	levels []Level
	health Assessor
}

// NewLadder creates a Ladder over the given levels, which must be in strictly
// ascending rank order.
func NewLadder(health Assessor, levels []Level) (*Ladder, error) {
	if health == nil {
		return nil, fmt.Errorf("recovery: assessor is nil")
	}
	if len(levels) == 0 {
		return nil, fmt.Errorf("recovery: no levels configured")
	}
	for i := 1; i < len(levels); i++ {
		if levels[i].Rank <= levels[i-1].Rank {
			return nil, fmt.Errorf("recovery: levels out of order at rank %d", levels[i].Rank)
		}
	}
	return &Ladder{levels: levels, health: health}, nil
}

// NewFromConfig wires the standard ladder from the configuration.
func NewFromConfig(cfg config.Configuration, health Assessor) (*Ladder, error) {
	levels, err := DefaultLevels(cfg)
	if err != nil {
		return nil, err
	}
	return NewLadder(health, levels)
}

// Run executes one recovery session and returns the full outcome sequence
// plus the final verdict. Failures at a level never abort the ladder; only
// cancellation does, and it is reported as canceled rather than failed.
func (l *Ladder) Run(ctx context.Context) types.RecoveryReport {
	report := types.RecoveryReport{
		SessionID: uuid.New().String(),
		StartedAt: time.Now(),
	}
	logrus.Infof("Starting recovery session %s", report.SessionID)

	lastState := types.StateOffline
	for _, lvl := range l.levels {
		if err := ctx.Err(); err != nil {
			report.Canceled = true
			report.Outcomes = append(report.Outcomes, types.RecoveryOutcome{
				Level:    lvl.Rank,
				Name:     lvl.Name,
				Canceled: true,
				Error:    err.Error(),
			})
			break
		}

		outcome, state := l.attempt(ctx, lvl)
		report.Outcomes = append(report.Outcomes, outcome)
		lastState = state

		if outcome.Canceled {
			report.Canceled = true
			break
		}
		if outcome.Succeeded {
			report.Succeeded = true
			logrus.Infof("Recovery session %s succeeded at level %d (%s)",
				report.SessionID, lvl.Rank, lvl.Name)
			break
		}
		logrus.Warnf("Recovery level %d (%s) did not restore the instrument",
			lvl.Rank, lvl.Name)
	}

	report.FinalState = lastState
	report.FinishedAt = time.Now()

	if !report.Succeeded && !report.Canceled {
		report.ManualSteps = ManualSteps
		logrus.Errorf("Recovery session %s: %v", report.SessionID, ErrExhausted)
	}
	return report
}

// SoftReset runs only the first ladder level, for the one-shot reset
// operation.
func (l *Ladder) SoftReset(ctx context.Context) types.RecoveryOutcome {
	outcome, _ := l.attempt(ctx, l.levels[0])
	return outcome
}

// attempt runs one level's action and then polls health until the device
// settles or the budget runs out. It returns the outcome and the last
// observed health state.
func (l *Ladder) attempt(ctx context.Context, lvl Level) (types.RecoveryOutcome, types.HealthState) {
	start := time.Now()
	outcome := types.RecoveryOutcome{Level: lvl.Rank, Name: lvl.Name}

	// Terminal level: no action, always a failure carrying the manual steps.
	if lvl.Action == nil {
		outcome.DurationMS = float64(time.Since(start)) / float64(time.Millisecond)
		outcome.Error = ErrManualInterventionRequired.Error()
		outcome.ManualSteps = lvl.ManualSteps
		return outcome, l.health.Assess(ctx).State
	}

	logrus.Infof("Attempting recovery level %d: %s (timeout %s)", lvl.Rank, lvl.Name, lvl.Timeout)

	actionCtx, cancel := context.WithTimeout(ctx, lvl.Timeout)
	actionErr := lvl.Action(actionCtx)
	cancel()

	if actionErr != nil {
		if ctx.Err() != nil {
			outcome.Canceled = true
			outcome.DurationMS = float64(time.Since(start)) / float64(time.Millisecond)
			outcome.Error = ctx.Err().Error()
			return outcome, types.StateOffline
		}
		if errors.Is(actionErr, context.DeadlineExceeded) {
			actionErr = fmt.Errorf("%w after %s: %v", ErrActionTimeout, lvl.Timeout, actionErr)
		}
		logrus.Warnf("Recovery level %d action failed: %v", lvl.Rank, actionErr)
	}

	// Post-action check runs even when the action errored: the command may
	// still have landed on the device.
	state, settleErr := l.awaitHealthy(ctx, lvl.Settle)
	outcome.DurationMS = float64(time.Since(start)) / float64(time.Millisecond)

	switch {
	case state.Healthy():
		outcome.Succeeded = true
	case settleErr != nil && ctx.Err() != nil:
		outcome.Canceled = true
		outcome.Error = ctx.Err().Error()
	case actionErr != nil:
		outcome.Error = actionErr.Error()
	default:
		outcome.Error = fmt.Sprintf("%v: instrument is %s", ErrActionFailed, state)
	}
	return outcome, state
}

// awaitHealthy polls the aggregator with exponential backoff until the
// instrument reports healthy, the settle budget is spent, or the context is
// canceled. The first check is immediate so a zero budget still assesses once.
func (l *Ladder) awaitHealthy(ctx context.Context, settle time.Duration) (types.HealthState, error) {
	var state types.HealthState

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = settle

	err := backoff.Retry(func() error {
		report := l.health.Assess(ctx)
		state = report.State
		if !report.Healthy() {
			return fmt.Errorf("instrument is %s", report.State)
		}
		return nil
	}, backoff.WithContext(b, ctx))

	return state, err
}
