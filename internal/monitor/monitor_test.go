package monitor_test

import (
	"context"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/lightbench/meter-sentinel/api/types"
	"github.com/lightbench/meter-sentinel/internal/config"
	"github.com/lightbench/meter-sentinel/internal/monitor"
)

// stubAssessor returns whatever state it is currently set to.
type stubAssessor struct {
	mu    sync.Mutex
	state types.HealthState
}

func (a *stubAssessor) set(s types.HealthState) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state = s
}

func (a *stubAssessor) Assess(ctx context.Context) types.HealthReport {
	a.mu.Lock()
	defer a.mu.Unlock()
	return types.HealthReport{State: a.state, CheckedAt: time.Now()}
}

// stubRecoverer counts sessions and optionally "fixes" the instrument.
type stubRecoverer struct {
	mu       sync.Mutex
	sessions int
	fixes    bool
	assessor *stubAssessor
}

func (r *stubRecoverer) Run(ctx context.Context) types.RecoveryReport {
	r.mu.Lock()
	r.sessions++
	r.mu.Unlock()

	report := types.RecoveryReport{SessionID: "test-session", FinalState: types.StateDegraded}
	if r.fixes {
		r.assessor.set(types.StateHealthy)
		report.Succeeded = true
		report.FinalState = types.StateHealthy
	}
	return report
}

func (r *stubRecoverer) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions
}

// eventRecorder is a sink collecting every emitted event.
type eventRecorder struct {
	mu     sync.Mutex
	events []types.MonitorEvent
}

func (r *eventRecorder) Emit(ev types.MonitorEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *eventRecorder) all() []types.MonitorEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]types.MonitorEvent, len(r.events))
	copy(out, r.events)
	return out
}

var _ = Describe("Monitor", func() {
	var (
		assessor *stubAssessor
		ladder   *stubRecoverer
		recorder *eventRecorder
		cfg      config.MonitorConfig
		ctx      context.Context
		cancel   context.CancelFunc
		done     chan struct{}
	)

	BeforeEach(func() {
		assessor = &stubAssessor{state: types.StateHealthy}
		ladder = &stubRecoverer{assessor: assessor}
		recorder = &eventRecorder{}
		cfg = config.MonitorConfig{
			PollInterval:     20 * time.Millisecond,
			FailureThreshold: 3,
			EventBuffer:      64,
		}
		ctx, cancel = context.WithCancel(context.Background())
		done = make(chan struct{})
	})

	AfterEach(func() {
		cancel()
		Eventually(done).Should(BeClosed())
	})

	start := func(m *monitor.Monitor) {
		go func() {
			defer GinkgoRecover()
			defer close(done)
			Expect(m.Run(ctx)).To(Succeed())
		}()
	}

	It("triggers recovery only after the threshold is crossed", func() {
		assessor.set(types.StateDegraded)
		m, err := monitor.New(assessor, ladder, cfg, recorder)
		Expect(err).ToNot(HaveOccurred())
		start(m)

		Eventually(ladder.count).Should(Equal(1))

		events := recorder.all()
		Expect(len(events)).To(BeNumerically(">=", 4))
		Expect(events[0].ConsecutiveFailures).To(Equal(1))
		Expect(events[1].ConsecutiveFailures).To(Equal(2))
		Expect(events[2].ConsecutiveFailures).To(Equal(3))
		Expect(events[0].Recovery).To(BeNil())
		Expect(events[1].Recovery).To(BeNil())
		Expect(events[3].Recovery).ToNot(BeNil())
		Expect(events[3].Phase).To(Equal(types.PhaseRecovering))
		Expect(events[3].Tick).To(Equal(3))
	})

	It("resets the failure counter after a healthy poll", func() {
		// Threshold high enough that recovery never interferes here.
		cfg.FailureThreshold = 10
		m, err := monitor.New(assessor, ladder, cfg, recorder)
		Expect(err).ToNot(HaveOccurred())
		start(m)

		Eventually(func() int { return len(recorder.all()) }).Should(BeNumerically(">=", 1))
		assessor.set(types.StateDegraded)
		Eventually(func() int {
			events := recorder.all()
			return events[len(events)-1].ConsecutiveFailures
		}).Should(BeNumerically(">=", 2))

		assessor.set(types.StateHealthy)
		Eventually(func() types.HealthState {
			events := recorder.all()
			return events[len(events)-1].State
		}).Should(Equal(types.StateHealthy))

		assessor.set(types.StateDegraded)
		Eventually(func() types.HealthState {
			events := recorder.all()
			return events[len(events)-1].State
		}).Should(Equal(types.StateDegraded))

		// The first unhealthy poll after a healthy one starts over at 1.
		events := recorder.all()
		lastHealthy := -1
		for i, ev := range events {
			if ev.State == types.StateHealthy {
				lastHealthy = i
			}
		}
		Expect(lastHealthy).To(BeNumerically(">=", 0))
		Expect(events[lastHealthy].ConsecutiveFailures).To(Equal(0))
		Expect(events[lastHealthy+1].ConsecutiveFailures).To(Equal(1))
		Expect(ladder.count()).To(Equal(0))
	})

	It("resets the counter after a failed recovery instead of re-triggering", func() {
		assessor.set(types.StateDegraded)
		ladder.fixes = false
		m, err := monitor.New(assessor, ladder, cfg, recorder)
		Expect(err).ToNot(HaveOccurred())
		start(m)

		Eventually(ladder.count).Should(Equal(1))

		// The next session needs another full run of threshold failures.
		Eventually(ladder.count, "2s").Should(Equal(2))
		var between []types.MonitorEvent
		seen := 0
		for _, ev := range recorder.all() {
			if ev.Recovery != nil {
				seen++
				continue
			}
			if seen == 1 {
				between = append(between, ev)
			}
		}
		Expect(len(between)).To(BeNumerically(">=", 3))
		Expect(between[0].ConsecutiveFailures).To(Equal(1))
	})

	It("goes back to polling after a successful recovery", func() {
		assessor.set(types.StateDegraded)
		ladder.fixes = true
		m, err := monitor.New(assessor, ladder, cfg, recorder)
		Expect(err).ToNot(HaveOccurred())
		start(m)

		Eventually(ladder.count).Should(Equal(1))
		Eventually(func() types.MonitorPhase { return m.Status().Phase }).Should(Equal(types.PhasePolling))
		Eventually(func() types.HealthState {
			events := recorder.all()
			return events[len(events)-1].State
		}).Should(Equal(types.StateHealthy))
		Consistently(ladder.count, "200ms").Should(Equal(1))
	})

	It("stops promptly on cancellation and reports a stopped phase", func() {
		m, err := monitor.New(assessor, ladder, cfg, recorder)
		Expect(err).ToNot(HaveOccurred())
		start(m)

		Eventually(func() int { return m.Status().Ticks }).Should(BeNumerically(">=", 1))
		cancel()
		Eventually(done).Should(BeClosed())
		Expect(m.Status().Phase).To(Equal(types.PhaseStopped))
	})

	It("fans events out to every configured sink", func() {
		second := &eventRecorder{}
		m, err := monitor.New(assessor, ladder, cfg, monitor.MultiSink(recorder, nil, second))
		Expect(err).ToNot(HaveOccurred())
		start(m)

		Eventually(func() int { return len(recorder.all()) }).Should(BeNumerically(">=", 2))
		Eventually(func() int { return len(second.all()) }).Should(BeNumerically(">=", 2))
	})

	It("records events on the status tracker", func() {
		m, err := monitor.New(assessor, ladder, cfg, recorder)
		Expect(err).ToNot(HaveOccurred())
		start(m)

		Eventually(func() int { return len(m.Events()) }).Should(BeNumerically(">=", 2))
		status := m.Status()
		Expect(status.LastState).To(Equal(types.StateHealthy))
		Expect(status.LastEvent).ToNot(BeNil())
	})

	It("rejects an invalid configuration", func() {
		close(done) // no loop in this spec

		_, err := monitor.New(assessor, ladder, config.MonitorConfig{PollInterval: 0, FailureThreshold: 3}, recorder)
		Expect(err).To(HaveOccurred())

		_, err = monitor.New(assessor, ladder, config.MonitorConfig{PollInterval: time.Second, FailureThreshold: 0}, recorder)
		Expect(err).To(HaveOccurred())

		_, err = monitor.New(nil, ladder, cfg, recorder)
		Expect(err).To(HaveOccurred())
	})

	It("refuses a second concurrent session", func() {
		m, err := monitor.New(assessor, ladder, cfg, recorder)
		Expect(err).ToNot(HaveOccurred())
		start(m)

		Eventually(func() int { return m.Status().Ticks }).Should(BeNumerically(">=", 1))
		Expect(m.Run(context.Background())).ToNot(Succeed())
	})
})
