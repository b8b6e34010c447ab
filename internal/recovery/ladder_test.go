package recovery_test

import (
	"context"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/lightbench/meter-sentinel/api/types"
	"github.com/lightbench/meter-sentinel/internal/recovery"
)

// stubAssessor reports whatever state it is currently set to, so actions can
// flip the instrument "healthy" and the ladder's post-checks observe it.
type stubAssessor struct {
	mu    sync.Mutex
	state types.HealthState
}

func newStubAssessor(initial types.HealthState) *stubAssessor {
	return &stubAssessor{state: initial}
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

func level(rank int, name string, action recovery.Action) recovery.Level {
	return recovery.Level{
		Rank:    rank,
		Name:    name,
		Action:  action,
		Timeout: 100 * time.Millisecond,
		Settle:  20 * time.Millisecond,
	}
}

func manualLevel(rank int) recovery.Level {
	return recovery.Level{Rank: rank, Name: "manual intervention", ManualSteps: recovery.ManualSteps}
}

func noop(ctx context.Context) error { return nil }

var _ = Describe("Ladder", func() {
	var assessor *stubAssessor

	BeforeEach(func() {
		assessor = newStubAssessor(types.StateDegraded)
	})

	It("stops after the first level whose post-check is healthy", func() {
		fix := func(ctx context.Context) error {
			assessor.set(types.StateHealthy)
			return nil
		}
		ladder, err := recovery.NewLadder(assessor, []recovery.Level{
			level(1, "soft reset", fix),
			level(2, "service reset", noop),
			manualLevel(4),
		})
		Expect(err).ToNot(HaveOccurred())

		report := ladder.Run(context.Background())
		Expect(report.Succeeded).To(BeTrue())
		Expect(report.FinalState).To(Equal(types.StateHealthy))
		Expect(report.Outcomes).To(HaveLen(1))
		Expect(report.Outcomes[0].Level).To(Equal(1))
		Expect(report.Outcomes[0].Succeeded).To(BeTrue())
		Expect(report.ManualSteps).To(BeEmpty())
		Expect(report.SessionID).ToNot(BeEmpty())
	})

	It("attempts levels in strict ascending order with one outcome per level", func() {
		var order []int
		record := func(rank int) recovery.Action {
			return func(ctx context.Context) error {
				order = append(order, rank)
				return nil
			}
		}
		ladder, err := recovery.NewLadder(assessor, []recovery.Level{
			level(1, "soft reset", record(1)),
			level(2, "service reset", record(2)),
			level(3, "power cycle", record(3)),
			manualLevel(4),
		})
		Expect(err).ToNot(HaveOccurred())

		report := ladder.Run(context.Background())
		Expect(order).To(Equal([]int{1, 2, 3}))
		Expect(report.Succeeded).To(BeFalse())
		Expect(report.Outcomes).To(HaveLen(4))
		for i, outcome := range report.Outcomes {
			Expect(outcome.Level).To(Equal(i + 1))
			Expect(outcome.Succeeded).To(BeFalse())
		}
		Expect(report.Outcomes[3].ManualSteps).ToNot(BeEmpty())
		Expect(report.ManualSteps).ToNot(BeEmpty())
	})

	It("never attempts a higher level once a lower one restores health", func() {
		fixAtTwo := func(ctx context.Context) error {
			assessor.set(types.StateHealthy)
			return nil
		}
		var levelThreeRan bool
		ladder, err := recovery.NewLadder(assessor, []recovery.Level{
			level(1, "soft reset", noop),
			level(2, "service reset", fixAtTwo),
			level(3, "power cycle", func(ctx context.Context) error {
				levelThreeRan = true
				return nil
			}),
			manualLevel(4),
		})
		Expect(err).ToNot(HaveOccurred())

		report := ladder.Run(context.Background())
		Expect(report.Succeeded).To(BeTrue())
		Expect(report.Outcomes).To(HaveLen(2))
		Expect(levelThreeRan).To(BeFalse())
	})

	It("fails a level closed when its action exceeds the timeout", func() {
		hang := func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}
		fix := func(ctx context.Context) error {
			assessor.set(types.StateHealthy)
			return nil
		}
		ladder, err := recovery.NewLadder(assessor, []recovery.Level{
			{Rank: 1, Name: "soft reset", Action: hang, Timeout: 30 * time.Millisecond, Settle: 10 * time.Millisecond},
			level(2, "service reset", fix),
		})
		Expect(err).ToNot(HaveOccurred())

		report := ladder.Run(context.Background())
		Expect(report.Succeeded).To(BeTrue())
		Expect(report.Outcomes).To(HaveLen(2))
		Expect(report.Outcomes[0].Succeeded).To(BeFalse())
		Expect(report.Outcomes[0].Canceled).To(BeFalse())
		Expect(report.Outcomes[0].Error).To(ContainSubstring("timed out"))
	})

	It("reports cancellation distinctly from failure", func() {
		ctx, cancel := context.WithCancel(context.Background())
		interrupted := func(c context.Context) error {
			cancel()
			<-c.Done()
			return c.Err()
		}
		ladder, err := recovery.NewLadder(assessor, []recovery.Level{
			level(1, "soft reset", interrupted),
			level(2, "service reset", noop),
			manualLevel(4),
		})
		Expect(err).ToNot(HaveOccurred())

		report := ladder.Run(ctx)
		Expect(report.Canceled).To(BeTrue())
		Expect(report.Succeeded).To(BeFalse())
		Expect(report.Outcomes).To(HaveLen(1))
		Expect(report.Outcomes[0].Canceled).To(BeTrue())
		Expect(report.ManualSteps).To(BeEmpty())
	})

	It("runs only the first level on a soft reset", func() {
		fix := func(ctx context.Context) error {
			assessor.set(types.StateHealthy)
			return nil
		}
		var levelTwoRan bool
		ladder, err := recovery.NewLadder(assessor, []recovery.Level{
			level(1, "soft reset", fix),
			level(2, "service reset", func(ctx context.Context) error {
				levelTwoRan = true
				return nil
			}),
		})
		Expect(err).ToNot(HaveOccurred())

		outcome := ladder.SoftReset(context.Background())
		Expect(outcome.Level).To(Equal(1))
		Expect(outcome.Succeeded).To(BeTrue())
		Expect(levelTwoRan).To(BeFalse())
	})

	It("rejects levels that are not strictly ascending", func() {
		_, err := recovery.NewLadder(assessor, []recovery.Level{
			level(2, "service reset", noop),
			level(1, "soft reset", noop),
		})
		Expect(err).To(HaveOccurred())
	})
})
