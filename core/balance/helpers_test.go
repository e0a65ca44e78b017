package balance

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kilianp07/phasebalance/core/model"
)

func single(id, route, branch string, phase model.Phase, power float64) model.Consumer {
	return model.NewConsumer(id, id, route, branch, phase, power)
}

// groupedFeeder has three declared groups sharing a phase each, one of them
// holding a three-phase consumer, plus five ungrouped consumers.
func groupedFeeder() ([]model.Consumer, []model.BranchGroup) {
	consumers := []model.Consumer{
		single("c0", "R1", "B1", model.PhaseA, 100),
		single("c1", "R1", "B1", model.PhaseA, 100),
		single("c2", "R1", "B1", model.PhaseA, 100),
		single("c3", "R1", "B2", model.PhaseA, 100),
		single("c4", "R1", "B2", model.PhaseA, 100),
		single("c5", "R2", "B1", model.PhaseB, 100),
		model.NewPowerConsumer("c6", "c6", "R2", "B1", model.PhaseB, 30, 30, 30),
		single("c7", "R3", "B1", model.PhaseA, 80),
		single("c8", "R3", "B2", model.PhaseB, 60),
		model.NewPowerConsumer("c9", "c9", "R4", "B1", model.PhaseC, 20, 40, 60),
		single("c10", "R4", "B2", model.PhaseA, 120),
		single("c11", "R5", "B1", model.PhaseC, 50),
	}
	groups := []model.BranchGroup{
		{Route: "R1", Branch: "B1"},
		{Route: "R1", Branch: "B2"},
		{Route: "R2", Branch: "B1"},
		{Route: "R9", Branch: "B9"},
	}
	return consumers, groups
}

// mixedGroupFeeder has two groups whose members sit on different phases
// today, one of them holding a three-phase consumer, plus four ungrouped
// consumers.
func mixedGroupFeeder() ([]model.Consumer, []model.BranchGroup) {
	consumers := []model.Consumer{
		single("m0", "R1", "B1", model.PhaseA, 100),
		single("m1", "R1", "B1", model.PhaseA, 100),
		single("m2", "R1", "B1", model.PhaseB, 100),
		single("m3", "R2", "B1", model.PhaseC, 50),
		model.NewPowerConsumer("m4", "m4", "R2", "B1", model.PhaseB, 10, 20, 30),
		single("m5", "R3", "B1", model.PhaseA, 200),
		single("m6", "R3", "B2", model.PhaseB, 80),
		single("m7", "R4", "B1", model.PhaseC, 60),
		single("m8", "R4", "B2", model.PhaseA, 90),
	}
	groups := []model.BranchGroup{
		{Route: "R1", Branch: "B1"},
		{Route: "R2", Branch: "B1"},
	}
	return consumers, groups
}

type fixture struct {
	name      string
	consumers []model.Consumer
	groups    []model.BranchGroup
}

// groupFixtures lists the feeders with declared groups.
func groupFixtures() []fixture {
	gc, gg := groupedFeeder()
	mc, mg := mixedGroupFeeder()
	return []fixture{
		{name: "uniform groups", consumers: gc, groups: gg},
		{name: "mixed groups", consumers: mc, groups: mg},
	}
}

// skewedFeeder is twelve equal consumers, six on A, four on B and two on C.
// Moving two consumers from A to C balances it perfectly.
func skewedFeeder() []model.Consumer {
	out := make([]model.Consumer, 0, 12)
	phases := []model.Phase{
		model.PhaseA, model.PhaseA, model.PhaseA, model.PhaseA, model.PhaseA, model.PhaseA,
		model.PhaseB, model.PhaseB, model.PhaseB, model.PhaseB,
		model.PhaseC, model.PhaseC,
	}
	for i, ph := range phases {
		out = append(out, single("u"+string(rune('a'+i)), "R"+string(rune('a'+i)), "B", ph, 100))
	}
	return out
}

func mustProblem(t *testing.T, consumers []model.Consumer, groups []model.BranchGroup) *problem {
	t.Helper()
	cfg := DefaultConfig()
	p, err := newProblem(consumers, groups, cfg)
	require.NoError(t, err)
	return p
}

func testRNG() *rand.Rand { return rand.New(rand.NewPCG(7, 7)) }

// requireAtomic fails unless every declared group is either untouched, each
// member on its own current phase, or carries one shared (phase, rotation).
func requireAtomic(t *testing.T, p *problem, s *Solution) {
	t.Helper()
	for key, members := range p.groups {
		untouched := true
		for _, m := range members {
			if s.Phases[m] != p.consumers[m].BaselinePhase() || s.Rotations[m] != model.RotationNone {
				untouched = false
				break
			}
		}
		if untouched {
			continue
		}
		first := members[0]
		for _, m := range members[1:] {
			require.Equal(t, s.Phases[first], s.Phases[m], "phase split in group %s", key)
			require.Equal(t, s.Rotations[first], s.Rotations[m], "rotation split in group %s", key)
		}
	}
}
