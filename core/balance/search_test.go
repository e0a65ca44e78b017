package balance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/phasebalance/core/model"
)

func TestLocalSearchMovesToBetterPhase(t *testing.T) {
	consumers := []model.Consumer{
		single("a", "R1", "B1", model.PhaseA, 100),
		single("b", "R2", "B1", model.PhaseB, 100),
		single("c", "R3", "B1", model.PhaseB, 100),
	}
	p := mustProblem(t, consumers, nil)

	s := p.baseline.Clone()
	s.Phases[1] = model.PhaseA
	p.evaluate(s)
	require.InDelta(t, 100.0, s.Metrics.UnbalanceRate, 1e-9)

	p.localSearch(s)
	assert.Equal(t, model.PhaseC, s.Phases[1])
	assert.Zero(t, s.Metrics.UnbalanceRate)
	assert.Equal(t, 1, s.Metrics.Changed)
}

func TestLocalSearchTriesBothRotations(t *testing.T) {
	consumers := []model.Consumer{
		model.NewPowerConsumer("m", "m", "R1", "B1", model.PhaseA, 90, 10, 20),
		single("a", "R2", "B1", model.PhaseA, 100),
	}
	p := mustProblem(t, consumers, nil)

	s := p.baseline.Clone()
	p.assign(s, &p.units[p.unitOf[0]], 0, model.RotationClockwise)
	p.evaluate(s)
	before := s.Metrics.UnbalanceRate

	p.localSearch(s)
	assert.Equal(t, model.RotationCounterClockwise, s.Rotations[0])
	assert.Equal(t, model.PhaseC, s.Phases[0])
	assert.Less(t, s.Metrics.UnbalanceRate, before)
}

func TestLocalSearchLeavesUnchangedSolutionAlone(t *testing.T) {
	p := mustProblem(t, skewedFeeder(), nil)
	s := p.baseline.Clone()
	p.localSearch(s)
	assert.Equal(t, p.baseline.Phases, s.Phases)
	assert.Equal(t, p.baseline.Fitness, s.Fitness)
}

func TestLocalSearchKeepsGroupsAtomic(t *testing.T) {
	for _, f := range groupFixtures() {
		t.Run(f.name, func(t *testing.T) {
			p := mustProblem(t, f.consumers, f.groups)
			rng := testRNG()
			for i := 0; i < 50; i++ {
				s := p.baseline.Clone()
				for ui := range p.units {
					if rng.IntN(2) == 0 {
						p.randomChange(rng, s, &p.units[ui])
					}
				}
				before := p.countChanged(s)
				p.evaluate(s)
				start := s.Metrics.UnbalanceRate

				p.localSearch(s)
				requireAtomic(t, p, s)
				assert.LessOrEqual(t, s.Metrics.UnbalanceRate, start)
				assert.LessOrEqual(t, s.Metrics.Changed, max(p.maxChanges, before))
			}
		})
	}
}
