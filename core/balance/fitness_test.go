package balance

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/phasebalance/core/model"
)

func TestUnbalanceOfKnownAssignments(t *testing.T) {
	consumers := []model.Consumer{
		single("U1", "R1", "B1", model.PhaseA, 100),
		single("U2", "R2", "B1", model.PhaseB, 100),
		single("U3", "R3", "B1", model.PhaseC, 10),
	}
	p := mustProblem(t, consumers, nil)

	assert.Equal(t, [3]float64{100, 100, 10}, p.baseline.Metrics.PhasePowers)
	assert.InDelta(t, 90.0, p.baseline.Metrics.UnbalanceRate, 1e-9)
	assert.Zero(t, p.baseline.Metrics.Changed)

	moved := p.baseline.Clone()
	moved.Phases[0] = model.PhaseC
	p.evaluate(moved)
	assert.Equal(t, [3]float64{0, 100, 110}, moved.Metrics.PhasePowers)
	assert.InDelta(t, 100.0, moved.Metrics.UnbalanceRate, 1e-9)
	assert.Equal(t, 1, moved.Metrics.Changed)
	assert.InDelta(t, 100.0/3, moved.Metrics.ChangeRatio, 1e-9)
	// ungrouped consumers carry no adjustment cost
	assert.Zero(t, moved.Metrics.AdjustmentCost)
}

func TestAdjustmentCostOfMovedGroup(t *testing.T) {
	consumers := []model.Consumer{
		single("a", "R1", "B1", model.PhaseA, 50),
		single("b", "R1", "B1", model.PhaseA, 50),
		single("c", "R2", "X", model.PhaseB, 100),
	}
	p := mustProblem(t, consumers, []model.BranchGroup{{Route: "R1", Branch: "B1"}})

	s := p.baseline.Clone()
	p.assign(s, &p.units[0], model.PhaseC, model.RotationNone)
	p.evaluate(s)

	assert.Equal(t, 2, s.Metrics.Changed)
	assert.InDelta(t, 0.6*100/200, s.Metrics.AdjustmentCost, 1e-12)
	assert.InDelta(t, 0.3/200*100, s.Metrics.NormalizedCost, 1e-12)
}

func TestTieredFitness(t *testing.T) {
	cases := []struct {
		name string
		m    Metrics
		want float64
	}{
		{"infeasible", Metrics{UnbalanceRate: 20, ChangeRatio: 10, NormalizedCost: 1}, 20000},
		{"upper tier", Metrics{UnbalanceRate: 12, ChangeRatio: 10, NormalizedCost: 1}, 0.7*12 + 0.3*10 + 500},
		{"middle tier", Metrics{UnbalanceRate: 8, ChangeRatio: 10, NormalizedCost: 1}, 0.7*10 + 0.3*1 + 200},
		{"balanced", Metrics{UnbalanceRate: 3, ChangeRatio: 10, NormalizedCost: 1.5}, 1.5},
		{"at threshold", Metrics{UnbalanceRate: 15, ChangeRatio: 0}, 0.7*15 + 500},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, tieredFitness(tc.m), 1e-9)
		})
	}
}

func TestZeroLoadHasNoUnbalance(t *testing.T) {
	consumers := []model.Consumer{
		single("a", "R1", "B1", model.PhaseA, 0),
		single("b", "R1", "B2", model.PhaseB, 0),
	}
	p := mustProblem(t, consumers, nil)
	assert.Zero(t, p.baseline.Metrics.UnbalanceRate)
	assert.Zero(t, p.baseline.Metrics.NormalizedCost)
}

func TestDiversityRewardsRareSolutions(t *testing.T) {
	assert.Less(t, diversityFactor(1), diversityFactor(5))
	assert.Less(t, diversityFactor(5), 1.0)
	assert.InDelta(t, 0.9, diversityFactor(0), 1e-12)

	p := mustProblem(t, skewedFeeder(), nil)
	common := p.baseline.Clone()
	common.Phases[0] = model.PhaseC
	rare := p.baseline.Clone()
	rare.Phases[1] = model.PhaseC

	pop := []*Solution{common, common.Clone(), common.Clone(), rare}
	freq, err := p.evaluateGeneration(context.Background(), pop)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"0:3": 3, "1:3": 1}, freq)
	// both move one consumer from A to C so their raw fitness is equal
	assert.Less(t, rare.Fitness, common.Fitness)
	assert.Equal(t, "0:3", p.diversityKey(common))
}

func TestParallelEvaluationMatchesSequential(t *testing.T) {
	consumers, groups := groupedFeeder()
	seq := mustProblem(t, consumers, groups)
	par := mustProblem(t, consumers, groups)
	par.cfg.Parallelism = 4

	a := seq.initialPopulation(testRNG(), 20)
	b := par.initialPopulation(testRNG(), 20)
	_, err := seq.evaluateGeneration(context.Background(), a)
	require.NoError(t, err)
	_, err = par.evaluateGeneration(context.Background(), b)
	require.NoError(t, err)
	for i := range a {
		assert.Equal(t, a[i].Fitness, b[i].Fitness)
	}
}

func TestRescoreKeepsDiversityBonus(t *testing.T) {
	p := mustProblem(t, skewedFeeder(), nil)
	common := p.baseline.Clone()
	common.Phases[0] = model.PhaseC
	rare := p.baseline.Clone()
	rare.Phases[1] = model.PhaseC
	pop := []*Solution{common, common.Clone(), rare}
	freq, err := p.evaluateGeneration(context.Background(), pop)
	require.NoError(t, err)

	// a leader replaced by an identical clone keeps its score
	same := rare.Clone()
	p.evaluate(same)
	p.rescore(same, rare, freq)
	assert.Equal(t, rare.Fitness, same.Fitness)
	assert.Less(t, same.Fitness, tieredFitness(same.Metrics))

	// a leader turned into a common solution takes the common bonus
	joined := common.Clone()
	p.evaluate(joined)
	p.rescore(joined, same, freq)
	assert.Equal(t, 3, freq["0:3"])
	assert.InDelta(t, tieredFitness(joined.Metrics)*diversityFactor(3), joined.Fitness, 1e-12)
}
