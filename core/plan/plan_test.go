package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/phasebalance/core/balance"
	"github.com/kilianp07/phasebalance/core/model"
)

func feeder() []model.Consumer {
	return []model.Consumer{
		model.NewConsumer("1", "bakery", "R1", "B1", model.PhaseA, 100),
		model.NewConsumer("2", "school", "R1", "B1", model.PhaseA, 100),
		model.NewConsumer("3", "farm", "R2", "B1", model.PhaseB, 100),
		model.NewPowerConsumer("4", "mill", "R3", "B1", model.PhaseA, 30, 10, 20),
	}
}

func solution(consumers []model.Consumer) *balance.Solution {
	s := &balance.Solution{
		Phases:    make([]model.Phase, len(consumers)),
		Rotations: make([]model.Rotation, len(consumers)),
	}
	for i, c := range consumers {
		s.Phases[i] = c.BaselinePhase()
	}
	return s
}

func TestBuildListsChanges(t *testing.T) {
	consumers := feeder()
	s := solution(consumers)
	s.Phases[1] = model.PhaseC
	s.Phases[3] = model.PhaseB
	s.Rotations[3] = model.RotationClockwise

	p, err := Build(consumers, s)
	require.NoError(t, err)
	require.Len(t, p.Changes, 2)

	school := p.Changes[0]
	assert.Equal(t, "2", school.ConsumerID)
	assert.Equal(t, model.PhaseA, school.OldPhase)
	assert.Equal(t, model.PhaseC, school.NewPhase)
	assert.Equal(t, [3]float64{0, 0, 100}, school.NewReadings)

	mill := p.Changes[1]
	assert.True(t, mill.PowerPhase)
	assert.Equal(t, [3]float64{30, 10, 20}, mill.OldReadings)
	assert.Equal(t, [3]float64{20, 30, 10}, mill.NewReadings)

	assert.Equal(t, [3]float64{230, 110, 20}, p.Before.PhasePowers)
	assert.Equal(t, [3]float64{120, 130, 110}, p.After.PhasePowers)
	assert.InDelta(t, 120.0, p.After.Mean, 1e-9)
	assert.InDelta(t, 20.0, p.After.Spread, 1e-9)
	assert.Less(t, p.After.UnbalanceRate, p.Before.UnbalanceRate)
	assert.Equal(t, model.StatusSevere, p.Before.Status)
	assert.Equal(t, model.StatusMild, p.After.Status)
	assert.Greater(t, p.YearlySaving, 0.0)

	byBranch := p.ByBranch()
	assert.Len(t, byBranch[model.BranchKey{Route: "R1", Branch: "B1"}], 1)
}

func TestBuildLabelsGroupedPowerConsumerByRotation(t *testing.T) {
	consumers := feeder()
	s := solution(consumers)
	// the mill rotates with a group moved to C; the label follows the rotation
	s.Phases[3] = model.PhaseC
	s.Rotations[3] = model.RotationClockwise

	p, err := Build(consumers, s)
	require.NoError(t, err)
	require.Len(t, p.Changes, 1)
	mill := p.Changes[0]
	assert.Equal(t, model.PhaseA, mill.OldPhase)
	assert.Equal(t, model.PhaseB, mill.NewPhase)
	assert.Equal(t, [3]float64{20, 30, 10}, mill.NewReadings)
}

func TestBuildUnchanged(t *testing.T) {
	consumers := feeder()
	p, err := Build(consumers, solution(consumers))
	require.NoError(t, err)
	assert.Empty(t, p.Changes)
	assert.Equal(t, p.Before, p.After)
	assert.Zero(t, p.YearlySaving)
}

func TestBuildMismatch(t *testing.T) {
	_, err := Build(feeder(), nil)
	assert.ErrorIs(t, err, ErrMismatch)

	_, err = Build(feeder(), solution(feeder()[:2]))
	assert.ErrorIs(t, err, ErrMismatch)
}
