package scenarios

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/phasebalance/core/balance"
	"github.com/kilianp07/phasebalance/core/model"
)

func TestScenario(t *testing.T) {
	files, err := filepath.Glob("*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, files)
	for _, f := range files {
		sc, err := Load(f)
		require.NoError(t, err, f)
		t.Run(sc.Name, func(t *testing.T) {
			out, err := Run(context.Background(), sc)
			require.NoError(t, err)
			assert.True(t, out.Passed(), "failures: %v", out.Failures)
			if out.Plan != nil {
				assert.Len(t, out.Plan.Changes, out.Result.Solution.Metrics.Changed)
			}
		})
	}
}

func TestLoadInvalid(t *testing.T) {
	_, err := Load("no-file.yaml")
	require.Error(t, err)

	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte(":"), 0o644))
	_, err = Load(bad)
	require.Error(t, err)

	unnamed := filepath.Join(dir, "unnamed.yaml")
	require.NoError(t, os.WriteFile(unnamed, []byte("consumers: []\n"), 0o644))
	_, err = Load(unnamed)
	require.ErrorContains(t, err, "no name")

	phase := filepath.Join(dir, "phase.yaml")
	require.NoError(t, os.WriteFile(phase, []byte("name: x\nconsumers:\n  - {id: a, phase: D, power: 1}\n"), 0o644))
	_, err = Load(phase)
	require.Error(t, err)
}

func TestConsumerDef(t *testing.T) {
	c, err := ConsumerDef{ID: "m", Route: "R", Branch: "B", Phase: model.PhaseB, Readings: []float64{1, 2, 3}}.ToModel()
	require.NoError(t, err)
	assert.True(t, c.IsPowerPhase())
	assert.Equal(t, "m", c.Name)

	c, err = ConsumerDef{ID: "s", Phase: model.PhaseC, Power: 5}.ToModel()
	require.NoError(t, err)
	assert.Equal(t, [3]float64{0, 0, 5}, c.Readings)

	_, err = ConsumerDef{ID: "x", Readings: []float64{1, 2}}.ToModel()
	require.Error(t, err)
}

func TestRunInvalidInput(t *testing.T) {
	sc := &Scenario{Name: "broken", Consumers: []ConsumerDef{{ID: "x", Phase: model.PhaseA, Readings: []float64{-1, 2, 3}}}}
	_, err := Run(context.Background(), sc)
	require.ErrorIs(t, err, balance.ErrInvalidInput)
}

func TestCheckReportsFailures(t *testing.T) {
	consumers := []model.Consumer{
		model.NewConsumer("a", "a", "R1", "B1", model.PhaseA, 10),
		model.NewConsumer("b", "b", "R1", "B1", model.PhaseA, 10),
	}
	groups := []model.BranchGroup{{Route: "R1", Branch: "B1"}}
	sol := &balance.Solution{
		Phases:    []model.Phase{model.PhaseA, model.PhaseB},
		Rotations: []model.Rotation{model.RotationNone, model.RotationNone},
		Metrics:   balance.Metrics{UnbalanceRate: 20, Changed: 1},
	}
	no, zero := false, 0
	failures := check(Expected{Feasible: &no, MaxUnbalance: 15, MaxChanges: &zero, AtomicGroups: true}, consumers, groups, sol)
	assert.Len(t, failures, 4)

	yes := true
	failures = check(Expected{Feasible: &yes}, consumers, groups, nil)
	assert.Len(t, failures, 1)
}

func TestFromFeederRoundTrip(t *testing.T) {
	consumers := []model.Consumer{
		model.NewConsumer("a", "Alice", "R1", "B1", model.PhaseA, 12.5),
		model.NewPowerConsumer("m", "m", "R1", "B2", model.PhaseB, 1, 2, 3),
	}
	groups := []model.BranchGroup{{Route: "R1", Branch: "B1"}}

	var buf bytes.Buffer
	require.NoError(t, FromFeeder("generated", consumers, groups).Write(&buf))
	assert.Contains(t, buf.String(), "phase: A")

	path := filepath.Join(t.TempDir(), "generated.yaml")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	sc, err := Load(path)
	require.NoError(t, err)
	gotConsumers, gotGroups, err := sc.Feeder()
	require.NoError(t, err)
	assert.Equal(t, consumers, gotConsumers)
	assert.Equal(t, groups, gotGroups)
}
