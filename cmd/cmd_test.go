package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/phasebalance/app"
	"github.com/kilianp07/phasebalance/qa/scenarios"
)

// execute runs the root command. Flag values persist between calls, so tests
// pass every flag they rely on.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestGenerateAndOptimize(t *testing.T) {
	dir := t.TempDir()
	feeder := filepath.Join(dir, "feeder.yaml")
	_, err := execute(t, "generate", "--consumers", "30", "--seed", "4", "--name", "demo", "-o", feeder)
	require.NoError(t, err)

	sc, err := scenarios.Load(feeder)
	require.NoError(t, err)
	assert.Equal(t, "demo", sc.Name)
	assert.Len(t, sc.Consumers, 30)

	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`balance:
  population_size: 20
  generations: 20
  optimization_times: 1
  max_retry_times: 2
  seed: 9
logging:
  level: error
`), 0o644))

	out, err := execute(t, "optimize", "-c", cfgPath, "--scenario", feeder, "--dry-run", "--json")
	require.NoError(t, err)
	var rep app.Report
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.Equal(t, "demo", rep.Name)
	assert.NotEmpty(t, rep.RunID)
	assert.False(t, rep.Published)
	assert.NotEmpty(t, rep.Result.Attempts)
}

func TestOptimizeMissingConfig(t *testing.T) {
	_, err := execute(t, "optimize", "-c", filepath.Join(t.TempDir(), "missing.yaml"), "--scenario", "feeder.yaml")
	assert.ErrorContains(t, err, "load config")
}

func TestScenarioCommand(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`{"logging": {"level": "error"}}`), 0o644))
	out, err := execute(t, "scenario", "-c", cfgPath, "../qa/scenarios/balanced_feeder.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "PASS balanced_feeder")
}
