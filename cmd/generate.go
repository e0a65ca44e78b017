package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kilianp07/phasebalance/qa/scenarios"
	"github.com/kilianp07/phasebalance/simulator"
)

var generateOpts struct {
	feeder simulator.FeederConfig
	name   string
	out    string
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write a synthetic feeder as a scenario file",
	RunE:  runGenerate,
}

func init() {
	f := generateCmd.Flags()
	f.IntVar(&generateOpts.feeder.Consumers, "consumers", 100, "number of consumers")
	f.IntVar(&generateOpts.feeder.Routes, "routes", 0, "number of routes (0 = one per 50 consumers)")
	f.IntVar(&generateOpts.feeder.BranchesPerRoute, "branches", 4, "branches per route")
	f.Float64Var(&generateOpts.feeder.PowerShare, "power-share", 0.1, "fraction of three-phase consumers")
	f.Float64Var(&generateOpts.feeder.GroupShare, "group-share", 0.2, "fraction of branches declared as groups")
	f.Float64Var(&generateOpts.feeder.MeanKWh, "mean-kwh", 10, "average daily energy per consumer")
	f.Uint64Var(&generateOpts.feeder.Seed, "seed", 0, "generation seed (0 = random)")
	f.StringVar(&generateOpts.name, "name", "generated", "scenario name")
	f.StringVarP(&generateOpts.out, "output", "o", "", "output file (default stdout)")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	f, err := simulator.Generate(generateOpts.feeder)
	if err != nil {
		return err
	}
	st := simulator.Stats(f.Consumers)
	fmt.Fprintf(cmd.ErrOrStderr(), "%d consumers (%d three-phase), %d groups, unbalance %.2f%% (%s), mean %.1f kWh, stddev %.1f kWh\n",
		st.Consumers, st.PowerConsumers, len(f.Groups), st.UnbalanceRate, st.Status, st.MeanKWh, st.StdDevKWh)

	sc := scenarios.FromFeeder(generateOpts.name, f.Consumers, f.Groups)
	if generateOpts.out == "" {
		return sc.Write(cmd.OutOrStdout())
	}
	file, err := os.Create(generateOpts.out)
	if err != nil {
		return err
	}
	if err := sc.Write(file); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}
