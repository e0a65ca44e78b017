package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/phasebalance/app"
	"github.com/kilianp07/phasebalance/infra/logger"
	"github.com/kilianp07/phasebalance/qa/scenarios"
	"github.com/kilianp07/phasebalance/simulator"
)

var optimizeOpts struct {
	scenario   string
	generate   int
	seed       uint64
	powerShare float64
	groupShare float64
	dryRun     bool
	jsonOut    bool
}

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Balance a feeder and publish the rewiring plan",
	Example: `  phasebalance optimize --scenario feeder.yaml
  phasebalance optimize --generate 500 --seed 7 --json`,
	RunE: runOptimize,
}

func init() {
	f := optimizeCmd.Flags()
	f.StringVar(&optimizeOpts.scenario, "scenario", "", "scenario file holding the feeder")
	f.IntVar(&optimizeOpts.generate, "generate", 0, "generate a synthetic feeder with this many consumers")
	f.Uint64Var(&optimizeOpts.seed, "seed", 0, "seed of the synthetic feeder (0 = random)")
	f.Float64Var(&optimizeOpts.powerShare, "power-share", 0.1, "fraction of three-phase consumers in the synthetic feeder")
	f.Float64Var(&optimizeOpts.groupShare, "group-share", 0.2, "fraction of branches declared as groups in the synthetic feeder")
	f.BoolVar(&optimizeOpts.dryRun, "dry-run", false, "do not publish the plan")
	f.BoolVar(&optimizeOpts.jsonOut, "json", false, "print the report as JSON")
	optimizeCmd.MarkFlagsMutuallyExclusive("scenario", "generate")
	optimizeCmd.MarkFlagsOneRequired("scenario", "generate")
	rootCmd.AddCommand(optimizeCmd)
}

func runOptimize(cmd *cobra.Command, args []string) error {
	ctx, stop := withSignals(cmd.Context())
	defer stop()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if optimizeOpts.dryRun {
		cfg.MQTT.Broker = ""
	}
	req, err := optimizeRequest()
	if err != nil {
		return err
	}

	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()
	if cfg.Metrics.ListenAddr != "" {
		go func() {
			if err := svc.ServeMetrics(ctx); err != nil {
				logger.New("main").Errorf("prom server: %v", err)
			}
		}()
	}

	rep, err := svc.Optimize(ctx, req)
	if rep != nil {
		if perr := printReport(cmd.OutOrStdout(), rep, optimizeOpts.jsonOut); perr != nil {
			return perr
		}
	}
	return err
}

func optimizeRequest() (app.Request, error) {
	if optimizeOpts.scenario != "" {
		sc, err := scenarios.Load(optimizeOpts.scenario)
		if err != nil {
			return app.Request{}, fmt.Errorf("load scenario: %w", err)
		}
		consumers, groups, err := sc.Feeder()
		if err != nil {
			return app.Request{}, err
		}
		return app.Request{Name: sc.Name, Consumers: consumers, Groups: groups}, nil
	}
	f, err := simulator.Generate(simulator.FeederConfig{
		Consumers:  optimizeOpts.generate,
		PowerShare: optimizeOpts.powerShare,
		GroupShare: optimizeOpts.groupShare,
		Seed:       optimizeOpts.seed,
	})
	if err != nil {
		return app.Request{}, fmt.Errorf("generate feeder: %w", err)
	}
	return app.Request{Name: "generated", Consumers: f.Consumers, Groups: f.Groups}, nil
}

func withSignals(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
