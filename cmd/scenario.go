package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/phasebalance/core/balance"
	"github.com/kilianp07/phasebalance/infra/logger"
	"github.com/kilianp07/phasebalance/qa/scenarios"
)

var scenarioCmd = &cobra.Command{
	Use:   "scenario FILE...",
	Short: "Run QA scenarios and check their expectations",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runScenarios,
}

func init() {
	rootCmd.AddCommand(scenarioCmd)
}

func runScenarios(cmd *cobra.Command, args []string) error {
	ctx, stop := withSignals(cmd.Context())
	defer stop()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := logger.Configure(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		return err
	}
	log := logger.New("scenario")
	out := cmd.OutOrStdout()
	failed := 0
	for _, path := range args {
		sc, err := scenarios.Load(path)
		if err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		res, err := scenarios.Run(ctx, sc, balance.WithLogger(log))
		if err != nil {
			return err
		}
		if res.Passed() {
			fmt.Fprintf(out, "PASS %s (%d attempts, %s)\n", sc.Name, len(res.Result.Attempts), res.Result.Duration.Round(time.Millisecond))
			continue
		}
		failed++
		fmt.Fprintf(out, "FAIL %s\n", sc.Name)
		for _, f := range res.Failures {
			fmt.Fprintf(out, "    %s\n", f)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d scenarios failed", failed, len(args))
	}
	return nil
}
