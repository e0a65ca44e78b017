package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/phasebalance/simulator"
)

var ackSimOpts struct {
	latency  time.Duration
	dropRate float64
}

var ackSimCmd = &cobra.Command{
	Use:   "ack-sim",
	Short: "Simulate the work-order system acknowledging published plans",
	RunE:  runAckSim,
}

func init() {
	f := ackSimCmd.Flags()
	f.DurationVar(&ackSimOpts.latency, "ack-latency", 0, "delay before acknowledging")
	f.Float64Var(&ackSimOpts.dropRate, "drop-rate", 0, "probability of dropping an acknowledgment")
	rootCmd.AddCommand(ackSimCmd)
}

func runAckSim(cmd *cobra.Command, args []string) error {
	ctx, stop := withSignals(cmd.Context())
	defer stop()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if !cfg.MQTT.Enabled() {
		return fmt.Errorf("mqtt broker is not configured")
	}
	r, cli, err := simulator.Connect(simulator.ResponderConfig{
		Broker:     cfg.MQTT.Broker,
		ClientID:   fmt.Sprintf("%s-acksim", cfg.MQTT.ClientID),
		AckTopic:   cfg.MQTT.AckTopic,
		AckLatency: ackSimOpts.latency,
		DropRate:   ackSimOpts.dropRate,
	})
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer cli.Disconnect(250)
	if err := r.Run(ctx, cfg.MQTT.PlanTopic); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "received %d plans\n", len(r.Received()))
	return nil
}
