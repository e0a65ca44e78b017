package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/kilianp07/phasebalance/app"
	"github.com/kilianp07/phasebalance/core/plan"
)

func printReport(w io.Writer, rep *app.Report, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}
	res := rep.Result
	fmt.Fprintf(w, "run %s", rep.RunID)
	if rep.Name != "" {
		fmt.Fprintf(w, " (%s)", rep.Name)
	}
	fmt.Fprintf(w, ": %d attempts, %d feasible, %s\n", len(res.Attempts), res.Feasible, res.Duration.Round(time.Millisecond))
	if rep.Plan == nil {
		if res.Cancelled {
			fmt.Fprintln(w, "cancelled before a feasible assignment was found")
		} else {
			fmt.Fprintf(w, "no feasible assignment (baseline unbalance %.2f%%)\n", res.BaselineUnbalance)
		}
		return nil
	}
	printPlan(w, rep.Plan)
	if rep.Published {
		fmt.Fprintf(w, "published as %s (acked=%t)\n", rep.MessageID, rep.Acked)
	}
	return nil
}

func printPlan(w io.Writer, p *plan.Plan) {
	fmt.Fprintf(w, "unbalance %.2f%% (%s) -> %.2f%% (%s), %d of %d consumers rewired\n",
		p.Before.UnbalanceRate, p.Before.Status, p.After.UnbalanceRate, p.After.Status, len(p.Changes), p.Consumers)
	fmt.Fprintf(w, "phase load A/B/C %.1f/%.1f/%.1f -> %.1f/%.1f/%.1f kWh, loss rate %.2f%% -> %.2f%%, yearly saving %.1f kWh\n",
		p.Before.PhasePowers[0], p.Before.PhasePowers[1], p.Before.PhasePowers[2],
		p.After.PhasePowers[0], p.After.PhasePowers[1], p.After.PhasePowers[2],
		p.Before.Loss.TotalRate, p.After.Loss.TotalRate, p.YearlySaving)
	if len(p.Changes) == 0 {
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tROUTE\tBRANCH\tFROM\tTO\tROTATION")
	for _, c := range p.Changes {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", c.ConsumerID, c.Name, c.Route, c.Branch, c.OldPhase, c.NewPhase, c.Rotation)
	}
	_ = tw.Flush()
}
