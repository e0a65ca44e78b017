package scenarios

import (
	"context"
	"fmt"

	"github.com/kilianp07/phasebalance/core/balance"
	"github.com/kilianp07/phasebalance/core/model"
	"github.com/kilianp07/phasebalance/core/plan"
)

// Outcome is the result of running one scenario.
type Outcome struct {
	Scenario string
	Result   balance.Result
	Plan     *plan.Plan
	Failures []string
}

// Passed reports whether every expectation held.
func (o *Outcome) Passed() bool { return len(o.Failures) == 0 }

// Run optimises the scenario's feeder and checks its expectations. Errors are
// returned for broken scenarios; unmet expectations land in Failures.
func Run(ctx context.Context, sc *Scenario, opts ...balance.Option) (*Outcome, error) {
	consumers, groups, err := sc.Feeder()
	if err != nil {
		return nil, err
	}
	opt := balance.New(sc.Settings.ToConfig(), opts...)
	res, err := opt.Run(ctx, consumers, groups)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", sc.Name, err)
	}
	out := &Outcome{Scenario: sc.Name, Result: res}
	if res.Solution != nil {
		p, err := plan.Build(consumers, res.Solution)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: %w", sc.Name, err)
		}
		out.Plan = &p
	}
	out.Failures = check(sc.Expected, consumers, groups, res.Solution)
	return out, nil
}

func check(exp Expected, consumers []model.Consumer, groups []model.BranchGroup, sol *balance.Solution) []string {
	var failures []string
	if exp.Feasible != nil && *exp.Feasible != (sol != nil) {
		failures = append(failures, fmt.Sprintf("expected feasible=%t, got %t", *exp.Feasible, sol != nil))
	}
	if sol == nil {
		return failures
	}
	if exp.MaxUnbalance > 0 && sol.UnbalanceRate() > exp.MaxUnbalance {
		failures = append(failures, fmt.Sprintf("unbalance %.2f%% above %.2f%%", sol.UnbalanceRate(), exp.MaxUnbalance))
	}
	if exp.MaxChanges != nil && sol.Metrics.Changed > *exp.MaxChanges {
		failures = append(failures, fmt.Sprintf("%d changes above %d", sol.Metrics.Changed, *exp.MaxChanges))
	}
	if exp.AtomicGroups {
		failures = append(failures, splitGroups(consumers, groups, sol)...)
	}
	return failures
}

// splitGroups lists the declared groups whose members do not share one
// phase and rotation.
func splitGroups(consumers []model.Consumer, groups []model.BranchGroup, sol *balance.Solution) []string {
	var out []string
	for _, g := range groups {
		first := -1
		for i, c := range consumers {
			if c.Key() != g.Key() {
				continue
			}
			if first < 0 {
				first = i
				continue
			}
			if sol.Phase(i) != sol.Phase(first) || sol.Rotation(i) != sol.Rotation(first) {
				out = append(out, fmt.Sprintf("group %s split between %s and %s", g, consumers[first].ID, c.ID))
				break
			}
		}
	}
	return out
}
