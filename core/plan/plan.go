// Package plan turns an optimised assignment into the list of rewiring jobs
// and a before/after summary of the feeder.
package plan

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/phasebalance/core/balance"
	"github.com/kilianp07/phasebalance/core/loss"
	"github.com/kilianp07/phasebalance/core/model"
)

// ErrMismatch is returned when a solution does not cover the consumer list.
var ErrMismatch = errors.New("solution does not match consumers")

// Change is one rewiring job. For a three-phase consumer NewPhase is its
// current label turned by Rotation.
type Change struct {
	ConsumerID string         `json:"consumer_id"`
	Name       string         `json:"name"`
	Route      string         `json:"route"`
	Branch     string         `json:"branch"`
	PowerPhase bool           `json:"power_phase"`
	OldPhase   model.Phase    `json:"old_phase"`
	NewPhase   model.Phase    `json:"new_phase"`
	Rotation   model.Rotation `json:"rotation"`
	// OldReadings and NewReadings are the per-phase loads before and after.
	OldReadings [3]float64 `json:"old_readings"`
	NewReadings [3]float64 `json:"new_readings"`
}

// Summary describes the load of the feeder for one assignment.
type Summary struct {
	PhasePowers   [3]float64    `json:"phase_powers"`
	Mean          float64       `json:"mean"`
	Spread        float64       `json:"spread"`
	UnbalanceRate float64       `json:"unbalance_rate"`
	Status        string        `json:"status"`
	Loss          loss.Estimate `json:"loss"`
}

// Plan is the report handed to field crews and published downstream.
type Plan struct {
	Consumers    int      `json:"consumers"`
	Changes      []Change `json:"changes"`
	Before       Summary  `json:"before"`
	After        Summary  `json:"after"`
	Fitness      float64  `json:"fitness"`
	YearlySaving float64  `json:"yearly_saving"`
}

// Build compares sol with the current wiring of consumers.
func Build(consumers []model.Consumer, sol *balance.Solution) (Plan, error) {
	if sol == nil || sol.Len() != len(consumers) || len(sol.Rotations) != len(consumers) {
		return Plan{}, fmt.Errorf("%w: %d consumers", ErrMismatch, len(consumers))
	}
	p := Plan{Consumers: len(consumers), Fitness: sol.Fitness}
	var before, after [3]float64
	for i, c := range consumers {
		old := c.PowerOn(c.BaselinePhase(), model.RotationNone)
		next := c.PowerOn(sol.Phase(i), sol.Rotation(i))
		floats.Add(before[:], old[:])
		floats.Add(after[:], next[:])
		if !changed(c, sol, i) {
			continue
		}
		p.Changes = append(p.Changes, Change{
			ConsumerID:  c.ID,
			Name:        c.Name,
			Route:       c.Route,
			Branch:      c.Branch,
			PowerPhase:  c.IsPowerPhase(),
			OldPhase:    c.BaselinePhase(),
			NewPhase:    newPhase(c, sol, i),
			Rotation:    sol.Rotation(i),
			OldReadings: old,
			NewReadings: next,
		})
	}
	p.Before = summarize(before)
	p.After = summarize(after)
	p.YearlySaving = loss.YearlySaving(p.Before.Loss, p.After.Loss)
	return p, nil
}

// newPhase labels the target wiring. Inside a group a three-phase consumer
// carries the group's shared phase, so its label is derived from the
// rotation instead.
func newPhase(c model.Consumer, sol *balance.Solution, i int) model.Phase {
	if c.IsPowerPhase() {
		return c.BaselinePhase().Rotate(sol.Rotation(i))
	}
	return sol.Phase(i)
}

func changed(c model.Consumer, sol *balance.Solution, i int) bool {
	if c.IsPowerPhase() {
		return sol.Rotation(i) != model.RotationNone
	}
	return sol.Phase(i) != c.BaselinePhase()
}

func summarize(powers [3]float64) Summary {
	u := model.UnbalanceRate(powers)
	return Summary{
		PhasePowers:   powers,
		Mean:          stat.Mean(powers[:], nil),
		Spread:        floats.Max(powers[:]) - floats.Min(powers[:]),
		UnbalanceRate: u,
		Status:        model.UnbalanceStatus(u),
		Loss:          loss.Compute(powers),
	}
}

// ByBranch groups the changes by branch, in plan order.
func (p Plan) ByBranch() map[model.BranchKey][]Change {
	out := make(map[model.BranchKey][]Change)
	for _, c := range p.Changes {
		k := model.BranchKey{Route: c.Route, Branch: c.Branch}
		out[k] = append(out[k], c)
	}
	return out
}
