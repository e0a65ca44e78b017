package model

import "fmt"

// BranchKey identifies a branch on a route. It is comparable and used
// directly as a map key.
type BranchKey struct {
	Route  string
	Branch string
}

func (k BranchKey) String() string { return k.Route + "/" + k.Branch }

// Consumer is a metered load connected to the low-voltage feeder.
type Consumer struct {
	ID           string
	Name         string
	Route        string
	Branch       string
	CurrentPhase Phase
	// Readings holds the energy measured on phases A, B and C.
	Readings [3]float64
}

// NewConsumer returns a single-phase consumer whose whole load sits on phase.
func NewConsumer(id, name, route, branch string, phase Phase, power float64) Consumer {
	c := Consumer{ID: id, Name: name, Route: route, Branch: branch, CurrentPhase: phase}
	if phase.Valid() {
		c.Readings[phase.Index()] = power
	}
	return c
}

// NewPowerConsumer returns a three-phase consumer with the given readings.
func NewPowerConsumer(id, name, route, branch string, phase Phase, a, b, c float64) Consumer {
	return Consumer{
		ID: id, Name: name, Route: route, Branch: branch,
		CurrentPhase: phase,
		Readings:     [3]float64{a, b, c},
	}
}

// Key returns the branch the consumer is connected to.
func (c Consumer) Key() BranchKey { return BranchKey{Route: c.Route, Branch: c.Branch} }

// IsPowerPhase reports whether the consumer draws on all three phases, as a
// three-phase motor does. Its readings can only move together.
func (c Consumer) IsPowerPhase() bool {
	return c.Readings[0] > 0 && c.Readings[1] > 0 && c.Readings[2] > 0
}

// TotalPower is the sum of the three readings.
func (c Consumer) TotalPower() float64 {
	return c.Readings[0] + c.Readings[1] + c.Readings[2]
}

// BaselinePhase is the phase label the consumer is wired to today. A
// three-phase consumer without a label is booked on A.
func (c Consumer) BaselinePhase() Phase {
	if c.IsPowerPhase() && !c.CurrentPhase.Valid() {
		return PhaseA
	}
	return c.CurrentPhase
}

// PowerOn returns the consumer's contribution to the three phases when it is
// assigned to phase with rotation r. Power consumers follow the rotation,
// single-phase consumers put their whole load on phase.
func (c Consumer) PowerOn(phase Phase, r Rotation) [3]float64 {
	if c.IsPowerPhase() {
		return Rotate(c.Readings, r)
	}
	var out [3]float64
	if phase.Valid() {
		out[phase.Index()] = c.TotalPower()
	}
	return out
}

// Validate checks the reading invariants of the consumer.
func (c Consumer) Validate() error {
	if c.CurrentPhase > PhaseC {
		return fmt.Errorf("consumer %s: phase %d out of range", c.ID, c.CurrentPhase)
	}
	positive := 0
	for i, r := range c.Readings {
		if r < 0 {
			return fmt.Errorf("consumer %s: negative reading on phase %s", c.ID, Phases[i])
		}
		if r > 0 {
			positive++
		}
	}
	switch {
	case positive == 3:
		return nil
	case positive > 1:
		return fmt.Errorf("consumer %s: single-phase consumer with %d loaded phases", c.ID, positive)
	case positive == 1 && !c.CurrentPhase.Valid():
		return fmt.Errorf("consumer %s: loaded consumer without phase", c.ID)
	}
	return nil
}

// BranchGroup declares that all consumers on a route/branch must be rewired
// together.
type BranchGroup struct {
	Route  string
	Branch string
}

// Key returns the group's branch key.
func (g BranchGroup) Key() BranchKey { return BranchKey{Route: g.Route, Branch: g.Branch} }

func (g BranchGroup) String() string { return fmt.Sprintf("route %s branch %s", g.Route, g.Branch) }

// PhasePowers sums the consumers' readings on their current wiring.
func PhasePowers(consumers []Consumer) [3]float64 {
	var p [3]float64
	for _, c := range consumers {
		add := c.PowerOn(c.BaselinePhase(), RotationNone)
		p[0] += add[0]
		p[1] += add[1]
		p[2] += add[2]
	}
	return p
}
