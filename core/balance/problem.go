package balance

import (
	"cmp"
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/kilianp07/phasebalance/core/model"
)

// problem holds everything derived once from the input and shared by the
// operators of one run. It is read-only after newProblem.
type problem struct {
	cfg        Config
	consumers  []model.Consumer
	costs      map[model.BranchKey]float64
	groups     map[model.BranchKey][]int
	units      []unit
	unitOf     []int
	byPower    []int
	totalPower float64

	baseline          *Solution
	baselineUnbalance float64
	maxChanges        int
}

func newProblem(consumers []model.Consumer, groups []model.BranchGroup, cfg Config) (*problem, error) {
	for i, c := range consumers {
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("%w: index %d: %v", ErrInvalidInput, i, err)
		}
	}
	for _, g := range groups {
		if g.Route == "" && g.Branch == "" {
			return nil, fmt.Errorf("%w: branch group without route and branch", ErrInvalidInput)
		}
	}

	p := &problem{
		cfg:       cfg,
		consumers: slices.Clone(consumers),
		costs:     AdjustmentCosts(consumers),
	}
	p.groups = indexGroups(p.consumers, groups)
	p.units, p.unitOf = buildUnits(p.consumers, p.groups)

	p.byPower = make([]int, len(p.consumers))
	for i, c := range p.consumers {
		p.byPower[i] = i
		p.totalPower += c.TotalPower()
	}
	slices.SortStableFunc(p.byPower, func(a, b int) int {
		return cmp.Compare(p.consumers[b].TotalPower(), p.consumers[a].TotalPower())
	})

	p.baseline = newSolution(len(p.consumers))
	for i, c := range p.consumers {
		p.baseline.Phases[i] = c.BaselinePhase()
	}
	p.evaluate(p.baseline)
	p.baselineUnbalance = p.baseline.Metrics.UnbalanceRate
	p.maxChanges = MaxChanges(len(p.consumers), p.baselineUnbalance)
	return p, nil
}

// changed reports whether consumer i is rewired in s.
func (p *problem) changed(s *Solution, i int) bool {
	c := p.consumers[i]
	if c.IsPowerPhase() {
		return s.Rotations[i] != model.RotationNone
	}
	return s.Phases[i] != c.BaselinePhase()
}

func (p *problem) countChanged(s *Solution) int {
	n := 0
	for i := range s.Phases {
		if p.changed(s, i) {
			n++
		}
	}
	return n
}

func (p *problem) unitChanged(s *Solution, u *unit) bool {
	for _, m := range u.members {
		if p.changed(s, m) {
			return true
		}
	}
	return false
}

func (p *problem) unitChangeCount(s *Solution, u *unit) int {
	n := 0
	for _, m := range u.members {
		if p.changed(s, m) {
			n++
		}
	}
	return n
}

// unitPowers is the load the unit puts on the three phases in s.
func (p *problem) unitPowers(s *Solution, u *unit) [3]float64 {
	var out [3]float64
	for _, m := range u.members {
		add := p.consumers[m].PowerOn(s.Phases[m], s.Rotations[m])
		out[0] += add[0]
		out[1] += add[1]
		out[2] += add[2]
	}
	return out
}

// powers is the per-phase load of s.
func (p *problem) powers(s *Solution) [3]float64 {
	var out [3]float64
	for i, c := range p.consumers {
		add := c.PowerOn(s.Phases[i], s.Rotations[i])
		out[0] += add[0]
		out[1] += add[1]
		out[2] += add[2]
	}
	return out
}

// assign moves the whole unit to phase with rotation r. Members of a group
// share both values; a lone three-phase consumer derives its label from the
// rotation and a lone single-phase consumer keeps no rotation.
func (p *problem) assign(s *Solution, u *unit, phase model.Phase, r model.Rotation) {
	if u.grouped {
		if !u.hasPower {
			r = model.RotationNone
		}
		for _, m := range u.members {
			s.Phases[m] = phase
			s.Rotations[m] = r
		}
		return
	}
	m := u.members[0]
	c := p.consumers[m]
	if c.IsPowerPhase() {
		s.Phases[m] = c.BaselinePhase().Rotate(r)
		s.Rotations[m] = r
		return
	}
	s.Phases[m] = phase
	s.Rotations[m] = model.RotationNone
}

// revert puts every member of the unit back on its current wiring.
func (p *problem) revert(s *Solution, u *unit) {
	for _, m := range u.members {
		s.Phases[m] = p.consumers[m].BaselinePhase()
		s.Rotations[m] = model.RotationNone
	}
}

// state returns the unit's (phase, rotation) as carried by its first member.
func (p *problem) state(s *Solution, u *unit) (model.Phase, model.Rotation) {
	m := u.members[0]
	return s.Phases[m], s.Rotations[m]
}

// randomChange rewires an untouched unit: a group gets a shared phase other
// than its anchor phase (and a shared rotation if it holds a three-phase
// consumer), a three-phase consumer gets a rotation and a single-phase
// consumer one of its two other phases.
func (p *problem) randomChange(rng *rand.Rand, s *Solution, u *unit) {
	r := model.Rotation(1 + rng.IntN(2))
	if !u.grouped && p.consumers[u.members[0]].IsPowerPhase() {
		p.assign(s, u, 0, r)
		return
	}
	p.assign(s, u, otherPhase(rng, u.anchor), r)
}

// otherPhase picks uniformly one of the two phases different from p.
func otherPhase(rng *rand.Rand, p model.Phase) model.Phase {
	if !p.Valid() {
		return model.Phases[rng.IntN(3)]
	}
	return p.Rotate(model.Rotation(1 + rng.IntN(2)))
}

// changedUnits lists the indices of units rewired in s.
func (p *problem) changedUnits(s *Solution) []int {
	var out []int
	for i := range p.units {
		if p.unitChanged(s, &p.units[i]) {
			out = append(out, i)
		}
	}
	return out
}
