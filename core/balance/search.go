package balance

import "github.com/kilianp07/phasebalance/core/model"

// improvementEpsilon is the smallest unbalance gain local search accepts.
const improvementEpsilon = 1e-9

// localSearch hill-climbs s: every changed unit tries its alternative
// states and keeps the first one that strictly lowers the unbalance without
// pushing the change count over the budget. Passes repeat until one finds
// nothing. s is re-evaluated on return.
func (p *problem) localSearch(s *Solution) {
	powers := p.powers(s)
	current := model.UnbalanceRate(powers)
	changed := p.countChanged(s)
	budget := max(p.maxChanges, changed)

	for improved := true; improved; {
		improved = false
		for ui := range p.units {
			u := &p.units[ui]
			if !p.unitChanged(s, u) {
				continue
			}
			phase, rot := p.state(s, u)
			before := p.unitPowers(s, u)
			beforeCount := p.unitChangeCount(s, u)
			for _, mv := range p.alternatives(s, u) {
				p.assign(s, u, mv.phase, mv.rotation)
				trial := shift(powers, before, p.unitPowers(s, u))
				rate := model.UnbalanceRate(trial)
				n := changed - beforeCount + p.unitChangeCount(s, u)
				if rate < current-improvementEpsilon && n <= budget {
					powers, current, changed = trial, rate, n
					improved = true
					break
				}
				p.assign(s, u, phase, rot)
			}
		}
	}
	p.evaluate(s)
}

// alternatives lists the states local search tries for a changed unit. A
// three-phase consumer tries both other rotations, a group holding one
// tries both rotations on each other phase.
func (p *problem) alternatives(s *Solution, u *unit) []move {
	phase, rot := p.state(s, u)
	var out []move
	switch {
	case p.isPowerSingleton(u):
		for _, r := range []model.Rotation{model.RotationNone, model.RotationClockwise, model.RotationCounterClockwise} {
			if r != rot {
				out = append(out, move{rotation: r})
			}
		}
	case u.grouped && u.hasPower:
		for _, q := range model.Phases {
			if q == phase {
				continue
			}
			out = append(out,
				move{phase: q, rotation: model.RotationClockwise},
				move{phase: q, rotation: model.RotationCounterClockwise})
		}
	default:
		for _, q := range model.Phases {
			if q != phase {
				out = append(out, move{phase: q})
			}
		}
	}
	return out
}

// move is a candidate (phase, rotation) for a unit.
type move struct {
	phase    model.Phase
	rotation model.Rotation
}

// shift replaces the contribution from by to in powers.
func shift(powers, from, to [3]float64) [3]float64 {
	for i := range powers {
		powers[i] += to[i] - from[i]
	}
	return powers
}
