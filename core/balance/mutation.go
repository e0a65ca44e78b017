package balance

import "math/rand/v2"

// mutate rewires s with the configured probability and reports whether it
// did. A solution already at its change budget swaps the states of two
// changed units; otherwise untouched units are rewired at random while the
// budget lasts. A mutated solution is then refined by local search.
func (p *problem) mutate(rng *rand.Rand, s *Solution) bool {
	if rng.Float64() >= p.cfg.MutationRate {
		return false
	}
	if changed := p.countChanged(s); changed >= p.maxChanges {
		p.swapMutation(rng, s)
	} else {
		p.unitMutation(rng, s, p.maxChanges-changed)
	}
	p.localSearch(s)
	return true
}

// swapMutation exchanges the states of two changed units of the same kind,
// three-phase bearing or not. The kind is drawn at random and the other one
// is used when fewer than two units of it are changed. A group whose members
// started on different phases may count a different number of changes after
// the exchange; such a swap is undone and another pair drawn, up to
// swapAttempts times.
func (p *problem) swapMutation(rng *rand.Rand, s *Solution) {
	var powered, plain []int
	for _, ui := range p.changedUnits(s) {
		if p.units[ui].hasPower {
			powered = append(powered, ui)
		} else {
			plain = append(plain, ui)
		}
	}
	pick := plain
	if rng.IntN(2) == 0 {
		pick = powered
	}
	if len(pick) < 2 {
		pick = plain
		if len(pick) < 2 {
			pick = powered
		}
	}
	if len(pick) < 2 {
		return
	}
	for try := 0; try < swapAttempts; try++ {
		i := rng.IntN(len(pick))
		j := rng.IntN(len(pick) - 1)
		if j >= i {
			j++
		}
		a, b := &p.units[pick[i]], &p.units[pick[j]]
		count := p.unitChangeCount(s, a) + p.unitChangeCount(s, b)
		pa, ra := p.state(s, a)
		pb, rb := p.state(s, b)
		p.assign(s, a, pb, rb)
		p.assign(s, b, pa, ra)
		if p.unitChangeCount(s, a)+p.unitChangeCount(s, b) == count {
			return
		}
		p.assign(s, a, pa, ra)
		p.assign(s, b, pb, rb)
	}
}

// unitMutation visits the units in random order and rewires each untouched
// one with a 30% chance, as long as its members fit in the remaining budget.
func (p *problem) unitMutation(rng *rand.Rand, s *Solution, remaining int) {
	for _, ui := range rng.Perm(len(p.units)) {
		if remaining <= 0 {
			return
		}
		u := &p.units[ui]
		if p.unitChanged(s, u) || rng.Float64() >= unitMutationProb {
			continue
		}
		p.randomChange(rng, s, u)
		cost := p.unitChangeCount(s, u)
		if cost > remaining {
			p.revert(s, u)
			continue
		}
		remaining -= cost
	}
}
