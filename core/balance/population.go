package balance

import "math/rand/v2"

// initialPopulation builds size solutions. The first one is always the
// unchanged wiring; the others rewire a few of the heaviest consumers and are
// kept only when they do not worsen the balance by more than 20%. When too
// many candidates are rejected the population is padded with lightly
// perturbed copies of the baseline.
func (p *problem) initialPopulation(rng *rand.Rand, size int) []*Solution {
	pop := make([]*Solution, 0, size)
	pop = append(pop, p.baseline.Clone())
	if len(p.consumers) == 0 {
		for len(pop) < size {
			pop = append(pop, p.baseline.Clone())
		}
		return pop
	}

	limit := max(1, int(initChangeFraction*float64(len(p.consumers))))
	threshold := p.baselineUnbalance * initAcceptanceFactor
	for attempts := 0; len(pop) < size && attempts < 3*size; attempts++ {
		s := p.biasedCandidate(rng, 1+rng.IntN(limit))
		p.evaluate(s)
		if s.Metrics.UnbalanceRate <= threshold {
			pop = append(pop, s)
		}
	}

	for len(pop) < size {
		s := p.baseline.Clone()
		for n := 1 + rng.IntN(3); n > 0; n-- {
			u := &p.units[rng.IntN(len(p.units))]
			if p.unitChanged(s, u) {
				continue
			}
			if p.isPowerSingleton(u) && rng.Float64() >= powerRotationProb {
				continue
			}
			p.randomChange(rng, s, u)
		}
		p.evaluate(s)
		pop = append(pop, s)
	}
	return pop
}

// biasedCandidate rewires up to k consumers taken by descending total power.
// A group is rewired as a whole and only when all its members fit in what is
// left of k.
func (p *problem) biasedCandidate(rng *rand.Rand, k int) *Solution {
	s := p.baseline.Clone()
	used := 0
	for _, i := range p.byPower {
		if used >= k {
			break
		}
		u := &p.units[p.unitOf[i]]
		if p.unitChanged(s, u) {
			continue
		}
		if u.grouped {
			if used+len(u.members) > k {
				continue
			}
			p.randomChange(rng, s, u)
			used += len(u.members)
			continue
		}
		used++
		if p.consumers[i].IsPowerPhase() && rng.Float64() >= powerRotationProb {
			continue
		}
		p.randomChange(rng, s, u)
	}
	return s
}

func (p *problem) isPowerSingleton(u *unit) bool {
	return !u.grouped && p.consumers[u.members[0]].IsPowerPhase()
}
