package balance

import "math/rand/v2"

// crossover pairs consecutive members of pool. A pair crosses with the
// configured probability: each unit is swapped between the two children
// with even odds, so groups are never split, and both children are repaired.
// Pairs that do not cross and an odd leftover pass through unchanged. pool
// is consumed.
func (p *problem) crossover(rng *rand.Rand, pool []*Solution) []*Solution {
	out := make([]*Solution, 0, len(pool))
	for i := 0; i+1 < len(pool); i += 2 {
		a, b := pool[i], pool[i+1]
		if rng.Float64() < p.cfg.CrossoverRate {
			for ui := range p.units {
				if rng.Float64() < unitSwapProb {
					swapUnit(a, b, &p.units[ui])
				}
			}
			p.repair(a)
			p.repair(b)
		}
		out = append(out, a, b)
	}
	if len(pool)%2 == 1 {
		out = append(out, pool[len(pool)-1])
	}
	return out
}

func swapUnit(a, b *Solution, u *unit) {
	for _, m := range u.members {
		a.Phases[m], b.Phases[m] = b.Phases[m], a.Phases[m]
		a.Rotations[m], b.Rotations[m] = b.Rotations[m], a.Rotations[m]
	}
}
