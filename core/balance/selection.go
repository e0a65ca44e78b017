package balance

import (
	"math/rand/v2"
	"slices"
	"sort"
)

// selectPool builds the mating pool: the best 30% of pop are copied as they
// are, the rest is filled by 4-way tournaments drawn with replacement. The
// pool holds clones so operators may modify it freely.
func selectPool(rng *rand.Rand, pop []*Solution) []*Solution {
	if len(pop) == 0 {
		return nil
	}
	ranked := slices.Clone(pop)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Fitness < ranked[j].Fitness })

	elite := min(len(ranked), max(1, int(eliteFraction*float64(len(ranked)))))
	pool := make([]*Solution, 0, len(pop))
	for _, s := range ranked[:elite] {
		pool = append(pool, s.Clone())
	}
	for len(pool) < len(pop) {
		pool = append(pool, tournament(rng, ranked).Clone())
	}
	return pool
}

// tournament draws tournamentSize solutions uniformly and returns the fittest.
func tournament(rng *rand.Rand, pop []*Solution) *Solution {
	best := pop[rng.IntN(len(pop))]
	for i := 1; i < tournamentSize; i++ {
		if c := pop[rng.IntN(len(pop))]; c.Fitness < best.Fitness {
			best = c
		}
	}
	return best
}
