package balance

import (
	"context"
	"math"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/phasebalance/core/model"
)

// Fitness tiers. An unbalance above the feasibility threshold dominates
// everything else, between 10% and 15% balance still outweighs the change
// count, between 5% and 10% the change count matters most, and below 5%
// only the adjustment cost is left to minimise.
const (
	tierInfeasiblePenalty = 1000.0
	tierUpper             = 10.0
	tierLower             = 5.0
	tierUpperOffset       = 500.0
	tierLowerOffset       = 200.0

	diversityWeight = 0.1
)

// measure computes the metrics of s without touching its fitness.
func (p *problem) measure(s *Solution) Metrics {
	var m Metrics
	m.PhasePowers = p.powers(s)
	m.UnbalanceRate = model.UnbalanceRate(m.PhasePowers)

	for i := range p.consumers {
		if p.changed(s, i) {
			m.Changed++
		}
	}
	if n := len(p.consumers); n > 0 {
		m.ChangeRatio = float64(m.Changed) / float64(n) * 100
	}
	if p.totalPower <= 0 {
		return m
	}
	// Ungrouped consumers are paid for through the change ratio only.
	for ui := range p.units {
		u := &p.units[ui]
		if !u.grouped {
			continue
		}
		moved := 0.0
		for _, i := range u.members {
			if p.changed(s, i) {
				moved += p.consumers[i].TotalPower()
			}
		}
		if moved > 0 {
			m.AdjustmentCost += p.costs[u.key] * moved / p.totalPower
		}
	}
	m.NormalizedCost = m.AdjustmentCost / p.totalPower * 100
	return m
}

// tieredFitness folds the metrics into the minimisation objective.
func tieredFitness(m Metrics) float64 {
	u := m.UnbalanceRate
	switch {
	case u > MaxAcceptableUnbalance:
		return u * tierInfeasiblePenalty
	case u > tierUpper:
		return 0.7*u + 0.3*m.ChangeRatio + tierUpperOffset
	case u > tierLower:
		return 0.7*m.ChangeRatio + 0.3*m.NormalizedCost + tierLowerOffset
	default:
		return m.NormalizedCost
	}
}

// evaluate stores the metrics and the tiered fitness of s.
func (p *problem) evaluate(s *Solution) {
	s.Metrics = p.measure(s)
	s.Fitness = tieredFitness(s.Metrics)
}

// evaluateGeneration scores the whole population and applies the diversity
// bonus. Solutions are independent so they are evaluated concurrently when
// parallelism allows; the bonus is applied afterwards in a single pass. The
// returned map counts the solutions per diversity key.
func (p *problem) evaluateGeneration(ctx context.Context, pop []*Solution) (map[string]int, error) {
	if p.cfg.Parallelism > 1 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(p.cfg.Parallelism)
		for _, s := range pop {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				p.evaluate(s)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for _, s := range pop {
			p.evaluate(s)
		}
	}

	keys := make([]string, len(pop))
	freq := make(map[string]int, len(pop))
	for i, s := range pop {
		keys[i] = p.diversityKey(s)
		freq[keys[i]]++
	}
	for i, s := range pop {
		s.Fitness *= diversityFactor(freq[keys[i]])
	}
	return freq, nil
}

// rescore gives s, which takes the place of old in a generation counted by
// freq, its tiered fitness with the diversity bonus of its new key.
func (p *problem) rescore(s, old *Solution, freq map[string]int) {
	freq[p.diversityKey(old)]--
	key := p.diversityKey(s)
	freq[key]++
	s.Fitness = tieredFitness(s.Metrics) * diversityFactor(freq[key])
}

// diversityKey identifies a solution by the consumers it rewires and the
// phase they end up on.
func (p *problem) diversityKey(s *Solution) string {
	var b strings.Builder
	for i := range s.Phases {
		if !p.changed(s, i) {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(i))
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(int(s.Phases[i])))
	}
	return b.String()
}

// diversityFactor rewards rare solutions with up to 10% off their fitness.
func diversityFactor(freq int) float64 {
	return 1 - diversityWeight/(1+math.Log(1+float64(freq)))
}
