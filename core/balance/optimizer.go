package balance

import (
	"context"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/kilianp07/phasebalance/core/logger"
	"github.com/kilianp07/phasebalance/core/model"
)

// AttemptSummary describes one independent restart of the search.
type AttemptSummary struct {
	Index         int           `json:"index"`
	Generations   int           `json:"generations"`
	BestFitness   float64       `json:"best_fitness"`
	BestUnbalance float64       `json:"best_unbalance"`
	Feasible      bool          `json:"feasible"`
	Duration      time.Duration `json:"duration"`
}

// Result is the outcome of Run. Solution is nil when no feasible assignment
// was found, which is not an error.
type Result struct {
	Solution          *Solution        `json:"-"`
	Attempts          []AttemptSummary `json:"attempts"`
	Feasible          int              `json:"feasible"`
	Cancelled         bool             `json:"cancelled"`
	BaselineUnbalance float64          `json:"baseline_unbalance"`
	MaxChangeRatio    float64          `json:"max_change_ratio"`
	MaxChanges        int              `json:"max_changes"`
	PopulationSize    int              `json:"population_size"`
	Generations       int              `json:"generations"`
	Duration          time.Duration    `json:"duration"`
}

// Optimizer searches phase assignments that balance a feeder with few
// rewirings. A single Optimizer may be reused for successive runs but runs
// one at a time; RequestCancel is safe from any goroutine.
type Optimizer struct {
	cfg    Config
	log    logger.Logger
	events EventPublisher
	cancel atomic.Bool
}

// Option customises an Optimizer.
type Option func(*Optimizer)

// WithLogger sets the logger used for progress and attempt reports.
func WithLogger(l logger.Logger) Option {
	return func(o *Optimizer) {
		if l != nil {
			o.log = l
		}
	}
}

// WithEvents sets the sink receiving progress events.
func WithEvents(p EventPublisher) Option {
	return func(o *Optimizer) {
		if p != nil {
			o.events = p
		}
	}
}

// New creates an Optimizer. Unset config fields take their defaults.
func New(cfg Config, opts ...Option) *Optimizer {
	cfg.SetDefaults()
	o := &Optimizer{cfg: cfg, log: logger.Nop{}, events: nopPublisher{}}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Config returns the effective configuration.
func (o *Optimizer) Config() Config { return o.cfg }

// RequestCancel asks the running search to stop at the next generation or
// attempt boundary. It is idempotent.
func (o *Optimizer) RequestCancel() { o.cancel.Store(true) }

// ResetCancel clears a previous cancellation request.
func (o *Optimizer) ResetCancel() { o.cancel.Store(false) }

func (o *Optimizer) cancelled(ctx context.Context) bool {
	return o.cancel.Load() || ctx.Err() != nil
}

// Optimize returns the best feasible assignment, or nil when none was found
// or consumers is empty. Errors are reserved for invalid input.
func (o *Optimizer) Optimize(ctx context.Context, consumers []model.Consumer, groups []model.BranchGroup) (*Solution, error) {
	res, err := o.Run(ctx, consumers, groups)
	if err != nil {
		return nil, err
	}
	return res.Solution, nil
}

// Run performs the full search and reports how it went. consumers and groups
// are not modified. A cancelled run returns the best feasible solution
// collected before the cancellation, if any.
func (o *Optimizer) Run(ctx context.Context, consumers []model.Consumer, groups []model.BranchGroup) (Result, error) {
	start := time.Now()
	if err := o.cfg.Validate(); err != nil {
		return Result{}, err
	}
	if len(consumers) == 0 {
		return Result{}, nil
	}
	p, err := newProblem(consumers, groups, o.cfg)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		BaselineUnbalance: p.baselineUnbalance,
		MaxChangeRatio:    MaxChangeRatio(p.baselineUnbalance),
		MaxChanges:        p.maxChanges,
		PopulationSize:    o.cfg.PopulationSize,
		Generations:       o.cfg.Generations,
	}
	if res.PopulationSize == 0 {
		res.PopulationSize = PopulationSize(len(consumers))
	}
	if res.Generations == 0 {
		res.Generations = Generations(len(consumers))
	}
	o.log.Infof("balancing %d consumers in %d groups: baseline unbalance %.2f%%, budget %d changes, population %d, %d generations",
		len(consumers), len(p.groups), p.baselineUnbalance, p.maxChanges, res.PopulationSize, res.Generations)

	master := newRNG(o.cfg.Seed)
	var feasible []*Solution
	for attempt := 0; attempt < o.cfg.MaxAttempts() && len(feasible) < o.cfg.FeasibleTarget; attempt++ {
		if o.cancelled(ctx) {
			res.Cancelled = true
			break
		}
		rng := rand.New(rand.NewPCG(master.Uint64(), master.Uint64()))
		champion, summary, stopped := o.attempt(ctx, p, rng, attempt, res.PopulationSize, res.Generations)
		if champion != nil && champion.Feasible() {
			summary.Feasible = true
			feasible = append(feasible, champion)
		}
		res.Attempts = append(res.Attempts, summary)
		o.emit(Event{Kind: EventAttemptFinished, Attempt: attempt, Generation: summary.Generations,
			BestFitness: summary.BestFitness, BestUnbalance: summary.BestUnbalance, Feasible: len(feasible)})
		o.log.Debugw("attempt finished", map[string]any{
			"attempt":     attempt,
			"generations": summary.Generations,
			"fitness":     summary.BestFitness,
			"unbalance":   summary.BestUnbalance,
			"feasible":    summary.Feasible,
		})
		if stopped {
			res.Cancelled = true
			break
		}
	}

	res.Feasible = len(feasible)
	res.Solution = best(feasible)
	res.Duration = time.Since(start)
	ev := Event{Kind: EventRunFinished, Attempt: len(res.Attempts), Feasible: res.Feasible}
	if res.Solution != nil {
		ev.BestFitness = res.Solution.Fitness
		ev.BestUnbalance = res.Solution.Metrics.UnbalanceRate
		o.log.Infof("found %d feasible assignments in %d attempts, best unbalance %.2f%% with %d changes",
			res.Feasible, len(res.Attempts), res.Solution.Metrics.UnbalanceRate, res.Solution.Metrics.Changed)
	} else {
		o.log.Warnf("no feasible assignment after %d attempts (cancelled=%t)", len(res.Attempts), res.Cancelled)
	}
	o.emit(ev)
	return res, nil
}

// attempt runs one genetic search and returns its champion. The third result
// is true when the search stopped on cancellation.
func (o *Optimizer) attempt(ctx context.Context, p *problem, rng *rand.Rand, index, size, generations int) (*Solution, AttemptSummary, bool) {
	start := time.Now()
	summary := AttemptSummary{Index: index}
	o.emit(Event{Kind: EventAttemptStarted, Attempt: index})

	pop := p.initialPopulation(rng, size)
	var champion *Solution
	stall := 0
	stopped := false
	for gen := 0; gen < generations; gen++ {
		if o.cancelled(ctx) {
			stopped = true
			break
		}
		freq, err := p.evaluateGeneration(ctx, pop)
		if err != nil {
			stopped = true
			break
		}
		summary.Generations = gen + 1

		leader := fittest(pop)
		candidate := pop[leader].Clone()
		p.localSearch(candidate)
		if champion == nil || candidate.Fitness < champion.Fitness {
			champion = candidate
			stall = 0
		} else {
			stall++
		}
		if candidate.Fitness <= tieredFitness(pop[leader].Metrics) {
			kept := candidate.Clone()
			p.rescore(kept, pop[leader], freq)
			pop[leader] = kept
		}

		if o.cfg.LogEvery > 0 && gen%o.cfg.LogEvery == 0 {
			o.log.Debugf("attempt %d generation %d: fitness %.4f unbalance %.2f%%",
				index, gen, champion.Fitness, champion.Metrics.UnbalanceRate)
			o.emit(Event{Kind: EventGeneration, Attempt: index, Generation: gen,
				BestFitness: champion.Fitness, BestUnbalance: champion.Metrics.UnbalanceRate})
		}
		if o.cfg.StallGenerations > 0 && stall >= o.cfg.StallGenerations {
			break
		}

		pool := selectPool(rng, pop)
		children := p.crossover(rng, pool)
		for _, c := range children {
			p.mutate(rng, c)
			p.repair(c)
		}
		pop = children
	}

	summary.Duration = time.Since(start)
	if champion != nil {
		summary.BestFitness = champion.Fitness
		summary.BestUnbalance = champion.Metrics.UnbalanceRate
	}
	return champion, summary, stopped
}

func (o *Optimizer) emit(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	o.events.Publish(e)
}

// fittest returns the index of the lowest fitness in pop.
func fittest(pop []*Solution) int {
	idx := 0
	for i, s := range pop {
		if s.Fitness < pop[idx].Fitness {
			idx = i
		}
	}
	return idx
}

func best(solutions []*Solution) *Solution {
	if len(solutions) == 0 {
		return nil
	}
	return solutions[fittest(solutions)]
}

// newRNG seeds a PCG source; seed 0 draws a random seed.
func newRNG(seed uint64) *rand.Rand {
	if seed == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(seed, seed))
}
