package simulator

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/kilianp07/phasebalance/core/model"
)

// FeederConfig holds parameters for synthetic feeder generation.
type FeederConfig struct {
	Consumers        int `json:"consumers" yaml:"consumers"`
	Routes           int `json:"routes" yaml:"routes"`
	BranchesPerRoute int `json:"branches_per_route" yaml:"branches_per_route"`
	// PowerShare is the fraction of three-phase consumers.
	PowerShare float64 `json:"power_share" yaml:"power_share"`
	// GroupShare is the fraction of branches declared as branch groups.
	GroupShare float64 `json:"group_share" yaml:"group_share"`
	// Weights skews single-phase consumers towards phases A, B and C.
	Weights [3]float64 `json:"weights" yaml:"weights"`
	// MeanKWh is the average daily energy of a consumer.
	MeanKWh float64 `json:"mean_kwh" yaml:"mean_kwh"`
	Seed    uint64  `json:"seed" yaml:"seed"`
}

// SetDefaults fills unset fields.
func (c *FeederConfig) SetDefaults() {
	if c.Routes <= 0 {
		c.Routes = max(1, c.Consumers/50)
	}
	if c.BranchesPerRoute <= 0 {
		c.BranchesPerRoute = 4
	}
	if c.Weights == [3]float64{} {
		c.Weights = [3]float64{0.5, 0.3, 0.2}
	}
	if c.MeanKWh <= 0 {
		c.MeanKWh = 10
	}
}

// Validate checks the generation parameters.
func (c FeederConfig) Validate() error {
	if c.Consumers < 0 {
		return fmt.Errorf("consumers must not be negative")
	}
	if c.PowerShare < 0 || c.PowerShare > 1 {
		return fmt.Errorf("power_share %.2f not in [0,1]", c.PowerShare)
	}
	if c.GroupShare < 0 || c.GroupShare > 1 {
		return fmt.Errorf("group_share %.2f not in [0,1]", c.GroupShare)
	}
	for _, w := range c.Weights {
		if w < 0 {
			return fmt.Errorf("phase weights must not be negative")
		}
	}
	return nil
}

// Feeder is a generated consumer list with its declared branch groups.
type Feeder struct {
	Consumers []model.Consumer
	Groups    []model.BranchGroup
}

// Generate creates cfg.Consumers consumers with IDs u0001..uNNNN spread over
// routes R01.. and branches B1... The same seed always yields the same
// feeder.
func Generate(cfg FeederConfig) (Feeder, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return Feeder{}, err
	}
	rng := newRand(cfg.Seed)

	var f Feeder
	for r := 1; r <= cfg.Routes; r++ {
		for b := 1; b <= cfg.BranchesPerRoute; b++ {
			if rng.Float64() < cfg.GroupShare {
				f.Groups = append(f.Groups, model.BranchGroup{Route: routeName(r), Branch: branchName(b)})
			}
		}
	}

	f.Consumers = make([]model.Consumer, cfg.Consumers)
	for i := range f.Consumers {
		id := fmt.Sprintf("u%04d", i+1)
		name := fmt.Sprintf("Consumer %04d", i+1)
		route := routeName(1 + rng.IntN(cfg.Routes))
		branch := branchName(1 + rng.IntN(cfg.BranchesPerRoute))
		phase := weightedPhase(rng, cfg.Weights)
		if rng.Float64() < cfg.PowerShare {
			// Three-phase loads are mostly balanced already.
			base := energy(rng, cfg.MeanKWh) / 3
			f.Consumers[i] = model.NewPowerConsumer(id, name, route, branch, phase,
				jitter(rng, base), jitter(rng, base), jitter(rng, base))
			continue
		}
		f.Consumers[i] = model.NewConsumer(id, name, route, branch, phase, energy(rng, cfg.MeanKWh))
	}
	return f, nil
}

func newRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func routeName(r int) string  { return fmt.Sprintf("R%02d", r) }
func branchName(b int) string { return fmt.Sprintf("B%d", b) }

func weightedPhase(rng *rand.Rand, w [3]float64) model.Phase {
	total := w[0] + w[1] + w[2]
	if total <= 0 {
		return model.Phases[rng.IntN(3)]
	}
	x := rng.Float64() * total
	for i, wi := range w {
		if x < wi {
			return model.Phases[i]
		}
		x -= wi
	}
	return model.PhaseC
}

// energy draws a daily energy around mean with a long right tail, rounded
// to 0.1 kWh and never below 0.1.
func energy(rng *rand.Rand, mean float64) float64 {
	v := mean * math.Exp(0.5*rng.NormFloat64()-0.125)
	return math.Max(0.1, math.Round(v*10)/10)
}

func jitter(rng *rand.Rand, v float64) float64 {
	return math.Max(0.1, math.Round(v*(0.9+0.2*rng.Float64())*10)/10)
}
