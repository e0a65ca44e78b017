package balance

import "fmt"

// Search policy constants.
const (
	// MaxAcceptableUnbalance is the feasibility threshold in percent.
	MaxAcceptableUnbalance = 15.0

	eliteFraction        = 0.3
	tournamentSize       = 4
	initChangeFraction   = 0.4
	initAcceptanceFactor = 1.2
	powerRotationProb    = 0.8
	unitMutationProb     = 0.3
	unitSwapProb         = 0.5
	swapAttempts         = 5
)

// Config tunes the genetic search. Zero values fall back to the defaults
// returned by DefaultConfig when SetDefaults is called.
type Config struct {
	// PopulationSize overrides the size scaled from the consumer count.
	PopulationSize int `json:"population_size"`
	// Generations overrides the generation count scaled from the consumer count.
	Generations int `json:"generations"`

	MutationRate  float64 `json:"mutation_rate"`
	CrossoverRate float64 `json:"crossover_rate"`

	// OptimizationTimes x MaxRetryTimes bounds the number of attempts.
	OptimizationTimes int `json:"optimization_times"`
	MaxRetryTimes     int `json:"max_retry_times"`
	// FeasibleTarget stops the run once that many feasible champions exist.
	FeasibleTarget int `json:"feasible_target"`

	// StallGenerations ends an attempt after that many generations without
	// a better champion. 0 disables the check.
	StallGenerations int `json:"stall_generations"`
	// Parallelism bounds concurrent fitness evaluations. Values below 2
	// evaluate sequentially.
	Parallelism int `json:"parallelism"`
	// Seed makes runs reproducible. 0 seeds from the runtime source.
	Seed uint64 `json:"seed"`
	// LogEvery emits a progress line every n generations.
	LogEvery int `json:"log_every"`
}

// DefaultConfig returns the production search parameters.
func DefaultConfig() Config {
	return Config{
		MutationRate:      0.01,
		CrossoverRate:     0.6,
		OptimizationTimes: 10,
		MaxRetryTimes:     3,
		FeasibleTarget:    10,
		LogEvery:          100,
	}
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	d := DefaultConfig()
	if c.MutationRate <= 0 {
		c.MutationRate = d.MutationRate
	}
	if c.CrossoverRate <= 0 {
		c.CrossoverRate = d.CrossoverRate
	}
	if c.OptimizationTimes <= 0 {
		c.OptimizationTimes = d.OptimizationTimes
	}
	if c.MaxRetryTimes <= 0 {
		c.MaxRetryTimes = d.MaxRetryTimes
	}
	if c.FeasibleTarget <= 0 {
		c.FeasibleTarget = d.FeasibleTarget
	}
	if c.LogEvery <= 0 {
		c.LogEvery = d.LogEvery
	}
}

// Validate checks that rates are probabilities and counts are sane.
func (c Config) Validate() error {
	if c.MutationRate < 0 || c.MutationRate > 1 {
		return fmt.Errorf("%w: mutation_rate %.3f not in [0,1]", ErrInvalidInput, c.MutationRate)
	}
	if c.CrossoverRate < 0 || c.CrossoverRate > 1 {
		return fmt.Errorf("%w: crossover_rate %.3f not in [0,1]", ErrInvalidInput, c.CrossoverRate)
	}
	if c.PopulationSize < 0 || c.Generations < 0 || c.StallGenerations < 0 || c.Parallelism < 0 {
		return fmt.Errorf("%w: negative size in config", ErrInvalidInput)
	}
	if c.PopulationSize == 1 {
		return fmt.Errorf("%w: population_size must be at least 2", ErrInvalidInput)
	}
	return nil
}

// MaxAttempts is the attempt budget of a run.
func (c Config) MaxAttempts() int { return c.OptimizationTimes * c.MaxRetryTimes }
