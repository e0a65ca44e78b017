package scenarios

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/phasebalance/core/balance"
	"github.com/kilianp07/phasebalance/core/model"
	"github.com/kilianp07/phasebalance/simulator"
)

type ConsumerDef struct {
	ID     string      `yaml:"id"`
	Name   string      `yaml:"name,omitempty"`
	Route  string      `yaml:"route"`
	Branch string      `yaml:"branch"`
	Phase  model.Phase `yaml:"phase"`
	// Power is the load of a single-phase consumer on Phase.
	Power float64 `yaml:"power,omitempty"`
	// Readings replaces Power for three-phase consumers.
	Readings []float64 `yaml:"readings,omitempty"`
}

func (c ConsumerDef) ToModel() (model.Consumer, error) {
	name := c.Name
	if name == "" {
		name = c.ID
	}
	switch len(c.Readings) {
	case 0:
		return model.NewConsumer(c.ID, name, c.Route, c.Branch, c.Phase, c.Power), nil
	case 3:
		return model.NewPowerConsumer(c.ID, name, c.Route, c.Branch, c.Phase,
			c.Readings[0], c.Readings[1], c.Readings[2]), nil
	default:
		return model.Consumer{}, fmt.Errorf("consumer %s: readings need 3 values, got %d", c.ID, len(c.Readings))
	}
}

type GroupDef struct {
	Route  string `yaml:"route"`
	Branch string `yaml:"branch"`
}

// Settings are the search parameters of a scenario. Unset fields keep the
// optimiser defaults.
type Settings struct {
	PopulationSize    int     `yaml:"population_size"`
	Generations       int     `yaml:"generations"`
	MutationRate      float64 `yaml:"mutation_rate"`
	CrossoverRate     float64 `yaml:"crossover_rate"`
	OptimizationTimes int     `yaml:"optimization_times"`
	MaxRetryTimes     int     `yaml:"max_retry_times"`
	FeasibleTarget    int     `yaml:"feasible_target"`
	StallGenerations  int     `yaml:"stall_generations"`
	Parallelism       int     `yaml:"parallelism"`
	Seed              uint64  `yaml:"seed"`
}

func (s Settings) ToConfig() balance.Config {
	return balance.Config{
		PopulationSize:    s.PopulationSize,
		Generations:       s.Generations,
		MutationRate:      s.MutationRate,
		CrossoverRate:     s.CrossoverRate,
		OptimizationTimes: s.OptimizationTimes,
		MaxRetryTimes:     s.MaxRetryTimes,
		FeasibleTarget:    s.FeasibleTarget,
		StallGenerations:  s.StallGenerations,
		Parallelism:       s.Parallelism,
		Seed:              s.Seed,
	}
}

type Expected struct {
	// Feasible, when set, requires a solution to be found (or not).
	Feasible *bool `yaml:"feasible,omitempty"`
	// MaxUnbalance bounds the unbalance rate of the solution in percent.
	MaxUnbalance float64 `yaml:"max_unbalance,omitempty"`
	// MaxChanges bounds the number of rewired consumers.
	MaxChanges *int `yaml:"max_changes,omitempty"`
	// AtomicGroups requires every declared group to share one wiring.
	AtomicGroups bool `yaml:"atomic_groups,omitempty"`
}

type Scenario struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description,omitempty"`
	Settings    Settings      `yaml:"settings"`
	Consumers   []ConsumerDef `yaml:"consumers,omitempty"`
	Groups      []GroupDef    `yaml:"groups,omitempty"`
	// Generate replaces Consumers and Groups with a synthetic feeder.
	Generate *simulator.FeederConfig `yaml:"generate,omitempty"`
	Expected Expected               `yaml:"expected"`
}

// Feeder returns the consumers and groups of the scenario.
func (sc *Scenario) Feeder() ([]model.Consumer, []model.BranchGroup, error) {
	if sc.Generate != nil {
		f, err := simulator.Generate(*sc.Generate)
		if err != nil {
			return nil, nil, fmt.Errorf("scenario %s: %w", sc.Name, err)
		}
		return f.Consumers, f.Groups, nil
	}
	consumers := make([]model.Consumer, len(sc.Consumers))
	for i, d := range sc.Consumers {
		c, err := d.ToModel()
		if err != nil {
			return nil, nil, fmt.Errorf("scenario %s: %w", sc.Name, err)
		}
		consumers[i] = c
	}
	groups := make([]model.BranchGroup, len(sc.Groups))
	for i, g := range sc.Groups {
		groups[i] = model.BranchGroup{Route: g.Route, Branch: g.Branch}
	}
	return consumers, groups, nil
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	if sc.Name == "" {
		return nil, fmt.Errorf("scenario %s has no name", path)
	}
	return &sc, nil
}

// FromFeeder describes consumers and groups as a scenario without
// expectations.
func FromFeeder(name string, consumers []model.Consumer, groups []model.BranchGroup) *Scenario {
	sc := &Scenario{Name: name}
	for _, c := range consumers {
		d := ConsumerDef{ID: c.ID, Name: c.Name, Route: c.Route, Branch: c.Branch, Phase: c.CurrentPhase}
		if c.IsPowerPhase() {
			d.Readings = []float64{c.Readings[0], c.Readings[1], c.Readings[2]}
		} else {
			d.Power = c.TotalPower()
		}
		if d.Name == d.ID {
			d.Name = ""
		}
		sc.Consumers = append(sc.Consumers, d)
	}
	for _, g := range groups {
		sc.Groups = append(sc.Groups, GroupDef{Route: g.Route, Branch: g.Branch})
	}
	return sc
}

// Write encodes the scenario as YAML.
func (sc *Scenario) Write(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(sc); err != nil {
		return err
	}
	return enc.Close()
}
