package simulator

import (
	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/phasebalance/core/model"
)

// LoadStats summarises a consumer list on its current wiring.
type LoadStats struct {
	Consumers      int        `json:"consumers"`
	PowerConsumers int        `json:"power_consumers"`
	PhasePowers    [3]float64 `json:"phase_powers"`
	UnbalanceRate  float64    `json:"unbalance_rate"`
	Status         string     `json:"status"`
	// MeanKWh and StdDevKWh describe the total energy per consumer.
	MeanKWh   float64 `json:"mean_kwh"`
	StdDevKWh float64 `json:"stddev_kwh"`
}

// Stats computes LoadStats for consumers.
func Stats(consumers []model.Consumer) LoadStats {
	s := LoadStats{Consumers: len(consumers)}
	s.PhasePowers = model.PhasePowers(consumers)
	s.UnbalanceRate = model.UnbalanceRate(s.PhasePowers)
	s.Status = model.UnbalanceStatus(s.UnbalanceRate)
	if len(consumers) == 0 {
		return s
	}
	totals := make([]float64, len(consumers))
	for i, c := range consumers {
		totals[i] = c.TotalPower()
		if c.IsPowerPhase() {
			s.PowerConsumers++
		}
	}
	if len(totals) == 1 {
		s.MeanKWh = totals[0]
		return s
	}
	s.MeanKWh, s.StdDevKWh = stat.MeanStdDev(totals, nil)
	return s
}
