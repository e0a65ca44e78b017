// Package loss estimates feeder losses from daily per-phase energy.
package loss

import "github.com/kilianp07/phasebalance/core/model"

// Line parameters of a typical low-voltage feeder.
const (
	LineResistance = 0.35 // ohm per km
	LineLength     = 0.5  // km
	RatedVoltage   = 380.0
	HoursPerDay    = 24.0

	basicLossRate    = 2.5
	basicLoadDivisor = 10000.0
	unbalanceFactor  = 0.15
)

// Estimate is the loss picture of one set of phase energies.
type Estimate struct {
	TotalEnergy float64 `json:"total_energy"`
	// LineLoss is the daily I²R loss in energy units.
	LineLoss      float64 `json:"line_loss"`
	BasicRate     float64 `json:"basic_rate"`
	UnbalanceRate float64 `json:"unbalance_rate"`
	// UnbalanceLossRate is the extra loss rate caused by the unbalance.
	UnbalanceLossRate float64 `json:"unbalance_loss_rate"`
	TotalRate         float64 `json:"total_rate"`
	TotalLoss         float64 `json:"total_loss"`
	// ExtraLoss is the part of TotalLoss a balanced feeder would avoid.
	ExtraLoss float64 `json:"extra_loss"`
}

// LineLoss converts daily energies to average power, derives the phase
// currents at rated voltage and returns the daily I²R loss.
func LineLoss(energy [3]float64) float64 {
	r := LineResistance * LineLength
	sum := 0.0
	for _, e := range energy {
		i := e / HoursPerDay / RatedVoltage
		sum += i * i
	}
	return r * sum * HoursPerDay
}

// UnbalanceLossRate grows with the square of the unbalance rate.
func UnbalanceLossRate(energy [3]float64) float64 {
	u := model.UnbalanceRate(energy)
	return unbalanceFactor * u * u
}

// BasicRate is the load-dependent loss rate of a balanced feeder in percent.
func BasicRate(energy [3]float64) float64 {
	return basicLossRate + (energy[0]+energy[1]+energy[2])/basicLoadDivisor
}

// Compute returns every loss figure for energy.
func Compute(energy [3]float64) Estimate {
	e := Estimate{
		TotalEnergy:       energy[0] + energy[1] + energy[2],
		LineLoss:          LineLoss(energy),
		BasicRate:         BasicRate(energy),
		UnbalanceRate:     model.UnbalanceRate(energy),
		UnbalanceLossRate: UnbalanceLossRate(energy),
	}
	e.TotalRate = e.BasicRate + e.UnbalanceLossRate
	e.TotalLoss = e.TotalEnergy * e.TotalRate / 100
	e.ExtraLoss = e.TotalLoss - e.TotalEnergy*e.BasicRate/100
	return e
}

// YearlySaving is the energy saved over a year when the daily extra loss
// drops from before to after.
func YearlySaving(before, after Estimate) float64 {
	return (before.ExtraLoss - after.ExtraLoss) * 365
}
