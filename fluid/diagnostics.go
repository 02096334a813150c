package fluid

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/stat"
)

//Stats - aggregate diagnostics of the particle store
type Stats struct {
	Count         int     `json:"count"`
	Active        int     `json:"active"`
	KineticEnergy float64 `json:"kinetic_energy"`
	MeanDensity   float64 `json:"mean_density"`
	MinDensity    float64 `json:"min_density"`
	MaxDensity    float64 `json:"max_density"`
	MaxSpeed      float64 `json:"max_speed"`
	Time          float64 `json:"time"`
	Frame         uint64  `json:"frame"`
}

//Stats reads the densities cached by the last step. Zero particles give zero values.
func (fluid *Simulation) Stats() Stats {
	n := len(fluid.particles)
	s := Stats{Count: n, Time: fluid.timer.T, Frame: fluid.timer.Frame}
	if n == 0 {
		return s
	}

	densities := make([]float64, n)
	energies := make([]float64, n)
	speeds := make([]float64, n)
	for i := range fluid.particles {
		p := &fluid.particles[i]
		if p.Active {
			s.Active++
		}
		densities[i] = p.Density
		speeds[i] = r2.Norm(p.Velocity)
		energies[i] = 0.5 * p.Mass * r2.Norm2(p.Velocity)
	}

	s.KineticEnergy = floats.Sum(energies)
	s.MeanDensity = stat.Mean(densities, nil)
	s.MinDensity = floats.Min(densities)
	s.MaxDensity = floats.Max(densities)
	s.MaxSpeed = floats.Max(speeds)
	return s
}

func (s Stats) String() string {
	return fmt.Sprintf("n=%d active=%d ke=%.6f rho=%.4f [%.4f, %.4f] vmax=%.4f", s.Count, s.Active, s.KineticEnergy, s.MeanDensity, s.MinDensity, s.MaxDensity, s.MaxSpeed)
}
