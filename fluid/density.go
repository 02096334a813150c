package fluid

import (
	V "diesel.com/sph2d/vector"
)

//solveDensities - density and near density from the predicted positions, then the equation
//of state. Both densities include the particle's own contribution and are floored at
//DensityEpsilon. Pressures are clamped at zero, negative pressure is not modelled.
func (fluid *Simulation) solveDensities() error {
	h := fluid.params.SmoothingRadius
	k := fluid.params.PressureMultiplier
	kNear := fluid.params.NearPressureMultiplier
	rest := fluid.params.RestDensity
	ks := fluid.kernels

	return fluid.parallel(len(fluid.particles), func(lo, hi int) error {
		samples := make([]int, 0, 64)
		for i := lo; i < hi; i++ {
			pi := &fluid.particles[i]
			density := 0.0
			near := 0.0

			samples = fluid.grid.Neighbors(i, samples[:0])
			for _, j := range samples {
				pj := &fluid.particles[j]
				dist := V.Distance(pi.Predicted, pj.Predicted)
				if dist >= h {
					continue
				}
				density += pj.Mass * ks.density(h, dist)
				near += pj.Mass * ks.near(h, dist)
			}

			pi.Density = max(density, DensityEpsilon)
			pi.NearDensity = max(near, DensityEpsilon)
			pi.Pressure = PressureEOS(pi.Density, rest, k)
			pi.NearPressure = max(0, kNear*pi.NearDensity)
		}
		return nil
	})
}

//PressureEOS - linear equation of state k(rho - rho0) with negative pressure suppressed
func PressureEOS(density float64, rest float64, k float64) float64 {
	return max(0, k*(density-rest))
}
