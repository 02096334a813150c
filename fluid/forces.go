package fluid

import (
	V "diesel.com/sph2d/vector"
	"gonum.org/v1/gonum/spatial/r2"
)

//accumulateForces fills the acceleration scratch buffer. Only densities and pressures of the
//completed density pass and velocities from the start of the step are read, the particle
//store itself is not written.
func (fluid *Simulation) accumulateForces() error {
	if cap(fluid.accel) < len(fluid.particles) {
		fluid.accel = make([]r2.Vec, len(fluid.particles))
	}
	fluid.accel = fluid.accel[:len(fluid.particles)]

	in, interacting := fluid.interaction, fluid.interacting
	g := fluid.params.Gravity

	return fluid.parallel(len(fluid.particles), func(lo, hi int) error {
		samples := make([]int, 0, 64)
		for i := lo; i < hi; i++ {
			pi := &fluid.particles[i]
			if !pi.Active {
				fluid.accel[i] = r2.Vec{}
				continue
			}
			samples = fluid.grid.Neighbors(i, samples[:0])
			force := fluid.forceOn(i, samples)
			if interacting {
				force = r2.Add(force, in.forceOn(pi))
			}
			fluid.accel[i] = r2.Add(r2.Scale(1/pi.Mass, force), g)
		}
		return nil
	})
}

//forceOn - pressure, near pressure and viscosity force on particle i from its candidates
func (fluid *Simulation) forceOn(i int, samples []int) r2.Vec {
	h := fluid.params.SmoothingRadius
	mu := fluid.params.ViscosityStrength
	ks := fluid.kernels
	pi := &fluid.particles[i]

	var pressure, near, viscosity r2.Vec
	for _, j := range samples {
		if j == i {
			continue
		}
		pj := &fluid.particles[j]
		dir, dist := V.Normalize(r2.Sub(pi.Predicted, pj.Predicted), 0)
		if !(dist > 0) || dist >= h {
			continue
		}

		shared := (pi.Pressure + pj.Pressure) / 2
		pressure = r2.Add(pressure, r2.Scale(-ks.densitySlope(h, dist)*pj.Mass*shared/pj.Density, dir))

		sharedNear := (pi.NearPressure + pj.NearPressure) / 2
		near = r2.Add(near, r2.Scale(-ks.nearSlope(h, dist)*pj.Mass*sharedNear/pj.NearDensity, dir))

		if mu > 0 {
			rel := r2.Sub(pj.Velocity, pi.Velocity)
			viscosity = r2.Add(viscosity, r2.Scale(mu*pj.Mass*ks.viscosity(h, dist)/pj.Density, rel))
		}
	}

	return r2.Add(r2.Add(pressure, near), viscosity)
}
