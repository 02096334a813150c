package fluid

import (
	"math"
	"math/rand/v2"

	G "diesel.com/sph2d/geometry"
	V "diesel.com/sph2d/vector"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/spatial/r2"
)

//spawnJitter - horizontal velocity jitter given to randomly scattered particles
const spawnJitter = 0.01

//ResetParticles replaces the particle store with count particles scattered uniformly over a
//spreadX x spreadY rectangle centred on (originX, originY) and clamped into the domain.
//The generator is re-seeded from Params.Seed, so equal arguments give equal particle sets.
//A non-finite spread collapses to 0, a non-finite origin coordinate takes the domain centre.
func (fluid *Simulation) ResetParticles(count int, spreadX float64, spreadY float64, originX float64, originY float64) {
	count = max(count, 0)
	rnd := rand.New(rand.NewPCG(fluid.params.Seed, fluid.params.Seed^0x9e3779b97f4a7c15))
	b := fluid.params.Bounds
	origin := spawnOrigin(b, originX, originY)
	spreadX = finiteOr(spreadX, 0)
	spreadY = finiteOr(spreadY, 0)

	particles := make([]Particle, count)
	for i := range particles {
		pos := r2.Vec{
			X: origin.X + (rnd.Float64()-0.5)*spreadX,
			Y: origin.Y + (rnd.Float64()-0.5)*spreadY,
		}
		vel := r2.Vec{X: (rnd.Float64()*2 - 1) * spawnJitter}
		particles[i] = NewParticle(b.Clamp(pos), vel, fluid.params.ParticleMass)
	}

	fluid.replace(particles)
	fluid.log.WithFields(logrus.Fields{
		"count":  count,
		"spread": []float64{spreadX, spreadY},
		"origin": []float64{originX, originY},
		"seed":   fluid.params.Seed,
	}).Debug("particles reset")
}

//ResetParticlesGrid lays count particles on a square lattice of the given spacing centred on
//(originX, originY). Spacing <= 0 or infinite uses half the smoothing radius.
func (fluid *Simulation) ResetParticlesGrid(count int, spacing float64, originX float64, originY float64) {
	count = max(count, 0)
	if !(spacing > 0) || math.IsInf(spacing, 1) {
		spacing = fluid.params.SmoothingRadius / 2
	}
	b := fluid.params.Bounds
	origin := spawnOrigin(b, originX, originY)

	cols := int(math.Ceil(math.Sqrt(float64(count))))
	rows := 0
	if cols > 0 {
		rows = (count + cols - 1) / cols
	}
	startX := origin.X - float64(cols-1)*spacing/2
	startY := origin.Y - float64(rows-1)*spacing/2

	particles := make([]Particle, count)
	for i := range particles {
		pos := r2.Vec{
			X: startX + float64(i%cols)*spacing,
			Y: startY + float64(i/cols)*spacing,
		}
		particles[i] = NewParticle(b.Clamp(pos), r2.Vec{}, fluid.params.ParticleMass)
	}

	fluid.replace(particles)
	fluid.log.WithFields(logrus.Fields{
		"count":   count,
		"cols":    cols,
		"rows":    rows,
		"spacing": spacing,
	}).Debug("particles reset to grid")
}

//ResetFrom replaces the particle store with a copy of particles. Non positive or infinite
//masses take Params.ParticleMass, non-finite positions are clamped into the domain, non-finite
//velocities are zeroed, densities are floored and Predicted is reset to Position.
func (fluid *Simulation) ResetFrom(particles []Particle) {
	b := fluid.params.Bounds
	next := make([]Particle, len(particles))
	for i, p := range particles {
		if !(p.Mass > 0) || math.IsInf(p.Mass, 1) {
			p.Mass = fluid.params.ParticleMass
		}
		if !V.Finite(p.Position) {
			p.Position = b.Clamp(p.Position)
		}
		if !V.Finite(p.Velocity) {
			p.Velocity = r2.Vec{}
		}
		p.Predicted = p.Position
		p.Density = floorDensity(p.Density)
		p.NearDensity = floorDensity(p.NearDensity)
		p.Pressure = finiteOr(max(p.Pressure, 0), 0)
		p.NearPressure = finiteOr(max(p.NearPressure, 0), 0)
		next[i] = p
	}
	fluid.replace(next)
}

//SetActive freezes or releases particle i. Frozen particles keep contributing density to their
//neighbours but are not moved. Returns false for an out of range index.
func (fluid *Simulation) SetActive(i int, active bool) bool {
	if i < 0 || i >= len(fluid.particles) {
		return false
	}
	fluid.particles[i].Active = active
	return true
}

//spawnOrigin falls back to the domain centre for a non-finite coordinate
func spawnOrigin(b G.Bounds, x float64, y float64) r2.Vec {
	c := b.Center()
	return r2.Vec{X: finiteOr(x, c.X), Y: finiteOr(y, c.Y)}
}

func finiteOr(v float64, fallback float64) float64 {
	if !finite(v) {
		return fallback
	}
	return v
}

func floorDensity(v float64) float64 {
	if !finite(v) || v < DensityEpsilon {
		return DensityEpsilon
	}
	return v
}

func (fluid *Simulation) replace(particles []Particle) {
	fluid.particles = particles
	fluid.accel = make([]r2.Vec, len(particles))
	fluid.interacting = false
	fluid.timer = Timer{TS: fluid.params.TimeStep}
}
