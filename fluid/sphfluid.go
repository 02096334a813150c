package fluid

import (
	"errors"
	"fmt"

	G "diesel.com/sph2d/geometry"
	V "diesel.com/sph2d/vector"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r2"
)

//Simulation - planar SPH fluid. Owns the particle store, the per-step spatial hash grid and
//the parameters. Each Step runs ordered passes over the particles:
//grid build -> density/pressure -> forces -> drag/clamp/integrate/boundary.
//Every pass completes before the next one starts, a pass only reads outputs of earlier passes.
//A Simulation is not safe for concurrent use, collaborators mutate it between steps.

//ErrNonFinite is returned by Step when a particle position or velocity is NaN or infinite
var ErrNonFinite = errors.New("fluid: non-finite particle state")

//minChunk - smallest index range handed to a worker goroutine
const minChunk = 64

type Simulation struct {
	params      Params
	kernels     kernelSet
	particles   []Particle
	accel       []r2.Vec //Per step acceleration scratch, indexed like particles
	grid        *SpatialHashGrid
	timer       Timer
	interaction Interaction
	interacting bool
	log         logrus.FieldLogger
}

type Timer struct {
	T     float64 //Simulated seconds
	TS    float64 //Seconds per step
	Frame uint64
}

func (t *Timer) StepTime() {
	t.T = t.T + t.TS
	t.Frame++
}

//Option configures a Simulation at construction
type Option func(*Simulation)

//WithLogger routes debug output of the simulation to l
func WithLogger(l logrus.FieldLogger) Option {
	return func(fluid *Simulation) {
		if l != nil {
			fluid.log = l
		}
	}
}

//NewSimulation - empty simulation, particles are created by one of the Reset methods
func NewSimulation(params Params, opts ...Option) *Simulation {
	fluid := &Simulation{
		grid: NewSpatialHashGrid(params.SmoothingRadius),
		log:  logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(fluid)
	}
	fluid.SetParams(params)
	return fluid
}

//-----------------------------------------------------------------------------
//-----------------------------------------------------------------------------

//Step advances the simulation by one time step. A simulation with no particles is a no-op.
//A queued interaction is consumed by this call.
func (fluid *Simulation) Step() error {
	if len(fluid.particles) == 0 {
		fluid.interacting = false
		return nil
	}

	for i := range fluid.particles {
		fluid.particles[i].Predicted = fluid.particles[i].Position
	}
	fluid.grid.Build(fluid.particles, fluid.params.SmoothingRadius)

	if err := fluid.solveDensities(); err != nil {
		return err
	}
	if err := fluid.accumulateForces(); err != nil {
		return err
	}
	err := fluid.integrate()
	fluid.interacting = false
	fluid.timer.StepTime()
	return err
}

//StepN runs n steps and stops at the first failure
func (fluid *Simulation) StepN(n int) error {
	for k := 0; k < n; k++ {
		if err := fluid.Step(); err != nil {
			return fmt.Errorf("step %d of %d: %w", k+1, n, err)
		}
	}
	return nil
}

//integrate - semi implicit euler on the accelerations of the force pass
func (fluid *Simulation) integrate() error {
	p := fluid.params
	dt := p.TimeStep

	return fluid.parallel(len(fluid.particles), func(lo, hi int) error {
		for i := lo; i < hi; i++ {
			pi := &fluid.particles[i]
			if !pi.Active {
				continue
			}
			vel := r2.Add(pi.Velocity, r2.Scale(dt, fluid.accel[i]))
			vel = r2.Scale(p.Drag, vel)
			vel = V.ClampLength(vel, p.MaxVelocity)
			pos := r2.Add(pi.Position, r2.Scale(dt, vel))
			p.Bounds.Resolve(&pos, &vel, p.CollisionDamping, p.BoundaryDamping)

			pi.Position = pos
			pi.Velocity = vel
			if !V.Finite(pos) || !V.Finite(vel) {
				return fmt.Errorf("particle %d at frame %d (%s): %w", i, fluid.timer.Frame, pi.String(), ErrNonFinite)
			}
		}
		return nil
	})
}

//parallel splits [0,n) into contiguous chunks run on Params.Workers goroutines and waits for
//all of them. One worker runs inline.
func (fluid *Simulation) parallel(n int, fn func(lo, hi int) error) error {
	workers := fluid.params.Workers
	if workers <= 1 || n <= minChunk {
		return fn(0, n)
	}
	chunk := (n + workers - 1) / workers
	if chunk < minChunk {
		chunk = minChunk
	}

	var g errgroup.Group
	for lo := 0; lo < n; lo += chunk {
		lo, hi := lo, min(lo+chunk, n)
		g.Go(func() error {
			return fn(lo, hi)
		})
	}
	return g.Wait()
}

//-----------------------------------------------------------------------------
//Particle access

//Particles returns a copy of the particle store
func (fluid *Simulation) Particles() []Particle {
	out := make([]Particle, len(fluid.particles))
	copy(out, fluid.particles)
	return out
}

func (fluid *Simulation) Len() int {
	return len(fluid.particles)
}

func (fluid *Simulation) Particle(i int) Particle {
	return fluid.particles[i]
}

//Time - simulated seconds since the last reset
func (fluid *Simulation) Time() float64 {
	return fluid.timer.T
}

//Frame - steps since the last reset
func (fluid *Simulation) Frame() uint64 {
	return fluid.timer.Frame
}

//-----------------------------------------------------------------------------
//Parameters

func (fluid *Simulation) Params() Params {
	return fluid.params
}

//SetParams replaces every parameter. Out of range values are clamped and logged.
func (fluid *Simulation) SetParams(p Params) {
	clean := p.Sanitize()
	if clean != p {
		fluid.log.WithFields(logrus.Fields{
			"requested": fmt.Sprintf("%+v", p),
			"applied":   fmt.Sprintf("%+v", clean),
		}).Debug("fluid parameters clamped")
	}
	fluid.params = clean
	fluid.kernels = clean.Kernel.kernels()
	fluid.timer.TS = clean.TimeStep
}

func (fluid *Simulation) update(fn func(p *Params)) {
	p := fluid.params
	fn(&p)
	fluid.SetParams(p)
}

func (fluid *Simulation) SetGravity(g r2.Vec) {
	fluid.update(func(p *Params) { p.Gravity = g })
}

func (fluid *Simulation) SetTimeStep(dt float64) {
	fluid.update(func(p *Params) { p.TimeStep = dt })
}

func (fluid *Simulation) SetBounds(b G.Bounds) {
	fluid.update(func(p *Params) { p.Bounds = b.Normalized() })
}

func (fluid *Simulation) SetBoundaryDamping(v float64) {
	fluid.update(func(p *Params) { p.BoundaryDamping = v })
}

func (fluid *Simulation) SetDrag(v float64) {
	fluid.update(func(p *Params) { p.Drag = v })
}

func (fluid *Simulation) SetCollisionDamping(v float64) {
	fluid.update(func(p *Params) { p.CollisionDamping = v })
}

func (fluid *Simulation) SetSmoothingRadius(h float64) {
	fluid.update(func(p *Params) { p.SmoothingRadius = h })
}

func (fluid *Simulation) SetPressureMultiplier(k float64) {
	fluid.update(func(p *Params) { p.PressureMultiplier = k })
}

func (fluid *Simulation) SetNearPressureMultiplier(k float64) {
	fluid.update(func(p *Params) { p.NearPressureMultiplier = k })
}

func (fluid *Simulation) SetViscosityStrength(mu float64) {
	fluid.update(func(p *Params) { p.ViscosityStrength = mu })
}

func (fluid *Simulation) SetRestDensity(rho float64) {
	fluid.update(func(p *Params) { p.RestDensity = rho })
}

func (fluid *Simulation) SetMaxVelocity(v float64) {
	fluid.update(func(p *Params) { p.MaxVelocity = v })
}

func (fluid *Simulation) SetKernelProfile(k KernelProfile) {
	fluid.update(func(p *Params) { p.Kernel = k })
}

func (fluid *Simulation) SetWorkers(n int) {
	fluid.update(func(p *Params) { p.Workers = n })
}

func (fluid *Simulation) SmoothingRadius() float64 {
	return fluid.params.SmoothingRadius
}

func (fluid *Simulation) RestDensity() float64 {
	return fluid.params.RestDensity
}
