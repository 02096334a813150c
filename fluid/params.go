package fluid

import (
	"math"
	"runtime"

	G "diesel.com/sph2d/geometry"
	"gonum.org/v1/gonum/spatial/r2"
)

//DensityEpsilon floors density and near density so force terms never divide by zero
const DensityEpsilon = 1e-6

//InteractionBoost scales pointer forcing relative to the pressure response
const InteractionBoost = 10.0

//Minimum values accepted by the parameter setters
const (
	MinSmoothingRadius = 1e-4
	MinMultiplier      = 1e-6
	MinTimeStep        = 1e-6
	MinMaxVelocity     = 1e-6
	MinMass            = 1e-9
)

//MaxParam caps every positive parameter. Kernel normalisation raises h to the 9th power,
//so anything much larger overflows to Inf.
const MaxParam = 1e12

//Params - the tunable state of a Simulation. Every field is externally mutable between steps,
//values are brought back into range by Sanitize before the Simulation uses them.
type Params struct {
	Gravity                r2.Vec
	TimeStep               float64
	Bounds                 G.Bounds
	BoundaryDamping        float64 //tangential friction factor on wall contact
	Drag                   float64 //velocity multiplier applied every step
	CollisionDamping       float64 //normal restitution on wall contact
	SmoothingRadius        float64
	PressureMultiplier     float64
	NearPressureMultiplier float64
	ViscosityStrength      float64
	RestDensity            float64
	MaxVelocity            float64
	ParticleMass           float64
	Kernel                 KernelProfile
	Workers                int
	Seed                   uint64
}

//DefaultParams - defaults for the [-1,1] x [-1,1] box
func DefaultParams() Params {
	return Params{
		Gravity:                r2.Vec{X: 0, Y: -10},
		TimeStep:               0.005,
		Bounds:                 G.Square(1),
		BoundaryDamping:        1,
		Drag:                   0.99,
		CollisionDamping:       0.5,
		SmoothingRadius:        0.16433,
		PressureMultiplier:     4.12456,
		NearPressureMultiplier: 0.93206,
		ViscosityStrength:      0,
		RestDensity:            5,
		MaxVelocity:            2.01,
		ParticleMass:           0.01,
		Kernel:                 KernelSpiky,
		Workers:                runtime.GOMAXPROCS(0),
		Seed:                   1,
	}
}

//Sanitize returns a copy of p with every field clamped into its valid range. NaN and infinite
//values fall back to the lower limit of the field.
func (p Params) Sanitize() Params {
	if !finite(p.Gravity.X) {
		p.Gravity.X = 0
	}
	if !finite(p.Gravity.Y) {
		p.Gravity.Y = 0
	}
	p.TimeStep = atLeast(p.TimeStep, MinTimeStep)
	if !p.Bounds.Valid() {
		p.Bounds = sanitizeBounds(p.Bounds)
	}
	p.BoundaryDamping = unit(p.BoundaryDamping)
	p.Drag = unit(p.Drag)
	p.CollisionDamping = unit(p.CollisionDamping)
	p.SmoothingRadius = atLeast(p.SmoothingRadius, MinSmoothingRadius)
	p.PressureMultiplier = atLeast(p.PressureMultiplier, MinMultiplier)
	p.NearPressureMultiplier = atLeast(p.NearPressureMultiplier, MinMultiplier)
	p.ViscosityStrength = atLeast(p.ViscosityStrength, 0)
	p.RestDensity = atLeast(p.RestDensity, 0)
	p.MaxVelocity = atLeast(p.MaxVelocity, MinMaxVelocity)
	p.ParticleMass = atLeast(p.ParticleMass, MinMass)
	if !p.Kernel.Valid() {
		p.Kernel = KernelSpiky
	}
	if p.Workers < 1 {
		p.Workers = 1
	}
	return p
}

func sanitizeBounds(b G.Bounds) G.Bounds {
	d := G.Square(1)
	if !finite(b.Left) {
		b.Left = d.Left
	}
	if !finite(b.Right) {
		b.Right = d.Right
	}
	if !finite(b.Bottom) {
		b.Bottom = d.Bottom
	}
	if !finite(b.Top) {
		b.Top = d.Top
	}
	return b.Normalized()
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

//atLeast clamps into [lo, MaxParam], non-finite values become lo
func atLeast(v float64, lo float64) float64 {
	if !finite(v) || v < lo {
		return lo
	}
	return min(v, MaxParam)
}

func unit(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
