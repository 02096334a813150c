package fluid

import (
	"fmt"

	G "diesel.com/sph2d/geometry"
	V "diesel.com/sph2d/vector"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r2"
)

//Field sampling for visualisation collaborators. Samples are taken from the current
//positions and never touch the per-step cached densities.

//DensitySampler - anything that can evaluate the density field at a point
type DensitySampler interface {
	DensityAt(p r2.Vec) float64
}

//DensityAt sums every particle's kernel weight at p. Floored at DensityEpsilon so a point far
//from all particles reports the floor.
func (fluid *Simulation) DensityAt(p r2.Vec) float64 {
	h := fluid.params.SmoothingRadius
	density := 0.0
	for j := range fluid.particles {
		dist := V.Distance(p, fluid.particles[j].Position)
		if dist < h {
			density += fluid.particles[j].Mass * fluid.kernels.density(h, dist)
		}
	}
	return max(density, DensityEpsilon)
}

//DensityField - density sampled at the centres of a Cols x Rows lattice over Bounds.
//Values is row major with row 0 at the bottom border.
type DensityField struct {
	Cols   int
	Rows   int
	Bounds G.Bounds
	Values []float64
	Min    float64
	Max    float64
	Rest   float64 //Rest density at sampling time, the natural colour pivot
}

//At returns the sample in column c, row r
func (f DensityField) At(c int, r int) float64 {
	return f.Values[r*f.Cols+c]
}

//Center of lattice cell (c, r) in simulation space
func (f DensityField) Center(c int, r int) r2.Vec {
	size := f.Bounds.Size()
	return r2.Vec{
		X: f.Bounds.Left + (float64(c)+0.5)*size.X/float64(f.Cols),
		Y: f.Bounds.Bottom + (float64(r)+0.5)*size.Y/float64(f.Rows),
	}
}

func (f DensityField) String() string {
	return fmt.Sprintf("DensityField %dx%d over %s [%g, %g]", f.Cols, f.Rows, f.Bounds.String(), f.Min, f.Max)
}

//SampleDensity evaluates the density field on a lattice over the domain. A grid built over the
//current positions restricts every sample to nearby particles.
func (fluid *Simulation) SampleDensity(cols int, rows int) DensityField {
	cols = max(cols, 1)
	rows = max(rows, 1)
	h := fluid.params.SmoothingRadius
	field := DensityField{
		Cols:   cols,
		Rows:   rows,
		Bounds: fluid.params.Bounds,
		Values: make([]float64, cols*rows),
		Rest:   fluid.params.RestDensity,
	}

	positions := make([]r2.Vec, len(fluid.particles))
	for i := range fluid.particles {
		positions[i] = fluid.particles[i].Position
	}
	grid := NewSpatialHashGrid(h)
	grid.BuildPositions(positions, h)

	samples := make([]int, 0, 64)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			p := field.Center(c, r)
			density := 0.0
			samples = grid.NeighborsOf(p, samples[:0])
			for _, j := range samples {
				dist := V.Distance(p, positions[j])
				if dist < h {
					density += fluid.particles[j].Mass * fluid.kernels.density(h, dist)
				}
			}
			field.Values[r*cols+c] = max(density, DensityEpsilon)
		}
	}

	field.Min = floats.Min(field.Values)
	field.Max = floats.Max(field.Values)
	return field
}
