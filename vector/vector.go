package vector

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

//Planar vector helpers layered over gonum's r2.Vec. Arithmetic itself (Add, Sub, Scale, Dot)
//is left to r2; this package carries the guarded operations the fluid solver needs.

//Epsilon is the length below which a vector is treated as having no direction
const Epsilon = 1e-9

//Length returns the euclidean norm of a
func Length(a r2.Vec) float64 {
	return r2.Norm(a)
}

//Distance between two points
func Distance(a r2.Vec, b r2.Vec) float64 {
	return r2.Norm(r2.Sub(a, b))
}

//Normalize returns the unit vector along a together with its length. Vectors shorter
//than eps come back as the zero vector so callers never divide by a vanishing length.
func Normalize(a r2.Vec, eps float64) (r2.Vec, float64) {
	l := r2.Norm(a)
	if !(l > eps) {
		return r2.Vec{}, l
	}
	return r2.Scale(1/l, a), l
}

//ClampLength rescales a onto the circle of radius max when it lies outside it
func ClampLength(a r2.Vec, max float64) r2.Vec {
	l2 := r2.Norm2(a)
	if l2 <= max*max {
		return a
	}
	return r2.Scale(max/math.Sqrt(l2), a)
}

//Finite reports whether both components are neither NaN nor infinite
func Finite(a r2.Vec) bool {
	return !math.IsNaN(a.X) && !math.IsInf(a.X, 0) && !math.IsNaN(a.Y) && !math.IsInf(a.Y, 0)
}

//Equals compares component-wise within tol
func Equals(a r2.Vec, b r2.Vec, tol float64) bool {
	return math.Abs(a.X-b.X) <= tol && math.Abs(a.Y-b.Y) <= tol
}

//String formats a the way the solver logs vectors
func String(a r2.Vec) string {
	return fmt.Sprintf("[ %f, %f]", a.X, a.Y)
}
