package geometry

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

const (
	EPSILON = 0.00001
)

//diesel geometry library - planar particle boundary handling
//The fluid domain is an axis aligned rectangle in simulation space with y pointing up.
//Particle System runs from world coordinate intersections so no modelview / projection transforms

//Bounds - rectangular domain borders
type Bounds struct {
	Left   float64 `mapstructure:"left" json:"left"`
	Right  float64 `mapstructure:"right" json:"right"`
	Bottom float64 `mapstructure:"bottom" json:"bottom"`
	Top    float64 `mapstructure:"top" json:"top"`
}

//NewBounds builds a domain from its four borders. Swapped borders are reordered and a
//collapsed axis is widened by EPSILON so Size never reports zero.
func NewBounds(left float64, right float64, bottom float64, top float64) Bounds {
	b := Bounds{Left: left, Right: right, Bottom: bottom, Top: top}
	return b.Normalized()
}

//Square domain centered on the origin
func Square(half float64) Bounds {
	return NewBounds(-half, half, -half, half)
}

//Normalized returns b with ordered, non degenerate borders
func (b Bounds) Normalized() Bounds {
	if b.Left > b.Right {
		b.Left, b.Right = b.Right, b.Left
	}
	if b.Bottom > b.Top {
		b.Bottom, b.Top = b.Top, b.Bottom
	}
	if b.Right-b.Left < EPSILON {
		b.Right = b.Left + EPSILON
	}
	if b.Top-b.Bottom < EPSILON {
		b.Top = b.Bottom + EPSILON
	}
	return b
}

//Valid reports whether every border is finite and ordered
func (b Bounds) Valid() bool {
	for _, v := range [4]float64{b.Left, b.Right, b.Bottom, b.Top} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return b.Left < b.Right && b.Bottom < b.Top
}

//Box converts to gonum's rectangle representation
func (b Bounds) Box() r2.Box {
	return r2.Box{Min: r2.Vec{X: b.Left, Y: b.Bottom}, Max: r2.Vec{X: b.Right, Y: b.Top}}
}

func (b Bounds) Size() r2.Vec {
	return r2.Vec{X: b.Right - b.Left, Y: b.Top - b.Bottom}
}

func (b Bounds) Center() r2.Vec {
	return r2.Vec{X: (b.Left + b.Right) / 2, Y: (b.Bottom + b.Top) / 2}
}

//Contains is inclusive of the borders
func (b Bounds) Contains(p r2.Vec) bool {
	return p.X >= b.Left && p.X <= b.Right && p.Y >= b.Bottom && p.Y <= b.Top
}

//Clamp moves p onto the closest point of the domain
func (b Bounds) Clamp(p r2.Vec) r2.Vec {
	return r2.Vec{X: clamp(p.X, b.Left, b.Right), Y: clamp(p.Y, b.Bottom, b.Top)}
}

//Resolve keeps a particle inside the domain. Each axis is handled independently so a particle
//leaving through a corner is clamped on both axes in the same call. The velocity component
//normal to the crossed border is negated and scaled by collisionDamping, the tangential
//component is scaled by boundaryDamping (1 leaves it untouched). Returns true on contact.
func (b Bounds) Resolve(pos *r2.Vec, vel *r2.Vec, collisionDamping float64, boundaryDamping float64) bool {
	hitX := false
	hitY := false

	if pos.X < b.Left {
		pos.X = b.Left
		hitX = true
	} else if pos.X > b.Right {
		pos.X = b.Right
		hitX = true
	}

	if pos.Y < b.Bottom {
		pos.Y = b.Bottom
		hitY = true
	} else if pos.Y > b.Top {
		pos.Y = b.Top
		hitY = true
	}

	//Normal response first, then friction on the axis that did not collide
	if hitX {
		vel.X = -vel.X * collisionDamping
		if !hitY {
			vel.Y *= boundaryDamping
		}
	}
	if hitY {
		vel.Y = -vel.Y * collisionDamping
		if !hitX {
			vel.X *= boundaryDamping
		}
	}

	return hitX || hitY
}

func (b Bounds) String() string {
	return fmt.Sprintf("[%g, %g]x[%g, %g]", b.Left, b.Right, b.Bottom, b.Top)
}

//clamp sends NaN to the middle of the range
func clamp(v float64, lo float64, hi float64) float64 {
	if math.IsNaN(v) {
		return lo + (hi-lo)/2
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
