package fluid

import (
	"fmt"
	"math"

	V "diesel.com/sph2d/vector"
	"gonum.org/v1/gonum/spatial/r2"
)

//Interaction - pointer forcing in simulation space. Positive strength pulls particles toward
//Point, negative strength pushes them away, with a linear falloff reaching zero at Radius.
type Interaction struct {
	Point    r2.Vec
	Strength float64
	Radius   float64
}

//ApplyInteraction queues one step of external forcing. The next Step consumes it.
func (fluid *Simulation) ApplyInteraction(point r2.Vec, strength float64, radius float64) {
	if !(radius > 0) || !V.Finite(point) || math.IsNaN(strength) || math.IsInf(strength, 0) {
		fluid.log.WithField("interaction", fmt.Sprintf("%v %f %f", point, strength, radius)).Debug("interaction ignored")
		fluid.interacting = false
		return
	}
	fluid.interaction = Interaction{Point: point, Strength: strength, Radius: radius}
	fluid.interacting = true
}

//ClearInteraction cancels a queued interaction
func (fluid *Simulation) ClearInteraction() {
	fluid.interacting = false
}

//Interaction reports the queued interaction, if any
func (fluid *Simulation) Interaction() (Interaction, bool) {
	return fluid.interaction, fluid.interacting
}

//forceOn - force on p, zero outside the radius and for particles sitting on the point
func (in Interaction) forceOn(p *Particle) r2.Vec {
	dir, dist := V.Normalize(r2.Sub(in.Point, p.Predicted), DensityEpsilon)
	if dist < DensityEpsilon || dist >= in.Radius {
		return r2.Vec{}
	}
	falloff := 1 - dist/in.Radius
	return r2.Scale(p.Mass*in.Strength*falloff*InteractionBoost, dir)
}
