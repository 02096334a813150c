package fluid

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r2"
)

//Particle - one fluid sample. Position is authoritative and is what collaborators read,
//Predicted is reset to Position at the start of every step and is read by the neighbour
//search, density and force passes of that step only.
type Particle struct {
	Position     r2.Vec
	Velocity     r2.Vec
	Predicted    r2.Vec
	Mass         float64
	Density      float64
	NearDensity  float64
	Pressure     float64
	NearPressure float64
	Active       bool
}

//NewParticle - resting particle with floored densities
func NewParticle(pos r2.Vec, vel r2.Vec, mass float64) Particle {
	return Particle{
		Position:    pos,
		Velocity:    vel,
		Predicted:   pos,
		Mass:        mass,
		Density:     DensityEpsilon,
		NearDensity: DensityEpsilon,
		Active:      true,
	}
}

func (p Particle) String() string {
	return fmt.Sprintf("pos [%f, %f] vel [%f, %f] rho %f", p.Position.X, p.Position.Y, p.Velocity.X, p.Velocity.Y, p.Density)
}
