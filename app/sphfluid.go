package app

import (
	"fmt"
	"strings"

	F "diesel.com/sph2d/fluid"
	U "diesel.com/sph2d/utils"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/spatial/r2"
)

//Spawn layouts
const (
	LayoutRandom = "random"
	LayoutGrid   = "grid"
)

//NewFluid builds a simulation from the configuration and spawns its particles
func NewFluid(cfg Config, log logrus.FieldLogger) (*F.Simulation, error) {
	params, err := cfg.Fluid.Params()
	if err != nil {
		return nil, err
	}
	fluid := F.NewSimulation(params, F.WithLogger(log))
	if err := SpawnParticles(fluid, cfg); err != nil {
		return nil, err
	}
	return fluid, nil
}

//SpawnParticles replaces the particle store using the configured layout. A scale other than 1
//pulls the spawned field towards the spawn origin.
func SpawnParticles(fluid *F.Simulation, cfg Config) error {
	switch strings.ToLower(cfg.Layout) {
	case "", LayoutRandom:
		fluid.ResetParticles(cfg.Particles, cfg.SpreadX, cfg.SpreadY, cfg.OriginX, cfg.OriginY)
	case LayoutGrid:
		fluid.ResetParticlesGrid(cfg.Particles, cfg.Spacing, cfg.OriginX, cfg.OriginY)
	default:
		return fmt.Errorf("unknown particle layout %q", cfg.Layout)
	}

	if cfg.Scale > 0 && cfg.Scale != 1 {
		particles := fluid.Particles()
		positions := positionsOf(particles)
		U.ScalePositions(positions, r2.Vec{X: cfg.OriginX, Y: cfg.OriginY}, cfg.Scale)

		bounds := fluid.Params().Bounds
		for i := range particles {
			particles[i].Position = bounds.Clamp(positions[i])
		}
		fluid.ResetFrom(particles)
	}
	return nil
}

//positionsOf - current positions of every particle
func positionsOf(particles []F.Particle) []r2.Vec {
	out := make([]r2.Vec, len(particles))
	for i := range particles {
		out[i] = particles[i].Position
	}
	return out
}
