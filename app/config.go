package app

import (
	"fmt"
	"runtime"
	"strings"

	F "diesel.com/sph2d/fluid"
	G "diesel.com/sph2d/geometry"
	"github.com/fsnotify/fsnotify"
	"github.com/mitchellh/mapstructure"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"gonum.org/v1/gonum/spatial/r2"
)

//Our configuration structure for Initialization of the scene. Duplicates Fluid Parameters so
//we can pass them from a user point of view (config file, environment, flags, websocket).
type Config struct {
	Particles  int           `mapstructure:"particles"`   //Particle count
	Layout     string        `mapstructure:"layout"`      //random | grid
	SpreadX    float64       `mapstructure:"spread_x"`    //Random spawn extent
	SpreadY    float64       `mapstructure:"spread_y"`    //
	OriginX    float64       `mapstructure:"origin_x"`    //Spawn centre
	OriginY    float64       `mapstructure:"origin_y"`    //
	Spacing    float64       `mapstructure:"spacing"`     //Grid spawn spacing, 0 = h/2
	Scale      float64       `mapstructure:"scale"`       //Scale spawned field towards its origin (1 for no transform)
	FPS        float64       `mapstructure:"fps"`         //Frame pacing, 0 runs unpaced
	Substeps   int           `mapstructure:"substeps"`    //Simulation steps per frame
	Frames     int           `mapstructure:"frames"`      //Stop after n frames, 0 runs until cancelled
	StatsEvery int           `mapstructure:"stats_every"` //Log diagnostics every n frames, 0 disables
	Heatmap    HeatmapConfig `mapstructure:"heatmap"`
	Stream     StreamConfig  `mapstructure:"stream"`
	Fluid      FluidConfig   `mapstructure:"fluid"`
}

type HeatmapConfig struct {
	Dir   string `mapstructure:"dir"`   //Output directory, empty disables export
	Every int    `mapstructure:"every"` //Export every n frames
	Cols  int    `mapstructure:"cols"`
	Rows  int    `mapstructure:"rows"`
}

type StreamConfig struct {
	Addr       string `mapstructure:"addr"`       //Listen address for serve
	Every      int    `mapstructure:"every"`      //Broadcast every n frames
	Normalized bool   `mapstructure:"normalized"` //Send positions in [0,1] of the bounds instead of simulation space
}

//FluidConfig mirrors fluid.Params with configuration friendly types
type FluidConfig struct {
	GravityX               float64  `mapstructure:"gravity_x"`
	GravityY               float64  `mapstructure:"gravity_y"`
	TimeStep               float64  `mapstructure:"time_step"`
	Bounds                 G.Bounds `mapstructure:"bounds"`
	BoundaryDamping        float64  `mapstructure:"boundary_damping"`
	Drag                   float64  `mapstructure:"drag"`
	CollisionDamping       float64  `mapstructure:"collision_damping"`
	SmoothingRadius        float64  `mapstructure:"smoothing_radius"`
	PressureMultiplier     float64  `mapstructure:"pressure_multiplier"`
	NearPressureMultiplier float64  `mapstructure:"near_pressure_multiplier"`
	ViscosityStrength      float64  `mapstructure:"viscosity_strength"`
	RestDensity            float64  `mapstructure:"rest_density"`
	MaxVelocity            float64  `mapstructure:"max_velocity"`
	ParticleMass           float64  `mapstructure:"particle_mass"`
	Kernel                 string   `mapstructure:"kernel"`
	Workers                int      `mapstructure:"workers"` //0 uses GOMAXPROCS
	Seed                   uint64   `mapstructure:"seed"`
}

//Initializes Default Fluid Structure During Initialization
func DefaultFluidConfig() FluidConfig {
	return FluidConfigFrom(F.DefaultParams())
}

func FluidConfigFrom(p F.Params) FluidConfig {
	return FluidConfig{
		GravityX:               p.Gravity.X,
		GravityY:               p.Gravity.Y,
		TimeStep:               p.TimeStep,
		Bounds:                 p.Bounds,
		BoundaryDamping:        p.BoundaryDamping,
		Drag:                   p.Drag,
		CollisionDamping:       p.CollisionDamping,
		SmoothingRadius:        p.SmoothingRadius,
		PressureMultiplier:     p.PressureMultiplier,
		NearPressureMultiplier: p.NearPressureMultiplier,
		ViscosityStrength:      p.ViscosityStrength,
		RestDensity:            p.RestDensity,
		MaxVelocity:            p.MaxVelocity,
		ParticleMass:           p.ParticleMass,
		Kernel:                 p.Kernel.String(),
		Workers:                0,
		Seed:                   p.Seed,
	}
}

//Params converts to simulation parameters. Range clamping is left to the simulation.
func (c FluidConfig) Params() (F.Params, error) {
	kernel, err := F.ParseKernelProfile(c.Kernel)
	if err != nil {
		return F.Params{}, err
	}
	workers := c.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return F.Params{
		Gravity:                r2.Vec{X: c.GravityX, Y: c.GravityY},
		TimeStep:               c.TimeStep,
		Bounds:                 c.Bounds,
		BoundaryDamping:        c.BoundaryDamping,
		Drag:                   c.Drag,
		CollisionDamping:       c.CollisionDamping,
		SmoothingRadius:        c.SmoothingRadius,
		PressureMultiplier:     c.PressureMultiplier,
		NearPressureMultiplier: c.NearPressureMultiplier,
		ViscosityStrength:      c.ViscosityStrength,
		RestDensity:            c.RestDensity,
		MaxVelocity:            c.MaxVelocity,
		ParticleMass:           c.ParticleMass,
		Kernel:                 kernel,
		Workers:                workers,
		Seed:                   c.Seed,
	}, nil
}

//DefaultConfig - 1.6 x 0.8 cloud in the upper half of the box
func DefaultConfig() Config {
	return Config{
		Particles:  1200,
		Layout:     "random",
		SpreadX:    1.6,
		SpreadY:    0.8,
		OriginX:    0,
		OriginY:    0.4,
		Scale:      1,
		FPS:        60,
		Substeps:   3,
		StatsEvery: 60,
		Heatmap:    HeatmapConfig{Every: 30, Cols: 160, Rows: 160},
		Stream:     StreamConfig{Addr: ":8080", Every: 1, Normalized: true},
		Fluid:      DefaultFluidConfig(),
	}
}

//SetDefaults registers every configuration key so environment overrides and AllSettings see
//the full tree
func SetDefaults(v *viper.Viper) {
	var tree map[string]interface{}
	if err := mapstructure.Decode(DefaultConfig(), &tree); err != nil {
		panic(fmt.Sprintf("encode default config: %v", err))
	}
	setTree(v, "", tree)
}

func setTree(v *viper.Viper, prefix string, tree map[string]interface{}) {
	for k, val := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch sub := val.(type) {
		case map[string]interface{}:
			setTree(v, key, sub)
		default:
			v.SetDefault(key, val)
		}
	}
}

//NewViper - defaults, SPH2D_ environment overrides and an optional config file
func NewViper(path string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix("SPH2D")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	return v, nil
}

//LoadConfig decodes the viper tree
func LoadConfig(v *viper.Viper) (Config, error) {
	cfg := DefaultConfig()
	if err := decode(v.AllSettings(), &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if _, err := cfg.Fluid.Params(); err != nil {
		return Config{}, fmt.Errorf("fluid config: %w", err)
	}
	return cfg, nil
}

//decode is weakly typed so environment strings and JSON numbers land in typed fields
func decode(input interface{}, out interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

//WatchConfig reloads the config file on write and hands the fresh config to apply
func WatchConfig(v *viper.Viper, log logrus.FieldLogger, apply func(Config)) {
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := LoadConfig(v)
		if err != nil {
			log.WithError(err).WithField("file", e.Name).Warn("config reload rejected")
			return
		}
		log.WithField("file", e.Name).Info("config reloaded")
		apply(cfg)
	})
	v.WatchConfig()
}
