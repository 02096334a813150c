package app

//Manages Fluid Scene Routine - Composes Concurrency Demands and Animation - Timing Settings
import (
	"context"
	"fmt"
	"sync"
	"time"

	F "diesel.com/sph2d/fluid"
	U "diesel.com/sph2d/utils"
	"github.com/mazznoer/colorgrad"
	"github.com/sirupsen/logrus"
)

//Seconds timer for animation
type AnimationTimer struct {
	AppStart    time.Time //Time Application Started
	CurrentTime time.Time //Last Polled Time
	LastFrame   time.Time //Last Time a Frame Was Advanced
	FrameTime   time.Duration
}

func NewAnimationTimer() *AnimationTimer {
	now := time.Now()
	return &AnimationTimer{AppStart: now, CurrentTime: now, LastFrame: now}
}

//Tick records a finished frame
func (a *AnimationTimer) Tick() {
	a.CurrentTime = time.Now()
	a.FrameTime = a.CurrentTime.Sub(a.LastFrame)
	a.LastFrame = a.CurrentTime
}

//Scene owns a simulation and drives it frame by frame. Collaborator input (stream messages,
//config reloads) is queued through the Submit methods from any goroutine and applied on the
//simulation goroutine between steps.
type Scene struct {
	Config Config
	Fluid  *F.Simulation
	Anim   *AnimationTimer

	log    logrus.FieldLogger
	grad   colorgrad.Gradient
	stream *Stream
	frame  uint64
	packed []float32

	mu        sync.Mutex
	pendingCf *Config
	pendingFl *FluidConfig
	reset     bool
	held      *F.Interaction
}

func NewScene(cfg Config, log logrus.FieldLogger) (*Scene, error) {
	fluid, err := NewFluid(cfg, log)
	if err != nil {
		return nil, err
	}
	grad, err := NewDensityGradient()
	if err != nil {
		return nil, fmt.Errorf("density gradient: %w", err)
	}
	return &Scene{
		Config: cfg,
		Fluid:  fluid,
		Anim:   NewAnimationTimer(),
		log:    log,
		grad:   grad,
	}, nil
}

//AttachStream publishes frames to st
func (s *Scene) AttachStream(st *Stream) {
	s.stream = st
}

//-----------------------------------------------------------------------------
//Inbox

//SubmitInteraction holds an interaction until SubmitRelease, it is applied every step
func (s *Scene) SubmitInteraction(in F.Interaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.held = &in
}

func (s *Scene) SubmitRelease() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.held = nil
}

//SubmitParams merges overrides keyed like the fluid section of the config file
func (s *Scene) SubmitParams(overrides map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.Config.Fluid
	if s.pendingFl != nil {
		next = *s.pendingFl
	}
	if err := decode(overrides, &next); err != nil {
		return fmt.Errorf("decode params: %w", err)
	}
	if _, err := next.Params(); err != nil {
		return err
	}
	s.pendingFl = &next
	return nil
}

//SubmitConfig replaces the whole configuration. Spawn settings apply on the next reset, the
//frame rate is read once when Run starts.
func (s *Scene) SubmitConfig(cfg Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingCf = &cfg
	s.pendingFl = nil
}

func (s *Scene) SubmitReset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset = true
}

//drain applies queued input, returns the held interaction
func (s *Scene) drain() (*F.Interaction, error) {
	s.mu.Lock()
	cfg, fl, reset, held := s.pendingCf, s.pendingFl, s.reset, s.held
	s.pendingCf, s.pendingFl, s.reset = nil, nil, false
	if cfg != nil {
		s.Config = *cfg
		fl = &cfg.Fluid
	}
	if fl != nil {
		s.Config.Fluid = *fl
	}
	s.mu.Unlock()

	if fl != nil {
		params, err := fl.Params()
		if err != nil {
			return nil, err
		}
		s.Fluid.SetParams(params)
		s.log.WithField("params", fmt.Sprintf("%+v", s.Fluid.Params())).Debug("scene parameters applied")
	}
	if reset {
		if err := SpawnParticles(s.Fluid, s.Config); err != nil {
			return nil, err
		}
		s.frame = 0
		s.log.WithField("particles", s.Fluid.Len()).Info("scene reset")
	}
	return held, nil
}

//-----------------------------------------------------------------------------
//Main loop

//Run advances frames until ctx is cancelled, the configured frame count is reached or a step
//fails. Frames are paced at Config.FPS when positive.
func (s *Scene) Run(ctx context.Context) error {
	var tick <-chan time.Time
	if s.Config.FPS > 0 {
		ticker := time.NewTicker(time.Duration(float64(time.Second) / s.Config.FPS))
		defer ticker.Stop()
		tick = ticker.C
	}

	for s.Config.Frames <= 0 || s.frame < uint64(s.Config.Frames) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick:
			}
		}
		if err := s.Advance(); err != nil {
			return err
		}
	}
	return nil
}

//Advance runs one frame: queued input, Substeps simulation steps, then the frame outputs
func (s *Scene) Advance() error {
	held, err := s.drain()
	if err != nil {
		return fmt.Errorf("scene input: %w", err)
	}

	substeps := max(s.Config.Substeps, 1)
	for k := 0; k < substeps; k++ {
		if held != nil {
			s.Fluid.ApplyInteraction(held.Point, held.Strength, held.Radius)
		}
		if err := s.Fluid.Step(); err != nil {
			return fmt.Errorf("frame %d: %w", s.frame, err)
		}
	}
	s.frame++
	s.Anim.Tick()

	return s.outputs()
}

func (s *Scene) outputs() error {
	if every(s.Config.StatsEvery, s.frame) {
		st := s.Fluid.Stats()
		s.log.WithFields(logrus.Fields{
			"frame":    s.frame,
			"time":     st.Time,
			"ke":       st.KineticEnergy,
			"rho_mean": st.MeanDensity,
			"rho_max":  st.MaxDensity,
			"vmax":     st.MaxSpeed,
			"frame_ms": s.Anim.FrameTime.Milliseconds(),
		}).Info("frame stats")
	}

	if s.Config.Heatmap.Dir != "" && every(s.Config.Heatmap.Every, s.frame) {
		name, err := WriteHeatmap(s.Config.Heatmap.Dir, s.frame, s.Fluid, s.Config.Heatmap.Cols, s.Config.Heatmap.Rows, s.grad)
		if err != nil {
			return err
		}
		s.log.WithField("file", name).Debug("heatmap written")
	}

	if s.stream != nil && every(s.Config.Stream.Every, s.frame) {
		if err := s.stream.Broadcast(s.Frame()); err != nil {
			return err
		}
	}
	return nil
}

//Frame snapshots the simulation for the stream, positions interleaved x,y
func (s *Scene) Frame() Frame {
	particles := s.Fluid.Particles()
	bounds := s.Fluid.Params().Bounds
	if s.Config.Stream.Normalized {
		s.packed = U.NormalizePositions(s.packed, positionsOf(particles), bounds)
	} else {
		s.packed = U.PackPositions(s.packed, positionsOf(particles))
	}
	positions := make([]float32, len(s.packed))
	copy(positions, s.packed)

	return Frame{
		Type:       MsgFrame,
		Frame:      s.frame,
		Time:       s.Fluid.Time(),
		Bounds:     bounds,
		Count:      len(particles),
		Normalized: s.Config.Stream.Normalized,
		Positions:  positions,
		Stats:      s.Fluid.Stats(),
	}
}

//Frames advanced since the last reset
func (s *Scene) Frames() uint64 {
	return s.frame
}

func every(n int, frame uint64) bool {
	return n > 0 && frame%uint64(n) == 0
}
