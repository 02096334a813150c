package app

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	F "diesel.com/sph2d/fluid"
	"gonum.org/v1/gonum/spatial/r2"
)

func newTestScene(t *testing.T, cfg Config) *Scene {
	t.Helper()
	s, err := NewScene(cfg, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestSceneRunFrames(t *testing.T) {
	cfg := smallConfig()
	cfg.Frames = 12
	cfg.Heatmap.Dir = filepath.Join(t.TempDir(), "heat")
	cfg.Heatmap.Every = 5
	cfg.Heatmap.Cols, cfg.Heatmap.Rows = 16, 16
	s := newTestScene(t, cfg)

	if err := s.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if s.Frames() != 12 || s.Fluid.Frame() != 24 {
		t.Errorf("Expected 12 frames of 2 substeps, got %d / %d", s.Frames(), s.Fluid.Frame())
	}

	entries, err := os.ReadDir(cfg.Heatmap.Dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Errorf("Expected heatmaps for frames 5 and 10, got %d files", len(entries))
	}
}

func TestSceneRunCancel(t *testing.T) {
	cfg := smallConfig()
	cfg.FPS = 200
	s := newTestScene(t, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := s.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline error got %v", err)
	}
}

func TestSceneParamsAndReset(t *testing.T) {
	s := newTestScene(t, smallConfig())

	if err := s.SubmitParams(map[string]interface{}{"rest_density": 3, "gravity_y": "-2"}); err != nil {
		t.Fatal(err)
	}
	if err := s.SubmitParams(map[string]interface{}{"kernel": "muller"}); err != nil {
		t.Fatal(err)
	}
	if err := s.SubmitParams(map[string]interface{}{"kernel": "box"}); err == nil {
		t.Errorf("Expected kernel rejection")
	}
	//Queued input is only applied by the simulation goroutine
	if s.Fluid.RestDensity() == 3 {
		t.Fatalf("Params applied before the frame")
	}

	if err := s.Advance(); err != nil {
		t.Fatal(err)
	}
	p := s.Fluid.Params()
	if p.RestDensity != 3 || p.Gravity != (r2.Vec{X: 0, Y: -2}) || p.Kernel != F.KernelMuller {
		t.Errorf("Merged params not applied %+v", p)
	}

	first := s.Fluid.Particles()
	if err := s.Advance(); err != nil {
		t.Fatal(err)
	}
	s.SubmitReset()
	if err := s.Advance(); err != nil {
		t.Fatal(err)
	}
	if s.Frames() != 1 {
		t.Errorf("Reset should restart the frame count, got %d", s.Frames())
	}
	if s.Fluid.Len() != len(first) {
		t.Errorf("Reset changed the particle count")
	}
}

func TestSceneSubmitConfig(t *testing.T) {
	s := newTestScene(t, smallConfig())
	cfg := smallConfig()
	cfg.Particles = 60
	cfg.Fluid.Drag = 0.5
	s.SubmitConfig(cfg)
	s.SubmitReset()

	if err := s.Advance(); err != nil {
		t.Fatal(err)
	}
	if s.Fluid.Len() != 60 || s.Fluid.Params().Drag != 0.5 {
		t.Errorf("Config not applied: %d particles drag %f", s.Fluid.Len(), s.Fluid.Params().Drag)
	}
}

func TestSceneHeldInteraction(t *testing.T) {
	cfg := smallConfig()
	cfg.Particles = 1
	cfg.Layout = LayoutGrid
	cfg.OriginX, cfg.OriginY = 0.5, 0
	cfg.Fluid.GravityY = 0
	cfg.Fluid.Drag = 1
	s := newTestScene(t, cfg)

	s.SubmitInteraction(F.Interaction{Point: r2.Vec{}, Strength: 2, Radius: 1})
	if err := s.Advance(); err != nil {
		t.Fatal(err)
	}
	v1 := s.Fluid.Particle(0).Velocity
	if !(v1.X < 0) {
		t.Fatalf("Held interaction should pull toward the point, velocity %v", v1)
	}

	//Every substep of every frame sees the held interaction
	if err := s.Advance(); err != nil {
		t.Fatal(err)
	}
	v2 := s.Fluid.Particle(0).Velocity
	if !(v2.X < v1.X) {
		t.Errorf("Held interaction not reapplied %v -> %v", v1, v2)
	}

	s.SubmitRelease()
	if err := s.Advance(); err != nil {
		t.Fatal(err)
	}
	v3 := s.Fluid.Particle(0).Velocity
	if math.Abs(v3.X-v2.X) > 1e-12 {
		t.Errorf("Released interaction still applied %v -> %v", v2, v3)
	}
}

func TestSceneFrame(t *testing.T) {
	s := newTestScene(t, smallConfig())
	f := s.Frame()
	if f.Type != MsgFrame || f.Count != s.Fluid.Len() || len(f.Positions) != 2*f.Count {
		t.Fatalf("Frame shape %d %d", f.Count, len(f.Positions))
	}
	for i, v := range f.Positions {
		if v < 0 || v > 1 {
			t.Errorf("Position component %d not normalized: %f", i, v)
		}
	}
}

func TestSceneFrameRaw(t *testing.T) {
	cfg := smallConfig()
	cfg.Stream.Normalized = false
	s := newTestScene(t, cfg)
	f := s.Frame()
	if f.Normalized {
		t.Fatalf("Frame reports normalized positions")
	}
	p := s.Fluid.Particle(3)
	if f.Positions[6] != float32(p.Position.X) || f.Positions[7] != float32(p.Position.Y) {
		t.Errorf("Raw position %f %f, expected %s", f.Positions[6], f.Positions[7], p.String())
	}
}
