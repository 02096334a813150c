package utils

import (
	"testing"

	G "diesel.com/sph2d/geometry"
	"gonum.org/v1/gonum/spatial/r2"
)

func TestPackPositions(t *testing.T) {
	positions := []r2.Vec{{X: 1, Y: 0}, {X: -0.5, Y: 0.25}, {X: 0, Y: -1}}
	buf := make([]float32, 0, 2)

	buf = PackPositions(buf, positions)
	want := []float32{1, 0, -0.5, 0.25, 0, -1}
	if len(buf) != len(want) {
		t.Fatalf("Improper buffer length %d", len(buf))
	}
	for i := range want {
		if buf[i] != want[i] {
			t.Errorf("Improper Buffer Load at index %d\n", i)
		}
	}

	//Reuse shrinks the buffer
	buf = PackPositions(buf, positions[:1])
	if len(buf) != 2 {
		t.Errorf("Reused buffer length %d", len(buf))
	}
}

func TestNormalizePositions(t *testing.T) {
	b := G.NewBounds(-1, 1, -2, 2)
	buf := NormalizePositions(nil, []r2.Vec{{X: -1, Y: -2}, {X: 1, Y: 2}, {X: 0, Y: 0}}, b)
	want := []float32{0, 0, 1, 1, 0.5, 0.5}
	for i := range want {
		if buf[i] != want[i] {
			t.Errorf("Normalized index %d = %f want %f", i, buf[i], want[i])
		}
	}
}

func TestScalePositions(t *testing.T) {
	pos := []r2.Vec{{X: 2, Y: 2}, {X: 0, Y: 1}}
	ScalePositions(pos, r2.Vec{X: 0, Y: 1}, 0.5)
	if pos[0] != (r2.Vec{X: 1, Y: 1.5}) || pos[1] != (r2.Vec{X: 0, Y: 1}) {
		t.Errorf("Scale around origin failed %v", pos)
	}
}
