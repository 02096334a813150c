package utils

import (
	G "diesel.com/sph2d/geometry"
	"gonum.org/v1/gonum/spatial/r2"
)

//Application Specific Positional Data Transfer. Positions are flattened into an interleaved
//x,y float32 buffer, the layout a renderer uploads as a vertex buffer.
//dst is reused when it has room.
func PackPositions(dst []float32, positions []r2.Vec) []float32 {
	dst = dst[:0]
	for _, p := range positions {
		dst = append(dst, float32(p.X), float32(p.Y))
	}
	return dst
}

//NormalizePositions packs positions mapped into [0,1]^2 of the domain, (0,0) at the
//bottom left border
func NormalizePositions(dst []float32, positions []r2.Vec, bounds G.Bounds) []float32 {
	size := bounds.Size()
	dst = dst[:0]
	for _, p := range positions {
		dst = append(dst,
			float32((p.X-bounds.Left)/size.X),
			float32((p.Y-bounds.Bottom)/size.Y))
	}
	return dst
}

//Scales Position List Points Around an Origin
func ScalePositions(pos []r2.Vec, origin r2.Vec, scale float64) {
	for i, v := range pos {
		pos[i] = r2.Add(origin, r2.Scale(scale, r2.Sub(v, origin)))
	}
}
