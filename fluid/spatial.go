package fluid

import (
	"cmp"
	"math"
	"slices"

	"gonum.org/v1/gonum/spatial/r2"
)

//CellIndex - integer cell coordinate floor(position / h)
type CellIndex [2]int

//Spatial Hash Grid - maps a cell of side h to the particle indices whose predicted position
//falls inside it. Rebuilt from scratch every step, holds indices only.
//Entries are kept sorted by cell so every cell is one contiguous span of the entry slice.
type SpatialHashGrid struct {
	H       float64                //Cell side, equal to the smoothing radius
	keys    []CellIndex            //Cell of every particle, by particle index
	entries []gridEntry            //Particle indices sorted by cell
	spans   map[CellIndex]cellSpan //Cell -> entries[start:start+count]
}

//-----------------------Utility Structs--------------------------------//

type gridEntry struct {
	cell  CellIndex
	index int
}

type cellSpan struct {
	start int
	count int
}

//----------------------------------------------------------------------//

//NewSpatialHashGrid - empty grid with cell side h
func NewSpatialHashGrid(h float64) *SpatialHashGrid {
	return &SpatialHashGrid{H: h, spans: make(map[CellIndex]cellSpan)}
}

//Hash discretizes a position. Coordinates beyond the int range saturate.
func (shg *SpatialHashGrid) Hash(p r2.Vec) CellIndex {
	return CellIndex{cellCoord(p.X, shg.H), cellCoord(p.Y, shg.H)}
}

//maxCell leaves headroom for the +-1 offsets of a neighbour query
const maxCell = math.MaxInt >> 1

func cellCoord(v float64, h float64) int {
	c := math.Floor(v / h)
	if math.IsNaN(c) {
		return 0
	}
	if c >= maxCell {
		return maxCell
	}
	if c <= -maxCell {
		return -maxCell
	}
	return int(c)
}

//Build indexes the predicted positions of particles
func (shg *SpatialHashGrid) Build(particles []Particle, h float64) {
	shg.reset(len(particles), h)
	for i := range particles {
		shg.insert(i, particles[i].Predicted)
	}
	shg.finish()
}

//BuildPositions indexes an arbitrary position slice
func (shg *SpatialHashGrid) BuildPositions(positions []r2.Vec, h float64) {
	shg.reset(len(positions), h)
	for i, p := range positions {
		shg.insert(i, p)
	}
	shg.finish()
}

func (shg *SpatialHashGrid) reset(n int, h float64) {
	shg.H = h
	shg.keys = slices.Grow(shg.keys[:0], n)
	shg.entries = slices.Grow(shg.entries[:0], n)
	if shg.spans == nil {
		shg.spans = make(map[CellIndex]cellSpan)
	}
	clear(shg.spans)
}

func (shg *SpatialHashGrid) insert(i int, p r2.Vec) {
	c := shg.Hash(p)
	shg.keys = append(shg.keys, c)
	shg.entries = append(shg.entries, gridEntry{cell: c, index: i})
}

func (shg *SpatialHashGrid) finish() {
	slices.SortFunc(shg.entries, func(a, b gridEntry) int {
		if c := cmp.Compare(a.cell[0], b.cell[0]); c != 0 {
			return c
		}
		if c := cmp.Compare(a.cell[1], b.cell[1]); c != 0 {
			return c
		}
		return cmp.Compare(a.index, b.index)
	})
	for start := 0; start < len(shg.entries); {
		end := start + 1
		for end < len(shg.entries) && shg.entries[end].cell == shg.entries[start].cell {
			end++
		}
		shg.spans[shg.entries[start].cell] = cellSpan{start: start, count: end - start}
		start = end
	}
}

//Len - number of indexed particles
func (shg *SpatialHashGrid) Len() int {
	return len(shg.keys)
}

//Cells - number of occupied cells
func (shg *SpatialHashGrid) Cells() int {
	return len(shg.spans)
}

//Cell returns the cell particle i was indexed into
func (shg *SpatialHashGrid) Cell(i int) CellIndex {
	return shg.keys[i]
}
