package fluid

import "gonum.org/v1/gonum/spatial/r2"

//Neighbour queries over a built SpatialHashGrid. A query visits the 3x3 block of cells around
//the probe cell, so with cell side h every particle within h of the probe is returned.
//Candidates further than h are returned too, callers filter by distance.

//Radial Grid Search Return Valued
type NeighborGrid [9]CellIndex

//GetNeighborGrid - the probe cell and its 8 surrounding cells
func GetNeighborGrid(c CellIndex) NeighborGrid {
	var nh NeighborGrid
	k := 0
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			nh[k] = CellIndex{c[0] + dx, c[1] + dy}
			k++
		}
	}
	return nh
}

//Neighbors appends to dst the indices in the 3x3 block around particle i's cell, i included
func (shg *SpatialHashGrid) Neighbors(i int, dst []int) []int {
	return shg.gather(shg.keys[i], dst)
}

//NeighborsOf runs the same query for an arbitrary point
func (shg *SpatialHashGrid) NeighborsOf(p r2.Vec, dst []int) []int {
	return shg.gather(shg.Hash(p), dst)
}

func (shg *SpatialHashGrid) gather(c CellIndex, dst []int) []int {
	for _, cell := range GetNeighborGrid(c) {
		span, ok := shg.spans[cell]
		if !ok {
			continue
		}
		for _, e := range shg.entries[span.start : span.start+span.count] {
			dst = append(dst, e.index)
		}
	}
	return dst
}
