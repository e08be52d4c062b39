package arch

import "math"

// MeshCoordinate identifies a tile position on the 2D NoC mesh.
type MeshCoordinate struct {
	X int
	Y int
}

// ManhattanDistance returns the hop distance between two mesh coordinates.
func ManhattanDistance(a, b MeshCoordinate) int {
	dx := a.X - b.X
	if dx < 0 {
		dx = -dx
	}
	dy := a.Y - b.Y
	if dy < 0 {
		dy = -dy
	}
	return dx + dy
}

// TileHopDistance returns the mesh distance between two tiles, 0 when either
// id is unknown.
func (a *Architecture) TileHopDistance(src, dst int) int {
	if src < 0 || dst < 0 || src >= len(a.Tiles) || dst >= len(a.Tiles) {
		return 0
	}
	return ManhattanDistance(a.Tiles[src].Coord, a.Tiles[dst].Coord)
}

// buildMesh lays count tiles out row-major on the smallest square-ish grid.
func buildMesh(count int) (rows int, cols int, coords []MeshCoordinate) {
	if count <= 0 {
		return 0, 0, nil
	}
	side := int(math.Ceil(math.Sqrt(float64(count))))
	cols = side
	rows = int(math.Ceil(float64(count) / float64(cols)))
	coords = make([]MeshCoordinate, 0, count)
	for idx := 0; idx < count; idx++ {
		coords = append(coords, MeshCoordinate{X: idx % cols, Y: idx / cols})
	}
	return rows, cols, coords
}
