package atlas

import (
	"image"

	"impostor-baker/internal/octahedral"

	"github.com/go-gl/mathgl/mgl64"
)

// Tile indexes one baked direction. X and Y are in [0, N-1].
type Tile struct {
	X, Y int
}

// Tiles lists every tile in bake order: x outer, y inner.
func Tiles(n int) []Tile {
	tiles := make([]Tile, 0, n*n)
	for x := 0; x < n; x++ {
		for y := 0; y < n; y++ {
			tiles = append(tiles, Tile{X: x, Y: y})
		}
	}
	return tiles
}

// TileRect returns the region of an r×r atlas that tile t writes into.
func TileRect(t Tile, n, r int) image.Rectangle {
	size := r / n
	x0, y0 := t.X*size, t.Y*size
	return image.Rect(x0, y0, x0+size, y0+size)
}

// SignedCoord maps a tile to its octahedral coordinate: the corners of the
// tile grid land on the corners of [-1,1]².
func SignedCoord(t Tile, n int) mgl64.Vec2 {
	d := float64(n - 1)
	return mgl64.Vec2{2*float64(t.X)/d - 1, 2*float64(t.Y)/d - 1}
}

// TileDirection returns the unit view direction baked into tile t.
func TileDirection(t Tile, n int) mgl64.Vec3 {
	return octahedral.Decode(SignedCoord(t, n))
}

// NearestTile returns the tile whose baked direction has the largest dot
// product with dir. Ties keep the first tile in bake order.
func NearestTile(dir mgl64.Vec3, n int) Tile {
	dir = dir.Normalize()
	best := Tile{}
	bestDot := -2.0
	for _, t := range Tiles(n) {
		if d := TileDirection(t, n).Dot(dir); d > bestDot {
			bestDot = d
			best = t
		}
	}
	return best
}
