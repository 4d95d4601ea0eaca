package atlas

import (
	"image"
	"testing"

	"impostor-baker/internal/camera"
	"impostor-baker/internal/dilate"
	"impostor-baker/internal/mesh"
	"impostor-baker/internal/raster"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bakeOpts(n, r int) Options {
	opts := DefaultOptions()
	opts.Tiles = n
	opts.Resolution = r
	return opts
}

func TestTilesOrder(t *testing.T) {
	tiles := Tiles(3)
	require.Len(t, tiles, 9)
	assert.Equal(t, Tile{0, 0}, tiles[0])
	assert.Equal(t, Tile{0, 1}, tiles[1])
	assert.Equal(t, Tile{1, 0}, tiles[3])
	assert.Equal(t, Tile{2, 2}, tiles[8])
}

func TestTileRectsPartitionAtlas(t *testing.T) {
	for _, tc := range []struct{ n, r int }{{2, 8}, {4, 256}, {16, 2048}} {
		cover := make([]int, tc.r*tc.r)
		area := 0
		for _, tile := range Tiles(tc.n) {
			rect := TileRect(tile, tc.n, tc.r)
			require.True(t, rect.In(image.Rect(0, 0, tc.r, tc.r)), "%v outside atlas", rect)
			area += rect.Dx() * rect.Dy()
			for y := rect.Min.Y; y < rect.Max.Y; y++ {
				for x := rect.Min.X; x < rect.Max.X; x++ {
					cover[y*tc.r+x]++
				}
			}
		}
		assert.Equal(t, tc.r*tc.r, area)
		for i, c := range cover {
			if c != 1 {
				t.Fatalf("N=%d R=%d: pixel %d covered %d times", tc.n, tc.r, i, c)
			}
		}
	}
}

func TestSignedCoordCorners(t *testing.T) {
	n := 4
	assert.Equal(t, mgl64.Vec2{-1, -1}, SignedCoord(Tile{0, 0}, n))
	assert.Equal(t, mgl64.Vec2{1, 1}, SignedCoord(Tile{3, 3}, n))
	assert.Equal(t, mgl64.Vec2{1, -1}, SignedCoord(Tile{3, 0}, n))
}

func TestTileDirectionsAreUnit(t *testing.T) {
	for _, tile := range Tiles(8) {
		assert.InDelta(t, 1.0, TileDirection(tile, 8).Len(), 1e-9, "%v", tile)
	}
}

func TestNearestTile(t *testing.T) {
	assert.Equal(t, Tile{2, 2}, NearestTile(mgl64.Vec3{0, 0, 1}, 5))
	assert.Equal(t, Tile{4, 2}, NearestTile(mgl64.Vec3{1, 0, 0}, 5))
	assert.Equal(t, Tile{0, 0}, NearestTile(mgl64.Vec3{0, 0, -1}, 5))
}

func TestOptionsValidate(t *testing.T) {
	cases := []Options{
		bakeOpts(1, 64),
		bakeOpts(4, 2),
		bakeOpts(3, 64),
		{Tiles: 4, Resolution: 64, Supersample: -1},
	}
	for _, opts := range cases {
		assert.ErrorIs(t, opts.Validate(), ErrInvalidOptions, "%+v", opts)
	}
	assert.NoError(t, DefaultOptions().Validate())
}

func TestBakeRejectsEmptyMesh(t *testing.T) {
	_, err := Bake(&mesh.Mesh{}, bakeOpts(4, 64))
	assert.ErrorIs(t, err, ErrGeometry)
}

func TestBakeRejectsDegenerateMesh(t *testing.T) {
	m := &mesh.Mesh{Positions: []mgl64.Vec3{{1, 1, 1}, {1, 1, 1}}}
	_, err := Bake(m, bakeOpts(4, 64))
	assert.ErrorIs(t, err, ErrGeometry)
}

func TestBakeRejectsOversizedAtlas(t *testing.T) {
	_, err := Bake(mesh.UVSphere(1, 8, 4), bakeOpts(16, 2*MaxResolution))
	assert.ErrorIs(t, err, ErrResource)
}

func TestBakeWithoutTrianglesIsEmpty(t *testing.T) {
	m := &mesh.Mesh{Positions: []mgl64.Vec3{{-1, 0, 0}, {1, 0, 0}, {0, 1, 0}}}
	res, err := Bake(m, bakeOpts(4, 64))
	require.NoError(t, err)
	assert.Equal(t, 64*64, dilate.CountEmpty(res.Albedo, 1e-5))
	assert.Equal(t, 64*64, dilate.CountEmpty(res.Normal, 1e-5))
}

func TestBakeObserverSeesEveryDirection(t *testing.T) {
	var dirs, positions []mgl64.Vec3
	opts := bakeOpts(4, 64)
	opts.OnDirectionSampled = func(d, p mgl64.Vec3) {
		dirs = append(dirs, d)
		positions = append(positions, p)
	}

	res, err := Bake(mesh.UVSphere(2, 16, 8), opts)
	require.NoError(t, err)
	require.Len(t, dirs, 16)

	for i, tile := range Tiles(4) {
		assert.InDelta(t, 0, dirs[i].Sub(TileDirection(tile, 4)).Len(), 1e-12, "tile %v", tile)
		assert.InDelta(t, res.Radius, positions[i].Len(), 1e-9)
	}
}

func TestBakeSphereFillsEveryTile(t *testing.T) {
	res, err := Bake(mesh.UVSphere(1, 32, 16), bakeOpts(4, 256))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, res.Radius, 1e-9)

	for _, tile := range Tiles(4) {
		rect := res.TileRect(tile)
		sub := res.Normal.SubImage(rect).(*image.NRGBA)
		empty := dilate.CountEmpty(sub, 1e-5)
		assert.Less(t, empty, rect.Dx()*rect.Dy(), "tile %v is empty", tile)

		// The sphere fills the inscribed disc; the tile corner stays background.
		assert.True(t, dilate.IsEmpty(res.Normal, rect.Min.X, rect.Min.Y, 1e-5), "tile %v corner", tile)
	}
}

func TestBakeNormalFacingViewer(t *testing.T) {
	n, r := 5, 320
	res, err := Bake(mesh.UVSphere(1, 32, 16), bakeOpts(n, r))
	require.NoError(t, err)

	rect := res.TileRect(NearestTile(mgl64.Vec3{0, 0, 1}, n))
	c := res.Normal.NRGBAAt((rect.Min.X+rect.Max.X)/2, (rect.Min.Y+rect.Max.Y)/2)
	assert.InDelta(t, 128, int(c.R), 8)
	assert.InDelta(t, 128, int(c.G), 8)
	assert.InDelta(t, 255, int(c.B), 8)
	assert.Equal(t, uint8(255), c.A)

	a := res.Albedo.NRGBAAt((rect.Min.X+rect.Max.X)/2, (rect.Min.Y+rect.Max.Y)/2)
	assert.Equal(t, uint8(255), a.R, "flat albedo is white")
}

func TestBakeSupersampled(t *testing.T) {
	opts := bakeOpts(4, 128)
	opts.Supersample = 2
	res, err := Bake(mesh.UVSphere(1, 24, 12), opts)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 128, 128), res.Albedo.Bounds())

	for _, tile := range Tiles(4) {
		rect := res.TileRect(tile)
		sub := res.Albedo.SubImage(rect).(*image.NRGBA)
		assert.Less(t, dilate.CountEmpty(sub, 1e-5), rect.Dx()*rect.Dy(), "tile %v", tile)
	}
}

func TestBakeCentersButKeepsNormals(t *testing.T) {
	m := mesh.Box(2, 2, 2)
	for i := range m.Positions {
		m.Positions[i] = m.Positions[i].Add(mgl64.Vec3{5, 0, 0})
	}
	m.Normals = nil

	res, err := Bake(m, bakeOpts(2, 32))
	require.NoError(t, err)
	assert.InDelta(t, 0, res.Offset.Sub(mgl64.Vec3{-5, 0, 0}).Len(), 1e-12)
	assert.Nil(t, m.Normals, "caller mesh gains no normals")

	lo, hi, err := m.Bounds()
	require.NoError(t, err)
	assert.InDelta(t, 0, lo.Add(hi).Len(), 1e-12, "mesh is centered")
}

func assertTileContained(t *testing.T, fb *raster.FrameBuffer, rect image.Rectangle) {
	t.Helper()
	inside, outside := 0, 0
	for y := 0; y < fb.Height; y++ {
		for x := 0; x < fb.Width; x++ {
			if fb.Color[(y*fb.Width+x)*4+3] == 0 {
				continue
			}
			if image.Pt(x, y).In(rect) {
				inside++
			} else {
				outside++
			}
		}
	}
	assert.Equal(t, rect.Dx()*rect.Dy(), inside, "mesh overflows the tile, every tile pixel is covered")
	assert.Zero(t, outside, "writes outside %v", rect)
	assert.Equal(t, fb.Bounds(), fb.Viewport(), "viewport restored")
	assert.False(t, fb.ScissorEnabled(), "scissor disabled")
}

// overflowCamera frames a small part of a unit sphere so the projected mesh
// is far larger than any tile.
func overflowCamera() *camera.Ortho {
	cam := camera.ForRadius(0.2)
	cam.LookAt(mgl64.Vec3{0, 0, 5}, mgl64.Vec3{})
	return cam
}

func TestRenderTileStaysInsideRect(t *testing.T) {
	fb := raster.NewFrameBuffer(64, 64)
	rect := image.Rect(16, 32, 32, 48)
	call := raster.DrawCall{Mode: raster.RenderAlbedo}

	renderTile(fb, rect, mesh.UVSphere(1, 24, 12), overflowCamera(), call)
	assertTileContained(t, fb, rect)

	// A second tile starts from the restored full-canvas state.
	next := image.Rect(48, 0, 64, 16)
	renderTile(fb, next, mesh.UVSphere(1, 24, 12), overflowCamera(), call)
	assert.Equal(t, uint8(255), fb.Color[(0*64+48)*4+3])
	assert.Equal(t, fb.Bounds(), fb.Viewport())
	assert.False(t, fb.ScissorEnabled())
}

func TestRenderSupersampledStaysInsideRect(t *testing.T) {
	fb := raster.NewFrameBuffer(64, 64)
	scratch := raster.NewFrameBuffer(32, 32)
	rect := image.Rect(16, 32, 32, 48)
	call := raster.DrawCall{Mode: raster.RenderNormal}

	renderSupersampled(fb, scratch, rect, mesh.UVSphere(1, 24, 12), overflowCamera(), call, 16)
	assertTileContained(t, fb, rect)
}
