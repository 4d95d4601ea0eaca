package billboard

import (
	"image"
	"image/color"
	"math"
	"testing"

	"impostor-baker/internal/octahedral"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	red   = color.NRGBA{255, 0, 0, 255}
	green = color.NRGBA{0, 255, 0, 255}
	blue  = color.NRGBA{0, 0, 255, 255}
	white = color.NRGBA{255, 255, 255, 255}
)

// quadAtlas is a 2×2 tile atlas of uniformly colored 4×4 tiles:
// (0,0) red, (1,0) green, (0,1) blue, (1,1) white.
func quadAtlas() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	colors := map[[2]int]color.NRGBA{{0, 0}: red, {1, 0}: green, {0, 1}: blue, {1, 1}: white}
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.SetNRGBA(x, y, colors[[2]int{x / 4, y / 4}])
		}
	}
	return img
}

func solid(size int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func newQuad(t *testing.T, opts Options) *Billboard {
	t.Helper()
	atlas := quadAtlas()
	b, err := New(atlas, atlas, 2, opts)
	require.NoError(t, err)
	return b
}

func assertColor(t *testing.T, want, got color.NRGBA, delta float64) {
	t.Helper()
	assert.InDelta(t, float64(want.R), float64(got.R), delta, "R")
	assert.InDelta(t, float64(want.G), float64(got.G), delta, "G")
	assert.InDelta(t, float64(want.B), float64(got.B), delta, "B")
}

func TestNewRejectsMismatchedAtlases(t *testing.T) {
	a := solid(8, white)
	_, err := New(a, solid(16, white), 2, DefaultOptions())
	assert.ErrorIs(t, err, ErrAtlasMismatch)

	_, err = New(a, a, 3, DefaultOptions())
	assert.ErrorIs(t, err, ErrAtlasMismatch)

	_, err = New(a, nil, 2, DefaultOptions())
	assert.ErrorIs(t, err, ErrAtlasMismatch)

	wide := image.NewNRGBA(image.Rect(0, 0, 8, 4))
	_, err = New(wide, wide, 2, DefaultOptions())
	assert.ErrorIs(t, err, ErrAtlasMismatch)
}

func TestLocalViewDir(t *testing.T) {
	b := newQuad(t, DefaultOptions())

	b.SetTransform(mgl64.Translate3D(10, 0, 0))
	b.SetCameraPosition(mgl64.Vec3{10, 0, 5})
	assert.InDelta(t, 0, b.LocalViewDir().Sub(mgl64.Vec3{0, 0, 1}).Len(), 1e-9)

	// Local +Z faces world +X after a quarter turn about Y.
	b.SetTransform(mgl64.HomogRotate3DY(math.Pi / 2))
	b.SetCameraPosition(mgl64.Vec3{3, 0, 0})
	assert.InDelta(t, 0, b.LocalViewDir().Sub(mgl64.Vec3{0, 0, 1}).Len(), 1e-9)

	b.SetTransform(mgl64.Ident4())
	b.SetCameraPosition(mgl64.Vec3{})
	assert.Equal(t, mgl64.Vec3{0, 0, 1}, b.LocalViewDir())
}

func TestTileBlendFacingPlusZ(t *testing.T) {
	b := newQuad(t, DefaultOptions())
	b.SetCameraPosition(mgl64.Vec3{0, 0, 4})

	base, frac := b.TileBlend()
	assert.Equal(t, [2]int{1, 1}, base)
	assert.InDelta(t, 0, frac[0], 1e-12)
	assert.InDelta(t, 0, frac[1], 1e-12)

	c, ok := b.Sample(0.5, 0.5)
	require.True(t, ok)
	assertColor(t, white, c, 0)
}

func TestSampleBlendsFourTiles(t *testing.T) {
	b := newQuad(t, DefaultOptions())
	// uv (0.25, 0.25) sits halfway between all four tiles of a 2×2 grid.
	b.SetCameraPosition(octahedral.Decode(octahedral.ToSigned(mgl64.Vec2{0.25, 0.25})).Mul(3))

	base, frac := b.TileBlend()
	assert.Equal(t, [2]int{0, 0}, base)
	assert.InDelta(t, 0.5, frac[0], 1e-9)
	assert.InDelta(t, 0.5, frac[1], 1e-9)

	c, ok := b.Sample(0.5, 0.5)
	require.True(t, ok)
	assertColor(t, color.NRGBA{128, 128, 128, 255}, c, 1)
}

func TestEdgePolicies(t *testing.T) {
	// uv (0.75, 0.5): base tile (1,1), halfway toward column 2.
	cam := octahedral.Decode(octahedral.ToSigned(mgl64.Vec2{0.75, 0.5})).Mul(2)

	clamp := newQuad(t, Options{Edge: EdgeClamp})
	clamp.SetCameraPosition(cam)
	c, ok := clamp.Sample(0.5, 0.5)
	require.True(t, ok)
	assertColor(t, white, c, 1)

	wrap := newQuad(t, Options{Edge: EdgeWrap})
	wrap.SetCameraPosition(cam)
	c, ok = wrap.Sample(0.5, 0.5)
	require.True(t, ok)
	// Column 2 wraps to column 0, row 1: blue.
	assertColor(t, color.NRGBA{128, 128, 255, 255}, c, 1)
}

func TestResolve(t *testing.T) {
	tests := []struct {
		edge EdgePolicy
		in   []int
		want []int
	}{
		{EdgeClamp, []int{-1, 0, 3, 4, 5}, []int{0, 0, 3, 3, 3}},
		{EdgeWrap, []int{-1, 0, 3, 4, 5}, []int{3, 0, 3, 0, 1}},
		{EdgeMirror, []int{-1, 0, 3, 4, 5}, []int{0, 0, 3, 3, 2}},
	}
	for _, tt := range tests {
		b := &Billboard{tiles: 4, opts: Options{Edge: tt.edge}}
		for i, in := range tt.in {
			assert.Equal(t, tt.want[i], b.resolve(in), "edge %d index %d", tt.edge, in)
		}
	}
}

func TestSampleDiscardsEmpty(t *testing.T) {
	black := solid(8, color.NRGBA{0, 0, 0, 255})
	b, err := New(black, black, 2, DefaultOptions())
	require.NoError(t, err)

	_, ok := b.Sample(0.5, 0.5)
	assert.False(t, ok)
}

func TestSourceSelectsAtlas(t *testing.T) {
	albedo := solid(8, red)
	normal := solid(8, blue)

	b, err := New(albedo, normal, 2, DefaultOptions())
	require.NoError(t, err)
	c, _ := b.Sample(0.5, 0.5)
	assertColor(t, blue, c, 0)

	b, err = New(albedo, normal, 2, Options{Source: SourceAlbedo})
	require.NoError(t, err)
	c, _ = b.Sample(0.5, 0.5)
	assertColor(t, red, c, 0)
}

func TestDraw(t *testing.T) {
	atlas := solid(8, white)
	b, err := New(atlas, atlas, 2, DefaultOptions())
	require.NoError(t, err)

	dst := image.NewNRGBA(image.Rect(0, 0, 64, 64))
	n := b.Draw(dst, mgl64.Ident4(), 16)
	assert.Equal(t, 16*16, n)
	assert.Equal(t, white, dst.NRGBAAt(32, 32))
	assert.Equal(t, color.NRGBA{}, dst.NRGBAAt(10, 10))
}

func TestDrawClipsToTarget(t *testing.T) {
	atlas := solid(8, white)
	b, err := New(atlas, atlas, 2, DefaultOptions())
	require.NoError(t, err)
	// Origin on the right edge of the target.
	b.SetTransform(mgl64.Translate3D(1, 0, 0))

	dst := image.NewNRGBA(image.Rect(0, 0, 64, 64))
	assert.Equal(t, 8*16, b.Draw(dst, mgl64.Ident4(), 16))
}

func TestDrawBehindViewer(t *testing.T) {
	atlas := solid(8, white)
	b, err := New(atlas, atlas, 2, DefaultOptions())
	require.NoError(t, err)

	flip := mgl64.Ident4()
	flip[15] = -1
	dst := image.NewNRGBA(image.Rect(0, 0, 16, 16))
	assert.Zero(t, b.Draw(dst, flip, 8))
	assert.Zero(t, b.Draw(dst, mgl64.Ident4(), 0))
}
