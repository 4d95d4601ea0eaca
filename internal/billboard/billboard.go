// Package billboard draws a baked impostor as a screen-facing quad whose
// texels cross-fade between the four baked directions nearest the viewer.
package billboard

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"impostor-baker/internal/mathutil"
	"impostor-baker/internal/octahedral"
	"impostor-baker/internal/raster"

	"github.com/go-gl/mathgl/mgl64"
)

// ErrAtlasMismatch reports atlases that cannot be sampled as a tile grid.
var ErrAtlasMismatch = errors.New("billboard: atlas mismatch")

// Source selects the atlas the quad samples.
type Source int

const (
	// SourceNormal samples the normal atlas, which keeps the silhouette:
	// an encoded unit normal is never near black.
	SourceNormal Source = iota
	// SourceAlbedo samples the (dilated) albedo atlas.
	SourceAlbedo
)

// EdgePolicy decides which tile the +1 neighbors read past the last column or row.
type EdgePolicy int

const (
	// EdgeClamp reuses the last tile.
	EdgeClamp EdgePolicy = iota
	// EdgeWrap continues from the first tile.
	EdgeWrap
	// EdgeMirror reflects back into the grid.
	EdgeMirror
)

// Options configures sampling.
type Options struct {
	Source  Source
	Edge    EdgePolicy
	Epsilon float64 // texels with every channel below this are discarded
}

// DefaultOptions samples the normal atlas with clamped edges.
func DefaultOptions() Options {
	return Options{Source: SourceNormal, Edge: EdgeClamp, Epsilon: 1e-5}
}

// Billboard references the atlases of one baked object. It does not own them.
type Billboard struct {
	albedo *image.NRGBA
	normal *image.NRGBA
	tiles  int
	opts   Options

	transform mgl64.Mat4
	cameraPos mgl64.Vec3
}

// New binds the atlases. Both must be square, equally sized, and divisible
// into tiles×tiles tiles.
func New(albedo, normal *image.NRGBA, tiles int, opts Options) (*Billboard, error) {
	if albedo == nil || normal == nil {
		return nil, fmt.Errorf("%w: nil atlas", ErrAtlasMismatch)
	}
	ab, nb := albedo.Bounds(), normal.Bounds()
	if ab.Dx() != ab.Dy() || ab.Size() != nb.Size() {
		return nil, fmt.Errorf("%w: albedo %v, normal %v", ErrAtlasMismatch, ab.Size(), nb.Size())
	}
	if tiles < 2 || ab.Dx()%tiles != 0 {
		return nil, fmt.Errorf("%w: %d tiles over %d pixels", ErrAtlasMismatch, tiles, ab.Dx())
	}
	if opts.Epsilon <= 0 {
		opts.Epsilon = DefaultOptions().Epsilon
	}
	return &Billboard{
		albedo:    albedo,
		normal:    normal,
		tiles:     tiles,
		opts:      opts,
		transform: mgl64.Ident4(),
		cameraPos: mgl64.Vec3{0, 0, 1},
	}, nil
}

// SetCameraPosition updates the world-space viewer position. Call once per
// displayed frame before sampling or drawing.
func (b *Billboard) SetCameraPosition(p mgl64.Vec3) {
	b.cameraPos = p
}

// CameraPosition returns the last viewer position set.
func (b *Billboard) CameraPosition() mgl64.Vec3 {
	return b.cameraPos
}

// SetTransform sets the object's local-to-world transform.
func (b *Billboard) SetTransform(m mgl64.Mat4) {
	b.transform = m
}

// Transform returns the local-to-world transform.
func (b *Billboard) Transform() mgl64.Mat4 {
	return b.transform
}

// Tiles returns the tile count per atlas side.
func (b *Billboard) Tiles() int {
	return b.tiles
}

// LocalViewDir returns the unit direction from the object to the camera in
// the object's local space. A camera at the object's origin yields +Z.
func (b *Billboard) LocalViewDir() mgl64.Vec3 {
	local := mgl64.TransformCoordinate(b.cameraPos, b.transform.Inv())
	if local.Len() < 1e-12 {
		return mgl64.Vec3{0, 0, 1}
	}
	return local.Normalize()
}

// TileBlend returns the integer tile base and the fractional blend weights
// for the current view direction.
func (b *Billboard) TileBlend() ([2]int, mgl64.Vec2) {
	uv := octahedral.ToUnsigned(octahedral.Encode(b.LocalViewDir()))
	n := float64(b.tiles)
	tu, tv := uv[0]*n, uv[1]*n
	bx, by := math.Floor(tu), math.Floor(tv)
	return [2]int{int(bx), int(by)}, mgl64.Vec2{tu - bx, tv - by}
}

// Sample returns the blended color at quad-local (u, v) in [0,1]², v down.
// The second result is false when the texel is discarded.
func (b *Billboard) Sample(u, v float64) (color.NRGBA, bool) {
	base, frac := b.TileBlend()
	return b.sample(base, frac, u, v)
}

func (b *Billboard) sample(base [2]int, frac mgl64.Vec2, u, v float64) (color.NRGBA, bool) {
	atlas := b.normal
	if b.opts.Source == SourceAlbedo {
		atlas = b.albedo
	}

	c00 := b.fetch(atlas, base[0], base[1], u, v)
	c10 := b.fetch(atlas, base[0]+1, base[1], u, v)
	c01 := b.fetch(atlas, base[0], base[1]+1, u, v)
	c11 := b.fetch(atlas, base[0]+1, base[1]+1, u, v)

	var out [4]float64
	for c := 0; c < 4; c++ {
		c0 := mathutil.Lerp(c00[c], c10[c], frac[0])
		c1 := mathutil.Lerp(c01[c], c11[c], frac[0])
		out[c] = mathutil.Lerp(c0, c1, frac[1])
	}

	eps := b.opts.Epsilon
	if out[0] < eps && out[1] < eps && out[2] < eps {
		return color.NRGBA{}, false
	}
	return color.NRGBA{
		R: uint8(mathutil.Clamp01(out[0])*255 + 0.5),
		G: uint8(mathutil.Clamp01(out[1])*255 + 0.5),
		B: uint8(mathutil.Clamp01(out[2])*255 + 0.5),
		A: uint8(mathutil.Clamp01(out[3])*255 + 0.5),
	}, true
}

// fetch samples tile (tx, ty) at tile-local (u, v) with bilinear filtering.
func (b *Billboard) fetch(atlas *image.NRGBA, tx, ty int, u, v float64) [4]float64 {
	tx = b.resolve(tx)
	ty = b.resolve(ty)
	size := 1 / float64(b.tiles)
	return raster.SampleBilinear(atlas, (float64(tx)+u)*size, (float64(ty)+v)*size)
}

// resolve maps a possibly out-of-range tile index into [0, N-1].
func (b *Billboard) resolve(i int) int {
	n := b.tiles
	if i >= 0 && i < n {
		return i
	}
	switch b.opts.Edge {
	case EdgeWrap:
		return ((i % n) + n) % n
	case EdgeMirror:
		period := 2 * n
		m := ((i % period) + period) % period
		if m >= n {
			m = period - 1 - m
		}
		return m
	default:
		if i < 0 {
			return 0
		}
		return n - 1
	}
}

// Draw renders the quad into dst, centered on the projection of the object's
// origin through viewProj. The quad is sizePx pixels wide regardless of
// distance. Discarded texels leave dst untouched. Returns the number of
// texels written; 0 when the origin lies behind the viewer.
func (b *Billboard) Draw(dst *image.NRGBA, viewProj mgl64.Mat4, sizePx int) int {
	if sizePx <= 0 {
		return 0
	}
	origin := b.transform.Col(3)
	clip := viewProj.Mul4x1(origin)
	if clip[3] <= 1e-12 {
		return 0
	}
	bounds := dst.Bounds()
	ndcX, ndcY := clip[0]/clip[3], clip[1]/clip[3]
	cx := float64(bounds.Min.X) + (ndcX+1)*0.5*float64(bounds.Dx())
	cy := float64(bounds.Min.Y) + (1-ndcY)*0.5*float64(bounds.Dy())
	x0 := int(math.Round(cx - float64(sizePx)/2))
	y0 := int(math.Round(cy - float64(sizePx)/2))

	base, frac := b.TileBlend()
	quad := image.Rect(x0, y0, x0+sizePx, y0+sizePx).Intersect(bounds)
	written := 0
	for y := quad.Min.Y; y < quad.Max.Y; y++ {
		v := (float64(y-y0) + 0.5) / float64(sizePx)
		for x := quad.Min.X; x < quad.Max.X; x++ {
			u := (float64(x-x0) + 0.5) / float64(sizePx)
			c, ok := b.sample(base, frac, u, v)
			if !ok {
				continue
			}
			dst.SetNRGBA(x, y, c)
			written++
		}
	}
	return written
}
