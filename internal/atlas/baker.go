// Package atlas bakes a mesh into albedo and normal tile atlases, one tile per
// octahedrally distributed view direction.
package atlas

import (
	"errors"
	"fmt"
	"image"
	"time"

	"impostor-baker/internal/camera"
	"impostor-baker/internal/logger"
	"impostor-baker/internal/mesh"
	"impostor-baker/internal/postprocess"
	"impostor-baker/internal/raster"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"
)

var (
	// ErrGeometry reports a mesh without a computable bounding volume.
	ErrGeometry = errors.New("atlas: geometry error")
	// ErrResource reports that an offscreen image could not be allocated.
	ErrResource = errors.New("atlas: resource error")
	// ErrInvalidOptions reports unusable tile count or resolution.
	ErrInvalidOptions = errors.New("atlas: invalid options")
)

// MaxResolution bounds the atlas edge length accepted for allocation.
const MaxResolution = 16384

// DirectionObserver is called synchronously once per tile with the baked view
// direction and the camera position derived from it.
type DirectionObserver func(direction, position mgl64.Vec3)

// Options configures a bake.
type Options struct {
	Tiles       int // N, tiles per atlas side
	Resolution  int // R, atlas edge in pixels; must be a multiple of N
	Shading     raster.Shading
	NormalSpace raster.NormalSpace
	Supersample int // tiles are rendered at this multiple and downsampled; 0 or 1 disables

	OnDirectionSampled DirectionObserver
}

// DefaultOptions returns a 16×16 tile, 2048 pixel bake.
func DefaultOptions() Options {
	return Options{
		Tiles:       16,
		Resolution:  2048,
		Supersample: 1,
	}
}

// Validate checks tile count and resolution.
func (o Options) Validate() error {
	if o.Tiles < 2 {
		return fmt.Errorf("%w: tile count %d, need at least 2", ErrInvalidOptions, o.Tiles)
	}
	if o.Resolution < o.Tiles {
		return fmt.Errorf("%w: resolution %d smaller than tile count %d", ErrInvalidOptions, o.Resolution, o.Tiles)
	}
	if o.Resolution%o.Tiles != 0 {
		return fmt.Errorf("%w: resolution %d not a multiple of tile count %d", ErrInvalidOptions, o.Resolution, o.Tiles)
	}
	if o.Supersample < 0 {
		return fmt.Errorf("%w: supersample %d", ErrInvalidOptions, o.Supersample)
	}
	return nil
}

// Result holds the baked atlases. Pixels no tile covered are opaque black.
type Result struct {
	Albedo     *image.NRGBA
	Normal     *image.NRGBA
	Radius     float64    // bounding sphere radius of the centered mesh
	Offset     mgl64.Vec3 // translation applied to center the mesh
	Tiles      int
	Resolution int
}

// TileRect returns the rectangle of tile t in this result's atlases.
func (r *Result) TileRect(t Tile) image.Rectangle {
	return TileRect(t, r.Tiles, r.Resolution)
}

// Bake centers m at the origin and renders it from every tile direction into
// the albedo and normal atlases. The centering is the only mutation of m.
// A mesh with vertices but no triangles bakes to empty atlases.
func Bake(m *mesh.Mesh, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGeometry, err)
	}

	offset, err := m.Center()
	if err != nil {
		return nil, fmt.Errorf("%w: center mesh: %v", ErrGeometry, err)
	}
	sphere, err := m.BoundingSphere()
	if err != nil {
		return nil, fmt.Errorf("%w: bounding sphere: %v", ErrGeometry, err)
	}
	if sphere.Radius <= 0 {
		return nil, fmt.Errorf("%w: bounding sphere has zero radius", ErrGeometry)
	}
	r := sphere.Radius

	// Normals are derived on a shallow copy so the caller's mesh keeps its own.
	work := *m
	if !work.HasNormals() {
		work.ComputeNormals()
	}

	n, res := opts.Tiles, opts.Resolution
	ss := opts.Supersample
	if ss < 1 {
		ss = 1
	}
	tileSize := res / n

	albedoFB, err := allocFrameBuffer(res)
	if err != nil {
		return nil, err
	}
	normalFB, err := allocFrameBuffer(res)
	if err != nil {
		return nil, err
	}
	// Background is opaque black: the "empty" marker read by dilation.
	albedoFB.Clear(0, 0, 0, 255)
	normalFB.Clear(0, 0, 0, 255)

	var scratch *raster.FrameBuffer
	if ss > 1 {
		if scratch, err = allocFrameBuffer(tileSize * ss); err != nil {
			return nil, err
		}
	}

	cam := camera.ForRadius(r)
	origin := mgl64.Vec3{}
	start := time.Now()

	albedoCall := raster.DrawCall{Mode: raster.RenderAlbedo, Shading: opts.Shading}
	normalCall := raster.DrawCall{Mode: raster.RenderNormal, NormalSpace: opts.NormalSpace}

	for _, t := range Tiles(n) {
		dir := TileDirection(t, n)
		pos := origin.Add(dir.Mul(r))
		if opts.OnDirectionSampled != nil {
			opts.OnDirectionSampled(dir, pos)
		}

		cam.LookAt(pos, origin)
		rect := TileRect(t, n, res)

		if scratch != nil {
			renderSupersampled(albedoFB, scratch, rect, &work, cam, albedoCall, tileSize)
			renderSupersampled(normalFB, scratch, rect, &work, cam, normalCall, tileSize)
		} else {
			renderTile(albedoFB, rect, &work, cam, albedoCall)
			renderTile(normalFB, rect, &work, cam, normalCall)
		}

		logger.Debug("baked tile",
			zap.Int("x", t.X), zap.Int("y", t.Y),
			zap.Float64s("direction", dir[:]),
		)
	}

	logger.Info("atlas baked",
		zap.Int("tiles", n),
		zap.Int("resolution", res),
		zap.Int("triangles", m.NumTriangles()),
		zap.Float64("radius", r),
		zap.Duration("elapsed", time.Since(start)),
	)

	return &Result{
		Albedo:     albedoFB.ToNRGBA(),
		Normal:     normalFB.ToNRGBA(),
		Radius:     r,
		Offset:     offset,
		Tiles:      n,
		Resolution: res,
	}, nil
}

// renderTile draws into one tile with viewport and scissor narrowed to rect,
// then restores the full-canvas viewport and disables scissoring.
func renderTile(fb *raster.FrameBuffer, rect image.Rectangle, m *mesh.Mesh, cam *camera.Ortho, call raster.DrawCall) {
	fb.SetViewport(rect)
	fb.SetScissor(rect)
	defer func() {
		fb.ResetViewport()
		fb.DisableScissor()
	}()
	raster.DrawMesh(fb, m, cam, call)
}

// renderSupersampled draws the tile at a higher resolution into scratch and
// blits the downsampled result into rect under the same scissor discipline.
func renderSupersampled(fb, scratch *raster.FrameBuffer, rect image.Rectangle, m *mesh.Mesh, cam *camera.Ortho, call raster.DrawCall, tileSize int) {
	scratch.Clear(0, 0, 0, 255)
	raster.DrawMesh(scratch, m, cam, call)
	small := postprocess.Downsample(scratch.ToNRGBA(), tileSize)

	fb.SetViewport(rect)
	fb.SetScissor(rect)
	defer func() {
		fb.ResetViewport()
		fb.DisableScissor()
	}()
	fb.Blit(rect.Min, small)
}

func allocFrameBuffer(size int) (fb *raster.FrameBuffer, err error) {
	if size <= 0 || size > MaxResolution {
		return nil, fmt.Errorf("%w: %d×%d offscreen image", ErrResource, size, size)
	}
	defer func() {
		if p := recover(); p != nil {
			fb, err = nil, fmt.Errorf("%w: allocate %d×%d offscreen image: %v", ErrResource, size, size, p)
		}
	}()
	return raster.NewFrameBuffer(size, size), nil
}
