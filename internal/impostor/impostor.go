// Package impostor ties the pipeline together: bake the atlases, dilate the
// albedo atlas, and bind both to a billboard.
package impostor

import (
	"fmt"
	"image"
	"math"
	"time"

	"impostor-baker/internal/atlas"
	"impostor-baker/internal/billboard"
	"impostor-baker/internal/dilate"
	"impostor-baker/internal/logger"
	"impostor-baker/internal/mesh"
	"impostor-baker/internal/raster"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"
)

// Config collects every knob of a build.
type Config struct {
	TileCount       int
	AtlasResolution int
	DilationPasses  int

	Shading     raster.Shading
	NormalSpace raster.NormalSpace
	Supersample int

	Dilate    dilate.Options // Passes is overridden by DilationPasses
	Billboard billboard.Options

	OnDirectionSampled atlas.DirectionObserver
}

// DefaultConfig returns 16 tiles over 2048 pixels with 4 dilation passes.
func DefaultConfig() Config {
	return Config{
		TileCount:       16,
		AtlasResolution: 2048,
		DilationPasses:  4,
		Supersample:     1,
		Dilate:          dilate.DefaultOptions(),
		Billboard:       billboard.DefaultOptions(),
	}
}

// Impostor is one baked object. Billboard references Albedo and Normal.
type Impostor struct {
	Albedo    *image.NRGBA // dilated
	RawAlbedo *image.NRGBA // as baked
	Normal    *image.NRGBA
	Billboard *billboard.Billboard
	Radius    float64
	Offset    mgl64.Vec3
}

// dilateOptions fills unset search fields from the engine defaults. Gain and
// ProjectionScale keep their values: zero is meaningful for both.
func dilateOptions(cfg Config) dilate.Options {
	def := dilate.DefaultOptions()
	opts := cfg.Dilate
	opts.Passes = cfg.DilationPasses
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = def.MaxSteps
	}
	if opts.Epsilon <= 0 {
		opts.Epsilon = def.Epsilon
	}
	if opts.Workers <= 0 {
		opts.Workers = def.Workers
	}
	return opts
}

// Build bakes m and prepares its billboard. m is centered in place.
func Build(m *mesh.Mesh, cfg Config) (*Impostor, error) {
	start := time.Now()

	res, err := atlas.Bake(m, atlas.Options{
		Tiles:              cfg.TileCount,
		Resolution:         cfg.AtlasResolution,
		Shading:            cfg.Shading,
		NormalSpace:        cfg.NormalSpace,
		Supersample:        cfg.Supersample,
		OnDirectionSampled: cfg.OnDirectionSampled,
	})
	if err != nil {
		return nil, fmt.Errorf("impostor: bake: %w", err)
	}

	dopts := dilateOptions(cfg)
	engine, err := dilate.New(dopts)
	if err != nil {
		return nil, fmt.Errorf("impostor: dilate: %w", err)
	}
	albedo, err := engine.Dilate(res.Albedo)
	if err != nil {
		return nil, fmt.Errorf("impostor: dilate: %w", err)
	}

	bb, err := billboard.New(albedo, res.Normal, res.Tiles, cfg.Billboard)
	if err != nil {
		return nil, fmt.Errorf("impostor: billboard: %w", err)
	}

	logger.Info("impostor built",
		zap.Int("tiles", res.Tiles),
		zap.Int("resolution", res.Resolution),
		zap.Int("dilationPasses", dopts.Passes),
		zap.Int("emptyBefore", dilate.CountEmpty(res.Albedo, dopts.Epsilon)),
		zap.Int("emptyAfter", dilate.CountEmpty(albedo, dopts.Epsilon)),
		zap.Duration("elapsed", time.Since(start)),
	)

	return &Impostor{
		Albedo:    albedo,
		RawAlbedo: res.Albedo,
		Normal:    res.Normal,
		Billboard: bb,
		Radius:    res.Radius,
		Offset:    res.Offset,
	}, nil
}

// Preview draws the billboard as seen from eye into a size×size image with
// the object's origin at the center. Discarded texels stay transparent.
func (imp *Impostor) Preview(eye mgl64.Vec3, size int) (*image.NRGBA, int) {
	dst := image.NewNRGBA(image.Rect(0, 0, size, size))
	imp.Billboard.SetCameraPosition(eye)
	n := imp.Billboard.Draw(dst, mgl64.Ident4(), size)
	return dst, n
}

// OrbitPositions returns count eye positions on a horizontal circle of the
// given radius, raised by elevation radians.
func OrbitPositions(count int, radius, elevation float64) []mgl64.Vec3 {
	eyes := make([]mgl64.Vec3, 0, count)
	for i := 0; i < count; i++ {
		az := 2 * math.Pi * float64(i) / float64(count)
		h := radius * math.Cos(elevation)
		eyes = append(eyes, mgl64.Vec3{h * math.Sin(az), radius * math.Sin(elevation), h * math.Cos(az)})
	}
	return eyes
}
