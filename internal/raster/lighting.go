package raster

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// LightConfig holds precomputed lighting parameters. Directions are in view
// space so every baked direction is lit the same way relative to its camera.
type LightConfig struct {
	LightDir mgl64.Vec3
	RimDir   mgl64.Vec3
	HalfMain mgl64.Vec3 // precomputed half-vector for Blinn-Phong
	Ambient  float64
	Hemi     float64
	Direct   float64
	Rim      float64
	SpecInt  float64
	SpecPow  float64
	Exposure float64
	InvGamma float64 // 1/2.2 output encoding
}

// DefaultLightConfig returns a key light from the upper right, a rim light from
// behind, and a camera looking down -Z.
func DefaultLightConfig() LightConfig {
	lightDir := mgl64.Vec3{180, 260, 140}.Normalize()
	rimDir := mgl64.Vec3{-160, 130, -210}.Normalize()
	viewDir := mgl64.Vec3{0, 0, -1}

	halfMain := lightDir.Sub(viewDir).Normalize()

	return LightConfig{
		LightDir: lightDir,
		RimDir:   rimDir,
		HalfMain: halfMain,
		Ambient:  0.35,
		Hemi:     0.30,
		Direct:   0.90,
		Rim:      0.35,
		SpecInt:  0.25,
		SpecPow:  12.0,
		Exposure: 1.0,
		InvGamma: 1.0 / 2.2,
	}
}

// ComputeShade returns the combined lighting scalar for a view-space normal.
func (lc *LightConfig) ComputeShade(normal mgl64.Vec3) float64 {
	// Lambertian (abs for double-sided)
	ndlMain := math.Abs(normal.Dot(lc.LightDir))
	ndlRim := math.Abs(normal.Dot(lc.RimDir))

	// Hemisphere fill
	hemi := (1.0-math.Abs(normal[1]))*0.5 + 0.5
	hemiLight := hemi * lc.Hemi

	// Blinn-Phong specular
	ndh := normal.Dot(lc.HalfMain)
	if ndh < 0 {
		ndh = 0
	}
	spec := math.Pow(ndh, lc.SpecPow) * lc.SpecInt

	return lc.Ambient + hemiLight + ndlMain*lc.Direct + ndlRim*lc.Rim + spec
}

// ShadeWhite lights a white surface: shade, tone map, encode to sRGB.
// The result never drops to zero because Ambient is positive.
func (lc *LightConfig) ShadeWhite(normal mgl64.Vec3) uint8 {
	lin := ACESTonemap(lc.ComputeShade(normal) * lc.Exposure)
	return clamp255(math.Pow(lin, lc.InvGamma) * 255)
}

// ACESTonemap applies ACES Filmic tone mapping to a linear value.
func ACESTonemap(x float64) float64 {
	return (x * (2.51*x + 0.03)) / (x*(2.43*x+0.59) + 0.14)
}
