// Package camera provides the orthographic projector used to bake views of a mesh.
package camera

import (
	"image"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// DefaultFar is the far plane used when the mesh diameter is smaller.
const DefaultFar = 1000.0

// Ortho is an orthographic camera with symmetric extents. It is re-aimed for
// every baked direction; only the placement changes between tiles.
type Ortho struct {
	HalfExtent float64
	Near       float64
	Far        float64

	Eye    mgl64.Vec3
	Target mgl64.Vec3
	Up     mgl64.Vec3

	view mgl64.Mat4
	proj mgl64.Mat4
}

// NewOrtho configures a projector covering [-halfExtent, halfExtent] in x and y.
func NewOrtho(halfExtent, near, far float64) *Ortho {
	c := &Ortho{
		HalfExtent: halfExtent,
		Near:       near,
		Far:        far,
		Up:         mgl64.Vec3{0, 1, 0},
	}
	c.proj = mgl64.Ortho(-halfExtent, halfExtent, -halfExtent, halfExtent, near, far)
	c.view = mgl64.Ident4()
	return c
}

// ForRadius returns a camera that keeps a bounding sphere of radius r fully
// in view from any direction once placed on the sphere's surface.
func ForRadius(r float64) *Ortho {
	return NewOrtho(r, 0, math.Max(DefaultFar, 2*r))
}

// LookAt places the camera at eye aimed at target. When the view axis is
// parallel to +Y the up vector falls back to +Z.
func (c *Ortho) LookAt(eye, target mgl64.Vec3) {
	up := mgl64.Vec3{0, 1, 0}
	fwd := target.Sub(eye)
	if l := fwd.Len(); l > 1e-12 && math.Abs(fwd.Mul(1/l).Dot(up)) > 1-1e-9 {
		up = mgl64.Vec3{0, 0, 1}
	}
	c.Eye, c.Target, c.Up = eye, target, up
	c.view = mgl64.LookAtV(eye, target, up)
}

// View returns the world-to-view matrix.
func (c *Ortho) View() mgl64.Mat4 { return c.view }

// Projection returns the view-to-clip matrix.
func (c *Ortho) Projection() mgl64.Mat4 { return c.proj }

// ViewProjection returns Projection × View.
func (c *Ortho) ViewProjection() mgl64.Mat4 {
	return c.proj.Mul4(c.view)
}

// ViewNormal rotates an object-space normal into view space.
func (c *Ortho) ViewNormal(n mgl64.Vec3) mgl64.Vec3 {
	return c.view.Mat3().Mul3x1(n).Normalize()
}

// ProjectVertices maps vertices to pixel coordinates inside the viewport.
// Returns px, py (image coordinates, y down) and pz (depth, larger is nearer,
// -1..1 between the far and near planes).
func (c *Ortho) ProjectVertices(verts []mgl64.Vec3, viewport image.Rectangle) ([]float64, []float64, []float64) {
	n := len(verts)
	px := make([]float64, n)
	py := make([]float64, n)
	pz := make([]float64, n)

	vx, vy := float64(viewport.Min.X), float64(viewport.Min.Y)
	vw, vh := float64(viewport.Dx()), float64(viewport.Dy())
	vp := c.ViewProjection()

	for i, v := range verts {
		clip := vp.Mul4x1(v.Vec4(1))
		px[i] = vx + (clip[0]+1)*0.5*vw
		py[i] = vy + (1-clip[1])*0.5*vh
		pz[i] = -clip[2]
	}
	return px, py, pz
}
