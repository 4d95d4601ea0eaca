package raster

import (
	"fmt"

	"impostor-baker/internal/camera"
	"impostor-baker/internal/mesh"

	"github.com/go-gl/mathgl/mgl64"
)

// RenderMode selects what a draw call writes.
type RenderMode int

const (
	// RenderAlbedo writes the stand-in surface color.
	RenderAlbedo RenderMode = iota
	// RenderNormal writes normal*0.5+0.5.
	RenderNormal
)

func (m RenderMode) String() string {
	switch m {
	case RenderAlbedo:
		return "albedo"
	case RenderNormal:
		return "normal"
	}
	return fmt.Sprintf("RenderMode(%d)", int(m))
}

// Shading selects the albedo color model.
type Shading int

const (
	// ShadeFlat writes opaque white for every covered pixel.
	ShadeFlat Shading = iota
	// ShadeLit lights a white surface with DefaultLightConfig.
	ShadeLit
)

// NormalSpace selects the frame normals are expressed in.
type NormalSpace int

const (
	// NormalObject keeps the mesh's own normals.
	NormalObject NormalSpace = iota
	// NormalView rotates normals into the bake camera's view space.
	NormalView
)

// DrawCall carries the per-draw state. It is passed by value on every draw;
// nothing about the mode persists on the frame buffer or the mesh.
type DrawCall struct {
	Mode        RenderMode
	Shading     Shading
	NormalSpace NormalSpace
	Light       *LightConfig // used by ShadeLit; nil means DefaultLightConfig
}

// DrawMesh projects the mesh through cam into the frame buffer's current
// viewport and rasterizes every triangle. Writes respect the scissor state.
// The mesh must carry per-vertex normals.
func DrawMesh(fb *FrameBuffer, m *mesh.Mesh, cam *camera.Ortho, call DrawCall) {
	if len(m.Tris) == 0 || !m.HasNormals() {
		return
	}

	px, py, pz := cam.ProjectVertices(m.Positions, fb.Viewport())

	// View-space normals drive lighting and, optionally, the normal output.
	viewNormals := make([]mgl64.Vec3, len(m.Normals))
	for i, n := range m.Normals {
		viewNormals[i] = cam.ViewNormal(n)
	}

	normals := viewNormals
	if call.Mode == RenderNormal && call.NormalSpace == NormalObject {
		normals = m.Normals
	}

	frag := fragmentFor(call)
	for _, tri := range m.Tris {
		vi := [3]int{int(tri[0]), int(tri[1]), int(tri[2])}
		RasterizeTriangle(fb, px, py, pz, normals, vi, frag)
	}
}

func fragmentFor(call DrawCall) FragmentFunc {
	switch {
	case call.Mode == RenderNormal:
		return func(n mgl64.Vec3) (uint8, uint8, uint8, uint8) {
			return clamp255((n[0]*0.5 + 0.5) * 255), clamp255((n[1]*0.5 + 0.5) * 255), clamp255((n[2]*0.5 + 0.5) * 255), 255
		}
	case call.Shading == ShadeLit:
		lc := call.Light
		if lc == nil {
			def := DefaultLightConfig()
			lc = &def
		}
		return func(n mgl64.Vec3) (uint8, uint8, uint8, uint8) {
			s := lc.ShadeWhite(n)
			return s, s, s, 255
		}
	default:
		return func(mgl64.Vec3) (uint8, uint8, uint8, uint8) {
			return 255, 255, 255, 255
		}
	}
}
