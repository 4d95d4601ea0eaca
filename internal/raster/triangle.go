package raster

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// depthTolerance lets vertices lying exactly on the near plane survive rounding.
const depthTolerance = 1e-6

// FragmentFunc returns the RGBA output for an interpolated unit normal.
type FragmentFunc func(n mgl64.Vec3) (r, g, b, a uint8)

// RasterizeTriangle fills one triangle with z-buffering and per-pixel
// interpolated normals. Pixels are sampled at their centers and clipped to the
// frame buffer's scissor rectangle; depth outside [-1, 1] is discarded.
//
// This is the HOT PATH: no allocation inside the pixel loop.
func RasterizeTriangle(
	fb *FrameBuffer,
	px, py, pz []float64,
	normals []mgl64.Vec3,
	vi [3]int,
	frag FragmentFunc,
) {
	nv := len(px)
	for _, i := range vi {
		if i < 0 || i >= nv || i >= len(normals) {
			return
		}
	}

	x0, y0, z0 := px[vi[0]], py[vi[0]], pz[vi[0]]
	x1, y1, z1 := px[vi[1]], py[vi[1]], pz[vi[1]]
	x2, y2, z2 := px[vi[2]], py[vi[2]], pz[vi[2]]
	n0, n1, n2 := normals[vi[0]], normals[vi[1]], normals[vi[2]]

	// Bounding box, clipped to canvas and scissor
	clip := fb.clipRect()
	minX := int(math.Floor(math.Min(math.Min(x0, x1), x2)))
	maxX := int(math.Ceil(math.Max(math.Max(x0, x1), x2)))
	minY := int(math.Floor(math.Min(math.Min(y0, y1), y2)))
	maxY := int(math.Ceil(math.Max(math.Max(y0, y1), y2)))

	if minX < clip.Min.X {
		minX = clip.Min.X
	}
	if maxX > clip.Max.X {
		maxX = clip.Max.X
	}
	if minY < clip.Min.Y {
		minY = clip.Min.Y
	}
	if maxY > clip.Max.Y {
		maxY = clip.Max.Y
	}
	if minX >= maxX || minY >= maxY {
		return
	}

	// Barycentric setup; edge-on triangles cover no pixel centers
	det := (y1-y2)*(x0-x2) + (x2-x1)*(y0-y2)
	if det > -1e-12 && det < 1e-12 {
		return
	}
	invDet := 1.0 / det

	dy12 := y1 - y2
	dx21 := x2 - x1
	dy20 := y2 - y0
	dx02 := x0 - x2

	width := fb.Width
	for sy := minY; sy < maxY; sy++ {
		dsy := float64(sy) + 0.5 - y2
		rowOff := sy * width
		for sx := minX; sx < maxX; sx++ {
			dsx := float64(sx) + 0.5 - x2
			w0 := (dy12*dsx + dx21*dsy) * invDet
			w1 := (dy20*dsx + dx02*dsy) * invDet
			w2 := 1.0 - w0 - w1

			if w0 < -1e-9 || w1 < -1e-9 || w2 < -1e-9 {
				continue
			}

			z := w0*z0 + w1*z1 + w2*z2
			if z < -1-depthTolerance || z > 1+depthTolerance {
				continue
			}
			zIdx := rowOff + sx
			if z <= fb.ZBuf[zIdx] {
				continue
			}
			fb.ZBuf[zIdx] = z

			n := mgl64.Vec3{
				w0*n0[0] + w1*n1[0] + w2*n2[0],
				w0*n0[1] + w1*n1[1] + w2*n2[1],
				w0*n0[2] + w1*n1[2] + w2*n2[2],
			}
			if l := n.Len(); l > 1e-12 {
				n = n.Mul(1 / l)
			}

			r, g, b, a := frag(n)
			pxIdx := zIdx * 4
			fb.Color[pxIdx] = r
			fb.Color[pxIdx+1] = g
			fb.Color[pxIdx+2] = b
			fb.Color[pxIdx+3] = a
		}
	}
}

func clamp255(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
