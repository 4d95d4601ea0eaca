// Package octahedral maps unit directions to points of the [-1,1]² square and back.
//
// The upper hemisphere (z > 0) projects straight onto the octahedron; the lower
// hemisphere is unfolded into the square's corners by reflecting across the
// diagonals. Directions lying on the fold seam (z == 0 or on the square's border)
// round-trip up to sign only.
//
// Reference: Cigolle et al., "A Survey of Efficient Representations for
// Independent Unit Vectors", JCGT 2014.
package octahedral

import (
	"math"

	"impostor-baker/internal/mathutil"

	"github.com/go-gl/mathgl/mgl64"
)

// Encode maps a unit direction to an octahedral coordinate in [-1,1]².
// d should already be normalized.
func Encode(d mgl64.Vec3) mgl64.Vec2 {
	l1 := math.Abs(d[0]) + math.Abs(d[1]) + math.Abs(d[2])
	if l1 < 1e-12 {
		return mgl64.Vec2{}
	}
	px := d[0] / l1
	py := d[1] / l1
	if d[2] <= 0 {
		return mgl64.Vec2{
			(1 - math.Abs(py)) * mathutil.SignNotZero(px),
			(1 - math.Abs(px)) * mathutil.SignNotZero(py),
		}
	}
	return mgl64.Vec2{px, py}
}

// Decode maps an octahedral coordinate back to a unit direction.
func Decode(c mgl64.Vec2) mgl64.Vec3 {
	n := mgl64.Vec3{c[0], c[1], 1 - math.Abs(c[0]) - math.Abs(c[1])}
	if n[2] < 0 {
		ox, oy := n[0], n[1]
		n[0] = (1 - math.Abs(oy)) * mathutil.SignNotZero(ox)
		n[1] = (1 - math.Abs(ox)) * mathutil.SignNotZero(oy)
	}
	return n.Normalize()
}

// ToUnsigned remaps a signed coordinate from [-1,1]² to [0,1]².
func ToUnsigned(c mgl64.Vec2) mgl64.Vec2 {
	return mgl64.Vec2{c[0]*0.5 + 0.5, c[1]*0.5 + 0.5}
}

// ToSigned remaps an unsigned coordinate from [0,1]² to [-1,1]².
func ToSigned(uv mgl64.Vec2) mgl64.Vec2 {
	return mgl64.Vec2{uv[0]*2 - 1, uv[1]*2 - 1}
}

// SeamDistance returns how far d lies from the fold seam: the equator z == 0
// and the planes x == 0, y == 0 of the lower hemisphere, where the unfolded
// coordinate lands on the square's border.
func SeamDistance(d mgl64.Vec3) float64 {
	dist := math.Abs(d[2])
	if d[2] <= 0 {
		dist = math.Min(dist, math.Min(math.Abs(d[0]), math.Abs(d[1])))
	}
	return dist
}
