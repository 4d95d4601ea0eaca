package mathutil

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// SignNotZero returns +1 for v >= 0 and -1 otherwise. It never returns 0.
func SignNotZero(v float64) float64 {
	if v >= 0 {
		return 1
	}
	return -1
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Clamp01 limits v to [0, 1].
func Clamp01(v float64) float64 {
	return Clamp(v, 0, 1)
}

// Lerp returns a + (b-a)*t.
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// AngleBetween returns the angle in radians between two non-zero vectors.
func AngleBetween(a, b mgl64.Vec3) float64 {
	la, lb := a.Len(), b.Len()
	if la < 1e-12 || lb < 1e-12 {
		return 0
	}
	c := Clamp(a.Dot(b)/(la*lb), -1, 1)
	return math.Acos(c)
}

// IsUnit reports whether v has unit length within tol.
func IsUnit(v mgl64.Vec3, tol float64) bool {
	return math.Abs(v.Len()-1) <= tol
}
