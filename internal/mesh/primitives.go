package mesh

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// UVSphere builds a latitude/longitude sphere centered at the origin.
func UVSphere(radius float64, segments, rings int) *Mesh {
	if segments < 3 {
		segments = 3
	}
	if rings < 2 {
		rings = 2
	}
	m := &Mesh{}
	for r := 0; r <= rings; r++ {
		theta := math.Pi * float64(r) / float64(rings)
		st, ct := math.Sin(theta), math.Cos(theta)
		for s := 0; s <= segments; s++ {
			phi := 2 * math.Pi * float64(s) / float64(segments)
			n := mgl64.Vec3{st * math.Cos(phi), ct, st * math.Sin(phi)}
			m.Positions = append(m.Positions, n.Mul(radius))
			m.Normals = append(m.Normals, n)
		}
	}
	row := uint32(segments + 1)
	for r := 0; r < rings; r++ {
		for s := 0; s < segments; s++ {
			a := uint32(r)*row + uint32(s)
			b := a + row
			if r != 0 {
				m.Tris = append(m.Tris, [3]uint32{a, b, a + 1})
			}
			if r != rings-1 {
				m.Tris = append(m.Tris, [3]uint32{a + 1, b, b + 1})
			}
		}
	}
	return m
}

// Box builds an axis-aligned box with flat per-face normals.
func Box(sx, sy, sz float64) *Mesh {
	h := mgl64.Vec3{sx / 2, sy / 2, sz / 2}
	faces := []struct {
		n, u, v mgl64.Vec3
	}{
		{mgl64.Vec3{1, 0, 0}, mgl64.Vec3{0, 1, 0}, mgl64.Vec3{0, 0, 1}},
		{mgl64.Vec3{-1, 0, 0}, mgl64.Vec3{0, 0, 1}, mgl64.Vec3{0, 1, 0}},
		{mgl64.Vec3{0, 1, 0}, mgl64.Vec3{0, 0, 1}, mgl64.Vec3{1, 0, 0}},
		{mgl64.Vec3{0, -1, 0}, mgl64.Vec3{1, 0, 0}, mgl64.Vec3{0, 0, 1}},
		{mgl64.Vec3{0, 0, 1}, mgl64.Vec3{1, 0, 0}, mgl64.Vec3{0, 1, 0}},
		{mgl64.Vec3{0, 0, -1}, mgl64.Vec3{0, 1, 0}, mgl64.Vec3{1, 0, 0}},
	}
	m := &Mesh{}
	for _, f := range faces {
		base := uint32(len(m.Positions))
		for _, c := range [4][2]float64{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}} {
			p := f.n.Add(f.u.Mul(c[0])).Add(f.v.Mul(c[1]))
			m.Positions = append(m.Positions, mgl64.Vec3{p[0] * h[0], p[1] * h[1], p[2] * h[2]})
			m.Normals = append(m.Normals, f.n)
		}
		m.Tris = append(m.Tris,
			[3]uint32{base, base + 1, base + 2},
			[3]uint32{base, base + 2, base + 3},
		)
	}
	return m
}

// Torus builds a torus around the Y axis with major radius R and tube radius r.
func Torus(R, r float64, segments, sides int) *Mesh {
	if segments < 3 {
		segments = 3
	}
	if sides < 3 {
		sides = 3
	}
	m := &Mesh{}
	for i := 0; i <= segments; i++ {
		u := 2 * math.Pi * float64(i) / float64(segments)
		cu, su := math.Cos(u), math.Sin(u)
		for j := 0; j <= sides; j++ {
			v := 2 * math.Pi * float64(j) / float64(sides)
			cv, sv := math.Cos(v), math.Sin(v)
			n := mgl64.Vec3{cv * cu, sv, cv * su}
			m.Positions = append(m.Positions, mgl64.Vec3{(R + r*cv) * cu, r * sv, (R + r*cv) * su})
			m.Normals = append(m.Normals, n)
		}
	}
	row := uint32(sides + 1)
	for i := 0; i < segments; i++ {
		for j := 0; j < sides; j++ {
			a := uint32(i)*row + uint32(j)
			b := a + row
			m.Tris = append(m.Tris,
				[3]uint32{a, b, a + 1},
				[3]uint32{a + 1, b, b + 1},
			)
		}
	}
	return m
}

// Primitive returns a named built-in mesh: "sphere", "box" or "torus".
func Primitive(name string) (*Mesh, error) {
	switch name {
	case "sphere":
		return UVSphere(1, 48, 24), nil
	case "box":
		return Box(1, 1, 1), nil
	case "torus":
		return Torus(1, 0.35, 48, 24), nil
	}
	return nil, fmt.Errorf("mesh: unknown primitive %q", name)
}
