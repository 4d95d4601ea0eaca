// Package mesh holds indexed triangle meshes with per-vertex positions and normals.
package mesh

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// ErrNoBounds is returned when a mesh has no computable bounding volume:
// no vertices, or non-finite vertex positions.
var ErrNoBounds = errors.New("mesh: no computable bounding volume")

// Mesh is an indexed triangle list. Winding is not significant.
type Mesh struct {
	Positions []mgl64.Vec3
	Normals   []mgl64.Vec3 // per vertex; empty until ComputeNormals or a loader fills it
	Tris      [][3]uint32
}

// Sphere is a bounding sphere.
type Sphere struct {
	Center mgl64.Vec3
	Radius float64
}

// NumTriangles returns the triangle count.
func (m *Mesh) NumTriangles() int {
	return len(m.Tris)
}

// HasNormals reports whether every vertex carries a normal.
func (m *Mesh) HasNormals() bool {
	return len(m.Normals) == len(m.Positions) && len(m.Positions) > 0
}

// Validate checks that every triangle index points at an existing vertex.
func (m *Mesh) Validate() error {
	n := uint32(len(m.Positions))
	for i, t := range m.Tris {
		if t[0] >= n || t[1] >= n || t[2] >= n {
			return fmt.Errorf("mesh: triangle %d references vertex out of range (%d vertices)", i, n)
		}
	}
	if len(m.Normals) != 0 && len(m.Normals) != len(m.Positions) {
		return fmt.Errorf("mesh: %d normals for %d vertices", len(m.Normals), len(m.Positions))
	}
	return nil
}

// Bounds returns the axis-aligned bounding box of all vertices.
func (m *Mesh) Bounds() (min, max mgl64.Vec3, err error) {
	if len(m.Positions) == 0 {
		return min, max, ErrNoBounds
	}
	min = mgl64.Vec3{math.Inf(1), math.Inf(1), math.Inf(1)}
	max = mgl64.Vec3{math.Inf(-1), math.Inf(-1), math.Inf(-1)}
	for _, p := range m.Positions {
		for k := 0; k < 3; k++ {
			if math.IsNaN(p[k]) || math.IsInf(p[k], 0) {
				return min, max, fmt.Errorf("%w: non-finite vertex %v", ErrNoBounds, p)
			}
			if p[k] < min[k] {
				min[k] = p[k]
			}
			if p[k] > max[k] {
				max[k] = p[k]
			}
		}
	}
	return min, max, nil
}

// BoundingSphere returns a sphere centered on the bounding box center whose
// radius reaches the farthest vertex.
func (m *Mesh) BoundingSphere() (Sphere, error) {
	min, max, err := m.Bounds()
	if err != nil {
		return Sphere{}, err
	}
	center := min.Add(max).Mul(0.5)
	var r2 float64
	for _, p := range m.Positions {
		d := p.Sub(center)
		if l := d.Dot(d); l > r2 {
			r2 = l
		}
	}
	return Sphere{Center: center, Radius: math.Sqrt(r2)}, nil
}

// Center translates the mesh so that its bounding box center sits at the
// origin, and returns the applied offset.
func (m *Mesh) Center() (mgl64.Vec3, error) {
	min, max, err := m.Bounds()
	if err != nil {
		return mgl64.Vec3{}, err
	}
	offset := min.Add(max).Mul(-0.5)
	for i := range m.Positions {
		m.Positions[i] = m.Positions[i].Add(offset)
	}
	return offset, nil
}

// ComputeNormals replaces the vertex normals with area-weighted averages of
// the adjacent face normals. Vertices used by no triangle get +Z.
func (m *Mesh) ComputeNormals() {
	normals := make([]mgl64.Vec3, len(m.Positions))
	for _, t := range m.Tris {
		a, b, c := m.Positions[t[0]], m.Positions[t[1]], m.Positions[t[2]]
		// Cross product length is twice the area: larger faces weigh more.
		fn := b.Sub(a).Cross(c.Sub(a))
		for _, i := range t {
			normals[i] = normals[i].Add(fn)
		}
	}
	for i, n := range normals {
		if n.Len() < 1e-12 {
			normals[i] = mgl64.Vec3{0, 0, 1}
			continue
		}
		normals[i] = n.Normalize()
	}
	m.Normals = normals
}
