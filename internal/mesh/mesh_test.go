package mesh

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoundingSphereOfSphere(t *testing.T) {
	m := UVSphere(2, 24, 12)
	require.NoError(t, m.Validate())

	s, err := m.BoundingSphere()
	require.NoError(t, err)
	assert.InDelta(t, 2.0, s.Radius, 1e-9)
	assert.InDelta(t, 0, s.Center.Len(), 1e-9, "center %v", s.Center)
}

func TestCenter(t *testing.T) {
	m := Box(2, 4, 6)
	for i := range m.Positions {
		m.Positions[i] = m.Positions[i].Add(mgl64.Vec3{10, -3, 5})
	}

	offset, err := m.Center()
	require.NoError(t, err)
	assert.InDelta(t, 0, offset.Sub(mgl64.Vec3{-10, 3, -5}).Len(), 1e-12, "offset %v", offset)

	min, max, err := m.Bounds()
	require.NoError(t, err)
	assert.InDelta(t, 0, min.Sub(mgl64.Vec3{-1, -2, -3}).Len(), 1e-12)
	assert.InDelta(t, 0, max.Sub(mgl64.Vec3{1, 2, 3}).Len(), 1e-12)

	s, err := m.BoundingSphere()
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt(1+4+9), s.Radius, 1e-9)
}

func TestEmptyMeshHasNoBounds(t *testing.T) {
	m := &Mesh{}
	_, err := m.BoundingSphere()
	assert.True(t, errors.Is(err, ErrNoBounds))

	_, err = m.Center()
	assert.True(t, errors.Is(err, ErrNoBounds))
}

func TestNonFiniteVertex(t *testing.T) {
	m := &Mesh{Positions: []mgl64.Vec3{{0, 0, 0}, {math.NaN(), 0, 0}}}
	_, _, err := m.Bounds()
	assert.ErrorIs(t, err, ErrNoBounds)
}

func TestValidate(t *testing.T) {
	m := &Mesh{
		Positions: []mgl64.Vec3{{0, 0, 0}, {1, 0, 0}},
		Tris:      [][3]uint32{{0, 1, 2}},
	}
	assert.Error(t, m.Validate())

	m.Positions = append(m.Positions, mgl64.Vec3{0, 1, 0})
	assert.NoError(t, m.Validate())

	m.Normals = []mgl64.Vec3{{0, 0, 1}}
	assert.Error(t, m.Validate())
}

func TestComputeNormals(t *testing.T) {
	m := &Mesh{
		Positions: []mgl64.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {5, 5, 5}},
		Tris:      [][3]uint32{{0, 1, 2}},
	}
	m.ComputeNormals()
	require.True(t, m.HasNormals())
	for i := 0; i < 3; i++ {
		assert.InDelta(t, 0, m.Normals[i].Sub(mgl64.Vec3{0, 0, 1}).Len(), 1e-12, "normal %d = %v", i, m.Normals[i])
	}
	// Unreferenced vertex falls back to +Z.
	assert.Equal(t, mgl64.Vec3{0, 0, 1}, m.Normals[3])
}

func TestPrimitivesAreValid(t *testing.T) {
	for name, m := range map[string]*Mesh{
		"sphere": UVSphere(1, 16, 8),
		"box":    Box(1, 1, 1),
		"torus":  Torus(1, 0.3, 16, 8),
	} {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, m.Validate())
			assert.True(t, m.HasNormals())
			assert.Greater(t, m.NumTriangles(), 0)
			for _, n := range m.Normals {
				assert.InDelta(t, 1.0, n.Len(), 1e-9)
			}
		})
	}
}

func TestPrimitiveByName(t *testing.T) {
	for _, name := range []string{"sphere", "box", "torus"} {
		m, err := Primitive(name)
		require.NoError(t, err, name)
		assert.Positive(t, m.NumTriangles(), name)
	}
	_, err := Primitive("teapot")
	assert.Error(t, err)
}
