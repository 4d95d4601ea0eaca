// Package objfile reads Wavefront OBJ geometry into a mesh.Mesh.
//
// Only v, vn and f statements are interpreted; everything else (texture
// coordinates, groups, materials) is skipped. Polygons are fan-triangulated.
package objfile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"impostor-baker/internal/mesh"

	"github.com/go-gl/mathgl/mgl64"
)

// ErrSyntax reports a malformed statement.
var ErrSyntax = errors.New("objfile: syntax error")

// Parse reads an OBJ file.
func Parse(path string) (*mesh.Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("objfile: read %s: %w", path, err)
	}
	defer f.Close()

	m, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("objfile: parse %s: %w", path, err)
	}
	return m, nil
}

// corner is one face vertex: position and normal indices, 0-based, -1 absent.
type corner struct {
	v, n int
}

type reader struct {
	positions []mgl64.Vec3
	normals   []mgl64.Vec3
	faces     [][]corner
	line      int
}

// Read parses OBJ statements from r. Vertices are emitted once per distinct
// position/normal pair. If any face corner lacks a normal, or references a
// zero-length one, the mesh carries no normals.
func Read(r io.Reader) (*mesh.Mesh, error) {
	rd := &reader{}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		rd.line++
		if err := rd.statement(sc.Text()); err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return rd.build(), nil
}

func (rd *reader) statement(text string) error {
	if i := strings.IndexByte(text, '#'); i >= 0 {
		text = text[:i]
	}
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil
	}

	switch fields[0] {
	case "v":
		p, err := rd.vec3(fields[1:])
		if err != nil {
			return err
		}
		rd.positions = append(rd.positions, p)
	case "vn":
		n, err := rd.vec3(fields[1:])
		if err != nil {
			return err
		}
		rd.normals = append(rd.normals, n)
	case "f":
		if len(fields) < 4 {
			return rd.errorf("face with %d vertices", len(fields)-1)
		}
		face := make([]corner, 0, len(fields)-1)
		for _, tok := range fields[1:] {
			c, err := rd.corner(tok)
			if err != nil {
				return err
			}
			face = append(face, c)
		}
		rd.faces = append(rd.faces, face)
	}
	return nil
}

func (rd *reader) vec3(fields []string) (mgl64.Vec3, error) {
	// A fourth (w) component is allowed and ignored.
	if len(fields) < 3 {
		return mgl64.Vec3{}, rd.errorf("need 3 components, got %d", len(fields))
	}
	var v mgl64.Vec3
	for i := 0; i < 3; i++ {
		f, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return mgl64.Vec3{}, rd.errorf("bad number %q", fields[i])
		}
		v[i] = f
	}
	return v, nil
}

// corner parses v, v/vt, v//vn or v/vt/vn. Negative indices count back from
// the most recent element.
func (rd *reader) corner(tok string) (corner, error) {
	parts := strings.Split(tok, "/")
	v, err := rd.index(parts[0], len(rd.positions))
	if err != nil {
		return corner{}, err
	}
	c := corner{v: v, n: -1}
	if len(parts) >= 3 && parts[2] != "" {
		if c.n, err = rd.index(parts[2], len(rd.normals)); err != nil {
			return corner{}, err
		}
	}
	return c, nil
}

func (rd *reader) index(s string, count int) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, rd.errorf("bad index %q", s)
	}
	switch {
	case i > 0 && i <= count:
		return i - 1, nil
	case i < 0 && -i <= count:
		return count + i, nil
	}
	return 0, rd.errorf("index %d out of range (%d defined)", i, count)
}

func (rd *reader) errorf(format string, args ...any) error {
	return fmt.Errorf("%w: line %d: %s", ErrSyntax, rd.line, fmt.Sprintf(format, args...))
}

func (rd *reader) build() *mesh.Mesh {
	withNormals := len(rd.normals) > 0
	for _, face := range rd.faces {
		for _, c := range face {
			// A zero-length normal has no direction; treat it as missing.
			if c.n < 0 || rd.normals[c.n].Len() < 1e-12 {
				withNormals = false
			}
		}
	}

	m := &mesh.Mesh{}
	if !withNormals {
		m.Positions = append(m.Positions, rd.positions...)
	}
	remap := make(map[corner]uint32)
	vertex := func(c corner) uint32 {
		if !withNormals {
			return uint32(c.v)
		}
		if idx, ok := remap[c]; ok {
			return idx
		}
		idx := uint32(len(m.Positions))
		m.Positions = append(m.Positions, rd.positions[c.v])
		m.Normals = append(m.Normals, rd.normals[c.n].Normalize())
		remap[c] = idx
		return idx
	}

	for _, face := range rd.faces {
		first := vertex(face[0])
		for i := 1; i+1 < len(face); i++ {
			m.Tris = append(m.Tris, [3]uint32{first, vertex(face[i]), vertex(face[i+1])})
		}
	}
	return m
}
