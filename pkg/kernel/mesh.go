package kernel

import (
	"encoding/json"
	"fmt"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Face is a triangle as three indices into Mesh.Vertices, counter-clockwise
// when seen from outside the solid.
type Face [3]int

// Mesh is an indexed triangle solid. A valid solid is closed: every
// undirected edge is shared by exactly two triangles.
type Mesh struct {
	Vertices []v3.Vec
	Faces    []Face
}

// wireMesh is the persisted shape of a Mesh.
type wireMesh struct {
	Vertices [][3]float64 `json:"vertices"`
	Faces    [][3]int     `json:"faces"`
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices)
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Faces)
}

// IsEmpty returns true if the mesh has no triangles.
func (m *Mesh) IsEmpty() bool {
	return m == nil || len(m.Faces) == 0
}

// Triangle returns the corner positions of face i.
func (m *Mesh) Triangle(i int) (a, b, c v3.Vec) {
	f := m.Faces[i]
	return m.Vertices[f[0]], m.Vertices[f[1]], m.Vertices[f[2]]
}

// Clone returns a deep copy.
func (m *Mesh) Clone() *Mesh {
	out := &Mesh{
		Vertices: make([]v3.Vec, len(m.Vertices)),
		Faces:    make([]Face, len(m.Faces)),
	}
	copy(out.Vertices, m.Vertices)
	copy(out.Faces, m.Faces)
	return out
}

// Bounds returns the axis-aligned bounding box of all vertices.
// An empty mesh yields the zero box.
func (m *Mesh) Bounds() sdf.Box3 {
	if len(m.Vertices) == 0 {
		return sdf.Box3{}
	}
	lo, hi := m.Vertices[0], m.Vertices[0]
	for _, v := range m.Vertices[1:] {
		lo = v3.Vec{X: min(lo.X, v.X), Y: min(lo.Y, v.Y), Z: min(lo.Z, v.Z)}
		hi = v3.Vec{X: max(hi.X, v.X), Y: max(hi.Y, v.Y), Z: max(hi.Z, v.Z)}
	}
	return sdf.Box3{Min: lo, Max: hi}
}

// LongestExtent returns the longest bounding box dimension.
func (m *Mesh) LongestExtent() float64 {
	b := m.Bounds()
	return max(b.Max.X-b.Min.X, b.Max.Y-b.Min.Y, b.Max.Z-b.Min.Z)
}

// Validate checks that every face references three distinct, in-range
// vertices. It does not check closure; see RequireClosed.
func (m *Mesh) Validate() error {
	if m == nil {
		return fmt.Errorf("mesh: nil mesh: %w", ErrInvalidInput)
	}
	n := len(m.Vertices)
	for i, f := range m.Faces {
		for _, idx := range f {
			if idx < 0 || idx >= n {
				return fmt.Errorf("mesh: face %d references vertex %d of %d: %w", i, idx, n, ErrInvalidInput)
			}
		}
		if f[0] == f[1] || f[1] == f[2] || f[0] == f[2] {
			return fmt.Errorf("mesh: face %d repeats a vertex %v: %w", i, f, ErrInvalidInput)
		}
	}
	return nil
}

// Compact drops vertices no face references and renumbers the faces.
// Face order is preserved.
func (m *Mesh) Compact() *Mesh {
	remap := make(map[int]int, len(m.Vertices))
	out := &Mesh{Faces: make([]Face, 0, len(m.Faces))}
	for _, f := range m.Faces {
		var nf Face
		for j, idx := range f {
			k, ok := remap[idx]
			if !ok {
				k = len(out.Vertices)
				remap[idx] = k
				out.Vertices = append(out.Vertices, m.Vertices[idx])
			}
			nf[j] = k
		}
		out.Faces = append(out.Faces, nf)
	}
	return out
}

// MarshalJSON encodes the mesh as {"vertices": [[x,y,z]...], "faces": [[i,j,k]...]}.
func (m Mesh) MarshalJSON() ([]byte, error) {
	w := wireMesh{
		Vertices: make([][3]float64, len(m.Vertices)),
		Faces:    make([][3]int, len(m.Faces)),
	}
	for i, v := range m.Vertices {
		w.Vertices[i] = [3]float64{v.X, v.Y, v.Z}
	}
	for i, f := range m.Faces {
		w.Faces[i] = [3]int(f)
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes the form written by MarshalJSON.
func (m *Mesh) UnmarshalJSON(data []byte) error {
	var w wireMesh
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	m.Vertices = make([]v3.Vec, len(w.Vertices))
	for i, v := range w.Vertices {
		m.Vertices[i] = v3.Vec{X: v[0], Y: v[1], Z: v[2]}
	}
	m.Faces = make([]Face, len(w.Faces))
	for i, f := range w.Faces {
		m.Faces[i] = Face(f)
	}
	return nil
}
