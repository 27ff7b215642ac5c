package kernel

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// --- Mesh helper method tests ---

func TestMeshCounts(t *testing.T) {
	tests := []struct {
		name      string
		mesh      *Mesh
		wantVerts int
		wantTris  int
		wantEmpty bool
	}{
		{"empty", &Mesh{}, 0, 0, true},
		{"vertices only", &Mesh{Vertices: []v3.Vec{{X: 1}}}, 1, 0, true},
		{"unit cube", UnitCube(), 8, 12, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.mesh.VertexCount(); got != tt.wantVerts {
				t.Errorf("VertexCount() = %d, want %d", got, tt.wantVerts)
			}
			if got := tt.mesh.TriangleCount(); got != tt.wantTris {
				t.Errorf("TriangleCount() = %d, want %d", got, tt.wantTris)
			}
			if got := tt.mesh.IsEmpty(); got != tt.wantEmpty {
				t.Errorf("IsEmpty() = %v, want %v", got, tt.wantEmpty)
			}
		})
	}
}

func TestMeshValidate(t *testing.T) {
	tests := []struct {
		name    string
		mesh    *Mesh
		wantErr bool
	}{
		{"cube", UnitCube(), false},
		{"nil", nil, true},
		{"dangling index", &Mesh{Vertices: make([]v3.Vec, 3), Faces: []Face{{0, 1, 3}}}, true},
		{"negative index", &Mesh{Vertices: make([]v3.Vec, 3), Faces: []Face{{-1, 1, 2}}}, true},
		{"repeated index", &Mesh{Vertices: make([]v3.Vec, 3), Faces: []Face{{0, 1, 1}}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.mesh.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidInput) {
				t.Errorf("Validate() error = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestMeshCompact(t *testing.T) {
	m := UnitCube()
	m.Vertices = append(m.Vertices, v3.Vec{X: 99, Y: 99, Z: 99})
	m.Faces = m.Faces[:2]

	c := m.Compact()
	if c.VertexCount() != 4 {
		t.Fatalf("Compact() VertexCount = %d, want 4", c.VertexCount())
	}
	if c.TriangleCount() != 2 {
		t.Fatalf("Compact() TriangleCount = %d, want 2", c.TriangleCount())
	}
	for i := range c.Faces {
		a, b, d := c.Triangle(i)
		wa, wb, wd := m.Triangle(i)
		if a != wa || b != wb || d != wd {
			t.Errorf("face %d moved: got %v %v %v, want %v %v %v", i, a, b, d, wa, wb, wd)
		}
	}
}

func TestMeshCloneIsDeep(t *testing.T) {
	m := UnitCube()
	c := m.Clone()
	c.Vertices[0].X = 42
	c.Faces[0][0] = 7
	if m.Vertices[0].X == 42 || m.Faces[0][0] == 7 {
		t.Error("Clone() shares storage with the original")
	}
}

func TestMeshBounds(t *testing.T) {
	m := Box(v3.Vec{X: -1, Y: 2, Z: 3}, v3.Vec{X: 4, Y: 5, Z: 10})
	got := m.Bounds()
	want := sdf.Box3{Min: v3.Vec{X: -1, Y: 2, Z: 3}, Max: v3.Vec{X: 4, Y: 5, Z: 10}}
	if got != want {
		t.Errorf("Bounds() = %v, want %v", got, want)
	}
	if l := m.LongestExtent(); l != 7 {
		t.Errorf("LongestExtent() = %v, want 7", l)
	}
}

func TestMeshJSON(t *testing.T) {
	data, err := json.Marshal(UnitCube())
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal(raw) error = %v", err)
	}
	if _, ok := raw["vertices"]; !ok {
		t.Errorf("encoded mesh lacks \"vertices\": %s", data)
	}
	if _, ok := raw["faces"]; !ok {
		t.Errorf("encoded mesh lacks \"faces\": %s", data)
	}

	var m Mesh
	if err := json.Unmarshal([]byte(`{"vertices":[[0,0,0],[1,0,0],[0,1,0]],"faces":[[0,1,2]]}`), &m); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if m.VertexCount() != 3 || m.TriangleCount() != 1 {
		t.Fatalf("decoded %d vertices and %d faces, want 3 and 1", m.VertexCount(), m.TriangleCount())
	}
	if m.Vertices[1] != (v3.Vec{X: 1}) {
		t.Errorf("Vertices[1] = %v, want {1 0 0}", m.Vertices[1])
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorKind
	}{
		{nil, KindUnknown},
		{errors.New("other"), KindUnknown},
		{fmt.Errorf("clip: %w", ErrNoIntersection), KindNoIntersection},
		{fmt.Errorf("cap: %w", ErrDegenerateGeometry), KindDegenerateGeometry},
		{fmt.Errorf("mesh: %w", ErrInvalidInput), KindInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.want.String(), func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

// --- Compile-time interface check with a stub modeler ---

type stubSolid struct {
	bb sdf.Box3
}

func (s *stubSolid) BoundingBox() sdf.Box3 { return s.bb }

type stubModeler struct{}

func (k *stubModeler) Box(x, y, z float64) (Solid, error) {
	return &stubSolid{bb: sdf.Box3{Max: v3.Vec{X: x, Y: y, Z: z}}}, nil
}

func (k *stubModeler) Cylinder(height, radius float64) (Solid, error) {
	return &stubSolid{bb: sdf.Box3{
		Min: v3.Vec{X: -radius, Y: -radius},
		Max: v3.Vec{X: radius, Y: radius, Z: height},
	}}, nil
}

func (k *stubModeler) Union(a, _ Solid) Solid                   { return a }
func (k *stubModeler) Difference(a, _ Solid) Solid              { return a }
func (k *stubModeler) Translate(s Solid, _, _, _ float64) Solid { return s }
func (k *stubModeler) Rotate(s Solid, _, _, _ float64) Solid    { return s }

func (k *stubModeler) ToMesh(s Solid) (*Mesh, error) {
	bb := s.BoundingBox()
	return Box(bb.Min, bb.Max), nil
}

var _ Solid = (*stubSolid)(nil)
var _ Modeler = (*stubModeler)(nil)

func TestStubModelerToMesh(t *testing.T) {
	var k Modeler = &stubModeler{}
	s, err := k.Box(2, 3, 4)
	if err != nil {
		t.Fatalf("Box() error = %v", err)
	}
	m, err := k.ToMesh(s)
	if err != nil {
		t.Fatalf("ToMesh() error = %v", err)
	}
	if got := Volume(m); !approx(got, 24, 1e-12) {
		t.Errorf("Volume(ToMesh(Box(2,3,4))) = %v, want 24", got)
	}
}

func approx(a, b, tol float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= tol
}

func TestBasis(t *testing.T) {
	normals := []v3.Vec{
		{Z: 1}, {Z: -1}, {X: 1}, {Y: -1},
		v3.Vec{X: 1, Y: 2, Z: 3}.Normalize(),
	}
	for _, n := range normals {
		tv, bv := Basis(n)
		if !approx(tv.Dot(n), 0, 1e-12) || !approx(bv.Dot(n), 0, 1e-12) || !approx(tv.Dot(bv), 0, 1e-12) {
			t.Errorf("Basis(%v) = %v, %v, not orthogonal", n, tv, bv)
		}
		if !approx(tv.Length(), 1, 1e-12) || !approx(bv.Length(), 1, 1e-12) {
			t.Errorf("Basis(%v) = %v, %v, not unit", n, tv, bv)
		}
		if c := tv.Cross(bv); !approx(c.Dot(n), 1, 1e-12) {
			t.Errorf("Basis(%v) is left-handed", n)
		}
	}
}
