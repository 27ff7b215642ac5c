package kernel

import (
	"testing"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

func TestWeldMergesSoup(t *testing.T) {
	// Expand the cube into independent triangles, jittered below the grid.
	cube := UnitCube()
	soup := &Mesh{}
	for i := range cube.Faces {
		a, b, c := cube.Triangle(i)
		base := len(soup.Vertices)
		jitter := v3.Vec{X: 1e-7 * float64(i%3)}
		soup.Vertices = append(soup.Vertices, a.Add(jitter), b, c)
		soup.Faces = append(soup.Faces, Face{base, base + 1, base + 2})
	}

	w := Weld(soup, DefaultWeldPrecision)
	if w.VertexCount() != 8 {
		t.Errorf("Weld() VertexCount = %d, want 8", w.VertexCount())
	}
	if w.TriangleCount() != 12 {
		t.Errorf("Weld() TriangleCount = %d, want 12", w.TriangleCount())
	}
	if !IsClosed(w) {
		t.Error("welded cube is not closed")
	}
}

func TestWelderDropsCollapsed(t *testing.T) {
	w := NewWelder(0)
	ok := w.Triangle(v3.Vec{}, v3.Vec{X: 1e-7}, v3.Vec{Y: 1})
	if ok {
		t.Error("Triangle() = true for a sliver that welds shut, want false")
	}
	if got := w.Mesh().TriangleCount(); got != 0 {
		t.Errorf("TriangleCount = %d, want 0", got)
	}
}

func TestComputeNormals(t *testing.T) {
	m := UnitCube()
	ns := ComputeNormals(m)
	if len(ns) != m.VertexCount() {
		t.Fatalf("ComputeNormals() len = %d, want %d", len(ns), m.VertexCount())
	}
	// Corner 6 is (1,1,1); its normal points away from the cube center.
	if n := ns[6]; n.X <= 0 || n.Y <= 0 || n.Z <= 0 {
		t.Errorf("normal at (1,1,1) = %v, want all components positive", n)
	}
	if n := m.FaceNormal(2); n != (v3.Vec{Z: 1}) {
		t.Errorf("FaceNormal(top) = %v, want {0 0 1}", n)
	}
}
