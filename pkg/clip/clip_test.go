package clip

import (
	"errors"
	"math"
	"testing"

	"github.com/chazu/kerf/pkg/kernel"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// extrude builds a closed prism from a counter-clockwise polygon in the XY
// plane and a triangulation of it, spanning z0 to z1.
func extrude(poly [][2]float64, tris [][3]int, z0, z1 float64) *kernel.Mesh {
	n := len(poly)
	m := &kernel.Mesh{}
	for _, p := range poly {
		m.Vertices = append(m.Vertices, v3.Vec{X: p[0], Y: p[1], Z: z0})
	}
	for _, p := range poly {
		m.Vertices = append(m.Vertices, v3.Vec{X: p[0], Y: p[1], Z: z1})
	}
	for _, t := range tris {
		m.Faces = append(m.Faces, kernel.Face{t[0], t[2], t[1]})
		m.Faces = append(m.Faces, kernel.Face{t[0] + n, t[1] + n, t[2] + n})
	}
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		m.Faces = append(m.Faces, kernel.Face{i, j, j + n}, kernel.Face{i, j + n, i + n})
	}
	return m
}

// uShape is a U-shaped prism of volume 5 whose legs rise above y=1.
func uShape() *kernel.Mesh {
	return extrude(
		[][2]float64{{0, 0}, {3, 0}, {3, 2}, {2, 2}, {2, 1}, {1, 1}, {1, 2}, {0, 2}},
		[][3]int{{0, 1, 4}, {1, 2, 4}, {2, 3, 4}, {0, 4, 5}, {0, 5, 7}, {5, 6, 7}},
		0, 1)
}

func tetra() *kernel.Mesh {
	return &kernel.Mesh{
		Vertices: []v3.Vec{{}, {X: 1}, {Y: 1}, {Z: 1}},
		Faces:    []kernel.Face{{0, 2, 1}, {0, 1, 3}, {0, 3, 2}, {1, 2, 3}},
	}
}

func mustPlane(t *testing.T, axis Axis, pct float64, b sdf.Box3) Plane {
	t.Helper()
	p, err := AxisPlane(axis, pct, b)
	if err != nil {
		t.Fatalf("AxisPlane(%v, %v) error = %v", axis, pct, err)
	}
	return p
}

func TestAxisPlane(t *testing.T) {
	b := sdf.Box3{Min: v3.Vec{X: 0, Y: 10, Z: -2}, Max: v3.Vec{X: 4, Y: 20, Z: 2}}
	tests := []struct {
		axis Axis
		pct  float64
		want float64
	}{
		{AxisX, 50, 2},
		{AxisY, 25, 12.5},
		{AxisZ, 0, -2},
		{AxisZ, 100, 2},
		{AxisZ, 150, 4},
	}
	for _, tt := range tests {
		p := mustPlane(t, tt.axis, tt.pct, b)
		if p.Offset != tt.want {
			t.Errorf("AxisPlane(%v, %v).Offset = %v, want %v", tt.axis, tt.pct, p.Offset, tt.want)
		}
		if p.Normal != tt.axis.Unit() {
			t.Errorf("AxisPlane(%v).Normal = %v, want %v", tt.axis, p.Normal, tt.axis.Unit())
		}
	}
	if _, err := AxisPlane(AxisX, math.NaN(), b); !errors.Is(err, kernel.ErrInvalidInput) {
		t.Errorf("AxisPlane(NaN) error = %v, want ErrInvalidInput", err)
	}
}

func TestParseAxis(t *testing.T) {
	for _, s := range []string{"x", "Y", "z"} {
		a, err := ParseAxis(s)
		if err != nil {
			t.Fatalf("ParseAxis(%q) error = %v", s, err)
		}
		var back Axis
		txt, _ := a.MarshalText()
		if err := back.UnmarshalText(txt); err != nil || back != a {
			t.Errorf("text round trip of %v = %v, %v", a, back, err)
		}
	}
	if _, err := ParseAxis("w"); err == nil {
		t.Error("ParseAxis(\"w\") error = nil, want error")
	}
}

func TestNewPlane(t *testing.T) {
	p, err := NewPlane(v3.Vec{Z: 2}, v3.Vec{X: 5, Z: 3})
	if err != nil {
		t.Fatalf("NewPlane() error = %v", err)
	}
	if p.Normal != (v3.Vec{Z: 1}) || p.Offset != 3 {
		t.Errorf("NewPlane() = %+v, want normal {0 0 1} offset 3", p)
	}
	if _, err := NewPlane(v3.Vec{}, v3.Vec{}); !errors.Is(err, kernel.ErrInvalidInput) {
		t.Errorf("NewPlane(zero) error = %v, want ErrInvalidInput", err)
	}
}

func TestClassifyIsIdempotent(t *testing.T) {
	m := uShape()
	p := mustPlane(t, AxisY, 75, m.Bounds())
	first := Classify(m, p, DefaultEpsilon)
	for i := 0; i < 3; i++ {
		again := Classify(m, p, DefaultEpsilon)
		for j := range first {
			if first[j] != again[j] {
				t.Fatalf("Classify run %d vertex %d = %v, want %v", i, j, again[j], first[j])
			}
		}
	}
}

func TestClassifyTolerance(t *testing.T) {
	m := &kernel.Mesh{Vertices: []v3.Vec{{Z: -1}, {Z: 5e-6}, {Z: -5e-6}, {Z: 1}}}
	got := Classify(m, Plane{Normal: v3.Vec{Z: 1}}, DefaultEpsilon)
	want := []Side{Below, On, On, Above}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Classify()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestClipSharesCutVertices(t *testing.T) {
	m := kernel.UnitCube()
	res, err := Clip(m, mustPlane(t, AxisZ, 50, m.Bounds()), DefaultEpsilon)
	if err != nil {
		t.Fatalf("Clip() error = %v", err)
	}
	// Four vertical edges and four side diagonals cross z=0.5.
	if len(res.Cuts) != 8 {
		t.Errorf("len(Cuts) = %d, want 8", len(res.Cuts))
	}
	if res.Straddled != 8 {
		t.Errorf("Straddled = %d, want 8", res.Straddled)
	}
	if got := len(res.Vertices); got != 8+8 {
		t.Errorf("len(Vertices) = %d, want 16", got)
	}
	for _, c := range res.Cuts {
		if z := res.Vertices[c.Index].Z; math.Abs(z-0.5) > 1e-12 {
			t.Errorf("cut vertex %d at z=%v, want 0.5", c.Index, z)
		}
	}
	// 2 untouched + 8 crossed triangles (1 or 2 pieces each) per side.
	if len(res.Below)+len(res.Above) != 4+8*3 {
		t.Errorf("triangle count = %d, want %d", len(res.Below)+len(res.Above), 4+8*3)
	}
}

func TestClipNoIntersection(t *testing.T) {
	m := kernel.UnitCube()
	for _, pct := range []float64{-10, 0, 100, 150} {
		_, err := Clip(m, mustPlane(t, AxisZ, pct, m.Bounds()), DefaultEpsilon)
		if !errors.Is(err, kernel.ErrNoIntersection) {
			t.Errorf("Clip(z=%v%%) error = %v, want ErrNoIntersection", pct, err)
		}
	}
}

func TestSplitThroughGapBetweenComponents(t *testing.T) {
	// Two unit boxes with a gap over 1 < x < 2: the x=1.5 plane leaves a
	// whole box on each side and crosses no triangle.
	m := kernel.Box(v3.Vec{}, v3.Vec{X: 1, Y: 1, Z: 1})
	far := kernel.Box(v3.Vec{X: 2}, v3.Vec{X: 3, Y: 1, Z: 1})
	n := len(m.Vertices)
	m.Vertices = append(m.Vertices, far.Vertices...)
	for _, f := range far.Faces {
		m.Faces = append(m.Faces, kernel.Face{f[0] + n, f[1] + n, f[2] + n})
	}
	p := mustPlane(t, AxisX, 50, m.Bounds())

	res, err := Clip(m, p, DefaultEpsilon)
	if err != nil {
		t.Fatalf("Clip() error = %v", err)
	}
	if res.Straddled != 0 {
		t.Errorf("Straddled = %d, want 0", res.Straddled)
	}
	_, _, err = Split(m, p, Options{})
	if !errors.Is(err, kernel.ErrNoIntersection) {
		t.Errorf("Split() error = %v, want ErrNoIntersection", err)
	}
}

func TestClipRejectsInvalidMesh(t *testing.T) {
	m := &kernel.Mesh{Vertices: make([]v3.Vec, 2), Faces: []kernel.Face{{0, 1, 2}}}
	if _, err := Clip(m, Plane{Normal: v3.Vec{Z: 1}}, 0); !errors.Is(err, kernel.ErrInvalidInput) {
		t.Errorf("Clip(invalid) error = %v, want ErrInvalidInput", err)
	}
}

func TestSplitConservesVolume(t *testing.T) {
	oblique, err := NewPlane(v3.Vec{X: 1, Y: 2, Z: 3}, v3.Vec{X: 0.4, Y: 0.5, Z: 0.6})
	if err != nil {
		t.Fatal(err)
	}
	diagonal, err := NewPlane(v3.Vec{X: 1, Y: -1}, v3.Vec{})
	if err != nil {
		t.Fatal(err)
	}
	offsetBox := kernel.Box(v3.Vec{X: 100, Y: -50, Z: 7}, v3.Vec{X: 104, Y: -47, Z: 9})

	tests := []struct {
		name      string
		mesh      *kernel.Mesh
		plane     Plane
		wantBelow float64
	}{
		{"cube z 50%", kernel.UnitCube(), mustPlane(t, AxisZ, 50, kernel.UnitCube().Bounds()), 0.5},
		{"cube x 30%", kernel.UnitCube(), mustPlane(t, AxisX, 30, kernel.UnitCube().Bounds()), 0.3},
		{"cube y 90%", kernel.UnitCube(), mustPlane(t, AxisY, 90, kernel.UnitCube().Bounds()), 0.9},
		{"offset box z 25%", offsetBox, mustPlane(t, AxisZ, 25, offsetBox.Bounds()), 6},
		{"tetra z 50%", tetra(), mustPlane(t, AxisZ, 50, tetra().Bounds()), 1.0/6 - 1.0/48},
		{"cube oblique", kernel.UnitCube(), oblique, -1},
		{"cube through edges", kernel.UnitCube(), diagonal, 0.5},
		{"u-shape through legs", uShape(), mustPlane(t, AxisY, 75, uShape().Bounds()), 4},
		{"u-shape through base", uShape(), mustPlane(t, AxisY, 25, uShape().Bounds()), 1.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			below, above, err := Split(tt.mesh, tt.plane, Options{})
			if err != nil {
				t.Fatalf("Split() error = %v", err)
			}
			for name, m := range map[string]*kernel.Mesh{"below": below, "above": above} {
				if err := m.Validate(); err != nil {
					t.Errorf("%s: Validate() error = %v", name, err)
				}
				if edges := kernel.BoundaryEdges(m); len(edges) != 0 {
					t.Errorf("%s: %d boundary edges, want closed", name, len(edges))
				}
				if kernel.SignedVolume(m) <= 0 {
					t.Errorf("%s: SignedVolume = %v, want outward winding", name, kernel.SignedVolume(m))
				}
			}

			whole := kernel.Volume(tt.mesh)
			vb, va := kernel.Volume(below), kernel.Volume(above)
			if rel := math.Abs(vb+va-whole) / whole; rel > 1e-4 {
				t.Errorf("volume(below)+volume(above) = %v, want %v (rel err %g)", vb+va, whole, rel)
			}
			if tt.wantBelow >= 0 && math.Abs(vb-tt.wantBelow)/whole > 1e-4 {
				t.Errorf("volume(below) = %v, want %v", vb, tt.wantBelow)
			}
		})
	}
}

func TestSplitCapsFaceOutward(t *testing.T) {
	m := kernel.UnitCube()
	below, above, err := Split(m, mustPlane(t, AxisZ, 50, m.Bounds()), Options{CapOffset: 1e-3})
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if got := below.Bounds().Max.Z; math.Abs(got-0.501) > 1e-12 {
		t.Errorf("below top = %v, want 0.501", got)
	}
	if got := above.Bounds().Min.Z; math.Abs(got-0.499) > 1e-12 {
		t.Errorf("above bottom = %v, want 0.499", got)
	}
}

func TestCapRejectsDegenerateSection(t *testing.T) {
	res := &Result{
		Plane:    Plane{Normal: v3.Vec{Z: 1}},
		Vertices: []v3.Vec{{}, {X: 1}, {X: 2}},
		Below:    []kernel.Face{{0, 1, 2}},
		Above:    []kernel.Face{{0, 2, 1}},
	}
	if _, _, err := Cap(res, 1e-6); !errors.Is(err, kernel.ErrDegenerateGeometry) {
		t.Errorf("Cap(collinear) error = %v, want ErrDegenerateGeometry", err)
	}
}

func TestSortByAngle(t *testing.T) {
	pts := []v3.Vec{{X: 1}, {X: -1}, {Y: 1}, {Y: -1}}
	got := SortByAngle(pts, v3.Vec{Z: 1})
	// Counter-clockwise seen from +z: each step turns left.
	for i := range got {
		a := pts[got[i]]
		b := pts[got[(i+1)%len(got)]]
		if a.Cross(b).Z <= 0 {
			t.Fatalf("SortByAngle() = %v, not counter-clockwise at %d", got, i)
		}
	}
}

func TestAngleLoopOrientation(t *testing.T) {
	res := &Result{
		Plane:    Plane{Normal: v3.Vec{Z: 1}},
		Vertices: []v3.Vec{{}, {X: 1}, {X: 1, Y: 1}, {Y: 1}},
	}
	up := angleLoop(res, []int{0, 1, 2, 3}, 1)
	down := angleLoop(res, []int{0, 1, 2, 3}, -1)
	area := func(loop []int) float64 {
		var s float64
		for i := range loop {
			a, b := res.Vertices[loop[i]], res.Vertices[loop[(i+1)%len(loop)]]
			s += a.X*b.Y - b.X*a.Y
		}
		return s / 2
	}
	if area(up) >= 0 {
		t.Errorf("upward cap loop area = %v, want clockwise", area(up))
	}
	if area(down) <= 0 {
		t.Errorf("downward cap loop area = %v, want counter-clockwise", area(down))
	}
}
