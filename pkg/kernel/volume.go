package kernel

import v3 "github.com/deadsy/sdfx/vec/v3"

// Centroid returns the mean of all vertex positions.
func Centroid(vertices []v3.Vec) v3.Vec {
	var c v3.Vec
	if len(vertices) == 0 {
		return c
	}
	for _, v := range vertices {
		c = c.Add(v)
	}
	return c.DivScalar(float64(len(vertices)))
}

// SignedVolume returns the signed enclosed volume of a closed mesh using
// the divergence theorem over tetrahedra fanned from the vertex centroid.
// Outward winding gives a positive result.
func SignedVolume(m *Mesh) float64 {
	if m.IsEmpty() {
		return 0
	}
	// Centering first keeps the triple products small for solids far
	// from the origin.
	c := Centroid(m.Vertices)
	var sum float64
	for _, f := range m.Faces {
		a := m.Vertices[f[0]].Sub(c)
		b := m.Vertices[f[1]].Sub(c)
		d := m.Vertices[f[2]].Sub(c)
		sum += a.Dot(b.Cross(d))
	}
	return sum / 6
}

// Volume returns the enclosed volume of a closed mesh, independent of
// winding. Empty and degenerate meshes measure 0.
func Volume(m *Mesh) float64 {
	v := SignedVolume(m)
	if v < 0 {
		return -v
	}
	return v
}

// MeasureClosed validates m, requires it to be closed, and returns its
// volume.
func MeasureClosed(m *Mesh) (float64, error) {
	if err := m.Validate(); err != nil {
		return 0, err
	}
	if err := RequireClosed(m); err != nil {
		return 0, err
	}
	return Volume(m), nil
}

// SurfaceArea returns the total triangle area.
func SurfaceArea(m *Mesh) float64 {
	var area float64
	for i := range m.Faces {
		a, b, c := m.Triangle(i)
		area += b.Sub(a).Cross(c.Sub(a)).Length() / 2
	}
	return area
}

// Polygon3DArea returns the area of a planar polygon given in order.
func Polygon3DArea(pts []v3.Vec) float64 {
	if len(pts) < 3 {
		return 0
	}
	var sum v3.Vec
	for i := range pts {
		sum = sum.Add(pts[i].Cross(pts[(i+1)%len(pts)]))
	}
	return sum.Length() / 2
}
