package kernel

import v3 "github.com/deadsy/sdfx/vec/v3"

// FaceNormal returns the unit normal of face i, or the zero vector for a
// degenerate triangle.
func (m *Mesh) FaceNormal(i int) v3.Vec {
	a, b, c := m.Triangle(i)
	n := b.Sub(a).Cross(c.Sub(a))
	l := n.Length()
	if l < 1e-12 {
		return v3.Vec{}
	}
	return n.DivScalar(l)
}

// ComputeNormals generates per-vertex normals by averaging the
// area-weighted normals of the triangles incident on each vertex.
func ComputeNormals(m *Mesh) []v3.Vec {
	normals := make([]v3.Vec, len(m.Vertices))
	for _, f := range m.Faces {
		a, b, c := m.Vertices[f[0]], m.Vertices[f[1]], m.Vertices[f[2]]
		// Unnormalized, so larger triangles weigh more.
		n := b.Sub(a).Cross(c.Sub(a))
		for _, idx := range f {
			normals[idx] = normals[idx].Add(n)
		}
	}
	for i, n := range normals {
		if l := n.Length(); l > 1e-12 {
			normals[i] = n.DivScalar(l)
		}
	}
	return normals
}
