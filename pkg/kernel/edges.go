package kernel

import (
	"fmt"
	"math"
	"sort"
)

// Edge is an undirected edge between two vertex indices, stored with
// A < B so it can be used as a map key.
type Edge struct {
	A, B int
}

// MakeEdge returns the canonical edge for the unordered pair (i, j).
func MakeEdge(i, j int) Edge {
	if i > j {
		i, j = j, i
	}
	return Edge{A: i, B: j}
}

// EdgeCounts returns how many triangles use each undirected edge.
func EdgeCounts(m *Mesh) map[Edge]int {
	counts := make(map[Edge]int, len(m.Faces)*3/2)
	for _, f := range m.Faces {
		counts[MakeEdge(f[0], f[1])]++
		counts[MakeEdge(f[1], f[2])]++
		counts[MakeEdge(f[2], f[0])]++
	}
	return counts
}

// BoundaryEdges returns the edges used by exactly one triangle, sorted.
// For a closed solid the result is empty.
func BoundaryEdges(m *Mesh) []Edge {
	var out []Edge
	for e, n := range EdgeCounts(m) {
		if n == 1 {
			out = append(out, e)
		}
	}
	sortEdges(out)
	return out
}

func sortEdges(out []Edge) {
	sort.Slice(out, func(i, j int) bool {
		if out[i].A != out[j].A {
			return out[i].A < out[j].A
		}
		return out[i].B < out[j].B
	})
}

// FeatureEdges returns the boundary edges of m plus the edges where the
// two adjacent faces meet at more than angle radians, sorted. Edges
// shared by more than two faces are always included.
func FeatureEdges(m *Mesh, angle float64) []Edge {
	faces := make(map[Edge][]int, len(m.Faces)*3/2)
	for i, f := range m.Faces {
		for k := 0; k < 3; k++ {
			e := MakeEdge(f[k], f[(k+1)%3])
			faces[e] = append(faces[e], i)
		}
	}
	limit := math.Cos(angle)
	var out []Edge
	for e, fs := range faces {
		if len(fs) != 2 || m.FaceNormal(fs[0]).Dot(m.FaceNormal(fs[1])) < limit {
			out = append(out, e)
		}
	}
	sortEdges(out)
	return out
}

// IsClosed reports whether every edge is shared by exactly two triangles.
func IsClosed(m *Mesh) bool {
	if m.IsEmpty() {
		return false
	}
	for _, n := range EdgeCounts(m) {
		if n != 2 {
			return false
		}
	}
	return true
}

// RequireClosed returns an ErrInvalidInput error describing the first
// problem found when m is not a closed solid.
func RequireClosed(m *Mesh) error {
	if m.IsEmpty() {
		return fmt.Errorf("mesh: no triangles: %w", ErrInvalidInput)
	}
	open, over := 0, 0
	for _, n := range EdgeCounts(m) {
		switch {
		case n == 1:
			open++
		case n > 2:
			over++
		}
	}
	if open > 0 || over > 0 {
		return fmt.Errorf("mesh: not closed (%d boundary edges, %d non-manifold edges): %w", open, over, ErrInvalidInput)
	}
	return nil
}
