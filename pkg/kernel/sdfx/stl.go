package sdfx

import (
	"fmt"

	"github.com/chazu/kerf/pkg/kernel"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
)

// Triangles expands m into sdfx triangles.
func Triangles(m *kernel.Mesh) []*sdf.Triangle3 {
	out := make([]*sdf.Triangle3, len(m.Faces))
	for i := range m.Faces {
		a, b, c := m.Triangle(i)
		out[i] = &sdf.Triangle3{a, b, c}
	}
	return out
}

// ExportSTL writes m to path as a binary STL file.
func ExportSTL(path string, m *kernel.Mesh) error {
	if m.IsEmpty() {
		return fmt.Errorf("sdfx: export %s: empty mesh: %w", path, kernel.ErrInvalidInput)
	}
	if err := render.SaveSTL(path, Triangles(m)); err != nil {
		return fmt.Errorf("sdfx: export %s: %w", path, err)
	}
	return nil
}
