package sketch

import (
	"fmt"

	"github.com/chazu/kerf/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

const (
	// MinDepthFactor is the shallowest allowed prism, as a multiple of
	// the host's longest extent.
	MinDepthFactor = 1.5
	// DefaultMarginFactor lifts the prism's top off the face, as a
	// multiple of the host's longest extent, so the face itself is cut.
	DefaultMarginFactor = 0.05
)

// Face locates the sketch: a point on the host face and the face's
// outward normal.
type Face struct {
	Point  v3.Vec
	Normal v3.Vec
}

// Options tunes Prism.
type Options struct {
	// DepthFactor scales the host extent into the extrusion depth; values
	// below MinDepthFactor are raised to it.
	DepthFactor float64
	// MarginFactor scales the host extent into the lift above the face;
	// zero selects DefaultMarginFactor.
	MarginFactor float64
}

// Prism extrudes the closed loop drawn on face through the host solid
// along the inward normal. extent is the host's longest bounding box
// dimension. The loop may repeat its first point at the end. The result
// is a closed, outward-wound mesh.
func Prism(face Face, loop []v3.Vec, extent float64, opts Options) (*kernel.Mesh, error) {
	if extent <= 0 {
		return nil, fmt.Errorf("sketch: host extent %v: %w", extent, kernel.ErrInvalidInput)
	}
	frame, err := NewFrame(face.Point, face.Normal)
	if err != nil {
		return nil, err
	}

	flat := make(Polygon, len(loop))
	for i, p := range loop {
		flat[i] = frame.Project(p)
	}
	poly, err := Clean(flat, 1e-9*extent)
	if err != nil {
		return nil, err
	}
	tris, err := Triangulate(poly)
	if err != nil {
		return nil, err
	}

	depth := max(opts.DepthFactor, MinDepthFactor) * extent
	margin := opts.MarginFactor
	if margin <= 0 {
		margin = DefaultMarginFactor
	}
	top := margin * extent

	n := len(poly)
	m := &kernel.Mesh{
		Vertices: make([]v3.Vec, 0, 2*n),
		Faces:    make([]kernel.Face, 0, 2*len(tris)+2*n),
	}
	// Ring 0 is the lifted top, ring 1 the far bottom.
	for _, q := range poly {
		m.Vertices = append(m.Vertices, frame.Lift(q, top))
	}
	for _, q := range poly {
		m.Vertices = append(m.Vertices, frame.Lift(q, -depth))
	}

	for _, t := range tris {
		m.Faces = append(m.Faces,
			kernel.Face{t[0], t[1], t[2]},
			kernel.Face{t[0] + n, t[2] + n, t[1] + n},
		)
	}
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		bi, bj := i+n, j+n
		m.Faces = append(m.Faces,
			kernel.Face{bi, bj, j},
			kernel.Face{bi, j, i},
		)
	}
	return m, nil
}
