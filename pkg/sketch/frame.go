// Package sketch turns a closed polygon drawn on a solid's face into a
// prism solid that reaches through the host.
package sketch

import (
	"fmt"

	"github.com/chazu/kerf/pkg/kernel"
	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Frame is an orthonormal 2D coordinate system embedded in a face plane.
type Frame struct {
	Origin    v3.Vec
	Normal    v3.Vec
	Tangent   v3.Vec
	Bitangent v3.Vec
}

// NewFrame builds the frame at origin with the given outward face normal.
func NewFrame(origin, normal v3.Vec) (Frame, error) {
	l := normal.Length()
	if l < 1e-12 {
		return Frame{}, fmt.Errorf("sketch: face normal %v is zero: %w", normal, kernel.ErrInvalidInput)
	}
	n := normal.DivScalar(l)
	t, b := kernel.Basis(n)
	return Frame{Origin: origin, Normal: n, Tangent: t, Bitangent: b}, nil
}

// Project drops p onto the face plane and returns its 2D coordinates.
func (f Frame) Project(p v3.Vec) v2.Vec {
	d := p.Sub(f.Origin)
	return v2.Vec{X: d.Dot(f.Tangent), Y: d.Dot(f.Bitangent)}
}

// Lift returns the 3D point at 2D coordinates q, offset h along the normal.
func (f Frame) Lift(q v2.Vec, h float64) v3.Vec {
	return f.Origin.
		Add(f.Tangent.MulScalar(q.X)).
		Add(f.Bitangent.MulScalar(q.Y)).
		Add(f.Normal.MulScalar(h))
}
