// Package sdfx implements kernel.Modeler using the github.com/deadsy/sdfx
// SDF-based CAD library. It produces the source solids that are split:
// boxes, columns and their compositions, tessellated by marching cubes
// and welded into indexed meshes.
package sdfx

import (
	"fmt"
	"math"

	"github.com/chazu/kerf/pkg/kernel"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Compile-time interface check.
var _ kernel.Modeler = (*Modeler)(nil)

// DefaultMeshCells controls marching cubes resolution along the longest
// bounding box side.
const DefaultMeshCells = 64

// solid wraps an sdf.SDF3 to implement kernel.Solid.
type solid struct {
	s sdf.SDF3
}

// BoundingBox returns the axis-aligned bounding box.
func (s *solid) BoundingBox() sdf.Box3 {
	return s.s.BoundingBox()
}

// Modeler implements kernel.Modeler using sdfx.
type Modeler struct {
	// Cells is the marching cubes resolution; zero selects DefaultMeshCells.
	Cells int
	// WeldPrecision merges marching cubes vertices; zero selects
	// kernel.DefaultWeldPrecision.
	WeldPrecision float64
}

// New returns a Modeler with default resolution.
func New() *Modeler {
	return &Modeler{}
}

func unwrap(s kernel.Solid) sdf.SDF3 {
	return s.(*solid).s
}

func wrap(s sdf.SDF3) kernel.Solid {
	return &solid{s: s}
}

// Box creates a box with its minimum corner at the origin. sdf.Box3D
// centers the box, so it is shifted by half its size.
func (k *Modeler) Box(x, y, z float64) (kernel.Solid, error) {
	s, err := sdf.Box3D(v3.Vec{X: x, Y: y, Z: z}, 0)
	if err != nil {
		return nil, fmt.Errorf("sdfx: box %gx%gx%g: %w: %v", x, y, z, kernel.ErrInvalidInput, err)
	}
	m := sdf.Translate3d(v3.Vec{X: x / 2, Y: y / 2, Z: z / 2})
	return wrap(sdf.Transform3D(s, m)), nil
}

// Cylinder creates a Z-axis column standing on the origin.
func (k *Modeler) Cylinder(height, radius float64) (kernel.Solid, error) {
	s, err := sdf.Cylinder3D(height, radius, 0)
	if err != nil {
		return nil, fmt.Errorf("sdfx: cylinder h=%g r=%g: %w: %v", height, radius, kernel.ErrInvalidInput, err)
	}
	return wrap(sdf.Transform3D(s, sdf.Translate3d(v3.Vec{Z: height / 2}))), nil
}

// Union returns the union of two solids.
func (k *Modeler) Union(a, b kernel.Solid) kernel.Solid {
	return wrap(sdf.Union3D(unwrap(a), unwrap(b)))
}

// Difference returns the difference a - b.
func (k *Modeler) Difference(a, b kernel.Solid) kernel.Solid {
	return wrap(sdf.Difference3D(unwrap(a), unwrap(b)))
}

// Translate moves a solid by (x, y, z).
func (k *Modeler) Translate(s kernel.Solid, x, y, z float64) kernel.Solid {
	m := sdf.Translate3d(v3.Vec{X: x, Y: y, Z: z})
	return wrap(sdf.Transform3D(unwrap(s), m))
}

// Rotate rotates a solid by Euler angles (degrees) around X, Y, Z axes.
func (k *Modeler) Rotate(s kernel.Solid, x, y, z float64) kernel.Solid {
	xRad := x * math.Pi / 180.0
	yRad := y * math.Pi / 180.0
	zRad := z * math.Pi / 180.0

	m := sdf.RotateZ(zRad).Mul(sdf.RotateY(yRad)).Mul(sdf.RotateX(xRad))
	return wrap(sdf.Transform3D(unwrap(s), m))
}

// ToMesh tessellates a solid with marching cubes and welds the triangle
// soup into an indexed mesh.
func (k *Modeler) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	cells := k.Cells
	if cells <= 0 {
		cells = DefaultMeshCells
	}
	triangles := render.ToTriangles(unwrap(s), render.NewMarchingCubesUniform(cells))
	if len(triangles) == 0 {
		return nil, fmt.Errorf("sdfx: solid tessellated to nothing: %w", kernel.ErrDegenerateGeometry)
	}

	w := kernel.NewWelder(k.WeldPrecision)
	for _, tri := range triangles {
		w.Triangle(tri[0], tri[1], tri[2])
	}
	return w.Mesh(), nil
}
