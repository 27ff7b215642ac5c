// Package kernel defines the indexed triangle solid shared by every
// splitting stage, the measurements taken on it, and the abstract
// interfaces behind which solid modeling and boolean backends live.
// Implementations (bsp, manifold, sdfx) satisfy these interfaces so the
// split pipeline can swap backends without changing.
package kernel

import "github.com/deadsy/sdfx/sdf"

// Solid is an opaque handle to a modeling backend solid.
// Implementations wrap their internal representation.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() sdf.Box3
}

// Modeler builds source solids (columns, slabs, composed elements) that
// are later tessellated into a Mesh and handed to the splitter.
type Modeler interface {
	// Primitives
	Box(x, y, z float64) (Solid, error)
	Cylinder(height, radius float64) (Solid, error)

	// Composition
	Union(a, b Solid) Solid
	Difference(a, b Solid) Solid

	// Transforms
	Translate(s Solid, x, y, z float64) Solid
	Rotate(s Solid, x, y, z float64) Solid // Euler angles in degrees

	// Mesh output
	ToMesh(s Solid) (*Mesh, error)
}

// BooleanSolidOps computes the two halves of a sketched split. Both
// operands are closed meshes in the same coordinate space; results are
// closed indexed meshes, possibly empty.
type BooleanSolidOps interface {
	// Subtract returns a minus b.
	Subtract(a, b *Mesh) (*Mesh, error)
	// Intersect returns the part of a inside b.
	Intersect(a, b *Mesh) (*Mesh, error)
}
