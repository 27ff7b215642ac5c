package kernel

import v3 "github.com/deadsy/sdfx/vec/v3"

// Box returns the exact 8-vertex, 12-triangle box spanning lo to hi with
// outward winding.
func Box(lo, hi v3.Vec) *Mesh {
	return &Mesh{
		Vertices: []v3.Vec{
			{X: lo.X, Y: lo.Y, Z: lo.Z}, // 0
			{X: hi.X, Y: lo.Y, Z: lo.Z}, // 1
			{X: hi.X, Y: hi.Y, Z: lo.Z}, // 2
			{X: lo.X, Y: hi.Y, Z: lo.Z}, // 3
			{X: lo.X, Y: lo.Y, Z: hi.Z}, // 4
			{X: hi.X, Y: lo.Y, Z: hi.Z}, // 5
			{X: hi.X, Y: hi.Y, Z: hi.Z}, // 6
			{X: lo.X, Y: hi.Y, Z: hi.Z}, // 7
		},
		Faces: []Face{
			{0, 2, 1}, {0, 3, 2}, // bottom
			{4, 5, 6}, {4, 6, 7}, // top
			{0, 1, 5}, {0, 5, 4}, // front
			{3, 7, 6}, {3, 6, 2}, // back
			{0, 4, 7}, {0, 7, 3}, // left
			{1, 2, 6}, {1, 6, 5}, // right
		},
	}
}

// UnitCube returns the box from the origin to (1,1,1).
func UnitCube() *Mesh {
	return Box(v3.Vec{}, v3.Vec{X: 1, Y: 1, Z: 1})
}
