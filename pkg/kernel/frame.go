package kernel

import (
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Basis returns unit vectors t and b such that (t, b, n) is a right-handed
// orthonormal frame. n must be unit length.
func Basis(n v3.Vec) (t, b v3.Vec) {
	// Seed with the world axis least aligned with n.
	var seed v3.Vec
	ax, ay, az := math.Abs(n.X), math.Abs(n.Y), math.Abs(n.Z)
	switch {
	case ax <= ay && ax <= az:
		seed = v3.Vec{X: 1}
	case ay <= az:
		seed = v3.Vec{Y: 1}
	default:
		seed = v3.Vec{Z: 1}
	}
	t = seed.Sub(n.MulScalar(n.Dot(seed)))
	t = t.DivScalar(t.Length())
	b = n.Cross(t)
	return t, b
}
