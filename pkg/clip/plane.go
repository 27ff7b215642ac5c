// Package clip partitions a closed triangle solid across a plane and
// closes the two open halves with caps.
package clip

import (
	"fmt"
	"math"
	"strings"

	"github.com/chazu/kerf/pkg/kernel"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// DefaultEpsilon is the distance within which a vertex counts as on the
// plane.
const DefaultEpsilon = 1e-5

// Plane is the set of points p with Normal·p = Offset. Normal is unit
// length; the side it points to is "above".
type Plane struct {
	Normal v3.Vec
	Offset float64
}

// NewPlane returns the plane through point with the given normal.
func NewPlane(normal, point v3.Vec) (Plane, error) {
	l := normal.Length()
	if l < 1e-12 || math.IsNaN(l) || math.IsInf(l, 0) {
		return Plane{}, fmt.Errorf("clip: plane normal %v is not usable: %w", normal, kernel.ErrInvalidInput)
	}
	n := normal.DivScalar(l)
	return Plane{Normal: n, Offset: n.Dot(point)}, nil
}

// Distance returns the signed distance from v to the plane.
func (p Plane) Distance(v v3.Vec) float64 {
	return p.Normal.Dot(v) - p.Offset
}

// Axis names a world axis for axis-aligned cuts.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

// String returns "x", "y" or "z".
func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	}
	return fmt.Sprintf("Axis(%d)", int(a))
}

// ParseAxis accepts x, y or z in any case.
func ParseAxis(s string) (Axis, error) {
	switch strings.ToLower(s) {
	case "x":
		return AxisX, nil
	case "y":
		return AxisY, nil
	case "z":
		return AxisZ, nil
	}
	return 0, fmt.Errorf("clip: invalid axis %q, expected x, y, or z: %w", s, kernel.ErrInvalidInput)
}

// MarshalText implements encoding.TextMarshaler.
func (a Axis) MarshalText() ([]byte, error) {
	if a < AxisX || a > AxisZ {
		return nil, fmt.Errorf("clip: invalid axis %d", int(a))
	}
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Axis) UnmarshalText(b []byte) error {
	v, err := ParseAxis(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// Unit returns the unit vector along the axis.
func (a Axis) Unit() v3.Vec {
	switch a {
	case AxisX:
		return v3.Vec{X: 1}
	case AxisY:
		return v3.Vec{Y: 1}
	}
	return v3.Vec{Z: 1}
}

func (a Axis) component(v v3.Vec) float64 {
	switch a {
	case AxisX:
		return v.X
	case AxisY:
		return v.Y
	}
	return v.Z
}

// AxisPlane returns the plane perpendicular to axis at percent of the way
// through bounds, measured from its minimum. Percentages outside [0, 100]
// are allowed and produce planes that miss the box.
func AxisPlane(axis Axis, percent float64, bounds sdf.Box3) (Plane, error) {
	if math.IsNaN(percent) || math.IsInf(percent, 0) {
		return Plane{}, fmt.Errorf("clip: plane position %v: %w", percent, kernel.ErrInvalidInput)
	}
	if axis < AxisX || axis > AxisZ {
		return Plane{}, fmt.Errorf("clip: invalid axis %d: %w", int(axis), kernel.ErrInvalidInput)
	}
	lo := axis.component(bounds.Min)
	hi := axis.component(bounds.Max)
	return Plane{Normal: axis.Unit(), Offset: lo + percent/100*(hi-lo)}, nil
}
