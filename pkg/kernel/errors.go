package kernel

import "errors"

// Failure sentinels. Every error returned by the split pipeline wraps
// exactly one of these.
var (
	// ErrNoIntersection means the cutting plane or prism misses the solid.
	ErrNoIntersection = errors.New("cut does not intersect solid")
	// ErrDegenerateGeometry means an output side has zero area or volume.
	ErrDegenerateGeometry = errors.New("degenerate geometry")
	// ErrInvalidInput means the input mesh or parameters are malformed.
	ErrInvalidInput = errors.New("invalid input")
)

// ErrorKind tags a pipeline failure.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindNoIntersection
	KindDegenerateGeometry
	KindInvalidInput
)

// String returns the snake_case name of the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindNoIntersection:
		return "no_intersection"
	case KindDegenerateGeometry:
		return "degenerate_geometry"
	case KindInvalidInput:
		return "invalid_input"
	default:
		return "unknown"
	}
}

// KindOf reports which sentinel err wraps.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrNoIntersection):
		return KindNoIntersection
	case errors.Is(err, ErrDegenerateGeometry):
		return KindDegenerateGeometry
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	}
	return KindUnknown
}
