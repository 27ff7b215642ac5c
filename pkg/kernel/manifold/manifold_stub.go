//go:build !manifold

// Package manifold provides a CGo binding to the Manifold library as a
// boolean backend. When the "manifold" build tag is not set, this stub
// is compiled instead, returning an error from New().
//
// Build with: go build -tags=manifold
package manifold

import (
	"errors"

	"github.com/chazu/kerf/pkg/kernel"
)

// ErrUnavailable is returned by New in builds without the manifold tag.
var ErrUnavailable = errors.New("manifold boolean backend not available: build with -tags=manifold")

// New returns ErrUnavailable.
func New() (kernel.BooleanSolidOps, error) {
	return nil, ErrUnavailable
}
