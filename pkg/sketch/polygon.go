package sketch

import (
	"fmt"
	"math"

	"github.com/chazu/kerf/pkg/kernel"
	v2 "github.com/deadsy/sdfx/vec/v2"
	"github.com/rclancey/earcut"
)

// Polygon is a simple polygon in face coordinates.
type Polygon []v2.Vec

// SignedArea is positive for counter-clockwise polygons.
func (p Polygon) SignedArea() float64 {
	var s float64
	for i := range p {
		a, b := p[i], p[(i+1)%len(p)]
		s += a.X*b.Y - b.X*a.Y
	}
	return s / 2
}

func cross(o, a, b v2.Vec) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}

// Clean removes the repeated closing point, consecutive duplicates and
// collinear vertices, then orients the polygon counter-clockwise. tol is
// the distance below which two points coincide.
func Clean(pts Polygon, tol float64) (Polygon, error) {
	out := make(Polygon, 0, len(pts))
	for _, p := range pts {
		if len(out) > 0 && near(out[len(out)-1], p, tol) {
			continue
		}
		out = append(out, p)
	}
	for len(out) > 1 && near(out[0], out[len(out)-1], tol) {
		out = out[:len(out)-1]
	}

	// Drop vertices whose neighbours are collinear with them.
	for changed := true; changed && len(out) >= 3; {
		changed = false
		for i := 0; i < len(out) && len(out) >= 3; i++ {
			prev := out[(i+len(out)-1)%len(out)]
			next := out[(i+1)%len(out)]
			if math.Abs(cross(prev, out[i], next)) <= tol*tol {
				out = append(out[:i], out[i+1:]...)
				changed = true
				i--
			}
		}
	}

	if len(out) < 3 {
		return nil, fmt.Errorf("sketch: polygon needs at least 3 distinct corners, got %d: %w", len(out), kernel.ErrInvalidInput)
	}
	if out.SelfIntersects() {
		return nil, fmt.Errorf("sketch: polygon edges cross: %w", kernel.ErrInvalidInput)
	}
	if math.Abs(out.SignedArea()) <= tol*tol {
		return nil, fmt.Errorf("sketch: polygon has zero area: %w", kernel.ErrDegenerateGeometry)
	}
	if out.SignedArea() < 0 {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out, nil
}

// SelfIntersects reports whether any two non-adjacent edges touch.
func (p Polygon) SelfIntersects() bool {
	n := len(p)
	for i := 0; i < n; i++ {
		a, b := p[i], p[(i+1)%n]
		for j := i + 2; j < n; j++ {
			if i == 0 && j == n-1 {
				continue
			}
			if segmentsTouch(a, b, p[j], p[(j+1)%n]) {
				return true
			}
		}
	}
	return false
}

func segmentsTouch(a, b, c, d v2.Vec) bool {
	d1 := cross(c, d, a)
	d2 := cross(c, d, b)
	d3 := cross(a, b, c)
	d4 := cross(a, b, d)
	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) && ((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	return (d1 == 0 && onSegment(c, d, a)) || (d2 == 0 && onSegment(c, d, b)) ||
		(d3 == 0 && onSegment(a, b, c)) || (d4 == 0 && onSegment(a, b, d))
}

func onSegment(a, b, q v2.Vec) bool {
	return min(a.X, b.X) <= q.X && q.X <= max(a.X, b.X) &&
		min(a.Y, b.Y) <= q.Y && q.Y <= max(a.Y, b.Y)
}

func near(a, b v2.Vec, tol float64) bool {
	return math.Abs(a.X-b.X) <= tol && math.Abs(a.Y-b.Y) <= tol
}

// Triangulate splits a simple counter-clockwise polygon into n-2
// counter-clockwise index triples.
func Triangulate(p Polygon) ([][3]int, error) {
	n := len(p)
	if n < 3 {
		return nil, fmt.Errorf("sketch: cannot triangulate %d corners: %w", n, kernel.ErrInvalidInput)
	}
	coords := make([]float64, 0, 2*n)
	for _, q := range p {
		coords = append(coords, q.X, q.Y)
	}
	idx, err := earcut.Earcut(coords, nil, 2)
	if err != nil {
		return nil, fmt.Errorf("sketch: earcut: %v: %w", err, kernel.ErrInvalidInput)
	}
	if len(idx) != 3*(n-2) {
		return nil, fmt.Errorf("sketch: earcut covered %d of %d triangles: %w", len(idx)/3, n-2, kernel.ErrInvalidInput)
	}

	// earcut orients triangles by its own ring order, not the input's.
	tris := make([][3]int, 0, n-2)
	for i := 0; i < len(idx); i += 3 {
		t := [3]int{idx[i], idx[i+1], idx[i+2]}
		if cross(p[t[0]], p[t[1]], p[t[2]]) < 0 {
			t[1], t[2] = t[2], t[1]
		}
		tris = append(tris, t)
	}
	return tris, nil
}
