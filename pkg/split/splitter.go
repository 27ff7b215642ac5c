// Package split runs the two split pipelines. A plane split clips the
// target and caps both halves; a sketch split extrudes the sketched loop
// into a prism and subtracts and intersects it. Either way both halves are
// measured and recorded against the lineage root. Splits are pure
// functions of the target and parameters; callers serialize them.
package split

import (
	"fmt"
	"time"

	"github.com/chazu/kerf/pkg/clip"
	"github.com/chazu/kerf/pkg/kernel"
	"github.com/chazu/kerf/pkg/lineage"
	"github.com/chazu/kerf/pkg/sketch"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Options tunes the pipelines. Zero values select package defaults.
type Options struct {
	Clip      clip.Options
	Prism     sketch.Options
	MinVolume float64
}

// Result holds the two halves of a split and their boundary edges.
type Result struct {
	// Elements are bottom/top or remainder/extracted.
	Elements [2]*lineage.SplitElement
	// BoundaryEdges are the open edges of each half; empty for closed
	// output.
	BoundaryEdges [2][]kernel.Edge
	// Prism is the cutting solid of a sketch split.
	Prism *kernel.Mesh
}

// Splitter splits solids.
type Splitter struct {
	boolean kernel.BooleanSolidOps
	opts    Options
	tracker lineage.Tracker
}

// New returns a Splitter that performs sketch booleans with ops.
func New(ops kernel.BooleanSolidOps, opts Options) *Splitter {
	return &Splitter{
		boolean: ops,
		opts:    opts,
		tracker: lineage.Tracker{MinVolume: opts.MinVolume},
	}
}

// Split divides t according to p. It either returns both halves or an
// error wrapping one of the kernel sentinels; t is never modified.
func (s *Splitter) Split(t lineage.Target, p Params) (res *Result, err error) {
	start := time.Now()
	method := string(p.Method)
	defer func() {
		result := "ok"
		if err != nil {
			result = kernel.KindOf(err).String()
		}
		splitTotal.WithLabelValues(method, result).Inc()
		splitDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	}()

	if err := t.Mesh.Validate(); err != nil {
		return nil, fmt.Errorf("split: target: %w", err)
	}
	if err := kernel.RequireClosed(t.Mesh); err != nil {
		return nil, fmt.Errorf("split: target: %w", err)
	}

	switch p.Method {
	case lineage.MethodPlane:
		if p.Plane == nil {
			return nil, fmt.Errorf("split: plane method without plane: %w", kernel.ErrInvalidInput)
		}
		res, err = s.byPlane(t, *p.Plane)
	case lineage.MethodSketch:
		if p.Sketch == nil {
			return nil, fmt.Errorf("split: sketch method without sketch: %w", kernel.ErrInvalidInput)
		}
		res, err = s.bySketch(t, *p.Sketch)
	default:
		return nil, fmt.Errorf("split: unknown method %q: %w", p.Method, kernel.ErrInvalidInput)
	}
	if err != nil {
		return nil, err
	}

	for i, e := range res.Elements {
		res.BoundaryEdges[i] = kernel.BoundaryEdges(e.Geometry)
		splitOutputTriangles.Observe(float64(e.Geometry.TriangleCount()))
	}
	return res, nil
}

func vec(a [3]float64) v3.Vec {
	return v3.Vec{X: a[0], Y: a[1], Z: a[2]}
}

func (s *Splitter) byPlane(t lineage.Target, pp PlaneParams) (*Result, error) {
	var (
		plane clip.Plane
		cut   lineage.Cut
		err   error
	)
	if pp.Normal != nil && pp.Point != nil {
		plane, err = clip.NewPlane(vec(*pp.Normal), vec(*pp.Point))
		cut = lineage.ObliqueCut(*pp.Normal, *pp.Point)
	} else {
		plane, err = clip.AxisPlane(pp.Axis, pp.PositionPercent, t.Mesh.Bounds())
		cut = lineage.PlaneCut(pp.Axis, pp.PositionPercent)
	}
	if err != nil {
		return nil, fmt.Errorf("split: %w", err)
	}

	below, above, err := clip.Split(t.Mesh, plane, s.opts.Clip)
	if err != nil {
		return nil, fmt.Errorf("split: %w", err)
	}
	elems, err := s.tracker.Track(t, below, above, cut)
	if err != nil {
		return nil, fmt.Errorf("split: %w", err)
	}
	return &Result{Elements: elems}, nil
}

func (s *Splitter) bySketch(t lineage.Target, sp SketchParams) (*Result, error) {
	if s.boolean == nil {
		return nil, fmt.Errorf("split: no boolean backend configured: %w", kernel.ErrInvalidInput)
	}
	loop := make([]v3.Vec, len(sp.LoopPoints))
	for i, p := range sp.LoopPoints {
		loop[i] = vec(p)
	}
	face := sketch.Face{Point: vec(sp.FacePoint), Normal: vec(sp.FaceNormal)}
	prism, err := sketch.Prism(face, loop, t.Mesh.LongestExtent(), s.opts.Prism)
	if err != nil {
		return nil, fmt.Errorf("split: %w", err)
	}

	remainder, err := s.boolean.Subtract(t.Mesh, prism)
	if err != nil {
		return nil, fmt.Errorf("split: subtract: %w", err)
	}
	extracted, err := s.boolean.Intersect(t.Mesh, prism)
	if err != nil {
		return nil, fmt.Errorf("split: intersect: %w", err)
	}
	if remainder.IsEmpty() || extracted.IsEmpty() {
		return nil, fmt.Errorf("split: sketch leaves %d remainder and %d extracted triangles: %w",
			remainder.TriangleCount(), extracted.TriangleCount(), kernel.ErrNoIntersection)
	}

	elems, err := s.tracker.Track(t, remainder, extracted, lineage.SketchCut(sp.LoopPoints, sp.FaceNormal))
	if err != nil {
		return nil, fmt.Errorf("split: %w", err)
	}
	return &Result{Elements: elems, Prism: prism}, nil
}
