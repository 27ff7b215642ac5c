package clip

import "github.com/chazu/kerf/pkg/kernel"

// Split clips m across p and caps both halves.
func Split(m *kernel.Mesh, p Plane, opts Options) (below, above *kernel.Mesh, err error) {
	res, err := Clip(m, p, opts.Epsilon)
	if err != nil {
		return nil, nil, err
	}
	return Cap(res, opts.offset(m))
}

// Options tunes Split.
type Options struct {
	// Epsilon is the on-plane tolerance; zero selects DefaultEpsilon.
	Epsilon float64
	// CapOffset is an absolute cap nudge. It wins over CapOffsetFactor.
	CapOffset float64
	// CapOffsetFactor scales the solid's longest extent into the cap
	// nudge; zero selects DefaultCapOffsetFactor.
	CapOffsetFactor float64
}

func (o Options) offset(m *kernel.Mesh) float64 {
	if o.CapOffset > 0 {
		return o.CapOffset
	}
	f := o.CapOffsetFactor
	if f <= 0 {
		f = DefaultCapOffsetFactor
	}
	return f * m.LongestExtent()
}
