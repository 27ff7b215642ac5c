package lineage

import (
	"fmt"

	"github.com/chazu/kerf/pkg/kernel"
)

// DefaultMinVolume is the smallest volume a split output may have.
const DefaultMinVolume = 1e-9

// Target is the solid being split.
type Target struct {
	Mesh            *kernel.Mesh
	SourceElementID string

	// ParentSplitID is the persisted id of the target, when it is itself
	// a split element.
	ParentSplitID *string
	// ParentHandle is the local handle of the target, when it is a split
	// element still waiting for its id.
	ParentHandle Handle

	// RootVolume is set when the target is already a split element.
	RootVolume float64
	// Volume is the stored volume of an original element; zero means
	// measure the mesh.
	Volume float64
}

// FromElement returns the Target for re-splitting e, which lives in the
// caller's arena at handle h.
func FromElement(e *SplitElement, h Handle) Target {
	t := Target{
		Mesh:            e.Geometry,
		SourceElementID: e.SourceElementID,
		RootVolume:      e.RootVolume,
		Volume:          e.Volume,
	}
	if e.ID != "" {
		id := e.ID
		t.ParentSplitID = &id
	} else {
		t.ParentHandle = h
	}
	return t
}

// Tracker turns capped split outputs into SplitElements.
type Tracker struct {
	// MinVolume rejects slivers; zero selects DefaultMinVolume.
	MinVolume float64
}

// RootVolume returns the lineage's root volume for t: inherited when t is
// already split, otherwise the original's stored or measured volume.
func (tr Tracker) RootVolume(t Target) (float64, error) {
	switch {
	case t.RootVolume > 0:
		return t.RootVolume, nil
	case t.Volume > 0:
		return t.Volume, nil
	}
	v := kernel.Volume(t.Mesh)
	if v <= tr.minVolume() {
		return 0, fmt.Errorf("lineage: source %s has volume %g: %w", t.SourceElementID, v, kernel.ErrDegenerateGeometry)
	}
	return v, nil
}

func (tr Tracker) minVolume() float64 {
	if tr.MinVolume > 0 {
		return tr.MinVolume
	}
	return DefaultMinVolume
}

// Track measures both outputs and returns their SplitElements in output
// order (bottom/top or remainder/extracted). It fails with
// kernel.ErrDegenerateGeometry if either output has no volume.
func (tr Tracker) Track(t Target, first, second *kernel.Mesh, cut Cut) ([2]*SplitElement, error) {
	var out [2]*SplitElement
	if !cut.Method.Valid() {
		return out, fmt.Errorf("lineage: unknown split method %q: %w", cut.Method, kernel.ErrInvalidInput)
	}
	root, err := tr.RootVolume(t)
	if err != nil {
		return out, err
	}

	types := [2]PartType{}
	types[0], types[1] = PartTypes(cut.Method)
	for i, m := range []*kernel.Mesh{first, second} {
		v := kernel.Volume(m)
		if v <= tr.minVolume() {
			return [2]*SplitElement{}, fmt.Errorf("lineage: %s part has volume %g: %w", types[i], v, kernel.ErrDegenerateGeometry)
		}
		out[i] = &SplitElement{
			ParentSplitID:    t.ParentSplitID,
			ParentHandle:     t.ParentHandle,
			SourceElementID:  t.SourceElementID,
			Geometry:         m,
			RootVolume:       root,
			Volume:           v,
			VolumeRatio:      v / root,
			Method:           cut.Method,
			PartType:         types[i],
			PlaneAxis:        cut.PlaneAxis,
			PlanePosition:    cut.PlanePosition,
			PlaneNormal:      cut.PlaneNormal,
			PlanePoint:       cut.PlanePoint,
			SketchPoints:     cut.SketchPoints,
			SketchFaceNormal: cut.SketchFaceNormal,
		}
	}
	return out, nil
}
