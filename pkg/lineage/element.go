package lineage

import (
	"fmt"

	"github.com/chazu/kerf/pkg/clip"
	"github.com/chazu/kerf/pkg/kernel"
)

// Method is how a solid was split.
type Method string

const (
	MethodPlane  Method = "plane"
	MethodSketch Method = "sketch"
)

// Valid reports whether m is a known method.
func (m Method) Valid() bool {
	return m == MethodPlane || m == MethodSketch
}

// PartType names which half of a split an element is.
type PartType string

const (
	PartBottom    PartType = "bottom"
	PartTop       PartType = "top"
	PartRemainder PartType = "remainder"
	PartExtracted PartType = "extracted"
)

// PartTypes returns the two part types a method produces, in output order.
func PartTypes(m Method) (first, second PartType) {
	if m == MethodSketch {
		return PartRemainder, PartExtracted
	}
	return PartBottom, PartTop
}

// Handle is a local reference to a solid that may not be persisted yet.
// The zero Handle refers to nothing.
type Handle int

// SplitElement is one half of a split, with its geometry and volume
// bookkeeping. Elements are never mutated after creation except to
// receive ids assigned by persistence.
type SplitElement struct {
	ID               string       `json:"id,omitempty"`
	ParentSplitID    *string      `json:"parent_split_id"`
	SourceElementID  string       `json:"source_element_id"`
	Geometry         *kernel.Mesh `json:"geometry"`
	RootVolume       float64      `json:"root_volume"`
	Volume           float64      `json:"volume"`
	VolumeRatio      float64      `json:"volume_ratio"`
	Method           Method       `json:"method"`
	PartType         PartType     `json:"part_type"`
	PlaneAxis        *clip.Axis   `json:"plane_axis,omitempty"`
	PlanePosition    *float64     `json:"plane_position,omitempty"`
	PlaneNormal      *[3]float64  `json:"plane_normal,omitempty"`
	PlanePoint       *[3]float64  `json:"plane_point,omitempty"`
	SketchPoints     [][3]float64 `json:"sketch_points,omitempty"`
	SketchFaceNormal *[3]float64  `json:"sketch_face_normal,omitempty"`

	// ParentHandle refers to the parent while its id is still pending.
	ParentHandle Handle `json:"-"`
}

// String returns a short description for logs.
func (e *SplitElement) String() string {
	id := e.ID
	if id == "" {
		id = "(pending)"
	}
	return fmt.Sprintf("split %s of %s: %s %.6g (%.4f of root)", id, e.SourceElementID, e.PartType, e.Volume, e.VolumeRatio)
}

// IsRoot reports whether the element was carved directly from its
// source element.
func (e *SplitElement) IsRoot() bool {
	return e.ParentSplitID == nil && e.ParentHandle == 0
}

// Cut records the parameters of a split for the persisted record.
type Cut struct {
	Method           Method
	PlaneAxis        *clip.Axis
	PlanePosition    *float64
	PlaneNormal      *[3]float64
	PlanePoint       *[3]float64
	SketchPoints     [][3]float64
	SketchFaceNormal *[3]float64
}

// PlaneCut returns the record of an axis-aligned plane split.
func PlaneCut(axis clip.Axis, percent float64) Cut {
	return Cut{Method: MethodPlane, PlaneAxis: &axis, PlanePosition: &percent}
}

// ObliqueCut returns the record of a split by an arbitrary plane through
// point.
func ObliqueCut(normal, point [3]float64) Cut {
	return Cut{Method: MethodPlane, PlaneNormal: &normal, PlanePoint: &point}
}

// SketchCut returns the record of a sketched split.
func SketchCut(points [][3]float64, normal [3]float64) Cut {
	pts := make([][3]float64, len(points))
	copy(pts, points)
	return Cut{Method: MethodSketch, SketchPoints: pts, SketchFaceNormal: &normal}
}
