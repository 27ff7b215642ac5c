package split

import (
	"errors"
	"fmt"
	"strings"

	"github.com/chazu/kerf/pkg/clip"
	"github.com/chazu/kerf/pkg/kernel"
	"github.com/chazu/kerf/pkg/lineage"
	"github.com/go-playground/validator/v10"
)

// requestValidate is shared; validator.Validate caches struct metadata.
var requestValidate = validator.New()

// PlaneParams positions a cutting plane. Axis and PositionPercent give an
// axis-aligned plane at a percentage of the target's bounding box; Normal
// and Point, when both set, give an oblique plane instead.
type PlaneParams struct {
	Axis            clip.Axis   `json:"axis"`
	PositionPercent float64     `json:"position_percent"`
	Normal          *[3]float64 `json:"normal,omitempty" validate:"required_with=Point"`
	Point           *[3]float64 `json:"point,omitempty" validate:"required_with=Normal"`
}

// SketchParams locates a sketched loop on a face of the target.
type SketchParams struct {
	FacePoint  [3]float64   `json:"face_point"`
	FaceNormal [3]float64   `json:"face_normal"`
	LoopPoints [][3]float64 `json:"loop_points" validate:"min=3"`
}

// Params selects the split method and its parameters.
type Params struct {
	Method lineage.Method `json:"method" validate:"required,oneof=plane sketch"`
	Plane  *PlaneParams   `json:"plane,omitempty" validate:"required_if=Method plane"`
	Sketch *SketchParams  `json:"sketch,omitempty" validate:"required_if=Method sketch"`
}

// Request is a split of one target solid.
type Request struct {
	TargetMesh      *kernel.Mesh `json:"target_mesh" validate:"required"`
	SourceElementID string       `json:"source_element_id" validate:"required"`
	// ParentSplitID is set when the target is itself a persisted split.
	ParentSplitID *string `json:"parent_split_id,omitempty"`
	// RootVolume is set when the target is itself a split; absent means
	// the target is an original source element.
	RootVolume float64 `json:"root_volume,omitempty" validate:"gte=0"`
	// Volume is an original element's stored volume; absent means measure.
	Volume float64 `json:"volume,omitempty" validate:"gte=0"`
	Params
}

// Validate checks the request's shape. Failures wrap
// kernel.ErrInvalidInput.
func (r *Request) Validate() error {
	if err := requestValidate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, len(verrs))
			for i, fe := range verrs {
				msgs[i] = fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag())
			}
			return fmt.Errorf("split: invalid request: %s: %w", strings.Join(msgs, "; "), kernel.ErrInvalidInput)
		}
		return fmt.Errorf("split: invalid request: %v: %w", err, kernel.ErrInvalidInput)
	}
	return nil
}

// Target returns the lineage target the request describes.
func (r *Request) Target() lineage.Target {
	return lineage.Target{
		Mesh:            r.TargetMesh,
		SourceElementID: r.SourceElementID,
		ParentSplitID:   r.ParentSplitID,
		RootVolume:      r.RootVolume,
		Volume:          r.Volume,
	}
}
