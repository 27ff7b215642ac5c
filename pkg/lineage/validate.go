package lineage

import (
	"fmt"
	"math"
	"sort"
)

// Severity indicates whether a validation finding marks corrupt
// bookkeeping or is merely informational.
type Severity int

const (
	SeverityError   Severity = iota // bookkeeping is inconsistent
	SeverityWarning                 // informational
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	ElementID string   // which element has the problem (empty if lineage-level)
	Message   string   // human-readable description
	Severity  Severity // error or warning
}

func (e ValidationError) Error() string {
	if e.ElementID == "" {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] element %s: %s", e.Severity, e.ElementID, e.Message)
}

// ratioTolerance bounds the relative drift allowed between stored and
// recomputed ratios.
const ratioTolerance = 1e-9

// conservationTolerance bounds how much two siblings may exceed their
// parent, covering the cap offsets.
const conservationTolerance = 1e-3

// Validate checks the bookkeeping of a set of persisted split elements.
// It is read-only. An empty result means the lineage is consistent.
func Validate(elements []*SplitElement) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateFields(elements)...)
	errs = append(errs, validateRoots(elements)...)
	errs = append(errs, validateParents(elements)...)
	errs = append(errs, validateSiblings(elements)...)
	return errs
}

// HasErrors reports whether any finding is an error.
func HasErrors(findings []ValidationError) bool {
	for _, f := range findings {
		if f.Severity == SeverityError {
			return true
		}
	}
	return false
}

func validateFields(elements []*SplitElement) []ValidationError {
	var errs []ValidationError
	for _, e := range elements {
		bad := func(format string, args ...any) {
			errs = append(errs, ValidationError{ElementID: e.ID, Message: fmt.Sprintf(format, args...)})
		}
		if e.SourceElementID == "" {
			bad("missing source element id")
		}
		if e.RootVolume <= 0 {
			bad("root volume %g is not positive", e.RootVolume)
			continue
		}
		if e.Volume <= 0 {
			bad("volume %g is not positive", e.Volume)
		}
		if want := e.Volume / e.RootVolume; math.Abs(e.VolumeRatio-want) > ratioTolerance*math.Max(1, want) {
			bad("volume ratio %g, want volume/root_volume = %g", e.VolumeRatio, want)
		}
		if e.VolumeRatio > 1+conservationTolerance {
			bad("volume ratio %g exceeds the root", e.VolumeRatio)
		}

		first, second := PartTypes(e.Method)
		switch {
		case !e.Method.Valid():
			bad("unknown method %q", e.Method)
		case e.PartType != first && e.PartType != second:
			bad("part type %q does not belong to method %q", e.PartType, e.Method)
		case e.Method == MethodPlane && (e.PlaneAxis == nil || e.PlanePosition == nil) &&
			(e.PlaneNormal == nil || e.PlanePoint == nil):
			bad("plane split without axis and position or normal and point")
		case e.Method == MethodSketch && (len(e.SketchPoints) < 3 || e.SketchFaceNormal == nil):
			bad("sketch split without loop and face normal")
		}
	}
	return errs
}

// validateRoots checks that every element of a lineage carries the same
// root volume.
func validateRoots(elements []*SplitElement) []ValidationError {
	roots := map[string]float64{}
	var errs []ValidationError
	for _, e := range elements {
		want, ok := roots[e.SourceElementID]
		if !ok {
			roots[e.SourceElementID] = e.RootVolume
			continue
		}
		if math.Abs(e.RootVolume-want) > ratioTolerance*math.Max(1, want) {
			errs = append(errs, ValidationError{
				ElementID: e.ID,
				Message:   fmt.Sprintf("root volume %g differs from lineage root %g", e.RootVolume, want),
			})
		}
	}
	return errs
}

func validateParents(elements []*SplitElement) []ValidationError {
	byID := index(elements)
	var errs []ValidationError
	for _, e := range elements {
		if e.ParentSplitID == nil {
			continue
		}
		p, ok := byID[*e.ParentSplitID]
		if !ok {
			errs = append(errs, ValidationError{
				ElementID: e.ID,
				Message:   fmt.Sprintf("parent %s is not in the set", *e.ParentSplitID),
				Severity:  SeverityWarning,
			})
			continue
		}
		if p.SourceElementID != e.SourceElementID {
			errs = append(errs, ValidationError{
				ElementID: e.ID,
				Message:   fmt.Sprintf("source %s differs from parent's %s", e.SourceElementID, p.SourceElementID),
			})
		}
	}
	return errs
}

// validateSiblings checks that the halves of each split add up to their
// parent.
func validateSiblings(elements []*SplitElement) []ValidationError {
	byID := index(elements)
	children := map[string][]*SplitElement{}
	for _, e := range elements {
		if e.ParentSplitID != nil {
			children[*e.ParentSplitID] = append(children[*e.ParentSplitID], e)
		}
	}
	parents := make([]string, 0, len(children))
	for id := range children {
		parents = append(parents, id)
	}
	sort.Strings(parents)

	var errs []ValidationError
	for _, id := range parents {
		kids := children[id]
		if len(kids) > 2 {
			errs = append(errs, ValidationError{
				ElementID: id,
				Message:   fmt.Sprintf("split has %d children, want 2", len(kids)),
				Severity:  SeverityWarning,
			})
		}
		p, ok := byID[id]
		if !ok {
			continue
		}
		var sum float64
		for _, k := range kids {
			sum += k.Volume
		}
		if sum > p.Volume*(1+conservationTolerance) {
			errs = append(errs, ValidationError{
				ElementID: id,
				Message:   fmt.Sprintf("children total %g exceeds parent volume %g", sum, p.Volume),
			})
		}
	}
	return errs
}

func index(elements []*SplitElement) map[string]*SplitElement {
	byID := make(map[string]*SplitElement, len(elements))
	for _, e := range elements {
		if e.ID != "" {
			byID[e.ID] = e
		}
	}
	return byID
}
