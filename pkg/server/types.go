package server

import (
	"github.com/chazu/kerf/pkg/kernel"
	"github.com/chazu/kerf/pkg/lineage"
	"github.com/chazu/kerf/pkg/split"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	// Error is the error message.
	Error string `json:"error"`

	// Code is a stable machine-readable error code.
	Code string `json:"code,omitempty"`
}

// SplitRequest is a split request with the source element's quantities,
// which are apportioned to each part by its ratio of the root volume.
type SplitRequest struct {
	split.Request
	Quantities lineage.Quantities `json:"quantities,omitempty"`
}

// SplitResponse carries both parts of a successful split, already saved.
type SplitResponse struct {
	Elements      [2]*lineage.SplitElement `json:"elements"`
	BoundaryEdges [2][]kernel.Edge         `json:"boundary_edges"`
	Quantities    [2]lineage.Quantities    `json:"quantities,omitempty"`
}

// VolumeRequest asks for the volume of a mesh.
type VolumeRequest struct {
	Mesh *kernel.Mesh `json:"mesh" binding:"required"`
}

// VolumeResponse reports a mesh's enclosed volume.
type VolumeResponse struct {
	Volume    float64 `json:"volume"`
	Triangles int     `json:"triangles"`
}

// ElementsResponse lists split elements. Warnings reports lineage
// bookkeeping problems among them, such as a part saved without its sibling.
type ElementsResponse struct {
	SourceElementID string                  `json:"source_element_id"`
	Elements        []*lineage.SplitElement `json:"elements"`
	Warnings        []Finding               `json:"warnings,omitempty"`
}

// Finding is one lineage validation result.
type Finding struct {
	ElementID string `json:"element_id,omitempty"`
	Message   string `json:"message"`
	Severity  string `json:"severity"`
}

// SourcesResponse lists source elements with splits.
type SourcesResponse struct {
	Sources []string `json:"sources"`
}

// DeleteResponse reports how many splits were removed.
type DeleteResponse struct {
	SourceElementID string `json:"source_element_id"`
	Deleted         int    `json:"deleted"`
}

// HealthResponse is returned by the health endpoint.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}
