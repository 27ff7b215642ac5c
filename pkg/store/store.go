// Package store persists split elements. Saves are asynchronous from the
// caller's point of view: a Persister queues elements, resolves parents
// that were still local when they were split, and reports each save back.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/chazu/kerf/pkg/lineage"
	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when no element has the requested id.
	ErrNotFound = errors.New("store: not found")
	// ErrClosed is returned by operations on a closed store or persister.
	ErrClosed = errors.New("store: closed")
	// ErrNoSource is returned for an element without a source element id.
	ErrNoSource = errors.New("store: element has no source element id")
)

// Store is a durable set of split elements indexed by id and by source
// element. Implementations are safe for concurrent use.
type Store interface {
	// Save stores a copy of e, assigning an id when e has none, and
	// returns the id.
	Save(ctx context.Context, e *lineage.SplitElement) (string, error)
	// SaveAll stores copies of every element or none of them, returning
	// the ids in order. The siblings of one split go through SaveAll.
	SaveAll(ctx context.Context, elems []*lineage.SplitElement) ([]string, error)
	Get(ctx context.Context, id string) (*lineage.SplitElement, error)
	// ListBySource returns the splits of a source element in save order.
	ListBySource(ctx context.Context, sourceID string) ([]*lineage.SplitElement, error)
	// DeleteBySource removes every split of a source element and reports
	// how many were removed.
	DeleteBySource(ctx context.Context, sourceID string) (int, error)
	// Sources lists the source elements that have splits, sorted.
	Sources(ctx context.Context) ([]string, error)
	Close() error
}

// copyElement returns a copy of e that shares nothing mutable with it.
func copyElement(e *lineage.SplitElement) *lineage.SplitElement {
	c := *e
	if e.Geometry != nil {
		c.Geometry = e.Geometry.Clone()
	}
	if e.ParentSplitID != nil {
		id := *e.ParentSplitID
		c.ParentSplitID = &id
	}
	if e.SketchPoints != nil {
		c.SketchPoints = append([][3]float64(nil), e.SketchPoints...)
	}
	return &c
}

// prepare copies e for storage and assigns its id.
func prepare(e *lineage.SplitElement) (*lineage.SplitElement, error) {
	if e.SourceElementID == "" {
		return nil, ErrNoSource
	}
	c := copyElement(e)
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return c, nil
}

func prepareAll(elems []*lineage.SplitElement) ([]*lineage.SplitElement, error) {
	out := make([]*lineage.SplitElement, len(elems))
	for i, e := range elems {
		c, err := prepare(e)
		if err != nil {
			return nil, fmt.Errorf("store: element %d: %w", i, err)
		}
		out[i] = c
	}
	return out, nil
}

func idsOf(elems []*lineage.SplitElement) []string {
	out := make([]string, len(elems))
	for i, e := range elems {
		out[i] = e.ID
	}
	return out
}
