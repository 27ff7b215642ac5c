package store

import (
	"context"
	"sort"
	"sync"

	"github.com/chazu/kerf/pkg/lineage"
)

// Memory is a Store held in process memory.
type Memory struct {
	mu       sync.RWMutex
	elements map[string]*lineage.SplitElement
	bySource map[string][]string
	closed   bool
}

var _ Store = (*Memory)(nil)

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		elements: make(map[string]*lineage.SplitElement),
		bySource: make(map[string][]string),
	}
}

func (m *Memory) Save(ctx context.Context, e *lineage.SplitElement) (string, error) {
	saved, err := m.SaveAll(ctx, []*lineage.SplitElement{e})
	if err != nil {
		return "", err
	}
	return saved[0], nil
}

func (m *Memory) SaveAll(_ context.Context, elems []*lineage.SplitElement) ([]string, error) {
	cs, err := prepareAll(elems)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	for _, c := range cs {
		if _, ok := m.elements[c.ID]; !ok {
			m.bySource[c.SourceElementID] = append(m.bySource[c.SourceElementID], c.ID)
		}
		m.elements[c.ID] = c
	}
	return idsOf(cs), nil
}

func (m *Memory) Get(_ context.Context, id string) (*lineage.SplitElement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	e, ok := m.elements[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyElement(e), nil
}

func (m *Memory) ListBySource(_ context.Context, sourceID string) ([]*lineage.SplitElement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	ids := m.bySource[sourceID]
	out := make([]*lineage.SplitElement, 0, len(ids))
	for _, id := range ids {
		out = append(out, copyElement(m.elements[id]))
	}
	return out, nil
}

func (m *Memory) DeleteBySource(_ context.Context, sourceID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrClosed
	}
	ids := m.bySource[sourceID]
	for _, id := range ids {
		delete(m.elements, id)
	}
	delete(m.bySource, sourceID)
	return len(ids), nil
}

func (m *Memory) Sources(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	out := make([]string, 0, len(m.bySource))
	for src := range m.bySource {
		out = append(out, src)
	}
	sort.Strings(out)
	return out, nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
