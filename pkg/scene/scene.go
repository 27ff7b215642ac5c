// Package scene holds the solids of a working session: the original source
// elements and every split carved from them. Solids live in an arena and
// are addressed by stable integer handles; display state is kept in a side
// table indexed the same way.
package scene

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/chazu/kerf/pkg/kernel"
	"github.com/chazu/kerf/pkg/lineage"
	"github.com/chazu/kerf/pkg/split"
)

// Handle addresses a solid in a Scene. Handles are never reused.
type Handle = lineage.Handle

// ErrNoSolid is returned for a handle that names no live solid.
var ErrNoSolid = errors.New("scene: no such solid")

// Solid is one entry of the arena.
type Solid struct {
	Handle          Handle
	SourceElementID string
	Mesh            *kernel.Mesh
	// Volume is a source element's stored volume; zero means measure.
	Volume float64
	// Element is the split record; nil for a source element.
	Element *lineage.SplitElement
	// Parent is the solid this one was split from; zero for sources.
	Parent   Handle
	Children []Handle
	// Retired solids have been split and are no longer active.
	Retired bool
	// SaveErr is the last persistence failure for this solid.
	SaveErr error
}

// IsSource reports whether s is an original source element.
func (s *Solid) IsSource() bool { return s.Element == nil }

// Display is the per-solid view state.
type Display struct {
	Selected  bool
	Hidden    bool
	Highlight bool
}

// Persister receives split elements for asynchronous saving.
type Persister interface {
	Submit(h lineage.Handle, e *lineage.SplitElement) error
}

// Options configures a Scene.
type Options struct {
	Persister Persister
	Logger    *slog.Logger
}

// Scene is the arena of solids. It is safe for concurrent use; splits are
// serialized.
type Scene struct {
	mu       sync.Mutex
	solids   []*Solid
	display  []Display
	sources  map[string]Handle
	splitter *split.Splitter
	persist  Persister
	logger   *slog.Logger
}

// New returns an empty scene that splits with sp.
func New(sp *split.Splitter, opts Options) *Scene {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Scene{
		sources:  make(map[string]Handle),
		splitter: sp,
		persist:  opts.Persister,
		logger:   logger.With("component", "scene"),
	}
}

// solid returns the live solid at h; callers hold mu.
func (s *Scene) solid(h Handle) *Solid {
	i := int(h) - 1
	if i < 0 || i >= len(s.solids) {
		return nil
	}
	return s.solids[i]
}

func (s *Scene) add(sol *Solid) Handle {
	s.solids = append(s.solids, sol)
	s.display = append(s.display, Display{})
	sol.Handle = Handle(len(s.solids))
	return sol.Handle
}

// AddSource registers an original element. volume is its stored volume,
// or zero to measure the mesh when it is first split.
func (s *Scene) AddSource(id string, m *kernel.Mesh, volume float64) (Handle, error) {
	if id == "" {
		return 0, fmt.Errorf("scene: source id is empty: %w", kernel.ErrInvalidInput)
	}
	if err := m.Validate(); err != nil {
		return 0, fmt.Errorf("scene: source %s: %w", id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sources[id]; ok {
		return 0, fmt.Errorf("scene: source %s already present: %w", id, kernel.ErrInvalidInput)
	}
	h := s.add(&Solid{SourceElementID: id, Mesh: m, Volume: volume})
	s.sources[id] = h
	return h, nil
}

// Source returns the handle of a source element.
func (s *Scene) Source(id string) (Handle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.sources[id]
	return h, ok
}

// Get returns a snapshot of the solid at h.
func (s *Scene) Get(h Handle) (Solid, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sol := s.solid(h)
	if sol == nil {
		return Solid{}, false
	}
	out := *sol
	out.Children = append([]Handle(nil), sol.Children...)
	if sol.Element != nil {
		e := *sol.Element
		out.Element = &e
	}
	return out, true
}

// Active returns the handles of solids that have not been split, in
// handle order.
func (s *Scene) Active() []Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Handle
	for _, sol := range s.solids {
		if sol != nil && !sol.Retired {
			out = append(out, sol.Handle)
		}
	}
	return out
}

// Sources returns the ids of all source elements, sorted.
func (s *Scene) Sources() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.sources))
	for id := range s.sources {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Lineage returns the chain of handles from the source element down to h.
func (s *Scene) Lineage(h Handle) []Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	var chain []Handle
	for sol := s.solid(h); sol != nil; sol = s.solid(sol.Parent) {
		chain = append(chain, sol.Handle)
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// Elements returns the split records carved from a source element, in
// handle order.
func (s *Scene) Elements(sourceID string) []*lineage.SplitElement {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*lineage.SplitElement
	for _, sol := range s.solids {
		if sol != nil && sol.Element != nil && sol.SourceElementID == sourceID {
			e := *sol.Element
			out = append(out, &e)
		}
	}
	return out
}

// Display returns the display state of h.
func (s *Scene) Display(h Handle) Display {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.solid(h) == nil {
		return Display{}
	}
	return s.display[h-1]
}

// Select makes h the only selected solid. The zero handle clears the
// selection.
func (s *Scene) Select(h Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h != 0 {
		if sol := s.solid(h); sol == nil || sol.Retired {
			return fmt.Errorf("scene: select %d: %w", h, ErrNoSolid)
		}
	}
	for i := range s.display {
		s.display[i].Selected = Handle(i+1) == h
	}
	return nil
}

// Selected returns the selected solid, or zero.
func (s *Scene) Selected() Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, d := range s.display {
		if d.Selected {
			return Handle(i + 1)
		}
	}
	return 0
}

// SetHidden shows or hides h.
func (s *Scene) SetHidden(h Handle, hidden bool) error {
	return s.setDisplay(h, func(d *Display) { d.Hidden = hidden })
}

// SetHighlight marks h as hovered.
func (s *Scene) SetHighlight(h Handle, on bool) error {
	return s.setDisplay(h, func(d *Display) { d.Highlight = on })
}

func (s *Scene) setDisplay(h Handle, fn func(*Display)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.solid(h) == nil {
		return fmt.Errorf("scene: display %d: %w", h, ErrNoSolid)
	}
	fn(&s.display[h-1])
	return nil
}

// Visible returns snapshots of the active, unhidden solids with their
// display state.
func (s *Scene) Visible() ([]Solid, []Display) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var (
		sols []Solid
		disp []Display
	)
	for i, sol := range s.solids {
		if sol == nil || sol.Retired || s.display[i].Hidden {
			continue
		}
		sols = append(sols, *sol)
		disp = append(disp, s.display[i])
	}
	return sols, disp
}
