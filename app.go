package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/chazu/kerf/pkg/clip"
	"github.com/chazu/kerf/pkg/config"
	"github.com/chazu/kerf/pkg/engine"
	"github.com/chazu/kerf/pkg/interact"
	"github.com/chazu/kerf/pkg/kernel"
	"github.com/chazu/kerf/pkg/lineage"
	"github.com/chazu/kerf/pkg/scene"
	"github.com/chazu/kerf/pkg/split"
	"github.com/chazu/kerf/pkg/store"
	"github.com/chazu/kerf/pkg/tessellate"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// App is the Wails backend. It exposes methods to the frontend via bindings.
type App struct {
	ctx    context.Context
	logger *slog.Logger

	engine  *engine.Engine
	store   store.Store
	persist *store.Persister

	// opMu serializes the bindings that change the scene.
	opMu sync.Mutex

	mu      sync.Mutex
	scene   *scene.Scene
	machine interact.Machine
	// While a script runs, save reports for its scene are held in backlog.
	evaluating bool
	backlog    []store.Saved
}

// EvalErrorData is a JSON-serializable error for the frontend.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
	// Kind is the kernel error kind of a failed split.
	Kind string `json:"kind,omitempty"`
}

// EvalResult is the full result returned to the frontend.
type EvalResult struct {
	Meshes []tessellate.RenderMesh `json:"meshes"`
	Errors []EvalErrorData         `json:"errors"`
}

// EventData is an input event from the viewport, already hit-tested.
type EventData struct {
	// Type is pointer_down, pointer_move, pointer_up, key, begin_sketch
	// or begin_dimension.
	Type         string     `json:"type"`
	Handle       int        `json:"handle"`
	Point        [3]float64 `json:"point"`
	Normal       [3]float64 `json:"normal"`
	OnPlaneGizmo bool       `json:"onPlaneGizmo"`
	Axis         string     `json:"axis"`
	Percent      float64    `json:"percent"`
	Key          string     `json:"key"`
}

// ActionData is one interaction action for the frontend to render.
type ActionData struct {
	Type    string       `json:"type"`
	Handle  int          `json:"handle"`
	Params  split.Params `json:"params"`
	Message string       `json:"message,omitempty"`
}

// DispatchResult is returned for every input event. Meshes is set only
// when the scene changed.
type DispatchResult struct {
	State   string                  `json:"state"`
	Actions []ActionData            `json:"actions"`
	Meshes  []tessellate.RenderMesh `json:"meshes,omitempty"`
	Errors  []EvalErrorData         `json:"errors"`
}

// NewApp creates an App from configuration. Splits are persisted to the
// configured store in the background.
func NewApp(cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	st, err := cfg.Store.Open(logger)
	if err != nil {
		return nil, err
	}
	a := &App{ctx: context.Background(), logger: logger, store: st}
	a.persist = store.NewPersister(st, cfg.Store.PersisterOptions(logger, a.onSaved))

	a.engine, err = cfg.NewEngine(logger, a.persist)
	if err != nil {
		_ = a.persist.Close()
		_ = st.Close()
		return nil, err
	}
	return a, nil
}

// startup is called by Wails on app startup. The context is saved
// so we can call Wails runtime methods later if needed.
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
}

// shutdown is called by Wails when the window closes. Queued saves are
// drained before the store closes.
func (a *App) shutdown(ctx context.Context) {
	if err := a.persist.Close(); err != nil {
		a.logger.Warn("persister close failed", "error", err)
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn("store close failed", "error", err)
	}
}

// onSaved patches persisted ids into the scene the split came from.
func (a *App) onSaved(ev store.Saved) {
	if ev.Err != nil {
		return
	}
	a.mu.Lock()
	if a.evaluating {
		a.backlog = append(a.backlog, ev)
		a.mu.Unlock()
		return
	}
	sc := a.scene
	a.mu.Unlock()
	if sc != nil {
		sc.ApplySaved(ev)
	}
}

// Evaluate takes script source and returns mesh data + errors.
// This is the primary binding called by the frontend editor.
func (a *App) Evaluate(source string) EvalResult {
	result := EvalResult{
		Meshes: []tessellate.RenderMesh{},
		Errors: []EvalErrorData{},
	}

	a.opMu.Lock()
	defer a.opMu.Unlock()

	// Reports for the previous scene must land before its replacement
	// starts producing handles of its own.
	if err := a.persist.Flush(a.ctx); err != nil {
		a.logger.Warn("flush before evaluate failed", "error", err)
	}
	a.mu.Lock()
	a.evaluating = true
	a.mu.Unlock()

	sc, evalErrs, err := a.engine.Evaluate(source)

	a.mu.Lock()
	a.evaluating = false
	backlog := a.backlog
	a.backlog = nil
	if err == nil && len(evalErrs) == 0 {
		a.scene = sc
		a.machine.Reset()
		a.machine.Select(0)
	}
	a.mu.Unlock()

	if err != nil {
		// Fatal error (panic, timeout, etc.)
		a.logger.Error("evaluate failed", "error", err)
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			result.Errors = append(result.Errors, EvalErrorData{Line: e.Line, Col: e.Col, Message: e.Message})
		}
		return result
	}

	for _, ev := range backlog {
		sc.ApplySaved(ev)
	}
	result.Meshes = append(result.Meshes, tessellate.Tessellate(sc)...)
	return result
}

// Dispatch feeds one viewport event through the interaction machine and
// carries out the resulting actions.
func (a *App) Dispatch(ev EventData) DispatchResult {
	res := DispatchResult{Actions: []ActionData{}, Errors: []EvalErrorData{}}
	a.opMu.Lock()
	defer a.opMu.Unlock()

	in, err := ev.event()
	if err != nil {
		res.Errors = append(res.Errors, EvalErrorData{Message: err.Error(), Kind: kernel.KindInvalidInput.String()})
		return res
	}

	a.mu.Lock()
	sc := a.scene
	actions := a.machine.Dispatch(in)
	a.mu.Unlock()

	changed := false
	for _, act := range actions {
		res.Actions = append(res.Actions, ActionData{
			Type:    act.Type.String(),
			Handle:  int(act.Handle),
			Params:  act.Params,
			Message: act.Message,
		})
		if sc == nil {
			continue
		}
		switch act.Type {
		case interact.Select:
			if err := sc.Select(act.Handle); err != nil {
				res.Errors = append(res.Errors, EvalErrorData{Message: err.Error()})
			}
			changed = true
		case interact.Split:
			kids, _, err := sc.Split(a.ctx, act.Handle, act.Params)
			if err != nil {
				res.Errors = append(res.Errors, EvalErrorData{Message: err.Error(), Kind: kernel.KindOf(err).String()})
				continue
			}
			a.mu.Lock()
			a.machine.Select(kids[0])
			a.mu.Unlock()
			changed = true
		}
	}

	a.mu.Lock()
	res.State = a.machine.State().String()
	a.mu.Unlock()
	if changed {
		res.Meshes = tessellate.Tessellate(sc)
	}
	return res
}

// SetHidden hides or shows a solid and returns the new meshes.
func (a *App) SetHidden(handle int, hidden bool) EvalResult {
	return a.withScene(func(sc *scene.Scene) error {
		return sc.SetHidden(lineage.Handle(handle), hidden)
	})
}

// DeleteSplits removes every split of a source element, in the scene and
// in the store, and returns the new meshes.
func (a *App) DeleteSplits(sourceID string) EvalResult {
	return a.withScene(func(sc *scene.Scene) error {
		if _, err := sc.DeleteSource(sourceID); err != nil {
			return err
		}
		if err := a.persist.Flush(a.ctx); err != nil {
			return err
		}
		_, err := a.store.DeleteBySource(a.ctx, sourceID)
		return err
	})
}

// Elements returns the split records of a source element in the current
// scene.
func (a *App) Elements(sourceID string) []*lineage.SplitElement {
	a.mu.Lock()
	sc := a.scene
	a.mu.Unlock()
	if sc == nil {
		return []*lineage.SplitElement{}
	}
	return sc.Elements(sourceID)
}

func (a *App) withScene(fn func(*scene.Scene) error) EvalResult {
	result := EvalResult{Meshes: []tessellate.RenderMesh{}, Errors: []EvalErrorData{}}
	a.opMu.Lock()
	defer a.opMu.Unlock()
	a.mu.Lock()
	sc := a.scene
	a.mu.Unlock()
	if sc == nil {
		result.Errors = append(result.Errors, EvalErrorData{Message: "no scene: evaluate a script first"})
		return result
	}
	if err := fn(sc); err != nil {
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error(), Kind: kernel.KindOf(err).String()})
	}
	result.Meshes = append(result.Meshes, tessellate.Tessellate(sc)...)
	return result
}

var eventTypes = map[string]interact.EventType{
	"pointer_down":    interact.PointerDown,
	"pointer_move":    interact.PointerMove,
	"pointer_up":      interact.PointerUp,
	"key":             interact.KeyPress,
	"begin_sketch":    interact.BeginSketch,
	"begin_dimension": interact.BeginDimension,
}

func vec(p [3]float64) v3.Vec { return v3.Vec{X: p[0], Y: p[1], Z: p[2]} }

func (ev EventData) event() (interact.Event, error) {
	t, ok := eventTypes[ev.Type]
	if !ok {
		return interact.Event{}, fmt.Errorf("unknown event type %q", ev.Type)
	}
	out := interact.Event{
		Type:         t,
		Handle:       lineage.Handle(ev.Handle),
		Point:        vec(ev.Point),
		Normal:       vec(ev.Normal),
		OnPlaneGizmo: ev.OnPlaneGizmo,
		Percent:      ev.Percent,
		Key:          ev.Key,
	}
	if ev.Axis != "" {
		axis, err := clip.ParseAxis(ev.Axis)
		if err != nil {
			return interact.Event{}, err
		}
		out.Axis = axis
	}
	return out, nil
}
