// Package interact turns viewport input into split actions. It is an
// explicit state machine; each state has its own dispatch function, and
// dispatching never touches the scene directly. The host applies the
// returned actions.
package interact

import (
	"fmt"
	"strconv"

	"github.com/chazu/kerf/pkg/clip"
	"github.com/chazu/kerf/pkg/lineage"
	"github.com/chazu/kerf/pkg/split"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// State is the machine's mode.
type State int

const (
	Idle State = iota
	Dragging
	SketchDrawing
	DimensionInput
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Dragging:
		return "dragging"
	case SketchDrawing:
		return "sketch_drawing"
	case DimensionInput:
		return "dimension_input"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// EventType is the kind of input event.
type EventType int

const (
	PointerDown EventType = iota
	PointerMove
	PointerUp
	KeyPress
	// BeginSketch starts drawing a loop on the face hit at Point/Normal.
	BeginSketch
	// BeginDimension starts typing a plane position along Axis.
	BeginDimension
)

// Named keys. Any other key is a single printable character.
const (
	KeyEnter     = "Enter"
	KeyEscape    = "Escape"
	KeyBackspace = "Backspace"
)

// Event is one input event, already hit-tested by the host.
type Event struct {
	Type EventType
	// Handle is the solid under the pointer, or zero.
	Handle lineage.Handle
	// Point and Normal are the hit position and face normal in world space.
	Point  v3.Vec
	Normal v3.Vec
	// OnPlaneGizmo is set on PointerDown when the pointer grabbed the
	// plane handle; Axis names the gizmo's axis.
	OnPlaneGizmo bool
	Axis         clip.Axis
	// Percent is the gizmo position during a drag.
	Percent float64
	Key     string
}

// ActionType is the kind of action.
type ActionType int

const (
	// Select makes Handle the selection; zero clears it.
	Select ActionType = iota
	// PreviewPlane shows a plane at Params.Plane on Handle.
	PreviewPlane
	// PreviewSketch shows the loop drawn so far in Params.Sketch.
	PreviewSketch
	// Split splits Handle with Params.
	Split
	// Cancel drops any preview.
	Cancel
	// Reject reports unusable input in Message; the state is unchanged.
	Reject
)

func (t ActionType) String() string {
	switch t {
	case Select:
		return "select"
	case PreviewPlane:
		return "preview_plane"
	case PreviewSketch:
		return "preview_sketch"
	case Split:
		return "split"
	case Cancel:
		return "cancel"
	case Reject:
		return "reject"
	default:
		return fmt.Sprintf("ActionType(%d)", int(t))
	}
}

// Action is something the host should do in response to an event.
type Action struct {
	Type    ActionType
	Handle  lineage.Handle
	Params  split.Params
	Message string
}

// DefaultCloseTolerance is how near the first point a click must land to
// close a sketch loop.
const DefaultCloseTolerance = 1e-2

// Machine is the interaction state machine. It is not safe for
// concurrent use.
type Machine struct {
	// CloseTolerance overrides DefaultCloseTolerance when positive.
	CloseTolerance float64

	state    State
	selected lineage.Handle

	axis    clip.Axis
	percent float64
	typed   string

	facePoint  v3.Vec
	faceNormal v3.Vec
	loop       []v3.Vec
}

// State returns the current mode.
func (m *Machine) State() State { return m.state }

// Selected returns the handle the machine considers selected.
func (m *Machine) Selected() lineage.Handle { return m.selected }

// Select sets the selection from outside, as after a split moves it to a
// child. It has no effect outside Idle.
func (m *Machine) Select(h lineage.Handle) {
	if m.state == Idle {
		m.selected = h
	}
}

// Dispatch feeds one event through the machine.
func (m *Machine) Dispatch(ev Event) []Action {
	switch m.state {
	case Dragging:
		return m.dragging(ev)
	case SketchDrawing:
		return m.sketchDrawing(ev)
	case DimensionInput:
		return m.dimensionInput(ev)
	default:
		return m.idle(ev)
	}
}

// Reset returns to Idle, dropping any work in progress.
func (m *Machine) Reset() {
	m.state = Idle
	m.typed = ""
	m.loop = nil
}

func (m *Machine) idle(ev Event) []Action {
	switch ev.Type {
	case PointerDown:
		if ev.OnPlaneGizmo && m.selected != 0 {
			m.state = Dragging
			m.axis = ev.Axis
			m.percent = ev.Percent
			return []Action{m.planeAction(PreviewPlane)}
		}
		m.selected = ev.Handle
		return []Action{{Type: Select, Handle: ev.Handle}}
	case BeginSketch:
		h := ev.Handle
		if h == 0 {
			h = m.selected
		}
		if h == 0 {
			return []Action{{Type: Reject, Message: "sketch needs a selected solid"}}
		}
		if ev.Normal.Length() == 0 {
			return []Action{{Type: Reject, Message: "sketch needs a face normal"}}
		}
		m.selected = h
		m.state = SketchDrawing
		m.facePoint = ev.Point
		m.faceNormal = ev.Normal
		m.loop = nil
		return []Action{{Type: Select, Handle: h}}
	case BeginDimension:
		if m.selected == 0 {
			return []Action{{Type: Reject, Message: "dimension needs a selected solid"}}
		}
		m.state = DimensionInput
		m.axis = ev.Axis
		m.typed = ""
		return nil
	}
	return nil
}

func (m *Machine) dragging(ev Event) []Action {
	switch ev.Type {
	case PointerMove:
		m.percent = ev.Percent
		return []Action{m.planeAction(PreviewPlane)}
	case PointerUp:
		m.percent = ev.Percent
		m.state = Idle
		return []Action{m.planeAction(Split)}
	case KeyPress:
		if ev.Key == KeyEscape {
			m.Reset()
			return []Action{{Type: Cancel, Handle: m.selected}}
		}
	}
	return nil
}

func (m *Machine) dimensionInput(ev Event) []Action {
	if ev.Type != KeyPress {
		return nil
	}
	switch ev.Key {
	case KeyEscape:
		m.Reset()
		return []Action{{Type: Cancel, Handle: m.selected}}
	case KeyBackspace:
		if n := len(m.typed); n > 0 {
			m.typed = m.typed[:n-1]
		}
		return nil
	case KeyEnter:
		pct, err := strconv.ParseFloat(m.typed, 64)
		if err != nil {
			return []Action{{Type: Reject, Handle: m.selected, Message: fmt.Sprintf("%q is not a number", m.typed)}}
		}
		m.percent = pct
		m.Reset()
		return []Action{m.planeAction(Split)}
	}
	if len(ev.Key) == 1 && (ev.Key[0] >= '0' && ev.Key[0] <= '9' || ev.Key[0] == '.' || ev.Key[0] == '-') {
		m.typed += ev.Key
		if pct, err := strconv.ParseFloat(m.typed, 64); err == nil {
			m.percent = pct
			return []Action{m.planeAction(PreviewPlane)}
		}
	}
	return nil
}

func (m *Machine) sketchDrawing(ev Event) []Action {
	switch ev.Type {
	case PointerDown:
		if len(m.loop) >= 3 && ev.Point.Sub(m.loop[0]).Length() <= m.closeTolerance() {
			return m.finishSketch()
		}
		m.loop = append(m.loop, ev.Point)
		return []Action{m.sketchAction(PreviewSketch)}
	case KeyPress:
		switch ev.Key {
		case KeyEscape:
			m.Reset()
			return []Action{{Type: Cancel, Handle: m.selected}}
		case KeyBackspace:
			if n := len(m.loop); n > 0 {
				m.loop = m.loop[:n-1]
			}
			return []Action{m.sketchAction(PreviewSketch)}
		case KeyEnter:
			if len(m.loop) < 3 {
				return []Action{{Type: Reject, Handle: m.selected, Message: "a sketch needs at least 3 points"}}
			}
			return m.finishSketch()
		}
	}
	return nil
}

func (m *Machine) finishSketch() []Action {
	a := m.sketchAction(Split)
	m.Reset()
	return []Action{a}
}

func (m *Machine) closeTolerance() float64 {
	if m.CloseTolerance > 0 {
		return m.CloseTolerance
	}
	return DefaultCloseTolerance
}

func (m *Machine) planeAction(t ActionType) Action {
	return Action{
		Type:   t,
		Handle: m.selected,
		Params: split.Params{
			Method: lineage.MethodPlane,
			Plane:  &split.PlaneParams{Axis: m.axis, PositionPercent: m.percent},
		},
	}
}

func arr(v v3.Vec) [3]float64 { return [3]float64{v.X, v.Y, v.Z} }

func (m *Machine) sketchAction(t ActionType) Action {
	pts := make([][3]float64, len(m.loop))
	for i, p := range m.loop {
		pts[i] = arr(p)
	}
	return Action{
		Type:   t,
		Handle: m.selected,
		Params: split.Params{
			Method: lineage.MethodSketch,
			Sketch: &split.SketchParams{
				FacePoint:  arr(m.facePoint),
				FaceNormal: arr(m.faceNormal),
				LoopPoints: pts,
			},
		},
	}
}
