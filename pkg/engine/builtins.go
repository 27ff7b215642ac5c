package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/chazu/kerf/pkg/clip"
	"github.com/chazu/kerf/pkg/kernel"
	"github.com/chazu/kerf/pkg/kernel/bsp"
	"github.com/chazu/kerf/pkg/lineage"
	"github.com/chazu/kerf/pkg/scene"
	"github.com/chazu/kerf/pkg/split"
	v3 "github.com/deadsy/sdfx/vec/v3"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpVec3 wraps a point or direction.
type sexpVec3 struct {
	vec v3.Vec
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpMesh wraps a mesh that is not yet in the scene.
type sexpMesh struct {
	mesh *kernel.Mesh
}

func (m *sexpMesh) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(mesh %d vertices %d triangles)", m.mesh.VertexCount(), m.mesh.TriangleCount())
}
func (m *sexpMesh) Type() *zygo.RegisteredType { return nil }

// sexpSolid refers to a solid in the session's scene.
type sexpSolid struct {
	handle scene.Handle
	name   string
}

func (s *sexpSolid) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(solid %d %q)", s.handle, s.name)
}
func (s *sexpSolid) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			continue
		}
		if i+1 < len(args) {
			result.kw[name] = args[i+1]
			i++
		} else {
			result.kw[name] = zygo.SexpNull
		}
	}
	return result
}

// float returns keyword k as a number, or def when absent.
func (a kwArgs) float(k string, def float64) (float64, error) {
	v, ok := a.kw[k]
	if !ok {
		return def, nil
	}
	f, err := toFloat64(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	return f, nil
}

// vec returns keyword k as a vec3; ok is false when absent.
func (a kwArgs) vec(k string) (v3.Vec, bool, error) {
	v, ok := a.kw[k]
	if !ok {
		return v3.Vec{}, false, nil
	}
	vec, err := toVec3(v)
	if err != nil {
		return v3.Vec{}, false, fmt.Errorf("%s: %w", k, err)
	}
	return vec, true, nil
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	return strings.TrimPrefix(str.S, kwPrefix), nil
}

func toAxis(s zygo.Sexp) (clip.Axis, error) {
	name, err := toKeywordString(s)
	if err != nil {
		return 0, fmt.Errorf("expected axis keyword (:x, :y, :z): %w", err)
	}
	return clip.ParseAxis(name)
}

func toVec3(s zygo.Sexp) (v3.Vec, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return v3.Vec{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

func toMesh(s zygo.Sexp) (*kernel.Mesh, error) {
	if m, ok := s.(*sexpMesh); ok {
		return m.mesh, nil
	}
	return nil, fmt.Errorf("expected mesh, got %T (%s)", s, s.SexpString(nil))
}

func toSolid(s zygo.Sexp) (scene.Handle, error) {
	if sol, ok := s.(*sexpSolid); ok {
		return sol.handle, nil
	}
	return 0, fmt.Errorf("expected solid, got %T (%s)", s, s.SexpString(nil))
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

func arr(v v3.Vec) [3]float64 { return [3]float64{v.X, v.Y, v.Z} }

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// session is the state one evaluation's builtins share.
type session struct {
	scene   *scene.Scene
	modeler kernel.Modeler
	csg     *bsp.Ops
}

func (s *session) booleans() *bsp.Ops {
	if s.csg == nil {
		s.csg = bsp.New()
	}
	return s.csg
}

// solid resolves a solid argument to its scene snapshot.
func (s *session) solid(fn string, v zygo.Sexp) (scene.Solid, error) {
	h, err := toSolid(v)
	if err != nil {
		return scene.Solid{}, fmt.Errorf("%s: %w", fn, err)
	}
	sol, ok := s.scene.Get(h)
	if !ok {
		return scene.Solid{}, fmt.Errorf("%s: solid %d: %w", fn, h, scene.ErrNoSolid)
	}
	return sol, nil
}

// geometry returns the mesh of a solid or mesh argument.
func (s *session) geometry(fn string, v zygo.Sexp) (*kernel.Mesh, error) {
	if m, ok := v.(*sexpMesh); ok {
		return m.mesh, nil
	}
	sol, err := s.solid(fn, v)
	if err != nil {
		return nil, err
	}
	return sol.Mesh, nil
}

func (s *session) split(fn string, v zygo.Sexp, p split.Params) (zygo.Sexp, error) {
	sol, err := s.solid(fn, v)
	if err != nil {
		return zygo.SexpNull, err
	}
	kids, _, err := s.scene.Split(context.Background(), sol.Handle, p)
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("%s: %s: %w", fn, kernel.KindOf(err), err)
	}
	out := make([]zygo.Sexp, len(kids))
	for i, h := range kids {
		out[i] = &sexpSolid{handle: h, name: sol.SourceElementID}
	}
	return zygo.MakeList(out), nil
}

// registerBuiltins installs the kerf builtins into a zygomys environment.
// Source code must be preprocessed with preprocessSource() so that
// :keyword tokens and kebab-case names arrive in the form registered here.
func registerBuiltins(env *zygo.Zlisp, s *session) {

	// -----------------------------------------------------------------------
	// (vec3 1 2 3)
	// -----------------------------------------------------------------------
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}
		var c [3]float64
		for i, a := range args {
			f, err := toFloat64(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec3: %c: %w", "xyz"[i], err)
			}
			c[i] = f
		}
		return &sexpVec3{vec: v3.Vec{X: c[0], Y: c[1], Z: c[2]}}, nil
	})

	// -----------------------------------------------------------------------
	// (box 1 2 3) or (box :min (vec3 0 0 0) :max (vec3 1 2 3))
	// -----------------------------------------------------------------------
	env.AddFunction("box", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		lo, hasMin, err := pa.vec("min")
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("box: %w", err)
		}
		hi, hasMax, err := pa.vec("max")
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("box: %w", err)
		}
		switch {
		case hasMin && hasMax:
		case len(pa.positional) == 3:
			var c [3]float64
			for i, a := range pa.positional {
				if c[i], err = toFloat64(a); err != nil {
					return zygo.SexpNull, fmt.Errorf("box: size: %w", err)
				}
			}
			lo, hi = v3.Vec{}, v3.Vec{X: c[0], Y: c[1], Z: c[2]}
		default:
			return zygo.SexpNull, fmt.Errorf("box requires a size (box x y z) or :min and :max")
		}
		if hi.X <= lo.X || hi.Y <= lo.Y || hi.Z <= lo.Z {
			return zygo.SexpNull, fmt.Errorf("box: empty extent from %v to %v", lo, hi)
		}
		return &sexpMesh{mesh: kernel.Box(lo, hi)}, nil
	})

	// -----------------------------------------------------------------------
	// (column :radius 0.2 :height 3 :at (vec3 0 0 0))
	// -----------------------------------------------------------------------
	env.AddFunction("column", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		r, err := pa.float("radius", 0)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("column: %w", err)
		}
		h, err := pa.float("height", 0)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("column: %w", err)
		}
		solid, err := s.modeler.Cylinder(h, r)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("column: %w", err)
		}
		if at, ok, err := pa.vec("at"); err != nil {
			return zygo.SexpNull, fmt.Errorf("column: %w", err)
		} else if ok {
			solid = s.modeler.Translate(solid, at.X, at.Y, at.Z)
		}
		m, err := s.modeler.ToMesh(solid)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("column: %w", err)
		}
		return &sexpMesh{mesh: m}, nil
	})

	// -----------------------------------------------------------------------
	// (union (box 1 1 3) (box :min (vec3 0 0 3) :max (vec3 3 1 3.25)) ...)
	// -----------------------------------------------------------------------
	env.AddFunction("union", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 2 {
			return zygo.SexpNull, fmt.Errorf("union requires at least 2 meshes, got %d", len(args))
		}
		acc, err := s.geometry("union", args[0])
		if err != nil {
			return zygo.SexpNull, err
		}
		for i, a := range args[1:] {
			m, err := s.geometry("union", a)
			if err != nil {
				return zygo.SexpNull, err
			}
			if acc, err = s.booleans().Union(acc, m); err != nil {
				return zygo.SexpNull, fmt.Errorf("union: operand %d: %w", i+2, err)
			}
		}
		return &sexpMesh{mesh: acc}, nil
	})

	// -----------------------------------------------------------------------
	// (element "col-1" (box 1 1 3) :volume 3.0)
	// -----------------------------------------------------------------------
	env.AddFunction("element", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 2 {
			return zygo.SexpNull, fmt.Errorf("element requires an id and a mesh")
		}
		id, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("element: id: %w", err)
		}
		m, err := toMesh(pa.positional[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("element: %w", err)
		}
		vol, err := pa.float("volume", 0)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("element: %w", err)
		}
		h, err := s.scene.AddSource(id, m, vol)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("element: %w", err)
		}
		return &sexpSolid{handle: h, name: id}, nil
	})

	// -----------------------------------------------------------------------
	// (split-plane col :axis :z :at 50)
	// (split-plane col :normal (vec3 1 1 0) :point (vec3 0.5 0.5 0))
	//
	// Registered as "split_plane"; the preprocessor rewrites kebab-case.
	// -----------------------------------------------------------------------
	env.AddFunction("split_plane", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("split-plane requires a solid")
		}
		pp := &split.PlaneParams{Axis: clip.AxisZ, PositionPercent: 50}
		if v, ok := pa.kw["axis"]; ok {
			a, err := toAxis(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("split-plane: axis: %w", err)
			}
			pp.Axis = a
		}
		at, err := pa.float("at", 50)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("split-plane: %w", err)
		}
		pp.PositionPercent = at

		n, hasN, err := pa.vec("normal")
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("split-plane: %w", err)
		}
		pt, hasP, err := pa.vec("point")
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("split-plane: %w", err)
		}
		if hasN != hasP {
			return zygo.SexpNull, fmt.Errorf("split-plane: :normal and :point go together")
		}
		if hasN {
			na, pt := arr(n), arr(pt)
			pp.Normal, pp.Point = &na, &pt
		}
		return s.split("split-plane", pa.positional[0], split.Params{Method: lineage.MethodPlane, Plane: pp})
	})

	// -----------------------------------------------------------------------
	// (split-sketch col :face-point (vec3 0.5 0.5 1) :face-normal (vec3 0 0 1)
	//               :loop (list (vec3 ...) (vec3 ...) (vec3 ...)))
	// -----------------------------------------------------------------------
	env.AddFunction("split_sketch", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("split-sketch requires a solid")
		}
		fp, ok, err := pa.vec("face-point")
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("split-sketch: %w", err)
		}
		if !ok {
			return zygo.SexpNull, fmt.Errorf("split-sketch: :face-point is required")
		}
		fn, ok, err := pa.vec("face-normal")
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("split-sketch: %w", err)
		}
		if !ok {
			return zygo.SexpNull, fmt.Errorf("split-sketch: :face-normal is required")
		}
		items, err := sexpListToSlice(pa.kw["loop"])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("split-sketch: loop: %w", err)
		}
		sp := &split.SketchParams{FacePoint: arr(fp), FaceNormal: arr(fn)}
		for i, it := range items {
			p, err := toVec3(it)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("split-sketch: loop point %d: %w", i, err)
			}
			sp.LoopPoints = append(sp.LoopPoints, arr(p))
		}
		return s.split("split-sketch", pa.positional[0], split.Params{Method: lineage.MethodSketch, Sketch: sp})
	})

	// -----------------------------------------------------------------------
	// (part halves 1) picks one solid out of a split result
	// -----------------------------------------------------------------------
	env.AddFunction("part", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("part requires a split result and an index")
		}
		items, err := sexpListToSlice(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("part: %w", err)
		}
		idx, ok := args[1].(*zygo.SexpInt)
		if !ok {
			return zygo.SexpNull, fmt.Errorf("part: index must be an integer, got %T", args[1])
		}
		if idx.Val < 0 || int(idx.Val) >= len(items) {
			return zygo.SexpNull, fmt.Errorf("part: index %d out of range [0, %d)", idx.Val, len(items))
		}
		return items[idx.Val], nil
	})

	// -----------------------------------------------------------------------
	// (volume solid-or-mesh)
	// -----------------------------------------------------------------------
	env.AddFunction("volume", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("volume requires one argument")
		}
		if sol, ok := args[0].(*sexpSolid); ok {
			got, err := s.solid("volume", sol)
			if err != nil {
				return zygo.SexpNull, err
			}
			if got.Element != nil {
				return &zygo.SexpFloat{Val: got.Element.Volume}, nil
			}
		}
		m, err := s.geometry("volume", args[0])
		if err != nil {
			return zygo.SexpNull, err
		}
		return &zygo.SexpFloat{Val: kernel.Volume(m)}, nil
	})

	// -----------------------------------------------------------------------
	// (ratio solid) and (root-volume solid)
	// -----------------------------------------------------------------------
	env.AddFunction("ratio", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("ratio requires a solid")
		}
		sol, err := s.solid("ratio", args[0])
		if err != nil {
			return zygo.SexpNull, err
		}
		if sol.Element == nil {
			return &zygo.SexpFloat{Val: 1}, nil
		}
		return &zygo.SexpFloat{Val: sol.Element.VolumeRatio}, nil
	})

	env.AddFunction("root_volume", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("root-volume requires a solid")
		}
		sol, err := s.solid("root-volume", args[0])
		if err != nil {
			return zygo.SexpNull, err
		}
		switch {
		case sol.Element != nil:
			return &zygo.SexpFloat{Val: sol.Element.RootVolume}, nil
		case sol.Volume > 0:
			return &zygo.SexpFloat{Val: sol.Volume}, nil
		}
		return &zygo.SexpFloat{Val: kernel.Volume(sol.Mesh)}, nil
	})

	// -----------------------------------------------------------------------
	// (boundary-edges solid-or-mesh) counts edges used by one triangle
	// -----------------------------------------------------------------------
	env.AddFunction("boundary_edges", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("boundary-edges requires one argument")
		}
		m, err := s.geometry("boundary-edges", args[0])
		if err != nil {
			return zygo.SexpNull, err
		}
		return &zygo.SexpInt{Val: int64(len(kernel.BoundaryEdges(m)))}, nil
	})
}
