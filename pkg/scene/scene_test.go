package scene

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/chazu/kerf/pkg/clip"
	"github.com/chazu/kerf/pkg/kernel"
	"github.com/chazu/kerf/pkg/kernel/bsp"
	"github.com/chazu/kerf/pkg/lineage"
	"github.com/chazu/kerf/pkg/split"
	"github.com/chazu/kerf/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func zHalf() split.Params {
	return split.Params{Method: lineage.MethodPlane, Plane: &split.PlaneParams{Axis: clip.AxisZ, PositionPercent: 50}}
}

type submissions struct {
	mu   sync.Mutex
	got  []lineage.Handle
	elem []*lineage.SplitElement
}

func (s *submissions) Submit(h lineage.Handle, e *lineage.SplitElement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, h)
	s.elem = append(s.elem, e)
	return nil
}

func newScene(p Persister) *Scene {
	return New(split.New(bsp.New(), split.Options{}), Options{Persister: p})
}

func TestSplitRetiresAndAdds(t *testing.T) {
	subs := &submissions{}
	sc := newScene(subs)
	h, err := sc.AddSource("col-1", kernel.UnitCube(), 0)
	require.NoError(t, err)
	require.NoError(t, sc.Select(h))

	kids, res, err := sc.Split(context.Background(), h, zHalf())
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, [2]Handle{2, 3}, kids)
	assert.Equal(t, []Handle{2, 3}, sc.Active())
	assert.Equal(t, Handle(2), sc.Selected(), "selection moves to the first half")

	src, ok := sc.Get(h)
	require.True(t, ok)
	assert.True(t, src.Retired)
	assert.True(t, src.IsSource())
	assert.Equal(t, []Handle{2, 3}, src.Children)

	bottom, ok := sc.Get(kids[0])
	require.True(t, ok)
	assert.Equal(t, lineage.PartBottom, bottom.Element.PartType)
	assert.InDelta(t, 0.5, bottom.Element.VolumeRatio, 1e-4)
	assert.Equal(t, h, bottom.Parent)

	assert.Equal(t, []lineage.Handle{2, 3}, subs.got)
	assert.Equal(t, []Handle{1, 2}, sc.Lineage(kids[0]))
}

func TestSplitFailureLeavesSceneUnchanged(t *testing.T) {
	subs := &submissions{}
	sc := newScene(subs)
	h, err := sc.AddSource("col-1", kernel.UnitCube(), 0)
	require.NoError(t, err)

	p := split.Params{Method: lineage.MethodPlane, Plane: &split.PlaneParams{Axis: clip.AxisZ, PositionPercent: 150}}
	_, res, err := sc.Split(context.Background(), h, p)
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, kernel.ErrNoIntersection))
	assert.Equal(t, []Handle{h}, sc.Active())
	assert.Empty(t, subs.got)

	_, _, err = sc.Split(context.Background(), 99, zHalf())
	assert.ErrorIs(t, err, ErrNoSolid)
	assert.Equal(t, kernel.KindInvalidInput, kernel.KindOf(err))
}

func TestRetiredSolidCannotBeSplit(t *testing.T) {
	sc := newScene(nil)
	h, err := sc.AddSource("col-1", kernel.UnitCube(), 0)
	require.NoError(t, err)
	_, _, err = sc.Split(context.Background(), h, zHalf())
	require.NoError(t, err)
	_, _, err = sc.Split(context.Background(), h, zHalf())
	assert.ErrorIs(t, err, ErrNoSolid)
}

func TestAddSourceRejects(t *testing.T) {
	sc := newScene(nil)
	_, err := sc.AddSource("", kernel.UnitCube(), 0)
	assert.Error(t, err)
	_, err = sc.AddSource("a", &kernel.Mesh{Faces: []kernel.Face{{0, 1, 2}}}, 0)
	assert.Equal(t, kernel.KindInvalidInput, kernel.KindOf(err))
	_, err = sc.AddSource("a", kernel.UnitCube(), 0)
	require.NoError(t, err)
	_, err = sc.AddSource("a", kernel.UnitCube(), 0)
	assert.Error(t, err)
}

func TestNestedSplitWithPersistence(t *testing.T) {
	mem := store.NewMemory()
	var sc *Scene
	p := store.NewPersister(mem, store.PersisterOptions{OnSaved: func(ev store.Saved) { sc.ApplySaved(ev) }})
	sc = newScene(p)
	ctx := context.Background()

	h, err := sc.AddSource("col-1", kernel.UnitCube(), 0)
	require.NoError(t, err)
	first, _, err := sc.Split(ctx, h, zHalf())
	require.NoError(t, err)
	// Re-split the bottom half immediately, possibly before it is saved.
	second, _, err := sc.Split(ctx, first[0], zHalf())
	require.NoError(t, err)

	flushCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, p.Flush(flushCtx))
	require.NoError(t, p.Close())

	bottom, _ := sc.Get(first[0])
	quarter, _ := sc.Get(second[0])
	require.NotEmpty(t, bottom.Element.ID)
	require.NotEmpty(t, quarter.Element.ID)
	require.NotNil(t, quarter.Element.ParentSplitID)
	assert.Equal(t, bottom.Element.ID, *quarter.Element.ParentSplitID)
	assert.InDelta(t, 0.25, quarter.Element.VolumeRatio, 1e-4)
	assert.InDelta(t, 1.0, quarter.Element.RootVolume, 1e-9)

	saved, err := mem.ListBySource(ctx, "col-1")
	require.NoError(t, err)
	require.Len(t, saved, 4)
	assert.Empty(t, lineage.Validate(saved))
	assert.Empty(t, lineage.Validate(sc.Elements("col-1")))
}

func TestDeleteSourceRestoresOriginal(t *testing.T) {
	sc := newScene(nil)
	h, err := sc.AddSource("col-1", kernel.UnitCube(), 0)
	require.NoError(t, err)
	other, err := sc.AddSource("beam-2", kernel.UnitCube(), 0)
	require.NoError(t, err)
	kids, _, err := sc.Split(context.Background(), h, zHalf())
	require.NoError(t, err)

	n, err := sc.DeleteSource("col-1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []Handle{h, other}, sc.Active())
	_, ok := sc.Get(kids[0])
	assert.False(t, ok)
	assert.Empty(t, sc.Elements("col-1"))

	_, err = sc.DeleteSource("nope")
	assert.ErrorIs(t, err, ErrNoSolid)
}

func TestDisplayState(t *testing.T) {
	sc := newScene(nil)
	a, _ := sc.AddSource("a", kernel.UnitCube(), 0)
	b, _ := sc.AddSource("b", kernel.UnitCube(), 0)

	require.NoError(t, sc.Select(a))
	require.NoError(t, sc.Select(b))
	assert.False(t, sc.Display(a).Selected)
	assert.True(t, sc.Display(b).Selected)
	require.NoError(t, sc.Select(0))
	assert.Equal(t, Handle(0), sc.Selected())

	require.NoError(t, sc.SetHidden(a, true))
	require.NoError(t, sc.SetHighlight(b, true))
	sols, disp := sc.Visible()
	require.Len(t, sols, 1)
	assert.Equal(t, b, sols[0].Handle)
	assert.True(t, disp[0].Highlight)

	assert.ErrorIs(t, sc.SetHidden(42, true), ErrNoSolid)
	assert.ErrorIs(t, sc.Select(42), ErrNoSolid)
	assert.Equal(t, []string{"a", "b"}, sc.Sources())
}
