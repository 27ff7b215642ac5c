package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/chazu/kerf/pkg/lineage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []Saved
}

func (r *recorder) add(ev Saved) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) all() []Saved {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Saved(nil), r.events...)
}

func TestPersisterResolvesPendingParents(t *testing.T) {
	s := NewMemory()
	rec := &recorder{}
	p := NewPersister(s, PersisterOptions{OnSaved: rec.add})

	bottom := element("col-1", lineage.PartBottom)
	top := element("col-1", lineage.PartTop)
	require.NoError(t, p.Submit(1, bottom))
	require.NoError(t, p.Submit(2, top))

	// Re-split of handle 1 before its id is known.
	child := element("col-1", lineage.PartBottom)
	child.ParentHandle = 1
	require.NoError(t, p.Submit(3, child))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, p.Flush(ctx))

	events := rec.all()
	require.Len(t, events, 3)
	for i, ev := range events {
		assert.Equal(t, lineage.Handle(i+1), ev.Handle)
		assert.NoError(t, ev.Err)
		assert.NotEmpty(t, ev.ID)
	}
	require.NotNil(t, events[2].ParentSplitID)
	assert.Equal(t, events[0].ID, *events[2].ParentSplitID)

	saved, err := s.Get(ctx, events[2].ID)
	require.NoError(t, err)
	require.NotNil(t, saved.ParentSplitID)
	assert.Equal(t, events[0].ID, *saved.ParentSplitID)

	id, ok := p.Resolve(2)
	assert.True(t, ok)
	assert.Equal(t, events[1].ID, id)

	require.NoError(t, p.Close())
	assert.ErrorIs(t, p.Submit(4, element("x", lineage.PartTop)), ErrClosed)
	assert.NoError(t, p.Close(), "second Close is a no-op")
}

type failingStore struct{ *Memory }

var errDisk = errors.New("disk full")

func (f failingStore) Save(ctx context.Context, e *lineage.SplitElement) (string, error) {
	if e.PartType == lineage.PartTop {
		return "", errDisk
	}
	return f.Memory.Save(ctx, e)
}

func TestPersisterReportsFailures(t *testing.T) {
	rec := &recorder{}
	p := NewPersister(failingStore{NewMemory()}, PersisterOptions{OnSaved: rec.add, QueueSize: 1})

	require.NoError(t, p.Submit(1, element("s", lineage.PartTop)))
	orphan := element("s", lineage.PartBottom)
	orphan.ParentHandle = 1
	require.NoError(t, p.Submit(2, orphan))
	require.NoError(t, p.Close())

	events := rec.all()
	require.Len(t, events, 2)
	assert.ErrorIs(t, events[0].Err, errDisk)
	assert.ErrorIs(t, events[1].Err, ErrParentUnsaved)
	assert.Empty(t, events[1].ID)
}

func TestPersisterDoesNotAlias(t *testing.T) {
	s := NewMemory()
	rec := &recorder{}
	p := NewPersister(s, PersisterOptions{OnSaved: rec.add})
	e := element("s", lineage.PartTop)
	require.NoError(t, p.Submit(1, e))
	e.Volume = 99
	require.NoError(t, p.Close())

	got, err := s.Get(context.Background(), rec.all()[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 1.0, got.Volume)
}

func TestFlushHonoursContext(t *testing.T) {
	block := make(chan struct{})
	p := NewPersister(NewMemory(), PersisterOptions{OnSaved: func(Saved) { <-block }})
	defer func() {
		close(block)
		p.Close()
	}()
	require.NoError(t, p.Submit(1, element("s", lineage.PartTop)))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.Flush(ctx), context.DeadlineExceeded)
}
