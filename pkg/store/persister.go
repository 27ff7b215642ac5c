package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/chazu/kerf/pkg/lineage"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultQueueSize is the persister's default backlog.
const DefaultQueueSize = 256

// ErrParentUnsaved is reported for an element whose local parent never
// received an id.
var ErrParentUnsaved = errors.New("store: parent not persisted")

// Saved reports the outcome of one submitted element.
type Saved struct {
	Handle lineage.Handle
	// ID is the assigned id; empty when Err is set.
	ID string
	// ParentSplitID is the parent id the record was saved with, resolved
	// from the element's ParentHandle when needed.
	ParentSplitID *string
	Err           error
}

// PersisterOptions configures a Persister.
type PersisterOptions struct {
	QueueSize int
	Logger    *slog.Logger
	// OnSaved is called from the worker goroutine after each save.
	OnSaved func(Saved)
}

type job struct {
	handle  lineage.Handle
	element *lineage.SplitElement
	flushed chan struct{}
}

// Persister saves elements in submission order on a background worker.
// Because submission order is FIFO, a parent submitted before its
// children has its id by the time they are saved.
type Persister struct {
	store   Store
	logger  *slog.Logger
	onSaved func(Saved)
	jobs    chan job
	done    chan struct{}

	// mu guards closed and sends on jobs; idsMu guards ids. The worker
	// only takes idsMu, so a Submit blocked on a full queue never stalls it.
	mu     sync.Mutex
	closed bool
	idsMu  sync.RWMutex
	ids    map[lineage.Handle]string
}

// NewPersister starts a persister writing to s.
func NewPersister(s Store, opts PersisterOptions) *Persister {
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	p := &Persister{
		store:   s,
		logger:  opts.Logger.With("component", "persister"),
		onSaved: opts.OnSaved,
		jobs:    make(chan job, opts.QueueSize),
		done:    make(chan struct{}),
		ids:     make(map[lineage.Handle]string),
	}
	go p.run()
	return p
}

// Submit queues a copy of e, known locally as h. It blocks only while the
// queue is full.
func (p *Persister) Submit(h lineage.Handle, e *lineage.SplitElement) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	p.jobs <- job{handle: h, element: copyElement(e)}
	return nil
}

// Resolve returns the persisted id of the element submitted as h.
func (p *Persister) Resolve(h lineage.Handle) (string, bool) {
	p.idsMu.RLock()
	defer p.idsMu.RUnlock()
	id, ok := p.ids[h]
	return id, ok
}

// Flush waits until everything submitted so far has been saved.
func (p *Persister) Flush(ctx context.Context) error {
	ch := make(chan struct{})
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	p.jobs <- job{flushed: ch}
	p.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close drains the queue and stops the worker. It does not close the
// store.
func (p *Persister) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()
	<-p.done
	return nil
}

func (p *Persister) run() {
	defer close(p.done)
	for j := range p.jobs {
		if j.flushed != nil {
			close(j.flushed)
			continue
		}
		ev := p.save(j)
		if p.onSaved != nil {
			p.onSaved(ev)
		}
	}
}

func (p *Persister) save(j job) Saved {
	e := j.element
	ctx, span := otel.Tracer("kerf/store").Start(context.Background(), "store.save")
	defer span.End()
	span.SetAttributes(
		attribute.Int("kerf.handle", int(j.handle)),
		attribute.String("kerf.source_element_id", e.SourceElementID),
		attribute.String("kerf.part_type", string(e.PartType)),
	)

	ev := Saved{Handle: j.handle}
	if e.ParentSplitID == nil && e.ParentHandle != 0 {
		id, ok := p.Resolve(e.ParentHandle)
		if !ok {
			ev.Err = fmt.Errorf("store: element %d: parent %d: %w", j.handle, e.ParentHandle, ErrParentUnsaved)
			p.fail(span, j.handle, ev.Err)
			return ev
		}
		e.ParentSplitID = &id
	}
	ev.ParentSplitID = e.ParentSplitID

	id, err := p.store.Save(ctx, e)
	if err != nil {
		ev.Err = err
		p.fail(span, j.handle, err)
		return ev
	}
	ev.ID = id
	span.SetAttributes(attribute.String("kerf.id", id))

	p.idsMu.Lock()
	p.ids[j.handle] = id
	p.idsMu.Unlock()

	p.logger.Debug("split saved", "handle", j.handle, "id", id, "source", e.SourceElementID, "part", e.PartType)
	return ev
}

// fail records a failed save. A handle reused by a later scene must not
// resolve to an id saved for an earlier one.
func (p *Persister) fail(span trace.Span, h lineage.Handle, err error) {
	p.idsMu.Lock()
	delete(p.ids, h)
	p.idsMu.Unlock()

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	p.logger.Error("split save failed", "error", err)
}
