package scene

import (
	"context"
	"fmt"

	"github.com/chazu/kerf/pkg/kernel"
	"github.com/chazu/kerf/pkg/lineage"
	"github.com/chazu/kerf/pkg/split"
	"github.com/chazu/kerf/pkg/store"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// target builds the lineage target for splitting sol.
func target(sol *Solid) lineage.Target {
	if sol.Element != nil {
		return lineage.FromElement(sol.Element, sol.Handle)
	}
	return lineage.Target{
		Mesh:            sol.Mesh,
		SourceElementID: sol.SourceElementID,
		Volume:          sol.Volume,
	}
}

// Split divides the active solid h. On success h is retired, the two
// halves are added in output order and both are submitted for saving. On
// failure the scene is unchanged.
func (s *Scene) Split(ctx context.Context, h Handle, p split.Params) ([2]Handle, *split.Result, error) {
	_, span := otel.Tracer("kerf/scene").Start(ctx, "scene.split")
	defer span.End()
	span.SetAttributes(attribute.Int("kerf.handle", int(h)), attribute.String("kerf.method", string(p.Method)))

	var out [2]Handle
	s.mu.Lock()
	sol := s.solid(h)
	if sol == nil || sol.Retired {
		s.mu.Unlock()
		err := fmt.Errorf("scene: split %d: %w: %w", h, ErrNoSolid, kernel.ErrInvalidInput)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return out, nil, err
	}

	res, err := s.splitter.Split(target(sol), p)
	if err != nil {
		s.mu.Unlock()
		s.logger.Warn("split rejected", "handle", h, "method", p.Method, "kind", kernel.KindOf(err).String(), "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return out, nil, err
	}

	selected := s.display[h-1].Selected
	hidden := s.display[h-1].Hidden
	sol.Retired = true
	s.display[h-1] = Display{}
	for i, e := range res.Elements {
		out[i] = s.add(&Solid{
			SourceElementID: e.SourceElementID,
			Mesh:            e.Geometry,
			Element:         e,
			Parent:          h,
		})
		s.display[out[i]-1].Hidden = hidden
	}
	sol.Children = append(sol.Children, out[0], out[1])
	if selected {
		s.display[out[0]-1].Selected = true
	}
	submit := make([]lineage.SplitElement, 2)
	for i, e := range res.Elements {
		submit[i] = *e
	}
	s.mu.Unlock()

	s.logger.Info("split completed",
		"handle", h, "method", p.Method,
		"first", out[0], "first_volume", res.Elements[0].Volume, "first_ratio", res.Elements[0].VolumeRatio,
		"second", out[1], "second_volume", res.Elements[1].Volume, "second_ratio", res.Elements[1].VolumeRatio)
	span.SetAttributes(attribute.Int("kerf.first", int(out[0])), attribute.Int("kerf.second", int(out[1])))

	// Submit outside the lock: the persister reports back through
	// ApplySaved, which takes it.
	if s.persist != nil {
		for i := range submit {
			if err := s.persist.Submit(out[i], &submit[i]); err != nil {
				s.logger.Error("split not queued for saving", "handle", out[i], "error", err)
			}
		}
	}
	return out, res, nil
}

// ApplySaved records the outcome of a save: the solid receives its id,
// and any children split from it while it was pending are patched with
// that id as their parent.
func (s *Scene) ApplySaved(ev store.Saved) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sol := s.solid(ev.Handle)
	if sol == nil || sol.Element == nil {
		return
	}
	if ev.Err != nil {
		sol.SaveErr = ev.Err
		s.logger.Error("split save failed", "handle", ev.Handle, "error", ev.Err)
		return
	}
	sol.SaveErr = nil
	sol.Element.ID = ev.ID
	if ev.ParentSplitID != nil {
		id := *ev.ParentSplitID
		sol.Element.ParentSplitID = &id
	}
	for _, c := range sol.Children {
		child := s.solid(c)
		if child == nil || child.Element == nil || child.Element.ParentSplitID != nil {
			continue
		}
		id := ev.ID
		child.Element.ParentSplitID = &id
		s.logger.Debug("lineage patched", "handle", c, "parent_split_id", id)
	}
}

// DeleteSource removes every split carved from a source element and
// makes the original active again. It returns the number of splits
// removed.
func (s *Scene) DeleteSource(sourceID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.sources[sourceID]
	if !ok {
		return 0, fmt.Errorf("scene: source %s: %w", sourceID, ErrNoSolid)
	}
	var n int
	for i, sol := range s.solids {
		if sol != nil && sol.Element != nil && sol.SourceElementID == sourceID {
			s.solids[i] = nil
			s.display[i] = Display{}
			n++
		}
	}
	src := s.solid(h)
	src.Retired = false
	src.Children = nil
	s.logger.Info("splits deleted", "source", sourceID, "count", n)
	return n, nil
}
