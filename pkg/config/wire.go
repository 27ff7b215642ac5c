package config

import (
	"fmt"
	"log/slog"

	"github.com/chazu/kerf/pkg/clip"
	"github.com/chazu/kerf/pkg/engine"
	"github.com/chazu/kerf/pkg/kernel"
	"github.com/chazu/kerf/pkg/kernel/bsp"
	"github.com/chazu/kerf/pkg/kernel/manifold"
	"github.com/chazu/kerf/pkg/kernel/sdfx"
	"github.com/chazu/kerf/pkg/scene"
	"github.com/chazu/kerf/pkg/sketch"
	"github.com/chazu/kerf/pkg/split"
	"github.com/chazu/kerf/pkg/store"
)

// SplitOptions returns the splitter options for k.
func (k KernelConfig) SplitOptions() split.Options {
	return split.Options{
		Clip:      clip.Options{Epsilon: k.ClassifyEpsilon, CapOffsetFactor: k.CapOffsetFactor},
		Prism:     sketch.Options{DepthFactor: k.PrismDepthFactor, MarginFactor: k.PrismMarginFactor},
		MinVolume: k.MinVolume,
	}
}

// Booleans returns the configured boolean backend.
func (k KernelConfig) Booleans() (kernel.BooleanSolidOps, error) {
	switch k.Boolean {
	case "manifold":
		ops, err := manifold.New()
		if err != nil {
			return nil, fmt.Errorf("config: kernel.boolean manifold: %w", err)
		}
		return ops, nil
	default:
		return &bsp.Ops{Epsilon: k.BSPEpsilon, WeldPrecision: k.WeldPrecision}, nil
	}
}

// Splitter builds a splitter from k.
func (k KernelConfig) Splitter() (*split.Splitter, error) {
	ops, err := k.Booleans()
	if err != nil {
		return nil, err
	}
	return split.New(ops, k.SplitOptions()), nil
}

// Open opens the configured store.
func (s StoreConfig) Open(logger *slog.Logger) (store.Store, error) {
	switch s.Driver {
	case "badger":
		return store.OpenBadger(store.BadgerConfig{
			Path:       s.Path,
			InMemory:   s.InMemory,
			SyncWrites: s.SyncWrites,
			Logger:     logger,
		})
	case "memory", "":
		return store.NewMemory(), nil
	default:
		return nil, fmt.Errorf("config: unknown store driver %q", s.Driver)
	}
}

// PersisterOptions returns persister options for s. onSaved may be nil.
func (s StoreConfig) PersisterOptions(logger *slog.Logger, onSaved func(store.Saved)) store.PersisterOptions {
	return store.PersisterOptions{QueueSize: s.QueueSize, Logger: logger, OnSaved: onSaved}
}

// NewEngine builds a script engine from c. p may be nil.
func (c Config) NewEngine(logger *slog.Logger, p scene.Persister) (*engine.Engine, error) {
	sp, err := c.Kernel.Splitter()
	if err != nil {
		return nil, err
	}
	return engine.NewEngine(engine.Options{
		Timeout:   c.Engine.Timeout,
		Modeler:   &sdfx.Modeler{Cells: c.Engine.MeshCells, WeldPrecision: c.Kernel.WeldPrecision},
		Splitter:  sp,
		Logger:    logger,
		Persister: p,
	}), nil
}
