// Package config loads kerf's YAML configuration and builds the pieces it
// describes.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the whole configuration file.
type Config struct {
	Kernel KernelConfig `yaml:"kernel"`
	Store  StoreConfig  `yaml:"store"`
	Server ServerConfig `yaml:"server"`
	Engine EngineConfig `yaml:"engine"`
	Log    LogConfig    `yaml:"log"`
}

// KernelConfig tunes the geometry pipelines.
type KernelConfig struct {
	ClassifyEpsilon   float64 `yaml:"classify_epsilon"`
	CapOffsetFactor   float64 `yaml:"cap_offset_factor"`
	BSPEpsilon        float64 `yaml:"bsp_epsilon"`
	WeldPrecision     float64 `yaml:"weld_precision"`
	PrismDepthFactor  float64 `yaml:"prism_depth_factor"`
	PrismMarginFactor float64 `yaml:"prism_margin_factor"`
	MinVolume         float64 `yaml:"min_volume"`
	// Boolean selects the sketch boolean backend: bsp or manifold.
	Boolean string `yaml:"boolean"`
}

// StoreConfig selects where splits are persisted.
type StoreConfig struct {
	// Driver is memory or badger.
	Driver     string `yaml:"driver"`
	Path       string `yaml:"path"`
	InMemory   bool   `yaml:"in_memory"`
	SyncWrites bool   `yaml:"sync_writes"`
	QueueSize  int    `yaml:"queue_size"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr  string `yaml:"addr"`
	Debug bool   `yaml:"debug"`
}

// EngineConfig configures script evaluation.
type EngineConfig struct {
	Timeout time.Duration `yaml:"timeout"`
	// MeshCells is the marching cubes resolution for scripted primitives.
	MeshCells int `yaml:"mesh_cells"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level"`
	// Format is text or json.
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Kernel: KernelConfig{
			ClassifyEpsilon:   1e-5,
			CapOffsetFactor:   1e-6,
			BSPEpsilon:        1e-5,
			WeldPrecision:     1e-5,
			PrismDepthFactor:  1.5,
			PrismMarginFactor: 0.05,
			MinVolume:         1e-9,
			Boolean:           "bsp",
		},
		Store: StoreConfig{
			Driver:     "memory",
			Path:       "kerf-data",
			SyncWrites: true,
			QueueSize:  256,
		},
		Server: ServerConfig{Addr: ":8080"},
		Engine: EngineConfig{Timeout: 5 * time.Second, MeshCells: 64},
		Log:    LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads the file at path over the defaults. A missing file yields
// the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// WriteDefault writes the default configuration to path, creating its
// directory. It does nothing when the file already exists.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("config: create directory for %s: %w", path, err)
	}
	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("config: encode defaults: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// Validate rejects settings no component can run with.
func (c Config) Validate() error {
	k := c.Kernel
	for name, v := range map[string]float64{
		"classify_epsilon":    k.ClassifyEpsilon,
		"cap_offset_factor":   k.CapOffsetFactor,
		"bsp_epsilon":         k.BSPEpsilon,
		"weld_precision":      k.WeldPrecision,
		"prism_depth_factor":  k.PrismDepthFactor,
		"prism_margin_factor": k.PrismMarginFactor,
		"min_volume":          k.MinVolume,
	} {
		if v <= 0 {
			return fmt.Errorf("kernel.%s must be positive, got %g", name, v)
		}
	}
	switch k.Boolean {
	case "bsp", "manifold":
	default:
		return fmt.Errorf("kernel.boolean: unknown backend %q", k.Boolean)
	}
	switch c.Store.Driver {
	case "memory":
	case "badger":
		if !c.Store.InMemory && c.Store.Path == "" {
			return errors.New("store.path is required for the badger driver")
		}
	default:
		return fmt.Errorf("store.driver: unknown driver %q", c.Store.Driver)
	}
	if c.Engine.Timeout <= 0 {
		return fmt.Errorf("engine.timeout must be positive, got %s", c.Engine.Timeout)
	}
	if c.Engine.MeshCells <= 0 {
		return fmt.Errorf("engine.mesh_cells must be positive, got %d", c.Engine.MeshCells)
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format: unknown format %q", c.Log.Format)
	}
	return nil
}
