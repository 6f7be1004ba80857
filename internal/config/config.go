// Package config loads viewer settings from an optional YAML file, with
// environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/glviewer/batchview/internal/memory"
)

const (
	// EnvConfig names the YAML file to load when no path is given.
	EnvConfig = "BATCHVIEW_CONFIG"
	// EnvSeed overrides the random seed used for generated scenes.
	EnvSeed = "BATCHVIEW_SEED"
)

// Settings is the complete viewer configuration.
type Settings struct {
	Window WindowSettings `yaml:"window"`
	Memory MemorySettings `yaml:"memory"`
	Seed   int64          `yaml:"seed"` // 0 picks one from the clock

	// Scene lists the objects created on startup.
	Scene []ObjectSpec `yaml:"scene"`
}

type WindowSettings struct {
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	Title      string `yaml:"title"`
	Background string `yaml:"background"` // "#rrggbb", empty for the default
}

// MemorySettings mirrors memory.Config.
type MemorySettings struct {
	InitialVertices  int     `yaml:"initial_vertices"`
	InitialIndices   int     `yaml:"initial_indices"`
	GrowthFactor     float64 `yaml:"growth_factor"`
	MaxBatchVertices int     `yaml:"max_batch_vertices"`
	DefragThreshold  float64 `yaml:"defrag_threshold"`
}

func (m MemorySettings) Config() memory.Config {
	return memory.Config{
		InitialVertices:  m.InitialVertices,
		InitialIndices:   m.InitialIndices,
		GrowthFactor:     m.GrowthFactor,
		MaxBatchVertices: m.MaxBatchVertices,
		DefragThreshold:  m.DefragThreshold,
	}
}

// ObjectSpec describes one scene object. Which fields apply depends on
// Shape.
type ObjectSpec struct {
	Name  string `yaml:"name"`
	Shape string `yaml:"shape"` // see Shapes

	Points    [][3]float32 `yaml:"points,omitempty"`    // every shape built from explicit points
	Size      float32      `yaml:"size,omitempty"`      // cube edge, rectangle width, circle radius, grid half-extent
	Height    float32      `yaml:"height,omitempty"`    // rectangle
	Segments  int          `yaml:"segments,omitempty"`  // circle
	Increment float32      `yaml:"increment,omitempty"` // grid

	Position [3]float32  `yaml:"position"`
	Rotation [3]float32  `yaml:"rotation"` // degrees
	Scale    *[3]float32 `yaml:"scale,omitempty"`

	Colour     string  `yaml:"colour,omitempty"` // "#rrggbb", random when empty
	PointSize  float32 `yaml:"point_size,omitempty"`
	LineWidth  float32 `yaml:"line_width,omitempty"`
	PointShape string  `yaml:"point_shape,omitempty"` // circle or square
	Alpha      float32 `yaml:"alpha,omitempty"`
	Unlit      bool    `yaml:"unlit,omitempty"`
	Selectable *bool   `yaml:"selectable,omitempty"`
	Static     *bool   `yaml:"static,omitempty"`
}

// Shapes are the recognised ObjectSpec.Shape values.
var Shapes = []string{
	"point", "points", "line", "linestring", "polyline", "lineloop", "triangle",
	"rectangle", "wireframe", "circle", "cube", "grid", "polygon",
}

// Default returns the built-in settings.
func Default() Settings {
	cfg := memory.DefaultConfig()
	no := false
	return Settings{
		Window: WindowSettings{Width: 1280, Height: 960, Title: "batchview"},
		Memory: MemorySettings{
			InitialVertices:  cfg.InitialVertices,
			InitialIndices:   cfg.InitialIndices,
			GrowthFactor:     cfg.GrowthFactor,
			MaxBatchVertices: cfg.MaxBatchVertices,
			DefragThreshold:  cfg.DefragThreshold,
		},
		Scene: []ObjectSpec{
			{Name: "grid", Shape: "grid", Size: 10, Increment: 1, Colour: "#969696", Selectable: &no},
			{Name: "cube", Shape: "cube", Size: 1, Position: [3]float32{0, 0, 0.5}},
			{Name: "tilted", Shape: "cube", Size: 0.6, Position: [3]float32{2, 1, 0.5}, Rotation: [3]float32{0, 0, 30}},
			{Name: "floor", Shape: "rectangle", Size: 2, Height: 1, Position: [3]float32{-3, -2, 0.01}, Unlit: true},
			{Name: "disc", Shape: "circle", Size: 0.75, Segments: 48, Position: [3]float32{-2, 2, 0.01}, Alpha: 0.6},
			{Name: "marker", Shape: "points", Points: [][3]float32{{3, -3, 0}, {3.5, -3, 0}, {4, -3, 0}}, PointSize: 12, PointShape: "square"},
			{Name: "path", Shape: "linestring", Points: [][3]float32{{-4, -4, 0}, {-3, -3, 0.5}, {-2, -4, 1}, {-1, -3, 1.5}}, LineWidth: 2},
			{Name: "star", Shape: "polygon", Position: [3]float32{3, 3, 0.01}, Points: [][3]float32{
				{0, 1, 0}, {0.22, 0.3, 0}, {0.95, 0.3, 0}, {0.36, -0.12, 0}, {0.59, -0.8, 0},
				{0, -0.38, 0}, {-0.59, -0.8, 0}, {-0.36, -0.12, 0}, {-0.95, 0.3, 0}, {-0.22, 0.3, 0},
			}},
		},
	}
}

// Load reads settings from path, or from the file named by BATCHVIEW_CONFIG
// when path is empty. With neither, the defaults are used. Values present
// in the file replace the defaults; a scene in the file replaces the
// default scene.
func Load(path string) (Settings, error) {
	s := Default()
	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Settings{}, fmt.Errorf("read config: %w", err)
		}
		if err := Parse(data, &s); err != nil {
			return Settings{}, fmt.Errorf("%s: %w", path, err)
		}
	}
	if err := s.applyEnv(); err != nil {
		return Settings{}, err
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Parse decodes YAML into s, keeping fields the document does not set.
func Parse(data []byte, s *Settings) error {
	var doc struct {
		Window *WindowSettings `yaml:"window"`
		Memory *MemorySettings `yaml:"memory"`
		Seed   *int64          `yaml:"seed"`
		Scene  []ObjectSpec    `yaml:"scene"`
	}
	doc.Window, doc.Memory = &s.Window, &s.Memory
	doc.Seed = &s.Seed
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	if doc.Scene != nil {
		s.Scene = doc.Scene
	}
	return nil
}

func (s *Settings) applyEnv() error {
	if v := os.Getenv(EnvSeed); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %s value %q: %w", EnvSeed, v, err)
		}
		s.Seed = seed
	}
	return nil
}

// Validate rejects settings the viewer cannot start with.
func (s Settings) Validate() error {
	if s.Window.Width <= 0 || s.Window.Height <= 0 {
		return fmt.Errorf("invalid window size %dx%d", s.Window.Width, s.Window.Height)
	}
	if g := s.Memory.GrowthFactor; g != 0 && g < 1.5 {
		return fmt.Errorf("growth factor %g must be at least 1.5", g)
	}
	if d := s.Memory.DefragThreshold; d < 0 || d >= 1 {
		return fmt.Errorf("defrag threshold %g must be in [0, 1)", d)
	}

	known := make(map[string]bool, len(Shapes))
	for _, shape := range Shapes {
		known[shape] = true
	}
	names := make(map[string]bool, len(s.Scene))
	for i, o := range s.Scene {
		if o.Name == "" {
			return fmt.Errorf("scene object %d has no name", i)
		}
		if names[o.Name] {
			return fmt.Errorf("duplicate scene object %q", o.Name)
		}
		names[o.Name] = true
		if !known[o.Shape] {
			return fmt.Errorf("scene object %q has unknown shape %q", o.Name, o.Shape)
		}
		if o.PointShape != "" && o.PointShape != "circle" && o.PointShape != "square" {
			return fmt.Errorf("scene object %q has unknown point shape %q", o.Name, o.PointShape)
		}
	}
	return nil
}

// Marshal encodes s as YAML.
func (s Settings) Marshal() ([]byte, error) {
	return yaml.Marshal(s)
}
