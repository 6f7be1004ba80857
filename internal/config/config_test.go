package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glviewer/batchview/internal/memory"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "batchview.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	s := Default()
	require.NoError(t, s.Validate())
	assert.Equal(t, memory.DefaultConfig(), s.Memory.Config())
	assert.NotEmpty(t, s.Scene)
}

func TestLoadWithoutFile(t *testing.T) {
	t.Setenv(EnvConfig, "")
	t.Setenv(EnvSeed, "")
	s, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), s)
}

func TestLoadOverlaysDefaults(t *testing.T) {
	t.Setenv(EnvSeed, "")
	path := writeConfig(t, `
window:
  width: 800
memory:
  initial_vertices: 128
  growth_factor: 1.5
seed: 42
`)
	s, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 800, s.Window.Width)
	assert.Equal(t, 960, s.Window.Height)
	assert.Equal(t, "batchview", s.Window.Title)
	assert.Equal(t, 128, s.Memory.InitialVertices)
	assert.Equal(t, 1.5, s.Memory.GrowthFactor)
	assert.Equal(t, memory.DefaultConfig().InitialIndices, s.Memory.InitialIndices)
	assert.Equal(t, int64(42), s.Seed)
	assert.Equal(t, Default().Scene, s.Scene)
}

func TestLoadReplacesScene(t *testing.T) {
	t.Setenv(EnvSeed, "")
	path := writeConfig(t, `
scene:
  - name: box
    shape: cube
    size: 2
    position: [1, 2, 3]
    colour: "#ff0000"
    static: false
  - name: dots
    shape: points
    points: [[0, 0, 0], [1, 0, 0]]
    point_size: 8
    point_shape: square
`)
	s, err := Load(path)
	require.NoError(t, err)
	require.Len(t, s.Scene, 2)

	box := s.Scene[0]
	assert.Equal(t, "cube", box.Shape)
	assert.Equal(t, float32(2), box.Size)
	assert.Equal(t, [3]float32{1, 2, 3}, box.Position)
	require.NotNil(t, box.Static)
	assert.False(t, *box.Static)
	assert.Nil(t, box.Selectable)

	dots := s.Scene[1]
	assert.Len(t, dots.Points, 2)
	assert.Equal(t, "square", dots.PointShape)
}

func TestLoadFromEnv(t *testing.T) {
	path := writeConfig(t, "window:\n  title: from-env\n")
	t.Setenv(EnvConfig, path)
	t.Setenv(EnvSeed, "7")

	s, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-env", s.Window.Title)
	assert.Equal(t, int64(7), s.Seed)
}

func TestLoadErrors(t *testing.T) {
	t.Setenv(EnvConfig, "")
	t.Setenv(EnvSeed, "")

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "window: [1, 2"))
	assert.Error(t, err)

	t.Setenv(EnvSeed, "abc")
	_, err = Load("")
	assert.ErrorContains(t, err, EnvSeed)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
		errMsg string
	}{
		{"zero width", func(s *Settings) { s.Window.Width = 0 }, "window size"},
		{"small growth", func(s *Settings) { s.Memory.GrowthFactor = 1.1 }, "growth factor"},
		{"threshold", func(s *Settings) { s.Memory.DefragThreshold = 1 }, "defrag threshold"},
		{"unnamed", func(s *Settings) { s.Scene[0].Name = "" }, "no name"},
		{"duplicate", func(s *Settings) { s.Scene[1].Name = s.Scene[0].Name }, "duplicate"},
		{"shape", func(s *Settings) { s.Scene[0].Shape = "teapot" }, "unknown shape"},
		{"point shape", func(s *Settings) { s.Scene[0].PointShape = "star" }, "unknown point shape"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Default()
			tt.mutate(&s)
			assert.ErrorContains(t, s.Validate(), tt.errMsg)
		})
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	s := Default()
	data, err := s.Marshal()
	require.NoError(t, err)

	var back Settings
	require.NoError(t, Parse(data, &back))
	assert.Equal(t, s, back)
}
