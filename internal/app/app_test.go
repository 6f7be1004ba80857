package app

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glviewer/batchview/internal/config"
	"github.com/glviewer/batchview/internal/gputest"
	"github.com/glviewer/batchview/internal/render"
)

func newApp(t *testing.T) (*App, *gputest.Recorder) {
	t.Helper()
	settings := config.Default()
	settings.Seed = 7

	rec := gputest.New()
	renderer, err := render.NewBatchRenderer(rec, settings.Memory.Config())
	require.NoError(t, err)
	a := NewApp(renderer, NewView(800, 600), settings)
	require.NoError(t, a.Load())
	return a, rec
}

func TestAppLoad(t *testing.T) {
	a, rec := newApp(t)
	n := len(config.Default().Scene)
	assert.Equal(t, n, a.Renderer.Len())
	assert.Equal(t, n, a.Scene.Len())
	assert.Equal(t, a.Renderer.SceneBounds().Center(), a.View.Target)

	require.NoError(t, a.Draw())
	assert.NotEmpty(t, rec.Draws)
	assert.Equal(t, a.View.ViewMatrix(), rec.View)
	require.NoError(t, a.Renderer.Validate())

	// Reloading replaces rather than duplicates.
	require.NoError(t, a.Load())
	assert.Equal(t, n, a.Renderer.Len())
}

func TestAppCycleSkipsUnselectable(t *testing.T) {
	a, _ := newApp(t)

	name, ok := a.Cycle(true)
	require.True(t, ok)
	assert.Equal(t, "cube", name)
	assert.Equal(t, []string{"cube"}, a.Renderer.SelectedObjects())

	mid, err := a.Renderer.Midpoint("cube")
	require.NoError(t, err)
	assert.Equal(t, mid, a.View.Target)

	name, ok = a.Cycle(false)
	require.True(t, ok)
	assert.Equal(t, "star", name)
	assert.Equal(t, []string{"star"}, a.Renderer.SelectedObjects())
}

func TestAppEditSelection(t *testing.T) {
	a, _ := newApp(t)
	_, ok := a.Cycle(true)
	require.True(t, ok)

	before, err := a.Renderer.Midpoint("cube")
	require.NoError(t, err)
	require.NoError(t, a.TranslateSelected(mgl32.Vec3{1, 0, 0}))
	after, err := a.Renderer.Midpoint("cube")
	require.NoError(t, err)
	assert.Equal(t, before.Add(mgl32.Vec3{1, 0, 0}), after)

	require.NoError(t, a.ToggleStaticSelected())
	key, err := a.Renderer.Key("cube")
	require.NoError(t, err)
	assert.False(t, key.Static)
	require.NoError(t, a.Draw())

	n := a.Renderer.Len()
	assert.Equal(t, 1, a.DeleteSelected())
	assert.Equal(t, n-1, a.Renderer.Len())
	assert.NotContains(t, a.Scene.Names(), "cube")
	require.NoError(t, a.Draw())
	require.NoError(t, a.Renderer.Validate())
}

func TestAppAddRandom(t *testing.T) {
	a, _ := newApp(t)
	n := a.Renderer.Len()

	require.NoError(t, a.AddRandomBatch(50))
	assert.Equal(t, n+50, a.Renderer.Len())
	assert.Equal(t, n+50, a.Scene.Len())

	require.NoError(t, a.Draw())
	require.NoError(t, a.Renderer.Validate())
	st := a.Renderer.Stats()
	assert.Greater(t, st.Dynamic.Objects, 0)
}

func TestAppPick(t *testing.T) {
	a, _ := newApp(t)
	mid, err := a.Renderer.Midpoint("cube")
	require.NoError(t, err)
	a.View.Target = mid
	a.View.SetZoom(4)

	name, ok, err := a.PickAt(400, 300, false)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "cube", name)
	assert.Equal(t, []string{"cube"}, a.Renderer.SelectedObjects())

	_, _, err = a.PickAt(400, 300, true)
	require.NoError(t, err)
	assert.Empty(t, a.Renderer.SelectedObjects())

	// Nothing selectable lies far from the origin.
	a.View.Target = mgl32.Vec3{100, 100, 0}
	_, ok, err = a.PickAt(400, 300, false)
	require.NoError(t, err)
	assert.False(t, ok)
}
