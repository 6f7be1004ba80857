package app

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/glviewer/batchview/internal/config"
	"github.com/glviewer/batchview/internal/render"
)

// randomExtent bounds where generated objects are placed.
const randomExtent = 8.0

var appLogger *log.Logger = log.New(io.Discard, "", 0)

func init() {
	if os.Getenv("BATCHVIEW_DEBUG_APP") == "1" {
		appLogger = log.New(os.Stdout, "[app] ", log.Ltime|log.Lmsgprefix)
	}
}

// App encapsulates the main application state and logic. It holds no
// window; input is translated into calls on it by the caller.
type App struct {
	Renderer *render.BatchRenderer
	View     *View
	Scene    *Scene
	Settings config.Settings
}

// NewApp creates a new application instance.
func NewApp(renderer *render.BatchRenderer, view *View, settings config.Settings) *App {
	return &App{
		Renderer: renderer,
		View:     view,
		Scene:    NewScene(settings.Seed),
		Settings: settings,
	}
}

// Load replaces every object with the configured scene and frames it.
func (app *App) Load() error {
	if err := app.Renderer.Clear(); err != nil {
		return err
	}
	app.Scene.Reset()
	for _, spec := range app.Settings.Scene {
		if err := app.AddObject(spec); err != nil {
			return err
		}
	}
	app.View.ResetTo(app.Renderer.SceneBounds())
	appLogger.Printf("loaded %d objects", app.Renderer.Len())
	return nil
}

// AddObject builds spec and adds it to the renderer, replacing any object
// with the same name.
func (app *App) AddObject(spec config.ObjectSpec) error {
	obj, err := Build(spec, app.Scene.Rand())
	if err != nil {
		return err
	}
	if err := app.Renderer.AddObject(obj.Name, obj.Shape, obj.Transform, obj.Attrs, obj.Static); err != nil {
		return fmt.Errorf("add %q: %w", obj.Name, err)
	}
	app.Scene.Add(obj.Name)
	return nil
}

// AddRandom adds a random dynamic object and returns its name.
func (app *App) AddRandom() (string, error) {
	name := app.Scene.NextName()
	if err := app.AddObject(app.Scene.RandomSpec(name, randomExtent)); err != nil {
		return "", err
	}
	return name, nil
}

// AddRandomBatch adds count random objects.
func (app *App) AddRandomBatch(count int) error {
	for i := 0; i < count; i++ {
		if _, err := app.AddRandom(); err != nil {
			return err
		}
	}
	return nil
}

// DeleteSelected removes every selected object and returns how many.
func (app *App) DeleteSelected() int {
	selected := app.Renderer.SelectedObjects()
	for _, name := range selected {
		app.Renderer.DeleteObject(name)
		app.Scene.Remove(name)
	}
	return len(selected)
}

// TranslateSelected moves every selected object by delta.
func (app *App) TranslateSelected(delta mgl32.Vec3) error {
	for _, name := range app.Renderer.SelectedObjects() {
		if err := app.Renderer.Translate(name, delta); err != nil {
			return err
		}
	}
	return nil
}

// ToggleStaticSelected moves every selected object to the other buffer
// class.
func (app *App) ToggleStaticSelected() error {
	for _, name := range app.Renderer.SelectedObjects() {
		key, err := app.Renderer.Key(name)
		if err != nil {
			return err
		}
		if err := app.Renderer.SetStatic(name, !key.Static); err != nil {
			return err
		}
		appLogger.Printf("%s is now static=%t", name, !key.Static)
	}
	return nil
}

// Cycle selects the next (or previous) object in creation order, skipping
// objects that cannot be selected, and centres the view on it.
func (app *App) Cycle(next bool) (string, bool) {
	for range app.Scene.Names() {
		name, ok := app.Scene.Iter(next)
		if !ok {
			return "", false
		}
		app.Renderer.DeselectAll()
		if err := app.Renderer.Select(name); err != nil {
			continue
		}
		if on, _ := app.Renderer.IsSelected(name); !on {
			continue // not selectable
		}
		if mid, err := app.Renderer.Midpoint(name); err == nil {
			app.View.Target = mid
		}
		return name, true
	}
	return "", false
}

// PickAt toggles selection of the object under framebuffer pixel (x, y).
// Without extend the rest of the selection is cleared first. Returns the
// picked object, if any.
func (app *App) PickAt(x, y float64, extend bool) (string, bool, error) {
	origin, dir, err := app.View.Ray(x, y)
	if err != nil {
		return "", false, err
	}
	name, ok := app.Renderer.Pick(origin, dir)
	if !extend {
		app.Renderer.DeselectAll()
	}
	if !ok {
		return "", false, nil
	}
	app.Scene.SetCurrent(name)
	if extend {
		_, err = app.Renderer.Toggle(name)
	} else {
		err = app.Renderer.Select(name)
	}
	return name, true, err
}

// Draw draws the current frame with the view's camera.
func (app *App) Draw() error {
	return app.Renderer.Draw(app.View.ViewMatrix(), app.View.Projection())
}
