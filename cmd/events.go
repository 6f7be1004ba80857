package main

import (
	"log"
	"math"
	"strconv"
	"time"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/glviewer/batchview/internal/app"
)

const repeatInterval = 125 * time.Millisecond // time between successive moves/pans when pressed down
const basePanDistance = 40.0                    // framebuffer pixels per pan key step
const moveStep = 0.25                           // world units per move key step
const orbitPerPixel = 0.005                     // radians per dragged pixel
const clickSlop = 3.0                           // pixels a click may move before it becomes a drag

// EventHandlers manages all event handling for the application.
type EventHandlers struct {
	window      *glfw.Window
	application *app.App

	// J/K/H/L pan the view, arrows and page up/down move the selection.
	// Both repeat while held.
	panKeyHeld                   bool
	panDirectionX, panDirectionY float64
	lastPanTime                  time.Time
	moveKeyHeld                  bool
	moveDirection                mgl32.Vec3
	lastMoveTime                 time.Time

	// Drag state (per-gesture), captured on mouse press. Left drags orbit,
	// right drags pan; a left press that barely moves is a click.
	dragButton                       glfw.MouseButton
	isDragging, dragMoved            bool
	dragStartMouseX, dragStartMouseY float64
	lastMouseX, lastMouseY           float64
	dragMods                         glfw.ModifierKey

	// Input buffer for numeric input. Accumulates digits until Space is
	// pressed, which adds that many random objects.
	inputBuffer string
}

// NewEventHandlers creates a new event handlers manager.
func NewEventHandlers(window *glfw.Window, application *app.App) *EventHandlers {
	eh := &EventHandlers{
		window:       window,
		application:  application,
		lastPanTime:  time.Now(),
		lastMoveTime: time.Now(),
	}
	eh.SetupCallbacks(window)
	return eh
}

// SetupCallbacks configures all GLFW event callbacks.
func (eh *EventHandlers) SetupCallbacks(window *glfw.Window) {
	window.SetKeyCallback(func(wnd *glfw.Window, key glfw.Key, _ int, action glfw.Action, mods glfw.ModifierKey) {
		eh.handleKey(key, action, mods) // for various actions
	})
	window.SetMouseButtonCallback(func(wnd *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
		eh.handleMouseButton(button, action, mods) // for picking, orbiting and panning
	})
	window.SetCursorPosCallback(func(wnd *glfw.Window, xpos, ypos float64) {
		eh.updateDragging(xpos, ypos)
	})
	window.SetScrollCallback(func(wnd *glfw.Window, _, zoomDelta float64) {
		eh.performZoom(zoomDelta) // for zooming
	})
	window.SetFramebufferSizeCallback(func(wnd *glfw.Window, newW, newH int) {
		eh.application.View.SetViewport(newW, newH) // for window resize
	})
}

// framebufferPos converts window coordinates to framebuffer pixels.
func (eh *EventHandlers) framebufferPos(x, y float64) (float64, float64) {
	scaleX, scaleY := eh.window.GetContentScale()
	return x * float64(scaleX), y * float64(scaleY)
}

// handleKey handles keyboard input events.
func (eh *EventHandlers) handleKey(key glfw.Key, action glfw.Action, mods glfw.ModifierKey) {
	if action == glfw.Press {
		// Handle number keys for input.
		if key >= glfw.Key0 && key <= glfw.Key9 {
			eh.inputBuffer += string(rune('0' + int(key-glfw.Key0)))
			return
		}

		// Clear input buffer on non-input keys (except Space which is the
		// action key).
		if key != glfw.KeySpace {
			eh.inputBuffer = ""
		}
	}

	switch key {
	case glfw.KeySpace:
		if action == glfw.Press {
			eh.handleAddKey()
		}
	case glfw.KeyEscape:
		if action == glfw.Press {
			eh.application.Renderer.DeselectAll()
		}
	case glfw.KeyD, glfw.KeyDelete, glfw.KeyBackspace:
		if action == glfw.Press {
			n := eh.application.DeleteSelected()
			runtimeLogger.Printf("deleted %d objects", n)
		}
	case glfw.KeyS:
		if action == glfw.Press {
			if err := eh.application.ToggleStaticSelected(); err != nil {
				log.Printf("Failed to move selection: %v", err)
			}
		}
	case glfw.KeyR:
		if action == glfw.Press {
			eh.handleResetKey((mods & glfw.ModShift) != 0)
		}
	case glfw.KeyC:
		if action == glfw.Press {
			if err := eh.application.Renderer.TryCompaction(); err != nil {
				log.Fatalf("Compaction error: %v", err)
			}
		}
	case glfw.KeyP:
		if action == glfw.Press {
			eh.application.Renderer.PrintStats()
		}
	case glfw.KeyTab:
		if action == glfw.Press {
			next := (mods & glfw.ModShift) == 0
			if name, ok := eh.application.Cycle(next); ok {
				runtimeLogger.Printf("selected %s", name)
			}
		}
	case glfw.KeyJ:
		eh.handlePanKeys(action, 0 /*dx*/, -1 /*dy*/) // pan down
	case glfw.KeyK:
		eh.handlePanKeys(action, 0 /*dx*/, 1 /*dy*/) // pan up
	case glfw.KeyH:
		eh.handlePanKeys(action, 1 /*dx*/, 0 /*dy*/) // pan right
	case glfw.KeyL:
		eh.handlePanKeys(action, -1 /*dx*/, 0 /*dy*/) // pan left
	case glfw.KeyLeft:
		eh.handleMoveKeys(action, mgl32.Vec3{-moveStep, 0, 0})
	case glfw.KeyRight:
		eh.handleMoveKeys(action, mgl32.Vec3{moveStep, 0, 0})
	case glfw.KeyUp:
		eh.handleMoveKeys(action, mgl32.Vec3{0, moveStep, 0})
	case glfw.KeyDown:
		eh.handleMoveKeys(action, mgl32.Vec3{0, -moveStep, 0})
	case glfw.KeyPageUp:
		eh.handleMoveKeys(action, mgl32.Vec3{0, 0, moveStep})
	case glfw.KeyPageDown:
		eh.handleMoveKeys(action, mgl32.Vec3{0, 0, -moveStep})
	case glfw.KeyEqual:
		if action == glfw.Press && (mods&glfw.ModSuper) != 0 {
			eh.performZoom(1) // zoom in
		}
	case glfw.KeyMinus:
		if action == glfw.Press && (mods&glfw.ModSuper) != 0 {
			eh.performZoom(-1) // zoom out
		}
	}
}

// handleAddKey adds one random object, or as many as the input buffer says.
func (eh *EventHandlers) handleAddKey() {
	count := 1
	if eh.inputBuffer != "" {
		if val, err := strconv.Atoi(eh.inputBuffer); err == nil && val > 0 {
			count = val
		}
		eh.inputBuffer = ""
	}
	if err := eh.application.AddRandomBatch(count); err != nil {
		log.Printf("Failed to add objects: %v", err)
	}
}

// handleResetKey frames the whole scene, or with reload rebuilds it from
// the settings first.
func (eh *EventHandlers) handleResetKey(reload bool) {
	if reload {
		if err := eh.application.Load(); err != nil {
			log.Fatalf("Failed to reload scene: %v", err)
		}
		return
	}
	eh.application.View.ResetTo(eh.application.Renderer.SceneBounds())
}

// handlePanKeys handles j/k/h/l key presses, and also releases for
// continuous panning.
func (eh *EventHandlers) handlePanKeys(action glfw.Action, dx, dy float64) {
	switch action {
	case glfw.Press:
		eh.panKeyHeld = true
		eh.panDirectionX = dx
		eh.panDirectionY = dy
		eh.application.View.Pan(dx*basePanDistance, dy*basePanDistance)
		eh.lastPanTime = time.Now()

	case glfw.Release:
		eh.panKeyHeld = false

	case glfw.Repeat:
		// Ignore repeat events - we handle continuous panning ourselves to
		// ensure consistent timing.
	}
}

// handleMoveKeys handles arrow and page key presses and releases for
// moving the selection.
func (eh *EventHandlers) handleMoveKeys(action glfw.Action, delta mgl32.Vec3) {
	switch action {
	case glfw.Press:
		eh.moveKeyHeld = true
		eh.moveDirection = delta
		eh.performMove(delta)
		eh.lastMoveTime = time.Now()

	case glfw.Release:
		eh.moveKeyHeld = false
	}
}

func (eh *EventHandlers) performMove(delta mgl32.Vec3) {
	if err := eh.application.TranslateSelected(delta); err != nil {
		log.Printf("Failed to move selection: %v", err)
	}
}

// handleContinuousMovement repeats panning and moving while keys are held.
func (eh *EventHandlers) handleContinuousMovement() {
	now := time.Now()
	if eh.panKeyHeld && now.Sub(eh.lastPanTime) >= repeatInterval {
		eh.application.View.Pan(eh.panDirectionX*basePanDistance, eh.panDirectionY*basePanDistance)
		eh.lastPanTime = now
	}
	if eh.moveKeyHeld && now.Sub(eh.lastMoveTime) >= repeatInterval {
		eh.performMove(eh.moveDirection)
		eh.lastMoveTime = now
	}
}

// handleMouseButton starts and ends drags, and picks on a left click.
func (eh *EventHandlers) handleMouseButton(button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
	if button != glfw.MouseButtonLeft && button != glfw.MouseButtonRight {
		return // nothing to do
	}

	switch action {
	case glfw.Press:
		eh.isDragging, eh.dragMoved = true, false
		eh.dragButton, eh.dragMods = button, mods
		eh.dragStartMouseX, eh.dragStartMouseY = eh.window.GetCursorPos()
		eh.lastMouseX, eh.lastMouseY = eh.dragStartMouseX, eh.dragStartMouseY
	case glfw.Release:
		if eh.isDragging && !eh.dragMoved && button == glfw.MouseButtonLeft {
			eh.performPick()
		}
		eh.isDragging = false
	}
}

func (eh *EventHandlers) performPick() {
	x, y := eh.framebufferPos(eh.dragStartMouseX, eh.dragStartMouseY)
	extend := (eh.dragMods & glfw.ModShift) != 0
	name, ok, err := eh.application.PickAt(x, y, extend)
	if err != nil {
		log.Printf("Failed to pick: %v", err)
		return
	}
	if ok {
		runtimeLogger.Printf("picked %s", name)
	}
}

// updateDragging orbits or pans the view as the mouse moves.
func (eh *EventHandlers) updateDragging(xpos, ypos float64) {
	if !eh.isDragging {
		return
	}
	if !eh.dragMoved && math.Hypot(xpos-eh.dragStartMouseX, ypos-eh.dragStartMouseY) < clickSlop {
		return
	}
	eh.dragMoved = true

	dx, dy := eh.framebufferPos(xpos-eh.lastMouseX, ypos-eh.lastMouseY)
	eh.lastMouseX, eh.lastMouseY = xpos, ypos

	view := eh.application.View
	if eh.dragButton == glfw.MouseButtonRight {
		view.Pan(dx, dy)
		return
	}
	view.Orbit(-dx*orbitPerPixel, dy*orbitPerPixel)
}

// performZoom zooms towards the target.
func (eh *EventHandlers) performZoom(zoomDelta float64) {
	zoomFactor := 1.0 + zoomDelta*0.15
	view := eh.application.View
	view.SetZoom(view.Zoom * zoomFactor)
}
