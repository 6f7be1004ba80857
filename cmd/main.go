package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"runtime"
	"time"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/glviewer/batchview/internal/app"
	"github.com/glviewer/batchview/internal/config"
	"github.com/glviewer/batchview/internal/gpu"
	"github.com/glviewer/batchview/internal/palette"
	"github.com/glviewer/batchview/internal/render"
)

const logFlags = log.Ltime | log.Lshortfile

var runtimeLogger *log.Logger = log.New(io.Discard, "", 0)

var configPath = flag.String("config", "", "path to a YAML settings file (default $BATCHVIEW_CONFIG)")

func init() {
	// OpenGL contexts are tied to specific OS threads - let's pin to just one.
	runtime.LockOSThread()
	log.SetFlags(logFlags)

	if os.Getenv("BATCHVIEW_DEBUG_RUNTIME") == "1" {
		runtimeLogger = log.New(os.Stdout, "[runtime] ", log.Ltime|log.Lmsgprefix)
	}
}

func makeTitle(title string, fps float64, avgFrameTime float64, stats render.Stats) string {
	gpuBytes := stats.Static.GPUBytes + stats.Dynamic.GPUBytes
	return fmt.Sprintf("%s (%.1f FPS, %.2fms/frame, %d objects, %d batches, %d draw calls/frame, %d binds/frame, %.2fµs/flush, %.2fµs/draw, %.1fMiB GPU)",
		title,
		fps,
		avgFrameTime,
		stats.Objects,
		stats.Static.Batches+stats.Dynamic.Batches,
		stats.DrawCalls,
		stats.StateBinds,
		stats.LastFlushTimeUs,
		stats.LastDrawTimeUs,
		float64(gpuBytes)/(1024.0*1024.0),
	)
}

func main() {
	flag.Parse()

	settings, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load settings: %v", err)
	}
	if settings.Seed == 0 {
		settings.Seed = time.Now().Unix()
	}
	runtimeLogger.Printf("seed %d", settings.Seed)

	background := palette.Background
	if settings.Window.Background != "" {
		if background, err = palette.Hex(settings.Window.Background); err != nil {
			log.Fatalf("Invalid background colour: %v", err)
		}
	}

	if err := glfw.Init(); err != nil {
		log.Fatalf("Failed to initialize GLFW: %v", err)
	}
	defer glfw.Terminate()

	// Configure GLFW window hints - use OpenGL 4.1.
	glfw.DefaultWindowHints()
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)

	window, err := glfw.CreateWindow(
		settings.Window.Width,
		settings.Window.Height,
		settings.Window.Title,
		nil, nil,
	)
	if err != nil {
		log.Fatalf("Failed to create window: %v", err)
	}
	window.MakeContextCurrent()

	if err := gl.Init(); err != nil {
		log.Fatalf("Failed to initialize OpenGL: %v", err)
	}

	backend, err := gpu.NewBackend()
	if err != nil {
		log.Fatalf("Failed to set up GPU backend: %v", err)
	}
	defer backend.Release()

	renderer, err := render.NewBatchRenderer(backend, settings.Memory.Config())
	if err != nil {
		log.Fatalf("Failed to create renderer: %v", err)
	}
	defer renderer.Release()

	cw, ch := window.GetFramebufferSize()
	application := app.NewApp(renderer, app.NewView(cw, ch), settings)
	if err := application.Load(); err != nil {
		log.Fatalf("Failed to load scene: %v", err)
	}

	// Initialize event handlers.
	eventHandlers := NewEventHandlers(window, application)

	frameCount, frameTimeSum := 0, 0.0
	totalFrames := 0
	lastFPSUpdate := time.Now()

	// Main loop.
	for !window.ShouldClose() {
		frameStart := time.Now()

		eventHandlers.handleContinuousMovement()

		w, h := window.GetFramebufferSize()
		gl.Viewport(0, 0, int32(w), int32(h))
		gl.ClearColor(background[0], background[1], background[2], 1)
		gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)

		if err := application.Draw(); err != nil {
			log.Fatalf("Failed to draw frame: %v", err)
		}
		window.SwapBuffers()
		renderer.EndFrame()
		glfw.PollEvents()

		frameTime := time.Since(frameStart).Seconds() * 1000.0 // ms
		frameTimeSum += frameTime

		frameCount++
		totalFrames++
		now := time.Now()
		if now.Sub(lastFPSUpdate) >= time.Second {
			fps := float64(frameCount) / now.Sub(lastFPSUpdate).Seconds()
			avgFrameTime := frameTimeSum / float64(frameCount)
			frameCount, frameTimeSum = 0, 0.0
			lastFPSUpdate = now

			stats := renderer.Stats()
			window.SetTitle(makeTitle(settings.Window.Title, fps, avgFrameTime, stats))

			runtimeLogger.Println("=== Performance statistics ===")
			runtimeLogger.Printf("Frame rate:     %.1f FPS (%.2f ms/frame, %d draw calls/frame)", fps, avgFrameTime, stats.DrawCalls)
			runtimeLogger.Printf("Scene:          %d objects, %d selected, %d indices drawn", stats.Objects, len(renderer.SelectedObjects()), stats.IndicesDrawn)
			runtimeLogger.Printf("GPU memory:     %.2f MiB", float64(stats.Static.GPUBytes+stats.Dynamic.GPUBytes)/(1024.0*1024.0))
			runtimeLogger.Printf("Render time:    %.2f µs (last flush), %.2f µs (last draw)", stats.LastFlushTimeUs, stats.LastDrawTimeUs)
			runtimeLogger.Printf("Uploads:        %d static, %d dynamic (%d bytes total)", stats.Static.Uploads, stats.Dynamic.Uploads, stats.Static.BytesUploaded+stats.Dynamic.BytesUploaded)
			runtimeLogger.Printf("Compaction:     %d events (%d relocations, %d batches pruned)",
				stats.Static.CompactionEvents+stats.Dynamic.CompactionEvents,
				stats.Static.Relocations+stats.Dynamic.Relocations,
				stats.Static.BatchesPruned+stats.Dynamic.BatchesPruned)
			runtimeLogger.Println("==============================")

			renderer.PrintStats()
		}

		if totalFrames%60 == 0 { // Periodic compaction.
			if err := renderer.TryCompaction(); err != nil {
				log.Fatalf("Compaction error: %v", err)
			}
		}

		if totalFrames%100 == 0 { // Periodically validate object integrity.
			if err := renderer.Validate(); err != nil {
				log.Fatalf("Object integrity invalid: %v", err)
			}
		}
	}
}
