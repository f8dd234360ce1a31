// Package app runs the renderer in a glfw window on the WebGPU backend.
package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/gekko3d/lumen"
	"github.com/gekko3d/lumen/pbr/rt/core"
	"github.com/gekko3d/lumen/pbr/rt/frame"
	"github.com/gekko3d/lumen/pbr/rt/gpu"
	"github.com/gekko3d/lumen/pbr/rt/lights"
	"github.com/gekko3d/lumen/pbr/rt/scene"
	"github.com/gekko3d/lumen/pbr/rt/shaders"

	"github.com/go-gl/glfw/v3.3/glfw"
)

type App struct {
	Window *glfw.Window
	Config lumen.Config
	Logger lumen.Logger

	Device       *gpu.Device
	Library      *shaders.Library
	Orchestrator *frame.Orchestrator
	Lights       *lights.Registry
	Scene        *scene.Scene
	Camera       *core.Camera
	Controller   scene.FlyController
	Profiler     *Profiler
	Watcher      *lumen.FileWatcher

	MouseCaptured bool
	MouseX        float64
	MouseY        float64

	lastTime   time.Time
	lastReport time.Time
	frames     int
	FPS        float64
}

func NewApp(window *glfw.Window, cfg lumen.Config, logger lumen.Logger) *App {
	return &App{
		Window:   window,
		Config:   cfg,
		Logger:   lumen.OrNop(logger),
		Camera:   core.NewCamera(),
		Profiler: NewProfiler(),
	}
}

// Init creates the device, compiles the programs, allocates the frame
// targets and builds the scene. A missing or broken environment map is
// logged and the renderer starts with a black sky.
func (a *App) Init() error {
	opts, err := frame.OptionsFromConfig(a.Config.Renderer, a.Logger)
	if err != nil {
		return err
	}

	a.Device, err = gpu.NewDevice(a.Window, a.Logger)
	if err != nil {
		return err
	}
	a.Library, err = shaders.NewLibrary(a.Device)
	if err != nil {
		return err
	}
	a.Lights = lights.NewRegistry(a.Logger, a.Library.LightShaders()...)
	a.Orchestrator = frame.NewOrchestrator(a.Device, a.Library, opts)

	w, h := a.Window.GetFramebufferSize()
	if err := a.Orchestrator.Initialize(core.WindowSpecs{Width: uint32(w), Height: uint32(h)}); err != nil {
		return err
	}

	if path := a.Config.Renderer.EnvironmentMap; path != "" {
		_ = a.Orchestrator.SetEnvironmentMapEquirectangular(path)
		if a.Config.Renderer.WatchEnvironment {
			a.Watcher, err = lumen.NewFileWatcher(a.Logger, path)
			if err != nil {
				a.Logger.Warnf("environment hot reload disabled: %v", err)
			}
		}
	}

	a.Scene = scene.NewDemo(a.Device, a.Lights)
	a.lastTime = time.Now()
	a.lastReport = a.lastTime
	return nil
}

// Resize follows the framebuffer. Minimized windows report 0x0 and are ignored.
func (a *App) Resize(w, h int) {
	if w <= 0 || h <= 0 {
		return
	}
	a.Device.Resize(w, h)
	if err := a.Orchestrator.Resize(core.WindowSpecs{Width: uint32(w), Height: uint32(h)}); err != nil {
		a.Logger.Errorf("resize to %dx%d: %v", w, h, err)
	}
}

// HandleKey updates the controller and the toggles bound to keys.
func (a *App) HandleKey(key glfw.Key, action glfw.Action) {
	held := action != glfw.Release
	switch key {
	case glfw.KeyW:
		a.Controller.Forward = held
	case glfw.KeyS:
		a.Controller.Back = held
	case glfw.KeyA:
		a.Controller.Left = held
	case glfw.KeyD:
		a.Controller.Right = held
	case glfw.KeySpace:
		a.Controller.Up = held
	case glfw.KeyLeftControl:
		a.Controller.Down = held
	case glfw.KeyLeftShift:
		a.Controller.Fast = held
	}
	if action != glfw.Press {
		return
	}
	switch key {
	case glfw.KeyTab:
		a.SetMouseCaptured(!a.MouseCaptured)
	case glfw.KeyEscape:
		a.Window.SetShouldClose(true)
	case glfw.KeyV:
		next := (a.Orchestrator.ViewType() + 1) % (frame.ViewEnvironment + 1)
		if err := a.Orchestrator.SetViewType(next); err == nil {
			a.Logger.Infof("view: %s", next)
		}
	case glfw.KeyF5:
		a.reloadEnvironment(a.Config.Renderer.EnvironmentMap)
	}
}

func (a *App) SetMouseCaptured(captured bool) {
	a.MouseCaptured = captured
	if captured {
		a.Window.SetInputMode(glfw.CursorMode, glfw.CursorDisabled)
	} else {
		a.Window.SetInputMode(glfw.CursorMode, glfw.CursorNormal)
	}
}

// HandleCursor feeds mouse motion to the controller while the cursor is captured.
func (a *App) HandleCursor(x, y float64) {
	if a.MouseCaptured {
		a.Controller.Look(float32(x-a.MouseX), float32(y-a.MouseY))
	}
	a.MouseX, a.MouseY = x, y
}

// HandleFocus drops held keys when the window loses focus.
func (a *App) HandleFocus(focused bool) {
	if !focused {
		a.Controller.Release()
	}
}

func (a *App) reloadEnvironment(path string) {
	if path == "" {
		return
	}
	a.Profiler.BeginScope("Bake")
	err := a.Orchestrator.SetEnvironmentMapEquirectangular(path)
	a.Profiler.EndScope("Bake")
	if err == nil {
		a.Logger.Infof("environment reloaded from %s", path)
	}
}

// Update advances the camera and scene and picks up environment file changes.
func (a *App) Update() {
	now := time.Now()
	dt := now.Sub(a.lastTime).Seconds()
	a.lastTime = now

	a.Profiler.BeginScope("Update")
	a.Controller.Apply(a.Camera, float32(dt))
	a.Scene.Update(dt)
	a.Profiler.EndScope("Update")

	if a.Watcher != nil {
		if path, ok := a.Watcher.Poll(); ok {
			a.reloadEnvironment(path)
		}
	}

	a.frames++
	if since := now.Sub(a.lastReport); since >= time.Second {
		a.FPS = float64(a.frames) / since.Seconds()
		a.frames = 0
		a.lastReport = now
		if a.Logger.DebugEnabled() {
			a.Logger.Debugf("%.1f fps\n%s", a.FPS, a.Profiler.GetStatsString())
		}
	}
}

// Render draws one frame of the scene.
func (a *App) Render() {
	a.Profiler.BeginScope("Frame")
	err := a.Scene.Render(a.Orchestrator, a.Camera)
	a.Profiler.EndScope("Frame")
	if err != nil {
		a.Logger.Errorf("render: %v", err)
	}
	a.Profiler.Record(a.Orchestrator.LastFrame())
}

// Close releases everything Init created, in reverse order.
func (a *App) Close() error {
	var errs []error
	if a.Watcher != nil {
		errs = append(errs, a.Watcher.Close())
	}
	if a.Scene != nil {
		a.Scene.Destroy()
	}
	if a.Orchestrator != nil && a.Orchestrator.State() == frame.StateInitialized {
		errs = append(errs, a.Orchestrator.CleanUp())
	}
	if a.Device != nil {
		a.Device.Release()
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("close app: %w", err)
	}
	return nil
}
