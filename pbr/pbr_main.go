package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"

	"github.com/gekko3d/lumen"
	"github.com/gekko3d/lumen/pbr/rt/app"
	"github.com/gekko3d/lumen/pbr/rt/offline"

	"github.com/go-gl/glfw/v3.3/glfw"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	configPath := flag.String("config", "", "Config file (.toml, .yaml)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	env := flag.String("env", "", "Equirectangular environment map")
	view := flag.String("view", "", "View type: final, albedo, normal, position, material, environment")
	backend := flag.String("backend", "", "Renderer backend: wgpu or soft")
	bake := flag.String("bake", "", "Bake this equirectangular image to cube faces and exit")
	out := flag.String("out", "", "Output directory for -bake, output image for the soft backend")
	format := flag.String("format", "png", "Cube face image format for -bake: png or tiff")
	size := flag.Int("size", 0, "Cube face size for -bake")
	frames := flag.Int("frames", 1, "Frames rendered by the soft backend before writing -out")
	flag.Parse()

	cfg := lumen.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = lumen.LoadConfig(*configPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	if *debug {
		cfg.Log.Debug = true
	}
	if *env != "" {
		cfg.Renderer.EnvironmentMap = *env
	}
	if *view != "" {
		cfg.Renderer.ViewType = *view
	}
	if *backend != "" {
		cfg.Renderer.Backend = *backend
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := lumen.NewDefaultLogger(cfg.Log.Prefix, cfg.Log.Debug)
	defer logger.Sync()

	if err := run(cfg, logger, *bake, *out, *format, *size, *frames); err != nil {
		logger.Errorf("%v", err)
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(cfg lumen.Config, logger *lumen.DefaultLogger, bake, out, format string, size, frames int) error {
	if bake != "" {
		if out == "" {
			out = "."
		}
		if size == 0 {
			size = min(cfg.Renderer.CubeMapSize, offline.MaxCubeMapSize)
		}
		_, _, err := offline.Bake(bake, offline.BakeOptions{Size: size, OutDir: out, Format: format, Logger: logger})
		return err
	}
	if cfg.Renderer.Backend == lumen.BackendSoft {
		if out == "" {
			out = "frame.png"
		}
		_, err := offline.Snapshot(cfg, offline.SnapshotOptions{Frames: frames, Out: out, Logger: logger})
		return err
	}
	return runWindow(cfg, logger)
}

func runWindow(cfg lumen.Config, logger lumen.Logger) error {
	if err := glfw.Init(); err != nil {
		return err
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	window, err := glfw.CreateWindow(cfg.Window.Width, cfg.Window.Height, cfg.Window.Title, nil, nil)
	if err != nil {
		return err
	}
	defer window.Destroy()

	application := app.NewApp(window, cfg, logger)
	if err := application.Init(); err != nil {
		_ = application.Close()
		return err
	}

	window.SetFramebufferSizeCallback(func(w *glfw.Window, width, height int) {
		application.Resize(width, height)
	})
	window.SetCursorPosCallback(func(w *glfw.Window, xpos, ypos float64) {
		application.HandleCursor(xpos, ypos)
	})
	window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		application.HandleKey(key, action)
	})
	window.SetFocusCallback(func(w *glfw.Window, focused bool) {
		application.HandleFocus(focused)
	})

	for !window.ShouldClose() {
		glfw.PollEvents()
		application.Update()
		application.Render()
	}
	return application.Close()
}
