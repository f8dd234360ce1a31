// Package offline runs the renderer without a window on the soft backend:
// baking an environment map to image files and rendering still frames.
package offline

import (
	"errors"
	"fmt"

	"github.com/gekko3d/lumen"
	"github.com/gekko3d/lumen/pbr/rt/core"
	"github.com/gekko3d/lumen/pbr/rt/envmap"
	"github.com/gekko3d/lumen/pbr/rt/frame"
	"github.com/gekko3d/lumen/pbr/rt/gfx"
	"github.com/gekko3d/lumen/pbr/rt/lights"
	"github.com/gekko3d/lumen/pbr/rt/scene"
	"github.com/gekko3d/lumen/pbr/rt/shaders"
	"github.com/gekko3d/lumen/pbr/rt/soft"
)

// MaxCubeMapSize caps the environment map the CPU backend allocates.
const MaxCubeMapSize = 256

type BakeOptions struct {
	Size   int
	OutDir string
	// Format is "png" or "tiff".
	Format string
	Logger lumen.Logger
}

// Bake converts the equirectangular image at src into a cube map and writes
// its six faces to opts.OutDir. It returns the bake result and the written
// files in face order.
func Bake(src string, opts BakeOptions) (envmap.Result, []string, error) {
	logger := lumen.OrNop(opts.Logger)
	if opts.Size <= 0 {
		opts.Size = MaxCubeMapSize
	}
	if opts.Format == "" {
		opts.Format = "png"
	}

	dev, err := soft.NewDevice(1, 1)
	if err != nil {
		return envmap.Result{}, nil, err
	}
	lib, err := shaders.NewLibrary(dev)
	if err != nil {
		return envmap.Result{}, nil, err
	}
	cube, err := dev.NewCubeMap(gfx.CubeMapDesc{
		Label:   "environment",
		Size:    opts.Size,
		Format:  shaders.HDRFormat,
		Filter:  gfx.FilterTrilinear,
		Mipmaps: true,
	})
	if err != nil {
		return envmap.Result{}, nil, fmt.Errorf("%w: %w", core.ErrResourceAllocation, err)
	}
	defer cube.Release()
	target, err := dev.NewRenderTarget("capture")
	if err != nil {
		return envmap.Result{}, nil, fmt.Errorf("%w: %w", core.ErrResourceAllocation, err)
	}
	defer target.Release()

	baker := envmap.NewBaker(dev, lib.Program(shaders.HDRToCubeKey), target, logger)
	res, err := baker.ConvertFile(src, cube)
	if err != nil {
		return res, nil, err
	}
	paths, err := soft.WriteCubeFaces(cube.(*soft.CubeMap), opts.OutDir, opts.Format)
	if err != nil {
		return res, paths, err
	}
	logger.Infof("wrote %d faces to %s", len(paths), opts.OutDir)
	return res, paths, nil
}

type SnapshotOptions struct {
	// Frames is the number of frames rendered before the screen is written;
	// the scene advances by Step seconds before each one.
	Frames int
	Step   float64
	Out    string
	Camera *core.Camera
	Logger lumen.Logger
}

// Snapshot renders the demo scene with cfg on the soft backend and writes
// the presented image to opts.Out. It returns the stats of the last frame.
func Snapshot(cfg lumen.Config, opts SnapshotOptions) (stats frame.Stats, err error) {
	logger := lumen.OrNop(opts.Logger)
	if opts.Frames <= 0 {
		opts.Frames = 1
	}
	if opts.Step <= 0 {
		opts.Step = 1.0 / 60
	}
	cam := opts.Camera
	if cam == nil {
		cam = core.NewCamera()
	}

	fopts, err := frame.OptionsFromConfig(cfg.Renderer, logger)
	if err != nil {
		return stats, err
	}
	if fopts.CubeMapSize <= 0 || fopts.CubeMapSize > MaxCubeMapSize {
		logger.Warnf("soft backend: cube map size %d capped to %d", fopts.CubeMapSize, MaxCubeMapSize)
		fopts.CubeMapSize = MaxCubeMapSize
	}

	dev, err := soft.NewDevice(cfg.Window.Width, cfg.Window.Height)
	if err != nil {
		return stats, err
	}
	lib, err := shaders.NewLibrary(dev)
	if err != nil {
		return stats, err
	}
	reg := lights.NewRegistry(logger, lib.LightShaders()...)
	orch := frame.NewOrchestrator(dev, lib, fopts)
	if err := orch.Initialize(core.WindowSpecs{Width: uint32(cfg.Window.Width), Height: uint32(cfg.Window.Height)}); err != nil {
		return stats, err
	}
	defer func() {
		err = errors.Join(err, orch.CleanUp())
	}()

	if path := cfg.Renderer.EnvironmentMap; path != "" {
		// the orchestrator logs the failure and keeps the blank map
		_ = orch.SetEnvironmentMapEquirectangular(path)
	}

	sc := scene.NewDemo(dev, reg)
	defer sc.Destroy()
	for i := 0; i < opts.Frames; i++ {
		sc.Update(opts.Step)
		if err := sc.Render(orch, cam); err != nil {
			return orch.LastFrame(), err
		}
	}
	stats = orch.LastFrame()
	if opts.Out != "" {
		if err := soft.WriteTexture(dev.ScreenTexture(), opts.Out); err != nil {
			return stats, err
		}
		logger.Infof("frame %d written to %s", stats.Frame, opts.Out)
	}
	return stats, nil
}
