// Package frame sequences the passes of a rendered frame.
//
// A frame is BeginFrame, any number of Submit calls, DrawFrame and EndFrame.
// DrawFrame runs the geometry, environment, lighting and forward passes in
// that order and then presents the selected attachment to the screen.
package frame

import (
	"errors"
	"fmt"

	"github.com/gekko3d/lumen"
	"github.com/gekko3d/lumen/pbr/rt/core"
	"github.com/gekko3d/lumen/pbr/rt/envmap"
	"github.com/gekko3d/lumen/pbr/rt/gfx"
	"github.com/gekko3d/lumen/pbr/rt/shaders"

	"github.com/go-gl/mathgl/mgl32"
)

const DefaultCubeMapSize = 1024

// Attachment names.
const (
	AttachPosition = "position"
	AttachNormal   = "normal"
	AttachAlbedo   = "albedo"
	AttachMaterial = "material"
	AttachColor    = "color"
)

type Options struct {
	// CubeMapSize is the edge length of the environment cube map. Zero means DefaultCubeMapSize.
	CubeMapSize int
	// StrictSequencing panics on lifecycle calls made in the wrong state
	// instead of returning an error.
	StrictSequencing bool
	ViewType         ViewType
	// DisableFrustumCulling draws submissions whose bounds are off screen.
	DisableFrustumCulling bool
	Logger                lumen.Logger
}

type releaser interface{ Release() }

type Orchestrator struct {
	dev    gfx.Device
	lib    *shaders.Library
	opts   Options
	logger lumen.Logger

	state  State
	window core.WindowSpecs

	gbuffer     gfx.RenderTarget
	environment gfx.RenderTarget
	lighting    gfx.RenderTarget
	capture     gfx.RenderTarget
	envCube     gfx.CubeMap
	baker       *envmap.Baker
	envSource   string

	windowRes []releaser
	envRes    []releaser

	projection mgl32.Mat4
	view       mgl32.Mat4
	cameraPos  mgl32.Vec3
	planes     [6]mgl32.Vec4

	submissions []core.Submission
	drawn       bool // DrawFrame already ran in the open frame
	frame       uint64
	last        Stats
}

// NewOrchestrator drives dev with the programs of lib. Nothing is allocated
// until Initialize.
func NewOrchestrator(dev gfx.Device, lib *shaders.Library, opts Options) *Orchestrator {
	if opts.CubeMapSize <= 0 {
		opts.CubeMapSize = DefaultCubeMapSize
	}
	if !opts.ViewType.Valid() {
		opts.ViewType = ViewFinal
	}
	return &Orchestrator{
		dev:         dev,
		lib:         lib,
		opts:        opts,
		logger:      lumen.OrNop(opts.Logger),
		submissions: make([]core.Submission, 0, 256),
	}
}

func (o *Orchestrator) State() State { return o.state }

// LastFrame returns the stats of the most recent DrawFrame.
func (o *Orchestrator) LastFrame() Stats {
	s := o.last
	s.Passes = append([]Pass(nil), o.last.Passes...)
	return s
}

// Pending returns the number of buffered submissions.
func (o *Orchestrator) Pending() int { return len(o.submissions) }

// EnvironmentMap returns the cube map the environment is baked into.
func (o *Orchestrator) EnvironmentMap() gfx.CubeMap { return o.envCube }

// EnvironmentSource returns the path of the last successful bake.
func (o *Orchestrator) EnvironmentSource() string { return o.envSource }

// Target returns one of the window-sized targets by pass name.
func (o *Orchestrator) Target(p Pass) gfx.RenderTarget {
	switch p {
	case PassGeometry:
		return o.gbuffer
	case PassEnvironment:
		return o.environment
	case PassLighting, PassForward:
		return o.lighting
	}
	return nil
}

func (o *Orchestrator) violation(op string) error {
	err := fmt.Errorf("%s while %s: %w", op, o.state, core.ErrSequence)
	o.logger.Errorf("%v", err)
	if o.opts.StrictSequencing {
		panic(err)
	}
	return err
}

// Initialize allocates every render target and the environment cube map.
// On failure everything allocated so far is released and the error wraps
// core.ErrResourceAllocation.
func (o *Orchestrator) Initialize(window core.WindowSpecs) error {
	if o.state != StateUninitialized {
		return o.violation("Initialize")
	}
	if err := o.allocEnvironment(); err != nil {
		return err
	}
	if err := o.allocWindowTargets(window); err != nil {
		releaseAll(&o.envRes)
		return err
	}
	o.window = window
	o.state = StateInitialized
	o.logger.Infof("renderer initialized: %dx%d, environment %d^2", window.Width, window.Height, o.opts.CubeMapSize)
	return nil
}

// Resize reallocates the window-sized targets. The environment map is kept.
// If the new targets cannot be allocated the old ones stay in use.
func (o *Orchestrator) Resize(window core.WindowSpecs) error {
	if o.state != StateInitialized {
		return o.violation("Resize")
	}
	if window == o.window {
		return nil
	}
	if err := o.allocWindowTargets(window); err != nil {
		o.logger.Errorf("resize to %dx%d: %v", window.Width, window.Height, err)
		return err
	}
	o.window = window
	o.logger.Debugf("renderer resized to %dx%d", window.Width, window.Height)
	return nil
}

func releaseAll(list *[]releaser) {
	for i := len(*list) - 1; i >= 0; i-- {
		(*list)[i].Release()
	}
	*list = nil
}

// allocator tracks resources created so far so a failed allocation can undo them.
type allocator struct {
	dev  gfx.Device
	made []releaser
	err  error
}

func (a *allocator) fail(err error) {
	if a.err == nil {
		a.err = err
	}
}

func (a *allocator) target(label string) gfx.RenderTarget {
	if a.err != nil {
		return nil
	}
	t, err := a.dev.NewRenderTarget(label)
	if err != nil {
		a.fail(fmt.Errorf("target %s: %w", label, err))
		return nil
	}
	a.made = append(a.made, t)
	return t
}

func (a *allocator) color(t gfx.RenderTarget, name string, index int, desc gfx.TextureDesc) {
	if a.err != nil {
		return
	}
	tex, err := a.dev.NewTexture(desc)
	if err != nil {
		a.fail(fmt.Errorf("%s %s: %w", t.Label(), name, err))
		return
	}
	a.made = append(a.made, tex)
	if err := t.AttachColor(name, tex, index); err != nil {
		a.fail(err)
	}
}

func (a *allocator) depth(t gfx.RenderTarget, w, h int) {
	if a.err != nil {
		return
	}
	if err := t.AttachDepth(w, h); err != nil {
		a.fail(fmt.Errorf("%s depth: %w", t.Label(), err))
	}
}

func (a *allocator) finish(dst *[]releaser) error {
	if a.err != nil {
		releaseAll(&a.made)
		return fmt.Errorf("%w: %w", core.ErrResourceAllocation, a.err)
	}
	*dst = a.made
	return nil
}

func (o *Orchestrator) allocWindowTargets(window core.WindowSpecs) error {
	a := &allocator{dev: o.dev}
	if !window.Valid() {
		a.fail(fmt.Errorf("window %dx%d", window.Width, window.Height))
	}
	w, h := int(window.Width), int(window.Height)
	tex := func(label string, f gfx.Format) gfx.TextureDesc {
		return gfx.TextureDesc{Label: label, Width: w, Height: h, Format: f, Filter: gfx.FilterNearest}
	}

	gbuffer := a.target("gbuffer")
	a.color(gbuffer, AttachPosition, 0, tex("gbuffer-position", gfx.FormatRGBA16F))
	a.color(gbuffer, AttachNormal, 1, tex("gbuffer-normal", gfx.FormatRGBA16F))
	a.color(gbuffer, AttachAlbedo, 2, tex("gbuffer-albedo", gfx.FormatRGBA8))
	a.color(gbuffer, AttachMaterial, 3, tex("gbuffer-material", gfx.FormatRGBA8))
	a.depth(gbuffer, w, h)

	environment := a.target("environment")
	a.color(environment, AttachColor, 0, tex("environment-color", shaders.HDRFormat))

	lighting := a.target("lighting")
	a.color(lighting, AttachColor, 0, tex("lighting-color", shaders.HDRFormat))
	a.depth(lighting, w, h)

	var made []releaser
	if err := a.finish(&made); err != nil {
		return err
	}
	old := o.windowRes
	o.windowRes = made
	o.gbuffer, o.environment, o.lighting = gbuffer, environment, lighting
	releaseAll(&old)
	return nil
}

func (o *Orchestrator) allocEnvironment() error {
	a := &allocator{dev: o.dev}
	capture := a.target("cube-capture")
	var cube gfx.CubeMap
	if a.err == nil {
		c, err := o.dev.NewCubeMap(gfx.CubeMapDesc{
			Label:   "environment-cube",
			Size:    o.opts.CubeMapSize,
			Format:  shaders.HDRFormat,
			Filter:  gfx.FilterTrilinear,
			Mipmaps: true,
		})
		if err != nil {
			a.fail(fmt.Errorf("environment cube map: %w", err))
		} else {
			a.made = append(a.made, c)
			cube = c
		}
	}
	if err := a.finish(&o.envRes); err != nil {
		return err
	}
	o.capture, o.envCube = capture, cube
	o.baker = envmap.NewBaker(o.dev, o.lib.Program(shaders.HDRToCubeKey), capture, o.logger)
	return nil
}

// BeginFrame captures the camera and opens a frame with an empty buffer.
func (o *Orchestrator) BeginFrame(cam *core.Camera) error {
	if o.state != StateInitialized {
		return o.violation("BeginFrame")
	}
	if cam == nil {
		return errors.New("begin frame: nil camera")
	}
	o.projection = cam.ProjectionMatrix(o.window.Aspect())
	o.view = cam.ViewMatrix()
	o.cameraPos = cam.Position
	o.planes = core.ExtractFrustum(o.projection.Mul4(o.view))
	clear(o.submissions)
	o.submissions = o.submissions[:0]
	o.drawn = false
	o.state = StateFrameOpen
	return nil
}

// Submit buffers s for the current frame. Submissions are not validated here.
func (o *Orchestrator) Submit(s core.Submission) error {
	if o.state != StateFrameOpen {
		return o.violation("Submit")
	}
	o.submissions = append(o.submissions, s)
	return nil
}

// DrawFrame runs the four passes over the buffered submissions and presents.
// It may run once per open frame.
func (o *Orchestrator) DrawFrame() error {
	if o.state != StateFrameOpen {
		return o.violation("DrawFrame")
	}
	if o.drawn {
		return o.violation("second DrawFrame")
	}
	o.drawn = true
	o.frame++
	st := Stats{Frame: o.frame, Passes: make([]Pass, 0, 4)}

	o.geometryPass(&st)
	o.environmentPass(&st)
	o.lightingPass(&st)
	o.forwardPass(&st)
	o.present()

	o.last = st
	if o.logger.DebugEnabled() {
		o.logger.Debugf("frame %d: %d deferred, %d forward, %d culled, %d skipped",
			st.Frame, st.Deferred, st.Forward, st.Culled, st.Skipped)
	}
	if err := o.dev.Flush(); err != nil {
		return fmt.Errorf("frame %d: %w", o.frame, err)
	}
	return nil
}

// EndFrame drops the buffered submissions and closes the frame.
func (o *Orchestrator) EndFrame() error {
	if o.state != StateFrameOpen {
		return o.violation("EndFrame")
	}
	clear(o.submissions)
	o.submissions = o.submissions[:0]
	o.state = StateInitialized
	return nil
}

// SetEnvironmentMapEquirectangular bakes path into the environment cube map
// right away. If the file cannot be loaded the previous map stays in use.
func (o *Orchestrator) SetEnvironmentMapEquirectangular(path string) error {
	if o.state != StateInitialized && o.state != StateFrameOpen {
		return o.violation("SetEnvironmentMapEquirectangular")
	}
	res, err := o.baker.ConvertFile(path, o.envCube)
	if err != nil {
		o.logger.Warnf("environment map %s: %v", path, err)
		return err
	}
	o.envSource = res.Source
	return nil
}

// SetViewType changes what the present step shows from the next frame on.
func (o *Orchestrator) SetViewType(v ViewType) error {
	if !v.Valid() {
		return fmt.Errorf("set view type: %v", v)
	}
	o.opts.ViewType = v
	return nil
}

func (o *Orchestrator) ViewType() ViewType { return o.opts.ViewType }

// CleanUp releases every target and the cube map. It is only legal when no
// frame is open.
func (o *Orchestrator) CleanUp() error {
	if o.state != StateInitialized {
		return o.violation("CleanUp")
	}
	releaseAll(&o.windowRes)
	releaseAll(&o.envRes)
	o.gbuffer, o.environment, o.lighting, o.capture, o.envCube = nil, nil, nil, nil, nil
	o.baker = nil
	o.submissions = nil
	o.state = StateCleanedUp
	o.logger.Infof("renderer cleaned up after %d frames", o.frame)
	return nil
}

// OptionsFromConfig maps the renderer section of a config file onto Options.
func OptionsFromConfig(cfg lumen.RendererConfig, logger lumen.Logger) (Options, error) {
	opts := Options{
		CubeMapSize:           cfg.CubeMapSize,
		StrictSequencing:      cfg.Strict,
		DisableFrustumCulling: !cfg.FrustumCulling,
		Logger:                logger,
	}
	if cfg.ViewType != "" {
		v, err := ParseViewType(cfg.ViewType)
		if err != nil {
			return opts, err
		}
		opts.ViewType = v
	}
	return opts, nil
}
