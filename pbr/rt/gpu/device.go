// Package gpu implements the gfx contracts on WebGPU.
//
// Work is recorded into one command encoder per frame. A render pass is
// opened lazily by the first draw into a bound target and closed when the
// target is unbound or its attachments change; Flush submits everything and
// presents the surface texture when the screen was drawn to.
package gpu

import (
	"errors"
	"fmt"

	"github.com/gekko3d/lumen"
	"github.com/gekko3d/lumen/pbr/rt/gfx"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// bindable is implemented by every texture kind a program can sample.
type bindable interface {
	gfx.Texture
	bindingID() uint64
	bindingView() *wgpu.TextureView
	bindingSampler() *wgpu.Sampler
}

type Device struct {
	logger lumen.Logger

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	surface  *wgpu.Surface
	config   *wgpu.SurfaceConfiguration

	encoder    *wgpu.CommandEncoder
	pass       *wgpu.RenderPassEncoder
	passTarget *RenderTarget

	frame     *wgpu.Texture
	frameView *wgpu.TextureView

	viewport gfx.Viewport
	cull     bool
	target   *RenderTarget
	program  *Program
	slots    map[int]bindable

	screen      *RenderTarget
	shapes      map[gfx.ShapeKind]*shape
	programs    []*Program
	mipmaps     *mipmapper
	placeholder map[bool]bindable

	nextID     uint64
	generation uint64
	afterFlush []func()
	errs       []error
}

// NewDevice opens an adapter and device for window and configures its surface.
func NewDevice(window *glfw.Window, logger lumen.Logger) (*Device, error) {
	d := &Device{
		logger: lumen.OrNop(logger),
		cull:   true,
		slots:  make(map[int]bindable),
		shapes: make(map[gfx.ShapeKind]*shape),
	}
	d.instance = wgpu.CreateInstance(nil)
	d.surface = d.instance.CreateSurface(wgpuglfw.GetSurfaceDescriptor(window))

	adapter, err := d.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: d.surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return nil, fmt.Errorf("request adapter: %w", err)
	}
	d.adapter = adapter

	d.device, err = adapter.RequestDevice(nil)
	if err != nil {
		return nil, fmt.Errorf("request device: %w", err)
	}
	d.queue = d.device.GetQueue()

	width, height := window.GetFramebufferSize()
	caps := d.surface.GetCapabilities(adapter)
	d.config = &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      surfaceFormat(caps.Formats),
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: wgpu.PresentModeFifo,
		AlphaMode:   caps.AlphaModes[0],
	}
	d.surface.Configure(adapter, d.device, d.config)
	d.viewport = gfx.Viewport{Width: width, Height: height}

	d.screen = &RenderTarget{dev: d, label: "screen", screen: true}
	for _, k := range []gfx.ShapeKind{gfx.ShapeCube, gfx.ShapeQuad} {
		s, err := newShape(d, k)
		if err != nil {
			return nil, err
		}
		d.shapes[k] = s
	}
	d.logger.Infof("webgpu device ready: %dx%d, surface format %v", width, height, d.config.Format)
	return d, nil
}

// surfaceFormat prefers a linear 8-bit format; the present program applies
// gamma itself.
func surfaceFormat(formats []wgpu.TextureFormat) wgpu.TextureFormat {
	for _, f := range formats {
		if f == wgpu.TextureFormatBGRA8Unorm || f == wgpu.TextureFormatRGBA8Unorm {
			return f
		}
	}
	return formats[0]
}

// Resize reconfigures the surface. Zero sizes, as reported for minimized
// windows, are ignored.
func (d *Device) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	d.config.Width = uint32(width)
	d.config.Height = uint32(height)
	d.surface.Configure(d.adapter, d.device, d.config)
}

func (d *Device) id() uint64 {
	d.nextID++
	return d.nextID
}

// fail records an error for the next Flush. Draw-time calls have no error
// return of their own.
func (d *Device) fail(err error) {
	d.logger.Errorf("gpu: %v", err)
	d.errs = append(d.errs, err)
}

// releaseAfterFlush defers fn until the work recorded so far is submitted.
func (d *Device) releaseAfterFlush(fn func()) {
	if d.encoder == nil {
		fn()
		return
	}
	d.afterFlush = append(d.afterFlush, fn)
}

// invalidateBindings drops cached texture bind groups.
func (d *Device) invalidateBindings() { d.generation++ }

func (d *Device) commandEncoder() (*wgpu.CommandEncoder, error) {
	if d.encoder != nil {
		return d.encoder, nil
	}
	enc, err := d.device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, fmt.Errorf("create command encoder: %w", err)
	}
	d.encoder = enc
	return enc, nil
}

func (d *Device) NewTexture(desc gfx.TextureDesc) (gfx.Texture, error) {
	return newTexture(d, desc)
}

func (d *Device) NewCubeMap(desc gfx.CubeMapDesc) (gfx.CubeMap, error) {
	return newCubeMap(d, desc)
}

func (d *Device) NewRenderTarget(label string) (gfx.RenderTarget, error) {
	return &RenderTarget{dev: d, label: label}, nil
}

func (d *Device) NewProgram(desc gfx.ProgramDesc) (gfx.Program, error) {
	p, err := newProgram(d, desc)
	if err != nil {
		return nil, err
	}
	d.programs = append(d.programs, p)
	return p, nil
}

func (d *Device) Screen() gfx.RenderTarget { return d.screen }

func (d *Device) Shape(kind gfx.ShapeKind) gfx.Drawable { return d.shapes[kind] }

func (d *Device) Viewport() gfx.Viewport { return d.viewport }

func (d *Device) SetViewport(v gfx.Viewport) { d.viewport = v }

func (d *Device) CullFace() bool { return d.cull }

func (d *Device) SetCullFace(enabled bool) { d.cull = enabled }

// Clear makes the next pass on the bound target start from cleared color
// and depth.
func (d *Device) Clear() {
	t := d.target
	if t == nil {
		return
	}
	if d.passTarget == t {
		d.endPass()
	}
	t.clear = true
}

// acquireFrame fetches the surface texture the screen target renders into.
func (d *Device) acquireFrame() (*wgpu.TextureView, error) {
	if d.frameView != nil {
		return d.frameView, nil
	}
	tex, err := d.surface.GetCurrentTexture()
	if err != nil {
		return nil, fmt.Errorf("acquire surface texture: %w", err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("surface texture view: %w", err)
	}
	d.frame, d.frameView = tex, view
	return view, nil
}

func (d *Device) beginPass(t *RenderTarget) bool {
	if d.pass != nil && d.passTarget == t {
		return true
	}
	d.endPass()
	enc, err := d.commandEncoder()
	if err != nil {
		d.fail(err)
		return false
	}
	desc, err := t.passDescriptor()
	if err != nil {
		d.fail(err)
		return false
	}
	d.pass = enc.BeginRenderPass(desc)
	d.passTarget = t
	t.clear = false
	return true
}

func (d *Device) endPass() {
	if d.pass == nil {
		return
	}
	if err := d.pass.End(); err != nil {
		d.fail(fmt.Errorf("end pass on %s: %w", d.passTarget.label, err))
	}
	d.pass.Release()
	d.pass = nil
	d.passTarget = nil
}

// settle closes t's pass, first opening an empty one if a clear is still
// pending so the clear is not lost.
func (d *Device) settle(t *RenderTarget) {
	if t.clear && d.passTarget != t {
		d.beginPass(t)
	}
	if d.passTarget == t {
		d.endPass()
	}
}

func (d *Device) draw(s *shape) {
	t, p := d.target, d.program
	if t == nil || p == nil {
		d.fail(errors.New("draw without a bound target and program"))
		return
	}
	pipeline, err := p.pipeline(t, d.cull)
	if err != nil {
		d.fail(err)
		return
	}
	offset, err := p.snapshot()
	if err != nil {
		d.fail(err)
		return
	}
	textures, err := p.textureGroup(d.slots)
	if err != nil {
		d.fail(err)
		return
	}
	if !d.beginPass(t) {
		return
	}
	pass := d.pass
	pass.SetPipeline(pipeline)
	pass.SetBindGroup(0, p.uniforms, []uint32{offset})
	if textures != nil {
		pass.SetBindGroup(1, textures, nil)
	}
	// gfx viewports have a bottom-left origin.
	vp := d.viewport
	_, h := t.size()
	y := h - vp.Y - vp.Height
	pass.SetViewport(float32(vp.X), float32(y), float32(vp.Width), float32(vp.Height), 0, 1)
	pass.SetVertexBuffer(0, s.buffer, 0, wgpu.WholeSize)
	pass.Draw(s.count, 1, 0, 0)
}

// Flush submits the recorded work, presents the surface texture if one was
// drawn to, and returns the errors collected since the last Flush.
func (d *Device) Flush() error {
	if d.target != nil {
		d.settle(d.target)
	}
	d.endPass()
	if d.encoder != nil {
		cmd, err := d.encoder.Finish(nil)
		d.encoder.Release()
		d.encoder = nil
		if err != nil {
			d.fail(fmt.Errorf("finish command encoder: %w", err))
		} else {
			d.queue.Submit(cmd)
			cmd.Release()
		}
	}
	if d.frame != nil {
		d.surface.Present()
		d.frameView.Release()
		d.frame.Release()
		d.frame, d.frameView = nil, nil
	}
	for _, fn := range d.afterFlush {
		fn()
	}
	d.afterFlush = d.afterFlush[:0]
	for _, p := range d.programs {
		p.rewind()
	}
	err := errors.Join(d.errs...)
	d.errs = d.errs[:0]
	return err
}

// Release frees the device and everything it still owns.
func (d *Device) Release() {
	if err := d.Flush(); err != nil {
		d.logger.Warnf("flush on release: %v", err)
	}
	for _, p := range d.programs {
		p.release()
	}
	for _, s := range d.shapes {
		s.buffer.Release()
	}
	for _, t := range d.placeholder {
		t.Release()
	}
	if d.mipmaps != nil {
		d.mipmaps.release()
	}
	d.queue.Release()
	d.device.Release()
	d.adapter.Release()
	d.surface.Release()
	d.instance.Release()
}
