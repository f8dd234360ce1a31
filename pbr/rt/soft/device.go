// Package soft is a CPU implementation of the gfx contracts. It renders the
// same programs as the WebGPU backend with Go fragment functions, which makes
// it usable headless: offline bakes, tools and tests that compare pixels.
//
// Images are stored bottom row first, matching the clip-space orientation
// the renderer's matrices are written for.
package soft

import (
	"fmt"

	"github.com/gekko3d/lumen/pbr/rt/gfx"

	"github.com/google/uuid"
)

// Op is the kind of a recorded device event.
type Op string

const (
	OpBindTarget   Op = "bind-target"
	OpUnbindTarget Op = "unbind-target"
	OpBindProgram  Op = "bind-program"
	OpUnbindProg   Op = "unbind-program"
	OpClear        Op = "clear"
	OpDraw         Op = "draw"
	OpViewport     Op = "viewport"
	OpCull         Op = "cull"
	OpFlush        Op = "flush"
)

// Event is one recorded device call.
type Event struct {
	Op   Op
	Name string
}

func (e Event) String() string {
	if e.Name == "" {
		return string(e.Op)
	}
	return fmt.Sprintf("%s %s", e.Op, e.Name)
}

type Limits struct {
	MaxTextureDimension int
}

func DefaultLimits() Limits {
	return Limits{MaxTextureDimension: 8192}
}

// Device is a single-threaded software device. Like a GL context it must only
// be used from one goroutine.
type Device struct {
	limits Limits

	viewport gfx.Viewport
	cull     bool

	target  *RenderTarget
	program *Program
	slots   map[int]gfx.Texture

	screen *RenderTarget
	shapes map[gfx.ShapeKind]*shape

	live   int
	record bool
	events []Event
}

// NewDevice creates a device whose screen target is width x height.
func NewDevice(width, height int) (*Device, error) {
	return NewDeviceWithLimits(width, height, DefaultLimits())
}

func NewDeviceWithLimits(width, height int, limits Limits) (*Device, error) {
	d := &Device{
		limits:   limits,
		viewport: gfx.Viewport{Width: width, Height: height},
		cull:     true,
		slots:    make(map[int]gfx.Texture),
		shapes:   make(map[gfx.ShapeKind]*shape),
	}
	for _, k := range []gfx.ShapeKind{gfx.ShapeCube, gfx.ShapeQuad} {
		d.shapes[k] = &shape{dev: d, kind: k}
	}
	screen, err := d.NewRenderTarget("screen")
	if err != nil {
		return nil, err
	}
	color, err := d.NewTexture(gfx.TextureDesc{Label: "screen-color", Width: width, Height: height, Format: gfx.FormatRGBA8})
	if err != nil {
		return nil, fmt.Errorf("create screen: %w", err)
	}
	if err := screen.AttachColor("color", color, 0); err != nil {
		return nil, err
	}
	d.screen = screen.(*RenderTarget)
	return d, nil
}

// Record turns the event log on or off. Turning it on clears the log.
func (d *Device) Record(enabled bool) {
	d.record = enabled
	d.events = d.events[:0]
}

// Events returns a copy of the recorded events.
func (d *Device) Events() []Event {
	return append([]Event(nil), d.events...)
}

func (d *Device) emit(op Op, name string) {
	if d.record {
		d.events = append(d.events, Event{Op: op, Name: name})
	}
}

// LiveResources counts textures, cube maps and targets not yet released.
func (d *Device) LiveResources() int { return d.live }

func (d *Device) checkSize(label string, w, h int) error {
	if w <= 0 || h <= 0 {
		return fmt.Errorf("%s: size %dx%d: %w", label, w, h, gfx.ErrUnsupported)
	}
	if w > d.limits.MaxTextureDimension || h > d.limits.MaxTextureDimension {
		return fmt.Errorf("%s: size %dx%d exceeds %d: %w", label, w, h, d.limits.MaxTextureDimension, gfx.ErrUnsupported)
	}
	return nil
}

func newLabel(label, kind string) string {
	if label != "" {
		return label
	}
	return kind + "-" + uuid.NewString()
}

func (d *Device) NewTexture(desc gfx.TextureDesc) (gfx.Texture, error) {
	label := newLabel(desc.Label, "texture")
	if err := d.checkSize(label, desc.Width, desc.Height); err != nil {
		return nil, err
	}
	if desc.Pixels != nil && len(desc.Pixels) != desc.Width*desc.Height*4 {
		return nil, fmt.Errorf("%s: got %d floats for %dx%d", label, len(desc.Pixels), desc.Width, desc.Height)
	}
	t := newTexture(d, label, desc)
	d.live++
	return t, nil
}

func (d *Device) NewCubeMap(desc gfx.CubeMapDesc) (gfx.CubeMap, error) {
	label := newLabel(desc.Label, "cubemap")
	if err := d.checkSize(label, desc.Size, desc.Size); err != nil {
		return nil, err
	}
	c := newCubeMap(d, label, desc)
	d.live++
	return c, nil
}

func (d *Device) NewRenderTarget(label string) (gfx.RenderTarget, error) {
	t := &RenderTarget{dev: d, label: newLabel(label, "target")}
	d.live++
	return t, nil
}

func (d *Device) NewProgram(desc gfx.ProgramDesc) (gfx.Program, error) {
	return newProgram(d, desc), nil
}

func (d *Device) Screen() gfx.RenderTarget { return d.screen }

// ScreenTexture returns the color image last presented.
func (d *Device) ScreenTexture() *Texture {
	return d.screen.color[0].surface.(*Texture)
}

func (d *Device) Shape(kind gfx.ShapeKind) gfx.Drawable {
	return d.shapes[kind]
}

func (d *Device) Viewport() gfx.Viewport { return d.viewport }

func (d *Device) SetViewport(v gfx.Viewport) {
	d.viewport = v
	d.emit(OpViewport, fmt.Sprintf("%d,%d %dx%d", v.X, v.Y, v.Width, v.Height))
}

func (d *Device) CullFace() bool { return d.cull }

func (d *Device) SetCullFace(enabled bool) {
	d.cull = enabled
	d.emit(OpCull, fmt.Sprint(enabled))
}

func (d *Device) Clear() {
	if d.target == nil {
		return
	}
	d.emit(OpClear, d.target.label)
	d.target.clear()
}

// Flush is a no-op: every call has already executed when it returns.
func (d *Device) Flush() error {
	d.emit(OpFlush, "")
	return nil
}

func (d *Device) texture2D(slot int) *Texture {
	t, _ := d.slots[slot].(*Texture)
	return t
}

func (d *Device) cube(slot int) *CubeMap {
	c, _ := d.slots[slot].(*CubeMap)
	return c
}
