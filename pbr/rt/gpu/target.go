package gpu

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gekko3d/lumen/pbr/rt/gfx"

	"github.com/cogentcore/webgpu/wgpu"
)

type attachment struct {
	name   string
	index  int
	view   *wgpu.TextureView
	format wgpu.TextureFormat
	width  int
	height int
	tex    gfx.Texture
}

// RenderTarget groups color attachments and an optional depth buffer into
// one render pass. The screen target renders into the surface texture.
type RenderTarget struct {
	dev    *Device
	label  string
	screen bool
	color  []attachment

	depth     *wgpu.Texture
	depthView *wgpu.TextureView
	depthW    int
	depthH    int
	clear     bool
	released  bool
}

func (t *RenderTarget) Label() string { return t.label }

func (t *RenderTarget) Bind() {
	d := t.dev
	if d.target != nil && d.target != t {
		d.settle(d.target)
	}
	d.target = t
}

func (t *RenderTarget) Unbind() {
	d := t.dev
	d.settle(t)
	if d.target == t {
		d.target = nil
	}
}

func (t *RenderTarget) size() (int, int) {
	if t.screen {
		return int(t.dev.config.Width), int(t.dev.config.Height)
	}
	if len(t.color) > 0 {
		return t.color[0].width, t.color[0].height
	}
	return t.depthW, t.depthH
}

// signature identifies the attachment formats a pipeline must be built for.
func (t *RenderTarget) signature() (formats []wgpu.TextureFormat, depth bool, key string) {
	if t.screen {
		formats = []wgpu.TextureFormat{t.dev.config.Format}
	} else {
		for _, a := range t.color {
			formats = append(formats, a.format)
		}
	}
	var sb strings.Builder
	for _, f := range formats {
		fmt.Fprintf(&sb, "%d,", f)
	}
	depth = t.depthView != nil
	fmt.Fprintf(&sb, "d=%t", depth)
	return formats, depth, sb.String()
}

func (t *RenderTarget) passDescriptor() (*wgpu.RenderPassDescriptor, error) {
	load := wgpu.LoadOpLoad
	if t.clear {
		load = wgpu.LoadOpClear
	}
	desc := &wgpu.RenderPassDescriptor{Label: t.label}
	if t.screen {
		view, err := t.dev.acquireFrame()
		if err != nil {
			return nil, err
		}
		desc.ColorAttachments = []wgpu.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     load,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{R: 0, G: 0, B: 0, A: 1},
		}}
		return desc, nil
	}
	if len(t.color) == 0 && t.depthView == nil {
		return nil, fmt.Errorf("target %s has no attachments", t.label)
	}
	for _, a := range t.color {
		desc.ColorAttachments = append(desc.ColorAttachments, wgpu.RenderPassColorAttachment{
			View:       a.view,
			LoadOp:     load,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{R: 0, G: 0, B: 0, A: 0},
		})
	}
	if t.depthView != nil {
		desc.DepthStencilAttachment = &wgpu.RenderPassDepthStencilAttachment{
			View:            t.depthView,
			DepthLoadOp:     load,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 1.0,
		}
	}
	return desc, nil
}

func (t *RenderTarget) attach(a attachment) {
	// The open pass, if any, was begun with the old attachments.
	t.dev.settle(t)
	for i := range t.color {
		if t.color[i].name == a.name || t.color[i].index == a.index {
			t.color[i] = a
			t.sortColor()
			return
		}
	}
	t.color = append(t.color, a)
	t.sortColor()
}

func (t *RenderTarget) sortColor() {
	sort.Slice(t.color, func(i, j int) bool { return t.color[i].index < t.color[j].index })
}

func (t *RenderTarget) AttachColor(name string, tex gfx.Texture, index int) error {
	gt, ok := tex.(*Texture)
	if !ok {
		return fmt.Errorf("attach %s to %s: %T is not a gpu texture: %w", name, t.label, tex, gfx.ErrUnsupported)
	}
	if t.screen {
		return fmt.Errorf("attach %s to the screen: %w", name, gfx.ErrUnsupported)
	}
	t.attach(attachment{
		name: name, index: index,
		view: gt.view, format: gt.native,
		width: gt.width, height: gt.height,
		tex: gt,
	})
	return nil
}

// AttachCubeFace renders into one face of cube at level mip.
func (t *RenderTarget) AttachCubeFace(name string, cube gfx.CubeMap, face gfx.CubeFace, mip int) error {
	c, ok := cube.(*CubeMap)
	if !ok {
		return fmt.Errorf("attach %s to %s: %T is not a gpu cube map: %w", name, t.label, cube, gfx.ErrUnsupported)
	}
	if !face.Valid() || mip < 0 || mip >= c.mips {
		return fmt.Errorf("attach %s face %s mip %d of %s: out of range", name, face, mip, c.label)
	}
	view, err := c.faceView(face, mip)
	if err != nil {
		return fmt.Errorf("attach %s to %s: %w", name, t.label, err)
	}
	size := gfx.MipSize(c.size, mip)
	t.attach(attachment{
		name: name, index: 0,
		view: view, format: c.native,
		width: size, height: size,
		tex: c,
	})
	return nil
}

func (t *RenderTarget) AttachDepth(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("depth %dx%d for %s: %w", width, height, t.label, gfx.ErrUnsupported)
	}
	t.dev.settle(t)
	t.releaseDepth()
	tex, err := t.dev.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         t.label + " depth",
		Size:          wgpu.Extent3D{Width: uint32(width), Height: uint32(height), DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatDepth32Float,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		return fmt.Errorf("depth for %s: %w", t.label, err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return fmt.Errorf("depth view for %s: %w", t.label, err)
	}
	t.depth, t.depthView = tex, view
	t.depthW, t.depthH = width, height
	return nil
}

func (t *RenderTarget) Attachment(name string) (gfx.Texture, bool) {
	for _, a := range t.color {
		if a.name == name {
			return a.tex, true
		}
	}
	return nil, false
}

func (t *RenderTarget) releaseDepth() {
	tex, view := t.depth, t.depthView
	if tex == nil {
		return
	}
	t.depth, t.depthView = nil, nil
	t.dev.releaseAfterFlush(func() {
		view.Release()
		tex.Release()
	})
}

// Release frees the depth buffer. Color attachments are owned by their creators.
func (t *RenderTarget) Release() {
	if t.released || t.screen {
		return
	}
	t.released = true
	if t.dev.target == t {
		t.Unbind()
	}
	t.releaseDepth()
	t.color = nil
}
