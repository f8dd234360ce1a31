package gpu

import (
	"fmt"

	"github.com/gekko3d/lumen/pbr/rt/gfx"
	"github.com/gekko3d/lumen/pbr/rt/gpu/layout"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/google/uuid"
)

// textureFormat maps a gfx format to its WebGPU storage format. RGBA32F is
// stored as half floats so it stays filterable on every adapter.
func textureFormat(f gfx.Format) (wgpu.TextureFormat, error) {
	switch f {
	case gfx.FormatRGBA8:
		return wgpu.TextureFormatRGBA8Unorm, nil
	case gfx.FormatRGBA16F, gfx.FormatRGBA32F:
		return wgpu.TextureFormatRGBA16Float, nil
	case gfx.FormatDepth32F:
		return wgpu.TextureFormatDepth32Float, nil
	}
	return wgpu.TextureFormatUndefined, fmt.Errorf("format %d: %w", f, gfx.ErrUnsupported)
}

func samplerDesc(label string, filter gfx.Filter, wrap gfx.Wrap, mips int) *wgpu.SamplerDescriptor {
	desc := &wgpu.SamplerDescriptor{
		Label:         label,
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		LodMinClamp:   0,
		LodMaxClamp:   float32(mips),
		MaxAnisotropy: 1,
	}
	if wrap == gfx.WrapRepeat {
		desc.AddressModeU = wgpu.AddressModeRepeat
		desc.AddressModeV = wgpu.AddressModeRepeat
		desc.AddressModeW = wgpu.AddressModeRepeat
	}
	switch filter {
	case gfx.FilterNearest:
		desc.MagFilter = wgpu.FilterModeNearest
		desc.MinFilter = wgpu.FilterModeNearest
	case gfx.FilterTrilinear:
		desc.MipmapFilter = wgpu.MipmapFilterModeLinear
	}
	return desc
}

func newLabel(label, kind string) string {
	if label != "" {
		return label
	}
	return kind + "-" + uuid.NewString()
}

// Texture is a 2D WebGPU texture with its default view and sampler.
type Texture struct {
	dev     *Device
	id      uint64
	label   string
	width   int
	height  int
	format  gfx.Format
	native  wgpu.TextureFormat
	tex     *wgpu.Texture
	view    *wgpu.TextureView
	sampler *wgpu.Sampler

	released bool
}

func newTexture(d *Device, desc gfx.TextureDesc) (*Texture, error) {
	label := newLabel(desc.Label, "texture")
	if desc.Width <= 0 || desc.Height <= 0 {
		return nil, fmt.Errorf("%s: size %dx%d: %w", label, desc.Width, desc.Height, gfx.ErrUnsupported)
	}
	native, err := textureFormat(desc.Format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", label, err)
	}
	t := &Texture{
		dev:    d,
		id:     d.id(),
		label:  label,
		width:  desc.Width,
		height: desc.Height,
		format: desc.Format,
		native: native,
	}
	size := wgpu.Extent3D{Width: uint32(desc.Width), Height: uint32(desc.Height), DepthOrArrayLayers: 1}
	t.tex, err = d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         label,
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        native,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: create texture: %w", label, err)
	}
	t.view, err = t.tex.CreateView(nil)
	if err != nil {
		t.Release()
		return nil, fmt.Errorf("%s: create view: %w", label, err)
	}
	t.sampler, err = d.device.CreateSampler(samplerDesc(label, desc.Filter, desc.Wrap, 1))
	if err != nil {
		t.Release()
		return nil, fmt.Errorf("%s: create sampler: %w", label, err)
	}
	if desc.Pixels != nil {
		if err := t.upload(desc.Pixels); err != nil {
			t.Release()
			return nil, err
		}
	}
	return t, nil
}

func (t *Texture) upload(pixels []float32) error {
	if len(pixels) != t.width*t.height*4 {
		return fmt.Errorf("%s: got %d floats for %dx%d", t.label, len(pixels), t.width, t.height)
	}
	data, err := layout.PackTexels(t.format, pixels)
	if err != nil {
		return fmt.Errorf("%s: %w", t.label, err)
	}
	bpt := layout.BytesPerTexel(t.format)
	t.dev.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Aspect:   wgpu.TextureAspectAll,
			Texture:  t.tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{X: 0, Y: 0, Z: 0},
		},
		data,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  uint32(t.width * bpt),
			RowsPerImage: uint32(t.height),
		},
		&wgpu.Extent3D{Width: uint32(t.width), Height: uint32(t.height), DepthOrArrayLayers: 1},
	)
	return nil
}

func (t *Texture) Label() string      { return t.label }
func (t *Texture) Width() int         { return t.width }
func (t *Texture) Height() int        { return t.height }
func (t *Texture) Format() gfx.Format { return t.format }

func (t *Texture) BindToSlot(slot int) { t.dev.slots[slot] = t }

func (t *Texture) bindingID() uint64              { return t.id }
func (t *Texture) bindingView() *wgpu.TextureView { return t.view }
func (t *Texture) bindingSampler() *wgpu.Sampler  { return t.sampler }

// Release frees the texture once work already recorded against it is submitted.
func (t *Texture) Release() {
	if t.released {
		return
	}
	t.released = true
	for slot, b := range t.dev.slots {
		if b == bindable(t) {
			delete(t.dev.slots, slot)
		}
	}
	t.dev.invalidateBindings()
	view, sampler, tex := t.view, t.sampler, t.tex
	t.dev.releaseAfterFlush(func() {
		if sampler != nil {
			sampler.Release()
		}
		if view != nil {
			view.Release()
		}
		if tex != nil {
			tex.Release()
		}
	})
}
