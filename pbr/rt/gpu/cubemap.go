package gpu

import (
	"fmt"

	"github.com/gekko3d/lumen/pbr/rt/gfx"

	"github.com/cogentcore/webgpu/wgpu"
)

// CubeMap is a six-layer texture sampled through a cube view. Single face
// and single level views are created on demand for capture and mipmapping.
type CubeMap struct {
	dev     *Device
	id      uint64
	label   string
	size    int
	mips    int
	format  gfx.Format
	native  wgpu.TextureFormat
	tex     *wgpu.Texture
	view    *wgpu.TextureView
	sampler *wgpu.Sampler
	faces   map[[2]int]*wgpu.TextureView

	released bool
}

func newCubeMap(d *Device, desc gfx.CubeMapDesc) (*CubeMap, error) {
	label := newLabel(desc.Label, "cubemap")
	if desc.Size <= 0 {
		return nil, fmt.Errorf("%s: size %d: %w", label, desc.Size, gfx.ErrUnsupported)
	}
	native, err := textureFormat(desc.Format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", label, err)
	}
	mips := 1
	if desc.Mipmaps {
		mips = gfx.MipLevelCount(desc.Size)
	}
	c := &CubeMap{
		dev:    d,
		id:     d.id(),
		label:  label,
		size:   desc.Size,
		mips:   mips,
		format: desc.Format,
		native: native,
		faces:  make(map[[2]int]*wgpu.TextureView),
	}
	c.tex, err = d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         label,
		Size:          wgpu.Extent3D{Width: uint32(desc.Size), Height: uint32(desc.Size), DepthOrArrayLayers: gfx.CubeFaceCount},
		MipLevelCount: uint32(mips),
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        native,
		Usage: wgpu.TextureUsageTextureBinding | wgpu.TextureUsageRenderAttachment |
			wgpu.TextureUsageStorageBinding | wgpu.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: create texture: %w", label, err)
	}
	c.view, err = c.tex.CreateView(&wgpu.TextureViewDescriptor{
		Label:           label + " cube",
		Format:          native,
		Dimension:       wgpu.TextureViewDimensionCube,
		BaseMipLevel:    0,
		MipLevelCount:   uint32(mips),
		BaseArrayLayer:  0,
		ArrayLayerCount: gfx.CubeFaceCount,
	})
	if err != nil {
		c.Release()
		return nil, fmt.Errorf("%s: create cube view: %w", label, err)
	}
	c.sampler, err = d.device.CreateSampler(samplerDesc(label, desc.Filter, gfx.WrapClamp, mips))
	if err != nil {
		c.Release()
		return nil, fmt.Errorf("%s: create sampler: %w", label, err)
	}
	return c, nil
}

// faceView returns a 2D view of one face at one level.
func (c *CubeMap) faceView(face gfx.CubeFace, mip int) (*wgpu.TextureView, error) {
	key := [2]int{int(face), mip}
	if v, ok := c.faces[key]; ok {
		return v, nil
	}
	v, err := c.tex.CreateView(&wgpu.TextureViewDescriptor{
		Label:           fmt.Sprintf("%s %s mip %d", c.label, face, mip),
		Format:          c.native,
		Dimension:       wgpu.TextureViewDimension2D,
		BaseMipLevel:    uint32(mip),
		MipLevelCount:   1,
		BaseArrayLayer:  uint32(face),
		ArrayLayerCount: 1,
	})
	if err != nil {
		return nil, err
	}
	c.faces[key] = v
	return v, nil
}

// levelView returns all six faces of one level as a 2D array.
func (c *CubeMap) levelView(mip int) (*wgpu.TextureView, error) {
	return c.tex.CreateView(&wgpu.TextureViewDescriptor{
		Label:           fmt.Sprintf("%s mip %d", c.label, mip),
		Format:          c.native,
		Dimension:       wgpu.TextureViewDimension2DArray,
		BaseMipLevel:    uint32(mip),
		MipLevelCount:   1,
		BaseArrayLayer:  0,
		ArrayLayerCount: gfx.CubeFaceCount,
	})
}

func (c *CubeMap) Label() string      { return c.label }
func (c *CubeMap) Width() int         { return c.size }
func (c *CubeMap) Height() int        { return c.size }
func (c *CubeMap) Format() gfx.Format { return c.format }
func (c *CubeMap) MipLevels() int     { return c.mips }

func (c *CubeMap) BindToSlot(slot int) { c.dev.slots[slot] = c }

func (c *CubeMap) bindingID() uint64              { return c.id }
func (c *CubeMap) bindingView() *wgpu.TextureView { return c.view }
func (c *CubeMap) bindingSampler() *wgpu.Sampler  { return c.sampler }

// ComputeMipmap records a compute pass that rebuilds levels 1..n from level 0.
func (c *CubeMap) ComputeMipmap() error {
	if c.released {
		return fmt.Errorf("%s: compute mipmap on released cube map", c.label)
	}
	if c.mips < 2 {
		return nil
	}
	if c.native != wgpu.TextureFormatRGBA16Float {
		return fmt.Errorf("%s: mipmap of %v: %w", c.label, c.native, gfx.ErrUnsupported)
	}
	if c.dev.mipmaps == nil {
		m, err := newMipmapper(c.dev)
		if err != nil {
			return err
		}
		c.dev.mipmaps = m
	}
	return c.dev.mipmaps.generate(c)
}

func (c *CubeMap) Release() {
	if c.released {
		return
	}
	c.released = true
	for slot, b := range c.dev.slots {
		if b == bindable(c) {
			delete(c.dev.slots, slot)
		}
	}
	c.dev.invalidateBindings()
	faces, view, sampler, tex := c.faces, c.view, c.sampler, c.tex
	c.faces = nil
	c.dev.releaseAfterFlush(func() {
		for _, v := range faces {
			v.Release()
		}
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
