package gpu

import (
	"fmt"

	"github.com/gekko3d/lumen/pbr/rt/gfx"
	"github.com/gekko3d/lumen/pbr/rt/shaders"

	"github.com/cogentcore/webgpu/wgpu"
)

// mipmapper downsamples cube maps level by level with a compute shader,
// all six faces per dispatch.
type mipmapper struct {
	dev      *Device
	bgl      *wgpu.BindGroupLayout
	pipeline *wgpu.ComputePipeline
}

func newMipmapper(d *Device) (*mipmapper, error) {
	module, err := d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "Cube Mipmap CS",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.MipmapWGSL},
	})
	if err != nil {
		return nil, fmt.Errorf("mipmap shader: %w", err)
	}
	defer module.Release()

	bgl, err := d.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "Cube Mipmap BGL",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageCompute,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeUnfilterableFloat,
					ViewDimension: wgpu.TextureViewDimension2DArray,
				},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageCompute,
				StorageTexture: wgpu.StorageTextureBindingLayout{
					Access:        wgpu.StorageTextureAccessWriteOnly,
					Format:        wgpu.TextureFormatRGBA16Float,
					ViewDimension: wgpu.TextureViewDimension2DArray,
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("mipmap bind group layout: %w", err)
	}
	layout, err := d.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "Cube Mipmap Layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{bgl},
	})
	if err != nil {
		bgl.Release()
		return nil, fmt.Errorf("mipmap pipeline layout: %w", err)
	}
	defer layout.Release()

	pipeline, err := d.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  "Cube Mipmap Pipeline",
		Layout: layout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     module,
			EntryPoint: "cs_main",
		},
	})
	if err != nil {
		bgl.Release()
		return nil, fmt.Errorf("mipmap pipeline: %w", err)
	}
	return &mipmapper{dev: d, bgl: bgl, pipeline: pipeline}, nil
}

func (m *mipmapper) generate(c *CubeMap) error {
	d := m.dev
	d.endPass()
	enc, err := d.commandEncoder()
	if err != nil {
		return err
	}

	views := make([]*wgpu.TextureView, c.mips)
	var groups []*wgpu.BindGroup
	defer d.releaseAfterFlush(func() {
		for _, g := range groups {
			g.Release()
		}
		for _, v := range views {
			if v != nil {
				v.Release()
			}
		}
	})
	for i := range views {
		if views[i], err = c.levelView(i); err != nil {
			return fmt.Errorf("%s: mip %d view: %w", c.label, i, err)
		}
	}

	pass := enc.BeginComputePass(&wgpu.ComputePassDescriptor{Label: c.label + " mipmap"})
	pass.SetPipeline(m.pipeline)
	for level := 1; level < c.mips; level++ {
		bg, err := d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:  fmt.Sprintf("%s mip %d", c.label, level),
			Layout: m.bgl,
			Entries: []wgpu.BindGroupEntry{
				{Binding: 0, TextureView: views[level-1]},
				{Binding: 1, TextureView: views[level]},
			},
		})
		if err != nil {
			_ = pass.End()
			pass.Release()
			return fmt.Errorf("%s: mip %d bind group: %w", c.label, level, err)
		}
		groups = append(groups, bg)
		size := uint32(gfx.MipSize(c.size, level))
		pass.SetBindGroup(0, bg, nil)
		pass.DispatchWorkgroups((size+7)/8, (size+7)/8, gfx.CubeFaceCount)
	}
	err = pass.End()
	pass.Release()
	if err != nil {
		return fmt.Errorf("%s: mipmap pass: %w", c.label, err)
	}
	return nil
}

func (m *mipmapper) release() {
	m.pipeline.Release()
	m.bgl.Release()
}
