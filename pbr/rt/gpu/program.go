package gpu

import (
	"fmt"
	"strings"

	"github.com/gekko3d/lumen/pbr/rt/gfx"
	"github.com/gekko3d/lumen/pbr/rt/gpu/layout"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

const initialRingSlots = 64

// Program is a WGSL module with its uniform block and light array.
//
// Group 0 holds the uniform block at binding 0, read through a dynamic offset
// into a ring of per-draw snapshots, and the storage array at binding 1.
// Group 1 holds texture slot s at binding 2s and its sampler at 2s+1.
// Render pipelines are built per target layout and cull state on first use.
type Program struct {
	dev    *Device
	desc   gfx.ProgramDesc
	module *wgpu.ShaderModule

	block *layout.UniformBlock
	array *layout.ArrayBlock

	uniformLayout  *wgpu.BindGroupLayout
	textureLayout  *wgpu.BindGroupLayout
	pipelineLayout *wgpu.PipelineLayout
	pipelines      map[string]*wgpu.RenderPipeline

	ring      *wgpu.Buffer
	ringSlots int
	ringBlock int
	stride    int
	cursor    int
	storage   *wgpu.Buffer
	uniforms  *wgpu.BindGroup

	groups    map[string]*wgpu.BindGroup
	groupsGen uint64
}

func newProgram(d *Device, desc gfx.ProgramDesc) (*Program, error) {
	if len(desc.Arrays) > 1 {
		return nil, fmt.Errorf("program %s: %d arrays: %w", desc.Key, len(desc.Arrays), gfx.ErrUnsupported)
	}
	p := &Program{
		dev:       d,
		desc:      desc,
		block:     layout.NewUniformBlock(desc.Uniforms),
		pipelines: make(map[string]*wgpu.RenderPipeline),
		groups:    make(map[string]*wgpu.BindGroup),
	}
	if len(desc.Arrays) == 1 {
		p.array = layout.NewArrayBlock(desc.Arrays[0])
	}

	var err error
	p.module, err = d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          desc.Key,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: desc.Source},
	})
	if err != nil {
		return nil, fmt.Errorf("program %s: shader module: %w", desc.Key, err)
	}
	if err := p.createLayouts(); err != nil {
		p.release()
		return nil, fmt.Errorf("program %s: %w", desc.Key, err)
	}
	return p, nil
}

func (p *Program) createLayouts() error {
	d := p.dev.device
	entries := []wgpu.BindGroupLayoutEntry{{
		Binding:    0,
		Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
		Buffer: wgpu.BufferBindingLayout{
			Type:             wgpu.BufferBindingTypeUniform,
			HasDynamicOffset: true,
			MinBindingSize:   uint64(p.block.Size()),
		},
	}}
	if p.array != nil {
		entries = append(entries, wgpu.BindGroupLayoutEntry{
			Binding:    1,
			Visibility: wgpu.ShaderStageFragment,
			Buffer: wgpu.BufferBindingLayout{
				Type:           wgpu.BufferBindingTypeReadOnlyStorage,
				MinBindingSize: uint64(p.array.Size()),
			},
		})
	}
	var err error
	p.uniformLayout, err = d.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   p.desc.Key + " uniforms",
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("uniform layout: %w", err)
	}
	layouts := []*wgpu.BindGroupLayout{p.uniformLayout}

	if len(p.desc.Textures) > 0 {
		var tex []wgpu.BindGroupLayoutEntry
		for _, b := range p.desc.Textures {
			dim := wgpu.TextureViewDimension2D
			if b.Cube {
				dim = wgpu.TextureViewDimensionCube
			}
			tex = append(tex,
				wgpu.BindGroupLayoutEntry{
					Binding:    uint32(2 * b.Slot),
					Visibility: wgpu.ShaderStageFragment,
					Texture: wgpu.TextureBindingLayout{
						SampleType:    wgpu.TextureSampleTypeFloat,
						ViewDimension: dim,
					},
				},
				wgpu.BindGroupLayoutEntry{
					Binding:    uint32(2*b.Slot + 1),
					Visibility: wgpu.ShaderStageFragment,
					Sampler:    wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeFiltering},
				},
			)
		}
		p.textureLayout, err = d.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
			Label:   p.desc.Key + " textures",
			Entries: tex,
		})
		if err != nil {
			return fmt.Errorf("texture layout: %w", err)
		}
		layouts = append(layouts, p.textureLayout)
	}

	p.pipelineLayout, err = d.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            p.desc.Key,
		BindGroupLayouts: layouts,
	})
	if err != nil {
		return fmt.Errorf("pipeline layout: %w", err)
	}
	return nil
}

func (p *Program) Key() string { return p.desc.Key }

func (p *Program) Bind() { p.dev.program = p }

func (p *Program) Unbind() {
	if p.dev.program == p {
		p.dev.program = nil
	}
}

// DeclareUniform appends name to the uniform block. Names the WGSL struct
// does not have are uploaded but never read.
func (p *Program) DeclareUniform(name string, kind gfx.UniformKind) {
	if strings.Contains(name, "[") {
		return
	}
	p.block.Declare(name, kind)
}

func (p *Program) set(name string, v any) {
	if p.block.Set(name, v) {
		return
	}
	if p.array != nil {
		p.array.Set(name, v)
	}
}

func (p *Program) SetInt(name string, v int32)       { p.set(name, v) }
func (p *Program) SetFloat(name string, v float32)   { p.set(name, v) }
func (p *Program) SetVec3(name string, v mgl32.Vec3) { p.set(name, v) }
func (p *Program) SetVec4(name string, v mgl32.Vec4) { p.set(name, v) }
func (p *Program) SetMat4(name string, v mgl32.Mat4) { p.set(name, v) }

func (p *Program) pipeline(t *RenderTarget, cull bool) (*wgpu.RenderPipeline, error) {
	formats, depth, key := t.signature()
	key = fmt.Sprintf("%s|cull=%t", key, cull)
	if pl, ok := p.pipelines[key]; ok {
		return pl, nil
	}

	targets := make([]wgpu.ColorTargetState, len(formats))
	for i, f := range formats {
		targets[i] = wgpu.ColorTargetState{Format: f, WriteMask: wgpu.ColorWriteMaskAll}
	}
	var ds *wgpu.DepthStencilState
	if depth {
		ds = &wgpu.DepthStencilState{
			Format:            wgpu.TextureFormatDepth32Float,
			DepthWriteEnabled: p.desc.Depth,
			DepthCompare:      wgpu.CompareFunctionAlways,
			StencilFront:      wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
			StencilBack:       wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
		}
		if p.desc.Depth {
			ds.DepthCompare = wgpu.CompareFunctionLessEqual
		}
	}
	cullMode := wgpu.CullModeNone
	if cull {
		cullMode = wgpu.CullModeBack
	}

	pl, err := p.dev.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  fmt.Sprintf("%s [%s]", p.desc.Key, key),
		Layout: p.pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     p.module,
			EntryPoint: "vs_main",
			Buffers:    []wgpu.VertexBufferLayout{vertexLayout},
		},
		Fragment: &wgpu.FragmentState{
			Module:     p.module,
			EntryPoint: "fs_main",
			Targets:    targets,
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  cullMode,
		},
		DepthStencil: ds,
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("program %s: pipeline for %s: %w", p.desc.Key, t.label, err)
	}
	p.pipelines[key] = pl
	return pl, nil
}

// ensureRing makes room for one more snapshot. A replaced ring stays alive
// until the draws already recorded against it are submitted.
func (p *Program) ensureRing() error {
	size := p.block.Size()
	if p.ring != nil && p.cursor < p.ringSlots && p.ringBlock == size {
		return nil
	}
	slots := p.ringSlots
	switch {
	case slots == 0:
		slots = initialRingSlots
	case p.cursor >= slots:
		slots *= 2
	}
	stride := layout.Align(size, layout.UniformAlign)
	ring, err := p.dev.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: p.desc.Key + " uniform ring",
		Size:  uint64(slots * stride),
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("program %s: uniform ring: %w", p.desc.Key, err)
	}
	if p.array != nil && p.storage == nil {
		p.storage, err = p.dev.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: p.desc.Key + " " + p.array.Name(),
			Size:  uint64(p.array.Size()),
			Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			ring.Release()
			return fmt.Errorf("program %s: storage buffer: %w", p.desc.Key, err)
		}
	}
	entries := []wgpu.BindGroupEntry{{Binding: 0, Buffer: ring, Offset: 0, Size: uint64(size)}}
	if p.storage != nil {
		entries = append(entries, wgpu.BindGroupEntry{Binding: 1, Buffer: p.storage, Offset: 0, Size: wgpu.WholeSize})
	}
	group, err := p.dev.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   p.desc.Key + " uniforms",
		Layout:  p.uniformLayout,
		Entries: entries,
	})
	if err != nil {
		ring.Release()
		return fmt.Errorf("program %s: uniform bind group: %w", p.desc.Key, err)
	}

	oldRing, oldGroup := p.ring, p.uniforms
	if oldRing != nil {
		p.dev.releaseAfterFlush(func() {
			oldGroup.Release()
			oldRing.Release()
		})
	}
	p.ring, p.uniforms = ring, group
	p.ringSlots, p.ringBlock, p.stride, p.cursor = slots, size, stride, 0
	return nil
}

// snapshot copies the current uniform values into the next ring slot and
// returns its dynamic offset. Pending light array changes are uploaded too.
func (p *Program) snapshot() (uint32, error) {
	if err := p.ensureRing(); err != nil {
		return 0, err
	}
	offset := p.cursor * p.stride
	p.dev.queue.WriteBuffer(p.ring, uint64(offset), p.block.Bytes())
	p.cursor++
	if p.array != nil {
		if off, data, ok := p.array.Dirty(); ok {
			p.dev.queue.WriteBuffer(p.storage, uint64(off), data)
		}
	}
	return uint32(offset), nil
}

// rewind makes the ring reusable once the frame has been submitted.
func (p *Program) rewind() { p.cursor = 0 }

// textureGroup builds, or reuses, the group 1 bind group for the textures
// currently bound to the program's slots. Empty slots read a placeholder.
func (p *Program) textureGroup(slots map[int]bindable) (*wgpu.BindGroup, error) {
	if p.textureLayout == nil {
		return nil, nil
	}
	if p.groupsGen != p.dev.generation {
		old := p.groups
		p.dev.releaseAfterFlush(func() {
			for _, g := range old {
				g.Release()
			}
		})
		p.groups = make(map[string]*wgpu.BindGroup)
		p.groupsGen = p.dev.generation
	}

	var key strings.Builder
	entries := make([]wgpu.BindGroupEntry, 0, 2*len(p.desc.Textures))
	for _, b := range p.desc.Textures {
		tex, ok := slots[b.Slot]
		if !ok || isCube(tex) != b.Cube {
			var err error
			if tex, err = p.dev.placeholderTexture(b.Cube); err != nil {
				return nil, err
			}
		}
		fmt.Fprintf(&key, "%d:%d,", b.Slot, tex.bindingID())
		entries = append(entries,
			wgpu.BindGroupEntry{Binding: uint32(2 * b.Slot), TextureView: tex.bindingView()},
			wgpu.BindGroupEntry{Binding: uint32(2*b.Slot + 1), Sampler: tex.bindingSampler()},
		)
	}
	if g, ok := p.groups[key.String()]; ok {
		return g, nil
	}
	g, err := p.dev.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   p.desc.Key + " textures",
		Layout:  p.textureLayout,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("program %s: texture bind group: %w", p.desc.Key, err)
	}
	p.groups[key.String()] = g
	return g, nil
}

func isCube(b bindable) bool {
	_, ok := b.(*CubeMap)
	return ok
}

func (p *Program) release() {
	for _, pl := range p.pipelines {
		pl.Release()
	}
	for _, g := range p.groups {
		g.Release()
	}
	if p.uniforms != nil {
		p.uniforms.Release()
	}
	if p.ring != nil {
		p.ring.Release()
	}
	if p.storage != nil {
		p.storage.Release()
	}
	if p.pipelineLayout != nil {
		p.pipelineLayout.Release()
	}
	if p.textureLayout != nil {
		p.textureLayout.Release()
	}
	if p.uniformLayout != nil {
		p.uniformLayout.Release()
	}
	if p.module != nil {
		p.module.Release()
	}
}
