package gpu

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gekko3d/lumen/pbr/rt/gfx"
	"github.com/gekko3d/lumen/pbr/rt/gpu/layout"

	"github.com/cogentcore/webgpu/wgpu"
)

var vertexLayout = wgpu.VertexBufferLayout{
	ArrayStride: layout.VertexStride,
	StepMode:    wgpu.VertexStepModeVertex,
	Attributes: []wgpu.VertexAttribute{
		{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
		{Format: wgpu.VertexFormatFloat32x3, Offset: 12, ShaderLocation: 1},
		{Format: wgpu.VertexFormatFloat32x2, Offset: 24, ShaderLocation: 2},
	},
}

// shape is a static vertex buffer drawn with whatever program and target
// are bound.
type shape struct {
	dev    *Device
	kind   gfx.ShapeKind
	buffer *wgpu.Buffer
	count  uint32
}

func newShape(d *Device, kind gfx.ShapeKind) (*shape, error) {
	var verts []float32
	label := "Cube VB"
	switch kind {
	case gfx.ShapeCube:
		verts = layout.CubeVertices()
	case gfx.ShapeQuad:
		verts = layout.QuadVertices()
		label = "Quad VB"
	default:
		return nil, fmt.Errorf("shape %d: %w", kind, gfx.ErrUnsupported)
	}
	data := make([]byte, len(verts)*4)
	for i, v := range verts {
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(v))
	}
	buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  uint64(len(data)),
		Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", label, err)
	}
	d.queue.WriteBuffer(buf, 0, data)
	return &shape{dev: d, kind: kind, buffer: buf, count: uint32(len(verts) / 8)}, nil
}

func (s *shape) Draw() { s.dev.draw(s) }
