// Package gfx declares the GPU-facing collaborators the renderer core drives:
// devices, shader programs, render targets, textures and cube maps.
//
// The core only ever talks to these interfaces. Two implementations exist:
// pbr/rt/gpu (WebGPU) and pbr/rt/soft (a CPU reference used for headless
// baking and tests). Every call is issued from one logical thread in program
// order; implementations may execute the work asynchronously behind that
// stream but must preserve its order.
package gfx

import (
	"errors"

	"github.com/go-gl/mathgl/mgl32"
)

// ErrUnsupported is returned by a backend for a descriptor it cannot realise.
var ErrUnsupported = errors.New("gfx: unsupported")

type Format uint32

const (
	FormatRGBA8 Format = iota
	FormatRGBA16F
	FormatRGBA32F
	FormatDepth32F
)

func (f Format) IsDepth() bool { return f == FormatDepth32F }

type Filter uint32

const (
	FilterLinear Filter = iota
	FilterNearest
	// FilterTrilinear samples linearly between mip levels.
	FilterTrilinear
)

type Wrap uint32

const (
	WrapClamp Wrap = iota
	WrapRepeat
)

// TextureDesc describes a 2D texture. Pixels, when set, holds Width*Height
// RGBA float32 texels in row-major order starting at the top row.
type TextureDesc struct {
	Label  string
	Width  int
	Height int
	Format Format
	Filter Filter
	Wrap   Wrap
	Pixels []float32
}

type CubeMapDesc struct {
	Label   string
	Size    int
	Format  Format
	Filter  Filter
	Mipmaps bool
}

// Viewport is in pixels of the currently bound target.
type Viewport struct {
	X, Y, Width, Height int
}

type ShapeKind uint32

const (
	// ShapeCube is a unit cube centered on the origin, used for capture and sky draws.
	ShapeCube ShapeKind = iota
	// ShapeQuad is a fullscreen quad in clip space.
	ShapeQuad
)

// Texture is a sampled image.
type Texture interface {
	Label() string
	Width() int
	Height() int
	Format() Format
	// BindToSlot makes the texture visible to the bound program at sampler slot.
	BindToSlot(slot int)
	Release()
}

// CubeMap is a six-face texture with a mip chain.
type CubeMap interface {
	Texture
	MipLevels() int
	// ComputeMipmap regenerates every level below 0 from level 0.
	ComputeMipmap() error
}

// RenderTarget is a set of named attachments rendered into together.
type RenderTarget interface {
	Label() string
	Bind()
	Unbind()
	AttachColor(name string, tex Texture, index int) error
	AttachCubeFace(name string, cube CubeMap, face CubeFace, mip int) error
	AttachDepth(width, height int) error
	Attachment(name string) (Texture, bool)
	Release()
}

// Program is a shader program addressed by stable uniform names.
// Setters do not require the program to be bound; values are visible to
// the next draw that uses the program. Unknown names are ignored.
type Program interface {
	Key() string
	Bind()
	Unbind()
	DeclareUniform(name string, kind UniformKind)
	SetInt(name string, v int32)
	SetFloat(name string, v float32)
	SetVec3(name string, v mgl32.Vec3)
	SetVec4(name string, v mgl32.Vec4)
	SetMat4(name string, v mgl32.Mat4)
}

// Drawable issues geometry with whatever program and target are bound.
type Drawable interface {
	Draw()
}

// Device creates resources and owns the pipeline state the passes toggle.
type Device interface {
	NewTexture(desc TextureDesc) (Texture, error)
	NewCubeMap(desc CubeMapDesc) (CubeMap, error)
	NewRenderTarget(label string) (RenderTarget, error)
	NewProgram(desc ProgramDesc) (Program, error)
	// Screen is the window-backed target the final image is presented to.
	Screen() RenderTarget
	Shape(kind ShapeKind) Drawable

	Viewport() Viewport
	SetViewport(v Viewport)
	CullFace() bool
	SetCullFace(enabled bool)
	// Clear clears color and depth of the bound target.
	Clear()
	// Flush hands everything issued so far to the GPU queue.
	Flush() error
}
