package core

import (
	"github.com/gekko3d/lumen/pbr/rt/gfx"

	"github.com/go-gl/mathgl/mgl32"
)

type ReflectRefractType uint32

const (
	ReflectRefractNone ReflectRefractType = iota
	ReflectRefractReflect
	ReflectRefractRefract
)

// ReflectRefract describes how a renderable samples the environment map.
// Anything other than None is drawn by the forward pass.
type ReflectRefract struct {
	Type         ReflectRefractType
	Strength     float32
	RefractRatio float32
}

// RenderComponent is the external draw-capable object a submission references.
// The renderer never inspects it beyond these methods.
type RenderComponent interface {
	// Draw issues the component's geometry with the given program bound.
	Draw(p gfx.Program)
	ReflectRefract() ReflectRefract
}

// Bounded is implemented by components that can be frustum culled.
type Bounded interface {
	Bounds() AABB
}

// Submission is one draw request buffered between BeginFrame and EndFrame.
type Submission struct {
	Component RenderComponent
	Position  mgl32.Vec3
	Scale     mgl32.Vec3
	Rotation  mgl32.Quat
}

// NewSubmission returns a submission with unit scale and identity rotation.
func NewSubmission(c RenderComponent, pos mgl32.Vec3) Submission {
	return Submission{
		Component: c,
		Position:  pos,
		Scale:     mgl32.Vec3{1, 1, 1},
		Rotation:  mgl32.QuatIdent(),
	}
}

// ModelMatrix composes translation * rotation * scale.
func (s Submission) ModelMatrix() mgl32.Mat4 {
	rot := s.Rotation
	if rot.W == 0 && rot.V.Len() == 0 {
		rot = mgl32.QuatIdent()
	}
	return mgl32.Translate3D(s.Position.X(), s.Position.Y(), s.Position.Z()).
		Mul4(rot.Mat4()).
		Mul4(mgl32.Scale3D(s.Scale.X(), s.Scale.Y(), s.Scale.Z()))
}

// Forward reports whether the submission belongs to the forward pass.
func (s Submission) Forward() bool {
	if s.Component == nil {
		return false
	}
	return s.Component.ReflectRefract().Type != ReflectRefractNone
}

// WorldBounds returns the component bounds moved into world space, or false
// when the component does not expose bounds.
func (s Submission) WorldBounds() (AABB, bool) {
	b, ok := s.Component.(Bounded)
	if !ok {
		return AABB{}, false
	}
	local := b.Bounds()
	if local.IsEmpty() {
		return local, false
	}
	m := s.ModelMatrix()
	out := EmptyAABB()
	for i := 0; i < 8; i++ {
		corner := mgl32.Vec3{local.Min.X(), local.Min.Y(), local.Min.Z()}
		if i&1 != 0 {
			corner[0] = local.Max.X()
		}
		if i&2 != 0 {
			corner[1] = local.Max.Y()
		}
		if i&4 != 0 {
			corner[2] = local.Max.Z()
		}
		out = out.Extend(m.Mul4x1(corner.Vec4(1)).Vec3())
	}
	return out, true
}
