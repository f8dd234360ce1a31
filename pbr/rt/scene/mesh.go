// Package scene holds renderable objects, the lights that go with them and
// the camera controller the viewer drives them with.
package scene

import (
	"github.com/gekko3d/lumen/pbr/rt/core"
	"github.com/gekko3d/lumen/pbr/rt/gfx"
	"github.com/gekko3d/lumen/pbr/rt/shaders"

	"github.com/go-gl/mathgl/mgl32"
)

// Material is the PBR surface description written to uAlbedo and uMaterial.
type Material struct {
	Albedo    mgl32.Vec4
	Metallic  float32
	Roughness float32
	AO        float32
}

func DefaultMaterial() Material {
	return Material{Albedo: mgl32.Vec4{1, 1, 1, 1}, Roughness: 0.5, AO: 1}
}

func (m Material) vec() mgl32.Vec4 {
	return mgl32.Vec4{m.Metallic, m.Roughness, m.AO, 0}
}

// Mesh draws one of the device shapes with a material. It is a
// core.RenderComponent and, through Bounds, can be frustum culled.
type Mesh struct {
	Shape    gfx.Drawable
	Material Material
	Surface  core.ReflectRefract
	Extent   core.AABB
}

// NewCube returns a mesh of the device's unit cube, which spans -1..1.
func NewCube(dev gfx.Device, mat Material) *Mesh {
	return &Mesh{
		Shape:    dev.Shape(gfx.ShapeCube),
		Material: mat,
		Extent:   core.AABB{Min: mgl32.Vec3{-1, -1, -1}, Max: mgl32.Vec3{1, 1, 1}},
	}
}

func (m *Mesh) Draw(p gfx.Program) {
	p.SetVec4(shaders.UniformAlbedo, m.Material.Albedo)
	p.SetVec4(shaders.UniformMaterial, m.Material.vec())
	m.Shape.Draw()
}

func (m *Mesh) ReflectRefract() core.ReflectRefract { return m.Surface }

func (m *Mesh) Bounds() core.AABB { return m.Extent }
