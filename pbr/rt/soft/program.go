package soft

import (
	"github.com/gekko3d/lumen/pbr/rt/gfx"

	"github.com/go-gl/mathgl/mgl32"
)

// Program stores uniform values by name and shades with the Go fragment
// function registered for its key.
type Program struct {
	dev    *Device
	desc   gfx.ProgramDesc
	shader fragmentShader

	kinds  map[string]gfx.UniformKind
	arrays map[string]gfx.UniformArray

	ints  map[string]int32
	flts  map[string]float32
	vec3s map[string]mgl32.Vec3
	vec4s map[string]mgl32.Vec4
	mat4s map[string]mgl32.Mat4
}

func newProgram(d *Device, desc gfx.ProgramDesc) *Program {
	p := &Program{
		dev:    d,
		desc:   desc,
		shader: fragmentShaders[desc.Key],
		kinds:  make(map[string]gfx.UniformKind),
		arrays: make(map[string]gfx.UniformArray),
		ints:   make(map[string]int32),
		flts:   make(map[string]float32),
		vec3s:  make(map[string]mgl32.Vec3),
		vec4s:  make(map[string]mgl32.Vec4),
		mat4s:  make(map[string]mgl32.Mat4),
	}
	for _, u := range desc.Uniforms {
		p.kinds[u.Name] = u.Kind
	}
	for _, a := range desc.Arrays {
		p.arrays[a.Name] = a
	}
	return p
}

func (p *Program) Key() string { return p.desc.Key }

func (p *Program) Bind() {
	p.dev.program = p
	p.dev.emit(OpBindProgram, p.desc.Key)
}

func (p *Program) Unbind() {
	if p.dev.program == p {
		p.dev.program = nil
	}
	p.dev.emit(OpUnbindProg, p.desc.Key)
}

func (p *Program) DeclareUniform(name string, kind gfx.UniformKind) {
	p.kinds[name] = kind
}

// accepts reports whether name was declared with kind, either directly or as
// a field of a declared array.
func (p *Program) accepts(name string, kind gfx.UniformKind) bool {
	if k, ok := p.kinds[name]; ok {
		return k == kind
	}
	array, index, field, ok := gfx.ParseArrayUniform(name)
	if !ok {
		return false
	}
	a, ok := p.arrays[array]
	if !ok || index >= a.Length {
		return false
	}
	for _, f := range a.Fields {
		if f.Name == field {
			return f.Kind == kind
		}
	}
	return false
}

func (p *Program) SetInt(name string, v int32) {
	if p.accepts(name, gfx.UniformInt) {
		p.ints[name] = v
	}
}

func (p *Program) SetFloat(name string, v float32) {
	if p.accepts(name, gfx.UniformFloat) {
		p.flts[name] = v
	}
}

func (p *Program) SetVec3(name string, v mgl32.Vec3) {
	if p.accepts(name, gfx.UniformVec3) {
		p.vec3s[name] = v
	}
}

func (p *Program) SetVec4(name string, v mgl32.Vec4) {
	if p.accepts(name, gfx.UniformVec4) {
		p.vec4s[name] = v
	}
}

func (p *Program) SetMat4(name string, v mgl32.Mat4) {
	if p.accepts(name, gfx.UniformMat4) {
		p.mat4s[name] = v
	}
}

func (p *Program) Int(name string) int32       { return p.ints[name] }
func (p *Program) Float(name string) float32   { return p.flts[name] }
func (p *Program) Vec3(name string) mgl32.Vec3 { return p.vec3s[name] }
func (p *Program) Vec4(name string) mgl32.Vec4 { return p.vec4s[name] }

// Mat4 returns the matrix set for name, or identity when none was set.
func (p *Program) Mat4(name string) mgl32.Mat4 {
	if m, ok := p.mat4s[name]; ok {
		return m
	}
	return mgl32.Ident4()
}
