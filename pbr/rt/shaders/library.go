package shaders

import (
	"fmt"

	"github.com/gekko3d/lumen/pbr/rt/gfx"
)

// Library owns the compiled programs of one device.
type Library struct {
	programs map[string]gfx.Program
}

// NewLibrary compiles every program in Descs on dev.
func NewLibrary(dev gfx.Device) (*Library, error) {
	l := &Library{programs: make(map[string]gfx.Program)}
	for _, desc := range Descs() {
		p, err := dev.NewProgram(desc)
		if err != nil {
			return nil, fmt.Errorf("build program %q: %w", desc.Key, err)
		}
		for _, u := range desc.Uniforms {
			p.DeclareUniform(u.Name, u.Kind)
		}
		l.programs[desc.Key] = p
	}
	return l, nil
}

// Program returns the program for key, or nil when none was built.
func (l *Library) Program(key string) gfx.Program {
	return l.programs[key]
}

// LightShaders returns the programs that consume the light contract, lighting first.
func (l *Library) LightShaders() []gfx.Program {
	return []gfx.Program{l.programs[LightingKey], l.programs[ForwardKey]}
}
