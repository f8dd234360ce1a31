package gfx

import (
	"fmt"
	"strconv"
	"strings"
)

type UniformKind uint32

const (
	UniformInt UniformKind = iota
	UniformFloat
	UniformVec3
	UniformVec4
	UniformMat4
)

// Size returns the std140 footprint of the kind in bytes. Scalars and vec3
// occupy a full 16-byte slot so names can be laid out in declaration order.
func (k UniformKind) Size() int {
	if k == UniformMat4 {
		return 64
	}
	return 16
}

func (k UniformKind) String() string {
	switch k {
	case UniformInt:
		return "int"
	case UniformFloat:
		return "float"
	case UniformVec3:
		return "vec3"
	case UniformVec4:
		return "vec4"
	case UniformMat4:
		return "mat4"
	}
	return fmt.Sprintf("UniformKind(%d)", uint32(k))
}

// Uniform is one named value in a program's uniform block.
type Uniform struct {
	Name string
	Kind UniformKind
}

// UniformArray is an array of structs addressed as Name[i].field.
type UniformArray struct {
	Name   string
	Length int
	Fields []Uniform
}

// TextureBinding declares which sampler slots a program reads.
type TextureBinding struct {
	Slot int
	Cube bool
}

// ProgramDesc is everything a backend needs to build a program.
type ProgramDesc struct {
	Key      string
	Source   string
	Uniforms []Uniform
	Arrays   []UniformArray
	Textures []TextureBinding
	// Outputs lists the color formats the program writes, in attachment order.
	Outputs []Format
	Depth   bool
	Shape   ShapeKind
}

// ParseArrayUniform splits "name[i].field" into its parts.
func ParseArrayUniform(name string) (array string, index int, field string, ok bool) {
	open := strings.IndexByte(name, '[')
	if open <= 0 {
		return "", 0, "", false
	}
	closing := strings.IndexByte(name[open:], ']')
	if closing < 0 {
		return "", 0, "", false
	}
	closing += open
	idx, err := strconv.Atoi(name[open+1 : closing])
	if err != nil || idx < 0 {
		return "", 0, "", false
	}
	rest := name[closing+1:]
	if !strings.HasPrefix(rest, ".") || len(rest) < 2 {
		return "", 0, "", false
	}
	return name[:open], idx, rest[1:], true
}
