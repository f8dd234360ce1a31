package core

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// MaxLights is the size of the shader-visible light array. It is a
// compatibility constant: the lighting and forward WGSL sources declare
// MAX_LIGHTS with the same value and the registry never hands out an index
// at or above it.
const MaxLights = 1000

// Uniform names of the light contract shared by the lighting and forward programs.
const (
	LightArrayUniform  = "uLightArray"
	LightAmountUniform = "uLightAmount"
)

type LightType uint32

const (
	LightTypePoint       LightType = 0
	LightTypeDirectional LightType = 1
	LightTypeSpot        LightType = 2
)

func (t LightType) String() string {
	switch t {
	case LightTypePoint:
		return "point"
	case LightTypeDirectional:
		return "directional"
	case LightTypeSpot:
		return "spot"
	}
	return fmt.Sprintf("LightType(%d)", uint32(t))
}

// AttenuationMode selects the distance falloff curve used by the shaders.
type AttenuationMode uint32

const (
	AttenuationNone AttenuationMode = iota
	AttenuationLinear
	AttenuationQuadratic
	AttenuationUE4
)

// LightSlot is the CPU mirror of one entry of uLightArray.
type LightSlot struct {
	Index       int
	Position    mgl32.Vec3
	Direction   mgl32.Vec3
	Color       mgl32.Vec3
	Intensity   float32
	Radius      float32
	Attenuation AttenuationMode
	Type        LightType
	Enabled     bool
}

// DefaultLightSlot returns the parameters a light starts with when none are given.
func DefaultLightSlot() LightSlot {
	return LightSlot{
		Index:       -1,
		Direction:   mgl32.Vec3{0, -1, 0},
		Color:       mgl32.Vec3{1, 1, 1},
		Intensity:   1,
		Radius:      10,
		Attenuation: AttenuationQuadratic,
		Type:        LightTypePoint,
		Enabled:     true,
	}
}

// ColorVec packs rgb + intensity the way the shaders read `.color`.
func (s LightSlot) ColorVec() mgl32.Vec4 {
	return s.Color.Vec4(s.Intensity)
}

// Param1 packs type, radius, on/off and attenuation into the shared `.param1` vector.
func (s LightSlot) Param1() mgl32.Vec4 {
	on := float32(0)
	if s.Enabled {
		on = 1
	}
	return mgl32.Vec4{float32(s.Type), s.Radius, on, float32(s.Attenuation)}
}

// LightUniformNames caches the uniform names of one light slot.
type LightUniformNames struct {
	Position  string
	Direction string
	Color     string
	Param1    string
}

// NewLightUniformNames builds the names for uLightArray[index].
func NewLightUniformNames(index int) LightUniformNames {
	handle := fmt.Sprintf("%s[%d].", LightArrayUniform, index)
	return LightUniformNames{
		Position:  handle + "position",
		Direction: handle + "direction",
		Color:     handle + "color",
		Param1:    handle + "param1",
	}
}
