package core

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestLightSlotPacking(t *testing.T) {
	s := DefaultLightSlot()
	s.Type = LightTypeSpot
	s.Radius = 25
	s.Attenuation = AttenuationUE4
	s.Color = mgl32.Vec3{0.5, 0.25, 1}
	s.Intensity = 3

	assert.Equal(t, mgl32.Vec4{2, 25, 1, 3}, s.Param1())
	assert.Equal(t, mgl32.Vec4{0.5, 0.25, 1, 3}, s.ColorVec())

	s.Enabled = false
	assert.Equal(t, float32(0), s.Param1().Z())
}

func TestLightUniformNames(t *testing.T) {
	n := NewLightUniformNames(42)
	assert.Equal(t, "uLightArray[42].position", n.Position)
	assert.Equal(t, "uLightArray[42].direction", n.Direction)
	assert.Equal(t, "uLightArray[42].color", n.Color)
	assert.Equal(t, "uLightArray[42].param1", n.Param1)
}

func TestLightTypeString(t *testing.T) {
	assert.Equal(t, "point", LightTypePoint.String())
	assert.Equal(t, "directional", LightTypeDirectional.String())
	assert.Equal(t, "spot", LightTypeSpot.String())
	assert.Equal(t, "LightType(7)", LightType(7).String())
}
