package gfx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseArrayUniform(t *testing.T) {
	tests := []struct {
		in    string
		array string
		index int
		field string
		ok    bool
	}{
		{"uLightArray[0].position", "uLightArray", 0, "position", true},
		{"uLightArray[999].param1", "uLightArray", 999, "param1", true},
		{"uLightAmount", "", 0, "", false},
		{"uLightArray[x].color", "", 0, "", false},
		{"uLightArray[-1].color", "", 0, "", false},
		{"uLightArray[3]", "", 0, "", false},
		{"uLightArray[3].", "", 0, "", false},
		{"[3].color", "", 0, "", false},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			array, index, field, ok := ParseArrayUniform(tc.in)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.array, array)
			assert.Equal(t, tc.index, index)
			assert.Equal(t, tc.field, field)
		})
	}
}

func TestMipChain(t *testing.T) {
	assert.Equal(t, 11, MipLevelCount(1024))
	assert.Equal(t, 1, MipLevelCount(1))
	assert.Equal(t, 0, MipLevelCount(0))
	assert.Equal(t, 512, MipSize(1024, 1))
	assert.Equal(t, 1, MipSize(4, 5))
}

type stateDevice struct {
	Device
	vp   Viewport
	cull bool
}

func (d *stateDevice) Viewport() Viewport       { return d.vp }
func (d *stateDevice) SetViewport(v Viewport)   { d.vp = v }
func (d *stateDevice) CullFace() bool           { return d.cull }
func (d *stateDevice) SetCullFace(enabled bool) { d.cull = enabled }

func TestScopedStateRestoresOnEveryPath(t *testing.T) {
	d := &stateDevice{vp: Viewport{Width: 800, Height: 600}, cull: true}

	fails := func() (err error) {
		defer WithoutCulling(d)()
		d.SetViewport(Viewport{Width: 16, Height: 16})
		assert.False(t, d.CullFace())
		return assert.AnError
	}
	assert.Error(t, fails())
	assert.Equal(t, Viewport{Width: 800, Height: 600}, d.vp)
	assert.True(t, d.cull)

	func() {
		defer func() { _ = recover() }()
		defer SaveState(d)()
		d.SetCullFace(false)
		panic("boom")
	}()
	assert.True(t, d.cull)
}

func TestCubeFaceString(t *testing.T) {
	names := []string{"+X", "-X", "+Y", "-Y", "+Z", "-Z"}
	for i := 0; i < CubeFaceCount; i++ {
		assert.True(t, CubeFace(i).Valid())
		assert.Equal(t, names[i], CubeFace(i).String())
	}
	assert.False(t, CubeFace(6).Valid())
}
