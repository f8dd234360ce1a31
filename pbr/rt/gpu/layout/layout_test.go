package layout

import (
	"encoding/binary"
	"testing"

	"github.com/gekko3d/lumen/pbr/rt/gfx"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// forwardUniforms mirrors the forward program's uniform struct.
var forwardUniforms = []gfx.Uniform{
	{Name: "uProjection", Kind: gfx.UniformMat4},
	{Name: "uView", Kind: gfx.UniformMat4},
	{Name: "uModel", Kind: gfx.UniformMat4},
	{Name: "uCameraPosition", Kind: gfx.UniformVec3},
	{Name: "uLightAmount", Kind: gfx.UniformInt},
	{Name: "uAlbedo", Kind: gfx.UniformVec4},
}

func TestUniformBlockOffsets(t *testing.T) {
	b := NewUniformBlock(forwardUniforms)
	want := map[string]int{
		"uProjection":     0,
		"uView":           64,
		"uModel":          128,
		"uCameraPosition": 192,
		"uLightAmount":    208,
		"uAlbedo":         224,
	}
	for name, off := range want {
		got, ok := b.Offset(name)
		require.True(t, ok, name)
		assert.Equal(t, off, got, name)
	}
	assert.Equal(t, 240, b.Size())
	assert.Len(t, b.Bytes(), 240)

	b.Declare("uLightAmount", gfx.UniformInt)
	assert.Equal(t, 240, b.Size(), "redeclaring keeps the layout")
}

func TestUniformBlockMatricesStartAsIdentity(t *testing.T) {
	b := NewUniformBlock(forwardUniforms)
	data := b.Bytes()
	assert.Equal(t, float32(1), Float32(data, 0))
	assert.Equal(t, float32(0), Float32(data, 4))
	assert.Equal(t, float32(1), Float32(data, 64+5*4))
}

func TestUniformBlockSet(t *testing.T) {
	b := NewUniformBlock(forwardUniforms)

	require.True(t, b.Set("uCameraPosition", mgl32.Vec3{1, 2, 3}))
	assert.Equal(t, float32(2), Float32(b.Bytes(), 196))

	require.True(t, b.Set("uLightAmount", int32(7)))
	assert.Equal(t, uint32(7), binary.LittleEndian.Uint32(b.Bytes()[208:]))

	m := mgl32.Translate3D(4, 5, 6)
	require.True(t, b.Set("uModel", m))
	assert.Equal(t, float32(5), Float32(b.Bytes(), 128+13*4), "column-major translation")

	assert.False(t, b.Set("uMissing", int32(1)))
	assert.False(t, b.Set("uAlbedo", mgl32.Vec3{1, 1, 1}), "kind mismatch")
	assert.False(t, b.Set("uLightAmount", 3), "plain int is not int32")
}

func lightArray() gfx.UniformArray {
	return gfx.UniformArray{
		Name:   "uLightArray",
		Length: 4,
		Fields: []gfx.Uniform{
			{Name: "position", Kind: gfx.UniformVec3},
			{Name: "direction", Kind: gfx.UniformVec3},
			{Name: "color", Kind: gfx.UniformVec4},
			{Name: "param1", Kind: gfx.UniformVec4},
		},
	}
}

func TestArrayBlockLayout(t *testing.T) {
	a := NewArrayBlock(lightArray())
	assert.Equal(t, 64, a.Stride())
	assert.Equal(t, 256, a.Size())

	_, _, ok := a.Dirty()
	assert.False(t, ok)

	require.True(t, a.Set("uLightArray[2].color", mgl32.Vec4{1, 0.5, 0.25, 8}))
	off, data, ok := a.Dirty()
	require.True(t, ok)
	assert.Equal(t, 2*64+32, off)
	assert.Len(t, data, 16)
	assert.Equal(t, float32(8), Float32(data, 12))

	_, _, ok = a.Dirty()
	assert.False(t, ok, "reading the range clears it")
}

func TestArrayBlockDirtyRangeWidens(t *testing.T) {
	a := NewArrayBlock(lightArray())
	require.True(t, a.Set("uLightArray[3].param1", mgl32.Vec4{}))
	require.True(t, a.Set("uLightArray[0].position", mgl32.Vec3{}))
	off, data, ok := a.Dirty()
	require.True(t, ok)
	assert.Equal(t, 0, off)
	assert.Len(t, data, 4*64)
}

func TestArrayBlockIgnoresForeignNames(t *testing.T) {
	a := NewArrayBlock(lightArray())
	assert.False(t, a.Set("uOther[0].color", mgl32.Vec4{}))
	assert.False(t, a.Set("uLightArray[4].color", mgl32.Vec4{}), "past the end")
	assert.False(t, a.Set("uLightArray[0].bogus", mgl32.Vec4{}))
	assert.False(t, a.Set("uLightArray[0].color", mgl32.Vec3{}))
	_, _, ok := a.Dirty()
	assert.False(t, ok)
}

func TestPackTexels(t *testing.T) {
	px := []float32{0, 0.5, 1, 2}

	b, err := PackTexels(gfx.FormatRGBA8, px)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 128, 255, 255}, b)

	b, err = PackTexels(gfx.FormatRGBA16F, px)
	require.NoError(t, err)
	require.Len(t, b, 8)
	assert.Equal(t, uint16(0x3800), binary.LittleEndian.Uint16(b[2:]), "0.5")
	assert.Equal(t, uint16(0x4000), binary.LittleEndian.Uint16(b[6:]), "2.0")

	b, err = PackTexels(gfx.FormatRGBA32F, px)
	require.NoError(t, err)
	assert.Len(t, b, 8)
	assert.Equal(t, BytesPerTexel(gfx.FormatRGBA32F), len(b))

	_, err = PackTexels(gfx.FormatRGBA8, px[:3])
	assert.Error(t, err)
	_, err = PackTexels(gfx.FormatDepth32F, px)
	assert.ErrorIs(t, err, gfx.ErrUnsupported)
}

func vertex(v []float32, i int) (pos, normal mgl32.Vec3, uv mgl32.Vec2) {
	o := i * 8
	return mgl32.Vec3{v[o], v[o+1], v[o+2]}, mgl32.Vec3{v[o+3], v[o+4], v[o+5]}, mgl32.Vec2{v[o+6], v[o+7]}
}

func TestCubeVerticesFaceOutward(t *testing.T) {
	v := CubeVertices()
	require.Len(t, v, 36*8)
	for tri := 0; tri < 12; tri++ {
		a, n, _ := vertex(v, tri*3)
		b, _, _ := vertex(v, tri*3+1)
		c, _, _ := vertex(v, tri*3+2)
		face := b.Sub(a).Cross(c.Sub(a))
		assert.Greater(t, face.Dot(n), float32(0), "triangle %d winds counter-clockwise", tri)
		assert.Greater(t, a.Dot(n), float32(0), "triangle %d lies on the side its normal points to", tri)
		for _, p := range []mgl32.Vec3{a, b, c} {
			for k := 0; k < 3; k++ {
				assert.InDelta(t, 1, abs(p[k]), 1e-6)
			}
		}
	}
	_, n, _ := vertex(v, 0)
	assert.Equal(t, mgl32.Vec3{1, 0, 0}, n, "first face is +X")
}

func TestQuadVerticesUV(t *testing.T) {
	v := QuadVertices()
	require.Len(t, v, 6*8)
	for i := 0; i < 6; i++ {
		p, _, uv := vertex(v, i)
		switch {
		case p.X() < 0 && p.Y() > 0:
			assert.Equal(t, mgl32.Vec2{0, 0}, uv, "top left")
		case p.X() > 0 && p.Y() < 0:
			assert.Equal(t, mgl32.Vec2{1, 1}, uv, "bottom right")
		}
	}
}

func abs(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}

func TestAlign(t *testing.T) {
	assert.Equal(t, 256, Align(240, UniformAlign))
	assert.Equal(t, 256, Align(256, UniformAlign))
	assert.Equal(t, 512, Align(257, UniformAlign))
}
