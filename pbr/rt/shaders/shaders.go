// Package shaders holds the WGSL sources of every renderer program together
// with the uniform, texture and output layout each one declares.
package shaders

import (
	_ "embed"

	"github.com/gekko3d/lumen/pbr/rt/core"
	"github.com/gekko3d/lumen/pbr/rt/gfx"
)

//go:embed gbuffer.wgsl
var GBufferWGSL string

//go:embed draw_env.wgsl
var DrawEnvWGSL string

//go:embed hdr_to_cube.wgsl
var HDRToCubeWGSL string

//go:embed lights.wgsl
var LightsWGSL string

//go:embed lighting.wgsl
var lightingBody string

//go:embed forward.wgsl
var forwardBody string

//go:embed present.wgsl
var PresentWGSL string

//go:embed mipmap.wgsl
var MipmapWGSL string

// The lighting and forward programs share the light contract in lights.wgsl.
var (
	LightingWGSL = LightsWGSL + "\n" + lightingBody
	ForwardWGSL  = LightsWGSL + "\n" + forwardBody
)

// Program keys.
const (
	GBufferKey   = "gBufferShader"
	DrawEnvKey   = "drawEnvShader"
	LightingKey  = "lightingShader"
	ForwardKey   = "forwardShader"
	HDRToCubeKey = "hdrToCubeShader"
	PresentKey   = "presentShader"
)

// Uniform names outside the light contract.
const (
	UniformProjection     = "uProjection"
	UniformView           = "uView"
	UniformModel          = "uModel"
	UniformCameraPosition = "uCameraPosition"
	UniformAlbedo         = "uAlbedo"
	UniformMaterial       = "uMaterial"
	UniformReflectRefract = "uReflectRefract"
	UniformViewType       = "uViewType"
)

// Texture slots read by the lighting program.
const (
	SlotPosition = iota
	SlotNormal
	SlotAlbedo
	SlotMaterial
	SlotEnvironment
	SlotEnvironmentCube
)

// SlotCube is the slot the single-texture programs sample from.
const SlotCube = 0

// HDRFormat is used for every intermediate color target and the cube map.
const HDRFormat = gfx.FormatRGBA16F

func lightArray() gfx.UniformArray {
	return gfx.UniformArray{
		Name:   core.LightArrayUniform,
		Length: core.MaxLights,
		Fields: []gfx.Uniform{
			{Name: "position", Kind: gfx.UniformVec3},
			{Name: "direction", Kind: gfx.UniformVec3},
			{Name: "color", Kind: gfx.UniformVec4},
			{Name: "param1", Kind: gfx.UniformVec4},
		},
	}
}

func viewProjection() []gfx.Uniform {
	return []gfx.Uniform{
		{Name: UniformProjection, Kind: gfx.UniformMat4},
		{Name: UniformView, Kind: gfx.UniformMat4},
	}
}

// Descs returns the descriptor of every program in build order.
func Descs() []gfx.ProgramDesc {
	return []gfx.ProgramDesc{
		{
			Key:    GBufferKey,
			Source: GBufferWGSL,
			Uniforms: append(viewProjection(),
				gfx.Uniform{Name: UniformModel, Kind: gfx.UniformMat4},
				gfx.Uniform{Name: UniformAlbedo, Kind: gfx.UniformVec4},
				gfx.Uniform{Name: UniformMaterial, Kind: gfx.UniformVec4},
			),
			Outputs: []gfx.Format{gfx.FormatRGBA16F, gfx.FormatRGBA16F, gfx.FormatRGBA8, gfx.FormatRGBA8},
			Depth:   true,
			Shape:   gfx.ShapeCube,
		},
		{
			Key:      DrawEnvKey,
			Source:   DrawEnvWGSL,
			Uniforms: viewProjection(),
			Textures: []gfx.TextureBinding{{Slot: SlotCube, Cube: true}},
			Outputs:  []gfx.Format{HDRFormat},
			Shape:    gfx.ShapeCube,
		},
		{
			Key:    LightingKey,
			Source: LightingWGSL,
			Uniforms: append(viewProjection(),
				gfx.Uniform{Name: UniformCameraPosition, Kind: gfx.UniformVec3},
				gfx.Uniform{Name: core.LightAmountUniform, Kind: gfx.UniformInt},
			),
			Arrays: []gfx.UniformArray{lightArray()},
			Textures: []gfx.TextureBinding{
				{Slot: SlotPosition},
				{Slot: SlotNormal},
				{Slot: SlotAlbedo},
				{Slot: SlotMaterial},
				{Slot: SlotEnvironment},
				{Slot: SlotEnvironmentCube, Cube: true},
			},
			Outputs: []gfx.Format{HDRFormat},
			Depth:   true,
			Shape:   gfx.ShapeQuad,
		},
		{
			Key:    ForwardKey,
			Source: ForwardWGSL,
			Uniforms: append(viewProjection(),
				gfx.Uniform{Name: UniformModel, Kind: gfx.UniformMat4},
				gfx.Uniform{Name: UniformCameraPosition, Kind: gfx.UniformVec3},
				gfx.Uniform{Name: core.LightAmountUniform, Kind: gfx.UniformInt},
				gfx.Uniform{Name: UniformAlbedo, Kind: gfx.UniformVec4},
				gfx.Uniform{Name: UniformMaterial, Kind: gfx.UniformVec4},
				gfx.Uniform{Name: UniformReflectRefract, Kind: gfx.UniformVec4},
			),
			Arrays:   []gfx.UniformArray{lightArray()},
			Textures: []gfx.TextureBinding{{Slot: SlotCube, Cube: true}},
			Outputs:  []gfx.Format{HDRFormat},
			Depth:    true,
			Shape:    gfx.ShapeCube,
		},
		{
			Key:      HDRToCubeKey,
			Source:   HDRToCubeWGSL,
			Uniforms: viewProjection(),
			Textures: []gfx.TextureBinding{{Slot: SlotCube}},
			Outputs:  []gfx.Format{HDRFormat},
			Shape:    gfx.ShapeCube,
		},
		{
			Key:      PresentKey,
			Source:   PresentWGSL,
			Uniforms: []gfx.Uniform{{Name: UniformViewType, Kind: gfx.UniformInt}},
			Textures: []gfx.TextureBinding{{Slot: SlotCube}},
			Outputs:  []gfx.Format{gfx.FormatRGBA8},
			Shape:    gfx.ShapeQuad,
		},
	}
}

// Desc looks up a single descriptor by key.
func Desc(key string) (gfx.ProgramDesc, bool) {
	for _, d := range Descs() {
		if d.Key == key {
			return d, true
		}
	}
	return gfx.ProgramDesc{}, false
}
