package frame

import (
	"github.com/gekko3d/lumen/pbr/rt/core"
	"github.com/gekko3d/lumen/pbr/rt/gfx"
	"github.com/gekko3d/lumen/pbr/rt/shaders"

	"github.com/go-gl/mathgl/mgl32"
)

// Values a component gets unless its Draw sets its own.
var (
	defaultAlbedo   = mgl32.Vec4{1, 1, 1, 1}
	defaultMaterial = mgl32.Vec4{0, 0.5, 1, 0} // metallic, roughness, ao
)

func (o *Orchestrator) windowViewport() {
	o.dev.SetViewport(gfx.Viewport{Width: int(o.window.Width), Height: int(o.window.Height)})
}

// visible reports whether s should be drawn, counting the ones that are not.
func (o *Orchestrator) visible(s core.Submission, st *Stats) bool {
	if s.Component == nil {
		st.Skipped++
		o.logger.Warnf("frame %d: submission at %v has no render component", st.Frame, s.Position)
		return false
	}
	if o.opts.DisableFrustumCulling {
		return true
	}
	if b, ok := s.WorldBounds(); ok && !b.InFrustum(o.planes) {
		st.Culled++
		return false
	}
	return true
}

func (o *Orchestrator) geometryPass(st *Stats) {
	st.Passes = append(st.Passes, PassGeometry)
	o.windowViewport()
	o.gbuffer.Bind()
	defer o.gbuffer.Unbind()
	o.dev.Clear()

	p := o.lib.Program(shaders.GBufferKey)
	p.Bind()
	defer p.Unbind()
	p.SetMat4(shaders.UniformProjection, o.projection)
	p.SetMat4(shaders.UniformView, o.view)

	for _, s := range o.submissions {
		if s.Forward() || !o.visible(s, st) {
			continue
		}
		p.SetMat4(shaders.UniformModel, s.ModelMatrix())
		p.SetVec4(shaders.UniformAlbedo, defaultAlbedo)
		p.SetVec4(shaders.UniformMaterial, defaultMaterial)
		s.Component.Draw(p)
		st.Deferred++
	}
}

// environmentPass draws the sky from inside a unit cube, so culling is off
// for its duration.
func (o *Orchestrator) environmentPass(st *Stats) {
	st.Passes = append(st.Passes, PassEnvironment)
	defer gfx.WithoutCulling(o.dev)()

	o.windowViewport()
	o.environment.Bind()
	defer o.environment.Unbind()
	o.dev.Clear()

	p := o.lib.Program(shaders.DrawEnvKey)
	p.Bind()
	defer p.Unbind()
	p.SetMat4(shaders.UniformProjection, o.projection)
	p.SetMat4(shaders.UniformView, o.view.Mat3().Mat4())
	o.envCube.BindToSlot(shaders.SlotCube)
	o.dev.Shape(gfx.ShapeCube).Draw()
}

func (o *Orchestrator) lightingPass(st *Stats) {
	st.Passes = append(st.Passes, PassLighting)
	o.windowViewport()
	o.lighting.Bind()
	defer o.lighting.Unbind()
	o.dev.Clear()

	p := o.lib.Program(shaders.LightingKey)
	p.Bind()
	defer p.Unbind()
	p.SetMat4(shaders.UniformProjection, o.projection)
	p.SetMat4(shaders.UniformView, o.view)
	p.SetVec3(shaders.UniformCameraPosition, o.cameraPos)

	for slot, name := range [...]string{
		shaders.SlotPosition: AttachPosition,
		shaders.SlotNormal:   AttachNormal,
		shaders.SlotAlbedo:   AttachAlbedo,
		shaders.SlotMaterial: AttachMaterial,
	} {
		if tex, ok := o.gbuffer.Attachment(name); ok {
			tex.BindToSlot(slot)
		}
	}
	if tex, ok := o.environment.Attachment(AttachColor); ok {
		tex.BindToSlot(shaders.SlotEnvironment)
	}
	o.envCube.BindToSlot(shaders.SlotEnvironmentCube)
	o.dev.Shape(gfx.ShapeQuad).Draw()
}

// forwardPass draws reflective and refractive submissions over the lit image,
// depth tested against the depth the lighting pass reconstructed.
func (o *Orchestrator) forwardPass(st *Stats) {
	st.Passes = append(st.Passes, PassForward)
	o.windowViewport()
	o.lighting.Bind()
	defer o.lighting.Unbind()

	p := o.lib.Program(shaders.ForwardKey)
	p.Bind()
	defer p.Unbind()
	p.SetMat4(shaders.UniformProjection, o.projection)
	p.SetMat4(shaders.UniformView, o.view)
	p.SetVec3(shaders.UniformCameraPosition, o.cameraPos)
	o.envCube.BindToSlot(shaders.SlotCube)

	for _, s := range o.submissions {
		if !s.Forward() || !o.visible(s, st) {
			continue
		}
		rr := s.Component.ReflectRefract()
		p.SetMat4(shaders.UniformModel, s.ModelMatrix())
		p.SetVec4(shaders.UniformAlbedo, defaultAlbedo)
		p.SetVec4(shaders.UniformMaterial, defaultMaterial)
		p.SetVec4(shaders.UniformReflectRefract, mgl32.Vec4{float32(rr.Type), rr.Strength, rr.RefractRatio, 0})
		s.Component.Draw(p)
		st.Forward++
	}
}

// present copies the attachment chosen by the view type to the screen.
func (o *Orchestrator) present() {
	var src gfx.Texture
	var ok bool
	switch o.opts.ViewType {
	case ViewAlbedo:
		src, ok = o.gbuffer.Attachment(AttachAlbedo)
	case ViewNormal:
		src, ok = o.gbuffer.Attachment(AttachNormal)
	case ViewPosition:
		src, ok = o.gbuffer.Attachment(AttachPosition)
	case ViewMaterial:
		src, ok = o.gbuffer.Attachment(AttachMaterial)
	case ViewEnvironment:
		src, ok = o.environment.Attachment(AttachColor)
	default:
		src, ok = o.lighting.Attachment(AttachColor)
	}
	if !ok {
		return
	}

	screen := o.dev.Screen()
	o.windowViewport()
	screen.Bind()
	defer screen.Unbind()
	o.dev.Clear()

	p := o.lib.Program(shaders.PresentKey)
	p.Bind()
	defer p.Unbind()
	p.SetInt(shaders.UniformViewType, int32(o.opts.ViewType))
	src.BindToSlot(shaders.SlotCube)
	o.dev.Shape(gfx.ShapeQuad).Draw()
}
