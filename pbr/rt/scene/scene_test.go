package scene

import (
	"math"
	"testing"

	"github.com/gekko3d/lumen/pbr/rt/core"
	"github.com/gekko3d/lumen/pbr/rt/frame"
	"github.com/gekko3d/lumen/pbr/rt/lights"
	"github.com/gekko3d/lumen/pbr/rt/shaders"
	"github.com/gekko3d/lumen/pbr/rt/soft"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rig struct {
	dev  *soft.Device
	reg  *lights.Registry
	orch *frame.Orchestrator
}

func newRig(t *testing.T) *rig {
	t.Helper()
	dev, err := soft.NewDevice(32, 32)
	require.NoError(t, err)
	lib, err := shaders.NewLibrary(dev)
	require.NoError(t, err)
	orch := frame.NewOrchestrator(dev, lib, frame.Options{CubeMapSize: 8})
	require.NoError(t, orch.Initialize(core.WindowSpecs{Width: 32, Height: 32}))
	return &rig{dev: dev, reg: lights.NewRegistry(nil, lib.LightShaders()...), orch: orch}
}

func TestDemoSceneRendersEveryPass(t *testing.T) {
	r := newRig(t)
	s := NewDemo(r.dev, r.reg)
	require.Len(t, s.Objects, 9)
	assert.Equal(t, 3, r.reg.Live())

	require.NoError(t, s.Render(r.orch, core.NewCamera()))
	st := r.orch.LastFrame()
	assert.Equal(t, []frame.Pass{frame.PassGeometry, frame.PassEnvironment, frame.PassLighting, frame.PassForward}, st.Passes)
	assert.Equal(t, 2, st.Forward)
	assert.Equal(t, 9, st.Deferred+st.Forward+st.Culled)
	assert.Equal(t, frame.StateInitialized, r.orch.State())
	assert.Zero(t, r.orch.Pending())
}

func TestRenderReportsSequencingErrors(t *testing.T) {
	dev, err := soft.NewDevice(8, 8)
	require.NoError(t, err)
	lib, err := shaders.NewLibrary(dev)
	require.NoError(t, err)
	orch := frame.NewOrchestrator(dev, lib, frame.Options{CubeMapSize: 8})

	err = New().Render(orch, core.NewCamera())
	assert.ErrorIs(t, err, core.ErrSequence)
}

func TestUpdateMovesOrbitsAndSpins(t *testing.T) {
	r := newRig(t)
	s := NewDemo(r.dev, r.reg)

	orbiting := s.Orbits[0].Light
	before, ok := orbiting.Params()
	require.True(t, ok)
	spinning := s.Objects[1]
	rot := spinning.Rotation

	s.Update(0.5)
	after, _ := orbiting.Params()
	assert.NotEqual(t, before.Position, after.Position)
	assert.InDelta(t, 1.5, after.Position.Y(), 1e-5)
	assert.InDelta(t, 3, mgl32.Vec2{after.Position.X(), after.Position.Z()}.Len(), 1e-4)
	assert.False(t, rot.ApproxEqual(spinning.Rotation))
	assert.InDelta(t, 0.5, s.Elapsed(), 1e-3)

	s.Update(0)
	s.Update(-1)
	assert.InDelta(t, 0.5, s.Elapsed(), 1e-3)
}

func TestDestroyFreesLightSlots(t *testing.T) {
	r := newRig(t)
	s := NewDemo(r.dev, r.reg)
	s.Destroy()
	assert.Zero(t, r.reg.Live())
	assert.Equal(t, 3, r.reg.HighWater())
	s.Update(1)
}

func TestMeshWritesMaterial(t *testing.T) {
	r := newRig(t)
	m := NewCube(r.dev, Material{Albedo: mgl32.Vec4{1, 0, 0, 1}, Metallic: 1, Roughness: 0.25, AO: 1})
	p := newProgram(t, r.dev)
	p.Bind()
	m.Draw(p)
	p.Unbind()

	assert.Equal(t, mgl32.Vec4{1, 0, 0, 1}, p.Vec4(shaders.UniformAlbedo))
	assert.Equal(t, mgl32.Vec4{1, 0.25, 1, 0}, p.Vec4(shaders.UniformMaterial))
	assert.Equal(t, core.ReflectRefractNone, m.ReflectRefract().Type)
	assert.Equal(t, mgl32.Vec3{1, 1, 1}, m.Bounds().Max)
}

func newProgram(t *testing.T, dev *soft.Device) *soft.Program {
	t.Helper()
	desc, ok := shaders.Desc(shaders.GBufferKey)
	require.True(t, ok)
	p, err := dev.NewProgram(desc)
	require.NoError(t, err)
	for _, u := range desc.Uniforms {
		p.DeclareUniform(u.Name, u.Kind)
	}
	return p.(*soft.Program)
}

func TestFlyControllerMovesAlongView(t *testing.T) {
	cam := core.NewCamera()
	start := cam.Position

	var c FlyController
	c.Forward = true
	c.Apply(cam, 1)
	assert.InDelta(t, start.Z()-cam.Speed, cam.Position.Z(), 1e-4)
	assert.InDelta(t, start.X(), cam.Position.X(), 1e-4)

	c = FlyController{Right: true, Fast: true}
	before := cam.Position
	c.Apply(cam, 0.5)
	assert.InDelta(t, before.X()+cam.Speed*0.5*fastMultiplier, cam.Position.X(), 1e-4)

	c = FlyController{Forward: true, Back: true}
	before = cam.Position
	c.Apply(cam, 1)
	assert.Equal(t, before, cam.Position)
}

func TestFlyControllerLook(t *testing.T) {
	cam := core.NewCamera()
	var c FlyController
	c.Look(50, 0)
	c.Look(50, 0)
	c.Apply(cam, 0)
	assert.InDelta(t, 100*cam.Sensitivity, cam.Yaw, 1e-6)

	// deltas are consumed
	c.Apply(cam, 0)
	assert.InDelta(t, 100*cam.Sensitivity, cam.Yaw, 1e-6)

	c.Look(0, -1e6)
	c.Apply(cam, 0)
	assert.Less(t, cam.Pitch, float32(math.Pi/2))
	assert.Greater(t, cam.Pitch, float32(1.5))

	c.Up = true
	c.Release()
	assert.Equal(t, FlyController{}, c)
}
