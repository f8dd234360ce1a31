package frame

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gekko3d/lumen"
	"github.com/gekko3d/lumen/pbr/rt/core"
	"github.com/gekko3d/lumen/pbr/rt/gfx"
	"github.com/gekko3d/lumen/pbr/rt/shaders"
	"github.com/gekko3d/lumen/pbr/rt/soft"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// box is a unit cube render component that records which programs drew it.
type box struct {
	shape  gfx.Drawable
	rr     core.ReflectRefract
	albedo mgl32.Vec4
	bounds *core.AABB
	drawn  []string
}

func (b *box) Draw(p gfx.Program) {
	b.drawn = append(b.drawn, p.Key())
	if b.albedo != (mgl32.Vec4{}) {
		p.SetVec4(shaders.UniformAlbedo, b.albedo)
	}
	b.shape.Draw()
}

func (b *box) ReflectRefract() core.ReflectRefract { return b.rr }

type boundedBox struct{ *box }

func (b boundedBox) Bounds() core.AABB { return *b.bounds }

type harness struct {
	dev  *soft.Device
	orch *Orchestrator
	cam  *core.Camera
}

func newHarness(t *testing.T, w, h int, opts Options) *harness {
	t.Helper()
	dev, err := soft.NewDevice(w, h)
	require.NoError(t, err)
	lib, err := shaders.NewLibrary(dev)
	require.NoError(t, err)
	if opts.CubeMapSize == 0 {
		opts.CubeMapSize = 8
	}
	cam := core.NewCamera()
	cam.Position = mgl32.Vec3{0, 0, 5}
	return &harness{dev: dev, orch: NewOrchestrator(dev, lib, opts), cam: cam}
}

func (h *harness) init(t *testing.T, w, ht uint32) {
	t.Helper()
	require.NoError(t, h.orch.Initialize(core.WindowSpecs{Width: w, Height: ht}))
}

func (h *harness) newBox() *box {
	return &box{shape: h.dev.Shape(gfx.ShapeCube)}
}

func writeHDR(t *testing.T, dir, name string, rgbe byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	data := []byte("#?RADIANCE\nFORMAT=32-bit_rle_rgbe\n\n-Y 1 +X 2\n")
	data = append(data, rgbe, rgbe, rgbe, 129, rgbe, rgbe, rgbe, 129)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func targetBinds(events []soft.Event) []string {
	var out []string
	for _, e := range events {
		if e.Op == soft.OpBindTarget {
			out = append(out, e.Name)
		}
	}
	return out
}

func TestFrameEndToEnd(t *testing.T) {
	h := newHarness(t, 800, 600, Options{})
	h.init(t, 800, 600)
	s1 := h.newBox()

	h.dev.Record(true)
	require.NoError(t, h.orch.BeginFrame(h.cam))
	require.NoError(t, h.orch.Submit(core.NewSubmission(s1, mgl32.Vec3{})))
	require.Equal(t, 1, h.orch.Pending())
	require.NoError(t, h.orch.DrawFrame())
	require.NoError(t, h.orch.EndFrame())

	st := h.orch.LastFrame()
	assert.Equal(t, []Pass{PassGeometry, PassEnvironment, PassLighting, PassForward}, st.Passes)
	assert.Equal(t, uint64(1), st.Frame)
	assert.Equal(t, 1, st.Deferred)
	assert.Equal(t, 0, st.Forward)
	assert.Equal(t, 0, h.orch.Pending())
	assert.Equal(t, StateInitialized, h.orch.State())
	assert.Equal(t, []string{shaders.GBufferKey}, s1.drawn)

	assert.Equal(t, []string{"gbuffer", "environment", "lighting", "lighting", "screen"}, targetBinds(h.dev.Events()))

	pos, ok := h.orch.Target(PassGeometry).Attachment(AttachPosition)
	require.True(t, ok)
	assert.Equal(t, float32(1), pos.(*soft.Texture).At(400, 300)[3])
	assert.Equal(t, float32(0), pos.(*soft.Texture).At(2, 2)[3])
}

func TestDrawFrameWithoutBeginFrameIsRejected(t *testing.T) {
	h := newHarness(t, 16, 16, Options{})
	assert.ErrorIs(t, h.orch.DrawFrame(), core.ErrSequence)

	h.init(t, 16, 16)
	h.dev.Record(true)
	assert.ErrorIs(t, h.orch.DrawFrame(), core.ErrSequence)

	require.NoError(t, h.orch.BeginFrame(h.cam))
	require.NoError(t, h.orch.EndFrame())
	assert.ErrorIs(t, h.orch.DrawFrame(), core.ErrSequence)

	for _, e := range h.dev.Events() {
		assert.NotEqual(t, soft.OpDraw, e.Op)
	}
	assert.Equal(t, uint64(0), h.orch.LastFrame().Frame)
}

func TestSequencingViolationsAreLogged(t *testing.T) {
	observed, logs := observer.New(zapcore.DebugLevel)
	h := newHarness(t, 16, 16, Options{Logger: lumen.NewLoggerFromZap(zap.New(observed), false)})
	h.init(t, 16, 16)

	require.ErrorIs(t, h.orch.DrawFrame(), core.ErrSequence)
	entries := logs.FilterLevelExact(zapcore.ErrorLevel).All()
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Message, "DrawFrame while initialized")
}

func TestStrictSequencingPanics(t *testing.T) {
	h := newHarness(t, 16, 16, Options{StrictSequencing: true})
	h.init(t, 16, 16)
	assert.Panics(t, func() { _ = h.orch.DrawFrame() })
	assert.Panics(t, func() { _ = h.orch.EndFrame() })
}

func TestLifecycleRules(t *testing.T) {
	h := newHarness(t, 16, 16, Options{})
	o := h.orch

	assert.ErrorIs(t, o.BeginFrame(h.cam), core.ErrSequence)
	assert.ErrorIs(t, o.Submit(core.Submission{}), core.ErrSequence)
	assert.ErrorIs(t, o.SetEnvironmentMapEquirectangular("sky.hdr"), core.ErrSequence)
	assert.ErrorIs(t, o.CleanUp(), core.ErrSequence)

	h.init(t, 16, 16)
	assert.ErrorIs(t, o.Initialize(core.WindowSpecs{Width: 16, Height: 16}), core.ErrSequence)
	assert.ErrorIs(t, o.Submit(core.Submission{}), core.ErrSequence)
	assert.ErrorIs(t, o.EndFrame(), core.ErrSequence)
	assert.Error(t, o.BeginFrame(nil))

	require.NoError(t, o.BeginFrame(h.cam))
	assert.ErrorIs(t, o.BeginFrame(h.cam), core.ErrSequence)
	assert.ErrorIs(t, o.CleanUp(), core.ErrSequence)
	assert.ErrorIs(t, o.Resize(core.WindowSpecs{Width: 8, Height: 8}), core.ErrSequence)
	require.NoError(t, o.EndFrame())

	require.NoError(t, o.CleanUp())
	assert.Equal(t, StateCleanedUp, o.State())
	assert.ErrorIs(t, o.BeginFrame(h.cam), core.ErrSequence)
	assert.ErrorIs(t, o.CleanUp(), core.ErrSequence)
}

func TestInitializeFailureReleasesEverything(t *testing.T) {
	dev, err := soft.NewDeviceWithLimits(16, 16, soft.Limits{MaxTextureDimension: 64})
	require.NoError(t, err)
	lib, err := shaders.NewLibrary(dev)
	require.NoError(t, err)
	baseline := dev.LiveResources()

	tests := []struct {
		name   string
		opts   Options
		window core.WindowSpecs
	}{
		{"window too large", Options{CubeMapSize: 8}, core.WindowSpecs{Width: 128, Height: 32}},
		{"empty window", Options{CubeMapSize: 8}, core.WindowSpecs{}},
		{"cube map too large", Options{CubeMapSize: 128}, core.WindowSpecs{Width: 16, Height: 16}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			o := NewOrchestrator(dev, lib, tc.opts)
			err := o.Initialize(tc.window)
			require.ErrorIs(t, err, core.ErrResourceAllocation)
			assert.Equal(t, baseline, dev.LiveResources())
			assert.Equal(t, StateUninitialized, o.State())
		})
	}
}

func TestCleanUpReleasesEverything(t *testing.T) {
	h := newHarness(t, 16, 16, Options{})
	baseline := h.dev.LiveResources()
	h.init(t, 16, 16)
	assert.Greater(t, h.dev.LiveResources(), baseline)

	require.NoError(t, h.orch.Resize(core.WindowSpecs{Width: 8, Height: 4}))
	require.NoError(t, h.orch.CleanUp())
	assert.Equal(t, baseline, h.dev.LiveResources())
}

func TestEnvironmentBakeFailureKeepsPreviousMap(t *testing.T) {
	h := newHarness(t, 16, 16, Options{})
	h.init(t, 16, 16)
	dir := t.TempDir()

	good := writeHDR(t, dir, "good.hdr", 128)
	require.NoError(t, h.orch.SetEnvironmentMapEquirectangular(good))
	assert.Equal(t, good, h.orch.EnvironmentSource())

	cube := h.orch.EnvironmentMap().(*soft.CubeMap)
	before := cube.Face(gfx.CubeFacePositiveZ, 0)

	require.NoError(t, h.orch.BeginFrame(h.cam))
	err := h.orch.SetEnvironmentMapEquirectangular(filepath.Join(dir, "missing.hdr"))
	require.ErrorIs(t, err, core.ErrSourceLoad)
	assert.Equal(t, before, cube.Face(gfx.CubeFacePositiveZ, 0))
	assert.Equal(t, good, h.orch.EnvironmentSource())

	// a frame drawn after the failure still completes
	require.NoError(t, h.orch.DrawFrame())
	require.NoError(t, h.orch.EndFrame())
}

func TestForwardRouting(t *testing.T) {
	h := newHarness(t, 32, 24, Options{})
	h.init(t, 32, 24)
	plain := h.newBox()
	mirror := h.newBox()
	mirror.rr = core.ReflectRefract{Type: core.ReflectRefractReflect, Strength: 1}
	glass := h.newBox()
	glass.rr = core.ReflectRefract{Type: core.ReflectRefractRefract, Strength: 0.5, RefractRatio: 1 / 1.52}

	require.NoError(t, h.orch.BeginFrame(h.cam))
	for _, c := range []*box{plain, mirror, glass} {
		require.NoError(t, h.orch.Submit(core.NewSubmission(c, mgl32.Vec3{})))
	}
	require.NoError(t, h.orch.DrawFrame())
	require.NoError(t, h.orch.EndFrame())

	st := h.orch.LastFrame()
	assert.Equal(t, 1, st.Deferred)
	assert.Equal(t, 2, st.Forward)
	assert.Equal(t, []string{shaders.GBufferKey}, plain.drawn)
	assert.Equal(t, []string{shaders.ForwardKey}, mirror.drawn)
	assert.Equal(t, []string{shaders.ForwardKey}, glass.drawn)
}

func TestFrustumCullingAndSkips(t *testing.T) {
	observed, logs := observer.New(zapcore.WarnLevel)
	h := newHarness(t, 16, 16, Options{Logger: lumen.NewLoggerFromZap(zap.New(observed), false)})
	h.init(t, 16, 16)

	behind := boundedBox{h.newBox()}
	behind.bounds = &core.AABB{Min: mgl32.Vec3{-1, -1, -1}, Max: mgl32.Vec3{1, 1, 1}}
	inView := boundedBox{h.newBox()}
	inView.bounds = &core.AABB{Min: mgl32.Vec3{-1, -1, -1}, Max: mgl32.Vec3{1, 1, 1}}

	require.NoError(t, h.orch.BeginFrame(h.cam))
	require.NoError(t, h.orch.Submit(core.NewSubmission(behind, mgl32.Vec3{0, 0, 20})))
	require.NoError(t, h.orch.Submit(core.NewSubmission(inView, mgl32.Vec3{})))
	require.NoError(t, h.orch.Submit(core.Submission{Position: mgl32.Vec3{1, 2, 3}}))
	require.NoError(t, h.orch.DrawFrame())
	require.NoError(t, h.orch.EndFrame())

	st := h.orch.LastFrame()
	assert.Equal(t, 1, st.Culled)
	assert.Equal(t, 1, st.Skipped)
	assert.Equal(t, 1, st.Deferred)
	assert.Empty(t, behind.drawn)
	assert.Len(t, inView.drawn, 1)
	assert.Equal(t, 1, logs.FilterMessageSnippet("no render component").Len())
}

func TestDisableFrustumCulling(t *testing.T) {
	h := newHarness(t, 16, 16, Options{DisableFrustumCulling: true})
	h.init(t, 16, 16)
	behind := boundedBox{h.newBox()}
	behind.bounds = &core.AABB{Min: mgl32.Vec3{-1, -1, -1}, Max: mgl32.Vec3{1, 1, 1}}

	require.NoError(t, h.orch.BeginFrame(h.cam))
	require.NoError(t, h.orch.Submit(core.NewSubmission(behind, mgl32.Vec3{0, 0, 20})))
	require.NoError(t, h.orch.DrawFrame())
	require.NoError(t, h.orch.EndFrame())
	assert.Len(t, behind.drawn, 1)
}

func TestViewTypeSelectsPresentedAttachment(t *testing.T) {
	h := newHarness(t, 32, 24, Options{ViewType: ViewAlbedo})
	h.init(t, 32, 24)
	red := h.newBox()
	red.albedo = mgl32.Vec4{1, 0, 0, 1}

	require.NoError(t, h.orch.BeginFrame(h.cam))
	require.NoError(t, h.orch.Submit(core.NewSubmission(red, mgl32.Vec3{})))
	require.NoError(t, h.orch.DrawFrame())
	require.NoError(t, h.orch.EndFrame())

	screen := h.dev.ScreenTexture()
	assert.Equal(t, mgl32.Vec4{1, 0, 0, 1}, screen.At(16, 12))

	assert.Error(t, h.orch.SetViewType(ViewType(42)))
	require.NoError(t, h.orch.SetViewType(ViewNormal))
	assert.Equal(t, ViewNormal, h.orch.ViewType())
}

func TestParseViewType(t *testing.T) {
	for i, name := range []string{"final", "Albedo", "NORMAL", "position", "material", "environment"} {
		v, err := ParseViewType(name)
		require.NoError(t, err)
		assert.Equal(t, ViewType(i), v)
	}
	_, err := ParseViewType("depth")
	assert.Error(t, err)
	assert.Equal(t, "ViewType(9)", ViewType(9).String())
	assert.Equal(t, "frame-open", StateFrameOpen.String())
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := lumen.DefaultConfig().Renderer
	cfg.ViewType = "material"
	cfg.Strict = true
	cfg.FrustumCulling = false

	opts, err := OptionsFromConfig(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, ViewMaterial, opts.ViewType)
	assert.Equal(t, cfg.CubeMapSize, opts.CubeMapSize)
	assert.True(t, opts.StrictSequencing)
	assert.True(t, opts.DisableFrustumCulling)

	cfg.ViewType = "depth"
	_, err = OptionsFromConfig(cfg, nil)
	assert.Error(t, err)
}

func TestFailedResizeKeepsPreviousTargets(t *testing.T) {
	h := newHarness(t, 16, 16, Options{})
	h.init(t, 16, 16)
	live := h.dev.LiveResources()

	err := h.orch.Resize(core.WindowSpecs{Width: 9000, Height: 64})
	require.ErrorIs(t, err, core.ErrResourceAllocation)
	assert.Equal(t, StateInitialized, h.orch.State())
	assert.Equal(t, live, h.dev.LiveResources())

	_, ok := h.orch.Target(PassGeometry).Attachment(AttachAlbedo)
	assert.True(t, ok)
	_, ok = h.orch.Target(PassLighting).Attachment(AttachColor)
	assert.True(t, ok)

	h.dev.Record(true)
	require.NoError(t, h.orch.BeginFrame(h.cam))
	require.NoError(t, h.orch.Submit(core.NewSubmission(h.newBox(), mgl32.Vec3{})))
	require.NoError(t, h.orch.DrawFrame())
	require.NoError(t, h.orch.EndFrame())
	assert.Equal(t, 1, h.orch.LastFrame().Deferred)
	assert.Contains(t, h.dev.Events(), soft.Event{Op: soft.OpDraw, Name: shaders.PresentKey})

	// a later valid resize still works and frees the old set
	require.NoError(t, h.orch.Resize(core.WindowSpecs{Width: 8, Height: 8}))
	assert.Equal(t, live, h.dev.LiveResources())
}

func TestDrawFrameRunsOncePerFrame(t *testing.T) {
	h := newHarness(t, 16, 16, Options{})
	h.init(t, 16, 16)

	require.NoError(t, h.orch.BeginFrame(h.cam))
	require.NoError(t, h.orch.DrawFrame())
	assert.ErrorIs(t, h.orch.DrawFrame(), core.ErrSequence)
	require.NoError(t, h.orch.EndFrame())
	assert.Equal(t, uint64(1), h.orch.LastFrame().Frame)

	require.NoError(t, h.orch.BeginFrame(h.cam))
	require.NoError(t, h.orch.DrawFrame())
	require.NoError(t, h.orch.EndFrame())
	assert.Equal(t, uint64(2), h.orch.LastFrame().Frame)

	strict := newHarness(t, 16, 16, Options{StrictSequencing: true})
	strict.init(t, 16, 16)
	require.NoError(t, strict.orch.BeginFrame(strict.cam))
	require.NoError(t, strict.orch.DrawFrame())
	assert.Panics(t, func() { _ = strict.orch.DrawFrame() })
}
