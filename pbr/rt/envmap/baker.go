// Package envmap converts equirectangular panoramas into filtered cube maps.
package envmap

import (
	"errors"
	"fmt"

	"github.com/gekko3d/lumen"
	"github.com/gekko3d/lumen/pbr/rt/asset"
	"github.com/gekko3d/lumen/pbr/rt/core"
	"github.com/gekko3d/lumen/pbr/rt/gfx"
	"github.com/gekko3d/lumen/pbr/rt/shaders"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// CaptureProjection covers exactly one cube face.
var CaptureProjection = mgl32.Perspective(mgl32.DegToRad(90), 1, 0.1, 10)

// CaptureViews look from the origin through each face, in gfx.CubeFace order.
var CaptureViews = [gfx.CubeFaceCount]mgl32.Mat4{
	mgl32.LookAtV(mgl32.Vec3{}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, -1, 0}),
	mgl32.LookAtV(mgl32.Vec3{}, mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, -1, 0}),
	mgl32.LookAtV(mgl32.Vec3{}, mgl32.Vec3{0, 1, 0}, mgl32.Vec3{0, 0, 1}),
	mgl32.LookAtV(mgl32.Vec3{}, mgl32.Vec3{0, -1, 0}, mgl32.Vec3{0, 0, -1}),
	mgl32.LookAtV(mgl32.Vec3{}, mgl32.Vec3{0, 0, 1}, mgl32.Vec3{0, -1, 0}),
	mgl32.LookAtV(mgl32.Vec3{}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, -1, 0}),
}

// CaptureAttachment is the attachment name cube faces are bound under.
const CaptureAttachment = "cubeFace"

// Result describes one completed bake.
type Result struct {
	ID           uuid.UUID
	Source       string
	SourceWidth  int
	SourceHeight int
	Size         int
	Mips         int
}

// Baker renders a unit cube six times through the equirect program, once
// per face, then rebuilds the mip chain.
type Baker struct {
	dev     gfx.Device
	program gfx.Program
	target  gfx.RenderTarget
	logger  lumen.Logger
}

// NewBaker uses program (the hdrToCubeShader program) and target, a target
// with no attachments the baker owns for the duration of each bake.
func NewBaker(dev gfx.Device, program gfx.Program, target gfx.RenderTarget, logger lumen.Logger) *Baker {
	return &Baker{dev: dev, program: program, target: target, logger: lumen.OrNop(logger)}
}

// Convert replaces every face and mip of dst with src projected onto the
// cube. Viewport and culling are restored however it returns.
func (b *Baker) Convert(src gfx.Texture, dst gfx.CubeMap) error {
	if src == nil || dst == nil {
		return errors.New("convert equirect: nil source or destination")
	}
	if err := b.capture(src, dst); err != nil {
		return err
	}
	if err := dst.ComputeMipmap(); err != nil {
		return fmt.Errorf("convert equirect: mipmap %s: %w", dst.Label(), err)
	}
	return nil
}

func (b *Baker) capture(src gfx.Texture, dst gfx.CubeMap) error {
	defer gfx.WithoutCulling(b.dev)()

	b.program.Bind()
	defer b.program.Unbind()
	b.program.SetMat4(shaders.UniformProjection, CaptureProjection)
	src.BindToSlot(shaders.SlotCube)

	b.dev.SetViewport(gfx.Viewport{Width: dst.Width(), Height: dst.Height()})
	b.target.Bind()
	defer b.target.Unbind()

	cube := b.dev.Shape(gfx.ShapeCube)
	for i, view := range CaptureViews {
		face := gfx.CubeFace(i)
		if err := b.target.AttachCubeFace(CaptureAttachment, dst, face, 0); err != nil {
			return fmt.Errorf("convert equirect: attach face %s: %w", face, err)
		}
		b.program.SetMat4(shaders.UniformView, view)
		b.dev.Clear()
		cube.Draw()
	}
	return nil
}

// ConvertFile loads path and bakes it into dst. The source is fully decoded
// and validated first; on any load error dst is left untouched and the
// error wraps core.ErrSourceLoad.
func (b *Baker) ConvertFile(path string, dst gfx.CubeMap) (Result, error) {
	img, err := asset.LoadEquirect(path)
	if err == nil {
		err = img.Validate()
	}
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", core.ErrSourceLoad, err)
	}

	src, err := b.dev.NewTexture(gfx.TextureDesc{
		Label:  "equirect:" + path,
		Width:  img.Width,
		Height: img.Height,
		Format: gfx.FormatRGBA32F,
		Filter: gfx.FilterLinear,
		Wrap:   gfx.WrapRepeat,
		Pixels: img.Pix,
	})
	if err != nil {
		return Result{}, fmt.Errorf("%w: upload %s: %w", core.ErrResourceAllocation, path, err)
	}
	defer src.Release()

	if err := b.Convert(src, dst); err != nil {
		return Result{}, err
	}
	res := Result{
		ID:           uuid.New(),
		Source:       path,
		SourceWidth:  img.Width,
		SourceHeight: img.Height,
		Size:         dst.Width(),
		Mips:         dst.MipLevels(),
	}
	b.logger.Infof("baked %s (%dx%d) into %d^2 cube map, %d mips [%s]", path, img.Width, img.Height, res.Size, res.Mips, res.ID)
	return res, nil
}
