package soft

import (
	"github.com/gekko3d/lumen/pbr/rt/gfx"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// fragment carries the interpolated inputs of one pixel.
type fragment struct {
	ndc    mgl32.Vec2
	uv     mgl32.Vec2
	local  mgl32.Vec3 // model-space surface point
	world  mgl32.Vec3
	normal mgl32.Vec3 // world space
	depth  float32    // window depth in [0,1]
}

// fragmentShader writes one color per color attachment. Returning false
// discards the fragment.
type fragmentShader func(p *Program, f *fragment, out []mgl32.Vec4) bool

type shape struct {
	dev  *Device
	kind gfx.ShapeKind
}

func (s *shape) Draw() {
	s.dev.draw(s.kind)
}

// draw rasterizes the shape into the bound target with the bound program.
// Cubes are ray cast against [-1,1]^3 in model space through the inverse of
// uProjection * uView * uModel, so the camera may sit inside the cube.
func (d *Device) draw(kind gfx.ShapeKind) {
	t, p := d.target, d.program
	if t == nil || p == nil || p.shader == nil {
		return
	}
	d.emit(OpDraw, p.desc.Key)

	tw, th := t.size()
	vp := d.viewport
	x0, y0 := max(vp.X, 0), max(vp.Y, 0)
	x1, y1 := min(vp.X+vp.Width, tw), min(vp.Y+vp.Height, th)
	if x1 <= x0 || y1 <= y0 {
		return
	}

	var model, viewProj, inv mgl32.Mat4
	if kind == gfx.ShapeCube {
		model = p.Mat4("uModel")
		viewProj = p.Mat4("uProjection").Mul4(p.Mat4("uView"))
		inv = viewProj.Mul4(model).Inv()
	}
	depthTest := p.desc.Depth
	out := make([]mgl32.Vec4, len(t.color))

	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			f := fragment{
				ndc: mgl32.Vec2{
					2*(float32(x-vp.X)+0.5)/float32(vp.Width) - 1,
					2*(float32(y-vp.Y)+0.5)/float32(vp.Height) - 1,
				},
			}
			f.uv = mgl32.Vec2{(f.ndc[0] + 1) * 0.5, (f.ndc[1] + 1) * 0.5}

			if kind == gfx.ShapeCube {
				if !d.castCube(inv, model, viewProj, &f) {
					continue
				}
			}

			di := -1
			if depthTest {
				di = t.depthAt(x, y)
				if di >= 0 && kind == gfx.ShapeCube && f.depth >= t.depth[di] {
					continue
				}
			}
			for i := range out {
				out[i] = mgl32.Vec4{}
			}
			if !p.shader(p, &f, out) {
				continue
			}
			if di >= 0 {
				// fullscreen quads always pass and write the depth they produce
				if kind == gfx.ShapeCube && f.depth >= t.depth[di] {
					continue
				}
				t.depth[di] = f.depth
			}
			for i, a := range t.color {
				a.surface.set(x, y, out[i])
			}
		}
	}
}

// castCube intersects the pixel ray with the unit cube. With culling on only
// faces seen from outside are drawn.
func (d *Device) castCube(inv, model, viewProj mgl32.Mat4, f *fragment) bool {
	near := mgl32.TransformCoordinate(mgl32.Vec3{f.ndc[0], f.ndc[1], -1}, inv)
	far := mgl32.TransformCoordinate(mgl32.Vec3{f.ndc[0], f.ndc[1], 1}, inv)
	dir := far.Sub(near)

	tmin, tmax := float32(0), float32(1)
	inside := true
	for i := 0; i < 3; i++ {
		if math32.Abs(near[i]) > 1 {
			inside = false
		}
		if math32.Abs(dir[i]) < 1e-12 {
			if near[i] < -1 || near[i] > 1 {
				return false
			}
			continue
		}
		ta := (-1 - near[i]) / dir[i]
		tb := (1 - near[i]) / dir[i]
		if ta > tb {
			ta, tb = tb, ta
		}
		tmin = max(tmin, ta)
		tmax = min(tmax, tb)
		if tmin > tmax {
			return false
		}
	}

	var hit float32
	if inside {
		if d.cull {
			return false
		}
		hit = tmax
	} else {
		hit = tmin
	}
	local := near.Add(dir.Mul(hit))

	axis := 0
	for i := 1; i < 3; i++ {
		if math32.Abs(local[i]) > math32.Abs(local[axis]) {
			axis = i
		}
	}
	var n mgl32.Vec3
	n[axis] = math32.Copysign(1, local[axis])

	world := model.Mul4x1(local.Vec4(1))
	clip := viewProj.Mul4x1(world)
	f.local = local
	f.world = world.Vec3()
	f.normal = model.Mul4x1(n.Vec4(0)).Vec3().Normalize()
	f.depth = mgl32.Clamp((clip[2]/clip[3])*0.5+0.5, 0, 1)
	return true
}
