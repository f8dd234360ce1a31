package soft

import (
	"github.com/gekko3d/lumen/pbr/rt/core"
	"github.com/gekko3d/lumen/pbr/rt/shaders"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

var fragmentShaders = map[string]fragmentShader{
	shaders.GBufferKey:   gbufferFragment,
	shaders.DrawEnvKey:   drawEnvFragment,
	shaders.HDRToCubeKey: hdrToCubeFragment,
	shaders.LightingKey:  lightingFragment,
	shaders.ForwardKey:   forwardFragment,
	shaders.PresentKey:   presentFragment,
}

var lightNames = func() []core.LightUniformNames {
	names := make([]core.LightUniformNames, core.MaxLights)
	for i := range names {
		names[i] = core.NewLightUniformNames(i)
	}
	return names
}()

// EquirectUV maps a unit direction to equirectangular texture coordinates
// with v = 1 at the top of the panorama.
func EquirectUV(dir mgl32.Vec3) (u, v float32) {
	u = math32.Atan2(dir[2], dir[0])/(2*math32.Pi) + 0.5
	v = math32.Asin(mgl32.Clamp(dir[1], -1, 1))/math32.Pi + 0.5
	return u, v
}

func gbufferFragment(p *Program, f *fragment, out []mgl32.Vec4) bool {
	write(out, 0, f.world.Vec4(1))
	write(out, 1, f.normal.Vec4(1))
	write(out, 2, p.Vec4(shaders.UniformAlbedo))
	write(out, 3, p.Vec4(shaders.UniformMaterial))
	return true
}

func drawEnvFragment(p *Program, f *fragment, out []mgl32.Vec4) bool {
	cube := p.dev.cube(shaders.SlotCube)
	if cube == nil {
		return false
	}
	write(out, 0, cube.Sample(f.local.Normalize(), 0).Vec3().Vec4(1))
	return true
}

func hdrToCubeFragment(p *Program, f *fragment, out []mgl32.Vec4) bool {
	src := p.dev.texture2D(shaders.SlotCube)
	if src == nil {
		return false
	}
	u, v := EquirectUV(f.local.Normalize())
	write(out, 0, src.Sample(u, v).Vec3().Vec4(1))
	return true
}

func lightingFragment(p *Program, f *fragment, out []mgl32.Vec4) bool {
	u, v := f.uv[0], f.uv[1]
	sample := func(slot int) mgl32.Vec4 {
		if t := p.dev.texture2D(slot); t != nil {
			return t.Sample(u, v)
		}
		return mgl32.Vec4{}
	}
	position := sample(shaders.SlotPosition)
	if position[3] < 0.5 {
		write(out, 0, sample(shaders.SlotEnvironment))
		f.depth = 1
		return true
	}
	pos := position.Vec3()
	n := sample(shaders.SlotNormal).Vec3().Normalize()
	albedo := sample(shaders.SlotAlbedo).Vec3()
	material := sample(shaders.SlotMaterial)
	view := p.Vec3(shaders.UniformCameraPosition).Sub(pos).Normalize()

	lo := shadeLights(p, pos, n, view, albedo, material[0], max(material[1], 0.04))
	if env := p.dev.cube(shaders.SlotEnvironmentCube); env != nil {
		ambient := mulVec3(env.Sample(n, 6).Vec3(), albedo).Mul(material[2] * 0.3)
		lo = lo.Add(ambient)
	}
	write(out, 0, lo.Vec4(1))

	clip := p.Mat4(shaders.UniformProjection).Mul4(p.Mat4(shaders.UniformView)).Mul4x1(pos.Vec4(1))
	f.depth = mgl32.Clamp((clip[2]/clip[3])*0.5+0.5, 0, 1)
	return true
}

func forwardFragment(p *Program, f *fragment, out []mgl32.Vec4) bool {
	n := f.normal
	view := p.Vec3(shaders.UniformCameraPosition).Sub(f.world).Normalize()
	albedo := p.Vec4(shaders.UniformAlbedo)
	material := p.Vec4(shaders.UniformMaterial)
	rr := p.Vec4(shaders.UniformReflectRefract)

	lo := shadeLights(p, f.world, n, view, albedo.Vec3(), material[0], max(material[1], 0.04))
	color := lo
	if env := p.dev.cube(shaders.SlotCube); env != nil {
		dir := reflect(view.Mul(-1), n)
		if rr[0] > 1.5 {
			dir = refract(view.Mul(-1), n, rr[2])
		}
		e := env.Sample(dir, material[1]*6).Vec3()
		s := mgl32.Clamp(rr[1], 0, 1)
		color = lo.Mul(1 - s).Add(e.Mul(s))
	}
	write(out, 0, color.Vec4(albedo[3]))
	return true
}

func presentFragment(p *Program, f *fragment, out []mgl32.Vec4) bool {
	src := p.dev.texture2D(shaders.SlotCube)
	if src == nil {
		return false
	}
	c := src.Sample(f.uv[0], f.uv[1]).Vec3()
	switch p.Int(shaders.UniformViewType) {
	case 0, 5:
		c = ToneMap(c)
	case 2:
		c = c.Mul(0.5).Add(mgl32.Vec3{0.5, 0.5, 0.5})
	}
	write(out, 0, c.Vec4(1))
	return true
}

// ToneMap applies Reinhard and gamma 2.2, the same curve as present.wgsl.
func ToneMap(c mgl32.Vec3) mgl32.Vec3 {
	for i := range c {
		v := max(c[i], 0)
		v = v / (v + 1)
		c[i] = math32.Pow(v, 1/2.2)
	}
	return c
}

func shadeLights(p *Program, pos, n, v, albedo mgl32.Vec3, metallic, roughness float32) mgl32.Vec3 {
	var lo mgl32.Vec3
	count := min(int(max(p.Int(core.LightAmountUniform), 0)), core.MaxLights)
	for i := 0; i < count; i++ {
		names := lightNames[i]
		param1 := p.Vec4(names.Param1)
		if param1[2] < 0.5 {
			continue
		}
		color := p.Vec4(names.Color)
		dir, att := lightDirection(param1, p.Vec3(names.Position), p.Vec3(names.Direction), pos)
		radiance := color.Vec3().Mul(color[3] * att * ndotl(n, dir))
		lo = lo.Add(mulVec3(brdf(n, v, dir, albedo, metallic, roughness), radiance))
	}
	return lo
}

func lightDirection(param1 mgl32.Vec4, lightPos, lightDir, pos mgl32.Vec3) (mgl32.Vec3, float32) {
	kind := param1[0]
	if kind > 0.5 && kind < 1.5 {
		return lightDir.Mul(-1).Normalize(), 1
	}
	toLight := lightPos.Sub(pos)
	dist := toLight.Len()
	dir := toLight.Mul(1 / max(dist, 0.0001))
	att := attenuate(param1[3], dist, param1[1])
	if kind > 1.5 {
		theta := dir.Dot(lightDir.Mul(-1).Normalize())
		att *= smoothstep(0.82, 0.91, theta)
	}
	return dir, att
}

func attenuate(mode, dist, radius float32) float32 {
	x := dist / max(radius, 0.0001)
	switch {
	case mode < 0.5:
		return 1
	case mode < 1.5:
		return max(1-x, 0)
	case mode < 2.5:
		f := max(1-x*x, 0)
		return f * f
	}
	f := mgl32.Clamp(1-x*x*x*x, 0, 1)
	return f * f / (dist*dist + 1)
}

// brdf returns the Cook-Torrance diffuse + specular term without the
// radiance and n.l factors.
func brdf(n, v, l, albedo mgl32.Vec3, metallic, roughness float32) mgl32.Vec3 {
	h := v.Add(l).Normalize()
	nl := ndotl(n, l)
	nv := max(n.Dot(v), 0.0001)

	a := roughness * roughness
	a2 := a * a
	nh := max(n.Dot(h), 0)
	dd := nh*nh*(a2-1) + 1
	distribution := a2 / max(math32.Pi*dd*dd, 0.0001)

	r := roughness + 1
	k := r * r / 8
	geometry := (nv / (nv*(1-k) + k)) * (nl / (nl*(1-k) + k))

	f0 := mgl32.Vec3{0.04, 0.04, 0.04}.Mul(1 - metallic).Add(albedo.Mul(metallic))
	fr := math32.Pow(mgl32.Clamp(1-max(h.Dot(v), 0), 0, 1), 5)
	fresnel := f0.Add(mgl32.Vec3{1, 1, 1}.Sub(f0).Mul(fr))

	spec := fresnel.Mul(distribution * geometry / max(4*nv*nl, 0.0001))
	kd := mgl32.Vec3{1, 1, 1}.Sub(fresnel).Mul(1 - metallic)
	return mulVec3(kd, albedo).Mul(1 / math32.Pi).Add(spec)
}

func ndotl(n, l mgl32.Vec3) float32 { return max(n.Dot(l), 0) }

func reflect(i, n mgl32.Vec3) mgl32.Vec3 {
	return i.Sub(n.Mul(2 * n.Dot(i)))
}

func refract(i, n mgl32.Vec3, eta float32) mgl32.Vec3 {
	cos := n.Dot(i)
	k := 1 - eta*eta*(1-cos*cos)
	if k < 0 {
		return mgl32.Vec3{}
	}
	return i.Mul(eta).Sub(n.Mul(eta*cos + math32.Sqrt(k)))
}

func smoothstep(e0, e1, x float32) float32 {
	t := mgl32.Clamp((x-e0)/(e1-e0), 0, 1)
	return t * t * (3 - 2*t)
}

func mulVec3(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{a[0] * b[0], a[1] * b[1], a[2] * b[2]}
}

func write(out []mgl32.Vec4, i int, c mgl32.Vec4) {
	if i < len(out) {
		out[i] = c
	}
}
