package scene

import (
	"errors"
	"math"

	"github.com/gekko3d/lumen/pbr/rt/core"
	"github.com/gekko3d/lumen/pbr/rt/frame"
	"github.com/gekko3d/lumen/pbr/rt/gfx"
	"github.com/gekko3d/lumen/pbr/rt/lights"

	"github.com/go-gl/mathgl/mgl32"
)

// Object places a render component in the world.
type Object struct {
	Name      string
	Component core.RenderComponent
	Position  mgl32.Vec3
	Scale     mgl32.Vec3
	Rotation  mgl32.Quat
	// Spin rotates the object around Y, in radians per second.
	Spin float32
}

func (o *Object) submission() core.Submission {
	s := core.NewSubmission(o.Component, o.Position)
	if o.Scale != (mgl32.Vec3{}) {
		s.Scale = o.Scale
	}
	if o.Rotation != (mgl32.Quat{}) {
		s.Rotation = o.Rotation
	}
	return s
}

// Orbit moves a light around Center on the XZ plane.
type Orbit struct {
	Light  *lights.Light
	Center mgl32.Vec3
	Radius float32
	Height float32
	// Speed is in radians per second.
	Speed float32
	angle float32
}

// Scene is the set of objects submitted every frame plus the lights that
// animate with it.
type Scene struct {
	Objects []*Object
	Lights  []*lights.Light
	Orbits  []*Orbit

	elapsed float64
}

func New() *Scene {
	return &Scene{}
}

func (s *Scene) Add(o *Object) *Object {
	if o.Rotation == (mgl32.Quat{}) {
		o.Rotation = mgl32.QuatIdent()
	}
	s.Objects = append(s.Objects, o)
	return o
}

// AddLight creates a light in reg. Lights over capacity are kept so the
// scene can destroy them uniformly; they simply do nothing.
func (s *Scene) AddLight(reg *lights.Registry, params core.LightSlot) *lights.Light {
	l := lights.NewLight(reg, params)
	s.Lights = append(s.Lights, l)
	return l
}

// Update advances spins and light orbits by dt seconds.
func (s *Scene) Update(dt float64) {
	if dt <= 0 {
		return
	}
	s.elapsed += dt
	for _, o := range s.Objects {
		if o.Spin == 0 {
			continue
		}
		step := mgl32.QuatRotate(o.Spin*float32(dt), mgl32.Vec3{0, 1, 0})
		o.Rotation = step.Mul(o.Rotation).Normalize()
	}
	for _, orb := range s.Orbits {
		orb.angle = float32(math.Mod(float64(orb.angle+orb.Speed*float32(dt)), 2*math.Pi))
		sin, cos := math.Sincos(float64(orb.angle))
		orb.Light.SetPosition(orb.Center.Add(mgl32.Vec3{
			orb.Radius * float32(cos),
			orb.Height,
			orb.Radius * float32(sin),
		}))
	}
}

// Elapsed returns the total time passed to Update.
func (s *Scene) Elapsed() float64 { return s.elapsed }

// Render runs one whole frame of o with every object submitted. EndFrame is
// called even when drawing fails so the orchestrator is ready for the next
// frame.
func (s *Scene) Render(o *frame.Orchestrator, cam *core.Camera) error {
	if err := o.BeginFrame(cam); err != nil {
		return err
	}
	var errs []error
	for _, obj := range s.Objects {
		if err := o.Submit(obj.submission()); err != nil {
			errs = append(errs, err)
		}
	}
	errs = append(errs, o.DrawFrame(), o.EndFrame())
	return errors.Join(errs...)
}

// Destroy releases every light slot the scene holds.
func (s *Scene) Destroy() {
	for _, l := range s.Lights {
		l.Destroy()
	}
	s.Lights = nil
	s.Orbits = nil
}

// NewDemo builds the viewer's default scene: a floor, a ring of cubes with
// increasing roughness, a mirror and a glass cube, one sun and two orbiting
// point lights.
func NewDemo(dev gfx.Device, reg *lights.Registry) *Scene {
	s := New()

	floor := NewCube(dev, Material{Albedo: mgl32.Vec4{0.6, 0.6, 0.6, 1}, Roughness: 0.9, AO: 1})
	s.Add(&Object{Name: "floor", Component: floor, Position: mgl32.Vec3{0, -1.5, 0}, Scale: mgl32.Vec3{12, 0.2, 12}})

	const ring = 6
	for i := 0; i < ring; i++ {
		a := float64(i) / ring * 2 * math.Pi
		sin, cos := math.Sincos(a)
		mat := Material{
			Albedo:    mgl32.Vec4{0.9, 0.3 + 0.1*float32(i), 0.2, 1},
			Metallic:  float32(i%2) * 0.8,
			Roughness: 0.1 + 0.15*float32(i),
			AO:        1,
		}
		s.Add(&Object{
			Name:      "ring",
			Component: NewCube(dev, mat),
			Position:  mgl32.Vec3{5 * float32(cos), 0, 5 * float32(sin)},
			Scale:     mgl32.Vec3{0.6, 0.6, 0.6},
			Spin:      0.5,
		})
	}

	mirror := NewCube(dev, DefaultMaterial())
	mirror.Surface = core.ReflectRefract{Type: core.ReflectRefractReflect, Strength: 1}
	s.Add(&Object{Name: "mirror", Component: mirror, Position: mgl32.Vec3{-1.5, 0, 0}, Spin: 0.3})

	glass := NewCube(dev, DefaultMaterial())
	glass.Surface = core.ReflectRefract{Type: core.ReflectRefractRefract, Strength: 0.9, RefractRatio: 1 / 1.52}
	s.Add(&Object{Name: "glass", Component: glass, Position: mgl32.Vec3{1.5, 0, 0}, Spin: -0.3})

	sun := core.DefaultLightSlot()
	sun.Type = core.LightTypeDirectional
	sun.Direction = mgl32.Vec3{-0.3, -1, -0.4}.Normalize()
	sun.Color = mgl32.Vec3{1, 0.95, 0.85}
	sun.Intensity = 2
	sun.Attenuation = core.AttenuationNone
	s.AddLight(reg, sun)

	for i, color := range []mgl32.Vec3{{1, 0.4, 0.3}, {0.3, 0.5, 1}} {
		p := core.DefaultLightSlot()
		p.Color = color
		p.Intensity = 8
		p.Radius = 8
		l := s.AddLight(reg, p)
		s.Orbits = append(s.Orbits, &Orbit{
			Light:  l,
			Radius: 3,
			Height: 1.5,
			Speed:  0.8,
			angle:  float32(i) * math.Pi,
		})
	}
	s.Update(1e-6)
	return s
}
