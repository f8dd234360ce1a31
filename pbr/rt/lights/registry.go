// Package lights owns the shader-visible light slot index space.
//
// A Registry hands out indices into uLightArray, keeps a CPU mirror of every
// live slot and pushes each mutation synchronously to every program in its
// ShaderSet, so all programs agree on every live index as soon as a call
// returns.
package lights

import (
	"fmt"

	"github.com/gekko3d/lumen"
	"github.com/gekko3d/lumen/pbr/rt/core"
	"github.com/gekko3d/lumen/pbr/rt/gfx"

	"github.com/go-gl/mathgl/mgl32"
)

// Attribute names one field of a light slot.
type Attribute int

const (
	AttrPosition Attribute = iota
	AttrDirection
	AttrColor
	AttrIntensity
	AttrRadius
	AttrEnabled
	AttrAttenuation
	AttrType
)

func (a Attribute) String() string {
	switch a {
	case AttrPosition:
		return "position"
	case AttrDirection:
		return "direction"
	case AttrColor:
		return "color"
	case AttrIntensity:
		return "intensity"
	case AttrRadius:
		return "radius"
	case AttrEnabled:
		return "enabled"
	case AttrAttenuation:
		return "attenuation"
	case AttrType:
		return "type"
	}
	return fmt.Sprintf("Attribute(%d)", int(a))
}

// packedInParam1 reports whether the attribute lives in the shared param1 vector.
func (a Attribute) packedInParam1() bool {
	switch a {
	case AttrRadius, AttrEnabled, AttrAttenuation, AttrType:
		return true
	}
	return false
}

// ShaderSet is the ordered set of programs that consume the light contract.
type ShaderSet []gfx.Program

// broadcast applies fn to every program in order.
func (s ShaderSet) broadcast(fn func(p gfx.Program)) {
	for _, p := range s {
		fn(p)
	}
}

// Declare registers the light uniforms on every program.
func (s ShaderSet) Declare() {
	s.broadcast(func(p gfx.Program) {
		p.DeclareUniform(core.LightAmountUniform, gfx.UniformInt)
	})
}

type Registry struct {
	shaders ShaderSet
	logger  lumen.Logger

	capacity int
	next     int   // first never-used index; also the value of uLightAmount
	free     []int // released indices, reused front-first
	live     []bool
	slots    []core.LightSlot
	names    []core.LightUniformNames
}

// NewRegistry builds a registry with core.MaxLights slots broadcasting to shaders.
func NewRegistry(logger lumen.Logger, shaders ...gfx.Program) *Registry {
	return NewRegistryWithCapacity(core.MaxLights, logger, shaders...)
}

// NewRegistryWithCapacity is NewRegistry with a smaller slot count. The
// capacity is clamped to core.MaxLights, the size of the shader array.
func NewRegistryWithCapacity(capacity int, logger lumen.Logger, shaders ...gfx.Program) *Registry {
	if capacity <= 0 || capacity > core.MaxLights {
		capacity = core.MaxLights
	}
	r := &Registry{
		shaders:  ShaderSet(shaders),
		logger:   lumen.OrNop(logger),
		capacity: capacity,
		free:     make([]int, 0, 64),
		live:     make([]bool, capacity),
		slots:    make([]core.LightSlot, capacity),
		names:    make([]core.LightUniformNames, capacity),
	}
	for i := range r.names {
		r.names[i] = core.NewLightUniformNames(i)
	}
	r.shaders.Declare()
	return r
}

func (r *Registry) Capacity() int { return r.capacity }

// Live returns the number of slots currently held.
func (r *Registry) Live() int {
	return r.next - len(r.free)
}

// HighWater returns the number of indices ever handed out, which is the
// value pushed as uLightAmount.
func (r *Registry) HighWater() int { return r.next }

// Slot returns the CPU mirror of a live slot.
func (r *Registry) Slot(index int) (core.LightSlot, bool) {
	if !r.isLive(index) {
		return core.LightSlot{}, false
	}
	return r.slots[index], true
}

func (r *Registry) isLive(index int) bool {
	return index >= 0 && index < r.capacity && r.live[index]
}

// Acquire returns a free index. Released indices are reused in the order they
// were released before the high-water mark grows. Once every slot is live it
// returns core.ErrCapacityExceeded and changes nothing.
//
// The slot starts from core.DefaultLightSlot and is pushed to every program,
// so a reused index never keeps its previous occupant's values.
func (r *Registry) Acquire() (int, error) {
	var index int
	switch {
	case len(r.free) > 0:
		index = r.free[0]
		r.free = r.free[1:]
	case r.next < r.capacity:
		index = r.next
		r.next++
		amount := int32(r.next)
		r.shaders.broadcast(func(p gfx.Program) {
			p.SetInt(core.LightAmountUniform, amount)
		})
	default:
		return -1, fmt.Errorf("acquire light slot (%d live): %w", r.capacity, core.ErrCapacityExceeded)
	}
	r.live[index] = true
	slot := core.DefaultLightSlot()
	slot.Index = index
	r.slots[index] = slot
	r.Push(index)
	return index, nil
}

// Release turns the slot off in every program and only then returns the index
// to the free list, so a reused slot never renders its previous occupant.
func (r *Registry) Release(index int) error {
	if !r.isLive(index) {
		return fmt.Errorf("release light slot %d: slot is not live", index)
	}
	r.slots[index].Enabled = false
	param1 := r.slots[index].Param1()
	name := r.names[index].Param1
	r.shaders.broadcast(func(p gfx.Program) {
		p.SetVec4(name, param1)
	})
	r.live[index] = false
	r.free = append(r.free, index)
	return nil
}

// Set replaces every field of a live slot and pushes all of it.
func (r *Registry) Set(index int, slot core.LightSlot) error {
	if !r.isLive(index) {
		return fmt.Errorf("set light slot %d: slot is not live", index)
	}
	slot.Index = index
	r.slots[index] = slot
	r.Push(index)
	return nil
}

// Push re-sends the four vectors of a live slot to every program.
func (r *Registry) Push(index int) {
	if !r.isLive(index) {
		return
	}
	s := r.slots[index]
	n := r.names[index]
	color := s.ColorVec()
	param1 := s.Param1()
	r.shaders.broadcast(func(p gfx.Program) {
		p.SetVec3(n.Position, s.Position)
		p.SetVec3(n.Direction, s.Direction)
		p.SetVec4(n.Color, color)
		p.SetVec4(n.Param1, param1)
	})
}

// UpdateAttribute stores value for attr and pushes the uniform it lives in.
// Color and intensity share `.color`; type, radius, enabled and attenuation
// share `.param1`, which is re-derived from the mirror on every change.
// Values are not range-checked.
func (r *Registry) UpdateAttribute(index int, attr Attribute, value any) error {
	if !r.isLive(index) {
		return fmt.Errorf("update %s of light slot %d: slot is not live", attr, index)
	}
	s := &r.slots[index]
	if err := assign(s, attr, value); err != nil {
		return fmt.Errorf("update %s of light slot %d: %w", attr, index, err)
	}
	n := r.names[index]

	switch {
	case attr == AttrPosition:
		v := s.Position
		r.shaders.broadcast(func(p gfx.Program) { p.SetVec3(n.Position, v) })
	case attr == AttrDirection:
		v := s.Direction
		r.shaders.broadcast(func(p gfx.Program) { p.SetVec3(n.Direction, v) })
	case attr == AttrColor || attr == AttrIntensity:
		v := s.ColorVec()
		r.shaders.broadcast(func(p gfx.Program) { p.SetVec4(n.Color, v) })
	case attr.packedInParam1():
		v := s.Param1()
		r.shaders.broadcast(func(p gfx.Program) { p.SetVec4(n.Param1, v) })
	}
	return nil
}

func assign(s *core.LightSlot, attr Attribute, value any) error {
	switch attr {
	case AttrPosition, AttrDirection, AttrColor:
		v, ok := value.(mgl32.Vec3)
		if !ok {
			return fmt.Errorf("want mgl32.Vec3, got %T", value)
		}
		switch attr {
		case AttrPosition:
			s.Position = v
		case AttrDirection:
			s.Direction = v
		default:
			s.Color = v
		}
	case AttrIntensity, AttrRadius:
		v, ok := toFloat32(value)
		if !ok {
			return fmt.Errorf("want float32, got %T", value)
		}
		if attr == AttrIntensity {
			s.Intensity = v
		} else {
			s.Radius = v
		}
	case AttrEnabled:
		v, ok := value.(bool)
		if !ok {
			return fmt.Errorf("want bool, got %T", value)
		}
		s.Enabled = v
	case AttrAttenuation:
		v, ok := value.(core.AttenuationMode)
		if !ok {
			return fmt.Errorf("want core.AttenuationMode, got %T", value)
		}
		s.Attenuation = v
	case AttrType:
		v, ok := value.(core.LightType)
		if !ok {
			return fmt.Errorf("want core.LightType, got %T", value)
		}
		s.Type = v
	default:
		return fmt.Errorf("unknown attribute %d", int(attr))
	}
	return nil
}

func toFloat32(value any) (float32, bool) {
	switch v := value.(type) {
	case float32:
		return v, true
	case float64:
		return float32(v), true
	case int:
		return float32(v), true
	}
	return 0, false
}
