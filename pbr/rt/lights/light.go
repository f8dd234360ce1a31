package lights

import (
	"errors"

	"github.com/gekko3d/lumen/pbr/rt/core"

	"github.com/go-gl/mathgl/mgl32"
)

// Light is a handle to one registry slot. A Light created while the registry
// is full holds no slot: every setter is a no-op and Valid reports false.
type Light struct {
	reg   *Registry
	index int
}

// NewLight acquires a slot and pushes params to every program.
func NewLight(reg *Registry, params core.LightSlot) *Light {
	index, err := reg.Acquire()
	if err != nil {
		if errors.Is(err, core.ErrCapacityExceeded) {
			reg.logger.Warnf("Cannot create more than %d lights", reg.capacity)
		} else {
			reg.logger.Errorf("create light: %v", err)
		}
		return &Light{reg: reg, index: -1}
	}
	if err := reg.Set(index, params); err != nil {
		reg.logger.Warnf("light %d: %v", index, err)
	}
	return &Light{reg: reg, index: index}
}

func (l *Light) Valid() bool { return l.index >= 0 }

// Index returns the slot index, or -1 for a light over capacity or destroyed.
func (l *Light) Index() int { return l.index }

func (l *Light) update(attr Attribute, value any) {
	if !l.Valid() {
		return
	}
	if err := l.reg.UpdateAttribute(l.index, attr, value); err != nil {
		l.reg.logger.Warnf("light %d: %v", l.index, err)
	}
}

func (l *Light) SetPosition(p mgl32.Vec3)  { l.update(AttrPosition, p) }
func (l *Light) SetDirection(d mgl32.Vec3) { l.update(AttrDirection, d) }
func (l *Light) SetColor(c mgl32.Vec3)     { l.update(AttrColor, c) }
func (l *Light) SetIntensity(i float32)    { l.update(AttrIntensity, i) }
func (l *Light) SetRadius(r float32)       { l.update(AttrRadius, r) }
func (l *Light) SetEnabled(on bool)        { l.update(AttrEnabled, on) }

func (l *Light) SetAttenuationMode(m core.AttenuationMode) { l.update(AttrAttenuation, m) }
func (l *Light) SetLightType(t core.LightType)             { l.update(AttrType, t) }

// Params returns the current CPU-side parameters of the slot.
func (l *Light) Params() (core.LightSlot, bool) {
	if !l.Valid() {
		return core.LightSlot{}, false
	}
	return l.reg.Slot(l.index)
}

// Destroy turns the light off in every program and frees its slot. Calling it
// twice is harmless.
func (l *Light) Destroy() {
	if !l.Valid() {
		return
	}
	if err := l.reg.Release(l.index); err != nil {
		l.reg.logger.Warnf("destroy light %d: %v", l.index, err)
	}
	l.index = -1
}
