package gpu

import "github.com/gekko3d/lumen/pbr/rt/gfx"

// placeholderTexture returns a black texture for slots nothing is bound to.
func (d *Device) placeholderTexture(cube bool) (bindable, error) {
	if t, ok := d.placeholder[cube]; ok {
		return t, nil
	}
	if d.placeholder == nil {
		d.placeholder = make(map[bool]bindable)
	}
	var (
		t   bindable
		err error
	)
	if cube {
		t, err = newCubeMap(d, gfx.CubeMapDesc{Label: "placeholder cube", Size: 1, Format: gfx.FormatRGBA16F})
	} else {
		t, err = newTexture(d, gfx.TextureDesc{
			Label: "placeholder", Width: 1, Height: 1, Format: gfx.FormatRGBA8,
			Pixels: []float32{0, 0, 0, 1},
		})
	}
	if err != nil {
		return nil, err
	}
	d.placeholder[cube] = t
	return t, nil
}
