package soft

import (
	"github.com/gekko3d/lumen/pbr/rt/gfx"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Texture is a 2D RGBA float image stored bottom row first.
type Texture struct {
	dev    *Device
	label  string
	w, h   int
	format gfx.Format
	filter gfx.Filter
	wrap   gfx.Wrap
	pix    []float32

	released bool
}

func newTexture(d *Device, label string, desc gfx.TextureDesc) *Texture {
	t := &Texture{
		dev:    d,
		label:  label,
		w:      desc.Width,
		h:      desc.Height,
		format: desc.Format,
		filter: desc.Filter,
		wrap:   desc.Wrap,
		pix:    make([]float32, desc.Width*desc.Height*4),
	}
	if desc.Pixels != nil {
		// input rows are top first
		stride := t.w * 4
		for y := 0; y < t.h; y++ {
			src := desc.Pixels[(t.h-1-y)*stride : (t.h-y)*stride]
			copy(t.pix[y*stride:(y+1)*stride], src)
		}
		if t.format == gfx.FormatRGBA8 {
			for i, v := range t.pix {
				t.pix[i] = quantize8(v)
			}
		}
	}
	return t
}

func (t *Texture) Label() string      { return t.label }
func (t *Texture) Width() int         { return t.w }
func (t *Texture) Height() int        { return t.h }
func (t *Texture) Format() gfx.Format { return t.format }

func (t *Texture) BindToSlot(slot int) {
	t.dev.slots[slot] = t
}

func (t *Texture) Release() {
	if t.released {
		return
	}
	t.released = true
	t.pix = nil
	t.dev.live--
}

// At returns the texel at column x, row y (row 0 at the bottom).
func (t *Texture) At(x, y int) mgl32.Vec4 {
	i := (y*t.w + x) * 4
	return mgl32.Vec4{t.pix[i], t.pix[i+1], t.pix[i+2], t.pix[i+3]}
}

// Pixels returns a copy of the image, top row first.
func (t *Texture) Pixels() []float32 {
	out := make([]float32, len(t.pix))
	stride := t.w * 4
	for y := 0; y < t.h; y++ {
		copy(out[(t.h-1-y)*stride:(t.h-y)*stride], t.pix[y*stride:(y+1)*stride])
	}
	return out
}

func (t *Texture) size() (int, int) { return t.w, t.h }

func (t *Texture) set(x, y int, c mgl32.Vec4) {
	i := (y*t.w + x) * 4
	if t.format == gfx.FormatRGBA8 {
		for k := 0; k < 4; k++ {
			t.pix[i+k] = quantize8(c[k])
		}
		return
	}
	copy(t.pix[i:i+4], c[:])
}

func (t *Texture) clear() {
	clear(t.pix)
}

// Sample reads the texture at uv with v = 0 on the bottom row.
func (t *Texture) Sample(u, v float32) mgl32.Vec4 {
	if t.filter == gfx.FilterNearest {
		x := t.coord(int(math32.Floor(u*float32(t.w))), t.w)
		y := t.coord(int(math32.Floor(v*float32(t.h))), t.h)
		return t.At(x, y)
	}
	return bilinear(u, v, t.w, t.h, func(x, y int) mgl32.Vec4 {
		return t.At(t.coord(x, t.w), t.coord(y, t.h))
	})
}

func (t *Texture) coord(i, n int) int {
	if t.wrap == gfx.WrapRepeat {
		i %= n
		if i < 0 {
			i += n
		}
		return i
	}
	return clampInt(i, 0, n-1)
}

func bilinear(u, v float32, w, h int, at func(x, y int) mgl32.Vec4) mgl32.Vec4 {
	x := u*float32(w) - 0.5
	y := v*float32(h) - 0.5
	x0 := math32.Floor(x)
	y0 := math32.Floor(y)
	fx := x - x0
	fy := y - y0
	ix, iy := int(x0), int(y0)

	c00 := at(ix, iy)
	c10 := at(ix+1, iy)
	c01 := at(ix, iy+1)
	c11 := at(ix+1, iy+1)
	bottom := c00.Mul(1 - fx).Add(c10.Mul(fx))
	top := c01.Mul(1 - fx).Add(c11.Mul(fx))
	return bottom.Mul(1 - fy).Add(top.Mul(fy))
}

func quantize8(v float32) float32 {
	v = mgl32.Clamp(v, 0, 1)
	return math32.Round(v*255) / 255
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
