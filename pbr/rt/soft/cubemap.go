package soft

import (
	"fmt"

	"github.com/gekko3d/lumen/pbr/rt/gfx"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// CubeMap stores six faces per mip level. Face layout follows the GL cube
// map convention, row 0 at t = 0.
type CubeMap struct {
	dev    *Device
	label  string
	size   int
	format gfx.Format
	filter gfx.Filter
	levels [][gfx.CubeFaceCount][]float32

	released bool
}

func newCubeMap(d *Device, label string, desc gfx.CubeMapDesc) *CubeMap {
	n := 1
	if desc.Mipmaps {
		n = gfx.MipLevelCount(desc.Size)
	}
	c := &CubeMap{
		dev:    d,
		label:  label,
		size:   desc.Size,
		format: desc.Format,
		filter: desc.Filter,
		levels: make([][gfx.CubeFaceCount][]float32, n),
	}
	for l := range c.levels {
		s := gfx.MipSize(desc.Size, l)
		for f := 0; f < gfx.CubeFaceCount; f++ {
			c.levels[l][f] = make([]float32, s*s*4)
		}
	}
	return c
}

func (c *CubeMap) Label() string      { return c.label }
func (c *CubeMap) Width() int         { return c.size }
func (c *CubeMap) Height() int        { return c.size }
func (c *CubeMap) Format() gfx.Format { return c.format }
func (c *CubeMap) MipLevels() int     { return len(c.levels) }

func (c *CubeMap) BindToSlot(slot int) {
	c.dev.slots[slot] = c
}

func (c *CubeMap) Release() {
	if c.released {
		return
	}
	c.released = true
	c.levels = nil
	c.dev.live--
}

// Face returns a copy of one face at one mip level.
func (c *CubeMap) Face(face gfx.CubeFace, mip int) []float32 {
	return append([]float32(nil), c.levels[mip][face]...)
}

// At returns the texel at column x, row y of a face.
func (c *CubeMap) At(face gfx.CubeFace, mip, x, y int) mgl32.Vec4 {
	s := gfx.MipSize(c.size, mip)
	p := c.levels[mip][face]
	i := (y*s + x) * 4
	return mgl32.Vec4{p[i], p[i+1], p[i+2], p[i+3]}
}

// ComputeMipmap rebuilds every level from level 0 with a 2x2 box filter.
func (c *CubeMap) ComputeMipmap() error {
	if c.released {
		return fmt.Errorf("compute mipmap of %s: released", c.label)
	}
	for l := 1; l < len(c.levels); l++ {
		src := gfx.MipSize(c.size, l-1)
		dst := gfx.MipSize(c.size, l)
		for f := 0; f < gfx.CubeFaceCount; f++ {
			in := c.levels[l-1][f]
			out := c.levels[l][f]
			for y := 0; y < dst; y++ {
				for x := 0; x < dst; x++ {
					var sum mgl32.Vec4
					for _, o := range [4][2]int{{0, 0}, {1, 0}, {0, 1}, {1, 1}} {
						sx := min(2*x+o[0], src-1)
						sy := min(2*y+o[1], src-1)
						i := (sy*src + sx) * 4
						sum = sum.Add(mgl32.Vec4{in[i], in[i+1], in[i+2], in[i+3]})
					}
					sum = sum.Mul(0.25)
					copy(out[(y*dst+x)*4:], sum[:])
				}
			}
		}
	}
	return nil
}

// faceSurface is one face of one mip level used as a color attachment.
type faceSurface struct {
	cube *CubeMap
	face gfx.CubeFace
	mip  int
}

func (s faceSurface) size() (int, int) {
	n := gfx.MipSize(s.cube.size, s.mip)
	return n, n
}

func (s faceSurface) set(x, y int, c mgl32.Vec4) {
	n := gfx.MipSize(s.cube.size, s.mip)
	copy(s.cube.levels[s.mip][s.face][(y*n+x)*4:], c[:])
}

func (s faceSurface) clear() {
	clear(s.cube.levels[s.mip][s.face])
}

// Sample looks up direction dir at mip level lod, interpolating between
// levels when the cube is trilinear.
func (c *CubeMap) Sample(dir mgl32.Vec3, lod float32) mgl32.Vec4 {
	face, s, t := cubeCoords(dir)
	maxLod := float32(len(c.levels) - 1)
	lod = mgl32.Clamp(lod, 0, maxLod)
	if c.filter != gfx.FilterTrilinear || len(c.levels) == 1 {
		return c.sampleFace(face, int(math32.Round(lod)), s, t)
	}
	l0 := math32.Floor(lod)
	frac := lod - l0
	a := c.sampleFace(face, int(l0), s, t)
	if frac == 0 {
		return a
	}
	b := c.sampleFace(face, int(l0)+1, s, t)
	return a.Mul(1 - frac).Add(b.Mul(frac))
}

func (c *CubeMap) sampleFace(face gfx.CubeFace, mip int, s, t float32) mgl32.Vec4 {
	n := gfx.MipSize(c.size, mip)
	if c.filter == gfx.FilterNearest {
		x := clampInt(int(s*float32(n)), 0, n-1)
		y := clampInt(int(t*float32(n)), 0, n-1)
		return c.At(face, mip, x, y)
	}
	return bilinear(s, t, n, n, func(x, y int) mgl32.Vec4 {
		return c.At(face, mip, clampInt(x, 0, n-1), clampInt(y, 0, n-1))
	})
}

// cubeCoords selects the face for dir and returns its s,t in [0,1].
func cubeCoords(dir mgl32.Vec3) (gfx.CubeFace, float32, float32) {
	x, y, z := dir[0], dir[1], dir[2]
	ax, ay, az := math32.Abs(x), math32.Abs(y), math32.Abs(z)

	var face gfx.CubeFace
	var sc, tc, ma float32
	switch {
	case ax >= ay && ax >= az:
		ma = ax
		if x > 0 {
			face, sc, tc = gfx.CubeFacePositiveX, -z, -y
		} else {
			face, sc, tc = gfx.CubeFaceNegativeX, z, -y
		}
	case ay >= az:
		ma = ay
		if y > 0 {
			face, sc, tc = gfx.CubeFacePositiveY, x, z
		} else {
			face, sc, tc = gfx.CubeFaceNegativeY, x, -z
		}
	default:
		ma = az
		if z > 0 {
			face, sc, tc = gfx.CubeFacePositiveZ, x, -y
		} else {
			face, sc, tc = gfx.CubeFaceNegativeZ, -x, -y
		}
	}
	if ma == 0 {
		return gfx.CubeFacePositiveX, 0.5, 0.5
	}
	return face, (sc/ma + 1) * 0.5, (tc/ma + 1) * 0.5
}
