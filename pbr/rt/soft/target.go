package soft

import (
	"fmt"
	"sort"

	"github.com/gekko3d/lumen/pbr/rt/gfx"

	"github.com/go-gl/mathgl/mgl32"
)

// surface is anything a draw can write color into.
type surface interface {
	size() (int, int)
	set(x, y int, c mgl32.Vec4)
	clear()
}

type attachment struct {
	name    string
	index   int
	surface surface
	tex     gfx.Texture
}

type RenderTarget struct {
	dev   *Device
	label string
	color []attachment

	depth          []float32
	depthW, depthH int

	released bool
}

func (t *RenderTarget) Label() string { return t.label }

func (t *RenderTarget) Bind() {
	t.dev.target = t
	t.dev.emit(OpBindTarget, t.label)
}

func (t *RenderTarget) Unbind() {
	if t.dev.target == t {
		t.dev.target = nil
	}
	t.dev.emit(OpUnbindTarget, t.label)
}

func (t *RenderTarget) attach(a attachment) {
	for i := range t.color {
		if t.color[i].name == a.name || t.color[i].index == a.index {
			t.color[i] = a
			t.sortColor()
			return
		}
	}
	t.color = append(t.color, a)
	t.sortColor()
}

func (t *RenderTarget) sortColor() {
	sort.Slice(t.color, func(i, j int) bool { return t.color[i].index < t.color[j].index })
}

func (t *RenderTarget) AttachColor(name string, tex gfx.Texture, index int) error {
	st, ok := tex.(*Texture)
	if !ok {
		return fmt.Errorf("attach %s to %s: %T is not a soft texture: %w", name, t.label, tex, gfx.ErrUnsupported)
	}
	t.attach(attachment{name: name, index: index, surface: st, tex: st})
	return nil
}

func (t *RenderTarget) AttachCubeFace(name string, cube gfx.CubeMap, face gfx.CubeFace, mip int) error {
	c, ok := cube.(*CubeMap)
	if !ok {
		return fmt.Errorf("attach %s to %s: %T is not a soft cube map: %w", name, t.label, cube, gfx.ErrUnsupported)
	}
	if !face.Valid() || mip < 0 || mip >= c.MipLevels() {
		return fmt.Errorf("attach %s face %s mip %d to %s: out of range", name, face, mip, t.label)
	}
	t.attach(attachment{name: name, index: 0, surface: faceSurface{cube: c, face: face, mip: mip}, tex: c})
	return nil
}

func (t *RenderTarget) AttachDepth(width, height int) error {
	if err := t.dev.checkSize(t.label+" depth", width, height); err != nil {
		return err
	}
	t.depth = make([]float32, width*height)
	t.depthW, t.depthH = width, height
	t.clearDepth()
	return nil
}

func (t *RenderTarget) Attachment(name string) (gfx.Texture, bool) {
	for _, a := range t.color {
		if a.name == name {
			return a.tex, true
		}
	}
	return nil, false
}

func (t *RenderTarget) Release() {
	if t.released {
		return
	}
	t.released = true
	t.color = nil
	t.depth = nil
	t.dev.live--
}

func (t *RenderTarget) size() (int, int) {
	if len(t.color) == 0 {
		return t.depthW, t.depthH
	}
	w, h := t.color[0].surface.size()
	for _, a := range t.color[1:] {
		aw, ah := a.surface.size()
		w, h = min(w, aw), min(h, ah)
	}
	return w, h
}

func (t *RenderTarget) clear() {
	for _, a := range t.color {
		a.surface.clear()
	}
	t.clearDepth()
}

func (t *RenderTarget) clearDepth() {
	for i := range t.depth {
		t.depth[i] = 1
	}
}

// depthAt returns the depth buffer index for x,y or -1 when there is none.
func (t *RenderTarget) depthAt(x, y int) int {
	if t.depth == nil || x >= t.depthW || y >= t.depthH {
		return -1
	}
	return y*t.depthW + x
}
