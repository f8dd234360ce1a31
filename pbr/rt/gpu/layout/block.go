// Package layout packs renderer data into the byte layouts WGSL expects:
// uniform blocks, storage arrays, texel rows and shape vertices. It has no
// GPU dependency so the packing rules can be tested on their own.
package layout

import (
	"encoding/binary"
	"math"

	"github.com/gekko3d/lumen/pbr/rt/gfx"

	"github.com/go-gl/mathgl/mgl32"
)

// UniformAlign is the offset alignment of dynamic uniform bindings.
const UniformAlign = 256

// Align rounds n up to a multiple of a.
func Align(n, a int) int {
	return (n + a - 1) / a * a
}

type field struct {
	offset int
	kind   gfx.UniformKind
}

func putWords(dst []byte, words []float32) {
	for i, w := range words {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(w))
	}
}

func wordsOf(kind gfx.UniformKind, v any) ([]float32, bool) {
	switch kind {
	case gfx.UniformFloat:
		f, ok := v.(float32)
		return []float32{f}, ok
	case gfx.UniformVec3:
		f, ok := v.(mgl32.Vec3)
		return f[:], ok
	case gfx.UniformVec4:
		f, ok := v.(mgl32.Vec4)
		return f[:], ok
	case gfx.UniformMat4:
		f, ok := v.(mgl32.Mat4)
		return f[:], ok
	}
	return nil, false
}

// UniformBlock is a uniform struct laid out in declaration order: matrices
// take 64 bytes, everything else one 16-byte slot.
type UniformBlock struct {
	fields map[string]field
	size   int
	data   []byte
}

func NewUniformBlock(uniforms []gfx.Uniform) *UniformBlock {
	b := &UniformBlock{fields: make(map[string]field)}
	for _, u := range uniforms {
		b.Declare(u.Name, u.Kind)
	}
	return b
}

// Declare appends name to the block. Redeclaring a name keeps its slot.
func (b *UniformBlock) Declare(name string, kind gfx.UniformKind) {
	if _, ok := b.fields[name]; ok {
		return
	}
	b.fields[name] = field{offset: b.size, kind: kind}
	b.size += kind.Size()
	b.data = append(b.data, make([]byte, kind.Size())...)
	if kind == gfx.UniformMat4 {
		id := mgl32.Ident4()
		putWords(b.data[b.size-64:], id[:])
	}
}

// Offset returns the byte offset of name.
func (b *UniformBlock) Offset(name string) (int, bool) {
	f, ok := b.fields[name]
	return f.offset, ok
}

// Size is the block size in bytes, always a multiple of 16.
func (b *UniformBlock) Size() int { return b.size }

// Bytes returns the live backing slice.
func (b *UniformBlock) Bytes() []byte { return b.data }

// Set writes v to name. It reports false when the name is unknown or v does
// not match the declared kind.
func (b *UniformBlock) Set(name string, v any) bool {
	f, ok := b.fields[name]
	if !ok {
		return false
	}
	if f.kind == gfx.UniformInt {
		i, ok := v.(int32)
		if !ok {
			return false
		}
		binary.LittleEndian.PutUint32(b.data[f.offset:], uint32(i))
		return true
	}
	words, ok := wordsOf(f.kind, v)
	if !ok {
		return false
	}
	putWords(b.data[f.offset:], words)
	return true
}

// ArrayBlock is a storage array of structs addressed as "name[i].field".
// Writes are tracked as one dirty byte range.
type ArrayBlock struct {
	name   string
	length int
	stride int
	fields map[string]field
	data   []byte
	lo, hi int
}

func NewArrayBlock(a gfx.UniformArray) *ArrayBlock {
	ab := &ArrayBlock{name: a.Name, length: a.Length, fields: make(map[string]field)}
	for _, f := range a.Fields {
		ab.fields[f.Name] = field{offset: ab.stride, kind: f.Kind}
		ab.stride += f.Kind.Size()
	}
	ab.data = make([]byte, ab.stride*ab.length)
	return ab
}

func (a *ArrayBlock) Name() string { return a.name }
func (a *ArrayBlock) Stride() int  { return a.stride }
func (a *ArrayBlock) Size() int    { return len(a.data) }

// Set writes one element field. Names outside the array are ignored.
func (a *ArrayBlock) Set(name string, v any) bool {
	arr, idx, fname, ok := gfx.ParseArrayUniform(name)
	if !ok || arr != a.name || idx >= a.length {
		return false
	}
	f, ok := a.fields[fname]
	if !ok {
		return false
	}
	words, ok := wordsOf(f.kind, v)
	if !ok {
		return false
	}
	off := idx*a.stride + f.offset
	putWords(a.data[off:], words)
	a.mark(off, off+len(words)*4)
	return true
}

func (a *ArrayBlock) mark(lo, hi int) {
	if a.hi == a.lo {
		a.lo, a.hi = lo, hi
		return
	}
	a.lo = min(a.lo, lo)
	a.hi = max(a.hi, hi)
}

// Dirty returns the changed bytes and their offset, widened to 4-byte
// boundaries, and clears the range.
func (a *ArrayBlock) Dirty() (offset int, data []byte, ok bool) {
	if a.hi == a.lo {
		return 0, nil, false
	}
	lo := a.lo &^ 3
	hi := Align(a.hi, 4)
	a.lo, a.hi = 0, 0
	return lo, a.data[lo:hi], true
}

// Float32 reads back one float at a byte offset.
func Float32(b []byte, offset int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b[offset:]))
}
