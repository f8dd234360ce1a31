package gfx

import "fmt"

// CubeFace indexes cube-map layers in the standard +X,-X,+Y,-Y,+Z,-Z order
// shared by OpenGL, Vulkan and WebGPU.
type CubeFace int

const (
	CubeFacePositiveX CubeFace = iota
	CubeFaceNegativeX
	CubeFacePositiveY
	CubeFaceNegativeY
	CubeFacePositiveZ
	CubeFaceNegativeZ
)

const CubeFaceCount = 6

func (f CubeFace) String() string {
	switch f {
	case CubeFacePositiveX:
		return "+X"
	case CubeFaceNegativeX:
		return "-X"
	case CubeFacePositiveY:
		return "+Y"
	case CubeFaceNegativeY:
		return "-Y"
	case CubeFacePositiveZ:
		return "+Z"
	case CubeFaceNegativeZ:
		return "-Z"
	}
	return fmt.Sprintf("CubeFace(%d)", int(f))
}

func (f CubeFace) Valid() bool {
	return f >= CubeFacePositiveX && f <= CubeFaceNegativeZ
}

// MipLevelCount returns the number of levels of a full chain for size.
func MipLevelCount(size int) int {
	n := 0
	for size > 0 {
		n++
		size >>= 1
	}
	return n
}

// MipSize returns the edge length of level for a base size, never below 1.
func MipSize(size, level int) int {
	s := size >> level
	if s < 1 {
		s = 1
	}
	return s
}
