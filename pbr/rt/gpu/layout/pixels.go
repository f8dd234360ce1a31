package layout

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gekko3d/lumen/pbr/rt/gfx"

	"github.com/x448/float16"
)

// BytesPerTexel returns the upload size of one texel of f. RGBA32F is
// uploaded as half floats like RGBA16F.
func BytesPerTexel(f gfx.Format) int {
	switch f {
	case gfx.FormatRGBA8, gfx.FormatDepth32F:
		return 4
	case gfx.FormatRGBA16F, gfx.FormatRGBA32F:
		return 8
	}
	return 0
}

// PackTexels converts RGBA float32 texels to the upload bytes of f.
func PackTexels(f gfx.Format, pixels []float32) ([]byte, error) {
	if len(pixels)%4 != 0 {
		return nil, fmt.Errorf("pack texels: %d floats is not whole RGBA texels", len(pixels))
	}
	switch f {
	case gfx.FormatRGBA8:
		out := make([]byte, len(pixels))
		for i, v := range pixels {
			out[i] = unorm8(v)
		}
		return out, nil
	case gfx.FormatRGBA16F, gfx.FormatRGBA32F:
		out := make([]byte, len(pixels)*2)
		for i, v := range pixels {
			binary.LittleEndian.PutUint16(out[i*2:], float16.Fromfloat32(v).Bits())
		}
		return out, nil
	}
	return nil, fmt.Errorf("pack texels: format %d: %w", f, gfx.ErrUnsupported)
}

func unorm8(v float32) byte {
	if v <= 0 || math.IsNaN(float64(v)) {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return byte(v*255 + 0.5)
}
