// Package asset loads equirectangular panoramas into linear float RGBA.
//
// Radiance .hdr files are decoded directly; png, jpeg, gif, tiff, bmp and
// webp go through image.Decode and are converted from sRGB to linear.
package asset

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var ErrUnknownFormat = errors.New("unknown image format")

// ErrTooLarge is returned for images with a side above MaxDimension.
var ErrTooLarge = errors.New("image too large")

// MaxDimension bounds each side of a decoded image.
const MaxDimension = 1 << 14

// checkDimensions runs before any pixel buffer is allocated.
func checkDimensions(w, h int) error {
	if w <= 0 || h <= 0 {
		return fmt.Errorf("size %dx%d", w, h)
	}
	if w > MaxDimension || h > MaxDimension {
		return fmt.Errorf("size %dx%d exceeds %d: %w", w, h, MaxDimension, ErrTooLarge)
	}
	return nil
}

// RadianceType is the filetype entry registered for Radiance RGBE files.
var RadianceType = filetype.NewType("hdr", "image/vnd.radiance")

func init() {
	filetype.AddMatcher(RadianceType, isRadiance)
}

func isRadiance(head []byte) bool {
	return bytes.HasPrefix(head, []byte("#?RADIANCE")) || bytes.HasPrefix(head, []byte("#?RGBE"))
}

// FloatImage is a linear RGBA image stored top row first.
type FloatImage struct {
	Width  int
	Height int
	Pix    []float32
}

func NewFloatImage(w, h int) *FloatImage {
	return &FloatImage{Width: w, Height: h, Pix: make([]float32, w*h*4)}
}

func (m *FloatImage) At(x, y int) [4]float32 {
	i := (y*m.Width + x) * 4
	return [4]float32{m.Pix[i], m.Pix[i+1], m.Pix[i+2], m.Pix[i+3]}
}

func (m *FloatImage) Set(x, y int, c [4]float32) {
	i := (y*m.Width + x) * 4
	copy(m.Pix[i:i+4], c[:])
}

// Validate reports images that cannot be uploaded.
func (m *FloatImage) Validate() error {
	if m == nil || m.Width <= 0 || m.Height <= 0 {
		return errors.New("empty image")
	}
	if len(m.Pix) != m.Width*m.Height*4 {
		return fmt.Errorf("pixel buffer holds %d floats, want %d", len(m.Pix), m.Width*m.Height*4)
	}
	return nil
}

// Sniff returns the detected type of data.
func Sniff(data []byte) (types.Type, error) {
	kind, err := filetype.Match(data)
	if err != nil {
		return filetype.Unknown, err
	}
	if kind == filetype.Unknown {
		return kind, ErrUnknownFormat
	}
	return kind, nil
}

// LoadEquirect reads path and decodes it by content, not by extension.
func LoadEquirect(path string) (*FloatImage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	img, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

// Decode decodes an in-memory image.
func Decode(data []byte) (*FloatImage, error) {
	kind, err := Sniff(data)
	if err != nil {
		return nil, err
	}
	if kind == RadianceType {
		return DecodeHDR(bytes.NewReader(data))
	}
	if !filetype.IsImage(data) {
		return nil, fmt.Errorf("%s (%s): %w", kind.Extension, kind.MIME.Value, ErrUnknownFormat)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", kind.Extension, err)
	}
	if err := checkDimensions(cfg.Width, cfg.Height); err != nil {
		return nil, fmt.Errorf("decode %s: %w", kind.Extension, err)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", kind.Extension, err)
	}
	return FromImage(img), nil
}

// FromImage converts an sRGB image to linear floats.
func FromImage(img image.Image) *FloatImage {
	b := img.Bounds()
	out := NewFloatImage(b.Dx(), b.Dy())
	for y := 0; y < out.Height; y++ {
		for x := 0; x < out.Width; x++ {
			c := color.NRGBA64Model.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA64)
			out.Set(x, y, [4]float32{
				srgbToLinear(float64(c.R) / 0xffff),
				srgbToLinear(float64(c.G) / 0xffff),
				srgbToLinear(float64(c.B) / 0xffff),
				float32(c.A) / 0xffff,
			})
		}
	}
	return out
}

func srgbToLinear(v float64) float32 {
	if v <= 0.04045 {
		return float32(v / 12.92)
	}
	return float32(math.Pow((v+0.055)/1.055, 2.4))
}
