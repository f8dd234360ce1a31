package asset

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

func hdrHeader(res string) []byte {
	return []byte("#?RADIANCE\nFORMAT=32-bit_rle_rgbe\nEXPOSURE=1.0\n\n" + res + "\n")
}

// rleScanline encodes one scanline with literal dumps for r, g and e and a
// single run for b.
func rleScanline(pixels [][4]byte) []byte {
	w := len(pixels)
	out := []byte{2, 2, byte(w >> 8), byte(w)}
	for ch := 0; ch < 4; ch++ {
		if ch == 2 {
			out = append(out, byte(128+w), pixels[0][2])
			continue
		}
		out = append(out, byte(w))
		for _, p := range pixels {
			out = append(out, p[ch])
		}
	}
	return out
}

func TestDecodeHDRFlat(t *testing.T) {
	data := hdrHeader("-Y 2 +X 1")
	data = append(data, 128, 64, 0, 129) // top
	data = append(data, 0, 0, 0, 0)      // bottom

	img, err := Decode(data)
	require.NoError(t, err)
	require.Equal(t, 1, img.Width)
	require.Equal(t, 2, img.Height)
	assert.Equal(t, [4]float32{1.00390625, 0.50390625, 0.00390625, 1}, img.At(0, 0))
	assert.Equal(t, [4]float32{0, 0, 0, 1}, img.At(0, 1))
}

func TestDecodeHDRFlipY(t *testing.T) {
	data := hdrHeader("+Y 2 +X 1")
	data = append(data, 0, 0, 0, 0)      // stored first, bottom of the image
	data = append(data, 128, 64, 0, 129) // top

	img, err := DecodeHDR(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, float32(1.00390625), img.At(0, 0)[0])
	assert.Equal(t, float32(0), img.At(0, 1)[0])
}

func TestDecodeHDRRunLength(t *testing.T) {
	const w = 8
	pixels := make([][4]byte, w)
	for i := range pixels {
		pixels[i] = [4]byte{byte(i * 16), 0, 32, 128}
	}
	data := hdrHeader("-Y 1 +X 8")
	data = append(data, rleScanline(pixels)...)

	img, err := Decode(data)
	require.NoError(t, err)
	for x := 0; x < w; x++ {
		got := img.At(x, 0)
		r, _, b := rgbeToFloat(pixels[x][0], 0, 32, 128)
		assert.Equal(t, r, got[0])
		assert.Equal(t, b, got[2])
	}
}

func TestDecodeHDRRejectsBrokenFiles(t *testing.T) {
	tests := map[string][]byte{
		"truncated header": []byte("#?RADIANCE\nFORMAT=32-bit_rle_rgbe\n"),
		"empty":            {},
		"xyz format":       []byte("#?RADIANCE\nFORMAT=32-bit_rle_xyze\n\n-Y 1 +X 1\n\x00\x00\x00\x00"),
		"bad resolution":   append(hdrHeader("-Y x +X 1"), 0, 0, 0, 0),
		"rotated":          append(hdrHeader("+X 1 -Y 1"), 0, 0, 0, 0),
		"truncated pixels": append(hdrHeader("-Y 2 +X 1"), 1, 2, 3),
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(data)
			assert.Error(t, err)
		})
	}
}

func TestDecodeRejectsOversizedImages(t *testing.T) {
	data := append(hdrHeader("-Y 2000000000 +X 2000000000"), 0, 0, 0, 0)
	_, err := Decode(data)
	assert.ErrorIs(t, err, ErrTooLarge)
	assert.ErrorIs(t, err, errBadHDR)

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 1, MaxDimension+1))))
	_, err = Decode(buf.Bytes())
	assert.ErrorIs(t, err, ErrTooLarge)

	buf.Reset()
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 1, MaxDimension))))
	img, err := Decode(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, MaxDimension, img.Height)
}

func TestDecodeConvertsSRGB(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	src.Set(0, 0, color.NRGBA{R: 255, G: 0, B: 0, A: 255})
	src.Set(1, 0, color.NRGBA{R: 188, G: 188, B: 188, A: 255})

	for name, encode := range map[string]func(*bytes.Buffer) error{
		"png": func(b *bytes.Buffer) error { return png.Encode(b, src) },
		"bmp": func(b *bytes.Buffer) error { return bmp.Encode(b, src) },
	} {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, encode(&buf))
			img, err := Decode(buf.Bytes())
			require.NoError(t, err)
			require.NoError(t, img.Validate())
			assert.InDelta(t, 1, img.At(0, 0)[0], 1e-6)
			assert.InDelta(t, 0, img.At(0, 0)[1], 1e-6)
			assert.InDelta(t, 0.5, img.At(1, 0)[0], 0.01)
			assert.InDelta(t, 1, img.At(1, 0)[3], 1e-6)
		})
	}
}

func TestSniff(t *testing.T) {
	kind, err := Sniff(hdrHeader("-Y 1 +X 1"))
	require.NoError(t, err)
	assert.Equal(t, RadianceType, kind)

	_, err = Sniff([]byte("plain text, not an image"))
	assert.ErrorIs(t, err, ErrUnknownFormat)

	_, err = Decode(nil)
	assert.Error(t, err)
}

func TestLoadEquirect(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sky.hdr")
	data := append(hdrHeader("-Y 1 +X 2"), 128, 128, 128, 129, 0, 0, 0, 0)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	img, err := LoadEquirect(path)
	require.NoError(t, err)
	assert.Equal(t, 2, img.Width)

	_, err = LoadEquirect(filepath.Join(dir, "missing.hdr"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFloatImageValidate(t *testing.T) {
	var nilImg *FloatImage
	assert.Error(t, nilImg.Validate())
	assert.Error(t, (&FloatImage{Width: 2, Height: 2, Pix: make([]float32, 3)}).Validate())
	assert.NoError(t, NewFloatImage(2, 1).Validate())
}
