package soft

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/gekko3d/lumen/pbr/rt/gfx"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/image/tiff"
)

// FaceFileNames are the file stems WriteCubeFaces uses, in face order.
var FaceFileNames = [gfx.CubeFaceCount]string{"px", "nx", "py", "ny", "pz", "nz"}

// FaceImage tone maps one face into a 16-bit image. Row 0 of the face is the
// top row of the image, the layout cube map files are usually stored in.
func FaceImage(c *CubeMap, face gfx.CubeFace, mip int) *image.RGBA64 {
	n := gfx.MipSize(c.size, mip)
	img := image.NewRGBA64(image.Rect(0, 0, n, n))
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			v := ToneMap(c.At(face, mip, x, y).Vec3())
			img.SetRGBA64(x, y, color.RGBA64{
				R: to16(v[0]),
				G: to16(v[1]),
				B: to16(v[2]),
				A: 0xffff,
			})
		}
	}
	return img
}

func to16(v float32) uint16 {
	return uint16(mgl32.Clamp(v, 0, 1)*0xffff + 0.5)
}

// WriteCubeFaces writes mip 0 of every face into dir as <stem>.<ext>, where
// ext is "png" or "tiff". It returns the written paths in face order.
func WriteCubeFaces(c *CubeMap, dir, ext string) ([]string, error) {
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	if ext != "png" && ext != "tiff" && ext != "tif" {
		return nil, fmt.Errorf("write cube faces: unsupported format %q", ext)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("write cube faces: %w", err)
	}
	paths := make([]string, 0, gfx.CubeFaceCount)
	for f := 0; f < gfx.CubeFaceCount; f++ {
		path := filepath.Join(dir, FaceFileNames[f]+"."+ext)
		if err := writeImage(path, ext, FaceImage(c, gfx.CubeFace(f), 0)); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeImage(path, ext string, img image.Image) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := file.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()
	if ext == "png" {
		err = png.Encode(file, img)
	} else {
		err = tiff.Encode(file, img, &tiff.Options{Compression: tiff.Deflate})
	}
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return nil
}

// TextureImage converts t to a 16-bit image with the top row first. Values
// are clamped, not tone mapped: it is meant for the presented screen image.
func TextureImage(t *Texture) *image.RGBA64 {
	img := image.NewRGBA64(image.Rect(0, 0, t.w, t.h))
	for y := 0; y < t.h; y++ {
		for x := 0; x < t.w; x++ {
			c := t.At(x, t.h-1-y)
			img.SetRGBA64(x, y, color.RGBA64{R: to16(c[0]), G: to16(c[1]), B: to16(c[2]), A: to16(c[3])})
		}
	}
	return img
}

// WriteTexture encodes t to path; the extension picks png or tiff.
func WriteTexture(t *Texture, path string) error {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ext != "png" && ext != "tiff" && ext != "tif" {
		return fmt.Errorf("write %s: unsupported format %q", path, ext)
	}
	return writeImage(path, ext, TextureImage(t))
}
