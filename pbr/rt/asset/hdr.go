package asset

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

var errBadHDR = errors.New("malformed radiance hdr")

// DecodeHDR reads a Radiance RGBE image with flat, old-style or adaptive
// run-length encoded scanlines. Only the standard "-Y h +X w" and
// "+Y h +X w" orientations are accepted.
func DecodeHDR(r io.Reader) (*FloatImage, error) {
	br := bufio.NewReader(r)

	magic, err := readLine(br)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(magic, "#?") {
		return nil, fmt.Errorf("%w: missing #? signature", errBadHDR)
	}
	for {
		line, err := readLine(br)
		if err != nil {
			return nil, err
		}
		if line == "" {
			break
		}
		if format, ok := strings.CutPrefix(line, "FORMAT="); ok && format != "32-bit_rle_rgbe" {
			return nil, fmt.Errorf("%w: unsupported format %q", errBadHDR, format)
		}
	}

	res, err := readLine(br)
	if err != nil {
		return nil, err
	}
	fields := strings.Fields(res)
	if len(fields) != 4 {
		return nil, fmt.Errorf("%w: resolution %q", errBadHDR, res)
	}
	h, herr := strconv.Atoi(fields[1])
	w, werr := strconv.Atoi(fields[3])
	if herr != nil || werr != nil || w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: resolution %q", errBadHDR, res)
	}
	if err := checkDimensions(w, h); err != nil {
		return nil, fmt.Errorf("%w: %w", errBadHDR, err)
	}
	flipY := fields[0] == "+Y"
	if (fields[0] != "-Y" && !flipY) || fields[2] != "+X" {
		return nil, fmt.Errorf("%w: unsupported orientation %q", errBadHDR, res)
	}

	img := NewFloatImage(w, h)
	scan := make([]byte, w*4)
	for y := 0; y < h; y++ {
		if err := readScanline(br, scan); err != nil {
			return nil, fmt.Errorf("scanline %d: %w", y, err)
		}
		row := y
		if flipY {
			row = h - 1 - y
		}
		for x := 0; x < w; x++ {
			rgbe := scan[x*4 : x*4+4]
			r, g, b := rgbeToFloat(rgbe[0], rgbe[1], rgbe[2], rgbe[3])
			img.Set(x, row, [4]float32{r, g, b, 1})
		}
	}
	return img, nil
}

func readLine(br *bufio.Reader) (string, error) {
	line, err := br.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) {
			return "", fmt.Errorf("%w: truncated header", errBadHDR)
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func rgbeToFloat(r, g, b, e byte) (float32, float32, float32) {
	if e == 0 {
		return 0, 0, 0
	}
	f := math.Ldexp(1, int(e)-(128+8))
	return float32((float64(r) + 0.5) * f), float32((float64(g) + 0.5) * f), float32((float64(b) + 0.5) * f)
}

// readScanline fills scan with w RGBE quadruples.
func readScanline(br *bufio.Reader, scan []byte) error {
	w := len(scan) / 4
	head, err := br.Peek(4)
	if err != nil {
		return errTruncated(err)
	}
	if w < 8 || w > 0x7fff || head[0] != 2 || head[1] != 2 || head[2]&0x80 != 0 {
		return readFlat(br, scan)
	}
	if int(head[2])<<8|int(head[3]) != w {
		return fmt.Errorf("%w: scanline width mismatch", errBadHDR)
	}
	if _, err := br.Discard(4); err != nil {
		return errTruncated(err)
	}

	// adaptive RLE: each channel is stored separately
	for ch := 0; ch < 4; ch++ {
		for x := 0; x < w; {
			count, err := br.ReadByte()
			if err != nil {
				return errTruncated(err)
			}
			if count > 128 {
				n := int(count) - 128
				if x+n > w {
					return fmt.Errorf("%w: run overflows scanline", errBadHDR)
				}
				v, err := br.ReadByte()
				if err != nil {
					return errTruncated(err)
				}
				for ; n > 0; n-- {
					scan[x*4+ch] = v
					x++
				}
				continue
			}
			n := int(count)
			if n == 0 || x+n > w {
				return fmt.Errorf("%w: bad literal count", errBadHDR)
			}
			for ; n > 0; n-- {
				v, err := br.ReadByte()
				if err != nil {
					return errTruncated(err)
				}
				scan[x*4+ch] = v
				x++
			}
		}
	}
	return nil
}

// readFlat handles uncompressed pixels and the old repeat-pixel encoding.
func readFlat(br *bufio.Reader, scan []byte) error {
	w := len(scan) / 4
	shift := 0
	var px [4]byte
	for x := 0; x < w; {
		if _, err := io.ReadFull(br, px[:]); err != nil {
			return errTruncated(err)
		}
		if px[0] == 1 && px[1] == 1 && px[2] == 1 {
			if x == 0 {
				return fmt.Errorf("%w: repeat at scanline start", errBadHDR)
			}
			n := int(px[3]) << shift
			if x+n > w {
				return fmt.Errorf("%w: repeat overflows scanline", errBadHDR)
			}
			prev := scan[(x-1)*4 : x*4]
			for ; n > 0; n-- {
				copy(scan[x*4:x*4+4], prev)
				x++
			}
			shift += 8
			continue
		}
		copy(scan[x*4:x*4+4], px[:])
		x++
		shift = 0
	}
	return nil
}

func errTruncated(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: truncated pixel data", errBadHDR)
	}
	return err
}
