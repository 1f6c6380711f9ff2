package texture

import (
	"errors"
	"fmt"
	"image"
	"math/bits"

	"github.com/gogpu/gputypes"
	"golang.org/x/image/draw"
)

// Errors returned when building a Texture.
var (
	// ErrUnsupportedFormat is returned for a texture format FromBytes
	// cannot decode.
	ErrUnsupportedFormat = errors.New("texture: unsupported format")

	// ErrSize is returned when the dimensions do not match the data.
	ErrSize = errors.New("texture: invalid size")
)

// Texture is a 2D texture with an optional mip chain. Level 0 is the full
// resolution image; each further level halves both dimensions down to 1×1.
//
// Levels are stored as non-premultiplied 8-bit RGBA. Single and two
// channel formats are expanded on load the way GPUs read them: missing
// color channels read as 0 and missing alpha reads as 1.
type Texture struct {
	levels []*image.NRGBA
}

// New creates a texture from img. When mipmapped is true the full chain is
// generated by repeated bilinear downsampling.
func New(img image.Image, mipmapped bool) *Texture {
	b := img.Bounds()
	base := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(base, base.Bounds(), img, b.Min, draw.Src)
	t := &Texture{levels: []*image.NRGBA{base}}
	if mipmapped {
		t.generateMipmaps()
	}
	return t
}

// FromBytes creates a texture from tightly packed rows of the given format.
func FromBytes(format gputypes.TextureFormat, width, height int, data []byte, mipmapped bool) (*Texture, error) {
	bpp := bytesPerPixel(format)
	if bpp == 0 {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, format)
	}
	if width <= 0 || height <= 0 || len(data) < width*height*bpp {
		return nil, fmt.Errorf("%w: %dx%d with %d bytes", ErrSize, width, height, len(data))
	}

	base := image.NewNRGBA(image.Rect(0, 0, width, height))
	for i := 0; i < width*height; i++ {
		src := data[i*bpp : (i+1)*bpp]
		dst := base.Pix[i*4 : i*4+4]
		switch format {
		case gputypes.TextureFormatR8Unorm:
			dst[0], dst[1], dst[2], dst[3] = src[0], 0, 0, 0xff
		case gputypes.TextureFormatRG8Unorm:
			dst[0], dst[1], dst[2], dst[3] = src[0], src[1], 0, 0xff
		case gputypes.TextureFormatRGBA8Unorm:
			copy(dst, src)
		case gputypes.TextureFormatBGRA8Unorm:
			dst[0], dst[1], dst[2], dst[3] = src[2], src[1], src[0], src[3]
		}
	}

	t := &Texture{levels: []*image.NRGBA{base}}
	if mipmapped {
		t.generateMipmaps()
	}
	return t, nil
}

func bytesPerPixel(format gputypes.TextureFormat) int {
	switch format {
	case gputypes.TextureFormatR8Unorm:
		return 1
	case gputypes.TextureFormatRG8Unorm:
		return 2
	case gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatBGRA8Unorm:
		return 4
	default:
		return 0
	}
}

// generateMipmaps fills levels 1..n from level 0.
func (t *Texture) generateMipmaps() {
	base := t.levels[0]
	w, h := base.Rect.Dx(), base.Rect.Dy()
	n := bits.Len(uint(max(w, h)))
	for level := 1; level < n; level++ {
		w, h = max(w/2, 1), max(h/2, 1)
		prev := t.levels[level-1]
		next := image.NewNRGBA(image.Rect(0, 0, w, h))
		draw.BiLinear.Scale(next, next.Rect, prev, prev.Rect, draw.Src, nil)
		t.levels = append(t.levels, next)
	}
}

// Levels returns the number of mip levels.
func (t *Texture) Levels() int {
	return len(t.levels)
}

// Level returns mip level n, or nil if n is out of range.
func (t *Texture) Level(n int) *image.NRGBA {
	if n < 0 || n >= len(t.levels) {
		return nil
	}
	return t.levels[n]
}

// Width returns the width of level 0.
func (t *Texture) Width() int {
	return t.levels[0].Rect.Dx()
}

// Height returns the height of level 0.
func (t *Texture) Height() int {
	return t.levels[0].Rect.Dy()
}

// texel returns the normalized RGBA value at (x, y) of level n. The
// coordinates must be in range.
func (t *Texture) texel(n, x, y int) [4]float32 {
	img := t.levels[n]
	i := img.PixOffset(x, y)
	p := img.Pix[i : i+4 : i+4]
	return [4]float32{
		float32(p[0]) / 255,
		float32(p[1]) / 255,
		float32(p[2]) / 255,
		float32(p[3]) / 255,
	}
}
