package texture

import (
	"errors"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/shaderjit/wide"
)

// solid returns a w×h level filled with c.
func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

// levelsTexture builds an 8×8 texture whose mip levels are distinct solid
// colors: red, green, blue, white.
func levelsTexture() *Texture {
	return &Texture{levels: []*image.NRGBA{
		solid(8, 8, color.NRGBA{255, 0, 0, 255}),
		solid(4, 4, color.NRGBA{0, 255, 0, 255}),
		solid(2, 2, color.NRGBA{0, 0, 255, 255}),
		solid(1, 1, color.NRGBA{255, 255, 255, 255}),
	}}
}

var (
	red   = [4]float32{1, 0, 0, 1}
	green = [4]float32{0, 1, 0, 1}
	blue  = [4]float32{0, 0, 1, 1}
)

func near(a, b [4]float32, eps float32) bool {
	for i := range a {
		if d := a[i] - b[i]; d > eps || d < -eps {
			return false
		}
	}
	return true
}

func TestFromBytes(t *testing.T) {
	tests := []struct {
		name   string
		format gputypes.TextureFormat
		data   []byte
		want   [4]uint8
	}{
		{"R8", gputypes.TextureFormatR8Unorm, []byte{10}, [4]uint8{10, 0, 0, 255}},
		{"RG8", gputypes.TextureFormatRG8Unorm, []byte{10, 20}, [4]uint8{10, 20, 0, 255}},
		{"RGBA8", gputypes.TextureFormatRGBA8Unorm, []byte{10, 20, 30, 40}, [4]uint8{10, 20, 30, 40}},
		{"BGRA8", gputypes.TextureFormatBGRA8Unorm, []byte{10, 20, 30, 40}, [4]uint8{30, 20, 10, 40}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tex, err := FromBytes(tt.format, 1, 1, tt.data, false)
			if err != nil {
				t.Fatalf("FromBytes() error = %v", err)
			}
			got := [4]uint8(tex.Level(0).Pix[:4])
			if got != tt.want {
				t.Errorf("texel = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFromBytesErrors(t *testing.T) {
	_, err := FromBytes(gputypes.TextureFormatR32Float, 1, 1, make([]byte, 4), false)
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("R32Float error = %v, want ErrUnsupportedFormat", err)
	}
	_, err = FromBytes(gputypes.TextureFormatRGBA8Unorm, 2, 2, make([]byte, 15), false)
	if !errors.Is(err, ErrSize) {
		t.Errorf("short data error = %v, want ErrSize", err)
	}
	_, err = FromBytes(gputypes.TextureFormatRGBA8Unorm, 0, 2, nil, false)
	if !errors.Is(err, ErrSize) {
		t.Errorf("zero width error = %v, want ErrSize", err)
	}
}

func TestMipmapChain(t *testing.T) {
	tex := New(solid(8, 4, color.NRGBA{200, 100, 50, 255}), true)
	if tex.Levels() != 4 {
		t.Fatalf("Levels() = %d, want 4", tex.Levels())
	}
	sizes := [][2]int{{8, 4}, {4, 2}, {2, 1}, {1, 1}}
	for i, s := range sizes {
		img := tex.Level(i)
		if img.Rect.Dx() != s[0] || img.Rect.Dy() != s[1] {
			t.Errorf("level %d size = %dx%d, want %dx%d", i, img.Rect.Dx(), img.Rect.Dy(), s[0], s[1])
		}
		want := [4]float32{200.0 / 255, 100.0 / 255, 50.0 / 255, 1}
		if got := tex.texel(i, 0, 0); !near(got, want, 1.5/255) {
			t.Errorf("level %d texel = %v, want %v", i, got, want)
		}
	}
	if tex.Level(4) != nil || tex.Level(-1) != nil {
		t.Error("Level() out of range should be nil")
	}
	if New(solid(8, 4, color.NRGBA{}), false).Levels() != 1 {
		t.Error("non-mipmapped texture should have one level")
	}
}

func TestUnitSize(t *testing.T) {
	u := NewUnit(New(solid(8, 4, color.NRGBA{}), true), gputypes.DefaultSamplerDescriptor())
	tests := []struct {
		lod  int32
		want [4]int32
	}{
		{0, [4]int32{8, 4, 1, 4}},
		{1, [4]int32{4, 2, 1, 4}},
		{3, [4]int32{1, 1, 1, 4}},
		{4, [4]int32{}},
		{-1, [4]int32{}},
	}
	for _, tt := range tests {
		if got := u.Size(tt.lod); got != tt.want {
			t.Errorf("Size(%d) = %v, want %v", tt.lod, got, tt.want)
		}
	}
}

func TestWrap(t *testing.T) {
	tests := []struct {
		mode gputypes.AddressMode
		i    int
		want int
	}{
		{gputypes.AddressModeRepeat, -1, 3},
		{gputypes.AddressModeRepeat, 4, 0},
		{gputypes.AddressModeRepeat, 9, 1},
		{gputypes.AddressModeMirrorRepeat, -1, 0},
		{gputypes.AddressModeMirrorRepeat, 4, 3},
		{gputypes.AddressModeMirrorRepeat, 5, 2},
		{gputypes.AddressModeMirrorRepeat, 8, 0},
		{gputypes.AddressModeClampToEdge, -3, 0},
		{gputypes.AddressModeClampToEdge, 9, 3},
		{gputypes.AddressModeUndefined, 2, 2},
	}
	for _, tt := range tests {
		if got := wrap(tt.i, 4, tt.mode); got != tt.want {
			t.Errorf("wrap(%d, 4, %v) = %d, want %d", tt.i, tt.mode, got, tt.want)
		}
	}
}

// quadTexture is 2×2: red, green on top; blue, white below.
func quadTexture() *Texture {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.SetNRGBA(0, 0, color.NRGBA{255, 0, 0, 255})
	img.SetNRGBA(1, 0, color.NRGBA{0, 255, 0, 255})
	img.SetNRGBA(0, 1, color.NRGBA{0, 0, 255, 255})
	img.SetNRGBA(1, 1, color.NRGBA{255, 255, 255, 255})
	return &Texture{levels: []*image.NRGBA{img}}
}

func TestSampleNearest(t *testing.T) {
	u := NewUnit(quadTexture(), gputypes.DefaultSamplerDescriptor())
	req := &Request{
		Method: Lod,
		Coord: wide.Vec4{
			{0.25, 0.75, 0.25, 1.25},
			{0.25, 0.25, 0.75, 0.75},
		},
	}
	got := u.Sample(req)
	want := [][4]float32{red, green, blue, {1, 1, 1, 1}}
	for lane, w := range want {
		if row := got.Row(lane); row != w {
			t.Errorf("lane %d = %v, want %v", lane, row, w)
		}
	}
}

func TestSampleRepeatAndMirror(t *testing.T) {
	desc := gputypes.DefaultSamplerDescriptor()
	desc.AddressModeU = gputypes.AddressModeRepeat
	u := NewUnit(quadTexture(), desc)
	req := &Request{Method: Lod, Coord: wide.Vec4{{1.25, -0.25}, {0.25, 0.25}}}
	got := u.Sample(req)
	if row := got.Row(0); row != red {
		t.Errorf("repeat u=1.25 = %v, want red", row)
	}
	if row := got.Row(1); row != green {
		t.Errorf("repeat u=-0.25 = %v, want green", row)
	}

	desc.AddressModeU = gputypes.AddressModeMirrorRepeat
	got = NewUnit(quadTexture(), desc).Sample(req)
	if row := got.Row(0); row != green {
		t.Errorf("mirror u=1.25 = %v, want green", row)
	}
	if row := got.Row(1); row != red {
		t.Errorf("mirror u=-0.25 = %v, want red", row)
	}
}

func TestSampleBilinear(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, color.NRGBA{0, 0, 0, 255})
	img.SetNRGBA(1, 0, color.NRGBA{255, 255, 255, 255})
	u := NewUnit(&Texture{levels: []*image.NRGBA{img}}, gputypes.LinearSamplerDescriptor())

	req := &Request{Method: Lod, Coord: wide.Vec4{{0.5, 0.25, 0.75, 0}, {0.5, 0.5, 0.5, 0.5}}}
	got := u.Sample(req)
	want := []float32{0.5, 0, 1, 0}
	for lane, w := range want {
		if r := got[wide.X][lane]; math.Abs(float64(r-w)) > 1e-6 {
			t.Errorf("lane %d red = %v, want %v", lane, r, w)
		}
	}
}

func TestSampleOffset(t *testing.T) {
	u := NewUnit(quadTexture(), gputypes.DefaultSamplerDescriptor())
	req := &Request{
		Method: Lod,
		Coord:  wide.Vec4{{0.25}, {0.25}},
		Offset: [3]wide.I32x4{{1}, {1}},
	}
	if row := u.Sample(req).Row(0); row != [4]float32{1, 1, 1, 1} {
		t.Errorf("offset sample = %v, want white", row)
	}
}

func TestSampleLevelSelection(t *testing.T) {
	nearest := gputypes.DefaultSamplerDescriptor()
	linear := nearest
	linear.MipmapFilter = gputypes.MipmapFilterModeLinear
	clamped := nearest
	clamped.LodMaxClamp = 1

	// Quad coordinates stepping s texels of level 0 per pixel.
	quad := func(s float32) wide.Vec4 {
		d := s / 8
		return wide.Vec4{{0.5, 0.5 + d, 0.5, 0.5 + d}, {0.5, 0.5, 0.5 + d, 0.5 + d}}
	}

	tests := []struct {
		name string
		desc gputypes.SamplerDescriptor
		req  Request
		want [4]float32
	}{
		{"implicit lod 0", nearest, Request{Method: Implicit, Coord: quad(1), Quad: true}, red},
		{"implicit lod 1", nearest, Request{Method: Implicit, Coord: quad(2), Quad: true}, green},
		{"implicit without quad", nearest, Request{Method: Implicit, Coord: quad(4)}, red},
		{"bias", nearest, Request{Method: Bias, Coord: quad(1), Quad: true, Lod: wide.SplatF32(2)}, blue},
		{"explicit lod", nearest, Request{Method: Lod, Coord: quad(0), Lod: wide.SplatF32(2)}, blue},
		{"nearest mip rounds", nearest, Request{Method: Lod, Coord: quad(0), Lod: wide.SplatF32(0.6)}, green},
		{"linear mip", linear, Request{Method: Lod, Coord: quad(0), Lod: wide.SplatF32(0.5)}, [4]float32{0.5, 0.5, 0, 1}},
		{"lod past last level", nearest, Request{Method: Lod, Coord: quad(0), Lod: wide.SplatF32(9)}, [4]float32{1, 1, 1, 1}},
		{"lod max clamp", clamped, Request{Method: Lod, Coord: quad(0), Lod: wide.SplatF32(3)}, green},
		{"gradients", nearest, Request{
			Method: Grad,
			Coord:  quad(0),
			DDX:    wide.Vec4{wide.SplatF32(0.25)},
			DDY:    wide.Vec4{{}, wide.SplatF32(0.1)},
		}, green},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewUnit(levelsTexture(), tt.desc).Sample(&tt.req)
			for lane := range 4 {
				if row := got.Row(lane); !near(row, tt.want, 1e-6) {
					t.Errorf("lane %d = %v, want %v", lane, row, tt.want)
				}
			}
		})
	}
}

func TestSampleCompare(t *testing.T) {
	tex, err := FromBytes(gputypes.TextureFormatR8Unorm, 1, 1, []byte{128}, false)
	if err != nil {
		t.Fatal(err)
	}
	desc := gputypes.DefaultSamplerDescriptor()
	desc.Compare = gputypes.CompareFunctionLess
	u := NewUnit(tex, desc)

	req := &Request{Method: Lod, Coord: wide.Vec4{{0.5, 0.5}, {0.5, 0.5}, {0.25, 0.75}}}
	got := u.Sample(req)
	if row := got.Row(0); row != [4]float32{1, 1, 1, 1} {
		t.Errorf("ref 0.25 < 0.5 = %v, want pass", row)
	}
	if row := got.Row(1); row != [4]float32{0, 0, 0, 1} {
		t.Errorf("ref 0.75 < 0.5 = %v, want fail", row)
	}
}

func TestFetch(t *testing.T) {
	u := NewUnit(quadTexture(), gputypes.DefaultSamplerDescriptor())
	bits := func(v ...int32) wide.F32x4 {
		var f wide.F32x4
		for i, x := range v {
			f[i] = math.Float32frombits(uint32(x))
		}
		return f
	}
	req := &Request{
		Method: Fetch,
		Coord:  wide.Vec4{bits(1, 0, 2, 0), bits(0, 1, 0, -1)},
		Lod:    bits(0, 0, 0, 0),
	}
	got := u.Sample(req)
	want := [][4]float32{green, blue, {}, {}}
	for lane, w := range want {
		if row := got.Row(lane); row != w {
			t.Errorf("lane %d = %v, want %v", lane, row, w)
		}
	}

	req.Lod = bits(1, 1, 1, 1)
	if row := u.Sample(req).Row(0); row != [4]float32{} {
		t.Errorf("fetch from missing level = %v, want zero", row)
	}
}

func TestMethodString(t *testing.T) {
	if Grad.String() != "Grad" || Method(99).String() != "Unknown" {
		t.Errorf("Method.String() mismatch")
	}
}

func BenchmarkSampleBilinear(b *testing.B) {
	u := NewUnit(New(solid(64, 64, color.NRGBA{10, 20, 30, 255}), true), gputypes.LinearSamplerDescriptor())
	req := &Request{Method: Implicit, Quad: true, Coord: wide.Vec4{{0.1, 0.11, 0.1, 0.11}, {0.2, 0.2, 0.21, 0.21}}}
	for b.Loop() {
		_ = u.Sample(req)
	}
}
