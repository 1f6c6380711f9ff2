package texture

import (
	"math"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/shaderjit/wide"
)

// Unit binds a Texture to a sampler state. It is the reference Sampler
// implementation and is safe for concurrent use once built.
//
// A descriptor with LodMinClamp == LodMaxClamp pins every sample to that
// level; start from gputypes.DefaultSamplerDescriptor to get the usual
// [0, 32] range.
type Unit struct {
	tex  *Texture
	desc gputypes.SamplerDescriptor
}

// NewUnit returns a Unit sampling tex with desc.
func NewUnit(tex *Texture, desc gputypes.SamplerDescriptor) *Unit {
	return &Unit{tex: tex, desc: desc}
}

// Texture returns the bound texture.
func (u *Unit) Texture() *Texture {
	return u.tex
}

// Descriptor returns the sampler state.
func (u *Unit) Descriptor() gputypes.SamplerDescriptor {
	return u.desc
}

// Size implements Sampler.
func (u *Unit) Size(lod int32) [4]int32 {
	img := u.tex.Level(int(lod))
	if img == nil {
		return [4]int32{}
	}
	return [4]int32{int32(img.Rect.Dx()), int32(img.Rect.Dy()), 1, int32(u.tex.Levels())}
}

// Sample implements Sampler.
func (u *Unit) Sample(req *Request) wide.Vec4 {
	var out wide.Vec4
	if req.Method == Fetch {
		for lane := range 4 {
			out.SetRow(lane, u.fetch(req, lane))
		}
		return out
	}

	var lod [4]float32
	switch req.Method {
	case Implicit, Bias:
		lod = u.implicitLod(req)
		if req.Method == Bias {
			for lane := range lod {
				lod[lane] += req.Lod[lane]
			}
		}
	case Lod:
		lod = req.Lod
	case Grad:
		for lane := range lod {
			lod[lane] = u.gradientLod(
				req.DDX[wide.X][lane], req.DDX[wide.Y][lane],
				req.DDY[wide.X][lane], req.DDY[wide.Y][lane])
		}
	}

	for lane := range 4 {
		out.SetRow(lane, u.sampleLane(req, lane, lod[lane]))
	}
	return out
}

// implicitLod computes one level of detail for the whole quad from the
// screen-space differences of its coordinates. Outside a quad there are no
// derivatives and level 0 is used.
func (u *Unit) implicitLod(req *Request) [4]float32 {
	if !req.Quad {
		return [4]float32{}
	}
	x, y := &req.Coord[wide.X], &req.Coord[wide.Y]
	l := u.gradientLod(x[1]-x[0], y[1]-y[0], x[2]-x[0], y[2]-y[0])
	return [4]float32{l, l, l, l}
}

// gradientLod converts normalized coordinate gradients to a level of
// detail using the longer of the two screen-space axes.
func (u *Unit) gradientLod(dudx, dvdx, dudy, dvdy float32) float32 {
	w, h := float64(u.tex.Width()), float64(u.tex.Height())
	px := math.Hypot(float64(dudx)*w, float64(dvdx)*h)
	py := math.Hypot(float64(dudy)*w, float64(dvdy)*h)
	rho := math.Max(px, py)
	if rho <= 0 || math.IsNaN(rho) {
		return float32(math.Inf(-1))
	}
	return float32(math.Log2(rho))
}

func (u *Unit) sampleLane(req *Request, lane int, lod float32) [4]float32 {
	if lod < u.desc.LodMinClamp {
		lod = u.desc.LodMinClamp
	}
	if lod > u.desc.LodMaxClamp {
		lod = u.desc.LodMaxClamp
	}

	s := sample{
		u:      float64(req.Coord[wide.X][lane]),
		v:      float64(req.Coord[wide.Y][lane]),
		ref:    req.Coord[wide.Z][lane],
		offX:   int(req.Offset[0][lane]),
		offY:   int(req.Offset[1][lane]),
		filter: u.desc.MagFilter,
	}
	if lod > 0 {
		s.filter = u.desc.MinFilter
	}

	maxLevel := float32(u.tex.Levels() - 1)
	if lod <= 0 || maxLevel == 0 {
		return u.sampleLevel(0, &s)
	}
	lod = min(lod, maxLevel)

	if u.desc.MipmapFilter != gputypes.MipmapFilterModeLinear {
		return u.sampleLevel(int(lod+0.5), &s)
	}

	l0 := float32(math.Floor(float64(lod)))
	a := u.sampleLevel(int(l0), &s)
	f := lod - l0
	if f == 0 {
		return a
	}
	b := u.sampleLevel(int(l0)+1, &s)
	for c := range a {
		a[c] += (b[c] - a[c]) * f
	}
	return a
}

// sample holds the per-lane arguments shared by every level read.
type sample struct {
	u, v       float64
	ref        float32
	offX, offY int
	filter     gputypes.FilterMode
}

func (u *Unit) sampleLevel(level int, s *sample) [4]float32 {
	img := u.tex.levels[level]
	w, h := img.Rect.Dx(), img.Rect.Dy()

	if s.filter != gputypes.FilterModeLinear {
		x := texelIndex(math.Floor(s.u*float64(w))) + s.offX
		y := texelIndex(math.Floor(s.v*float64(h))) + s.offY
		return u.read(level, wrap(x, w, u.desc.AddressModeU), wrap(y, h, u.desc.AddressModeV), s.ref)
	}

	fx := s.u*float64(w) - 0.5
	fy := s.v*float64(h) - 0.5
	if math.IsNaN(fx) {
		fx = 0
	}
	if math.IsNaN(fy) {
		fy = 0
	}
	bx, by := math.Floor(fx), math.Floor(fy)
	ax, ay := float32(fx-bx), float32(fy-by)
	x0 := texelIndex(bx) + s.offX
	y0 := texelIndex(by) + s.offY
	x1, y1 := x0+1, y0+1

	mu, mv := u.desc.AddressModeU, u.desc.AddressModeV
	c00 := u.read(level, wrap(x0, w, mu), wrap(y0, h, mv), s.ref)
	c10 := u.read(level, wrap(x1, w, mu), wrap(y0, h, mv), s.ref)
	c01 := u.read(level, wrap(x0, w, mu), wrap(y1, h, mv), s.ref)
	c11 := u.read(level, wrap(x1, w, mu), wrap(y1, h, mv), s.ref)

	var out [4]float32
	for c := range out {
		top := c00[c] + (c10[c]-c00[c])*ax
		bottom := c01[c] + (c11[c]-c01[c])*ax
		out[c] = top + (bottom-top)*ay
	}
	return out
}

// read returns one texel, or the comparison result against ref when the
// sampler compares. Comparison happens per texel before filtering.
func (u *Unit) read(level, x, y int, ref float32) [4]float32 {
	t := u.tex.texel(level, x, y)
	if u.desc.Compare == gputypes.CompareFunctionUndefined {
		return t
	}
	var v float32
	if compare(u.desc.Compare, ref, t[0]) {
		v = 1
	}
	return [4]float32{v, v, v, 1}
}

func (u *Unit) fetch(req *Request, lane int) [4]float32 {
	level := int(int32(math.Float32bits(req.Lod[lane])))
	img := u.tex.Level(level)
	if img == nil {
		return [4]float32{}
	}
	x := int(int32(math.Float32bits(req.Coord[wide.X][lane]))) + int(req.Offset[0][lane])
	y := int(int32(math.Float32bits(req.Coord[wide.Y][lane]))) + int(req.Offset[1][lane])
	if x < 0 || y < 0 || x >= img.Rect.Dx() || y >= img.Rect.Dy() {
		return [4]float32{}
	}
	return u.tex.texel(level, x, y)
}

// texelIndex converts a floored coordinate to an index, keeping values
// that do not fit an int inside a range wrap and clamp handle.
func texelIndex(f float64) int {
	const limit = 1 << 24
	switch {
	case math.IsNaN(f):
		return 0
	case f < -limit:
		return -limit
	case f > limit:
		return limit
	}
	return int(f)
}

func wrap(i, n int, mode gputypes.AddressMode) int {
	switch mode {
	case gputypes.AddressModeRepeat:
		return ((i % n) + n) % n
	case gputypes.AddressModeMirrorRepeat:
		period := 2 * n
		m := ((i % period) + period) % period
		if m >= n {
			m = period - 1 - m
		}
		return m
	default:
		return min(max(i, 0), n-1)
	}
}

func compare(f gputypes.CompareFunction, ref, v float32) bool {
	switch f {
	case gputypes.CompareFunctionLess:
		return ref < v
	case gputypes.CompareFunctionEqual:
		return ref == v
	case gputypes.CompareFunctionLessEqual:
		return ref <= v
	case gputypes.CompareFunctionGreater:
		return ref > v
	case gputypes.CompareFunctionNotEqual:
		return ref != v
	case gputypes.CompareFunctionGreaterEqual:
		return ref >= v
	case gputypes.CompareFunctionAlways:
		return true
	default:
		return false
	}
}
