package jit

import (
	"github.com/gogpu/shaderjit/shader"
	"github.com/gogpu/shaderjit/texture"
	"github.com/gogpu/shaderjit/wide"
)

// sampleFunc calls the sampler bound to the instruction's slot.
type sampleFunc func(r *Registers, req *texture.Request) wide.Vec4

// textureOp compiles a texture instruction: it marshals the coordinates,
// level of detail, gradients and offsets into a texture.Request, calls the
// sampler, applies the sampler swizzle and writes the result.
func (c *compiler) textureOp(pc int, in *shader.Instruction) (func(*Registers), error) {
	srcs := make([]reader, len(in.Sources()))
	for i := range srcs {
		if i == 1 {
			continue // sampler
		}
		read, err := c.fetch(pc, &in.Src[i])
		if err != nil {
			return nil, err
		}
		srcs[i] = read
	}

	var calc compute
	if in.Op == shader.OpTexSize {
		size, err := c.sizer(pc, &in.Src[1])
		if err != nil {
			return nil, err
		}
		calc = size(srcs[0])
	} else {
		sample, err := c.sampler(pc, &in.Src[1])
		if err != nil {
			return nil, err
		}
		build, err := c.request(pc, in, srcs)
		if err != nil {
			return nil, err
		}
		calc = func(r *Registers) wide.Vec4 {
			var req texture.Request
			build(r, &req)
			return sample(r, &req)
		}
	}

	if sw := uint8(in.Src[1].Swizzle); sw != uint8(shader.SwizzleXYZW) {
		unswizzled := calc
		calc = func(r *Registers) wide.Vec4 { return unswizzled(r).Swizzle(sw) }
	}
	store, err := c.store(pc, in)
	if err != nil {
		return nil, err
	}
	return func(r *Registers) { store(r, calc(r)) }, nil
}

// request compiles the argument marshaling of a sampling instruction.
func (c *compiler) request(pc int, in *shader.Instruction, s []reader) (func(*Registers, *texture.Request), error) {
	coord, quad := s[0], c.quad
	scalar := func(i int) func(*Registers) wide.F32x4 {
		read := s[i]
		return func(r *Registers) wide.F32x4 { return read(r)[wide.X] }
	}
	noOffset := func(*Registers) [3]wide.I32x4 { return [3]wide.I32x4{} }
	offsets := func(i int) func(*Registers) [3]wide.I32x4 {
		read := s[i]
		return func(r *Registers) [3]wide.I32x4 {
			v := read(r)
			return [3]wide.I32x4{v[wide.X].Int(), v[wide.Y].Int(), v[wide.Z].Int()}
		}
	}

	var (
		method   texture.Method
		lod      func(*Registers) wide.F32x4
		offset   = noOffset
		ddx, ddy reader
	)
	switch in.Op {
	case shader.OpTex:
		if in.Bias {
			method = texture.Bias
			lod = func(r *Registers) wide.F32x4 { return coord(r)[wide.W] }
		}
	case shader.OpTexLdl:
		method = texture.Lod
		lod = func(r *Registers) wide.F32x4 { return coord(r)[wide.W] }
	case shader.OpTexBias:
		method, lod = texture.Bias, scalar(2)
	case shader.OpTexOffset:
		offset = offsets(2)
	case shader.OpTexOffsetBias:
		method, lod, offset = texture.Bias, scalar(3), offsets(2)
	case shader.OpTexLod:
		method, lod = texture.Lod, scalar(2)
	case shader.OpTexLodOffset:
		method, lod, offset = texture.Lod, scalar(3), offsets(2)
	case shader.OpTexelFetch:
		method, lod = texture.Fetch, scalar(2)
	case shader.OpTexelFetchOffset:
		method, lod, offset = texture.Fetch, scalar(2), offsets(3)
	case shader.OpTexLdd, shader.OpTexGrad:
		method, ddx, ddy = texture.Grad, s[2], s[3]
	case shader.OpTexGradOffset:
		method, ddx, ddy, offset = texture.Grad, s[2], s[3], offsets(4)
	default:
		return nil, c.prog.Errorf(pc, shader.ErrUnknownOpcode, "no texture path for %s", in.Op)
	}

	project := in.Project && method != texture.Fetch
	return func(r *Registers, req *texture.Request) {
		req.Method = method
		req.Quad = quad
		req.Coord = coord(r)
		if project {
			w := wide.Rcp(req.Coord[wide.W])
			for comp := wide.X; comp <= wide.Z; comp++ {
				req.Coord[comp] = req.Coord[comp].Mul(w)
			}
		}
		if lod != nil {
			req.Lod = lod(r)
		}
		if ddx != nil {
			req.DDX, req.DDY = ddx(r), ddy(r)
		}
		req.Offset = offset(r)
	}, nil
}

// slot compiles the sampler index of operand s. The second result is set
// for a per-lane index.
func (c *compiler) slot(pc int, s *shader.Src) (func(*Registers) int64, func(*Registers) [4]int64, error) {
	if s.Type != shader.RegSampler {
		return nil, nil, c.prog.Errorf(pc, shader.ErrOperand, "sampler operand is %s", s.Type)
	}
	base := int64(s.Index)
	if !s.Rel.Relative() {
		return func(*Registers) int64 { return base }, nil, nil
	}
	off, err := c.offset(pc, s.Rel)
	if err != nil {
		return nil, nil, err
	}
	if off.uniform != nil {
		return func(r *Registers) int64 { return base + off.uniform(r) }, nil, nil
	}
	return nil, func(r *Registers) [4]int64 {
		idx := off.lanes(r)
		for i := range idx {
			idx[i] += base
		}
		return idx
	}, nil
}

// bound returns the lookup of a sampler slot. Slots outside the set the
// program may read are unbound even when the batch carries a sampler
// there.
func (c *compiler) bound() func(r *Registers, i int64) texture.Sampler {
	used := c.an.Samplers
	return func(r *Registers, i int64) texture.Sampler {
		if i < 0 || i >= 32 || used&(1<<uint(i)) == 0 || i >= int64(len(r.batch.Samplers)) {
			return nil
		}
		return r.batch.Samplers[i]
	}
}

// sampler compiles the call into the sampler of operand s. Unbound slots
// sample as zero. With a per-lane index each distinct sampler is called
// once and its result kept for the lanes that selected it.
func (c *compiler) sampler(pc int, s *shader.Src) (sampleFunc, error) {
	uniform, lanes, err := c.slot(pc, s)
	if err != nil {
		return nil, err
	}
	boundSampler := c.bound()
	if uniform != nil {
		return func(r *Registers, req *texture.Request) wide.Vec4 {
			if smp := boundSampler(r, uniform(r)); smp != nil {
				return smp.Sample(req)
			}
			return wide.Vec4{}
		}, nil
	}
	return func(r *Registers, req *texture.Request) wide.Vec4 {
		idx := lanes(r)
		var out wide.Vec4
		done := 0
		for lane := range idx {
			if done&(1<<lane) != 0 {
				continue
			}
			var m wide.U32x4
			for other := lane; other < len(idx); other++ {
				if idx[other] == idx[lane] {
					m[other] = ^uint32(0)
					done |= 1 << other
				}
			}
			smp := boundSampler(r, idx[lane])
			if smp == nil {
				continue
			}
			out = wide.SelectVec4(m, smp.Sample(req), out)
		}
		return out
	}, nil
}

// sizer compiles TEXSIZE: (width, height, depth, levels) of the level in
// src0.x, as integers.
func (c *compiler) sizer(pc int, s *shader.Src) (func(lod reader) compute, error) {
	uniform, lanes, err := c.slot(pc, s)
	if err != nil {
		return nil, err
	}
	boundSampler := c.bound()
	return func(lod reader) compute {
		return func(r *Registers) wide.Vec4 {
			level := lod(r)[wide.X].Int()
			var idx [4]int64
			if uniform != nil {
				i := uniform(r)
				idx = [4]int64{i, i, i, i}
			} else {
				idx = lanes(r)
			}
			var out wide.Vec4
			for lane := range level {
				smp := boundSampler(r, idx[lane])
				if smp == nil {
					continue
				}
				size := smp.Size(level[lane])
				for comp := range size {
					out[comp][lane] = wide.SplatI32(size[comp]).Float()[0]
				}
			}
			return out
		}
	}, nil
}
