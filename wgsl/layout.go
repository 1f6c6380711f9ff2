package wgsl

import (
	"fmt"

	"github.com/gogpu/naga/ir"
	"github.com/gogpu/shaderjit/shader"
)

// place is storage in a register file: a variable, a uniform or a part
// of one.
type place struct {
	file shader.RegisterType // RegTemp or RegConst
	reg  uint32
	comp int
	rel  shader.Rel
	typ  ir.TypeInner

	// uniform selects the byte-offset layout of uniform buffers.
	uniform bool
	// lane is a dynamic component index into the vector place of type
	// vector.
	lane   *value
	vector ir.TypeInner
}

// span returns the number of registers a value of type t occupies.
// Vectors and scalars take one register, matrices one per column and
// arrays their elements back to back. In a uniform buffer structs follow
// member byte offsets; elsewhere every member starts a register.
func (l *lowerer) span(t ir.TypeInner, uniform bool) (int, error) {
	switch t := t.(type) {
	case ir.ScalarType, ir.VectorType:
		return 1, nil
	case ir.MatrixType:
		if uniform && t.Rows == ir.Vec2 {
			return 0, fmt.Errorf("%w: uniform mat%dx2", ErrUnsupported, t.Columns)
		}
		return int(t.Columns), nil
	case ir.ArrayType:
		if t.Size.Constant == nil {
			return 0, fmt.Errorf("%w: runtime-sized array", ErrUnsupported)
		}
		n, err := l.span(l.inner(t.Base), uniform)
		if err != nil {
			return 0, err
		}
		return n * int(*t.Size.Constant), nil
	case ir.StructType:
		total := 0
		for _, m := range t.Members {
			n, err := l.span(l.inner(m.Type), uniform)
			if err != nil {
				return 0, err
			}
			if uniform {
				total = max(total, int(m.Offset/16)+n)
			} else {
				total += n
			}
		}
		return total, nil
	}
	return 0, fmt.Errorf("%w: storage of %T", ErrUnsupported, t)
}

// count returns the number of parts of a composite type.
func (l *lowerer) count(t ir.TypeInner) int {
	switch t := t.(type) {
	case ir.MatrixType:
		return int(t.Columns)
	case ir.ArrayType:
		if t.Size.Constant != nil {
			return int(*t.Size.Constant)
		}
	case ir.StructType:
		return len(t.Members)
	case ir.VectorType:
		return int(t.Size)
	}
	return 0
}

// partType returns the type of part i of a composite type.
func (l *lowerer) partType(t ir.TypeInner, i int) ir.TypeInner {
	switch t := t.(type) {
	case ir.MatrixType:
		return ir.VectorType{Size: t.Rows, Scalar: t.Scalar}
	case ir.ArrayType:
		return l.inner(t.Base)
	case ir.StructType:
		return l.inner(t.Members[i].Type)
	case ir.VectorType:
		return t.Scalar
	}
	return nil
}

// element returns the place of part i of p.
func (l *lowerer) element(p place, i int) (place, error) {
	if p.lane != nil {
		return place{}, fmt.Errorf("%w: access into a vector component", ErrUnsupported)
	}
	sub := p
	sub.typ = l.partType(p.typ, i)
	switch t := p.typ.(type) {
	case ir.VectorType:
		if i >= int(t.Size) {
			return place{}, fmt.Errorf("%w: component %d of vec%d", ErrUnsupported, i, t.Size)
		}
		sub.comp += i
	case ir.MatrixType:
		sub.reg += uint32(i)
	case ir.ArrayType:
		n, err := l.span(sub.typ, p.uniform)
		if err != nil {
			return place{}, err
		}
		sub.reg += uint32(i * n)
	case ir.StructType:
		if p.uniform {
			off := t.Members[i].Offset
			sub.reg += off / 16
			sub.comp += int(off%16) / 4
			break
		}
		for _, m := range t.Members[:i] {
			n, err := l.span(l.inner(m.Type), false)
			if err != nil {
				return place{}, err
			}
			sub.reg += uint32(n)
		}
	default:
		return place{}, fmt.Errorf("%w: index into %T", ErrUnsupported, p.typ)
	}
	return sub, nil
}

// shape returns the scalar kind and component count of a scalar or
// vector type.
func shape(t ir.TypeInner) (ir.ScalarKind, int, bool) {
	switch t := t.(type) {
	case ir.ScalarType:
		return t.Kind, 1, true
	case ir.VectorType:
		return t.Scalar.Kind, int(t.Size), true
	}
	return 0, 0, false
}

func mask(size int) uint8 {
	return uint8(1)<<size - 1
}

// pad is the swizzle of a size-component value: components past the end
// repeat the last one, so ALL, ANY and the dot products see no garbage.
func pad(size int) shader.Swizzle {
	n := size - 1
	return shader.MakeSwizzle(0, min(1, n), min(2, n), min(3, n))
}

// window reads size components starting at comp.
func window(comp, size int) shader.Swizzle {
	n := size - 1
	return shader.MakeSwizzle(comp, comp+min(1, n), comp+min(2, n), comp+min(3, n))
}

// shift moves a value so that its component 0 lands in component comp.
func shift(comp, size int) shader.Swizzle {
	var c [4]int
	for j := range c {
		c[j] = min(max(j-comp, 0), size-1)
	}
	return shader.MakeSwizzle(c[0], c[1], c[2], c[3])
}
