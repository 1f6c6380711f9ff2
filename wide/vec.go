package wide

// Geometric functions operate on the first n components (1 to 4) of their
// Vec4 arguments. Components beyond n are passed through from the first
// argument unless documented otherwise.

// Dot returns the dot product over n components.
func Dot(n int, a, b Vec4) F32x4 {
	d := a[0].Mul(b[0])
	for c := 1; c < n; c++ {
		d = a[c].MulAdd(b[c], d)
	}
	return d
}

// Cross returns the cross product of the xyz components; w is zero.
func Cross(a, b Vec4) Vec4 {
	return Vec4{
		a[Y].Mul(b[Z]).Sub(a[Z].Mul(b[Y])),
		a[Z].Mul(b[X]).Sub(a[X].Mul(b[Z])),
		a[X].Mul(b[Y]).Sub(a[Y].Mul(b[X])),
		{},
	}
}

// Length returns the Euclidean length over n components.
func Length(n int, v Vec4) F32x4 {
	return Sqrt(Dot(n, v, v))
}

// Distance returns the length of a - b over n components.
func Distance(n int, a, b Vec4) F32x4 {
	var d Vec4
	for c := 0; c < n; c++ {
		d[c] = a[c].Sub(b[c])
	}
	return Length(n, d)
}

// Normalize scales the first n components to unit length. A zero vector
// produces NaN lanes, matching IEEE 0 * Inf.
func Normalize(n int, v Vec4) Vec4 {
	inv := RSqrt(Dot(n, v, v))
	r := v
	for c := 0; c < n; c++ {
		r[c] = v[c].Mul(inv)
	}
	return r
}

// Reflect returns i - 2*dot(nrm, i)*nrm over n components.
func Reflect(n int, i, nrm Vec4) Vec4 {
	d := Dot(n, nrm, i)
	d = d.Add(d)
	r := i
	for c := 0; c < n; c++ {
		r[c] = i[c].Sub(d.Mul(nrm[c]))
	}
	return r
}

// Refract returns the refraction of incident vector i through surface
// normal nrm with ratio of indices eta:
//
//	k = 1 - eta^2 * (1 - dot(nrm, i)^2)
//	r = eta*i - (eta*dot(nrm, i) + sqrt(k)) * nrm
//
// Lanes where k < 0 (total internal reflection) yield the zero vector.
// Components beyond n are zero.
func Refract(n int, i, nrm Vec4, eta F32x4) Vec4 {
	d := Dot(n, nrm, i)
	k := one4.Sub(eta.Mul(eta).Mul(one4.Sub(d.Mul(d))))
	tir := k.CmpLT(zero4)
	s := eta.MulAdd(d, Sqrt(k.Max(zero4)))
	var r Vec4
	for c := 0; c < n; c++ {
		r[c] = Select(tir, zero4, eta.Mul(i[c]).Sub(s.Mul(nrm[c])))
	}
	return r
}

// FaceForward returns nrm if dot(ref, i) < 0 and -nrm otherwise.
func FaceForward(n int, nrm, i, ref Vec4) Vec4 {
	front := Dot(n, ref, i).CmpLT(zero4)
	r := nrm
	for c := 0; c < n; c++ {
		r[c] = Select(front, nrm[c], nrm[c].Neg())
	}
	return r
}

// Determinant returns the determinant of the n×n matrix whose rows are
// the first n components of rows[0..n-1]. n must be 2, 3 or 4.
func Determinant(n int, rows *[4]Vec4) F32x4 {
	m := func(r, c int) F32x4 { return rows[r][c] }
	det2 := func(a, b, c, d F32x4) F32x4 { return a.Mul(d).Sub(b.Mul(c)) }
	switch n {
	case 2:
		return det2(m(0, 0), m(0, 1), m(1, 0), m(1, 1))
	case 3:
		return det3(m, 0, 1, 2, 0, 1, 2)
	default:
		var d F32x4
		for c := range 4 {
			cols := make([]int, 0, 3)
			for k := range 4 {
				if k != c {
					cols = append(cols, k)
				}
			}
			minor := det3(m, 1, 2, 3, cols[0], cols[1], cols[2])
			term := m(0, c).Mul(minor)
			if c%2 == 1 {
				term = term.Neg()
			}
			d = d.Add(term)
		}
		return d
	}
}

func det3(m func(r, c int) F32x4, r0, r1, r2, c0, c1, c2 int) F32x4 {
	a := m(r0, c0).Mul(m(r1, c1).Mul(m(r2, c2)).Sub(m(r1, c2).Mul(m(r2, c1))))
	b := m(r0, c1).Mul(m(r1, c0).Mul(m(r2, c2)).Sub(m(r1, c2).Mul(m(r2, c0))))
	c := m(r0, c2).Mul(m(r1, c0).Mul(m(r2, c1)).Sub(m(r1, c1).Mul(m(r2, c0))))
	return a.Sub(b).Add(c)
}
