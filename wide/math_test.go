package wide

import (
	"math"
	"testing"
)

func isNaN32(f float32) bool { return f != f }

func TestRcpAndRSqrt(t *testing.T) {
	negZero := float32(math.Copysign(0, -1))
	r := Rcp(F32x4{0, negZero, 2, -4})
	if !math.IsInf(float64(r[0]), 1) || !math.IsInf(float64(r[1]), -1) {
		t.Errorf("Rcp(±0) = %v, want ±Inf", r)
	}
	if r[2] != 0.5 || r[3] != -0.25 {
		t.Errorf("Rcp() = %v", r)
	}

	s := RSqrt(F32x4{0, 4, -1, 1})
	if !math.IsInf(float64(s[0]), 1) {
		t.Errorf("RSqrt(0) = %f, want +Inf", s[0])
	}
	if s[1] != 0.5 || s[3] != 1 {
		t.Errorf("RSqrt() = %v", s)
	}
	if !isNaN32(s[2]) {
		t.Errorf("RSqrt(-1) = %f, want NaN", s[2])
	}
}

func TestLog2EdgeCases(t *testing.T) {
	r := Log2(F32x4{0, -1, 8, 1})
	if !math.IsInf(float64(r[0]), -1) {
		t.Errorf("Log2(0) = %f, want -Inf", r[0])
	}
	if !isNaN32(r[1]) {
		t.Errorf("Log2(-1) = %f, want NaN", r[1])
	}
	if r[2] != 3 || r[3] != 0 {
		t.Errorf("Log2() = %v", r)
	}
}

func TestPow(t *testing.T) {
	nan := float32(math.NaN())
	inf := float32(math.Inf(1))

	tests := []struct {
		name string
		x, y float32
		want float32
	}{
		{"positive base", 2, 3, 8},
		{"fractional exponent", 4, 0.5, 2},
		{"zero base positive exponent", 0, 2, 0},
		{"zero base zero exponent", 0, 0, 1},
		{"zero base negative exponent", 0, -1, inf},
		{"negative base integer exponent", -2, 2, 0},
		{"negative base fractional exponent", -2, 0.5, 0},
		{"nan base", nan, 1, nan},
		{"nan exponent", 2, nan, nan},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Pow(SplatF32(tt.x), SplatF32(tt.y))[0]
			if isNaN32(tt.want) {
				if !isNaN32(got) {
					t.Errorf("Pow(%v, %v) = %v, want NaN", tt.x, tt.y, got)
				}
				return
			}
			if got != tt.want {
				t.Errorf("Pow(%v, %v) = %v, want %v", tt.x, tt.y, got, tt.want)
			}
		})
	}
}

func TestTrigLaneWise(t *testing.T) {
	x := F32x4{0, math.Pi / 2, math.Pi, -math.Pi / 2}
	s := Sin(x)
	want := [4]float32{0, 1, 0, -1}
	for i := range s {
		if math.Abs(float64(s[i]-want[i])) > 1e-6 {
			t.Errorf("Sin lane %d = %f, want %f", i, s[i], want[i])
		}
	}

	a := Atan2(F32x4{1, 1, -1, -1}, F32x4{1, -1, -1, 1})
	quadrants := [4]float32{math.Pi / 4, 3 * math.Pi / 4, -3 * math.Pi / 4, -math.Pi / 4}
	for i := range a {
		if math.Abs(float64(a[i]-quadrants[i])) > 1e-6 {
			t.Errorf("Atan2 lane %d = %f, want %f", i, a[i], quadrants[i])
		}
	}
}

func TestRounding(t *testing.T) {
	x := F32x4{-1.5, -0.5, 0.5, 2.5}
	tests := []struct {
		name string
		got  F32x4
		want F32x4
	}{
		{"floor", Floor(x), F32x4{-2, -1, 0, 2}},
		{"ceil", Ceil(x), F32x4{-1, 0, 1, 3}},
		{"trunc", Trunc(x), F32x4{-1, 0, 0, 2}},
		{"round", Round(x), F32x4{-2, -1, 1, 3}},
		{"round even", RoundEven(x), F32x4{-2, 0, 0, 2}},
		{"frac", Frac(x), F32x4{0.5, 0.5, 0.5, 0.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// -0 and +0 compare equal, which is what these cases expect.
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestModFollowsDivisorSign(t *testing.T) {
	got := Mod(F32x4{5, -5, 5, -5}, F32x4{3, 3, -3, -3})
	want := F32x4{2, 1, -1, -2}
	if got != want {
		t.Errorf("Mod() = %v, want %v", got, want)
	}
}

func TestSignStepSmoothStep(t *testing.T) {
	if got := Sign(F32x4{-3, 0, 2, float32(math.NaN())}); got != (F32x4{-1, 0, 1, 0}) {
		t.Errorf("Sign() = %v", got)
	}
	if got := Step(SplatF32(1), F32x4{0, 1, 2, 0.5}); got != (F32x4{0, 1, 1, 0}) {
		t.Errorf("Step() = %v", got)
	}
	if got := SmoothStep(SplatF32(0), SplatF32(1), F32x4{-1, 0.5, 2, 0}); got != (F32x4{0, 0.5, 1, 0}) {
		t.Errorf("SmoothStep() = %v", got)
	}
}

func TestIsNaNIsInf(t *testing.T) {
	v := F32x4{float32(math.NaN()), float32(math.Inf(-1)), 1, float32(math.Inf(1))}
	if got := IsNaN(v).SignMask(); got != 0b0001 {
		t.Errorf("IsNaN() = %04b", got)
	}
	if got := IsInf(v).SignMask(); got != 0b1010 {
		t.Errorf("IsInf() = %04b", got)
	}
}

func BenchmarkPow(b *testing.B) {
	x := F32x4{0.5, 1, 2, 4}
	y := SplatF32(2.2)
	for b.Loop() {
		_ = Pow(x, y)
	}
}
