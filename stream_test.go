package shaderjit

import (
	"context"
	"errors"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/shaderjit/shader"
	"golang.org/x/image/math/f32"
)

// transformProgram computes o0 = c0..c3 * v0, o1 = v1 with a per-vertex
// branch, and o2.x = vertex id.
func transformProgram() *shader.Program {
	r0 := shader.Reg(shader.RegTemp, 0)
	return vertexProgram(
		ins(shader.OpM4x4, shader.Out(shader.RegOutput, 0), shader.Reg(shader.RegInput, 0), shader.Reg(shader.RegConst, 0)),
		ins(shader.OpMov, shader.Out(shader.RegTemp, 0), shader.Reg(shader.RegInput, 1)),
		shader.Instruction{Op: shader.OpIfc, Compare: gputypes.CompareFunctionGreater,
			Src: [5]shader.Src{r0.Swz(shader.SwizzleXXXX), shader.Imm(0, 0, 0, 0)}},
		ins(shader.OpMul, shader.Out(shader.RegTemp, 0), r0, shader.Imm(2, 2, 2, 2)),
		ins(shader.OpEndIf),
		ins(shader.OpMov, shader.Out(shader.RegOutput, 1), r0),
		ins(shader.OpI2F, shader.Out(shader.RegOutput, 2).Masked(shader.MaskX),
			shader.Src{Type: shader.RegMisc, Index: shader.MiscVertexID, Swizzle: shader.SwizzleXXXX}),
	)
}

func vertexStream(n int) [][]f32.Vec4 {
	vs := make([][]f32.Vec4, n)
	for i := range vs {
		x := float32(i)
		sign := float32(1)
		if i%3 == 0 {
			sign = -1
		}
		vs[i] = []f32.Vec4{{x, x + 1, x + 2, 1}, {sign * x, x, 0, 1}}
	}
	return vs
}

func drawConstants() *Constants {
	var consts Constants
	consts.SetMat4(0, f32.Mat4{
		1, 0, 0, 10,
		0, 2, 0, 20,
		0, 0, 3, 30,
		0, 0, 0, 1,
	})
	return &consts
}

func TestProcessVertices(t *testing.T) {
	c := NewCompiler(WithWorkers(2))
	defer c.Close()

	rt, err := c.Compile(transformProgram())
	if err != nil {
		t.Fatal(err)
	}
	vs := vertexStream(7)
	out, err := c.ProcessVertices(context.Background(), rt, vs, Draw{Constants: drawConstants(), FirstVertex: 100})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != len(vs) {
		t.Fatalf("got %d vertices, want %d", len(out), len(vs))
	}

	for i, v := range out {
		x := float32(i)
		if want := (f32.Vec4{x + 10, 2*(x+1) + 20, 3*(x+2) + 30, 1}); v[0] != want {
			t.Errorf("vertex %d o0 = %v, want %v", i, v[0], want)
		}
		want1 := vs[i][1]
		if want1[0] > 0 {
			want1 = f32.Vec4{2 * want1[0], 2 * want1[1], 0, 2}
		}
		if v[1] != want1 {
			t.Errorf("vertex %d o1 = %v, want %v", i, v[1], want1)
		}
		if v[2][0] != float32(100+i) {
			t.Errorf("vertex %d id = %v, want %d", i, v[2][0], 100+i)
		}
	}
}

func TestProcessVerticesParallelMatchesSequential(t *testing.T) {
	c := NewCompiler(WithWorkers(4))
	defer c.Close()

	rt, err := c.Compile(transformProgram())
	if err != nil {
		t.Fatal(err)
	}
	vs := vertexStream(4*batchesPerTask*3 + 3)
	d := Draw{Constants: drawConstants()}

	got, err := c.ProcessVertices(context.Background(), rt, vs, d)
	if err != nil {
		t.Fatal(err)
	}

	var b Batch
	for first := 0; first < len(vs); first += Lanes {
		want := make([][]f32.Vec4, len(vs))
		for i := range want {
			want[i] = make([]f32.Vec4, rt.Outputs())
		}
		b.Constants = d.Constants
		runVertexBatch(rt, &b, vs, want, first, d)
		for i := first; i < min(first+Lanes, len(vs)); i++ {
			for r := range want[i] {
				if got[i][r] != want[i][r] {
					t.Fatalf("vertex %d o%d = %v, sequential %v", i, r, got[i][r], want[i][r])
				}
			}
		}
	}
}

func TestProcessVerticesEmpty(t *testing.T) {
	c := NewCompiler()
	defer c.Close()

	rt, err := c.Compile(transformProgram())
	if err != nil {
		t.Fatal(err)
	}
	out, err := c.ProcessVertices(context.Background(), rt, nil, Draw{})
	if err != nil || len(out) != 0 {
		t.Errorf("ProcessVertices(nil) = %v, %v", out, err)
	}
}

func TestProcessVerticesErrors(t *testing.T) {
	c := NewCompiler()
	defer c.Close()

	ps := &shader.Program{Stage: gputypes.ShaderStageFragment, Instructions: transformProgram().Instructions}
	prt, err := c.Compile(ps)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.ProcessVertices(context.Background(), prt, vertexStream(4), Draw{}); !errors.Is(err, shader.ErrStage) {
		t.Errorf("pixel routine error = %v, want ErrStage", err)
	}

	vrt, err := c.Compile(transformProgram())
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.ProcessVertices(ctx, vrt, vertexStream(8), Draw{}); !errors.Is(err, context.Canceled) {
		t.Errorf("canceled context error = %v, want context.Canceled", err)
	}

	c.Close()
	if _, err := c.ProcessVertices(context.Background(), vrt, vertexStream(4), Draw{}); !errors.Is(err, ErrClosed) {
		t.Errorf("closed compiler error = %v, want ErrClosed", err)
	}
}

func BenchmarkProcessVertices(b *testing.B) {
	c := NewCompiler()
	defer c.Close()
	rt, err := c.Compile(transformProgram())
	if err != nil {
		b.Fatal(err)
	}
	vs := vertexStream(4096)
	d := Draw{Constants: drawConstants()}

	for b.Loop() {
		_, _ = c.ProcessVertices(context.Background(), rt, vs, d)
	}
}
