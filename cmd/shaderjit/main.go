// Command shaderjit compiles a shader and runs it on one set of inputs.
//
// Sources ending in .wgsl are lowered from WGSL; anything else is read
// as shader assembly.
//
//	shaderjit -entry main -in "0.25,0.75;2" shader.wgsl
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/shaderjit"
	"github.com/gogpu/shaderjit/asm"
	"github.com/gogpu/shaderjit/shader"
	"github.com/gogpu/shaderjit/wgsl"
	"github.com/gogpu/shaderjit/wide"
	"golang.org/x/image/math/f32"
)

func main() {
	var (
		entry   = flag.String("entry", "main", "WGSL entry point")
		inputs  = flag.String("in", "", "input registers: components separated by ',', registers by ';'")
		dump    = flag.Bool("dump", false, "print the program as assembly")
		verbose = flag.Bool("v", false, "log compiler activity")
	)
	flag.Parse()
	if flag.NArg() != 1 {
		log.Fatalf("usage: shaderjit [flags] file")
	}

	opts := []shaderjit.Option{}
	if *verbose {
		opts = append(opts, shaderjit.WithLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))))
	}
	c := shaderjit.NewCompiler(opts...)
	defer c.Close()

	prog, err := load(flag.Arg(0), *entry)
	if err != nil {
		log.Fatalf("Failed to load: %v", err)
	}
	if *dump {
		fmt.Print(asm.Format(prog))
	}

	in, err := parseInputs(*inputs)
	if err != nil {
		log.Fatalf("Bad -in: %v", err)
	}

	rt, err := c.Compile(prog)
	if err != nil {
		log.Fatalf("Failed to compile: %v", err)
	}

	var out []f32.Vec4
	if rt.Stage() == gputypes.ShaderStageVertex {
		res, err := c.ProcessVertices(context.Background(), rt, [][]f32.Vec4{in}, shaderjit.Draw{})
		if err != nil {
			log.Fatalf("Failed to run: %v", err)
		}
		out = res[0]
	} else {
		b := &shaderjit.Batch{Coverage: wide.AllOnes}
		for _, v := range in {
			b.Inputs = append(b.Inputs, wide.UniformRow(v))
		}
		rt.Run(b)
		if !b.Coverage.Any() {
			fmt.Println("discarded")
			return
		}
		for _, o := range b.Outputs {
			out = append(out, o.Row(0))
		}
	}
	for i, v := range out {
		fmt.Printf("o%d = %g %g %g %g\n", i, v[0], v[1], v[2], v[3])
	}
}

func load(path, entry string) (*shader.Program, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if filepath.Ext(path) == ".wgsl" {
		sh, err := wgsl.Lower(string(src), entry)
		if err != nil {
			return nil, err
		}
		return sh.Program, nil
	}
	return asm.Parse(string(src))
}

// parseInputs reads "x,y,z,w;x,y" into registers. Missing components
// are zero.
func parseInputs(s string) ([]f32.Vec4, error) {
	if s == "" {
		return nil, nil
	}
	var regs []f32.Vec4
	for _, reg := range strings.Split(s, ";") {
		var v f32.Vec4
		for i, c := range strings.Split(reg, ",") {
			if i >= 4 {
				return nil, fmt.Errorf("register %q has more than 4 components", reg)
			}
			x, err := strconv.ParseFloat(strings.TrimSpace(c), 32)
			if err != nil {
				return nil, err
			}
			v[i] = float32(x)
		}
		regs = append(regs, v)
	}
	return regs, nil
}
