package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"tilegen.ai/internal/generator"
	persistlog "tilegen.ai/internal/persistence/log"
	"tilegen.ai/internal/preset"
	"tilegen.ai/internal/terrain/noise"
	"tilegen.ai/internal/terrain/tilemap"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "generate":
			generateCmd(os.Args[2:])
			return
		case "reseed":
			reseedCmd(os.Args[2:])
			return
		}
	}
	fmt.Fprintln(os.Stderr, "usage: mapgen generate|reseed [flags]")
	os.Exit(2)
}

func generateCmd(args []string) {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	presetPath := fs.String("preset", "./configs/preset.yaml", "map preset yaml (empty for built-in defaults)")
	offset := fs.String("offset", "", "sampling offset as x,y")
	width := fs.Int("width", 0, "override width")
	height := fs.Int("height", 0, "override height")
	asJSON := fs.Bool("json", false, "print the MAP message as JSON")
	fields := fs.Bool("fields", false, "include raw fields in -json output")
	ascii := fs.Bool("ascii", false, "print one character per cell")
	dataDir := fs.String("data", "", "append the run to the run log under this directory")
	_ = fs.Parse(args)

	logger := log.New(os.Stderr, "[mapgen] ", log.LstdFlags|log.Lmicroseconds)

	p, err := preset.Load(strings.TrimSpace(*presetPath))
	if err != nil {
		logger.Fatalf("load preset: %v", err)
	}

	var ov generator.Overrides
	if *offset != "" {
		v, err := parseOffset(*offset)
		if err != nil {
			logger.Fatalf("-offset: %v", err)
		}
		ov.Offset = &v
	}
	if *width > 0 {
		ov.Width = width
	}
	if *height > 0 {
		ov.Height = height
	}

	opts := generator.Options{Logger: logger}
	if *dataDir != "" {
		rl := persistlog.NewRunLogger(*dataDir)
		defer rl.Close()
		opts.Sinks = []generator.RunSink{rl}
	}
	gen, err := generator.New(p, opts)
	if err != nil {
		logger.Fatalf("generator: %v", err)
	}
	out, err := gen.Generate(context.Background(), ov)
	if err != nil {
		logger.Fatalf("generate: %v", err)
	}

	switch {
	case *asJSON:
		m, err := generator.MapMessage(out, "", *fields)
		if err != nil {
			logger.Fatalf("map message: %v", err)
		}
		_ = json.NewEncoder(os.Stdout).Encode(m)
	case *ascii:
		renderASCII(os.Stdout, out.Result)
	default:
		printSummary(os.Stdout, out)
	}
}

func reseedCmd(args []string) {
	fs := flag.NewFlagSet("reseed", flag.ExitOnError)
	presetPath := fs.String("preset", "./configs/preset.yaml", "map preset yaml")
	write := fs.Bool("write", false, "write the reseeded preset back to -preset")
	randSeed := fs.Int64("rand_seed", 0, "rng seed (0 = time based)")
	_ = fs.Parse(args)

	logger := log.New(os.Stderr, "[mapgen] ", log.LstdFlags|log.Lmicroseconds)

	path := strings.TrimSpace(*presetPath)
	p, err := preset.Load(path)
	if err != nil {
		logger.Fatalf("load preset: %v", err)
	}

	seed := *randSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	cfg := p.MapConfig()
	tilemap.RandomizeSeeds(&cfg, rand.New(rand.NewSource(seed)))
	p.WithSeeds(cfg)

	if *write {
		if path == "" {
			logger.Fatalf("-write needs -preset")
		}
		if err := preset.Save(path, p); err != nil {
			logger.Fatalf("save preset: %v", err)
		}
		logger.Printf("wrote %s", path)
	}
	_ = json.NewEncoder(os.Stdout).Encode(cfg.Seeds())
}

func parseOffset(s string) (noise.Vec2, error) {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return noise.Vec2{}, fmt.Errorf("want x,y got %q", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
	if err != nil {
		return noise.Vec2{}, err
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(ys), 64)
	if err != nil {
		return noise.Vec2{}, err
	}
	return noise.Vec2{X: x, Y: y}, nil
}

func printSummary(w io.Writer, out *generator.Output) {
	rec := out.Record
	fmt.Fprintf(w, "preset=%s size=%dx%d noise=%s digest=%s\n", rec.Preset, rec.Width, rec.Height, rec.Noise, rec.Digest)
	ids := make([]string, 0, len(rec.Histogram))
	for id := range rec.Histogram {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	total := rec.Width * rec.Height
	for _, id := range ids {
		n := rec.Histogram[id]
		fmt.Fprintf(w, "  %-12s %6d  %5.1f%%\n", id, n, 100*float64(n)/float64(total))
	}
}

// renderASCII prints the first letter of each cell's biome id, one row per line.
func renderASCII(w io.Writer, res *tilemap.Result) {
	var sb strings.Builder
	for y := 0; y < res.Height; y++ {
		sb.Reset()
		for x := 0; x < res.Width; x++ {
			id := res.BiomeIDAt(x, y)
			if id == "" {
				sb.WriteByte('?')
				continue
			}
			sb.WriteByte(id[0])
		}
		fmt.Fprintln(w, sb.String())
	}
}
