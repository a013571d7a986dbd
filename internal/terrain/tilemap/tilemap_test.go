package tilemap

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"tilegen.ai/internal/terrain/biome"
	"tilegen.ai/internal/terrain/noise"
)

func testConfig() Config {
	return Config{
		Width:  24,
		Height: 18,
		Scale:  1,
		HeightWaves: []noise.Wave{
			{Seed: 56, Frequency: 0.05, Amplitude: 1},
			{Seed: 199.36, Frequency: 0.1, Amplitude: 0.5},
		},
		MoistureWaves: []noise.Wave{{Seed: 621, Frequency: 0.03, Amplitude: 1}},
		HeatWaves: []noise.Wave{
			{Seed: 318.6, Frequency: 0.04, Amplitude: 1},
			{Seed: 329.7, Frequency: 0.02, Amplitude: 0.5},
		},
		Biomes: biome.Set{
			{ID: "grassland", Tiles: []string{"grass_1", "grass_2"}},
			{ID: "desert", MinHeight: 0.2, MinHeat: 0.5, Tiles: []string{"sand"}},
			{ID: "forest", MinHeight: 0.3, MinMoisture: 0.45, Tiles: []string{"tree_1", "tree_2", "tree_3"}},
			{ID: "mountain", MinHeight: 0.6, Tiles: []string{"rock"}},
		},
	}
}

func TestGenerate_ClassifiesEveryCell(t *testing.T) {
	cfg := testConfig()
	r, err := Generate(context.Background(), cfg, noise.NewPerlin(0), biome.HashPicker{Seed: 1})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(r.Biomes) != cfg.Width*cfg.Height || len(r.Tiles) != cfg.Width*cfg.Height {
		t.Fatalf("unexpected result size: biomes=%d tiles=%d", len(r.Biomes), len(r.Tiles))
	}
	total := 0
	for _, n := range r.Histogram() {
		total += n
	}
	if total != cfg.Width*cfg.Height {
		t.Fatalf("histogram covers %d cells want %d", total, cfg.Width*cfg.Height)
	}

	for y := 0; y < cfg.Height; y++ {
		for x := 0; x < cfg.Width; x++ {
			want, err := biome.Classify(r.HeightMap.At(x, y), r.MoistureMap.At(x, y), r.HeatMap.At(x, y), cfg.Biomes)
			if err != nil {
				t.Fatalf("classify: %v", err)
			}
			if r.BiomeAt(x, y) != want {
				t.Fatalf("cell (%d,%d) biome=%d want %d", x, y, r.BiomeAt(x, y), want)
			}
			def := cfg.Biomes[want]
			found := false
			for _, tile := range def.Tiles {
				if tile == r.TileAt(x, y) {
					found = true
				}
			}
			if !found {
				t.Fatalf("cell (%d,%d) tile %q not from biome %s", x, y, r.TileAt(x, y), def.ID)
			}
			if r.BiomeIDAt(x, y) != def.ID {
				t.Fatalf("biome id mismatch at (%d,%d)", x, y)
			}
		}
	}
}

func TestGenerate_FieldsIndependentAndMatchNoise(t *testing.T) {
	cfg := testConfig()
	src := noise.NewOpenSimplex(3)
	r, err := Generate(context.Background(), cfg, src, nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	want, _ := noise.Generate(cfg.Width, cfg.Height, cfg.Scale, cfg.MoistureWaves, cfg.Offset, src)
	for i := range want.Values {
		if r.MoistureMap.Values[i] != want.Values[i] {
			t.Fatalf("moisture cell %d differs", i)
		}
	}
	if &r.HeightMap.Values[0] == &r.MoistureMap.Values[0] || &r.MoistureMap.Values[0] == &r.HeatMap.Values[0] {
		t.Fatalf("fields must not alias")
	}
}

func TestGenerate_DeterministicDigest(t *testing.T) {
	cfg := testConfig()
	a, err := Generate(context.Background(), cfg, noise.NewPerlin(0), biome.HashPicker{Seed: 9})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	b, err := Generate(context.Background(), cfg, noise.NewPerlin(0), biome.HashPicker{Seed: 9})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if a.Digest() != b.Digest() {
		t.Fatalf("digest not deterministic")
	}

	cfg.Offset = noise.Vec2{X: 40}
	c, _ := Generate(context.Background(), cfg, noise.NewPerlin(0), biome.HashPicker{Seed: 9})
	if c.Digest() == a.Digest() {
		t.Fatalf("offset change should change digest")
	}
}

func TestGenerate_DoesNotMutateConfig(t *testing.T) {
	cfg := testConfig()
	before := cfg.Clone()
	if _, err := Generate(context.Background(), cfg, noise.NewPerlin(0), nil); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if cfg.HeightWaves[0] != before.HeightWaves[0] || cfg.Biomes[2].Tiles[1] != before.Biomes[2].Tiles[1] {
		t.Fatalf("config mutated by Generate")
	}
}

func TestGenerate_Errors(t *testing.T) {
	ctx := context.Background()
	src := noise.NewPerlin(0)

	cfg := testConfig()
	cfg.Width = 0
	if _, err := Generate(ctx, cfg, src, nil); !errors.Is(err, noise.ErrInvalidConfiguration) {
		t.Fatalf("expected ErrInvalidConfiguration for zero width, got %v", err)
	}

	for _, dims := range [][2]int{{1 << 32, 1 << 32}, {200000, 200000}} {
		cfg = testConfig()
		cfg.Width, cfg.Height = dims[0], dims[1]
		if _, err := Generate(ctx, cfg, src, nil); !errors.Is(err, noise.ErrInvalidConfiguration) {
			t.Fatalf("expected ErrInvalidConfiguration for %dx%d, got %v", dims[0], dims[1], err)
		}
	}

	cfg = testConfig()
	cfg.HeatWaves = []noise.Wave{{Frequency: 1, Amplitude: 0}}
	if _, err := Generate(ctx, cfg, src, nil); !errors.Is(err, noise.ErrInvalidConfiguration) {
		t.Fatalf("expected ErrInvalidConfiguration for zero amplitude, got %v", err)
	}

	cfg = testConfig()
	cfg.Biomes = nil
	if _, err := Generate(ctx, cfg, src, nil); !errors.Is(err, biome.ErrEmptyBiomeSet) {
		t.Fatalf("expected ErrEmptyBiomeSet, got %v", err)
	}

	cfg = testConfig()
	cfg.Biomes[1].Tiles = nil
	if _, err := Generate(ctx, cfg, src, nil); !errors.Is(err, biome.ErrEmptyTileChoices) {
		t.Fatalf("expected ErrEmptyTileChoices, got %v", err)
	}

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := Generate(cctx, testConfig(), src, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRandomizeSeeds_Ranges(t *testing.T) {
	cfg := testConfig()
	cfg.HeightWaves = append(cfg.HeightWaves, make([]noise.Wave, 30)...)
	cfg.MoistureWaves = append(cfg.MoistureWaves, make([]noise.Wave, 30)...)
	cfg.HeatWaves = append(cfg.HeatWaves, make([]noise.Wave, 30)...)
	RandomizeSeeds(&cfg, rand.New(rand.NewSource(4)))

	check := func(name string, seeds []float64, upper float64) {
		for i, s := range seeds {
			if s < 0 || s >= upper {
				t.Fatalf("%s seed %d out of [0,%v): %v", name, i, upper, s)
			}
		}
	}
	seeds := cfg.Seeds()
	check("height", seeds.Height, HeightSeedRange)
	check("moisture", seeds.Moisture, MoistureSeedRange)
	check("heat", seeds.Heat, HeatSeedRange)
}

func TestPalette(t *testing.T) {
	cfg := testConfig()
	p, err := BuildPalette(cfg.Biomes)
	if err != nil {
		t.Fatalf("palette: %v", err)
	}
	if len(p.IDs) != 7 {
		t.Fatalf("expected 7 unique tiles, got %d: %v", len(p.IDs), p.IDs)
	}
	for i := 1; i < len(p.IDs); i++ {
		if p.IDs[i-1] >= p.IDs[i] {
			t.Fatalf("palette not sorted: %v", p.IDs)
		}
	}

	reordered := cfg.Biomes.Clone()
	reordered[0], reordered[3] = reordered[3], reordered[0]
	p2, _ := BuildPalette(reordered)
	if p2.Digest != p.Digest {
		t.Fatalf("palette digest should not depend on biome order")
	}

	r, err := Generate(context.Background(), cfg, noise.NewPerlin(0), biome.HashPicker{Seed: 5})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	idx, err := r.TileIndices(p)
	if err != nil {
		t.Fatalf("tile indices: %v", err)
	}
	for i, v := range idx {
		if p.IDs[v] != r.Tiles[i] {
			t.Fatalf("cell %d decodes to %s want %s", i, p.IDs[v], r.Tiles[i])
		}
	}

	other, _ := BuildPalette(biome.Set{{ID: "x", Tiles: []string{"only"}}})
	if _, err := r.TileIndices(other); err == nil {
		t.Fatalf("expected error for tiles missing from palette")
	}
}
