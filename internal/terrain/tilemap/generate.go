package tilemap

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"tilegen.ai/internal/terrain/biome"
	"tilegen.ai/internal/terrain/noise"
)

// Generate builds the three fields, classifies every cell and picks its tile.
// The config is copied first, so callers may mutate theirs once Generate returns.
func Generate(ctx context.Context, cfg Config, src noise.Source, picker biome.TilePicker) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if src == nil {
		return nil, fmt.Errorf("%w: nil noise source", noise.ErrInvalidConfiguration)
	}
	if picker == nil {
		picker = biome.HashPicker{}
	}
	cfg = cfg.Clone()

	var heightMap, moistureMap, heatMap *noise.Field
	g, gctx := errgroup.WithContext(ctx)
	layer := func(name string, waves []noise.Wave, out **noise.Field) {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			f, err := noise.Generate(cfg.Width, cfg.Height, cfg.Scale, waves, cfg.Offset, src)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			*out = f
			return nil
		})
	}
	layer("height waves", cfg.HeightWaves, &heightMap)
	layer("moisture waves", cfg.MoistureWaves, &moistureMap)
	layer("heat waves", cfg.HeatWaves, &heatMap)
	if err := g.Wait(); err != nil {
		return nil, err
	}

	r := &Result{
		Width:       cfg.Width,
		Height:      cfg.Height,
		HeightMap:   heightMap,
		MoistureMap: moistureMap,
		HeatMap:     heatMap,
		BiomeIDs:    cfg.Biomes.IDs(),
		Biomes:      make([]int, cfg.Width*cfg.Height),
		Tiles:       make([]string, cfg.Width*cfg.Height),
	}
	for y := 0; y < cfg.Height; y++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for x := 0; x < cfg.Width; x++ {
			i := r.index(x, y)
			b, err := biome.Classify(heightMap.Values[i], moistureMap.Values[i], heatMap.Values[i], cfg.Biomes)
			if err != nil {
				return nil, err
			}
			tile, err := cfg.Biomes[b].PickTile(picker, x, y)
			if err != nil {
				return nil, err
			}
			r.Biomes[i] = b
			r.Tiles[i] = tile
		}
	}
	return r, nil
}
