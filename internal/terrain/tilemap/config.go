package tilemap

import (
	"fmt"
	"math/rand"

	"tilegen.ai/internal/terrain/biome"
	"tilegen.ai/internal/terrain/noise"
)

// Upper bounds (exclusive) for reseeded wave seeds, per layer.
const (
	HeightSeedRange   = 200
	MoistureSeedRange = 500
	HeatSeedRange     = 300
)

type Config struct {
	Width  int
	Height int
	Scale  float64
	Offset noise.Vec2

	HeightWaves   []noise.Wave
	MoistureWaves []noise.Wave
	HeatWaves     []noise.Wave

	Biomes biome.Set
}

func (c Config) Clone() Config {
	c.HeightWaves = noise.CloneWaves(c.HeightWaves)
	c.MoistureWaves = noise.CloneWaves(c.MoistureWaves)
	c.HeatWaves = noise.CloneWaves(c.HeatWaves)
	c.Biomes = c.Biomes.Clone()
	return c
}

func (c Config) Validate() error {
	if err := noise.CheckDims(c.Width, c.Height); err != nil {
		return err
	}
	for _, l := range []struct {
		name  string
		waves []noise.Wave
	}{
		{"height waves", c.HeightWaves},
		{"moisture waves", c.MoistureWaves},
		{"heat waves", c.HeatWaves},
	} {
		if err := noise.Validate(l.waves); err != nil {
			return fmt.Errorf("%s: %w", l.name, err)
		}
	}
	if err := c.Biomes.Validate(); err != nil {
		return fmt.Errorf("biomes: %w", err)
	}
	return nil
}

// Seeds is the seed snapshot of every wave, per layer.
type Seeds struct {
	Height   []float64 `json:"height"`
	Moisture []float64 `json:"moisture"`
	Heat     []float64 `json:"heat"`
}

func seedsOf(waves []noise.Wave) []float64 {
	out := make([]float64, len(waves))
	for i, w := range waves {
		out[i] = w.Seed
	}
	return out
}

func (c Config) Seeds() Seeds {
	return Seeds{
		Height:   seedsOf(c.HeightWaves),
		Moisture: seedsOf(c.MoistureWaves),
		Heat:     seedsOf(c.HeatWaves),
	}
}

// RandomizeSeeds reseeds every wave of every layer in place.
func RandomizeSeeds(c *Config, rng *rand.Rand) {
	if c == nil {
		return
	}
	noise.RandomizeSeeds(c.HeightWaves, HeightSeedRange, rng)
	noise.RandomizeSeeds(c.MoistureWaves, MoistureSeedRange, rng)
	noise.RandomizeSeeds(c.HeatWaves, HeatSeedRange, rng)
}
