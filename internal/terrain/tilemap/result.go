package tilemap

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"

	"tilegen.ai/internal/terrain/noise"
)

type Result struct {
	Width  int
	Height int

	HeightMap   *noise.Field
	MoistureMap *noise.Field
	HeatMap     *noise.Field

	BiomeIDs []string // biome id per set index
	Biomes   []int    // set index per cell, row-major
	Tiles    []string // tile id per cell, row-major
}

func (r *Result) index(x, y int) int {
	return x + y*r.Width
}

func (r *Result) BiomeAt(x, y int) int {
	return r.Biomes[r.index(x, y)]
}

func (r *Result) BiomeIDAt(x, y int) string {
	return r.BiomeIDs[r.BiomeAt(x, y)]
}

func (r *Result) TileAt(x, y int) string {
	return r.Tiles[r.index(x, y)]
}

// Histogram counts cells per biome id.
func (r *Result) Histogram() map[string]int {
	out := make(map[string]int, len(r.BiomeIDs))
	for _, b := range r.Biomes {
		out[r.BiomeIDs[b]]++
	}
	return out
}

// Digest is a hex sha256 over the dimensions, field bits, biome indices and tiles.
func (r *Result) Digest() string {
	h := sha256.New()
	var tmp [8]byte
	putU64 := func(v uint64) {
		binary.LittleEndian.PutUint64(tmp[:], v)
		h.Write(tmp[:])
	}
	putU64(uint64(r.Width))
	putU64(uint64(r.Height))
	for _, f := range []*noise.Field{r.HeightMap, r.MoistureMap, r.HeatMap} {
		if f == nil {
			continue
		}
		for _, v := range f.Values {
			putU64(math.Float64bits(v))
		}
	}
	for _, b := range r.Biomes {
		putU64(uint64(b))
	}
	for _, t := range r.Tiles {
		h.Write([]byte(t))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
