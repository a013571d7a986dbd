package biome

import (
	"errors"
	"fmt"
	"strings"

	"tilegen.ai/internal/logic/mathx"
)

var (
	ErrEmptyBiomeSet    = errors.New("empty biome set")
	ErrEmptyTileChoices = errors.New("empty tile choices")
	ErrPickOutOfRange   = errors.New("tile pick out of range")
)

// Definition is a biome preset: inclusive minimum thresholds plus the tile pool.
type Definition struct {
	ID          string   `yaml:"id" json:"id"`
	MinHeight   float64  `yaml:"min_height" json:"min_height"`
	MinMoisture float64  `yaml:"min_moisture" json:"min_moisture"`
	MinHeat     float64  `yaml:"min_heat" json:"min_heat"`
	Tiles       []string `yaml:"tiles" json:"tiles"`
}

func (d Definition) Matches(height, moisture, heat float64) bool {
	return height >= d.MinHeight && moisture >= d.MinMoisture && heat >= d.MinHeat
}

// Score is how far the cell exceeds the thresholds; lower means a tighter fit.
func (d Definition) Score(height, moisture, heat float64) float64 {
	return (height - d.MinHeight) + (moisture - d.MinMoisture) + (heat - d.MinHeat)
}

func (d Definition) Clone() Definition {
	d.Tiles = append([]string(nil), d.Tiles...)
	return d
}

// PickTile chooses one of the definition's tiles for cell (x,y).
func (d Definition) PickTile(p TilePicker, x, y int) (string, error) {
	if len(d.Tiles) == 0 {
		return "", fmt.Errorf("%w: biome %q", ErrEmptyTileChoices, d.ID)
	}
	if len(d.Tiles) == 1 {
		return d.Tiles[0], nil
	}
	i := p.Pick(len(d.Tiles), x, y)
	if i < 0 || i >= len(d.Tiles) {
		return "", fmt.Errorf("%w: biome %q picked %d of %d", ErrPickOutOfRange, d.ID, i, len(d.Tiles))
	}
	return d.Tiles[i], nil
}

// Set is an ordered list of definitions. Element 0 is the fallback biome.
type Set []Definition

func (s Set) Clone() Set {
	if s == nil {
		return nil
	}
	out := make(Set, len(s))
	for i, d := range s {
		out[i] = d.Clone()
	}
	return out
}

func (s Set) IDs() []string {
	ids := make([]string, len(s))
	for i, d := range s {
		ids[i] = d.ID
	}
	return ids
}

func (s Set) Validate() error {
	if len(s) == 0 {
		return ErrEmptyBiomeSet
	}
	seen := map[string]bool{}
	for i, d := range s {
		id := strings.TrimSpace(d.ID)
		if id == "" {
			return fmt.Errorf("biome %d: empty id", i)
		}
		if seen[id] {
			return fmt.Errorf("duplicate biome id: %s", id)
		}
		seen[id] = true
		if !mathx.Finite(d.MinHeight, d.MinMoisture, d.MinHeat) {
			return fmt.Errorf("biome %s: thresholds must be finite", id)
		}
		if len(d.Tiles) == 0 {
			return fmt.Errorf("%w: biome %q", ErrEmptyTileChoices, id)
		}
		for j, t := range d.Tiles {
			if strings.TrimSpace(t) == "" {
				return fmt.Errorf("biome %s: tile %d is empty", id, j)
			}
		}
	}
	return nil
}

// Candidates returns the indices of every matching definition, in set order.
func Candidates(height, moisture, heat float64, s Set) []int {
	var out []int
	for i, d := range s {
		if d.Matches(height, moisture, heat) {
			out = append(out, i)
		}
	}
	return out
}

// Classify selects the biome index for one cell. Among matching definitions
// the lowest score wins and ties keep the earliest one. With no match the
// result is 0, whether or not s[0] itself matches.
func Classify(height, moisture, heat float64, s Set) (int, error) {
	if len(s) == 0 {
		return 0, ErrEmptyBiomeSet
	}
	best := -1
	bestScore := 0.0
	for i, d := range s {
		if !d.Matches(height, moisture, heat) {
			continue
		}
		score := d.Score(height, moisture, heat)
		if best < 0 || score < bestScore {
			best = i
			bestScore = score
		}
	}
	if best < 0 {
		return 0, nil
	}
	return best, nil
}
