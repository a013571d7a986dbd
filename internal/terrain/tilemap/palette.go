package tilemap

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"tilegen.ai/internal/terrain/biome"
)

// Palette maps tile ids to compact indices. Ids are sorted so the palette
// depends only on the set of tiles, not on biome order.
type Palette struct {
	IDs    []string
	Index  map[string]uint16
	Digest string
}

func BuildPalette(s biome.Set) (Palette, error) {
	uniq := map[string]bool{}
	for _, d := range s {
		for _, t := range d.Tiles {
			uniq[t] = true
		}
	}
	if len(uniq) > 1<<16 {
		return Palette{}, fmt.Errorf("palette too large: %d tiles", len(uniq))
	}
	ids := make([]string, 0, len(uniq))
	for id := range uniq {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	p := Palette{
		IDs:   ids,
		Index: make(map[string]uint16, len(ids)),
	}
	for i, id := range ids {
		p.Index[id] = uint16(i)
	}
	b, _ := json.Marshal(ids)
	sum := sha256.Sum256(b)
	p.Digest = hex.EncodeToString(sum[:])
	return p, nil
}

// TileIndices encodes the result's tiles against p.
func (r *Result) TileIndices(p Palette) ([]uint16, error) {
	out := make([]uint16, len(r.Tiles))
	for i, t := range r.Tiles {
		idx, ok := p.Index[t]
		if !ok {
			return nil, fmt.Errorf("tile %q not in palette", t)
		}
		out[i] = idx
	}
	return out, nil
}
