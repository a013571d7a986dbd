package generator

import (
	"tilegen.ai/internal/protocol"
	"tilegen.ai/internal/terrain/noise"
	"tilegen.ai/internal/terrain/tilemap"
)

// MapMessage encodes a generation result for the wire.
func MapMessage(out *Output, requestID string, includeFields bool) (protocol.MapMsg, error) {
	res := out.Result
	tiles, err := res.TileIndices(out.Palette)
	if err != nil {
		return protocol.MapMsg{}, err
	}
	m := protocol.MapMsg{
		Type:            protocol.TypeMap,
		ProtocolVersion: protocol.Version,
		RequestID:       requestID,
		RunID:           out.Record.RunID,
		Preset:          out.Record.Preset,
		Width:           res.Width,
		Height:          res.Height,
		Digest:          out.Record.Digest,
		Palette:         out.Palette.IDs,
		PaletteDigest:   out.Palette.Digest,
		Tiles:           tiles,
		BiomeIDs:        res.BiomeIDs,
		Biomes:          res.Biomes,
		Histogram:       out.Record.Histogram,
	}
	if includeFields {
		m.Fields = &protocol.MapFields{
			Height:   res.HeightMap.Values,
			Moisture: res.MoistureMap.Values,
			Heat:     res.HeatMap.Values,
		}
	}
	return m, nil
}

func SeedsMessage(seeds tilemap.Seeds, requestID string) protocol.SeedsMsg {
	return protocol.SeedsMsg{
		Type:            protocol.TypeSeeds,
		ProtocolVersion: protocol.Version,
		RequestID:       requestID,
		Height:          seeds.Height,
		Moisture:        seeds.Moisture,
		Heat:            seeds.Heat,
	}
}

// OverridesFrom converts the optional GENERATE fields.
func OverridesFrom(msg protocol.GenerateMsg) Overrides {
	ov := Overrides{
		Width:  msg.Width,
		Height: msg.Height,
		Scale:  msg.Scale,
	}
	if msg.Offset != nil {
		ov.Offset = &noise.Vec2{X: msg.Offset.X, Y: msg.Offset.Y}
	}
	return ov
}
