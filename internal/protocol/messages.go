package protocol

// GENERATE (client -> server)
type GenerateMsg struct {
	Type            string   `json:"type"`
	ProtocolVersion string   `json:"protocol_version"`
	RequestID       string   `json:"request_id,omitempty"`
	Width           *int     `json:"width,omitempty"`
	Height          *int     `json:"height,omitempty"`
	Scale           *float64 `json:"scale,omitempty"`
	Offset          *Vec2    `json:"offset,omitempty"`
	IncludeFields   bool     `json:"include_fields,omitempty"`
}

type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// RESEED (client -> server)
type ReseedMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	RequestID       string `json:"request_id,omitempty"`
}

// MAP (server -> client)
type MapMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	RequestID       string         `json:"request_id,omitempty"`
	RunID           string         `json:"run_id"`
	Preset          string         `json:"preset"`
	Width           int            `json:"width"`
	Height          int            `json:"height"`
	Digest          string         `json:"digest"`
	Palette         []string       `json:"palette"`
	PaletteDigest   string         `json:"palette_digest"`
	Tiles           []uint16       `json:"tiles"`
	BiomeIDs        []string       `json:"biome_ids"`
	Biomes          []int          `json:"biomes"`
	Histogram       map[string]int `json:"histogram"`
	Fields          *MapFields     `json:"fields,omitempty"`
}

// MapFields carries the raw layers, row-major, when the client asks for them.
type MapFields struct {
	Height   []float64 `json:"height"`
	Moisture []float64 `json:"moisture"`
	Heat     []float64 `json:"heat"`
}

// SEEDS (server -> client)
type SeedsMsg struct {
	Type            string    `json:"type"`
	ProtocolVersion string    `json:"protocol_version"`
	RequestID       string    `json:"request_id,omitempty"`
	Height          []float64 `json:"height"`
	Moisture        []float64 `json:"moisture"`
	Heat            []float64 `json:"heat"`
}

// ERROR (server -> client)
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	RequestID       string `json:"request_id,omitempty"`
	Code            string `json:"code"`
	Message         string `json:"message"`
}

func NewError(requestID, code, message string) ErrorMsg {
	return ErrorMsg{
		Type:            TypeError,
		ProtocolVersion: Version,
		RequestID:       requestID,
		Code:            code,
		Message:         message,
	}
}
