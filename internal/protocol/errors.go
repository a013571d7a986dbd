package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Generation layer.
	ErrBadRequest       = "E_BAD_REQUEST"
	ErrInvalidConfig    = "E_INVALID_CONFIG"
	ErrEmptyBiomeSet    = "E_EMPTY_BIOME_SET"
	ErrEmptyTileChoices = "E_EMPTY_TILE_CHOICES"
	ErrCanceled         = "E_CANCELED"
	ErrInternal         = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest:  {},
	ErrBadRequest:       {},
	ErrInvalidConfig:    {},
	ErrEmptyBiomeSet:    {},
	ErrEmptyTileChoices: {},
	ErrCanceled:         {},
	ErrInternal:         {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
