package generator

import (
	"context"
	"errors"

	"tilegen.ai/internal/protocol"
	"tilegen.ai/internal/terrain/biome"
	"tilegen.ai/internal/terrain/noise"
)

// ErrorCode maps a generation error to its protocol code.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, biome.ErrEmptyBiomeSet):
		return protocol.ErrEmptyBiomeSet
	case errors.Is(err, biome.ErrEmptyTileChoices):
		return protocol.ErrEmptyTileChoices
	case errors.Is(err, noise.ErrInvalidConfiguration):
		return protocol.ErrInvalidConfig
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return protocol.ErrCanceled
	default:
		return protocol.ErrInternal
	}
}
