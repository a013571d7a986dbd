package noise

import (
	"errors"
	"fmt"

	"tilegen.ai/internal/logic/mathx"
)

var ErrInvalidConfiguration = errors.New("invalid configuration")

// MaxCells bounds width*height for a single generation (2048x2048).
const MaxCells = 1 << 22

// CheckDims rejects non-positive dimensions and grids larger than MaxCells.
func CheckDims(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: dimensions must be > 0 (got %dx%d)", ErrInvalidConfiguration, width, height)
	}
	if width > MaxCells/height {
		return fmt.Errorf("%w: %dx%d exceeds %d cells", ErrInvalidConfiguration, width, height, MaxCells)
	}
	return nil
}

// Validate checks the wave set for a usable normalization factor.
func Validate(waves []Wave) error {
	if len(waves) == 0 {
		return fmt.Errorf("%w: no waves", ErrInvalidConfiguration)
	}
	total := 0.0
	for i, w := range waves {
		if !mathx.Finite(w.Seed, w.Frequency, w.Amplitude) {
			return fmt.Errorf("%w: wave %d has non-finite parameters", ErrInvalidConfiguration, i)
		}
		if w.Amplitude < 0 {
			return fmt.Errorf("%w: wave %d amplitude must be >= 0", ErrInvalidConfiguration, i)
		}
		total += w.Amplitude
	}
	if total == 0 || !mathx.Finite(total) {
		return fmt.Errorf("%w: total amplitude must be > 0", ErrInvalidConfiguration)
	}
	return nil
}

// Sample evaluates the normalized wave sum at one sample position.
// Callers must have validated waves.
func Sample(src Source, waves []Wave, sx, sy float64) float64 {
	var sum, norm float64
	for _, w := range waves {
		sum += w.Amplitude * src.Noise2D(sx*w.Frequency+w.Seed, sy*w.Frequency+w.Seed)
		norm += w.Amplitude
	}
	return sum / norm
}

// Generate fills a fresh width x height field. Cell (x,y) samples the waves at
// (x*scale+offset.X, y*scale+offset.Y); the result is a pure function of the inputs.
func Generate(width, height int, scale float64, waves []Wave, offset Vec2, src Source) (*Field, error) {
	if err := CheckDims(width, height); err != nil {
		return nil, err
	}
	if !mathx.Finite(scale, offset.X, offset.Y) {
		return nil, fmt.Errorf("%w: scale and offset must be finite", ErrInvalidConfiguration)
	}
	if src == nil {
		return nil, fmt.Errorf("%w: nil noise source", ErrInvalidConfiguration)
	}
	if err := Validate(waves); err != nil {
		return nil, err
	}

	f := newField(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			sx := float64(x)*scale + offset.X
			sy := float64(y)*scale + offset.Y
			f.set(x, y, mathx.Clamp01(Sample(src, waves, sx, sy)))
		}
	}
	return f, nil
}
