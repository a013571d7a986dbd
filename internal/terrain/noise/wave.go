package noise

import "math/rand"

// Wave is one octave of a layered field. Seed shifts the sample position,
// Frequency scales it, and Amplitude weights the octave in the normalized sum.
type Wave struct {
	Seed      float64 `yaml:"seed" json:"seed"`
	Frequency float64 `yaml:"frequency" json:"frequency"`
	Amplitude float64 `yaml:"amplitude" json:"amplitude"`
}

type Vec2 struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
}

// CloneWaves returns a copy that shares no memory with in.
func CloneWaves(in []Wave) []Wave {
	if in == nil {
		return nil
	}
	out := make([]Wave, len(in))
	copy(out, in)
	return out
}

// RandomizeSeeds assigns every wave an integer seed in [0, upper).
// It mutates waves in place and must not run during a generation pass.
func RandomizeSeeds(waves []Wave, upper int, rng *rand.Rand) {
	if upper <= 0 || rng == nil {
		return
	}
	for i := range waves {
		waves[i].Seed = float64(rng.Intn(upper))
	}
}
