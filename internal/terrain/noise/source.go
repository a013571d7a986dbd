package noise

import (
	"fmt"
	"math"
	"strings"

	perlin "github.com/aquilax/go-perlin"
	"github.com/ojrac/opensimplex-go"

	"tilegen.ai/internal/logic/mathx"
)

const (
	SourcePerlin      = "perlin"
	SourceOpenSimplex = "opensimplex"
)

// Source is a continuous, deterministic 2D coherent-noise function with values in [0,1].
type Source interface {
	Noise2D(x, y float64) float64
}

// Perlin is single-octave gradient noise over a fixed permutation lattice.
// Layering is done by Generate, not by the lattice.
type Perlin struct {
	p *perlin.Perlin
}

func NewPerlin(seed int64) *Perlin {
	return &Perlin{p: perlin.NewPerlin(2, 2, 1, seed)}
}

// perlinPeriod is the lattice period of go-perlin's permutation table.
const perlinPeriod = 256

func (s *Perlin) Noise2D(x, y float64) float64 {
	// The lattice truncates instead of flooring below -4096, so sample inside
	// one period. Values are unchanged since the lattice repeats every 256.
	x, y = wrapPeriod(x), wrapPeriod(y)
	// Raw gradient noise is centered on 0 in roughly [-1,1].
	return mathx.Clamp01((s.p.Noise2D(x, y) + 1) / 2)
}

func wrapPeriod(v float64) float64 {
	v = math.Mod(v, perlinPeriod)
	if v < 0 {
		v += perlinPeriod
	}
	return v
}

type OpenSimplex struct {
	n opensimplex.Noise
}

func NewOpenSimplex(seed int64) *OpenSimplex {
	return &OpenSimplex{n: opensimplex.NewNormalized(seed)}
}

func (s *OpenSimplex) Noise2D(x, y float64) float64 {
	return mathx.Clamp01(s.n.Eval2(x, y))
}

// NewSource picks a noise implementation by name. An empty name selects Perlin.
func NewSource(name string, seed int64) (Source, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", SourcePerlin:
		return NewPerlin(seed), nil
	case SourceOpenSimplex:
		return NewOpenSimplex(seed), nil
	default:
		return nil, fmt.Errorf("%w: unknown noise source %q", ErrInvalidConfiguration, name)
	}
}
