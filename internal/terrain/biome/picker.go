package biome

import (
	"math/rand"
	"sync"

	"tilegen.ai/internal/logic/mathx"
)

// TilePicker returns an index in [0,n) for the tile at cell (x,y).
type TilePicker interface {
	Pick(n, x, y int) int
}

// HashPicker derives the pick from the cell coordinate, so the same seed
// always yields the same tiles regardless of visit order.
type HashPicker struct {
	Seed int64
}

func (p HashPicker) Pick(n, x, y int) int {
	if n <= 0 {
		return 0
	}
	return int(mathx.Hash2(p.Seed, x, y) % uint64(n))
}

// RandPicker draws from a shared generator in call order.
type RandPicker struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewRandPicker(rng *rand.Rand) *RandPicker {
	return &RandPicker{rng: rng}
}

func (p *RandPicker) Pick(n, _, _ int) int {
	if n <= 0 {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.Intn(n)
}
