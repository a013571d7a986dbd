package generator

import (
	"context"
	"fmt"
	"io"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"tilegen.ai/internal/preset"
	"tilegen.ai/internal/terrain/noise"
	"tilegen.ai/internal/terrain/tilemap"
)

// RunSink receives one record per successful generation.
type RunSink interface {
	RecordRun(rec RunRecord) error
}

type RunRecord struct {
	RunID      string         `json:"run_id"`
	Preset     string         `json:"preset"`
	PresetHash string         `json:"preset_digest"`
	StartedAt  string         `json:"started_at"`
	DurationMS int64          `json:"duration_ms"`
	Width      int            `json:"width"`
	Height     int            `json:"height"`
	Scale      float64        `json:"scale"`
	Offset     noise.Vec2     `json:"offset"`
	Noise      string         `json:"noise"`
	NoiseSeed  int64          `json:"noise_seed"`
	TileSeed   int64          `json:"tile_seed"`
	Seeds      tilemap.Seeds  `json:"seeds"`
	Digest     string         `json:"digest"`
	Histogram  map[string]int `json:"histogram"`
}

// Overrides adjust a single generation without touching the stored preset.
type Overrides struct {
	Width  *int
	Height *int
	Scale  *float64
	Offset *noise.Vec2
}

type Output struct {
	Result  *tilemap.Result
	Palette tilemap.Palette
	Record  RunRecord
}

type Options struct {
	Logger *log.Logger
	Sinks  []RunSink
	Rand   *rand.Rand
	Now    func() time.Time
}

// Service owns the mutable preset a host edits between generations.
type Service struct {
	mu     sync.Mutex
	preset preset.Preset
	rng    *rand.Rand

	log   *log.Logger
	sinks []RunSink
	now   func() time.Time
}

func New(p preset.Preset, opts Options) (*Service, error) {
	p = p.Clone()
	p.Normalize()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	s := &Service{
		preset: p,
		rng:    opts.Rand,
		log:    opts.Logger,
		sinks:  opts.Sinks,
		now:    opts.Now,
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if s.log == nil {
		s.log = log.New(io.Discard, "", 0)
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

func (s *Service) Preset() preset.Preset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.preset.Clone()
}

// SetPreset replaces the stored preset after validating it.
func (s *Service) SetPreset(p preset.Preset) error {
	p = p.Clone()
	p.Normalize()
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.preset = p
	s.mu.Unlock()
	return nil
}

// RandomizeSeeds reseeds every wave of the stored preset and returns the new seeds.
// In-flight generations keep the seeds they started with.
func (s *Service) RandomizeSeeds() tilemap.Seeds {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg := s.preset.MapConfig()
	tilemap.RandomizeSeeds(&cfg, s.rng)
	s.preset.WithSeeds(cfg)
	return cfg.Seeds()
}

// Generate builds all three fields from the current preset and classifies every cell.
func (s *Service) Generate(ctx context.Context, ov Overrides) (*Output, error) {
	p := s.Preset()
	if ov.Width != nil {
		p.Width = *ov.Width
	}
	if ov.Height != nil {
		p.Height = *ov.Height
	}
	if ov.Scale != nil {
		p.Scale = *ov.Scale
	}
	if ov.Offset != nil {
		p.Offset = *ov.Offset
	}

	src, err := p.Source()
	if err != nil {
		return nil, err
	}
	cfg := p.MapConfig()
	pal, err := tilemap.BuildPalette(cfg.Biomes)
	if err != nil {
		return nil, err
	}

	start := s.now()
	res, err := tilemap.Generate(ctx, cfg, src, p.Picker())
	if err != nil {
		return nil, fmt.Errorf("generate %s: %w", p.Name, err)
	}
	elapsed := s.now().Sub(start)

	rec := RunRecord{
		RunID:      uuid.NewString(),
		Preset:     p.Name,
		PresetHash: p.Digest(),
		StartedAt:  start.UTC().Format(time.RFC3339Nano),
		DurationMS: elapsed.Milliseconds(),
		Width:      cfg.Width,
		Height:     cfg.Height,
		Scale:      cfg.Scale,
		Offset:     cfg.Offset,
		Noise:      p.Noise,
		NoiseSeed:  p.NoiseSeed,
		TileSeed:   p.TileSeed,
		Seeds:      cfg.Seeds(),
		Digest:     res.Digest(),
		Histogram:  res.Histogram(),
	}
	for _, sink := range s.sinks {
		if sink == nil {
			continue
		}
		if err := sink.RecordRun(rec); err != nil {
			s.log.Printf("run %s: record: %v", rec.RunID, err)
		}
	}
	s.log.Printf("run=%s preset=%s size=%dx%d noise=%s digest=%.12s took=%s",
		rec.RunID, rec.Preset, rec.Width, rec.Height, rec.Noise, rec.Digest, elapsed)

	return &Output{Result: res, Palette: pal, Record: rec}, nil
}
