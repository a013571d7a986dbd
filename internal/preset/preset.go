package preset

import (
	"bytes"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"tilegen.ai/internal/terrain/biome"
	"tilegen.ai/internal/terrain/noise"
	"tilegen.ai/internal/terrain/tilemap"
)

//go:embed preset.schema.json
var schemaJSON string

var schema = jsonschema.MustCompileString("preset.schema.json", schemaJSON)

// Preset is everything a host needs to produce one map: grid, noise layers and biomes.
type Preset struct {
	Name   string     `yaml:"name" json:"name"`
	Width  int        `yaml:"width" json:"width"`
	Height int        `yaml:"height" json:"height"`
	Scale  float64    `yaml:"scale" json:"scale"`
	Offset noise.Vec2 `yaml:"offset" json:"offset"`

	Noise     string `yaml:"noise" json:"noise"`
	NoiseSeed int64  `yaml:"noise_seed" json:"noise_seed"`
	TileSeed  int64  `yaml:"tile_seed" json:"tile_seed"`

	HeightWaves   []noise.Wave `yaml:"height_waves" json:"height_waves"`
	MoistureWaves []noise.Wave `yaml:"moisture_waves" json:"moisture_waves"`
	HeatWaves     []noise.Wave `yaml:"heat_waves" json:"heat_waves"`

	Biomes biome.Set `yaml:"biomes" json:"biomes"`
}

func Defaults() Preset {
	return Preset{
		Name:   "default",
		Width:  50,
		Height: 50,
		Scale:  1,
		Noise:  noise.SourcePerlin,
		HeightWaves: []noise.Wave{
			{Seed: 56, Frequency: 0.05, Amplitude: 1},
			{Seed: 199.36, Frequency: 0.1, Amplitude: 0.5},
		},
		MoistureWaves: []noise.Wave{
			{Seed: 621, Frequency: 0.03, Amplitude: 1},
		},
		HeatWaves: []noise.Wave{
			{Seed: 318.6, Frequency: 0.04, Amplitude: 1},
			{Seed: 329.7, Frequency: 0.02, Amplitude: 0.5},
		},
		Biomes: biome.Set{
			{ID: "grassland", Tiles: []string{"grass_1", "grass_2", "grass_3"}},
			{ID: "desert", MinHeight: 0.2, MinMoisture: 0, MinHeat: 0.5, Tiles: []string{"sand_1", "sand_2"}},
			{ID: "forest", MinHeight: 0.3, MinMoisture: 0.45, MinHeat: 0.2, Tiles: []string{"tree_1", "tree_2"}},
			{ID: "mountain", MinHeight: 0.6, MinMoisture: 0, MinHeat: 0, Tiles: []string{"rock_1", "rock_2"}},
			{ID: "tundra", MinHeight: 0.5, MinMoisture: 0.3, MinHeat: 0, Tiles: []string{"snow"}},
		},
	}
}

func Load(path string) (Preset, error) {
	if strings.TrimSpace(path) == "" {
		p := Defaults()
		p.Normalize()
		return p, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Defaults(), err
	}
	return Parse(b)
}

// Parse decodes a YAML preset on top of Defaults, checks it against the
// preset schema and validates the result.
func Parse(b []byte) (Preset, error) {
	p := Defaults()

	var raw any
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return p, fmt.Errorf("preset.yaml: %w", err)
	}
	if raw != nil {
		if err := validateSchema(raw); err != nil {
			return p, fmt.Errorf("preset.yaml: %w", err)
		}
	}
	if err := yaml.Unmarshal(b, &p); err != nil {
		return p, fmt.Errorf("preset.yaml: %w", err)
	}
	p.Normalize()
	if err := p.Validate(); err != nil {
		return p, fmt.Errorf("preset.yaml: %w", err)
	}
	return p, nil
}

func validateSchema(raw any) error {
	// The validator expects encoding/json shaped values.
	jb, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(jb))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return err
	}
	return schema.Validate(doc)
}

func Save(path string, p Preset) error {
	b, err := yaml.Marshal(p)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func (p *Preset) Normalize() {
	if p == nil {
		return
	}
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		p.Name = "default"
	}
	p.Noise = strings.ToLower(strings.TrimSpace(p.Noise))
	if p.Noise == "" {
		p.Noise = noise.SourcePerlin
	}
	for i := range p.Biomes {
		p.Biomes[i].ID = strings.TrimSpace(p.Biomes[i].ID)
		if p.Biomes[i].ID == "" {
			p.Biomes[i].ID = fmt.Sprintf("biome_%d", i)
		}
		for j := range p.Biomes[i].Tiles {
			p.Biomes[i].Tiles[j] = strings.TrimSpace(p.Biomes[i].Tiles[j])
		}
	}
}

func (p Preset) Validate() error {
	if _, err := p.Source(); err != nil {
		return err
	}
	return p.MapConfig().Validate()
}

// MapConfig returns a generation config that shares no memory with p.
func (p Preset) MapConfig() tilemap.Config {
	return tilemap.Config{
		Width:         p.Width,
		Height:        p.Height,
		Scale:         p.Scale,
		Offset:        p.Offset,
		HeightWaves:   noise.CloneWaves(p.HeightWaves),
		MoistureWaves: noise.CloneWaves(p.MoistureWaves),
		HeatWaves:     noise.CloneWaves(p.HeatWaves),
		Biomes:        p.Biomes.Clone(),
	}
}

// WithSeeds copies the wave seeds of cfg back into p.
func (p *Preset) WithSeeds(cfg tilemap.Config) {
	p.HeightWaves = noise.CloneWaves(cfg.HeightWaves)
	p.MoistureWaves = noise.CloneWaves(cfg.MoistureWaves)
	p.HeatWaves = noise.CloneWaves(cfg.HeatWaves)
}

func (p Preset) Clone() Preset {
	p.HeightWaves = noise.CloneWaves(p.HeightWaves)
	p.MoistureWaves = noise.CloneWaves(p.MoistureWaves)
	p.HeatWaves = noise.CloneWaves(p.HeatWaves)
	p.Biomes = p.Biomes.Clone()
	return p
}

func (p Preset) Source() (noise.Source, error) {
	return noise.NewSource(p.Noise, p.NoiseSeed)
}

func (p Preset) Picker() biome.TilePicker {
	return biome.HashPicker{Seed: p.TileSeed}
}

// Digest is a hex sha256 of the canonical JSON form.
func (p Preset) Digest() string {
	b, _ := json.Marshal(p)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
