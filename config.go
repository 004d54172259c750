package glyphcast

import (
	"fmt"
	"math"
	"math/rand"
	"os"
	"strings"

	"gopkg.in/yaml.v2"
)

// ShapeType selects what is drawn per cell.
type ShapeType int

const (
	Glyph ShapeType = iota
	Dot
)

func (s ShapeType) String() string {
	switch s {
	case Glyph:
		return "glyph"
	case Dot:
		return "dot"
	}
	return fmt.Sprintf("ShapeType(%d)", int(s))
}

// ParseShape accepts "glyph" (or "ascii", "char") and "dot" (or "dots").
func ParseShape(s string) (ShapeType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "glyph", "ascii", "char":
		return Glyph, nil
	case "dot", "dots":
		return Dot, nil
	}
	return 0, fmt.Errorf("%w: unknown shape %q", ErrInvalidConfig, s)
}

func (s ShapeType) MarshalYAML() (interface{}, error) {
	return s.String(), nil
}

func (s *ShapeType) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw string
	if err := unmarshal(&raw); err != nil {
		return err
	}
	v, err := ParseShape(raw)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Adjustments are tone corrections applied to the working frame before it is
// sampled. The zero value of every field except Gamma means "leave as is";
// a Gamma of 0 is treated as 1.
type Adjustments struct {
	Gamma           float64 `yaml:"gamma"`
	Brightness      float64 `yaml:"brightness"`
	Contrast        float64 `yaml:"contrast"`
	Sharpen         float64 `yaml:"sharpen"`
	SigmoidMidpoint float64 `yaml:"sigmoid_midpoint"`
	SigmoidFactor   float64 `yaml:"sigmoid_factor"`
	Invert          bool    `yaml:"invert"`
	Mirror          bool    `yaml:"mirror"`
}

// Identity reports whether applying a would leave a frame unchanged.
func (a Adjustments) Identity() bool {
	return (a.Gamma == 0 || a.Gamma == 1) &&
		a.Brightness == 0 && a.Contrast == 0 && a.Sharpen == 0 &&
		a.SigmoidFactor == 0 && !a.Invert && !a.Mirror
}

// RenderConfig is one immutable snapshot of every rendering parameter. The
// render loop reads a single snapshot per tick; callers replace it wholesale.
type RenderConfig struct {
	Shape        ShapeType   `yaml:"shape"`
	BaseSize     float64     `yaml:"base_size"`
	MinSize      float64     `yaml:"min_size"`
	MaxSize      float64     `yaml:"max_size"`
	VarySize     bool        `yaml:"vary_size"`
	Density      float64     `yaml:"density"`
	CharacterSet string      `yaml:"charset"`
	Palette      string      `yaml:"palette"`
	ViewZoom     float64     `yaml:"zoom"` // percent, display only
	Adjust       Adjustments `yaml:"adjust"`
}

const (
	DefaultBaseSize = 10
	DefaultMinSize  = 6
	DefaultMaxSize  = 14
	DefaultDensity  = 0.5
	DefaultZoom     = 100
)

func DefaultRenderConfig() RenderConfig {
	return RenderConfig{
		Shape:        Glyph,
		BaseSize:     DefaultBaseSize,
		MinSize:      DefaultMinSize,
		MaxSize:      DefaultMaxSize,
		VarySize:     true,
		Density:      DefaultDensity,
		CharacterSet: "Standard",
		Palette:      "Matrix",
		ViewZoom:     DefaultZoom,
		Adjust:       Adjustments{Gamma: 1, SigmoidMidpoint: 0.5},
	}
}

// StepSize is the cell edge in working-buffer pixels. Lower density gives
// larger, fewer cells.
func (c RenderConfig) StepSize() int {
	return StepSize(c.Density)
}

// StepSize computes max(4, round(20*(1-density)+4)).
func StepSize(density float64) int {
	step := int(math.Round(20*(1-density) + 4))
	if step < 4 {
		return 4
	}
	return step
}

func (c RenderConfig) Validate() error {
	if c.Shape != Glyph && c.Shape != Dot {
		return fmt.Errorf("%w: shape %v", ErrInvalidConfig, c.Shape)
	}
	if !finite(c.BaseSize, c.MinSize, c.MaxSize, c.ViewZoom) {
		return fmt.Errorf("%w: sizes and zoom must be finite", ErrInvalidConfig)
	}
	a := c.Adjust
	if !finite(a.Gamma, a.Brightness, a.Contrast, a.Sharpen, a.SigmoidMidpoint, a.SigmoidFactor) {
		return fmt.Errorf("%w: adjustments must be finite", ErrInvalidConfig)
	}
	if c.BaseSize <= 0 || c.MinSize <= 0 || c.MaxSize <= 0 {
		return fmt.Errorf("%w: sizes must be positive", ErrInvalidConfig)
	}
	if c.MinSize > c.MaxSize {
		return fmt.Errorf("%w: min size %v exceeds max size %v", ErrInvalidConfig, c.MinSize, c.MaxSize)
	}
	if !(c.Density > 0 && c.Density <= 1) {
		return fmt.Errorf("%w: density %v outside (0,1]", ErrInvalidConfig, c.Density)
	}
	if c.ViewZoom <= 0 {
		return fmt.Errorf("%w: zoom must be positive", ErrInvalidConfig)
	}
	if _, err := LookupCharacterSet(c.CharacterSet); err != nil {
		return err
	}
	p, err := LookupPalette(c.Palette)
	if err != nil {
		return err
	}
	if len(p.Stops) == 0 {
		return fmt.Errorf("%w: palette %q has no stops", ErrInvalidConfig, p.Name)
	}
	return nil
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Randomize returns a copy with a random character set, palette, a density in
// [0.3, 0.7) and a base size in [8, 16).
func (c RenderConfig) Randomize(rng *rand.Rand) RenderConfig {
	sets := CharacterSetNames()
	palettes := PaletteNames()
	c.CharacterSet = sets[rng.Intn(len(sets))]
	c.Palette = palettes[rng.Intn(len(palettes))]
	c.Density = 0.3 + rng.Float64()*0.4
	c.BaseSize = float64(8 + rng.Intn(8))
	return c
}

// LoadConfig reads a YAML config file on top of DefaultRenderConfig.
func LoadConfig(path string) (RenderConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RenderConfig{}, err
	}
	return ParseConfig(data)
}

func ParseConfig(data []byte) (RenderConfig, error) {
	cfg := DefaultRenderConfig()
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return RenderConfig{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return RenderConfig{}, err
	}
	return cfg, nil
}
