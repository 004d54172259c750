package glyphcast

import (
	"fmt"
	"image/color"
	"math"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
)

// RGB is an opaque 8-bit colour. It satisfies color.Color.
type RGB struct {
	R, G, B uint8
}

func (c RGB) RGBA() (r, g, b, a uint32) {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff}.RGBA()
}

// Hex formats the colour as #rrggbb.
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// ParseHex parses #rrggbb (the leading # is optional).
func ParseHex(s string) (RGB, error) {
	h := strings.TrimPrefix(s, "#")
	if len(h) != 6 {
		return RGB{}, fmt.Errorf("parse colour %q: want 6 hex digits", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return RGB{}, fmt.Errorf("parse colour %q: %w", s, err)
	}
	return RGB{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}

func mustHex(s string) RGB {
	c, err := ParseHex(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Palette is a colour ramp from dark to light stops plus the colour painted
// behind every cell.
type Palette struct {
	Name       string
	Stops      []RGB
	Background RGB
}

// ColorAt maps a luminance in [0,255] onto the ramp. Adjacent stops are
// linearly interpolated per channel and rounded, so luminance 0 and 255 land
// exactly on the first and last stop.
func (p Palette) ColorAt(luminance float64) RGB {
	n := len(p.Stops)
	switch n {
	case 0:
		return RGB{R: 0xff, G: 0xff, B: 0xff}
	case 1:
		return p.Stops[0]
	}

	t := luminance / 255
	scaled := t * float64(n-1)
	index := int(math.Floor(scaled))
	if index < 0 {
		return p.Stops[0]
	}
	if index >= n-1 {
		return p.Stops[n-1]
	}
	rem := scaled - float64(index)

	c1, c2 := p.Stops[index], p.Stops[index+1]
	return RGB{
		R: lerp8(c1.R, c2.R, rem),
		G: lerp8(c1.G, c2.G, rem),
		B: lerp8(c1.B, c2.B, rem),
	}
}

func lerp8(a, b uint8, t float64) uint8 {
	return uint8(math.Round(float64(a) + (float64(b)-float64(a))*t))
}

func palette(name, bg string, stops ...string) Palette {
	p := Palette{Name: name, Background: mustHex(bg)}
	for _, s := range stops {
		p.Stops = append(p.Stops, mustHex(s))
	}
	return p
}

// Palettes holds the built-in colour grades keyed by name.
var Palettes = map[string]Palette{
	"Matrix":        palette("Matrix", "#000500", "#000000", "#003300", "#00ff00", "#ffffff"),
	"Grayscale":     palette("Grayscale", "#050505", "#000000", "#333333", "#888888", "#ffffff"),
	"Synthwave":     palette("Synthwave", "#0a001a", "#140033", "#3b0066", "#8b00a3", "#00d4ff", "#ffffff"),
	"Thermal":       palette("Thermal", "#000000", "#0000ff", "#00ffff", "#00ff00", "#ffff00", "#ff0000"),
	"Warm Contrast": palette("Warm Contrast", "#1a0a00", "#2b1100", "#6b2200", "#c75d00", "#ffb700", "#ffffff"),
	"Sunset":        palette("Sunset", "#05051a", "#0f0f2e", "#2e2e5e", "#7e4e5e", "#ce6e4e", "#fe9e3e", "#ffffff"),
	"Cool Vintage":  palette("Cool Vintage", "#001e26", "#002b36", "#073642", "#586e75", "#839496", "#eee8d5", "#fdf6e3"),
	"Cream":         palette("Cream", "#f0f0f0", "#2f2f2f", "#a0a0a0", "#e0e0e0", "#ffffff"),
}

// LookupPalette finds a palette by name, ignoring case.
func LookupPalette(name string) (Palette, error) {
	if p, ok := lookupFolded(Palettes, name); ok {
		return p, nil
	}
	return Palette{}, fmt.Errorf("%w: %q", ErrUnknownPalette, name)
}

// PaletteNames returns the built-in palette names in sorted order.
func PaletteNames() []string {
	return sortedKeys(Palettes)
}

func lookupFolded[T any](m map[string]T, name string) (T, bool) {
	if v, ok := m[name]; ok {
		return v, true
	}
	// Casers carry state, so each lookup gets its own.
	fold := cases.Fold()
	want := fold.String(strings.TrimSpace(name))
	for k, v := range m {
		if fold.String(k) == want {
			return v, true
		}
	}
	var zero T
	return zero, false
}

func sortedKeys[T any](m map[string]T) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
