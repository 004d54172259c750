package glyphcast

import "math"

// MosaicRenderer paints a sampled grid onto a Surface, one glyph or dot per
// cell.
type MosaicRenderer struct{}

func NewMosaicRenderer() *MosaicRenderer {
	return &MosaicRenderer{}
}

// Render resizes the surface to the grid, clears it to the palette
// background, draws every cell and presents the result. The clear happens on
// every call because cells that draw nothing must show background, never a
// previous frame.
func (mr *MosaicRenderer) Render(s Surface, g *Grid, cfg RenderConfig) error {
	pal, err := LookupPalette(cfg.Palette)
	if err != nil {
		return err
	}
	var set CharacterSet
	if cfg.Shape == Glyph {
		if set, err = LookupCharacterSet(cfg.CharacterSet); err != nil {
			return err
		}
	}

	s.Resize(g.Width, g.Height)
	s.Clear(pal.Background)
	for cell := range g.Cells {
		mr.DrawCell(s, cell, g.Step, set, cfg)
	}
	return s.Present()
}

// DrawCell paints a single cell. Blank glyphs are skipped.
func (mr *MosaicRenderer) DrawCell(s Surface, cell SampleCell, step int, set CharacterSet, cfg RenderConfig) {
	half := float64(step) / 2
	cx, cy := float64(cell.X)+half, float64(cell.Y)+half

	switch cfg.Shape {
	case Glyph:
		g := set.GlyphAt(cell.Luminance)
		if IsBlank(g) {
			return
		}
		s.DrawGlyph(g, cx, cy, GlyphSize(cell.Luminance, cfg), cell.Color)
	case Dot:
		s.DrawDisk(cx, cy, DotRadius(cell.Luminance, step, cfg), cell.Color)
	}
}

// GlyphSize is BaseSize, or when VarySize is set, MinSize plus the
// luminance's share of the MinSize..MaxSize range.
func GlyphSize(luminance float64, cfg RenderConfig) float64 {
	if !cfg.VarySize {
		return cfg.BaseSize
	}
	return cfg.MinSize + luminance/255*(cfg.MaxSize-cfg.MinSize)
}

// DotRadius is 80% of half the step, or when VarySize is set, the
// luminance's share of half the step.
func DotRadius(luminance float64, step int, cfg RenderConfig) float64 {
	maxRadius := float64(step) / 2
	if !cfg.VarySize {
		return maxRadius * 0.8
	}
	return math.Max(0, luminance/255*maxRadius)
}
