package glyphcast

import (
	"bufio"
	"io"
)

// TextEncoder writes a sampled grid as plain text, one line per grid row.
// Glyph mode writes the glyph for each cell; dot mode writes a braille
// pattern whose dot count follows luminance.
type TextEncoder struct {
	w   io.Writer
	cfg RenderConfig
}

func NewTextEncoder(w io.Writer, cfg RenderConfig) *TextEncoder {
	return &TextEncoder{w: w, cfg: cfg}
}

// Encode consumes the grid's cells and writes them row by row, one rune per
// cell.
func (enc *TextEncoder) Encode(g *Grid) error {
	set := CharacterSets["Braille"]
	if enc.cfg.Shape == Glyph {
		var err error
		if set, err = LookupCharacterSet(enc.cfg.CharacterSet); err != nil {
			return err
		}
	}

	out := bufio.NewWriter(enc.w)
	row := -1
	for cell := range g.Cells {
		if cell.Y != row {
			if row >= 0 {
				if err := out.WriteByte('\n'); err != nil {
					return err
				}
			}
			row = cell.Y
		}
		if _, err := out.WriteRune(set.GlyphAt(cell.Luminance)); err != nil {
			return err
		}
	}
	if row >= 0 {
		if err := out.WriteByte('\n'); err != nil {
			return err
		}
	}
	return out.Flush()
}
