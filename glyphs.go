package glyphcast

import (
	"fmt"
	"math"
	"unicode"
)

// CharacterSet is an ordered run of glyphs from lightest to heaviest. Index 0
// is conventionally a space, which renders as nothing.
type CharacterSet struct {
	Name   string
	Glyphs []rune
}

func charset(name, glyphs string) CharacterSet {
	return CharacterSet{Name: name, Glyphs: []rune(glyphs)}
}

// Len returns the number of glyphs in the set.
func (s CharacterSet) Len() int { return len(s.Glyphs) }

// GlyphAt returns the glyph for a luminance in [0,255].
func (s CharacterSet) GlyphAt(luminance float64) rune {
	if len(s.Glyphs) == 0 {
		return ' '
	}
	return s.Glyphs[GlyphIndex(luminance, len(s.Glyphs))]
}

// GlyphIndex maps a luminance onto [0, n-1] as floor((l/255)*(n-1)).
func GlyphIndex(luminance float64, n int) int {
	if n <= 1 {
		return 0
	}
	i := int(math.Floor(luminance / 255 * float64(n-1)))
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// IsBlank reports whether a glyph draws nothing. Renderers skip blank glyphs
// and leave the cell showing the background.
func IsBlank(r rune) bool {
	return unicode.IsSpace(r)
}

// CharacterSets holds the built-in glyph ramps keyed by name.
var CharacterSets = map[string]CharacterSet{
	"Standard": charset("Standard", " .`^\",:;Il!i~+_-?][}{1)(|\\/tfjrxnuvczXYUJCLQ0OZmwqpdbkhao*#MW&8%B@$"),
	"Steps":    charset("Steps", " .:-=+*#%@"),
	"Blocks":   charset("Blocks", " ░▒▓█"),
	"Binary":   charset("Binary", " 01"),
	"Matrix":   charset("Matrix", " ﾊﾐﾋｰｳｼﾅﾓﾆｻﾜﾂｵﾘｱﾎﾃﾏｹﾒｴｶｷﾑﾕﾗｾﾈｽﾀﾇﾍ1234567890"),
	"Solid":    charset("Solid", " █"),
	"Smileys":  charset("Smileys", "  ☻☺"),
	"Braille":  brailleRamp(),
}

// LookupCharacterSet finds a character set by name, ignoring case.
func LookupCharacterSet(name string) (CharacterSet, error) {
	if s, ok := lookupFolded(CharacterSets, name); ok {
		return s, nil
	}
	return CharacterSet{}, fmt.Errorf("%w: %q", ErrUnknownCharacterSet, name)
}

// CharacterSetNames returns the built-in set names in sorted order.
func CharacterSetNames() []string {
	return sortedKeys(CharacterSets)
}

type dot int

const filled dot = 1

// Represents an 8 dot braille pattern using x,y coordinates. Eg:
// +----------+
// |(0,0)(1,0)|
// |(0,1)(1,1)|
// |(0,2)(1,2)|
// |(0,3)(1,3)|
// +----------+
type pattern [2][4]dot

// CodePoint maps each point in pattern to a braille number and
// calculates the corresponding unicode symbol.
// +------+
// |(1)(4)|
// |(2)(5)|
// |(3)(6)|
// |(7)(8)|
// +------+
// See https://en.wikipedia.org/wiki/Braille_Patterns#Identifying.2C_naming_and_ordering)
func (dots pattern) CodePoint() rune {
	lowEndian := [8]dot{dots[0][0], dots[0][1], dots[0][2], dots[1][0], dots[1][1], dots[1][2], dots[0][3], dots[1][3]}
	var v int
	for i, x := range lowEndian {
		v += int(x) << uint(i)
	}
	return rune(v) + '\u2800'
}

// brailleRamp builds a nine step ramp: a space followed by patterns with one
// to eight raised dots, filled bottom row first.
func brailleRamp() CharacterSet {
	glyphs := []rune{' '}
	var dots pattern
	for y := 3; y >= 0; y-- {
		for x := 0; x < 2; x++ {
			dots[x][y] = filled
			glyphs = append(glyphs, dots.CodePoint())
		}
	}
	return CharacterSet{Name: "Braille", Glyphs: glyphs}
}
