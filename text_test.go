package glyphcast_test

import (
	"bytes"

	. "github.com/kevin-cantwell/glyphcast"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("TextEncoder", func() {
	cells := func() *Grid {
		return gridOf(20, 20, 10,
			SampleCell{X: 0, Y: 0, Luminance: 0},
			SampleCell{X: 10, Y: 0, Luminance: 255},
			SampleCell{X: 0, Y: 10, Luminance: 128},
			SampleCell{X: 10, Y: 10, Luminance: 255},
		)
	}

	It("writes one line of glyphs per row", func() {
		cfg := DefaultRenderConfig()
		cfg.CharacterSet = "Steps"
		var out bytes.Buffer
		Expect(NewTextEncoder(&out, cfg).Encode(cells())).To(Succeed())
		Expect(out.String()).To(Equal(" @\n=@\n"))
	})

	It("writes braille in dot mode", func() {
		cfg := DefaultRenderConfig()
		cfg.Shape = Dot
		var out bytes.Buffer
		Expect(NewTextEncoder(&out, cfg).Encode(cells())).To(Succeed())
		Expect(out.String()).To(Equal(" ⣿\n⣤⣿\n"))
	})

	It("writes nothing for an empty grid", func() {
		var out bytes.Buffer
		Expect(NewTextEncoder(&out, DefaultRenderConfig()).Encode(gridOf(0, 0, 10))).To(Succeed())
		Expect(out.Len()).To(Equal(0))
	})

	It("fails on an unknown character set", func() {
		cfg := DefaultRenderConfig()
		cfg.CharacterSet = "Nope"
		Expect(NewTextEncoder(&bytes.Buffer{}, cfg).Encode(cells())).To(MatchError(ErrUnknownCharacterSet))
	})
})
