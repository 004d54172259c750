package glyphcast_test

import (
	"slices"

	. "github.com/kevin-cantwell/glyphcast"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func gridOf(w, h, step int, cells ...SampleCell) *Grid {
	return &Grid{Width: w, Height: h, Step: step, Cells: slices.Values(cells)}
}

func opsOf(ops []drawOp, kind string) []drawOp {
	var out []drawOp
	for _, op := range ops {
		if op.kind == kind {
			out = append(out, op)
		}
	}
	return out
}

var _ = Describe("MosaicRenderer", func() {
	var (
		renderer *MosaicRenderer
		surface  *recordingSurface
		cfg      RenderConfig
		cells    []SampleCell
	)

	BeforeEach(func() {
		renderer = NewMosaicRenderer()
		surface = &recordingSurface{}
		cfg = DefaultRenderConfig()
		cfg.CharacterSet = "Steps"
		matrix := Palettes["Matrix"]
		cells = []SampleCell{
			{X: 0, Y: 0, Luminance: 0, Color: matrix.ColorAt(0)},
			{X: 10, Y: 0, Luminance: 128, Color: matrix.ColorAt(128)},
			{X: 0, Y: 10, Luminance: 255, Color: matrix.ColorAt(255)},
		}
	})

	It("resizes and clears before drawing and presents last", func() {
		Expect(renderer.Render(surface, gridOf(20, 20, 10, cells...), cfg)).To(Succeed())

		ops := surface.Ops()
		Expect(ops[0].kind).To(Equal("resize"))
		Expect(ops[1].kind).To(Equal("clear"))
		Expect(ops[1].c).To(Equal(Palettes["Matrix"].Background))
		Expect(ops[len(ops)-1].kind).To(Equal("present"))
		w, h := surface.Size()
		Expect([]int{w, h}).To(Equal([]int{20, 20}))
	})

	It("skips blank glyphs and centres the rest in their cell", func() {
		Expect(renderer.Render(surface, gridOf(20, 20, 10, cells...), cfg)).To(Succeed())

		glyphs := opsOf(surface.Ops(), "glyph")
		Expect(glyphs).To(HaveLen(2))
		Expect(glyphs[0].r).To(Equal('='))
		Expect(glyphs[0].x).To(Equal(15.0))
		Expect(glyphs[0].y).To(Equal(5.0))
		Expect(glyphs[0].c).To(Equal(cells[1].Color))
		Expect(glyphs[1].r).To(Equal('@'))
	})

	It("draws one disk per cell in dot mode", func() {
		cfg.Shape = Dot
		Expect(renderer.Render(surface, gridOf(20, 20, 10, cells...), cfg)).To(Succeed())

		disks := opsOf(surface.Ops(), "disk")
		Expect(disks).To(HaveLen(3))
		Expect(disks[0].size).To(Equal(0.0))
		Expect(disks[2].size).To(BeNumerically("~", 5, 1e-9))
		Expect(opsOf(surface.Ops(), "glyph")).To(BeEmpty())
	})

	It("produces identical output for identical input", func() {
		Expect(renderer.Render(surface, gridOf(20, 20, 10, cells...), cfg)).To(Succeed())
		first := surface.Ops()
		surface.Reset()
		Expect(renderer.Render(surface, gridOf(20, 20, 10, cells...), cfg)).To(Succeed())
		Expect(surface.Ops()).To(Equal(first))
	})

	It("clears an empty grid to the background", func() {
		Expect(renderer.Render(surface, gridOf(20, 20, 10), cfg)).To(Succeed())
		Expect(surface.Ops()).To(HaveLen(3))
		Expect(surface.Presents()).To(Equal(1))
	})

	It("fails before drawing on an unknown character set", func() {
		cfg.CharacterSet = "Nope"
		Expect(renderer.Render(surface, gridOf(20, 20, 10, cells...), cfg)).To(MatchError(ErrUnknownCharacterSet))
		Expect(surface.Ops()).To(BeEmpty())
	})

	Describe("sizing", func() {
		It("spans min to max size with luminance when varying", func() {
			Expect(GlyphSize(0, cfg)).To(Equal(cfg.MinSize))
			Expect(GlyphSize(255, cfg)).To(Equal(cfg.MaxSize))
			Expect(GlyphSize(127.5, cfg)).To(BeNumerically("~", 10, 1e-9))
		})

		It("uses the base size otherwise", func() {
			cfg.VarySize = false
			Expect(GlyphSize(0, cfg)).To(Equal(cfg.BaseSize))
			Expect(GlyphSize(255, cfg)).To(Equal(cfg.BaseSize))
		})

		It("sizes dots by half the step", func() {
			Expect(DotRadius(255, 20, cfg)).To(BeNumerically("~", 10, 1e-9))
			Expect(DotRadius(0, 20, cfg)).To(Equal(0.0))
			cfg.VarySize = false
			Expect(DotRadius(0, 20, cfg)).To(BeNumerically("~", 8, 1e-9))
		})
	})
})
