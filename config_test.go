package glyphcast_test

import (
	"math"
	"math/rand"
	"os"
	"path/filepath"

	. "github.com/kevin-cantwell/glyphcast"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("RenderConfig", func() {
	DescribeTable("StepSize",
		func(density float64, step int) {
			Expect(StepSize(density)).To(Equal(step))
		},
		Entry("default density", 0.5, 14),
		Entry("dense", 0.95, 5),
		Entry("densest", 1.0, 4),
		Entry("sparse", 0.1, 22),
	)

	It("shrinks the step as density rises", func() {
		prev := StepSize(0.01)
		for d := 0.02; d <= 1; d += 0.01 {
			Expect(StepSize(d)).To(BeNumerically("<=", prev))
			Expect(StepSize(d)).To(BeNumerically(">=", 4))
			prev = StepSize(d)
		}
	})

	It("has valid defaults", func() {
		cfg := DefaultRenderConfig()
		Expect(cfg.Validate()).To(Succeed())
		Expect(cfg.StepSize()).To(Equal(14))
		Expect(cfg.Adjust.Identity()).To(BeTrue())
	})

	DescribeTable("Validate rejects",
		func(edit func(*RenderConfig), target error) {
			cfg := DefaultRenderConfig()
			edit(&cfg)
			Expect(cfg.Validate()).To(MatchError(target))
		},
		Entry("zero density", func(c *RenderConfig) { c.Density = 0 }, ErrInvalidConfig),
		Entry("density above one", func(c *RenderConfig) { c.Density = 1.5 }, ErrInvalidConfig),
		Entry("min above max", func(c *RenderConfig) { c.MinSize = 20 }, ErrInvalidConfig),
		Entry("zero zoom", func(c *RenderConfig) { c.ViewZoom = 0 }, ErrInvalidConfig),
		Entry("NaN base size", func(c *RenderConfig) { c.BaseSize = math.NaN() }, ErrInvalidConfig),
		Entry("NaN min size", func(c *RenderConfig) { c.MinSize = math.NaN() }, ErrInvalidConfig),
		Entry("NaN max size", func(c *RenderConfig) { c.MaxSize = math.NaN() }, ErrInvalidConfig),
		Entry("infinite max size", func(c *RenderConfig) { c.MaxSize = math.Inf(1) }, ErrInvalidConfig),
		Entry("infinite zoom", func(c *RenderConfig) { c.ViewZoom = math.Inf(1) }, ErrInvalidConfig),
		Entry("NaN gamma", func(c *RenderConfig) { c.Adjust.Gamma = math.NaN() }, ErrInvalidConfig),
		Entry("unknown shape", func(c *RenderConfig) { c.Shape = ShapeType(9) }, ErrInvalidConfig),
		Entry("unknown palette", func(c *RenderConfig) { c.Palette = "Nope" }, ErrUnknownPalette),
		Entry("unknown charset", func(c *RenderConfig) { c.CharacterSet = "Nope" }, ErrUnknownCharacterSet),
	)

	It("rejects a NaN size read from YAML", func() {
		_, err := ParseConfig([]byte("max_size: .nan\n"))
		Expect(err).To(MatchError(ErrInvalidConfig))
	})

	It("parses YAML over the defaults", func() {
		cfg, err := ParseConfig([]byte(`
shape: dot
density: 0.8
palette: thermal
adjust:
  mirror: true
  gamma: 1.4
`))
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Shape).To(Equal(Dot))
		Expect(cfg.Density).To(Equal(0.8))
		Expect(cfg.Palette).To(Equal("thermal"))
		Expect(cfg.Adjust.Mirror).To(BeTrue())
		Expect(cfg.Adjust.Gamma).To(Equal(1.4))
		Expect(cfg.CharacterSet).To(Equal("Standard"))
		Expect(cfg.MaxSize).To(Equal(float64(DefaultMaxSize)))
	})

	It("rejects unknown keys and invalid values", func() {
		_, err := ParseConfig([]byte("colour: red\n"))
		Expect(err).To(HaveOccurred())

		_, err = ParseConfig([]byte("shape: hexagon\n"))
		Expect(err).To(HaveOccurred())

		_, err = ParseConfig([]byte("density: 2\n"))
		Expect(err).To(MatchError(ErrInvalidConfig))
	})

	It("loads a config file", func() {
		path := filepath.Join(GinkgoT().TempDir(), "glyphcast.yaml")
		Expect(os.WriteFile(path, []byte("charset: Blocks\nvary_size: false\n"), 0644)).To(Succeed())

		cfg, err := LoadConfig(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.CharacterSet).To(Equal("Blocks"))
		Expect(cfg.VarySize).To(BeFalse())
	})

	It("randomizes into a valid config", func() {
		rng := rand.New(rand.NewSource(7))
		for i := 0; i < 50; i++ {
			cfg := DefaultRenderConfig().Randomize(rng)
			Expect(cfg.Validate()).To(Succeed())
			Expect(cfg.Density).To(BeNumerically(">=", 0.3))
			Expect(cfg.Density).To(BeNumerically("<", 0.7))
			Expect(cfg.BaseSize).To(BeNumerically(">=", 8))
			Expect(cfg.BaseSize).To(BeNumerically("<", 16))
		}
	})
})

var _ = Describe("ShapeType", func() {
	It("parses aliases", func() {
		for in, want := range map[string]ShapeType{"glyph": Glyph, "ASCII": Glyph, "dots": Dot, "dot": Dot} {
			got, err := ParseShape(in)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(want))
		}
		_, err := ParseShape("square")
		Expect(err).To(MatchError(ErrInvalidConfig))
	})
})
