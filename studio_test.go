package glyphcast_test

import (
	"errors"
	"image/color"
	"time"

	. "github.com/kevin-cantwell/glyphcast"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Studio", func() {
	var (
		sched   *manualScheduler
		surface *recordingSurface
		ticker  *manualTicker
		src     *fakeSource
		studio  *Studio
	)

	BeforeEach(func() {
		sched = newManualScheduler()
		surface = &recordingSurface{snapshot: solid(4, 4, color.RGBA{R: 7, A: 0xff})}
		ticker = newManualTicker()
		src = newFakeSource(gradient(64, 32))

		var err error
		studio, err = NewStudio(surface, sched, DefaultRenderConfig(),
			WithTicker(func(time.Duration) Ticker { return ticker }),
			WithRecorder(fakeFormat, func(w, h, fps int) (Recorder, error) { return &fakeRecorder{}, nil }),
		)
		Expect(err).NotTo(HaveOccurred())
		Expect(studio.Use(func() (Source, error) { return src, nil })).To(Succeed())
	})

	It("renders the current source once started", func() {
		Expect(studio.Source()).To(BeIdenticalTo(Source(src)))
		studio.Start()
		Expect(sched.Fire()).To(BeTrue())
		Expect(surface.Presents()).To(Equal(1))
		Expect(studio.Loop().Frames()).To(Equal(uint64(1)))
	})

	It("toggles playback without stopping the loop", func() {
		studio.Start()
		Expect(studio.TogglePlay()).To(BeFalse())
		Expect(src.Paused()).To(BeTrue())
		Expect(sched.Fire()).To(BeTrue())
		Expect(surface.Presents()).To(Equal(0))
		Expect(studio.Loop().Running()).To(BeTrue())

		Expect(studio.TogglePlay()).To(BeTrue())
		Expect(sched.Fire()).To(BeTrue())
		Expect(surface.Presents()).To(Equal(1))

		studio.Pause()
		Expect(src.Paused()).To(BeTrue())
		studio.Play()
		Expect(src.Paused()).To(BeFalse())
	})

	It("closes the previous source when switching", func() {
		next := newFakeSource(solid(8, 8, color.White))
		Expect(studio.Use(func() (Source, error) { return next, nil })).To(Succeed())
		Expect(src.Closed()).To(BeTrue())
		Expect(studio.Source()).To(BeIdenticalTo(Source(next)))

		err := studio.Use(func() (Source, error) { return nil, errors.New("no camera") })
		Expect(err).To(MatchError(ErrSourceUnavailable))
		Expect(next.Closed()).To(BeTrue())
		Expect(studio.Source()).To(BeNil())
		Expect(studio.TogglePlay()).To(BeFalse())
	})

	It("applies config edits atomically", func() {
		Expect(studio.Configure(func(c RenderConfig) RenderConfig {
			c.Shape = Dot
			c.Palette = "Thermal"
			return c
		})).To(Succeed())
		Expect(studio.Config().Shape).To(Equal(Dot))
		Expect(studio.Config().Palette).To(Equal("Thermal"))

		Expect(studio.Configure(func(c RenderConfig) RenderConfig {
			c.Shape = Glyph
			c.Density = -1
			return c
		})).To(MatchError(ErrInvalidConfig))
		Expect(studio.Config().Shape).To(Equal(Dot))
	})

	It("randomizes into a valid config", func() {
		Expect(studio.Randomize()).To(Succeed())
		Expect(studio.Config().Validate()).To(Succeed())
	})

	It("toggles recording", func() {
		surface.Resize(4, 4)
		artifact, err := studio.ToggleRecording(fakeFormat)
		Expect(err).NotTo(HaveOccurred())
		Expect(artifact).To(BeNil())
		Expect(studio.Capture().State()).To(Equal(Recording))

		// Stop waits for the tick in flight to be encoded.
		ticker.Tick()

		artifact, err = studio.ToggleRecording(fakeFormat)
		Expect(err).NotTo(HaveOccurred())
		Expect(artifact.Data).To(Equal([]byte{7}))
		Expect(studio.Capture().State()).To(Equal(Idle))
	})

	It("releases everything on close", func() {
		surface.Resize(4, 4)
		studio.Start()
		Expect(studio.Capture().Start(fakeFormat)).To(Succeed())

		Expect(studio.Close()).To(Succeed())
		Expect(src.Closed()).To(BeTrue())
		Expect(studio.Loop().Running()).To(BeFalse())
		Expect(studio.Capture().State()).To(Equal(Idle))
		Expect(sched.Pending()).To(Equal(0))
	})
})
