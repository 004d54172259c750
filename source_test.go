package glyphcast_test

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"time"

	. "github.com/kevin-cantwell/glyphcast"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func redAt(src Source) uint32 {
	img, err := src.Frame()
	Expect(err).NotTo(HaveOccurred())
	r, _, _, _ := img.At(img.Bounds().Min.X, img.Bounds().Min.Y).RGBA()
	return r >> 8
}

func encodeGIF(loopCount int, colors ...color.Color) []byte {
	giff := &gif.GIF{LoopCount: loopCount, Config: image.Config{Width: 4, Height: 4}}
	for _, c := range colors {
		frame := image.NewPaletted(image.Rect(0, 0, 4, 4), color.Palette{color.Black, c})
		for i := range frame.Pix {
			frame.Pix[i] = 1
		}
		giff.Image = append(giff.Image, frame)
		giff.Delay = append(giff.Delay, 2)
	}
	var buf bytes.Buffer
	Expect(gif.EncodeAll(&buf, giff)).To(Succeed())
	return buf.Bytes()
}

var _ = Describe("Sources", func() {
	Describe("still images", func() {
		It("decodes and holds the image without ending", func() {
			var buf bytes.Buffer
			Expect(png.Encode(&buf, solid(12, 8, color.White))).To(Succeed())

			src, err := OpenImage(&buf)
			Expect(err).NotTo(HaveOccurred())
			defer src.Close()

			Eventually(src.Ready).Should(BeTrue())
			Expect(src.Width()).To(Equal(12))
			Expect(src.Height()).To(Equal(8))
			Consistently(src.Ended, "250ms").Should(BeFalse())
		})

		It("rejects undecodable input", func() {
			_, err := OpenImage(bytes.NewReader([]byte("not an image")))
			Expect(err).To(HaveOccurred())
		})

		It("waits for play when started paused", func() {
			src := NewImageSource(solid(4, 4, color.White), WithStartPaused())
			defer src.Close()

			Expect(src.Paused()).To(BeTrue())
			Consistently(src.Ready, "100ms").Should(BeFalse())
			Expect(src.Width()).To(Equal(0))

			src.Play()
			Expect(src.Paused()).To(BeFalse())
			Eventually(src.Ready).Should(BeTrue())

			src.Pause()
			Expect(src.Paused()).To(BeTrue())
		})

		It("closes idempotently", func() {
			src := NewImageSource(solid(4, 4, color.White))
			Expect(src.Close()).To(Succeed())
			Expect(src.Close()).To(Succeed())
		})
	})

	Describe("GIFs", func() {
		red := color.RGBA{R: 255, A: 0xff}
		blue := color.RGBA{B: 255, A: 0xff}

		It("plays once and holds the last frame", func() {
			src, err := OpenGIF(bytes.NewReader(encodeGIF(-1, blue, red)))
			Expect(err).NotTo(HaveOccurred())
			defer src.Close()

			Eventually(src.Ended).Should(BeTrue())
			Expect(src.Ready()).To(BeTrue())
			Expect(redAt(src)).To(Equal(uint32(255)))
		})

		It("loops forever when the file says so", func() {
			src, err := OpenGIF(bytes.NewReader(encodeGIF(0, blue, red)))
			Expect(err).NotTo(HaveOccurred())
			defer src.Close()

			Eventually(src.Ready).Should(BeTrue())
			Consistently(src.Ended, "200ms").Should(BeFalse())
		})

		It("lets the caller turn looping off", func() {
			src, err := OpenGIF(bytes.NewReader(encodeGIF(0, blue, red)), WithLoop(false))
			Expect(err).NotTo(HaveOccurred())
			defer src.Close()
			Eventually(src.Ended).Should(BeTrue())
		})

		It("rejects a broken file", func() {
			_, err := OpenGIF(bytes.NewReader([]byte("GIF89a")))
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("MJPEG", func() {
		jpegOf := func(c color.Color) []byte {
			var buf bytes.Buffer
			Expect(jpeg.Encode(&buf, solid(8, 8, c), nil)).To(Succeed())
			return buf.Bytes()
		}

		It("skips multipart boundaries between frames", func() {
			var stream bytes.Buffer
			stream.WriteString("--frame\r\nContent-Type: image/jpeg\r\n\r\n")
			stream.Write(jpegOf(color.Black))
			stream.WriteString("\r\n--frame\r\nContent-Type: image/jpeg\r\n\r\n")
			stream.Write(jpegOf(color.White))

			src := NewMJPEGSource(&stream, 200)
			defer src.Close()
			Eventually(src.Ended).Should(BeTrue())
			Expect(src.Width()).To(Equal(8))
			Expect(redAt(src)).To(BeNumerically(">", 240))
		})

		It("closes while the stream is stalled", func() {
			pr, pw := io.Pipe()
			defer pw.Close()
			src := NewMJPEGSource(pr, 30)

			closed := make(chan error, 1)
			go func() { closed <- src.Close() }()
			Eventually(closed, time.Second).Should(Receive(BeNil()))
			Expect(src.Ready()).To(BeFalse())
		})
	})
})

var _ = Describe("SourceSlot", func() {
	var slot *SourceSlot

	BeforeEach(func() {
		slot = &SourceSlot{}
	})

	It("closes the current source before opening the next", func() {
		first := newFakeSource(solid(4, 4, color.White))
		Expect(slot.Switch(func() (Source, error) { return first, nil })).To(Succeed())
		Expect(slot.Current()).To(BeIdenticalTo(Source(first)))

		second := newFakeSource(solid(4, 4, color.Black))
		Expect(slot.Switch(func() (Source, error) {
			Expect(first.Closed()).To(BeTrue())
			return second, nil
		})).To(Succeed())
		Expect(slot.Current()).To(BeIdenticalTo(Source(second)))
		Expect(second.Closed()).To(BeFalse())
	})

	It("stays empty when opening fails", func() {
		first := newFakeSource(solid(4, 4, color.White))
		Expect(slot.Switch(func() (Source, error) { return first, nil })).To(Succeed())

		denied := errors.New("permission denied")
		err := slot.Switch(func() (Source, error) { return nil, denied })
		Expect(err).To(MatchError(ErrSourceUnavailable))
		Expect(err).To(MatchError(denied))
		Expect(first.Closed()).To(BeTrue())
		Expect(slot.Current()).To(BeNil())
	})

	It("releases the current source", func() {
		src := newFakeSource(solid(4, 4, color.White))
		Expect(slot.Switch(func() (Source, error) { return src, nil })).To(Succeed())
		Expect(slot.Release()).To(Succeed())
		Expect(src.Closed()).To(BeTrue())
		Expect(slot.Current()).To(BeNil())
		Expect(slot.Release()).To(Succeed())
	})
})
