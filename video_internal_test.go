package glyphcast

import (
	"bytes"
	"errors"
	"image"
	"io"
	"runtime"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// countingPipes hands out in-memory frame pipes and tracks how many are
// still open.
type countingPipes struct {
	data           []byte
	opened, closed atomic.Int32
}

func (p *countingPipes) open() (io.ReadCloser, error) {
	p.opened.Add(1)
	return &countedPipe{Reader: bytes.NewReader(p.data), pipes: p}, nil
}

type countedPipe struct {
	*bytes.Reader
	pipes *countingPipes
}

func (c *countedPipe) Close() error {
	c.pipes.closed.Add(1)
	return nil
}

func rawFrames(n, width, height int) []byte {
	return bytes.Repeat([]byte{0x20, 0x40, 0x60, 0xff}, n*width*height)
}

var _ = Describe("pipe decoder", func() {
	It("rewinds a looping file without growing the goroutine count", func() {
		pipes := &countingPipes{data: rawFrames(2, 2, 2)}
		dec := &pipeDecoder{open: pipes.open, width: 2, height: 2, delay: time.Millisecond}
		Expect(dec.rewind()).To(Succeed())

		base := runtime.NumGoroutine()
		src := newStream("loop", dec, WithLoop(true))
		Eventually(pipes.opened.Load, "5s").Should(BeNumerically(">=", 50))
		Expect(runtime.NumGoroutine()).To(BeNumerically("<=", base+1))
		Expect(src.Ended()).To(BeFalse())

		Expect(src.Close()).To(Succeed())
		Expect(pipes.closed.Load()).To(Equal(pipes.opened.Load()))
		Eventually(runtime.NumGoroutine).Should(BeNumerically("<=", base))
	})

	It("ends instead of spinning when a rewound file yields no frames", func() {
		pipes := &countingPipes{}
		dec := &pipeDecoder{open: pipes.open, width: 2, height: 2}
		Expect(dec.rewind()).To(Succeed())

		src := newStream("empty", dec, WithLoop(true))
		Eventually(src.Ended).Should(BeTrue())
		Expect(src.Err()).NotTo(HaveOccurred())
		Expect(pipes.opened.Load()).To(BeEquivalentTo(2))
		Expect(src.Close()).To(Succeed())
	})

	It("keeps looping when a rewind is followed by frames", func() {
		pipes := &countingPipes{data: rawFrames(1, 2, 2)}
		dec := &pipeDecoder{open: pipes.open, width: 2, height: 2, delay: time.Millisecond}
		Expect(dec.rewind()).To(Succeed())

		src := newStream("single", dec, WithLoop(true))
		Eventually(pipes.opened.Load).Should(BeNumerically(">=", 5))
		Expect(src.Ended()).To(BeFalse())
		Expect(src.Close()).To(Succeed())
	})

	It("unblocks a pending read on close", func() {
		r, w := io.Pipe()
		defer w.Close()
		dec := &pipeDecoder{
			open:  func() (io.ReadCloser, error) { return r, nil },
			width: 2, height: 2,
		}
		Expect(dec.rewind()).To(Succeed())

		src := newStream("blocked", dec)
		closed := make(chan error)
		go func() { closed <- src.Close() }()
		Eventually(closed).Should(Receive(BeNil()))
	})

	It("does not reopen after being stopped", func() {
		pipes := &countingPipes{}
		dec := &pipeDecoder{open: pipes.open, width: 2, height: 2}
		dec.interrupt()
		Expect(dec.rewind()).To(MatchError(errNoRewind))
		Expect(pipes.opened.Load()).To(BeZero())
	})

	It("surfaces errors from reopening", func() {
		boom := errors.New("ffmpeg missing")
		dec := &pipeDecoder{open: func() (io.ReadCloser, error) { return nil, boom }}
		Expect(dec.rewind()).To(MatchError(boom))
		_, _, err := dec.next()
		Expect(err).To(Equal(io.EOF))
	})
})

var _ = Describe("raw frames", func() {
	It("reads whole RGBA frames", func() {
		r := bytes.NewReader(rawFrames(2, 3, 2))
		for range 2 {
			img, err := readRawFrame(r, 3, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(img.Bounds()).To(Equal(image.Rect(0, 0, 3, 2)))
			Expect(img.Pix[:4]).To(Equal([]byte{0x20, 0x40, 0x60, 0xff}))
		}
		_, err := readRawFrame(r, 3, 2)
		Expect(err).To(Equal(io.EOF))
	})

	It("treats a truncated trailing frame as the end", func() {
		data := rawFrames(1, 2, 2)
		_, err := readRawFrame(bytes.NewReader(data[:len(data)-3]), 2, 2)
		Expect(err).To(Equal(io.EOF))
	})
})

var _ = Describe("ffmpeg encoders", func() {
	list := []byte(`Encoders:
 V..... = Video
 ------
 V....D libx264              libx264 H.264 / AVC / MPEG-4 AVC
 V....D libvpx-vp9           libvpx VP9 (codec vp9)
 A....D libopus              libopus Opus
`)

	It("finds an encoder by name", func() {
		Expect(hasEncoder(list, "libvpx-vp9")).To(BeTrue())
		Expect(hasEncoder(list, "libopus")).To(BeTrue())
	})

	It("does not match on descriptions or prefixes", func() {
		Expect(hasEncoder(list, "libvpx")).To(BeFalse())
		Expect(hasEncoder(list, "VP9")).To(BeFalse())
	})

	It("builds webm encoder arguments for the frame size", func() {
		args := webmArgs("/tmp/clip.webm", 640, 360, 24)
		Expect(args).To(ContainElements("640x360", "24", "libvpx-vp9"))
		Expect(args[len(args)-1]).To(Equal("/tmp/clip.webm"))
	})
})

var _ = Describe("webm capture", func() {
	var restore func(string) error

	BeforeEach(func() {
		restore = probeEncoder
		DeferCleanup(func() { probeEncoder = restore })
	})

	It("stays idle when ffmpeg lacks the VP9 encoder", func() {
		var asked string
		probeEncoder = func(name string) error {
			asked = name
			return errors.New("no such encoder")
		}
		sink := NewCaptureSink(NewImageSurface(4, 4))
		Expect(sink.Start(FormatWebM)).To(MatchError(ErrUnsupportedFormat))
		Expect(sink.State()).To(Equal(Idle))
		Expect(asked).To(Equal("libvpx-vp9"))
	})
})
