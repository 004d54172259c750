package glyphcast

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"sync"
)

// ffmpeg is driven directly over pipes. Vidio's readers and writers install
// their own SIGINT handler that exits the process, so Vidio is only used to
// probe metadata.

// ffmpegOutput starts ffmpeg and returns its stdout. Closing it kills ffmpeg
// and reaps the process.
func ffmpegOutput(args ...string) (io.ReadCloser, error) {
	cmd := exec.Command("ffmpeg", args...)
	detach(cmd)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}
	return &ffmpegReader{ReadCloser: stdout, cmd: cmd}, nil
}

type ffmpegReader struct {
	io.ReadCloser
	cmd  *exec.Cmd
	once sync.Once
}

func (r *ffmpegReader) Close() error {
	r.once.Do(func() {
		r.cmd.Process.Kill()
		r.cmd.Wait()
	})
	return nil
}

// ffmpegInput starts ffmpeg reading frames from its stdin.
type ffmpegInput struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr bytes.Buffer
}

func startFFmpegInput(args ...string) (*ffmpegInput, error) {
	in := &ffmpegInput{cmd: exec.Command("ffmpeg", args...)}
	detach(in.cmd)
	in.cmd.Stderr = &in.stderr
	stdin, err := in.cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	in.stdin = stdin
	if err := in.cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}
	return in, nil
}

func (in *ffmpegInput) Write(p []byte) (int, error) {
	return in.stdin.Write(p)
}

// Close ends the input and waits for ffmpeg, reporting a failed exit along
// with what ffmpeg printed.
func (in *ffmpegInput) Close() error {
	in.stdin.Close()
	if err := in.cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg: %w: %s", err, strings.TrimSpace(in.stderr.String()))
	}
	return nil
}

// readRawFrame reads one packed RGBA frame. A truncated trailing frame counts
// as the end of the stream.
func readRawFrame(r io.Reader, width, height int) (*image.RGBA, error) {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	if _, err := io.ReadFull(r, img.Pix); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, io.EOF
		}
		return nil, err
	}
	return img, nil
}

// rawOutputArgs asks ffmpeg to write packed RGBA frames to stdout.
var rawOutputArgs = []string{"-f", "image2pipe", "-pix_fmt", "rgba", "-vcodec", "rawvideo", "-"}

func videoArgs(path string) []string {
	return append([]string{"-hide_banner", "-loglevel", "quiet", "-i", path}, rawOutputArgs...)
}

// cameraArgs picks the capture backend ffmpeg uses on this platform.
func cameraArgs(name string) ([]string, error) {
	var input []string
	switch runtime.GOOS {
	case "linux":
		input = []string{"-f", "v4l2", "-i", name}
	case "darwin":
		input = []string{"-f", "avfoundation", "-i", name}
	case "windows":
		input = []string{"-f", "dshow", "-i", "video=" + name}
	default:
		return nil, fmt.Errorf("camera capture not supported on %s", runtime.GOOS)
	}
	return append(append([]string{"-hide_banner", "-loglevel", "quiet"}, input...), rawOutputArgs...), nil
}

func webmArgs(path string, width, height, fps int) []string {
	return []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-f", "rawvideo", "-vcodec", "rawvideo",
		"-s", strconv.Itoa(width) + "x" + strconv.Itoa(height),
		"-pix_fmt", "rgba", "-r", strconv.Itoa(fps),
		"-i", "-",
		"-c:v", "libvpx-vp9", "-pix_fmt", "yuv420p", "-b:v", "0", "-crf", "32",
		"-f", "webm", path,
	}
}

// probeEncoder fails unless the installed ffmpeg can encode with the named
// encoder.
var probeEncoder = func(name string) error {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return err
	}
	out, err := exec.Command("ffmpeg", "-hide_banner", "-encoders").Output()
	if err != nil {
		return fmt.Errorf("list ffmpeg encoders: %w", err)
	}
	if !hasEncoder(out, name) {
		return fmt.Errorf("ffmpeg has no %s encoder", name)
	}
	return nil
}

// hasEncoder scans `ffmpeg -encoders` output, whose rows read
// " V....D libvpx-vp9  libvpx VP9".
func hasEncoder(list []byte, name string) bool {
	sc := bufio.NewScanner(bytes.NewReader(list))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) >= 2 && fields[1] == name {
			return true
		}
	}
	return false
}
