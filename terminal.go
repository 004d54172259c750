package glyphcast

import (
	"bufio"
	"fmt"
	"image"
	"image/color"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

type Terminal interface {
	ResetCursor(rows int)
	ShowCursor(show bool)
} // Reset Text Color: t.writer().Write([]byte("\033[0m"))

type Xterm struct {
	Writer io.Writer
}

// Move the cursor to the beginning of the line and up rows
func (term *Xterm) ResetCursor(rows int) {
	if rows <= 0 {
		return
	}
	fmt.Fprintf(term.Writer, "\033[999D\033[%dA", rows)
}

func (term *Xterm) ShowCursor(show bool) {
	if show {
		io.WriteString(term.Writer, "\033[?12l\033[?25h")
	} else {
		io.WriteString(term.Writer, "\033[?25l")
	}
}

// TerminalSize reports the columns and lines of the terminal attached to f.
func TerminalSize(f *os.File) (cols, lines int, err error) {
	return term.GetSize(int(f.Fd()))
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

type termCell struct {
	r      rune
	fg, bg RGB
}

// TerminalSurface previews the mosaic as coloured text. Pixel coordinates are
// mapped onto a fixed grid of columns and lines; disks become dot glyphs
// sized by their radius. It cannot be read back.
type TerminalSurface struct {
	w        io.Writer
	term     Terminal
	renderer *lipgloss.Renderer
	cols     int
	lines    int

	sizeMu        sync.RWMutex
	width, height int
	bg            RGB
	cells         []termCell
	drawn         int // lines written by the last Present
}

func NewTerminalSurface(w io.Writer, cols, lines int) *TerminalSurface {
	if cols < 1 {
		cols = 1
	}
	if lines < 1 {
		lines = 1
	}
	return &TerminalSurface{
		w:        w,
		term:     &Xterm{Writer: w},
		renderer: lipgloss.NewRenderer(w),
		cols:     cols,
		lines:    lines,
		cells:    make([]termCell, cols*lines),
	}
}

// Grid returns the preview dimensions in columns and lines.
func (ts *TerminalSurface) Grid() (cols, lines int) {
	return ts.cols, ts.lines
}

func (ts *TerminalSurface) Size() (int, int) {
	ts.sizeMu.RLock()
	defer ts.sizeMu.RUnlock()
	return ts.width, ts.height
}

func (ts *TerminalSurface) Resize(width, height int) {
	ts.sizeMu.Lock()
	defer ts.sizeMu.Unlock()
	ts.width, ts.height = width, height
}

func (ts *TerminalSurface) Clear(c color.Color) {
	ts.bg = toRGB(c)
	for i := range ts.cells {
		ts.cells[i] = termCell{r: ' ', fg: ts.bg, bg: ts.bg}
	}
}

func (ts *TerminalSurface) cellAt(x, y float64) (int, bool) {
	if ts.width <= 0 || ts.height <= 0 || x < 0 || y < 0 {
		return 0, false
	}
	col := int(x * float64(ts.cols) / float64(ts.width))
	line := int(y * float64(ts.lines) / float64(ts.height))
	if col >= ts.cols || line >= ts.lines {
		return 0, false
	}
	return line*ts.cols + col, true
}

func (ts *TerminalSurface) DrawGlyph(r rune, x, y, size float64, c color.Color) {
	i, ok := ts.cellAt(x, y)
	if !ok {
		return
	}
	ts.cells[i] = termCell{r: r, fg: toRGB(c), bg: ts.bg}
}

// dotGlyphs grow with the disk's share of a terminal cell.
var dotGlyphs = []rune{'·', '•', '●'}

func (ts *TerminalSurface) DrawDisk(x, y, radius float64, c color.Color) {
	if radius <= 0 || ts.width <= 0 {
		return
	}
	i, ok := ts.cellAt(x, y)
	if !ok {
		return
	}
	cellWidth := float64(ts.width) / float64(ts.cols)
	fill := radius / (cellWidth / 2)
	g := dotGlyphs[len(dotGlyphs)-1]
	switch {
	case fill < 0.35:
		g = dotGlyphs[0]
	case fill < 0.7:
		g = dotGlyphs[1]
	}
	ts.cells[i] = termCell{r: g, fg: toRGB(c), bg: ts.bg}
}

// Present writes the grid and moves the cursor back to its top-left corner,
// so the next frame overdraws this one.
func (ts *TerminalSurface) Present() error {
	out := bufio.NewWriter(ts.w)
	(&Xterm{Writer: out}).ResetCursor(ts.drawn)

	var line strings.Builder
	for row := 0; row < ts.lines; row++ {
		line.Reset()
		var run strings.Builder
		var style termCell
		flush := func() {
			if run.Len() == 0 {
				return
			}
			st := ts.renderer.NewStyle().
				Foreground(lipgloss.Color(style.fg.Hex())).
				Background(lipgloss.Color(style.bg.Hex()))
			line.WriteString(st.Render(run.String()))
			run.Reset()
		}
		for col := 0; col < ts.cols; col++ {
			cell := ts.cells[row*ts.cols+col]
			if cell.r == 0 {
				cell = termCell{r: ' ', fg: ts.bg, bg: ts.bg}
			}
			if run.Len() > 0 && (cell.fg != style.fg || cell.bg != style.bg) {
				flush()
			}
			style = cell
			run.WriteRune(cell.r)
			// Wide glyphs take two columns; swallow the next cell.
			if runewidth.RuneWidth(cell.r) > 1 {
				col++
			}
		}
		flush()
		line.WriteByte('\n')
		if _, err := out.WriteString(line.String()); err != nil {
			return err
		}
	}
	ts.drawn = ts.lines
	return out.Flush()
}

func (ts *TerminalSurface) Snapshot() (*image.RGBA, error) {
	return nil, ErrNoReadback
}

// ShowCursor toggles the terminal cursor, hidden while previewing.
func (ts *TerminalSurface) ShowCursor(show bool) {
	ts.term.ShowCursor(show)
}

func toRGB(c color.Color) RGB {
	if rgb, ok := c.(RGB); ok {
		return rgb
	}
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return RGB{R: n.R, G: n.G, B: n.B}
}
