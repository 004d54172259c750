package main

import (
	"fmt"
	"image/png"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/codegangsta/cli"
	"github.com/kevin-cantwell/glyphcast"
)

func main() {
	app := cli.NewApp()
	app.Version = "0.1.0"
	app.Name = "glyphcast"
	app.Usage = "Renders video, camera feeds, gifs and images as coloured glyph mosaics."
	app.UsageText = "1) glyphcast [options] play [file|url]\n" +
		/*      */ "   2) glyphcast [options] render -o clip.webm [file|url]\n" +
		/*      */ "   3) glyphcast [options] snapshot -o frame.png [file|url]\n" +
		/*      */ "   4) glyphcast [options] play < [mjpeg stream]"
	app.Author = "Kevin Cantwell"
	app.Email = "kevin.cantwell@gmail.com"
	app.Flags = styleFlags()
	app.Before = func(c *cli.Context) error {
		level := slog.LevelWarn
		if c.GlobalBool("verbose") {
			level = slog.LevelDebug
		}
		glyphcast.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		return nil
	}
	app.Commands = []cli.Command{
		{
			Name:      "play",
			Usage:     "Preview the mosaic in the terminal. CTRL-C to quit.",
			ArgsUsage: "[file|url|-]",
			Flags: append(inputFlags(),
				cli.StringFlag{
					Name:  "fit,f",
					Usage: "`FIT` = 80,25 draws the preview into 80 columns and 25 lines. Defaults to the terminal size.",
				},
				cli.StringFlag{
					Name:  "record,r",
					Usage: "Also record the rendered frames to `FILE`. The format follows the extension (webm, mjpeg, gif).",
				},
			),
			Action: play,
		},
		{
			Name:      "render",
			Usage:     "Render the mosaic headlessly into a clip.",
			ArgsUsage: "[file|url|-]",
			Flags: append(inputFlags(),
				cli.StringFlag{
					Name:  "out,o",
					Usage: "Write the clip to `FILE` (webm, mjpeg or gif by extension) or into a directory.",
				},
				cli.StringFlag{
					Name:  "format",
					Usage: "Clip `FORMAT` when -o names a directory.",
					Value: string(glyphcast.FormatWebM),
				},
				cli.DurationFlag{
					Name:  "duration,d",
					Usage: "Stop after `DURATION`. Zero records until the input ends.",
				},
			),
			Action: render,
		},
		{
			Name:      "snapshot",
			Usage:     "Render a single frame to a PNG, or to plain text with a .txt output.",
			ArgsUsage: "[file|url|-]",
			Flags: append(inputFlags(),
				cli.StringFlag{
					Name:  "out,o",
					Usage: "Write the frame to `FILE`. Defaults to stdout as PNG.",
				},
				cli.DurationFlag{
					Name:  "wait",
					Usage: "Give up if the input has no frame after `WAIT`.",
					Value: 10 * time.Second,
				},
			),
			Action: snapshot,
		},
		{
			Name:  "palettes",
			Usage: "List the colour palettes.",
			Action: func(c *cli.Context) error {
				for _, name := range glyphcast.PaletteNames() {
					p := glyphcast.Palettes[name]
					stops := make([]string, len(p.Stops))
					for i, s := range p.Stops {
						stops[i] = s.Hex()
					}
					fmt.Printf("%-14s bg %s  %s\n", name, p.Background.Hex(), strings.Join(stops, " "))
				}
				return nil
			},
		},
		{
			Name:  "charsets",
			Usage: "List the character sets.",
			Action: func(c *cli.Context) error {
				for _, name := range glyphcast.CharacterSetNames() {
					fmt.Printf("%-10s %s\n", name, string(glyphcast.CharacterSets[name].Glyphs))
				}
				return nil
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func play(c *cli.Context) error {
	cfg, err := renderConfig(c)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	open, err := input(c)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	cols, lines := fit(c)
	term := glyphcast.NewTerminalSurface(os.Stdout, cols, lines)
	var surface glyphcast.Surface = term

	var record glyphcast.Format
	if path := c.String("record"); path != "" {
		if record, err = glyphcast.ParseFormat(strings.TrimPrefix(filepath.Ext(path), ".")); err != nil {
			return cli.NewExitError(err.Error(), 1)
		}
		img, err := imageSurface(c)
		if err != nil {
			return cli.NewExitError(err.Error(), 1)
		}
		surface = glyphcast.MultiSurface{term, img}
	}

	studio, err := glyphcast.NewStudio(surface, glyphcast.NewFrameClock(60), cfg)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	if err := studio.Use(open); err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	term.ShowCursor(false)
	defer term.ShowCursor(true)
	studio.Start()

	if record != "" {
		if err := waitFrame(studio, 10*time.Second); err != nil {
			studio.Close()
			return cli.NewExitError(err.Error(), 1)
		}
		if err := studio.Capture().Start(record); err != nil {
			studio.Close()
			return cli.NewExitError(err.Error(), 1)
		}
	}

	waitEnd(studio, 0)

	var saveErr error
	if record != "" {
		saveErr = save(studio, c.String("record"))
	}
	if err := studio.Close(); err != nil {
		glyphcast.Logger().Warn("close", "err", err)
	}
	if saveErr != nil {
		return cli.NewExitError(saveErr.Error(), 1)
	}
	return nil
}

func render(c *cli.Context) error {
	cfg, err := renderConfig(c)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	open, err := input(c, glyphcast.WithLoop(false))
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	out := c.String("out")
	if out == "" {
		return cli.NewExitError("render requires -o", 1)
	}
	format, err := outputFormat(out, c.String("format"))
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	surface, err := imageSurface(c)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	studio, err := glyphcast.NewStudio(surface, glyphcast.NewFrameClock(glyphcast.CaptureFPS), cfg)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	if err := studio.Use(open); err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	studio.Start()
	if err := waitFrame(studio, 10*time.Second); err != nil {
		studio.Close()
		return cli.NewExitError(err.Error(), 1)
	}
	if err := studio.Capture().Start(format); err != nil {
		studio.Close()
		return cli.NewExitError(err.Error(), 1)
	}

	waitEnd(studio, c.Duration("duration"))

	saveErr := save(studio, out)
	if err := studio.Close(); err != nil {
		glyphcast.Logger().Warn("close", "err", err)
	}
	if saveErr != nil {
		return cli.NewExitError(saveErr.Error(), 1)
	}
	return nil
}

func snapshot(c *cli.Context) error {
	cfg, err := renderConfig(c)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	open, err := input(c, glyphcast.WithLoop(false))
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	var slot glyphcast.SourceSlot
	if err := slot.Switch(open); err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	defer slot.Release()

	src := slot.Current()
	deadline := time.Now().Add(c.Duration("wait"))
	for !src.Ready() {
		if src.Ended() || time.Now().After(deadline) {
			return cli.NewExitError("no frame from input", 1)
		}
		time.Sleep(10 * time.Millisecond)
	}
	src.Pause()

	w := os.Stdout
	out := c.String("out")
	if out != "" {
		f, err := os.Create(out)
		if err != nil {
			return cli.NewExitError(err.Error(), 1)
		}
		defer f.Close()
		w = f
	}

	grid, err := glyphcast.NewFrameSampler().Sample(src, cfg)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	if strings.EqualFold(filepath.Ext(out), ".txt") {
		if err := glyphcast.NewTextEncoder(w, cfg).Encode(grid); err != nil {
			return cli.NewExitError(err.Error(), 1)
		}
		return nil
	}

	surface, err := imageSurface(c)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	if err := glyphcast.NewMosaicRenderer().Render(surface, grid, cfg); err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	img, err := surface.Snapshot()
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	if err := png.Encode(w, glyphcast.Zoom(img, cfg.ViewZoom)); err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	return nil
}

func imageSurface(c *cli.Context) (*glyphcast.ImageSurface, error) {
	surface := glyphcast.NewImageSurface(0, 0)
	if path := c.GlobalString("font"); path != "" {
		ttf, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := surface.LoadFont(ttf); err != nil {
			return nil, err
		}
	}
	return surface, nil
}

// waitFrame blocks until the loop has presented a frame, so capture can size
// itself to the surface.
func waitFrame(studio *glyphcast.Studio, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for studio.Loop().Frames() == 0 {
		if src := studio.Source(); src == nil || src.Ended() {
			return fmt.Errorf("input ended before the first frame")
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("no frame from input after %v", timeout)
		}
		time.Sleep(10 * time.Millisecond)
	}
	return nil
}

// waitEnd blocks until the source ends, the duration elapses or the process
// is interrupted.
func waitEnd(studio *glyphcast.Studio, d time.Duration) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)

	var timeout <-chan time.Time
	if d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		timeout = timer.C
	}
	poll := time.NewTicker(50 * time.Millisecond)
	defer poll.Stop()
	for {
		select {
		case <-sigs:
			return
		case <-timeout:
			return
		case <-poll.C:
			if src := studio.Source(); src == nil || src.Ended() {
				return
			}
		}
	}
}

func save(studio *glyphcast.Studio, path string) error {
	artifact, err := studio.Capture().Stop()
	if err != nil {
		return err
	}
	if artifact.Frames == 0 {
		return fmt.Errorf("no frames recorded")
	}
	if fi, err := os.Stat(path); err == nil && fi.IsDir() {
		path, err = artifact.Save(path)
		if err != nil {
			return err
		}
	} else if err := os.WriteFile(path, artifact.Data, 0644); err != nil {
		return err
	}
	glyphcast.Logger().Info("clip saved", "path", path, "frames", artifact.Frames, "bytes", len(artifact.Data))
	return nil
}

func outputFormat(out, fallback string) (glyphcast.Format, error) {
	if fi, err := os.Stat(out); err == nil && fi.IsDir() {
		return glyphcast.ParseFormat(fallback)
	}
	return glyphcast.ParseFormat(strings.TrimPrefix(filepath.Ext(out), "."))
}

func fit(c *cli.Context) (cols, lines int) {
	if c.IsSet("fit") {
		var err error
		if cols, lines, err = parseFit(c.String("fit")); err != nil {
			exit(err.Error(), 1)
		}
	}
	if cols == 0 && lines == 0 {
		var err error
		cols, lines, err = glyphcast.TerminalSize(os.Stderr)
		if err != nil {
			cols, lines = 80, 25 // Small, but a pretty standard default
		}
	}
	// Leave the last line for the shell prompt.
	if lines > 1 {
		lines--
	}
	return cols, lines
}

// parseFit reads a "cols,lines" pair. Zero means unset.
func parseFit(s string) (cols, lines int, err error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("fit option must be comma separated")
	}
	if cols, err = strconv.Atoi(strings.TrimSpace(parts[0])); err != nil || cols < 0 {
		return 0, 0, fmt.Errorf("fit option: invalid columns %q", parts[0])
	}
	if lines, err = strconv.Atoi(strings.TrimSpace(parts[1])); err != nil || lines < 0 {
		return 0, 0, fmt.Errorf("fit option: invalid lines %q", parts[1])
	}
	return cols, lines, nil
}

func exit(msg string, code int) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(code)
}
