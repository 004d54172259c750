package main

import (
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/codegangsta/cli"
	"github.com/kevin-cantwell/glyphcast"
)

func styleFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:  "config",
			Usage: "Load rendering settings from a YAML `FILE`. Flags override it.",
		},
		cli.StringFlag{
			Name:  "shape",
			Usage: "`SHAPE` of each cell: glyph or dot.",
			Value: "glyph",
		},
		cli.StringFlag{
			Name:  "charset",
			Usage: "Character `SET` glyphs are picked from. See the charsets command.",
			Value: "Standard",
		},
		cli.StringFlag{
			Name:  "palette",
			Usage: "Colour `PALETTE`. See the palettes command.",
			Value: "Matrix",
		},
		cli.Float64Flag{
			Name:  "density",
			Usage: "`DENSITY` in (0,1]. Higher density gives smaller, more numerous cells.",
			Value: glyphcast.DefaultDensity,
		},
		cli.Float64Flag{
			Name:  "size",
			Usage: "Base glyph `SIZE` in pixels, used when --vary-size is off.",
			Value: glyphcast.DefaultBaseSize,
		},
		cli.Float64Flag{
			Name:  "min-size",
			Usage: "Glyph `SIZE` for the darkest cells.",
			Value: glyphcast.DefaultMinSize,
		},
		cli.Float64Flag{
			Name:  "max-size",
			Usage: "Glyph `SIZE` for the brightest cells.",
			Value: glyphcast.DefaultMaxSize,
		},
		cli.BoolTFlag{
			Name:  "vary-size",
			Usage: "Scale glyphs and dots with brightness. --vary-size=false draws every cell at the base size.",
		},
		cli.Float64Flag{
			Name:  "zoom",
			Usage: "Snapshot `ZOOM` in percent.",
			Value: glyphcast.DefaultZoom,
		},
		cli.Float64Flag{
			Name:  "gamma,g",
			Usage: "`GAMMA` = 1.0 gives the original image. GAMMA less than 1.0 darkens the image and GAMMA greater than 1.0 lightens it.",
			Value: 1.0,
		},
		cli.Float64Flag{
			Name:  "brightness,b",
			Usage: "`BRIGHTNESS` = 0 gives the original image. BRIGHTNESS = -100 gives solid black image. BRIGHTNESS = 100 gives solid white image.",
			Value: 0.0,
		},
		cli.Float64Flag{
			Name:  "contrast,c",
			Usage: "`CONTRAST` = 0 gives the original image. CONTRAST = -100 gives solid grey image. CONTRAST = 100 gives maximum contrast.",
			Value: 0.0,
		},
		cli.Float64Flag{
			Name:  "sharpen,s",
			Usage: "`SHARPEN` = 0 gives the original image. SHARPEN greater than 0 sharpens the image.",
			Value: 0.0,
		},
		cli.BoolFlag{
			Name:  "invert,i",
			Usage: "Inverts the image.",
		},
		cli.BoolFlag{
			Name:  "mirror,m",
			Usage: "Flips the image horizontally, like a selfie camera.",
		},
		cli.Float64Flag{
			Name:  "sigmoid-midpoint",
			Usage: "`MIDPOINT` of contrast that must be between 0 and 1.",
			Value: 0.5,
		},
		cli.Float64Flag{
			Name:  "sigmoid-factor",
			Usage: "`FACTOR` = 0 gives the original image. FACTOR greater than 0 increases contrast. FACTOR less than 0 decreases contrast.",
			Value: 0.0,
		},
		cli.BoolFlag{
			Name:  "random",
			Usage: "Pick a random character set, palette, density and size.",
		},
		cli.StringFlag{
			Name:  "font",
			Usage: "TrueType `FILE` used to draw glyphs. Defaults to Go Mono.",
		},
		cli.BoolFlag{
			Name:  "verbose,v",
			Usage: "Log debug output to stderr.",
		},
	}
}

func inputFlags() []cli.Flag {
	return []cli.Flag{
		cli.IntFlag{
			Name:  "camera",
			Usage: "Read from camera `INDEX` instead of a file.",
			Value: -1,
		},
		cli.IntFlag{
			Name:  "fps",
			Usage: "Frame rate MJPEG input is paced at. Defaults to 30.",
		},
		cli.BoolFlag{
			Name:  "start-paused",
			Usage: "Hold the input on its first frame.",
		},
	}
}

// renderConfig layers flags that were set explicitly over the config file, or
// over the defaults when there is none.
func renderConfig(c *cli.Context) (glyphcast.RenderConfig, error) {
	cfg := glyphcast.DefaultRenderConfig()
	if path := c.GlobalString("config"); path != "" {
		var err error
		if cfg, err = glyphcast.LoadConfig(path); err != nil {
			return cfg, err
		}
	}

	if c.GlobalIsSet("shape") {
		shape, err := glyphcast.ParseShape(c.GlobalString("shape"))
		if err != nil {
			return cfg, err
		}
		cfg.Shape = shape
	}
	if c.GlobalIsSet("charset") {
		cfg.CharacterSet = c.GlobalString("charset")
	}
	if c.GlobalIsSet("palette") {
		cfg.Palette = c.GlobalString("palette")
	}
	if c.GlobalIsSet("density") {
		cfg.Density = c.GlobalFloat64("density")
	}
	if c.GlobalIsSet("size") {
		cfg.BaseSize = c.GlobalFloat64("size")
	}
	if c.GlobalIsSet("min-size") {
		cfg.MinSize = c.GlobalFloat64("min-size")
	}
	if c.GlobalIsSet("max-size") {
		cfg.MaxSize = c.GlobalFloat64("max-size")
	}
	if c.GlobalIsSet("vary-size") {
		cfg.VarySize = c.GlobalBoolT("vary-size")
	}
	if c.GlobalIsSet("zoom") {
		cfg.ViewZoom = c.GlobalFloat64("zoom")
	}
	if c.GlobalIsSet("gamma") {
		cfg.Adjust.Gamma = c.GlobalFloat64("gamma")
	}
	if c.GlobalIsSet("brightness") {
		cfg.Adjust.Brightness = c.GlobalFloat64("brightness")
	}
	if c.GlobalIsSet("contrast") {
		cfg.Adjust.Contrast = c.GlobalFloat64("contrast")
	}
	if c.GlobalIsSet("sharpen") {
		cfg.Adjust.Sharpen = c.GlobalFloat64("sharpen")
	}
	if c.GlobalIsSet("sigmoid-midpoint") {
		cfg.Adjust.SigmoidMidpoint = c.GlobalFloat64("sigmoid-midpoint")
	}
	if c.GlobalIsSet("sigmoid-factor") {
		cfg.Adjust.SigmoidFactor = c.GlobalFloat64("sigmoid-factor")
	}
	if c.GlobalBool("invert") {
		cfg.Adjust.Invert = true
	}
	if c.GlobalBool("mirror") {
		cfg.Adjust.Mirror = true
	}
	if c.GlobalBool("random") {
		cfg = cfg.Randomize(rand.New(rand.NewSource(time.Now().UnixNano())))
	}
	return cfg, cfg.Validate()
}

// input resolves the command's argument to a source opener: a camera, stdin
// or a URL as MJPEG, or a file by its extension.
func input(c *cli.Context, opts ...glyphcast.SourceOpt) (func() (glyphcast.Source, error), error) {
	if c.Bool("start-paused") {
		opts = append(opts, glyphcast.WithStartPaused())
	}
	fps := c.Int("fps")

	if index := c.Int("camera"); index >= 0 {
		return func() (glyphcast.Source, error) {
			return glyphcast.OpenCamera(index, opts...)
		}, nil
	}

	arg := c.Args().First()
	switch {
	case arg == "" || arg == "-":
		return func() (glyphcast.Source, error) {
			return glyphcast.NewMJPEGSource(os.Stdin, fps, opts...), nil
		}, nil
	case strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://"):
		return func() (glyphcast.Source, error) {
			resp, err := http.Get(arg)
			if err != nil {
				return nil, err
			}
			if resp.StatusCode != http.StatusOK {
				resp.Body.Close()
				return nil, fmt.Errorf("GET %s: %s", arg, resp.Status)
			}
			return glyphcast.NewMJPEGSource(resp.Body, fps, opts...), nil
		}, nil
	}

	if _, err := os.Stat(arg); err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(arg)) {
	case ".gif":
		return func() (glyphcast.Source, error) {
			f, err := os.Open(arg)
			if err != nil {
				return nil, err
			}
			defer f.Close()
			return glyphcast.OpenGIF(f, opts...)
		}, nil
	case ".png", ".jpg", ".jpeg", ".bmp", ".webp":
		return func() (glyphcast.Source, error) {
			f, err := os.Open(arg)
			if err != nil {
				return nil, err
			}
			defer f.Close()
			return glyphcast.OpenImage(f, opts...)
		}, nil
	case ".mjpeg", ".mjpg":
		return func() (glyphcast.Source, error) {
			f, err := os.Open(arg)
			if err != nil {
				return nil, err
			}
			return glyphcast.NewMJPEGSource(f, fps, opts...), nil
		}, nil
	default:
		return func() (glyphcast.Source, error) {
			return glyphcast.OpenVideo(arg, opts...)
		}, nil
	}
}
