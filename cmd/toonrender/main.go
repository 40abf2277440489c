// Package main renders the placeholder final-render output to an image
// file, exercising the offline render path without a window.
package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"go.uber.org/zap"

	"github.com/Faultbox/toonview/internal/engine/host"
	"github.com/Faultbox/toonview/internal/engine/render"
	"github.com/Faultbox/toonview/internal/logger"
)

var (
	flagWidth   = flag.Int("width", 1920, "Render width")
	flagHeight  = flag.Int("height", 1080, "Render height")
	flagScale   = flag.Int("scale", 100, "Resolution percentage")
	flagPreview = flag.Bool("preview", false, "Render the preview variant")
	flagOutput  = flag.String("o", "render.webp", "Output file (.webp or .png)")
	flagDebug   = flag.Bool("debug", false, "Enable debug logging")
)

func main() {
	flag.Parse()

	level := "info"
	if *flagDebug {
		level = "debug"
	}
	if err := logger.Init(level, ""); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Error("render failed", zap.Error(err))
		os.Exit(1)
	}
}

func run() error {
	job := host.RenderJob{
		Width:             *flagWidth,
		Height:            *flagHeight,
		ResolutionPercent: *flagScale,
		Preview:           *flagPreview,
	}

	sink := &fileSink{path: *flagOutput}

	// WriteFlat is the same path Engine.FinalRender takes, minus the
	// GPU device this headless tool never creates.
	if err := render.WriteFlat(job, sink); err != nil {
		return err
	}

	logger.Info("wrote render", zap.String("path", sink.path))
	return nil
}

// fileSink writes the result rectangle to a WebP or PNG file.
type fileSink struct {
	path string
}

func (s *fileSink) WriteRect(width, height int, pixels []float32) error {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := (y*width + x) * 4
			img.SetNRGBA(x, y, color.NRGBA{
				R: floatByte(pixels[i]),
				G: floatByte(pixels[i+1]),
				B: floatByte(pixels[i+2]),
				A: floatByte(pixels[i+3]),
			})
		}
	}

	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", s.path, err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(s.path)) {
	case ".png":
		if err := png.Encode(f, img); err != nil {
			return fmt.Errorf("encoding png: %w", err)
		}
	default:
		if err := nativewebp.Encode(f, img, nil); err != nil {
			return fmt.Errorf("encoding webp: %w", err)
		}
	}
	return nil
}

// floatByte converts a linear [0,1] float channel to 8 bits.
func floatByte(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}
