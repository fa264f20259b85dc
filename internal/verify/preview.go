package verify

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/local/pdfsplit/internal/apperr"
)

// ColorMode defines the color mode for previews.
type ColorMode string

const (
	ColorRGB  ColorMode = "rgb"
	ColorGray ColorMode = "gray"
)

// PreviewOptions controls RenderPreviews.
type PreviewOptions struct {
	DPI     int
	Quality int
	Color   ColorMode
}

func (o PreviewOptions) withDefaults() PreviewOptions {
	if o.DPI <= 0 {
		o.DPI = 72
	}
	if o.Quality <= 0 || o.Quality > 100 {
		o.Quality = 85
	}
	if o.Color == "" {
		o.Color = ColorRGB
	}
	return o
}

// RenderPreviews writes one JPEG per page of the PDF at path into dir, named
// page-001.jpg and onward. It returns the written file paths.
func RenderPreviews(path, dir string, opts PreviewOptions) ([]string, error) {
	if defaultOpener == nil {
		return nil, errors.New("no PDF opener configured")
	}
	opts = opts.withDefaults()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperr.FromFS(dir, err, apperr.WriteFailure)
	}

	d, err := defaultOpener.Open(path)
	if err != nil {
		return nil, apperr.Wrap(apperr.VerifyFailure, path, err, "cannot open output")
	}
	defer d.Close()

	n := d.NumPage()
	files := make([]string, 0, n)
	for i := 0; i < n; i++ {
		img, err := d.Image(i, float64(opts.DPI))
		if err != nil {
			return files, apperr.Wrap(apperr.VerifyFailure, path, err, "failed to render page %d", i+1)
		}
		if opts.Color == ColorGray {
			gray := image.NewGray(img.Bounds())
			draw.Draw(gray, gray.Bounds(), img, img.Bounds().Min, draw.Src)
			img = gray
		}

		name := filepath.Join(dir, fmt.Sprintf("page-%03d.jpg", i+1))
		if err := writeJPEG(name, img, opts.Quality); err != nil {
			return files, err
		}
		log.Debug().
			Int("page", i+1).
			Int("width", img.Bounds().Dx()).
			Int("height", img.Bounds().Dy()).
			Str("color", string(opts.Color)).
			Str("file", name).
			Msg("rendered preview")
		files = append(files, name)
	}
	return files, nil
}

func writeJPEG(name string, img image.Image, quality int) error {
	f, err := os.Create(name)
	if err != nil {
		return apperr.FromFS(name, err, apperr.WriteFailure)
	}
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: quality}); err != nil {
		f.Close()
		return apperr.Wrap(apperr.WriteFailure, name, err, "failed to encode JPEG")
	}
	if err := f.Close(); err != nil {
		return apperr.FromFS(name, err, apperr.WriteFailure)
	}
	return nil
}
