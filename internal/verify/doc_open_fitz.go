package verify

import (
	"image"

	fitz "github.com/gen2brain/go-fitz"
)

// fitzOpener implements Opener using github.com/gen2brain/go-fitz.
type fitzOpener struct{}

func (fitzOpener) Open(path string) (Doc, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, err
	}
	return fitzDoc{doc}, nil
}

func init() {
	setDefaultOpener(fitzOpener{})
}

type fitzDoc struct{ *fitz.Document }

// Image renders page i (0-based) at the given resolution.
func (d fitzDoc) Image(i int, dpi float64) (image.Image, error) {
	return d.Document.ImageDPI(i, dpi)
}
