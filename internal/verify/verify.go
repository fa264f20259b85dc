package verify

import (
	"errors"
	"image"
	"math"
	"strconv"
	"time"

	"github.com/local/pdfsplit/internal/apperr"
)

// DefaultTolerance absorbs MuPDF's integer page bounds, in points.
const DefaultTolerance = 1.5

// Doc abstracts a rendered PDF document.
type Doc interface {
	NumPage() int
	Bound(i int) (image.Rectangle, error)
	Image(i int, dpi float64) (image.Image, error)
	Close() error
}

// Opener abstracts opening a PDF path into a Doc.
type Opener interface {
	Open(path string) (Doc, error)
}

// defaultOpener is provided in doc_open_fitz.go using go-fitz.
var defaultOpener Opener

// setDefaultOpener allows swapping the default opener, useful for tests or alternate backends.
func setDefaultOpener(o Opener) { defaultOpener = o }

// Size is a page size in points.
type Size struct {
	W, H float64
}

// PageResult captures the result of checking a single output page.
type PageResult struct {
	Page     int  `json:"page"`
	Want     Size `json:"want"`
	Got      Size `json:"got"`
	Rotated  bool `json:"rotated,omitempty"`
	Mismatch bool `json:"mismatch,omitempty"`
}

// Diagnostics describes one verification pass.
type Diagnostics struct {
	FilePath   string       `json:"file_path"`
	WantPages  int          `json:"want_pages"`
	GotPages   int          `json:"got_pages"`
	Pages      []PageResult `json:"pages"`
	DurationMs int64        `json:"duration_ms"`
}

// Check opens path and compares each page's rendered size with want, in order.
// A page rendered with swapped width and height (a /Rotate of 90 or 270)
// still matches. Any difference yields a VerifyFailure.
func Check(path string, want []Size, tolerance float64) (*Diagnostics, error) {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	if defaultOpener == nil {
		return nil, errors.New("no PDF opener configured")
	}

	start := time.Now()
	d, err := defaultOpener.Open(path)
	if err != nil {
		return nil, apperr.Wrap(apperr.VerifyFailure, path, err, "cannot open output")
	}
	defer d.Close()

	diag := &Diagnostics{FilePath: path, WantPages: len(want), GotPages: d.NumPage()}
	defer func() { diag.DurationMs = time.Since(start).Milliseconds() }()

	if diag.GotPages != diag.WantPages {
		return diag, apperr.New(apperr.VerifyFailure, path,
			"output has %d pages, expected %d", diag.GotPages, diag.WantPages)
	}

	var bad []int
	for i, w := range want {
		r, err := d.Bound(i)
		if err != nil {
			return diag, apperr.Wrap(apperr.VerifyFailure, strconv.Itoa(i+1), err, "cannot measure page")
		}
		got := Size{W: float64(r.Dx()), H: float64(r.Dy())}
		pr := PageResult{Page: i + 1, Want: w, Got: got}
		switch {
		case within(got.W, w.W, tolerance) && within(got.H, w.H, tolerance):
		case within(got.W, w.H, tolerance) && within(got.H, w.W, tolerance):
			pr.Rotated = true
		default:
			pr.Mismatch = true
			bad = append(bad, i+1)
		}
		diag.Pages = append(diag.Pages, pr)
	}

	if len(bad) > 0 {
		return diag, apperr.New(apperr.VerifyFailure, path, "page size mismatch on pages %v", bad)
	}
	return diag, nil
}

func within(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

// MuPDF checks and renders output documents through the default opener.
type MuPDF struct {
	Tolerance float64
}

func (m MuPDF) Check(path string, want []Size) (*Diagnostics, error) {
	return Check(path, want, m.Tolerance)
}

func (MuPDF) RenderPreviews(path, dir string, opts PreviewOptions) ([]string, error) {
	return RenderPreviews(path, dir, opts)
}
