// Package pdffixture writes small, valid PDF files for tests.
package pdffixture

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// Page describes one fixture page. A zero MediaBox inherits the document's
// default box from the page tree root.
type Page struct {
	MediaBox [4]float64
	CropBox  *[4]float64
}

// Letter is a US Letter page anchored at the origin.
var Letter = [4]float64{0, 0, 612, 792}

// Pages returns n Letter-sized pages.
func Pages(n int) []Page {
	pages := make([]Page, n)
	for i := range pages {
		pages[i].MediaBox = Letter
	}
	return pages
}

// Build renders a PDF with one content stream per page. inherited is placed
// on the /Pages node as the default MediaBox.
func Build(pages []Page, inherited [4]float64) []byte {
	var buf bytes.Buffer
	var offsets []int

	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")

	// 1: catalog, 2: pages, then page/content pairs.
	obj("<</Type/Catalog/Pages 2 0 R>>")

	kids := new(bytes.Buffer)
	for i := range pages {
		fmt.Fprintf(kids, "%d 0 R ", 3+2*i)
	}
	obj(fmt.Sprintf("<</Type/Pages/Kids[%s]/Count %d/MediaBox%s>>", kids.String(), len(pages), box(inherited)))

	for i, p := range pages {
		dict := fmt.Sprintf("<</Type/Page/Parent 2 0 R/Resources<<>>/Contents %d 0 R", 4+2*i)
		if p.MediaBox != ([4]float64{}) {
			dict += "/MediaBox" + box(p.MediaBox)
		}
		if p.CropBox != nil {
			dict += "/CropBox" + box(*p.CropBox)
		}
		obj(dict + ">>")

		content := fmt.Sprintf("%% page %d\n0 0 m 100 100 l S", i+1)
		obj(fmt.Sprintf("<</Length %d>>\nstream\n%s\nendstream", len(content), content))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f\r\n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n\r\n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<</Size %d/Root 1 0 R>>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)

	return buf.Bytes()
}

// WriteFile writes a fixture with n Letter pages into t's temp dir.
func WriteFile(t testing.TB, name string, n int) string {
	t.Helper()
	return WritePages(t, name, Pages(n), Letter)
}

// WritePages writes a fixture built from pages into t's temp dir.
func WritePages(t testing.TB, name string, pages []Page, inherited [4]float64) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, Build(pages, inherited), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func box(b [4]float64) string {
	return fmt.Sprintf("[%g %g %g %g]", b[0], b[1], b[2], b[3])
}
