package pdfio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/local/pdfsplit/internal/apperr"
	"github.com/local/pdfsplit/internal/pdffixture"
)

func TestReadFixture(t *testing.T) {
	path := pdffixture.WriteFile(t, "in.pdf", 4)

	ctx, err := Read(path, "")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if ctx.PageCount != 4 {
		t.Errorf("PageCount = %d, want 4", ctx.PageCount)
	}
}

func TestReadErrors(t *testing.T) {
	dir := t.TempDir()

	write := func(name string, data []byte) string {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, data, 0o644); err != nil {
			t.Fatal(err)
		}
		return p
	}

	tests := []struct {
		name string
		path string
		want apperr.Kind
	}{
		{"missing", filepath.Join(dir, "nope.pdf"), apperr.FileNotFound},
		{"directory", dir, apperr.InvalidPDF},
		{"empty", write("empty.pdf", nil), apperr.InvalidPDF},
		{"text", write("notes.pdf", []byte("just some notes\n")), apperr.InvalidPDF},
		{"truncated", write("broken.pdf", []byte("%PDF-1.4\n1 0 obj\n<</Type/Catalog")), apperr.InvalidPDF},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(tt.path, "")
			if err == nil {
				t.Fatal("expected error")
			}
			if got := apperr.KindOf(err); got != tt.want {
				t.Errorf("kind = %q, want %q (%v)", got, tt.want, err)
			}
		})
	}
}

func TestRequirePDFDetectsByContent(t *testing.T) {
	// A PDF with a misleading extension is still a PDF.
	path := filepath.Join(t.TempDir(), "scan.bin")
	if err := os.WriteFile(path, pdffixture.Build(pdffixture.Pages(1), pdffixture.Letter), 0o644); err != nil {
		t.Fatal(err)
	}
	info, err := RequirePDF(path)
	if err != nil {
		t.Fatalf("RequirePDF: %v", err)
	}
	if info.MIMEType != "application/pdf" {
		t.Errorf("MIMEType = %q", info.MIMEType)
	}
}

func TestWriteFileAtomic(t *testing.T) {
	ctx, err := Read(pdffixture.WriteFile(t, "in.pdf", 2), "")
	if err != nil {
		t.Fatal(err)
	}

	outDir := t.TempDir()
	out := filepath.Join(outDir, "out.pdf")
	size, err := WriteFile(ctx, out)
	if err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if size <= 0 {
		t.Errorf("size = %d", size)
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "out.pdf" {
		t.Errorf("unexpected directory contents: %v", entries)
	}

	again, err := Read(out, "")
	if err != nil {
		t.Fatalf("re-read: %v", err)
	}
	if again.PageCount != 2 {
		t.Errorf("PageCount = %d, want 2", again.PageCount)
	}
}

func TestWriteFileMissingDir(t *testing.T) {
	ctx, err := Read(pdffixture.WriteFile(t, "in.pdf", 1), "")
	if err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(t.TempDir(), "no", "such", "dir", "out.pdf")
	if _, err := WriteFile(ctx, out); !apperr.Is(err, apperr.WriteFailure) {
		t.Errorf("expected WriteFailure, got %v", err)
	}
}

func TestWriteFileReadOnlyDir(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}
	ctx, err := Read(pdffixture.WriteFile(t, "in.pdf", 1), "")
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	if err := os.Chmod(dir, 0o500); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chmod(dir, 0o755) })

	if _, err := WriteFile(ctx, filepath.Join(dir, "out.pdf")); !apperr.Is(err, apperr.PermissionDenied) {
		t.Errorf("expected PermissionDenied, got %v", err)
	}
}

func TestStageCommitAndDiscard(t *testing.T) {
	ctx, err := Read(pdffixture.WriteFile(t, "in.pdf", 3), "")
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	out := filepath.Join(dir, "out.pdf")

	discarded, err := Stage(ctx, out)
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}
	if filepath.Dir(discarded.Path) != dir || filepath.Ext(discarded.Path) != ".pdf" {
		t.Errorf("staged at %q, want a .pdf next to %q", discarded.Path, out)
	}
	if _, err := Read(discarded.Path, ""); err != nil {
		t.Errorf("staged file is not a complete PDF: %v", err)
	}
	discarded.Discard()
	if entries, _ := os.ReadDir(dir); len(entries) != 0 {
		t.Fatalf("Discard left %v", entries)
	}

	st, err := Stage(ctx, out)
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Errorf("destination exists before Commit: %v", err)
	}
	if err := st.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	st.Discard()
	info, err := os.Stat(out)
	if err != nil {
		t.Fatalf("destination missing after Commit: %v", err)
	}
	if info.Size() != st.Size {
		t.Errorf("size = %d, staged size %d", info.Size(), st.Size)
	}
}
