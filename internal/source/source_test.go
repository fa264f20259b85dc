package source

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/local/pdfsplit/internal/apperr"
	"github.com/local/pdfsplit/internal/storage"
)

type fakeStore struct {
	objects  map[storage.Object][]byte
	uploaded map[storage.Object][]byte
	err      error
}

func (f *fakeStore) Download(_ context.Context, obj storage.Object) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	data, ok := f.objects[obj]
	if !ok {
		return "", errors.New("no such object")
	}
	tmp, err := os.CreateTemp("", "fake-s3-*.pdf")
	if err != nil {
		return "", err
	}
	defer tmp.Close()
	_, err = tmp.Write(data)
	return tmp.Name(), err
}

func (f *fakeStore) Upload(_ context.Context, obj storage.Object, r io.Reader) error {
	if f.err != nil {
		return f.err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if f.uploaded == nil {
		f.uploaded = map[storage.Object][]byte{}
	}
	f.uploaded[obj] = data
	return nil
}

func TestDefaultOutput(t *testing.T) {
	tests := map[string]string{
		"input.pdf":                         "input - Split.pdf",
		"dir/report.v2.pdf":                 "dir/report.v2 - Split.pdf",
		"/abs/path/scan.PDF":                "/abs/path/scan - Split.PDF",
		"noext":                             "noext - Split",
		"dir.d/noext":                       "dir.d/noext - Split",
		"dir/.pdf":                          "dir/.pdf - Split",
		"file:///tmp/in.pdf":                "/tmp/in - Split.pdf",
		"s3://docs/books/in.pdf":            "s3://docs/books/in - Split.pdf",
		"https://example.com/x/paper.pdf?a": "paper - Split.pdf",
		"https://example.com/":              "download - Split.pdf",
	}
	for in, want := range tests {
		if got := DefaultOutput(in); got != want {
			t.Errorf("DefaultOutput(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFetchLocal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatal(err)
	}
	r := NewResolver(time.Second, nil)

	for _, ref := range []string{path, "file://" + path} {
		local, err := r.Fetch(context.Background(), ref)
		if err != nil {
			t.Fatalf("Fetch(%q): %v", ref, err)
		}
		if local.Path != path {
			t.Errorf("Path = %q, want %q", local.Path, path)
		}
		local.Close()
		if _, err := os.Stat(path); err != nil {
			t.Errorf("Close removed a local input: %v", err)
		}
	}

	_, err := r.Fetch(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"))
	if !apperr.Is(err, apperr.FileNotFound) {
		t.Errorf("expected FileNotFound, got %v", err)
	}
}

func TestFetchHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.pdf":
			_, _ = w.Write([]byte("%PDF-1.4 body"))
		case "/secret.pdf":
			w.WriteHeader(http.StatusForbidden)
		case "/broken.pdf":
			w.WriteHeader(http.StatusBadGateway)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	r := NewResolver(5*time.Second, nil)

	local, err := r.Fetch(context.Background(), srv.URL+"/ok.pdf")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	data, err := os.ReadFile(local.Path)
	if err != nil || string(data) != "%PDF-1.4 body" {
		t.Errorf("downloaded %q, %v", data, err)
	}
	local.Close()
	if _, err := os.Stat(local.Path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("temp download not removed: %v", err)
	}

	cases := map[string]apperr.Kind{
		"/missing.pdf": apperr.FileNotFound,
		"/secret.pdf":  apperr.PermissionDenied,
		"/broken.pdf":  apperr.FetchFailure,
	}
	for p, want := range cases {
		_, err := r.Fetch(context.Background(), srv.URL+p)
		if got := apperr.KindOf(err); got != want {
			t.Errorf("Fetch(%s) kind = %q, want %q (%v)", p, got, want, err)
		}
	}
}

func TestFetchAndPublishS3(t *testing.T) {
	in := storage.Object{Bucket: "docs", Key: "in.pdf"}
	store := &fakeStore{objects: map[storage.Object][]byte{in: []byte("%PDF-1.4 s3")}}
	r := NewResolver(time.Second, store)

	local, err := r.Fetch(context.Background(), in.String())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	defer local.Close()

	dest := "s3://docs/in - Split.pdf"
	if err := r.Publish(context.Background(), local.Path, dest); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	got := store.uploaded[storage.Object{Bucket: "docs", Key: "in - Split.pdf"}]
	if string(got) != "%PDF-1.4 s3" {
		t.Errorf("uploaded %q", got)
	}

	// Local destinations need no publishing.
	if err := r.Publish(context.Background(), local.Path, "out.pdf"); err != nil {
		t.Errorf("Publish(local): %v", err)
	}
}

func TestS3Errors(t *testing.T) {
	r := NewResolver(time.Second, nil)
	if _, err := r.Fetch(context.Background(), "s3://docs/in.pdf"); !apperr.Is(err, apperr.FetchFailure) {
		t.Errorf("unconfigured s3: got %v", err)
	}
	if err := r.Publish(context.Background(), "x.pdf", "s3://docs/out.pdf"); !apperr.Is(err, apperr.WriteFailure) {
		t.Errorf("unconfigured s3 publish: got %v", err)
	}

	r.S3 = &fakeStore{err: errors.New("connection reset")}
	if _, err := r.Fetch(context.Background(), "s3://docs/in.pdf"); !apperr.Is(err, apperr.FetchFailure) {
		t.Errorf("failing store: got %v", err)
	}
	if _, err := r.Fetch(context.Background(), "s3://docs"); !apperr.Is(err, apperr.FetchFailure) {
		t.Errorf("bad url: got %v", err)
	}
}
