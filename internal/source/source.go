package source

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/local/pdfsplit/internal/apperr"
	"github.com/local/pdfsplit/internal/storage"
)

// Suffix is inserted before the extension of derived output names.
const Suffix = " - Split"

// ObjectStore is the subset of the S3 client used here.
type ObjectStore interface {
	Download(ctx context.Context, obj storage.Object) (string, error)
	Upload(ctx context.Context, obj storage.Object, r io.Reader) error
}

// Resolver turns input references into local files and publishes results.
// Supported references:
// - file://path or absolute/relative filesystem paths
// - http(s):// URLs (input only, downloaded to temp)
// - s3://bucket/key (downloaded to temp / uploaded via the S3 client)
type Resolver struct {
	HTTP *http.Client
	S3   ObjectStore // nil disables s3:// references
}

// NewResolver returns a Resolver whose HTTP client times out after timeout.
func NewResolver(timeout time.Duration, s3 ObjectStore) *Resolver {
	return &Resolver{HTTP: &http.Client{Timeout: timeout}, S3: s3}
}

// Local is an input available on the local filesystem.
type Local struct {
	Path string
	temp bool
}

// Close removes the file if it was downloaded.
func (l *Local) Close() {
	if l != nil && l.temp {
		_ = os.Remove(l.Path)
	}
}

// Fetch makes ref available locally.
func (r *Resolver) Fetch(ctx context.Context, ref string) (*Local, error) {
	switch {
	case storage.IsURL(ref):
		obj, err := storage.ParseURL(ref)
		if err != nil {
			return nil, apperr.Wrap(apperr.FetchFailure, ref, err, "bad input reference")
		}
		if r.S3 == nil {
			return nil, apperr.New(apperr.FetchFailure, ref, "s3 storage not configured")
		}
		p, err := r.S3.Download(ctx, obj)
		if err != nil {
			if storage.IsNotFound(err) {
				return nil, apperr.Wrap(apperr.FileNotFound, ref, err, "file not found")
			}
			return nil, apperr.Wrap(apperr.FetchFailure, ref, err, "fetch failed")
		}
		return &Local{Path: p, temp: true}, nil

	case strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://"):
		p, err := r.downloadHTTP(ctx, ref)
		if err != nil {
			return nil, err
		}
		return &Local{Path: p, temp: true}, nil

	default:
		p := LocalPath(ref)
		if _, err := os.Stat(p); err != nil {
			return nil, apperr.FromFS(p, err, apperr.InvalidPDF)
		}
		return &Local{Path: p}, nil
	}
}

func (r *Resolver) downloadHTTP(ctx context.Context, ref string) (string, error) {
	client := r.HTTP
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return "", apperr.Wrap(apperr.FetchFailure, ref, err, "bad input reference")
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", apperr.Wrap(apperr.FetchFailure, ref, err, "fetch failed")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", apperr.New(apperr.FileNotFound, ref, "file not found (http %d)", resp.StatusCode)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", apperr.New(apperr.PermissionDenied, ref, "permission denied (http %d)", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return "", apperr.New(apperr.FetchFailure, ref, "fetch failed (http %d)", resp.StatusCode)
	}

	f, err := os.CreateTemp("", "pdfsplit-dl-*.pdf")
	if err != nil {
		return "", apperr.Wrap(apperr.FetchFailure, ref, err, "cannot create temp file")
	}
	defer f.Close()
	n, err := io.Copy(f, resp.Body)
	if err != nil {
		_ = os.Remove(f.Name())
		return "", apperr.Wrap(apperr.FetchFailure, ref, err, "download interrupted")
	}

	log.Info().Str("url", ref).Int64("size", n).Str("file", filepath.Base(f.Name())).Msg("downloaded input to temp")
	return f.Name(), nil
}

// Publish stores the local file at dest. Local destinations are expected to
// have been written in place already.
func (r *Resolver) Publish(ctx context.Context, localPath, dest string) error {
	if !storage.IsURL(dest) {
		return nil
	}
	obj, err := storage.ParseURL(dest)
	if err != nil {
		return apperr.Wrap(apperr.WriteFailure, dest, err, "bad output reference")
	}
	if r.S3 == nil {
		return apperr.New(apperr.WriteFailure, dest, "s3 storage not configured")
	}

	f, err := os.Open(localPath)
	if err != nil {
		return apperr.FromFS(localPath, err, apperr.WriteFailure)
	}
	defer f.Close()

	if err := r.S3.Upload(ctx, obj, f); err != nil {
		return apperr.Wrap(apperr.WriteFailure, dest, err, "upload failed")
	}
	return nil
}

// IsRemote reports whether ref is not a plain filesystem location.
func IsRemote(ref string) bool {
	return storage.IsURL(ref) || strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

// LocalPath strips a file:// scheme.
func LocalPath(ref string) string {
	if p, ok := strings.CutPrefix(ref, "file://"); ok {
		return p
	}
	return ref
}

// DefaultOutput derives the output reference for input by inserting Suffix
// before its extension. HTTP inputs land in the working directory.
func DefaultOutput(input string) string {
	switch {
	case storage.IsURL(input):
		return insertSuffix(input, path.Ext)
	case strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://"):
		name := "download.pdf"
		if u, err := url.Parse(input); err == nil {
			if base := path.Base(u.Path); base != "/" && base != "." {
				name = base
			}
		}
		return insertSuffix(name, path.Ext)
	default:
		return insertSuffix(LocalPath(input), filepath.Ext)
	}
}

func insertSuffix(p string, ext func(string) string) string {
	e := ext(p)
	stem := strings.TrimSuffix(p, e)
	if stem == "" || strings.HasSuffix(stem, "/") || strings.HasSuffix(stem, string(filepath.Separator)) {
		// ".pdf" or "dir/.hidden": the dot starts the name, not an extension.
		return p + Suffix
	}
	return stem + Suffix + e
}

// Describe formats ref for log output.
func Describe(ref string) string {
	if IsRemote(ref) {
		return ref
	}
	if abs, err := filepath.Abs(LocalPath(ref)); err == nil {
		return abs
	}
	return ref
}
