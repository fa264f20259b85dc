package pdfio

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/rs/zerolog/log"

	"github.com/local/pdfsplit/internal/apperr"
)

func init() {
	// Keep pdfcpu from creating a config directory under the user's home.
	api.DisableConfigDir()
}

// NewConfiguration returns the pdfcpu configuration used for reading and
// writing. password unlocks encrypted input.
func NewConfiguration(password string) *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if password != "" {
		conf.UserPW = password
		conf.OwnerPW = password
	}
	return conf
}

// Read sniffs, parses and validates the PDF at path.
func Read(path, password string) (*model.Context, error) {
	if _, err := RequirePDF(path); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, apperr.FromFS(path, err, apperr.InvalidPDF)
	}
	defer f.Close()

	ctx, err := api.ReadValidateAndOptimize(f, NewConfiguration(password))
	if err != nil {
		if errors.Is(err, pdfcpu.ErrWrongPassword) {
			return nil, apperr.Wrap(apperr.InvalidPDF, path, err, "wrong or missing password")
		}
		return nil, apperr.Wrap(apperr.InvalidPDF, path, err, "cannot read PDF")
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, apperr.Wrap(apperr.InvalidPDF, path, err, "cannot count pages")
	}

	log.Debug().Str("file", path).Int("pages", ctx.PageCount).Msg("read PDF")
	return ctx, nil
}

// Staged is a fully serialized document in a temp file next to its
// destination. Commit renames it into place; Discard removes it.
type Staged struct {
	Path string
	Dest string
	Size int64
}

// Stage serializes ctx into a temp file in dest's directory.
func Stage(ctx *model.Context, dest string) (st *Staged, err error) {
	// Keep the .pdf suffix: MuPDF picks its document handler by extension.
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".pdfsplit-*.pdf")
	if err != nil {
		return nil, writeErr(dest, err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if err = api.WriteContext(ctx, tmp); err != nil {
		return nil, apperr.Wrap(apperr.WriteFailure, dest, err, "cannot serialize PDF")
	}
	if err = tmp.Chmod(0o644); err != nil {
		return nil, writeErr(dest, err)
	}
	if err = tmp.Sync(); err != nil {
		return nil, writeErr(dest, err)
	}
	info, err := tmp.Stat()
	if err != nil {
		return nil, writeErr(dest, err)
	}
	if err = tmp.Close(); err != nil {
		return nil, writeErr(dest, err)
	}
	return &Staged{Path: tmpName, Dest: dest, Size: info.Size()}, nil
}

// Commit moves the staged file to its destination.
func (s *Staged) Commit() error {
	if err := os.Rename(s.Path, s.Dest); err != nil {
		_ = os.Remove(s.Path)
		return writeErr(s.Dest, err)
	}
	log.Debug().Str("file", s.Dest).Int64("size", s.Size).Msg("wrote PDF")
	return nil
}

// Discard removes the staged file. It is a no-op after Commit.
func (s *Staged) Discard() {
	_ = os.Remove(s.Path)
}

// WriteFile serializes ctx to path through a temp file in the same
// directory, so path is either the complete document or untouched.
// It returns the size of the written file.
func WriteFile(ctx *model.Context, path string) (int64, error) {
	st, err := Stage(ctx, path)
	if err != nil {
		return 0, err
	}
	if err := st.Commit(); err != nil {
		return 0, err
	}
	return st.Size, nil
}

func writeErr(path string, err error) error {
	if errors.Is(err, fs.ErrPermission) {
		return apperr.Wrap(apperr.PermissionDenied, path, err, "permission denied")
	}
	return apperr.Wrap(apperr.WriteFailure, path, err, "write failed")
}
