package pdfio

import (
	"os"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"

	"github.com/local/pdfsplit/internal/apperr"
)

const pdfMIME = "application/pdf"

// FileTypeInfo contains detected file type information
type FileTypeInfo struct {
	MIMEType  string
	Extension string
	Size      int64
}

// Detect sniffs path using magic bytes, not its filename.
func Detect(path string) (*FileTypeInfo, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, apperr.FromFS(path, err, apperr.InvalidPDF)
	}
	if st.IsDir() {
		return nil, apperr.New(apperr.InvalidPDF, path, "input is a directory")
	}

	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, apperr.FromFS(path, err, apperr.InvalidPDF)
	}

	info := &FileTypeInfo{
		MIMEType:  mtype.String(),
		Extension: mtype.Extension(),
		Size:      st.Size(),
	}
	log.Debug().Str("mime", info.MIMEType).Str("ext", info.Extension).Str("file", path).Msg("detected file type")
	return info, nil
}

// RequirePDF fails with InvalidPDF unless path looks like a PDF.
func RequirePDF(path string) (*FileTypeInfo, error) {
	info, err := Detect(path)
	if err != nil {
		return nil, err
	}
	if info.Size == 0 {
		return nil, apperr.New(apperr.InvalidPDF, path, "input file is empty")
	}
	if !mimetype.EqualsAny(info.MIMEType, pdfMIME) {
		return nil, apperr.New(apperr.InvalidPDF, path, "not a PDF (detected %s)", info.MIMEType)
	}
	return info, nil
}
