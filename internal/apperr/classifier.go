package apperr

import (
	"errors"
	"io/fs"
	"os"
)

// KindOf returns the kind of the outermost classified error in err's chain.
// Unclassified filesystem errors are mapped by their cause.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}

	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}

	if errors.Is(err, fs.ErrNotExist) {
		return FileNotFound
	}
	if errors.Is(err, fs.ErrPermission) {
		return PermissionDenied
	}

	return Unknown
}

// FromFS classifies an error returned by an os/fs call on path. Errors that
// are neither missing-file nor permission problems are returned as fallback.
func FromFS(path string, err error, fallback Kind) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return Wrap(FileNotFound, path, err, "file not found")
	case errors.Is(err, fs.ErrPermission):
		return Wrap(PermissionDenied, path, err, "permission denied")
	}
	var pathErr *os.PathError
	if errors.As(err, &pathErr) && pathErr.Path != "" {
		path = pathErr.Path
	}
	return Wrap(fallback, path, err, "%s", describe(fallback))
}

// ExitCode maps err to the process exit status.
func ExitCode(err error) int {
	switch KindOf(err) {
	case "":
		return 0
	case InvalidSelection:
		return 2
	case FileNotFound:
		return 3
	case InvalidPDF:
		return 4
	case PermissionDenied:
		return 5
	case WriteFailure:
		return 6
	case FetchFailure:
		return 7
	case VerifyFailure:
		return 8
	default:
		return 1
	}
}

func describe(kind Kind) string {
	switch kind {
	case InvalidPDF:
		return "invalid PDF"
	case WriteFailure:
		return "write failed"
	case FetchFailure:
		return "fetch failed"
	case VerifyFailure:
		return "verification failed"
	default:
		return string(kind)
	}
}
