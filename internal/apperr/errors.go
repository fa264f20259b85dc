package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for reporting and exit status.
type Kind string

const (
	Unknown          Kind = "unknown"
	FileNotFound     Kind = "file_not_found"
	InvalidPDF       Kind = "invalid_pdf"
	InvalidSelection Kind = "invalid_selection"
	PermissionDenied Kind = "permission_denied"
	WriteFailure     Kind = "write_failure"
	FetchFailure     Kind = "fetch_failure"
	VerifyFailure    Kind = "verify_failure"
)

// Error is a classified failure. Subject names the offending input:
// a path, a selection token or a page number.
type Error struct {
	Kind    Kind
	Subject string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Subject != "" {
		msg = fmt.Sprintf("%s: %q", msg, e.Subject)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// New returns an Error without a cause.
func New(kind Kind, subject, format string, args ...any) *Error {
	return &Error{Kind: kind, Subject: subject, Message: fmt.Sprintf(format, args...)}
}

// Wrap returns an Error carrying cause. A nil cause yields nil.
func Wrap(kind Kind, subject string, cause error, format string, args ...any) error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: kind, Subject: subject, Message: fmt.Sprintf(format, args...), Err: cause}
}

// Is reports whether err carries the given kind anywhere in its chain.
// Below the last classified error, filesystem causes are mapped as in KindOf.
func Is(err error, kind Kind) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return KindOf(err) == kind
		}
		if e.Kind == kind {
			return true
		}
		err = e.Err
	}
	return false
}
