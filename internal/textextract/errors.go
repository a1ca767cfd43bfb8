package textextract

import (
	"errors"
	"fmt"
)

// Causes carried by TextExtractionError.
var (
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrUnreadable        = errors.New("unreadable content")
	ErrNoExtractableText = errors.New("no extractable text")
)

// TextExtractionError reports why a file could not be turned into text.
// errors.Is matches both the cause sentinel and the underlying error.
type TextExtractionError struct {
	Cause   error
	Message string
	Err     error
}

func (e *TextExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *TextExtractionError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func newError(cause error, msg string, err error) *TextExtractionError {
	return &TextExtractionError{Cause: cause, Message: msg, Err: err}
}
