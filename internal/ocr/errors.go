package ocr

import (
	"errors"
	"fmt"
)

// Common document reading errors
var (
	// ErrUnsupportedFormat is returned for file extensions no reader handles.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrEngineUnavailable is returned when the configured OCR engine cannot run,
	// e.g. the tesseract binary is missing or no API key is set.
	ErrEngineUnavailable = errors.New("OCR engine unavailable")

	// ErrInvalidPDF is returned when the data is not a readable PDF document.
	ErrInvalidPDF = errors.New("invalid or corrupted PDF document")

	// ErrEmptyDocument is returned when no text could be read at all.
	ErrEmptyDocument = errors.New("document contains no readable text")
)

// OCRError wraps errors with additional context about the reading failure.
type OCRError struct {
	// Op is the operation that failed (e.g., "Recognize", "RenderPages").
	Op string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string
}

func (e *OCRError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("ocr: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("ocr: %s failed: %v", e.Op, e.Err)
}

func (e *OCRError) Unwrap() error {
	return e.Err
}

// Is matches against the wrapped error.
func (e *OCRError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewOCRError creates a new OCRError.
func NewOCRError(op string, err error, details string) *OCRError {
	return &OCRError{Op: op, Err: err, Details: details}
}

// WrapOCRError wraps err with the operation name, keeping nil as nil.
func WrapOCRError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &OCRError{Op: op, Err: err}
}
