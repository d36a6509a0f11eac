package extract

import (
	"errors"
	"fmt"
)

var (
	// ErrDocumentRead marks failures to parse an uploaded document.
	ErrDocumentRead = errors.New("document read error")
	// ErrNotPDF is returned when the upload is not recognizably a PDF.
	ErrNotPDF = errors.New("file is not a pdf")
)

// DocumentReadError wraps the parser failure for an upload.
type DocumentReadError struct {
	Err error
}

func (e *DocumentReadError) Error() string {
	if e.Err == nil {
		return ErrDocumentRead.Error()
	}
	return fmt.Sprintf("%s: %v", ErrDocumentRead, e.Err)
}

func (e *DocumentReadError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrDocumentRead) match any DocumentReadError.
func (e *DocumentReadError) Is(target error) bool {
	return target == ErrDocumentRead
}
