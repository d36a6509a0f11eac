package analyses

import (
	"errors"

	"release-analyzer/internal/extract"
	"release-analyzer/internal/llm"
)

var (
	// ErrConfiguration means no credential is available from the server
	// environment or the request.
	ErrConfiguration = errors.New("llm credential not configured")
	// ErrInvalidUpload means the upload is not a PDF.
	ErrInvalidUpload = errors.New("invalid upload")
	// ErrGenerationBlocked means the session's last generation failed with
	// the same credential and the call was not repeated.
	ErrGenerationBlocked = errors.New("generation blocked")
	// ErrCanceled means the caller went away before the model answered.
	ErrCanceled = errors.New("analysis canceled")

	ErrDocumentRead = extract.ErrDocumentRead
	ErrGeneration   = llm.ErrGeneration
)

const (
	ErrorCodeCredentialRequired = "credential_required"
	ErrorCodeInvalidFile        = "invalid_file"
	ErrorCodeDocumentRead       = "document_read_error"
	ErrorCodeGeneration         = "generation_error"
	ErrorCodeGenerationBlocked  = "generation_blocked"
	ErrorCodeCanceled           = "canceled"
	ErrorCodeInternal           = "internal_error"
)

// BlockedError carries the failure that caused the short circuit.
type BlockedError struct {
	LastError string
}

func (e *BlockedError) Error() string {
	if e.LastError == "" {
		return "previous generation failed; provide a different API key to retry"
	}
	return "previous generation failed (" + e.LastError + "); provide a different API key to retry"
}

func (e *BlockedError) Is(target error) bool { return target == ErrGenerationBlocked }

// ErrorCode maps a pipeline error to its stable API code.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConfiguration):
		return ErrorCodeCredentialRequired
	case errors.Is(err, ErrGenerationBlocked):
		return ErrorCodeGenerationBlocked
	case errors.Is(err, ErrCanceled):
		return ErrorCodeCanceled
	case errors.Is(err, ErrInvalidUpload):
		return ErrorCodeInvalidFile
	case errors.Is(err, ErrDocumentRead):
		return ErrorCodeDocumentRead
	case errors.Is(err, ErrGeneration):
		return ErrorCodeGeneration
	}
	return ErrorCodeInternal
}
