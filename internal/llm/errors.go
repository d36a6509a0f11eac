package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// ErrGeneration matches every *GenerationError.
var ErrGeneration = errors.New("generation failed")

// ErrMissingAPIKey is returned by provider constructors without a credential.
var ErrMissingAPIKey = errors.New("api key is required")

type Kind string

const (
	KindCredential      Kind = "credential"
	KindQuota           Kind = "quota"
	KindUnavailable     Kind = "unavailable"
	KindInvalidResponse Kind = "invalid_response"
	KindUnknown         Kind = "unknown"
)

// GenerationError describes a failed call to the hosted model. Message is
// meant to be shown to the user as is.
type GenerationError struct {
	Kind       Kind
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *GenerationError) Error() string {
	if e.Provider == "" {
		return e.Message
	}
	return e.Provider + ": " + e.Message
}

func (e *GenerationError) Unwrap() error { return e.Err }

func (e *GenerationError) Is(target error) bool { return target == ErrGeneration }

// NewStatusError classifies a non-2xx provider response.
func NewStatusError(provider string, status int, message string, err error) *GenerationError {
	message = strings.TrimSpace(message)
	if message == "" {
		message = fmt.Sprintf("request failed with status %d", status)
		if text := http.StatusText(status); text != "" {
			message = fmt.Sprintf("request failed with status %d %s", status, text)
		}
	}
	return &GenerationError{
		Kind:       classify(status, message),
		Provider:   provider,
		StatusCode: status,
		Message:    message,
		Err:        err,
	}
}

// NewTransportError wraps an error raised before any response was received.
func NewTransportError(provider string, err error) *GenerationError {
	kind := KindUnknown
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = KindUnavailable
	case errors.As(err, &netErr):
		kind = KindUnavailable
	}
	msg := "request failed"
	if err != nil {
		msg = err.Error()
	}
	return &GenerationError{Kind: kind, Provider: provider, Message: msg, Err: err}
}

// NewInvalidResponse reports a 2xx response that carried no usable text.
func NewInvalidResponse(provider, message string) *GenerationError {
	return &GenerationError{Kind: KindInvalidResponse, Provider: provider, StatusCode: http.StatusOK, Message: message}
}

func classify(status int, message string) Kind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindCredential
	case status == http.StatusTooManyRequests:
		return KindQuota
	case status >= 500:
		return KindUnavailable
	}
	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "api key"), strings.Contains(lower, "api_key"), strings.Contains(lower, "credential"):
		return KindCredential
	case strings.Contains(lower, "quota"), strings.Contains(lower, "rate limit"):
		return KindQuota
	}
	return KindUnknown
}

// KindOf returns the kind of a generation error or KindUnknown.
func KindOf(err error) Kind {
	var ge *GenerationError
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return KindUnknown
}
