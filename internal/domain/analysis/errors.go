package analysis

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrValidation          = errors.New("validation failed")
	ErrUnsupportedCategory = errors.New("unsupported category")
	ErrNetwork             = errors.New("network error")
	ErrMalformedResponse   = errors.New("malformed response")
	ErrPrecondition        = errors.New("no artifact selected")
	ErrNotFound            = errors.New("result not found")

	// ErrQuotaExceeded indicates the provider answered 429.
	ErrQuotaExceeded = errors.New("ai quota exceeded")
)

// ValidationError is returned by Validate when a candidate is rejected.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func (e *ValidationError) Unwrap() error { return ErrValidation }

func reject(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// ServerError carries a non-2xx status from an analysis endpoint.
type ServerError struct {
	Status int
	Body   string
}

func (e *ServerError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("server error: status %d", e.Status)
	}
	return fmt.Sprintf("server error: status %d: %s", e.Status, e.Body)
}

func (e *ServerError) Is(target error) bool {
	return target == ErrQuotaExceeded && e.Status == http.StatusTooManyRequests
}

// UserMessage turns a pipeline error into text suitable for display.
func UserMessage(err error) string {
	var verr *ValidationError
	var serr *ServerError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &verr):
		return verr.Reason
	case errors.Is(err, ErrPrecondition):
		return "Please select a file to analyze"
	case errors.Is(err, ErrUnsupportedCategory):
		return "Invalid analysis type"
	case errors.Is(err, ErrQuotaExceeded):
		return "The analysis service is busy, please try again later"
	case errors.As(err, &serr):
		return fmt.Sprintf("The analysis service returned an error (status %d)", serr.Status)
	case errors.Is(err, ErrMalformedResponse):
		return "The analysis service returned an unexpected response"
	case errors.Is(err, ErrNetwork):
		return "Could not reach the analysis service"
	}
	return "An error occurred during analysis"
}
