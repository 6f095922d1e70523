package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/bryanwahyu/medassist/internal/domain/analysis"
)

type handlerFunc func(http.ResponseWriter, *http.Request) error

// wrap is the single place handler errors become HTTP responses.
func wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		status := statusFor(err)
		if status >= 500 {
			slog.ErrorContext(req.Context(), "request failed", "path", req.URL.Path, "status", status, "error", err)
		}
		writeJSON(w, status, map[string]string{"error": analysis.UserMessage(err)})
	}
}

func statusFor(err error) int {
	var maxErr *http.MaxBytesError
	var serr *analysis.ServerError
	switch {
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, analysis.ErrValidation), errors.Is(err, analysis.ErrUnsupportedCategory):
		return http.StatusBadRequest
	case errors.Is(err, analysis.ErrPrecondition):
		return http.StatusConflict
	case errors.Is(err, analysis.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, analysis.ErrQuotaExceeded):
		return http.StatusTooManyRequests
	case errors.As(err, &serr), errors.Is(err, analysis.ErrNetwork), errors.Is(err, analysis.ErrMalformedResponse):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// decodeJSON reads a request body; any decode failure is a validation error.
func decodeJSON(req *http.Request, v any) error {
	if err := json.NewDecoder(req.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return err
		}
		return &analysis.ValidationError{Reason: "invalid JSON body"}
	}
	return nil
}
