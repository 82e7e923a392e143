package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	domainerrors "xplore/internal/core/errors"
)

type errorDetail struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Context map[string]any `json:"context,omitempty"`
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("failed to write response", "error", err)
	}
}

func statusFor(code domainerrors.ErrorCode) int {
	switch code {
	case domainerrors.CodeNotFound:
		return http.StatusNotFound
	case domainerrors.CodeValidationError:
		return http.StatusBadRequest
	case domainerrors.CodeConflict, domainerrors.CodeStale:
		return http.StatusConflict
	case domainerrors.CodePermissionDenied:
		return http.StatusForbidden
	case domainerrors.CodeNotSupported:
		return http.StatusUnprocessableEntity
	case domainerrors.CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := domainerrors.CodeOf(err)
	if code == "" {
		code = domainerrors.CodeInternal
	}
	detail := errorDetail{Code: string(code), Message: err.Error()}
	var de *domainerrors.DomainError
	if errors.As(err, &de) {
		detail.Message = de.Message
		detail.Context = de.Context
	}
	status := statusFor(code)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "code", code, "error", err)
	}
	writeJSON(w, status, errorBody{Error: detail})
}

func badRequest(msg string) error {
	return domainerrors.New(domainerrors.CodeValidationError, msg)
}
