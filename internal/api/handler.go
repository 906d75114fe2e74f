// Package api provides HTTP handlers for the studio console.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/ashureev/agent-studio/internal/apiclient"
	"github.com/ashureev/agent-studio/internal/studio"
)

const maxBodyBytes = 1 << 20

// Handler provides common handler utilities.
type Handler struct {
	studio *studio.Studio
	logger *slog.Logger
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(s *studio.Studio, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{studio: s, logger: logger}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// StatusFor maps a studio or backend error to an HTTP status.
func StatusFor(err error) int {
	var apiErr *apiclient.APIError
	var failed *studio.ActionFailedError
	switch {
	case studio.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, studio.ErrBusy):
		return http.StatusConflict
	case errors.As(err, &failed):
		return http.StatusUnprocessableEntity
	case errors.As(err, &apiErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err with the status StatusFor picks.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("studio request failed", "path", r.URL.Path, "status", status, "error", err)
	}
	Error(w, status, err.Error())
}

// decodeBody reads an optional JSON body into v. An empty body leaves v untouched.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
