package web

// errors.go provides the JSON response helpers for the web layer. Errors are
// logged with full technical detail server-side, while clients receive only
// a human-readable message; no stack traces cross the boundary.

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/lilnaht/excelfile-automation/internal/logging"
)

// errorResponse is the JSON structure for error responses.
type errorResponse struct {
	Error string `json:"error"`
}

// writeError logs the failure with request context and writes a JSON error
// body with the given status.
func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	logging.FromContext(r.Context()).Warn("request failed",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"message", message,
	)

	writeJSONStatus(w, status, errorResponse{Error: message})
}

// writeJSON writes v as a 200 JSON response.
func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

// writeJSONStatus writes v as JSON with an explicit status code.
// Encoding errors are logged since headers are already sent.
func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", "error", err)
	}
}
