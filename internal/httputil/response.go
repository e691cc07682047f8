package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/redmonkez12/meetos/internal/logging"
)

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// RespondJSON sends a JSON response with the given status code.
// Used by the health check and the global rate limiter only; every other
// endpoint answers with an HTML page.
func RespondJSON(w http.ResponseWriter, r *http.Request, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logging.GetLoggerFromContext(r.Context()).Error("failed to encode JSON response", "error", err)
	}
}

// RespondError sends a JSON error response with the given message and status code.
func RespondError(w http.ResponseWriter, r *http.Request, message string, statusCode int) {
	RespondJSON(w, r, ErrorResponse{Error: message}, statusCode)
}
