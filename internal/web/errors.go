package web

// errors.go provides unified error response handling for the web layer.
//
// Every handler failure flows through respondError, which:
//   - Logs the technical error with the request ID for correlation
//   - Maps the error to a user-facing notification via notify.ForError
//   - Delivers the notification to the configured sink
//   - Writes the notification as the JSON response body
//
// Raw error text never reaches the client.

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"outreach/internal/notify"
)

// ErrorResponse is the JSON structure for API error responses.
type ErrorResponse struct {
	Error       string `json:"error"`
	Description string `json:"description,omitempty"`
	Severity    string `json:"severity"`
}

// respondError logs the technical error, notifies the sink, and writes the
// user-facing message.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	n := notify.ForError(err)

	slog.Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"request_id", middleware.GetReqID(r.Context()),
	)

	if s.sink != nil {
		s.sink.Notify(r.Context(), n)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:       n.Title,
		Description: n.Description,
		Severity:    string(n.Severity),
	})
}
