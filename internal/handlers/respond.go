package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/identikit/apiserver/internal/apperr"
)

// successResponse is the wire shape of every successful response.
type successResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// errorResponse is the wire shape of every failed response.
type errorResponse struct {
	Success bool              `json:"success"`
	Status  string            `json:"status"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`

	// Debug carries the cause chain outside production.
	Debug string `json:"debug,omitempty"`
}

// Responder renders classified errors and success envelopes with
// environment-dependent verbosity.
type Responder struct {
	production bool
	logger     *slog.Logger
}

func NewResponder(production bool, logger *slog.Logger) *Responder {
	return &Responder{production: production, logger: logger}
}

// Success writes a success envelope with the given status.
func (rs *Responder) Success(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, successResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Error classifies err and writes the matching error envelope. Operational
// errors surface their message and details; non-operational errors are
// logged with request context and, in production, flattened to a generic
// message so internals never leak.
func (rs *Responder) Error(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperr.From(err)
	status := appErr.Status()

	if !appErr.Operational() {
		attrs := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"error", appErr.Error(),
		}
		if userID, idErr := userIDFromContext(r.Context()); idErr == nil {
			attrs = append(attrs, "user_id", userID)
		}
		rs.logger.Error("unhandled error", attrs...)
	}

	body := errorResponse{
		Success: false,
		Status:  apperr.StatusText(status),
		Message: appErr.Message,
		Details: appErr.Details,
	}

	if rs.production {
		if !appErr.Operational() {
			body.Message = "Something went wrong"
			body.Details = nil
		}
	} else {
		body.Debug = appErr.Error()
	}

	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}
