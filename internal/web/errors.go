package web

// errors.go provides unified error responses for the API.
//
// Every error is logged server-side with its technical detail and request
// id, then returned as ErrorResponse built from core.MapError so clients
// see a stable code and an action instead of internal messages.

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/geobuild/internal/core"
	"github.com/JonMunkholm/geobuild/internal/logging"
	"github.com/JonMunkholm/geobuild/internal/store"
)

// ErrorResponse represents the JSON structure for API error responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
	BuildID string `json:"build_id,omitempty"`
}

// statusFor picks the HTTP status for a fatal build error.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrTooManyBuilds):
		return http.StatusServiceUnavailable
	case errors.Is(err, store.ErrObjectExists):
		return http.StatusConflict
	case errors.Is(err, core.ErrPersistence):
		return http.StatusBadGateway
	case errors.Is(err, core.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrMalformedInput),
		errors.Is(err, core.ErrMissingColumn),
		errors.Is(err, core.ErrUnknownObjectType),
		errors.Is(err, core.ErrFileTooLarge),
		errors.Is(err, core.ErrOutsideDataDir),
		errors.Is(err, fs.ErrNotExist):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes its user-facing form with status.
func respondError(w http.ResponseWriter, r *http.Request, err error, status int) {
	msg := core.MapError(err)
	buildID := core.BuildIDFromContext(r.Context())

	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
		"build_id", buildID,
	)

	writeJSONStatus(w, status, ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
		BuildID: buildID,
	})
}

// writeError writes a plain error for request-shape problems that never
// reach core (bad JSON, missing parameters).
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSONStatus(w, status, ErrorResponse{
		Error:   message,
		Message: message,
		Code:    "REQ000",
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
