package web

// errors.go provides unified error response handling for the web layer.
//
// Every error is:
//   - logged with its technical detail and the request ID
//   - mapped through core.MapError to a message, a suggested action and a code
//   - answered as JSON for /api routes and JSON clients, otherwise as HTML
//
// Explorer actions render their error inline on the explorer page (see
// renderExplorer); everything else goes through respondError.

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/JonMunkholm/csvexplorer/internal/core"
	"github.com/JonMunkholm/csvexplorer/internal/logging"
	"github.com/JonMunkholm/csvexplorer/internal/web/templates"
)

// ErrorResponse is the JSON body of an error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// statusFor picks the HTTP status for an error returned by the core.
func statusFor(err error) int {
	var parseErr *core.ParseError
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, core.ErrFileTooLarge), errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, core.ErrTooManyUploads), errors.Is(err, core.ErrTooManySessions):
		return http.StatusServiceUnavailable
	case errors.Is(err, core.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, core.ErrNoTable):
		return http.StatusConflict
	case errors.Is(err, core.ErrNoFile), errors.Is(err, core.ErrInvalidInput),
		errors.Is(err, core.ErrInvalidOperator), errors.Is(err, core.ErrInvalidColumn):
		return http.StatusBadRequest
	case errors.As(err, &parseErr), errors.Is(err, core.ErrEmptyFile), errors.Is(err, core.ErrTooManyRows),
		errors.Is(err, core.ErrTypeMismatch), errors.Is(err, core.ErrUnknownColumn),
		errors.Is(err, core.ErrDuplicateColumn), errors.Is(err, core.ErrInsufficientData):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// logError records the technical error and returns what the user should see.
func logError(r *http.Request, err error, status int) core.UserMessage {
	msg := core.MapError(err)
	level := slog.LevelWarn
	if status >= 500 {
		level = slog.LevelError
	}
	logging.FromContext(r.Context()).Log(r.Context(), level, "request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
	)
	return msg
}

// respondError logs err and writes it as JSON or as a standalone error page.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, status int) {
	msg := logError(r, err, status)
	if wantsJSON(r) {
		respondErrorJSON(w, msg, status)
		return
	}
	s.render(w, r, status, "Error", templates.ErrorPage(errorInfo(msg)))
}

// rejectRateLimited is the rate limiter's reject handler.
func (s *Server) rejectRateLimited(w http.ResponseWriter, r *http.Request) {
	s.respondError(w, r, core.ErrRateLimited, http.StatusTooManyRequests)
}

func respondErrorJSON(w http.ResponseWriter, msg core.UserMessage, status int) {
	writeJSON(w, status, ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

func errorInfo(msg core.UserMessage) templates.ErrorInfo {
	return templates.ErrorInfo{Message: msg.Message, Action: msg.Action, Code: msg.Code}
}

// writeJSON encodes v with the given status. Encoding failures are logged
// since the header is already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}

// wantsJSON reports whether the client asked for JSON, or hit an /api route.
func wantsJSON(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
