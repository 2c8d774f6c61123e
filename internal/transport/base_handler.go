package transport

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi"

	errors "github.com/frahmantamala/time2pay/internal"
	"github.com/frahmantamala/time2pay/pkg/logger"
)

// multipartMemory bounds what ParseMultipartForm keeps in memory; the rest
// spills to temp files.
const multipartMemory = 8 << 20

// BaseHandler provides common functionality for HTTP handlers
type BaseHandler struct {
	Logger *slog.Logger
}

// SuccessResponse is the envelope written for successful mutations.
type SuccessResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// NewBaseHandler creates a base handler with logger
func NewBaseHandler(lg *slog.Logger) *BaseHandler {
	if lg == nil {
		lg = logger.LoggerWrapper()
		if lg == nil {
			lg = slog.Default()
		}
	}
	return &BaseHandler{Logger: lg}
}

// WriteJSON writes a JSON response
func (h *BaseHandler) WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.Logger.Error("failed to encode JSON response", "error", err)
	}
}

// WriteSuccess writes the mutation envelope.
func (h *BaseHandler) WriteSuccess(w http.ResponseWriter, status int, message string, data interface{}) {
	h.WriteJSON(w, status, SuccessResponse{Success: true, Message: message, Data: data})
}

// WriteError writes an error response
func (h *BaseHandler) WriteError(w http.ResponseWriter, status int, message string) {
	h.Logger.Error("http error", "status", status, "message", message)

	var appErr *errors.AppError
	switch status {
	case http.StatusUnauthorized:
		appErr = errors.NewUnauthorizedError(message, errors.ErrCodeAuthenticationRequired)
	case http.StatusForbidden:
		appErr = errors.NewForbiddenError(message, errors.ErrCodeRoleNotPermitted)
	case http.StatusNotFound:
		appErr = errors.NewNotFoundError(message, errors.ErrCodeClaimNotFound)
	case http.StatusBadRequest:
		appErr = errors.NewValidationError(message, errors.ErrCodeValidationFailed)
	default:
		appErr = errors.NewInternalError(message, nil)
		appErr.StatusCode = status
	}

	code, body := appErr.ToHTTPResponse()
	h.WriteJSON(w, code, body)
}

// HandleServiceError maps domain errors to their HTTP shape. Anything that is
// not an AppError is reported as a persistence failure without leaking the
// cause.
func (h *BaseHandler) HandleServiceError(w http.ResponseWriter, err error) {
	appErr, ok := errors.IsAppError(err)
	if !ok {
		h.Logger.Error("unhandled service error", "error", err)
		appErr = errors.NewInternalError("Something went wrong, please try again.", err)
	}

	status, body := appErr.ToHTTPResponse()
	if status >= http.StatusInternalServerError {
		h.Logger.Error("service failure", "code", appErr.Code, "error", appErr.Error())
	}
	h.WriteJSON(w, status, body)
}

// ExtractTokenFromHeader extracts Bearer token from Authorization header
func (h *BaseHandler) ExtractTokenFromHeader(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	if len(authHeader) < 7 || !strings.EqualFold(authHeader[:7], "Bearer ") {
		return ""
	}

	return strings.TrimSpace(authHeader[7:])
}

// ParseIDParam reads a positive int64 chi URL parameter.
func (h *BaseHandler) ParseIDParam(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.NewValidationError(fmt.Sprintf("invalid %s", name), errors.ErrCodeValidationFailed)
	}
	return id, nil
}

// DecodeJSON decodes an optional JSON body. An empty body leaves dst untouched.
func (h *BaseHandler) DecodeJSON(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && err != io.EOF {
		return errors.NewValidationError("invalid request body", errors.ErrCodeValidationFailed)
	}
	return nil
}

// FormOverhead is the room a multipart body gets on top of its file for
// boundaries, part headers and text fields.
const FormOverhead int64 = 1 << 20

// FormFile returns the named upload of a multipart request, or nil when the
// field is absent. With maxBody > 0 the body is capped before parsing and an
// oversize request fails with *http.MaxBytesError, untouched, so the caller
// can word the limit.
func (h *BaseHandler) FormFile(w http.ResponseWriter, r *http.Request, field string, maxBody int64) (multipart.File, *multipart.FileHeader, error) {
	if r.MultipartForm == nil {
		if maxBody > 0 {
			if r.ContentLength > maxBody {
				return nil, nil, &http.MaxBytesError{Limit: maxBody}
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBody)
		}
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return nil, nil, tooLarge
			}
			return nil, nil, errors.NewValidationError("invalid multipart form", errors.ErrCodeValidationFailed)
		}
	}
	file, header, err := r.FormFile(field)
	if err == http.ErrMissingFile {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, errors.NewValidationError("invalid multipart form", errors.ErrCodeValidationFailed)
	}
	return file, header, nil
}
