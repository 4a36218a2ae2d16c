package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/voxflow/voxflow/types"
)

// WriteJSON writes data as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteSuccess wraps data in the success envelope.
func WriteSuccess(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusOK, Response{
		Success:   true,
		Data:      data,
		Timestamp: time.Now(),
	})
}

// WriteError renders a structured engine error. Only the code, message
// and retryable flag go on the wire; the cause chain stays server-side.
func WriteError(w http.ResponseWriter, err *types.Error, logger *zap.Logger) {
	status := httpStatus(err.Code)

	if logger != nil {
		logger.Warn("request failed",
			zap.String("code", string(err.Code)),
			zap.String("message", err.Message),
			zap.Int("status", status),
			zap.Error(err.Cause),
		)
	}

	WriteJSON(w, status, Response{
		Success: false,
		Error: &ErrorInfo{
			Code:      err.Code,
			Message:   err.Message,
			Retryable: err.Retryable,
		},
		Timestamp: time.Now(),
	})
}

// httpStatus maps engine error codes to HTTP status codes.
func httpStatus(code types.ErrorCode) int {
	switch code {
	case types.ErrClassificationAmbiguous, types.ErrIncompleteIntent:
		return http.StatusUnprocessableEntity
	case types.ErrMissingParameter, types.ErrInvalidParameter,
		types.ErrUnknownCapability, types.ErrCyclicDependency,
		types.ErrInvalidSchema:
		return http.StatusBadRequest
	case types.ErrRateLimited:
		return http.StatusTooManyRequests
	case types.ErrStepTimedOut:
		return http.StatusGatewayTimeout
	case types.ErrCollaboratorError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// DecodeJSONBody decodes the request body into dst, rejecting unknown
// fields. On failure it writes the error response and returns it.
func DecodeJSONBody(w http.ResponseWriter, r *http.Request, dst any, logger *zap.Logger) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		apiErr := types.NewError(types.ErrInvalidParameter, "invalid JSON body").WithCause(err)
		WriteError(w, apiErr, logger)
		return apiErr
	}
	return nil
}

// RequireContentType checks for an application/json request body.
func RequireContentType(w http.ResponseWriter, r *http.Request, logger *zap.Logger) bool {
	ct := r.Header.Get("Content-Type")
	if ct != "application/json" && !strings.HasPrefix(ct, "application/json;") {
		WriteError(w, types.NewError(types.ErrInvalidParameter,
			"Content-Type must be application/json"), logger)
		return false
	}
	return true
}
