// internal/api/response/response.go
package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/newthinker/quantview/internal/core"
)

// Meta contains response metadata.
type Meta struct {
	Timestamp time.Time `json:"timestamp"`
}

// SuccessResponse is the standard success response format.
type SuccessResponse struct {
	Data any  `json:"data"`
	Meta Meta `json:"meta"`
}

// ErrorDetail contains error information. The cause of a core.Error is never
// written to the client; callers log it.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// JSON writes a success response with data.
func JSON(w http.ResponseWriter, status int, data any) {
	resp := SuccessResponse{
		Data: data,
		Meta: Meta{Timestamp: time.Now().UTC()},
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

// Error writes an error response.
func Error(w http.ResponseWriter, status int, err error) {
	detail := ErrorDetail{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
	}

	var coreErr *core.Error
	if errors.As(err, &coreErr) {
		detail.Code = coreErr.Code
		detail.Message = coreErr.Message
	}

	resp := ErrorResponse{Error: detail}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

// statusByCode maps core error codes to HTTP statuses.
var statusByCode = map[string]int{
	core.ErrBacktestFailed.Code:   http.StatusBadGateway,
	core.ErrNoStrategy.Code:       http.StatusBadRequest,
	core.ErrInvalidDateRange.Code: http.StatusBadRequest,
	core.ErrInvalidRequest.Code:   http.StatusBadRequest,
	core.ErrBacktestBusy.Code:     http.StatusConflict,
	core.ErrSessionNotFound.Code:  http.StatusNotFound,
	core.ErrUploadType.Code:       http.StatusUnprocessableEntity,
	core.ErrExportTarget.Code:     http.StatusNotFound,
	core.ErrConfigInvalid.Code:    http.StatusBadRequest,
	core.ErrConfigMissing.Code:    http.StatusBadRequest,
}

// StatusFor returns the HTTP status for err, 500 for unknown errors.
func StatusFor(err error) int {
	var coreErr *core.Error
	if errors.As(err, &coreErr) {
		if status, ok := statusByCode[coreErr.Code]; ok {
			return status
		}
	}
	return http.StatusInternalServerError
}

// Fail writes an error response with the status derived from err.
func Fail(w http.ResponseWriter, err error) {
	Error(w, StatusFor(err), err)
}
