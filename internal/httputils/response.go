// Package httputils provides helpers for writing JSON and JSON-RPC error
// responses over HTTP, mapping protocol error codes to HTTP status codes.
// file: internal/httputils/response.go
package httputils

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/dkoosis/promptclinic/internal/logging"
	"github.com/dkoosis/promptclinic/internal/mcperror"
)

// ErrorResponse represents a JSON-RPC 2.0 error response envelope.
type ErrorResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	Error   ErrorObject `json:"error"`
	ID      interface{} `json:"id"` // string, number, or null.
}

// ErrorObject is the error member of a JSON-RPC 2.0 error response.
type ErrorObject struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// WriteJSONResponse writes data as a JSON body with a 200 status.
func WriteJSONResponse(w http.ResponseWriter, logger logging.Logger, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Failed to encode JSON response.",
			"error", fmt.Sprintf("%+v", errors.Wrap(err, "failed to encode JSON response")),
			"dataType", fmt.Sprintf("%T", data))
	}
}

// WriteErrorResponse writes a JSON-RPC 2.0 error response with an HTTP
// status derived from the protocol error code.
func WriteErrorResponse(w http.ResponseWriter, logger logging.Logger, code int, message string, data interface{}) {
	errResp := ErrorResponse{
		JSONRPC: "2.0",
		Error: ErrorObject{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatusFromErrorCode(code))

	if err := json.NewEncoder(w).Encode(errResp); err != nil {
		logger.Error("Failed to encode error response.",
			"error", fmt.Sprintf("%+v", errors.Wrap(err, "failed to encode error response")),
			"originalErrorCode", code,
			"originalErrorMessage", message)
		http.Error(w, fmt.Sprintf("Internal error: %v", err), http.StatusInternalServerError)
	}
}

// httpStatusFromErrorCode maps JSON-RPC error codes to HTTP status codes.
func httpStatusFromErrorCode(code int) int {
	switch code {
	case mcperror.CodeParseError, mcperror.CodeInvalidRequest, mcperror.CodeInvalidParams:
		return http.StatusBadRequest
	case mcperror.CodeMethodNotFound, mcperror.CodeToolNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
