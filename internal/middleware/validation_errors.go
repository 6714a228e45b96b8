// file: internal/middleware/validation_errors.go
package middleware

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/dkoosis/promptclinic/internal/schema"
	"github.com/dkoosis/promptclinic/internal/transport"
)

// createParseErrorResponse creates a standard JSON-RPC -32700 error response.
func createParseErrorResponse(id interface{}, parseErr error) ([]byte, error) {
	data := map[string]interface{}{
		"details": "The received message could not be parsed as valid JSON.",
	}
	if parseErr != nil {
		data["cause"] = parseErr.Error()
	}
	return createGenericErrorResponseWithData(id, transport.JSONRPCParseError, "Parse error.", data)
}

// createInvalidRequestErrorResponse creates a standard JSON-RPC -32600 error response.
func createInvalidRequestErrorResponse(id interface{}, requestErr error) ([]byte, error) {
	errMsg := requestErr.Error()
	data := map[string]interface{}{"details": errMsg}
	switch {
	case strings.Contains(errMsg, "invalid type for id"):
		data["reason"] = "Invalid JSON-RPC ID type"
	case strings.Contains(errMsg, "failed to parse id"):
		data["reason"] = "Malformed JSON in ID field"
	case strings.Contains(errMsg, "unable to identify message type"):
		data["reason"] = "Message structure doesn't match request, notification, or response"
	}
	return createGenericErrorResponseWithData(id, transport.JSONRPCInvalidRequest, "Invalid Request.", data)
}

// createValidationErrorResponse creates a JSON-RPC error response (-32600 or
// -32602) from a schema.ValidationError. Violations inside the params object
// map to Invalid params.
func createValidationErrorResponse(id interface{}, validationErr error) ([]byte, error) {
	code := transport.JSONRPCInvalidRequest
	message := "Invalid Request."
	var errorData interface{} = map[string]interface{}{"details": validationErr.Error()}

	var schemaValErr *schema.ValidationError
	if errors.As(validationErr, &schemaValErr) {
		errorData = map[string]interface{}{
			"details":      schemaValErr.Message,
			"instancePath": schemaValErr.InstancePath,
			"schemaPath":   schemaValErr.SchemaPath,
		}
		if schemaValErr.InstancePath != "" && (strings.Contains(schemaValErr.InstancePath, "/params") || strings.HasPrefix(schemaValErr.InstancePath, "params")) {
			code = transport.JSONRPCInvalidParams
			message = "Invalid params."
		}
	}

	return createGenericErrorResponseWithData(id, code, message, errorData)
}

// createInternalErrorResponse is used for errors during processing itself,
// not validation failures. Internal detail stays server-side.
func createInternalErrorResponse(id interface{}) ([]byte, error) {
	data := map[string]interface{}{"details": "An internal server error occurred."}
	return createGenericErrorResponseWithData(id, transport.JSONRPCInternalError, "Internal error.", data)
}

// createGenericErrorResponseWithData creates a standard JSON-RPC error response.
func createGenericErrorResponseWithData(id interface{}, code int, message string, data interface{}) ([]byte, error) {
	if id == nil {
		id = json.RawMessage("null")
	}
	response := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      id,
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
	}
	if data != nil {
		response["error"].(map[string]interface{})["data"] = data
	}
	responseBytes, err := json.Marshal(response)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal error response")
	}
	return responseBytes, nil
}

// isErrorResponse checks if a message looks like a JSON-RPC error response
// without a full parse.
func isErrorResponse(message []byte) bool {
	return bytes.Contains(message, []byte(`"error":`)) && !bytes.Contains(message, []byte(`"result":`))
}

// isSuccessResponse checks if a message looks like a JSON-RPC success response.
func isSuccessResponse(message []byte) bool {
	return bytes.Contains(message, []byte(`"result":`)) && !bytes.Contains(message, []byte(`"error":`))
}

// calculatePreview generates a short, safe preview of message bytes for logs.
func calculatePreview(data []byte) string {
	const maxPreviewLen = 100
	previewLen := len(data)
	suffix := ""
	if previewLen > maxPreviewLen {
		previewLen = maxPreviewLen
		suffix = "..."
	}
	previewBytes := bytes.Map(func(r rune) rune {
		if r < ' ' || r == 127 {
			return '.'
		}
		return r
	}, data[:previewLen])
	return string(previewBytes) + suffix
}
