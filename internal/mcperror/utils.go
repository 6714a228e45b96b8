// Package mcperror defines error types, codes, and utilities for MCP and JSON-RPC.
// file: internal/mcperror/utils.go
package mcperror

import (
	"github.com/cockroachdb/errors"
)

// IsToolNotFoundError checks if the error is a tool not found error.
func IsToolNotFoundError(err error) bool {
	return errors.Is(err, ErrToolNotFound)
}

// IsInvalidArgumentsError checks if the error is an invalid arguments error.
// Example usage:
//
//	if mcperror.IsInvalidArgumentsError(err) {
//	    // Map to a -32602 protocol error.
//	}
func IsInvalidArgumentsError(err error) bool {
	return errors.Is(err, ErrInvalidArguments)
}

// IsNotInitializedError checks if the error is a session state error.
func IsNotInitializedError(err error) bool {
	return errors.Is(err, ErrNotInitialized)
}

// GetErrorCategory gets the error category from an error.
func GetErrorCategory(err error) string {
	if category, ok := tryGetProperty(err, "category"); ok {
		if cat, ok := category.(string); ok {
			return cat
		}
	}
	return ""
}

// GetErrorCode gets the JSON-RPC error code from an error.
// Example usage:
//
//	code := mcperror.GetErrorCode(err)
//	if code == mcperror.CodeInvalidArguments {
//	    // Handle invalid arguments case
//	}
func GetErrorCode(err error) int {
	if code, ok := tryGetProperty(err, "code"); ok {
		if c, ok := code.(int); ok {
			return c
		}
	}
	return CodeInternalError // Default to internal error
}

// GetErrorProperties extracts all properties from an error.
// This walks the chain of wrapped errors and collects all properties,
// giving precedence to outer errors.
func GetErrorProperties(err error) map[string]interface{} {
	return collectProperties(err)
}

// ErrorToMap converts an error to a map suitable for JSON-RPC error responses.
// Example usage:
//
//	errorMap := mcperror.ErrorToMap(err)
//	jsonBytes, _ := json.Marshal(errorMap)
func ErrorToMap(err error) map[string]interface{} {
	if err == nil {
		return nil
	}

	code := GetErrorCode(err)
	properties := GetErrorProperties(err)

	errorMap := map[string]interface{}{
		"code":    code,
		"message": UserFacingMessage(code),
	}

	// Add data field if we have properties to include.
	// Filter out internal properties that shouldn't be exposed.
	dataProps := make(map[string]interface{})
	for k, v := range properties {
		if k != "category" && k != "code" && k != "stack" &&
			!containsSensitiveKeyword(k) {
			dataProps[k] = v
		}
	}

	if len(dataProps) > 0 {
		errorMap["data"] = dataProps
	}

	return errorMap
}

// containsSensitiveKeyword checks if a key might contain sensitive information.
func containsSensitiveKeyword(key string) bool {
	sensitiveKeywords := []string{"token", "password", "secret", "key", "auth", "credential"}
	for _, keyword := range sensitiveKeywords {
		if key == keyword {
			return true
		}
	}
	return false
}
