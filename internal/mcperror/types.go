// Package mcperror defines error types, codes, and utilities for MCP and JSON-RPC.
// file: internal/mcperror/types.go
package mcperror

import (
	"github.com/cockroachdb/errors"
)

// Base sentinel errors used throughout the application
var (
	// Tool errors
	ErrToolNotFound = withProperty(
		errors.New("tool not found"),
		"category", CategoryTool,
	)

	// Method errors
	ErrMethodNotFound = withProperty(
		errors.New("method not found"),
		"category", CategoryRPC,
	)

	// Argument errors
	ErrInvalidArguments = withProperty(
		errors.New("invalid arguments"),
		"category", CategoryRPC,
	)

	// Session errors
	ErrNotInitialized = withProperty(
		errors.New("session not initialized"),
		"category", CategorySession,
	)

	// Timeout errors
	ErrTimeout = withProperty(
		errors.New("operation timed out"),
		"category", CategoryRPC,
	)
)

// NewToolNotFoundError creates a tool-not-found error carrying the tool name.
// Example usage:
//
//	return mcperror.NewToolNotFoundError("prompt_clinic_v2")
func NewToolNotFoundError(toolName string) error {
	return withProperty(
		withProperty(
			errors.Wrapf(ErrToolNotFound, "tool %q", toolName),
			"code", CodeToolNotFound,
		),
		"tool_name", toolName,
	)
}

// NewMethodNotFoundError creates a method-not-found error carrying the method name.
func NewMethodNotFoundError(method string) error {
	return withProperty(
		withProperty(
			errors.Wrapf(ErrMethodNotFound, "method %q", method),
			"code", CodeMethodNotFound,
		),
		"method", method,
	)
}

// NewInvalidArgumentsError creates a new invalid arguments error with context.
// Example usage:
//
//	properties := map[string]interface{}{"argument": "draft", "reason": "must not be blank"}
//	return mcperror.NewInvalidArgumentsError("draft must not be empty", properties)
func NewInvalidArgumentsError(message string, properties map[string]interface{}) error {
	err := withProperty(
		withProperty(
			errors.Wrapf(ErrInvalidArguments, "%s", message),
			"code", CodeInvalidArguments,
		),
		"category", CategoryRPC,
	)

	for key, value := range properties {
		err = withProperty(err, key, value)
	}

	return err
}

// NewNotInitializedError creates an error for requests arriving before the
// session handshake completed.
func NewNotInitializedError(method string) error {
	return withProperty(
		withProperty(
			errors.Wrapf(ErrNotInitialized, "method %q requires an initialized session", method),
			"code", CodeSessionState,
		),
		"method", method,
	)
}
