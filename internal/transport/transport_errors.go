// Package transport defines interfaces and implementations for sending and receiving MCP messages.
// This file specifically defines custom error types and codes used within the transport layer,
// providing structured error information beyond standard Go errors.
package transport

// file: internal/transport/transport_errors.go

import (
	"fmt"
	"io"
	"time"

	"github.com/cockroachdb/errors"
)

// ErrorCode defines specific numeric codes for transport-layer errors.
// These help categorize errors beyond the standard Go error interface.
type ErrorCode int

// Defined error codes for the transport layer.
const (
	// ErrGeneric represents a general or unspecified transport error.
	ErrGeneric ErrorCode = iota + 1000 // Start custom codes above common HTTP/RPC ranges.
	// ErrInvalidMessage indicates a message violated framing or basic structural rules.
	ErrInvalidMessage
	// ErrMessageTooLarge signifies a message exceeded the defined MaxMessageSize.
	ErrMessageTooLarge
	// ErrTransportClosed indicates an operation was attempted on a closed transport.
	ErrTransportClosed
	// ErrReadTimeout signifies a timeout during a read operation.
	ErrReadTimeout
	// ErrWriteTimeout signifies a timeout during a write operation.
	ErrWriteTimeout
	// ErrJSONParseFailed indicates a failure during the initial JSON syntax parsing.
	ErrJSONParseFailed
)

// ErrorType categorizes transport errors for higher-level handling or filtering.
type ErrorType int

// Defined error types for transport errors.
const (
	// ErrorTypeGeneric represents a general or unspecified transport error.
	ErrorTypeGeneric ErrorType = iota
	// ErrorTypeMessageSize indicates an error due to excessive message size.
	ErrorTypeMessageSize
	// ErrorTypeParse indicates a JSON parsing error.
	ErrorTypeParse
	// ErrorTypeTimeout indicates a timeout during a read or write operation.
	ErrorTypeTimeout
	// ErrorTypeClosed indicates an operation was attempted on a closed transport.
	ErrorTypeClosed
)

// Error represents a transport-level error, providing structured details beyond the basic error message.
type Error struct {
	// Type categorizes the error (e.g., Timeout, Closed).
	Type ErrorType
	// Code provides a specific numeric identifier for the error condition.
	Code ErrorCode
	// Message is a human-readable description of the error.
	Message string
	// Cause holds the underlying error that triggered this transport error, if any.
	Cause error
	// Context stores additional key-value pairs relevant to the error (e.g., message preview, size).
	Context map[string]interface{}

	// Size holds the actual message size for MessageSize errors.
	Size int
	// MaxSize holds the configured maximum size for MessageSize errors.
	MaxSize int
}

// Error implements the standard Go error interface, providing a formatted error string.
func (e *Error) Error() string {
	base := fmt.Sprintf("TransportError [%d] %s", e.Code, e.Message)
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", base, e.Cause)
	}
	return base
}

// Unwrap returns the underlying cause of the error, allowing for error inspection with errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithContext adds or updates a key-value pair in the error's context map.
// Returns the modified error pointer for chaining.
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// Is implements error comparison logic for use with errors.Is.
// It checks if the target error is a transport.Error with the same Type and Code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Code == t.Code
}

// NewError creates a basic transport error with a generic type.
// The cause error is wrapped using errors.WithStack to preserve stack trace information.
func NewError(code ErrorCode, message string, cause error) *Error {
	var wrappedCause error
	if cause != nil {
		wrappedCause = errors.WithStack(cause)
	}
	return &Error{
		Type:    ErrorTypeGeneric,
		Code:    code,
		Message: message,
		Cause:   wrappedCause,
		Context: map[string]interface{}{
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		},
	}
}

// NewMessageSizeError creates a specific transport error for messages exceeding MaxMessageSize.
func NewMessageSizeError(size, maxSize int, fragment []byte) *Error {
	err := NewError(
		ErrMessageTooLarge,
		fmt.Sprintf("message size %d exceeds maximum allowed size %d", size, maxSize),
		nil,
	)
	err.Type = ErrorTypeMessageSize
	err.Size = size
	err.MaxSize = maxSize

	if len(fragment) > 0 {
		err = err.WithContext("messagePreview", string(fragment))
	}

	return err
}

// NewParseError creates a specific transport error for failures during initial JSON syntax parsing.
// Includes a preview of the invalid message.
func NewParseError(message []byte, cause error) *Error {
	preview := message
	if len(preview) > 100 {
		preview = preview[:100]
	}

	err := NewError(
		ErrJSONParseFailed,
		"failed to parse JSON message syntax",
		cause,
	)
	err.Type = ErrorTypeParse
	err = err.WithContext("messagePreview", string(preview))
	err = err.WithContext("messageLength", len(message))

	return err
}

// NewTimeoutError creates a specific transport error for read or write timeouts.
func NewTimeoutError(operation string, cause error) *Error {
	code := ErrReadTimeout
	if operation == "write" {
		code = ErrWriteTimeout
	}
	err := NewError(
		code,
		fmt.Sprintf("%s operation timed out", operation),
		cause,
	)
	err.Type = ErrorTypeTimeout
	err = err.WithContext("operation", operation)

	return err
}

// NewClosedError creates a specific transport error for operations attempted on a closed transport.
func NewClosedError(operation string) *Error {
	err := NewError(
		ErrTransportClosed,
		fmt.Sprintf("cannot perform %s on closed transport", operation),
		nil,
	)
	err.Type = ErrorTypeClosed
	err = err.WithContext("operation", operation)

	return err
}

// --- JSON-RPC 2.0 Error Code Constants ---
// Standard codes used when mapping transport errors to JSON-RPC responses.
const (
	// JSONRPCParseError indicates invalid JSON was received by the server.
	JSONRPCParseError = -32700
	// JSONRPCInvalidRequest indicates the JSON sent is not a valid Request object.
	JSONRPCInvalidRequest = -32600
	// JSONRPCMethodNotFound indicates the method does not exist / is not available.
	JSONRPCMethodNotFound = -32601
	// JSONRPCInvalidParams indicates invalid method parameter(s).
	JSONRPCInvalidParams = -32602
	// JSONRPCInternalError indicates an internal JSON-RPC error.
	JSONRPCInternalError = -32603
)

// MapErrorToJSONRPC maps internal transport errors to JSON-RPC 2.0 error codes,
// messages, and an optional data payload suitable for a JSON-RPC error response.
func MapErrorToJSONRPC(err error) (code int, message string, data map[string]interface{}) {
	data = make(map[string]interface{})

	var transportErr *Error
	if errors.As(err, &transportErr) {
		data["internalCode"] = transportErr.Code

		switch transportErr.Code {
		case ErrJSONParseFailed:
			code = JSONRPCParseError
			message = "Parse error"
			data["detail"] = "Invalid JSON received."
		case ErrInvalidMessage:
			code = JSONRPCInvalidRequest
			message = "Invalid Request"
			data["detail"] = "Message format is invalid or does not conform to transport expectations."
		case ErrMessageTooLarge:
			code = JSONRPCInvalidRequest
			message = "Invalid Request"
			data["detail"] = fmt.Sprintf("Message size (%d bytes) exceeds limit (%d bytes).", transportErr.Size, transportErr.MaxSize)
		case ErrTransportClosed, ErrReadTimeout, ErrWriteTimeout:
			code = JSONRPCInternalError
			message = "Internal error"
			data["detail"] = "Transport communication error occurred."
		default:
			code = JSONRPCInternalError
			message = "Internal error"
			data["detail"] = "An unspecified transport error occurred."
		}

		// Selectively add context, ensuring no sensitive info is leaked.
		if ctx := transportErr.Context; ctx != nil {
			if preview, ok := ctx["messagePreview"].(string); ok {
				data["messagePreview"] = preview
			}
			if length, ok := ctx["messageLength"].(int); ok {
				data["messageLength"] = length
			}
		}
	} else {
		code = JSONRPCInternalError
		message = "Internal error"
		data["detail"] = "An unexpected internal server error occurred."
	}

	return code, message, data
}

// IsClosedError checks if an error (or its cause chain) signifies a closed transport condition.
func IsClosedError(err error) bool {
	var transportErr *Error
	if errors.As(err, &transportErr) {
		return transportErr.Type == ErrorTypeClosed
	}
	if errors.Is(err, io.EOF) {
		return true
	}
	return false
}
