// Package mcperror defines error types, codes, and utilities for MCP and JSON-RPC.
// file: internal/mcperror/codes.go
package mcperror

// Categories for grouping similar errors.
const (
	CategoryTool    = "tool"    // Tool-related errors
	CategoryConfig  = "config"  // Configuration-related errors
	CategoryRPC     = "rpc"     // JSON-RPC-related errors
	CategorySession = "session" // Session lifecycle errors
)

// Error codes aligned with JSON-RPC 2.0 specification.
const (
	// Standard JSON-RPC 2.0 error codes (-32768 to -32000 reserved).
	CodeParseError     = -32700 // Invalid JSON received
	CodeInvalidRequest = -32600 // Invalid request object
	CodeMethodNotFound = -32601 // Method not found
	CodeInvalidParams  = -32602 // Invalid method parameters
	CodeInternalError  = -32603 // Internal JSON-RPC error

	// Custom application error codes (-32000 to -32099 for server errors).
	CodeToolNotFound     = -32001 // Requested tool not found
	CodeInvalidArguments = -32002 // Invalid arguments provided
	CodeSessionState     = -32003 // Request not allowed in current session state
	CodeTimeoutError     = -32005 // Operation timed out
)

// UserFacingMessage returns a user-friendly message based on error code.
func UserFacingMessage(code int) string {
	switch code {
	case CodeParseError:
		return "Failed to parse JSON request"
	case CodeInvalidRequest:
		return "Invalid request format"
	case CodeMethodNotFound:
		return "Method not found"
	case CodeInvalidParams:
		return "Invalid method parameters"
	case CodeToolNotFound:
		return "Requested tool not found"
	case CodeInvalidArguments:
		return "Invalid arguments provided"
	case CodeSessionState:
		return "Request not allowed before initialization"
	case CodeTimeoutError:
		return "Request timed out"
	default:
		return "Internal server error"
	}
}
