// Package mcptypes defines shared types and interfaces for the MCP (Model Context Protocol)
// server and middleware components. It acts as a neutral package that can be imported by
// both mcp and middleware packages, preventing circular dependencies between them.
// file: internal/mcptypes/interfaces.go
package mcptypes

import (
	"context"
)

// MessageHandler defines the function signature for processing a single MCP message.
// Implementations receive the message bytes and should return response bytes or an error.
// This type is used as the core processing unit in the server and middleware chain.
type MessageHandler func(ctx context.Context, message []byte) ([]byte, error)

// MiddlewareFunc defines the signature for middleware functions.
// A middleware function takes the next MessageHandler in the chain and returns
// a new MessageHandler that typically performs some action before or after
// calling the next handler. This allows for composing layers of functionality.
type MiddlewareFunc func(handler MessageHandler) MessageHandler

// Chain defines an interface for building and managing a sequence of middleware functions
// that culminate in a final MessageHandler.
type Chain interface {
	// Use adds a MiddlewareFunc to the chain. Middlewares are typically executed
	// in the reverse order they are added.
	Use(middleware MiddlewareFunc) Chain

	// Handler finalizes the chain and returns the composed MessageHandler.
	// Once called, the chain should generally not be modified further.
	Handler() MessageHandler
}

// ValidatorInterface defines the core methods required for validating messages
// against a loaded schema. This allows different schema validation implementations
// to be used interchangeably by the middleware.
type ValidatorInterface interface {
	// Validate checks if the provided data conforms to the schema definition
	// associated with the given messageType (e.g., MCP method name).
	Validate(ctx context.Context, messageType string, data []byte) error
	// HasSchema checks if a compiled schema definition exists for the given name.
	HasSchema(name string) bool
	// IsInitialized returns true if the validator has successfully loaded and
	// compiled the necessary schema definitions.
	IsInitialized() bool
}
