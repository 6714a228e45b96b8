// Package services defines the common interface that tool-providing
// services implement, allowing the core MCP server to route requests to
// them generically.
// file: internal/services/service.go
package services

import (
	"context"
	"encoding/json"

	"github.com/dkoosis/promptclinic/internal/mcptypes"
)

// Service is the standard interface for a backend service that exposes
// tools over MCP. Configuration specific to a service is handled at
// construction time.
type Service interface {
	// GetName returns the unique, lowercase identifier for the service.
	// It is used for routing and logging.
	GetName() string

	// GetTools returns the MCP Tool definitions provided by this service.
	GetTools() []mcptypes.Tool

	// CallTool executes a tool provided by this service. It returns an
	// error only when *handling* the call fails; failures within the
	// tool's own logic are reported inside the returned CallToolResult
	// with IsError=true.
	CallTool(ctx context.Context, name string, args json.RawMessage) (*mcptypes.CallToolResult, error)

	// Initialize performs setup after instantiation. It is called once
	// before the server routes any requests to the service.
	Initialize(ctx context.Context) error

	// Shutdown performs cleanup before the application exits.
	Shutdown() error
}
