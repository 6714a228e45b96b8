// Package mcp implements the Model Context Protocol server logic: the
// method registry, request handlers, and the session lifecycle.
// file: internal/mcp/handler.go
package mcp

import (
	"github.com/dkoosis/promptclinic/internal/config"
	"github.com/dkoosis/promptclinic/internal/logging"
	"github.com/dkoosis/promptclinic/internal/mcptypes"
	"github.com/dkoosis/promptclinic/internal/services"
)

// serverVersion is reported in the initialize response.
// TODO: wire from build flags once release tagging starts.
const serverVersion = "0.1.0"

// Handler holds dependencies for MCP method handlers and routes tool calls
// to the registered services.
type Handler struct {
	logger   logging.Logger
	config   *config.Config
	services []services.Service
	// toolIndex maps each advertised tool name to the service that owns it.
	toolIndex map[string]services.Service
}

// NewHandler creates a Handler routing to the given services.
func NewHandler(cfg *config.Config, logger logging.Logger, svcs ...services.Service) *Handler {
	if logger == nil {
		logger = logging.GetNoopLogger()
	}
	h := &Handler{
		logger:    logger.WithField("component", "mcp_handler"),
		config:    cfg,
		services:  svcs,
		toolIndex: make(map[string]services.Service),
	}
	for _, svc := range svcs {
		for _, tool := range svc.GetTools() {
			if existing, dup := h.toolIndex[tool.Name]; dup {
				h.logger.Warn("Duplicate tool name across services; keeping first registration.",
					"tool", tool.Name, "service", svc.GetName(), "registeredTo", existing.GetName())
				continue
			}
			h.toolIndex[tool.Name] = svc
		}
	}
	return h
}

// allTools aggregates tool definitions across all registered services.
func (h *Handler) allTools() []mcptypes.Tool {
	var tools []mcptypes.Tool
	for _, svc := range h.services {
		tools = append(tools, svc.GetTools()...)
	}
	return tools
}
