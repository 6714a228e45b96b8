// file: internal/mcp/handlers_tools.go
package mcp

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/dkoosis/promptclinic/internal/mcperror"
	"github.com/dkoosis/promptclinic/internal/mcptypes"
)

// handleToolsList returns the tool definitions of every registered service.
func (h *Handler) handleToolsList(_ context.Context, _ json.RawMessage) (json.RawMessage, error) {
	tools := h.allTools()
	result := mcptypes.ListToolsResult{Tools: tools}

	resultBytes, err := json.Marshal(result)
	if err != nil {
		h.logger.Error("Failed to marshal ListToolsResult.", "error", err)
		return nil, errors.Wrap(err, "failed to marshal ListToolsResult")
	}

	h.logger.Debug("Handled tools/list request.", "toolsCount", len(tools))
	return resultBytes, nil
}

// handleToolCall routes a tools/call request to the service that owns the
// named tool. An unknown tool name is a tool-level error (IsError=true);
// argument validation failures propagate as protocol errors.
func (h *Handler) handleToolCall(ctx context.Context, params json.RawMessage) (json.RawMessage, error) {
	var req mcptypes.CallToolRequest
	if err := json.Unmarshal(params, &req); err != nil {
		return nil, errors.Wrap(err, "invalid params structure for tools/call")
	}

	h.logger.Info("Handling tools/call request.", "toolName", req.Name)

	var callResult *mcptypes.CallToolResult
	if svc, ok := h.toolIndex[req.Name]; ok {
		var err error
		callResult, err = svc.CallTool(ctx, req.Name, req.Arguments)
		if err != nil {
			// Invalid arguments and other handler failures surface as
			// JSON-RPC errors, built by the server loop.
			return nil, err
		}
	} else {
		notFound := mcperror.NewToolNotFoundError(req.Name)
		h.logger.Warn("Tool not found during tools/call.", "toolName", req.Name, "error", notFound)
		callResult = &mcptypes.CallToolResult{
			IsError: true,
			Content: []mcptypes.Content{
				mcptypes.NewTextContent("Error: Tool not found: " + req.Name),
			},
		}
	}

	resultBytes, marshalErr := json.Marshal(callResult)
	if marshalErr != nil {
		h.logger.Error("Failed to marshal CallToolResult.", "toolName", req.Name, "error", marshalErr)
		return nil, errors.Wrap(marshalErr, "failed to marshal CallToolResult")
	}
	return resultBytes, nil
}
