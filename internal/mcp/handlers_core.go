// file: internal/mcp/handlers_core.go
package mcp

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/dkoosis/promptclinic/internal/mcptypes"
)

// protocolVersion is the MCP revision this server speaks. The initialize
// response always reports this version regardless of what the client asks
// for; per the MCP spec the client may disconnect on a mismatch.
const protocolVersion = "2024-11-05"

// handleInitialize handles the initialize request: it reports the server's
// identity, protocol version, and capabilities.
func (h *Handler) handleInitialize(_ context.Context, params json.RawMessage) (json.RawMessage, error) {
	var req mcptypes.InitializeRequest
	if len(params) > 0 {
		if err := json.Unmarshal(params, &req); err != nil {
			return nil, errors.Wrap(err, "invalid params for initialize")
		}
	}

	h.logger.Info("Handling initialize request.",
		"clientRequestedVersion", req.ProtocolVersion,
		"clientName", req.ClientInfo.Name)

	if req.ProtocolVersion != "" && req.ProtocolVersion != protocolVersion {
		h.logger.Warn("Protocol version mismatch.",
			"clientRequested", req.ProtocolVersion,
			"serverRespondingWith", protocolVersion)
	}

	res := mcptypes.InitializeResult{
		ProtocolVersion: protocolVersion,
		ServerInfo: &mcptypes.Implementation{
			Name:    h.config.Server.Name,
			Version: serverVersion,
		},
		Capabilities: mcptypes.ServerCapabilities{
			Tools:   &mcptypes.ToolsCapability{ListChanged: false},
			Logging: &mcptypes.LoggingCapability{},
		},
		Instructions: "Use the prompt_clinic tool to turn a rough prompt draft into a production-grade prompt spec with a checklist and risk warnings.",
	}

	resultBytes, err := json.Marshal(res)
	if err != nil {
		h.logger.Error("Failed to marshal InitializeResult.", "error", err)
		return nil, errors.Wrap(err, "failed to marshal InitializeResult")
	}
	return resultBytes, nil
}

// handlePing responds to liveness checks. An empty object is a valid response.
func (h *Handler) handlePing(_ context.Context, _ json.RawMessage) (json.RawMessage, error) {
	h.logger.Debug("Handling ping request.")
	resultBytes, err := json.Marshal(map[string]interface{}{})
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal ping response")
	}
	return resultBytes, nil
}
