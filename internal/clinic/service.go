// file: internal/clinic/service.go
package clinic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/dkoosis/promptclinic/internal/logging"
	"github.com/dkoosis/promptclinic/internal/mcperror"
	"github.com/dkoosis/promptclinic/internal/mcptypes"
)

// ServiceName identifies this service for routing and logging.
const ServiceName = "clinic"

// ToolName is the single tool this service exposes.
const ToolName = "prompt_clinic"

// Service exposes the prompt_clinic tool over MCP. Argument validation
// failures are protocol errors (-32602), not tool-level IsError results,
// because they mean the caller's request is malformed rather than the
// upgrade itself failing.
type Service struct {
	logger      logging.Logger
	validator   mcptypes.ValidatorInterface
	initialized bool
}

// NewService creates the clinic service. The validator may be nil, in
// which case argument checking falls back to decode-time checks only.
func NewService(validator mcptypes.ValidatorInterface, logger logging.Logger) *Service {
	if logger == nil {
		logger = logging.GetNoopLogger()
	}
	return &Service{
		logger:    logger.WithField("service", ServiceName),
		validator: validator,
	}
}

// GetName returns the unique identifier for the service.
func (s *Service) GetName() string {
	return ServiceName
}

// Initialize marks the service ready. The upgrader itself is stateless.
func (s *Service) Initialize(_ context.Context) error {
	s.initialized = true
	s.logger.Info("Clinic service initialized.", "tool", ToolName)
	return nil
}

// Shutdown performs cleanup. The service holds no external resources.
func (s *Service) Shutdown() error {
	s.initialized = false
	return nil
}

// GetTools returns the prompt_clinic tool definition.
func (s *Service) GetTools() []mcptypes.Tool {
	return []mcptypes.Tool{
		{
			Name:        ToolName,
			Description: "Turn a rough prompt into a production-grade prompt spec: clear goal, constraints, output contract, and verification gates.",
			InputSchema: s.promptClinicInputSchema(),
			Annotations: &mcptypes.ToolAnnotations{Title: "Prompt Clinic", ReadOnlyHint: true, IdempotentHint: true},
		},
	}
}

// CallTool executes the prompt_clinic tool.
func (s *Service) CallTool(ctx context.Context, name string, args json.RawMessage) (*mcptypes.CallToolResult, error) {
	if !s.initialized {
		return s.simpleToolErrorResult("Clinic service is not initialized."), nil
	}
	if name != ToolName {
		return s.simpleToolErrorResult(fmt.Sprintf("Unknown clinic tool requested: %s.", name)), nil
	}

	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}

	if s.validator != nil && s.validator.IsInitialized() && s.validator.HasSchema("PromptClinicInput") {
		if err := s.validator.Validate(ctx, "PromptClinicInput", args); err != nil {
			s.logger.Warn("Tool arguments failed schema validation.", "tool", ToolName, "error", err)
			return nil, mcperror.NewInvalidArgumentsError(
				"prompt_clinic arguments failed validation",
				map[string]interface{}{"tool": ToolName, "detail": err.Error()},
			)
		}
	}

	var req UpgradeRequest
	if err := json.Unmarshal(args, &req); err != nil {
		return nil, mcperror.NewInvalidArgumentsError(
			"prompt_clinic arguments are not valid JSON for the expected shape",
			map[string]interface{}{"tool": ToolName, "detail": err.Error()},
		)
	}

	// The schema catches a missing or empty draft; a whitespace-only draft
	// passes minLength and is rejected here.
	if strings.TrimSpace(req.Draft) == "" {
		return nil, mcperror.NewInvalidArgumentsError(
			"draft must be a non-empty string",
			map[string]interface{}{"tool": ToolName, "argument": "draft"},
		)
	}

	result := Upgrade(req)

	payload, err := json.Marshal(result)
	if err != nil {
		s.logger.Error("Failed to marshal upgrade result.", "tool", ToolName, "error", err)
		return nil, errors.Wrap(err, "failed to marshal prompt_clinic result")
	}

	s.logger.Debug("Tool call succeeded.", "tool", ToolName, "riskCount", len(result.Risks))
	return s.successToolResult(string(payload)), nil
}

// promptClinicInputSchema describes the tool arguments, including the
// documented defaults for the optional fields.
func (s *Service) promptClinicInputSchema() json.RawMessage {
	schema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"draft": map[string]interface{}{
				"type":        "string",
				"minLength":   1,
				"description": "Rough prompt text",
			},
			"goal": map[string]interface{}{
				"type":        []string{"string", "null"},
				"description": "What you want the prompt to accomplish",
				"default":     DefaultGoal,
			},
			"constraints": map[string]interface{}{
				"type":        []string{"array", "null"},
				"items":       map[string]interface{}{"type": "string"},
				"description": "List of constraints for the prompt",
				"default":     DefaultConstraints,
			},
			"audience": map[string]interface{}{
				"type":        []string{"string", "null"},
				"description": "Who the prompt is for",
				"default":     DefaultAudience,
			},
		},
		"required": []string{"draft"},
	}
	schemaBytes, err := json.Marshal(schema)
	if err != nil {
		s.logger.Error("Failed to marshal tool input schema.", "tool", ToolName, "error", err)
		return json.RawMessage(`{"type":"object"}`)
	}
	return schemaBytes
}

// successToolResult wraps text in a standard success result.
func (s *Service) successToolResult(text string) *mcptypes.CallToolResult {
	return &mcptypes.CallToolResult{
		IsError: false,
		Content: []mcptypes.Content{mcptypes.NewTextContent(text)},
	}
}

// simpleToolErrorResult wraps an error message in a tool-level error result.
func (s *Service) simpleToolErrorResult(errorMessage string) *mcptypes.CallToolResult {
	return &mcptypes.CallToolResult{
		IsError: true,
		Content: []mcptypes.Content{mcptypes.NewTextContent(errorMessage)},
	}
}
