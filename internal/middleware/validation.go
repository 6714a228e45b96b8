// file: internal/middleware/validation.go
package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/dkoosis/promptclinic/internal/logging"
	"github.com/dkoosis/promptclinic/internal/transport"
)

// SchemaValidatorInterface defines what the validation middleware needs
// from a schema validator.
type SchemaValidatorInterface interface {
	Validate(ctx context.Context, messageType string, data []byte) error
	HasSchema(name string) bool
	IsInitialized() bool
}

// ValidationOptions configures the behavior of the validation middleware.
type ValidationOptions struct {
	// Enabled turns validation on or off entirely.
	Enabled bool
	// SkipTypes lists message types that bypass schema validation.
	SkipTypes map[string]bool
	// StrictMode rejects invalid incoming messages with a JSON-RPC error.
	// When false, failures are logged and processing continues.
	StrictMode bool
	// MeasurePerformance logs per-message validation timing.
	MeasurePerformance bool
	// ValidateOutgoing also checks responses before they are written.
	ValidateOutgoing bool
	// StrictOutgoing fails the request when an outgoing response is invalid.
	StrictOutgoing bool
}

type contextKey string

const contextKeyRequestMethod contextKey = "requestMethod"

// DefaultValidationOptions returns the standard validation settings.
func DefaultValidationOptions() ValidationOptions {
	return ValidationOptions{
		Enabled:            true,
		SkipTypes:          map[string]bool{"ping": true},
		StrictMode:         true,
		MeasurePerformance: false,
		ValidateOutgoing:   true,
		StrictOutgoing:     false,
	}
}

// ValidationMiddleware validates incoming messages against the message
// schema before they reach the method handlers, and optionally validates
// outgoing responses.
type ValidationMiddleware struct {
	validator SchemaValidatorInterface
	options   ValidationOptions
	next      transport.MessageHandler
	logger    logging.Logger
}

// NewValidationMiddleware creates a ValidationMiddleware.
func NewValidationMiddleware(validator SchemaValidatorInterface, options ValidationOptions, logger logging.Logger) *ValidationMiddleware {
	if logger == nil {
		logger = logging.GetNoopLogger()
	}
	return &ValidationMiddleware{
		validator: validator,
		options:   options,
		logger:    logger.WithField("middleware", "validation"),
	}
}

// SetNext sets the handler invoked after validation passes.
func (m *ValidationMiddleware) SetNext(next transport.MessageHandler) {
	m.next = next
}

// HandleMessage orchestrates the validation and message handling flow.
func (m *ValidationMiddleware) HandleMessage(ctx context.Context, message []byte) ([]byte, error) {
	if !m.options.Enabled || !m.validator.IsInitialized() {
		m.logger.Debug("Validation disabled or validator not initialized, skipping.")
		if m.next == nil {
			return nil, errors.New("validation middleware has no next handler configured")
		}
		return m.next(ctx, message)
	}

	var startTime time.Time
	if m.options.MeasurePerformance {
		startTime = time.Now()
	}

	errorResponseBytes, msgType, reqID, internalError := m.validateIncomingMessage(ctx, message, startTime)
	if internalError != nil {
		m.logger.Error("Internal error during incoming validation.", "error", internalError)
		respBytes, creationErr := createInternalErrorResponse(reqID)
		if creationErr != nil {
			return nil, creationErr
		}
		return respBytes, nil
	}
	if errorResponseBytes != nil {
		return errorResponseBytes, nil
	}

	// Record the request method so outgoing validation can pick the right schema.
	ctxWithMsgType := context.WithValue(ctx, contextKeyRequestMethod, msgType)
	if m.next == nil {
		return nil, errors.New("validation middleware reached end of chain without a final handler")
	}
	responseBytes, nextErr := m.next(ctxWithMsgType, message)

	if nextErr != nil {
		// The server loop turns handler errors into JSON-RPC error responses.
		return nil, nextErr
	}

	if responseBytes != nil && m.options.ValidateOutgoing {
		requestMethod, _ := ctxWithMsgType.Value(contextKeyRequestMethod).(string)
		if err := m.validateOutgoingResponse(ctx, requestMethod, responseBytes); err != nil {
			return nil, errors.Wrap(err, "outgoing response validation failed")
		}
	}

	return responseBytes, nil
}

// validateIncomingMessage handles the validation steps for an incoming message.
// It returns a pre-formatted JSON-RPC error response when validation fails
// strictly, the identified message type, the request ID, and any error that
// occurred during validation itself.
func (m *ValidationMiddleware) validateIncomingMessage(ctx context.Context, message []byte, startTime time.Time) ([]byte, string, interface{}, error) {
	if !json.Valid(message) {
		m.logger.Warn("Invalid JSON syntax received.", "messagePreview", calculatePreview(message))
		respBytes, creationErr := createParseErrorResponse(nil, errors.New("invalid JSON syntax"))
		if creationErr != nil {
			return nil, "", nil, errors.Wrap(creationErr, "failed to create parse error response")
		}
		return respBytes, "", nil, nil
	}

	msgType, reqID, identifyErr := m.identifyMessage(message)
	if identifyErr != nil {
		m.logger.Warn("Failed to identify message type.", "error", identifyErr, "messagePreview", calculatePreview(message))
		respBytes, creationErr := createInvalidRequestErrorResponse(reqID, identifyErr)
		if creationErr != nil {
			return nil, msgType, reqID, errors.Wrap(creationErr, "failed to create invalid request error response")
		}
		return respBytes, msgType, reqID, nil
	}

	if m.options.SkipTypes[msgType] {
		m.logger.Debug("Skipping validation for message type.", "type", msgType, "requestID", reqID)
		return nil, msgType, reqID, nil
	}

	schemaType := m.determineIncomingSchemaType(msgType)
	validationErr := m.validator.Validate(ctx, schemaType, message)

	if m.options.MeasurePerformance {
		m.logger.Debug("Incoming message validation performance.",
			"messageType", msgType,
			"schemaType", schemaType,
			"duration", time.Since(startTime),
			"requestID", reqID,
			"isValid", validationErr == nil)
	}

	if validationErr != nil {
		if m.options.StrictMode {
			m.logger.Warn("Incoming message validation failed (strict mode, rejecting).",
				"messageType", msgType, "requestID", reqID, "error", validationErr)
			respBytes, creationErr := createValidationErrorResponse(reqID, validationErr)
			if creationErr != nil {
				return nil, msgType, reqID, errors.Wrap(creationErr, "failed to create validation error response")
			}
			return respBytes, msgType, reqID, nil
		}
		m.logger.Warn("Incoming validation error ignored (non-strict mode).",
			"messageType", msgType, "requestID", reqID, "error", validationErr)
		return nil, msgType, reqID, nil
	}

	m.logger.Debug("Incoming message passed validation.", "messageType", msgType, "requestID", reqID)
	return nil, msgType, reqID, nil
}

// validateOutgoingResponse validates a response message before it is written.
// It returns an error only when StrictOutgoing is set and validation fails.
func (m *ValidationMiddleware) validateOutgoingResponse(ctx context.Context, requestMethod string, responseBytes []byte) error {
	// Error responses we generated ourselves are already well-formed.
	if isErrorResponse(responseBytes) {
		m.logger.Debug("Skipping outgoing validation for JSON-RPC error response.")
		return nil
	}

	schemaType := m.determineOutgoingSchemaType(requestMethod, responseBytes)
	if schemaType == "" {
		m.logger.Warn("Could not determine schema type for outgoing validation.",
			"requestMethod", requestMethod, "responsePreview", calculatePreview(responseBytes))
		if m.options.StrictOutgoing {
			return errors.New("could not determine schema type for outgoing validation")
		}
		return nil
	}

	validationErr := m.validator.Validate(ctx, schemaType, responseBytes)
	if validationErr != nil {
		m.logger.Error("Outgoing response validation failed.",
			"requestMethod", requestMethod,
			"schemaTypeUsed", schemaType,
			"error", validationErr,
			"responsePreview", calculatePreview(responseBytes))
		if m.options.StrictOutgoing {
			return validationErr
		}
		m.logger.Warn("Outgoing validation error ignored (non-strict outgoing mode).")
		return nil
	}

	m.logger.Debug("Outgoing response passed validation.", "schemaTypeUsed", schemaType)
	return nil
}

// determineIncomingSchemaType picks the schema key to validate an incoming
// message, falling back from method-specific to generic envelope schemas.
func (m *ValidationMiddleware) determineIncomingSchemaType(msgType string) string {
	if m.validator.HasSchema(msgType) {
		return msgType
	}
	if strings.HasSuffix(msgType, "_notification") {
		if m.validator.HasSchema("notification") {
			return "notification"
		}
	} else if m.validator.HasSchema("request") {
		return "request"
	}
	if m.validator.HasSchema("base") {
		m.logger.Warn("Specific/generic schema not found for incoming message, using base schema.", "messageType", msgType)
		return "base"
	}
	return msgType
}

// determineOutgoingSchemaType picks the schema key for a response, deriving
// it from the originating request method where possible.
func (m *ValidationMiddleware) determineOutgoingSchemaType(requestMethod string, responseBytes []byte) string {
	if requestMethod != "" && !strings.HasSuffix(requestMethod, "_notification") {
		expectedResponseSchema := requestMethod + "_response"
		if m.validator.HasSchema(expectedResponseSchema) {
			return expectedResponseSchema
		}
	}

	responseMsgType, _, identifyErr := m.identifyMessage(responseBytes)
	if identifyErr == nil && m.validator.HasSchema(responseMsgType) {
		return responseMsgType
	}

	if isSuccessResponse(responseBytes) && m.validator.HasSchema("success_response") {
		return "success_response"
	}

	if m.validator.HasSchema("base") {
		return "base"
	}

	return ""
}

// parseAndValidateID extracts and validates the ID field from a parsed message.
func (m *ValidationMiddleware) parseAndValidateID(parsed map[string]json.RawMessage) (parsedID interface{}, err error) {
	idRaw, idExists := parsed["id"]
	if !idExists || string(idRaw) == "null" {
		return nil, nil
	}

	if err := json.Unmarshal(idRaw, &parsedID); err != nil {
		return string(idRaw), errors.Wrap(err, "identifyMessage: failed to parse id")
	}

	switch parsedID.(type) {
	case string, float64, json.Number:
		return parsedID, nil
	default:
		return parsedID, errors.New(fmt.Sprintf("identifyMessage: invalid type for id: expected string, number, or null, got %T", parsedID))
	}
}

// identifyMessage extracts the message type and request ID from a JSON-RPC
// message. Requests report their method name, notifications get a
// "_notification" suffix, and responses report success_response or
// error_response.
func (m *ValidationMiddleware) identifyMessage(message []byte) (string, interface{}, error) {
	var parsed map[string]json.RawMessage
	if err := json.Unmarshal(message, &parsed); err != nil {
		return "", nil, errors.Wrap(err, "identifyMessage: failed to parse message")
	}

	id, idErr := m.parseAndValidateID(parsed)
	if idErr != nil {
		return "", id, idErr
	}

	if methodRaw, ok := parsed["method"]; ok {
		var method string
		if err := json.Unmarshal(methodRaw, &method); err != nil {
			return "", id, errors.Wrap(err, "identifyMessage: failed to parse method")
		}
		if id == nil {
			return method + "_notification", nil, nil
		}
		return method, id, nil
	}

	if _, ok := parsed["result"]; ok {
		return "success_response", id, nil
	}
	if _, ok := parsed["error"]; ok {
		return "error_response", id, nil
	}

	return "", id, errors.New("identifyMessage: unable to identify message type (not request, notification, or response)")
}
