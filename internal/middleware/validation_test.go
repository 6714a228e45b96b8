// file: internal/middleware/validation_test.go
package middleware

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/dkoosis/promptclinic/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockValidator implements SchemaValidatorInterface for middleware tests.
type mockValidator struct {
	initialized   bool
	schemas       map[string]bool
	validateFunc  func(ctx context.Context, messageType string, data []byte) error
	validatedWith []string
}

func newMockValidator() *mockValidator {
	return &mockValidator{
		initialized: true,
		schemas: map[string]bool{
			"base":             true,
			"request":          true,
			"notification":     true,
			"success_response": true,
		},
	}
}

func (m *mockValidator) Validate(ctx context.Context, messageType string, data []byte) error {
	m.validatedWith = append(m.validatedWith, messageType)
	if m.validateFunc != nil {
		return m.validateFunc(ctx, messageType, data)
	}
	return nil
}

func (m *mockValidator) HasSchema(name string) bool { return m.schemas[name] }
func (m *mockValidator) IsInitialized() bool        { return m.initialized }

// echoHandler returns a canned success response and records the message it saw.
func echoHandler(response []byte, sawMessage *[]byte) func(context.Context, []byte) ([]byte, error) {
	return func(_ context.Context, message []byte) ([]byte, error) {
		if sawMessage != nil {
			*sawMessage = message
		}
		return response, nil
	}
}

func newTestMiddleware(t *testing.T, validator SchemaValidatorInterface, opts ValidationOptions, next func(context.Context, []byte) ([]byte, error)) *ValidationMiddleware {
	t.Helper()
	mw := NewValidationMiddleware(validator, opts, logging.GetNoopLogger())
	mw.SetNext(next)
	return mw
}

func decodeErrorResponse(t *testing.T, respBytes []byte) (code int, message string) {
	t.Helper()
	var resp struct {
		JSONRPC string `json:"jsonrpc"`
		Error   *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(respBytes, &resp))
	require.NotNil(t, resp.Error, "Response should carry an error object.")
	assert.Equal(t, "2.0", resp.JSONRPC)
	return resp.Error.Code, resp.Error.Message
}

func TestValidationMiddleware_PassesMessage_When_ValidationSucceeds(t *testing.T) {
	validator := newMockValidator()
	wantResp := []byte(`{"jsonrpc":"2.0","id":1,"result":{}}`)
	var sawMessage []byte
	mw := newTestMiddleware(t, validator, DefaultValidationOptions(), echoHandler(wantResp, &sawMessage))

	msg := []byte(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)
	resp, err := mw.HandleMessage(context.Background(), msg)

	require.NoError(t, err)
	assert.Equal(t, wantResp, resp)
	assert.Equal(t, msg, sawMessage, "Next handler should receive the original message.")
	assert.Contains(t, validator.validatedWith, "request", "Envelope schema should have been used.")
}

func TestValidationMiddleware_ReturnsParseError_When_JSONIsInvalid(t *testing.T) {
	validator := newMockValidator()
	mw := newTestMiddleware(t, validator, DefaultValidationOptions(), echoHandler(nil, nil))

	resp, err := mw.HandleMessage(context.Background(), []byte(`{"jsonrpc": "2.0",`))

	require.NoError(t, err, "Parse failures produce an error response, not a handler error.")
	code, _ := decodeErrorResponse(t, resp)
	assert.Equal(t, -32700, code)
}

func TestValidationMiddleware_ReturnsInvalidRequest_When_IDTypeIsWrong(t *testing.T) {
	validator := newMockValidator()
	mw := newTestMiddleware(t, validator, DefaultValidationOptions(), echoHandler(nil, nil))

	resp, err := mw.HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","id":{"bad":true},"method":"ping"}`))

	require.NoError(t, err)
	code, _ := decodeErrorResponse(t, resp)
	assert.Equal(t, -32600, code)
}

func TestValidationMiddleware_RejectsMessage_When_StrictModeAndSchemaFails(t *testing.T) {
	validator := newMockValidator()
	validator.validateFunc = func(_ context.Context, _ string, _ []byte) error {
		return errors.New("schema violation")
	}
	nextCalled := false
	mw := newTestMiddleware(t, validator, DefaultValidationOptions(), func(_ context.Context, _ []byte) ([]byte, error) {
		nextCalled = true
		return nil, nil
	})

	resp, err := mw.HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","id":1,"method":"tools/call"}`))

	require.NoError(t, err)
	code, _ := decodeErrorResponse(t, resp)
	assert.Equal(t, -32600, code)
	assert.False(t, nextCalled, "Handler must not run for rejected messages.")
}

func TestValidationMiddleware_AllowsMessage_When_NonStrictAndSchemaFails(t *testing.T) {
	validator := newMockValidator()
	validator.validateFunc = func(_ context.Context, _ string, _ []byte) error {
		return errors.New("schema violation")
	}
	opts := DefaultValidationOptions()
	opts.StrictMode = false
	opts.ValidateOutgoing = false
	wantResp := []byte(`{"jsonrpc":"2.0","id":1,"result":{}}`)
	mw := newTestMiddleware(t, validator, opts, echoHandler(wantResp, nil))

	resp, err := mw.HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","id":1,"method":"tools/call"}`))

	require.NoError(t, err)
	assert.Equal(t, wantResp, resp)
}

func TestValidationMiddleware_SkipsValidation_When_TypeIsInSkipList(t *testing.T) {
	validator := newMockValidator()
	opts := DefaultValidationOptions()
	opts.ValidateOutgoing = false
	wantResp := []byte(`{"jsonrpc":"2.0","id":1,"result":{}}`)
	mw := newTestMiddleware(t, validator, opts, echoHandler(wantResp, nil))

	resp, err := mw.HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","id":1,"method":"ping"}`))

	require.NoError(t, err)
	assert.Equal(t, wantResp, resp)
	assert.Empty(t, validator.validatedWith, "Skipped types must not hit the validator.")
}

func TestValidationMiddleware_BypassesValidator_When_Disabled(t *testing.T) {
	validator := newMockValidator()
	opts := DefaultValidationOptions()
	opts.Enabled = false
	wantResp := []byte(`{"jsonrpc":"2.0","id":1,"result":{}}`)
	mw := newTestMiddleware(t, validator, opts, echoHandler(wantResp, nil))

	// Even malformed JSON passes straight through when disabled.
	resp, err := mw.HandleMessage(context.Background(), []byte(`not json`))

	require.NoError(t, err)
	assert.Equal(t, wantResp, resp)
}

func TestValidationMiddleware_FailsRequest_When_StrictOutgoingAndResponseInvalid(t *testing.T) {
	validator := newMockValidator()
	validator.validateFunc = func(_ context.Context, messageType string, _ []byte) error {
		if messageType == "success_response" {
			return errors.New("bad response shape")
		}
		return nil
	}
	opts := DefaultValidationOptions()
	opts.StrictOutgoing = true
	mw := newTestMiddleware(t, validator, opts, echoHandler([]byte(`{"jsonrpc":"2.0","id":1,"result":{}}`), nil))

	_, err := mw.HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "outgoing response validation failed")
}

func TestValidationMiddleware_PropagatesError_When_NextHandlerFails(t *testing.T) {
	validator := newMockValidator()
	handlerErr := errors.New("boom")
	mw := newTestMiddleware(t, validator, DefaultValidationOptions(), func(_ context.Context, _ []byte) ([]byte, error) {
		return nil, handlerErr
	})

	_, err := mw.HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))

	require.Error(t, err)
	assert.True(t, errors.Is(err, handlerErr))
}

func TestIdentifyMessage(t *testing.T) {
	mw := NewValidationMiddleware(newMockValidator(), DefaultValidationOptions(), logging.GetNoopLogger())

	tests := []struct {
		name     string
		message  string
		wantType string
		wantErr  bool
	}{
		{"Request", `{"jsonrpc":"2.0","id":1,"method":"initialize"}`, "initialize", false},
		{"Notification", `{"jsonrpc":"2.0","method":"notifications/initialized"}`, "notifications/initialized_notification", false},
		{"SuccessResponse", `{"jsonrpc":"2.0","id":1,"result":{}}`, "success_response", false},
		{"ErrorResponse", `{"jsonrpc":"2.0","id":1,"error":{"code":-32600,"message":"bad"}}`, "error_response", false},
		{"StringID", `{"jsonrpc":"2.0","id":"abc","method":"ping"}`, "ping", false},
		{"Unidentifiable", `{"jsonrpc":"2.0"}`, "", true},
		{"ObjectID", `{"jsonrpc":"2.0","id":{},"method":"ping"}`, "", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			msgType, _, err := mw.identifyMessage([]byte(tc.message))
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantType, msgType)
		})
	}
}
