// file: internal/schema/validator_test.go
package schema

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/dkoosis/promptclinic/internal/config"
	"github.com/dkoosis/promptclinic/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestValidator creates and initializes a validator against the embedded schema.
func newTestValidator(t *testing.T) *Validator {
	t.Helper()
	v := NewValidator(config.SchemaConfig{}, logging.GetNoopLogger())
	require.NoError(t, v.Initialize(context.Background()), "Initialize should succeed with embedded schema.")
	return v
}

func TestValidator_Initialize_UsesEmbeddedSchema_When_NoOverrideConfigured(t *testing.T) {
	v := newTestValidator(t)

	assert.True(t, v.IsInitialized(), "Validator should report initialized.")
	assert.True(t, v.HasSchema("base"), "Base schema should be compiled.")
	assert.True(t, v.HasSchema("JSONRPCRequest"), "Envelope request definition should be compiled.")
	assert.True(t, v.HasSchema("PromptClinicInput"), "Tool input definition should be compiled.")
	assert.True(t, v.HasSchema("prompt_clinic"), "Generic tool name mapping should exist.")
	assert.NotEqual(t, "[unknown]", v.GetSchemaVersion(), "Schema version should be detected.")
	assert.GreaterOrEqual(t, v.GetCompileDuration().Nanoseconds(), int64(0))
}

func TestValidator_Initialize_LoadsSchema_When_FileOverrideProvided(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "override_schema.json")
	overrideContent := `{
		"$schema": "https://json-schema.org/draft/2020-12/schema",
		"version": "override-test",
		"definitions": {
			"JSONRPCRequest": {
				"type": "object",
				"required": ["jsonrpc", "method"]
			}
		}
	}`
	require.NoError(t, os.WriteFile(path, []byte(overrideContent), 0600))

	cfg := config.SchemaConfig{SchemaOverrideURI: "file://" + path}
	v := NewValidator(cfg, logging.GetNoopLogger())
	require.NoError(t, v.Initialize(context.Background()))

	assert.True(t, v.HasSchema("JSONRPCRequest"))
	assert.Contains(t, v.GetSchemaVersion(), "override-test")
}

func TestValidator_Initialize_Fails_When_OverrideFileMissing(t *testing.T) {
	cfg := config.SchemaConfig{SchemaOverrideURI: "file:///nonexistent/path/schema.json"}
	v := NewValidator(cfg, logging.GetNoopLogger())

	err := v.Initialize(context.Background())
	require.Error(t, err, "Initialize should fail when the override file does not exist.")
	assert.False(t, v.IsInitialized())
}

func TestValidator_Validate_Succeeds_When_MessageIsValidRequest(t *testing.T) {
	v := newTestValidator(t)

	msg := []byte(`{"jsonrpc": "2.0", "method": "ping", "id": 1}`)
	assert.NoError(t, v.Validate(context.Background(), "JSONRPCRequest", msg))
}

func TestValidator_Validate_Fails_When_RequestMissingMethod(t *testing.T) {
	v := newTestValidator(t)

	msg := []byte(`{"jsonrpc": "2.0", "id": 1}`)
	err := v.Validate(context.Background(), "JSONRPCRequest", msg)
	require.Error(t, err)

	var valErr *ValidationError
	require.True(t, errors.As(err, &valErr), "Error should be a *ValidationError.")
	assert.Equal(t, ErrValidationFailed, valErr.Code)
}

func TestValidator_Validate_Fails_When_JSONIsMalformed(t *testing.T) {
	v := newTestValidator(t)

	msg := []byte(`{"jsonrpc": "2.0", "method": "ping"`)
	err := v.Validate(context.Background(), "JSONRPCRequest", msg)
	require.Error(t, err)

	var valErr *ValidationError
	require.True(t, errors.As(err, &valErr))
	assert.Equal(t, ErrInvalidJSONFormat, valErr.Code)
}

func TestValidator_Validate_ChecksToolInput_When_PromptClinicSchemaUsed(t *testing.T) {
	v := newTestValidator(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{
			name:    "DraftOnly",
			payload: `{"draft": "summarize these release notes"}`,
			wantErr: false,
		},
		{
			name:    "AllFields",
			payload: `{"draft": "write a haiku", "goal": "poetry", "constraints": ["short"], "audience": "poets"}`,
			wantErr: false,
		},
		{
			name:    "NullOptionalFields",
			payload: `{"draft": "write a haiku", "goal": null, "constraints": null, "audience": null}`,
			wantErr: false,
		},
		{
			name:    "MissingDraft",
			payload: `{"goal": "poetry"}`,
			wantErr: true,
		},
		{
			name:    "EmptyDraft",
			payload: `{"draft": ""}`,
			wantErr: true,
		},
		{
			name:    "DraftWrongType",
			payload: `{"draft": 42}`,
			wantErr: true,
		},
		{
			name:    "ConstraintsWrongItemType",
			payload: `{"draft": "x", "constraints": [1, 2]}`,
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := v.Validate(ctx, "PromptClinicInput", []byte(tc.payload))
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidator_Validate_FallsBack_When_MessageTypeUnknown(t *testing.T) {
	v := newTestValidator(t)

	// Unknown method names fall back to the request envelope.
	msg := []byte(`{"jsonrpc": "2.0", "method": "totally/unknown", "id": 7}`)
	assert.NoError(t, v.Validate(context.Background(), "totally/unknown", msg))

	// Notification-shaped names fall back to the notification envelope.
	notif := []byte(`{"jsonrpc": "2.0", "method": "notifications/initialized"}`)
	assert.NoError(t, v.Validate(context.Background(), "notifications/initialized", notif))
}

func TestValidator_Validate_Fails_When_NotInitialized(t *testing.T) {
	v := NewValidator(config.SchemaConfig{}, logging.GetNoopLogger())

	err := v.Validate(context.Background(), "JSONRPCRequest", []byte(`{}`))
	require.Error(t, err)

	var valErr *ValidationError
	require.True(t, errors.As(err, &valErr))
	assert.Equal(t, ErrSchemaNotFound, valErr.Code)
}

func TestValidator_Shutdown_ReleasesSchemas(t *testing.T) {
	v := newTestValidator(t)

	require.NoError(t, v.Shutdown())
	assert.False(t, v.IsInitialized())
	assert.False(t, v.HasSchema("base"))

	// Shutdown is idempotent.
	assert.NoError(t, v.Shutdown())
}
