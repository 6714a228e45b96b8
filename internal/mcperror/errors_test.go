// file: internal/mcperror/errors_test.go
package mcperror

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentinelMatching(t *testing.T) {
	err := NewInvalidArgumentsError("draft must not be empty", map[string]interface{}{
		"argument": "draft",
	})

	assert.True(t, IsInvalidArgumentsError(err))
	assert.False(t, IsToolNotFoundError(err))
	assert.Equal(t, CodeInvalidArguments, GetErrorCode(err))

	// Wrapping must not break classification.
	wrapped := errors.Wrap(err, "while handling tools/call")
	assert.True(t, IsInvalidArgumentsError(wrapped))
	assert.Equal(t, CodeInvalidArguments, GetErrorCode(wrapped))
}

func TestNewToolNotFoundError(t *testing.T) {
	err := NewToolNotFoundError("mystery_tool")
	assert.True(t, IsToolNotFoundError(err))
	assert.Equal(t, CodeToolNotFound, GetErrorCode(err))

	props := GetErrorProperties(err)
	assert.Equal(t, "mystery_tool", props["tool_name"])
}

func TestNewNotInitializedError(t *testing.T) {
	err := NewNotInitializedError("tools/call")
	assert.True(t, IsNotInitializedError(err))
	assert.Equal(t, CodeSessionState, GetErrorCode(err))
}

func TestErrorToMap(t *testing.T) {
	err := NewInvalidArgumentsError("bad draft", map[string]interface{}{
		"argument": "draft",
		"token":    "must-not-leak",
	})

	m := ErrorToMap(err)
	require.NotNil(t, m)
	assert.Equal(t, CodeInvalidArguments, m["code"])
	assert.Equal(t, UserFacingMessage(CodeInvalidArguments), m["message"])

	data, ok := m["data"].(map[string]interface{})
	require.True(t, ok, "expected data payload with safe properties")
	assert.Equal(t, "draft", data["argument"])
	_, leaked := data["token"]
	assert.False(t, leaked, "sensitive properties must be filtered out")
}

func TestGetErrorCode_DefaultsToInternal(t *testing.T) {
	assert.Equal(t, CodeInternalError, GetErrorCode(errors.New("plain error")))
}

func TestProperties_SurviveWrapping(t *testing.T) {
	err := NewNotInitializedError("tools/list")
	wrapped := errors.Wrap(errors.Wrap(err, "outer"), "outermost")

	// Properties must be reachable through cockroachdb wrap layers.
	assert.Equal(t, CodeSessionState, GetErrorCode(wrapped))
	assert.Equal(t, CategorySession, GetErrorCategory(wrapped))
	assert.Equal(t, "tools/list", GetErrorProperties(wrapped)["method"])
	assert.True(t, IsNotInitializedError(wrapped))
}

func TestProperties_OuterValueWins(t *testing.T) {
	err := NewInvalidArgumentsError("bad", nil)
	shadowed := withProperty(err, "code", CodeInternalError)

	assert.Equal(t, CodeInternalError, GetErrorCode(shadowed))
	// The inner sentinel identity is unchanged.
	assert.True(t, IsInvalidArgumentsError(shadowed))
}

func TestWithProperty_NilError(t *testing.T) {
	assert.NoError(t, withProperty(nil, "code", CodeInternalError))
}
