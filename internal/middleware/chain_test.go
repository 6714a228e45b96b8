// file: internal/middleware/chain_test.go
package middleware

import (
	"context"
	"testing"

	"github.com/dkoosis/promptclinic/internal/mcptypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChain_AppliesMiddleware_When_OrderMatters(t *testing.T) {
	var order []string

	final := func(_ context.Context, message []byte) ([]byte, error) {
		order = append(order, "final")
		return message, nil
	}

	tag := func(name string) mcptypes.MiddlewareFunc {
		return func(next mcptypes.MessageHandler) mcptypes.MessageHandler {
			return func(ctx context.Context, message []byte) ([]byte, error) {
				order = append(order, name)
				return next(ctx, message)
			}
		}
	}

	chain := NewChain(final).Use(tag("first")).Use(tag("second"))
	handler := chain.Handler()

	resp, err := handler(context.Background(), []byte("msg"))
	require.NoError(t, err)
	assert.Equal(t, []byte("msg"), resp)
	assert.Equal(t, []string{"first", "second", "final"}, order,
		"First middleware added runs first.")
}

func TestChain_ReturnsComposedHandler_When_FinalizedTwice(t *testing.T) {
	calls := 0
	final := func(_ context.Context, message []byte) ([]byte, error) {
		calls++
		return message, nil
	}

	chain := NewChain(final)
	h1 := chain.Handler()
	h2 := chain.Handler()

	_, err := h1(context.Background(), nil)
	require.NoError(t, err)
	_, err = h2(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}
