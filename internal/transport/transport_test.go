// file: internal/transport/transport_test.go
package transport

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/dkoosis/promptclinic/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateMessage_Succeeds_When_MessageIsWellFormed(t *testing.T) {
	cases := []struct {
		name    string
		message string
	}{
		{"Request", `{"jsonrpc":"2.0","id":1,"method":"ping"}`},
		{"RequestWithParams", `{"jsonrpc":"2.0","id":"a","method":"tools/call","params":{"name":"prompt_clinic"}}`},
		{"Notification", `{"jsonrpc":"2.0","method":"notifications/initialized"}`},
		{"SuccessResponse", `{"jsonrpc":"2.0","id":1,"result":{}}`},
		{"ErrorResponse", `{"jsonrpc":"2.0","id":1,"error":{"code":-32601,"message":"Method not found"}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.NoError(t, ValidateMessage([]byte(tc.message)))
		})
	}
}

func TestValidateMessage_Fails_When_MessageIsMalformed(t *testing.T) {
	cases := []struct {
		name    string
		message string
	}{
		{"NotJSON", `{"jsonrpc":`},
		{"MissingVersion", `{"id":1,"method":"ping"}`},
		{"WrongVersion", `{"jsonrpc":"1.0","id":1,"method":"ping"}`},
		{"EmptyMethod", `{"jsonrpc":"2.0","id":1,"method":""}`},
		{"NonStringMethod", `{"jsonrpc":"2.0","id":1,"method":42}`},
		{"ReservedMethod", `{"jsonrpc":"2.0","id":1,"method":"rpc.internal"}`},
		{"ScalarParams", `{"jsonrpc":"2.0","id":1,"method":"ping","params":"nope"}`},
		{"RequestWithResult", `{"jsonrpc":"2.0","id":1,"method":"ping","result":{}}`},
		{"ResponseWithoutID", `{"jsonrpc":"2.0","result":{}}`},
		{"ResponseWithBoth", `{"jsonrpc":"2.0","id":1,"result":{},"error":{"code":1,"message":"x"}}`},
		{"ErrorNotObject", `{"jsonrpc":"2.0","id":1,"error":"boom"}`},
		{"ErrorMissingCode", `{"jsonrpc":"2.0","id":1,"error":{"message":"x"}}`},
		{"ErrorMissingMessage", `{"jsonrpc":"2.0","id":1,"error":{"code":-32000}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateMessage([]byte(tc.message))
			require.Error(t, err)
			var transportErr *Error
			assert.True(t, errors.As(err, &transportErr), "expected a transport.Error")
		})
	}
}

func TestNDJSONTransport_ReadsAndWritesFramedMessages(t *testing.T) {
	input := `{"jsonrpc":"2.0","id":1,"method":"ping"}` + "\n"
	var output bytes.Buffer
	tr := NewNDJSONTransport(strings.NewReader(input), &output, nil, logging.GetNoopLogger())

	msg, err := tr.ReadMessage(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":1,"method":"ping"}`, string(msg))

	response := []byte(`{"jsonrpc":"2.0","id":1,"result":{}}`)
	require.NoError(t, tr.WriteMessage(context.Background(), response))
	assert.Equal(t, string(response)+"\n", output.String())
}

func TestNDJSONTransport_Read_Fails_When_PeerCloses(t *testing.T) {
	var output bytes.Buffer
	tr := NewNDJSONTransport(strings.NewReader(""), &output, nil, logging.GetNoopLogger())

	_, err := tr.ReadMessage(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, io.EOF), "EOF should be preserved in the chain")
}

func TestNDJSONTransport_Write_Fails_When_MessageInvalid(t *testing.T) {
	var output bytes.Buffer
	tr := NewNDJSONTransport(strings.NewReader(""), &output, nil, logging.GetNoopLogger())

	err := tr.WriteMessage(context.Background(), []byte(`{"id":1}`))
	require.Error(t, err)
	assert.Zero(t, output.Len(), "invalid message must not reach the wire")
}

func TestNDJSONTransport_Fails_When_Closed(t *testing.T) {
	var output bytes.Buffer
	tr := NewNDJSONTransport(strings.NewReader(""), &output, nil, logging.GetNoopLogger())
	require.NoError(t, tr.Close())

	_, err := tr.ReadMessage(context.Background())
	assert.True(t, IsClosedError(err))

	err = tr.WriteMessage(context.Background(), []byte(`{"jsonrpc":"2.0","id":1,"method":"ping"}`))
	assert.True(t, IsClosedError(err))
}

func TestInMemoryTransportPair_RoundTrips(t *testing.T) {
	pair := NewInMemoryTransportPair()
	ctx := context.Background()

	request := []byte(`{"jsonrpc":"2.0","id":1,"method":"ping"}`)
	require.NoError(t, pair.ClientTransport.WriteMessage(ctx, request))

	got, err := pair.ServerTransport.ReadMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, request, got)

	response := []byte(`{"jsonrpc":"2.0","id":1,"result":{}}`)
	require.NoError(t, pair.ServerTransport.WriteMessage(ctx, response))

	got, err = pair.ClientTransport.ReadMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, response, got)
}

func TestMapErrorToJSONRPC(t *testing.T) {
	code, msg, _ := MapErrorToJSONRPC(NewParseError([]byte("{"), errors.New("bad json")))
	assert.Equal(t, JSONRPCParseError, code)
	assert.Equal(t, "Parse error", msg)

	code, msg, _ = MapErrorToJSONRPC(NewError(ErrInvalidMessage, "bad envelope", nil))
	assert.Equal(t, JSONRPCInvalidRequest, code)
	assert.Equal(t, "Invalid Request", msg)

	code, msg, _ = MapErrorToJSONRPC(errors.New("something else"))
	assert.Equal(t, JSONRPCInternalError, code)
	assert.Equal(t, "Internal error", msg)
}
