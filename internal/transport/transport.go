// Package transport defines interfaces and implementations for sending and receiving MCP messages.
package transport

// file: internal/transport/transport.go

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"sync"

	"github.com/dkoosis/promptclinic/internal/logging"
)

// MaxMessageSize defines the maximum allowed size for a single JSON-RPC message in bytes.
// This helps prevent memory exhaustion attacks.
const MaxMessageSize = 1024 * 1024 // 1MB.

// Transport defines the interface for sending and receiving JSON-RPC messages.
// Implementations must be concurrency-safe.
type Transport interface {
	// ReadMessage reads a single JSON-RPC message from the transport.
	// It returns the raw message bytes, or an error if reading fails.
	// The context allows for cancellation of long-running reads.
	ReadMessage(ctx context.Context) ([]byte, error)

	// WriteMessage sends a single JSON-RPC message over the transport.
	// It takes raw message bytes and returns an error if writing fails.
	WriteMessage(ctx context.Context, message []byte) error

	// Close shuts down the transport, closing any underlying connections.
	// Any blocked Read or Write operations will be unblocked and return errors.
	Close() error
}

// MessageHandler defines the signature for a function that processes JSON-RPC messages.
// It receives the raw message bytes and returns a response message or error.
type MessageHandler func(ctx context.Context, message []byte) ([]byte, error)

// ValidateMessage performs structural validation on a JSON-RPC message according
// to the JSON-RPC 2.0 specification (https://www.jsonrpc.org/specification).
// It checks the envelope only; payload validation is the schema middleware's job.
func ValidateMessage(message []byte) error {
	var msg map[string]interface{}
	if err := json.Unmarshal(message, &msg); err != nil {
		return NewParseError(message, err)
	}

	preview := string(message[:minInt(len(message), 100)])

	version, ok := msg["jsonrpc"]
	if !ok {
		return NewError(ErrInvalidMessage, "missing 'jsonrpc' field", nil).
			WithContext("messagePreview", preview)
	}
	if version != "2.0" {
		return NewError(ErrInvalidMessage, "unsupported JSON-RPC version", nil).
			WithContext("version", version).
			WithContext("messagePreview", preview)
	}

	method, hasMethod := msg["method"]
	if hasMethod {
		methodStr, ok := method.(string)
		if !ok {
			return NewError(ErrInvalidMessage, "method must be a string", nil).
				WithContext("method", method).
				WithContext("messagePreview", preview)
		}
		if methodStr == "" {
			return NewError(ErrInvalidMessage, "method cannot be empty", nil).
				WithContext("messagePreview", preview)
		}
		// Reserved method names starting with "rpc." are for internal use.
		if len(methodStr) >= 4 && methodStr[:4] == "rpc." {
			return NewError(ErrInvalidMessage, "method names starting with 'rpc.' are reserved for internal use", nil).
				WithContext("method", methodStr).
				WithContext("messagePreview", preview)
		}
	}

	if id, hasID := msg["id"]; hasID {
		switch id.(type) {
		case string, float64, nil, json.Number:
			// Valid ID types.
		default:
			return NewError(ErrInvalidMessage, "invalid request ID type", nil).
				WithContext("messagePreview", preview)
		}
	}

	if hasMethod {
		// Request or notification: params, if present, must be an object or array.
		if params, exists := msg["params"]; exists {
			switch params.(type) {
			case map[string]interface{}, []interface{}:
				// Valid params types.
			default:
				return NewError(ErrInvalidMessage, "params must be an object or array", nil).
					WithContext("messagePreview", preview)
			}
		}
		if _, hasResult := msg["result"]; hasResult {
			return NewError(ErrInvalidMessage, "request message cannot contain 'result' field", nil).
				WithContext("messagePreview", preview)
		}
		if _, hasError := msg["error"]; hasError {
			return NewError(ErrInvalidMessage, "request message cannot contain 'error' field", nil).
				WithContext("messagePreview", preview)
		}
		return nil
	}

	// Response: must have id and exactly one of result/error.
	if _, hasID := msg["id"]; !hasID {
		return NewError(ErrInvalidMessage, "response message must contain 'id' field", nil).
			WithContext("messagePreview", preview)
	}
	_, hasResult := msg["result"]
	errorObj, hasError := msg["error"]
	if hasError {
		errorMap, ok := errorObj.(map[string]interface{})
		if !ok {
			return NewError(ErrInvalidMessage, "error must be an object", nil).
				WithContext("messagePreview", preview)
		}
		code, codeExists := errorMap["code"]
		if !codeExists {
			return NewError(ErrInvalidMessage, "error object must contain 'code' field", nil).
				WithContext("messagePreview", preview)
		}
		switch code.(type) {
		case float64, json.Number:
			// Valid code types.
		default:
			return NewError(ErrInvalidMessage, "error code must be a number", nil).
				WithContext("messagePreview", preview)
		}
		messageText, messageExists := errorMap["message"]
		if !messageExists {
			return NewError(ErrInvalidMessage, "error object must contain 'message' field", nil).
				WithContext("messagePreview", preview)
		}
		if _, ok := messageText.(string); !ok {
			return NewError(ErrInvalidMessage, "error message must be a string", nil).
				WithContext("messagePreview", preview)
		}
	}
	if !hasResult && !hasError {
		return NewError(ErrInvalidMessage, "response message must contain either 'result' or 'error' field", nil).
			WithContext("messagePreview", preview)
	}
	if hasResult && hasError {
		return NewError(ErrInvalidMessage, "response message cannot contain both 'result' and 'error' fields", nil).
			WithContext("messagePreview", preview)
	}
	return nil
}

// minInt returns the smaller of x or y.
func minInt(x, y int) int {
	if x < y {
		return x
	}
	return y
}

// NDJSONTransport implements the Transport interface for newline-delimited JSON.
// It supports both stdio and socket-based communications.
type NDJSONTransport struct {
	reader    *bufio.Reader
	writer    io.Writer
	closer    io.Closer
	logger    logging.Logger
	writeLock sync.Mutex // Ensures atomic writes.
	closed    bool
	closeLock sync.RWMutex
}

// NewNDJSONTransport creates a new transport layer that reads/writes NDJSON messages
// from the provided io.Reader and io.Writer. closer may be nil.
func NewNDJSONTransport(reader io.Reader, writer io.Writer, closer io.Closer, logger logging.Logger) Transport {
	if logger == nil {
		logger = logging.GetNoopLogger()
	}
	return &NDJSONTransport{
		reader: bufio.NewReader(reader),
		writer: writer,
		closer: closer,
		logger: logger.WithField("component", "ndjson_transport"),
	}
}

// ReadMessage implements Transport.ReadMessage for NDJSON.
// It reads a single line of JSON data delimited by a newline character.
func (t *NDJSONTransport) ReadMessage(ctx context.Context) ([]byte, error) {
	t.closeLock.RLock()
	if t.closed {
		t.closeLock.RUnlock()
		return nil, NewClosedError("read")
	}
	t.closeLock.RUnlock()

	type readResult struct {
		data []byte
		err  error
	}
	resultCh := make(chan readResult, 1)

	// Read in a separate goroutine to allow for context cancellation.
	go func() {
		var buffer bytes.Buffer
		var totalSize int

		for {
			line, prefix, err := t.reader.ReadLine()
			if err != nil {
				if err == io.EOF {
					resultCh <- readResult{nil, NewError(ErrTransportClosed, "connection closed by peer", io.EOF)}
				} else {
					resultCh <- readResult{nil, NewError(ErrGeneric, "failed to read message line", err)}
				}
				return
			}

			buffer.Write(line)
			totalSize += len(line)

			if totalSize > MaxMessageSize {
				fragment := buffer.Bytes()
				resultCh <- readResult{nil, NewMessageSizeError(totalSize, MaxMessageSize, fragment[:minInt(len(fragment), 100)])}
				return
			}

			if !prefix {
				break
			}
		}

		message := buffer.Bytes()
		t.logger.Debug("Received raw message.", "size", len(message), "contentPreview", string(message[:minInt(len(message), 100)]))

		if err := ValidateMessage(message); err != nil {
			t.logger.Warn("Invalid message received.", "validationError", err)
			resultCh <- readResult{nil, err}
			return
		}

		resultCh <- readResult{message, nil}
	}()

	select {
	case <-ctx.Done():
		t.logger.Warn("Context cancelled while reading message.", "error", ctx.Err())
		return nil, NewTimeoutError("read", ctx.Err())
	case result := <-resultCh:
		if result.err != nil {
			t.logger.Error("Error processing read message.", "error", result.err)
		}
		return result.data, result.err
	}
}

// WriteMessage implements Transport.WriteMessage for NDJSON.
// It writes a single line of JSON data with a trailing newline character.
func (t *NDJSONTransport) WriteMessage(ctx context.Context, message []byte) error {
	t.closeLock.RLock()
	if t.closed {
		t.closeLock.RUnlock()
		return NewClosedError("write")
	}
	t.closeLock.RUnlock()

	if err := ValidateMessage(message); err != nil {
		return err
	}

	if len(message) > MaxMessageSize {
		return NewMessageSizeError(len(message), MaxMessageSize, message[:minInt(len(message), 100)])
	}

	resultCh := make(chan error, 1)

	t.writeLock.Lock()
	defer t.writeLock.Unlock()

	go func() {
		buf := make([]byte, len(message)+1)
		copy(buf, message)
		buf[len(message)] = '\n'

		t.logger.Debug("Writing message.", "size", len(buf), "contentPreview", string(message[:minInt(len(message), 100)]))
		n, err := t.writer.Write(buf)
		if err == nil && n < len(buf) {
			err = io.ErrShortWrite
		}
		resultCh <- err
	}()

	select {
	case <-ctx.Done():
		t.logger.Warn("Context cancelled while writing message.", "error", ctx.Err())
		return NewTimeoutError("write", ctx.Err())
	case err := <-resultCh:
		if err != nil {
			t.logger.Error("Failed to write message.", "error", err)
			return NewError(ErrGeneric, "failed to write message", err)
		}
		return nil
	}
}

// Close implements Transport.Close.
func (t *NDJSONTransport) Close() error {
	t.closeLock.Lock()
	defer t.closeLock.Unlock()

	if t.closed {
		return nil
	}

	t.logger.Info("Closing NDJSON transport.")
	t.closed = true

	if t.closer != nil {
		if err := t.closer.Close(); err != nil {
			return NewError(ErrTransportClosed, "failed to close underlying transport stream", err)
		}
	}

	return nil
}
