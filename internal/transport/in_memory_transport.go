// file: internal/transport/in_memory_transport.go
package transport

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
)

// InMemoryTransport implements the Transport interface using in-memory channels.
// It's designed specifically for testing purposes, allowing two transport instances
// to communicate with each other without actual I/O.
type InMemoryTransport struct {
	incomingMessages chan []byte
	outgoingMessages chan []byte
	closed           bool
	closeLock        sync.RWMutex
	readLock         sync.Mutex
	writeLock        sync.Mutex
}

// InMemoryTransportPair contains a pair of linked InMemoryTransport instances
// that communicate with each other.
type InMemoryTransportPair struct {
	ClientTransport *InMemoryTransport
	ServerTransport *InMemoryTransport
}

// NewInMemoryTransportPair creates a pair of InMemoryTransport instances
// that are connected to each other. Messages written to one can be read from the other.
// This is particularly useful for testing MCP server-client interactions.
func NewInMemoryTransportPair() *InMemoryTransportPair {
	// Buffered so neither side blocks immediately.
	clientToServer := make(chan []byte, 100)
	serverToClient := make(chan []byte, 100)

	clientTransport := &InMemoryTransport{
		incomingMessages: serverToClient,
		outgoingMessages: clientToServer,
	}

	serverTransport := &InMemoryTransport{
		incomingMessages: clientToServer,
		outgoingMessages: serverToClient,
	}

	return &InMemoryTransportPair{
		ClientTransport: clientTransport,
		ServerTransport: serverTransport,
	}
}

// ReadMessage implements Transport.ReadMessage.
// It reads a message from the incomingMessages channel.
func (t *InMemoryTransport) ReadMessage(ctx context.Context) ([]byte, error) {
	t.readLock.Lock()
	defer t.readLock.Unlock()

	t.closeLock.RLock()
	if t.closed {
		t.closeLock.RUnlock()
		return nil, NewClosedError("read")
	}
	t.closeLock.RUnlock()

	select {
	case <-ctx.Done():
		return nil, errors.Wrap(ctx.Err(), "context cancelled during read")
	case msg, ok := <-t.incomingMessages:
		if !ok {
			return nil, NewClosedError("read from closed channel")
		}

		if err := ValidateMessage(msg); err != nil {
			return nil, err
		}

		return msg, nil
	}
}

// WriteMessage implements Transport.WriteMessage.
// It sends a message to the outgoingMessages channel.
func (t *InMemoryTransport) WriteMessage(ctx context.Context, message []byte) error {
	t.writeLock.Lock()
	defer t.writeLock.Unlock()

	t.closeLock.RLock()
	if t.closed {
		t.closeLock.RUnlock()
		return NewClosedError("write")
	}
	t.closeLock.RUnlock()

	if err := ValidateMessage(message); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "context cancelled during write")
	case t.outgoingMessages <- message:
		return nil
	}
}

// Close implements Transport.Close.
// Closing an InMemoryTransport only marks it closed; the shared channels stay
// open so the paired transport can drain anything already in flight.
func (t *InMemoryTransport) Close() error {
	t.closeLock.Lock()
	defer t.closeLock.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true
	return nil
}
