// Package transport provides the byte streams connections run on: listeners
// for the server role, a retrying connector for the client role, and the
// identity attached to every established stream.
//
// Three transports are supported: plain TCP, QUIC with verified TLS, and
// WebSocket binary messages over HTTP. All of them yield a Stream, so the
// framer and connection tasks never know which one they run on.
package transport

import (
	"context"
	"io"
	"net"
	"sync/atomic"

	"github.com/go-faster/errors"

	"github.com/luciancaetano/tickwire/internal/protocol"
)

// Kind names a transport in configuration.
type Kind string

const (
	TCP       Kind = "tcp"
	QUIC      Kind = "quic"
	WebSocket Kind = "websocket"
)

// ParseKind validates a configured transport name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case TCP, QUIC, WebSocket:
		return k, nil
	}
	return "", errors.Errorf("unknown transport %q", s)
}

// Stream is a reliable, ordered, bidirectional byte stream. Close must
// unblock pending Read and Write calls.
type Stream interface {
	io.ReadWriteCloser
	RemoteAddr() net.Addr
}

// Acceptor yields inbound streams until it is closed or fails.
type Acceptor interface {
	// Accept blocks until a stream arrives or ctx is done.
	Accept(ctx context.Context) (Stream, error)
	Close() error
	// Addr returns the bound address, useful when listening on port 0.
	Addr() string
}

// IDGenerator hands out connection ids. Implementations must never return the
// same id twice within a process.
type IDGenerator interface {
	Next() protocol.ConnectionID
}

// IDGeneratorFunc adapts a function to IDGenerator.
type IDGeneratorFunc func() protocol.ConnectionID

func (f IDGeneratorFunc) Next() protocol.ConnectionID { return f() }

var connectionCounter atomic.Uint64

// NextConnectionID draws from the process-wide counter. The first id is 1.
func NextConnectionID() protocol.ConnectionID {
	return protocol.ConnectionID(connectionCounter.Add(1))
}

// GlobalIDs is the default generator backed by NextConnectionID.
var GlobalIDs IDGenerator = IDGeneratorFunc(NextConnectionID)

// SequentialIDs returns a private generator that starts at start. Tests use it
// for deterministic ids.
func SequentialIDs(start protocol.ConnectionID) IDGenerator {
	var next atomic.Uint64
	next.Store(uint64(start))
	return IDGeneratorFunc(func() protocol.ConnectionID {
		return protocol.ConnectionID(next.Add(1) - 1)
	})
}

// Connection is a stream with its identity attached.
type Connection struct {
	Stream Stream
	ID     protocol.ConnectionID
}

// NewConnection wraps s with an id drawn from ids.
func NewConnection(s Stream, ids IDGenerator) Connection {
	if ids == nil {
		ids = GlobalIDs
	}
	return Connection{Stream: s, ID: ids.Next()}
}
