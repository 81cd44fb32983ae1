package transport

import (
	"context"
	"errors"
	"net"

	"github.com/vivskv/vivs/lib/frame"
	"github.com/vivskv/vivs/rpc/common"
)

var (
	// ErrConnectionReset is returned if the peer closed the connection in the middle of a frame
	ErrConnectionReset = errors.New("connection reset by peer")
	// ErrNotConnected is returned by a client transport that has no connection
	ErrNotConnected = errors.New("transport is not connected")
)

// --------------------------------------------------------------------------
// Server Transport
// --------------------------------------------------------------------------

// IConnHandler processes the requests of a single connection. Requests are
// handed over one at a time in the order they were received; the response of
// a request is written before the next one is read.
type IConnHandler interface {
	// Handle processes one request and returns exactly one response
	Handle(req frame.Frame) (resp frame.Frame)
	// Close is called once after the connection was closed
	Close()
}

// ServerHandlerFactory creates the handler for a newly accepted connection
type ServerHandlerFactory func(remote net.Addr) IConnHandler

// IRPCServerTransport is the interface for the server side of the transport layer
type IRPCServerTransport interface {
	// RegisterHandler registers the factory called for every accepted connection
	RegisterHandler(factory ServerHandlerFactory)
	// Listen binds the listener described by the config. It does not accept connections yet.
	Listen(config common.ServerConfig) error
	// Addr returns the address the transport listens on (nil before Listen)
	Addr() net.Addr
	// Serve accepts connections until ctx is cancelled or Close is called.
	// It returns after all connections were closed.
	Serve(ctx context.Context) error
	// Close stops accepting and closes all live connections
	Close() error
}

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// IRPCClientTransport is the interface for a client connection to a single node
type IRPCClientTransport interface {
	// Connect establishes the connection to endpoint
	Connect(ctx context.Context, endpoint string, config common.ClientConfig) error
	// Send writes req and waits for its response. Calls are serialized.
	Send(ctx context.Context, req frame.Frame) (resp frame.Frame, err error)
	// Endpoint returns the address this transport is connected to
	Endpoint() string
	// Close closes the connection
	Close() error
}

// ClientTransportFactory creates unconnected client transports
type ClientTransportFactory func() IRPCClientTransport
