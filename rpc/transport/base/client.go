package base

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"syscall"
	"time"

	"github.com/vivskv/vivs/lib/frame"
	"github.com/vivskv/vivs/rpc/common"
	"github.com/vivskv/vivs/rpc/transport"
)

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IClientConnector defines the interface for transport-specific connection operations
type IClientConnector interface {
	// Connect establishes a single connection to endpoint
	Connect(ctx context.Context, endpoint string) (net.Conn, error)

	// GetName returns the name of the transport type (e.g. "tcp")
	GetName() string

	// UpgradeConnection applies protocol-specific settings to an established connection
	UpgradeConnection(conn net.Conn, config common.TransportConf) error
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// clientTransport holds one connection to one endpoint. Requests are sent one
// at a time: the connection carries no request ids, the next response on the
// wire always belongs to the last request.
type clientTransport struct {
	connector  IClientConnector
	config     common.ClientConfig
	endpoint   string
	bufferPool *sync.Pool

	mu   sync.Mutex // serializes requests, protects conn
	conn *frameConn
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp)
// -----------------------------------------------------------

// NewBaseClientTransport creates a new base client transport with the specified connector
func NewBaseClientTransport(connector IClientConnector) transport.IRPCClientTransport {
	return &clientTransport{
		connector:  connector,
		bufferPool: newBufferPool(DefaultBufferSize),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCClientTransport)
// --------------------------------------------------------------------------

func (t *clientTransport) Connect(ctx context.Context, endpoint string, config common.ClientConfig) error {
	if endpoint == "" {
		return fmt.Errorf("no endpoint provided")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.config = config
	t.endpoint = endpoint
	t.closeConn()

	if err := t.reconnect(ctx); err != nil {
		return err
	}
	Logger.Debugf("Connected to %s using %s transport", endpoint, t.connector.GetName())
	return nil
}

func (t *clientTransport) Send(ctx context.Context, req frame.Frame) (frame.Frame, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.endpoint == "" {
		return frame.Frame{}, transport.ErrNotConnected
	}

	// a connection that was idle in the pool may have been closed by the
	// server in the meantime: try once more on a fresh connection
	reused := t.conn != nil
	resp, err := t.send(ctx, req)
	if err != nil && reused && isStaleConnError(err) && ctx.Err() == nil {
		Logger.Debugf("Connection to %s went stale, reconnecting: %v", t.endpoint, err)
		resp, err = t.send(ctx, req)
	}
	return resp, err
}

func (t *clientTransport) Endpoint() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.endpoint
}

func (t *clientTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closeConn()
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// send performs one request on the current connection (dialing if needed).
// Any error closes the connection. The caller must hold t.mu.
func (t *clientTransport) send(ctx context.Context, req frame.Frame) (frame.Frame, error) {
	if t.conn == nil {
		if err := t.reconnect(ctx); err != nil {
			return frame.Frame{}, err
		}
	}
	conn := t.conn

	// one deadline covers the whole request, cancelling the context moves it into the past
	deadline, _ := ctx.Deadline()
	if t.config.TimeoutSecond > 0 {
		timeout := time.Now().Add(time.Duration(t.config.TimeoutSecond) * time.Second)
		if deadline.IsZero() || timeout.Before(deadline) {
			deadline = timeout
		}
	}
	if err := conn.conn.SetDeadline(deadline); err != nil {
		t.closeConn()
		return frame.Frame{}, t.wrapError(ctx, "set deadline", err)
	}
	stop := context.AfterFunc(ctx, func() {
		_ = conn.conn.SetDeadline(time.Now())
	})
	defer stop()

	if err := conn.WriteFrame(req); err != nil {
		t.closeConn()
		return frame.Frame{}, t.wrapError(ctx, "send request", err)
	}

	resp, err := conn.ReadFrame()
	if err != nil {
		t.closeConn()
		return frame.Frame{}, t.wrapError(ctx, "read response", err)
	}

	// the server answers every request with exactly one frame
	if conn.Buffered() > 0 {
		Logger.Warningf("Discarding %d unexpected bytes from %s", conn.Buffered(), t.endpoint)
		t.closeConn()
	}
	return resp, nil
}

// reconnect dials the endpoint. The caller must hold t.mu.
func (t *clientTransport) reconnect(ctx context.Context) error {
	if t.config.TimeoutSecond > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(t.config.TimeoutSecond)*time.Second)
		defer cancel()
	}

	conn, err := t.connector.Connect(ctx, t.endpoint)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", t.endpoint, err)
	}

	if err := t.connector.UpgradeConnection(conn, t.config.Transport); err != nil {
		conn.Close()
		return fmt.Errorf("failed to upgrade connection to %s: %w", t.endpoint, err)
	}

	// deadlines are set per request by send
	t.conn = newFrameConn(conn, t.bufferPool, 0)
	return nil
}

// closeConn closes the current connection. The caller must hold t.mu.
func (t *clientTransport) closeConn() {
	if t.conn == nil {
		return
	}
	_ = t.conn.conn.Close()
	t.conn.release()
	t.conn = nil
}

func (t *clientTransport) wrapError(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s to %s: %w", op, t.endpoint, ctxErr)
	}
	// the socket deadline may fire just before the context notices its own
	if deadline, ok := ctx.Deadline(); ok && !time.Now().Before(deadline) {
		return fmt.Errorf("%s to %s: %w", op, t.endpoint, context.DeadlineExceeded)
	}
	return fmt.Errorf("%s to %s: %w", op, t.endpoint, err)
}

// isStaleConnError reports errors caused by a connection the server already closed
func isStaleConnError(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ECONNRESET)
}
