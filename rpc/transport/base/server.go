package base

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/vivskv/vivs/lib/frame"
	"github.com/vivskv/vivs/rpc/common"
	"github.com/vivskv/vivs/rpc/transport"
)

var Logger = logger.GetLogger("transport")

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IServerConnector defines the interface for transport-specific server operations
type IServerConnector interface {
	// Listen creates a listener and returns it
	Listen(config common.ServerConfig) (net.Listener, error)

	// UpgradeConnection applies protocol-specific settings to an accepted connection
	UpgradeConnection(conn net.Conn, config common.TransportConf) error

	// GetName returns the name of the transport type (e.g. "tcp")
	GetName() string
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

const (
	minAcceptBackoff = 5 * time.Millisecond
	maxAcceptBackoff = time.Second
)

// serverTransport implements the core server transport functionality
type serverTransport struct {
	connector  IServerConnector
	factory    transport.ServerHandlerFactory
	config     common.ServerConfig
	listener   net.Listener
	bufferPool *sync.Pool

	// live connections, closed on shutdown
	conns      *xsync.MapOf[uint64, net.Conn]
	nextConnID atomic.Uint64
	handlers   sync.WaitGroup
	closed     atomic.Bool
	closeOnce  sync.Once
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp)
// -----------------------------------------------------------

// NewBaseServerTransport creates a new base server transport. Every connection
// starts with a pooled read buffer of bufferSize bytes (0 uses DefaultBufferSize).
func NewBaseServerTransport(connector IServerConnector, bufferSize int) transport.IRPCServerTransport {
	return &serverTransport{
		connector:  connector,
		bufferPool: newBufferPool(bufferSize),
		conns:      xsync.NewMapOf[uint64, net.Conn](),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCServerTransport)
// --------------------------------------------------------------------------

func (t *serverTransport) RegisterHandler(factory transport.ServerHandlerFactory) {
	t.factory = factory
}

func (t *serverTransport) Listen(config common.ServerConfig) error {
	if t.listener != nil {
		return fmt.Errorf("%s transport is already listening on %s", t.connector.GetName(), t.listener.Addr())
	}
	t.config = config

	listener, err := t.connector.Listen(config)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}
	t.listener = listener
	return nil
}

func (t *serverTransport) Addr() net.Addr {
	if t.listener == nil {
		return nil
	}
	return t.listener.Addr()
}

func (t *serverTransport) Serve(ctx context.Context) error {
	if t.listener == nil {
		return fmt.Errorf("%s transport: Serve called before Listen", t.connector.GetName())
	}
	if t.factory == nil {
		return fmt.Errorf("%s transport: no handler registered", t.connector.GetName())
	}

	// close everything once the context is cancelled
	stop := context.AfterFunc(ctx, func() {
		if err := t.Close(); err != nil {
			Logger.Warningf("Error closing %s transport: %v", t.connector.GetName(), err)
		}
	})
	defer stop()

	Logger.Infof("Accepting %s connections on %s", t.connector.GetName(), t.listener.Addr())

	backoff := time.Duration(0)
	for {
		conn, err := t.listener.Accept()
		if err != nil {
			if t.closed.Load() || errors.Is(err, net.ErrClosed) {
				break
			}

			// e.g. too many open files: wait a little instead of spinning
			if backoff == 0 {
				backoff = minAcceptBackoff
			} else {
				backoff = min(2*backoff, maxAcceptBackoff)
			}
			Logger.Errorf("Accept error: %v (retrying in %s)", err, backoff)
			time.Sleep(backoff)
			continue
		}
		backoff = 0

		// Handle the connection in a goroutine
		t.handlers.Add(1)
		go t.handleConnection(conn)
	}

	// Wait for all connection handlers to return
	t.handlers.Wait()
	Logger.Infof("Stopped accepting %s connections", t.connector.GetName())
	return nil
}

func (t *serverTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		t.closed.Store(true)
		if t.listener != nil {
			err = t.listener.Close()
		}
		t.conns.Range(func(_ uint64, conn net.Conn) bool {
			_ = conn.Close()
			return true
		})
	})
	return err
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// handleConnection runs the read-respond loop of one connection until the
// connection fails, the peer disconnects or the transport is closed
func (t *serverTransport) handleConnection(conn net.Conn) {
	defer t.handlers.Done()
	defer conn.Close()

	remote := conn.RemoteAddr()

	// register the connection for shutdown
	id := t.nextConnID.Add(1)
	t.conns.Store(id, conn)
	defer t.conns.Delete(id)
	if t.closed.Load() {
		return
	}

	if err := t.connector.UpgradeConnection(conn, t.config.Transport); err != nil {
		Logger.Errorf("Failed to upgrade connection from %s: %v", remote, err)
		return
	}

	handler := t.factory(remote)
	defer handler.Close()

	fc := newFrameConn(conn, t.bufferPool, time.Duration(t.config.TimeoutSecond)*time.Second)
	defer fc.release()

	Logger.Debugf("Accepted connection from %s", remote)

	for {
		req, err := fc.ReadFrame()
		if err != nil {
			t.logReadError(remote, err)
			return
		}

		resp := handler.Handle(req)

		if err := fc.WriteFrame(resp); err != nil {
			if !t.closed.Load() {
				Logger.Errorf("Failed to write response to %s: %v", remote, err)
			}
			return
		}
	}
}

func (t *serverTransport) logReadError(remote net.Addr, err error) {
	var netErr net.Error
	switch {
	case t.closed.Load():
		Logger.Debugf("Closed connection from %s on shutdown", remote)
	case errors.Is(err, io.EOF):
		Logger.Debugf("Connection closed by client %s", remote)
	case errors.Is(err, transport.ErrConnectionReset):
		Logger.Infof("Connection from %s closed in the middle of a frame: %v", remote, err)
	case errors.Is(err, frame.ErrMalformed):
		Logger.Warningf("Closing connection from %s: %v", remote, err)
	case errors.As(err, &netErr) && netErr.Timeout():
		Logger.Debugf("Connection from %s timed out", remote)
	default:
		Logger.Errorf("Error reading from %s: %v", remote, err)
	}
}
