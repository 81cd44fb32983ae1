package client

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/vivskv/vivs/lib/command"
	"github.com/vivskv/vivs/lib/frame"
	"github.com/vivskv/vivs/rpc/common"
	"github.com/vivskv/vivs/rpc/transport"
)

var Logger = logger.GetLogger("client")

var (
	// ErrTooManyRedirects is returned if a request was redirected more than ClientConfig.MaxRedirects times
	ErrTooManyRedirects = errors.New("too many redirects")
	// ErrUnexpectedResponse is returned if a response does not have the type the command answers with
	ErrUnexpectedResponse = errors.New("unexpected response")
	// ErrClosed is returned by a closed client
	ErrClosed = errors.New("client is closed")
)

// ResponseError is an error response sent by the server
type ResponseError struct {
	Msg string
}

func (e *ResponseError) Error() string {
	return e.Msg
}

// --------------------------------------------------------------------------
// Client
// --------------------------------------------------------------------------

// Client sends commands to a cluster. Requests start at the configured
// endpoint; ASK redirects are followed by connecting to the named node,
// sending ASKING and resending the request there.
//
// One connection per node is kept open and shared by all goroutines using
// the client. It is safe for concurrent use.
type Client struct {
	config  common.ClientConfig
	factory transport.ClientTransportFactory
	nodes   *xsync.MapOf[string, *node]

	mu     sync.RWMutex
	closed bool
}

// node is the connection to one cluster node
type node struct {
	// mu keeps ASKING and the redirected request adjacent on the connection
	mu        sync.Mutex
	transport transport.IRPCClientTransport
	connected bool
}

// NewClient creates a client and connects it to config.Endpoint
//
// Usage:
//
//	c, err := client.NewClient(common.DefaultClientConfig(), tcp.NewTCPClientTransport)
//	if err != nil {
//		return err
//	}
//	defer c.Close()
//
//	value, found, err := c.Get(ctx, "greeting")
func NewClient(config common.ClientConfig, factory transport.ClientTransportFactory) (*Client, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("no endpoint provided")
	}

	c := &Client{
		config:  config,
		factory: factory,
		nodes:   xsync.NewMapOf[string, *node](),
	}

	n := c.node(config.Endpoint)
	n.mu.Lock()
	err := c.connect(context.Background(), config.Endpoint, n)
	n.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Config returns the client configuration
func (c *Client) Config() common.ClientConfig {
	return c.config
}

// Do sends a command built from args (e.g. "SET", "key", "value") and returns the response
func (c *Client) Do(ctx context.Context, args ...string) (frame.Frame, error) {
	return c.DoFrame(ctx, frame.Command(args...))
}

// DoFrame sends req and returns the response, following ASK redirects.
//
// Error responses of the server are returned as frames, not as errors. The
// only exception is a redirect that can not be followed: it is returned
// together with ErrTooManyRedirects.
func (c *Client) DoFrame(ctx context.Context, req frame.Frame) (frame.Frame, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return frame.Frame{}, ErrClosed
	}

	endpoint := c.config.Endpoint
	asking := false

	for redirects := 0; ; redirects++ {
		resp, err := c.send(ctx, endpoint, req, asking)
		if err != nil {
			return frame.Frame{}, err
		}

		slot, target, ok := command.ParseAsk(resp)
		if !ok {
			return resp, nil
		}
		if redirects >= c.config.MaxRedirects {
			return resp, fmt.Errorf("%w: slot %d owned by %s after %d redirects", ErrTooManyRedirects, slot, target, redirects)
		}

		Logger.Debugf("Slot %d is served by %s (asked %s)", slot, target, endpoint)
		endpoint, asking = target, true
	}
}

// Close closes all connections
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	var errs []error
	c.nodes.Range(func(endpoint string, n *node) bool {
		n.mu.Lock()
		if n.connected {
			errs = append(errs, n.transport.Close())
			n.connected = false
		}
		n.mu.Unlock()
		return true
	})
	c.nodes.Clear()
	return errors.Join(errs...)
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// node returns the pool entry for endpoint, creating it if needed
func (c *Client) node(endpoint string) *node {
	n, _ := c.nodes.LoadOrCompute(endpoint, func() *node {
		return &node{transport: c.factory()}
	})
	return n
}

// connect connects n to endpoint if it is not connected yet. The caller must hold n.mu.
func (c *Client) connect(ctx context.Context, endpoint string, n *node) error {
	if n.connected {
		return nil
	}
	if err := n.transport.Connect(ctx, endpoint, c.config); err != nil {
		return err
	}
	n.connected = true
	Logger.Debugf("Connected to %s", endpoint)
	return nil
}

// send sends req to endpoint, preceded by ASKING if asking is set
func (c *Client) send(ctx context.Context, endpoint string, req frame.Frame, asking bool) (frame.Frame, error) {
	n := c.node(endpoint)
	n.mu.Lock()
	defer n.mu.Unlock()

	if err := c.connect(ctx, endpoint, n); err != nil {
		return frame.Frame{}, err
	}

	if asking {
		resp, err := n.transport.Send(ctx, frame.Command("ASKING"))
		if err != nil {
			return frame.Frame{}, err
		}
		if resp.Type != frame.TypeSimpleString || resp.Text() != "OK" {
			return frame.Frame{}, fmt.Errorf("%w to ASKING from %s: %s", ErrUnexpectedResponse, endpoint, resp)
		}
	}

	return n.transport.Send(ctx, req)
}
