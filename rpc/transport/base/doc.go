// Package base implements the transport layer independent of the network
// protocol. Protocol specifics (how to listen, dial and tune a socket) are
// plugged in through IServerConnector and IClientConnector.
//
// Connection state machine:
//
//	Reading ──complete frame──▶ Responding ──response written──▶ Reading
//	   │                            │
//	   └── EOF / I/O error / malformed frame / shutdown ──▶ Closed
//
// A connection buffers incoming bytes until frame.Parse reports a complete
// frame; no partial frame is ever handed to the handler. A malformed frame
// closes the connection without a response. EOF in the middle of a frame is
// reported as transport.ErrConnectionReset.
//
// Key Components:
//
//   - serverTransport: accepts connections and runs one goroutine per
//     connection. Live connections are tracked in an xsync.MapOf so that
//     Close (or cancelling the context passed to Serve) closes all of them.
//     Accept errors are logged and retried with a short backoff.
//
//   - clientTransport: a single connection to one endpoint. Requests are
//     serialized, each waits for exactly one response. A connection that
//     turns out to be closed by the server is redialed once.
//
// Performance:
//
//   - Buffer Pooling: read buffers come from a sync.Pool and are returned
//     when the connection closes, unless they grew for an oversized frame.
//
//   - Buffered Writes: responses are encoded into a bufio.Writer and flushed
//     with a single write per frame.
package base
