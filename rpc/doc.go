// Package rpc is the network layer of vivs. It connects clients to the
// command engine over the frame protocol.
//
// The package is organized into several subpackages:
//
//   - common: configuration structures for server and client and the logger
//     setup shared by all packages.
//
//   - transport: connection handling with a pluggable connector (TCP). The
//     base transport does the framing, buffering and connection bookkeeping.
//
//   - server: executes requests against a store.IStore, answers ASK for keys
//     owned by other cluster nodes and exposes Prometheus metrics.
//
//   - client: typed commands over a transport that follows ASK redirects to
//     the owning node.
package rpc
