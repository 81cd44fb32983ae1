// Package transport defines the contract between the network layer and the
// rest of the system. Implementations move frames over a byte stream; they
// know nothing about commands, stores or slots.
//
// Key Components:
//
//   - IRPCServerTransport: accepts connections and drives one IConnHandler per
//     connection. The handler is created by the registered ServerHandlerFactory
//     and receives complete request frames one at a time.
//
//   - IRPCClientTransport: one connection to one node, used by the client to
//     send a request frame and wait for its response frame.
//
// The base package implements both on top of a pluggable connector, the tcp
// package provides the connector for TCP sockets.
package transport
