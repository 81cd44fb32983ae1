// Package tcp implements the TCP connector for the base transport. It binds
// and dials TCP sockets and applies the socket options of
// common.TransportConf (TCP_NODELAY, keep-alive, linger, buffer sizes) to
// every accepted or dialed connection.
//
// Key Components:
//
//   - serverConnector: TCP implementation of base.IServerConnector
//
//   - clientConnector: TCP implementation of base.IClientConnector
//
// The server starts every connection with a 64 KB read buffer taken from a
// pool; buffers grow on demand for larger frames.
package tcp
