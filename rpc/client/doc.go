// Package client implements the client side of the protocol, including the
// ASK redirect dance.
//
// A request is first sent to ClientConfig.Endpoint. If the node answers with
// "-ASK <slot> <address>", the client opens (or reuses) a connection to
// address, sends ASKING and resends the request on that connection. This is
// repeated at most ClientConfig.MaxRedirects times.
//
// Key Components:
//
//   - Client: connection pool keyed by node address (xsync.MapOf), the raw
//     Do/DoFrame calls and typed helpers (Ping, Get, Set, SetWithTTL, Delete,
//     TTL).
//
//   - NewRPCStore: adapts a Client to the store.IStore interface.
//
// Usage Example:
//
//	config := common.DefaultClientConfig()
//	config.Endpoint = "127.0.0.1:6379"
//
//	c, err := client.NewClient(config, tcp.NewTCPClientTransport)
//	if err != nil {
//	  return err
//	}
//	defer c.Close()
//
//	_ = c.SetWithTTL(ctx, "session", "abc", 60)
//	value, found, err := c.Get(ctx, "session")
package client
