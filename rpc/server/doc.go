// Package server wires the store, the slot table and the command layer onto a
// transport.
//
// For every accepted connection the server creates a handler holding a fresh
// command.Session. Requests of a connection are dispatched in order through
// command.Dispatch, so the one-shot ASKING flag only ever affects the
// connection it was sent on. Store and slot table are shared by all
// connections.
//
// A node runs standalone unless a slot table is configured, either through
// ServerConfig.ClusterConfig (loaded on Listen) or by calling SetSlotTable.
//
// Metrics are kept in a per-server VictoriaMetrics set and can be exposed on
// ServerConfig.MetricsEndpoint:
//
//	vivs_connections_active         live connections
//	vivs_connections_total          accepted connections
//	vivs_commands_total{verb="..."} executed requests per verb
//	vivs_command_errors_total       requests answered with an error (redirects excluded)
//	vivs_redirects_total            GET requests answered with an ASK redirect
//	vivs_keys, vivs_keys_with_ttl   store size
//	vivs_command_duration_seconds   request latency histogram
//
// Usage Example:
//
//	config := common.DefaultServerConfig()
//	config.ClusterConfig = "cluster.toml"
//
//	s := server.NewServer(config, tcp.NewTCPServerTransport(), lstore.NewLocalStore(nil))
//
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer stop()
//	if err := s.Serve(ctx); err != nil {
//	  log.Fatal(err)
//	}
package server
