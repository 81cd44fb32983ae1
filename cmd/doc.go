// Package cmd implements the command-line interface of vivs. It provides a
// hierarchical command structure for running a node and for talking to one.
//
// The package is organized into several subpackages:
//
//   - serve: starts a node (standalone or as part of a cluster)
//   - kv: one-shot client commands (ping, get, set, del, ttl) and the perf benchmark
//   - cli: interactive shell sending one command per line
//   - util: shared flag, viper and client setup (internal use)
//
// All flags can also be set through VIVS_<FLAG> environment variables or in
// .env / .env.local files. See vivs --help for a list of all commands.
package cmd
