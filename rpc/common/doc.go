// Package common holds the configuration structures and the logging setup
// shared by the server, the client and the command line tool.
//
// Key Components:
//
//   - ServerConfig: everything a node needs to run (listening address, optional
//     slot table file, timeouts, metrics endpoint and transport tuning).
//     String() renders the table printed at startup.
//
//   - ClientConfig: the first node to contact, request timeout and the number
//     of ASK redirects a client follows.
//
//   - TransportConf: socket and TCP options used by both sides.
//
//   - Logger: a dragonboat logger.ILogger implementation with a consistent
//     "LEVEL | name | message" format. InitLoggers installs it for every logger
//     listed in LoggerNames.
package common
