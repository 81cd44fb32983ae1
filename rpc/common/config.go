package common

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// DefaultEndpoint is the address a node listens on if nothing else is configured
	DefaultEndpoint = "127.0.0.1:6379"
	// DefaultMaxRedirects bounds how many ASK redirects a client follows for one request
	DefaultMaxRedirects = 5
)

// --------------------------------------------------------------------------
// Transport configuration (shared by server and client)
// --------------------------------------------------------------------------

// SocketConf holds the socket buffer sizes. Zero keeps the OS default.
type SocketConf struct {
	WriteBufferSize int
	ReadBufferSize  int
}

// TCPConf holds TCP specific socket options
type TCPConf struct {
	// TCPNoDelay disables Nagle's algorithm
	TCPNoDelay bool
	// TCPKeepAliveSec enables keep-alive probes with this period (0 disables)
	TCPKeepAliveSec int
	// TCPLingerSec sets SO_LINGER, negative values keep the OS default
	TCPLingerSec int
}

// TransportConf combines all transport settings
type TransportConf struct {
	SocketConf
	TCPConf
}

// DefaultTransportConf returns the transport settings used when nothing is configured
func DefaultTransportConf() TransportConf {
	return TransportConf{
		TCPConf: TCPConf{
			TCPNoDelay:      true,
			TCPKeepAliveSec: 30,
			TCPLingerSec:    -1,
		},
	}
}

func (c *TransportConf) addFields(addField func(name, value string)) {
	addField("TCP No Delay", strconv.FormatBool(c.TCPNoDelay))
	addField("TCP Keep Alive", secondsOrOff(int64(c.TCPKeepAliveSec)))
	if c.TCPLingerSec < 0 {
		addField("TCP Linger", "os default")
	} else {
		addField("TCP Linger", fmt.Sprintf("%d sec", c.TCPLingerSec))
	}
	addField("Read Buffer", bytesOrDefault(c.ReadBufferSize))
	addField("Write Buffer", bytesOrDefault(c.WriteBufferSize))
}

// --------------------------------------------------------------------------
// Server configuration struct
// --------------------------------------------------------------------------

// ServerConfig holds all configuration parameters of a node
type ServerConfig struct {
	// Endpoint is the host:port the node listens on
	Endpoint string

	// ClusterConfig is the path of the slot table file (empty runs the node standalone)
	ClusterConfig string
	// ClusterAddress is the address of this node in the slot table file (defaults to Endpoint)
	ClusterAddress string

	// TimeoutSecond bounds every read and write on a connection (0 disables the timeout)
	TimeoutSecond int64

	// MetricsEndpoint is the host:port of the prometheus endpoint (empty disables it)
	MetricsEndpoint string

	// Logging configuration
	LogLevel string

	Transport TransportConf
}

// DefaultServerConfig returns a standalone configuration listening on DefaultEndpoint
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Endpoint:  DefaultEndpoint,
		LogLevel:  "info",
		Transport: DefaultTransportConf(),
	}
}

// SelfAddress returns the address identifying this node in the slot table
func (c *ServerConfig) SelfAddress() string {
	if c.ClusterAddress != "" {
		return c.ClusterAddress
	}
	return c.Endpoint
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder
	addSection, addField := formatter(&sb)

	addSection("Server")
	addField("Endpoint", c.Endpoint)
	addField("Timeout", secondsOrOff(c.TimeoutSecond))

	addSection("Cluster")
	if c.ClusterConfig == "" {
		addField("Mode", "standalone")
	} else {
		addField("Mode", "cluster")
		addField("Slot Table", c.ClusterConfig)
		addField("Node Address", c.SelfAddress())
	}

	addSection("Transport")
	c.Transport.addFields(addField)

	addSection("Observability")
	addField("Log Level", c.LogLevel)
	if c.MetricsEndpoint == "" {
		addField("Metrics", "disabled")
	} else {
		addField("Metrics", "http://"+c.MetricsEndpoint+"/metrics")
	}

	return sb.String()
}

// --------------------------------------------------------------------------
// Client configuration struct
// --------------------------------------------------------------------------

// ClientConfig holds the configuration of a client
type ClientConfig struct {
	// Endpoint is the node requests are sent to first
	Endpoint string
	// TimeoutSecond bounds every request (0 disables the timeout)
	TimeoutSecond int64
	// MaxRedirects is the number of ASK redirects followed per request
	MaxRedirects int

	Transport TransportConf
}

// DefaultClientConfig returns a configuration connecting to DefaultEndpoint
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Endpoint:      DefaultEndpoint,
		TimeoutSecond: 5,
		MaxRedirects:  DefaultMaxRedirects,
		Transport:     DefaultTransportConf(),
	}
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder
	addSection, addField := formatter(&sb)

	addSection("Client Configuration")
	addField("Endpoint", c.Endpoint)
	addField("Timeout", secondsOrOff(c.TimeoutSecond))
	addField("Max Redirects", strconv.Itoa(c.MaxRedirects))

	addSection("Transport")
	c.Transport.addFields(addField)

	return sb.String()
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func formatter(sb *strings.Builder) (addSection func(string), addField func(name, value string)) {
	addSection = func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}
	addField = func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}
	return addSection, addField
}

func secondsOrOff(seconds int64) string {
	if seconds <= 0 {
		return "off"
	}
	return fmt.Sprintf("%d sec", seconds)
}

func bytesOrDefault(size int) string {
	if size <= 0 {
		return "os default"
	}
	return fmt.Sprintf("%d bytes", size)
}
