package util

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/vivskv/vivs/rpc/client"
	"github.com/vivskv/vivs/rpc/common"
	"github.com/vivskv/vivs/rpc/transport/tcp"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50

	// EnvPrefix is the prefix of all environment variables (VIVS_<FLAG>)
	EnvPrefix = "vivs"
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// --------------------------------------------------------------------------
// Flags
// --------------------------------------------------------------------------

// SetupTransportFlags adds the socket tuning flags shared by server and client
func SetupTransportFlags(cmd *cobra.Command) {
	defaults := common.DefaultTransportConf()

	key := "transport-write-buffer"
	cmd.PersistentFlags().Int(key, 0, WrapString("The size of the socket write buffer in KB (0 keeps the OS default)"))

	key = "transport-read-buffer"
	cmd.PersistentFlags().Int(key, 0, WrapString("The size of the socket read buffer in KB (0 keeps the OS default)"))

	key = "transport-tcp-nodelay"
	cmd.PersistentFlags().Bool(key, defaults.TCPNoDelay, WrapString("Whether to enable TCP_NODELAY"))

	key = "transport-tcp-keepalive"
	cmd.PersistentFlags().Int(key, defaults.TCPKeepAliveSec, WrapString("The keepalive interval in seconds (0 disables keepalive)"))

	key = "transport-tcp-linger"
	cmd.PersistentFlags().Int(key, defaults.TCPLingerSec, WrapString("The linger time in seconds (negative keeps the OS default)"))
}

// SetupRPCClientFlags adds the connection flags of all client commands
func SetupRPCClientFlags(cmd *cobra.Command) {
	defaults := common.DefaultClientConfig()

	key := "endpoint"
	cmd.PersistentFlags().StringP(key, "e", defaults.Endpoint, WrapString("The address of the node requests are sent to first"))

	key = "timeout"
	cmd.PersistentFlags().Int64(key, defaults.TimeoutSecond, WrapString("The timeout in seconds of a request (0 disables the timeout)"))

	key = "max-redirects"
	cmd.PersistentFlags().Int(key, defaults.MaxRedirects, WrapString("How many ASK redirects are followed per request"))

	key = "log-level"
	cmd.PersistentFlags().String(key, "warn", WrapString("The level at which logs will be output (debug, info, warn, error)"))

	SetupTransportFlags(cmd)
}

// --------------------------------------------------------------------------
// Configuration
// --------------------------------------------------------------------------

// InitConfig loads .env files and sets up viper to read VIVS_* environment variables
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// GetTransportConf reads the transport flags from viper
func GetTransportConf() common.TransportConf {
	return common.TransportConf{
		SocketConf: common.SocketConf{
			WriteBufferSize: viper.GetInt("transport-write-buffer") * 1024,
			ReadBufferSize:  viper.GetInt("transport-read-buffer") * 1024,
		},
		TCPConf: common.TCPConf{
			TCPNoDelay:      viper.GetBool("transport-tcp-nodelay"),
			TCPKeepAliveSec: viper.GetInt("transport-tcp-keepalive"),
			TCPLingerSec:    viper.GetInt("transport-tcp-linger"),
		},
	}
}

// GetClientConfig reads client configuration from viper
func GetClientConfig() common.ClientConfig {
	return common.ClientConfig{
		Endpoint:      viper.GetString("endpoint"),
		TimeoutSecond: viper.GetInt64("timeout"),
		MaxRedirects:  viper.GetInt("max-redirects"),
		Transport:     GetTransportConf(),
	}
}

// NewClient initializes the loggers and connects a client configured from viper
func NewClient() (*client.Client, error) {
	if err := common.InitLoggers(viper.GetString("log-level")); err != nil {
		return nil, err
	}
	return client.NewClient(GetClientConfig(), tcp.NewTCPClientTransport)
}

// SetMaxRedirects overrides the configured number of redirects a client follows
func SetMaxRedirects(n int) {
	viper.Set("max-redirects", n)
}
