package serve

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	cmdUtil "github.com/vivskv/vivs/cmd/util"
	"github.com/vivskv/vivs/lib/store/lstore"
	"github.com/vivskv/vivs/rpc/common"
	"github.com/vivskv/vivs/rpc/server"
	"github.com/vivskv/vivs/rpc/transport/tcp"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:   "serve",
		Short: "Start a vivs node",
		Long: `Start a vivs node with the specified configuration. The configuration can be set via command line flags or environment variables. The format of the environment variables is VIVS_<flag> (e.g. VIVS_CLUSTER_CONFIG=cluster.toml).

Without --cluster-config the node serves every key itself. With a cluster configuration GET requests for keys owned by other nodes are answered with an ASK redirect.`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(cmdUtil.InitConfig)

	// add flags
	key := "endpoint"
	ServeCmd.PersistentFlags().String(key, common.DefaultEndpoint, cmdUtil.WrapString("The address (host:port) the node listens on"))

	key = "cluster-config"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Path of the TOML file assigning slot ranges to nodes. Format: [\"<ip>:<port>\"] position = [start, end]. Leave empty to run standalone"))

	key = "cluster-address"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("The address of this node in the cluster configuration (defaults to --endpoint)"))

	key = "timeout"
	ServeCmd.PersistentFlags().Int64(key, 0, cmdUtil.WrapString("Closes connections that do not send or receive anything for this many seconds (0 disables the timeout)"))

	key = "metrics-endpoint"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("The address (host:port) to serve prometheus metrics on under /metrics (empty disables metrics)"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, "info", cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))

	cmdUtil.SetupTransportFlags(ServeCmd)
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := cmdUtil.BindCommandFlags(cmd); err != nil {
		return err
	}

	serveCmdConfig.Endpoint = viper.GetString("endpoint")
	serveCmdConfig.ClusterConfig = viper.GetString("cluster-config")
	serveCmdConfig.ClusterAddress = viper.GetString("cluster-address")
	serveCmdConfig.TimeoutSecond = viper.GetInt64("timeout")
	serveCmdConfig.MetricsEndpoint = viper.GetString("metrics-endpoint")
	serveCmdConfig.LogLevel = viper.GetString("log-level")
	serveCmdConfig.Transport = cmdUtil.GetTransportConf()

	if serveCmdConfig.Endpoint == "" {
		return fmt.Errorf("endpoint must not be empty")
	}
	if serveCmdConfig.TimeoutSecond < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	if serveCmdConfig.ClusterConfig != "" {
		if _, err := os.Stat(serveCmdConfig.ClusterConfig); err != nil {
			return fmt.Errorf("cluster configuration: %w", err)
		}
	}

	return common.InitLoggers(serveCmdConfig.LogLevel)
}

// run starts the node and blocks until it receives SIGINT or SIGTERM
func run(_ *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serv := server.NewServer(
		*serveCmdConfig,
		tcp.NewTCPServerTransport(),
		lstore.NewLocalStore(nil),
	)

	return serv.Serve(ctx)
}
