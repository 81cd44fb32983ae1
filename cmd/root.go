package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/vivskv/vivs/cmd/cli"
	"github.com/vivskv/vivs/cmd/kv"
	"github.com/vivskv/vivs/cmd/serve"
)

const (
	Version = "0.3.0"
)

var (
	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "vivs",
		Short: "cluster-aware in-memory key-value server",
		Long: fmt.Sprintf(`vivs (v%s)

An in-memory key-value server speaking a RESP-like protocol. Keys can
expire (lazily, on access) and the key space is split into 16384 slots
that are assigned to nodes by a cluster configuration file. Nodes answer
requests for foreign slots with an ASK redirect.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of vivs",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("vivs v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(kv.KeyValueCommands)
	RootCmd.AddCommand(cli.CliCmd)
	RootCmd.AddCommand(versionCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
