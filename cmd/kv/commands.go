package kv

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vivskv/vivs/cmd/util"
)

var (
	pingCmd = &cobra.Command{
		Use:   "ping [message]",
		Short: "Checks that the node answers",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := rpcClient.Ping(cmd.Context(), args...)
			if err != nil {
				return err
			}
			fmt.Println(resp)
			return nil
		},
	}
	setCmd = &cobra.Command{
		Use:   "set [key] [value]",
		Short: "Sets the value for a key",
		Long:  "Sets the value for a key. Without --ttl a previous expiry of the key is removed.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]
			ttl, err := cmd.Flags().GetUint64("ttl")
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("ttl") {
				err = rpcClient.SetWithTTL(cmd.Context(), key, value, ttl)
			} else {
				err = rpcClient.Set(cmd.Context(), key, value)
			}
			if err != nil {
				return err
			}
			fmt.Println("OK")
			return nil
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Reads the value for a key (following redirects)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			value, found, err := rpcClient.Get(cmd.Context(), key)
			if err != nil {
				return err
			}
			if !found {
				fmt.Println("(nil)")
				return nil
			}
			fmt.Println(string(value))
			return nil
		},
	}
	delCmd = &cobra.Command{
		Use:     "del [key]",
		Aliases: []string{"delete"},
		Short:   "Deletes a key value pair",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deleted, err := rpcClient.Delete(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if deleted {
				fmt.Println("(integer) 1")
			} else {
				fmt.Println("(integer) 0")
			}
			return nil
		},
	}
	ttlCmd = &cobra.Command{
		Use:   "ttl [key]",
		Short: "Prints the remaining seconds until a key expires (0 if it never expires or does not exist)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ttl, err := rpcClient.TTL(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("(integer) %d\n", ttl)
			return nil
		},
	}
)

func init() {
	setCmd.Flags().Uint64("ttl", 0, util.WrapString("Expire the key after this many seconds"))
}
