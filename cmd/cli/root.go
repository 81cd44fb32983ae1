package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vivskv/vivs/cmd/util"
	"github.com/vivskv/vivs/lib/frame"
	"github.com/vivskv/vivs/rpc/client"
)

// CliCmd starts an interactive session
var CliCmd = &cobra.Command{
	Use:   "cli",
	Short: "Interactive shell to send commands to a vivs node",
	Long: `Reads one command per line and prints the response, e.g.

  > SET greeting "hello world" xs 60
  OK
  > GET greeting
  hello world

Redirects are followed automatically unless --raw is set, in which case the
ASK response is printed as is. Type "quit" or press Ctrl-D to leave.`,
	Args: cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		return util.BindCommandFlags(cmd)
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		raw, err := cmd.Flags().GetBool("raw")
		if err != nil {
			return err
		}
		if raw {
			util.SetMaxRedirects(0)
		}

		c, err := util.NewClient()
		if err != nil {
			return err
		}
		defer c.Close()

		return repl(cmd.Context(), c, os.Stdin, cmd.OutOrStdout())
	},
}

func init() {
	cobra.OnInitialize(util.InitConfig)
	util.SetupRPCClientFlags(CliCmd)
	CliCmd.Flags().Bool("raw", false, util.WrapString("Do not follow ASK redirects"))
}

// repl reads commands from in until EOF or "quit" and writes the responses to out
func repl(ctx context.Context, c *client.Client, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), frame.MaxBulkLength)
	endpoint := c.Config().Endpoint

	for {
		fmt.Fprintf(out, "%s> ", endpoint)
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			return nil
		}

		args, err := SplitArgs(line)
		if err != nil {
			fmt.Fprintf(out, "(error) %v\n", err)
			continue
		}

		// an unfollowed redirect comes with an error, show the redirect itself
		resp, err := c.Do(ctx, args...)
		if err != nil && !resp.IsError() {
			fmt.Fprintf(out, "(error) %v\n", err)
			continue
		}
		fmt.Fprintln(out, resp)
	}
}

// SplitArgs splits a command line into arguments. Double quotes group words
// and support the escapes \" \\ \n \r and \t. Single quotes group words
// without escapes.
func SplitArgs(line string) ([]string, error) {
	var (
		args    []string
		current strings.Builder
		inArg   bool
		quote   rune
		escaped bool
	)

	for _, r := range line {
		switch {
		case escaped:
			switch r {
			case 'n':
				current.WriteRune('\n')
			case 'r':
				current.WriteRune('\r')
			case 't':
				current.WriteRune('\t')
			default:
				current.WriteRune(r)
			}
			escaped = false
		case quote == '"' && r == '\\':
			escaped = true
		case quote != 0 && r == quote:
			quote = 0
		case quote != 0:
			current.WriteRune(r)
		case r == '"' || r == '\'':
			quote = r
			inArg = true
		case r == ' ' || r == '\t':
			if inArg {
				args = append(args, current.String())
				current.Reset()
				inArg = false
			}
		default:
			current.WriteRune(r)
			inArg = true
		}
	}

	if quote != 0 || escaped {
		return nil, fmt.Errorf("unbalanced quotes")
	}
	if inArg {
		args = append(args, current.String())
	}
	return args, nil
}
