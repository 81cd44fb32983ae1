package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vivskv/vivs/lib/store/lstore"
	"github.com/vivskv/vivs/rpc/client"
	"github.com/vivskv/vivs/rpc/common"
	"github.com/vivskv/vivs/rpc/server"
	"github.com/vivskv/vivs/rpc/transport/tcp"
)

func TestSplitArgs(t *testing.T) {
	tests := map[string][]string{
		"PING":                       {"PING"},
		"  SET   k   v  ":            {"SET", "k", "v"},
		`SET greeting "hello world"`: {"SET", "greeting", "hello world"},
		`SET k "line\r\nbreak"`:      {"SET", "k", "line\r\nbreak"},
		`SET k 'no \n escape'`:       {"SET", "k", `no \n escape`},
		`SET k ""`:                   {"SET", "k", ""},
		`SET k "say \"hi\""`:         {"SET", "k", `say "hi"`},
		"SET k v xs 10":              {"SET", "k", "v", "xs", "10"},
		"":                           nil,
		`GET pre"fix"`:               {"GET", "prefix"},
	}

	for line, expected := range tests {
		args, err := SplitArgs(line)
		require.NoError(t, err, line)
		assert.Equal(t, expected, args, line)
	}
}

func TestSplitArgsUnbalanced(t *testing.T) {
	for _, line := range []string{`SET k "open`, `SET k 'open`, `SET k "trailing\`} {
		_, err := SplitArgs(line)
		assert.Error(t, err, line)
	}
}

func TestRepl(t *testing.T) {
	config := common.DefaultServerConfig()
	config.Endpoint = "127.0.0.1:0"
	s := server.NewServer(config, tcp.NewTCPServerTransport(), lstore.NewLocalStore(nil))
	require.NoError(t, s.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Serve(ctx)
	}()
	defer func() {
		cancel()
		<-done
	}()

	clientConfig := common.DefaultClientConfig()
	clientConfig.Endpoint = s.Addr().String()
	c, err := client.NewClient(clientConfig, tcp.NewTCPClientTransport)
	require.NoError(t, err)
	defer c.Close()

	in := strings.NewReader(strings.Join([]string{
		"PING",
		`SET greeting "hello world"`,
		"GET greeting",
		"",
		"DELETE greeting",
		"GET greeting",
		"SET k \"open",
		"NOPE",
		"quit",
		"PING",
	}, "\n"))
	var out bytes.Buffer
	require.NoError(t, repl(context.Background(), c, in, &out))

	prompt := clientConfig.Endpoint + "> "
	lines := strings.Split(strings.ReplaceAll(out.String(), prompt, ""), "\n")
	assert.Equal(t, []string{
		"PONG",
		"OK",
		"hello world",
		"(integer) 1",
		"(nil)",
		"(error) unbalanced quotes",
		"(error) ERR unknown command 'nope'",
		"",
	}, lines)
}
