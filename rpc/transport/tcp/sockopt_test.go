package tcp

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vivskv/vivs/rpc/common"
)

func optionNames(opts []socketOption) []string {
	names := make([]string, len(opts))
	for i, opt := range opts {
		names[i] = opt.name
	}
	return names
}

func TestSocketOptions(t *testing.T) {
	assert.Equal(t, []string{"nodelay", "keepalive"}, optionNames(socketOptions(common.DefaultTransportConf())))

	config := common.DefaultTransportConf()
	config.WriteBufferSize = 1 << 16
	config.ReadBufferSize = 1 << 16
	config.TCPKeepAliveSec = 0
	config.TCPLingerSec = 0
	assert.Equal(t, []string{"nodelay", "write buffer", "read buffer", "linger"}, optionNames(socketOptions(config)))
}

func TestUpgradeConnection(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := listener.Accept()
		if err == nil {
			accepted <- conn
		}
	}()

	client, err := net.Dial("tcp", listener.Addr().String())
	require.NoError(t, err)
	defer client.Close()
	server := <-accepted
	defer server.Close()

	config := common.DefaultTransportConf()
	config.WriteBufferSize = 1 << 16
	config.ReadBufferSize = 1 << 16
	config.TCPLingerSec = 1
	assert.NoError(t, upgradeConnection(client, config))
	assert.NoError(t, upgradeConnection(server, config))

	// anything but TCP is left alone
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()
	assert.NoError(t, upgradeConnection(a, config))
}
