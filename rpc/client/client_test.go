package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vivskv/vivs/lib/cluster"
	"github.com/vivskv/vivs/lib/frame"
	"github.com/vivskv/vivs/lib/store"
	"github.com/vivskv/vivs/lib/store/lstore"
	"github.com/vivskv/vivs/rpc/common"
	"github.com/vivskv/vivs/rpc/server"
	"github.com/vivskv/vivs/rpc/transport/tcp"
)

// startCluster runs len(ranges) nodes; node i owns ranges[i]
func startCluster(t *testing.T, ranges ...cluster.SlotRange) []string {
	t.Helper()

	servers := make([]*server.Server, len(ranges))
	addrs := make([]string, len(ranges))
	for i := range ranges {
		config := common.DefaultServerConfig()
		config.Endpoint = "127.0.0.1:0"
		servers[i] = server.NewServer(config, tcp.NewTCPServerTransport(), lstore.NewLocalStore(nil))
		require.NoError(t, servers[i].Listen())
		addrs[i] = servers[i].Addr().String()
	}

	if len(ranges) > 1 {
		layout := map[string]cluster.SlotRange{}
		for i, r := range ranges {
			layout[addrs[i]] = r
		}
		for i, s := range servers {
			table, err := cluster.NewSlotTable(addrs[i], layout)
			require.NoError(t, err)
			s.SetSlotTable(table)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	for _, s := range servers {
		wg.Add(1)
		go func(s *server.Server) {
			defer wg.Done()
			assert.NoError(t, s.Serve(ctx))
		}(s)
	}
	t.Cleanup(func() {
		cancel()
		wg.Wait()
	})
	return addrs
}

func newClient(t *testing.T, endpoint string) *Client {
	t.Helper()
	config := common.DefaultClientConfig()
	config.Endpoint = endpoint
	c, err := NewClient(config, tcp.NewTCPClientTransport)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

// keyInUpperHalf returns a key whose slot is >= 8192
func keyInUpperHalf() string {
	for i := 0; ; i++ {
		key := fmt.Sprintf("user:%d", i)
		if cluster.Slot(key) >= 8192 {
			return key
		}
	}
}

var (
	lowerHalf = cluster.SlotRange{Start: 0, End: 8192}
	upperHalf = cluster.SlotRange{Start: 8192, End: cluster.NumSlots}
	allSlots  = cluster.SlotRange{Start: 0, End: cluster.NumSlots}
)

func TestCommands(t *testing.T) {
	addrs := startCluster(t, allSlots)
	c := newClient(t, addrs[0])
	ctx := context.Background()

	pong, err := c.Ping(ctx)
	require.NoError(t, err)
	assert.Equal(t, "PONG", pong)

	echo, err := c.Ping(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", echo)

	_, found, err := c.Get(ctx, "greeting")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.Set(ctx, "greeting", "hello"))
	value, found, err := c.Get(ctx, "greeting")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("hello"), value)

	ttl, err := c.TTL(ctx, "greeting")
	require.NoError(t, err)
	assert.Zero(t, ttl)

	require.NoError(t, c.SetWithTTL(ctx, "greeting", "hi", 3600))
	ttl, err = c.TTL(ctx, "greeting")
	require.NoError(t, err)
	assert.InDelta(t, 3600, ttl, 2)

	deleted, err := c.Delete(ctx, "greeting")
	require.NoError(t, err)
	assert.True(t, deleted)
	deleted, err = c.Delete(ctx, "greeting")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestMultilineValues(t *testing.T) {
	addrs := startCluster(t, allSlots)
	c := newClient(t, addrs[0])
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "poem", "roses are red\r\nviolets are blue"))
	value, found, err := c.Get(ctx, "poem")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "roses are red\r\nviolets are blue", string(value))
}

func TestServerErrors(t *testing.T) {
	addrs := startCluster(t, allSlots)
	c := newClient(t, addrs[0])
	ctx := context.Background()

	resp, err := c.Do(ctx, "GET")
	require.NoError(t, err)
	assert.True(t, resp.IsError())

	resp, err = c.Do(ctx, "NOPE")
	require.NoError(t, err)
	assert.Equal(t, "ERR unknown command 'nope'", resp.Text())

	_, err = c.Ping(ctx, "a", "b")
	assert.Error(t, err)

	resp, err = c.Do(ctx, "SET", "k", "v", "xs", "never")
	require.NoError(t, err)
	var respErr *ResponseError
	assert.True(t, errors.As(expect(resp), &respErr))
}

func TestFollowsRedirect(t *testing.T) {
	addrs := startCluster(t, lowerHalf, upperHalf)
	key := keyInUpperHalf()
	ctx := context.Background()

	// SET is not routed: write the key on its owner directly
	owner := newClient(t, addrs[1])
	require.NoError(t, owner.Set(ctx, key, "on node b"))

	c := newClient(t, addrs[0])
	value, found, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "on node b", string(value))

	// the redirect opened a pooled connection to the owner
	_, ok := c.nodes.Load(addrs[1])
	assert.True(t, ok)

	// Do follows the redirect as well
	resp, err := c.Do(ctx, "GET", key)
	require.NoError(t, err)
	assert.Equal(t, "on node b", resp.Text())
}

func TestRedirectLimit(t *testing.T) {
	addrs := startCluster(t, lowerHalf, upperHalf)
	key := keyInUpperHalf()

	config := common.DefaultClientConfig()
	config.Endpoint = addrs[0]
	config.MaxRedirects = 0
	c, err := NewClient(config, tcp.NewTCPClientTransport)
	require.NoError(t, err)
	defer c.Close()

	resp, err := c.Do(context.Background(), "GET", key)
	assert.ErrorIs(t, err, ErrTooManyRedirects)
	slot, target, ok := parseAskForTest(resp)
	require.True(t, ok)
	assert.Equal(t, cluster.Slot(key), slot)
	assert.Equal(t, addrs[1], target)
}

func parseAskForTest(resp frame.Frame) (uint16, string, bool) {
	var slot uint16
	var target string
	_, err := fmt.Sscanf(resp.Text(), "ASK %d %s", &slot, &target)
	return slot, target, err == nil && resp.IsError()
}

func TestRedirectToUnreachableNode(t *testing.T) {
	// a node whose table names a peer nobody listens on
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	dead := listener.Addr().String()
	listener.Close()

	config := common.DefaultServerConfig()
	config.Endpoint = "127.0.0.1:0"
	s := server.NewServer(config, tcp.NewTCPServerTransport(), lstore.NewLocalStore(nil))
	require.NoError(t, s.Listen())
	self := s.Addr().String()
	table, err := cluster.NewSlotTable(self, map[string]cluster.SlotRange{self: lowerHalf, dead: upperHalf})
	require.NoError(t, err)
	s.SetSlotTable(table)

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

	c := newClient(t, self)
	_, _, err = c.Get(context.Background(), keyInUpperHalf())
	assert.ErrorContains(t, err, dead)
}

func TestConcurrentRedirects(t *testing.T) {
	addrs := startCluster(t, lowerHalf, upperHalf)
	key := keyInUpperHalf()
	ctx := context.Background()

	require.NoError(t, newClient(t, addrs[1]).Set(ctx, key, "v"))
	c := newClient(t, addrs[0])

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				value, found, err := c.Get(ctx, key)
				if !assert.NoError(t, err) {
					return
				}
				assert.True(t, found)
				assert.Equal(t, "v", string(value))

				pong, err := c.Ping(ctx)
				assert.NoError(t, err)
				assert.Equal(t, "PONG", pong)
			}
		}()
	}
	wg.Wait()
}

func TestClose(t *testing.T) {
	addrs := startCluster(t, allSlots)
	c := newClient(t, addrs[0])

	require.NoError(t, c.Close())
	_, err := c.Ping(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	assert.NoError(t, c.Close())
}

func TestNewClientFailsWithoutServer(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	listener.Close()

	config := common.DefaultClientConfig()
	config.Endpoint = addr
	config.TimeoutSecond = 1
	_, err = NewClient(config, tcp.NewTCPClientTransport)
	assert.Error(t, err)

	config.Endpoint = ""
	_, err = NewClient(config, tcp.NewTCPClientTransport)
	assert.Error(t, err)
}

func TestRPCStore(t *testing.T) {
	addrs := startCluster(t, allSlots)
	s := NewRPCStore(newClient(t, addrs[0]))

	require.NoError(t, s.Set("k", []byte("v")))
	value, found, err := s.Get("k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("v"), value)

	require.NoError(t, s.SetE("k", []byte("v2"), 100))
	ttl, err := s.TTL("k")
	require.NoError(t, err)
	assert.InDelta(t, 100, ttl, 2)

	deleted, err := s.Delete("k")
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = s.GetInfo()
	var storeErr *store.Error
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, store.RetCInvalidOperation, storeErr.Code)
}
