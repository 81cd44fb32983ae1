package command

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vivskv/vivs/lib/cluster"
	"github.com/vivskv/vivs/lib/frame"
	"github.com/vivskv/vivs/lib/store"
	"github.com/vivskv/vivs/lib/store/lstore"
)

const (
	self   = "127.0.0.1:6379"
	remote = "127.0.0.1:6380"
)

type testEnv struct {
	ctx   *Context
	clock *store.ManualClock
}

func newTestEnv(t *testing.T, slots *cluster.SlotTable) testEnv {
	t.Helper()
	clock := store.NewManualClock(1_700_000_000)
	return testEnv{
		ctx: &Context{
			Store:   lstore.NewLocalStore(clock),
			Slots:   slots,
			Session: NewSession(),
			Peer:    "127.0.0.1:50000",
		},
		clock: clock,
	}
}

func (e testEnv) do(args ...string) frame.Frame {
	_, resp := Dispatch(e.ctx, frame.Command(args...))
	return resp
}

func twoNodeTable(t *testing.T) *cluster.SlotTable {
	t.Helper()
	table, err := cluster.NewSlotTable(self, map[string]cluster.SlotRange{
		self:   {Start: 0, End: 8192},
		remote: {Start: 8192, End: cluster.NumSlots},
	})
	require.NoError(t, err)
	return table
}

// keysBySlotOwner returns one key owned by self and one owned by remote
func keysBySlotOwner(t *testing.T, table *cluster.SlotTable) (local, foreign string) {
	t.Helper()
	for i := 0; local == "" || foreign == ""; i++ {
		key := fmt.Sprintf("key-%d", i)
		if _, _, owned := table.Owns(key); owned {
			if local == "" {
				local = key
			}
		} else if foreign == "" {
			foreign = key
		}
	}
	return local, foreign
}

func assertFrame(t *testing.T, expected, actual frame.Frame) {
	t.Helper()
	assert.True(t, expected.Equal(actual), "expected %s, got %s", expected, actual)
}

// --------------------------------------------------------------------------
// Parsing
// --------------------------------------------------------------------------

func TestParseVerbs(t *testing.T) {
	tests := []struct {
		args []string
		verb Verb
	}{
		{[]string{"PING"}, VerbPing},
		{[]string{"ping", "hi"}, VerbPing},
		{[]string{"Get", "k"}, VerbGet},
		{[]string{"SET", "k", "v"}, VerbSet},
		{[]string{"set", "k", "v", "XS", "10"}, VerbSet},
		{[]string{"DELETE", "k"}, VerbDelete},
		{[]string{"TTL", "k"}, VerbTTL},
		{[]string{"ASKING"}, VerbAsking},
		{[]string{"FLUSHALL"}, VerbUnknown},
		{[]string{}, VerbNone},
	}

	for _, tt := range tests {
		cmd, err := Parse(frame.Command(tt.args...))
		require.NoError(t, err, "args %v", tt.args)
		assert.Equal(t, tt.verb, cmd.Verb(), "args %v", tt.args)
	}
}

func TestParseArguments(t *testing.T) {
	cmd, err := Parse(frame.Command("SET", "k", "v", "xs", "42"))
	require.NoError(t, err)
	set := cmd.(*Set)
	assert.Equal(t, "k", set.Key)
	assert.Equal(t, "v", set.Value)
	assert.True(t, set.HasTTL)
	assert.Equal(t, uint64(42), set.TTL)
	assert.NoError(t, set.err)

	cmd, err = Parse(frame.Command("PING", "hello"))
	require.NoError(t, err)
	assert.Equal(t, &Ping{Message: "hello", HasMessage: true}, cmd)

	cmd, err = Parse(frame.Command("frob", "x"))
	require.NoError(t, err)
	assert.Equal(t, &Unknown{Name: "frob"}, cmd)
}

func TestParseDefersArgumentCount(t *testing.T) {
	for _, args := range [][]string{
		{"GET"}, {"GET", "a", "b"}, {"SET", "k"}, {"SET", "k", "v", "xs"},
		{"DELETE"}, {"TTL"}, {"PING", "a", "b"}, {"ASKING", "x"},
	} {
		cmd, err := Parse(frame.Command(args...))
		require.NoError(t, err, "args %v", args)

		resp := Execute(&Context{Session: NewSession()}, cmd)
		require.True(t, resp.IsError(), "args %v", args)
		assert.Contains(t, resp.Text(), "wrong number of arguments", "args %v", args)
	}
}

func TestParseErrors(t *testing.T) {
	_, err := Parse(frame.Array(frame.BulkString("GET"), frame.Bulk([]byte{0xff, 0xfe})))
	assert.ErrorIs(t, err, ErrInvalidArgumentEncoding)

	_, err = Parse(frame.SimpleString("PING"))
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = Parse(frame.Array(frame.BulkString("GET"), frame.Integer(1)))
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

// --------------------------------------------------------------------------
// Execution
// --------------------------------------------------------------------------

func TestPing(t *testing.T) {
	env := newTestEnv(t, nil)
	assertFrame(t, frame.SimpleString("PONG"), env.do("PING"))
	assertFrame(t, frame.SimpleString("hi"), env.do("PING", "hi"))
}

func TestSetGet(t *testing.T) {
	env := newTestEnv(t, nil)

	assertFrame(t, frame.Null(), env.do("GET", "greeting"))
	assertFrame(t, frame.SimpleString("OK"), env.do("SET", "greeting", "hello"))
	assertFrame(t, frame.SimpleString("hello"), env.do("GET", "greeting"))

	// overwrite
	assertFrame(t, frame.SimpleString("OK"), env.do("SET", "greeting", "hi"))
	assertFrame(t, frame.SimpleString("hi"), env.do("GET", "greeting"))

	// values that can not be simple strings are sent as bulk
	assertFrame(t, frame.SimpleString("OK"), env.do("SET", "multi", "line\r\nvalue"))
	assertFrame(t, frame.BulkString("line\r\nvalue"), env.do("GET", "multi"))
}

func TestSetInvalidOptions(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.do("SET", "k", "v", "xs", "soon")
	require.True(t, resp.IsError())
	assert.Contains(t, resp.Text(), ErrNotInteger.Error())

	resp = env.do("SET", "k", "v", "px", "10")
	require.True(t, resp.IsError())
	assert.Contains(t, resp.Text(), "syntax error")

	// nothing was written
	assertFrame(t, frame.Null(), env.do("GET", "k"))
}

func TestDelete(t *testing.T) {
	env := newTestEnv(t, nil)

	assertFrame(t, frame.Integer(0), env.do("DELETE", "k"))
	assertFrame(t, frame.Integer(0), env.do("DELETE", "k"))

	env.do("SET", "k", "v")
	assertFrame(t, frame.Integer(1), env.do("DELETE", "k"))
	assertFrame(t, frame.Null(), env.do("GET", "k"))
	assertFrame(t, frame.Integer(0), env.do("DELETE", "k"))
}

func TestTTL(t *testing.T) {
	env := newTestEnv(t, nil)

	assertFrame(t, frame.Integer(0), env.do("TTL", "missing"))

	env.do("SET", "k", "v", "xs", "100")
	assertFrame(t, frame.Integer(100), env.do("TTL", "k"))

	env.clock.Advance(30)
	assertFrame(t, frame.Integer(70), env.do("TTL", "k"))

	env.clock.Advance(70)
	assertFrame(t, frame.Null(), env.do("GET", "k"))
	assertFrame(t, frame.Integer(0), env.do("TTL", "k"))
}

func TestZeroTTLExpiresImmediately(t *testing.T) {
	env := newTestEnv(t, nil)

	assertFrame(t, frame.SimpleString("OK"), env.do("SET", "k", "v", "xs", "0"))
	env.clock.Advance(1)
	assertFrame(t, frame.Null(), env.do("GET", "k"))
	assertFrame(t, frame.Integer(0), env.do("TTL", "k"))
}

func TestOverwriteResetsTTL(t *testing.T) {
	env := newTestEnv(t, nil)

	env.do("SET", "k", "v1", "xs", "1000")
	env.do("SET", "k", "v2")
	env.clock.Advance(2000)
	assertFrame(t, frame.SimpleString("v2"), env.do("GET", "k"))
}

func TestUnknownAndNone(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.do("FLUSHALL")
	require.True(t, resp.IsError())
	assert.Equal(t, "ERR unknown command 'flushall'", resp.Text())

	resp = env.do()
	require.True(t, resp.IsError())
	assert.Equal(t, "ERR empty command", resp.Text())
}

func TestLongTextStaysOnOneLine(t *testing.T) {
	env := newTestEnv(t, nil)

	long := strings.Repeat("v", frame.MaxLineLength+1)
	env.do("SET", "k", long)
	assertFrame(t, frame.BulkString(long), env.do("GET", "k"))
	assertFrame(t, frame.BulkString(long), env.do("PING", long))

	fits := strings.Repeat("v", frame.MaxLineLength)
	env.do("SET", "k", fits)
	assertFrame(t, frame.SimpleString(fits), env.do("GET", "k"))

	resp := env.do(strings.Repeat("x", 100_000))
	require.True(t, resp.IsError())
	assert.Less(t, len(resp.Data), 512)
	require.NoError(t, resp.Validate())

	resp = env.do("SET", "k", "v", strings.Repeat("y", 100_000), "1")
	require.True(t, resp.IsError())
	require.NoError(t, resp.Validate())
}

func TestStoreErrorsBecomeErrorFrames(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do("SET", "k", "v")

	env.clock.Fail(errors.New("clock\r\nbroken"))
	resp := env.do("GET", "k")
	require.True(t, resp.IsError())
	assert.Contains(t, resp.Text(), "ERR internal error")
	assert.NotContains(t, resp.Text(), "\n")

	env.clock.Fail(nil)
	assertFrame(t, frame.SimpleString("v"), env.do("GET", "k"))
}

// --------------------------------------------------------------------------
// Slot Routing
// --------------------------------------------------------------------------

func TestGetRedirectsForeignKeys(t *testing.T) {
	table := twoNodeTable(t)
	env := newTestEnv(t, table)
	local, foreign := keysBySlotOwner(t, table)

	// the store is never consulted for foreign keys: a value written there stays invisible
	require.NoError(t, env.ctx.Store.Set(foreign, []byte("shadow")))

	resp := env.do("GET", foreign)
	slot, addr, ok := ParseAsk(resp)
	require.True(t, ok, "expected ASK redirect, got %s", resp)
	assert.Equal(t, cluster.Slot(foreign), slot)
	assert.Equal(t, remote, addr)
	assert.Equal(t, fmt.Sprintf("ASK %d %s", slot, remote), resp.Text())

	env.do("SET", local, "v")
	assertFrame(t, frame.SimpleString("v"), env.do("GET", local))
}

func TestAskingAllowsExactlyOneCommand(t *testing.T) {
	table := twoNodeTable(t)
	env := newTestEnv(t, table)
	_, foreign := keysBySlotOwner(t, table)
	env.do("SET", foreign, "migrated")

	assertFrame(t, frame.SimpleString("OK"), env.do("ASKING"))
	assert.True(t, env.ctx.Session.Asking())
	assertFrame(t, frame.SimpleString("migrated"), env.do("GET", foreign))
	assert.False(t, env.ctx.Session.Asking())

	// consumed: the next GET is redirected again
	_, _, ok := ParseAsk(env.do("GET", foreign))
	assert.True(t, ok)

	// any other command consumes the flag as well
	env.do("ASKING")
	env.do("PING")
	_, _, ok = ParseAsk(env.do("GET", foreign))
	assert.True(t, ok)

	// so does a request that can not be parsed
	env.do("ASKING")
	Dispatch(env.ctx, frame.SimpleString("garbage"))
	_, _, ok = ParseAsk(env.do("GET", foreign))
	assert.True(t, ok)
}

func TestAskingIsPerSession(t *testing.T) {
	table := twoNodeTable(t)
	env := newTestEnv(t, table)
	_, foreign := keysBySlotOwner(t, table)

	env.do("ASKING")

	other := *env.ctx
	other.Session = NewSession()
	_, resp := Dispatch(&other, frame.Command("GET", foreign))
	_, _, ok := ParseAsk(resp)
	assert.True(t, ok)
}

func TestParseAsk(t *testing.T) {
	slot, addr, ok := ParseAsk(AskFrame(1234, "10.0.0.1:7000"))
	require.True(t, ok)
	assert.Equal(t, uint16(1234), slot)
	assert.Equal(t, "10.0.0.1:7000", addr)

	for _, f := range []frame.Frame{
		frame.SimpleString("ASK 1 a:1"),
		frame.SimpleError("ERR ASK"),
		frame.SimpleError("ASK x a:1"),
		frame.SimpleError("ASK 1"),
		frame.SimpleError("ASK 99999 a:1"),
	} {
		_, _, ok := ParseAsk(f)
		assert.False(t, ok, "%s", f)
	}
}
