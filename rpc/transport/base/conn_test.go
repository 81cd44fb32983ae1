package base

import (
	"bytes"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vivskv/vivs/lib/frame"
	"github.com/vivskv/vivs/rpc/transport"
)

// pipe returns a frameConn reading from the server end of a net.Pipe and the client end
func pipe(t *testing.T, bufferSize int) (*frameConn, net.Conn) {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() {
		server.Close()
		client.Close()
	})
	fc := newFrameConn(server, newBufferPool(bufferSize), 5*time.Second)
	t.Cleanup(fc.release)
	return fc, client
}

// writeChunks writes data in chunks of the given size and closes the conn if requested
func writeChunks(conn net.Conn, data []byte, chunk int, closeAfter bool) {
	go func() {
		for len(data) > 0 {
			n := min(chunk, len(data))
			if _, err := conn.Write(data[:n]); err != nil {
				return
			}
			data = data[n:]
		}
		if closeAfter {
			conn.Close()
		}
	}()
}

func TestReadFrameAcrossChunks(t *testing.T) {
	fc, client := pipe(t, 8)

	first := frame.Command("SET", "greeting", "hello")
	second := frame.Command("GET", "greeting")
	data := append(first.Encode(), second.Encode()...)
	writeChunks(client, data, 3, true)

	f, err := fc.ReadFrame()
	require.NoError(t, err)
	assert.True(t, first.Equal(f), "got %s", f)

	f, err = fc.ReadFrame()
	require.NoError(t, err)
	assert.True(t, second.Equal(f), "got %s", f)

	_, err = fc.ReadFrame()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReadFrameGrowsBuffer(t *testing.T) {
	fc, client := pipe(t, 16)

	value := bytes.Repeat([]byte("x"), 100_000)
	req := frame.Array(frame.BulkString("SET"), frame.BulkString("big"), frame.Bulk(value))
	writeChunks(client, req.Encode(), 4096, true)

	f, err := fc.ReadFrame()
	require.NoError(t, err)
	assert.True(t, req.Equal(f))
	assert.True(t, fc.grown)
}

func TestReadFrameEOFMidFrame(t *testing.T) {
	fc, client := pipe(t, 0)

	writeChunks(client, []byte("*2\r\n$3\r\nGET\r\n$5\r\nhe"), 64, true)

	_, err := fc.ReadFrame()
	assert.ErrorIs(t, err, transport.ErrConnectionReset)
}

func TestReadFrameMalformed(t *testing.T) {
	fc, client := pipe(t, 0)

	writeChunks(client, []byte("?garbage\r\n"), 64, false)

	_, err := fc.ReadFrame()
	assert.ErrorIs(t, err, frame.ErrMalformed)
}

func TestReadFrameRejectsEndlessLine(t *testing.T) {
	fc, client := pipe(t, 0)

	// a simple string that never ends must not grow the buffer without bound
	go func() {
		chunk := bytes.Repeat([]byte("a"), 4096)
		if _, err := client.Write([]byte("+")); err != nil {
			return
		}
		for i := 0; i < 1024; i++ {
			if _, err := client.Write(chunk); err != nil {
				return
			}
		}
	}()

	_, err := fc.ReadFrame()
	require.ErrorIs(t, err, frame.ErrMalformed)
	assert.LessOrEqual(t, len(fc.buf), 4*frame.MaxLineLength)
}

func TestReadFrameManySmallPieces(t *testing.T) {
	fc, client := pipe(t, 0)

	args := make([]string, 10_000)
	for i := range args {
		args[i] = "item"
	}
	req := frame.Command(args...)
	writeChunks(client, req.Encode(), 7, true)

	f, err := fc.ReadFrame()
	require.NoError(t, err)
	assert.True(t, req.Equal(f))
}

func TestWriteFrameRejectsInvalidFrame(t *testing.T) {
	fc, _ := pipe(t, 0)

	err := fc.WriteFrame(frame.SimpleBytes([]byte("a\r\nb")))
	assert.ErrorIs(t, err, frame.ErrMalformed)
}

func TestWriteFrame(t *testing.T) {
	fc, client := pipe(t, 0)

	resp := frame.SimpleString("PONG")
	errCh := make(chan error, 1)
	go func() { errCh <- fc.WriteFrame(resp) }()

	buf := make([]byte, 7)
	_, err := io.ReadFull(client, buf)
	require.NoError(t, err)
	assert.Equal(t, "+PONG\r\n", string(buf))
	require.NoError(t, <-errCh)
}

func TestReadFrameTimeout(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	fc := newFrameConn(server, newBufferPool(0), 50*time.Millisecond)
	defer fc.release()

	_, err := fc.ReadFrame()
	var netErr net.Error
	require.True(t, errors.As(err, &netErr), "unexpected error %v", err)
	assert.True(t, netErr.Timeout())
}
