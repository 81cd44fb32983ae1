package base

import (
	"bufio"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/vivskv/vivs/lib/frame"
	"github.com/vivskv/vivs/rpc/transport"
)

// DefaultBufferSize is the initial size of a connection's read buffer
const DefaultBufferSize = 16 * 1024

// newBufferPool creates a pool of read buffers with the given initial size
func newBufferPool(size int) *sync.Pool {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &sync.Pool{
		New: func() interface{} {
			buf := make([]byte, size)
			return &buf
		},
	}
}

// frameConn reads and writes whole frames on a net.Conn.
//
// Incoming bytes are accumulated in buf[start:end] until the decoder reports a
// complete frame. The decoder keeps its progress across reads, so a frame that
// arrives in many pieces is scanned once. Bytes after the frame stay buffered
// for the next read. A frameConn is not safe for concurrent use.
type frameConn struct {
	conn    net.Conn
	writer  *bufio.Writer
	timeout time.Duration
	decoder frame.Decoder

	pool       *sync.Pool
	pooled     *[]byte
	buf        []byte
	grown      bool
	start, end int
}

func newFrameConn(conn net.Conn, pool *sync.Pool, timeout time.Duration) *frameConn {
	pooled := pool.Get().(*[]byte)
	return &frameConn{
		conn:    conn,
		writer:  bufio.NewWriter(conn),
		timeout: timeout,
		pool:    pool,
		pooled:  pooled,
		buf:     *pooled,
	}
}

// ReadFrame blocks until one complete frame was received.
//
// It returns io.EOF if the peer closed the connection between frames,
// transport.ErrConnectionReset if it closed it in the middle of a frame, and
// an error wrapping frame.ErrMalformed if the bytes can not be a frame.
func (c *frameConn) ReadFrame() (frame.Frame, error) {
	for {
		if c.end > c.start {
			f, n, err := c.decoder.Decode(c.buf[c.start:c.end])
			if err == nil {
				c.start += n
				if c.start == c.end {
					c.start, c.end = 0, 0
				}
				return f, nil
			}
			if !errors.Is(err, frame.ErrIncomplete) {
				return frame.Frame{}, err
			}
		}

		if err := c.fill(); err != nil {
			if errors.Is(err, io.EOF) && c.end > c.start {
				return frame.Frame{}, transport.ErrConnectionReset
			}
			return frame.Frame{}, err
		}
	}
}

// fill reads at least one byte into the buffer, making room first if needed
func (c *frameConn) fill() error {
	if c.end == len(c.buf) {
		if c.start > 0 {
			copy(c.buf, c.buf[c.start:c.end])
			c.end -= c.start
			c.start = 0
		} else {
			grown := make([]byte, 2*len(c.buf))
			copy(grown, c.buf[:c.end])
			c.buf, c.grown = grown, true
		}
	}

	if c.timeout > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
			return err
		}
	}

	n, err := c.conn.Read(c.buf[c.end:])
	c.end += n
	if n > 0 {
		return nil
	}
	if err == nil {
		err = io.ErrNoProgress
	}
	return err
}

// WriteFrame writes f and flushes it to the connection
func (c *frameConn) WriteFrame(f frame.Frame) error {
	if c.timeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
			return err
		}
	}
	if err := f.WriteBuffered(c.writer); err != nil {
		return err
	}
	return c.writer.Flush()
}

// Buffered returns the number of received bytes not consumed by a frame yet
func (c *frameConn) Buffered() int {
	return c.end - c.start
}

// release returns the read buffer to the pool. The frameConn must not be used afterwards.
func (c *frameConn) release() {
	if c.pooled == nil {
		return
	}
	// buffers grown for a large frame are left to the GC
	if !c.grown {
		c.pool.Put(c.pooled)
	}
	c.pooled, c.buf = nil, nil
}
