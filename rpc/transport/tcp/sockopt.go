package tcp

import (
	"fmt"
	"net"
	"time"

	"github.com/vivskv/vivs/rpc/common"
)

// socketOption is one setting applied to every accepted or dialed connection
type socketOption struct {
	name  string
	apply func(conn *net.TCPConn) error
}

// socketOptions translates the transport configuration into the settings to
// apply. Zero buffer sizes and keepalive keep the OS defaults, a negative
// linger keeps the default close behavior.
func socketOptions(config common.TransportConf) []socketOption {
	opts := []socketOption{{
		name:  "nodelay",
		apply: func(conn *net.TCPConn) error { return conn.SetNoDelay(config.TCPNoDelay) },
	}}

	if size := config.WriteBufferSize; size > 0 {
		opts = append(opts, socketOption{
			name:  "write buffer",
			apply: func(conn *net.TCPConn) error { return conn.SetWriteBuffer(size) },
		})
	}
	if size := config.ReadBufferSize; size > 0 {
		opts = append(opts, socketOption{
			name:  "read buffer",
			apply: func(conn *net.TCPConn) error { return conn.SetReadBuffer(size) },
		})
	}
	if config.TCPKeepAliveSec > 0 {
		period := time.Duration(config.TCPKeepAliveSec) * time.Second
		opts = append(opts, socketOption{
			name: "keepalive",
			apply: func(conn *net.TCPConn) error {
				return conn.SetKeepAliveConfig(net.KeepAliveConfig{Enable: true, Idle: period, Interval: period})
			},
		})
	}
	if linger := config.TCPLingerSec; linger >= 0 {
		opts = append(opts, socketOption{
			name:  "linger",
			apply: func(conn *net.TCPConn) error { return conn.SetLinger(linger) },
		})
	}
	return opts
}

// upgradeConnection applies the configured socket options. Connections that
// are not TCP (e.g. in tests) are left untouched.
func upgradeConnection(conn net.Conn, config common.TransportConf) error {
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		return nil
	}
	for _, opt := range socketOptions(config) {
		if err := opt.apply(tcpConn); err != nil {
			return fmt.Errorf("failed to set %s on %s: %w", opt.name, conn.RemoteAddr(), err)
		}
	}
	return nil
}
