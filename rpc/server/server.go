package server

import (
	"context"
	"fmt"
	"io"
	"net"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/lni/dragonboat/v4/logger"
	"github.com/vivskv/vivs/lib/cluster"
	"github.com/vivskv/vivs/lib/command"
	"github.com/vivskv/vivs/lib/frame"
	"github.com/vivskv/vivs/lib/store"
	"github.com/vivskv/vivs/rpc/common"
	"github.com/vivskv/vivs/rpc/transport"
)

var Logger = logger.GetLogger("server")

// Server connects a store and an optional slot table to a transport. Every
// accepted connection gets its own command session.
type Server struct {
	config    common.ServerConfig
	transport transport.IRPCServerTransport
	store     store.IStore
	slots     *cluster.SlotTable
	metrics   *serverMetrics
	listening bool
}

// NewServer creates a new server
//
// Usage:
//
//	s := server.NewServer(
//		config,
//		tcp.NewTCPServerTransport(),
//		lstore.NewLocalStore(nil),
//	)
//
//	if err := s.Serve(ctx); err != nil {
//		panic(err)
//	}
func NewServer(config common.ServerConfig, transport transport.IRPCServerTransport, st store.IStore) *Server {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}

	return &Server{
		config:    config,
		transport: transport,
		store:     st,
		metrics:   newServerMetrics(st),
	}
}

// SetSlotTable sets the cluster layout used for routing. A table set before
// Listen takes precedence over config.ClusterConfig.
func (s *Server) SetSlotTable(slots *cluster.SlotTable) {
	s.slots = slots
}

// SlotTable returns the cluster layout (nil if the server runs standalone)
func (s *Server) SlotTable() *cluster.SlotTable {
	return s.slots
}

// Listen loads the slot table (if configured) and binds the transport.
// Serve calls it if it was not called before.
func (s *Server) Listen() error {
	if s.listening {
		return nil
	}

	if s.slots == nil && s.config.ClusterConfig != "" {
		slots, err := cluster.LoadSlotTable(s.config.ClusterConfig, s.config.SelfAddress())
		if err != nil {
			return fmt.Errorf("failed to load cluster configuration: %w", err)
		}
		s.slots = slots
	}

	s.transport.RegisterHandler(s.newConnHandler)
	if err := s.transport.Listen(s.config); err != nil {
		return err
	}
	s.listening = true
	return nil
}

// Addr returns the address the server listens on (nil before Listen)
func (s *Server) Addr() net.Addr {
	return s.transport.Addr()
}

// WriteMetrics writes the server metrics in prometheus text format
func (s *Server) WriteMetrics(w io.Writer) {
	s.metrics.set.WritePrometheus(w)
}

// Serve runs the server until ctx is cancelled. All connections are closed
// before Serve returns.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}

	Logger.Infof("Starting server%s", s.config.String())
	Logger.Infof("Slot table: %s", s.slots)
	if info, err := s.store.GetInfo(); err == nil {
		Logger.Infof("Store holds %d keys (%d with TTL)", info.Keys, info.KeysWithTTL)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if s.config.MetricsEndpoint != "" {
		if err := s.metrics.serveMetrics(ctx, s.config.MetricsEndpoint); err != nil {
			return err
		}
	}

	err := s.transport.Serve(ctx)
	Logger.Infof("Server stopped")
	return err
}

// --------------------------------------------------------------------------
// Connection Handler (implements transport.IConnHandler)
// --------------------------------------------------------------------------

type connHandler struct {
	ctx     command.Context
	metrics *serverMetrics
}

func (s *Server) newConnHandler(remote net.Addr) transport.IConnHandler {
	peer := ""
	if remote != nil {
		peer = remote.String()
	}
	s.metrics.connectionOpened()
	return &connHandler{
		ctx: command.Context{
			Store:   s.store,
			Slots:   s.slots,
			Session: command.NewSession(),
			Peer:    peer,
		},
		metrics: s.metrics,
	}
}

func (h *connHandler) Handle(req frame.Frame) frame.Frame {
	start := time.Now()
	verb, resp := command.Dispatch(&h.ctx, req)
	h.metrics.observe(verb, resp, start)
	Logger.Debugf("%s %s -> %s (%s)", h.ctx.Peer, verb, resp.Type, time.Since(start))
	return resp
}

func (h *connHandler) Close() {
	h.metrics.connectionClosed()
}
