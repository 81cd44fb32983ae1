package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/vivskv/vivs/lib/command"
	"github.com/vivskv/vivs/lib/frame"
	"github.com/vivskv/vivs/lib/store"
)

// serverMetrics holds the metrics of one server. Every server uses its own
// metrics.Set so that several servers can live in one process.
type serverMetrics struct {
	set *metrics.Set

	activeConns   atomic.Int64
	connsTotal    *metrics.Counter
	commands      map[command.Verb]*metrics.Counter
	commandErrors *metrics.Counter
	redirects     *metrics.Counter
	duration      *metrics.Histogram
}

func newServerMetrics(st store.IStore) *serverMetrics {
	set := metrics.NewSet()
	m := &serverMetrics{
		set:           set,
		connsTotal:    set.NewCounter("vivs_connections_total"),
		commands:      map[command.Verb]*metrics.Counter{},
		commandErrors: set.NewCounter("vivs_command_errors_total"),
		redirects:     set.NewCounter("vivs_redirects_total"),
		duration:      set.NewHistogram("vivs_command_duration_seconds"),
	}

	verbs := append([]command.Verb{command.VerbUnknown, command.VerbNone, command.VerbInvalid}, command.Verbs...)
	for _, verb := range verbs {
		m.commands[verb] = set.NewCounter(fmt.Sprintf(`vivs_commands_total{verb=%q}`, verb))
	}

	set.NewGauge("vivs_connections_active", func() float64 {
		return float64(m.activeConns.Load())
	})

	// key gauges read the store on every scrape
	keyInfo := func(get func(store.Info) int) func() float64 {
		return func() float64 {
			info, err := st.GetInfo()
			if err != nil {
				return 0
			}
			return float64(get(info))
		}
	}
	set.NewGauge("vivs_keys", keyInfo(func(i store.Info) int { return i.Keys }))
	set.NewGauge("vivs_keys_with_ttl", keyInfo(func(i store.Info) int { return i.KeysWithTTL }))

	return m
}

func (m *serverMetrics) connectionOpened() {
	m.connsTotal.Inc()
	m.activeConns.Add(1)
}

func (m *serverMetrics) connectionClosed() {
	m.activeConns.Add(-1)
}

// observe records one executed request
func (m *serverMetrics) observe(verb command.Verb, resp frame.Frame, start time.Time) {
	if c, ok := m.commands[verb]; ok {
		c.Inc()
	}
	if resp.IsError() {
		if _, _, ok := command.ParseAsk(resp); ok {
			m.redirects.Inc()
		} else {
			m.commandErrors.Inc()
		}
	}
	m.duration.UpdateDuration(start)
}

// --------------------------------------------------------------------------
// HTTP Endpoint
// --------------------------------------------------------------------------

// serveMetrics exposes the metrics in prometheus format on http://<endpoint>/metrics
// until ctx is cancelled
func (m *serverMetrics) serveMetrics(ctx context.Context, endpoint string) error {
	listener, err := net.Listen("tcp", endpoint)
	if err != nil {
		return fmt.Errorf("failed to listen for metrics on %s: %w", endpoint, err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		m.set.WritePrometheus(w)
	})
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	go func() {
		Logger.Infof("Serving metrics on http://%s/metrics", listener.Addr())
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			Logger.Errorf("Metrics endpoint failed: %v", err)
		}
	}()
	return nil
}
