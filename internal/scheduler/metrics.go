package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	promcollect "github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRegistry returns a registry with the Go runtime and process collectors
func NewRegistry() *prom.Registry {
	reg := prom.NewRegistry()
	reg.MustRegister(promcollect.NewGoCollector(), promcollect.NewProcessCollector(promcollect.ProcessCollectorOpts{}))
	return reg
}

// MetricsServer serves /metrics and /healthz
type MetricsServer struct {
	server *http.Server
	config MetricsConfig
	logger *slog.Logger
}

// NewMetricsServer creates a metrics server for reg
func NewMetricsServer(config MetricsConfig, reg *prom.Registry, logger *slog.Logger) (*MetricsServer, error) {
	if err := validateMetricsConfig(config); err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})

	return &MetricsServer{
		server: &http.Server{
			Addr:              config.Addr(),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		config: config,
		logger: logger,
	}, nil
}

// Handler returns the HTTP handler
func (m *MetricsServer) Handler() http.Handler {
	return m.server.Handler
}

// Start listens and serves in the background
func (m *MetricsServer) Start() error {
	ln, err := net.Listen("tcp", m.server.Addr)
	if err != nil {
		return err
	}

	m.logger.Info("serving metrics", "address", ln.Addr().String())
	go func() {
		if err := m.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("metrics server failed", "error", err)
		}
	}()
	return nil
}

// Shutdown stops the server
func (m *MetricsServer) Shutdown(ctx context.Context) error {
	return m.server.Shutdown(ctx)
}
