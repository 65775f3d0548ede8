package health

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/openshift-hyperfleet/hub-clusters/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsServer serves the /metrics endpoint of one registry.
type MetricsServer struct {
	server  *http.Server
	log     logger.Logger
	port    string
	upGauge prometheus.Gauge
}

// MetricsConfig holds the labels of the service level metrics.
type MetricsConfig struct {
	Component string
	Version   string
	Commit    string
	// Regions are the configured region ids
	Regions []string
	// DefaultRegion is the id of the region whose records carry no region
	DefaultRegion string
}

// NewMetricsServer registers the service level metrics on reg and serves
// everything gathered from it. Domain collectors (inventory, tagging, api)
// register themselves on the same registry.
func NewMetricsServer(log logger.Logger, port string, reg *prometheus.Registry, cfg MetricsConfig) *MetricsServer {
	buildInfo := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hub_clusters_build_info",
			Help: "Build information for the hub clusters service",
		},
		[]string{"component", "version", "commit"},
	)
	upGauge := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "hub_clusters_up",
			Help: "Whether the hub clusters service is up and running",
			ConstLabels: prometheus.Labels{
				"component": cfg.Component,
				"version":   cfg.Version,
			},
		},
	)
	regionInfo := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hub_clusters_region_info",
			Help: "Regional cluster services configured for the hub clusters service",
		},
		[]string{"region", "default"},
	)

	reg.MustRegister(
		buildInfo,
		upGauge,
		regionInfo,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	buildInfo.WithLabelValues(cfg.Component, cfg.Version, cfg.Commit).Set(1)
	for _, region := range cfg.Regions {
		regionInfo.WithLabelValues(region, strconv.FormatBool(region == cfg.DefaultRegion)).Set(1)
	}
	upGauge.Set(1)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	return &MetricsServer{
		log:     log,
		port:    port,
		upGauge: upGauge,
		server: &http.Server{
			Addr:              ":" + port,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start starts the metrics server in a goroutine.
func (s *MetricsServer) Start(ctx context.Context) error {
	s.log.Infof(ctx, "Starting metrics server on port %s", s.port)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCtx := logger.WithErrorField(ctx, err)
			s.log.Errorf(errCtx, "Metrics server error")
		}
	}()

	return nil
}

// Shutdown gracefully shuts down the metrics server.
func (s *MetricsServer) Shutdown(ctx context.Context) error {
	s.log.Info(ctx, "Shutting down metrics server...")
	s.upGauge.Set(0)
	return s.server.Shutdown(ctx)
}
