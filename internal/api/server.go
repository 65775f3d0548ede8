package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/openshift-hyperfleet/hub-clusters/pkg/logger"
	pkgotel "github.com/openshift-hyperfleet/hub-clusters/pkg/otel"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
)

const tracerName = "hub-clusters/api"

// RequestIDHeader carries the request id; one is generated when absent
const RequestIDHeader = "X-Request-Id"

// Server serves the REST API
type Server struct {
	server *http.Server
	log    logger.Logger
	port   string
}

// NewRouter builds the router of h with request logging, tracing and
// metrics. A nil registerer leaves the metrics unregistered.
func NewRouter(h *Handler, reg prometheus.Registerer) *mux.Router {
	m := newMetrics(reg)
	router := mux.NewRouter()
	router.Use(h.instrument(m))
	SetupRoutes(router, h)
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.respondError(w, r, errNoRoute(r))
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.respondError(w, r, errMethodNotAllowed(r))
	})
	return router
}

// NewServer creates a server for handler on port
func NewServer(log logger.Logger, port string, handler http.Handler) *Server {
	return &Server{
		log:  log,
		port: port,
		server: &http.Server{
			Addr:              ":" + port,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start starts the API server in a goroutine
func (s *Server) Start(ctx context.Context) error {
	s.log.Infof(ctx, "Starting API server on port %s", s.port)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCtx := logger.WithErrorField(ctx, err)
			s.log.Errorf(errCtx, "API server error")
		}
	}()

	return nil
}

// Shutdown gracefully shuts down the API server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info(ctx, "Shutting down API server...")
	return s.server.Shutdown(ctx)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// instrument adds the request id and trace context to the request context,
// opens a span and records the request in m
func (h *Handler) instrument(m *metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			route := routeTemplate(r)

			requestID := r.Header.Get(RequestIDHeader)
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, requestID)

			ctx := pkgotel.ExtractHTTPHeaders(r.Context(), r.Header)
			ctx, span := otel.Tracer(tracerName).Start(ctx, r.Method+" "+route)
			defer span.End()
			ctx = logger.WithRequestID(ctx, requestID)
			ctx = logger.WithOTelTraceContext(ctx)

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r.WithContext(ctx))

			m.requests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
			m.duration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
			h.log.Debugf(ctx, "%s %s %d in %s", r.Method, r.URL.Path, rec.status, time.Since(start))
		})
	}
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}
