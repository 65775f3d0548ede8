package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"github.com/openshift-hyperfleet/hub-clusters/pkg/logger"
)

// CheckStatus represents the status of a single health check.
type CheckStatus string

const (
	// CheckOK indicates the check passed.
	CheckOK CheckStatus = "ok"
	// CheckError indicates the check failed.
	CheckError CheckStatus = "error"
	// CheckPending indicates the check has not run yet.
	CheckPending CheckStatus = "pending"
)

// DefaultRegionName is how the default region is reported on /readyz
const DefaultRegionName = "default"

// HealthResponse represents the JSON response for /healthz endpoint.
type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// RegionCheck is the last known state of one regional cluster service
type RegionCheck struct {
	Status CheckStatus `json:"status"`
	Reason string      `json:"reason,omitempty"`
}

// ReadyResponse represents the JSON response for /readyz endpoint.
type ReadyResponse struct {
	Status  string                 `json:"status"`
	Message string                 `json:"message,omitempty"`
	Config  CheckStatus            `json:"config"`
	Regions map[string]RegionCheck `json:"regions,omitempty"`
}

// Server provides HTTP health check endpoints. The service is ready once the
// configuration is loaded and at least one region answered; a region that
// fails is reported but does not make the service unready on its own.
type Server struct {
	server    *http.Server
	log       logger.Logger
	port      string
	component string

	// shuttingDown is an atomic flag that indicates the server is shutting down.
	// When true, /readyz immediately returns 503 regardless of other checks.
	shuttingDown atomic.Bool
	configLoaded atomic.Bool

	mu      sync.RWMutex
	regions map[string]RegionCheck
}

// NewServer creates a new health check server. regions are the service
// regions to report; "" is the default region.
func NewServer(log logger.Logger, port string, component string, regions ...string) *Server {
	s := &Server{
		log:       log,
		port:      port,
		component: component,
		regions:   make(map[string]RegionCheck, len(regions)),
	}
	for _, r := range regions {
		s.regions[regionName(r)] = RegionCheck{Status: CheckPending}
	}

	router := mux.NewRouter()
	router.HandleFunc("/healthz", s.healthzHandler).Methods(http.MethodGet)
	router.HandleFunc("/readyz", s.readyzHandler).Methods(http.MethodGet)

	s.server = &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func regionName(region string) string {
	if region == "" {
		return DefaultRegionName
	}
	return region
}

// Start starts the health server in a goroutine.
func (s *Server) Start(ctx context.Context) error {
	s.log.Infof(ctx, "Starting health server on port %s", s.port)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCtx := logger.WithErrorField(ctx, err)
			s.log.Errorf(errCtx, "Health server error")
		}
	}()

	return nil
}

// Shutdown gracefully shuts down the health server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info(ctx, "Shutting down health server...")
	return s.server.Shutdown(ctx)
}

// SetRegionStatus records the outcome of the last listing of region.
// A nil err marks the region as answering.
func (s *Server) SetRegionStatus(region string, err error) {
	check := RegionCheck{Status: CheckOK}
	if err != nil {
		check = RegionCheck{Status: CheckError, Reason: err.Error()}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.regions[regionName(region)] = check
}

// SetConfigLoaded marks the config check as ok.
func (s *Server) SetConfigLoaded() {
	s.configLoaded.Store(true)
}

// SetShuttingDown marks the server as shutting down.
// When set to true, /readyz will immediately return 503 Service Unavailable
// regardless of other check statuses.
func (s *Server) SetShuttingDown(shuttingDown bool) {
	s.shuttingDown.Store(shuttingDown)
}

// IsShuttingDown returns true if the server is in shutdown mode.
func (s *Server) IsShuttingDown() bool {
	return s.shuttingDown.Load()
}

// IsReady reports whether the config is loaded, one region answered and the
// server is not shutting down.
func (s *Server) IsReady() bool {
	if s.shuttingDown.Load() || !s.configLoaded.Load() {
		return false
	}
	_, answered := s.snapshot()
	return answered > 0
}

// AnsweringRegions returns the names of the regions whose last listing succeeded
func (s *Server) AnsweringRegions() []string {
	regions, _ := s.snapshot()
	var out []string
	for name, check := range regions {
		if check.Status == CheckOK {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func (s *Server) snapshot() (map[string]RegionCheck, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]RegionCheck, len(s.regions))
	answered := 0
	for name, check := range s.regions {
		out[name] = check
		if check.Status == CheckOK {
			answered++
		}
	}
	return out, answered
}

// healthzHandler handles liveness probe requests.
// Returns 200 OK if the process is alive.
func (s *Server) healthzHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(HealthResponse{Status: "ok"})
}

// readyzHandler handles readiness probe requests.
func (s *Server) readyzHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	// Check shutdown flag first (atomic, no lock needed)
	if s.shuttingDown.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(ReadyResponse{
			Status:  "error",
			Message: "server is shutting down",
			Config:  CheckOK,
		})
		return
	}

	regions, answered := s.snapshot()
	resp := ReadyResponse{Status: "ok", Config: CheckOK, Regions: regions}
	switch {
	case !s.configLoaded.Load():
		resp.Config = CheckError
		resp.Status = "error"
		resp.Message = "configuration not loaded"
	case answered == 0:
		resp.Status = "error"
		resp.Message = "no region answered"
	}

	if resp.Status == "ok" {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(resp)
}
