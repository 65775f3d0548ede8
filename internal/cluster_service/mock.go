package cluster_service

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/openshift-hyperfleet/hub-clusters/internal/cluster"
	apperrors "github.com/openshift-hyperfleet/hub-clusters/pkg/errors"
)

// MockService implements Service for testing.
// It stores clusters in memory and allows configuring failures.
type MockService struct {
	RegionID string

	mu       sync.Mutex
	clusters []cluster.Cluster

	// Mock responses - set these to control behavior
	ListError error
	GetError  error
	// EditErrors fails EditCluster for the given cluster ids
	EditErrors map[string]error
	// OnEdit, when set, runs before every edit (e.g. to block or panic)
	OnEdit func(id string)
	// OnList, when set, runs after a list has been read and before it is
	// returned, with the 1-based number of the call
	OnList func(call int)

	ListCalls int
	EditCalls map[string]int
}

var _ Service = &MockService{}

// NewMockService creates a mock serving region with the given clusters
func NewMockService(region string, clusters ...cluster.Cluster) *MockService {
	return &MockService{
		RegionID:   region,
		clusters:   append([]cluster.Cluster(nil), clusters...),
		EditErrors: make(map[string]error),
		EditCalls:  make(map[string]int),
	}
}

// Region implements Service.Region
func (m *MockService) Region() string {
	return m.RegionID
}

// SetClusters replaces the stored clusters
func (m *MockService) SetClusters(clusters ...cluster.Cluster) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clusters = append([]cluster.Cluster(nil), clusters...)
}

// Clusters returns a copy of the stored clusters
func (m *MockService) Clusters() []cluster.Cluster {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]cluster.Cluster(nil), m.clusters...)
}

// EditCount returns how many edit calls were made for id
func (m *MockService) EditCount(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.EditCalls[id]
}

// ListClusters implements Service.ListClusters
func (m *MockService) ListClusters(ctx context.Context, opts ListOptions) (*ClusterList, error) {
	list, call, err := m.list(opts)
	if m.OnList != nil {
		m.OnList(call)
	}
	return list, err
}

func (m *MockService) list(opts ListOptions) (*ClusterList, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ListCalls++
	if m.ListError != nil {
		return nil, m.ListCalls, m.ListError
	}

	items := append([]cluster.Cluster{}, m.clusters...)
	total := len(items)
	if opts.Page > 0 && opts.Size > 0 {
		start := (opts.Page - 1) * opts.Size
		end := start + opts.Size
		if start > total {
			start = total
		}
		if end > total {
			end = total
		}
		items = items[start:end]
	}
	return &ClusterList{Kind: "ClusterList", Page: opts.Page, Size: len(items), Total: total, Items: items}, m.ListCalls, nil
}

// SetListError makes subsequent list calls fail with err (nil clears it)
func (m *MockService) SetListError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ListError = err
}

// SetEditError makes edit calls for id fail with err (nil clears it)
func (m *MockService) SetEditError(id string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.EditErrors, id)
		return
	}
	m.EditErrors[id] = err
}

// ListCount returns how many list calls were made
func (m *MockService) ListCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ListCalls
}

// GetCluster implements Service.GetCluster
func (m *MockService) GetCluster(ctx context.Context, id string) (cluster.Cluster, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetError != nil {
		return cluster.Cluster{}, m.GetError
	}
	for _, c := range m.clusters {
		if c.ID == id {
			return c, nil
		}
	}
	return cluster.Cluster{}, m.notFound(id)
}

// EditCluster implements Service.EditCluster by merging patch into the
// authoritative property bag of the stored cluster.
func (m *MockService) EditCluster(ctx context.Context, id string, patch ClusterPatch) (cluster.Cluster, error) {
	if m.OnEdit != nil {
		m.OnEdit(id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.EditCalls[id]++
	if err := m.EditErrors[id]; err != nil {
		return cluster.Cluster{}, err
	}
	for i, c := range m.clusters {
		if c.ID != id {
			continue
		}
		for k, v := range patch.Properties {
			c = cluster.WithProperty(c, k, v)
		}
		m.clusters[i] = c
		return c, nil
	}
	return cluster.Cluster{}, m.notFound(id)
}

func (m *MockService) notFound(id string) error {
	return apperrors.NewAPIError(m.RegionID, http.MethodGet, ClustersPath+"/"+id, http.StatusNotFound,
		"404 Not Found", []byte(fmt.Sprintf(`{"kind":"Error","reason":"Cluster '%s' not found"}`, id)),
		1, 0, fmt.Errorf("HTTP 404"))
}
