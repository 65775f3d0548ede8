package cluster_service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/openshift-hyperfleet/hub-clusters/internal/cluster"
)

// API paths of the regional cluster service
const (
	ClustersPath        = "/api/clusters_mgmt/v1/clusters"
	AccountClustersPath = "/api/accounts_mgmt/v1/clusters"
)

// DefaultListPageSize is the page size used when reading a full inventory
const DefaultListPageSize = 100

// ListOptions selects which clusters a regional service returns
type ListOptions struct {
	// IncludeArchived includes archived clusters
	IncludeArchived bool
	// UseManagedEndpoints reads from the cluster management API instead of
	// the account management API
	UseManagedEndpoints bool
	// Page and Size request a single page (1-based). Page 0 reads every page.
	Page int
	Size int
	// OrderBy is passed through as "<attribute> asc|desc"
	OrderBy string
}

// ClusterList is one page of clusters
type ClusterList struct {
	Kind  string            `json:"kind"`
	Page  int               `json:"page"`
	Size  int               `json:"size"`
	Total int               `json:"total"`
	Items []cluster.Cluster `json:"items"`
}

// ClusterPatch is the body of an edit call. Only the keys present are
// written; an empty value removes a property.
type ClusterPatch struct {
	Properties map[string]string `json:"properties"`
}

// Service is the cluster service of one region
type Service interface {
	// Region returns the region served ("" for the default region)
	Region() string
	// ListClusters returns one page, or every page when opts.Page is 0
	ListClusters(ctx context.Context, opts ListOptions) (*ClusterList, error)
	// GetCluster returns a single cluster
	GetCluster(ctx context.Context, id string) (cluster.Cluster, error)
	// EditCluster applies patch to the cluster and returns the updated record
	EditCluster(ctx context.Context, id string, patch ClusterPatch) (cluster.Cluster, error)
}

type clusterService struct {
	client Client
}

var _ Service = &clusterService{}

// NewService creates a Service backed by client
func NewService(client Client) Service {
	return &clusterService{client: client}
}

func (s *clusterService) Region() string {
	return s.client.Region()
}

func (s *clusterService) ListClusters(ctx context.Context, opts ListOptions) (*ClusterList, error) {
	if opts.Page > 0 {
		return s.listPage(ctx, opts)
	}

	all := &ClusterList{Kind: "ClusterList", Page: 1, Items: []cluster.Cluster{}}
	pageOpts := opts
	pageOpts.Size = DefaultListPageSize
	for page := 1; ; page++ {
		pageOpts.Page = page
		list, err := s.listPage(ctx, pageOpts)
		if err != nil {
			return nil, err
		}
		all.Items = append(all.Items, list.Items...)
		all.Total = list.Total
		if len(list.Items) == 0 || len(list.Items) < pageOpts.Size || len(all.Items) >= list.Total {
			break
		}
	}
	all.Size = len(all.Items)
	if all.Total < len(all.Items) {
		all.Total = len(all.Items)
	}
	return all, nil
}

func (s *clusterService) listPage(ctx context.Context, opts ListOptions) (*ClusterList, error) {
	path := AccountClustersPath
	if opts.UseManagedEndpoints {
		path = ClustersPath
	}

	query := url.Values{}
	query.Set("page", strconv.Itoa(opts.Page))
	if opts.Size > 0 {
		query.Set("size", strconv.Itoa(opts.Size))
	}
	if opts.OrderBy != "" {
		query.Set("order", opts.OrderBy)
	}
	if !opts.IncludeArchived {
		query.Set("search", "state != 'archived'")
	}

	resp, err := s.client.Get(ctx, path, query)
	if err != nil {
		return nil, err
	}

	var list ClusterList
	if err := json.Unmarshal(resp.Body, &list); err != nil {
		return nil, fmt.Errorf("failed to decode cluster list from region %q: %w", s.Region(), err)
	}
	if list.Items == nil {
		list.Items = []cluster.Cluster{}
	}
	return &list, nil
}

func (s *clusterService) GetCluster(ctx context.Context, id string) (cluster.Cluster, error) {
	resp, err := s.client.Get(ctx, ClustersPath+"/"+url.PathEscape(id), nil)
	if err != nil {
		return cluster.Cluster{}, err
	}

	var c cluster.Cluster
	if err := json.Unmarshal(resp.Body, &c); err != nil {
		return cluster.Cluster{}, fmt.Errorf("failed to decode cluster %s: %w", id, err)
	}
	return c, nil
}

// EditCluster issues exactly one PATCH. The client never retries edits so a
// failure is reported once and left to the caller.
func (s *clusterService) EditCluster(ctx context.Context, id string, patch ClusterPatch) (cluster.Cluster, error) {
	resp, err := s.client.Patch(ctx, ClustersPath+"/"+url.PathEscape(id), patch)
	if err != nil {
		return cluster.Cluster{}, err
	}

	var c cluster.Cluster
	if len(resp.Body) == 0 {
		return c, nil
	}
	if err := json.Unmarshal(resp.Body, &c); err != nil {
		return cluster.Cluster{}, fmt.Errorf("failed to decode edited cluster %s: %w", id, err)
	}
	return c, nil
}
