package hubview

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/openshift-hyperfleet/hub-clusters/internal/cluster"
	"github.com/openshift-hyperfleet/hub-clusters/internal/cluster_service"
	"github.com/openshift-hyperfleet/hub-clusters/internal/criteria"
	"github.com/openshift-hyperfleet/hub-clusters/internal/inventory"
	"github.com/openshift-hyperfleet/hub-clusters/internal/paging"
	"github.com/openshift-hyperfleet/hub-clusters/internal/viewstate"
	apperrors "github.com/openshift-hyperfleet/hub-clusters/pkg/errors"
	"github.com/openshift-hyperfleet/hub-clusters/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeInventory serves a fixed result, or a per page result for paged reads
type fakeInventory struct {
	mu     sync.Mutex
	result inventory.Result
	pages  func(p inventory.Pagination) inventory.Result
	calls  []inventory.Options

	invalidated int
}

func (f *fakeInventory) Fetch(_ context.Context, opts inventory.Options) inventory.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, opts)
	if opts.Pagination != nil && f.pages != nil {
		return f.pages(*opts.Pagination)
	}
	return f.result
}

func (f *fakeInventory) Invalidate() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated++
}

func (f *fakeInventory) lastCall() inventory.Options {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

func fetched(items ...cluster.Cluster) inventory.Result {
	return inventory.Result{Items: items, Total: len(items), Revision: 1, IsFetched: true}
}

func hubCluster(id, name string) cluster.Cluster {
	return cluster.NewManaged(id, name, "", cluster.Properties{"acm_hub": "true"})
}

func plainCluster(id, name string) cluster.Cluster {
	return cluster.NewManaged(id, name, "", nil)
}

func newTestService(t *testing.T, inv Inventory, regions int) *Service {
	t.Helper()
	eval, err := criteria.NewEvaluator(logger.NewTestLogger(), 0)
	require.NoError(t, err)
	svc, err := NewService(inv, viewstate.NewStore(), eval, logger.NewTestLogger(), Config{Regions: regions})
	require.NoError(t, err)
	return svc
}

func ids(items []cluster.Cluster) []string {
	out := make([]string, 0, len(items))
	for _, c := range items {
		out = append(out, c.ID)
	}
	return out
}

func TestNewServiceValidation(t *testing.T) {
	_, err := NewService(nil, viewstate.NewStore(), nil, logger.NewTestLogger(), Config{})
	require.Error(t, err)
}

func TestHubClustersFiltersSortsAndPages(t *testing.T) {
	inv := &fakeInventory{result: fetched(
		hubCluster("c1", "zeta"),
		plainCluster("c2", "alpha"),
		hubCluster("c3", "beta"),
		cluster.NewUnmanaged("c4", "gamma", "", cluster.Properties{"acm_hub": "true"}),
		cluster.NewManaged("c5", "delta", "", cluster.Properties{"acm_hub": "false"}),
	)}
	svc := newTestService(t, inv, 2)
	_, err := svc.Store().SetPageSize(viewstate.HubClustersView, 2)
	require.NoError(t, err)

	lv, err := svc.HubClusters(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"c3", "c4"}, ids(lv.Items))
	assert.Equal(t, 3, lv.TotalCount)
	assert.Equal(t, 1, lv.ItemsStart)
	assert.Equal(t, 2, lv.ItemsEnd)
	assert.False(t, lv.ServerPaged)
	assert.True(t, inv.lastCall().UseManagedEndpoints, "hub view reads the managed endpoints")
	assert.Nil(t, inv.lastCall().Pagination)

	_, err = svc.Store().SetPage(viewstate.HubClustersView, 2)
	require.NoError(t, err)
	lv, err = svc.HubClusters(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, ids(lv.Items))
	assert.Equal(t, 3, lv.ItemsStart)
	assert.Equal(t, 3, lv.ItemsEnd)
}

func TestHubClustersTextFilter(t *testing.T) {
	inv := &fakeInventory{result: fetched(hubCluster("c1", "prod-east"), hubCluster("c2", "dev-west"))}
	svc := newTestService(t, inv, 1)
	svc.Store().SetFilter(viewstate.HubClustersView, viewstate.Filter{Text: "PROD"})

	lv, err := svc.HubClusters(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, ids(lv.Items))
	assert.Equal(t, 1, lv.TotalCount)
}

func TestInvalidExpressionIsRejected(t *testing.T) {
	inv := &fakeInventory{result: fetched(hubCluster("c1", "one"))}
	svc := newTestService(t, inv, 1)
	svc.Store().SetFilter(viewstate.HubClustersView, viewstate.Filter{Expression: "cluster.state =="})

	_, err := svc.HubClusters(context.Background())
	require.Error(t, err)
	var svcErr *apperrors.ServiceError
	require.True(t, errors.As(err, &svcErr))
	assert.Equal(t, apperrors.ErrorInvalidFilter, svcErr.Code)
}

func TestHubClustersCorrectsPagePastTheEnd(t *testing.T) {
	var items []cluster.Cluster
	for i := 0; i < 12; i++ {
		items = append(items, hubCluster(fmt.Sprintf("c%02d", i), fmt.Sprintf("hub-%02d", i)))
	}
	inv := &fakeInventory{result: fetched(items...)}
	svc := newTestService(t, inv, 1)
	_, err := svc.Store().SetPage(viewstate.HubClustersView, 5)
	require.NoError(t, err)

	lv, err := svc.HubClusters(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, lv.State.CurrentPage)
	assert.Len(t, lv.Items, 2)
	assert.Equal(t, 11, lv.ItemsStart)
	assert.Equal(t, 12, lv.ItemsEnd)
}

func TestHubClustersMemoizedPerRevision(t *testing.T) {
	inv := &fakeInventory{result: fetched(hubCluster("c1", "one"))}
	svc := newTestService(t, inv, 1)

	_, err := svc.HubClusters(context.Background())
	require.NoError(t, err)

	// same revision, different items: the memoized subset is served
	inv.result.Items = []cluster.Cluster{hubCluster("c1", "one"), hubCluster("c2", "two")}
	lv, err := svc.HubClusters(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, ids(lv.Items))

	inv.result.Revision = 2
	lv, err = svc.HubClusters(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "c2"}, ids(lv.Items))
}

func TestAllClustersServerPagedForSingleRegion(t *testing.T) {
	inv := &fakeInventory{pages: func(p inventory.Pagination) inventory.Result {
		return inventory.Result{Items: []cluster.Cluster{plainCluster("c1", "one")}, Total: 25, Paged: true, Revision: 1, IsFetched: true}
	}}
	svc := newTestService(t, inv, 1)
	svc.Store().SetSort(viewstate.ClustersView, paging.Sort{Field: paging.FieldCreationTimestamp, Ascending: false})

	lv, err := svc.AllClusters(context.Background())
	require.NoError(t, err)

	call := inv.lastCall()
	require.NotNil(t, call.Pagination)
	assert.Equal(t, inventory.Pagination{Page: 1, PageSize: viewstate.DefaultPageSize, OrderBy: "creation_timestamp desc"}, *call.Pagination)
	assert.False(t, call.UseManagedEndpoints)
	assert.True(t, lv.ServerPaged)
	assert.Equal(t, 25, lv.TotalCount)
	assert.Equal(t, []string{"c1"}, ids(lv.Items))
	assert.Equal(t, 1, lv.ItemsStart)
	assert.Equal(t, 10, lv.ItemsEnd)
}

func TestAllClustersServerPagedRereadsCorrectedPage(t *testing.T) {
	inv := &fakeInventory{pages: func(p inventory.Pagination) inventory.Result {
		if p.Page == 2 {
			return inventory.Result{Items: []cluster.Cluster{plainCluster("c11", "eleven")}, Total: 11, Paged: true, IsFetched: true}
		}
		return inventory.Result{Items: []cluster.Cluster{}, Total: 11, Paged: true, IsFetched: true}
	}}
	svc := newTestService(t, inv, 1)
	_, err := svc.Store().SetPage(viewstate.ClustersView, 4)
	require.NoError(t, err)

	lv, err := svc.AllClusters(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, lv.State.CurrentPage)
	assert.Equal(t, []string{"c11"}, ids(lv.Items))
	assert.Equal(t, 2, inv.lastCall().Pagination.Page)
}

func TestAllClustersLocalPaging(t *testing.T) {
	items := fetched(plainCluster("c1", "bravo"), plainCluster("c2", "alpha"), hubCluster("c3", "charlie"))

	t.Run("several_regions", func(t *testing.T) {
		inv := &fakeInventory{result: items}
		svc := newTestService(t, inv, 2)
		lv, err := svc.AllClusters(context.Background())
		require.NoError(t, err)
		assert.Nil(t, inv.lastCall().Pagination)
		assert.False(t, lv.ServerPaged)
		assert.Equal(t, []string{"c2", "c1", "c3"}, ids(lv.Items))
	})

	t.Run("filter_set", func(t *testing.T) {
		inv := &fakeInventory{result: items}
		svc := newTestService(t, inv, 1)
		svc.Store().SetFilter(viewstate.ClustersView, viewstate.Filter{Text: "ha"})
		lv, err := svc.AllClusters(context.Background())
		require.NoError(t, err)
		assert.Nil(t, inv.lastCall().Pagination)
		assert.Equal(t, []string{"c2", "c3"}, ids(lv.Items))
	})

	t.Run("sort_field_not_orderable_upstream", func(t *testing.T) {
		inv := &fakeInventory{result: items}
		svc := newTestService(t, inv, 1)
		svc.Store().SetSort(viewstate.ClustersView, paging.Sort{Field: paging.FieldType, Ascending: true})
		_, err := svc.AllClusters(context.Background())
		require.NoError(t, err)
		assert.Nil(t, inv.lastCall().Pagination)
	})
}

func TestListViewFlags(t *testing.T) {
	regionErr := inventory.RegionError{Reason: "Forbidden", Region: "eu-west-1", OperationID: "op-1"}

	tests := []struct {
		name        string
		result      inventory.Result
		filter      viewstate.Filter
		warning     bool
		unavailable bool
		empty       bool
		pending     bool
	}{
		{
			name:   "data_without_errors",
			result: fetched(hubCluster("c1", "one")),
		},
		{
			name:    "partial_failure_with_data",
			result:  inventory.Result{Items: []cluster.Cluster{hubCluster("c1", "one")}, IsFetched: true, IsError: true, Errors: []inventory.RegionError{regionErr}},
			warning: true,
		},
		{
			name:        "failure_without_data",
			result:      inventory.Result{Items: []cluster.Cluster{}, IsFetched: true, IsError: true, Errors: []inventory.RegionError{regionErr}},
			unavailable: true,
		},
		{
			name:   "settled_empty_list",
			result: fetched(),
			empty:  true,
		},
		{
			name:   "empty_list_with_filter",
			result: fetched(),
			filter: viewstate.Filter{Text: "prod"},
		},
		{
			name:    "still_loading",
			result:  inventory.Result{Items: []cluster.Cluster{}, IsLoading: true},
			pending: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t, &fakeInventory{result: tt.result}, 2)
			svc.Store().SetFilter(viewstate.HubClustersView, tt.filter)

			lv, err := svc.HubClusters(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.warning, lv.ShowWarning, "warning")
			assert.Equal(t, tt.unavailable, lv.Unavailable, "unavailable")
			assert.Equal(t, tt.empty, lv.ShowEmptyState, "empty state")
			assert.Equal(t, tt.pending, lv.IsPending, "pending")
			assert.Equal(t, tt.result.IsError, lv.IsError)
		})
	}
}

func TestErrorDetails(t *testing.T) {
	details := ErrorDetails([]inventory.RegionError{
		{Reason: "Access denied", Region: "eu-west-1", OperationID: "op-7"},
		{Reason: "Timed out"},
		{Region: "ap-south-1"},
		{Reason: "Forbidden", OperationID: "op-8"},
	})
	assert.Equal(t, []string{
		"Access denied. While getting clusters for eu-west-1. (Operation ID: op-7)",
		"Timed out.",
		"Forbidden. (Operation ID: op-8)",
	}, details)

	assert.Empty(t, ErrorDetails(nil))
	assert.NotNil(t, ErrorDetails(nil))
}

func TestOrderBy(t *testing.T) {
	order, ok := orderBy(paging.Sort{Field: paging.FieldDisplayName, Ascending: true})
	assert.True(t, ok)
	assert.Equal(t, "display_name asc", order)

	order, ok = orderBy(paging.Sort{Field: paging.FieldCloudProvider})
	assert.True(t, ok)
	assert.Equal(t, "cloud_provider.id desc", order)

	_, ok = orderBy(paging.Sort{Field: paging.FieldType})
	assert.False(t, ok)
}

func TestValidateFilter(t *testing.T) {
	svc := newTestService(t, &fakeInventory{}, 1)
	require.NoError(t, svc.ValidateFilter(viewstate.Filter{}))
	require.NoError(t, svc.ValidateFilter(viewstate.Filter{Text: "prod", Expression: `cluster.state == "ready"`}))

	err := svc.ValidateFilter(viewstate.Filter{Expression: "cluster.state =="})
	var svcErr *apperrors.ServiceError
	require.True(t, errors.As(err, &svcErr))
	assert.Equal(t, apperrors.ErrorInvalidFilter, svcErr.Code)
}

func newSourceService(t *testing.T, services ...cluster_service.Service) *Service {
	t.Helper()
	reg, err := cluster_service.NewRegistry(services[0].Region(), services...)
	require.NoError(t, err)
	src, err := inventory.NewSource(reg, logger.NewTestLogger())
	require.NoError(t, err)
	return newTestService(t, src, len(services))
}

func TestHubClustersRecoversFromUnavailable(t *testing.T) {
	def := cluster_service.NewMockService("", hubCluster("c1", "prod-hub"))
	def.SetListError(fmt.Errorf("connection refused"))
	svc := newSourceService(t, def)
	ctx := context.Background()

	down, err := svc.HubClusters(ctx)
	require.NoError(t, err)
	assert.True(t, down.Unavailable)
	assert.Empty(t, down.Items)
	assert.Equal(t, []string{"connection refused."}, down.ErrorDetails)

	def.SetListError(nil)
	up, err := svc.HubClusters(ctx)
	require.NoError(t, err)
	assert.False(t, up.Unavailable)
	assert.False(t, up.IsError)
	assert.Empty(t, up.ErrorDetails)
	assert.Equal(t, []string{"c1"}, ids(up.Items))

	_, err = svc.HubClusters(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, def.ListCount(), "a clean read is served from cache")
}

func TestAllClustersWarningClearsWhenRegionRecovers(t *testing.T) {
	def := cluster_service.NewMockService("", plainCluster("c1", "alpha"))
	eu := cluster_service.NewMockService("eu-west-1", plainCluster("c2", "beta"))
	eu.SetListError(fmt.Errorf("region is down"))
	svc := newSourceService(t, def, eu)
	ctx := context.Background()

	warned, err := svc.AllClusters(ctx)
	require.NoError(t, err)
	assert.True(t, warned.ShowWarning)
	assert.Equal(t, 1, warned.TotalCount)
	assert.Equal(t, []string{"region is down. While getting clusters for eu-west-1."}, warned.ErrorDetails)

	eu.SetListError(nil)
	lv, err := svc.AllClusters(ctx)
	require.NoError(t, err)
	assert.False(t, lv.ShowWarning)
	assert.Empty(t, lv.ErrorDetails)
	assert.Equal(t, 2, lv.TotalCount)
}

func TestRefreshInvalidatesInventory(t *testing.T) {
	inv := &fakeInventory{result: fetched(hubCluster("c1", "prod-hub"))}
	svc := newTestService(t, inv, 1)

	svc.Refresh(context.Background())
	assert.Equal(t, 1, inv.invalidated)
}
