// Package hubview composes the list views served to the console: the
// inventory is narrowed to the hub subset or kept whole, filtered, checked
// against the view state and cut into the requested page.
package hubview

import (
	"context"
	"fmt"

	"github.com/openshift-hyperfleet/hub-clusters/internal/cluster"
	"github.com/openshift-hyperfleet/hub-clusters/internal/criteria"
	"github.com/openshift-hyperfleet/hub-clusters/internal/hub"
	"github.com/openshift-hyperfleet/hub-clusters/internal/inventory"
	"github.com/openshift-hyperfleet/hub-clusters/internal/paging"
	"github.com/openshift-hyperfleet/hub-clusters/internal/viewstate"
	apperrors "github.com/openshift-hyperfleet/hub-clusters/pkg/errors"
	"github.com/openshift-hyperfleet/hub-clusters/pkg/logger"
)

// ListView is one rendered page of a list and the flags the console needs to
// decide what to show around it.
type ListView struct {
	Items      []cluster.Cluster `json:"items"`
	TotalCount int               `json:"total_count"`
	ItemsStart int               `json:"items_start"`
	ItemsEnd   int               `json:"items_end"`
	State      viewstate.State   `json:"state"`

	IsLoading    bool     `json:"is_loading"`
	IsPending    bool     `json:"is_pending"`
	IsError      bool     `json:"is_error"`
	ErrorDetails []string `json:"error_details"`
	// ShowWarning is set when some regions failed but data is available
	ShowWarning bool `json:"show_warning"`
	// Unavailable is set when reads failed and no data is available
	Unavailable bool `json:"unavailable"`
	// ShowEmptyState is set for a settled, error free, unfiltered empty list
	ShowEmptyState bool `json:"show_empty_state"`
	// ServerPaged is set when the page was cut by the cluster service
	ServerPaged bool `json:"server_paged"`
}

// Inventory is the read side of the cluster inventory
type Inventory interface {
	Fetch(ctx context.Context, opts inventory.Options) inventory.Result
	// Invalidate forces the next Fetch to read the regions again
	Invalidate()
}

// Config describes the deployment the views read from
type Config struct {
	// Regions is the number of configured regions
	Regions int
	// IncludeArchived lists archived clusters in the all clusters view
	IncludeArchived bool
}

// Service builds list views
type Service struct {
	inventory Inventory
	store     *viewstate.Store
	sync      *viewstate.Synchronizer
	criteria  *criteria.Evaluator
	log       logger.Logger
	cfg       Config

	hubs hub.Memo
}

// NewService creates a Service
func NewService(inv Inventory, store *viewstate.Store, eval *criteria.Evaluator, log logger.Logger, cfg Config) (*Service, error) {
	if inv == nil || store == nil || eval == nil || log == nil {
		return nil, fmt.Errorf("inventory, store, evaluator and logger are required")
	}
	return &Service{
		inventory: inv,
		store:     store,
		sync:      viewstate.NewSynchronizer(store, log),
		criteria:  eval,
		log:       log,
		cfg:       cfg,
	}, nil
}

// Store returns the view state store backing the views
func (s *Service) Store() *viewstate.Store {
	return s.store
}

// ValidateFilter checks that the expression of f compiles
func (s *Service) ValidateFilter(f viewstate.Filter) error {
	if err := s.criteria.Validate(criteria.Criteria{Text: f.Text, Expression: f.Expression}); err != nil {
		return apperrors.InvalidFilter("%s", err.Error())
	}
	return nil
}

// Refresh drops the cached inventory so the next view reads every region again
func (s *Service) Refresh(ctx context.Context) {
	s.log.Debug(ctx, "Refreshing cluster inventory")
	s.inventory.Invalidate()
}

// HubClusters renders the hub cluster view. The cluster service cannot filter
// by property, so the full inventory is read and paged locally.
func (s *Service) HubClusters(ctx context.Context) (ListView, error) {
	ctx = logger.WithViewID(ctx, string(viewstate.HubClustersView))
	res := s.inventory.Fetch(ctx, inventory.Options{UseManagedEndpoints: true})
	hubs := s.hubs.Filter(res.Revision, res.Items)
	return s.render(ctx, viewstate.HubClustersView, res, hubs)
}

// AllClusters renders the all clusters view. With a single region and no
// filter the cluster service pages and sorts; otherwise the merged inventory
// is paged locally.
func (s *Service) AllClusters(ctx context.Context) (ListView, error) {
	view := viewstate.ClustersView
	ctx = logger.WithViewID(ctx, string(view))

	st := s.store.Get(view)
	order, ok := orderBy(st.Sort)
	if s.cfg.Regions != 1 || !st.Filter.IsEmpty() || !ok {
		res := s.inventory.Fetch(ctx, inventory.Options{IncludeArchived: s.cfg.IncludeArchived})
		return s.render(ctx, view, res, res.Items)
	}

	res := s.fetchPage(ctx, st, order)
	lv, corrected, err := s.renderPaged(ctx, view, res)
	if err != nil || !corrected {
		return lv, err
	}
	// the page moved; read the corrected page
	st = s.store.Get(view)
	order, _ = orderBy(st.Sort)
	lv, _, err = s.renderPaged(ctx, view, s.fetchPage(ctx, st, order))
	return lv, err
}

func (s *Service) fetchPage(ctx context.Context, st viewstate.State, order string) inventory.Result {
	return s.inventory.Fetch(ctx, inventory.Options{
		IncludeArchived: s.cfg.IncludeArchived,
		Pagination: &inventory.Pagination{
			Page:     st.CurrentPage,
			PageSize: st.PageSize,
			OrderBy:  order,
		},
	})
}

func (s *Service) renderPaged(ctx context.Context, view viewstate.ViewID, res inventory.Result) (ListView, bool, error) {
	st, corrected := s.sync.Observe(ctx, view, res.Total, res.IsLoading)
	page := paging.Paginate(paging.Source{Items: res.Items, Paged: true, Total: res.Total}, st.Sort, st.Request())
	lv := s.listView(st, res, res.Items, page)
	lv.ServerPaged = true
	return lv, corrected, nil
}

func (s *Service) render(ctx context.Context, view viewstate.ViewID, res inventory.Result, items []cluster.Cluster) (ListView, error) {
	st := s.store.Get(view)
	filtered, err := s.criteria.Filter(ctx, items, criteria.Criteria{Text: st.Filter.Text, Expression: st.Filter.Expression})
	if err != nil {
		return ListView{}, apperrors.InvalidFilter("%s", err.Error())
	}

	st, _ = s.sync.Observe(ctx, view, len(filtered), res.IsLoading)
	page := paging.Paginate(paging.Source{Items: filtered}, st.Sort, st.Request())
	return s.listView(st, res, items, page), nil
}

// listView derives the presentation flags. items is the list before text
// and expression filtering.
func (s *Service) listView(st viewstate.State, res inventory.Result, items []cluster.Cluster, page paging.Page) ListView {
	start, end := paging.Bounds(page.TotalCount, st.CurrentPage, st.PageSize)
	hasData := len(items) > 0
	loading := res.IsLoading || res.IsFetching
	return ListView{
		Items:          page.Items,
		TotalCount:     page.TotalCount,
		ItemsStart:     start,
		ItemsEnd:       end,
		State:          st,
		IsLoading:      res.IsLoading,
		IsPending:      !hasData && (res.IsLoading || !res.IsFetched),
		IsError:        res.IsError,
		ErrorDetails:   ErrorDetails(res.Errors),
		ShowWarning:    res.IsError && hasData,
		Unavailable:    res.IsError && !hasData && res.IsFetched,
		ShowEmptyState: !loading && !res.IsError && !hasData && st.Filter.IsEmpty(),
	}
}

// ErrorDetails renders region errors for display. Errors without a reason
// are skipped.
func ErrorDetails(errs []inventory.RegionError) []string {
	details := []string{}
	for _, e := range errs {
		if e.Reason == "" {
			continue
		}
		msg := e.Reason + "."
		if e.Region != "" {
			msg += " While getting clusters for " + e.Region + "."
		}
		if e.OperationID != "" {
			msg += " (Operation ID: " + e.OperationID + ")"
		}
		details = append(details, msg)
	}
	return details
}

// orderAttributes maps sort fields to the attributes the cluster service orders by
var orderAttributes = map[paging.Field]string{
	paging.FieldID:                "id",
	paging.FieldName:              "name",
	paging.FieldDisplayName:       "display_name",
	paging.FieldState:             "state",
	paging.FieldCreationTimestamp: "creation_timestamp",
	paging.FieldOpenshiftVersion:  "openshift_version",
	paging.FieldCloudProvider:     "cloud_provider.id",
	paging.FieldRegion:            "region.id",
}

// orderBy renders s for the cluster service. It reports false for fields the
// service cannot order by.
func orderBy(s paging.Sort) (string, bool) {
	attr, ok := orderAttributes[s.Field]
	if !ok {
		return "", false
	}
	dir := "asc"
	if !s.Ascending {
		dir = "desc"
	}
	return attr + " " + dir, true
}
