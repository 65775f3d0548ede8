// Package api serves the list views, view state and hub tagging operations
// over REST.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/openshift-hyperfleet/hub-clusters/internal/cluster"
	"github.com/openshift-hyperfleet/hub-clusters/internal/hub"
	"github.com/openshift-hyperfleet/hub-clusters/internal/hubview"
	"github.com/openshift-hyperfleet/hub-clusters/internal/paging"
	"github.com/openshift-hyperfleet/hub-clusters/internal/tagging"
	"github.com/openshift-hyperfleet/hub-clusters/internal/viewstate"
	apperrors "github.com/openshift-hyperfleet/hub-clusters/pkg/errors"
	"github.com/openshift-hyperfleet/hub-clusters/pkg/logger"
)

// APIPrefix is the path prefix of every route
const APIPrefix = "/api/v1"

// Clusters resolves cluster records for the tagging routes
type Clusters interface {
	Cluster(ctx context.Context, region, id string) (cluster.Cluster, error)
	Lookup(ctx context.Context, id string) (cluster.Cluster, error)
}

// Handler holds the services behind the REST routes
type Handler struct {
	views     *hubview.Service
	clusters  Clusters
	workflows *tagging.Workflows
	validate  *validator.Validate
	log       logger.Logger
}

// NewHandler creates a Handler
func NewHandler(views *hubview.Service, clusters Clusters, workflows *tagging.Workflows, log logger.Logger) *Handler {
	return &Handler{
		views:     views,
		clusters:  clusters,
		workflows: workflows,
		validate:  validator.New(),
		log:       log,
	}
}

// SetupRoutes registers the routes of h on router
func SetupRoutes(router *mux.Router, h *Handler) {
	r := router.PathPrefix(APIPrefix).Subrouter()

	// List views
	r.HandleFunc("/hub-clusters", h.ListHubClusters).Methods(http.MethodGet)
	r.HandleFunc("/clusters", h.ListClusters).Methods(http.MethodGet)
	r.HandleFunc("/clusters/{id}", h.GetCluster).Methods(http.MethodGet)

	// View state
	r.HandleFunc("/views/{view}", h.GetView).Methods(http.MethodGet)
	r.HandleFunc("/views/{view}", h.UpdateView).Methods(http.MethodPut)
	r.HandleFunc("/views/{view}", h.ResetView).Methods(http.MethodDelete)

	// Single item tagging
	r.HandleFunc("/clusters/{id}/hub-tag", h.GetHubTag).Methods(http.MethodGet)
	r.HandleFunc("/clusters/{id}/hub-tag/toggle", h.ToggleHubTag).Methods(http.MethodPost)

	// Batch tagging
	r.HandleFunc("/tag-workflows", h.OpenWorkflow).Methods(http.MethodPost)
	r.HandleFunc("/tag-workflows/{id}", h.GetWorkflow).Methods(http.MethodGet)
	r.HandleFunc("/tag-workflows/{id}", h.DismissWorkflow).Methods(http.MethodDelete)
	r.HandleFunc("/tag-workflows/{id}/selection", h.SetSelection).Methods(http.MethodPut)
	r.HandleFunc("/tag-workflows/{id}/tag", h.TagClusters).Methods(http.MethodPost)
}

// -----------------------------------------------------------------------------
// List views
// -----------------------------------------------------------------------------

// ListHubClusters handles GET /hub-clusters
func (h *Handler) ListHubClusters(w http.ResponseWriter, r *http.Request) {
	if err := h.refreshIfRequested(r); err != nil {
		h.respondError(w, r, err)
		return
	}
	lv, err := h.views.HubClusters(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, lv)
}

// ListClusters handles GET /clusters
func (h *Handler) ListClusters(w http.ResponseWriter, r *http.Request) {
	if err := h.refreshIfRequested(r); err != nil {
		h.respondError(w, r, err)
		return
	}
	lv, err := h.views.AllClusters(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, lv)
}

// refreshIfRequested drops the cached inventory for ?refresh=true
func (h *Handler) refreshIfRequested(r *http.Request) error {
	raw := r.URL.Query().Get("refresh")
	if raw == "" {
		return nil
	}
	refresh, err := strconv.ParseBool(raw)
	if err != nil {
		return apperrors.Validation("refresh must be a boolean, got %q", raw)
	}
	if refresh {
		h.views.Refresh(r.Context())
	}
	return nil
}

// GetCluster handles GET /clusters/{id}?region=
func (h *Handler) GetCluster(w http.ResponseWriter, r *http.Request) {
	c, err := h.clusters.Cluster(r.Context(), r.URL.Query().Get("region"), mux.Vars(r)["id"])
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

// -----------------------------------------------------------------------------
// View state
// -----------------------------------------------------------------------------

// viewNames maps path names to views; the view ids are accepted as well
var viewNames = map[string]viewstate.ViewID{
	"clusters":                        viewstate.ClustersView,
	"hub-clusters":                    viewstate.HubClustersView,
	string(viewstate.ClustersView):    viewstate.ClustersView,
	string(viewstate.HubClustersView): viewstate.HubClustersView,
}

// SortRequest selects a sort field by logical name or legacy column index
type SortRequest struct {
	Field     string `json:"field" validate:"required"`
	Ascending bool   `json:"ascending"`
}

// ViewUpdate changes part of a view state. Absent fields are kept.
type ViewUpdate struct {
	Page     *int              `json:"page,omitempty" validate:"omitempty,min=1"`
	PageSize *int              `json:"page_size,omitempty" validate:"omitempty,min=1,max=500"`
	Sort     *SortRequest      `json:"sort,omitempty"`
	Filter   *viewstate.Filter `json:"filter,omitempty"`
}

func (h *Handler) view(r *http.Request) (viewstate.ViewID, error) {
	name := mux.Vars(r)["view"]
	view, ok := viewNames[name]
	if !ok {
		return "", apperrors.NotFound("view %q not found", name)
	}
	return view, nil
}

// GetView handles GET /views/{view}
func (h *Handler) GetView(w http.ResponseWriter, r *http.Request) {
	view, err := h.view(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, h.views.Store().Get(view))
}

// UpdateView handles PUT /views/{view}. The filter is applied first since it
// moves the view back to the first page; an explicit page in the same
// request wins.
func (h *Handler) UpdateView(w http.ResponseWriter, r *http.Request) {
	view, err := h.view(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	var req ViewUpdate
	if err := h.decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	var sort *paging.Sort
	if req.Sort != nil {
		s, err := paging.ParseSort(req.Sort.Field, req.Sort.Ascending)
		if err != nil {
			h.respondError(w, r, apperrors.UnknownSortField("%s", err.Error()))
			return
		}
		sort = &s
	}
	if req.Filter != nil {
		if err := h.views.ValidateFilter(*req.Filter); err != nil {
			h.respondError(w, r, err)
			return
		}
	}

	store := h.views.Store()
	if req.Filter != nil {
		store.SetFilter(view, *req.Filter)
	}
	if sort != nil {
		store.SetSort(view, *sort)
	}
	if req.PageSize != nil {
		if _, err := store.SetPageSize(view, *req.PageSize); err != nil {
			h.respondError(w, r, apperrors.Validation("%s", err.Error()))
			return
		}
	}
	if req.Page != nil {
		if _, err := store.SetPage(view, *req.Page); err != nil {
			h.respondError(w, r, apperrors.Validation("%s", err.Error()))
			return
		}
	}
	respondJSON(w, http.StatusOK, store.Get(view))
}

// ResetView handles DELETE /views/{view}
func (h *Handler) ResetView(w http.ResponseWriter, r *http.Request) {
	view, err := h.view(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, h.views.Store().Reset(view))
}

// -----------------------------------------------------------------------------
// Single item tagging
// -----------------------------------------------------------------------------

// HubTagPreview describes what the single item action would do
type HubTagPreview struct {
	Cluster    cluster.Cluster `json:"cluster"`
	IsHub      bool            `json:"is_hub"`
	ActionText string          `json:"action_text"`
}

// ToggleResponse is the outcome of a single item toggle
type ToggleResponse struct {
	Cluster cluster.Cluster `json:"cluster"`
	Outcome tagging.Outcome `json:"outcome"`
	IsHub   bool            `json:"is_hub"`
}

func (h *Handler) resolveCluster(r *http.Request) (cluster.Cluster, error) {
	id := mux.Vars(r)["id"]
	if region := r.URL.Query().Get("region"); region != "" {
		return h.clusters.Cluster(r.Context(), region, id)
	}
	return h.clusters.Lookup(r.Context(), id)
}

// GetHubTag handles GET /clusters/{id}/hub-tag
func (h *Handler) GetHubTag(w http.ResponseWriter, r *http.Request) {
	c, err := h.resolveCluster(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, HubTagPreview{
		Cluster:    c,
		IsHub:      hub.IsHubTagged(c),
		ActionText: tagging.ActionText(c),
	})
}

// ToggleHubTag handles POST /clusters/{id}/hub-tag/toggle. The toggle runs
// in a workflow of its own which is dismissed afterwards.
func (h *Handler) ToggleHubTag(w http.ResponseWriter, r *http.Request) {
	c, err := h.resolveCluster(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	wf := h.workflows.Open()
	defer func() { _ = h.workflows.Dismiss(wf.ID()) }()

	ctx := logger.WithWorkflowID(r.Context(), wf.ID())
	res, err := wf.HandleToggleTag(ctx, c)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if !res.Succeeded() {
		h.respondError(w, r, clusterServiceError(res.Err))
		return
	}
	respondJSON(w, http.StatusOK, ToggleResponse{
		Cluster: res.Cluster,
		Outcome: res.Outcome,
		IsHub:   hub.IsHubTagged(res.Cluster),
	})
}

// -----------------------------------------------------------------------------
// Batch tagging
// -----------------------------------------------------------------------------

// SelectionRequest lists the clusters of a batch by id
type SelectionRequest struct {
	ClusterIDs []string `json:"cluster_ids" validate:"dive,required"`
}

// TagResponse is the outcome of a batch run and the workflow afterwards
type TagResponse struct {
	SuccessCount int               `json:"success_count"`
	Failures     []tagging.Failure `json:"failures"`
	Workflow     tagging.State     `json:"workflow"`
}

func (h *Handler) workflow(r *http.Request) (*tagging.Workflow, error) {
	return h.workflows.Get(mux.Vars(r)["id"])
}

func (h *Handler) lookupAll(ctx context.Context, ids []string) ([]cluster.Cluster, error) {
	out := make([]cluster.Cluster, 0, len(ids))
	for _, id := range ids {
		c, err := h.clusters.Lookup(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// OpenWorkflow handles POST /tag-workflows. An initial selection may be sent.
func (h *Handler) OpenWorkflow(w http.ResponseWriter, r *http.Request) {
	var req SelectionRequest
	if r.ContentLength != 0 {
		if err := h.decode(r, &req); err != nil {
			h.respondError(w, r, err)
			return
		}
	}
	selected, err := h.lookupAll(r.Context(), req.ClusterIDs)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	wf := h.workflows.Open()
	if err := wf.SetSelection(selected); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.log.Infof(logger.WithWorkflowID(r.Context(), wf.ID()), "Opened tagging workflow with %d cluster(s)", len(selected))
	respondJSON(w, http.StatusCreated, wf.State())
}

// GetWorkflow handles GET /tag-workflows/{id}
func (h *Handler) GetWorkflow(w http.ResponseWriter, r *http.Request) {
	wf, err := h.workflow(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, wf.State())
}

// DismissWorkflow handles DELETE /tag-workflows/{id}
func (h *Handler) DismissWorkflow(w http.ResponseWriter, r *http.Request) {
	if err := h.workflows.Dismiss(mux.Vars(r)["id"]); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetSelection handles PUT /tag-workflows/{id}/selection
func (h *Handler) SetSelection(w http.ResponseWriter, r *http.Request) {
	wf, err := h.workflow(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	var req SelectionRequest
	if err := h.decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	selected, err := h.lookupAll(r.Context(), req.ClusterIDs)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := wf.SetSelection(selected); err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, wf.State())
}

// TagClusters handles POST /tag-workflows/{id}/tag
func (h *Handler) TagClusters(w http.ResponseWriter, r *http.Request) {
	wf, err := h.workflow(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	ctx := logger.WithWorkflowID(r.Context(), wf.ID())
	res, err := wf.HandleTagClusters(ctx)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, TagResponse{
		SuccessCount: res.SuccessCount,
		Failures:     res.Failures,
		Workflow:     wf.State(),
	})
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

// decode reads a JSON body into v and validates its struct tags
func (h *Handler) decode(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperrors.MalformedRequest("invalid request body: %s", err.Error())
	}
	if err := h.validate.Struct(v); err != nil {
		return apperrors.Validation("%s", err.Error())
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
