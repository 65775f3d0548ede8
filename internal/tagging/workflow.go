package tagging

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/openshift-hyperfleet/hub-clusters/internal/cluster"
	apperrors "github.com/openshift-hyperfleet/hub-clusters/pkg/errors"
	"github.com/openshift-hyperfleet/hub-clusters/pkg/logger"
)

// State is the workflow as shown to the console
type State struct {
	ID               string            `json:"id"`
	SelectedClusters []cluster.Cluster `json:"selected_clusters"`
	TaggingErrors    []Failure         `json:"tagging_errors"`
	IsProcessing     bool              `json:"is_processing"`
	IsOpen           bool              `json:"is_open"`
	// Error is the inline error of the last single item toggle
	Error string `json:"error,omitempty"`
}

// Workflow is one interactive tagging session: a selection, the errors of the
// last run and whether a run is in progress. Only one run may be in progress.
type Workflow struct {
	id    string
	coord *Coordinator
	log   logger.Logger

	mu         sync.Mutex
	selection  *SelectionSet
	errors     []Failure
	processing bool
	open       bool
	inlineErr  string
	updatedAt  time.Time
}

// NewWorkflow opens a workflow with an empty selection
func NewWorkflow(coord *Coordinator) *Workflow {
	return &Workflow{
		id:        uuid.NewString(),
		coord:     coord,
		log:       coord.log,
		selection: NewSelectionSet(),
		errors:    []Failure{},
		open:      true,
		updatedAt: time.Now(),
	}
}

func (w *Workflow) ID() string {
	return w.id
}

// State returns a snapshot of the workflow
func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return State{
		ID:               w.id,
		SelectedClusters: w.selection.Items(),
		TaggingErrors:    append([]Failure{}, w.errors...),
		IsProcessing:     w.processing,
		IsOpen:           w.open,
		Error:            w.inlineErr,
	}
}

// Select adds c to the selection
func (w *Workflow) Select(c cluster.Cluster) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.processing {
		return apperrors.WorkflowBusy("")
	}
	w.selection.Add(c)
	w.touch()
	return nil
}

// Deselect removes the cluster with id from the selection
func (w *Workflow) Deselect(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.processing {
		return apperrors.WorkflowBusy("")
	}
	w.selection.Remove(id)
	w.touch()
	return nil
}

// SetSelection replaces the selection
func (w *Workflow) SetSelection(clusters []cluster.Cluster) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.processing {
		return apperrors.WorkflowBusy("")
	}
	w.selection = NewSelectionSet(clusters...)
	w.touch()
	return nil
}

// HandleTagClusters tags the selection. The workflow closes and the selection
// is cleared only when no cluster failed; otherwise the failures are kept for
// display. An empty selection makes no calls and closes the workflow.
func (w *Workflow) HandleTagClusters(ctx context.Context) (BatchResult, error) {
	w.mu.Lock()
	if w.processing {
		w.mu.Unlock()
		return BatchResult{}, apperrors.WorkflowBusy("")
	}
	if w.selection.Len() == 0 {
		defer w.mu.Unlock()
		w.errors = []Failure{}
		w.open = false
		w.touch()
		return BatchResult{Results: []Result{}, Failures: []Failure{}}, nil
	}
	w.processing = true
	w.errors = []Failure{}
	selected := w.selection.Items()
	w.mu.Unlock()
	defer w.release()

	ctx = logger.WithWorkflowID(ctx, w.id)
	result := w.coord.TagBatch(ctx, selected)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.errors = result.Failures
	if len(result.Failures) == 0 {
		w.open = false
		w.selection.Clear()
	}
	w.touch()
	return result, nil
}

// HandleToggleTag flips the hub tag of c. A failure is kept as the inline
// error and the workflow stays open; a success closes it.
func (w *Workflow) HandleToggleTag(ctx context.Context, c cluster.Cluster) (Result, error) {
	w.mu.Lock()
	if w.processing {
		w.mu.Unlock()
		return Result{}, apperrors.WorkflowBusy("")
	}
	w.processing = true
	w.inlineErr = ""
	w.mu.Unlock()
	defer w.release()

	ctx = logger.WithWorkflowID(ctx, w.id)
	result := w.coord.Toggle(ctx, c)

	w.mu.Lock()
	defer w.mu.Unlock()
	if result.Succeeded() {
		w.open = false
	} else {
		w.inlineErr = errorMessage(result.Err)
	}
	w.touch()
	return result, nil
}

// Dismiss closes the workflow and clears the selection and errors
func (w *Workflow) Dismiss() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.processing {
		return apperrors.WorkflowBusy("")
	}
	w.open = false
	w.selection.Clear()
	w.errors = []Failure{}
	w.inlineErr = ""
	w.touch()
	return nil
}

// release ends a run, also when the run panicked
func (w *Workflow) release() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.processing = false
	w.touch()
}

func (w *Workflow) touch() {
	w.updatedAt = time.Now()
}

func (w *Workflow) idleSince() (time.Time, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.updatedAt, w.processing
}

// Workflows keeps open workflows by id
type Workflows struct {
	coord *Coordinator

	mu        sync.Mutex
	workflows map[string]*Workflow
}

// NewWorkflows creates an empty registry
func NewWorkflows(coord *Coordinator) *Workflows {
	return &Workflows{coord: coord, workflows: make(map[string]*Workflow)}
}

// Open starts a new workflow
func (r *Workflows) Open() *Workflow {
	w := NewWorkflow(r.coord)
	r.mu.Lock()
	r.workflows[w.id] = w
	r.mu.Unlock()
	return w
}

// Get returns the workflow with id
func (r *Workflows) Get(id string) (*Workflow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.workflows[id]
	if !ok {
		return nil, apperrors.NotFound("tagging workflow %q not found", id)
	}
	return w, nil
}

// Dismiss dismisses and forgets the workflow with id
func (r *Workflows) Dismiss(id string) error {
	w, err := r.Get(id)
	if err != nil {
		return err
	}
	if err := w.Dismiss(); err != nil {
		return err
	}
	r.mu.Lock()
	delete(r.workflows, id)
	r.mu.Unlock()
	return nil
}

// IDs returns the ids of every known workflow, sorted
func (r *Workflows) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.workflows))
	for id := range r.workflows {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Prune forgets workflows idle for longer than maxIdle and returns how many
// were removed. Workflows with a run in progress are kept.
func (r *Workflows) Prune(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, w := range r.workflows {
		updated, processing := w.idleSince()
		if !processing && updated.Before(cutoff) {
			delete(r.workflows, id)
			removed++
		}
	}
	return removed
}
