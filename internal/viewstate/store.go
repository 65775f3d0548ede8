// Package viewstate holds per view pagination, sort and filter state for the
// life of the process and keeps it consistent with the list it describes.
package viewstate

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/openshift-hyperfleet/hub-clusters/internal/paging"
)

// ViewID identifies a list view so views do not share page or sort state
type ViewID string

const (
	// ClustersView is the list of all clusters
	ClustersView ViewID = "CLUSTERS_VIEW"
	// HubClustersView is the list of hub tagged clusters
	HubClustersView ViewID = "ACM_HUB_CLUSTERS_VIEW"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 10
)

var (
	ErrInvalidPage     = errors.New("page must be 1 or greater")
	ErrInvalidPageSize = errors.New("page size must be 1 or greater")
)

// Filter narrows a list. Text is a case insensitive substring match on the
// cluster name; Expression is a CEL expression over the cluster.
type Filter struct {
	Text       string `json:"text,omitempty"`
	Expression string `json:"expression,omitempty"`
}

// IsEmpty reports whether no filter is set
func (f Filter) IsEmpty() bool {
	return f.Text == "" && f.Expression == ""
}

// State is the view state of one list
type State struct {
	CurrentPage int         `json:"current_page"`
	PageSize    int         `json:"page_size"`
	Sort        paging.Sort `json:"sort"`
	Filter      Filter      `json:"filter"`
	// TotalCount is the size of the filtered list last observed for the view
	TotalCount int `json:"total_count"`
}

// Request returns the page request described by the state
func (s State) Request() paging.Request {
	return paging.Request{Page: s.CurrentPage, PageSize: s.PageSize}
}

// StoreOption configures a Store
type StoreOption func(*Store)

// WithDefaultPageSize sets the page size of views on first access
func WithDefaultPageSize(size int) StoreOption {
	return func(s *Store) {
		if size > 0 {
			s.defaultPageSize = size
		}
	}
}

// WithDefaultSort sets the sort of views on first access
func WithDefaultSort(sort paging.Sort) StoreOption {
	return func(s *Store) {
		s.defaultSort = sort
	}
}

// Store is the process wide view state keyed by view id. It is safe for
// concurrent use.
type Store struct {
	mu              sync.RWMutex
	views           map[ViewID]*State
	defaultPageSize int
	defaultSort     paging.Sort
}

// NewStore creates an empty store
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		views:           make(map[ViewID]*State),
		defaultPageSize: DefaultPageSize,
		defaultSort:     paging.DefaultSort(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) defaults() State {
	return State{
		CurrentPage: DefaultPage,
		PageSize:    s.defaultPageSize,
		Sort:        s.defaultSort,
	}
}

// state returns the mutable state of view, creating it with defaults. Callers hold s.mu.
func (s *Store) state(view ViewID) *State {
	st, ok := s.views[view]
	if !ok {
		d := s.defaults()
		st = &d
		s.views[view] = st
	}
	return st
}

// Get returns the state of view, initializing it with defaults on first access
func (s *Store) Get(view ViewID) State {
	s.mu.RLock()
	if st, ok := s.views[view]; ok {
		defer s.mu.RUnlock()
		return *st
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.state(view)
}

// SetPage moves view to page
func (s *Store) SetPage(view ViewID, page int) (State, error) {
	if page < 1 {
		return State{}, fmt.Errorf("%w: %d", ErrInvalidPage, page)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state(view)
	st.CurrentPage = page
	return *st, nil
}

// SetPageSize changes the page size and re-anchors the current page to the
// page that holds the first item shown before the change.
func (s *Store) SetPageSize(view ViewID, size int) (State, error) {
	if size < 1 {
		return State{}, fmt.Errorf("%w: %d", ErrInvalidPageSize, size)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state(view)
	if size == st.PageSize {
		return *st, nil
	}
	firstIndex := (st.CurrentPage - 1) * st.PageSize
	st.CurrentPage = firstIndex/size + 1
	st.PageSize = size
	return *st, nil
}

// SetSort changes the sort of view. The current page is kept.
func (s *Store) SetSort(view ViewID, sort paging.Sort) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state(view)
	st.Sort = sort
	return *st
}

// SetFilter changes the filter of view and returns to the first page, since
// the filtered list no longer matches the old page positions.
func (s *Store) SetFilter(view ViewID, filter Filter) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state(view)
	if st.Filter != filter {
		st.Filter = filter
		st.CurrentPage = DefaultPage
	}
	return *st
}

// Reset restores the defaults of view
func (s *Store) Reset(view ViewID) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.defaults()
	s.views[view] = &d
	return d
}

// Views returns the ids of all initialized views, sorted
func (s *Store) Views() []ViewID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ViewID, 0, len(s.views))
	for id := range s.views {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// reconcile records total for view and moves a page past the end of the list
// to the last valid page. It reports whether the page was corrected.
func (s *Store) reconcile(view ViewID, total int) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state(view)
	st.TotalCount = total
	if total > 0 && (st.CurrentPage-1)*st.PageSize >= total {
		st.CurrentPage = paging.PageCount(total, st.PageSize)
		return *st, true
	}
	return *st, false
}
