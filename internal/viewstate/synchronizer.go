package viewstate

import (
	"context"
	"sync"

	"github.com/openshift-hyperfleet/hub-clusters/pkg/logger"
)

type observation struct {
	total    int
	page     int
	pageSize int
}

// Synchronizer corrects stale pages once data has settled. It only
// recomputes when the total, the page or the page size changed since the
// last settled observation of a view.
type Synchronizer struct {
	store *Store
	log   logger.Logger

	mu   sync.Mutex
	last map[ViewID]observation
}

// NewSynchronizer creates a synchronizer over store
func NewSynchronizer(store *Store, log logger.Logger) *Synchronizer {
	return &Synchronizer{
		store: store,
		log:   log,
		last:  make(map[ViewID]observation),
	}
}

// Observe reports the filtered total of view. While loading nothing is
// recorded or corrected. It returns the resulting state and whether the
// current page was moved.
func (s *Synchronizer) Observe(ctx context.Context, view ViewID, total int, loading bool) (State, bool) {
	st := s.store.Get(view)
	if loading {
		return st, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	obs := observation{total: total, page: st.CurrentPage, pageSize: st.PageSize}
	if prev, ok := s.last[view]; ok && prev == obs {
		return st, false
	}

	st, corrected := s.store.reconcile(view, total)
	if corrected {
		ctx = logger.WithViewID(ctx, string(view))
		s.log.Infof(ctx, "Page %d is past the end of %d items, moved to page %d",
			obs.page, total, st.CurrentPage)
	}
	s.last[view] = observation{total: total, page: st.CurrentPage, pageSize: st.PageSize}
	return st, corrected
}

// Forget drops the last observation of view so the next Observe recomputes
func (s *Synchronizer) Forget(view ViewID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.last, view)
}
