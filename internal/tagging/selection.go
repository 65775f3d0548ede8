package tagging

import (
	"github.com/openshift-hyperfleet/hub-clusters/internal/cluster"
	"k8s.io/apimachinery/pkg/util/sets"
)

// SelectionSet is an ordered set of clusters, unique by id.
// It is not safe for concurrent use.
type SelectionSet struct {
	items []cluster.Cluster
	ids   sets.Set[string]
}

// NewSelectionSet returns a set holding clusters in order, skipping duplicates
func NewSelectionSet(clusters ...cluster.Cluster) *SelectionSet {
	s := &SelectionSet{ids: sets.New[string]()}
	for _, c := range clusters {
		s.Add(c)
	}
	return s
}

// Add appends c unless a cluster with the same id is present
func (s *SelectionSet) Add(c cluster.Cluster) bool {
	if s.ids.Has(c.ID) {
		return false
	}
	s.ids.Insert(c.ID)
	s.items = append(s.items, c)
	return true
}

// Remove drops the cluster with id
func (s *SelectionSet) Remove(id string) bool {
	if !s.ids.Has(id) {
		return false
	}
	s.ids.Delete(id)
	for i, c := range s.items {
		if c.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			break
		}
	}
	return true
}

func (s *SelectionSet) Has(id string) bool {
	return s.ids.Has(id)
}

func (s *SelectionSet) Len() int {
	return len(s.items)
}

// Items returns the selected clusters in selection order
func (s *SelectionSet) Items() []cluster.Cluster {
	return append([]cluster.Cluster{}, s.items...)
}

// IDs returns the selected ids in selection order
func (s *SelectionSet) IDs() []string {
	out := make([]string, 0, len(s.items))
	for _, c := range s.items {
		out = append(out, c.ID)
	}
	return out
}

func (s *SelectionSet) Clear() {
	s.items = nil
	s.ids = sets.New[string]()
}
