// Package hub derives the hub subset of the cluster inventory.
package hub

import (
	"sync"

	"github.com/openshift-hyperfleet/hub-clusters/internal/cluster"
	"github.com/openshift-hyperfleet/hub-clusters/pkg/constants"
)

// IsHubTagged reports whether the resolved property bag of c carries the hub
// tag. Only the exact value "true" counts; "false", "" and a missing key do not.
func IsHubTagged(c cluster.Cluster) bool {
	v, ok := cluster.PropertiesOf(c)[constants.HubTagKey]
	return ok && v == constants.HubTagValue
}

// Filter returns the hub tagged clusters of items in their original order.
// A nil inventory yields an empty, non-nil result.
func Filter(items []cluster.Cluster) []cluster.Cluster {
	out := make([]cluster.Cluster, 0)
	for _, c := range items {
		if IsHubTagged(c) {
			out = append(out, c)
		}
	}
	return out
}

// Memo caches the last Filter result keyed by an inventory revision so
// callers get the same slice back while the inventory is unchanged.
type Memo struct {
	mu       sync.Mutex
	valid    bool
	revision uint64
	result   []cluster.Cluster
}

// Filter returns the memoized hub subset for revision, computing it from
// items when the revision changed since the previous call.
func (m *Memo) Filter(revision uint64, items []cluster.Cluster) []cluster.Cluster {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.valid && m.revision == revision {
		return m.result
	}
	m.result = Filter(items)
	m.revision = revision
	m.valid = true
	return m.result
}

// Reset drops the memoized result
func (m *Memo) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.valid = false
	m.result = nil
}
