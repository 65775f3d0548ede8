package hub

import (
	"fmt"
	"testing"

	"github.com/openshift-hyperfleet/hub-clusters/internal/cluster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsHubTagged(t *testing.T) {
	tests := []struct {
		name     string
		cluster  cluster.Cluster
		expected bool
	}{
		{"managed_true", cluster.NewManaged("a", "", "", cluster.Properties{"acm_hub": "true"}), true},
		{"unmanaged_true", cluster.NewUnmanaged("b", "", "", cluster.Properties{"acm_hub": "true"}), true},
		{"false_value", cluster.NewManaged("c", "", "", cluster.Properties{"acm_hub": "false"}), false},
		{"empty_value", cluster.NewManaged("d", "", "", cluster.Properties{"acm_hub": ""}), false},
		{"uppercase_value", cluster.NewManaged("e", "", "", cluster.Properties{"acm_hub": "TRUE"}), false},
		{"missing_key", cluster.NewManaged("f", "", "", cluster.Properties{"other": "true"}), false},
		{"nil_bag", cluster.NewUnmanaged("g", "", "", nil), false},
		{"no_variant", cluster.Cluster{ID: "h"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsHubTagged(tt.cluster))
		})
	}
}

func TestIsHubTaggedUsesAuthoritativeBagOnly(t *testing.T) {
	// A managed cluster whose non-authoritative bag is tagged is not a hub
	c := cluster.Cluster{ID: "x", Variant: cluster.Managed{Properties: cluster.Properties{}}}
	assert.False(t, IsHubTagged(c))
}

func inventory(n int, tagged map[int]bool) []cluster.Cluster {
	items := make([]cluster.Cluster, 0, n)
	for i := 0; i < n; i++ {
		props := cluster.Properties{}
		if tagged[i] {
			props["acm_hub"] = "true"
		}
		if i%2 == 0 {
			items = append(items, cluster.NewManaged(fmt.Sprintf("c%02d", i), "", "", props))
		} else {
			items = append(items, cluster.NewUnmanaged(fmt.Sprintf("c%02d", i), "", "", props))
		}
	}
	return items
}

func TestFilter(t *testing.T) {
	t.Run("nil_inventory_is_empty_not_nil", func(t *testing.T) {
		result := Filter(nil)
		require.NotNil(t, result)
		assert.Empty(t, result)
	})

	t.Run("keeps_order", func(t *testing.T) {
		items := inventory(12, map[int]bool{1: true, 4: true, 7: true, 11: true})
		result := Filter(items)
		require.Len(t, result, 4)
		ids := []string{result[0].ID, result[1].ID, result[2].ID, result[3].ID}
		assert.Equal(t, []string{"c01", "c04", "c07", "c11"}, ids)
	})

	t.Run("idempotent", func(t *testing.T) {
		items := inventory(12, map[int]bool{0: true, 3: true, 5: true})
		once := Filter(items)
		assert.Equal(t, once, Filter(once))
	})
}

func TestMemo(t *testing.T) {
	items := inventory(6, map[int]bool{2: true, 3: true})
	var memo Memo

	first := memo.Filter(1, items)
	second := memo.Filter(1, items)
	require.Len(t, first, 2)
	assert.Same(t, &first[0], &second[0], "unchanged revision must return the same slice")

	third := memo.Filter(2, inventory(6, map[int]bool{0: true}))
	require.Len(t, third, 1)
	assert.Equal(t, "c00", third[0].ID)

	memo.Reset()
	fourth := memo.Filter(2, items)
	assert.Len(t, fourth, 2)
}
