// Package paging sorts and slices cluster lists for display. The same
// contract serves lists already paged by the cluster service (passthrough)
// and full lists paged locally.
package paging

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/openshift-hyperfleet/hub-clusters/internal/cluster"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Field is a cluster attribute that lists can be sorted by
type Field string

const (
	FieldID                Field = "id"
	FieldName              Field = "name"
	FieldDisplayName       Field = "display_name"
	FieldState             Field = "state"
	FieldType              Field = "type"
	FieldCreationTimestamp Field = "creation_timestamp"
	FieldOpenshiftVersion  Field = "openshift_version"
	FieldCloudProvider     Field = "cloud_provider"
	FieldRegion            Field = "region"
)

// ErrUnknownSortField is returned when a sort field does not resolve to a
// cluster attribute.
var ErrUnknownSortField = errors.New("unknown sort field")

// fieldNames translates logical and display names to attributes
var fieldNames = map[string]Field{
	"id":                 FieldID,
	"name":               FieldName,
	"display_name":       FieldDisplayName,
	"state":              FieldState,
	"type":               FieldType,
	"created_at":         FieldCreationTimestamp,
	"creation_timestamp": FieldCreationTimestamp,
	"version":            FieldOpenshiftVersion,
	"openshift_version":  FieldOpenshiftVersion,
	"provider":           FieldCloudProvider,
	"cloud_provider":     FieldCloudProvider,
	"region":             FieldRegion,
}

// columns maps legacy numeric column indices, as sent by table headers, to attributes
var columns = []Field{
	FieldDisplayName,
	FieldState,
	FieldType,
	FieldCreationTimestamp,
	FieldOpenshiftVersion,
	FieldCloudProvider,
	FieldRegion,
}

// Sort is a resolved sort order
type Sort struct {
	Field     Field `json:"field"`
	Ascending bool  `json:"ascending"`
}

// DefaultSort orders by display name, ascending
func DefaultSort() Sort {
	return Sort{Field: FieldDisplayName, Ascending: true}
}

// ParseSort resolves a logical field name or a numeric column index.
func ParseSort(field string, ascending bool) (Sort, error) {
	key := strings.ToLower(strings.TrimSpace(field))
	if f, ok := fieldNames[key]; ok {
		return Sort{Field: f, Ascending: ascending}, nil
	}
	if idx, err := strconv.Atoi(key); err == nil && idx >= 0 && idx < len(columns) {
		return Sort{Field: columns[idx], Ascending: ascending}, nil
	}
	return Sort{}, fmt.Errorf("%w: %q", ErrUnknownSortField, field)
}

// Value returns the string value of field on c. Missing values are "".
func Value(c cluster.Cluster, field Field) string {
	switch field {
	case FieldID:
		return c.ID
	case FieldName:
		return c.Name
	case FieldDisplayName:
		return c.DisplayName
	case FieldState:
		return c.State
	case FieldType:
		if c.Variant == nil {
			return ""
		}
		if c.IsManaged() {
			return "managed"
		}
		return "unmanaged"
	case FieldCreationTimestamp:
		return c.CreationTimestamp
	case FieldOpenshiftVersion:
		return c.OpenshiftVersion
	case FieldCloudProvider:
		return c.CloudProvider
	case FieldRegion:
		return c.Region
	default:
		return ""
	}
}

// SortItems returns a stably sorted copy of items. Values are compared with
// English collation in numeric mode so "2" sorts before "10". Descending
// order negates the comparator, which keeps ties in their input order.
func SortItems(items []cluster.Cluster, s Sort) []cluster.Cluster {
	sorted := make([]cluster.Cluster, len(items))
	if len(items) < 2 {
		copy(sorted, items)
		return sorted
	}

	// Collators keep internal buffers and are not safe for concurrent use
	col := collate.New(language.English, collate.Numeric)
	keys := make([]string, len(items))
	idx := make([]int, len(items))
	for i := range items {
		keys[i] = Value(items[i], s.Field)
		idx[i] = i
	}

	sort.SliceStable(idx, func(a, b int) bool {
		cmp := col.CompareString(keys[idx[a]], keys[idx[b]])
		if !s.Ascending {
			cmp = -cmp
		}
		return cmp < 0
	})

	for i, j := range idx {
		sorted[i] = items[j]
	}
	return sorted
}
