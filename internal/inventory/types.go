package inventory

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/openshift-hyperfleet/hub-clusters/internal/cluster"
	apperrors "github.com/openshift-hyperfleet/hub-clusters/pkg/errors"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
)

// Pagination requests a single server-side page
type Pagination struct {
	Page     int
	PageSize int
	// OrderBy is forwarded to the cluster service as "<attribute> asc|desc"
	OrderBy string
}

// Options selects an inventory read. Reads with equal options share a cache entry.
type Options struct {
	IncludeArchived     bool
	UseManagedEndpoints bool
	// Pagination is nil for a full (unpaged) read
	Pagination *Pagination
}

func (o Options) key() string {
	var b strings.Builder
	b.WriteString("archived=")
	b.WriteString(strconv.FormatBool(o.IncludeArchived))
	b.WriteString(",managed=")
	b.WriteString(strconv.FormatBool(o.UseManagedEndpoints))
	if p := o.Pagination; p != nil {
		fmt.Fprintf(&b, ",page=%d,size=%d,order=%s", p.Page, p.PageSize, p.OrderBy)
	}
	return b.String()
}

// RegionError describes a failed read of one region
type RegionError struct {
	Reason      string `json:"reason"`
	Region      string `json:"region,omitempty"`
	OperationID string `json:"operation_id,omitempty"`
}

func (e RegionError) Error() string {
	if e.Region == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Region, e.Reason)
}

// newRegionError extracts the reason and operation id reported by the
// cluster service. Region is left empty for the default region.
func newRegionError(region, defaultRegion string, err error) RegionError {
	re := RegionError{Reason: err.Error()}
	if region != defaultRegion {
		re.Region = region
	}
	if apiErr, ok := apperrors.IsAPIError(err); ok {
		re.Reason = apiErr.Reason()
		re.OperationID = apiErr.OperationID()
	}
	return re
}

// Result is the state of one inventory read
type Result struct {
	Items []cluster.Cluster
	// Total is the upstream total. It differs from len(Items) only when Paged.
	Total int
	// Paged is set when Items is a single server-side page
	Paged bool
	// Revision changes every time a new read result is stored
	Revision uint64
	// Errors lists the regions that failed, in region order
	Errors []RegionError

	IsLoading  bool
	IsError    bool
	IsFetching bool
	IsFetched  bool
	// IsPending is set while no data has been received yet
	IsPending bool
}

// Err aggregates the region errors, or returns nil when every region succeeded
func (r Result) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Errors))
	for _, e := range r.Errors {
		errs = append(errs, e)
	}
	return utilerrors.NewAggregate(errs)
}
