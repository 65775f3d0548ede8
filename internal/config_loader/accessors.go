package config_loader

import (
	"time"

	"github.com/openshift-hyperfleet/hub-clusters/internal/cluster_service"
	"github.com/openshift-hyperfleet/hub-clusters/internal/paging"
)

// -----------------------------------------------------------------------------
// HubClustersConfig Accessors
// -----------------------------------------------------------------------------

// parseDuration returns the parsed value of s, or 0 when s is empty or invalid.
// Values are checked by Validate.
func parseDuration(s string) time.Duration {
	if s == "" {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}

// DefaultRegion returns the region marked default
func (c *HubClustersConfig) DefaultRegion() (Region, bool) {
	for _, r := range c.Spec.Regions {
		if r.Default {
			return r, true
		}
	}
	return Region{}, false
}

// ServiceRegion is the region a cluster service reports for r. The default
// region reports "" so its records carry no region id.
func (r Region) ServiceRegion() string {
	if r.Default {
		return ""
	}
	return r.ID
}

// ClientOptions returns the cluster service client options for region r
func (c *HubClustersConfig) ClientOptions(r Region) []cluster_service.ClientOption {
	cs := c.Spec.ClusterService
	opts := []cluster_service.ClientOption{
		cluster_service.WithRegion(r.ServiceRegion()),
		cluster_service.WithBaseURL(r.URL),
	}
	if d := parseDuration(cs.Timeout); d > 0 {
		opts = append(opts, cluster_service.WithTimeout(d))
	}
	if cs.RetryAttempts > 0 {
		opts = append(opts, cluster_service.WithRetryAttempts(cs.RetryAttempts))
	}
	if cs.RetryBackoff != "" {
		opts = append(opts, cluster_service.WithRetryBackoff(cluster_service.BackoffStrategy(cs.RetryBackoff)))
	}
	if d := parseDuration(cs.BaseDelay); d > 0 {
		opts = append(opts, cluster_service.WithBaseDelay(d))
	}
	if d := parseDuration(cs.MaxDelay); d > 0 {
		opts = append(opts, cluster_service.WithMaxDelay(d))
	}
	if cs.RateLimit > 0 {
		opts = append(opts, cluster_service.WithRateLimit(cs.RateLimit, cs.RateBurst))
	}
	for k, v := range cs.Headers {
		opts = append(opts, cluster_service.WithDefaultHeader(k, v))
	}
	return opts
}

// DetailCacheTTL returns the detail cache lifetime
func (c *HubClustersConfig) DetailCacheTTL() time.Duration {
	return parseDuration(c.Spec.Inventory.DetailCacheTTL)
}

// StaleAfter returns how long a successful inventory listing is served
func (c *HubClustersConfig) StaleAfter() time.Duration {
	return parseDuration(c.Spec.Inventory.StaleAfter)
}

// WorkflowIdleTimeout returns how long an untouched workflow is kept
func (c *HubClustersConfig) WorkflowIdleTimeout() time.Duration {
	return parseDuration(c.Spec.Tagging.WorkflowIdleTimeout)
}

// NotificationTimeout returns the CloudEvents delivery timeout
func (c *HubClustersConfig) NotificationTimeout() time.Duration {
	return parseDuration(c.Spec.Notifications.Timeout)
}

// DefaultSort returns the configured default sort, falling back to display
// name ascending.
func (c *HubClustersConfig) DefaultSort() paging.Sort {
	s := c.Spec.Views.DefaultSort
	if s == nil {
		return paging.DefaultSort()
	}
	sort, err := paging.ParseSort(s.Field, s.Ascending)
	if err != nil {
		return paging.DefaultSort()
	}
	return sort
}
