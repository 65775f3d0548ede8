package cluster_service

import (
	"fmt"

	apperrors "github.com/openshift-hyperfleet/hub-clusters/pkg/errors"
)

// Registry routes cluster operations to the service of the owning region.
// An empty region resolves to the default region.
type Registry struct {
	services      map[string]Service
	order         []string
	defaultRegion string
}

// NewRegistry builds a registry. defaultRegion must name one of services.
func NewRegistry(defaultRegion string, services ...Service) (*Registry, error) {
	if len(services) == 0 {
		return nil, fmt.Errorf("at least one regional service is required")
	}
	r := &Registry{
		services:      make(map[string]Service, len(services)),
		defaultRegion: defaultRegion,
	}
	for _, svc := range services {
		region := svc.Region()
		if _, dup := r.services[region]; dup {
			return nil, fmt.Errorf("duplicate region %q", region)
		}
		r.services[region] = svc
		r.order = append(r.order, region)
	}
	if _, ok := r.services[defaultRegion]; !ok {
		return nil, fmt.Errorf("default region %q has no service", defaultRegion)
	}
	return r, nil
}

// ForRegion returns the service owning region
func (r *Registry) ForRegion(region string) (Service, error) {
	if region == "" {
		region = r.defaultRegion
	}
	svc, ok := r.services[region]
	if !ok {
		return nil, apperrors.RegionNotFound("region %q is not configured", region)
	}
	return svc, nil
}

// Regions returns the configured regions in configuration order
func (r *Registry) Regions() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Default returns the default region
func (r *Registry) Default() string {
	return r.defaultRegion
}
