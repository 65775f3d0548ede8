// Package cluster defines the cluster record returned by regional cluster
// services and the accessor that resolves its authoritative property bag.
package cluster

import (
	"encoding/json"
	"fmt"
)

// Properties is a flat string keyed, string valued property bag.
type Properties map[string]string

// Clone returns an independent copy of p. A nil bag clones to nil.
func (p Properties) Clone() Properties {
	if p == nil {
		return nil
	}
	out := make(Properties, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Variant distinguishes managed from unmanaged clusters. Each variant owns
// its own property bag; only the variant's bag is authoritative.
type Variant interface {
	// Bag returns the variant's property bag
	Bag() Properties
	isVariant()
}

// Managed is a cluster whose lifecycle is managed by the service.
// Its property bag is stored under "properties".
type Managed struct {
	Properties Properties
}

// Unmanaged is a registered cluster that the service only observes.
// Its property bag is stored under "cluster_id_properties".
type Unmanaged struct {
	ClusterIDProperties Properties
}

func (m Managed) Bag() Properties   { return m.Properties }
func (u Unmanaged) Bag() Properties { return u.ClusterIDProperties }

func (Managed) isVariant()   {}
func (Unmanaged) isVariant() {}

// Cluster is one record of the merged multi-region inventory.
type Cluster struct {
	ID                string
	Name              string
	DisplayName       string
	CreationTimestamp string
	State             string
	OpenshiftVersion  string
	CloudProvider     string
	// Region is the region of the owning cluster service; empty means the default region
	Region string
	// Variant is never nil for records produced by this package
	Variant Variant
}

// NewManaged builds a managed cluster record
func NewManaged(id, displayName, region string, props Properties) Cluster {
	return Cluster{ID: id, Name: id, DisplayName: displayName, Region: region, Variant: Managed{Properties: props}}
}

// NewUnmanaged builds an unmanaged cluster record
func NewUnmanaged(id, displayName, region string, props Properties) Cluster {
	return Cluster{ID: id, Name: id, DisplayName: displayName, Region: region, Variant: Unmanaged{ClusterIDProperties: props}}
}

// IsManaged reports whether c is the managed variant
func (c Cluster) IsManaged() bool {
	_, ok := c.Variant.(Managed)
	return ok
}

// Label is the name shown to users: the display name, falling back to the id.
func (c Cluster) Label() string {
	if c.DisplayName != "" {
		return c.DisplayName
	}
	return c.ID
}

// PropertiesOf returns the authoritative property bag of c, or nil when the
// record has none.
func PropertiesOf(c Cluster) Properties {
	switch v := c.Variant.(type) {
	case Managed:
		return v.Properties
	case Unmanaged:
		return v.ClusterIDProperties
	default:
		return nil
	}
}

// WithProperty returns a copy of c whose authoritative bag has key set to value.
// The receiver's bag is not modified.
func WithProperty(c Cluster, key, value string) Cluster {
	props := PropertiesOf(c).Clone()
	if props == nil {
		props = Properties{}
	}
	props[key] = value
	return WithProperties(c, props)
}

// WithProperties returns a copy of c with props as its authoritative bag,
// keeping the variant. A record without a variant becomes unmanaged.
func WithProperties(c Cluster, props Properties) Cluster {
	if c.IsManaged() {
		c.Variant = Managed{Properties: props}
	} else {
		c.Variant = Unmanaged{ClusterIDProperties: props}
	}
	return c
}

// -----------------------------------------------------------------------------
// Wire format
// -----------------------------------------------------------------------------

type reference struct {
	ID string `json:"id,omitempty"`
}

type subscription struct {
	RHRegionID string `json:"rh_region_id,omitempty"`
}

type wireCluster struct {
	ID                  string        `json:"id"`
	Name                string        `json:"name,omitempty"`
	DisplayName         string        `json:"display_name,omitempty"`
	CreationTimestamp   string        `json:"creation_timestamp,omitempty"`
	State               string        `json:"state,omitempty"`
	OpenshiftVersion    string        `json:"openshift_version,omitempty"`
	CloudProvider       *reference    `json:"cloud_provider,omitempty"`
	Subscription        *subscription `json:"subscription,omitempty"`
	Managed             bool          `json:"managed"`
	Properties          Properties    `json:"properties,omitempty"`
	ClusterIDProperties Properties    `json:"cluster_id_properties,omitempty"`
}

// MarshalJSON writes only the authoritative property bag
func (c Cluster) MarshalJSON() ([]byte, error) {
	w := wireCluster{
		ID:                c.ID,
		Name:              c.Name,
		DisplayName:       c.DisplayName,
		CreationTimestamp: c.CreationTimestamp,
		State:             c.State,
		OpenshiftVersion:  c.OpenshiftVersion,
		Managed:           c.IsManaged(),
	}
	if c.CloudProvider != "" {
		w.CloudProvider = &reference{ID: c.CloudProvider}
	}
	if c.Region != "" {
		w.Subscription = &subscription{RHRegionID: c.Region}
	}
	if w.Managed {
		w.Properties = PropertiesOf(c)
	} else {
		w.ClusterIDProperties = PropertiesOf(c)
	}
	return json.Marshal(w)
}

// UnmarshalJSON selects the authoritative bag by the managed flag. The other
// bag, if present, is ignored.
func (c *Cluster) UnmarshalJSON(data []byte) error {
	var w wireCluster
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("failed to decode cluster: %w", err)
	}
	*c = Cluster{
		ID:                w.ID,
		Name:              w.Name,
		DisplayName:       w.DisplayName,
		CreationTimestamp: w.CreationTimestamp,
		State:             w.State,
		OpenshiftVersion:  w.OpenshiftVersion,
	}
	if w.CloudProvider != nil {
		c.CloudProvider = w.CloudProvider.ID
	}
	if w.Subscription != nil {
		c.Region = w.Subscription.RHRegionID
	}
	if w.Managed {
		c.Variant = Managed{Properties: w.Properties}
	} else {
		c.Variant = Unmanaged{ClusterIDProperties: w.ClusterIDProperties}
	}
	return nil
}

// ToMap renders c as the generic map used by filter expressions.
// Keys follow the wire names; the resolved bag is exposed as "properties".
func ToMap(c Cluster) map[string]interface{} {
	props := make(map[string]interface{}, len(PropertiesOf(c)))
	for k, v := range PropertiesOf(c) {
		props[k] = v
	}
	return map[string]interface{}{
		"id":                 c.ID,
		"name":               c.Name,
		"display_name":       c.DisplayName,
		"creation_timestamp": c.CreationTimestamp,
		"state":              c.State,
		"openshift_version":  c.OpenshiftVersion,
		"cloud_provider":     c.CloudProvider,
		"region":             c.Region,
		"managed":            c.IsManaged(),
		"properties":         props,
	}
}
