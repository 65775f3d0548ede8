package constants

// Hub tag property
// The hub tag is an organizational marker stored in a cluster's property bag.
// It never provisions or configures anything on the cluster.

const (
	// HubTagKey is the property bag key carrying the hub marker.
	HubTagKey = "acm_hub"

	// HubTagValue is the value that marks a cluster as a hub. Tag state is
	// derived from string equality with this value, never from key presence.
	HubTagValue = "true"

	// HubTagRemovedValue is written to untag a cluster.
	HubTagRemovedValue = ""
)

// Cluster listing
const (
	// PropertiesKey is the property bag of managed clusters.
	PropertiesKey = "properties"

	// ClusterIDPropertiesKey is the property bag of unmanaged clusters.
	ClusterIDPropertiesKey = "cluster_id_properties"
)

// Feature identifiers and user facing texts
const (
	// FeatureClusterTagging is the console feature gate guarding the hub tagging UI.
	FeatureClusterTagging = "ACM_CLUSTER_TAGGING"

	// TagActionText is shown on the single item action for an untagged cluster.
	TagActionText = "Tag as ACM Hub"

	// UntagActionText is shown on the single item action for a hub cluster.
	UntagActionText = "Remove ACM Hub tag"

	// UnknownErrorText replaces empty error messages in batch failure lists.
	UnknownErrorText = "Unknown error"
)

// Documentation links surfaced next to the empty hub list
const (
	// HubInstallDocsURL explains how to install a hub on a connected cluster.
	HubInstallDocsURL = "https://access.redhat.com/documentation/en-us/red_hat_advanced_cluster_management_for_kubernetes/2.10/html/install/installing#installing-while-connected-online"

	// ExistingHubDocsURL is for operators who already run a hub.
	ExistingHubDocsURL = "https://access.redhat.com/documentation/en-us/red_hat_advanced_cluster_management_for_kubernetes/2.10/html/install"
)
