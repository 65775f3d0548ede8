package config_loader

// Field path constants for configuration structure.
// These are the yaml names used in validation messages.

// Top-level field names
const (
	FieldSpec     = "spec"
	FieldMetadata = "metadata"
)

// Spec section field names
const (
	FieldRegions        = "regions"
	FieldClusterService = "clusterService"
	FieldInventory      = "inventory"
	FieldTagging        = "tagging"
	FieldViews          = "views"
	FieldNotifications  = "notifications"
	FieldServer         = "server"
)

// Duration and sort field names
const (
	FieldTimeout             = "timeout"
	FieldBaseDelay           = "baseDelay"
	FieldMaxDelay            = "maxDelay"
	FieldDetailCacheTTL      = "detailCacheTtl"
	FieldStaleAfter          = "staleAfter"
	FieldWorkflowIdleTimeout = "workflowIdleTimeout"
	FieldDefaultSort         = "defaultSort"
	FieldDefault             = "default"
)

// Defaults applied to absent values
const (
	DefaultTimeout             = "10s"
	DefaultRetryAttempts       = 3
	DefaultRetryBackoff        = "exponential"
	DefaultDetailCacheSize     = 256
	DefaultDetailCacheTTL      = "1m"
	DefaultStaleAfter          = "5m"
	DefaultWorkflowIdleTimeout = "30m"
	DefaultNotificationTimeout = "5s"
	DefaultAPIPort             = "8000"
	DefaultHealthPort          = "8080"
	DefaultMetricsPort         = "9090"
)
