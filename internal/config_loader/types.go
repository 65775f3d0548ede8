package config_loader

// HubClustersConfig is the complete service configuration
type HubClustersConfig struct {
	APIVersion string   `yaml:"apiVersion" validate:"required"`
	Kind       string   `yaml:"kind" validate:"required"`
	Metadata   Metadata `yaml:"metadata"`
	Spec       Spec     `yaml:"spec"`
}

// Metadata names the deployment
type Metadata struct {
	Name   string            `yaml:"name" validate:"required"`
	Labels map[string]string `yaml:"labels,omitempty"`
}

// Spec contains the service settings
type Spec struct {
	Regions        []Region             `yaml:"regions" validate:"required,min=1,unique=ID,dive"`
	ClusterService ClusterServiceConfig `yaml:"clusterService"`
	Inventory      InventoryConfig      `yaml:"inventory"`
	Tagging        TaggingConfig        `yaml:"tagging"`
	Views          ViewsConfig          `yaml:"views"`
	Notifications  NotificationsConfig  `yaml:"notifications"`
	Server         ServerConfig         `yaml:"server"`
}

// Region is one regional cluster service. Records of the default region
// carry no region id.
type Region struct {
	ID      string `yaml:"id" validate:"required,regionid"`
	URL     string `yaml:"url" validate:"required,url"`
	Default bool   `yaml:"default,omitempty"`
}

// ClusterServiceConfig configures the HTTP client shared by every region
type ClusterServiceConfig struct {
	Timeout       string  `yaml:"timeout,omitempty"`
	RetryAttempts int     `yaml:"retryAttempts,omitempty" validate:"gte=0,lte=10"`
	RetryBackoff  string  `yaml:"retryBackoff,omitempty" validate:"omitempty,oneof=exponential linear constant"`
	BaseDelay     string  `yaml:"baseDelay,omitempty"`
	MaxDelay      string  `yaml:"maxDelay,omitempty"`
	RateLimit     float64 `yaml:"rateLimit,omitempty" validate:"gte=0"`
	RateBurst     int     `yaml:"rateBurst,omitempty" validate:"gte=0"`
	// Headers are added to every request
	Headers map[string]string `yaml:"headers,omitempty"`
}

// InventoryConfig configures the inventory cache
type InventoryConfig struct {
	// Concurrency bounds the regions read at once; 0 reads all at once
	Concurrency     int    `yaml:"concurrency,omitempty" validate:"gte=0"`
	DetailCacheSize int    `yaml:"detailCacheSize,omitempty" validate:"gte=0"`
	DetailCacheTTL  string `yaml:"detailCacheTtl,omitempty"`
	// StaleAfter is how long a successful listing is served before the
	// regions are read again; "0s" keeps it until the next write
	StaleAfter      string `yaml:"staleAfter,omitempty"`
	IncludeArchived bool   `yaml:"includeArchived,omitempty"`
}

// TaggingConfig configures tag writes
type TaggingConfig struct {
	Concurrency         int    `yaml:"concurrency,omitempty" validate:"gte=0"`
	WorkflowIdleTimeout string `yaml:"workflowIdleTimeout,omitempty"`
}

// SortConfig names a sort field by logical name or legacy column index
type SortConfig struct {
	Field     string `yaml:"field"`
	Ascending bool   `yaml:"ascending"`
}

// ViewsConfig sets the initial state of every view
type ViewsConfig struct {
	DefaultPageSize int         `yaml:"defaultPageSize,omitempty" validate:"gte=0,lte=500"`
	DefaultSort     *SortConfig `yaml:"defaultSort,omitempty"`
	FilterCacheSize int         `yaml:"filterCacheSize,omitempty" validate:"gte=0"`
}

// NotificationsConfig selects where batch results are announced
type NotificationsConfig struct {
	// Log writes notifications to the service log
	Log bool `yaml:"log,omitempty"`
	// CloudEventsTarget posts notifications as CloudEvents when set
	CloudEventsTarget string `yaml:"cloudEventsTarget,omitempty" validate:"omitempty,url"`
	Timeout           string `yaml:"timeout,omitempty"`
}

// ServerConfig holds listen ports
type ServerConfig struct {
	APIPort     string `yaml:"apiPort,omitempty" validate:"omitempty,numeric"`
	HealthPort  string `yaml:"healthPort,omitempty" validate:"omitempty,numeric"`
	MetricsPort string `yaml:"metricsPort,omitempty" validate:"omitempty,numeric"`
}
