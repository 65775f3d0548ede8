package config_loader

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------
// Constants
// -----------------------------------------------------------------------------

// API version constants
const (
	APIVersionV1Alpha1 = "hub-clusters.openshift.io/v1alpha1"
	ExpectedKind       = "HubClustersConfig"
)

// Environment variable for config file path
const EnvConfigPath = "HUB_CLUSTERS_CONFIG_PATH"

// SupportedAPIVersions contains all supported apiVersion values
var SupportedAPIVersions = []string{
	APIVersionV1Alpha1,
}

// -----------------------------------------------------------------------------
// Loader Options (Functional Options Pattern)
// -----------------------------------------------------------------------------

// LoaderOption configures the loader behavior
type LoaderOption func(*loaderConfig)

type loaderConfig struct {
	skipSemanticValidation bool
	skipDefaults           bool
}

// WithSkipSemanticValidation skips duration, sort field and region checks
func WithSkipSemanticValidation() LoaderOption {
	return func(c *loaderConfig) {
		c.skipSemanticValidation = true
	}
}

// WithoutDefaults leaves absent values empty
func WithoutDefaults() LoaderOption {
	return func(c *loaderConfig) {
		c.skipDefaults = true
	}
}

// -----------------------------------------------------------------------------
// Public API
// -----------------------------------------------------------------------------

// ConfigPathFromEnv returns the config file path from the HUB_CLUSTERS_CONFIG_PATH environment variable
func ConfigPathFromEnv() string {
	return os.Getenv(EnvConfigPath)
}

// Load loads the configuration from a YAML file.
// If filePath is empty, it will read from HUB_CLUSTERS_CONFIG_PATH environment variable.
func Load(filePath string, opts ...LoaderOption) (*HubClustersConfig, error) {
	if filePath == "" {
		filePath = ConfigPathFromEnv()
	}
	if filePath == "" {
		return nil, fmt.Errorf("config file path is required (pass as parameter or set %s environment variable)", EnvConfigPath)
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %q: %w", filePath, err)
	}
	return Parse(data, opts...)
}

// Parse parses the configuration from YAML bytes
func Parse(data []byte, opts ...LoaderOption) (*HubClustersConfig, error) {
	cfg := &loaderConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	var config HubClustersConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("YAML parse error: %w", err)
	}

	if err := runValidationPipeline(&config, cfg); err != nil {
		return nil, err
	}

	return &config, nil
}

// -----------------------------------------------------------------------------
// Validation Pipeline
// -----------------------------------------------------------------------------

// validatorFunc is a function that validates a config and returns an error
type validatorFunc func(*HubClustersConfig) error

// runValidationPipeline executes all validators in sequence
func runValidationPipeline(config *HubClustersConfig, cfg *loaderConfig) error {
	// Core structural validators (always run)
	coreValidators := []validatorFunc{
		validateAPIVersionAndKind,
		validateStructure,
	}

	for _, v := range coreValidators {
		if err := v(config); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
	}

	if !cfg.skipDefaults {
		applyDefaults(config)
	}

	// Semantic validation (optional)
	if !cfg.skipSemanticValidation {
		if err := Validate(config); err != nil {
			return fmt.Errorf("semantic validation failed: %w", err)
		}
	}

	return nil
}

func validateAPIVersionAndKind(config *HubClustersConfig) error {
	supported := false
	for _, v := range SupportedAPIVersions {
		if config.APIVersion == v {
			supported = true
			break
		}
	}
	if config.APIVersion != "" && !supported {
		return fmt.Errorf("unsupported apiVersion %q (supported: %v)", config.APIVersion, SupportedAPIVersions)
	}
	if config.Kind != "" && config.Kind != ExpectedKind {
		return fmt.Errorf("invalid kind %q (expected: %q)", config.Kind, ExpectedKind)
	}
	return nil
}

func validateStructure(config *HubClustersConfig) error {
	if errs := ValidateStruct(config); errs != nil && errs.HasErrors() {
		return errs
	}
	return nil
}

// applyDefaults fills absent values. A single region is the default region.
func applyDefaults(config *HubClustersConfig) {
	spec := &config.Spec
	if len(spec.Regions) == 1 {
		spec.Regions[0].Default = true
	}

	cs := &spec.ClusterService
	if cs.Timeout == "" {
		cs.Timeout = DefaultTimeout
	}
	if cs.RetryAttempts == 0 {
		cs.RetryAttempts = DefaultRetryAttempts
	}
	if cs.RetryBackoff == "" {
		cs.RetryBackoff = DefaultRetryBackoff
	}

	if spec.Inventory.DetailCacheSize == 0 {
		spec.Inventory.DetailCacheSize = DefaultDetailCacheSize
	}
	if spec.Inventory.DetailCacheTTL == "" {
		spec.Inventory.DetailCacheTTL = DefaultDetailCacheTTL
	}
	if spec.Inventory.StaleAfter == "" {
		spec.Inventory.StaleAfter = DefaultStaleAfter
	}
	if spec.Tagging.WorkflowIdleTimeout == "" {
		spec.Tagging.WorkflowIdleTimeout = DefaultWorkflowIdleTimeout
	}
	if spec.Notifications.Timeout == "" {
		spec.Notifications.Timeout = DefaultNotificationTimeout
	}

	srv := &spec.Server
	if srv.APIPort == "" {
		srv.APIPort = DefaultAPIPort
	}
	if srv.HealthPort == "" {
		srv.HealthPort = DefaultHealthPort
	}
	if srv.MetricsPort == "" {
		srv.MetricsPort = DefaultMetricsPort
	}
}
