package config_loader

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/openshift-hyperfleet/hub-clusters/internal/paging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfigYAML = `
apiVersion: hub-clusters.openshift.io/v1alpha1
kind: HubClustersConfig
metadata:
  name: hub-clusters
  labels:
    app: hub-clusters
spec:
  regions:
    - id: us-east-1
      url: https://api.openshift.com
      default: true
    - id: eu-west-1
      url: https://api.eu-west-1.openshift.com/
  clusterService:
    timeout: 5s
    retryAttempts: 2
    retryBackoff: linear
    baseDelay: 200ms
    maxDelay: 2s
    rateLimit: 20
    rateBurst: 5
    headers:
      X-Client: console
  inventory:
    concurrency: 2
    detailCacheTtl: 30s
  tagging:
    concurrency: 4
  views:
    defaultPageSize: 20
    defaultSort:
      field: created_at
      ascending: false
  notifications:
    log: true
    cloudEventsTarget: http://events.example.com/hub
`

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "hub-clusters.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(validConfigYAML), 0644))

	config, err := Load(configPath)
	require.NoError(t, err)
	require.NotNil(t, config)

	assert.Equal(t, APIVersionV1Alpha1, config.APIVersion)
	assert.Equal(t, ExpectedKind, config.Kind)
	assert.Equal(t, "hub-clusters", config.Metadata.Name)
	require.Len(t, config.Spec.Regions, 2)
	assert.Equal(t, "eu-west-1", config.Spec.Regions[1].ID)
	assert.Equal(t, 2, config.Spec.Inventory.Concurrency)
	assert.True(t, config.Spec.Notifications.Log)
}

func TestLoadFromEnv(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(validConfigYAML), 0644))
	t.Setenv(EnvConfigPath, configPath)

	config, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "hub-clusters", config.Metadata.Name)
}

func TestLoadRequiresPath(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvConfigPath)
}

func TestLoadInvalidPath(t *testing.T) {
	config, err := Load("/nonexistent/path/to/config.yaml")
	assert.Error(t, err)
	assert.Nil(t, config)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestParseAppliesDefaults(t *testing.T) {
	config, err := Parse([]byte(`
apiVersion: hub-clusters.openshift.io/v1alpha1
kind: HubClustersConfig
metadata:
  name: minimal
spec:
  regions:
    - id: us-east-1
      url: https://api.openshift.com
`))
	require.NoError(t, err)

	region, ok := config.DefaultRegion()
	require.True(t, ok, "a single region is the default region")
	assert.Equal(t, "us-east-1", region.ID)
	assert.Equal(t, "", region.ServiceRegion())

	assert.Equal(t, DefaultTimeout, config.Spec.ClusterService.Timeout)
	assert.Equal(t, DefaultRetryAttempts, config.Spec.ClusterService.RetryAttempts)
	assert.Equal(t, DefaultRetryBackoff, config.Spec.ClusterService.RetryBackoff)
	assert.Equal(t, DefaultDetailCacheSize, config.Spec.Inventory.DetailCacheSize)
	assert.Equal(t, time.Minute, config.DetailCacheTTL())
	assert.Equal(t, 5*time.Minute, config.StaleAfter())
	assert.Equal(t, 30*time.Minute, config.WorkflowIdleTimeout())
	assert.Equal(t, 5*time.Second, config.NotificationTimeout())
	assert.Equal(t, DefaultAPIPort, config.Spec.Server.APIPort)
	assert.Equal(t, DefaultHealthPort, config.Spec.Server.HealthPort)
	assert.Equal(t, DefaultMetricsPort, config.Spec.Server.MetricsPort)
	assert.Equal(t, paging.DefaultSort(), config.DefaultSort())
}

func TestParseWithoutDefaults(t *testing.T) {
	config, err := Parse([]byte(`
apiVersion: hub-clusters.openshift.io/v1alpha1
kind: HubClustersConfig
metadata:
  name: minimal
spec:
  regions:
    - id: us-east-1
      url: https://api.openshift.com
      default: true
`), WithoutDefaults())
	require.NoError(t, err)
	assert.Empty(t, config.Spec.ClusterService.Timeout)
	assert.Empty(t, config.Spec.Server.APIPort)
}

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		yaml      string
		wantError bool
		errorMsg  string
	}{
		{
			name:      "valid config",
			yaml:      validConfigYAML,
			wantError: false,
		},
		{
			name:      "invalid yaml",
			yaml:      "spec: [",
			wantError: true,
			errorMsg:  "YAML parse error",
		},
		{
			name: "missing apiVersion",
			yaml: `
kind: HubClustersConfig
metadata:
  name: x
spec:
  regions:
    - id: us-east-1
      url: https://api.openshift.com
`,
			wantError: true,
			errorMsg:  "apiVersion is required",
		},
		{
			name: "unsupported apiVersion",
			yaml: `
apiVersion: hub-clusters.openshift.io/v2
kind: HubClustersConfig
metadata:
  name: x
spec:
  regions:
    - id: us-east-1
      url: https://api.openshift.com
`,
			wantError: true,
			errorMsg:  "unsupported apiVersion",
		},
		{
			name: "wrong kind",
			yaml: `
apiVersion: hub-clusters.openshift.io/v1alpha1
kind: ClusterConfig
metadata:
  name: x
spec:
  regions:
    - id: us-east-1
      url: https://api.openshift.com
`,
			wantError: true,
			errorMsg:  "invalid kind",
		},
		{
			name: "no regions",
			yaml: `
apiVersion: hub-clusters.openshift.io/v1alpha1
kind: HubClustersConfig
metadata:
  name: x
spec: {}
`,
			wantError: true,
			errorMsg:  "spec.regions is required",
		},
		{
			name: "region without url",
			yaml: `
apiVersion: hub-clusters.openshift.io/v1alpha1
kind: HubClustersConfig
metadata:
  name: x
spec:
  regions:
    - id: us-east-1
`,
			wantError: true,
			errorMsg:  "spec.regions[0].url is required",
		},
		{
			name: "invalid region id",
			yaml: `
apiVersion: hub-clusters.openshift.io/v1alpha1
kind: HubClustersConfig
metadata:
  name: x
spec:
  regions:
    - id: US_East
      url: https://api.openshift.com
`,
			wantError: true,
			errorMsg:  "must contain only lowercase letters",
		},
		{
			name: "duplicate region ids",
			yaml: `
apiVersion: hub-clusters.openshift.io/v1alpha1
kind: HubClustersConfig
metadata:
  name: x
spec:
  regions:
    - id: us-east-1
      url: https://api.openshift.com
      default: true
    - id: us-east-1
      url: https://api.stage.openshift.com
`,
			wantError: true,
			errorMsg:  "contains duplicate id values",
		},
		{
			name: "invalid backoff",
			yaml: `
apiVersion: hub-clusters.openshift.io/v1alpha1
kind: HubClustersConfig
metadata:
  name: x
spec:
  regions:
    - id: us-east-1
      url: https://api.openshift.com
  clusterService:
    retryBackoff: random
`,
			wantError: true,
			errorMsg:  "is invalid (allowed: exponential, linear, constant)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := Parse([]byte(tt.yaml))
			if tt.wantError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMsg)
				assert.Nil(t, config)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, config)
		})
	}
}

func TestClientOptions(t *testing.T) {
	config, err := Parse([]byte(validConfigYAML))
	require.NoError(t, err)

	def, ok := config.DefaultRegion()
	require.True(t, ok)
	assert.Equal(t, "us-east-1", def.ID)

	assert.Len(t, config.ClientOptions(def), 9)
	assert.Equal(t, "eu-west-1", config.Spec.Regions[1].ServiceRegion())

	sort := config.DefaultSort()
	assert.Equal(t, paging.FieldCreationTimestamp, sort.Field)
	assert.False(t, sort.Ascending)
}
