package health

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openshift-hyperfleet/hub-clusters/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsServerExposesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	server := NewMetricsServer(logger.NewTestLogger(), "9090", reg, MetricsConfig{
		Component:     "hub-clusters",
		Version:       "1.2.3",
		Commit:        "abc",
		Regions:       []string{"us-east-1", "eu-west-1"},
		DefaultRegion: "us-east-1",
	})

	w := httptest.NewRecorder()
	server.server.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)

	body, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	text := string(body)
	assert.Contains(t, text, `hub_clusters_build_info{commit="abc",component="hub-clusters",version="1.2.3"} 1`)
	assert.Contains(t, text, `hub_clusters_region_info{default="true",region="us-east-1"} 1`)
	assert.Contains(t, text, `hub_clusters_region_info{default="false",region="eu-west-1"} 1`)
	assert.Contains(t, text, `hub_clusters_up{component="hub-clusters",version="1.2.3"} 1`)
	assert.Contains(t, text, "go_goroutines")
}
