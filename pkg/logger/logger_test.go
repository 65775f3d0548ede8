package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(t *testing.T, cfg Config) (Logger, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	cfg.Writer = buf
	if cfg.Format == "" {
		cfg.Format = "json"
	}
	log, err := NewLogger(cfg)
	require.NoError(t, err)
	return log, buf
}

func lastEntry(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.NotEmpty(t, lines)
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &entry))
	return entry
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{name: "default_config", config: DefaultConfig()},
		{name: "json_to_stdout", config: Config{Level: "debug", Format: "json", Output: "stdout"}},
		{name: "text_to_stderr", config: Config{Level: "warn", Format: "text", Output: "stderr"}},
		{name: "invalid_output", config: Config{Output: "syslog"}, wantErr: "invalid log output"},
		{name: "invalid_level", config: Config{Level: "trace"}, wantErr: "invalid log level"},
		{name: "invalid_format", config: Config{Format: "yaml"}, wantErr: "invalid log format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := NewLogger(tt.config)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, &logger{}, log)
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
		wantErr  bool
	}{
		{"debug", slog.LevelDebug, false},
		{"DEBUG", slog.LevelDebug, false},
		{"info", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"Error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			level, err := ParseLevel(tt.input)
			assert.Equal(t, tt.expected, level)
			assert.Equal(t, tt.wantErr, err != nil)
		})
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	log, buf := newBufferLogger(t, Config{Level: "warn"})

	log.Info(context.Background(), "listing clusters")
	assert.Empty(t, buf.String())

	log.Warn(context.Background(), "region unavailable")
	assert.Equal(t, "region unavailable", lastEntry(t, buf)["msg"])
}

func TestLoggerFields(t *testing.T) {
	log, buf := newBufferLogger(t, Config{Level: "debug", Component: "hub-clusters", Version: "v1"})

	derived := log.With("view_id", "ACM_HUB_CLUSTERS_VIEW").
		WithFields(map[string]interface{}{"region": "logger-region", "count": 3})

	ctx := WithRegion(WithClusterID(context.Background(), "cls-1"), "eu-west-1")
	derived.Infof(ctx, "tagged %d cluster(s)", 3)

	entry := lastEntry(t, buf)
	assert.Equal(t, "tagged 3 cluster(s)", entry["msg"])
	assert.Equal(t, "hub-clusters", entry["component"])
	assert.Equal(t, "ACM_HUB_CLUSTERS_VIEW", entry["view_id"])
	assert.Equal(t, "cls-1", entry["cluster_id"])
	assert.Equal(t, "eu-west-1", entry["region"], "context fields win over logger fields")
	assert.Equal(t, float64(3), entry["count"])

	t.Run("without_removes_field", func(t *testing.T) {
		derived.Without("view_id").Info(context.Background(), "no view")
		assert.NotContains(t, lastEntry(t, buf), "view_id")
	})

	t.Run("parent_is_not_modified", func(t *testing.T) {
		log.Info(context.Background(), "parent")
		assert.NotContains(t, lastEntry(t, buf), "view_id")
	})
}

func TestLoggerFieldOrderIsStable(t *testing.T) {
	log, buf := newBufferLogger(t, Config{Format: "text"})
	ctx := WithWorkflowID(WithClusterID(context.Background(), "cls-1"), "wf-1")

	log.With("zone", "a").With("attempt", 1).Info(ctx, "patched")
	out := buf.String()
	assert.Less(t, strings.Index(out, "attempt="), strings.Index(out, "cluster_id="))
	assert.Less(t, strings.Index(out, "cluster_id="), strings.Index(out, "workflow_id="))
	assert.Less(t, strings.Index(out, "workflow_id="), strings.Index(out, "zone="))
}

func TestLoggerRedactsSecrets(t *testing.T) {
	log, buf := newBufferLogger(t, Config{})

	log.WithFields(map[string]interface{}{
		"Authorization": "Bearer abc",
		"access_token":  "xyz",
		"cluster_id":    "cls-1",
	}).Info(context.Background(), "request")

	entry := lastEntry(t, buf)
	assert.Equal(t, Redacted, entry["Authorization"])
	assert.Equal(t, Redacted, entry["access_token"])
	assert.Equal(t, "cls-1", entry["cluster_id"])

	t.Run("custom_keys", func(t *testing.T) {
		log, buf := newBufferLogger(t, Config{RedactedKeys: []string{"owner"}})
		log.With("owner", "team-a").With("token", "visible").Info(context.Background(), "request")
		entry := lastEntry(t, buf)
		assert.Equal(t, Redacted, entry["owner"])
		assert.Equal(t, "visible", entry["token"])
	})
}

func TestLoggerWithError(t *testing.T) {
	log, buf := newBufferLogger(t, Config{})

	log.WithError(errors.New("edit failed")).Error(context.Background(), "tagging failed")
	assert.Equal(t, "edit failed", lastEntry(t, buf)["error"])

	assert.Same(t, log, log.WithError(nil))
}

func TestLoggerNilContext(t *testing.T) {
	log, buf := newBufferLogger(t, Config{})
	//nolint:staticcheck // nil context is tolerated
	log.Info(nil, "no context")
	assert.Equal(t, "no context", lastEntry(t, buf)["msg"])
}

func TestContextKeys(t *testing.T) {
	keys := map[contextKey]string{
		TraceIDKey:    "trace_id",
		SpanIDKey:     "span_id",
		RequestIDKey:  "request_id",
		ClusterIDKey:  "cluster_id",
		RegionKey:     "region",
		ViewIDKey:     "view_id",
		WorkflowIDKey: "workflow_id",
	}
	for key, expected := range keys {
		assert.Equal(t, expected, string(key))
	}
}

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()

	assert.Equal(t, "cls-456", GetLogFields(WithClusterID(ctx, "cls-456"))["cluster_id"])
	assert.Equal(t, "eu-west-1", GetLogFields(WithRegion(ctx, "eu-west-1"))["region"])
	assert.Equal(t, "default", GetLogFields(WithRegion(ctx, ""))["region"])
	assert.Equal(t, "ACM_HUB_CLUSTERS_VIEW", GetLogFields(WithViewID(ctx, "ACM_HUB_CLUSTERS_VIEW"))["view_id"])
	assert.Equal(t, "trace-789", GetLogFields(WithTraceID(ctx, "trace-789"))["trace_id"])
	assert.Nil(t, GetLogFields(WithOTelTraceContext(ctx)), "no span means no fields")
}

func TestConfigFromEnv(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "")
		t.Setenv("LOG_FORMAT", "")
		t.Setenv("LOG_OUTPUT", "")
		cfg := ConfigFromEnv()
		assert.Equal(t, "info", cfg.Level)
		assert.Equal(t, "text", cfg.Format)
		assert.Equal(t, "stdout", cfg.Output)
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "DEBUG")
		t.Setenv("LOG_FORMAT", "JSON")
		t.Setenv("LOG_OUTPUT", "stderr")
		cfg := ConfigFromEnv()
		assert.Equal(t, "debug", cfg.Level)
		assert.Equal(t, "json", cfg.Format)
		assert.Equal(t, "stderr", cfg.Output)
	})
}
