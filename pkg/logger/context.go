package logger

import (
	"context"
	"errors"
	"io"

	apperrors "github.com/openshift-hyperfleet/hub-clusters/pkg/errors"
	"go.opentelemetry.io/otel/trace"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	// Correlation fields (distributed tracing)
	TraceIDKey   contextKey = "trace_id"
	SpanIDKey    contextKey = "span_id"
	RequestIDKey contextKey = "request_id"

	// Resource fields
	ClusterIDKey  contextKey = "cluster_id"
	RegionKey     contextKey = "region"
	ViewIDKey     contextKey = "view_id"
	WorkflowIDKey contextKey = "workflow_id"

	// Dynamic log fields
	LogFieldsKey contextKey = "log_fields"
)

// LogFields holds dynamic key-value pairs for logging
type LogFields map[string]interface{}

// -----------------------------------------------------------------------------
// Context Setters
// -----------------------------------------------------------------------------

// WithLogField adds a single dynamic log field to the context.
// These fields are included in all log entries written with that context.
func WithLogField(ctx context.Context, key string, value interface{}) context.Context {
	fields := GetLogFields(ctx)
	if fields == nil {
		fields = make(LogFields)
	}
	fields[key] = value
	return context.WithValue(ctx, LogFieldsKey, fields)
}

// WithLogFields adds multiple dynamic log fields to the context
func WithLogFields(ctx context.Context, newFields LogFields) context.Context {
	fields := GetLogFields(ctx)
	if fields == nil {
		fields = make(LogFields)
	}
	for k, v := range newFields {
		fields[k] = v
	}
	return context.WithValue(ctx, LogFieldsKey, fields)
}

// WithTraceID returns a context with the trace ID set
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return WithLogField(ctx, string(TraceIDKey), traceID)
}

// WithSpanID returns a context with the span ID set
func WithSpanID(ctx context.Context, spanID string) context.Context {
	return WithLogField(ctx, string(SpanIDKey), spanID)
}

// WithRequestID returns a context with the inbound request ID set
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return WithLogField(ctx, string(RequestIDKey), requestID)
}

// WithClusterID returns a context with the cluster ID set
func WithClusterID(ctx context.Context, clusterID string) context.Context {
	return WithLogField(ctx, string(ClusterIDKey), clusterID)
}

// WithRegion returns a context with the region set. An empty region is
// logged as "default".
func WithRegion(ctx context.Context, region string) context.Context {
	if region == "" {
		region = "default"
	}
	return WithLogField(ctx, string(RegionKey), region)
}

// WithViewID returns a context with the view identifier set
func WithViewID(ctx context.Context, viewID string) context.Context {
	return WithLogField(ctx, string(ViewIDKey), viewID)
}

// WithWorkflowID returns a context with the tagging workflow ID set
func WithWorkflowID(ctx context.Context, workflowID string) context.Context {
	return WithLogField(ctx, string(WorkflowIDKey), workflowID)
}

// WithOTelTraceContext copies trace_id and span_id of the active span into
// the log fields. Contexts without a valid span are returned unchanged.
func WithOTelTraceContext(ctx context.Context) context.Context {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return ctx
	}
	return WithLogFields(ctx, LogFields{
		string(TraceIDKey): sc.TraceID().String(),
		string(SpanIDKey):  sc.SpanID().String(),
	})
}

// WithErrorField adds the error message to the log fields. A stack trace is
// attached for unexpected errors only; cancellations and errors returned by
// regional cluster services are expected and logged without one.
func WithErrorField(ctx context.Context, err error) context.Context {
	if err == nil {
		return ctx
	}
	ctx = WithLogField(ctx, "error", err.Error())
	if shouldCaptureStackTrace(err) {
		ctx = WithLogField(ctx, "stack_trace", GetStackTrace(1))
	}
	return ctx
}

func shouldCaptureStackTrace(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.EOF) {
		return false
	}
	if _, ok := apperrors.IsAPIError(err); ok {
		return false
	}
	var svcErr *apperrors.ServiceError
	return !errors.As(err, &svcErr)
}

// -----------------------------------------------------------------------------
// Context Getters
// -----------------------------------------------------------------------------

// GetLogFields returns a copy of the dynamic log fields from the context, or nil if not set
func GetLogFields(ctx context.Context) LogFields {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(LogFieldsKey).(LogFields); ok {
		fields := make(LogFields, len(v))
		for k, val := range v {
			fields[k] = val
		}
		return fields
	}
	return nil
}
