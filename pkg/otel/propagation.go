package otel

import (
	"context"
	"net/http"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// CloudEvent extension names carrying W3C trace context
const (
	ExtensionTraceParent = "traceparent"
	ExtensionTraceState  = "tracestate"
)

// InjectHTTPHeaders writes the trace context of ctx into outgoing request headers
func InjectHTTPHeaders(ctx context.Context, header http.Header) {
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(header))
}

// ExtractHTTPHeaders returns ctx enriched with the trace context of incoming headers
func ExtractHTTPHeaders(ctx context.Context, header http.Header) context.Context {
	return otel.GetTextMapPropagator().Extract(ctx, propagation.HeaderCarrier(header))
}

// InjectTraceContextIntoCloudEvent sets the traceparent/tracestate extensions
// on evt from the span in ctx. Events without an active span are left untouched.
func InjectTraceContextIntoCloudEvent(ctx context.Context, evt *cloudevents.Event) {
	carrier := propagation.MapCarrier{}
	propagation.TraceContext{}.Inject(ctx, carrier)
	if tp := carrier.Get(ExtensionTraceParent); tp != "" {
		evt.SetExtension(ExtensionTraceParent, tp)
	}
	if ts := carrier.Get(ExtensionTraceState); ts != "" {
		evt.SetExtension(ExtensionTraceState, ts)
	}
}

// ExtractTraceContextFromCloudEvent returns ctx with the remote span context
// carried by evt's traceparent extension, if present.
func ExtractTraceContextFromCloudEvent(ctx context.Context, evt *cloudevents.Event) context.Context {
	carrier := propagation.MapCarrier{}
	for _, name := range []string{ExtensionTraceParent, ExtensionTraceState} {
		if v, ok := evt.Extensions()[name]; ok {
			if s, ok := v.(string); ok {
				carrier.Set(name, s)
			}
		}
	}
	if carrier.Get(ExtensionTraceParent) == "" {
		return ctx
	}
	return propagation.TraceContext{}.Extract(ctx, carrier)
}
