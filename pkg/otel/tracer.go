// Package otel wires the OpenTelemetry tracer provider and W3C trace context
// propagation used for calls to regional cluster services and notifications.
package otel

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/openshift-hyperfleet/hub-clusters/pkg/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const (
	// EnvTraceSampleRatio overrides the default sampling ratio (0.0 - 1.0)
	EnvTraceSampleRatio = "OTEL_TRACES_SAMPLER_ARG"

	// DefaultTraceSampleRatio samples 10% of root traces
	DefaultTraceSampleRatio = 0.1
)

// GetTraceSampleRatio reads the sample ratio from the environment.
// Invalid or out of range values fall back to DefaultTraceSampleRatio.
func GetTraceSampleRatio(log logger.Logger, ctx context.Context) float64 {
	raw := os.Getenv(EnvTraceSampleRatio)
	if raw == "" {
		return DefaultTraceSampleRatio
	}
	ratio, err := strconv.ParseFloat(raw, 64)
	if err != nil || ratio < 0 || ratio > 1 {
		log.Warnf(ctx, "Invalid %s=%q, using default %.2f", EnvTraceSampleRatio, raw, DefaultTraceSampleRatio)
		return DefaultTraceSampleRatio
	}
	log.Debugf(ctx, "Trace sample ratio set to %.2f", ratio)
	return ratio
}

// InitTracer installs a global TracerProvider and the W3C TraceContext propagator.
// No exporter is configured; spans exist for trace_id/span_id correlation in logs
// and for propagation to downstream services. The caller must Shutdown the provider.
func InitTracer(serviceName, serviceVersion string, sampleRatio float64) (*sdktrace.TracerProvider, error) {
	if serviceName == "" {
		return nil, fmt.Errorf("service name is required")
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", serviceName),
		attribute.String("service.version", serviceVersion),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(sampleRatio))),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tp, nil
}
