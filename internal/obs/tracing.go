package obs

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// TracingConfig controls tracer provider initialisation.
type TracingConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Exporter       string
	SamplingRatio  float64
	Environment    string
	// StoreID tags every span with the default store of the instance.
	StoreID string
}

// InitTracer installs W3C propagation and, unless the exporter is "none",
// a batching OTLP/HTTP tracer provider. The returned function flushes and
// stops the provider.
func InitTracer(ctx context.Context, cfg TracingConfig) (func(context.Context) error, error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	exporter, err := newSpanExporter(ctx, cfg)
	if err != nil || exporter == nil {
		return func(context.Context) error { return nil }, err
	}

	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithProcess(),
		resource.WithTelemetrySDK(),
		resource.WithAttributes(serviceAttributes(cfg)...),
	)
	if err != nil {
		return nil, fmt.Errorf("tracing resource: %w", err)
	}

	ratio := cfg.SamplingRatio
	if ratio <= 0 || ratio > 1 {
		ratio = 1
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

func newSpanExporter(ctx context.Context, cfg TracingConfig) (sdktrace.SpanExporter, error) {
	switch kind := strings.ToLower(strings.TrimSpace(cfg.Exporter)); kind {
	case "none", "off":
		return nil, nil
	case "", "otlp":
		var opts []otlptracehttp.Option
		if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
			opts = append(opts, otlptracehttp.WithEndpointURL(endpoint))
		}
		exp, err := otlptracehttp.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("otlp exporter: %w", err)
		}
		return exp, nil
	default:
		return nil, fmt.Errorf("unsupported tracing exporter: %s", kind)
	}
}

func serviceAttributes(cfg TracingConfig) []attribute.KeyValue {
	name := cfg.ServiceName
	if name == "" {
		name = "storefront"
	}
	attrs := []attribute.KeyValue{
		semconv.ServiceName(name),
		semconv.DeploymentEnvironment(cfg.Environment),
	}
	if cfg.ServiceVersion != "" {
		attrs = append(attrs, semconv.ServiceVersion(cfg.ServiceVersion))
	}
	if cfg.StoreID != "" {
		attrs = append(attrs, attribute.String("storefront.store_id", cfg.StoreID))
	}
	return attrs
}
