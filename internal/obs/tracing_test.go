package obs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestInitTracerWithoutExporter(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), TracingConfig{Exporter: "none"})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestInitTracerRejectsUnknownExporter(t *testing.T) {
	_, err := InitTracer(context.Background(), TracingConfig{Exporter: "zipkin"})
	require.ErrorContains(t, err, "unsupported tracing exporter")
}

func TestServiceAttributes(t *testing.T) {
	attrs := attribute.NewSet(serviceAttributes(TracingConfig{Environment: "test", StoreID: "store-1"})...)

	name, ok := attrs.Value("service.name")
	require.True(t, ok)
	require.Equal(t, "storefront", name.AsString())
	store, ok := attrs.Value("storefront.store_id")
	require.True(t, ok)
	require.Equal(t, "store-1", store.AsString())
	_, ok = attrs.Value("service.version")
	require.False(t, ok)
}
