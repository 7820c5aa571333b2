package telemetry

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/s1natex/todos-api-GO/internal/config"
)

func TestSetupTracing_None(t *testing.T) {
	shutdown, err := SetupTracing(context.Background(), config.TracingConfig{Exporter: config.TracingNone})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSetupTracing_Unknown(t *testing.T) {
	_, err := SetupTracing(context.Background(), config.TracingConfig{Exporter: "zipkin"})
	assert.ErrorContains(t, err, "unknown tracing exporter")
}

func TestSetupTracing_StdoutFlushesOnShutdown(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	var buf bytes.Buffer
	shutdown, err := setupTracing(context.Background(), config.TracingConfig{
		Exporter:    config.TracingStdout,
		ServiceName: "todos-test",
	}, &buf)
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.Background(), "GET /todos")
	span.End()

	require.NoError(t, shutdown(context.Background()))
	assert.Contains(t, buf.String(), "GET /todos")
	assert.Contains(t, buf.String(), "todos-test")
}
