package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/tutorialkit/internal/logging"
)

func TestNew_Disabled(t *testing.T) {
	tel, err := New(context.Background(), NewDefaultConfig(), nil)
	require.NoError(t, err)

	assert.False(t, tel.Enabled())
	assert.False(t, tel.Degraded())
	assert.NoError(t, tel.ForceFlush(context.Background()))
	assert.NoError(t, tel.Shutdown(context.Background()))
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Enabled = true
	cfg.Endpoint = ""

	tel, err := New(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.Nil(t, tel)
	assert.Contains(t, err.Error(), "invalid telemetry config")
}

func TestTelemetry_NilSafe(t *testing.T) {
	var tel *Telemetry

	assert.NotPanics(t, func() {
		assert.False(t, tel.Enabled())
		assert.False(t, tel.Degraded())
		assert.NoError(t, tel.ForceFlush(context.Background()))
		assert.NoError(t, tel.Shutdown(context.Background()))
	})
}

func TestNew_ExportsSpans(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	cfg := NewDefaultConfig()
	cfg.Enabled = true
	cfg.Metrics.Enabled = false
	exporter := tracetest.NewInMemoryExporter()
	logger := logging.NewTestLogger()

	tel, err := New(context.Background(), cfg, logger.Logger, WithSpanExporter(exporter))
	require.NoError(t, err)
	assert.True(t, tel.Enabled())
	logger.AssertLogged(t, zapcore.DebugLevel, "telemetry enabled")

	_, span := otel.Tracer("test").Start(context.Background(), "resolver.Deploy")
	span.End()

	require.NoError(t, tel.ForceFlush(context.Background()))
	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "resolver.Deploy", spans[0].Name)

	var serviceName string
	for _, kv := range spans[0].Resource.Attributes() {
		if kv.Key == "service.name" {
			serviceName = kv.Value.AsString()
		}
	}
	assert.Equal(t, "tutorialctl", serviceName)

	require.NoError(t, tel.Shutdown(context.Background()))
}

func TestNewSpanExporter_Protocols(t *testing.T) {
	for _, protocol := range []string{ProtocolGRPC, ProtocolHTTP} {
		t.Run(protocol, func(t *testing.T) {
			cfg := NewDefaultConfig()
			cfg.Protocol = protocol

			exp, err := newSpanExporter(context.Background(), cfg)
			require.NoError(t, err)
			assert.NoError(t, exp.Shutdown(context.Background()))
		})
	}
}

func TestRecorder(t *testing.T) {
	rec := Record(t)

	_, ok := otel.Tracer("test").Start(context.Background(), "ok")
	ok.SetAttributes(attribute.String("workflow", "consensus"), attribute.Bool("new", true))
	ok.End()

	_, failed := otel.Tracer("test").Start(context.Background(), "failed")
	failed.RecordError(errors.New("boom"))
	failed.SetStatus(codes.Error, "boom")
	failed.End()

	counter, err := otel.Meter("test").Int64Counter("calls")
	require.NoError(t, err)
	counter.Add(context.Background(), 2)

	rec.AssertSpanAttribute(t, "ok", "workflow", "consensus")
	rec.AssertSpanAttribute(t, "ok", "new", true)
	rec.AssertSpanError(t, "failed")
	assert.Nil(t, rec.SpanByName("missing"))

	rm := rec.Collect(t)
	require.Len(t, rm.ScopeMetrics, 1)
	assert.Equal(t, "calls", rm.ScopeMetrics[0].Metrics[0].Name)
}
