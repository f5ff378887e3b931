package telemetry

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// Recorder captures spans and metrics in memory for tests.
type Recorder struct {
	spans  *tracetest.SpanRecorder
	reader *sdkmetric.ManualReader
}

// Record installs in-memory global tracer and meter providers for the
// duration of tb. Tests using it must not run in parallel.
func Record(tb testing.TB) *Recorder {
	tb.Helper()

	r := &Recorder{
		spans:  tracetest.NewSpanRecorder(),
		reader: sdkmetric.NewManualReader(),
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(r.spans))
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(r.reader))

	prevTP, prevMP := otel.GetTracerProvider(), otel.GetMeterProvider()
	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	tb.Cleanup(func() {
		otel.SetTracerProvider(prevTP)
		otel.SetMeterProvider(prevMP)
		_ = tp.Shutdown(context.Background())
		_ = mp.Shutdown(context.Background())
	})
	return r
}

// Spans returns the ended spans.
func (r *Recorder) Spans() []sdktrace.ReadOnlySpan {
	return r.spans.Ended()
}

// SpanByName returns the first ended span called name, or nil.
func (r *Recorder) SpanByName(name string) sdktrace.ReadOnlySpan {
	for _, span := range r.Spans() {
		if span.Name() == name {
			return span
		}
	}
	return nil
}

// AssertSpan fails tb unless a span called name ended, and returns it.
func (r *Recorder) AssertSpan(tb testing.TB, name string) sdktrace.ReadOnlySpan {
	tb.Helper()
	span := r.SpanByName(name)
	if span == nil {
		names := make([]string, 0, len(r.Spans()))
		for _, s := range r.Spans() {
			names = append(names, s.Name())
		}
		tb.Fatalf("span %q not recorded; got %v", name, names)
	}
	return span
}

// AssertSpanAttribute fails tb unless span name carries key=expected.
func (r *Recorder) AssertSpanAttribute(tb testing.TB, name, key string, expected any) {
	tb.Helper()
	span := r.AssertSpan(tb, name)
	for _, kv := range span.Attributes() {
		if string(kv.Key) == key {
			if got := attrValue(kv.Value); got != expected {
				tb.Errorf("span %q attribute %q: got %v, want %v", name, key, got, expected)
			}
			return
		}
	}
	tb.Errorf("span %q missing attribute %q", name, key)
}

// AssertSpanError fails tb unless span name ended with an error status.
func (r *Recorder) AssertSpanError(tb testing.TB, name string) {
	tb.Helper()
	if span := r.AssertSpan(tb, name); span.Status().Code != codes.Error {
		tb.Errorf("span %q status: got %v, want Error", name, span.Status().Code)
	}
}

// Collect gathers the current metric data.
func (r *Recorder) Collect(tb testing.TB) metricdata.ResourceMetrics {
	tb.Helper()
	var rm metricdata.ResourceMetrics
	if err := r.reader.Collect(context.Background(), &rm); err != nil {
		tb.Fatalf("collecting metrics: %v", err)
	}
	return rm
}

func attrValue(v attribute.Value) any {
	switch v.Type() {
	case attribute.STRING:
		return v.AsString()
	case attribute.INT64:
		return v.AsInt64()
	case attribute.FLOAT64:
		return v.AsFloat64()
	case attribute.BOOL:
		return v.AsBool()
	default:
		return v.AsInterface()
	}
}
