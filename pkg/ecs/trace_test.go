package ecs

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func tracedClient(fake *fakeHTTPClient) (*Client, *tracetest.SpanRecorder) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	return NewClient(Options{HTTPClient: fake, Now: fixedClock, Tracer: tp.Tracer("ecs-test")}), rec
}

func spanAttrs(s sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	out := make(map[attribute.Key]attribute.Value)
	for _, kv := range s.Attributes() {
		out[kv.Key] = kv.Value
	}
	return out
}

func TestSendRecordsClientSpan(t *testing.T) {
	fake := &fakeHTTPClient{resp: fakeResponse{status: 200, line: "200 OK", body: []byte(okBody)}}
	c, rec := tracedClient(fake)

	if _, err := c.ItemLookup(context.Background(), "0974514055", nil); err != nil {
		t.Fatalf("ItemLookup: %v", err)
	}

	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("spans = %d", len(spans))
	}
	s := spans[0]
	if s.Name() != "ecs.send" || s.SpanKind() != trace.SpanKindClient {
		t.Fatalf("span %q kind %v", s.Name(), s.SpanKind())
	}
	attrs := spanAttrs(s)
	if attrs["ecs.operation"].AsString() != "ItemLookup" {
		t.Fatalf("operation attr = %v", attrs["ecs.operation"])
	}
	if attrs["http.status_code"].AsInt64() != 200 || !attrs["ecs.valid"].AsBool() {
		t.Fatalf("unexpected attrs %v", attrs)
	}
	if s.Status().Code == codes.Error {
		t.Fatalf("successful send must not mark the span as failed")
	}
}

func TestSendMarksFailedSpan(t *testing.T) {
	fake := &fakeHTTPClient{resp: fakeResponse{status: 403, line: "403 Forbidden"}}
	c, rec := tracedClient(fake)

	if _, err := c.ItemLookup(context.Background(), "1", nil); err == nil {
		t.Fatalf("expected error")
	}
	spans := rec.Ended()
	if len(spans) != 1 || spans[0].Status().Code != codes.Error {
		t.Fatalf("expected one failed span, got %d", len(spans))
	}
	if got := spanAttrs(spans[0])["http.status_code"].AsInt64(); got != 403 {
		t.Fatalf("status attr = %d", got)
	}
}
