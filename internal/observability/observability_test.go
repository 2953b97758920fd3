package observability

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Aamm5845/residentone-workflow-sub002/internal/core"
	"github.com/Aamm5845/residentone-workflow-sub002/pkg/domain"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoggerWritesStructuredFields(t *testing.T) {
	zcore, logs := observer.New(zapcore.DebugLevel)
	logger := WrapZap(zap.New(zcore)).With("component", "core")

	logger.Debug("debug", "k", 1)
	logger.Info("info")
	logger.Warn("warn", "room_id", "r1")
	logger.Error("error", "error", errors.New("boom"))

	entries := logs.All()
	if len(entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(entries))
	}
	levels := []zapcore.Level{zapcore.DebugLevel, zapcore.InfoLevel, zapcore.WarnLevel, zapcore.ErrorLevel}
	for i, want := range levels {
		if entries[i].Level != want {
			t.Fatalf("entry %d level = %s, want %s", i, entries[i].Level, want)
		}
		if entries[i].ContextMap()["component"] != "core" {
			t.Fatalf("entry %d missing component field: %v", i, entries[i].ContextMap())
		}
	}
	if entries[2].ContextMap()["room_id"] != "r1" {
		t.Fatalf("expected room_id field, got %v", entries[2].ContextMap())
	}
}

func TestNewLoggerModes(t *testing.T) {
	for _, mode := range []string{"production", "prod", "development", ""} {
		l, err := NewLogger(mode)
		if err != nil {
			t.Fatalf("NewLogger(%q): %v", mode, err)
		}
		if l.Zap() == nil {
			t.Fatalf("NewLogger(%q) returned nil zap logger", mode)
		}
	}
	prod, _ := NewLogger("production")
	if prod.Zap().Core().Enabled(zapcore.DebugLevel) {
		t.Fatalf("production logger should not log debug")
	}
}

func TestServiceLogsThroughZap(t *testing.T) {
	zcore, logs := observer.New(zapcore.DebugLevel)
	svc := core.NewInMemoryService(nil, core.WithLogger(WrapZap(zap.New(zcore))))
	ctx := domain.WithActor(context.Background(), domain.Actor{ID: "m", Role: domain.RoleMember})
	if _, _, err := svc.CreateTemplate(ctx, "Den", ""); err == nil {
		t.Fatalf("expected permission error")
	}
	rejected := logs.FilterMessage("operation rejected").All()
	if len(rejected) != 1 {
		t.Fatalf("expected one rejected entry, got %d", len(rejected))
	}
	if rejected[0].ContextMap()["operation"] != "create_template" {
		t.Fatalf("unexpected fields %v", rejected[0].ContextMap())
	}
}

func TestPrometheusRecorderCountsOutcomes(t *testing.T) {
	rec, err := NewPrometheusRecorder()
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	ctx := context.Background()
	rec.Observe(ctx, "set_status", true, 2*time.Millisecond)
	rec.Observe(ctx, "set_status", true, 3*time.Millisecond)
	rec.Observe(ctx, "set_status", false, time.Millisecond)
	rec.Observe(ctx, "", true, time.Millisecond)

	if got := testutil.ToFloat64(rec.operations.WithLabelValues("set_status", "success")); got != 2 {
		t.Fatalf("success count = %v, want 2", got)
	}
	if got := testutil.ToFloat64(rec.operations.WithLabelValues("set_status", "error")); got != 1 {
		t.Fatalf("error count = %v, want 1", got)
	}
	if n := testutil.CollectAndCount(rec.latency); n != 1 {
		t.Fatalf("expected one latency series, got %d", n)
	}
}

func TestPrometheusHandlerExposesMetrics(t *testing.T) {
	rec, err := NewPrometheusRecorder()
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	svc := core.NewInMemoryService(nil, core.WithMetricsRecorder(rec))
	ctx := domain.WithActor(context.Background(), domain.Actor{ID: "a", Role: domain.RoleAdmin})
	if _, _, err := svc.CreateTemplate(ctx, "Den", ""); err != nil {
		t.Fatalf("create template: %v", err)
	}
	rr := httptest.NewRecorder()
	rec.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))
	body := rr.Body.String()
	if !strings.Contains(body, `ffe_operations_total{operation="create_template",outcome="success"} 1`) {
		t.Fatalf("metrics output missing operation counter:\n%s", body)
	}
	if !strings.Contains(body, "ffe_operation_duration_seconds_bucket") {
		t.Fatalf("metrics output missing histogram")
	}
}

func TestOTelTracerRecordsSpans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	tracer := NewOTelTracer(tp)

	_, span := tracer.Start(context.Background(), "apply_logic_option")
	span.End(nil)
	_, span = tracer.Start(context.Background(), "set_status")
	span.End(errors.New("invalid status"))

	ended := sr.Ended()
	if len(ended) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(ended))
	}
	if ended[0].Name() != "ffe.apply_logic_option" || ended[0].Status().Code != codes.Ok {
		t.Fatalf("unexpected first span %s %v", ended[0].Name(), ended[0].Status())
	}
	if ended[1].Status().Code != codes.Error || ended[1].Status().Description != "invalid status" {
		t.Fatalf("unexpected second span status %v", ended[1].Status())
	}
	if len(ended[1].Events()) == 0 {
		t.Fatalf("expected error event on failed span")
	}
}

func TestInitTracingModes(t *testing.T) {
	ctx := context.Background()
	_, shutdown, err := InitTracing(ctx, TracingConfig{Mode: "none"})
	if err != nil {
		t.Fatalf("none mode: %v", err)
	}
	if err := shutdown(ctx); err != nil {
		t.Fatalf("noop shutdown: %v", err)
	}
	if _, _, err := InitTracing(ctx, TracingConfig{Mode: "zipkin"}); err == nil {
		t.Fatalf("expected error for unknown mode")
	}

	var buf bytes.Buffer
	tp, shutdown, err := InitTracing(ctx, TracingConfig{Mode: "stdout", ServiceName: "ffetrack-test", Writer: &buf})
	if err != nil {
		t.Fatalf("stdout mode: %v", err)
	}
	_, span := NewOTelTracer(tp).Start(ctx, "instantiate")
	span.End(nil)
	if err := shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	out, _ := io.ReadAll(&buf)
	if !bytes.Contains(out, []byte("ffe.instantiate")) {
		t.Fatalf("expected exported span in output, got %s", out)
	}
	_, _, _ = InitTracing(ctx, TracingConfig{Mode: "none"})
}
