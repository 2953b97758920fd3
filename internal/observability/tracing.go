package observability

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Aamm5845/residentone-workflow-sub002/internal/core"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const instrumentationName = "github.com/Aamm5845/residentone-workflow-sub002/internal/core"

// Tracing modes accepted by InitTracing.
const (
	TracingNone   = "none"
	TracingStdout = "stdout"
)

var _ core.Tracer = (*OTelTracer)(nil)

// OTelTracer starts one OpenTelemetry span per service operation.
type OTelTracer struct {
	tracer trace.Tracer
}

// NewOTelTracer wraps a tracer provider; nil uses the global provider.
func NewOTelTracer(tp trace.TracerProvider) *OTelTracer {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &OTelTracer{tracer: tp.Tracer(instrumentationName)}
}

// Start implements core.Tracer.
func (t *OTelTracer) Start(ctx context.Context, operation string) (context.Context, core.TraceSpan) {
	ctx, span := t.tracer.Start(ctx, "ffe."+operation,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("ffe.operation", operation)),
	)
	return ctx, otelSpan{span: span}
}

type otelSpan struct {
	span trace.Span
}

func (s otelSpan) End(err error) {
	if err != nil {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	} else {
		s.span.SetStatus(codes.Ok, "")
	}
	s.span.End()
}

// TracingConfig selects how spans are exported.
type TracingConfig struct {
	Mode        string
	ServiceName string
	Environment string
	// Writer receives stdout-mode spans; defaults to os.Stdout.
	Writer io.Writer
}

// InitTracing installs a global tracer provider for the mode and returns it
// with its shutdown func. Mode "none" (or empty) installs a no-op provider.
func InitTracing(ctx context.Context, cfg TracingConfig) (trace.TracerProvider, func(context.Context) error, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	switch mode {
	case "", TracingNone:
		tp := noop.NewTracerProvider()
		otel.SetTracerProvider(tp)
		return tp, func(context.Context) error { return nil }, nil
	case TracingStdout:
	default:
		return nil, nil, fmt.Errorf("unknown tracing mode %q", cfg.Mode)
	}
	w := cfg.Writer
	if w == nil {
		w = os.Stdout
	}
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, nil, fmt.Errorf("stdout exporter: %w", err)
	}
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "ffetrack"
	}
	res, err := resource.New(ctx,
		resource.WithTelemetrySDK(),
		resource.WithAttributes(
			attribute.String("service.name", name),
			attribute.String("deployment.environment", strings.TrimSpace(cfg.Environment)),
		),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("trace resource: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return tp, tp.Shutdown, nil
}
