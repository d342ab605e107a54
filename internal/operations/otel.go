package operations

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"pricefill/internal/infrastructure"
)

const (
	TracerName = "pricefill.operation"
)

// OperationTracer provides OpenTelemetry instrumentation for runs and their steps
type OperationTracer struct {
	tracer  trace.Tracer
	metrics *infrastructure.BusinessMetrics
}

// NewOperationTracer creates a tracer backed by providers. Nil providers yield a tracer
// that records nothing.
func NewOperationTracer(providers *infrastructure.OTelProviders) *OperationTracer {
	pt := &OperationTracer{tracer: noop.NewTracerProvider().Tracer(TracerName)}
	if providers == nil {
		return pt
	}
	if providers.Tracer != nil {
		pt.tracer = providers.Tracer
	}
	pt.metrics = providers.Metrics
	return pt
}

// TraceOperationExecution creates a span for the entire run
func (pt *OperationTracer) TraceOperationExecution(ctx context.Context, operationID string, stepCount int) (context.Context, trace.Span) {
	return pt.tracer.Start(ctx, "operation.execute",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("operation.id", operationID),
			attribute.Int("operation.step_count", stepCount),
		),
	)
}

// TraceStepExecution creates a span for a single step, named after the step ID
func (pt *OperationTracer) TraceStepExecution(ctx context.Context, operationID string, step Step) (context.Context, trace.Span) {
	return pt.tracer.Start(ctx, step.ID(),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("operation.id", operationID),
			attribute.String("step.id", step.ID()),
			attribute.String("step.name", step.Name()),
		),
	)
}

// RecordStepCompletion records step metrics and closes out the span status. ctx must carry
// the step span.
func (pt *OperationTracer) RecordStepCompletion(ctx context.Context, span trace.Span, stepID string, duration time.Duration, err error) {
	success := err == nil
	infrastructure.RecordStepMetrics(ctx, pt.metrics, stepID, duration, success)

	span.SetAttributes(attribute.Float64("step.duration_seconds", duration.Seconds()))
	if success {
		span.SetStatus(codes.Ok, "step completed")
		return
	}
	infrastructure.RecordError(ctx, err, trace.WithAttributes(attribute.String("step.id", stepID)))
}

// RecordRows records the row outcome of the enrich step on the current span and counters
func (pt *OperationTracer) RecordRows(ctx context.Context, processed, matched, unmatched int) {
	infrastructure.RecordRowMetrics(ctx, pt.metrics, processed, matched, unmatched)
	infrastructure.SetSpanAttributes(ctx, map[string]interface{}{
		"rows.processed": processed,
		"rows.matched":   matched,
		"rows.unmatched": unmatched,
	})
	infrastructure.AddSpanEvent(ctx, "rows.enriched", map[string]interface{}{
		"processed": processed,
		"matched":   matched,
		"unmatched": unmatched,
	})
}

// RecordOperationCompletion sets the final run status on the span
func (pt *OperationTracer) RecordOperationCompletion(span trace.Span, duration time.Duration, status OperationStatus, err error) {
	span.SetAttributes(
		attribute.String("operation.status", string(status)),
		attribute.Float64("operation.duration_seconds", duration.Seconds()),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, fmt.Sprintf("operation %s", status))
		return
	}
	span.SetStatus(codes.Ok, "operation completed")
}
