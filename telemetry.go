package melody

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/melodymodel/melody")
var meter = otel.Meter("github.com/melodymodel/melody")

const (
	// entrypointAttr is the attribute key used to associate each record with
	// the entrypoint of the model being loaded, so metrics can be examined
	// across all models or per model.
	entrypointAttr = "entrypoint"
)

var (
	// loadDuration measures the duration of a successful model load, from
	// opening the entrypoint to the last document tree being linked.
	loadDuration metric.Float64Histogram
	// loadFailures measures the number of model loads that have failed.
	loadFailures metric.Int64Counter
	// elementsLoaded measures the number of typed elements built and indexed
	// per loaded document.
	elementsLoaded metric.Int64Counter
	// duplicateIDs measures the number of id collisions observed while
	// indexing, each of which also marks the model corrupted.
	duplicateIDs metric.Int64Counter
)

func init() {
	var err error
	loadDuration, err = meter.Float64Histogram(
		"model.load.duration",
		metric.WithDescription("The duration of a successful model load, from opening the entrypoint to the last document tree being linked."),
		metric.WithUnit("ms"),
	)
	if err != nil {
		panic("melody: failed to init 'model.load.duration' instrument")
	}

	loadFailures, err = meter.Int64Counter(
		"model.load.failures",
		metric.WithDescription("The number of model loads that have failed."),
	)
	if err != nil {
		panic("melody: failed to init 'model.load.failures' instrument")
	}

	elementsLoaded, err = meter.Int64Counter(
		"model.load.elements",
		metric.WithDescription("The number of typed elements built and indexed."),
	)
	if err != nil {
		panic("melody: failed to init 'model.load.elements' instrument")
	}

	duplicateIDs, err = meter.Int64Counter(
		"model.load.duplicateIds",
		metric.WithDescription("The number of element id collisions observed while indexing."),
	)
	if err != nil {
		panic("melody: failed to init 'model.load.duplicateIds' instrument")
	}
}

func startLoadSpan(ctx context.Context, entrypoint string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "melody.Open",
		trace.WithAttributes(attribute.String(entrypointAttr, entrypoint)))
}

// recordLoad measures one load attempt. A successful load records its
// duration; a failed one increments the failure counter and marks the span.
//
// According to [metric] documentation, [metric.WithAttributeSet] should be
// used instead of [metric.WithAttributes] for performance optimization.
func recordLoad(ctx context.Context, span trace.Span, entrypoint string, d time.Duration, err error) {
	attrs := attribute.NewSet(attribute.String(entrypointAttr, entrypoint))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load failed")
		loadFailures.Add(ctx, 1, metric.WithAttributeSet(attrs))
		return
	}
	span.SetStatus(codes.Ok, "")
	// Floating-point division for higher precision than the Milliseconds
	// method offers.
	loadDuration.Record(ctx, float64(d)/float64(time.Millisecond), metric.WithAttributeSet(attrs))
}

func recordElementsLoaded(ctx context.Context, entrypoint string, n int64) {
	if n == 0 {
		return
	}
	attrs := attribute.NewSet(attribute.String(entrypointAttr, entrypoint))
	elementsLoaded.Add(ctx, n, metric.WithAttributeSet(attrs))
}

func recordDuplicateID(ctx context.Context, entrypoint string) {
	attrs := attribute.NewSet(attribute.String(entrypointAttr, entrypoint))
	duplicateIDs.Add(ctx, 1, metric.WithAttributeSet(attrs))
}
