package provider

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// Telemetry names.
const (
	SpanPopulate       = "dataprovider.populate"
	MetricPopulate     = "dataprovider.populate.count"
	MetricPopulateTime = "dataprovider.populate.duration"
)

// Attribute keys.
const (
	AttrProvider  = "dataprovider.provider"
	AttrOperation = "dataprovider.operation"
	AttrNodeID    = "dataprovider.node_id"
	AttrOutcome   = "dataprovider.outcome"
)

type telemetry struct {
	tracer   trace.Tracer
	count    metric.Int64Counter
	duration metric.Float64Histogram
}

// newTelemetry creates the population instruments. Nil tracer or meter and
// instrument creation failures fall back to noop implementations.
func newTelemetry(tracer trace.Tracer, meter metric.Meter) *telemetry {
	if tracer == nil {
		tracer = tracenoop.NewTracerProvider().Tracer("")
	}
	if meter == nil {
		meter = metricnoop.NewMeterProvider().Meter("")
	}

	t := &telemetry{tracer: tracer}

	count, err := meter.Int64Counter(
		MetricPopulate,
		metric.WithDescription("Number of virtual node populations"),
		metric.WithUnit("{population}"),
	)
	if err != nil {
		count, _ = metricnoop.NewMeterProvider().Meter("").Int64Counter(MetricPopulate)
	}
	t.count = count

	duration, err := meter.Float64Histogram(
		MetricPopulateTime,
		metric.WithDescription("Duration of virtual node populations"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		duration, _ = metricnoop.NewMeterProvider().Meter("").Float64Histogram(MetricPopulateTime)
	}
	t.duration = duration

	return t
}

// start opens a population span. The returned function ends it and records
// the metrics for err.
func (t *telemetry) start(ctx context.Context, provider, op, id string) (context.Context, func(error)) {
	begin := time.Now()
	ctx, span := t.tracer.Start(ctx, SpanPopulate,
		trace.WithAttributes(
			attribute.String(AttrProvider, provider),
			attribute.String(AttrOperation, op),
			attribute.String(AttrNodeID, id),
		),
	)

	return ctx, func(err error) {
		outcome := "ok"
		if err != nil {
			outcome = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()

		attrs := metric.WithAttributes(
			attribute.String(AttrProvider, provider),
			attribute.String(AttrOperation, op),
			attribute.String(AttrOutcome, outcome),
		)
		t.count.Add(ctx, 1, attrs)
		t.duration.Record(ctx, float64(time.Since(begin).Microseconds())/1000.0, attrs)
	}
}
