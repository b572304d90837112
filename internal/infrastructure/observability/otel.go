package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// Metrics holds all application metrics
type Metrics struct {
	RequestCount      metric.Int64Counter
	RequestDuration   metric.Float64Histogram
	AdmissionCount    metric.Int64Counter
	RecomputeCount    metric.Int64Counter
	RecomputeDuration metric.Float64Histogram
	EscalationCount   metric.Int64Counter
	CheckInDelivered  metric.Int64Counter
	CheckInFailed     metric.Int64Counter
	QueueDepth        metric.Int64Gauge
}

// Setup initializes OpenTelemetry
func Setup(ctx context.Context, serviceName, serviceVersion, endpoint string) (func(context.Context) error, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, err
	}

	// Set up trace exporter
	traceExporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	// Set up metric exporter
	metricExporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(endpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(meterProvider)

	// Shutdown function
	shutdown := func(ctx context.Context) error {
		if err := tracerProvider.Shutdown(ctx); err != nil {
			return err
		}
		return meterProvider.Shutdown(ctx)
	}

	return shutdown, nil
}

// InitMetrics initializes application metrics
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter("github.com/ekmjt/MediQ")

	requestCount, err := meter.Int64Counter(
		"http.server.request.count",
		metric.WithDescription("Number of HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		"http.server.request.duration",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	admissionCount, err := meter.Int64Counter(
		"queue.admission.count",
		metric.WithDescription("Number of patients admitted to the waitlist"),
	)
	if err != nil {
		return nil, err
	}

	recomputeCount, err := meter.Int64Counter(
		"queue.recompute.count",
		metric.WithDescription("Number of scheduling passes"),
	)
	if err != nil {
		return nil, err
	}

	recomputeDuration, err := meter.Float64Histogram(
		"queue.recompute.duration",
		metric.WithDescription("Scheduling pass duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	escalationCount, err := meter.Int64Counter(
		"queue.escalation.count",
		metric.WithDescription("Number of severity escalations"),
	)
	if err != nil {
		return nil, err
	}

	checkInDelivered, err := meter.Int64Counter(
		"checkin.delivered.count",
		metric.WithDescription("Number of check-in prompts delivered"),
	)
	if err != nil {
		return nil, err
	}

	checkInFailed, err := meter.Int64Counter(
		"checkin.failed.count",
		metric.WithDescription("Number of check-in delivery failures"),
	)
	if err != nil {
		return nil, err
	}

	queueDepth, err := meter.Int64Gauge(
		"queue.depth",
		metric.WithDescription("Number of patients currently waiting"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		RequestCount:      requestCount,
		RequestDuration:   requestDuration,
		AdmissionCount:    admissionCount,
		RecomputeCount:    recomputeCount,
		RecomputeDuration: recomputeDuration,
		EscalationCount:   escalationCount,
		CheckInDelivered:  checkInDelivered,
		CheckInFailed:     checkInFailed,
		QueueDepth:        queueDepth,
	}, nil
}

// StartSpan starts a new span with the given name
func StartSpan(ctx context.Context, spanName string) (context.Context, trace.Span) {
	tracer := otel.Tracer("github.com/ekmjt/MediQ")
	return tracer.Start(ctx, spanName)
}

// RecordError records an error on a span
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
	}
}

// SetSpanAttributes sets attributes on a span
func SetSpanAttributes(span trace.Span, attrs ...attribute.KeyValue) {
	span.SetAttributes(attrs...)
}

// RecordRequestMetric records HTTP request metrics
func RecordRequestMetric(ctx context.Context, metrics *Metrics, method, path string, statusCode int, duration time.Duration) {
	if metrics == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", path),
		attribute.Int("http.status_code", statusCode),
	)
	metrics.RequestCount.Add(ctx, 1, attrs)
	metrics.RequestDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
}

// RecordRecompute records one scheduling pass
func RecordRecompute(ctx context.Context, metrics *Metrics, waiting int, duration time.Duration) {
	if metrics == nil {
		return
	}
	metrics.RecomputeCount.Add(ctx, 1)
	metrics.RecomputeDuration.Record(ctx, float64(duration.Microseconds())/1000.0)
	metrics.QueueDepth.Record(ctx, int64(waiting))
}

// RecordAdmission records one queue admission
func RecordAdmission(ctx context.Context, metrics *Metrics, category string) {
	if metrics == nil {
		return
	}
	metrics.AdmissionCount.Add(ctx, 1, metric.WithAttributes(attribute.String("category", category)))
}

// RecordEscalation records one severity escalation
func RecordEscalation(ctx context.Context, metrics *Metrics) {
	if metrics == nil {
		return
	}
	metrics.EscalationCount.Add(ctx, 1)
}

// RecordCheckInDelivery records a check-in delivery attempt
func RecordCheckInDelivery(ctx context.Context, metrics *Metrics, delivered bool) {
	if metrics == nil {
		return
	}
	if delivered {
		metrics.CheckInDelivered.Add(ctx, 1)
	} else {
		metrics.CheckInFailed.Add(ctx, 1)
	}
}
