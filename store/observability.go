package store

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName = "github.com/arllen133/entrybook/store"
	meterName  = "github.com/arllen133/entrybook/store"
)

// Metrics holds the OpenTelemetry instruments a session records into.
type Metrics struct {
	QueryCount    metric.Int64Counter
	QueryDuration metric.Float64Histogram
	QueryErrors   metric.Int64Counter
}

// ObservabilityConfig holds logging, tracing and metrics settings.
// Nil members disable the corresponding signal.
type ObservabilityConfig struct {
	Logger             *slog.Logger
	Tracer             trace.Tracer
	Meter              metric.Meter
	Metrics            *Metrics
	SlowQueryThreshold time.Duration
	LogQueries         bool // log every statement at debug level
}

func defaultObservabilityConfig() *ObservabilityConfig {
	return &ObservabilityConfig{SlowQueryThreshold: 200 * time.Millisecond}
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithLogger sets the logger for the session.
func WithLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) {
		s.obs.Logger = logger
	}
}

// WithTracer sets the tracer for the session.
func WithTracer(tracer trace.Tracer) SessionOption {
	return func(s *Session) {
		s.obs.Tracer = tracer
	}
}

// WithDefaultTracer uses the globally registered tracer provider.
func WithDefaultTracer() SessionOption {
	return WithTracer(otel.Tracer(tracerName))
}

// WithMeter sets the meter and creates the session's instruments on it.
func WithMeter(meter metric.Meter) SessionOption {
	return func(s *Session) {
		if meter == nil {
			return
		}
		s.obs.Meter = meter
		s.obs.Metrics = initMetrics(meter)
	}
}

// WithDefaultMeter uses the globally registered meter provider.
func WithDefaultMeter() SessionOption {
	return WithMeter(otel.Meter(meterName))
}

// WithSlowQueryThreshold sets the duration above which a statement is
// logged as slow.
func WithSlowQueryThreshold(d time.Duration) SessionOption {
	return func(s *Session) {
		s.obs.SlowQueryThreshold = d
	}
}

// WithQueryLogging logs every statement text at debug level.
func WithQueryLogging(enabled bool) SessionOption {
	return func(s *Session) {
		s.obs.LogQueries = enabled
	}
}

func initMetrics(meter metric.Meter) *Metrics {
	queryCount, _ := meter.Int64Counter("entrybook.store.query.count",
		metric.WithDescription("Statements executed"),
		metric.WithUnit("{query}"),
	)
	queryDuration, _ := meter.Float64Histogram("entrybook.store.query.duration",
		metric.WithDescription("Statement duration in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000),
	)
	queryErrors, _ := meter.Int64Counter("entrybook.store.query.errors",
		metric.WithDescription("Statements that returned an error"),
		metric.WithUnit("{error}"),
	)
	return &Metrics{
		QueryCount:    queryCount,
		QueryDuration: queryDuration,
		QueryErrors:   queryErrors,
	}
}

// spanWrapper tolerates a nil span so call sites need no tracer checks.
type spanWrapper struct {
	span trace.Span
}

func (w spanWrapper) End() {
	if w.span != nil {
		w.span.End()
	}
}

func (w spanWrapper) RecordError(err error) {
	if w.span != nil {
		w.span.RecordError(err)
		w.span.SetStatus(codes.Error, err.Error())
	}
}

func (s *Session) startSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, spanWrapper) {
	if s.obs.Tracer == nil {
		return ctx, spanWrapper{}
	}
	ctx, span := s.obs.Tracer.Start(ctx, name, opts...)
	return ctx, spanWrapper{span}
}

// observe runs one driver call under a span, then records metrics and logs.
func (s *Session) observe(ctx context.Context, operation, query string, fn func(context.Context) error) error {
	attrs := []attribute.KeyValue{
		attribute.String("db.system", s.dialect.Name()),
		attribute.String("db.operation", operation),
	}
	if query != "" {
		attrs = append(attrs, attribute.String("db.statement", query))
	}
	ctx, span := s.startSpan(ctx, "store."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)

	if err != nil {
		span.RecordError(err)
	}
	s.recordMetrics(ctx, operation, elapsed, err)
	s.logQuery(ctx, operation, query, elapsed, err)
	return err
}

func (s *Session) recordMetrics(ctx context.Context, operation string, duration time.Duration, err error) {
	if s.obs.Metrics == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("db.operation", operation),
		attribute.String("db.system", s.dialect.Name()),
	)
	s.obs.Metrics.QueryCount.Add(ctx, 1, attrs)
	s.obs.Metrics.QueryDuration.Record(ctx, float64(duration)/float64(time.Millisecond), attrs)
	if err != nil {
		s.obs.Metrics.QueryErrors.Add(ctx, 1, attrs)
	}
}

func (s *Session) logQuery(ctx context.Context, operation, query string, duration time.Duration, err error) {
	if s.obs.Logger == nil {
		return
	}

	attrs := []slog.Attr{
		slog.String("operation", operation),
		slog.Duration("duration", duration),
	}
	if s.obs.LogQueries && query != "" {
		attrs = append(attrs, slog.String("query", query))
	}

	switch {
	case err != nil:
		s.obs.Logger.LogAttrs(ctx, slog.LevelError, "query failed", append(attrs, slog.String("error", err.Error()))...)
	case duration > s.obs.SlowQueryThreshold:
		s.obs.Logger.LogAttrs(ctx, slog.LevelWarn, "slow query", attrs...)
	case s.obs.LogQueries:
		s.obs.Logger.LogAttrs(ctx, slog.LevelDebug, "query executed", attrs...)
	}
}
