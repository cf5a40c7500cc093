// Package telemetry wires OpenTelemetry metrics and tracing around LLM calls
// and pipeline phases, generalizing the ad-hoc aiMetrics/tracer pair the
// teacher builds inline in internal/compact/haiku.go into a shared provider.
package telemetry

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

var (
	setupOnce      sync.Once
	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider

	loggerOnce sync.Once
	logger     *slog.Logger
)

// Logger returns the process-wide structured logger every pipeline phase
// logs through, lazily built the same JSON-on-stderr way cmd/miner builds
// its own package-level logger. SetLogger lets cmd/miner install its own
// configured instance (e.g. with a build-time level) before any phase runs.
func Logger() *slog.Logger {
	loggerOnce.Do(func() {
		if logger == nil {
			logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))
		}
	})
	return logger
}

// SetLogger installs l as the process-wide phase logger. Must be called
// before the first Logger() call (typically from main) to take effect.
func SetLogger(l *slog.Logger) {
	logger = l
}

// Setup installs stdout-backed metric and trace providers as process-global
// defaults. Safe to call multiple times; only the first call takes effect,
// matching the teacher's aiMetricsOnce.Do(initAIMetrics) pattern.
func Setup() error {
	var setupErr error
	setupOnce.Do(func() {
		metricExporter, err := stdoutmetric.New()
		if err != nil {
			setupErr = err
			return
		}
		mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter)))
		otel.SetMeterProvider(mp)
		meterProvider = mp

		traceExporter, err := stdouttrace.New(stdouttrace.WithoutTimestamps())
		if err != nil {
			setupErr = err
			return
		}
		tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(traceExporter))
		otel.SetTracerProvider(tp)
		tracerProvider = tp
	})
	return setupErr
}

// Meter returns a named meter, falling back to the global provider if Setup
// was never called (tests may not call Setup).
func Meter(name string) metric.Meter {
	if meterProvider != nil {
		return meterProvider.Meter(name)
	}
	return otel.GetMeterProvider().Meter(name)
}

// Tracer returns a named tracer, falling back to the global provider.
func Tracer(name string) trace.Tracer {
	if tracerProvider != nil {
		return tracerProvider.Tracer(name)
	}
	return otel.GetTracerProvider().Tracer(name)
}

// PhaseMetrics holds the counters/histograms shared across every pipeline phase.
type PhaseMetrics struct {
	PhaseRuns     metric.Int64Counter
	PhaseErrors   metric.Int64Counter
	PhaseDuration metric.Float64Histogram
	LLMCalls      metric.Int64Counter
	LLMInputTok   metric.Int64Counter
	LLMOutputTok  metric.Int64Counter
	LLMDuration   metric.Float64Histogram
	LLMDefaulted  metric.Int64Counter
}

var (
	phaseMetricsOnce sync.Once
	phaseMetrics     PhaseMetrics
)

// Phase returns the lazily-initialized shared phase/LLM instrument set.
func Phase() PhaseMetrics {
	phaseMetricsOnce.Do(func() {
		m := Meter("github.com/anton-mundy-ai/reddit-pain-finder-sub000/pipeline")
		phaseMetrics.PhaseRuns, _ = m.Int64Counter("painminer.phase.runs")
		phaseMetrics.PhaseErrors, _ = m.Int64Counter("painminer.phase.errors")
		phaseMetrics.PhaseDuration, _ = m.Float64Histogram("painminer.phase.duration_ms", metric.WithUnit("ms"))
		phaseMetrics.LLMCalls, _ = m.Int64Counter("painminer.llm.calls")
		phaseMetrics.LLMInputTok, _ = m.Int64Counter("painminer.llm.input_tokens", metric.WithUnit("{token}"))
		phaseMetrics.LLMOutputTok, _ = m.Int64Counter("painminer.llm.output_tokens", metric.WithUnit("{token}"))
		phaseMetrics.LLMDuration, _ = m.Float64Histogram("painminer.llm.duration_ms", metric.WithUnit("ms"))
		phaseMetrics.LLMDefaulted, _ = m.Int64Counter("painminer.llm.defaulted")
	})
	return phaseMetrics
}

// StartSpan is a thin convenience wrapper so call sites read like the
// teacher's tracer.Start(ctx, name) without repeating the tracer name.
func StartSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return Tracer("github.com/anton-mundy-ai/reddit-pain-finder-sub000").Start(ctx, name)
}
