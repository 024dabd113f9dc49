// Package telemetry wires OpenTelemetry tracing and Prometheus
// metrics for the daemon. The engine itself never imports this
// package — it is pure and untraced by design — so every metric here
// is about the host's work (HTTP requests, cycles, effects), not the
// state machine's transitions.
package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

	"github.com/remindctl/remind/config"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "remind_http_requests_total",
			Help: "Total number of HTTP requests received by the status API.",
		},
		[]string{"handler", "method", "code"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "remind_http_request_duration_seconds",
			Help:    "Duration of status API requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"handler", "method"},
	)
	cyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "remind_cycles_total",
			Help: "Total number of workflow cycles completed, by outcome.",
		},
		[]string{"workflow", "outcome"},
	)
	cycleDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "remind_cycle_duration_seconds",
			Help:    "Duration of a workflow cycle from its first step effect until it ends (timer start or Done).",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"workflow"},
	)
	effectsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "remind_effects_total",
			Help: "Total number of effects performed, by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal, httpRequestDuration, cyclesTotal, cycleDuration, effectsTotal)
}

// Init sets up the global tracer provider from daemon config.
// Supported exporters: "stdout" (default), "otlp", "none".
func Init(cfg *config.TracingConfig) error {
	if cfg == nil {
		cfg = &config.TracingConfig{Exporter: "stdout", ServiceName: "remind"}
	}
	if cfg.Exporter == "none" {
		return nil
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "remind"
	}
	res, err := resource.New(context.Background(), resource.WithAttributes(semconv.ServiceName(serviceName)))
	if err != nil {
		return fmt.Errorf("failed to build telemetry resource: %w", err)
	}

	var tp *sdktrace.TracerProvider
	switch cfg.Exporter {
	case "otlp":
		opts := []otlptracehttp.Option{}
		if cfg.Endpoint != "" {
			opts = append(opts, otlptracehttp.WithEndpoint(cfg.Endpoint))
		}
		exp, err := otlptracehttp.New(context.Background(), opts...)
		if err != nil {
			return fmt.Errorf("failed to create otlp exporter: %w", err)
		}
		tp = sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp), sdktrace.WithResource(res))
	case "", "stdout":
		exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return fmt.Errorf("failed to create stdout exporter: %w", err)
		}
		tp = sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp), sdktrace.WithResource(res))
	default:
		return fmt.Errorf("unsupported tracing exporter: %s", cfg.Exporter)
	}

	otel.SetTracerProvider(tp)
	return nil
}

// RecordCycle records the outcome and duration of one completed cycle.
func RecordCycle(workflowName string, duration time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	cyclesTotal.WithLabelValues(workflowName, outcome).Inc()
	cycleDuration.WithLabelValues(workflowName).Observe(duration.Seconds())
}

// RecordEffect records one performed effect.
func RecordEffect(kind string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	effectsTotal.WithLabelValues(kind, outcome).Inc()
}

// WrapHandler applies tracing and Prometheus instrumentation to an
// HTTP handler registered under name.
func WrapHandler(name string, next http.Handler) http.Handler {
	traced := otelhttp.NewHandler(next, name)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		traced.ServeHTTP(rw, r)
		httpRequestsTotal.WithLabelValues(name, r.Method, fmt.Sprintf("%d", rw.status)).Inc()
		httpRequestDuration.WithLabelValues(name, r.Method).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// MetricsHandler serves the Prometheus metrics endpoint.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
