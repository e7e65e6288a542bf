package observe

import (
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.39.0"
	"go.opentelemetry.io/otel/trace"
)

// Routes served by the metrics listener. Any other path is recorded as
// RouteOther.
const (
	RouteMetrics = "/metrics"
	RouteHealthz = "/healthz"
	RouteReadyz  = "/readyz"
	RouteOther   = "other"
)

func route(path string) string {
	switch path {
	case RouteMetrics, RouteHealthz, RouteReadyz:
		return path
	}
	return RouteOther
}

// statusWriter remembers the status code the handler wrote.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

// Middleware instruments the metrics listener. Every request is timed into
// [Metrics.HTTPRequestDuration] by route and status. Health probes join an
// incoming W3C trace (or start one) and echo the trace id in
// X-Correlation-ID; scrapes of /metrics are not traced.
func Middleware(m *Metrics) func(http.Handler) http.Handler {
	prop := propagation.TraceContext{}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rt := route(r.URL.Path)
			ctx := r.Context()

			var span trace.Span
			if rt != RouteMetrics {
				ctx = prop.Extract(ctx, propagation.HeaderCarrier(r.Header))
				ctx, span = StartSpan(ctx, "probe "+rt,
					trace.WithSpanKind(trace.SpanKindServer),
					trace.WithAttributes(
						semconv.HTTPRequestMethodKey.String(r.Method),
						semconv.HTTPRoute(rt),
					),
				)
				defer span.End()
				if cid := CorrelationID(ctx); cid != "" {
					w.Header().Set("X-Correlation-ID", cid)
				}
			}

			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r.WithContext(ctx))

			elapsed := time.Since(start)
			m.HTTPRequestDuration.Record(ctx, elapsed.Seconds(),
				metric.WithAttributes(
					attribute.String("route", rt),
					attribute.Int("status", sw.status),
				),
			)
			if span != nil {
				span.SetAttributes(semconv.HTTPResponseStatusCode(sw.status))
			}
			if sw.status >= http.StatusInternalServerError {
				slog.Warn("metrics listener: request failed", "route", rt, "status", sw.status)
				return
			}
			slog.Debug("metrics listener: request served", "route", rt, "status", sw.status, "duration", elapsed)
		})
	}
}
