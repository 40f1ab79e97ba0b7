// Package metrics provides Prometheus metrics for the dashboard client:
// token refresh activity, realtime connection health and bridge HTTP traffic.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mwhitton/agentdash/pkg/logger"
)

const subsystem = "agentdash"

// Metrics provides Prometheus metrics collection for the dashboard client.
type Metrics struct {
	reg *prometheus.Registry

	TotalHTTPRequestsCounter prometheus.Counter
	HTTPRequestsCounters     map[int]prometheus.Counter
	HTTPDurationHistogram    prometheus.Histogram

	TokenRefreshTotal     prometheus.Counter
	TokenRefreshFailures  prometheus.Counter
	TokenRefreshCoalesced prometheus.Counter
	ForcedLogouts         prometheus.Counter

	RealtimeReconnects     prometheus.Counter
	RealtimeMessagesSent   prometheus.Counter
	RealtimeMessagesQueued prometheus.Counter
	RealtimeParseFailures  prometheus.Counter

	server *http.Server
	log    logger.Logger
}

// NewMetrics creates a new Metrics instance with the specified collectors enabled.
func NewMetrics(httpCounters bool, l logger.Logger) Metrics {
	m := Metrics{
		reg: prometheus.NewRegistry(),
		log: l,
	}

	if httpCounters {
		m.TotalHTTPRequestsCounter = prometheus.NewCounter(prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      "total_http_requests",
			Help:      "Total HTTP requests handled by the dashboard bridge",
		})
		m.reg.MustRegister(m.TotalHTTPRequestsCounter)
		m.HTTPRequestsCounters = make(map[int]prometheus.Counter)

		m.HTTPDurationHistogram = prometheus.NewHistogram(prometheus.HistogramOpts{
			Subsystem: subsystem,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.1, 0.3, 0.5, 0.7, 1.0, 3.0, 5.0, 7.0, 10.0},
		})
		m.reg.MustRegister(m.HTTPDurationHistogram)
	}

	m.TokenRefreshTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "token_refreshes_total",
		Help:      "Total access token refresh calls issued",
	})
	m.TokenRefreshFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "token_refresh_failures_total",
		Help:      "Total failed access token refresh calls",
	})
	m.TokenRefreshCoalesced = prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "token_refreshes_coalesced_total",
		Help:      "Refresh callers that attached to an in-flight refresh",
	})
	m.ForcedLogouts = prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "forced_logouts_total",
		Help:      "Sessions terminated because the refresh token was rejected",
	})
	m.reg.MustRegister(m.TokenRefreshTotal, m.TokenRefreshFailures, m.TokenRefreshCoalesced, m.ForcedLogouts)

	m.RealtimeReconnects = prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "realtime_reconnects_total",
		Help:      "Automatic realtime reconnect attempts",
	})
	m.RealtimeMessagesSent = prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "realtime_messages_sent_total",
		Help:      "Chat messages written to the realtime socket",
	})
	m.RealtimeMessagesQueued = prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "realtime_messages_queued_total",
		Help:      "Chat messages queued while the realtime socket was down",
	})
	m.RealtimeParseFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "realtime_parse_failures_total",
		Help:      "Inbound realtime frames dropped because they failed to parse",
	})
	m.reg.MustRegister(m.RealtimeReconnects, m.RealtimeMessagesSent, m.RealtimeMessagesQueued, m.RealtimeParseFailures)

	return m
}

// AddCustomMetric registers a custom Prometheus collector.
func (m *Metrics) AddCustomMetric(c prometheus.Collector) {
	m.reg.MustRegister(c)
}

// Listen starts the metrics HTTP server on the specified port.
func (m *Metrics) Listen(port int) chan error {
	m.log.Info("Starting metrics listener", logger.IntField("port", port))
	mux := http.NewServeMux()
	mux.Handle("/", http.NotFoundHandler())
	mux.Handle("/metrics", promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{}))
	m.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- m.server.ListenAndServe()
	}()
	return errChan
}

// Shutdown stops the metrics HTTP server if one was started.
func (m *Metrics) Shutdown(ctx context.Context) error {
	if m.server == nil {
		return nil
	}
	m.log.Info("Stopping metrics listener")
	return m.server.Shutdown(ctx)
}

// IncrementHTTPResponseCounter increments the counter for the given HTTP status code.
func (m *Metrics) IncrementHTTPResponseCounter(code int) {
	_, ok := m.HTTPRequestsCounters[code]
	if !ok {
		m.HTTPRequestsCounters[code] = prometheus.NewCounter(prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      fmt.Sprintf("total_%d_http_responses", code),
			Help:      fmt.Sprintf("Total %s HTTP responses returned", http.StatusText(code)),
		})
		m.reg.MustRegister(m.HTTPRequestsCounters[code])
	}
	m.HTTPRequestsCounters[code].Inc()
}

// HTTPMiddleware returns a chi-compatible middleware that tracks HTTP metrics
func (m *Metrics) HTTPMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			m.TotalHTTPRequestsCounter.Inc()

			rw := &responseWriter{ResponseWriter: w, statusCode: 200}
			next.ServeHTTP(rw, r)

			m.HTTPDurationHistogram.Observe(time.Since(start).Seconds())
			m.IncrementHTTPResponseCounter(rw.statusCode)
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
