package observability

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Forum metrics
	ContentOperationsTotal *prometheus.CounterVec
	AuthAttemptsTotal      *prometheus.CounterVec
	ModerationActionsTotal *prometheus.CounterVec
	AuthorizationDenials   *prometheus.CounterVec
	TopicViewsTotal        prometheus.Counter
	PrunedTopicsTotal      prometheus.Counter
	RateLimitedTotal       *prometheus.CounterVec
	NotificationsTotal     prometheus.Counter

	// Database metrics
	DBConnectionsOpen   prometheus.Gauge
	DBConnectionsInUse  prometheus.Gauge
	DBConnectionsIdle   prometheus.Gauge
	DBConnectionsWaited prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forum_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "forum_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		HTTPResponseSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "forum_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 6),
			},
			[]string{"method", "route"},
		),

		ContentOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forum_content_operations_total",
				Help: "Total number of content operations by outcome",
			},
			[]string{"operation", "status"},
		),
		AuthAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forum_auth_attempts_total",
				Help: "Total number of login attempts by result",
			},
			[]string{"result"},
		),
		ModerationActionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forum_moderation_actions_total",
				Help: "Total number of moderation actions",
			},
			[]string{"action"},
		),
		AuthorizationDenials: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forum_authorization_denials_total",
				Help: "Total number of denied authorization checks",
			},
			[]string{"permission", "code"},
		),
		TopicViewsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "forum_topic_views_total",
				Help: "Total number of topic views",
			},
		),
		PrunedTopicsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "forum_pruned_topics_total",
				Help: "Total number of topics removed by auto-prune",
			},
		),
		RateLimitedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forum_rate_limited_total",
				Help: "Total number of requests rejected by rate limiting",
			},
			[]string{"tier"},
		),
		NotificationsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "forum_notifications_total",
				Help: "Total number of notifications written to member inboxes",
			},
		),

		DBConnectionsOpen: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "forum_db_connections_open",
				Help: "Number of open database connections",
			},
		),
		DBConnectionsInUse: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "forum_db_connections_in_use",
				Help: "Number of database connections in use",
			},
		),
		DBConnectionsIdle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "forum_db_connections_idle",
				Help: "Number of idle database connections",
			},
		),
		DBConnectionsWaited: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "forum_db_connections_wait_count",
				Help: "Total number of connections waited for",
			},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPResponseSize,
		m.ContentOperationsTotal,
		m.AuthAttemptsTotal,
		m.ModerationActionsTotal,
		m.AuthorizationDenials,
		m.TopicViewsTotal,
		m.PrunedTopicsTotal,
		m.RateLimitedTotal,
		m.NotificationsTotal,
		m.DBConnectionsOpen,
		m.DBConnectionsInUse,
		m.DBConnectionsIdle,
		m.DBConnectionsWaited,
	)

	return m
}

// The Record helpers are safe on a nil *Metrics so callers can run without metrics.

// RecordContentOperation counts a content operation and whether it succeeded
func (m *Metrics) RecordContentOperation(operation string, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.ContentOperationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordAuthAttempt counts a login attempt
func (m *Metrics) RecordAuthAttempt(result string) {
	if m == nil {
		return
	}
	m.AuthAttemptsTotal.WithLabelValues(result).Inc()
}

// RecordModeration counts a moderation action
func (m *Metrics) RecordModeration(action string) {
	if m == nil {
		return
	}
	m.ModerationActionsTotal.WithLabelValues(action).Inc()
}

// RecordDenial counts a denied authorization check
func (m *Metrics) RecordDenial(permission, code string) {
	if m == nil {
		return
	}
	m.AuthorizationDenials.WithLabelValues(permission, code).Inc()
}

// RecordTopicView counts a topic view
func (m *Metrics) RecordTopicView() {
	if m == nil {
		return
	}
	m.TopicViewsTotal.Inc()
}

// RecordPruned adds n pruned topics
func (m *Metrics) RecordPruned(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.PrunedTopicsTotal.Add(float64(n))
}

// RecordNotifications adds n notifications written to inboxes
func (m *Metrics) RecordNotifications(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.NotificationsTotal.Add(float64(n))
}

// RecordRateLimited counts a rejected request for a limiter tier
func (m *Metrics) RecordRateLimited(tier string) {
	if m == nil {
		return
	}
	m.RateLimitedTotal.WithLabelValues(tier).Inc()
}

// RecordDBStats copies connection pool statistics into the gauges
func (m *Metrics) RecordDBStats(stats sql.DBStats) {
	if m == nil {
		return
	}
	m.DBConnectionsOpen.Set(float64(stats.OpenConnections))
	m.DBConnectionsInUse.Set(float64(stats.InUse))
	m.DBConnectionsIdle.Set(float64(stats.Idle))
	m.DBConnectionsWaited.Set(float64(stats.WaitCount))
}

// responseWriter wraps http.ResponseWriter to capture status code and size
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += n
	return n, err
}

// routeLabel returns the matched mux route template so ids do not explode label cardinality
func routeLabel(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics.
// Install it with router.Use so the matched route is known.
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rw, r)

			route := routeLabel(r)
			duration := time.Since(start).Seconds()
			status := strconv.Itoa(rw.statusCode)

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, status).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(duration)
			metrics.HTTPResponseSize.WithLabelValues(r.Method, route).Observe(float64(rw.bytesWritten))
		})
	}
}

// RegisterMetricsEndpoint registers the /metrics endpoint
func RegisterMetricsEndpoint(mux *http.ServeMux, registry *prometheus.Registry) {
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}
