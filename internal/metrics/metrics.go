package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	ChallengesCreated prometheus.Counter
	CheckIns          prometheus.Counter
	PointsAwarded     prometheus.Counter
	Transitions       *prometheus.CounterVec
	BadgesAwarded     *prometheus.CounterVec
	EmailsSent        *prometheus.CounterVec
	SweepDuration     prometheus.Histogram
	VersionConflicts  prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"route", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		ChallengesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "motiveme_challenges_created_total",
			Help: "Challenges created",
		}),
		CheckIns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "motiveme_checkins_total",
			Help: "Successful check-ins",
		}),
		PointsAwarded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "motiveme_points_awarded_total",
			Help: "Points granted by check-ins and badges",
		}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "motiveme_challenge_transitions_total",
			Help: "Challenges leaving active, by resulting status",
		}, []string{"status"}),
		BadgesAwarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "motiveme_badges_awarded_total",
			Help: "Badges earned, by badge id",
		}, []string{"badge"}),
		EmailsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "motiveme_emails_total",
			Help: "Outgoing emails, by kind and result",
		}, []string{"kind", "result"}),
		SweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "motiveme_sweep_duration_seconds",
			Help:    "Duration of status sweeps",
			Buckets: prometheus.DefBuckets,
		}),
		VersionConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "motiveme_version_conflicts_total",
			Help: "Challenge writes rejected by the optimistic version check",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests, m.httpDuration,
		m.ChallengesCreated, m.CheckIns, m.PointsAwarded, m.Transitions,
		m.BadgesAwarded, m.EmailsSent, m.SweepDuration, m.VersionConflicts,
	)
	return m
}

// Register adds an extra collector, such as a gauge owned by another package.
func (m *Metrics) Register(c prometheus.Collector) {
	m.registry.MustRegister(c)
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// EmailResult counts one email send attempt.
func (m *Metrics) EmailResult(kind string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.EmailsSent.WithLabelValues(kind, result).Inc()
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	rw.statusCode = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Middleware records request counts and latency by route pattern. It must
// sit directly around the ServeMux so the matched pattern is visible.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(ww, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		m.httpRequests.WithLabelValues(route, r.Method, strconv.Itoa(ww.statusCode)).Inc()
		m.httpDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}
