package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Chat metrics
	chatMessagesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefinder_chat_messages_received_total",
		Help: "Total number of chat messages received",
	}, []string{"has_store"})

	chatRepliesMatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefinder_chat_replies_total",
		Help: "Total number of chat replies by matched category or intent",
	}, []string{"match"})

	lookupFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefinder_chat_lookup_failures_total",
		Help: "Total number of failed store/inventory lookups while replying",
	}, []string{"lookup"})

	// Generative metrics
	generativeRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storefinder_generative_request_duration_seconds",
		Help:    "Duration of generative assistant requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"model", "status"})

	generativeRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefinder_generative_requests_total",
		Help: "Total number of generative assistant requests",
	}, []string{"model", "status"})

	// Cache metrics
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefinder_cache_hits_total",
		Help: "Total number of cache hits",
	})

	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefinder_cache_misses_total",
		Help: "Total number of cache misses",
	})

	rateLimitExceeded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefinder_rate_limit_exceeded_total",
		Help: "Total number of rate limit exceeded events",
	})

	// Storage metrics
	storageOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefinder_storage_operations_total",
		Help: "Total number of storage operations",
	}, []string{"operation", "status"})

	storageOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storefinder_storage_operation_duration_seconds",
		Help:    "Duration of storage operations",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	// HTTP metrics
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefinder_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"route", "method", "code"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storefinder_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})

	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "storefinder_active_chat_sessions",
		Help: "Number of open chat sessions",
	})
)

// Metrics provides methods to record metrics
type Metrics struct{}

// NewMetrics creates a new metrics instance
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordMessageReceived records a received chat message
func (m *Metrics) RecordMessageReceived(hasStore bool) {
	chatMessagesReceived.WithLabelValues(strconv.FormatBool(hasStore)).Inc()
}

// RecordReply records which category or intent produced a reply
func (m *Metrics) RecordReply(match string) {
	chatRepliesMatched.WithLabelValues(match).Inc()
}

// RecordLookupFailure records a failed store or inventory read
func (m *Metrics) RecordLookupFailure(lookup string) {
	lookupFailures.WithLabelValues(lookup).Inc()
}

// RecordGenerativeRequest records a generative assistant request
func (m *Metrics) RecordGenerativeRequest(model, status string, duration time.Duration) {
	generativeRequestDuration.WithLabelValues(model, status).Observe(duration.Seconds())
	generativeRequestsTotal.WithLabelValues(model, status).Inc()
}

// RecordCacheHit records a cache hit
func (m *Metrics) RecordCacheHit() {
	cacheHits.Inc()
}

// RecordCacheMiss records a cache miss
func (m *Metrics) RecordCacheMiss() {
	cacheMisses.Inc()
}

// RecordRateLimitExceeded records a rate limit exceeded event
func (m *Metrics) RecordRateLimitExceeded() {
	rateLimitExceeded.Inc()
}

// RecordStorageOperation records a storage operation
func (m *Metrics) RecordStorageOperation(operation, status string, duration time.Duration) {
	storageOperations.WithLabelValues(operation, status).Inc()
	storageOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// SetActiveSessions sets the number of open chat sessions
func (m *Metrics) SetActiveSessions(count float64) {
	activeSessions.Set(count)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Instrument is a mux middleware recording request counts and latency per route template
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if current := mux.CurrentRoute(r); current != nil {
			if tmpl, err := current.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}
		httpRequests.WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).Inc()
		httpRequestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

// StartMetricsServer starts the metrics HTTP server
func StartMetricsServer(port int, path string) error {
	router := mux.NewRouter()
	router.Handle(path, promhttp.Handler())

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	addr := fmt.Sprintf(":%d", port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return server.ListenAndServe()
}
