package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the API.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	rowLoads        *prometheus.CounterVec
	rowLoadDuration *prometheus.HistogramVec
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	lockTimeouts    prometheus.Counter
	loginLockouts   prometheus.Counter
	chatExchanges   prometheus.Counter
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	rowLoads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rowstore_loads_total",
		Help: "Full-collection reads issued to the row store",
	}, []string{"collection"})

	rowLoadDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rowstore_load_duration_seconds",
		Help:    "Duration of full-collection reads",
		Buckets: prometheus.DefBuckets,
	}, []string{"collection"})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "request_cache_hits_total",
		Help: "Entity reads served from the request cache",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "request_cache_misses_total",
		Help: "Entity reads that loaded from the row store",
	})

	lockTimeouts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "write_lock_timeouts_total",
		Help: "Write lock acquisitions abandoned after the wait deadline",
	})

	loginLockouts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "login_lockouts_total",
		Help: "Accounts locked out by repeated failed logins",
	})

	chatExchanges := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "assistant_exchanges_total",
		Help: "Completed assistant chat exchanges",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, rowLoads, rowLoadDuration,
		cacheHits, cacheMisses, lockTimeouts, loginLockouts, chatExchanges, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		rowLoads:        rowLoads,
		rowLoadDuration: rowLoadDuration,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		lockTimeouts:    lockTimeouts,
		loginLockouts:   loginLockouts,
		chatExchanges:   chatExchanges,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records one served request.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveRowLoad records one full-collection read.
func (m *MetricsService) ObserveRowLoad(collection string, duration time.Duration) {
	if m == nil {
		return
	}
	m.rowLoads.WithLabelValues(collection).Inc()
	m.rowLoadDuration.WithLabelValues(collection).Observe(duration.Seconds())
}

// CacheHit counts an entity read served without touching the row store.
func (m *MetricsService) CacheHit() {
	if m == nil {
		return
	}
	m.cacheHits.Inc()
}

// CacheMiss counts an entity read that went to the row store.
func (m *MetricsService) CacheMiss() {
	if m == nil {
		return
	}
	m.cacheMisses.Inc()
}

// LockTimeout counts an abandoned write lock acquisition.
func (m *MetricsService) LockTimeout() {
	if m == nil {
		return
	}
	m.lockTimeouts.Inc()
}

// LoginLockout counts a rate-limit lockout.
func (m *MetricsService) LoginLockout() {
	if m == nil {
		return
	}
	m.loginLockouts.Inc()
}

// ChatExchange counts a completed assistant exchange.
func (m *MetricsService) ChatExchange() {
	if m == nil {
		return
	}
	m.chatExchanges.Inc()
}
