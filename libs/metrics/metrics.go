package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry owns every collector of one service. Components receive it
// explicitly; tests create their own so nothing leaks between them.
type Registry struct {
	reg       *prometheus.Registry
	factory   promauto.Factory
	namespace string
}

func New(namespace string) *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Registry{reg: reg, factory: promauto.With(reg), namespace: namespace}
}

func (r *Registry) CounterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return r.factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Name:      name,
		Help:      help,
	}, labels)
}

func (r *Registry) HistogramVec(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}
	return r.factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: r.namespace,
		Name:      name,
		Help:      help,
		Buckets:   buckets,
	}, labels)
}

func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// Handler serves the registry in the Prometheus text format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// HTTP counts requests and observes latency per path and status. route maps a
// request to a bounded label value; unknown paths should collapse to one value.
func (r *Registry) HTTP(route func(*http.Request) string) func(http.Handler) http.Handler {
	requests := r.CounterVec("http_requests_total", "HTTP requests by route, method and status.", "route", "method", "status")
	latency := r.HistogramVec("http_request_duration_seconds", "HTTP request latency.", nil, "route", "method")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			start := time.Now()
			sw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, req)

			name := route(req)
			requests.WithLabelValues(name, req.Method, strconv.Itoa(sw.status)).Inc()
			latency.WithLabelValues(name, req.Method).Observe(time.Since(start).Seconds())
		})
	}
}
