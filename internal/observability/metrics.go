package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "console_requests_total",
			Help: "Total console API requests",
		}, []string{"code"},
	)
	Latency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "console_request_duration_seconds",
		Help:    "Request latency seconds",
		Buckets: prometheus.DefBuckets,
	})
	InFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "console_in_flight",
		Help: "In-flight HTTP requests",
	})
	RemoteCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "console_remote_calls_total",
			Help: "Campaign store calls by operation and status code (0 = transport error)",
		}, []string{"op", "code"},
	)
	RemoteLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "console_remote_call_duration_seconds",
		Help:    "Campaign store call latency seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
	Mutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "console_mutations_total",
			Help: "Dispatched mutations by name and outcome",
		}, []string{"mutation", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(RequestsTotal, Latency, InFlight, RemoteCalls, RemoteLatency, Mutations)
}

func MetricsHandler() http.Handler { return promhttp.Handler() }

// ObserveRemote records one campaign store call.
func ObserveRemote(op string, code int, d time.Duration) {
	RemoteCalls.WithLabelValues(op, strconv.Itoa(code)).Inc()
	RemoteLatency.WithLabelValues(op).Observe(d.Seconds())
}

// ObserveMutation records a mutation outcome.
func ObserveMutation(name string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	Mutations.WithLabelValues(name, outcome).Inc()
}

type rec struct {
	http.ResponseWriter
	code int
}

func (r *rec) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func Measure(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		InFlight.Inc()
		defer InFlight.Dec()

		rr := &rec{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rr, r)

		Latency.Observe(time.Since(start).Seconds())
		RequestsTotal.WithLabelValues(strconv.Itoa(rr.code)).Inc()
	})
}
