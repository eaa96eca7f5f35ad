package cache

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	lookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "console_cache_lookups_total",
		Help: "Query cache lookups by result",
	}, []string{"result"})
	invalidations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "console_cache_invalidations_total",
		Help: "Query cache invalidations by root key",
	}, []string{"root"})
	staleWrites = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "console_cache_stale_writes_total",
		Help: "Fetched results discarded because their key was invalidated during the fetch",
	})
)

func init() {
	prometheus.MustRegister(lookups, invalidations, staleWrites)
}

func recordLookup(hit bool) {
	if hit {
		lookups.WithLabelValues("hit").Inc()
		return
	}
	lookups.WithLabelValues("miss").Inc()
}

func recordInvalidation(key string) {
	root, _, _ := strings.Cut(key, sep)
	invalidations.WithLabelValues(root).Inc()
}

func recordStaleWrite() { staleWrites.Inc() }
