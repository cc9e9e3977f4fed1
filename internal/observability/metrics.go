package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "peerclock",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total admin HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "peerclock",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Admin HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)

	registrySize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "peerclock",
		Subsystem: "registry",
		Name:      "peers",
		Help:      "Number of peers currently known to the registry.",
	})
	confirmedClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "peerclock",
		Subsystem: "election",
		Name:      "confirmed_clients",
		Help:      "Number of clients confirmed as followers of this node.",
	})
	electionState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "peerclock",
			Subsystem: "election",
			Name:      "client_state",
			Help:      "1 if this node's outgoing ClientState equals the labeled state, else 0.",
		},
		[]string{"state"},
	)
	syncOffsetSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "peerclock",
		Subsystem: "timesync",
		Name:      "offset_seconds",
		Help:      "Applied clock-offset step per sync exchange, in seconds.",
		Buckets:   prometheus.ExponentialBucketsRange(0.0001, 1, 12),
	})
)

// RegisterMetrics registers all collectors exactly once.
func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests, httpDuration,
			registrySize, confirmedClients, electionState,
			syncOffsetSeconds,
		)
	})
}

// RecordHTTPRequest records one completed admin HTTP request.
func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

// SetRegistrySize publishes the current peer-registry size.
func SetRegistrySize(n int) {
	RegisterMetrics()
	registrySize.Set(float64(n))
}

// SetConfirmedClients publishes the current confirmed-follower count.
func SetConfirmedClients(n int) {
	RegisterMetrics()
	confirmedClients.Set(float64(n))
}

// SetElectionState publishes a one-hot gauge over the known
// ClientState labels.
func SetElectionState(current string, all []string) {
	RegisterMetrics()
	for _, s := range all {
		v := 0.0
		if s == current {
			v = 1.0
		}
		electionState.WithLabelValues(s).Set(v)
	}
}

// ObserveSyncOffset records one applied slew step.
func ObserveSyncOffset(seconds float64) {
	RegisterMetrics()
	syncOffsetSeconds.Observe(seconds)
}
