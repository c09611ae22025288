package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "carwash_notify"

var (
	// Registry holds the service collectors.
	Registry = prometheus.NewRegistry()

	connectedUsers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "connected_users",
			Help:      "Number of users with a registered socket.",
		},
	)

	deliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "deliveries_total",
			Help:      "Envelopes handed to the registry, by outcome.",
		},
		[]string{"type", "outcome"},
	)

	sweepRemovals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "sweep_removals_total",
			Help:      "Connections removed by periodic sweeps.",
		},
		[]string{"sweep"},
	)

	scans = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatcher",
			Name:      "license_plate_scans_total",
			Help:      "License plate scans processed, by result.",
		},
		[]string{"result"},
	)
)

const (
	OutcomeDelivered    = "delivered"
	OutcomeNotConnected = "not_connected"
	OutcomeWriteFailed  = "write_failed"

	SweepCleanup = "cleanup"
	SweepPing    = "ping"
)

func init() {
	Registry.MustRegister(
		connectedUsers,
		deliveries,
		sweepRemovals,
		scans,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler exposes the registered collectors.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

func SetConnectedUsers(n int) {
	connectedUsers.Set(float64(n))
}

func RecordDelivery(envelopeType string, outcome string) {
	deliveries.WithLabelValues(envelopeType, outcome).Inc()
}

func RecordSweepRemovals(sweep string, removed int) {
	if removed == 0 {
		return
	}

	sweepRemovals.WithLabelValues(sweep).Add(float64(removed))
}

func RecordScan(result string) {
	scans.WithLabelValues(result).Inc()
}
