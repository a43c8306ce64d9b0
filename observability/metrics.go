// observability/metrics.go
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Check outcomes recorded under the "result" label.
const (
	ResultUnchanged = "unchanged"
	ResultUpdated   = "updated"
	ResultError     = "error"
	ResultBusy      = "busy"
)

// Metrics holds the service's Prometheus collectors. A nil *Metrics records nothing.
type Metrics struct {
	refreshChecks   *prometheus.CounterVec
	refreshDuration *prometheus.HistogramVec
	snapshotRows    *prometheus.GaugeVec
	snapshotLoaded  *prometheus.GaugeVec
	queriesTotal    *prometheus.CounterVec
	queryDuration   *prometheus.HistogramVec
}

// NewMetrics registers the collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		refreshChecks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "opencovid_refresh_checks_total",
			Help: "Source version checks by outcome",
		}, []string{"source", "result"}),
		refreshDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "opencovid_refresh_load_duration_seconds",
			Help:    "Time spent loading and publishing a snapshot",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"source"}),
		snapshotRows: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "opencovid_snapshot_rows",
			Help: "Rows held by the published snapshot",
		}, []string{"source"}),
		snapshotLoaded: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "opencovid_snapshot_loaded_timestamp_seconds",
			Help: "Unix time the published snapshot was loaded",
		}, []string{"source"}),
		queriesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "opencovid_queries_total",
			Help: "API requests by route and status code",
		}, []string{"route", "status"}),
		queryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "opencovid_query_duration_seconds",
			Help:    "API request latency",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"route"}),
	}
}

// ObserveCheck counts one version check.
func (m *Metrics) ObserveCheck(source, result string) {
	if m == nil {
		return
	}
	m.refreshChecks.WithLabelValues(source, result).Inc()
}

// ObservePublish records a snapshot publish.
func (m *Metrics) ObservePublish(source string, took time.Duration, rows int, loadedAt time.Time) {
	if m == nil {
		return
	}
	m.refreshDuration.WithLabelValues(source).Observe(took.Seconds())
	m.snapshotRows.WithLabelValues(source).Set(float64(rows))
	m.snapshotLoaded.WithLabelValues(source).Set(float64(loadedAt.Unix()))
}

// ObserveQuery records one served request.
func (m *Metrics) ObserveQuery(route, status string, took time.Duration) {
	if m == nil {
		return
	}
	m.queriesTotal.WithLabelValues(route, status).Inc()
	m.queryDuration.WithLabelValues(route).Observe(took.Seconds())
}
