package engine

import "github.com/prometheus/client_golang/prometheus"

// Metrics is the engine's ambient Prometheus exposition surface (spec §1
// non-goals exclude a full observability subsystem, but the ambient
// stack — structured logging, metrics — is carried regardless per the
// teacher's and pack's conventions).
type Metrics struct {
	buildVersion prometheus.Gauge
	buildFaults  prometheus.Counter
	buildTotal   prometheus.Counter
	snapshotHits prometheus.Counter
}

// NewMetrics registers the engine's metrics on reg. Pass
// prometheus.NewRegistry() for an isolated registry in tests, or
// prometheus.DefaultRegisterer in production.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		buildVersion: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "naviscope_graph_version",
			Help: "Version number of the currently published graph.",
		}),
		buildFaults: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "naviscope_build_faults_total",
			Help: "Cumulative per-file faults recorded across builds.",
		}),
		buildTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "naviscope_builds_total",
			Help: "Number of rebuild/update_files calls that completed.",
		}),
		snapshotHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "naviscope_snapshots_total",
			Help: "Number of Snapshot() calls served.",
		}),
	}
	reg.MustRegister(m.buildVersion, m.buildFaults, m.buildTotal, m.snapshotHits)
	return m
}

// ObserveBuild records the outcome of a completed build.
func (m *Metrics) ObserveBuild(version uint64, faults int) {
	if m == nil {
		return
	}
	m.buildVersion.Set(float64(version))
	m.buildFaults.Add(float64(faults))
	m.buildTotal.Inc()
}

// ObserveSnapshot records a Snapshot() call.
func (m *Metrics) ObserveSnapshot() {
	if m == nil {
		return
	}
	m.snapshotHits.Inc()
}
