package stats

import (
	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "pkgstatus"

// PrometheusRecorder exports cycle statistics as Prometheus metrics.
type PrometheusRecorder struct {
	cycleDuration prom.Histogram
	cycles        *prom.CounterVec
	servers       *prom.CounterVec
	groups        *prom.CounterVec
	builds        *prom.CounterVec
	fetchFailures prom.Counter
	ports         *prom.CounterVec
	lastCycle     prom.Gauge
}

// NewPrometheusRecorder constructs the cycle metrics and registers them on
// reg. It panics if reg already holds them.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.cycleDuration = prom.NewHistogram(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "cycle_duration_seconds",
		Help:      "Duration of sync and diff cycles",
		Buckets:   prom.DefBuckets,
	})
	pr.cycles = prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "cycles_total",
		Help:      "Cycles by outcome",
	}, []string{"outcome"})
	pr.servers = prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "servers_total",
		Help:      "Servers visited by the sync pass",
	}, []string{"result"})
	pr.groups = prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "master_groups_total",
		Help:      "Master groups fetched or skipped as unchanged",
	}, []string{"result"})
	pr.builds = prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "builds_total",
		Help:      "Builds seen by the sync pass by result",
	}, []string{"result"})
	pr.fetchFailures = prom.NewCounter(prom.CounterOpts{
		Namespace: namespace,
		Name:      "fetch_failures_total",
		Help:      "Remote fetches that returned no data",
	})
	pr.ports = prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "port_results_total",
		Help:      "Port result sets seen by the diff pass by result",
	}, []string{"result"})
	pr.lastCycle = prom.NewGauge(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "last_cycle_timestamp_seconds",
		Help:      "End time of the most recent cycle",
	})
	reg.MustRegister(pr.cycleDuration, pr.cycles, pr.servers, pr.groups, pr.builds, pr.fetchFailures, pr.ports, pr.lastCycle)
	return pr
}

// ObserveCycle adds the counters of a finished cycle
func (p *PrometheusRecorder) ObserveCycle(c *Cycle) {
	if p == nil || p.cycles == nil {
		return
	}

	p.cycleDuration.Observe(c.Duration().Seconds())
	p.cycles.WithLabelValues(c.Outcome()).Inc()
	p.lastCycle.Set(float64(c.EndTime.Unix()))

	p.servers.WithLabelValues("synced").Add(float64(c.Sync.ServersSynced))
	p.servers.WithLabelValues("skipped").Add(float64(c.Sync.ServersSkipped))
	p.groups.WithLabelValues("fetched").Add(float64(c.Sync.GroupsFetched))
	p.groups.WithLabelValues("skipped").Add(float64(c.Sync.GroupsSkipped))
	p.builds.WithLabelValues("inserted").Add(float64(c.Sync.BuildsInserted))
	p.builds.WithLabelValues("updated").Add(float64(c.Sync.BuildsUpdated))
	p.builds.WithLabelValues("immutable").Add(float64(c.Sync.BuildsImmutable))
	p.builds.WithLabelValues("legacy").Add(float64(c.Sync.BuildsLegacy))
	p.fetchFailures.Add(float64(c.Sync.FetchFailures))
	p.ports.WithLabelValues("diffed").Add(float64(c.Diff.Diffed))
	p.ports.WithLabelValues("exempt").Add(float64(c.Diff.Exempt))
	p.ports.WithLabelValues("deferred").Add(float64(c.Diff.Deferred))
	p.ports.WithLabelValues("no_baseline").Add(float64(c.Diff.NoBaseline))
}
