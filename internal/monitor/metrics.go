package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	progressPercent = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "agentmon",
		Name:      "progress_percent",
		Help:      "Installation progress as reported by the authoritative source",
	})

	clusterAPIMode = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "agentmon",
		Name:      "cluster_api_mode",
		Help:      "1 once the target cluster's own API is authoritative",
	})

	unitsTotal = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "agentmon",
		Name:      "units_total",
		Help:      "Monitored units (hosts or nodes) by state",
	}, []string{"state"})

	installAPIFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "agentmon",
		Name:      "install_api_failures_total",
		Help:      "Transient orchestration API failures",
	})

	pollCycles = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "agentmon",
		Name:      "poll_cycles_total",
		Help:      "Completed snapshot poll cycles",
	})
)

// observeSnapshot updates the gauges after a successful publish.
func observeSnapshot(snap *Snapshot) {
	pollCycles.Inc()
	progressPercent.Set(float64(snap.Percent))
	if snap.Source == ModeClusterAPI {
		clusterAPIMode.Set(1)
	} else {
		clusterAPIMode.Set(0)
	}

	unitsTotal.Reset()
	for _, unit := range snap.Units {
		unitsTotal.WithLabelValues(unit.State).Inc()
	}
}
