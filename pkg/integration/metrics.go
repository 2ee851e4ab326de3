package integration

import (
	"fmt"

	"github.com/backkem/espmatter/pkg/datamodel"
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "espmatter"

// Lifecycle results recorded by Metrics.
const (
	resultOK    = "ok"
	resultError = "error"
	resultSkip  = "skipped"
)

// Metrics exports lifecycle counters. A nil *Metrics records nothing.
type Metrics struct {
	lifecycle *prometheus.CounterVec
	slots     *prometheus.GaugeVec
}

// NewMetrics creates the lifecycle metrics and registers them on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		lifecycle: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "cluster_lifecycle_total",
			Help:      "Cluster instance lifecycle steps by cluster, stage and result.",
		}, []string{"cluster", "stage", "result"}),
		slots: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "cluster_slots_live",
			Help:      "Constructed cluster instance slots by cluster.",
		}, []string{"cluster"}),
	}
	var registered []prometheus.Collector
	for _, c := range []prometheus.Collector{m.lifecycle, m.slots} {
		if err := reg.Register(c); err != nil {
			for _, r := range registered {
				reg.Unregister(r)
			}
			return nil, fmt.Errorf("integration: register metrics: %w", err)
		}
		registered = append(registered, c)
	}
	return m, nil
}

func clusterLabel(id datamodel.ClusterID) string {
	return fmt.Sprintf("0x%04X", uint32(id))
}

func (m *Metrics) observe(cluster datamodel.ClusterID, stage Stage, err error) {
	if m == nil {
		return
	}
	result := resultOK
	if err != nil {
		result = resultError
	}
	m.lifecycle.WithLabelValues(clusterLabel(cluster), stage.String(), result).Inc()
}

func (m *Metrics) skipped(cluster datamodel.ClusterID, stage Stage) {
	if m == nil {
		return
	}
	m.lifecycle.WithLabelValues(clusterLabel(cluster), stage.String(), resultSkip).Inc()
}

func (m *Metrics) setLive(cluster datamodel.ClusterID, live int) {
	if m == nil {
		return
	}
	m.slots.WithLabelValues(clusterLabel(cluster)).Set(float64(live))
}
