// Package monitoring collects Prometheus metrics for embedded verification
// flows: lifecycle signal counts, open/close cycles, proxy installs, and
// mount-poll retries. A nil *Metrics is valid and records nothing, so hosts
// opt in per flow.
package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all flow lifecycle metrics.
type Metrics struct {
	SignalsTotal     *prometheus.CounterVec
	OpensTotal       prometheus.Counter
	ClosesTotal      prometheus.Counter
	ProxyInstalls    prometheus.Counter
	MountPollRetries prometheus.Counter
	FlowsActive      prometheus.Gauge
}

// New creates a metrics collector registered on reg. A nil reg uses the
// default registry; tests pass a fresh prometheus.NewRegistry to avoid
// duplicate registration.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		SignalsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "verikit_signals_total",
				Help: "Lifecycle signals received, by type",
			},
			[]string{"type"},
		),
		OpensTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "verikit_opens_total",
				Help: "Flow surface open operations",
			},
		),
		ClosesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "verikit_closes_total",
				Help: "Flow surface close operations",
			},
		),
		ProxyInstalls: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "verikit_proxy_installs_total",
				Help: "Capability proxy installs",
			},
		),
		MountPollRetries: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "verikit_mount_poll_retries_total",
				Help: "Embed mount poll attempts that found no mount point",
			},
		),
		FlowsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "verikit_flows_active",
				Help: "Flows currently in the active state",
			},
		),
	}
}

// IncSignal counts one inbound lifecycle signal.
func (m *Metrics) IncSignal(signalType string) {
	if m == nil {
		return
	}
	m.SignalsTotal.WithLabelValues(signalType).Inc()
}

// IncOpen counts one surface open.
func (m *Metrics) IncOpen() {
	if m == nil {
		return
	}
	m.OpensTotal.Inc()
}

// IncClose counts one surface close.
func (m *Metrics) IncClose() {
	if m == nil {
		return
	}
	m.ClosesTotal.Inc()
}

// IncProxyInstall counts one capability proxy install.
func (m *Metrics) IncProxyInstall() {
	if m == nil {
		return
	}
	m.ProxyInstalls.Inc()
}

// IncMountPollRetry counts one failed embed mount attempt.
func (m *Metrics) IncMountPollRetry() {
	if m == nil {
		return
	}
	m.MountPollRetries.Inc()
}

// SetActive marks the flow active or inactive on the gauge.
func (m *Metrics) SetActive(active bool) {
	if m == nil {
		return
	}
	if active {
		m.FlowsActive.Inc()
	} else {
		m.FlowsActive.Dec()
	}
}
