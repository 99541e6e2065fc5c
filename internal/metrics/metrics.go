// SPDX-License-Identifier: MIT
// Package metrics exports publish results in the Prometheus text format so a
// node exporter textfile collector can pick them up.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/skaphos/benchkeeper/internal/model"
)

// Recorder collects publish metrics in a private registry.
type Recorder struct {
	registry       *prometheus.Registry
	benchValue     *prometheus.GaugeVec
	alerts         *prometheus.GaugeVec
	historyEntries *prometheus.GaugeVec
	pushRetries    prometheus.Counter
}

// NewRecorder returns a Recorder with all collectors registered.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		benchValue: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "benchkeeper",
			Name:      "benchmark_value",
			Help:      "Latest published benchmark value.",
		}, []string{"suite", "bench", "unit"}),
		alerts: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "benchkeeper",
			Name:      "alerts",
			Help:      "Regressions detected by the latest publish.",
		}, []string{"suite"}),
		historyEntries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "benchkeeper",
			Name:      "history_entries",
			Help:      "Entries stored for the suite after the latest publish.",
		}, []string{"suite"}),
		pushRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "benchkeeper",
			Name:      "push_retries_total",
			Help:      "Pushes retried after the remote rejected them.",
		}),
	}
	r.registry.MustRegister(r.benchValue, r.alerts, r.historyEntries, r.pushRetries)
	return r
}

// ObserveEntry records every measurement of entry under suite.
func (r *Recorder) ObserveEntry(suite string, entry model.Entry) {
	if r == nil {
		return
	}
	for _, b := range entry.Benches {
		r.benchValue.WithLabelValues(suite, b.Name, b.Unit).Set(b.Value)
	}
}

// ObserveAlerts records the number of regressions found for suite.
func (r *Recorder) ObserveAlerts(suite string, count int) {
	if r == nil {
		return
	}
	r.alerts.WithLabelValues(suite).Set(float64(count))
}

// ObserveHistory records the stored entry count for suite.
func (r *Recorder) ObserveHistory(suite string, entries int) {
	if r == nil {
		return
	}
	r.historyEntries.WithLabelValues(suite).Set(float64(entries))
}

// PushRetried counts one retried push.
func (r *Recorder) PushRetried() {
	if r == nil {
		return
	}
	r.pushRetries.Inc()
}

// Gatherer exposes the underlying registry.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// WriteTextfile atomically writes all metrics to path.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
