package sentry_sender

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "acra_sentry_sender"
)

// metricsCollector implements prometheus.Collector interface
type metricsCollector struct {
	sentReports    atomic.Uint64 // Reports accepted by the Sentry server
	failedReports  atomic.Uint64 // Reports that could not be built or delivered
	skippedReports atomic.Uint64 // Reports dropped because no DSN is configured

	sentReportsDesc    *prometheus.Desc
	failedReportsDesc  *prometheus.Desc
	skippedReportsDesc *prometheus.Desc

	// Failures by reason: malformed_url, malformed_credentials, serialization, transport
	failuresByReason *prometheus.CounterVec
}

// newMetricsCollector creates a new metrics collector
func newMetricsCollector() *metricsCollector {
	return &metricsCollector{
		sentReportsDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "sent_reports_total"),
			"Total number of reports accepted by Sentry",
			nil, nil),

		failedReportsDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "failed_reports_total"),
			"Total number of reports that failed to send",
			nil, nil),

		skippedReportsDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "skipped_reports_total"),
			"Total number of reports skipped because no DSN is configured",
			nil, nil),

		failuresByReason: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: prometheus.BuildFQName(namespace, "", "failures_by_reason_total"),
				Help: "Total number of failed reports by failure reason",
			},
			[]string{"reason"}),
	}
}

// IncSentReports increments sent reports counter
func (mc *metricsCollector) IncSentReports() {
	mc.sentReports.Add(1)
}

// IncFailedReports increments failed reports counter for the given reason
func (mc *metricsCollector) IncFailedReports(reason string) {
	mc.failedReports.Add(1)
	mc.failuresByReason.WithLabelValues(reason).Inc()
}

// IncSkippedReports increments skipped reports counter
func (mc *metricsCollector) IncSkippedReports() {
	mc.skippedReports.Add(1)
}

// Describe sends all metric descriptions to Prometheus
func (mc *metricsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- mc.sentReportsDesc
	ch <- mc.failedReportsDesc
	ch <- mc.skippedReportsDesc

	mc.failuresByReason.Describe(ch)
}

// Collect sends current metric values to Prometheus
func (mc *metricsCollector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(
		mc.sentReportsDesc,
		prometheus.CounterValue,
		float64(mc.sentReports.Load()))

	ch <- prometheus.MustNewConstMetric(
		mc.failedReportsDesc,
		prometheus.CounterValue,
		float64(mc.failedReports.Load()))

	ch <- prometheus.MustNewConstMetric(
		mc.skippedReportsDesc,
		prometheus.CounterValue,
		float64(mc.skippedReports.Load()))

	mc.failuresByReason.Collect(ch)
}
