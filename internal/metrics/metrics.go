// Package metrics instruments command execution and protocol traffic.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "webdriver_bridge"

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics is safe to use as a nil pointer; every recorder is then a no-op.
type Metrics struct {
	commandsTotal    *prometheus.CounterVec
	commandDuration  *prometheus.HistogramVec
	protocolRequests *prometheus.CounterVec
	protocolLatency  *prometheus.HistogramVec
	queueDepth       prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		commandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Commands settled by the execution queue.",
		}, []string{"command", "outcome"}),
		commandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Time from command start to settlement.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"command"}),
		protocolRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "protocol_requests_total",
			Help:      "Wire protocol requests by HTTP method and outcome.",
		}, []string{"method", "outcome"}),
		protocolLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "protocol_request_duration_seconds",
			Help:      "Wire protocol request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Work items waiting in the execution queue.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.commandsTotal, m.commandDuration, m.protocolRequests, m.protocolLatency, m.queueDepth)
	}

	return m
}

func (m *Metrics) RecordCommand(command string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}

	m.commandsTotal.WithLabelValues(command, outcome(err)).Inc()
	m.commandDuration.WithLabelValues(command).Observe(elapsed.Seconds())
}

func (m *Metrics) RecordProtocolRequest(method string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}

	m.protocolRequests.WithLabelValues(method, outcome(err)).Inc()
	m.protocolLatency.WithLabelValues(method).Observe(elapsed.Seconds())
}

func (m *Metrics) SetQueueDepth(depth int) {
	if m == nil {
		return
	}

	m.queueDepth.Set(float64(depth))
}

func outcome(err error) string {
	if err != nil {
		return OutcomeFailure
	}

	return OutcomeSuccess
}
