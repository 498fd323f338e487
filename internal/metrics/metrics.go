// Package metrics collects and exposes Prometheus metrics for the OAuth
// connection flows.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder is the metrics interface used by the flow layer.
type Recorder interface {
	RecordExchangeSuccess(providerID string)
	RecordExchangeFailure(providerID string, reason string)
	RecordExchangeLatency(providerID string, duration time.Duration)
	RecordRefreshSuccess(providerID string)
	RecordRefreshFailure(providerID string)
	RecordRevocation(providerID string)
}

// Collector implements Recorder backed by a Prometheus registry.
type Collector struct {
	exchangeSuccess *prometheus.CounterVec
	exchangeFailure *prometheus.CounterVec
	exchangeLatency *prometheus.HistogramVec
	refreshSuccess  *prometheus.CounterVec
	refreshFailure  *prometheus.CounterVec
	revocations     *prometheus.CounterVec
}

// NewCollector creates a Collector and registers its metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		exchangeSuccess: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "connectd_exchange_success_total",
			Help: "Successful authorization-code exchanges",
		}, []string{"provider"}),
		exchangeFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "connectd_exchange_failure_total",
			Help: "Failed authorization-code exchanges by reason",
		}, []string{"provider", "reason"}),
		exchangeLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "connectd_exchange_latency_seconds",
			Help:    "Token endpoint exchange latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
		refreshSuccess: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "connectd_refresh_success_total",
			Help: "Successful refresh-token exchanges",
		}, []string{"provider"}),
		refreshFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "connectd_refresh_failure_total",
			Help: "Failed refresh-token exchanges",
		}, []string{"provider"}),
		revocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "connectd_revocations_total",
			Help: "Provider connections revoked by users",
		}, []string{"provider"}),
	}

	reg.MustRegister(
		c.exchangeSuccess,
		c.exchangeFailure,
		c.exchangeLatency,
		c.refreshSuccess,
		c.refreshFailure,
		c.revocations,
	)
	return c
}

func (c *Collector) RecordExchangeSuccess(providerID string) {
	c.exchangeSuccess.WithLabelValues(providerID).Inc()
}

func (c *Collector) RecordExchangeFailure(providerID string, reason string) {
	c.exchangeFailure.WithLabelValues(providerID, reason).Inc()
}

func (c *Collector) RecordExchangeLatency(providerID string, duration time.Duration) {
	c.exchangeLatency.WithLabelValues(providerID).Observe(duration.Seconds())
}

func (c *Collector) RecordRefreshSuccess(providerID string) {
	c.refreshSuccess.WithLabelValues(providerID).Inc()
}

func (c *Collector) RecordRefreshFailure(providerID string) {
	c.refreshFailure.WithLabelValues(providerID).Inc()
}

func (c *Collector) RecordRevocation(providerID string) {
	c.revocations.WithLabelValues(providerID).Inc()
}

// Nop is a Recorder that discards all observations. Used in tests.
type Nop struct{}

func (Nop) RecordExchangeSuccess(string)                {}
func (Nop) RecordExchangeFailure(string, string)        {}
func (Nop) RecordExchangeLatency(string, time.Duration) {}
func (Nop) RecordRefreshSuccess(string)                 {}
func (Nop) RecordRefreshFailure(string)                 {}
func (Nop) RecordRevocation(string)                     {}
