// Package observability exposes prometheus metrics and a live runtime snapshot.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns its registry so several instances can live side by side (tests).
type Metrics struct {
	registry *prometheus.Registry

	Connections        prometheus.Gauge
	EventsPublished    *prometheus.CounterVec
	DeliveryFailures   prometheus.Counter
	RelayedEvents      *prometheus.CounterVec
	ChatMessages       *prometheus.CounterVec
	CensoredWords      prometheus.Counter
	LinkOperations     *prometheus.CounterVec
	UpstreamDuration   prometheus.Histogram
	HTTPRequests       *prometheus.CounterVec
	ProcessRSSBytes    prometheus.Gauge
	ProcessCPUPercent  prometheus.Gauge
	StoredLinks        prometheus.Gauge
	StoredChatMessages prometheus.Gauge
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		Connections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "hunt_hub_connections",
			Help: "Live duplex connections registered in the hub",
		}),
		EventsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hunt_hub_events_published_total",
			Help: "Events published by the hub, by type",
		}, []string{"type"}),
		DeliveryFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "hunt_hub_delivery_failures_total",
			Help: "Per-connection send failures that led to unregistering",
		}),
		RelayedEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hunt_hub_relayed_events_total",
			Help: "Client-originated events, by outcome",
		}, []string{"outcome"}),
		ChatMessages: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hunt_chat_messages_total",
			Help: "Chat messages stored, by detected language",
		}, []string{"lang"}),
		CensoredWords: factory.NewCounter(prometheus.CounterOpts{
			Name: "hunt_chat_censored_words_total",
			Help: "Words replaced by the moderator",
		}),
		LinkOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hunt_identity_operations_total",
			Help: "Identity link operations, by operation and result",
		}, []string{"operation", "result"}),
		UpstreamDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "hunt_identity_upstream_duration_seconds",
			Help:    "Time spent resolving an identity with the provider",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
		}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hunt_http_requests_total",
			Help: "HTTP requests, by route pattern and status",
		}, []string{"route", "status"}),
		ProcessRSSBytes: factory.NewGauge(prometheus.GaugeOpts{
			Name: "hunt_process_rss_bytes",
			Help: "Resident memory sampled by the stats worker",
		}),
		ProcessCPUPercent: factory.NewGauge(prometheus.GaugeOpts{
			Name: "hunt_process_cpu_percent",
			Help: "CPU usage sampled by the stats worker",
		}),
		StoredLinks: factory.NewGauge(prometheus.GaugeOpts{
			Name: "hunt_store_links",
			Help: "Identity links currently stored",
		}),
		StoredChatMessages: factory.NewGauge(prometheus.GaugeOpts{
			Name: "hunt_store_chat_messages",
			Help: "Chat messages currently stored",
		}),
	}
}

// ObserveUpstream records the duration of one provider round trip.
func (m *Metrics) ObserveUpstream(started time.Time) {
	m.UpstreamDuration.Observe(time.Since(started).Seconds())
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
