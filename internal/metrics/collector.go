package metrics

import (
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns the prometheus registry and keeps atomic mirrors of the
// counters that feed snapshot broadcasts.
type Collector struct {
	registry *prometheus.Registry

	eventsTotal       *prometheus.CounterVec
	errorsTotal       prometheus.Counter
	connectionsGauge  prometheus.Gauge
	messagesPersisted prometheus.Counter

	events atomic.Uint64
	errors atomic.Uint64
}

func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		eventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_events_total",
			Help: "Inbound events processed, by event type.",
		}, []string{"event"}),
		errorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gateway_event_errors_total",
			Help: "Events that surfaced an error to the client.",
		}),
		connectionsGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gateway_connections",
			Help: "Currently registered WebSocket connections.",
		}),
		messagesPersisted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gateway_messages_persisted_total",
			Help: "Messages durably stored.",
		}),
	}

	c.registry.MustRegister(c.eventsTotal, c.errorsTotal, c.connectionsGauge, c.messagesPersisted)
	return c
}

// EventProcessed records one handled inbound event.
func (c *Collector) EventProcessed(event string) {
	c.eventsTotal.WithLabelValues(event).Inc()
	c.events.Add(1)
}

// EventFailed records one event that was answered with an error.
func (c *Collector) EventFailed() {
	c.errorsTotal.Inc()
	c.errors.Add(1)
}

// MessagePersisted records one durably stored message.
func (c *Collector) MessagePersisted() {
	c.messagesPersisted.Inc()
}

// SetConnections updates the live connection gauge.
func (c *Collector) SetConnections(n int) {
	c.connectionsGauge.Set(float64(n))
}

// EventsProcessed returns the running event count.
func (c *Collector) EventsProcessed() uint64 { return c.events.Load() }

// ErrorsTotal returns the running error count.
func (c *Collector) ErrorsTotal() uint64 { return c.errors.Load() }

// Handler serves the prometheus scrape endpoint.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
