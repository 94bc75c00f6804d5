package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"parkalert/internal/domain/parking"
	"parkalert/internal/ports"
)

const namespace = "parkalert"

// Collector implements ports.Metrics on its own registry so tests and
// multiple fx apps in one process do not collide on the default one.
type Collector struct {
	registry *prometheus.Registry

	alertsSent        *prometheus.CounterVec
	alertTransitions  *prometheus.CounterVec
	reputationEvents  *prometheus.CounterVec
	reputationApplied *prometheus.CounterVec
	securityEvents    *prometheus.CounterVec
	pushAttempts      *prometheus.CounterVec
	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
}

var _ ports.Metrics = (*Collector)(nil)

func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Collector{
		registry: registry,
		alertsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_sent_total",
			Help:      "Alerts created, by urgency and velocity verdict.",
		}, []string{"urgency", "flagged"}),
		alertTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alert_transitions_total",
			Help:      "Alert status transitions, by target status.",
		}, []string{"status"}),
		reputationEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reputation_events_total",
			Help:      "Reputation ledger events, by type.",
		}, []string{"event_type"}),
		reputationApplied: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reputation_points_total",
			Help:      "Absolute reputation points applied, by direction.",
		}, []string{"direction"}),
		securityEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "security_events_total",
			Help:      "Security events, by type and severity.",
		}, []string{"event_type", "severity"}),
		pushAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "push_attempts_total",
			Help:      "Push notification attempts, by outcome.",
		}, []string{"outcome"}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests, by route and status code.",
		}, []string{"method", "route", "code"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

func (c *Collector) AlertSent(urgency parking.Urgency, flagged bool) {
	c.alertsSent.WithLabelValues(string(urgency), strconv.FormatBool(flagged)).Inc()
}

func (c *Collector) AlertTransitioned(to parking.AlertStatus) {
	c.alertTransitions.WithLabelValues(string(to)).Inc()
}

func (c *Collector) ReputationRecorded(eventType parking.EventType, applied int) {
	c.reputationEvents.WithLabelValues(string(eventType)).Inc()
	switch {
	case applied > 0:
		c.reputationApplied.WithLabelValues("gain").Add(float64(applied))
	case applied < 0:
		c.reputationApplied.WithLabelValues("loss").Add(float64(-applied))
	}
}

func (c *Collector) SecurityEventRecorded(eventType parking.SecurityEventType, severity parking.Severity) {
	c.securityEvents.WithLabelValues(string(eventType), string(severity)).Inc()
}

func (c *Collector) PushAttempted(outcome string) {
	c.pushAttempts.WithLabelValues(outcome).Inc()
}

// ObserveHTTP records one served request. route is the chi route pattern.
func (c *Collector) ObserveHTTP(method string, route string, code int, seconds float64) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(seconds)
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
