package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "boltstax"

// Metrics holds the service collectors. A nil *Metrics is valid and records
// nothing, so services can be built without instrumentation in tests.
type Metrics struct {
	gatherer prometheus.Gatherer

	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	invites          *prometheus.CounterVec
	emails           *prometheus.CounterVec
	sheetTransitions *prometheus.CounterVec
	autosaveSaves    prometheus.Counter
	autosaveRetries  prometheus.Counter
	autosavePending  prometheus.Gauge
	rateLimited      prometheus.Counter
}

func New(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	m := &Metrics{
		gatherer: gatherer,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		invites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invites_total",
			Help:      "Invitations by role and outcome",
		}, []string{"role", "outcome"}),
		emails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emails_total",
			Help:      "Outgoing emails by template and outcome",
		}, []string{"template", "outcome"}),
		sheetTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sheet_transitions_total",
			Help:      "Product sheet status transitions by target status",
		}, []string{"status"}),
		autosaveSaves: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "autosave_saves_total",
			Help:      "Debounced question saves written to the store",
		}),
		autosaveRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "autosave_version_retries_total",
			Help:      "Response writes retried after a version conflict",
		}),
		autosavePending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "autosave_pending",
			Help:      "Question saves waiting for their debounce window",
		}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Capability requests rejected by the rate limiter",
		}),
	}

	reg.MustRegister(
		m.httpRequests, m.httpDuration, m.invites, m.emails, m.sheetTransitions,
		m.autosaveSaves, m.autosaveRetries, m.autosavePending, m.rateLimited,
	)
	return m
}

// Handler serves the registered collectors.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRequest(method string, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method).Inc()
	m.httpDuration.WithLabelValues(method).Observe(d.Seconds())
}

func (m *Metrics) Invite(role, outcome string) {
	if m == nil {
		return
	}
	m.invites.WithLabelValues(role, outcome).Inc()
}

func (m *Metrics) Email(template string, err error) {
	if m == nil {
		return
	}
	outcome := "sent"
	if err != nil {
		outcome = "failed"
	}
	m.emails.WithLabelValues(template, outcome).Inc()
}

func (m *Metrics) SheetTransition(status string) {
	if m == nil {
		return
	}
	m.sheetTransitions.WithLabelValues(status).Inc()
}

func (m *Metrics) AutosaveSaved() {
	if m == nil {
		return
	}
	m.autosaveSaves.Inc()
}

func (m *Metrics) AutosaveRetried() {
	if m == nil {
		return
	}
	m.autosaveRetries.Inc()
}

func (m *Metrics) AutosavePending(n int) {
	if m == nil {
		return
	}
	m.autosavePending.Set(float64(n))
}

func (m *Metrics) RateLimited() {
	if m == nil {
		return
	}
	m.rateLimited.Inc()
}
