package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "posledger"

// Metrics groups the collectors of the payment-request lifecycle. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	created     prometheus.Counter
	confirmed   *prometheus.CounterVec
	submissions *prometheus.CounterVec
	httpReqs    *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		created: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_created_total",
			Help:      "Payment requests created.",
		}),
		confirmed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_confirmed_total",
			Help:      "Payment requests that received a confirmation hash, by source.",
		}, []string{"source"}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Transfer submission outcomes (ok, attempt_failed, failed, dropped).",
		}, []string{"result"}),
		httpReqs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
	}
}

func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.created, m.confirmed, m.submissions, m.httpReqs} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) RequestCreated() {
	if m == nil {
		return
	}
	m.created.Inc()
}

func (m *Metrics) RequestConfirmed(source string) {
	if m == nil {
		return
	}
	m.confirmed.WithLabelValues(source).Inc()
}

func (m *Metrics) Submission(result string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(result).Inc()
}

func (m *Metrics) HTTPRequest(route, code string) {
	if m == nil {
		return
	}
	m.httpReqs.WithLabelValues(route, code).Inc()
}
