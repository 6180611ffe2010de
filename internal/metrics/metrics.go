// Package metrics collects login, lockout, audit and KDF metrics on a
// private registry. A CLI has no scrape endpoint, so the registry is
// written to a node_exporter textfile on exit.
package metrics

import (
	"time"

	"github.com/dmitrijs2005/nidkeeper/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Login outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeInvalid = "invalid"
	OutcomeLocked  = "locked"
	OutcomeError   = "error"
)

// Metrics holds the collectors for one process.
type Metrics struct {
	Registry *prometheus.Registry

	LoginAttempts *prometheus.CounterVec
	Lockouts      prometheus.Counter
	AuditAppends  *prometheus.CounterVec
	KDFDuration   prometheus.Histogram
}

// New creates a Metrics instance with every collector registered on a
// fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		LoginAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "nidkeeper_login_attempts_total",
			Help: "Login attempts by outcome",
		}, []string{"outcome"}),
		Lockouts: f.NewCounter(prometheus.CounterOpts{
			Name: "nidkeeper_account_lockouts_total",
			Help: "Accounts that crossed the failed-attempt threshold",
		}),
		AuditAppends: f.NewCounterVec(prometheus.CounterOpts{
			Name: "nidkeeper_audit_appends_total",
			Help: "Audit entries appended by action",
		}, []string{"action"}),
		KDFDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "nidkeeper_kdf_duration_seconds",
			Help:    "Duration of key derivations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

// IncrementLogin records a login attempt with the given outcome label.
func (m *Metrics) IncrementLogin(outcome string) {
	m.LoginAttempts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrementLockout() {
	m.Lockouts.Inc()
}

func (m *Metrics) IncrementAudit(action models.Action) {
	m.AuditAppends.WithLabelValues(string(action)).Inc()
}

// ObserveKDF records the duration of one derivation.
// Call with time.Now() at the start of the derivation.
func (m *Metrics) ObserveKDF(start time.Time) {
	m.KDFDuration.Observe(time.Since(start).Seconds())
}

// WriteTextfile writes every collected metric to path in the Prometheus
// text format. The write is atomic.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}
