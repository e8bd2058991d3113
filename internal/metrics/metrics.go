package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// Payment sources
const (
	SourceDirect   = "direct"
	SourceReseller = "reseller"
	SourceApproval = "approval"
)

type Config struct {
	ServiceName string
	Environment string
}

// Metrics holds the billing counters. A nil *Metrics records nothing.
type Metrics struct {
	paymentsApplied        *prometheus.CounterVec
	paymentFailures        *prometheus.CounterVec
	conflictRetries        prometheus.Counter
	approvalsDecided       *prometheus.CounterVec
	subscribersProvisioned prometheus.Counter
	billsGenerated         *prometheus.CounterVec
	customersSuspended     prometheus.Counter
	notificationFailures   *prometheus.CounterVec
	cacheLookups           *prometheus.CounterVec
}

func New(registerer prometheus.Registerer, cfg Config) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "isp-billing"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}

	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	m := &Metrics{
		paymentsApplied: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "billing_payments_applied_total",
				Help:        "Payments reconciled against a bill.",
				ConstLabels: constLabels,
			},
			[]string{"source", "status"}, // status: PARTIAL | PAID
		),
		paymentFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "billing_payment_failures_total",
				Help:        "Rejected or failed reconciliations by error code.",
				ConstLabels: constLabels,
			},
			[]string{"source", "code"},
		),
		conflictRetries: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name:        "billing_conflict_retries_total",
				Help:        "Transactions retried after a concurrency conflict.",
				ConstLabels: constLabels,
			},
		),
		approvalsDecided: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "billing_approvals_decided_total",
				Help:        "Collection approvals decided by admins.",
				ConstLabels: constLabels,
			},
			[]string{"decision"},
		),
		subscribersProvisioned: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name:        "billing_subscribers_provisioned_total",
				Help:        "Subscribers provisioned through a reseller debit.",
				ConstLabels: constLabels,
			},
		),
		billsGenerated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "billing_bills_generated_total",
				Help:        "Monthly bill generation outcomes.",
				ConstLabels: constLabels,
			},
			[]string{"result"}, // created | skipped | failed
		),
		customersSuspended: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name:        "billing_customers_suspended_total",
				Help:        "Customers suspended for overdue bills.",
				ConstLabels: constLabels,
			},
		),
		notificationFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "billing_notification_failures_total",
				Help:        "Post-commit side effects that failed to dispatch.",
				ConstLabels: constLabels,
			},
			[]string{"kind"},
		),
		cacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "billing_summary_cache_lookups_total",
				Help:        "Bill summary cache lookups.",
				ConstLabels: constLabels,
			},
			[]string{"result"}, // hit | miss | error
		),
	}

	registerer.MustRegister(
		m.paymentsApplied,
		m.paymentFailures,
		m.conflictRetries,
		m.approvalsDecided,
		m.subscribersProvisioned,
		m.billsGenerated,
		m.customersSuspended,
		m.notificationFailures,
		m.cacheLookups,
	)

	return m
}

func (m *Metrics) PaymentApplied(source, status string) {
	if m == nil {
		return
	}
	m.paymentsApplied.WithLabelValues(source, status).Inc()
}

func (m *Metrics) PaymentFailed(source, code string) {
	if m == nil {
		return
	}
	if code == "" {
		code = "UNKNOWN"
	}
	m.paymentFailures.WithLabelValues(source, code).Inc()
}

func (m *Metrics) ConflictRetried() {
	if m == nil {
		return
	}
	m.conflictRetries.Inc()
}

func (m *Metrics) ApprovalDecided(decision string) {
	if m == nil {
		return
	}
	m.approvalsDecided.WithLabelValues(decision).Inc()
}

func (m *Metrics) SubscriberProvisioned() {
	if m == nil {
		return
	}
	m.subscribersProvisioned.Inc()
}

func (m *Metrics) BillGeneration(result string) {
	if m == nil {
		return
	}
	m.billsGenerated.WithLabelValues(result).Inc()
}

func (m *Metrics) CustomerSuspended() {
	if m == nil {
		return
	}
	m.customersSuspended.Inc()
}

func (m *Metrics) NotificationFailed(kind string) {
	if m == nil {
		return
	}
	m.notificationFailures.WithLabelValues(kind).Inc()
}

func (m *Metrics) CacheLookup(result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}
