package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Renewal engine metrics
	renewalAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "subscription_renewal_attempts_total",
		Help: "Total renewal attempts by outcome",
	}, []string{
		"plan_type", // daily, monthly, yearly
		"outcome",   // renewed, grace, past_due, skipped, failed
	})

	catchUpRenewals = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "subscription_catch_up_renewals",
		Help:    "Number of extra periods renewed when a delinquent service pays",
		Buckets: []float64{0, 1, 2, 3, 6, 12, 24},
	})

	serviceTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "subscription_service_transitions_total",
		Help: "Total service status transitions",
	}, []string{
		"from",
		"to",
	})

	renewalBatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "subscription_renewal_batch_duration_seconds",
		Help:    "Time to process one batch of due renewals",
		Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 300},
	})

	serviceLockContentionTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "subscription_service_lock_contention_total",
		Help: "Services skipped because another worker held their lock",
	})

	// Invoice metrics
	invoicesRaisedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "subscription_invoices_raised_total",
		Help: "Total invoices raised",
	}, []string{
		"kind", // first, renewal
	})

	invoicePaymentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "subscription_invoice_payments_total",
		Help: "Total automatic and out-of-band invoice payment attempts",
	}, []string{
		"status", // paid, declined, failed, free
	})

	subscriptionRevenueCents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "subscription_revenue_cents_total",
		Help: "Total subscription revenue in cents",
	}, []string{
		"currency",
	})

	// Gateway metrics
	gatewayChargesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_gateway_charges_total",
		Help: "Total charges sent to the payment gateway",
	}, []string{
		"status",        // approved, declined, error
		"response_code", // gateway response code, empty on transport errors
	})

	gatewayChargeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "payment_gateway_charge_duration_seconds",
		Help:    "Duration of gateway charge calls including retries",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})

	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
	}, []string{
		"name",
	})
)

// RecordRenewalAttempt records the outcome of one renewal attempt
func RecordRenewalAttempt(planType, outcome string) {
	renewalAttemptsTotal.WithLabelValues(planType, outcome).Inc()
}

// RecordCatchUp records how many extra periods a late payment renewed
func RecordCatchUp(periods int) {
	catchUpRenewals.Observe(float64(periods))
}

// RecordTransition records a service status change
func RecordTransition(from, to string) {
	serviceTransitionsTotal.WithLabelValues(from, to).Inc()
}

// RecordRenewalBatch records the duration of a renewal batch
func RecordRenewalBatch(durationSeconds float64) {
	renewalBatchDuration.Observe(durationSeconds)
}

// RecordLockContention counts a service skipped due to a held lock
func RecordLockContention() {
	serviceLockContentionTotal.Inc()
}

// RecordInvoiceRaised counts a newly created invoice
func RecordInvoiceRaised(kind string) {
	invoicesRaisedTotal.WithLabelValues(kind).Inc()
}

// RecordInvoicePayment records an invoice payment attempt
func RecordInvoicePayment(status string, amountCents int64, currency string) {
	invoicePaymentsTotal.WithLabelValues(status).Inc()

	// Only paid invoices count toward revenue
	if status == "paid" {
		subscriptionRevenueCents.WithLabelValues(currency).Add(float64(amountCents))
	}
}

// RecordGatewayCharge records a gateway charge call
func RecordGatewayCharge(status, responseCode string, durationSeconds float64) {
	gatewayChargesTotal.WithLabelValues(status, responseCode).Inc()
	gatewayChargeDuration.Observe(durationSeconds)
}

// SetCircuitBreakerState publishes a breaker state (0=closed, 1=half-open, 2=open)
func SetCircuitBreakerState(name string, state float64) {
	circuitBreakerState.WithLabelValues(name).Set(state)
}
