package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ledger metrics
	ledgerEntriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_entries_total",
		Help: "Total number of ledger entries applied",
	}, []string{
		"type",     // credit, debit
		"category", // transfer, bill_payment, card_funding, ...
		"result",   // applied, replayed, rejected
	})

	ledgerAmountKobo = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_amount_kobo_total",
		Help: "Total amount moved through the ledger in kobo",
	}, []string{
		"type",
		"category",
	})

	// Vendor gateway metrics
	vendorCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vendor_calls_total",
		Help: "Total calls to the banking vendor",
	}, []string{
		"product", // wallet, cards, bills
		"call",
		"outcome", // succeeded, pending, failed, error
	})

	vendorCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vendor_call_duration_seconds",
		Help:    "Duration of banking vendor calls",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{
		"product",
		"call",
	})

	// Settlement metrics
	settlementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "settlements_total",
		Help: "Total pending settlement transitions",
	}, []string{
		"kind",   // card_funding, bill_payment, external_transfer, card_order
		"status", // completed, failed
		"via",    // webhook, reconciler
	})

	// Reconciliation metrics
	balanceDriftTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "balance_drift_detected_total",
		Help: "Accounts found where balance != sum of ledger deltas",
	}, []string{
		"direction", // over, under
	})

	stalePendingGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "stale_pending_settlements",
		Help: "Pending settlements older than the reconciler threshold",
	})

	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{
		"method",
		"route",
		"status",
	})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{
		"method",
		"route",
	})
)

// RecordLedgerEntry records one ledger mutation attempt.
// result is "applied" for a fresh mutation, "replayed" for an idempotent
// replay and "rejected" for a refused mutation (e.g. insufficient funds).
func RecordLedgerEntry(entryType, category, result string, amountKobo int64) {
	ledgerEntriesTotal.WithLabelValues(entryType, category, result).Inc()
	if result == "applied" {
		ledgerAmountKobo.WithLabelValues(entryType, category).Add(float64(amountKobo))
	}
}

// RecordVendorCall records a banking vendor call and its normalized outcome.
func RecordVendorCall(product, call, outcome string, duration float64) {
	vendorCallsTotal.WithLabelValues(product, call, outcome).Inc()
	vendorCallDuration.WithLabelValues(product, call).Observe(duration)
}

// RecordSettlement records a pending settlement reaching a final state.
func RecordSettlement(kind, status, via string) {
	settlementsTotal.WithLabelValues(kind, status, via).Inc()
}

// RecordBalanceDrift records a detected ledger/balance mismatch.
func RecordBalanceDrift(direction string) {
	balanceDriftTotal.WithLabelValues(direction).Inc()
}

// SetStalePendingSettlements updates the stale pending settlement gauge.
func SetStalePendingSettlements(count float64) {
	stalePendingGauge.Set(count)
}

// RecordHTTPRequest records one served HTTP request.
func RecordHTTPRequest(method, route, status string, duration float64) {
	httpRequestsTotal.WithLabelValues(method, route, status).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(duration)
}
