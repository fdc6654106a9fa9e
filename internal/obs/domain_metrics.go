package obs

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// SaleValidationTotal counts submission validation outcomes by reason.
	SaleValidationTotal *prometheus.CounterVec
	// SaleSubmissionTotal counts sale create/update submissions by outcome.
	SaleSubmissionTotal *prometheus.CounterVec
	// PaymentSubmissionTotal counts payment recording outcomes.
	PaymentSubmissionTotal *prometheus.CounterVec
	// StockClampTotal counts quantities clamped down to the stock ceiling.
	StockClampTotal prometheus.Counter
	// BackendRequestLatency records backend round-trip latency in milliseconds.
	BackendRequestLatency *prometheus.HistogramVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		SaleValidationTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sale_validation_total",
			Help:      "Count of sale validation outcomes by result.",
		}, []string{"result"})
		SaleSubmissionTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sale_submission_total",
			Help:      "Count of sale submissions by kind and result.",
		}, []string{"kind", "result"})
		PaymentSubmissionTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_submission_total",
			Help:      "Count of payment submissions by result.",
		}, []string{"result"})
		StockClampTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_clamp_total",
			Help:      "Number of line item quantities clamped to available stock.",
		})
		BackendRequestLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_request_duration_ms",
			Help:      "Latency of storefront backend calls in milliseconds.",
			Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"operation", "result"})

		mustRegisterCollector(reg, SaleValidationTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				SaleValidationTotal = v
			}
		})
		mustRegisterCollector(reg, SaleSubmissionTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				SaleSubmissionTotal = v
			}
		})
		mustRegisterCollector(reg, PaymentSubmissionTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				PaymentSubmissionTotal = v
			}
		})
		mustRegisterCollector(reg, StockClampTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				StockClampTotal = v
			}
		})
		mustRegisterCollector(reg, BackendRequestLatency, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.HistogramVec); ok {
				BackendRequestLatency = v
			}
		})
	})
}

// IncSaleValidation records a validation outcome when domain metrics are registered.
func IncSaleValidation(result string) {
	if SaleValidationTotal != nil {
		SaleValidationTotal.WithLabelValues(result).Inc()
	}
}

// IncSaleSubmission records a sale submission outcome.
func IncSaleSubmission(kind, result string) {
	if SaleSubmissionTotal != nil {
		SaleSubmissionTotal.WithLabelValues(kind, result).Inc()
	}
}

// IncPaymentSubmission records a payment submission outcome.
func IncPaymentSubmission(result string) {
	if PaymentSubmissionTotal != nil {
		PaymentSubmissionTotal.WithLabelValues(result).Inc()
	}
}

// AddStockClamps records n clamped quantities.
func AddStockClamps(n int) {
	if StockClampTotal != nil && n > 0 {
		StockClampTotal.Add(float64(n))
	}
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}

// ObserveBackend records one backend call duration.
func ObserveBackend(operation, result string, elapsed time.Duration) {
	if BackendRequestLatency != nil {
		BackendRequestLatency.WithLabelValues(operation, result).Observe(float64(elapsed.Milliseconds()))
	}
}
