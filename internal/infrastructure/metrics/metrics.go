package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// OrderMetrics covers the order and saved-card lifecycle.
type OrderMetrics struct {
	OrdersCompletedTotal       prometheus.Counter
	OrdersCompletedAmountTotal prometheus.Counter
	OrderCompletionDuration    prometheus.Histogram
	OrderErrorsTotal           prometheus.CounterVec

	CardsSavedTotal         prometheus.CounterVec
	CardsDeletedTotal       prometheus.Counter
	DefaultReassignedTotal  prometheus.Counter
	DefaultRepairedTotal    prometheus.Counter
	ProductRepairTasksTotal prometheus.CounterVec
}

func NewOrderMetrics() *OrderMetrics {
	return &OrderMetrics{
		OrdersCompletedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "orders_completed_total",
				Help: "Orders finalized from a pending order",
			},
		),

		OrdersCompletedAmountTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "orders_completed_amount_total",
				Help: "Total amount of finalized orders",
			},
		),

		OrderCompletionDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "order_completion_duration_seconds",
				Help:    "Duration of the pending-to-order transition",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
			},
		),

		OrderErrorsTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "order_errors_total",
				Help: "Order completion failures by type",
			},
			[]string{"error_type"},
		),

		CardsSavedTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cards_saved_total",
				Help: "Saved cards, split by whether the card became default",
			},
			[]string{"first_card"},
		),

		CardsDeletedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "cards_deleted_total",
				Help: "Soft-deleted cards",
			},
		),

		DefaultReassignedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "card_default_reassigned_total",
				Help: "Explicit default card reassignments",
			},
		),

		DefaultRepairedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "card_default_repaired_total",
				Help: "Opportunistic repairs of the single-default invariant",
			},
		),

		ProductRepairTasksTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "product_repair_tasks_total",
				Help: "Product status repair outcomes",
			},
			[]string{"result"},
		),
	}
}

func (m *OrderMetrics) RecordOrderCompleted(totalAmount float64) {
	m.OrdersCompletedTotal.Inc()
	m.OrdersCompletedAmountTotal.Add(totalAmount)
}

func (m *OrderMetrics) RecordOrderCompletionDuration(durationSeconds float64) {
	m.OrderCompletionDuration.Observe(durationSeconds)
}

func (m *OrderMetrics) RecordOrderError(errorType string) {
	m.OrderErrorsTotal.WithLabelValues(errorType).Inc()
}

func (m *OrderMetrics) RecordCardSaved(firstCard bool) {
	m.CardsSavedTotal.WithLabelValues(strconv.FormatBool(firstCard)).Inc()
}

func (m *OrderMetrics) RecordCardDeleted() {
	m.CardsDeletedTotal.Inc()
}

func (m *OrderMetrics) RecordDefaultReassigned() {
	m.DefaultReassignedTotal.Inc()
}

func (m *OrderMetrics) RecordDefaultRepaired() {
	m.DefaultRepairedTotal.Inc()
}

func (m *OrderMetrics) RecordProductRepair(result string) {
	m.ProductRepairTasksTotal.WithLabelValues(result).Inc()
}
