package notify

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"shopledger/internal/domain"
)

// Metrics counts ledger events by type and accumulates registered revenue.
type Metrics struct {
	events  *prometheus.CounterVec
	revenue prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shopledger_events_total",
				Help: "Committed ledger mutations by event type",
			},
			[]string{"type"},
		),
		revenue: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "shopledger_sale_revenue_total",
				Help: "Revenue of registered sales",
			},
		),
	}
	if reg != nil {
		reg.MustRegister(m.events, m.revenue)
	}
	return m
}

func (m *Metrics) Notify(_ context.Context, event domain.LedgerEvent) error {
	m.events.WithLabelValues(event.Type).Inc()
	if event.Type == domain.EventSaleRegistered && event.Revenue > 0 {
		m.revenue.Add(event.Revenue)
	}
	return nil
}
