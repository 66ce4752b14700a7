package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type BondMetrics struct {
	operations   *prometheus.CounterVec
	bondPriceUSD prometheus.Gauge
	totalDebt    prometheus.Gauge
	eventsTotal  *prometheus.CounterVec
}

var (
	bondOnce     sync.Once
	bondRegistry *BondMetrics
)

func Bond() *BondMetrics {
	bondOnce.Do(func() {
		bondRegistry = &BondMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "bondvault_operations_total",
				Help: "Count of engine operations by method and result.",
			}, []string{"method", "result"}),
			bondPriceUSD: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "bondvault_bond_price_usd",
				Help: "Last observed bond price in 6-decimal USD fixed point.",
			}),
			totalDebt: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "bondvault_total_debt",
				Help: "Outstanding bond debt in reward token base units.",
			}),
			eventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "bondvault_events_total",
				Help: "Count of emitted engine events by type.",
			}, []string{"type"}),
		}
		prometheus.MustRegister(
			bondRegistry.operations,
			bondRegistry.bondPriceUSD,
			bondRegistry.totalDebt,
			bondRegistry.eventsTotal,
		)
	})
	return bondRegistry
}

// ObserveOperation records one engine operation outcome.
func (m *BondMetrics) ObserveOperation(method, result string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(method, result).Inc()
}

// SetBondPrice records the latest bond price.
func (m *BondMetrics) SetBondPrice(priceUSD float64) {
	if m == nil {
		return
	}
	m.bondPriceUSD.Set(priceUSD)
}

// SetTotalDebt records the latest outstanding debt.
func (m *BondMetrics) SetTotalDebt(debt float64) {
	if m == nil {
		return
	}
	m.totalDebt.Set(debt)
}

// ObserveEvent records one emitted event.
func (m *BondMetrics) ObserveEvent(eventType string) {
	if m == nil {
		return
	}
	m.eventsTotal.WithLabelValues(eventType).Inc()
}
