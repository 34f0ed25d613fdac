// Package metrics provides Prometheus metrics for the XEMM engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects the engine's Prometheus instruments on a private registry
// so that multiple instances can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	ordersPlaced   *prometheus.CounterVec
	ordersCanceled *prometheus.CounterVec
	makerFills     *prometheus.CounterVec
	hedgesPlaced   *prometheus.CounterVec
	hedgeFailures  *prometheus.CounterVec
	pendingHedge   *prometheus.GaugeVec

	bidPrice     *prometheus.GaugeVec
	askPrice     *prometheus.GaugeVec
	hedgingPrice *prometheus.GaugeVec

	tickDuration prometheus.Histogram
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ordersPlaced: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "xemm",
			Name:      "maker_orders_placed_total",
			Help:      "Maker limit orders placed",
		}, []string{"pair", "side"}),
		ordersCanceled: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "xemm",
			Name:      "maker_orders_canceled_total",
			Help:      "Maker limit order cancels requested, by reason",
		}, []string{"pair", "reason"}),
		makerFills: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "xemm",
			Name:      "maker_fills_total",
			Help:      "Maker fill events buffered for hedging",
		}, []string{"pair", "side"}),
		hedgesPlaced: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "xemm",
			Name:      "taker_hedges_total",
			Help:      "Taker market orders submitted to offset maker fills",
		}, []string{"pair", "side"}),
		hedgeFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "xemm",
			Name:      "taker_hedge_failures_total",
			Help:      "Taker hedge submissions rejected by the venue",
		}, []string{"pair", "side"}),
		pendingHedge: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "xemm",
			Name:      "pending_hedge_base",
			Help:      "Unhedged maker fill quantity awaiting drain, base units",
		}, []string{"pair", "side"}),
		bidPrice: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "xemm",
			Name:      "maker_bid_price",
			Help:      "Last emitted maker bid price",
		}, []string{"pair"}),
		askPrice: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "xemm",
			Name:      "maker_ask_price",
			Help:      "Last emitted maker ask price",
		}, []string{"pair"}),
		hedgingPrice: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "xemm",
			Name:      "effective_hedging_price",
			Help:      "Taker VWAP in maker quote units, by side",
		}, []string{"pair", "side"}),
		tickDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "xemm",
			Name:      "tick_duration_seconds",
			Help:      "Wall time spent inside one clock tick",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),
	}
}

func (m *Metrics) RecordOrderPlaced(pair, side string) {
	m.ordersPlaced.WithLabelValues(pair, side).Inc()
}

func (m *Metrics) RecordOrderCanceled(pair, reason string) {
	m.ordersCanceled.WithLabelValues(pair, reason).Inc()
}

func (m *Metrics) RecordMakerFill(pair, side string) {
	m.makerFills.WithLabelValues(pair, side).Inc()
}

func (m *Metrics) RecordHedgePlaced(pair, side string) {
	m.hedgesPlaced.WithLabelValues(pair, side).Inc()
}

func (m *Metrics) RecordHedgeFailure(pair, side string) {
	m.hedgeFailures.WithLabelValues(pair, side).Inc()
}

func (m *Metrics) UpdatePendingHedge(pair, side string, amount float64) {
	m.pendingHedge.WithLabelValues(pair, side).Set(amount)
}

func (m *Metrics) UpdateBidPrice(pair string, price float64) {
	m.bidPrice.WithLabelValues(pair).Set(price)
}

func (m *Metrics) UpdateAskPrice(pair string, price float64) {
	m.askPrice.WithLabelValues(pair).Set(price)
}

func (m *Metrics) UpdateHedgingPrice(pair, side string, price float64) {
	m.hedgingPrice.WithLabelValues(pair, side).Set(price)
}

func (m *Metrics) ObserveTickDuration(seconds float64) {
	m.tickDuration.Observe(seconds)
}

// Handler returns the HTTP handler exposing this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
