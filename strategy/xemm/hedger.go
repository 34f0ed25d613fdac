package xemm

import (
	"time"

	"github.com/shopspring/decimal"

	"xemm-go/infrastructure/logger"
	"xemm-go/metrics"
	"xemm-go/order"
)

// FillRecord is one maker fill awaiting its taker-side offset.
type FillRecord struct {
	Side      order.Side
	Amount    decimal.Decimal
	Price     decimal.Decimal
	Order     order.LimitOrder // snapshot of the filled maker order
	Timestamp time.Time
}

// Hedger buffers maker fills per pair and drains each bucket into one taker
// market order. A bucket is cleared only after the venue accepts the hedge;
// rejections leave the fills queued so the next tick retries. There is no
// partial drain: the full aggregated quantity is hedged or nothing is.
type Hedger struct {
	cfg         *Config
	tracker     *order.Tracker
	pairTracker *PairTracker
	log         *logger.Logger
	met         *metrics.Metrics

	pendingBuy  map[int][]FillRecord
	pendingSell map[int][]FillRecord
}

func NewHedger(cfg *Config, tracker *order.Tracker, pairTracker *PairTracker, log *logger.Logger, met *metrics.Metrics) *Hedger {
	return &Hedger{
		cfg:         cfg,
		tracker:     tracker,
		pairTracker: pairTracker,
		log:         log,
		met:         met,
		pendingBuy:  make(map[int][]FillRecord),
		pendingSell: make(map[int][]FillRecord),
	}
}

// Record buffers one maker fill into the side-appropriate bucket.
func (h *Hedger) Record(pair *MarketPair, rec FillRecord) {
	handle := pair.Handle()
	if rec.Side == order.Buy {
		h.pendingBuy[handle] = append(h.pendingBuy[handle], rec)
	} else {
		h.pendingSell[handle] = append(h.pendingSell[handle], rec)
	}
	h.updatePendingMetric(pair)
}

// Pending sums the buffered fill quantity per side for a pair.
func (h *Hedger) Pending(pair *MarketPair) (buy, sell decimal.Decimal) {
	for _, rec := range h.pendingBuy[pair.Handle()] {
		buy = buy.Add(rec.Amount)
	}
	for _, rec := range h.pendingSell[pair.Handle()] {
		sell = sell.Add(rec.Amount)
	}
	return buy, sell
}

// Drain turns each non-empty bucket into a taker market order.
func (h *Hedger) Drain(pair *MarketPair, now time.Time) {
	h.drainBuys(pair, now)
	h.drainSells(pair, now)
	h.updatePendingMetric(pair)
}

// drainBuys offsets maker buy fills with a taker sell.
func (h *Hedger) drainBuys(pair *MarketPair, now time.Time) {
	handle := pair.Handle()
	bucket := h.pendingBuy[handle]
	if len(bucket) == 0 {
		return
	}
	total := decimal.Zero
	for _, rec := range bucket {
		total = total.Add(rec.Amount)
	}
	taker := pair.Taker
	available := taker.Venue.AvailableBalance(taker.Base).Mul(h.cfg.OrderSizeTakerBalanceFactor)
	hedge := taker.Venue.QuantizeOrderAmount(taker.TradingPair, decimal.Min(total, available))
	if !hedge.IsPositive() {
		return
	}
	// Track before submitting: the venue may deliver the completion event
	// synchronously, and it must find the order registered.
	id := order.NewClientID(order.Sell)
	h.tracker.StartTrackingMarket(&order.MarketOrder{
		ClientID:    id,
		TradingPair: taker.TradingPair,
		PairHandle:  handle,
		Side:        order.Sell,
		Quantity:    hedge,
		CreatedAt:   now,
	})
	h.pairTracker.StartTracking(id, pair)
	if _, err := taker.Venue.Sell(order.Request{
		ClientID:    id,
		TradingPair: taker.TradingPair,
		Type:        order.Market,
		Quantity:    hedge,
	}); err != nil {
		h.tracker.Forget(id)
		h.pairTracker.Forget(id)
		h.met.RecordHedgeFailure(pair.String(), string(order.Sell))
		h.log.LogError(err, map[string]interface{}{"pair": pair.String(), "hedge": hedge.String()})
		return
	}
	delete(h.pendingBuy, handle)
	h.met.RecordHedgePlaced(pair.String(), string(order.Sell))
	if h.cfg.LoggingOptions&LogMakerOrderHedged != 0 {
		h.log.LogHedge("maker_order_hedged", map[string]interface{}{
			"pair":     pair.String(),
			"side":     "SELL",
			"filled":   total.String(),
			"hedged":   hedge.String(),
			"order_id": id,
		})
	}
}

// drainSells offsets maker sell fills with a taker buy.
func (h *Hedger) drainSells(pair *MarketPair, now time.Time) {
	handle := pair.Handle()
	bucket := h.pendingSell[handle]
	if len(bucket) == 0 {
		return
	}
	total := decimal.Zero
	for _, rec := range bucket {
		total = total.Add(rec.Amount)
	}
	taker := pair.Taker
	vwap := takerVWAPOrTop(pair.takerBook(), true, total)
	if !vwap.IsPositive() {
		return
	}
	affordable := taker.Venue.AvailableBalance(taker.Quote).Div(vwap).Mul(h.cfg.OrderSizeTakerBalanceFactor)
	hedge := taker.Venue.QuantizeOrderAmount(taker.TradingPair, decimal.Min(total, affordable))
	if !hedge.IsPositive() {
		return
	}
	id := order.NewClientID(order.Buy)
	h.tracker.StartTrackingMarket(&order.MarketOrder{
		ClientID:    id,
		TradingPair: taker.TradingPair,
		PairHandle:  handle,
		Side:        order.Buy,
		Quantity:    hedge,
		CreatedAt:   now,
	})
	h.pairTracker.StartTracking(id, pair)
	if _, err := taker.Venue.Buy(order.Request{
		ClientID:    id,
		TradingPair: taker.TradingPair,
		Type:        order.Market,
		Quantity:    hedge,
	}); err != nil {
		h.tracker.Forget(id)
		h.pairTracker.Forget(id)
		h.met.RecordHedgeFailure(pair.String(), string(order.Buy))
		h.log.LogError(err, map[string]interface{}{"pair": pair.String(), "hedge": hedge.String()})
		return
	}
	delete(h.pendingSell, handle)
	h.met.RecordHedgePlaced(pair.String(), string(order.Buy))
	if h.cfg.LoggingOptions&LogMakerOrderHedged != 0 {
		h.log.LogHedge("maker_order_hedged", map[string]interface{}{
			"pair":     pair.String(),
			"side":     "BUY",
			"filled":   total.String(),
			"hedged":   hedge.String(),
			"order_id": id,
		})
	}
}

func (h *Hedger) updatePendingMetric(pair *MarketPair) {
	buy, sell := h.Pending(pair)
	h.met.UpdatePendingHedge(pair.String(), string(order.Buy), buy.InexactFloat64())
	h.met.UpdatePendingHedge(pair.String(), string(order.Sell), sell.InexactFloat64())
}
