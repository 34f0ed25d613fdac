package xemm

import (
	"time"

	"github.com/shopspring/decimal"

	"xemm-go/order"
)

// processPair runs one supervision round for a pair: every active maker
// order is re-checked against the taker book, then missing sides are
// re-quoted. An order awaiting cancellation still counts against its side,
// so a pair never carries more than one bid and one ask.
func (s *Strategy) processPair(pair *MarketPair, now time.Time) {
	haveBid, haveAsk := false, false
	for _, o := range s.tracker.ActiveMakerOrdersForPair(pair.Handle()) {
		if o.Side == order.Buy {
			haveBid = true
		} else {
			haveAsk = true
		}
		if s.tracker.HasInFlightCancel(o.ClientID) {
			continue
		}
		s.superviseOrder(pair, o, now)
	}

	// While a hedge is in flight the balances it will consume are not yet
	// settled, so hold off on fresh quotes.
	if len(s.tracker.TakerOrdersForPair(pair.Handle())) > 0 {
		return
	}

	if !haveBid {
		s.createOrder(pair, order.Buy, now)
	}
	if !haveAsk {
		s.createOrder(pair, order.Sell, now)
	}
}

// superviseOrder decides whether a resting order survives this round. The
// checks run cheapest-exit first: profitability, then hedge coverage, then
// price drift. In passive-expiry mode only the profitability check applies;
// the order's TTL handles everything else.
func (s *Strategy) superviseOrder(pair *MarketPair, o *order.LimitOrder, now time.Time) {
	isBid := o.Side == order.Buy

	hedge, ok := s.pricer.EffectiveHedgingPrice(pair, isBid, o.Quantity)
	if !ok {
		s.cancelOrder(pair, o, "no_hedge")
		return
	}
	s.met.UpdateHedgingPrice(pair.String(), string(o.Side), hedge.InexactFloat64())

	bound := one.Add(s.cfg.threshold())
	if isBid {
		if hedge.LessThan(o.Price.Mul(bound)) {
			s.cancelOrder(pair, o, "unprofitable")
			return
		}
	} else {
		if o.Price.LessThan(hedge.Mul(bound)) {
			s.cancelOrder(pair, o, "unprofitable")
			return
		}
	}

	if !s.cfg.ActiveOrderCanceling {
		return
	}

	if o.Quantity.GreaterThan(s.coverageLimit(pair, o.Price, isBid)) {
		s.cancelOrder(pair, o, "insufficient_balance")
		return
	}

	// Drift re-pricing is rate-limited per pair so a quote is not churned
	// every tick while the books oscillate.
	if deadline, gated := s.antiHysteresis[pair.Handle()]; gated && now.Before(deadline) {
		return
	}
	want, ok := s.pricer.MakerPrice(pair, isBid, o.Quantity)
	if !ok {
		return
	}
	if !want.Equal(o.Price) {
		if s.cfg.LoggingOptions&LogAdjustOrder != 0 {
			s.log.LogOrder("adjust_order", o.ClientID, map[string]interface{}{
				"pair":       pair.String(),
				"side":       string(o.Side),
				"old_price":  o.Price.String(),
				"want_price": want.String(),
			})
		}
		s.cancelOrder(pair, o, "drift")
		s.antiHysteresis[pair.Handle()] = now.Add(s.cfg.AntiHysteresisDuration)
	}
}

// coverageLimit is the largest maker order the current balances can both
// fund and hedge, snapped onto the maker size grid.
func (s *Strategy) coverageLimit(pair *MarketPair, price decimal.Decimal, isBid bool) decimal.Decimal {
	if !price.IsPositive() {
		return decimal.Zero
	}
	var limit decimal.Decimal
	if isBid {
		// The bid locks maker quote; its fill is hedged with taker base.
		limit = decimal.Min(
			pair.Taker.Venue.AvailableBalance(pair.Taker.Base),
			pair.Maker.Venue.AvailableBalance(pair.Maker.Quote).Div(price),
		)
	} else {
		// The ask locks maker base; its fill is hedged with taker quote.
		limit = decimal.Min(
			pair.Maker.Venue.AvailableBalance(pair.Maker.Base),
			pair.Taker.Venue.AvailableBalance(pair.Taker.Quote).Div(price),
		)
	}
	return pair.Maker.Venue.QuantizeOrderAmount(pair.Maker.TradingPair, limit)
}

// createOrder sizes, prices and places one side of the pair's quote.
func (s *Strategy) createOrder(pair *MarketPair, side order.Side, now time.Time) {
	isBid := side == order.Buy

	size := s.sizer.DesiredSize(pair, isBid)
	if !size.IsPositive() {
		if s.cfg.LoggingOptions&LogNullOrderSize != 0 {
			s.log.Sugar().Debugw("null_order_size", "pair", pair.String(), "side", string(side))
		}
		return
	}
	price, ok := s.pricer.MakerPrice(pair, isBid, size)
	if !ok || !price.IsPositive() {
		return
	}
	s.placeOrder(pair, side, price, size, now)
}
