package xemm

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"xemm-go/fx"
	"xemm-go/infrastructure/logger"
	"xemm-go/metrics"
	"xemm-go/order"
	"xemm-go/venue"
)

// Strategy is the cross-exchange market-making engine. It owns all mutable
// state and is driven from exactly one goroutine: Tick and the order event
// callbacks must be serialized by the caller (cmd/runner funnels venue
// events onto the ticker goroutine), which is why none of the strategy's
// own structures carry locks.
type Strategy struct {
	cfg   Config
	pairs []*MarketPair

	tracker     *order.Tracker
	pairTracker *PairTracker
	sampler     *Sampler
	sizer       *Sizer
	pricer      *Pricer
	hedger      *Hedger
	oracle      fx.Oracle

	log *logger.Logger
	met *metrics.Metrics

	// antiHysteresis holds, per pair handle, the earliest time the next
	// drift-triggered re-pricing may happen.
	antiHysteresis map[int]time.Time

	allReady         bool
	lastTimestamp    time.Time
	lastConnWarn     time.Time
	lastStatusReport time.Time
}

// New wires a strategy over the given pairs and installs it as the order
// event listener on every distinct venue involved.
func New(cfg Config, pairs []*MarketPair, oracle fx.Oracle, log *logger.Logger, met *metrics.Metrics) (*Strategy, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(pairs) == 0 {
		return nil, errors.New("at least one market pair is required")
	}
	if oracle == nil {
		oracle = fx.NewStaticOracle()
	}
	if log == nil {
		log = logger.Nop()
	}
	if met == nil {
		met = metrics.New()
	}

	for i, pair := range pairs {
		pair.handle = i
	}

	tracker := order.NewTracker()
	pairTracker := NewPairTracker()
	sampler := NewSampler(cfg.TopDepthTolerance)

	s := &Strategy{
		cfg:            cfg,
		pairs:          pairs,
		tracker:        tracker,
		pairTracker:    pairTracker,
		sampler:        sampler,
		oracle:         oracle,
		log:            log,
		met:            met,
		antiHysteresis: make(map[int]time.Time),
	}
	// Sub-components share the strategy's config instance so that tunable
	// updates applied through UpdateTunables reach them too.
	s.sizer = NewSizer(&s.cfg)
	s.pricer = NewPricer(&s.cfg, sampler, oracle)
	s.hedger = NewHedger(&s.cfg, tracker, pairTracker, log, met)

	seen := make(map[string]bool)
	for _, pair := range pairs {
		for _, v := range []venue.Venue{pair.Maker.Venue, pair.Taker.Venue} {
			if !seen[v.Name()] {
				seen[v.Name()] = true
				v.SetListener(s)
			}
		}
	}
	return s, nil
}

// Pairs returns the configured market pairs.
func (s *Strategy) Pairs() []*MarketPair { return s.pairs }

// Tunables are the parameters safe to change while the engine runs. They
// take effect on the next tick; resting orders are re-judged against the
// new values rather than canceled outright.
type Tunables struct {
	MinProfitability       decimal.Decimal
	OrderAmount            decimal.Decimal
	CancelOrderThreshold   decimal.Decimal
	AntiHysteresisDuration time.Duration
}

// UpdateTunables applies a validated tunable set. Must be called from the
// tick goroutine, like every other entry point.
func (s *Strategy) UpdateTunables(t Tunables) error {
	next := s.cfg
	next.MinProfitability = t.MinProfitability
	next.OrderAmount = t.OrderAmount
	next.CancelOrderThreshold = t.CancelOrderThreshold
	next.AntiHysteresisDuration = t.AntiHysteresisDuration
	if err := next.Validate(); err != nil {
		return err
	}
	s.cfg = next
	s.log.Sugar().Infow("tunables updated",
		"min_profitability", t.MinProfitability.String(),
		"order_amount", t.OrderAmount.String(),
		"cancel_order_threshold", t.CancelOrderThreshold.String(),
		"anti_hysteresis", t.AntiHysteresisDuration.String())
	return nil
}

// Tick runs one supervision round. It is cheap when venues are not ready:
// only the shadow maps are aged and a rate-limited warning is emitted.
func (s *Strategy) Tick(now time.Time) {
	start := time.Now()
	defer func() {
		s.met.ObserveTickDuration(time.Since(start).Seconds())
	}()

	s.tracker.CheckAndExpireShadow(now)
	s.pairTracker.CheckAndExpire(now)

	if !s.venuesReady() {
		s.allReady = false
		if now.Sub(s.lastConnWarn) >= s.cfg.StatusReportInterval {
			s.lastConnWarn = now
			s.log.Sugar().Warnw("venues not ready, trading paused")
		}
		s.lastTimestamp = now
		return
	}
	if !s.allReady {
		s.allReady = true
		s.log.Sugar().Infow("all venues ready, trading started")
	}

	s.sampler.MaybeSample(now, s.pairs)

	for _, pair := range s.pairs {
		s.runPair(pair, now)
	}

	s.maybeStatusReport(now)
	s.lastTimestamp = now
}

// runPair isolates one pair's round so a panic in its books or venue
// adapter cannot take down the other pairs.
func (s *Strategy) runPair(pair *MarketPair, now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Sugar().Errorw("pair round panicked",
				"pair", pair.String(), "panic", fmt.Sprint(r))
		}
	}()
	s.hedger.Drain(pair, now)
	s.processPair(pair, now)
}

func (s *Strategy) venuesReady() bool {
	for _, pair := range s.pairs {
		for _, leg := range []Leg{pair.Maker, pair.Taker} {
			if !leg.Venue.Ready() || leg.Venue.NetworkStatus() != venue.Connected {
				return false
			}
		}
	}
	return true
}

// placeOrder submits one maker limit order and registers it with both
// trackers. In passive-expiry mode the order carries the configured TTL.
func (s *Strategy) placeOrder(pair *MarketPair, side order.Side, price, qty decimal.Decimal, now time.Time) {
	var ttl time.Duration
	if !s.cfg.ActiveOrderCanceling {
		ttl = s.cfg.LimitOrderMinExpiration
	}
	id := order.NewClientID(side)
	req := order.Request{
		ClientID:    id,
		TradingPair: pair.Maker.TradingPair,
		Side:        side,
		Type:        order.Limit,
		Price:       price,
		Quantity:    qty,
		TTL:         ttl,
	}
	// Track before submitting so a fill reported during submission can be
	// attributed.
	s.tracker.StartTrackingLimit(&order.LimitOrder{
		ClientID:    id,
		TradingPair: pair.Maker.TradingPair,
		PairHandle:  pair.Handle(),
		Side:        side,
		Price:       price,
		Quantity:    qty,
		CreatedAt:   now,
		TTL:         ttl,
	})
	s.pairTracker.StartTracking(id, pair)

	var err error
	if side == order.Buy {
		_, err = pair.Maker.Venue.Buy(req)
	} else {
		_, err = pair.Maker.Venue.Sell(req)
	}
	if err != nil {
		s.tracker.Forget(id)
		s.pairTracker.Forget(id)
		s.log.LogError(err, map[string]interface{}{
			"pair": pair.String(), "side": string(side), "price": price.String(),
		})
		return
	}

	s.met.RecordOrderPlaced(pair.String(), string(side))
	if side == order.Buy {
		s.met.UpdateBidPrice(pair.String(), price.InexactFloat64())
	} else {
		s.met.UpdateAskPrice(pair.String(), price.InexactFloat64())
	}
	if s.cfg.LoggingOptions&LogCreateOrder != 0 {
		s.log.LogOrder("create_order", id, map[string]interface{}{
			"pair":     pair.String(),
			"side":     string(side),
			"price":    price.String(),
			"quantity": qty.String(),
		})
	}
}

// cancelOrder requests cancellation once; repeated calls for the same order
// are no-ops until the venue confirms.
func (s *Strategy) cancelOrder(pair *MarketPair, o *order.LimitOrder, reason string) {
	if s.tracker.HasInFlightCancel(o.ClientID) {
		return
	}
	if err := pair.Maker.Venue.Cancel(pair.Maker.TradingPair, o.ClientID); err != nil {
		s.log.LogError(err, map[string]interface{}{
			"pair": pair.String(), "order_id": o.ClientID, "reason": reason,
		})
		return
	}
	s.tracker.AddInFlightCancel(o.ClientID)
	s.met.RecordOrderCanceled(pair.String(), reason)
	if s.cfg.LoggingOptions&LogRemovingOrder != 0 {
		s.log.LogOrder("removing_order", o.ClientID, map[string]interface{}{
			"pair":   pair.String(),
			"side":   string(o.Side),
			"price":  o.Price.String(),
			"reason": reason,
		})
	}
}

// DidFillOrder buffers maker fills for hedging. Taker fills only settle
// balances on the venue side and need no action here; fills for unknown
// orders are logged and dropped.
func (s *Strategy) DidFillOrder(e order.FilledEvent) {
	if e.OrderType != order.Limit {
		return
	}
	pair := s.pairTracker.Lookup(e.OrderID)
	if pair == nil {
		s.log.Sugar().Warnw("fill for untracked order dropped", "order_id", e.OrderID)
		return
	}
	var snapshot order.LimitOrder
	if o, ok := s.tracker.GetLimitOrder(e.OrderID); ok {
		snapshot = *o
	}
	s.hedger.Record(pair, FillRecord{
		Side:      e.TradeType,
		Amount:    e.Amount,
		Price:     e.Price,
		Order:     snapshot,
		Timestamp: e.Timestamp,
	})
	s.met.RecordMakerFill(pair.String(), string(e.TradeType))
	if s.cfg.LoggingOptions&LogMakerOrderFilled != 0 {
		s.log.LogOrder("maker_order_filled", e.OrderID, map[string]interface{}{
			"pair":   pair.String(),
			"side":   string(e.TradeType),
			"price":  e.Price.String(),
			"amount": e.Amount.String(),
		})
	}
	// Hedge immediately; anything the drain cannot place stays buffered and
	// is retried on tick.
	s.hedger.Drain(pair, e.Timestamp)
}

func (s *Strategy) DidCompleteBuyOrder(e order.CompletedEvent) { s.completeOrder(e) }

func (s *Strategy) DidCompleteSellOrder(e order.CompletedEvent) { s.completeOrder(e) }

func (s *Strategy) completeOrder(e order.CompletedEvent) {
	switch e.OrderType {
	case order.Limit:
		s.tracker.StopTrackingLimit(e.OrderID, e.Timestamp)
	case order.Market:
		s.tracker.StopTrackingMarket(e.OrderID)
	}
	s.pairTracker.StopTracking(e.OrderID, e.Timestamp)
}

// DidCancelOrder retires a maker order once the venue confirms the cancel.
func (s *Strategy) DidCancelOrder(e order.CancelledEvent) {
	s.tracker.StopTrackingLimit(e.OrderID, e.Timestamp)
	s.pairTracker.StopTracking(e.OrderID, e.Timestamp)
}

func (s *Strategy) maybeStatusReport(now time.Time) {
	if s.cfg.LoggingOptions&LogStatusReport == 0 {
		return
	}
	if now.Sub(s.lastStatusReport) < s.cfg.StatusReportInterval {
		return
	}
	s.lastStatusReport = now
	s.log.Sugar().Infow("status_report", "status", s.FormatStatus())
}

// FormatStatus renders a human-readable snapshot of markets, balances and
// working orders, one table block per pair.
func (s *Strategy) FormatStatus() string {
	var sb strings.Builder
	for _, pair := range s.pairs {
		fmt.Fprintf(&sb, "\nMarkets: %s\n", pair.String())
		w := tabwriter.NewWriter(&sb, 0, 4, 2, ' ', 0)

		fmt.Fprintln(w, "  Role\tVenue\tPair\tStatus\tBid\tAsk")
		for _, row := range []struct {
			role string
			leg  Leg
		}{{"maker", pair.Maker}, {"taker", pair.Taker}} {
			status := row.leg.Venue.NetworkStatus().String()
			if !row.leg.Venue.Ready() {
				status += " (not ready)"
			}
			bid, okB := row.leg.Venue.Book(row.leg.TradingPair).BestBid()
			ask, okA := row.leg.Venue.Book(row.leg.TradingPair).BestAsk()
			fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%s\t%s\n",
				row.role, row.leg.Venue.Name(), row.leg.TradingPair, status,
				formatQuote(bid, okB), formatQuote(ask, okA))
		}
		w.Flush()

		if bid, ask, ok := s.sampler.SmoothedTop(pair); ok {
			fmt.Fprintf(&sb, "  Smoothed top: %s / %s (%d samples)\n",
				bid.String(), ask.String(), s.sampler.SampleCount(pair))
		}

		w = tabwriter.NewWriter(&sb, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "  Asset\tMaker total\tMaker avail\tTaker total\tTaker avail")
		for _, asset := range []string{pair.Maker.Base, pair.Maker.Quote} {
			fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%s\n", asset,
				pair.Maker.Venue.Balance(asset).String(),
				pair.Maker.Venue.AvailableBalance(asset).String(),
				pair.Taker.Venue.Balance(asset).String(),
				pair.Taker.Venue.AvailableBalance(asset).String())
		}
		w.Flush()

		orders := s.tracker.ActiveMakerOrdersForPair(pair.Handle())
		if len(orders) == 0 {
			sb.WriteString("  No active maker orders.\n")
		} else {
			w = tabwriter.NewWriter(&sb, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "  Side\tPrice\tQuantity\tEdge\tAge")
			for _, o := range orders {
				fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%s\n",
					string(o.Side), o.Price.String(), o.Quantity.String(),
					s.orderEdge(pair, o),
					s.lastTimestamp.Sub(o.CreatedAt).Truncate(time.Second))
			}
			w.Flush()
		}

		buy, sell := s.hedger.Pending(pair)
		if buy.IsPositive() || sell.IsPositive() {
			fmt.Fprintf(&sb, "  Pending hedge: buy %s, sell %s\n", buy.String(), sell.String())
		}
	}
	return sb.String()
}

// orderEdge is the order's current profitability against the taker book,
// for the status report.
func (s *Strategy) orderEdge(pair *MarketPair, o *order.LimitOrder) string {
	isBid := o.Side == order.Buy
	hedge, ok := s.pricer.EffectiveHedgingPrice(pair, isBid, o.Quantity)
	if !ok || !o.Price.IsPositive() || !hedge.IsPositive() {
		return "-"
	}
	var edge decimal.Decimal
	if isBid {
		edge = hedge.Div(o.Price).Sub(one)
	} else {
		edge = o.Price.Div(hedge).Sub(one)
	}
	return edge.Round(4).String()
}

func formatQuote(v decimal.Decimal, ok bool) string {
	if !ok {
		return "-"
	}
	return v.String()
}
