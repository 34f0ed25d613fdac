package xemm

import (
	"github.com/shopspring/decimal"

	"xemm-go/market"
)

// Sizer derives the quantity for a new maker order from the user override
// or the portfolio ratio cap, then clamps it by taker liquidity and the
// balances on both legs. A zero result means "do not place".
type Sizer struct {
	cfg *Config
}

func NewSizer(cfg *Config) *Sizer {
	return &Sizer{cfg: cfg}
}

// DesiredSize runs the sizing pipeline for one side of a pair.
func (s *Sizer) DesiredSize(pair *MarketPair, isBid bool) decimal.Decimal {
	base := s.baseSize(pair)
	base = pair.Maker.Venue.QuantizeOrderAmount(pair.Maker.TradingPair, base)
	if !base.IsPositive() {
		return decimal.Zero
	}

	size := s.sideCap(pair, isBid, base)
	size = pair.Maker.Venue.QuantizeOrderAmount(pair.Maker.TradingPair, size)
	if !size.IsPositive() {
		return decimal.Zero
	}
	return size
}

// baseSize is the user override when set, otherwise the portfolio-ratio cap
// over the maker leg's holdings valued at mid.
func (s *Sizer) baseSize(pair *MarketPair) decimal.Decimal {
	if s.cfg.OrderAmount.IsPositive() {
		return s.cfg.OrderAmount
	}
	mid, ok := pair.makerBook().Mid()
	if !ok || !mid.IsPositive() {
		return decimal.Zero
	}
	baseBal := pair.Maker.Venue.Balance(pair.Maker.Base)
	quoteBal := pair.Maker.Venue.Balance(pair.Maker.Quote)
	portfolio := baseBal.Add(quoteBal.Div(mid))
	return portfolio.Mul(s.cfg.OrderSizePortfolioRatioLimit)
}

// sideCap applies the side-specific liquidity and balance clamps.
func (s *Sizer) sideCap(pair *MarketPair, isBid bool, base decimal.Decimal) decimal.Decimal {
	takerBook := pair.takerBook()

	if isBid {
		// A filled maker bid is hedged by selling into the taker bids.
		vwap := takerVWAPOrTop(takerBook, false, base)
		if !vwap.IsPositive() {
			return decimal.Zero
		}
		makerQuote := pair.Maker.Venue.AvailableBalance(pair.Maker.Quote)
		takerBase := pair.Taker.Venue.AvailableBalance(pair.Taker.Base)
		size := decimal.Min(
			makerQuote.Div(vwap),
			takerBase.Mul(s.cfg.OrderSizeTakerBalanceFactor),
			base,
		)
		return s.clampToTakerVolume(size, takerBook, false)
	}

	// A filled maker ask is hedged by buying from the taker asks.
	vwap := takerVWAPOrTop(takerBook, true, base)
	if !vwap.IsPositive() {
		return decimal.Zero
	}
	makerBase := pair.Maker.Venue.AvailableBalance(pair.Maker.Base)
	takerQuote := pair.Taker.Venue.AvailableBalance(pair.Taker.Quote)
	size := decimal.Min(
		makerBase,
		takerQuote.Div(vwap).Mul(s.cfg.OrderSizeTakerBalanceFactor),
		base,
	)
	return s.clampToTakerVolume(size, takerBook, true)
}

// clampToTakerVolume bounds size by the configured fraction of the book
// volume the hedge would consume.
func (s *Sizer) clampToTakerVolume(size decimal.Decimal, book *market.Book, isBuy bool) decimal.Decimal {
	if !s.cfg.OrderSizeTakerVolumeFactor.IsPositive() {
		return size
	}
	depth := book.TotalVolume(isBuy)
	if !depth.IsPositive() {
		return size
	}
	return decimal.Min(size, depth.Mul(s.cfg.OrderSizeTakerVolumeFactor))
}

// takerVWAPOrTop returns the VWAP for the given volume, falling back to the
// top quote when the walk cannot be priced, and zero on a bare side.
func takerVWAPOrTop(book *market.Book, isBuy bool, volume decimal.Decimal) decimal.Decimal {
	vwap, err := book.VWAPForVolume(isBuy, volume)
	if err == nil {
		return vwap
	}
	var top decimal.Decimal
	var ok bool
	if isBuy {
		top, ok = book.BestAsk()
	} else {
		top, ok = book.BestBid()
	}
	if !ok {
		return decimal.Zero
	}
	return top
}
