package xemm

import (
	"github.com/shopspring/decimal"

	"xemm-go/fx"
	"xemm-go/order"
)

// Pricer turns the taker-side hedging cost into a tick-aligned maker price.
// All prices it emits are exact multiples of the maker venue's price
// quantum; quantization always rounds in the profitable direction.
type Pricer struct {
	cfg     *Config
	sampler *Sampler
	oracle  fx.Oracle
}

func NewPricer(cfg *Config, sampler *Sampler, oracle fx.Oracle) *Pricer {
	return &Pricer{cfg: cfg, sampler: sampler, oracle: oracle}
}

// EffectiveHedgingPrice is the taker VWAP for hedging the given size,
// converted into maker quote units. ok is false when the taker book cannot
// absorb any size at all, which callers treat as "cannot hedge".
func (p *Pricer) EffectiveHedgingPrice(pair *MarketPair, isBid bool, size decimal.Decimal) (decimal.Decimal, bool) {
	// A maker bid is offset by selling into the taker bids; a maker ask by
	// buying from the taker asks.
	vwap, err := pair.takerBook().VWAPForVolume(!isBid, size)
	if err != nil {
		return decimal.Zero, false
	}
	if pair.Maker.Quote != pair.Taker.Quote {
		vwap = p.oracle.ConvertTokenValue(vwap, pair.Taker.Quote, pair.Maker.Quote)
	}
	return vwap, true
}

// MakerPrice prices a new maker order of the given size. ok is false when
// the taker book is empty (no hedge exists at any price) or the result
// would not be positive.
func (p *Pricer) MakerPrice(pair *MarketPair, isBid bool, size decimal.Decimal) (decimal.Decimal, bool) {
	hedge, ok := p.EffectiveHedgingPrice(pair, isBid, size)
	if !ok {
		return decimal.Zero, false
	}
	quantum := pair.Maker.Venue.OrderPriceQuantum(pair.Maker.TradingPair, hedge)
	topBid, topAsk, haveTop := p.sampler.SmoothedTop(pair)

	if isBid {
		raw := hedge.Div(one.Add(p.cfg.MinProfitability))
		if p.cfg.AdjustOrderEnabled && haveTop {
			raw = decimal.Min(raw, topBid.Add(quantum))
		}
		price := order.QuantizeFloor(raw, quantum)
		if !price.IsPositive() {
			return decimal.Zero, false
		}
		return price, true
	}

	raw := hedge.Mul(one.Add(p.cfg.MinProfitability))
	if p.cfg.AdjustOrderEnabled && haveTop {
		// Deliberately a max: when profitability implies an ask tighter
		// than the market, refuse to improve past one tick inside.
		raw = decimal.Max(raw, topAsk.Sub(quantum))
	}
	price := order.QuantizeCeil(raw, quantum)
	if !price.IsPositive() {
		return decimal.Zero, false
	}
	return price, true
}
