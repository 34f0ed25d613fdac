package xemm

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"xemm-go/infrastructure/logger"
	"xemm-go/market"
	"xemm-go/metrics"
	"xemm-go/order"
	"xemm-go/venue"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// fixture wires a strategy over two paper venues trading ETH-USDT with a
// 0.01 price grid and a 0.0001 size grid.
type fixture struct {
	maker *venue.Paper
	taker *venue.Paper
	pair  *MarketPair
	strat *Strategy
	now   time.Time
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.MinProfitability = d("0.01")
	cfg.OrderAmount = d("1")
	return cfg
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()

	rules := venue.PairRules{
		Base:          "ETH",
		Quote:         "USDT",
		PriceQuantum:  d("0.01"),
		AmountQuantum: d("0.0001"),
	}
	maker := venue.NewPaper("makerx")
	maker.AddPair("ETH-USDT", rules)
	maker.SetBalance("ETH", d("10"), d("10"))
	maker.SetBalance("USDT", d("10000"), d("10000"))

	taker := venue.NewPaper("takerx")
	taker.AddPair("ETH-USDT", rules)
	taker.SetBalance("ETH", d("10"), d("10"))
	taker.SetBalance("USDT", d("10000"), d("10000"))

	pair := &MarketPair{
		Maker: Leg{Venue: maker, TradingPair: "ETH-USDT", Base: "ETH", Quote: "USDT"},
		Taker: Leg{Venue: taker, TradingPair: "ETH-USDT", Base: "ETH", Quote: "USDT"},
	}
	strat, err := New(cfg, []*MarketPair{pair}, nil, logger.Nop(), metrics.New())
	require.NoError(t, err)

	f := &fixture{
		maker: maker,
		taker: taker,
		pair:  pair,
		strat: strat,
		now:   time.Unix(1_700_000_000, 0),
	}
	f.setDefaultBooks()
	return f
}

// setDefaultBooks installs a maker market at 99/101 and a taker market at
// 99.5/100.5, ten base units deep on each taker side.
func (f *fixture) setDefaultBooks() {
	f.maker.Book("ETH-USDT").SetSnapshot(
		[]market.Level{{Price: d("99"), Amount: d("5")}},
		[]market.Level{{Price: d("101"), Amount: d("5")}},
		f.now)
	f.taker.Book("ETH-USDT").SetSnapshot(
		[]market.Level{{Price: d("99.5"), Amount: d("10")}},
		[]market.Level{{Price: d("100.5"), Amount: d("10")}},
		f.now)
}

func (f *fixture) setTakerBooks(bids, asks []market.Level) {
	f.taker.Book("ETH-USDT").SetSnapshot(bids, asks, f.now)
}

func (f *fixture) tick() {
	f.strat.Tick(f.now)
}

func (f *fixture) advance(by time.Duration) {
	f.now = f.now.Add(by)
}

func (f *fixture) restingBySide(side order.Side) (order.Request, bool) {
	for _, r := range f.maker.RestingOrders() {
		if r.Side == side {
			return r, true
		}
	}
	return order.Request{}, false
}
