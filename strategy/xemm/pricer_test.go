package xemm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xemm-go/fx"
	"xemm-go/market"
)

func TestMakerPriceFromHedgingCost(t *testing.T) {
	f := newFixture(t, testConfig())

	// Bid: hedged at the taker bid 99.5, discounted by 1% profitability and
	// floored onto the 0.01 grid.
	bid, ok := f.strat.pricer.MakerPrice(f.pair, true, d("1"))
	require.True(t, ok)
	assert.Equal(t, "98.51", bid.String())

	// Ask: hedged at the taker ask 100.5, marked up and ceiled.
	ask, ok := f.strat.pricer.MakerPrice(f.pair, false, d("1"))
	require.True(t, ok)
	assert.Equal(t, "101.51", ask.String())
}

func TestMakerPriceVWAPAcrossLevels(t *testing.T) {
	f := newFixture(t, testConfig())
	f.setTakerBooks(
		[]market.Level{{Price: d("99.5"), Amount: d("1")}, {Price: d("99"), Amount: d("9")}},
		[]market.Level{{Price: d("100.5"), Amount: d("10")}},
	)

	// Hedging 2 sells 1@99.5 and 1@99: VWAP 99.25.
	hedge, ok := f.strat.pricer.EffectiveHedgingPrice(f.pair, true, d("2"))
	require.True(t, ok)
	assert.Equal(t, "99.25", hedge.String())
}

func TestMakerPriceTopOfBookClamp(t *testing.T) {
	cfg := testConfig()
	cfg.AdjustOrderEnabled = true
	f := newFixture(t, cfg)

	// With the maker bid at 98 the raw bid of 98.51 would jump the queue by
	// half a unit; the clamp holds it one tick inside.
	f.maker.Book("ETH-USDT").SetSnapshot(
		[]market.Level{{Price: d("98"), Amount: d("5")}},
		[]market.Level{{Price: d("102"), Amount: d("5")}},
		f.now)

	bid, ok := f.strat.pricer.MakerPrice(f.pair, true, d("1"))
	require.True(t, ok)
	assert.Equal(t, "98.01", bid.String())

	// The ask clamp works the other way: it keeps the quote from improving
	// past one tick inside the resting ask even when profitability allows.
	ask, ok := f.strat.pricer.MakerPrice(f.pair, false, d("1"))
	require.True(t, ok)
	assert.Equal(t, "101.99", ask.String())
}

func TestMakerPriceEmptyTakerBook(t *testing.T) {
	f := newFixture(t, testConfig())
	f.setTakerBooks(nil, nil)

	_, ok := f.strat.pricer.MakerPrice(f.pair, true, d("1"))
	assert.False(t, ok)
	_, ok = f.strat.pricer.MakerPrice(f.pair, false, d("1"))
	assert.False(t, ok)
}

func TestHedgingPriceCrossCurrency(t *testing.T) {
	cfg := testConfig()
	f := newFixture(t, cfg)
	// Maker leg settles in USDC while the taker leg stays on USDT.
	f.pair.Maker.Quote = "USDC"

	oracle := fx.NewStaticOracle()
	oracle.SetRate("USDT", "USDC", d("1.001"))
	pricer := NewPricer(&cfg, f.strat.sampler, oracle)

	f.setTakerBooks(
		[]market.Level{{Price: d("100"), Amount: d("10")}},
		[]market.Level{{Price: d("100"), Amount: d("10")}},
	)

	hedge, ok := pricer.EffectiveHedgingPrice(f.pair, true, d("1"))
	require.True(t, ok)
	assert.Equal(t, "100.1", hedge.String())
}
