package xemm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xemm-go/market"
)

func setMakerTop(f *fixture, bid, ask string) {
	f.maker.Book("ETH-USDT").SetSnapshot(
		[]market.Level{{Price: d(bid), Amount: d("5")}},
		[]market.Level{{Price: d(ask), Amount: d("5")}},
		f.now)
}

func TestSamplerOnePerSlot(t *testing.T) {
	f := newFixture(t, testConfig())
	s := f.strat.sampler
	pairs := []*MarketPair{f.pair}

	s.MaybeSample(f.now, pairs)
	s.MaybeSample(f.now.Add(time.Second), pairs)
	assert.Equal(t, 1, s.SampleCount(f.pair))

	s.MaybeSample(f.now.Add(SampleInterval), pairs)
	assert.Equal(t, 2, s.SampleCount(f.pair))
}

func TestSamplerWindowBound(t *testing.T) {
	f := newFixture(t, testConfig())
	s := f.strat.sampler

	for i := 0; i < SampleWindow+5; i++ {
		s.MaybeSample(f.now.Add(time.Duration(i)*SampleInterval), []*MarketPair{f.pair})
	}
	assert.Equal(t, SampleWindow, s.SampleCount(f.pair))
}

func TestSmoothedTopWidestOverWindow(t *testing.T) {
	f := newFixture(t, testConfig())
	s := f.strat.sampler

	setMakerTop(f, "99", "101")
	s.MaybeSample(f.now, []*MarketPair{f.pair})

	// A later, tighter market: smoothing keeps the widest bid and tightest
	// ask across the window and the current top.
	setMakerTop(f, "98.5", "100.5")
	s.MaybeSample(f.now.Add(SampleInterval), []*MarketPair{f.pair})

	bid, ask, ok := s.SmoothedTop(f.pair)
	require.True(t, ok)
	assert.Equal(t, "99", bid.String())
	assert.Equal(t, "100.5", ask.String())
}

func TestSmoothedTopCurrentOnly(t *testing.T) {
	f := newFixture(t, testConfig())

	bid, ask, ok := f.strat.sampler.SmoothedTop(f.pair)
	require.True(t, ok)
	assert.Equal(t, "99", bid.String())
	assert.Equal(t, "101", ask.String())
}

func TestSmoothedTopSamplesSurviveOneSidedBook(t *testing.T) {
	f := newFixture(t, testConfig())
	s := f.strat.sampler

	s.MaybeSample(f.now, []*MarketPair{f.pair})

	// The book goes one-sided; the window still answers.
	f.maker.Book("ETH-USDT").SetSnapshot(
		[]market.Level{{Price: d("99"), Amount: d("5")}}, nil, f.now)

	bid, ask, ok := s.SmoothedTop(f.pair)
	require.True(t, ok)
	assert.Equal(t, "99", bid.String())
	assert.Equal(t, "101", ask.String())
}

func TestTopOfBookDepthTolerance(t *testing.T) {
	cfg := testConfig()
	cfg.TopDepthTolerance = d("2")
	f := newFixture(t, cfg)

	f.maker.Book("ETH-USDT").SetSnapshot(
		[]market.Level{{Price: d("99"), Amount: d("1")}, {Price: d("98"), Amount: d("1")}},
		[]market.Level{{Price: d("101"), Amount: d("1")}, {Price: d("102"), Amount: d("1")}},
		f.now)

	bid, ask, ok := f.strat.sampler.TopOfBook(f.pair)
	require.True(t, ok)
	assert.Equal(t, "98.5", bid.String())
	assert.Equal(t, "101.5", ask.String())
}
