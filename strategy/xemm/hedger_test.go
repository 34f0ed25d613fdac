package xemm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"xemm-go/order"
)

func buyFill(amount, price string, ts time.Time) FillRecord {
	return FillRecord{Side: order.Buy, Amount: d(amount), Price: d(price), Timestamp: ts}
}

func TestHedgerAggregatesBucket(t *testing.T) {
	f := newFixture(t, testConfig())
	h := f.strat.hedger

	h.Record(f.pair, buyFill("0.3", "98.51", f.now))
	h.Record(f.pair, buyFill("0.2", "98.51", f.now))

	buy, sell := h.Pending(f.pair)
	assert.Equal(t, "0.5", buy.String())
	assert.True(t, sell.IsZero())

	// One taker sell for the whole bucket, settled against the 99.5 bids.
	h.Drain(f.pair, f.now)

	buy, _ = h.Pending(f.pair)
	assert.True(t, buy.IsZero())
	assert.Equal(t, "9.5", f.taker.Balance("ETH").String())
	assert.Equal(t, "10049.75", f.taker.Balance("USDT").String())
}

func TestHedgerSellBucketBuysBack(t *testing.T) {
	f := newFixture(t, testConfig())
	h := f.strat.hedger

	h.Record(f.pair, FillRecord{Side: order.Sell, Amount: d("1"), Price: d("101.51"), Timestamp: f.now})
	h.Drain(f.pair, f.now)

	_, sell := h.Pending(f.pair)
	assert.True(t, sell.IsZero())
	assert.Equal(t, "11", f.taker.Balance("ETH").String())
	assert.Equal(t, "9899.5", f.taker.Balance("USDT").String())
}

func TestHedgerBalanceCapShrinksHedge(t *testing.T) {
	f := newFixture(t, testConfig())
	h := f.strat.hedger

	// Two units filled but only two on the taker side: the hedge shrinks to
	// 2 * 0.995 and the bucket is still considered drained.
	f.taker.SetBalance("ETH", d("2"), d("2"))
	h.Record(f.pair, buyFill("2", "98.51", f.now))
	h.Drain(f.pair, f.now)

	buy, _ := h.Pending(f.pair)
	assert.True(t, buy.IsZero())
	assert.Equal(t, "0.01", f.taker.Balance("ETH").String())
	assert.Equal(t, "10198.005", f.taker.Balance("USDT").String())
}

func TestHedgerRejectionKeepsBucket(t *testing.T) {
	f := newFixture(t, testConfig())
	h := f.strat.hedger

	// No taker depth: the market order is rejected and the fills stay
	// buffered for the next round.
	f.setTakerBooks(nil, nil)
	h.Record(f.pair, buyFill("1", "98.51", f.now))
	h.Drain(f.pair, f.now)

	buy, _ := h.Pending(f.pair)
	assert.Equal(t, "1", buy.String())
	assert.Empty(t, f.strat.tracker.TakerOrdersForPair(f.pair.Handle()))

	// Depth returns, the retry succeeds.
	f.setDefaultBooks()
	h.Drain(f.pair, f.now.Add(time.Second))
	buy, _ = h.Pending(f.pair)
	assert.True(t, buy.IsZero())
}

func TestHedgerZeroBalanceLeavesBucket(t *testing.T) {
	f := newFixture(t, testConfig())
	h := f.strat.hedger

	f.taker.SetBalance("ETH", d("0"), d("0"))
	h.Record(f.pair, buyFill("1", "98.51", f.now))
	h.Drain(f.pair, f.now)

	// Nothing to hedge with; no order goes out and the bucket survives.
	buy, _ := h.Pending(f.pair)
	assert.Equal(t, "1", buy.String())
}
