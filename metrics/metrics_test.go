package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCountersIncrement(t *testing.T) {
	m := New()

	m.RecordOrderPlaced("ETH-USDT", "BUY")
	m.RecordOrderPlaced("ETH-USDT", "BUY")
	m.RecordOrderCanceled("ETH-USDT", "drift")
	m.RecordHedgePlaced("ETH-USDT", "SELL")
	m.RecordHedgeFailure("ETH-USDT", "SELL")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ordersPlaced.WithLabelValues("ETH-USDT", "BUY")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ordersCanceled.WithLabelValues("ETH-USDT", "drift")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.hedgesPlaced.WithLabelValues("ETH-USDT", "SELL")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.hedgeFailures.WithLabelValues("ETH-USDT", "SELL")))
}

func TestGauges(t *testing.T) {
	m := New()

	m.UpdateBidPrice("ETH-USDT", 98.51)
	m.UpdateAskPrice("ETH-USDT", 101.51)
	m.UpdatePendingHedge("ETH-USDT", "BUY", 2.5)

	assert.Equal(t, 98.51, testutil.ToFloat64(m.bidPrice.WithLabelValues("ETH-USDT")))
	assert.Equal(t, 101.51, testutil.ToFloat64(m.askPrice.WithLabelValues("ETH-USDT")))
	assert.Equal(t, 2.5, testutil.ToFloat64(m.pendingHedge.WithLabelValues("ETH-USDT", "BUY")))
}

func TestIndependentRegistries(t *testing.T) {
	a := New()
	b := New()
	a.RecordOrderPlaced("ETH-USDT", "BUY")
	assert.Equal(t, 0.0, testutil.ToFloat64(b.ordersPlaced.WithLabelValues("ETH-USDT", "BUY")))
}
