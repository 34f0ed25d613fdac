package venue

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xemm-go/market"
	"xemm-go/order"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestVenue() *Paper {
	v := NewPaper("paper")
	v.AddPair("ETH-USDT", PairRules{
		Base:          "ETH",
		Quote:         "USDT",
		PriceQuantum:  dec("0.01"),
		AmountQuantum: dec("0.001"),
	})
	v.SetBalance("ETH", dec("10"), dec("10"))
	v.SetBalance("USDT", dec("10000"), dec("10000"))
	v.Book("ETH-USDT").SetSnapshot(
		[]market.Level{{Price: dec("99.5"), Amount: dec("5")}},
		[]market.Level{{Price: dec("100.5"), Amount: dec("5")}},
		time.Now(),
	)
	return v
}

type recordingListener struct {
	fills      []order.FilledEvent
	buysDone   []order.CompletedEvent
	sellsDone  []order.CompletedEvent
	cancelled  []order.CancelledEvent
}

func (r *recordingListener) DidFillOrder(e order.FilledEvent)         { r.fills = append(r.fills, e) }
func (r *recordingListener) DidCompleteBuyOrder(e order.CompletedEvent)  { r.buysDone = append(r.buysDone, e) }
func (r *recordingListener) DidCompleteSellOrder(e order.CompletedEvent) { r.sellsDone = append(r.sellsDone, e) }
func (r *recordingListener) DidCancelOrder(e order.CancelledEvent)    { r.cancelled = append(r.cancelled, e) }

func TestPaperLimitOrderRests(t *testing.T) {
	v := newTestVenue()
	id, err := v.Buy(order.Request{
		TradingPair: "ETH-USDT",
		Type:        order.Limit,
		Price:       dec("99"),
		Quantity:    dec("1"),
	})
	require.NoError(t, err)
	require.Len(t, v.RestingOrders(), 1)

	side, ok := order.SideOfClientID(id)
	require.True(t, ok)
	assert.Equal(t, order.Buy, side)
}

func TestPaperMarketOrderSettles(t *testing.T) {
	v := newTestVenue()
	l := &recordingListener{}
	v.SetListener(l)

	_, err := v.Sell(order.Request{
		TradingPair: "ETH-USDT",
		Type:        order.Market,
		Quantity:    dec("2"),
	})
	require.NoError(t, err)

	// Sold 2 ETH into the 99.5 bid.
	assert.True(t, v.Balance("ETH").Equal(dec("8")))
	assert.True(t, v.Balance("USDT").Equal(dec("10199")))

	require.Len(t, l.fills, 1)
	assert.Equal(t, order.Market, l.fills[0].OrderType)
	assert.True(t, l.fills[0].Price.Equal(dec("99.5")))
	require.Len(t, l.sellsDone, 1)
}

func TestPaperCancelIdempotent(t *testing.T) {
	v := newTestVenue()
	l := &recordingListener{}
	v.SetListener(l)

	id, err := v.Sell(order.Request{
		TradingPair: "ETH-USDT",
		Type:        order.Limit,
		Price:       dec("101"),
		Quantity:    dec("1"),
	})
	require.NoError(t, err)

	require.NoError(t, v.Cancel("ETH-USDT", id))
	require.Len(t, l.cancelled, 1)

	// Second cancel is a no-op.
	require.NoError(t, v.Cancel("ETH-USDT", id))
	assert.Len(t, l.cancelled, 1)
}

func TestPaperFillLimitOrder(t *testing.T) {
	v := newTestVenue()
	l := &recordingListener{}
	v.SetListener(l)

	id, err := v.Buy(order.Request{
		TradingPair: "ETH-USDT",
		Type:        order.Limit,
		Price:       dec("99"),
		Quantity:    dec("1"),
	})
	require.NoError(t, err)

	require.NoError(t, v.FillLimitOrder(id))
	assert.Empty(t, v.RestingOrders())
	assert.True(t, v.Balance("ETH").Equal(dec("11")))
	assert.True(t, v.Balance("USDT").Equal(dec("9901")))

	require.Len(t, l.fills, 1)
	assert.Equal(t, order.Limit, l.fills[0].OrderType)
	require.Len(t, l.buysDone, 1)
}

func TestPaperRejectsUnknownPairAndZeroAmount(t *testing.T) {
	v := newTestVenue()
	_, err := v.Buy(order.Request{TradingPair: "BTC-USDT", Type: order.Limit, Price: dec("1"), Quantity: dec("1")})
	assert.ErrorIs(t, err, ErrUnknownPair)

	_, err = v.Buy(order.Request{TradingPair: "ETH-USDT", Type: order.Limit, Price: dec("1")})
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestPaperExpireOrders(t *testing.T) {
	v := newTestVenue()
	l := &recordingListener{}
	v.SetListener(l)

	id, err := v.Sell(order.Request{
		TradingPair: "ETH-USDT",
		Type:        order.Limit,
		Price:       dec("101"),
		Quantity:    dec("1"),
		TTL:         time.Minute,
	})
	require.NoError(t, err)

	v.ExpireOrders(time.Now().Add(30 * time.Second))
	assert.Len(t, v.RestingOrders(), 1)

	v.ExpireOrders(time.Now().Add(2 * time.Minute))
	assert.Empty(t, v.RestingOrders())
	require.Len(t, l.cancelled, 1)
	assert.Equal(t, id, l.cancelled[0].OrderID)
}
