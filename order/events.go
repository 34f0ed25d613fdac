package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// FilledEvent reports a (partial) fill of a tracked order.
type FilledEvent struct {
	Timestamp time.Time
	OrderID   string
	OrderType Type
	TradeType Side
	Price     decimal.Decimal
	Amount    decimal.Decimal
}

// CompletedEvent reports that an order is fully done on the venue.
type CompletedEvent struct {
	Timestamp  time.Time
	OrderID    string
	OrderType  Type
	BaseAmount decimal.Decimal
}

// CancelledEvent reports a confirmed cancellation.
type CancelledEvent struct {
	Timestamp time.Time
	OrderID   string
}

// Listener receives order lifecycle events from a venue. The venue holds the
// listener as a plain interface value that can be cleared on shutdown, so the
// strategy and the venue do not keep each other alive.
type Listener interface {
	DidFillOrder(FilledEvent)
	DidCompleteBuyOrder(CompletedEvent)
	DidCompleteSellOrder(CompletedEvent)
	DidCancelOrder(CancelledEvent)
}
