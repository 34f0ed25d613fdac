// Package venue defines the exchange adapter surface the strategy consumes.
package venue

import (
	"github.com/shopspring/decimal"

	"xemm-go/market"
	"xemm-go/order"
)

// NetworkStatus is the adapter's view of its venue connection.
type NetworkStatus int

const (
	NotConnected NetworkStatus = iota
	Connected
)

func (s NetworkStatus) String() string {
	if s == Connected {
		return "CONNECTED"
	}
	return "NOT_CONNECTED"
}

// Venue is one exchange adapter. All reads are point-in-time snapshots;
// order submission is fire-and-forget with results delivered later as
// order.Listener events.
type Venue interface {
	Name() string
	Ready() bool
	NetworkStatus() NetworkStatus

	Balance(asset string) decimal.Decimal
	AvailableBalance(asset string) decimal.Decimal

	// Price returns the top of book on the side a taker order of the given
	// direction would hit. ok is false on an empty side.
	Price(tradingPair string, isBuy bool) (decimal.Decimal, bool)
	Book(tradingPair string) *market.Book

	// OrderPriceQuantum is the minimum price increment for the pair at the
	// given price level.
	OrderPriceQuantum(tradingPair string, price decimal.Decimal) decimal.Decimal
	// QuantizeOrderAmount snaps an amount down onto the pair's size grid.
	QuantizeOrderAmount(tradingPair string, amount decimal.Decimal) decimal.Decimal

	// Buy and Sell submit an order and return the client order id under
	// which the venue will report events for it.
	Buy(req order.Request) (string, error)
	Sell(req order.Request) (string, error)
	Cancel(tradingPair, orderID string) error

	// SetListener installs the event sink; passing nil detaches it.
	SetListener(l order.Listener)
}
