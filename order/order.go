package order

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Side is the trade direction.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// Type is the venue order type.
type Type string

const (
	Limit  Type = "LIMIT"
	Market Type = "MARKET"
)

// Client order ids carry their side as a scheme prefix so that fill events
// can be attributed without a round trip to the venue.
const (
	buyIDPrefix  = "buy://"
	sellIDPrefix = "sell://"
)

// NewClientID mints a process-unique client order id for the given side.
func NewClientID(side Side) string {
	if side == Sell {
		return sellIDPrefix + uuid.NewString()
	}
	return buyIDPrefix + uuid.NewString()
}

// SideOfClientID recovers the side encoded in a client order id.
// ok is false when the id does not carry a known prefix.
func SideOfClientID(id string) (Side, bool) {
	switch {
	case strings.HasPrefix(id, buyIDPrefix):
		return Buy, true
	case strings.HasPrefix(id, sellIDPrefix):
		return Sell, true
	}
	return "", false
}

// LimitOrder is a resting maker order as seen by the strategy.
type LimitOrder struct {
	ClientID    string
	TradingPair string
	PairHandle  int
	Side        Side
	Price       decimal.Decimal
	Quantity    decimal.Decimal
	CreatedAt   time.Time
	TTL         time.Duration
}

// MarketOrder is a taker hedge order in flight.
type MarketOrder struct {
	ClientID    string
	TradingPair string
	PairHandle  int
	Side        Side
	Quantity    decimal.Decimal
	CreatedAt   time.Time
}

// Request carries the parameters of a venue order submission.
type Request struct {
	ClientID    string
	TradingPair string
	Side        Side
	Type        Type
	Price       decimal.Decimal
	Quantity    decimal.Decimal
	TTL         time.Duration
}

// QuantizeFloor snaps value down onto the quantum grid.
func QuantizeFloor(value, quantum decimal.Decimal) decimal.Decimal {
	if !quantum.IsPositive() {
		return value
	}
	return value.Div(quantum).Floor().Mul(quantum)
}

// QuantizeCeil snaps value up onto the quantum grid.
func QuantizeCeil(value, quantum decimal.Decimal) decimal.Decimal {
	if !quantum.IsPositive() {
		return value
	}
	return value.Div(quantum).Ceil().Mul(quantum)
}
