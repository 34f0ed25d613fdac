// Package fx converts values between quote currencies when the maker and
// taker legs of a pair settle in different assets.
package fx

import (
	"sync"

	"github.com/shopspring/decimal"
)

// Oracle supplies conversion rates between quote assets.
type Oracle interface {
	// ConvertTokenValue converts amount denominated in from-units into
	// to-units. Identity when the assets match or no rate is known.
	ConvertTokenValue(amount decimal.Decimal, from, to string) decimal.Decimal
	// AdjustTokenRate applies the display adjustment for a quote asset.
	AdjustTokenRate(quote string, price decimal.Decimal) decimal.Decimal
}

type rateKey struct {
	from string
	to   string
}

// StaticOracle holds a fixed rate table, typically loaded from config.
type StaticOracle struct {
	mu    sync.RWMutex
	rates map[rateKey]decimal.Decimal
}

func NewStaticOracle() *StaticOracle {
	return &StaticOracle{rates: make(map[rateKey]decimal.Decimal)}
}

// SetRate installs the rate for from→to and its inverse.
func (o *StaticOracle) SetRate(from, to string, rate decimal.Decimal) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rates[rateKey{from, to}] = rate
	if rate.IsPositive() {
		o.rates[rateKey{to, from}] = decimal.New(1, 0).Div(rate)
	}
}

func (o *StaticOracle) ConvertTokenValue(amount decimal.Decimal, from, to string) decimal.Decimal {
	if from == to {
		return amount
	}
	o.mu.RLock()
	rate, ok := o.rates[rateKey{from, to}]
	o.mu.RUnlock()
	if !ok {
		return amount
	}
	return amount.Mul(rate)
}

func (o *StaticOracle) AdjustTokenRate(quote string, price decimal.Decimal) decimal.Decimal {
	return price
}
