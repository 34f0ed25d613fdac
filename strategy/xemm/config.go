// Package xemm implements a cross-exchange market-making strategy: resting
// limit orders on a maker venue priced off the hedging cost on a taker
// venue, with taker market orders offsetting every maker fill.
package xemm

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// LogOption selects optional log classes.
type LogOption uint32

const (
	LogNullOrderSize LogOption = 1 << iota
	LogRemovingOrder
	LogAdjustOrder
	LogCreateOrder
	LogMakerOrderFilled
	LogStatusReport
	LogMakerOrderHedged

	LogAll = LogNullOrderSize | LogRemovingOrder | LogAdjustOrder |
		LogCreateOrder | LogMakerOrderFilled | LogStatusReport | LogMakerOrderHedged
)

// Config holds the strategy parameters. Zero values are filled in by
// DefaultConfig; Validate rejects anything the engine cannot run with.
type Config struct {
	// MinProfitability is the minimum maker-vs-taker edge required to keep
	// or open a maker order.
	MinProfitability decimal.Decimal
	// OrderAmount overrides sizing when positive; zero means size from the
	// portfolio ratio limit.
	OrderAmount decimal.Decimal
	// OrderSizeTakerVolumeFactor caps order size as a fraction of the
	// hedgeable taker book volume.
	OrderSizeTakerVolumeFactor decimal.Decimal
	// OrderSizeTakerBalanceFactor caps hedge size as a fraction of the
	// taker-side available balance.
	OrderSizeTakerBalanceFactor decimal.Decimal
	// OrderSizePortfolioRatioLimit caps order size as a fraction of the
	// maker portfolio value.
	OrderSizePortfolioRatioLimit decimal.Decimal
	// AdjustOrderEnabled clamps maker prices to one tick past top of book.
	AdjustOrderEnabled bool
	// ActiveOrderCanceling cancels unprofitable orders immediately; when
	// false the looser CancelOrderThreshold applies and orders carry a TTL.
	ActiveOrderCanceling bool
	// CancelOrderThreshold is the profitability bound used when active
	// canceling is off. May be negative.
	CancelOrderThreshold decimal.Decimal
	// AntiHysteresisDuration is the minimum interval between drift-triggered
	// re-pricings of a pair.
	AntiHysteresisDuration time.Duration
	// LimitOrderMinExpiration is the TTL attached to maker orders in
	// passive-expiry mode.
	LimitOrderMinExpiration time.Duration
	// TopDepthTolerance is the book volume at which "top of book" is
	// measured; zero means the best quote.
	TopDepthTolerance decimal.Decimal
	// StatusReportInterval rate-limits connectivity warnings and status
	// report logs.
	StatusReportInterval time.Duration
	// LoggingOptions is the bitmask of optional log classes.
	LoggingOptions LogOption
}

// DefaultConfig returns the standard parameter set.
func DefaultConfig() Config {
	return Config{
		MinProfitability:             decimal.RequireFromString("0.003"),
		OrderSizeTakerVolumeFactor:   decimal.RequireFromString("0.25"),
		OrderSizeTakerBalanceFactor:  decimal.RequireFromString("0.995"),
		OrderSizePortfolioRatioLimit: decimal.RequireFromString("0.1667"),
		AdjustOrderEnabled:           false,
		ActiveOrderCanceling:         true,
		CancelOrderThreshold:         decimal.Zero,
		AntiHysteresisDuration:       60 * time.Second,
		LimitOrderMinExpiration:      130 * time.Second,
		TopDepthTolerance:            decimal.Zero,
		StatusReportInterval:         900 * time.Second,
		LoggingOptions:               LogAll,
	}
}

var one = decimal.New(1, 0)

// Validate checks parameter ranges. Failures are fatal at construction.
func (c *Config) Validate() error {
	if !c.MinProfitability.IsPositive() {
		return errors.New("min_profitability must be > 0")
	}
	if c.OrderAmount.IsNegative() {
		return errors.New("order_amount must be >= 0")
	}
	for name, v := range map[string]decimal.Decimal{
		"order_size_taker_volume_factor":   c.OrderSizeTakerVolumeFactor,
		"order_size_taker_balance_factor":  c.OrderSizeTakerBalanceFactor,
		"order_size_portfolio_ratio_limit": c.OrderSizePortfolioRatioLimit,
	} {
		if !v.IsPositive() || v.GreaterThan(one) {
			return fmt.Errorf("%s must be in (0, 1]", name)
		}
	}
	if c.TopDepthTolerance.IsNegative() {
		return errors.New("top_depth_tolerance must be >= 0")
	}
	if c.AntiHysteresisDuration <= 0 {
		return errors.New("anti_hysteresis_duration must be > 0")
	}
	if !c.ActiveOrderCanceling && c.LimitOrderMinExpiration <= 0 {
		return errors.New("limit_order_min_expiration must be > 0 when active canceling is off")
	}
	if c.StatusReportInterval <= 0 {
		return errors.New("status_report_interval must be > 0")
	}
	return nil
}

// threshold returns the profitability bound the supervisor cancels against.
func (c *Config) threshold() decimal.Decimal {
	if c.ActiveOrderCanceling {
		return c.MinProfitability
	}
	return c.CancelOrderThreshold
}
