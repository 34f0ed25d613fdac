// Package config loads and watches the engine's YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"xemm-go/infrastructure/logger"
	"xemm-go/strategy/xemm"
)

// AppConfig holds the main runtime configuration.
type AppConfig struct {
	Env         string                 `yaml:"env"`
	Logger      logger.Config          `yaml:"logger"`
	MetricsAddr string                 `yaml:"metricsAddr"`
	TickMs      int                    `yaml:"tickMs"`
	Venues      map[string]VenueConfig `yaml:"venues"`
	Pairs       []PairConfig           `yaml:"pairs"`
	Strategy    StrategyParams         `yaml:"strategy"`
	FxRates     []FxRate               `yaml:"fxRates"`
}

// VenueConfig describes one exchange connection and the symbols traded on it.
type VenueConfig struct {
	FeedEndpoint string                 `yaml:"feedEndpoint"`
	APIKey       string                 `yaml:"apiKey"`
	APISecret    string                 `yaml:"apiSecret"`
	Balances     map[string]string      `yaml:"balances"` // paper-mode seed, decimal strings
	Symbols      map[string]SymbolRules `yaml:"symbols"`
}

// SymbolRules carries per-symbol grid and asset information. Numeric fields
// are decimal strings so the grids survive YAML without float rounding.
type SymbolRules struct {
	Base       string `yaml:"base"`
	Quote      string `yaml:"quote"`
	TickSize   string `yaml:"tickSize"`
	StepSize   string `yaml:"stepSize"`
	FeedSymbol string `yaml:"feedSymbol"`
}

// PairConfig binds a maker leg to the taker leg hedging it.
type PairConfig struct {
	MakerVenue string `yaml:"makerVenue"`
	MakerPair  string `yaml:"makerPair"`
	TakerVenue string `yaml:"takerVenue"`
	TakerPair  string `yaml:"takerPair"`
}

// StrategyParams mirrors xemm.Config in YAML-friendly types.
type StrategyParams struct {
	MinProfitability             string `yaml:"minProfitability"`
	OrderAmount                  string `yaml:"orderAmount"`
	OrderSizeTakerVolumeFactor   string `yaml:"orderSizeTakerVolumeFactor"`
	OrderSizeTakerBalanceFactor  string `yaml:"orderSizeTakerBalanceFactor"`
	OrderSizePortfolioRatioLimit string `yaml:"orderSizePortfolioRatioLimit"`
	AdjustOrderEnabled           bool   `yaml:"adjustOrderEnabled"`
	ActiveOrderCanceling         *bool  `yaml:"activeOrderCanceling"`
	CancelOrderThreshold         string `yaml:"cancelOrderThreshold"`
	AntiHysteresisSeconds        int    `yaml:"antiHysteresisSeconds"`
	LimitOrderExpirationSeconds  int    `yaml:"limitOrderExpirationSeconds"`
	TopDepthTolerance            string `yaml:"topDepthTolerance"`
	StatusReportSeconds          int    `yaml:"statusReportSeconds"`
}

// FxRate is one static conversion rate between quote assets.
type FxRate struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
	Rate string `yaml:"rate"`
}

// Load reads YAML config from path and applies basic validation.
func Load(path string) (AppConfig, error) {
	var cfg AppConfig
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadWithEnvOverrides loads config then overrides venue credentials from
// XEMM_<VENUE>_API_KEY / XEMM_<VENUE>_API_SECRET when present.
func LoadWithEnvOverrides(path string) (AppConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	for name, vc := range cfg.Venues {
		prefix := "XEMM_" + strings.ToUpper(name) + "_"
		if v := os.Getenv(prefix + "API_KEY"); v != "" {
			vc.APIKey = v
		}
		if v := os.Getenv(prefix + "API_SECRET"); v != "" {
			vc.APISecret = v
		}
		cfg.Venues[name] = vc
	}
	return cfg, Validate(cfg)
}

// Validate ensures required fields are present and cross-references resolve.
func Validate(cfg AppConfig) error {
	if cfg.Env == "" {
		return errors.New("env is required")
	}
	if cfg.TickMs < 0 {
		return errors.New("tickMs must be >= 0")
	}
	if len(cfg.Venues) == 0 {
		return errors.New("venues config is required")
	}
	for name, vc := range cfg.Venues {
		for sym, rules := range vc.Symbols {
			if rules.Base == "" || rules.Quote == "" {
				return fmt.Errorf("venue %s symbol %s needs base and quote", name, sym)
			}
			if err := requirePositiveDecimal(rules.TickSize, name, sym, "tickSize"); err != nil {
				return err
			}
			if err := requirePositiveDecimal(rules.StepSize, name, sym, "stepSize"); err != nil {
				return err
			}
		}
		for asset, bal := range vc.Balances {
			if _, err := decimal.NewFromString(bal); err != nil {
				return fmt.Errorf("venue %s balance %s: %w", name, asset, err)
			}
		}
	}
	if len(cfg.Pairs) == 0 {
		return errors.New("pairs config is required")
	}
	for i, pc := range cfg.Pairs {
		for _, ref := range []struct{ venue, sym string }{
			{pc.MakerVenue, pc.MakerPair},
			{pc.TakerVenue, pc.TakerPair},
		} {
			vc, ok := cfg.Venues[ref.venue]
			if !ok {
				return fmt.Errorf("pair %d references unknown venue %s", i, ref.venue)
			}
			if _, ok := vc.Symbols[ref.sym]; !ok {
				return fmt.Errorf("pair %d references unknown symbol %s on %s", i, ref.sym, ref.venue)
			}
		}
	}
	for _, r := range cfg.FxRates {
		if r.From == "" || r.To == "" {
			return errors.New("fx rate needs from and to assets")
		}
		rate, err := decimal.NewFromString(r.Rate)
		if err != nil || !rate.IsPositive() {
			return fmt.Errorf("fx rate %s->%s must be a positive decimal", r.From, r.To)
		}
	}
	if _, err := cfg.Strategy.Build(); err != nil {
		return err
	}
	return nil
}

func requirePositiveDecimal(raw, venue, sym, field string) error {
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("venue %s symbol %s %s: %w", venue, sym, field, err)
	}
	if !v.IsPositive() {
		return fmt.Errorf("venue %s symbol %s %s must be > 0", venue, sym, field)
	}
	return nil
}

// Build converts the YAML parameters into a validated strategy config.
// Unset fields keep their defaults.
func (p StrategyParams) Build() (xemm.Config, error) {
	cfg := xemm.DefaultConfig()

	assign := func(raw string, dst *decimal.Decimal, field string) error {
		if raw == "" {
			return nil
		}
		v, err := decimal.NewFromString(raw)
		if err != nil {
			return fmt.Errorf("strategy.%s: %w", field, err)
		}
		*dst = v
		return nil
	}
	if err := assign(p.MinProfitability, &cfg.MinProfitability, "minProfitability"); err != nil {
		return cfg, err
	}
	if err := assign(p.OrderAmount, &cfg.OrderAmount, "orderAmount"); err != nil {
		return cfg, err
	}
	if err := assign(p.OrderSizeTakerVolumeFactor, &cfg.OrderSizeTakerVolumeFactor, "orderSizeTakerVolumeFactor"); err != nil {
		return cfg, err
	}
	if err := assign(p.OrderSizeTakerBalanceFactor, &cfg.OrderSizeTakerBalanceFactor, "orderSizeTakerBalanceFactor"); err != nil {
		return cfg, err
	}
	if err := assign(p.OrderSizePortfolioRatioLimit, &cfg.OrderSizePortfolioRatioLimit, "orderSizePortfolioRatioLimit"); err != nil {
		return cfg, err
	}
	if err := assign(p.CancelOrderThreshold, &cfg.CancelOrderThreshold, "cancelOrderThreshold"); err != nil {
		return cfg, err
	}
	if err := assign(p.TopDepthTolerance, &cfg.TopDepthTolerance, "topDepthTolerance"); err != nil {
		return cfg, err
	}

	cfg.AdjustOrderEnabled = p.AdjustOrderEnabled
	if p.ActiveOrderCanceling != nil {
		cfg.ActiveOrderCanceling = *p.ActiveOrderCanceling
	}
	if p.AntiHysteresisSeconds > 0 {
		cfg.AntiHysteresisDuration = time.Duration(p.AntiHysteresisSeconds) * time.Second
	}
	if p.LimitOrderExpirationSeconds > 0 {
		cfg.LimitOrderMinExpiration = time.Duration(p.LimitOrderExpirationSeconds) * time.Second
	}
	if p.StatusReportSeconds > 0 {
		cfg.StatusReportInterval = time.Duration(p.StatusReportSeconds) * time.Second
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Tunables extracts the hot-reloadable subset of the strategy parameters.
func (p StrategyParams) Tunables() (xemm.Tunables, error) {
	cfg, err := p.Build()
	if err != nil {
		return xemm.Tunables{}, err
	}
	return xemm.Tunables{
		MinProfitability:       cfg.MinProfitability,
		OrderAmount:            cfg.OrderAmount,
		CancelOrderThreshold:   cfg.CancelOrderThreshold,
		AntiHysteresisDuration: cfg.AntiHysteresisDuration,
	}, nil
}
