package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/shopspring/decimal"

	"xemm-go/config"
	"xemm-go/fx"
	"xemm-go/infrastructure/logger"
	"xemm-go/metrics"
	"xemm-go/strategy/xemm"
	"xemm-go/venue"
)

func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "path to config file")
	metricsAddr := flag.String("metricsAddr", "", "metrics listen address (overrides config)")
	tickMs := flag.Int("tickMs", 0, "tick interval in milliseconds (overrides config)")
	flag.Parse()

	cfg, err := config.LoadWithEnvOverrides(*cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	zlog, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer zlog.Close()

	met := metrics.New()
	if addr := pick(*metricsAddr, cfg.MetricsAddr); addr != "" {
		go serveMetrics(addr, met, zlog)
	}

	venues, feeds := buildVenues(cfg)
	pairs, err := buildPairs(cfg, venues)
	if err != nil {
		log.Fatalf("build pairs: %v", err)
	}
	strategyCfg, err := cfg.Strategy.Build()
	if err != nil {
		log.Fatalf("build strategy config: %v", err)
	}
	strat, err := xemm.New(strategyCfg, pairs, buildOracle(cfg), zlog, met)
	if err != nil {
		log.Fatalf("init strategy: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	for name, feed := range feeds {
		go runFeed(ctx, name, feed, zlog)
	}

	// Tunable updates are funneled through a channel so they apply on the
	// tick goroutine, which owns all strategy state.
	tunables := make(chan xemm.Tunables, 1)
	watcher, err := config.NewWatcher(*cfgPath, config.DefaultWatchOptions())
	if err != nil {
		log.Fatalf("init config watcher: %v", err)
	}
	watcher.OnUpdate(func(next config.AppConfig) {
		tun, err := next.Strategy.Tunables()
		if err != nil {
			zlog.LogError(err, map[string]interface{}{"source": "config_reload"})
			return
		}
		select {
		case tunables <- tun:
		default:
		}
	})
	watcher.OnError(func(err error) {
		zlog.LogError(err, map[string]interface{}{"source": "config_watcher"})
	})
	if err := watcher.Start(ctx); err != nil {
		log.Fatalf("start config watcher: %v", err)
	}
	defer watcher.Stop()

	interval := time.Second
	if ms := pickInt(*tickMs, cfg.TickMs); ms > 0 {
		interval = time.Duration(ms) * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
	var watchdogC <-chan time.Time
	if wd, err := daemon.SdWatchdogEnabled(false); err == nil && wd > 0 {
		wt := time.NewTicker(wd / 2)
		defer wt.Stop()
		watchdogC = wt.C
	}

	zlog.Sugar().Infow("runner started",
		"env", cfg.Env, "pairs", len(pairs), "tick_interval", interval.String())

	for {
		select {
		case <-ctx.Done():
			_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
			zlog.Sugar().Infow("runner stopping")
			return
		case tun := <-tunables:
			if err := strat.UpdateTunables(tun); err != nil {
				zlog.LogError(err, map[string]interface{}{"source": "config_reload"})
			}
		case now := <-ticker.C:
			for _, v := range venues {
				v.ExpireOrders(now)
			}
			strat.Tick(now)
		case <-watchdogC:
			_, _ = daemon.SdNotify(false, daemon.SdNotifyWatchdog)
		}
	}
}

// buildVenues constructs one paper venue per config entry plus the depth
// feeds keeping their books current.
func buildVenues(cfg config.AppConfig) (map[string]*venue.Paper, map[string]*venue.DepthFeed) {
	venues := make(map[string]*venue.Paper, len(cfg.Venues))
	feeds := make(map[string]*venue.DepthFeed)
	for name, vc := range cfg.Venues {
		p := venue.NewPaper(name)
		for sym, rules := range vc.Symbols {
			p.AddPair(sym, venue.PairRules{
				Base:          rules.Base,
				Quote:         rules.Quote,
				PriceQuantum:  decimal.RequireFromString(rules.TickSize),
				AmountQuantum: decimal.RequireFromString(rules.StepSize),
			})
		}
		for asset, bal := range vc.Balances {
			amount := decimal.RequireFromString(bal)
			p.SetBalance(asset, amount, amount)
		}
		venues[name] = p

		if vc.FeedEndpoint != "" {
			feed := venue.NewDepthFeed(vc.FeedEndpoint)
			for sym, rules := range vc.Symbols {
				feedSym := rules.FeedSymbol
				if feedSym == "" {
					feedSym = sym
				}
				feed.Subscribe(feedSym, p.Book(sym))
			}
			paper := p
			feed.OnConnect(func() { paper.SetNetworkStatus(venue.Connected) })
			feed.OnDisconnect(func(error) { paper.SetNetworkStatus(venue.NotConnected) })
			feeds[name] = feed
		}
	}
	return venues, feeds
}

func buildPairs(cfg config.AppConfig, venues map[string]*venue.Paper) ([]*xemm.MarketPair, error) {
	pairs := make([]*xemm.MarketPair, 0, len(cfg.Pairs))
	for _, pc := range cfg.Pairs {
		makerRules := cfg.Venues[pc.MakerVenue].Symbols[pc.MakerPair]
		takerRules := cfg.Venues[pc.TakerVenue].Symbols[pc.TakerPair]
		maker, ok := venues[pc.MakerVenue]
		if !ok {
			return nil, fmt.Errorf("unknown maker venue %s", pc.MakerVenue)
		}
		taker, ok := venues[pc.TakerVenue]
		if !ok {
			return nil, fmt.Errorf("unknown taker venue %s", pc.TakerVenue)
		}
		pairs = append(pairs, &xemm.MarketPair{
			Maker: xemm.Leg{
				Venue:       maker,
				TradingPair: pc.MakerPair,
				Base:        makerRules.Base,
				Quote:       makerRules.Quote,
			},
			Taker: xemm.Leg{
				Venue:       taker,
				TradingPair: pc.TakerPair,
				Base:        takerRules.Base,
				Quote:       takerRules.Quote,
			},
		})
	}
	return pairs, nil
}

func buildOracle(cfg config.AppConfig) *fx.StaticOracle {
	oracle := fx.NewStaticOracle()
	for _, r := range cfg.FxRates {
		oracle.SetRate(r.From, r.To, decimal.RequireFromString(r.Rate))
	}
	return oracle
}

// runFeed keeps one depth feed connected until shutdown.
func runFeed(ctx context.Context, name string, feed *venue.DepthFeed, zlog *logger.Logger) {
	backoff := time.Second
	for {
		if err := feed.Run(); err != nil {
			zlog.LogError(err, map[string]interface{}{"feed": name})
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func serveMetrics(addr string, met *metrics.Metrics, zlog *logger.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", met.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		zlog.LogError(err, map[string]interface{}{"metrics_addr": addr})
	}
}

func pick(override, fallback string) string {
	if override != "" {
		return override
	}
	return fallback
}

func pickInt(override, fallback int) int {
	if override > 0 {
		return override
	}
	return fallback
}
