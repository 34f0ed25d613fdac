package venue

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"xemm-go/market"
	"xemm-go/order"
)

var (
	ErrUnknownPair   = errors.New("trading pair not registered")
	ErrInvalidAmount = errors.New("order amount must be positive")
)

// PairRules carries per-pair grid and asset information.
type PairRules struct {
	Base          string
	Quote         string
	PriceQuantum  decimal.Decimal
	AmountQuantum decimal.Decimal
}

// Paper is an in-memory venue used by the runner's dry mode and by tests.
// Limit orders rest until cancelled, expired, or crossed by FillLimitOrder;
// market orders fill immediately against the book.
type Paper struct {
	name string

	mu        sync.Mutex
	ready     bool
	status    NetworkStatus
	balances  map[string]decimal.Decimal
	available map[string]decimal.Decimal
	books     map[string]*market.Book
	rules     map[string]PairRules
	resting   map[string]order.Request
	placedAt  map[string]time.Time
	listener  order.Listener
}

func NewPaper(name string) *Paper {
	return &Paper{
		name:      name,
		ready:     true,
		status:    Connected,
		balances:  make(map[string]decimal.Decimal),
		available: make(map[string]decimal.Decimal),
		books:     make(map[string]*market.Book),
		rules:     make(map[string]PairRules),
		resting:   make(map[string]order.Request),
		placedAt:  make(map[string]time.Time),
	}
}

func (p *Paper) Name() string { return p.name }

func (p *Paper) Ready() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ready
}

func (p *Paper) SetReady(ready bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ready = ready
}

func (p *Paper) NetworkStatus() NetworkStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *Paper) SetNetworkStatus(s NetworkStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status = s
}

// AddPair registers grid rules and the asset pair behind a trading pair.
func (p *Paper) AddPair(tradingPair string, rules PairRules) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rules[tradingPair] = rules
	if _, ok := p.books[tradingPair]; !ok {
		p.books[tradingPair] = market.NewBook()
	}
}

// SetBalance sets both total and available balance for an asset.
func (p *Paper) SetBalance(asset string, total, available decimal.Decimal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.balances[asset] = total
	p.available[asset] = available
}

func (p *Paper) Balance(asset string) decimal.Decimal {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.balances[asset]
}

func (p *Paper) AvailableBalance(asset string) decimal.Decimal {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.available[asset]
}

func (p *Paper) Book(tradingPair string) *market.Book {
	p.mu.Lock()
	defer p.mu.Unlock()
	b, ok := p.books[tradingPair]
	if !ok {
		b = market.NewBook()
		p.books[tradingPair] = b
	}
	return b
}

func (p *Paper) Price(tradingPair string, isBuy bool) (decimal.Decimal, bool) {
	b := p.Book(tradingPair)
	if isBuy {
		return b.BestAsk()
	}
	return b.BestBid()
}

func (p *Paper) OrderPriceQuantum(tradingPair string, _ decimal.Decimal) decimal.Decimal {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rules[tradingPair].PriceQuantum
}

func (p *Paper) QuantizeOrderAmount(tradingPair string, amount decimal.Decimal) decimal.Decimal {
	p.mu.Lock()
	q := p.rules[tradingPair].AmountQuantum
	p.mu.Unlock()
	return order.QuantizeFloor(amount, q)
}

func (p *Paper) Buy(req order.Request) (string, error) {
	return p.submit(req, order.Buy)
}

func (p *Paper) Sell(req order.Request) (string, error) {
	return p.submit(req, order.Sell)
}

func (p *Paper) submit(req order.Request, side order.Side) (string, error) {
	if !req.Quantity.IsPositive() {
		return "", ErrInvalidAmount
	}
	p.mu.Lock()
	rules, ok := p.rules[req.TradingPair]
	if !ok {
		p.mu.Unlock()
		return "", fmt.Errorf("%w: %s", ErrUnknownPair, req.TradingPair)
	}
	req.Side = side
	if req.ClientID == "" {
		req.ClientID = order.NewClientID(side)
	}
	if req.Type == order.Limit {
		p.resting[req.ClientID] = req
		p.placedAt[req.ClientID] = time.Now()
		p.mu.Unlock()
		return req.ClientID, nil
	}
	p.mu.Unlock()
	return req.ClientID, p.fillMarket(req, rules)
}

// fillMarket crosses a market order against the current book and settles
// balances at the VWAP of the consumed depth.
func (p *Paper) fillMarket(req order.Request, rules PairRules) error {
	book := p.Book(req.TradingPair)
	vwap, err := book.VWAPForVolume(req.Side == order.Buy, req.Quantity)
	if err != nil {
		return err
	}
	notional := vwap.Mul(req.Quantity)

	p.mu.Lock()
	if req.Side == order.Buy {
		p.credit(rules.Base, req.Quantity)
		p.debit(rules.Quote, notional)
	} else {
		p.debit(rules.Base, req.Quantity)
		p.credit(rules.Quote, notional)
	}
	l := p.listener
	p.mu.Unlock()

	if l != nil {
		now := time.Now()
		l.DidFillOrder(order.FilledEvent{
			Timestamp: now,
			OrderID:   req.ClientID,
			OrderType: order.Market,
			TradeType: req.Side,
			Price:     vwap,
			Amount:    req.Quantity,
		})
		done := order.CompletedEvent{
			Timestamp:  now,
			OrderID:    req.ClientID,
			OrderType:  order.Market,
			BaseAmount: req.Quantity,
		}
		if req.Side == order.Buy {
			l.DidCompleteBuyOrder(done)
		} else {
			l.DidCompleteSellOrder(done)
		}
	}
	return nil
}

// FillLimitOrder simulates a counterparty lifting a resting order. The fill
// settles at the order's limit price and emits the usual event sequence.
func (p *Paper) FillLimitOrder(orderID string) error {
	p.mu.Lock()
	req, ok := p.resting[orderID]
	if !ok {
		p.mu.Unlock()
		return fmt.Errorf("no resting order %s", orderID)
	}
	delete(p.resting, orderID)
	delete(p.placedAt, orderID)
	rules := p.rules[req.TradingPair]
	notional := req.Price.Mul(req.Quantity)
	if req.Side == order.Buy {
		p.credit(rules.Base, req.Quantity)
		p.debit(rules.Quote, notional)
	} else {
		p.debit(rules.Base, req.Quantity)
		p.credit(rules.Quote, notional)
	}
	l := p.listener
	p.mu.Unlock()

	if l != nil {
		now := time.Now()
		l.DidFillOrder(order.FilledEvent{
			Timestamp: now,
			OrderID:   req.ClientID,
			OrderType: order.Limit,
			TradeType: req.Side,
			Price:     req.Price,
			Amount:    req.Quantity,
		})
		done := order.CompletedEvent{
			Timestamp:  now,
			OrderID:    req.ClientID,
			OrderType:  order.Limit,
			BaseAmount: req.Quantity,
		}
		if req.Side == order.Buy {
			l.DidCompleteBuyOrder(done)
		} else {
			l.DidCompleteSellOrder(done)
		}
	}
	return nil
}

// Cancel removes a resting order. Unknown ids are ignored.
func (p *Paper) Cancel(_ string, orderID string) error {
	p.mu.Lock()
	_, ok := p.resting[orderID]
	delete(p.resting, orderID)
	delete(p.placedAt, orderID)
	l := p.listener
	p.mu.Unlock()
	if ok && l != nil {
		l.DidCancelOrder(order.CancelledEvent{Timestamp: time.Now(), OrderID: orderID})
	}
	return nil
}

// ExpireOrders cancels resting orders whose TTL has elapsed, mirroring
// venue-side auto cancellation in passive-expiry mode.
func (p *Paper) ExpireOrders(now time.Time) {
	p.mu.Lock()
	var expired []string
	for id, req := range p.resting {
		if req.TTL > 0 && now.Sub(p.placedAt[id]) >= req.TTL {
			expired = append(expired, id)
			delete(p.resting, id)
			delete(p.placedAt, id)
		}
	}
	l := p.listener
	p.mu.Unlock()
	if l == nil {
		return
	}
	for _, id := range expired {
		l.DidCancelOrder(order.CancelledEvent{Timestamp: now, OrderID: id})
	}
}

// RestingOrders returns a copy of the venue-side open limit orders.
func (p *Paper) RestingOrders() []order.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]order.Request, 0, len(p.resting))
	for _, req := range p.resting {
		out = append(out, req)
	}
	return out
}

func (p *Paper) SetListener(l order.Listener) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listener = l
}

func (p *Paper) credit(asset string, amount decimal.Decimal) {
	p.balances[asset] = p.balances[asset].Add(amount)
	p.available[asset] = p.available[asset].Add(amount)
}

func (p *Paper) debit(asset string, amount decimal.Decimal) {
	p.balances[asset] = p.balances[asset].Sub(amount)
	p.available[asset] = p.available[asset].Sub(amount)
}
