package order

import (
	"sync"
	"time"
)

// ShadowKeepAlive is how long a closed order stays resolvable so that late
// venue events can still be attributed to it.
const ShadowKeepAlive = 900 * time.Second

type shadowEntry struct {
	id       string
	expireAt time.Time
}

// Tracker is the strategy-side order ledger: active maker limit orders,
// in-flight taker market orders, an in-flight cancel set, and a shadow map
// of recently closed orders kept alive for ShadowKeepAlive.
type Tracker struct {
	mu             sync.RWMutex
	activeMaker    map[string]*LimitOrder
	shadowMaker    map[string]*LimitOrder
	shadowQueue    []shadowEntry
	inFlightCancel map[string]struct{}
	taker          map[string]*MarketOrder
}

func NewTracker() *Tracker {
	return &Tracker{
		activeMaker:    make(map[string]*LimitOrder),
		shadowMaker:    make(map[string]*LimitOrder),
		inFlightCancel: make(map[string]struct{}),
		taker:          make(map[string]*MarketOrder),
	}
}

// StartTrackingLimit registers a freshly placed maker order.
func (t *Tracker) StartTrackingLimit(o *LimitOrder) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.activeMaker[o.ClientID] = o
}

// StopTrackingLimit moves a maker order to the shadow map. The order remains
// visible through GetLimitOrder until its shadow entry expires.
func (t *Tracker) StopTrackingLimit(id string, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	o, ok := t.activeMaker[id]
	if !ok {
		return
	}
	delete(t.activeMaker, id)
	delete(t.inFlightCancel, id)
	t.shadowMaker[id] = o
	t.shadowQueue = append(t.shadowQueue, shadowEntry{id: id, expireAt: now.Add(ShadowKeepAlive)})
}

// CheckAndExpireShadow drains shadow entries whose grace period has passed.
// Called once per clock tick.
func (t *Tracker) CheckAndExpireShadow(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	i := 0
	for ; i < len(t.shadowQueue); i++ {
		if t.shadowQueue[i].expireAt.After(now) {
			break
		}
		delete(t.shadowMaker, t.shadowQueue[i].id)
	}
	if i > 0 {
		t.shadowQueue = t.shadowQueue[i:]
	}
}

// ActiveMakerOrders returns a copy of all active maker orders.
func (t *Tracker) ActiveMakerOrders() []*LimitOrder {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*LimitOrder, 0, len(t.activeMaker))
	for _, o := range t.activeMaker {
		out = append(out, o)
	}
	return out
}

// ActiveMakerOrdersForPair returns the active maker orders owned by one pair.
func (t *Tracker) ActiveMakerOrdersForPair(handle int) []*LimitOrder {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []*LimitOrder
	for _, o := range t.activeMaker {
		if o.PairHandle == handle {
			out = append(out, o)
		}
	}
	return out
}

// GetLimitOrder resolves an active or shadow maker order by id.
func (t *Tracker) GetLimitOrder(id string) (*LimitOrder, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if o, ok := t.activeMaker[id]; ok {
		return o, true
	}
	o, ok := t.shadowMaker[id]
	return o, ok
}

// Forget discards an order that was registered but whose submission the
// venue rejected. Unlike StopTrackingLimit it leaves no shadow entry.
func (t *Tracker) Forget(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.activeMaker, id)
	delete(t.inFlightCancel, id)
	delete(t.taker, id)
}

// AddInFlightCancel hides an order from re-evaluation until the cancellation
// event arrives.
func (t *Tracker) AddInFlightCancel(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inFlightCancel[id] = struct{}{}
}

// HasInFlightCancel reports whether a cancel request is outstanding for id.
func (t *Tracker) HasInFlightCancel(id string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.inFlightCancel[id]
	return ok
}

// StartTrackingMarket registers a taker hedge order.
func (t *Tracker) StartTrackingMarket(o *MarketOrder) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.taker[o.ClientID] = o
}

// StopTrackingMarket drops a completed taker order.
func (t *Tracker) StopTrackingMarket(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.taker, id)
}

// GetMarketOrder resolves an in-flight taker order by id.
func (t *Tracker) GetMarketOrder(id string) (*MarketOrder, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	o, ok := t.taker[id]
	return o, ok
}

// TakerOrdersForPair returns the in-flight taker orders owned by one pair.
func (t *Tracker) TakerOrdersForPair(handle int) []*MarketOrder {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []*MarketOrder
	for _, o := range t.taker {
		if o.PairHandle == handle {
			out = append(out, o)
		}
	}
	return out
}
