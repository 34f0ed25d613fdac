package xemm

import (
	"time"

	"xemm-go/order"
)

type trackerShadow struct {
	id       string
	expireAt time.Time
}

// PairTracker maps client order ids to their owning market pair. Ids for
// recently stopped orders stay resolvable for order.ShadowKeepAlive so that
// late fill and completion events can still be attributed; a time-indexed
// queue drained on tick removes them afterwards.
//
// The tracker is owned by the strategy and only touched on the tick/event
// goroutine, so it carries no lock.
type PairTracker struct {
	byID   map[string]*MarketPair
	expiry []trackerShadow
}

func NewPairTracker() *PairTracker {
	return &PairTracker{byID: make(map[string]*MarketPair)}
}

// StartTracking binds an order id to its pair.
func (t *PairTracker) StartTracking(id string, pair *MarketPair) {
	t.byID[id] = pair
}

// StopTracking schedules the id for removal after the shadow grace period.
func (t *PairTracker) StopTracking(id string, now time.Time) {
	if _, ok := t.byID[id]; !ok {
		return
	}
	t.expiry = append(t.expiry, trackerShadow{id: id, expireAt: now.Add(order.ShadowKeepAlive)})
}

// Forget drops an id immediately, with no shadow period. Used to roll back
// a registration whose venue submission was rejected.
func (t *PairTracker) Forget(id string) {
	delete(t.byID, id)
}

// Lookup resolves an id to its pair; nil for unknown ids.
func (t *PairTracker) Lookup(id string) *MarketPair {
	return t.byID[id]
}

// CheckAndExpire drops ids whose shadow period has passed.
func (t *PairTracker) CheckAndExpire(now time.Time) {
	i := 0
	for ; i < len(t.expiry); i++ {
		if t.expiry[i].expireAt.After(now) {
			break
		}
		delete(t.byID, t.expiry[i].id)
	}
	if i > 0 {
		t.expiry = t.expiry[i:]
	}
}
