package xemm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"xemm-go/order"
)

func TestPairTrackerShadowLookup(t *testing.T) {
	pt := NewPairTracker()
	pair := &MarketPair{handle: 7}
	now := time.Unix(1_700_000_000, 0)

	pt.StartTracking("buy://abc", pair)
	assert.Same(t, pair, pt.Lookup("buy://abc"))

	// Stopping keeps the id resolvable for the whole grace period so late
	// fills still find their pair.
	pt.StopTracking("buy://abc", now)
	assert.Same(t, pair, pt.Lookup("buy://abc"))

	pt.CheckAndExpire(now.Add(order.ShadowKeepAlive - time.Second))
	assert.Same(t, pair, pt.Lookup("buy://abc"))

	pt.CheckAndExpire(now.Add(order.ShadowKeepAlive + time.Second))
	assert.Nil(t, pt.Lookup("buy://abc"))
}

func TestPairTrackerUnknownID(t *testing.T) {
	pt := NewPairTracker()
	assert.Nil(t, pt.Lookup("sell://nope"))

	// Stopping an unknown id must not queue a phantom expiry.
	pt.StopTracking("sell://nope", time.Now())
	pt.CheckAndExpire(time.Now().Add(2 * order.ShadowKeepAlive))
}

func TestPairTrackerForget(t *testing.T) {
	pt := NewPairTracker()
	pair := &MarketPair{handle: 1}

	pt.StartTracking("sell://xyz", pair)
	pt.Forget("sell://xyz")
	assert.Nil(t, pt.Lookup("sell://xyz"))
}
