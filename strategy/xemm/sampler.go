package xemm

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	// SampleWindow bounds the per-pair price sample queues.
	SampleWindow = 12
	// SampleInterval is the width of one sampling slot.
	SampleInterval = 5 * time.Second
)

type sampleQueue struct {
	bids []decimal.Decimal
	asks []decimal.Decimal
}

func (q *sampleQueue) push(bid, ask decimal.Decimal) {
	q.bids = append(q.bids, bid)
	q.asks = append(q.asks, ask)
	if len(q.bids) > SampleWindow {
		q.bids = q.bids[len(q.bids)-SampleWindow:]
	}
	if len(q.asks) > SampleWindow {
		q.asks = q.asks[len(q.asks)-SampleWindow:]
	}
}

// Sampler keeps sliding windows of maker top-of-book snapshots, one pair of
// bounded queues per market pair. The smoothed top it derives — the widest
// bid and tightest ask seen in the window — is what makes re-pricing
// insensitive to transient book spikes.
type Sampler struct {
	topDepthTolerance decimal.Decimal
	samples           map[int]*sampleQueue
	lastSlot          int64
}

func NewSampler(topDepthTolerance decimal.Decimal) *Sampler {
	return &Sampler{
		topDepthTolerance: topDepthTolerance,
		samples:           make(map[int]*sampleQueue),
		lastSlot:          -1,
	}
}

// MaybeSample appends one snapshot per pair when the clock has crossed into
// a new slot. Pairs whose maker book is one-sided are skipped this round.
func (s *Sampler) MaybeSample(now time.Time, pairs []*MarketPair) {
	slot := now.Unix() / int64(SampleInterval/time.Second)
	if slot <= s.lastSlot {
		return
	}
	s.lastSlot = slot
	for _, pair := range pairs {
		bid, ask, ok := s.TopOfBook(pair)
		if !ok {
			continue
		}
		q, exists := s.samples[pair.Handle()]
		if !exists {
			q = &sampleQueue{}
			s.samples[pair.Handle()] = q
		}
		q.push(bid, ask)
	}
}

// TopOfBook reports the maker inside market. With a zero depth tolerance it
// is the best quote; otherwise the VWAP over the configured depth volume on
// each side.
func (s *Sampler) TopOfBook(pair *MarketPair) (bid, ask decimal.Decimal, ok bool) {
	book := pair.makerBook()
	if s.topDepthTolerance.IsPositive() {
		var errB, errA error
		bid, errB = book.VWAPForVolume(false, s.topDepthTolerance)
		ask, errA = book.VWAPForVolume(true, s.topDepthTolerance)
		if errB == nil && errA == nil {
			return bid, ask, true
		}
	}
	bid, okB := book.BestBid()
	ask, okA := book.BestAsk()
	return bid, ask, okB && okA
}

// SmoothedTop returns the effective inside market: the maximum bid and
// minimum ask over the sample window and the current top. ok is false only
// when neither samples nor a current top exist.
func (s *Sampler) SmoothedTop(pair *MarketPair) (bid, ask decimal.Decimal, ok bool) {
	curBid, curAsk, haveCur := s.TopOfBook(pair)
	q := s.samples[pair.Handle()]
	haveSamples := q != nil && len(q.bids) > 0

	switch {
	case haveCur && haveSamples:
		bid, ask = curBid, curAsk
		for _, b := range q.bids {
			bid = decimal.Max(bid, b)
		}
		for _, a := range q.asks {
			ask = decimal.Min(ask, a)
		}
		return bid, ask, true
	case haveCur:
		return curBid, curAsk, true
	case haveSamples:
		bid, ask = q.bids[0], q.asks[0]
		for _, b := range q.bids[1:] {
			bid = decimal.Max(bid, b)
		}
		for _, a := range q.asks[1:] {
			ask = decimal.Min(ask, a)
		}
		return bid, ask, true
	}
	return decimal.Zero, decimal.Zero, false
}

// SampleCount reports the queue length for a pair, for status display.
func (s *Sampler) SampleCount(pair *MarketPair) int {
	if q := s.samples[pair.Handle()]; q != nil {
		return len(q.bids)
	}
	return 0
}
