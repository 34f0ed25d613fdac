package market

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// ErrEmptyBook is returned when a query needs depth that the book does not have.
var ErrEmptyBook = errors.New("order book side is empty")

// Level is one price level of a book side.
type Level struct {
	Price  decimal.Decimal
	Amount decimal.Decimal
}

// Book maintains sorted depth levels for one trading pair.
// Bids are kept descending by price, asks ascending.
type Book struct {
	mu         sync.RWMutex
	bids       []Level
	asks       []Level
	lastUpdate time.Time
}

func NewBook() *Book {
	return &Book{}
}

// SetSnapshot replaces both sides with the given levels.
func (b *Book) SetSnapshot(bids, asks []Level, ts time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bids = sortSide(bids, true)
	b.asks = sortSide(asks, false)
	b.lastUpdate = ts
}

// ApplyDelta merges incremental updates; a zero amount removes the level.
func (b *Book) ApplyDelta(bids, asks []Level, ts time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bids = mergeSide(b.bids, bids, true)
	b.asks = mergeSide(b.asks, asks, false)
	b.lastUpdate = ts
}

func sortSide(levels []Level, descending bool) []Level {
	out := make([]Level, 0, len(levels))
	for _, l := range levels {
		if l.Amount.IsPositive() {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if descending {
			return out[i].Price.GreaterThan(out[j].Price)
		}
		return out[i].Price.LessThan(out[j].Price)
	})
	return out
}

func mergeSide(side, deltas []Level, descending bool) []Level {
	if len(deltas) == 0 {
		return side
	}
	byPrice := make(map[string]decimal.Decimal, len(side)+len(deltas))
	for _, l := range side {
		byPrice[l.Price.String()] = l.Amount
	}
	for _, d := range deltas {
		if d.Amount.IsZero() {
			delete(byPrice, d.Price.String())
			continue
		}
		byPrice[d.Price.String()] = d.Amount
	}
	merged := make([]Level, 0, len(byPrice))
	for p, a := range byPrice {
		price, _ := decimal.NewFromString(p)
		merged = append(merged, Level{Price: price, Amount: a})
	}
	return sortSide(merged, descending)
}

// BestBid returns the highest bid. ok is false on an empty side.
func (b *Book) BestBid() (decimal.Decimal, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.bids) == 0 {
		return decimal.Zero, false
	}
	return b.bids[0].Price, true
}

// BestAsk returns the lowest ask. ok is false on an empty side.
func (b *Book) BestAsk() (decimal.Decimal, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.asks) == 0 {
		return decimal.Zero, false
	}
	return b.asks[0].Price, true
}

// Mid returns the midpoint of the inside market; ok is false if either side is empty.
func (b *Book) Mid() (decimal.Decimal, bool) {
	bid, okB := b.BestBid()
	ask, okA := b.BestAsk()
	if !okB || !okA {
		return decimal.Zero, false
	}
	return bid.Add(ask).Div(decimal.NewFromInt(2)), true
}

// LastUpdate reports when the book last changed.
func (b *Book) LastUpdate() time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastUpdate
}

// side returns the levels that a taker order of the given direction consumes:
// a buy walks the asks, a sell walks the bids.
func (b *Book) side(isBuy bool) []Level {
	if isBuy {
		return b.asks
	}
	return b.bids
}

// VWAPForVolume returns the volume-weighted average price paid to consume
// the given base volume from the top of the book. If the book holds less
// than the requested volume, the average over the available depth is
// returned. ErrEmptyBook if the side has no levels at all.
func (b *Book) VWAPForVolume(isBuy bool, volume decimal.Decimal) (decimal.Decimal, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	levels := b.side(isBuy)
	if len(levels) == 0 || !volume.IsPositive() {
		return decimal.Zero, ErrEmptyBook
	}
	remaining := volume
	notional := decimal.Zero
	filled := decimal.Zero
	for _, l := range levels {
		take := decimal.Min(remaining, l.Amount)
		notional = notional.Add(take.Mul(l.Price))
		filled = filled.Add(take)
		remaining = remaining.Sub(take)
		if !remaining.IsPositive() {
			break
		}
	}
	if filled.IsZero() {
		return decimal.Zero, ErrEmptyBook
	}
	return notional.Div(filled), nil
}

// PriceForVolume returns the deepest price touched when consuming the given
// base volume from the top of the book.
func (b *Book) PriceForVolume(isBuy bool, volume decimal.Decimal) (decimal.Decimal, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	levels := b.side(isBuy)
	if len(levels) == 0 || !volume.IsPositive() {
		return decimal.Zero, ErrEmptyBook
	}
	remaining := volume
	price := levels[0].Price
	for _, l := range levels {
		price = l.Price
		remaining = remaining.Sub(l.Amount)
		if !remaining.IsPositive() {
			break
		}
	}
	return price, nil
}

// TotalVolume sums the base amount resting on the side a taker order of the
// given direction would consume.
func (b *Book) TotalVolume(isBuy bool) decimal.Decimal {
	b.mu.RLock()
	defer b.mu.RUnlock()
	total := decimal.Zero
	for _, l := range b.side(isBuy) {
		total = total.Add(l.Amount)
	}
	return total
}
