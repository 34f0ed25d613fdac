package xemm

import (
	"fmt"

	"xemm-go/market"
	"xemm-go/venue"
)

// Leg is one side of a market pair: a venue plus the trading pair it quotes.
type Leg struct {
	Venue       venue.Venue
	TradingPair string
	Base        string
	Quote       string
}

// MarketPair binds a maker leg to the taker leg that hedges it. Two pairs
// are distinct even when they share a leg; the strategy assigns each a
// stable integer handle at construction and all internal bookkeeping keys
// on that handle, because trading pair strings can collide across venues.
type MarketPair struct {
	handle int
	Maker  Leg
	Taker  Leg
}

// Handle is the process-stable identity of this pair.
func (p *MarketPair) Handle() int { return p.handle }

func (p *MarketPair) String() string {
	return fmt.Sprintf("%s:%s/%s:%s",
		p.Maker.Venue.Name(), p.Maker.TradingPair,
		p.Taker.Venue.Name(), p.Taker.TradingPair)
}

// makerBook is a shorthand for the maker leg's live order book.
func (p *MarketPair) makerBook() *market.Book {
	return p.Maker.Venue.Book(p.Maker.TradingPair)
}

// takerBook is a shorthand for the taker leg's live order book.
func (p *MarketPair) takerBook() *market.Book {
	return p.Taker.Venue.Book(p.Taker.TradingPair)
}
