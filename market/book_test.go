package market

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func lv(price, amount string) Level {
	return Level{Price: dec(price), Amount: dec(amount)}
}

func TestBookBestAndMid(t *testing.T) {
	b := NewBook()
	b.SetSnapshot(
		[]Level{lv("99.5", "2"), lv("100.0", "1"), lv("99.0", "3")},
		[]Level{lv("101.0", "1"), lv("100.5", "2")},
		time.Now(),
	)

	bid, ok := b.BestBid()
	require.True(t, ok)
	assert.True(t, bid.Equal(dec("100.0")))

	ask, ok := b.BestAsk()
	require.True(t, ok)
	assert.True(t, ask.Equal(dec("100.5")))

	mid, ok := b.Mid()
	require.True(t, ok)
	assert.True(t, mid.Equal(dec("100.25")))
}

func TestBookEmptySide(t *testing.T) {
	b := NewBook()
	_, ok := b.BestBid()
	assert.False(t, ok)
	_, ok = b.Mid()
	assert.False(t, ok)

	_, err := b.VWAPForVolume(true, dec("1"))
	assert.ErrorIs(t, err, ErrEmptyBook)
	_, err = b.PriceForVolume(false, dec("1"))
	assert.ErrorIs(t, err, ErrEmptyBook)
}

func TestBookApplyDelta(t *testing.T) {
	b := NewBook()
	b.SetSnapshot([]Level{lv("100", "1")}, []Level{lv("101", "1")}, time.Now())

	// Remove the bid, tighten the ask.
	b.ApplyDelta(
		[]Level{lv("100", "0"), lv("99.8", "2")},
		[]Level{lv("100.9", "0.5")},
		time.Now(),
	)

	bid, ok := b.BestBid()
	require.True(t, ok)
	assert.True(t, bid.Equal(dec("99.8")))

	ask, ok := b.BestAsk()
	require.True(t, ok)
	assert.True(t, ask.Equal(dec("100.9")))
}

func TestVWAPForVolume(t *testing.T) {
	b := NewBook()
	b.SetSnapshot(
		[]Level{lv("99", "1"), lv("98", "1")},
		[]Level{lv("100", "1"), lv("102", "1")},
		time.Now(),
	)

	// Buying 2 walks both ask levels: (100 + 102) / 2 = 101.
	vwap, err := b.VWAPForVolume(true, dec("2"))
	require.NoError(t, err)
	assert.True(t, vwap.Equal(dec("101")), "got %s", vwap)

	// Selling 1 takes only the top bid.
	vwap, err = b.VWAPForVolume(false, dec("1"))
	require.NoError(t, err)
	assert.True(t, vwap.Equal(dec("99")))

	// Requesting more than the resting depth averages what is there.
	vwap, err = b.VWAPForVolume(false, dec("10"))
	require.NoError(t, err)
	assert.True(t, vwap.Equal(dec("98.5")), "got %s", vwap)
}

func TestPriceForVolume(t *testing.T) {
	b := NewBook()
	b.SetSnapshot(
		[]Level{lv("99", "1"), lv("98", "3")},
		[]Level{lv("100", "1"), lv("102", "1")},
		time.Now(),
	)

	p, err := b.PriceForVolume(true, dec("1.5"))
	require.NoError(t, err)
	assert.True(t, p.Equal(dec("102")))

	p, err = b.PriceForVolume(false, dec("1"))
	require.NoError(t, err)
	assert.True(t, p.Equal(dec("99")))
}

func TestTotalVolume(t *testing.T) {
	b := NewBook()
	b.SetSnapshot(
		[]Level{lv("99", "1"), lv("98", "3")},
		[]Level{lv("100", "0.5")},
		time.Now(),
	)
	assert.True(t, b.TotalVolume(false).Equal(dec("4")))
	assert.True(t, b.TotalVolume(true).Equal(dec("0.5")))
}
