package venue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"xemm-go/market"
)

// depthMessage is the wire format of a depth snapshot frame: price/amount
// string tuples per side, Binance-style.
type depthMessage struct {
	Symbol string      `json:"s"`
	Bids   [][2]string `json:"b"`
	Asks   [][2]string `json:"a"`
}

// DepthFeed keeps venue books current from a websocket depth stream.
type DepthFeed struct {
	Endpoint string
	Dialer   *websocket.Dialer

	books        map[string]*market.Book
	onConnect    func()
	onDisconnect func(error)
}

func NewDepthFeed(endpoint string) *DepthFeed {
	return &DepthFeed{
		Endpoint: endpoint,
		Dialer:   websocket.DefaultDialer,
		books:    make(map[string]*market.Book),
	}
}

// Subscribe routes depth frames for a symbol into the given book.
func (f *DepthFeed) Subscribe(symbol string, book *market.Book) {
	f.books[symbol] = book
}

func (f *DepthFeed) OnConnect(fn func())         { f.onConnect = fn }
func (f *DepthFeed) OnDisconnect(fn func(error)) { f.onDisconnect = fn }

// Run connects and pumps frames until the connection drops or ctx-free
// shutdown closes the socket. The caller owns reconnect policy.
func (f *DepthFeed) Run() error {
	if len(f.books) == 0 {
		return fmt.Errorf("no depth subscriptions")
	}
	conn, _, err := f.Dialer.Dial(f.Endpoint, nil)
	if err != nil {
		if f.onDisconnect != nil {
			f.onDisconnect(err)
		}
		return err
	}
	defer conn.Close()
	if f.onConnect != nil {
		f.onConnect()
	}

	for {
		_ = conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if f.onDisconnect != nil {
				f.onDisconnect(err)
			}
			return err
		}
		f.handleFrame(raw)
	}
}

func (f *DepthFeed) handleFrame(raw []byte) {
	var msg depthMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return
	}
	book, ok := f.books[msg.Symbol]
	if !ok {
		return
	}
	bids, err := parseLevels(msg.Bids)
	if err != nil {
		return
	}
	asks, err := parseLevels(msg.Asks)
	if err != nil {
		return
	}
	book.SetSnapshot(bids, asks, time.Now())
}

func parseLevels(raw [][2]string) ([]market.Level, error) {
	levels := make([]market.Level, 0, len(raw))
	for _, pair := range raw {
		price, err := decimal.NewFromString(pair[0])
		if err != nil {
			return nil, err
		}
		amount, err := decimal.NewFromString(pair[1])
		if err != nil {
			return nil, err
		}
		levels = append(levels, market.Level{Price: price, Amount: amount})
	}
	return levels, nil
}
