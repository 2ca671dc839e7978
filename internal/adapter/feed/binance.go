package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"tradews/internal/domain/model"
	"tradews/internal/domain/port"
)

// subscribeID is the fixed correlation id sent with every subscription
// request; replies carrying it are subscription acks, not trades.
const subscribeID = 1

const streamBuffer = 2048

type subscribeRequest struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
	ID     int      `json:"id"`
}

// tradeEvent is the inbound Binance trade message. Prices and quantities
// arrive as decimal strings, trade time as epoch milliseconds.
type tradeEvent struct {
	Symbol    string `json:"s"`
	Price     string `json:"p"`
	Quantity  string `json:"q"`
	TradeTime int64  `json:"T"`
}

// BinanceFeed maintains a persistent websocket connection to the Binance
// trade stream. Lifecycle: dial, subscribe to every configured instrument's
// trade channel, stream until the connection breaks, wait out the retry
// policy, reconnect. The loop never terminates on its own.
type BinanceFeed struct {
	url     string
	symbols []string
	retry   RetryPolicy
	log     *slog.Logger
	dialer  *websocket.Dialer
	dropped atomic.Int64
}

func NewBinanceFeed(url string, symbols []string, retry RetryPolicy, log *slog.Logger) port.FeedPort {
	if retry == nil {
		retry = FixedDelay{}
	}
	return &BinanceFeed{
		url:     url,
		symbols: symbols,
		retry:   retry,
		log:     log,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
	}
}

func (f *BinanceFeed) Name() string {
	return "binance"
}

// Dropped reports how many inbound messages carried symbol and price fields
// but could not be decoded into a trade.
func (f *BinanceFeed) Dropped() int64 {
	return f.dropped.Load()
}

func (f *BinanceFeed) Stream(ctx context.Context) <-chan model.RawTrade {
	out := make(chan model.RawTrade, streamBuffer)

	go func() {
		defer close(out)
		for {
			if ctx.Err() != nil {
				return
			}

			if err := f.runConnection(ctx, out); err != nil {
				f.log.Error("feed connection lost, reconnecting", "feed", f.Name(), "error", err)
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(f.retry.NextDelay()):
			}
		}
	}()

	return out
}

// runConnection performs one full connect/subscribe/stream pass. It returns
// nil only when ctx was cancelled; every other exit is a connection-level
// error to be retried.
func (f *BinanceFeed) runConnection(ctx context.Context, out chan<- model.RawTrade) error {
	conn, _, err := f.dialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", f.url, err)
	}
	defer conn.Close()

	// Unblock ReadMessage when ctx is cancelled mid-stream.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	streams := make([]string, len(f.symbols))
	for i, symbol := range f.symbols {
		streams[i] = strings.ToLower(symbol) + "@trade"
	}
	if err := conn.WriteJSON(subscribeRequest{
		Method: "SUBSCRIBE",
		Params: streams,
		ID:     subscribeID,
	}); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	f.log.Info("subscribed to trade streams", "feed", f.Name(), "streams", streams)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}

		trade, ok := f.decode(message)
		if !ok {
			continue
		}

		select {
		case out <- trade:
		case <-ctx.Done():
			return nil
		}
	}
}

// decode normalizes one inbound message. Messages without symbol and price
// fields (subscription acks, control frames) are ignored silently; messages
// that carry them but fail to parse are counted as dropped.
func (f *BinanceFeed) decode(message []byte) (model.RawTrade, bool) {
	var ev tradeEvent
	if err := json.Unmarshal(message, &ev); err != nil {
		return model.RawTrade{}, false
	}
	if ev.Symbol == "" || ev.Price == "" {
		return model.RawTrade{}, false
	}

	price, err := decimal.NewFromString(ev.Price)
	if err != nil {
		f.dropped.Add(1)
		return model.RawTrade{}, false
	}
	quantity, err := decimal.NewFromString(ev.Quantity)
	if err != nil {
		f.dropped.Add(1)
		return model.RawTrade{}, false
	}

	return model.RawTrade{
		Symbol:     strings.ToLower(ev.Symbol),
		Price:      price,
		Quantity:   quantity,
		OccurredAt: time.UnixMilli(ev.TradeTime),
	}, true
}
