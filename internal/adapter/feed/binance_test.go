package feed

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradews/internal/domain/model"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func collectTrades(t *testing.T, stream <-chan model.RawTrade, n int) []model.RawTrade {
	t.Helper()
	var trades []model.RawTrade
	deadline := time.After(5 * time.Second)
	for len(trades) < n {
		select {
		case trade, ok := <-stream:
			require.True(t, ok, "stream closed early")
			trades = append(trades, trade)
		case <-deadline:
			t.Fatalf("timed out waiting for %d trades, got %d", n, len(trades))
		}
	}
	return trades
}

func TestFeedSubscribesAndDecodesTrades(t *testing.T) {
	subscribes := make(chan subscribeRequest, 4)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		_, message, err := conn.ReadMessage()
		require.NoError(t, err)
		var sub subscribeRequest
		require.NoError(t, json.Unmarshal(message, &sub))
		subscribes <- sub

		// Subscription ack, then a mix of valid and broken messages.
		frames := []string{
			`{"result":null,"id":1}`,
			`{"e":"trade","s":"BTCUSDT","p":"45000.50","q":"0.25","T":1709294400000}`,
			`{"s":"BTCUSDT"}`,
			`{"s":"BTCUSDT","p":"not-a-number","q":"1","T":1709294400500}`,
			`{"e":"trade","s":"ETHUSDT","p":"3000","q":"2","T":1709294401000}`,
		}
		for _, frame := range frames {
			require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(frame)))
		}

		// Hold the connection open until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	feed := NewBinanceFeed(wsURL(srv), []string{"btcusdt", "ethusdt"}, FixedDelay{Delay: 10 * time.Millisecond}, testLogger()).(*BinanceFeed)
	stream := feed.Stream(ctx)

	trades := collectTrades(t, stream, 2)

	sub := <-subscribes
	assert.Equal(t, "SUBSCRIBE", sub.Method)
	assert.Equal(t, []string{"btcusdt@trade", "ethusdt@trade"}, sub.Params)
	assert.Equal(t, 1, sub.ID)

	assert.Equal(t, "btcusdt", trades[0].Symbol)
	assert.Equal(t, "45000.5", trades[0].Price.String())
	assert.Equal(t, "0.25", trades[0].Quantity.String())
	assert.True(t, trades[0].OccurredAt.Equal(time.UnixMilli(1709294400000)))

	assert.Equal(t, "ethusdt", trades[1].Symbol)
	assert.Equal(t, "3000", trades[1].Price.String())

	// The ack and the price-less message are ignored silently; only the
	// unparseable price counts as dropped.
	assert.Equal(t, int64(1), feed.Dropped())
}

func TestFeedReconnectsAndResubscribes(t *testing.T) {
	subscribes := make(chan subscribeRequest, 8)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		_, message, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var sub subscribeRequest
		if err := json.Unmarshal(message, &sub); err != nil {
			return
		}
		subscribes <- sub

		conn.WriteMessage(websocket.TextMessage,
			[]byte(`{"e":"trade","s":"BTCUSDT","p":"45000","q":"1","T":1709294400000}`))
		// Drop the connection so the client has to reconnect.
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	feed := NewBinanceFeed(wsURL(srv), []string{"btcusdt"}, FixedDelay{Delay: 10 * time.Millisecond}, testLogger())
	stream := feed.Stream(ctx)

	trades := collectTrades(t, stream, 2)
	assert.Equal(t, "btcusdt", trades[0].Symbol)
	assert.Equal(t, "btcusdt", trades[1].Symbol)

	// Each reconnect re-issues the full subscription.
	for i := 0; i < 2; i++ {
		select {
		case sub := <-subscribes:
			assert.Equal(t, "SUBSCRIBE", sub.Method)
			assert.Equal(t, []string{"btcusdt@trade"}, sub.Params)
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for resubscribe")
		}
	}
}

func TestFixedDelayDefaultsToFiveSeconds(t *testing.T) {
	assert.Equal(t, 5*time.Second, FixedDelay{}.NextDelay())
	assert.Equal(t, time.Second, FixedDelay{Delay: time.Second}.NextDelay())
}
