package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"tradews/internal/domain/model"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	requestTimeout = 5 * time.Second
	sendBuffer     = 16
)

// CandleReader serves the on-demand snapshot pull for a subscriber that asks
// for an instrument's current state instead of waiting for the next push.
type CandleReader interface {
	LatestPayload(ctx context.Context, symbol string) (model.CandlePayload, error)
}

type snapshotRequest struct {
	Symbol string `json:"symbol"`
}

type errorReply struct {
	Error string `json:"error"`
}

// Client is one live subscriber connection. The hub owns its registry entry;
// the connection itself is owned here. All writes to the socket go through
// the send channel, so pushes and snapshot replies never interleave. Both
// the hub and readPump send on send, so it is never closed; the hub signals
// teardown by closing done instead.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	done    chan struct{}
	candles CandleReader
	log     *slog.Logger
}

// readPump consumes inbound messages. A `{"symbol": "..."}` request is
// answered with the latest persisted candle for that instrument; everything
// else is ignored.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug("subscriber read error", "error", err)
			}
			return
		}

		var req snapshotRequest
		if err := json.Unmarshal(message, &req); err != nil || req.Symbol == "" {
			continue
		}

		reply := c.snapshot(req.Symbol)
		select {
		case c.send <- reply:
		default:
			return
		}
	}
}

func (c *Client) snapshot(symbol string) []byte {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	payload, err := c.candles.LatestPayload(ctx, symbol)
	switch {
	case errors.Is(err, model.ErrNoCandle):
		data, _ := json.Marshal(errorReply{Error: "no candle for symbol"})
		return data
	case err != nil:
		c.log.Error("failed to load latest candle", "symbol", symbol, "error", err)
		data, _ := json.Marshal(errorReply{Error: "internal error"})
		return data
	}

	data, err := json.Marshal(payload)
	if err != nil {
		c.log.Error("failed to marshal snapshot", "symbol", symbol, "error", err)
		data, _ = json.Marshal(errorReply{Error: "internal error"})
	}
	return data
}

// writePump is the single writer for the connection. It drains the send
// channel and keeps the connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-c.done:
			// Hub tore this subscriber down.
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
